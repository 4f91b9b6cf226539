package search

import (
	"sync"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
)

// DefaultExpectedCount is assumed for a region nobody has counted yet.
const DefaultExpectedCount = 1

// CountCache remembers the expected system count per region for the life of
// the process. Sessions share one when they are given the same cache.
type CountCache struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewCountCache() *CountCache {
	return &CountCache{counts: make(map[string]int)}
}

// Get returns the count stored for region.
func (c *CountCache) Get(region boxel.Boxel) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.counts[region.WithN2(0).Name()]
	return n, ok
}

// GetOrDefault returns the stored count, or DefaultExpectedCount.
func (c *CountCache) GetOrDefault(region boxel.Boxel) int {
	if n, ok := c.Get(region); ok {
		return n
	}
	return DefaultExpectedCount
}

func (c *CountCache) Set(region boxel.Boxel, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[region.WithN2(0).Name()] = n
}

// Len returns the number of regions with a stored count.
func (c *CountCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.counts)
}
