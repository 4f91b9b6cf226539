package trees

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/armon/go-radix"
)

// NameIndexStats tracks usage of a NameIndex.
type NameIndexStats struct {
	Entries       int64
	Lookups       int64
	PrefixLookups int64
	Insertions    int64
	Deletions     int64
}

// NameIndex maps system names to values with O(k) exact and prefix lookups,
// k being the length of the name. Every system inside a boxel shares its
// prefix, so a prefix walk lists the members of a region directly.
type NameIndex[T any] struct {
	tree *radix.Tree
	mu   sync.RWMutex

	lookups       atomic.Int64
	prefixLookups atomic.Int64
	insertions    atomic.Int64
	deletions     atomic.Int64
}

// NewNameIndex creates an empty index.
func NewNameIndex[T any]() *NameIndex[T] {
	return &NameIndex[T]{tree: radix.New()}
}

// Insert stores value under name, replacing any previous value. It reports
// whether an entry was replaced.
func (idx *NameIndex[T]) Insert(name string, value T) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, updated := idx.tree.Insert(name, value)
	idx.insertions.Add(1)

	slog.Debug("Name index insertion completed",
		"name", name,
		"was_update", updated,
		"total_entries", idx.tree.Len())

	return updated
}

// Lookup finds the value stored for an exact name.
func (idx *NameIndex[T]) Lookup(name string) (T, bool) {
	idx.lookups.Add(1)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var zero T
	value, found := idx.tree.Get(name)
	if !found {
		return zero, false
	}
	return value.(T), true
}

// PrefixLookup returns the values of every name starting with prefix, in name
// order.
func (idx *NameIndex[T]) PrefixLookup(prefix string) []T {
	var results []T
	idx.WalkPrefix(prefix, func(_ string, value T) bool {
		results = append(results, value)
		return true
	})

	slog.Debug("Prefix lookup completed",
		"prefix", prefix,
		"results_count", len(results))

	return results
}

// CountPrefix returns how many names start with prefix.
func (idx *NameIndex[T]) CountPrefix(prefix string) int {
	count := 0
	idx.WalkPrefix(prefix, func(string, T) bool {
		count++
		return true
	})
	return count
}

// WalkPrefix calls fn for each name starting with prefix, in name order,
// until fn returns false.
func (idx *NameIndex[T]) WalkPrefix(prefix string, fn func(name string, value T) bool) {
	idx.prefixLookups.Add(1)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.tree.WalkPrefix(prefix, func(key string, value interface{}) bool {
		v, ok := value.(T)
		if !ok {
			return false // Continue walking
		}
		// radix stops the walk when the callback returns true
		return !fn(key, v)
	})
}

// Remove deletes name from the index.
func (idx *NameIndex[T]) Remove(name string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, deleted := idx.tree.Delete(name)
	idx.deletions.Add(1)
	return deleted
}

// Len returns the number of names in the index.
func (idx *NameIndex[T]) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}

// Stats returns a copy of the usage counters.
func (idx *NameIndex[T]) Stats() NameIndexStats {
	return NameIndexStats{
		Entries:       int64(idx.Len()),
		Lookups:       idx.lookups.Load(),
		PrefixLookups: idx.prefixLookups.Load(),
		Insertions:    idx.insertions.Load(),
		Deletions:     idx.deletions.Load(),
	}
}

// Clear removes every entry.
func (idx *NameIndex[T]) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.tree = radix.New()
}
