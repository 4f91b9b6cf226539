package search

import (
	"context"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/trees"
)

// Progress reports how many regions of the search are known, either empty or
// with systems. Regions with no progress yet are filled in from the empty
// region store and from the local records of the top region's sector.
func (s *Session) Progress(ctx context.Context) (trees.ProgressMetrics, error) {
	s.mu.Lock()
	if s.progress == nil {
		s.mu.Unlock()
		return trees.ProgressMetrics{}, ErrNoFocus
	}
	tree := s.progress
	sector := s.top.Sector()
	var unknown []boxel.Boxel
	tree.Walk(func(region boxel.Boxel, value int) bool {
		if value == trees.ProgressUnknown {
			unknown = append(unknown, region)
		}
		return true
	})
	s.mu.Unlock()

	if len(unknown) == 0 {
		return s.metrics(tree), nil
	}

	// one query for the sector, then count systems per region
	local := make(map[boxel.Boxel]int)
	if s.records != nil {
		records, err := s.records.ListLocalSystems(ctx, sector+" ")
		if err != nil {
			return trees.ProgressMetrics{}, err
		}
		for _, rec := range records {
			if bx, ok := boxel.Parse(rec.Name); ok {
				local[bx.WithN2(0)]++
			}
		}
	}

	found := make(map[boxel.Boxel]int, len(unknown))
	for _, region := range unknown {
		if s.empty.Contains(ctx, region) {
			found[region] = trees.ProgressEmpty
		} else if n := local[region]; n > 0 {
			found[region] = n
		}
	}

	s.mu.Lock()
	// a Reset while unlocked replaced the tree; the counts belong to the old one
	if s.progress == tree {
		for region, v := range found {
			if cur, _ := tree.Get(region); cur == trees.ProgressUnknown {
				tree.Set(region, v)
			}
		}
	}
	s.mu.Unlock()

	s.logger.Debug("Progress calculated", "unknown", len(unknown), "filled", len(found))
	return s.metrics(tree), nil
}

func (s *Session) metrics(tree *trees.ProgressTree) trees.ProgressMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tree.Metrics()
}
