package trees

import (
	"log/slog"
	"slices"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
)

// MaxProgressDepth is the deepest number of levels below the top region a
// ProgressTree will enumerate. Each level is 8 times larger than the one
// above, so 5 levels is 37449 regions in total.
const MaxProgressDepth = 5

// Progress values for a region.
const (
	ProgressUnknown = 0
	ProgressEmpty   = -1
)

// ProgressTree records what is known about every region inside a top region
// down to a floor mass code: 0 unknown, -1 confirmed empty, >0 the number of
// member systems found.
type ProgressTree struct {
	top    boxel.Boxel
	floor  boxel.MassCode
	counts map[boxel.Boxel]int
	levels map[boxel.MassCode][]boxel.Boxel
}

// NewProgressTree enumerates every region inside top down to floor, each set to
// unknown. When floor is more than maxDepth levels below top it is raised, and
// a warning is logged. A floor above the top's own mass code tracks just top.
func NewProgressTree(top boxel.Boxel, floor boxel.MassCode, maxDepth int, logger *slog.Logger) *ProgressTree {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDepth <= 0 || maxDepth > MaxProgressDepth {
		maxDepth = MaxProgressDepth
	}

	root := top.WithN2(0)
	if floor > root.MassCode() {
		floor = root.MassCode()
	}
	if depth := root.MassCode().Sub(floor); depth > maxDepth {
		clamped := root.MassCode().Add(-maxDepth)
		logger.Warn("Progress tree floor clamped",
			"top", root.Name(),
			"requested_floor", floor.String(),
			"floor", clamped.String(),
			"max_depth", maxDepth)
		floor = clamped
	}

	t := &ProgressTree{
		top:    root,
		floor:  floor,
		counts: make(map[boxel.Boxel]int),
		levels: make(map[boxel.MassCode][]boxel.Boxel),
	}

	// explicit worklist, 8 children per level until the floor
	work := []boxel.Boxel{root}
	for len(work) > 0 {
		bx := work[len(work)-1]
		work = work[:len(work)-1]

		t.counts[bx] = ProgressUnknown
		t.levels[bx.MassCode()] = append(t.levels[bx.MassCode()], bx)

		if bx.MassCode() > floor {
			work = append(work, bx.Children()...)
		}
	}

	for mc := range t.levels {
		slices.SortFunc(t.levels[mc], boxel.Compare)
	}

	logger.Debug("Progress tree built",
		"top", root.Name(),
		"floor", floor.String(),
		"regions", len(t.counts))

	return t
}

// Top returns the root region with n2 zeroed.
func (t *ProgressTree) Top() boxel.Boxel { return t.top }

// Floor returns the smallest mass code tracked.
func (t *ProgressTree) Floor() boxel.MassCode { return t.floor }

// Len is the number of tracked regions.
func (t *ProgressTree) Len() int { return len(t.counts) }

// Get returns the value for region, and false when it is not tracked.
func (t *ProgressTree) Get(region boxel.Boxel) (int, bool) {
	v, ok := t.counts[region.WithN2(0)]
	return v, ok
}

// Set stores a value for a tracked region. Untracked regions are ignored and
// reported with false.
func (t *ProgressTree) Set(region boxel.Boxel, value int) bool {
	key := region.WithN2(0)
	if _, ok := t.counts[key]; !ok {
		return false
	}
	t.counts[key] = value
	return true
}

// Level returns the tracked regions of one mass code, sorted by name. The
// slice must not be modified.
func (t *ProgressTree) Level(mc boxel.MassCode) []boxel.Boxel {
	return t.levels[mc]
}

// Walk visits every region from the top down, level by level, until fn
// returns false.
func (t *ProgressTree) Walk(fn func(region boxel.Boxel, value int) bool) {
	for mc := t.top.MassCode(); mc >= t.floor; mc-- {
		for _, bx := range t.levels[mc] {
			if !fn(bx, t.counts[bx]) {
				return
			}
		}
	}
}

// FirstUnknown finds a region with no progress yet. Regions of the focus mass
// code are preferred, then each coarser level up to the top, then each finer
// level down to the floor. The focus region itself is never returned.
func (t *ProgressTree) FirstUnknown(focus boxel.Boxel) (boxel.Boxel, bool) {
	skip := focus.WithN2(0)

	order := make([]boxel.MassCode, 0, t.top.MassCode().Sub(t.floor)+1)
	start := focus.MassCode()
	if start > t.top.MassCode() {
		start = t.top.MassCode()
	}
	if start < t.floor {
		start = t.floor
	}
	for mc := start; mc <= t.top.MassCode(); mc++ {
		order = append(order, mc)
	}
	for mc := start - 1; mc >= t.floor; mc-- {
		order = append(order, mc)
	}

	for _, mc := range order {
		for _, bx := range t.levels[mc] {
			if bx != skip && t.counts[bx] == ProgressUnknown {
				return bx, true
			}
		}
	}
	return boxel.Boxel{}, false
}

// Metrics summarises the tree.
func (t *ProgressTree) Metrics() ProgressMetrics {
	return computeProgressMetrics(t)
}
