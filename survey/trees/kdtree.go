package trees

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// StarPoint is a named system at a galactic position.
type StarPoint struct {
	Name string
	Pos  boxel.StarPos
}

func (p StarPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.Pos.X
	case 1:
		return p.Pos.Y
	default:
		return p.Pos.Z
	}
}

// Compare performs axis comparisons for the KD-Tree.
func (p StarPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(StarPoint).coord(d)
}

// Dims is always 3.
func (p StarPoint) Dims() int { return 3 }

// Distance returns the squared euclidean distance, as kdtree keepers expect.
func (p StarPoint) Distance(c kdtree.Comparable) float64 {
	o := c.(StarPoint)
	dx, dy, dz := p.Pos.X-o.Pos.X, p.Pos.Y-o.Pos.Y, p.Pos.Z-o.Pos.Z
	return dx*dx + dy*dy + dz*dz
}

// starPoints implements kdtree.Interface.
type starPoints []StarPoint

func (s starPoints) Index(i int) kdtree.Comparable { return s[i] }
func (s starPoints) Len() int                      { return len(s) }
func (s starPoints) Slice(start, end int) kdtree.Interface {
	return s[start:end]
}

func (s starPoints) Pivot(d kdtree.Dim) int {
	return starPlane{starPoints: s, Dim: d}.Pivot()
}

// starPlane sorts points along one axis for median partitioning.
type starPlane struct {
	starPoints
	kdtree.Dim
}

func (p starPlane) Less(i, j int) bool {
	return p.starPoints[i].coord(p.Dim) < p.starPoints[j].coord(p.Dim)
}
func (p starPlane) Swap(i, j int) {
	p.starPoints[i], p.starPoints[j] = p.starPoints[j], p.starPoints[i]
}
func (p starPlane) Slice(start, end int) kdtree.SortSlicer {
	p.starPoints = p.starPoints[start:end]
	return p
}
func (p starPlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// StarIndex answers nearest-system queries over a set of positions.
type StarIndex struct {
	mu     sync.RWMutex
	tree   *kdtree.Tree
	points int
}

// NewStarIndex builds a balanced KD-Tree over points. Points without a known
// position are skipped.
func NewStarIndex(points []StarPoint) *StarIndex {
	known := make(starPoints, 0, len(points))
	for _, p := range points {
		if p.Pos.IsKnown() {
			known = append(known, p)
		}
	}

	idx := &StarIndex{points: len(known)}
	if len(known) > 0 {
		idx.tree = kdtree.New(known, false)
	}

	slog.Debug("Star index built",
		"total_points", len(known),
		"skipped", len(points)-len(known))

	return idx
}

// Insert adds one point without rebalancing.
func (idx *StarIndex) Insert(p StarPoint) {
	if !p.Pos.IsKnown() {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.tree == nil {
		idx.tree = kdtree.New(starPoints{p}, false)
	} else {
		idx.tree.Insert(p, false)
	}
	idx.points++
}

// Len returns the number of indexed points.
func (idx *StarIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.points
}

// Nearest returns up to k points closest to from, nearest first.
func (idx *StarIndex) Nearest(from boxel.StarPos, k int) []StarPoint {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.tree == nil || k <= 0 {
		return nil
	}

	keeper := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keeper, StarPoint{Pos: from})

	results := make([]StarPoint, 0, keeper.Len())
	for _, item := range keeper.Heap {
		if item.Comparable == nil {
			continue
		}
		results = append(results, item.Comparable.(StarPoint))
	}

	// the keeper is a max-heap
	sortByDistance(results, from)

	slog.Debug("Nearest neighbor search completed",
		"k", k,
		"results_count", len(results))

	return results
}

func sortByDistance(points []StarPoint, from boxel.StarPos) {
	origin := StarPoint{Pos: from}
	slices.SortStableFunc(points, func(a, b StarPoint) int {
		return cmp.Compare(origin.Distance(a), origin.Distance(b))
	})
}
