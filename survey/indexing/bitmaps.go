package indexing

import (
	roaring "github.com/RoaringBitmap/roaring"
)

// SuffixSet holds the n2 system numbers seen within one boxel.
type SuffixSet struct {
	bm *roaring.Bitmap
}

// NewSuffixSet returns a set holding the given suffixes. Negative values are
// ignored.
func NewSuffixSet(n2s ...int) *SuffixSet {
	s := &SuffixSet{bm: roaring.New()}
	for _, n := range n2s {
		s.Add(n)
	}
	return s
}

// Add inserts n2.
func (s *SuffixSet) Add(n2 int) {
	if n2 < 0 {
		return
	}
	s.bm.Add(uint32(n2))
}

// Contains reports whether n2 is in the set.
func (s *SuffixSet) Contains(n2 int) bool {
	return n2 >= 0 && s.bm.Contains(uint32(n2))
}

// Len returns the number of suffixes.
func (s *SuffixSet) Len() int {
	return int(s.bm.GetCardinality())
}

// Min returns the smallest suffix, or false when the set is empty.
func (s *SuffixSet) Min() (int, bool) {
	if s.bm.IsEmpty() {
		return 0, false
	}
	return int(s.bm.Minimum()), true
}

// Max returns the largest suffix, or false when the set is empty.
func (s *SuffixSet) Max() (int, bool) {
	if s.bm.IsEmpty() {
		return 0, false
	}
	return int(s.bm.Maximum()), true
}

// Missing returns the suffixes in [0, limit) that are not in the set.
func (s *SuffixSet) Missing(limit int) *SuffixSet {
	gaps := roaring.New()
	if limit > 0 {
		gaps.AddRange(0, uint64(limit))
		gaps.AndNot(s.bm)
	}
	return &SuffixSet{bm: gaps}
}

// FirstMissing returns the smallest suffix in [0, limit) not in the set.
func (s *SuffixSet) FirstMissing(limit int) (int, bool) {
	return s.Missing(limit).Min()
}

// Union returns a new set with the suffixes of both.
func (s *SuffixSet) Union(other *SuffixSet) *SuffixSet {
	return &SuffixSet{bm: roaring.Or(s.bm, other.bm)}
}

// Slice lists the suffixes in ascending order.
func (s *SuffixSet) Slice() []int {
	out := make([]int, 0, s.Len())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
