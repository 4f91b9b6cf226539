package search

import (
	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/indexing"
	"github.com/ZanzyTHEbar/boxel-survey/survey/trees"
)

// SuggestionKind says what a Suggestion points at.
type SuggestionKind int

const (
	// SuggestNone is returned when there is no focus region.
	SuggestNone SuggestionKind = iota
	// SuggestPrefix is the bare prefix of the focus region, for a catalog
	// search that counts its systems.
	SuggestPrefix
	// SuggestSystem is a single system to visit.
	SuggestSystem
	// SuggestRegion is another region of the search with no progress yet.
	SuggestRegion
)

func (k SuggestionKind) String() string {
	switch k {
	case SuggestPrefix:
		return "prefix"
	case SuggestSystem:
		return "system"
	case SuggestRegion:
		return "region"
	default:
		return "none"
	}
}

// Suggestion is where to go next.
type Suggestion struct {
	Kind   SuggestionKind
	Region boxel.Boxel
}

// Text is what the commander would type into the galaxy map.
func (s Suggestion) Text() string {
	switch s.Kind {
	case SuggestSystem:
		return s.Region.Name()
	case SuggestPrefix, SuggestRegion:
		return s.Region.Prefix()
	default:
		return ""
	}
}

func (s Suggestion) String() string {
	return s.Kind.String() + ":" + s.Text()
}

// NextToVisit picks what to search next:
//
//  1. the focus prefix while nothing in a non-empty focus has been visited
//  2. the first known member not yet visited
//  3. the first system number below the expected count not yet visited
//  4. another region with no progress, same mass code first
//  5. the focus prefix
func (s *Session) NextToVisit() Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.focus.IsZero() {
		return Suggestion{}
	}

	members := s.sortedMembersLocked()
	visited := indexing.NewSuffixSet()
	for _, m := range members {
		if m.Visited {
			visited.Add(m.Name.N2())
		}
	}

	if !s.focusEmpty && visited.Len() == 0 {
		return Suggestion{Kind: SuggestPrefix, Region: s.focus}
	}

	for _, m := range members {
		if !m.Visited {
			return Suggestion{Kind: SuggestSystem, Region: m.Name}
		}
	}

	if n, ok := visited.FirstMissing(s.expectedCount); ok {
		return Suggestion{Kind: SuggestSystem, Region: s.focus.WithN2(n)}
	}

	if s.progress != nil {
		if region, ok := s.progress.FirstUnknown(s.focus); ok {
			return Suggestion{Kind: SuggestRegion, Region: region}
		}
	}

	return Suggestion{Kind: SuggestPrefix, Region: s.focus}
}

// NearestUnvisited returns the member closest to from that has a known
// position and has not been visited.
func (s *Session) NearestUnvisited(from boxel.StarPos) (MemberSystem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var points []trees.StarPoint
	for _, m := range s.members {
		if !m.Visited && m.HasPosition() {
			points = append(points, trees.StarPoint{Name: m.Name.Name(), Pos: *m.Position})
		}
	}
	if len(points) == 0 {
		return MemberSystem{}, false
	}

	nearest := trees.NewStarIndex(points).Nearest(from, 1)
	if len(nearest) == 0 {
		return MemberSystem{}, false
	}

	bx, ok := boxel.Parse(nearest[0].Name)
	if !ok {
		return MemberSystem{}, false
	}
	member, ok := s.members[bx]
	if !ok {
		return MemberSystem{}, false
	}
	return member.clone(), true
}
