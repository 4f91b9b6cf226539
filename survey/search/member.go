package search

import (
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"
)

// MemberSystem is a system known to be inside the focus region.
type MemberSystem struct {
	Name             boxel.Boxel
	Position         *boxel.StarPos
	Visited          bool
	VisitedAt        *time.Time
	CatalogUpdatedAt *time.Time
}

// HasPosition reports whether the star position is known.
func (m MemberSystem) HasPosition() bool {
	return m.Position != nil && m.Position.IsKnown()
}

func (m MemberSystem) String() string {
	if m.Visited {
		return m.Name.Name() + ":visited"
	}
	return m.Name.Name()
}

// merge folds a candidate into the member. Present values are never replaced
// with missing ones, and a visit is never undone. It reports whether anything
// changed.
func (m *MemberSystem) merge(c sources.Candidate) bool {
	changed := false

	if c.Position != nil && !m.HasPosition() {
		pos := *c.Position
		if m.Position == nil || pos.IsKnown() {
			m.Position = &pos
			changed = true
		}
	}

	if c.Visited && !m.Visited {
		m.Visited = true
		changed = true
	}

	if c.VisitedAt != nil && (m.VisitedAt == nil || m.VisitedAt.Before(*c.VisitedAt)) {
		at := *c.VisitedAt
		m.VisitedAt = &at
		changed = true
	}

	if c.CatalogUpdatedAt != nil && m.CatalogUpdatedAt == nil {
		at := *c.CatalogUpdatedAt
		m.CatalogUpdatedAt = &at
		changed = true
	}

	return changed
}

// clone copies the member so snapshots never share pointers with the session.
func (m *MemberSystem) clone() MemberSystem {
	out := *m
	if m.Position != nil {
		pos := *m.Position
		out.Position = &pos
	}
	if m.VisitedAt != nil {
		at := *m.VisitedAt
		out.VisitedAt = &at
	}
	if m.CatalogUpdatedAt != nil {
		at := *m.CatalogUpdatedAt
		out.CatalogUpdatedAt = &at
	}
	return out
}
