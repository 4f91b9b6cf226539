package search

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/indexing"

	"github.com/google/uuid"
)

// Reason says what kind of change produced an Event.
type Reason string

const (
	ReasonReset      Reason = "reset"
	ReasonFocus      Reason = "focus"
	ReasonCount      Reason = "count"
	ReasonEmpty      Reason = "empty"
	ReasonVisited    Reason = "visited"
	ReasonRoute      Reason = "route"
	ReasonReconciled Reason = "reconciled"
)

// View is a read-only copy of the session state.
type View struct {
	SessionID     uuid.UUID
	Active        bool
	Top           boxel.Boxel
	Focus         boxel.Boxel
	StartedAt     time.Time
	Empty         bool
	ExpectedCount int
	// Min is the lowest known system number, -1 when none are known.
	Min int
	// Max is the highest known system number, 0 when none are known.
	Max          int
	CountVisited int
	Members      []MemberSystem
	Generation   uint64

	AutoCopy           bool
	Collapsed          bool
	SkipAlreadyVisited bool
	TrustCatalog       bool
}

func (v View) String() string {
	if v.Empty {
		return fmt.Sprintf("%s (empty)", v.Focus)
	}
	return fmt.Sprintf("%s (%d/%d/%d)", v.Focus, v.ExpectedCount, v.Min, v.Max)
}

// Event is sent to subscribers after the session state changed.
type Event struct {
	// Seq increases with every change.
	Seq    uint64
	Reason Reason
	View   View
}

// Subscribe returns a channel of change events and a function to stop them.
// Each subscriber holds at most one pending event: when the consumer falls
// behind, older events are replaced by the latest.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	members := s.sortedMembersLocked()
	suffixes := indexing.NewSuffixSet()

	v := View{
		SessionID:          s.id,
		Active:             s.active,
		Top:                s.top,
		Focus:              s.focus,
		StartedAt:          s.startedAt,
		Empty:              s.focusEmpty,
		ExpectedCount:      s.expectedCount,
		Members:            make([]MemberSystem, 0, len(members)),
		Generation:         s.generation,
		AutoCopy:           s.opts.AutoCopy,
		Collapsed:          s.opts.Collapsed,
		SkipAlreadyVisited: s.opts.SkipAlreadyVisited,
		TrustCatalog:       s.opts.TrustCatalog,
	}
	for _, m := range members {
		v.Members = append(v.Members, m.clone())
		suffixes.Add(m.Name.N2())
		if m.Visited {
			v.CountVisited++
		}
	}

	v.Min, v.Max = -1, 0
	if n, ok := suffixes.Min(); ok {
		v.Min = n
	}
	if n, ok := suffixes.Max(); ok {
		v.Max = n
	}
	return v
}

// changedLocked builds the event for a change. The caller publishes it once
// the lock is released, so subscribers may call back into the session.
func (s *Session) changedLocked(reason Reason) Event {
	s.seq++
	return Event{Seq: s.seq, Reason: reason, View: s.viewLocked()}
}

func (s *Session) publish(ev Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	// a slower publisher must not overwrite a newer event
	if ev.Seq <= s.published {
		return
	}
	s.published = ev.Seq

	for _, ch := range s.subs {
		// latest wins: drop a pending event the consumer has not read yet
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
