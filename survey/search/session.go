// Package search runs a boxel search: a top region is chosen, one focus region
// inside it is searched at a time, and the systems of the focus are gathered
// from local records, the plotted route and the remote catalog.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/config"
	"github.com/ZanzyTHEbar/boxel-survey/survey/emptyregions"
	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"
	"github.com/ZanzyTHEbar/boxel-survey/survey/trees"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

var (
	ErrOutsideTop    = errors.New("region is not inside the top region")
	ErrNoFocus       = errors.New("no focus region")
	ErrInvalidRegion = errors.New("region is outside the addressable grid")
	ErrInvalidCount  = errors.New("expected count must not be negative")
)

// DefaultCloseGrace is how long Close waits for catalog queries that ignore
// cancellation.
const DefaultCloseGrace = 2 * time.Second

// EmptyRegions is the part of emptyregions.Store a session needs.
type EmptyRegions interface {
	Contains(ctx context.Context, region boxel.Boxel) bool
	Add(ctx context.Context, region boxel.Boxel) (bool, error)
	Remove(ctx context.Context, region boxel.Boxel) (bool, error)
}

// Options are the search policy switches.
type Options struct {
	// LowMassCode is the smallest mass code tracked for progress.
	LowMassCode boxel.MassCode
	// MaxDepth bounds the progress tree below the top region.
	MaxDepth           int
	SkipAlreadyVisited bool
	TrustCatalog       bool
	AutoCopy           bool
	Collapsed          bool
}

// DefaultOptions matches the configuration defaults.
func DefaultOptions() Options {
	return Options{
		LowMassCode: boxel.MassCodeC,
		MaxDepth:    trees.MaxProgressDepth,
		AutoCopy:    true,
	}
}

// OptionsFromConfig builds Options from the search section of the config.
func OptionsFromConfig(cfg config.SearchConfig) (Options, error) {
	mc, err := cfg.MassCode()
	if err != nil {
		return Options{}, err
	}
	return Options{
		LowMassCode:        mc,
		MaxDepth:           cfg.MaxProgressDepth,
		SkipAlreadyVisited: cfg.SkipAlreadyVisited,
		TrustCatalog:       cfg.TrustCatalog,
		AutoCopy:           cfg.AutoCopy,
	}, nil
}

// Deps are the collaborators of a session. Any of the sources may be nil.
type Deps struct {
	Empty   EmptyRegions
	Counts  *CountCache
	Records sources.LocalRecords
	Route   sources.RouteProvider
	Catalog sources.Catalog
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Session is a single boxel search. All methods are safe for concurrent use;
// mutations are serialised by one lock and lookups run in the background.
type Session struct {
	id     uuid.UUID
	opts   Options
	empty  EmptyRegions
	counts *CountCache
	logger *slog.Logger
	now    func() time.Time

	records sources.LocalRecords
	nearby  []sources.Source
	catalog sources.Source

	ctx        context.Context
	cancel     context.CancelFunc
	wg         conc.WaitGroup
	catalogs   sync.WaitGroup
	closeGrace time.Duration

	mu            sync.Mutex
	active        bool
	top           boxel.Boxel
	focus         boxel.Boxel
	startedAt     time.Time
	members       map[boxel.Boxel]*MemberSystem
	expectedCount int
	progress      *trees.ProgressTree
	focusEmpty    bool
	generation    uint64
	lookups       int
	seq           uint64

	subsMu    sync.Mutex
	subs      map[int]chan Event
	nextSub   int
	published uint64
	closed    bool
}

// New creates an idle session. Reset chooses the top region.
func New(opts Options, deps Deps) *Session {
	if opts.LowMassCode == 0 {
		opts.LowMassCode = boxel.MassCodeC
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = trees.MaxProgressDepth
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Counts == nil {
		deps.Counts = NewCountCache()
	}
	if deps.Empty == nil {
		deps.Empty = emptyregions.NewStore(emptyregions.NewMemoryBlobStore(), deps.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()

	return &Session{
		id:      id,
		opts:    opts,
		empty:   deps.Empty,
		counts:  deps.Counts,
		logger:  deps.Logger.With("session", id.String()),
		now:     deps.Now,
		records: deps.Records,
		nearby: []sources.Source{
			sources.LocalSource{Records: deps.Records},
			sources.RouteSource{Route: deps.Route},
		},
		catalog: sources.CatalogSource{Catalog: deps.Catalog},
		ctx:        ctx,
		cancel:     cancel,
		closeGrace: DefaultCloseGrace,
		members:    make(map[boxel.Boxel]*MemberSystem),
		subs:       make(map[int]chan Event),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Options returns the policy switches in use.
func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Reset makes top the region being searched and rebuilds the progress tree.
// The start time only moves when the top region changes or on the first
// reset. The focus is kept when it is still inside top, and its systems are
// looked up again when the start time moved.
func (s *Session) Reset(top boxel.Boxel, active bool) error {
	if !top.Addressable() {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, top.Name())
	}
	top = top.WithN2(0)

	s.mu.Lock()
	var relaunch func()
	if s.resetLocked(top, active, time.Time{}) {
		relaunch = s.relaunchLocked()
	}
	ev := s.changedLocked(ReasonReset)
	s.mu.Unlock()

	s.publish(ev)
	if relaunch != nil {
		relaunch()
	}
	return nil
}

// resetLocked rebuilds the session around top. A zero startedAt keeps the
// current start time unless top changed. It reports whether the kept focus
// needs new lookups because the start time moved.
func (s *Session) resetLocked(top boxel.Boxel, active bool, startedAt time.Time) bool {
	prevStart := s.startedAt
	s.active = active
	switch {
	case !startedAt.IsZero():
		s.startedAt = startedAt
	case s.top != top || s.startedAt.IsZero():
		s.startedAt = s.now()
	}
	s.top = top

	s.progress = trees.NewProgressTree(top, s.opts.LowMassCode, s.opts.MaxDepth, s.logger)
	folded := 0
	s.progress.Walk(func(region boxel.Boxel, _ int) bool {
		if s.empty.Contains(s.ctx, region) {
			s.progress.Set(region, trees.ProgressEmpty)
			folded++
		}
		return true
	})

	if !s.focus.IsZero() && !top.Contains(s.focus) {
		s.focus = boxel.Boxel{}
		s.focusEmpty = false
		s.expectedCount = 0
		clear(s.members)
		s.generation++
	}

	s.logger.Info("Boxel search reset",
		"top", top.Name(),
		"active", active,
		"regions", s.progress.Len(),
		"empty", folded)

	// visited flags depend on the start time, so earlier results are stale
	if s.focus.IsZero() || s.startedAt.Equal(prevStart) {
		return false
	}
	clear(s.members)
	s.generation++
	return !s.focusEmpty
}

// relaunchLocked counts a new lookup for the focus and returns the launch to
// run once the lock is released.
func (s *Session) relaunchLocked() func() {
	focus, gen, policy := s.focus, s.generation, s.policyLocked()
	s.lookups++
	return func() { s.launch(focus, gen, policy) }
}

// SetFocus moves the search to region, which must lie inside the top region.
// Focusing the current region again does nothing unless force is set. A
// region marked empty is focused without any lookups; otherwise the sources
// are queried in the background.
func (s *Session) SetFocus(region boxel.Boxel, force bool) error {
	if !region.Addressable() {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, region.Name())
	}
	region = region.WithN2(0)

	s.mu.Lock()
	if s.top.IsZero() || !s.top.Contains(region) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s in %q", ErrOutsideTop, region.Name(), s.top.Name())
	}
	if s.focus == region && !force {
		s.mu.Unlock()
		return nil
	}

	clear(s.members)
	s.focus = region
	s.generation++

	if s.empty.Contains(s.ctx, region) {
		s.focusEmpty = true
		s.expectedCount = 0
		s.progress.Set(region, trees.ProgressEmpty)
		ev := s.changedLocked(ReasonFocus)
		s.mu.Unlock()

		s.logger.Debug("Focused empty region", "region", region.Name())
		s.publish(ev)
		return nil
	}

	s.focusEmpty = false
	s.expectedCount = s.counts.GetOrDefault(region)
	expected := s.expectedCount
	relaunch := s.relaunchLocked()
	ev := s.changedLocked(ReasonFocus)
	s.mu.Unlock()

	s.publish(ev)

	s.logger.Debug("Focused region", "region", region.Name(), "expected", expected)
	relaunch()
	return nil
}

func (s *Session) policyLocked() sources.Policy {
	return sources.Policy{
		StartedAt:          s.startedAt,
		SkipAlreadyVisited: s.opts.SkipAlreadyVisited,
		TrustCatalog:       s.opts.TrustCatalog,
	}
}

// SetExpectedCount records how many systems the focus region is believed to
// hold. The count is remembered for the region in the shared cache.
func (s *Session) SetExpectedCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}

	s.mu.Lock()
	if s.focus.IsZero() {
		s.mu.Unlock()
		return ErrNoFocus
	}
	s.expectedCount = n
	s.counts.Set(s.focus, n)
	ev := s.changedLocked(ReasonCount)
	s.mu.Unlock()

	s.publish(ev)
	return nil
}

// ToggleEmpty flips whether the focus region is marked empty and returns the
// new state. An empty region expects no systems. Unmarking restores the
// expected count from the cache and puts the region's progress back to
// unknown.
func (s *Session) ToggleEmpty() (bool, error) {
	s.mu.Lock()
	if s.focus.IsZero() {
		s.mu.Unlock()
		return false, ErrNoFocus
	}
	if s.focus.MassCode() >= boxel.MassCodeH {
		focus := s.focus
		s.mu.Unlock()
		s.logger.Error("Cannot mark region empty", "region", focus.Name(), "error", emptyregions.ErrTopMassCode)
		return false, fmt.Errorf("%w: %s", emptyregions.ErrTopMassCode, focus.Name())
	}

	var err error
	if !s.focusEmpty {
		s.focusEmpty = true
		s.expectedCount = 0
		s.progress.Set(s.focus, trees.ProgressEmpty)
		_, err = s.empty.Add(s.ctx, s.focus)
	} else {
		s.focusEmpty = false
		s.progress.Set(s.focus, trees.ProgressUnknown)
		_, err = s.empty.Remove(s.ctx, s.focus)
		s.expectedCount = s.counts.GetOrDefault(s.focus)
	}
	if err != nil {
		s.logger.Warn("Failed to update empty regions", "region", s.focus.Name(), "error", err)
	}

	marked := s.focusEmpty
	ev := s.changedLocked(ReasonEmpty)
	s.mu.Unlock()

	s.publish(ev)
	return marked, nil
}

// MarkVisited records that the commander arrived at name. Names outside the
// focus region are ignored apart from a change notification. It reports
// whether a member was updated.
func (s *Session) MarkVisited(name string, pos *boxel.StarPos) bool {
	s.mu.Lock()
	if s.focus.IsZero() {
		ev := s.changedLocked(ReasonVisited)
		s.mu.Unlock()
		s.publish(ev)
		return false
	}

	bx, ok := s.focus.HasMember(name)
	if !ok {
		ev := s.changedLocked(ReasonVisited)
		s.mu.Unlock()
		s.publish(ev)
		return false
	}

	now := s.now()
	member := s.findOrAddLocked(bx)
	member.merge(sources.Candidate{Name: bx, Position: pos})
	member.Visited = true
	member.VisitedAt = &now

	s.logger.Info("Updating boxel search", "system", bx.Name())
	ev := s.changedLocked(ReasonVisited)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// UpdateFromRoute merges a newly plotted route into the focus region. Only
// positions are learned from a route. It reports whether any hop matched.
func (s *Session) UpdateFromRoute(route []sources.RouteHop) bool {
	s.mu.Lock()
	if s.focus.IsZero() {
		s.mu.Unlock()
		return false
	}

	candidates, _ := sources.RouteSource{Route: sources.StaticRoute(route)}.Lookup(s.ctx, s.focus, sources.Policy{})
	if len(candidates) == 0 {
		s.mu.Unlock()
		return false
	}
	for _, c := range candidates {
		s.findOrAddLocked(c.Name).merge(c)
	}
	ev := s.changedLocked(ReasonRoute)
	s.mu.Unlock()

	s.publish(ev)
	return true
}

func (s *Session) findOrAddLocked(name boxel.Boxel) *MemberSystem {
	member, ok := s.members[name]
	if !ok {
		member = &MemberSystem{Name: name}
		s.members[name] = member
	}
	return member
}

// sortedMembersLocked lists members by system number.
func (s *Session) sortedMembersLocked() []*MemberSystem {
	out := make([]*MemberSystem, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *MemberSystem) int {
		if a.Name.N2() != b.Name.N2() {
			return a.Name.N2() - b.Name.N2()
		}
		return boxel.Compare(a.Name, b.Name)
	})
	return out
}

// Lookups returns how many reconciliations have been launched.
func (s *Session) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

// Wait blocks until in-flight reconciliations have finished. After Close it
// no longer waits for catalog queries that ignore cancellation.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight lookups, waits for them and closes every
// subscription. A catalog query still running after the close grace period
// is left behind and its result is dropped.
func (s *Session) Close() error {
	s.cancel()
	s.wg.Wait()

	done := make(chan struct{})
	go func() {
		s.catalogs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.closeGrace):
		s.logger.Warn("Catalog lookup ignored cancellation, not waiting for it", "grace", s.closeGrace)
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	return nil
}
