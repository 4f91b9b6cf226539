package search

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type lookupResult struct {
	origin     sources.Origin
	candidates []sources.Candidate
	err        error
}

// launch gathers the systems of focus in the background. Results are only
// applied while gen is still the session's generation.
func (s *Session) launch(focus boxel.Boxel, gen uint64, policy sources.Policy) {
	s.wg.Go(func() {
		s.reconcile(s.ctx, focus, gen, policy)
	})
}

// reconcile runs the catalog query alongside the local and route lookups.
// Local and route results are shown straight away when the catalog has not
// answered yet, then the catalog result is merged when it arrives.
func (s *Session) reconcile(ctx context.Context, focus boxel.Boxel, gen uint64, policy sources.Policy) {
	ctx, span := tracer.Start(ctx, "Session.reconcile",
		trace.WithAttributes(
			attribute.String("boxel.focus", focus.Name()),
			attribute.Int64("boxel.generation", int64(gen)),
		),
	)
	defer span.End()
	recordReconcile(ctx)

	// the catalog runs outside wg so a query that ignores ctx cannot hold up
	// Close; reconcile itself stops waiting for it once ctx is done
	catalog := make(chan lookupResult, 1)
	s.catalogs.Go(func() {
		catalog <- s.lookup(ctx, s.catalog, focus, policy)
	})

	// results keep source order so local data merges before the route
	results := make([]lookupResult, len(s.nearby))
	nearby := pool.New()
	for i, src := range s.nearby {
		nearby.Go(func() {
			results[i] = s.lookup(ctx, src, focus, policy)
		})
	}
	nearby.Wait()
	ev, dirty := s.apply(ctx, gen, results...)

	select {
	case res := <-catalog:
		if next, ok := s.apply(ctx, gen, res); ok {
			ev, dirty = next, true
		}
		if dirty {
			s.publish(ev)
		}
		return
	default:
	}

	if dirty {
		s.publish(ev)
	}

	select {
	case res := <-catalog:
		if next, ok := s.apply(ctx, gen, res); ok {
			s.publish(next)
		}
	case <-ctx.Done():
	}
}

// lookup runs one source, turning a panic into an error.
func (s *Session) lookup(ctx context.Context, src sources.Source, focus boxel.Boxel, policy sources.Policy) lookupResult {
	res := lookupResult{origin: src.Origin()}

	var pc panics.Catcher
	pc.Try(func() {
		res.candidates, res.err = src.Lookup(ctx, focus, policy)
	})
	if r := pc.Recovered(); r != nil {
		res.candidates, res.err = nil, fmt.Errorf("%s source panicked: %w", res.origin, r.AsError())
	}

	recordLookup(ctx, res.origin, len(res.candidates), res.err != nil)
	return res
}

// apply merges lookup results into the members when gen is current. It
// returns the change event and whether anything matched.
func (s *Session) apply(ctx context.Context, gen uint64, results ...lookupResult) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := false
	for _, res := range results {
		if gen != s.generation {
			s.logger.Debug("Discarding stale lookup", "origin", res.origin, "generation", gen, "current", s.generation)
			recordStale(ctx, res.origin)
			continue
		}
		if res.err != nil {
			s.logger.Warn("Lookup failed", "origin", res.origin, "region", s.focus.Name(), "error", res.err)
			continue
		}
		if len(res.candidates) == 0 {
			continue
		}

		for _, c := range res.candidates {
			s.findOrAddLocked(c.Name).merge(c)
		}
		dirty = true
	}

	if !dirty {
		return Event{}, false
	}

	// systems were found, so the focus is known to be populated
	if !s.focusEmpty {
		s.progress.Set(s.focus, len(s.members))
	}
	return s.changedLocked(ReasonReconciled), true
}
