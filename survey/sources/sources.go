// Package sources turns the three places systems are learned from (local
// records, the plotted route and the remote catalog) into candidate members
// of a boxel.
package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
)

// Origin names the source a candidate came from.
type Origin string

const (
	OriginLocal   Origin = "local"
	OriginRoute   Origin = "route"
	OriginCatalog Origin = "catalog"
)

// Candidate is a system found inside the region being searched.
type Candidate struct {
	Name             boxel.Boxel
	Position         *boxel.StarPos
	Visited          bool
	VisitedAt        *time.Time
	CatalogUpdatedAt *time.Time
	Origin           Origin
}

// Policy decides which candidates count as already visited.
type Policy struct {
	// StartedAt is when the current search began.
	StartedAt time.Time
	// SkipAlreadyVisited counts any locally recorded system as visited, even
	// from before StartedAt.
	SkipAlreadyVisited bool
	// TrustCatalog counts systems the catalog had data for before StartedAt
	// as visited.
	TrustCatalog bool
}

// Source looks up the candidate members of a region.
type Source interface {
	Origin() Origin
	Lookup(ctx context.Context, region boxel.Boxel, policy Policy) ([]Candidate, error)
}

// Filter parses names and keeps those directly inside region.
func Filter(region boxel.Boxel, names []string) []boxel.Boxel {
	var out []boxel.Boxel
	for _, name := range names {
		if member, ok := region.HasMember(name); ok {
			out = append(out, member)
		}
	}
	return out
}

// LocalSource reads the commander's own records.
type LocalSource struct {
	Records LocalRecords
}

func (s LocalSource) Origin() Origin { return OriginLocal }

func (s LocalSource) Lookup(ctx context.Context, region boxel.Boxel, policy Policy) ([]Candidate, error) {
	if s.Records == nil {
		return nil, nil
	}

	records, err := s.Records.ListLocalSystems(ctx, region.Prefix())
	if err != nil {
		return nil, fmt.Errorf("list local systems %q: %w", region.Prefix(), err)
	}

	var out []Candidate
	for _, rec := range records {
		member, ok := region.HasMember(rec.Name)
		if !ok {
			continue
		}

		visitedAt := rec.LastRecordedAt
		out = append(out, Candidate{
			Name:      member,
			Position:  rec.Position,
			Visited:   rec.LastRecordedAt.After(policy.StartedAt) || policy.SkipAlreadyVisited,
			VisitedAt: &visitedAt,
			Origin:    OriginLocal,
		})
	}
	return out, nil
}

// RouteSource reads the plotted route. Hops contribute positions only.
type RouteSource struct {
	Route RouteProvider
}

func (s RouteSource) Origin() Origin { return OriginRoute }

func (s RouteSource) Lookup(_ context.Context, region boxel.Boxel, _ Policy) ([]Candidate, error) {
	if s.Route == nil {
		return nil, nil
	}

	var out []Candidate
	for _, hop := range s.Route.CurrentRoute() {
		member, ok := region.HasMember(hop.Name)
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Name:     member,
			Position: hop.Position,
			Origin:   OriginRoute,
		})
	}
	return out, nil
}

// CatalogSource queries the remote catalog with the region's prefix.
type CatalogSource struct {
	Catalog Catalog
}

func (s CatalogSource) Origin() Origin { return OriginCatalog }

func (s CatalogSource) Lookup(ctx context.Context, region boxel.Boxel, policy Policy) ([]Candidate, error) {
	if s.Catalog == nil {
		return nil, nil
	}

	pattern := region.Prefix() + "*"
	systems, err := s.Catalog.QueryByPrefix(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("query catalog %q: %w", pattern, err)
	}

	var out []Candidate
	for _, sys := range systems {
		member, ok := region.HasMember(sys.Name)
		if !ok {
			continue
		}

		c := Candidate{
			Name:     member,
			Position: sys.Position,
			Origin:   OriginCatalog,
		}
		if sys.CatalogUpdatedAt != nil {
			updated := *sys.CatalogUpdatedAt
			c.CatalogUpdatedAt = &updated
			c.Visited = policy.TrustCatalog && updated.Before(policy.StartedAt)
		}
		out = append(out, c)
	}
	return out, nil
}
