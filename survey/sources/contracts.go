package sources

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
)

// LocalRecord is a system the commander has a local record of.
type LocalRecord struct {
	Name           string
	Position       *boxel.StarPos
	LastRecordedAt time.Time
}

// LocalRecords lists recorded systems whose names start with prefix.
type LocalRecords interface {
	ListLocalSystems(ctx context.Context, prefix string) ([]LocalRecord, error)
}

// RouteHop is one jump of the plotted route.
type RouteHop struct {
	Name     string
	Position *boxel.StarPos
}

// RouteProvider returns the currently plotted route, or nil when there is none.
type RouteProvider interface {
	CurrentRoute() []RouteHop
}

// CatalogSystem is a system known to the remote catalog.
type CatalogSystem struct {
	Name     string
	Position *boxel.StarPos
	// CatalogUpdatedAt is set only when the catalog holds real data for the
	// system, not just a name seen on someone's route.
	CatalogUpdatedAt *time.Time
}

// Catalog queries the remote catalog by name pattern, eg: 'Thuechu YV-T d4-*'.
// No results is not an error.
type Catalog interface {
	QueryByPrefix(ctx context.Context, pattern string) ([]CatalogSystem, error)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(ctx context.Context, pattern string) ([]CatalogSystem, error)

func (f CatalogFunc) QueryByPrefix(ctx context.Context, pattern string) ([]CatalogSystem, error) {
	return f(ctx, pattern)
}

// NoCatalog is a Catalog that never knows anything.
var NoCatalog Catalog = CatalogFunc(func(context.Context, string) ([]CatalogSystem, error) {
	return nil, nil
})

// StaticRoute is a fixed route, mostly useful in tests.
type StaticRoute []RouteHop

func (r StaticRoute) CurrentRoute() []RouteHop { return r }
