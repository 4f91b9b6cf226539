package sources

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecords []LocalRecord

func (f fakeRecords) ListLocalSystems(_ context.Context, prefix string) ([]LocalRecord, error) {
	var out []LocalRecord
	for _, r := range f {
		if strings.HasPrefix(r.Name, prefix) {
			out = append(out, r)
		}
	}
	return out, nil
}

var (
	region  = boxel.MustParse("Thuechu YV-T d4-0")
	started = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pos     = &boxel.StarPos{X: 1, Y: 2, Z: 3}
)

func TestFilter(t *testing.T) {
	got := Filter(region, []string{
		"Thuechu YV-T d4-12",
		"Thuechu YV-T d44-1",
		"Thuechu YV-T d4",
		"Sol",
		"Synuefe YV-T d4-3",
		"Thuechu YV-T d4-3",
	})

	require.Len(t, got, 2)
	assert.Equal(t, "Thuechu YV-T d4-12", got[0].Name())
	assert.Equal(t, "Thuechu YV-T d4-3", got[1].Name())
}

func TestLocalSource(t *testing.T) {
	records := fakeRecords{
		{Name: "Thuechu YV-T d4-1", Position: pos, LastRecordedAt: started.Add(time.Hour)},
		{Name: "Thuechu YV-T d4-2", LastRecordedAt: started.Add(-time.Hour)},
		{Name: "Thuechu YV-T d44-0", LastRecordedAt: started.Add(time.Hour)},
	}
	src := LocalSource{Records: records}
	assert.Equal(t, OriginLocal, src.Origin())

	t.Run("visited after start only", func(t *testing.T) {
		got, err := src.Lookup(context.Background(), region, Policy{StartedAt: started})
		require.NoError(t, err)
		require.Len(t, got, 2, "prefix d4- does not match d44-")

		assert.Equal(t, 1, got[0].Name.N2())
		assert.True(t, got[0].Visited)
		assert.Equal(t, pos, got[0].Position)
		require.NotNil(t, got[0].VisitedAt)
		assert.Equal(t, started.Add(time.Hour), *got[0].VisitedAt)

		assert.Equal(t, 2, got[1].Name.N2())
		assert.False(t, got[1].Visited)
		require.NotNil(t, got[1].VisitedAt)
	})

	t.Run("skip already visited", func(t *testing.T) {
		got, err := src.Lookup(context.Background(), region, Policy{StartedAt: started, SkipAlreadyVisited: true})
		require.NoError(t, err)
		for _, c := range got {
			assert.True(t, c.Visited, c.Name.Name())
		}
	})

	t.Run("errors are wrapped", func(t *testing.T) {
		boom := errors.New("disk gone")
		failing := LocalSource{Records: recordsFunc(func(context.Context, string) ([]LocalRecord, error) {
			return nil, boom
		})}
		_, err := failing.Lookup(context.Background(), region, Policy{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no records", func(t *testing.T) {
		got, err := LocalSource{}.Lookup(context.Background(), region, Policy{})
		assert.NoError(t, err)
		assert.Empty(t, got)
	})
}

type recordsFunc func(context.Context, string) ([]LocalRecord, error)

func (f recordsFunc) ListLocalSystems(ctx context.Context, prefix string) ([]LocalRecord, error) {
	return f(ctx, prefix)
}

func TestRouteSource(t *testing.T) {
	route := StaticRoute{
		{Name: "Thuechu YV-T d4-7", Position: pos},
		{Name: "Sol"},
		{Name: "Thuechu YV-T d4-9"},
	}

	got, err := RouteSource{Route: route}.Lookup(context.Background(), region, Policy{SkipAlreadyVisited: true, TrustCatalog: true})
	require.NoError(t, err)
	require.Len(t, got, 2)

	for _, c := range got {
		assert.False(t, c.Visited, "route hops never count as visited")
		assert.Nil(t, c.VisitedAt)
		assert.Equal(t, OriginRoute, c.Origin)
	}
	assert.Equal(t, pos, got[0].Position)
	assert.Nil(t, got[1].Position)

	got, err = RouteSource{Route: StaticRoute(nil)}.Lookup(context.Background(), region, Policy{})
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestCatalogSource(t *testing.T) {
	before := started.Add(-24 * time.Hour)
	after := started.Add(24 * time.Hour)

	var pattern string
	catalog := CatalogFunc(func(_ context.Context, p string) ([]CatalogSystem, error) {
		pattern = p
		return []CatalogSystem{
			{Name: "Thuechu YV-T d4-0", Position: pos, CatalogUpdatedAt: &before},
			{Name: "Thuechu YV-T d4-1", CatalogUpdatedAt: &after},
			{Name: "Thuechu YV-T d4-2"},
			{Name: "Thuechu YV-T d5-0", CatalogUpdatedAt: &before},
		}, nil
	})
	src := CatalogSource{Catalog: catalog}

	t.Run("untrusted", func(t *testing.T) {
		got, err := src.Lookup(context.Background(), region, Policy{StartedAt: started})
		require.NoError(t, err)
		assert.Equal(t, "Thuechu YV-T d4-*", pattern)
		require.Len(t, got, 3)
		for _, c := range got {
			assert.False(t, c.Visited)
		}
		assert.Equal(t, before, *got[0].CatalogUpdatedAt)
		assert.Nil(t, got[2].CatalogUpdatedAt)
	})

	t.Run("trusted", func(t *testing.T) {
		got, err := src.Lookup(context.Background(), region, Policy{StartedAt: started, TrustCatalog: true})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, got[0].Visited, "known before the search started")
		assert.False(t, got[1].Visited, "updated after the search started")
		assert.False(t, got[2].Visited, "no catalog data")
	})

	t.Run("skip already visited does not affect the catalog", func(t *testing.T) {
		got, err := src.Lookup(context.Background(), region, Policy{StartedAt: started, SkipAlreadyVisited: true})
		require.NoError(t, err)
		assert.False(t, got[0].Visited)
	})

	t.Run("failure", func(t *testing.T) {
		boom := errors.New("timeout")
		failing := CatalogSource{Catalog: CatalogFunc(func(context.Context, string) ([]CatalogSystem, error) {
			return nil, boom
		})}
		got, err := failing.Lookup(context.Background(), region, Policy{})
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, got)
	})

	t.Run("no catalog", func(t *testing.T) {
		got, err := CatalogSource{Catalog: NoCatalog}.Lookup(context.Background(), region, Policy{})
		assert.NoError(t, err)
		assert.Empty(t, got)
	})
}
