package db

import (
	"context"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordStore(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	pos := &boxel.StarPos{X: 1, Y: 2, Z: 3}

	store := NewMemoryRecordStore(
		sources.LocalRecord{Name: "Thuechu YV-T d4-12", Position: pos, LastRecordedAt: t0},
		sources.LocalRecord{Name: "Thuechu YV-T d4-3", LastRecordedAt: t0},
		sources.LocalRecord{Name: "Thuechu YV-T d44-1", LastRecordedAt: t0},
	)
	var _ RecordStore = store

	t.Run("list by prefix", func(t *testing.T) {
		got, err := store.ListLocalSystems(ctx, "Thuechu YV-T d4-")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Thuechu YV-T d4-12", got[0].Name)
		assert.Equal(t, pos, got[0].Position)
		assert.Equal(t, 1, store.Queries())
	})

	t.Run("count by prefix", func(t *testing.T) {
		n, err := store.CountByPrefix(ctx, "Thuechu YV-T d4")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("merge keeps position and latest visit", func(t *testing.T) {
		require.NoError(t, store.RecordVisit(ctx, sources.LocalRecord{
			Name:           "Thuechu YV-T d4-12",
			LastRecordedAt: t0.Add(-time.Hour),
		}))

		got, err := store.ListLocalSystems(ctx, "Thuechu YV-T d4-12")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, pos, got[0].Position)
		assert.Equal(t, t0, got[0].LastRecordedAt)
	})

	t.Run("name required", func(t *testing.T) {
		assert.Error(t, store.RecordVisit(ctx, sources.LocalRecord{}))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.ListLocalSystems(cancelled, "Thuechu")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
