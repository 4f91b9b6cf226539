package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"
	"github.com/ZanzyTHEbar/boxel-survey/survey/trees"
)

// MemoryRecordStore is an in-memory RecordStore for tests and for running
// without a database.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records *trees.NameIndex[sources.LocalRecord]
	queries int
}

func NewMemoryRecordStore(records ...sources.LocalRecord) *MemoryRecordStore {
	m := &MemoryRecordStore{records: trees.NewNameIndex[sources.LocalRecord]()}
	for _, rec := range records {
		_ = m.RecordVisit(context.Background(), rec)
	}
	return m
}

func (m *MemoryRecordStore) ListLocalSystems(ctx context.Context, prefix string) ([]sources.LocalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.queries++
	m.mu.Unlock()
	return m.records.PrefixLookup(prefix), nil
}

func (m *MemoryRecordStore) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.records.CountPrefix(prefix), nil
}

func (m *MemoryRecordStore) RecordVisit(_ context.Context, rec sources.LocalRecord) error {
	if rec.Name == "" {
		return errors.New("system name is required")
	}
	if rec.LastRecordedAt.IsZero() {
		rec.LastRecordedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.records.Lookup(rec.Name); ok {
		if rec.Position == nil {
			rec.Position = existing.Position
		}
		if existing.LastRecordedAt.After(rec.LastRecordedAt) {
			rec.LastRecordedAt = existing.LastRecordedAt
		}
	}
	m.records.Insert(rec.Name, rec)
	return nil
}

// Queries returns how many times ListLocalSystems was called.
func (m *MemoryRecordStore) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

func (m *MemoryRecordStore) Close() error {
	return nil
}
