package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/config"
	"github.com/ZanzyTHEbar/boxel-survey/survey/db"
	"github.com/ZanzyTHEbar/boxel-survey/survey/emptyregions"
)

// memoryDSN selects the in-memory record store.
const memoryDSN = "memory"

// openEmptyStore opens the configured shard backend. The returned close
// function must be called when done.
func (a *app) openEmptyStore() (*emptyregions.Store, func() error, error) {
	noop := func() error { return nil }

	switch a.cfg.Storage.Backend {
	case config.StorageMemory:
		return emptyregions.NewStore(emptyregions.NewMemoryBlobStore(), a.slog), noop, nil

	case config.StorageBadger:
		blobs, err := emptyregions.OpenBadgerBlobStore(emptyregions.BadgerConfig{
			Path:   a.cfg.Storage.BadgerDir,
			Logger: a.slog,
		})
		if err != nil {
			return nil, nil, err
		}
		return emptyregions.NewStore(blobs, a.slog), blobs.Close, nil

	default:
		blobs, err := emptyregions.NewFileBlobStore(a.cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return emptyregions.NewStore(blobs, a.slog), noop, nil
	}
}

func (a *app) openRecords() (db.RecordStore, error) {
	if a.cfg.Records.DSN == memoryDSN {
		return db.NewMemoryRecordStore(), nil
	}
	return db.NewLibSQLRecordStore(a.cfg.Records.DSN, a.cfg.Records.Commander)
}

// parseStarPos reads "x,y,z".
func parseStarPos(s string) (*boxel.StarPos, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("position %q must be x,y,z", s)
	}

	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("position %q: %w", s, err)
		}
		v[i] = f
	}
	return &boxel.StarPos{X: v[0], Y: v[1], Z: v[2]}, nil
}
