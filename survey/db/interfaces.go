package db

import (
	"context"

	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"
)

// RecordStore is the commander's local record of visited systems.
type RecordStore interface {
	// ListLocalSystems returns records whose names start with prefix.
	ListLocalSystems(ctx context.Context, prefix string) ([]sources.LocalRecord, error)
	// CountByPrefix counts records whose names start with prefix.
	CountByPrefix(ctx context.Context, prefix string) (int, error)
	// RecordVisit inserts a record or merges it into an existing one: the
	// latest visit time wins and a known position is never forgotten.
	RecordVisit(ctx context.Context, rec sources.LocalRecord) error
	Close() error
}
