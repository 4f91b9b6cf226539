package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"

	_ "github.com/tursodatabase/go-libsql"
)

// LibSQLRecordStore keeps visited systems in a libsql database, one row per
// commander and system.
type LibSQLRecordStore struct {
	db        *sql.DB
	commander string
}

// ConnectToDB opens a libsql database. A bare path is treated as a local file.
func ConnectToDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	if !strings.Contains(dsn, ":") {
		dsn = "file:" + dsn
	}

	if path, ok := strings.CutPrefix(dsn, "file:"); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory: %w", err)
		}
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}
	return db, nil
}

// NewLibSQLRecordStore opens dsn and makes sure the schema exists. Records
// are scoped to commander.
func NewLibSQLRecordStore(dsn, commander string) (*LibSQLRecordStore, error) {
	db, err := ConnectToDB(dsn)
	if err != nil {
		return nil, err
	}

	store := &LibSQLRecordStore{db: db, commander: commander}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Record store opened", "dsn", dsn, "commander", commander)
	return store, nil
}

func (s *LibSQLRecordStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS systems (
		commander TEXT NOT NULL,
		name TEXT NOT NULL,
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		z REAL NOT NULL DEFAULT 0,
		has_pos INTEGER NOT NULL DEFAULT 0,
		last_visited INTEGER NOT NULL,
		PRIMARY KEY (commander, name)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create systems table: %w", err)
	}
	return nil
}

// likePrefix escapes prefix for a LIKE ... ESCAPE '\' pattern.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// LIKE is case insensitive in SQLite, the substr comparison is not.
const prefixClause = `commander = ? AND name LIKE ? ESCAPE '\' AND substr(name, 1, ?) = ?`

func (s *LibSQLRecordStore) prefixArgs(prefix string) []any {
	return []any{s.commander, likePrefix(prefix), utf8.RuneCountInString(prefix), prefix}
}

func (s *LibSQLRecordStore) ListLocalSystems(ctx context.Context, prefix string) ([]sources.LocalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, x, y, z, has_pos, last_visited FROM systems WHERE `+prefixClause+` ORDER BY name`,
		s.prefixArgs(prefix)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query systems: %w", err)
	}
	defer rows.Close()

	var records []sources.LocalRecord
	for rows.Next() {
		var (
			rec     sources.LocalRecord
			pos     boxel.StarPos
			hasPos  int64
			visited int64
		)
		if err := rows.Scan(&rec.Name, &pos.X, &pos.Y, &pos.Z, &hasPos, &visited); err != nil {
			return nil, fmt.Errorf("failed to scan system: %w", err)
		}
		if hasPos != 0 {
			rec.Position = &pos
		}
		rec.LastRecordedAt = time.Unix(0, visited).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read systems: %w", err)
	}

	slog.Debug("Listed local systems", "prefix", prefix, "results_count", len(records))
	return records, nil
}

func (s *LibSQLRecordStore) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM systems WHERE `+prefixClause,
		s.prefixArgs(prefix)...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count systems: %w", err)
	}
	return count, nil
}

func (s *LibSQLRecordStore) RecordVisit(ctx context.Context, rec sources.LocalRecord) error {
	if rec.Name == "" {
		return errors.New("system name is required")
	}

	var pos boxel.StarPos
	hasPos := 0
	if rec.Position != nil {
		pos = *rec.Position
		hasPos = 1
	}
	visited := rec.LastRecordedAt
	if visited.IsZero() {
		visited = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO systems (commander, name, x, y, z, has_pos, last_visited)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (commander, name) DO UPDATE SET
			x = CASE WHEN excluded.has_pos = 1 THEN excluded.x ELSE systems.x END,
			y = CASE WHEN excluded.has_pos = 1 THEN excluded.y ELSE systems.y END,
			z = CASE WHEN excluded.has_pos = 1 THEN excluded.z ELSE systems.z END,
			has_pos = MAX(systems.has_pos, excluded.has_pos),
			last_visited = MAX(systems.last_visited, excluded.last_visited)`,
		s.commander, rec.Name, pos.X, pos.Y, pos.Z, hasPos, visited.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record visit to %s: %w", rec.Name, err)
	}

	slog.Debug("Recorded visit", "name", rec.Name, "commander", s.commander)
	return nil
}

func (s *LibSQLRecordStore) Close() error {
	return s.db.Close()
}
