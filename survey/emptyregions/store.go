// Package emptyregions remembers which boxels are known to hold no systems.
//
// Region ids are grouped into shards by their ancestor at mass code g, so no
// single blob grows with the whole galaxy. Shards are loaded on first use and
// rewritten in full whenever their membership changes.
package emptyregions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"

	"golang.org/x/sync/singleflight"
)

// ShardMassCode is the mass code of the ancestor that names a shard.
const ShardMassCode = boxel.MassCodeG

var (
	// ErrTopMassCode is returned when asked to mark a mass code h region empty.
	ErrTopMassCode = errors.New("mass code h regions cannot be marked empty")
	// ErrShardUnavailable is returned when a change cannot be made because the
	// shard holding the region could not be read.
	ErrShardUnavailable = errors.New("empty region shard could not be read")
)

type shard struct {
	mu  sync.Mutex
	id  string
	ids map[string]struct{}
	// unread is set when the blob could not be read. Such a shard is never
	// cached or written.
	unread bool
}

// Store is the set of empty region ids, safe for concurrent use.
type Store struct {
	blobs  BlobStore
	logger *slog.Logger

	mu     sync.Mutex
	shards map[string]*shard
	loads  singleflight.Group
}

// NewStore creates a store over blobs. A nil logger uses slog.Default().
func NewStore(blobs BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		blobs:  blobs,
		logger: logger,
		shards: make(map[string]*shard),
	}
}

// ShardKey returns the ancestor at mass code g that region's id is stored
// under.
func ShardKey(region boxel.Boxel) (boxel.Boxel, error) {
	if region.IsZero() {
		return boxel.Boxel{}, boxel.ErrInvalidName
	}
	if region.MassCode() >= boxel.MassCodeH {
		return boxel.Boxel{}, fmt.Errorf("%w: %s", ErrTopMassCode, region.Name())
	}
	return region.AncestorAt(ShardMassCode), nil
}

// Contains reports whether region is marked empty. Mass code h regions never
// are.
func (s *Store) Contains(ctx context.Context, region boxel.Boxel) bool {
	key, err := ShardKey(region)
	if err != nil {
		return false
	}

	sh := s.shard(ctx, key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ok := sh.ids[region.ID()]
	return ok
}

// Add marks region empty, reporting whether it was not already.
func (s *Store) Add(ctx context.Context, region boxel.Boxel) (bool, error) {
	return s.mutate(ctx, region, true)
}

// Remove unmarks region, reporting whether it had been marked.
func (s *Store) Remove(ctx context.Context, region boxel.Boxel) (bool, error) {
	return s.mutate(ctx, region, false)
}

func (s *Store) mutate(ctx context.Context, region boxel.Boxel, empty bool) (bool, error) {
	key, err := ShardKey(region)
	if err != nil {
		s.logger.Error("Refusing to change empty region", "region", region.Name(), "error", err)
		return false, err
	}

	sh := s.shard(ctx, key)
	if sh.unread {
		// one more read before giving up, the failure may have been transient
		sh = s.shard(ctx, key)
	}
	if sh.unread {
		s.logger.Error("Refusing to change empty region", "region", region.Name(), "shard", sh.id, "error", ErrShardUnavailable)
		return false, fmt.Errorf("%w: %s", ErrShardUnavailable, sh.id)
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	id := region.ID()
	_, present := sh.ids[id]
	if present == empty {
		return false, nil
	}

	if empty {
		sh.ids[id] = struct{}{}
	} else {
		delete(sh.ids, id)
	}

	s.persist(ctx, sh)
	return true, nil
}

// Shard returns the sorted ids stored under a shard key.
func (s *Store) Shard(ctx context.Context, key boxel.Boxel) []string {
	sh := s.shard(ctx, key.WithN2(0))
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sortedIDs(sh.ids)
}

// shard returns the cached shard, loading it on first use. Concurrent first
// loads of one shard share a single read. A shard whose read failed is
// returned uncached, so the next access reads it again.
func (s *Store) shard(ctx context.Context, key boxel.Boxel) *shard {
	id := key.Name()

	s.mu.Lock()
	sh, ok := s.shards[id]
	s.mu.Unlock()
	if ok {
		return sh
	}

	v, _, _ := s.loads.Do(id, func() (interface{}, error) {
		s.mu.Lock()
		if cached, ok := s.shards[id]; ok {
			s.mu.Unlock()
			return cached, nil
		}
		s.mu.Unlock()

		ids, ok := s.load(ctx, id)
		loaded := &shard{id: id, ids: ids, unread: !ok}
		if !ok {
			return loaded, nil
		}

		s.mu.Lock()
		s.shards[id] = loaded
		s.mu.Unlock()
		return loaded, nil
	})
	return v.(*shard)
}

// load reads a shard blob. Any failure yields an empty shard; ok is false
// only when the blob could not be read at all. A missing or corrupt blob is
// a usable empty shard.
func (s *Store) load(ctx context.Context, id string) (ids map[string]struct{}, ok bool) {
	ids = make(map[string]struct{})

	data, err := s.blobs.Load(ctx, id)
	if errors.Is(err, ErrBlobNotFound) {
		return ids, true
	}
	if err != nil {
		s.logger.Warn("Failed to read empty region shard, treating as empty", "shard", id, "error", err)
		return ids, false
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("Corrupt empty region shard, treating as empty", "shard", id, "error", err)
		return ids, true
	}
	for _, entry := range list {
		ids[entry] = struct{}{}
	}

	s.logger.Debug("Loaded empty region shard", "shard", id, "entries", len(ids))
	return ids, true
}

// persist writes the whole shard, retrying once. Called with sh.mu held.
func (s *Store) persist(ctx context.Context, sh *shard) {
	data, err := json.Marshal(sortedIDs(sh.ids))
	if err != nil {
		s.logger.Error("Failed to encode empty region shard", "shard", sh.id, "error", err)
		return
	}

	for attempt := 1; attempt <= 2; attempt++ {
		err = s.blobs.Save(ctx, sh.id, data)
		if err == nil {
			s.logger.Debug("Updated empty region shard", "shard", sh.id, "entries", len(sh.ids))
			return
		}
		s.logger.Warn("Failed to write empty region shard", "shard", sh.id, "attempt", attempt, "error", err)
	}
	s.logger.Error("Dropping empty region shard write", "shard", sh.id, "error", err)
}

func sortedIDs(ids map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
