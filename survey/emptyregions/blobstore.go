package emptyregions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrBlobNotFound is returned by BlobStore.Load for a shard that was never saved.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore persists whole shards as opaque blobs keyed by shard id.
type BlobStore interface {
	Load(ctx context.Context, shardID string) ([]byte, error)
	Save(ctx context.Context, shardID string, data []byte) error
}

// FileBlobStore keeps each shard as <dir>/<shard id>.json.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore creates the directory if needed.
func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if dir == "" {
		return nil, errors.New("empty region directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create empty region directory %s: %w", dir, err)
	}
	return &FileBlobStore{dir: dir}, nil
}

// Dir returns the directory shards are written to.
func (f *FileBlobStore) Dir() string { return f.dir }

func (f *FileBlobStore) path(shardID string) string {
	// shard ids are boxel names, which never contain a separator, but a
	// hand edited config could still hand us anything
	name := strings.ReplaceAll(shardID, string(filepath.Separator), "_")
	return filepath.Join(f.dir, name+".json")
}

func (f *FileBlobStore) Load(ctx context.Context, shardID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(shardID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read shard %s: %w", shardID, err)
	}
	return data, nil
}

// Save writes to a temp file first and renames it over the shard, so a crash
// never leaves a half written shard behind.
func (f *FileBlobStore) Save(ctx context.Context, shardID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".shard-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp shard: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write shard %s: %w", shardID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close shard %s: %w", shardID, err)
	}
	if err := os.Rename(tmp.Name(), f.path(shardID)); err != nil {
		return fmt.Errorf("replace shard %s: %w", shardID, err)
	}
	return nil
}

// MemoryBlobStore keeps shards in a map.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	failLoads int
	failSaves int
	loads     int
	saves     int
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

var errInjected = errors.New("injected blob store failure")

func (m *MemoryBlobStore) Load(_ context.Context, shardID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	if m.failLoads > 0 {
		m.failLoads--
		return nil, errInjected
	}
	data, ok := m.blobs[shardID]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBlobStore) Save(_ context.Context, shardID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.failSaves > 0 {
		m.failSaves--
		return errInjected
	}
	m.blobs[shardID] = append([]byte(nil), data...)
	return nil
}

// Put seeds a raw blob, bypassing failure injection.
func (m *MemoryBlobStore) Put(shardID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[shardID] = append([]byte(nil), data...)
}

// Get returns a raw blob.
func (m *MemoryBlobStore) Get(shardID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[shardID]
	return data, ok
}

// Counts returns the number of Load and Save calls so far.
func (m *MemoryBlobStore) Counts() (loads, saves int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads, m.saves
}

// FailNext makes the next loads Load calls and saves Save calls fail.
func (m *MemoryBlobStore) FailNext(loads, saves int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoads = loads
	m.failSaves = saves
}
