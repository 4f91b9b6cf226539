package emptyregions

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardKey(t *testing.T) {
	key, err := ShardKey(boxel.MustParse("Thuechu YV-T d4-12"))
	require.NoError(t, err)
	assert.Equal(t, "Thuechu YE-A g0", key.Name())

	key, err = ShardKey(boxel.MustParse("Thuechu YE-A g7"))
	require.NoError(t, err)
	assert.Equal(t, "Thuechu YE-A g0", key.Name(), "a g region is its own shard")

	_, err = ShardKey(boxel.MustParse("Thuechu AA-A h0"))
	assert.ErrorIs(t, err, ErrTopMassCode)

	_, err = ShardKey(boxel.Boxel{})
	assert.ErrorIs(t, err, boxel.ErrInvalidName)
}

func TestStore_AddRemove(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	store := NewStore(blobs, nil)

	region := boxel.MustParse("Thuechu YV-T d4-12")
	assert.False(t, store.Contains(ctx, region))

	changed, err := store.Add(ctx, region)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, store.Contains(ctx, region))
	assert.True(t, store.Contains(ctx, region.WithN2(0)), "n2 is ignored")

	changed, err = store.Add(ctx, region)
	require.NoError(t, err)
	assert.False(t, changed, "adding twice changes nothing")

	_, saves := blobs.Counts()
	assert.Equal(t, 1, saves, "only real changes are written")

	data, ok := blobs.Get("Thuechu YE-A g0")
	require.True(t, ok)
	assert.JSONEq(t, `["YV-T d4"]`, string(data))

	changed, err = store.Remove(ctx, region)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, store.Contains(ctx, region))

	changed, err = store.Remove(ctx, region)
	require.NoError(t, err)
	assert.False(t, changed)

	data, _ = blobs.Get("Thuechu YE-A g0")
	assert.JSONEq(t, `[]`, string(data))
}

func TestStore_TopMassCodeRejected(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBlobStore(), nil)

	top := boxel.MustParse("Thuechu AA-A h0")
	changed, err := store.Add(ctx, top)
	assert.ErrorIs(t, err, ErrTopMassCode)
	assert.False(t, changed)
	assert.False(t, store.Contains(ctx, top))

	_, err = store.Remove(ctx, top)
	assert.ErrorIs(t, err, ErrTopMassCode)
}

func TestStore_SectorsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBlobStore(), nil)

	a := boxel.MustParse("Thuechu YV-T d4-0")
	b := boxel.MustParse("Synuefe YV-T d4-0")
	require.Equal(t, a.ID(), b.ID())

	_, err := store.Add(ctx, a)
	require.NoError(t, err)
	assert.True(t, store.Contains(ctx, a))
	assert.False(t, store.Contains(ctx, b))
}

func TestStore_ShardsPerRegion(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	store := NewStore(blobs, nil)

	first := boxel.MustParse("Thuechu YV-T d4-0")
	other := boxel.FromCoord("Thuechu", boxel.Coord{X: 100, Y: 100, Z: 0}, boxel.MassCodeD)
	firstKey, _ := ShardKey(first)
	otherKey, _ := ShardKey(other)
	require.NotEqual(t, firstKey, otherKey)

	_, err := store.Add(ctx, first)
	require.NoError(t, err)
	_, err = store.Add(ctx, other)
	require.NoError(t, err)

	assert.Equal(t, []string{first.ID()}, store.Shard(ctx, firstKey))
	assert.Equal(t, []string{other.ID()}, store.Shard(ctx, otherKey))
}

func TestStore_LazyLoadAndReload(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	blobs.Put("Thuechu YE-A g0", []byte(`["YV-T d4","ZV-T d4"]`))

	store := NewStore(blobs, nil)
	loads, _ := blobs.Counts()
	assert.Equal(t, 0, loads, "nothing is read up front")

	assert.True(t, store.Contains(ctx, boxel.MustParse("Thuechu ZV-T d4-3")))
	assert.True(t, store.Contains(ctx, boxel.MustParse("Thuechu YV-T d4-3")))
	loads, _ = blobs.Counts()
	assert.Equal(t, 1, loads, "the shard is cached after the first read")

	// a fresh store over the same blobs sees earlier writes
	_, err := store.Add(ctx, boxel.MustParse("Thuechu XA-U d4-0"))
	require.NoError(t, err)
	again := NewStore(blobs, nil)
	assert.True(t, again.Contains(ctx, boxel.MustParse("Thuechu XA-U d4-0")))
}

func TestStore_FailOpenOnRead(t *testing.T) {
	ctx := context.Background()

	t.Run("load error", func(t *testing.T) {
		blobs := NewMemoryBlobStore()
		blobs.Put("Thuechu YE-A g0", []byte(`["YV-T d4"]`))
		blobs.FailNext(1, 0)

		store := NewStore(blobs, nil)
		assert.False(t, store.Contains(ctx, boxel.MustParse("Thuechu YV-T d4-0")))
		assert.True(t, store.Contains(ctx, boxel.MustParse("Thuechu YV-T d4-0")), "an unreadable shard is read again")
	})

	t.Run("load error does not lose stored marks", func(t *testing.T) {
		blobs := NewMemoryBlobStore()
		blobs.Put("Thuechu YE-A g0", []byte(`["YV-T d4"]`))
		blobs.FailNext(1, 0)

		store := NewStore(blobs, nil)
		assert.False(t, store.Contains(ctx, boxel.MustParse("Thuechu YV-T d4-0")))

		changed, err := store.Add(ctx, boxel.MustParse("Thuechu ZV-T d4-0"))
		require.NoError(t, err)
		assert.True(t, changed)

		data, _ := blobs.Get("Thuechu YE-A g0")
		assert.JSONEq(t, `["YV-T d4","ZV-T d4"]`, string(data))
		assert.True(t, store.Contains(ctx, boxel.MustParse("Thuechu YV-T d4-0")))
	})

	t.Run("write to an unreadable shard is refused", func(t *testing.T) {
		blobs := NewMemoryBlobStore()
		blobs.Put("Thuechu YE-A g0", []byte(`["YV-T d4"]`))
		blobs.FailNext(2, 0)

		store := NewStore(blobs, nil)
		changed, err := store.Add(ctx, boxel.MustParse("Thuechu ZV-T d4-0"))
		assert.ErrorIs(t, err, ErrShardUnavailable)
		assert.False(t, changed)

		_, saves := blobs.Counts()
		assert.Equal(t, 0, saves)
		data, _ := blobs.Get("Thuechu YE-A g0")
		assert.JSONEq(t, `["YV-T d4"]`, string(data))

		changed, err = store.Add(ctx, boxel.MustParse("Thuechu ZV-T d4-0"))
		require.NoError(t, err)
		assert.True(t, changed)
		data, _ = blobs.Get("Thuechu YE-A g0")
		assert.JSONEq(t, `["YV-T d4","ZV-T d4"]`, string(data))
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		files, err := NewFileBlobStore(dir)
		require.NoError(t, err)
		require.NoError(t, files.Save(ctx, "Thuechu YE-A g0", []byte(`["YV-T d4"]`)))

		store := NewStore(files, nil)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.False(t, store.Contains(cancelled, boxel.MustParse("Thuechu YV-T d4-0")))
		assert.True(t, store.Contains(ctx, boxel.MustParse("Thuechu YV-T d4-0")))
	})

	t.Run("corrupt shard", func(t *testing.T) {
		blobs := NewMemoryBlobStore()
		blobs.Put("Thuechu YE-A g0", []byte(`{not json`))

		store := NewStore(blobs, nil)
		assert.False(t, store.Contains(ctx, boxel.MustParse("Thuechu YV-T d4-0")))

		changed, err := store.Add(ctx, boxel.MustParse("Thuechu YV-T d4-0"))
		require.NoError(t, err)
		assert.True(t, changed)

		data, _ := blobs.Get("Thuechu YE-A g0")
		assert.JSONEq(t, `["YV-T d4"]`, string(data), "the corrupt shard is replaced")
	})
}

func TestStore_WriteRetry(t *testing.T) {
	ctx := context.Background()
	region := boxel.MustParse("Thuechu YV-T d4-0")

	t.Run("one failure is retried", func(t *testing.T) {
		blobs := NewMemoryBlobStore()
		blobs.FailNext(0, 1)
		store := NewStore(blobs, nil)

		changed, err := store.Add(ctx, region)
		require.NoError(t, err)
		assert.True(t, changed)

		_, saves := blobs.Counts()
		assert.Equal(t, 2, saves)
		_, ok := blobs.Get("Thuechu YE-A g0")
		assert.True(t, ok)
	})

	t.Run("two failures are dropped", func(t *testing.T) {
		blobs := NewMemoryBlobStore()
		blobs.FailNext(0, 5)
		store := NewStore(blobs, nil)

		changed, err := store.Add(ctx, region)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, store.Contains(ctx, region), "the in-memory change stands")

		_, saves := blobs.Counts()
		assert.Equal(t, 2, saves, "at most one retry")
		_, ok := blobs.Get("Thuechu YE-A g0")
		assert.False(t, ok)
	})
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	store := NewStore(blobs, nil)

	parent := boxel.MustParse("Thuechu XU-X e1-0")
	children := parent.Children()

	var wg sync.WaitGroup
	for _, child := range children {
		wg.Add(1)
		go func(region boxel.Boxel) {
			defer wg.Done()
			_, err := store.Add(ctx, region)
			assert.NoError(t, err)
			assert.True(t, store.Contains(ctx, region))
		}(child)
	}
	wg.Wait()

	key, _ := ShardKey(parent)
	assert.Len(t, store.Shard(ctx, key), len(children), "no update was lost")

	loads, _ := blobs.Counts()
	assert.Equal(t, 1, loads, "concurrent first loads are shared")
}

func TestFileBlobStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "emptyBoxels")

	files, err := NewFileBlobStore(dir)
	require.NoError(t, err)

	_, err = files.Load(ctx, "Thuechu YE-A g0")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	store := NewStore(files, nil)
	_, err = store.Add(ctx, boxel.MustParse("Thuechu YV-T d4-12"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "Thuechu YE-A g0.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `["YV-T d4"]`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")

	reopened := NewStore(files, nil)
	assert.True(t, reopened.Contains(ctx, boxel.MustParse("Thuechu YV-T d4-1")))

	_, err = NewFileBlobStore("")
	assert.Error(t, err)
}

func TestBadgerBlobStore(t *testing.T) {
	ctx := context.Background()

	blobs, err := OpenBadgerBlobStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer blobs.Close()

	_, err = blobs.Load(ctx, "Thuechu YE-A g0")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	store := NewStore(blobs, nil)
	_, err = store.Add(ctx, boxel.MustParse("Thuechu YV-T d4-12"))
	require.NoError(t, err)

	data, err := blobs.Load(ctx, "Thuechu YE-A g0")
	require.NoError(t, err)
	assert.JSONEq(t, `["YV-T d4"]`, string(data))

	ids, err := blobs.ShardIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"Thuechu YE-A g0"}, ids)

	_, err = OpenBadgerBlobStore(BadgerConfig{})
	assert.Error(t, err, "a persistent store needs a path")
}
