package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestFileStoreGetPut(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, found, err := store.Get(ctx, "inventoryCounts")
	require.NoError(t, err)
	assert.False(t, found, "missing key must report not found")

	require.NoError(t, store.Put(ctx, "inventoryCounts", []byte(`[]`)))
	require.NoError(t, store.Put(ctx, "inventoryCounts", []byte(`[{"Timestamp":1}]`)))

	value, found, err := store.Get(ctx, "inventoryCounts")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"Timestamp":1}]`, string(value))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store := newTestStore(t)
	for _, key := range []string{"", "..", "a/b", `a\b`, TempFilePrefix + "x"} {
		err := store.Put(context.Background(), key, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestFileStoreWatch(t *testing.T) {
	t.Run("External Write Notifies", func(t *testing.T) {
		store := newTestStore(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		changes, err := store.Watch(ctx, "inventoryCounts")
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "inventoryCounts"), []byte(`[{"Timestamp":9}]`), 0o644))

		select {
		case <-changes:
		case <-ctx.Done():
			t.Fatal("timed out waiting for change notification")
		}
	})

	t.Run("Own Write Is Ignored", func(t *testing.T) {
		store := newTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := store.Watch(ctx, "inventoryCounts")
		require.NoError(t, err)

		require.NoError(t, store.Put(ctx, "inventoryCounts", []byte(`[{"Timestamp":1}]`)))

		select {
		case <-changes:
			t.Fatal("own write must not notify")
		case <-time.After(400 * time.Millisecond):
		}
	})

	t.Run("Other Keys Are Ignored", func(t *testing.T) {
		store := newTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := store.Watch(ctx, "inventoryCounts")
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "userName"), []byte("dana"), 0o644))

		select {
		case <-changes:
			t.Fatal("unrelated key must not notify")
		case <-time.After(400 * time.Millisecond):
		}
	})

	t.Run("Channel Closes With Context", func(t *testing.T) {
		store := newTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())

		changes, err := store.Watch(ctx, "inventoryCounts")
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed after cancel")
		}
	})
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "value")
	require.NoError(t, os.WriteFile(filename, []byte("initial"), 0o644))

	require.NoError(t, writeFileAtomic(filename, []byte("overwritten"), 0o644))

	got, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "overwritten", string(got))
}
