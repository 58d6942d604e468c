package blob

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventsphere/eventsphere-server/internal/store"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ref, err := s.Store(ctx, []byte("photo-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "blob-"))

	data, contentType, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("photo-bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestStore_DistinctRefs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a, err := s.Store(ctx, []byte("a"), "image/png")
	require.NoError(t, err)
	b, err := s.Store(ctx, []byte("a"), "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	refs, err := s.Refs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, refs)
}

func TestStore_RejectsEmpty(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Store(context.Background(), nil, "image/png")
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	s := setupTestStore(t)
	_, _, err := s.Get(context.Background(), "blob-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ref, err := s.Store(ctx, []byte("x"), "image/jpeg")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, ref))
	_, _, err = s.Get(ctx, ref)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, ref), "deleting twice is fine")
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	ctx := context.Background()

	s1, err := Open(dir, nil)
	require.NoError(t, err)
	ref, err := s1.Store(ctx, []byte("kept"), "image/webp")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dir, nil)
	require.NoError(t, err)
	defer s2.Close()

	data, contentType, err := s2.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
	assert.Equal(t, "image/webp", contentType)
}

func TestCanceledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Store(ctx, []byte("x"), "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}
