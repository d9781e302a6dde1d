package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return backend
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestMaterializeAndRead(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	content := []byte("hello metaclip content")
	require.NoError(t, backend.Materialize(ctx, "item-1", bytes.NewReader(content)))

	materialized, err := backend.Materialized(ctx, "item-1")
	require.NoError(t, err)
	assert.True(t, materialized)

	length, err := backend.Length(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), length)

	rc, err := backend.Read(ctx, "item-1", 0, length)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestReadWindow(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	require.NoError(t, backend.Materialize(ctx, "item-1", strings.NewReader("0123456789")))

	rc, err := backend.Read(ctx, "item-1", 3, 4)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(got))
}

func TestMaterializeExactlyOnce(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	require.NoError(t, backend.Materialize(ctx, "item-1", strings.NewReader("first")))

	err := backend.Materialize(ctx, "item-1", strings.NewReader("second"))
	assert.ErrorIs(t, err, metaclip.ErrAlreadyMaterialized)

	// The original bytes survive the rejected attempt.
	rc, err := backend.Read(ctx, "item-1", 0, 5)
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "first", string(got))
}

func TestMaterializeConcurrent(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = backend.Materialize(ctx, "contested", strings.NewReader("payload"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, metaclip.ErrAlreadyMaterialized)
		}
	}
	assert.Equal(t, 1, succeeded)

	length, err := backend.Length(ctx, "contested")
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), length)
}

func TestNotMaterialized(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	materialized, err := backend.Materialized(ctx, "declared")
	require.NoError(t, err)
	assert.False(t, materialized)

	_, err = backend.Length(ctx, "declared")
	assert.ErrorIs(t, err, metaclip.ErrNotMaterialized)

	_, err = backend.Read(ctx, "declared", 0, 1)
	assert.ErrorIs(t, err, metaclip.ErrNotMaterialized)
}

func TestFileLost(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	require.NoError(t, backend.Materialize(ctx, "item-1", strings.NewReader("bytes")))

	// Simulate external removal of the content while the commit marker stays.
	require.NoError(t, os.Remove(filepath.Join(dir, "item-1")))

	_, err = backend.Length(ctx, "item-1")
	assert.ErrorIs(t, err, metaclip.ErrFileLost)

	_, err = backend.Read(ctx, "item-1", 0, 5)
	assert.ErrorIs(t, err, metaclip.ErrFileLost)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	require.NoError(t, backend.Materialize(ctx, "item-1", strings.NewReader("bytes")))
	require.NoError(t, backend.Delete(ctx, "item-1"))

	materialized, err := backend.Materialized(ctx, "item-1")
	require.NoError(t, err)
	assert.False(t, materialized)

	// Deleting content that was never materialized is a no-op.
	assert.NoError(t, backend.Delete(ctx, "never-existed"))

	// The id is reusable after deletion.
	assert.NoError(t, backend.Materialize(ctx, "item-1", strings.NewReader("again")))
}

func TestInvalidIDs(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	for _, id := range []string{"", ".", "..", "../escape", "a/b"} {
		err := backend.Materialize(ctx, id, strings.NewReader("x"))
		assert.Error(t, err, "id %q", id)

		materialized, err := backend.Materialized(ctx, id)
		assert.NoError(t, err)
		assert.False(t, materialized)
	}
}

func TestNoPartialContentVisible(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	failing := io.MultiReader(strings.NewReader("partial"), &failingReader{})
	err = backend.Materialize(ctx, "item-1", failing)
	require.Error(t, err)

	// The failed attempt leaves neither content nor marker behind.
	materialized, err := backend.Materialized(ctx, "item-1")
	require.NoError(t, err)
	assert.False(t, materialized)

	_, statErr := os.Stat(filepath.Join(dir, "item-1"))
	assert.True(t, os.IsNotExist(statErr))

	// The id can still be materialized afterwards.
	assert.NoError(t, backend.Materialize(ctx, "item-1", strings.NewReader("complete")))
}

type failingReader struct{}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
