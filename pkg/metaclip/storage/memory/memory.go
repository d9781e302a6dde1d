// Package memory implements the metaclip.BlobStore interface in memory,
// primarily for tests and development.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

// Backend is an in-memory implementation of the metaclip.BlobStore interface.
// Bytes and the commit record are tracked separately so metadata divergence
// ("file lost") is representable, mirroring the filesystem backend.
type Backend struct {
	mu        sync.RWMutex
	blobs     map[string][]byte
	committed map[string]bool
}

// New creates a new in-memory storage backend.
func New() *Backend {
	return &Backend{
		blobs:     make(map[string][]byte),
		committed: make(map[string]bool),
	}
}

var _ metaclip.BlobStore = (*Backend)(nil)

// Materialize stores the content for id exactly once.
func (b *Backend) Materialize(ctx context.Context, id string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return &metaclip.StorageError{Backend: "memory", ID: id, Op: "materialize", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.committed[id] {
		return metaclip.ErrAlreadyMaterialized
	}
	b.blobs[id] = data
	b.committed[id] = true

	return nil
}

// Materialized reports whether content has been committed for id.
func (b *Backend) Materialized(ctx context.Context, id string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.committed[id], nil
}

// Length returns the committed byte length for id.
func (b *Backend) Length(ctx context.Context, id string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.committed[id] {
		return 0, metaclip.ErrNotMaterialized
	}
	data, ok := b.blobs[id]
	if !ok {
		return 0, metaclip.ErrFileLost
	}
	return int64(len(data)), nil
}

// Read returns a reader over length bytes of id's content starting at start.
func (b *Backend) Read(ctx context.Context, id string, start, length int64) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.committed[id] {
		return nil, metaclip.ErrNotMaterialized
	}
	data, ok := b.blobs[id]
	if !ok {
		return nil, metaclip.ErrFileLost
	}

	if start > int64(len(data)) {
		start = int64(len(data))
	}
	end := start + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}

	return io.NopCloser(bytes.NewReader(data[start:end])), nil
}

// Delete removes content and commit record for id. Deleting a declared id
// succeeds as a no-op.
func (b *Backend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.blobs, id)
	delete(b.committed, id)
	return nil
}

// Lose discards the stored bytes for id while keeping the commit record,
// simulating externally deleted content for divergence tests.
func (b *Backend) Lose(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, id)
}
