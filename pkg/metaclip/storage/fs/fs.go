// Package fs implements the metaclip.BlobStore interface on the local
// filesystem.
//
// Layout: content for an id lives at <baseDir>/<id>, with a sidecar commit
// marker at <baseDir>/<id>.ok written only after the content file has been
// fully written, synced and renamed into place. The marker is what makes
// "file lost" (marker present, bytes missing) distinguishable from "not yet
// materialized" (no marker).
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

// Backend is a filesystem implementation of the metaclip.BlobStore interface.
type Backend struct {
	baseDir string

	mu    sync.Mutex
	inUse map[string]*sync.Mutex // per-id materialization locks
}

// Config options for the filesystem backend.
type Config struct {
	BaseDir string // Base directory for storing content files
}

// New creates a new filesystem storage backend, creating the base directory
// if needed.
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir: config.BaseDir,
		inUse:   make(map[string]*sync.Mutex),
	}, nil
}

var _ metaclip.BlobStore = (*Backend)(nil)

// validID rejects ids that would escape the base directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && filepath.Base(id) == id
}

func (b *Backend) contentPath(id string) string {
	return filepath.Join(b.baseDir, id)
}

func (b *Backend) markerPath(id string) string {
	return filepath.Join(b.baseDir, id+".ok")
}

// idLock returns the materialization lock for id, creating it on first use.
func (b *Backend) idLock(id string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.inUse[id]
	if !ok {
		l = &sync.Mutex{}
		b.inUse[id] = l
	}
	return l
}

// Materialize writes the content for id exactly once. The bytes go to a
// temporary file that is synced and renamed over the final path before the
// commit marker appears, so concurrent readers observe either no content or
// the complete content, never a partial write.
func (b *Backend) Materialize(ctx context.Context, id string, reader io.Reader) error {
	if !validID(id) {
		return b.storageErr("materialize", id, errors.New("invalid id"))
	}

	lock := b.idLock(id)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(b.markerPath(id)); err == nil {
		return metaclip.ErrAlreadyMaterialized
	} else if !os.IsNotExist(err) {
		return b.storageErr("materialize", id, err)
	}

	tmpPath := b.contentPath(id) + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return b.storageErr("materialize", id, err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return b.storageErr("materialize", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return b.storageErr("materialize", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return b.storageErr("materialize", id, err)
	}

	if err := os.Rename(tmpPath, b.contentPath(id)); err != nil {
		os.Remove(tmpPath)
		return b.storageErr("materialize", id, err)
	}

	marker, err := os.OpenFile(b.markerPath(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return b.storageErr("materialize", id, err)
	}
	return marker.Close()
}

// Materialized reports whether the commit marker exists for id.
func (b *Backend) Materialized(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	if _, err := os.Stat(b.markerPath(id)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, b.storageErr("stat", id, err)
	}
	return true, nil
}

// Length returns the committed byte length without reading content.
func (b *Backend) Length(ctx context.Context, id string) (int64, error) {
	materialized, err := b.Materialized(ctx, id)
	if err != nil {
		return 0, err
	}
	if !materialized {
		return 0, metaclip.ErrNotMaterialized
	}

	info, err := os.Stat(b.contentPath(id))
	if os.IsNotExist(err) {
		// Marker present, bytes gone: the store and its metadata have
		// diverged (e.g. externally deleted file).
		return 0, metaclip.ErrFileLost
	} else if err != nil {
		return 0, b.storageErr("length", id, err)
	}

	return info.Size(), nil
}

// Read returns a reader over length bytes of id's content starting at
// start. Closing the reader releases the file handle, so an aborted
// download does not leak descriptors.
func (b *Backend) Read(ctx context.Context, id string, start, length int64) (io.ReadCloser, error) {
	materialized, err := b.Materialized(ctx, id)
	if err != nil {
		return nil, err
	}
	if !materialized {
		return nil, metaclip.ErrNotMaterialized
	}

	f, err := os.Open(b.contentPath(id))
	if os.IsNotExist(err) {
		return nil, metaclip.ErrFileLost
	} else if err != nil {
		return nil, b.storageErr("read", id, err)
	}

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			f.Close()
			return nil, b.storageErr("read", id, err)
		}
	}

	return &limitedFile{f: f, r: io.LimitReader(f, length)}, nil
}

// Delete removes content and marker for id. Deleting a declared id with no
// bytes succeeds as a no-op.
func (b *Backend) Delete(ctx context.Context, id string) error {
	if err := os.Remove(b.contentPath(id)); err != nil && !os.IsNotExist(err) {
		return b.storageErr("delete", id, err)
	}
	if err := os.Remove(b.markerPath(id)); err != nil && !os.IsNotExist(err) {
		return b.storageErr("delete", id, err)
	}

	b.mu.Lock()
	delete(b.inUse, id)
	b.mu.Unlock()

	return nil
}

func (b *Backend) storageErr(op, id string, err error) error {
	return &metaclip.StorageError{Backend: "fs", ID: id, Op: op, Err: err}
}

// limitedFile couples a LimitReader window with the underlying file handle
// so Close reaches the file.
type limitedFile struct {
	f *os.File
	r io.Reader
}

func (l *limitedFile) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

func (l *limitedFile) Close() error {
	return l.f.Close()
}
