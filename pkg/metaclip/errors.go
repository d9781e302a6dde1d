package metaclip

import (
	"errors"
	"fmt"
)

// Error taxonomy. Components raise the most specific member they can
// determine; status-code mapping is the API layer's job, not the core's.
var (
	// ErrItemNotFound indicates no item exists with the given id.
	ErrItemNotFound = errors.New("item not found")

	// ErrDuplicateItem indicates an insert targeting an id that already exists.
	ErrDuplicateItem = errors.New("item already exists")

	// ErrNotAFile indicates a blob operation on a text-typed item.
	ErrNotAFile = errors.New("item is not a file")

	// ErrNotMaterialized indicates a read of a declared file with no bytes yet.
	ErrNotMaterialized = errors.New("content not materialized")

	// ErrAlreadyMaterialized indicates a second materialization attempt.
	// File content is written exactly once; there is no overwrite.
	ErrAlreadyMaterialized = errors.New("content already materialized")

	// ErrFileLost indicates metadata says materialized but the underlying
	// bytes are missing. This is an integrity fault outside the requester's
	// control and is never reported as not-found.
	ErrFileLost = errors.New("file content lost")

	// ErrExecutorNotConfigured indicates the raw-query gateway was invoked
	// without a statement executor wired in.
	ErrExecutorNotConfigured = errors.New("statement executor not configured")
)

// ItemError wraps an error from an item operation with its context.
type ItemError struct {
	ItemID string
	Op     string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item operation %s failed for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// StorageError wraps an error from a blob storage backend.
type StorageError struct {
	Backend string
	ID      string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for id %s on backend %s: %v", e.Op, e.ID, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// QueryError wraps an execution failure of a firewall-accepted statement.
// The underlying engine error is preserved for logging; callers receive the
// taxonomy classification only.
type QueryError struct {
	Kind QueryKind
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query execution failed (%s): %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
