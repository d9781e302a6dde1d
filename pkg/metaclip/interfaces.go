package metaclip

import (
	"context"
	"io"
)

// Repository defines the interface for item metadata persistence: the
// single-table system of record for item existence and small/text content.
type Repository interface {
	// CreateItem inserts a new item row. Returns ErrDuplicateItem if the id
	// is already taken.
	CreateItem(ctx context.Context, item *Item) error

	// GetItem returns the item with the given id, or ErrItemNotFound.
	GetItem(ctx context.Context, id string) (*Item, error)

	// DeleteItem removes the item row, or returns ErrItemNotFound.
	DeleteItem(ctx context.Context, id string) error

	// ListItems returns all items ordered by id.
	ListItems(ctx context.Context) ([]*Item, error)
}

// StatementExecutor runs firewall-accepted raw statements against the
// metadata store. Implementations rely on the engine's single-statement
// atomicity; no additional locking happens above them.
type StatementExecutor interface {
	// ExecSelect runs an accepted SELECT and returns the rows in result
	// order.
	ExecSelect(ctx context.Context, stmt string) ([]QueryRow, error)

	// ExecMutation runs an accepted INSERT or DELETE and returns the ids of
	// the affected rows, taken from the statement's own returned row
	// identifiers.
	ExecMutation(ctx context.Context, stmt string) ([]string, error)
}

// BlobStore defines the interface for blob storage backends. State and
// mutual exclusion for one-time materialization live in the backend; the
// not-found / not-a-file distinction is layered on top by the Service, which
// consults the metadata repository first.
type BlobStore interface {
	// Materialize writes the full byte content for id exactly once.
	// Concurrent calls for the same id are mutually exclusive; the loser
	// gets ErrAlreadyMaterialized, never a partial write.
	Materialize(ctx context.Context, id string, reader io.Reader) error

	// Materialized reports whether bytes have been committed for id.
	Materialized(ctx context.Context, id string) (bool, error)

	// Length returns the committed byte length without reading content.
	// Returns ErrNotMaterialized before materialization and ErrFileLost if
	// the commit record exists but the bytes are missing.
	Length(ctx context.Context, id string) (int64, error)

	// Read returns a reader over length bytes starting at start. The same
	// error distinction as Length applies. The caller owns the reader and
	// must close it.
	Read(ctx context.Context, id string, start, length int64) (io.ReadCloser, error)

	// Delete removes bytes and commit record for id. Deleting a declared id
	// with no bytes succeeds as a no-op.
	Delete(ctx context.Context, id string) error
}

// EventPublisher receives item lifecycle events. Publish must never block
// the caller; slow consumers are the publisher implementation's problem.
type EventPublisher interface {
	Publish(event Event)
}
