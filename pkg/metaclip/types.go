package metaclip

import "time"

// ItemType is the domain type for the two kinds of stored items.
type ItemType string

// Item type constants (typed).
const (
	ItemTypeText ItemType = "text"
	ItemTypeFile ItemType = "file"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	return t == ItemTypeText || t == ItemTypeFile
}

// Item represents a stored record, the unit of storage.
//
// For text items, Content is the payload itself. For file items, Content is
// an optional placeholder; the real bytes live in the blob store and are
// attached exactly once via materialization. Content of a materialized file
// is never updated in place, so clients may cache by id+range indefinitely.
//
// Content marshals to base64 in JSON (the deployment-wide transport
// encoding, see the package documentation).
type Item struct {
	ID      string   `json:"id"`
	Type    ItemType `json:"type"`
	Name    string   `json:"name"`
	Content []byte   `json:"content,omitempty"`
}

// ContentInfo describes the blob state of a file item.
type ContentInfo struct {
	// Materialized is true once bytes have been attached to the item.
	Materialized bool
	// Size is the byte length of the materialized content. Zero while the
	// item is still declared.
	Size int64
}

// EventKind identifies an item lifecycle transition.
type EventKind string

// Event kind constants (typed).
const (
	EventKindCreated EventKind = "created"
	EventKindDeleted EventKind = "deleted"
)

// Event is an ephemeral item lifecycle notification. Events are broadcast to
// currently connected subscribers only; they are never persisted or replayed.
type Event struct {
	Kind   EventKind `json:"kind"`
	ItemID string    `json:"item_id"`
	At     time.Time `json:"at"`
}

// QueryKind classifies an accepted raw statement.
type QueryKind string

// Query kind constants (typed).
const (
	QueryKindSelect QueryKind = "select"
	QueryKindInsert QueryKind = "insert"
	QueryKindDelete QueryKind = "delete"
)

// QueryRow is one result row of an accepted SELECT statement. It exposes the
// four entity fields; columns absent from the projection are left empty.
// Content carries the base64 transport encoding.
type QueryRow struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// QueryResult is the outcome of an accepted raw statement. Rows is populated
// for SELECT only; INSERT and DELETE report success without row data.
type QueryResult struct {
	Kind QueryKind  `json:"kind"`
	Rows []QueryRow `json:"rows,omitempty"`
}
