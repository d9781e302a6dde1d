package metaclip

import (
	"io"

	"github.com/metaclip/metaclip/pkg/metaclip/httprange"
)

// Request/Response DTOs

// CreateItemRequest contains parameters for creating a new item.
//
// ID is optional; a UUID is generated when it is empty. For file items,
// Content is an optional placeholder stored on the row; the actual bytes are
// attached later through materialization.
type CreateItemRequest struct {
	ID      string
	Type    ItemType
	Name    string
	Content []byte
}

// ExecuteQueryRequest contains parameters for the raw-query gateway.
type ExecuteQueryRequest struct {
	// Query is the raw statement text as received from the client.
	Query string
	// Caller identifies the authenticated caller, used for logging only.
	Caller string
}

// ContentReader is an open range read over a file item's content.
type ContentReader struct {
	io.ReadCloser

	// Range is the resolved serving window.
	Range httprange.Range
}
