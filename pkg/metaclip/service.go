package metaclip

import (
	"context"
	"io"
)

// Service defines the main interface for the metaclip library.
type Service interface {
	// Item operations
	CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context) ([]*Item, error)
	DeleteItem(ctx context.Context, id string) error

	// File content operations
	MaterializeContent(ctx context.Context, id string, reader io.Reader) error
	ContentInfo(ctx context.Context, id string) (*ContentInfo, error)
	OpenContent(ctx context.Context, id string, rangeSpec string) (*ContentReader, error)

	// Raw-query gateway
	ExecuteQuery(ctx context.Context, req ExecuteQueryRequest) (*QueryResult, error)
}
