package metaclip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/metaclip/metaclip/pkg/metaclip/firewall"
	"github.com/metaclip/metaclip/pkg/metaclip/httprange"
)

// service implements the Service interface.
type service struct {
	repository Repository
	blobStore  BlobStore
	executor   StatementExecutor
	publisher  EventPublisher
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithRepository sets the metadata repository for the service.
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob storage backend for file content.
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithStatementExecutor enables the raw-query gateway against the given
// executor. Without it, ExecuteQuery fails with ErrExecutorNotConfigured.
func WithStatementExecutor(exec StatementExecutor) Option {
	return func(s *service) {
		s.executor = exec
	}
}

// WithEventPublisher sets the lifecycle event publisher. Without it, events
// are discarded.
func WithEventPublisher(pub EventPublisher) Option {
	return func(s *service) {
		s.publisher = pub
	}
}

// New creates a new service instance with the given options.
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// Item operations

func (s *service) CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	if !req.Type.Valid() {
		return nil, &ItemError{ItemID: req.ID, Op: "create", Err: fmt.Errorf("unknown item type %q", req.Type)}
	}

	item := &Item{
		ID:      req.ID,
		Type:    req.Type,
		Name:    req.Name,
		Content: req.Content,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	if err := s.repository.CreateItem(ctx, item); err != nil {
		return nil, &ItemError{ItemID: item.ID, Op: "create", Err: err}
	}

	s.publish(EventKindCreated, item.ID)

	return item, nil
}

func (s *service) GetItem(ctx context.Context, id string) (*Item, error) {
	return s.repository.GetItem(ctx, id)
}

func (s *service) ListItems(ctx context.Context) ([]*Item, error) {
	return s.repository.ListItems(ctx)
}

// DeleteItem removes the metadata row and any blob bytes as one operation.
// Blob removal happens first so a failure leaves the row (and the item)
// intact rather than orphaning bytes behind a missing row.
func (s *service) DeleteItem(ctx context.Context, id string) error {
	item, err := s.repository.GetItem(ctx, id)
	if err != nil {
		return err
	}

	if item.Type == ItemTypeFile && s.blobStore != nil {
		if err := s.blobStore.Delete(ctx, id); err != nil {
			return &ItemError{ItemID: id, Op: "delete", Err: err}
		}
	}

	if err := s.repository.DeleteItem(ctx, id); err != nil {
		return err
	}

	s.publish(EventKindDeleted, id)

	return nil
}

// File content operations

func (s *service) MaterializeContent(ctx context.Context, id string, reader io.Reader) error {
	item, err := s.repository.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.Type != ItemTypeFile {
		return &ItemError{ItemID: id, Op: "materialize", Err: ErrNotAFile}
	}
	if s.blobStore == nil {
		return &ItemError{ItemID: id, Op: "materialize", Err: errors.New("no blob store configured")}
	}

	if err := s.blobStore.Materialize(ctx, id, reader); err != nil {
		return &ItemError{ItemID: id, Op: "materialize", Err: err}
	}

	return nil
}

// ContentInfo returns the blob state for a file item. A declared item
// reports Size 0 with no error; "not yet available" is expressed through
// Materialized being false.
func (s *service) ContentInfo(ctx context.Context, id string) (*ContentInfo, error) {
	item, err := s.repository.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Type != ItemTypeFile {
		return nil, &ItemError{ItemID: id, Op: "stat", Err: ErrNotAFile}
	}
	if s.blobStore == nil {
		return &ContentInfo{}, nil
	}

	materialized, err := s.blobStore.Materialized(ctx, id)
	if err != nil {
		return nil, &ItemError{ItemID: id, Op: "stat", Err: err}
	}
	if !materialized {
		return &ContentInfo{}, nil
	}

	size, err := s.blobStore.Length(ctx, id)
	if err != nil {
		return nil, &ItemError{ItemID: id, Op: "stat", Err: err}
	}

	return &ContentInfo{Materialized: true, Size: size}, nil
}

func (s *service) OpenContent(ctx context.Context, id string, rangeSpec string) (*ContentReader, error) {
	info, err := s.ContentInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	rng, err := httprange.Resolve(rangeSpec, info.Size)
	if err != nil {
		return nil, err
	}

	// A declared item has length 0: a rangeless read serves empty content,
	// and any explicit range was already rejected as unsatisfiable above.
	if !info.Materialized {
		return &ContentReader{ReadCloser: io.NopCloser(bytes.NewReader(nil)), Range: rng}, nil
	}

	rc, err := s.blobStore.Read(ctx, id, rng.Start, rng.Length)
	if err != nil {
		return nil, &ItemError{ItemID: id, Op: "read", Err: err}
	}

	return &ContentReader{ReadCloser: rc, Range: rng}, nil
}

// Raw-query gateway

func (s *service) ExecuteQuery(ctx context.Context, req ExecuteQueryRequest) (*QueryResult, error) {
	kind, err := firewall.Classify(req.Query)
	if err != nil {
		return nil, err
	}

	if s.executor == nil {
		return nil, ErrExecutorNotConfigured
	}

	switch kind {
	case firewall.KindSelect:
		rows, err := s.executor.ExecSelect(ctx, req.Query)
		if err != nil {
			return nil, &QueryError{Kind: QueryKindSelect, Err: err}
		}
		return &QueryResult{Kind: QueryKindSelect, Rows: rows}, nil

	case firewall.KindInsert, firewall.KindDelete:
		queryKind, eventKind := QueryKindInsert, EventKindCreated
		if kind == firewall.KindDelete {
			queryKind, eventKind = QueryKindDelete, EventKindDeleted
		}

		ids, err := s.executor.ExecMutation(ctx, req.Query)
		if err != nil {
			return nil, &QueryError{Kind: queryKind, Err: err}
		}
		for _, id := range ids {
			s.publish(eventKind, id)
		}
		return &QueryResult{Kind: queryKind}, nil

	default:
		return nil, firewall.ErrMalformed
	}
}

func (s *service) publish(kind EventKind, itemID string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(Event{Kind: kind, ItemID: itemID, At: time.Now().UTC()})
}
