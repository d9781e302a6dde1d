// Package memory implements the metaclip.Repository interface in memory,
// primarily for tests and development. It does not execute raw statements;
// the raw-query gateway requires a relational store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

// Repository implements metaclip.Repository using in-memory storage.
type Repository struct {
	mu    sync.RWMutex
	items map[string]*metaclip.Item
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		items: make(map[string]*metaclip.Item),
	}
}

var _ metaclip.Repository = (*Repository)(nil)

func (r *Repository) CreateItem(ctx context.Context, item *metaclip.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return metaclip.ErrDuplicateItem
	}

	// Store a copy to avoid external modifications.
	itemCopy := *item
	r.items[item.ID] = &itemCopy

	return nil
}

func (r *Repository) GetItem(ctx context.Context, id string) (*metaclip.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, metaclip.ErrItemNotFound
	}

	itemCopy := *item
	return &itemCopy, nil
}

func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists {
		return metaclip.ErrItemNotFound
	}
	delete(r.items, id)

	return nil
}

func (r *Repository) ListItems(ctx context.Context) ([]*metaclip.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*metaclip.Item, 0, len(r.items))
	for _, item := range r.items {
		itemCopy := *item
		items = append(items, &itemCopy)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items, nil
}
