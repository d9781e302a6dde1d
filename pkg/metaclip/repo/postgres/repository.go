// Package postgres implements the metaclip.Repository and
// metaclip.StatementExecutor interfaces on PostgreSQL.
package postgres

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metaclip/metaclip/pkg/metaclip"
	"github.com/metaclip/metaclip/pkg/metaclip/firewall"
)

// DBTX allows using either a connection pool or a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements item storage using PostgreSQL.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository from a connection pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var (
	_ metaclip.Repository        = (*Repository)(nil)
	_ metaclip.StatementExecutor = (*Repository)(nil)
)

// EnsureSchema creates the items table if it does not exist. Idempotent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			id      TEXT PRIMARY KEY,
			type    TEXT NOT NULL,
			name    TEXT NOT NULL,
			content BYTEA NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Item operations

func (r *Repository) CreateItem(ctx context.Context, item *metaclip.Item) error {
	content := item.Content
	if content == nil {
		content = []byte{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO items (id, type, name, content) VALUES ($1, $2, $3, $4)`,
		item.ID, string(item.Type), item.Name, content)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return metaclip.ErrDuplicateItem
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

func (r *Repository) GetItem(ctx context.Context, id string) (*metaclip.Item, error) {
	var item metaclip.Item
	var itemType string

	err := r.db.QueryRow(ctx,
		`SELECT id, type, name, content FROM items WHERE id = $1`, id).
		Scan(&item.ID, &itemType, &item.Name, &item.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, metaclip.ErrItemNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	item.Type = metaclip.ItemType(itemType)
	return &item, nil
}

func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return metaclip.ErrItemNotFound
	}
	return nil
}

func (r *Repository) ListItems(ctx context.Context) ([]*metaclip.Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, type, name, content FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*metaclip.Item
	for rows.Next() {
		var item metaclip.Item
		var itemType string
		if err := rows.Scan(&item.ID, &itemType, &item.Name, &item.Content); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Type = metaclip.ItemType(itemType)
		items = append(items, &item)
	}

	return items, rows.Err()
}

// Raw statement execution

// ExecSelect runs a firewall-accepted SELECT and returns its rows in result
// order, matching columns to entity fields by name.
func (r *Repository) ExecSelect(ctx context.Context, stmt string) ([]metaclip.QueryRow, error) {
	rows, err := r.db.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	result := make([]metaclip.QueryRow, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}

		var row metaclip.QueryRow
		for i, fd := range fields {
			if i >= len(vals) {
				break
			}
			switch strings.ToLower(fd.Name) {
			case "id":
				row.ID = asString(vals[i])
			case "type":
				row.Type = asString(vals[i])
			case "name":
				row.Name = asString(vals[i])
			case "content":
				row.Content = base64.StdEncoding.EncodeToString(asBytes(vals[i]))
			}
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// ExecMutation runs a firewall-accepted INSERT or DELETE with an id
// projection appended, so affected row ids come from the statement itself.
// Trailing separators and comments are stripped first; otherwise a statement
// ending in a line comment would swallow the projection.
func (r *Repository) ExecMutation(ctx context.Context, stmt string) ([]string, error) {
	rows, err := r.db.Query(ctx, firewall.Body(stmt)+" RETURNING id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asBytes(v any) []byte {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return t
	case string:
		return []byte(t)
	default:
		return []byte(fmt.Sprint(t))
	}
}
