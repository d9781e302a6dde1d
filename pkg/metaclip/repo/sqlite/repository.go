// Package sqlite implements the metaclip.Repository and
// metaclip.StatementExecutor interfaces on SQLite.
//
// SQLite is the default metadata store: a single items table in a single
// database file. WAL mode keeps concurrent SELECTs from blocking each other
// while the engine serializes writers; single-statement atomicity comes from
// the engine, and no locking is layered on top of it.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/metaclip/metaclip/pkg/metaclip"
	"github.com/metaclip/metaclip/pkg/metaclip/firewall"
)

//go:embed schema.sql
var schemaSQL string

// Repository provides durable item storage backed by SQLite.
type Repository struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path, applying
// required pragmas and the schema. It is idempotent.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// applyPragmas sets required SQLite configuration: WAL for concurrent reads
// during writes, NORMAL sync, and a busy timeout for write contention.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

var (
	_ metaclip.Repository        = (*Repository)(nil)
	_ metaclip.StatementExecutor = (*Repository)(nil)
)

// Item operations

func (r *Repository) CreateItem(ctx context.Context, item *metaclip.Item) error {
	content := item.Content
	if content == nil {
		content = []byte{}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO items (id, type, name, content) VALUES (?, ?, ?, ?)`,
		item.ID, string(item.Type), item.Name, content)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return metaclip.ErrDuplicateItem
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

func (r *Repository) GetItem(ctx context.Context, id string) (*metaclip.Item, error) {
	var item metaclip.Item
	var itemType string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, type, name, content FROM items WHERE id = ?`, id).
		Scan(&item.ID, &itemType, &item.Name, &item.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, metaclip.ErrItemNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	item.Type = metaclip.ItemType(itemType)
	return &item, nil
}

func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return metaclip.ErrItemNotFound
	}

	return nil
}

func (r *Repository) ListItems(ctx context.Context) ([]*metaclip.Item, error) {
	rows, err := r.db.QueryContext(ctx,
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
// order. Columns are matched to the four entity fields by name; content is
// base64-encoded for transport.
func (r *Repository) ExecSelect(ctx context.Context, stmt string) ([]metaclip.QueryRow, error) {
	rows, err := r.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQueryRows(rows)
}

// ExecMutation runs a firewall-accepted INSERT or DELETE with an id
// projection appended, so the affected row ids come from the statement's own
// returned identifiers rather than a separate introspection pass. Trailing
// separators and comments are stripped first; otherwise a statement ending in
// a line comment would swallow the projection.
func (r *Repository) ExecMutation(ctx context.Context, stmt string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, firewall.Body(stmt)+" RETURNING id")
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
