// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite stores everything in a single file on disk (or in memory for
// tests). There is no separate server process, which makes it the default
// driver for local runs.
//
// Importing mattn/go-sqlite3 registers the "sqlite3" driver with
// database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aanand-mishra/clients-api/internal/storage"
	"github.com/aanand-mishra/clients-api/internal/types"

	"github.com/mattn/go-sqlite3"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// query code runs inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite is the concrete implementation of storage.Storage.
// Db is the connection pool; q is either Db itself or the transaction the
// value was scoped to by WithTx.
type SQLite struct {
	Db *sql.DB
	q  dbtx
	tx bool
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at storagePath, applies pending schema
// migrations, and returns a ready-to-use *SQLite.
//
// ":memory:" is accepted and gives every call to New a fresh database.
func New(storagePath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite allows a single writer. One connection also keeps an
	// in-memory database alive for as long as the pool is open.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: ping: %w", err)
	}

	s := &SQLite{Db: db, q: db}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: migrate: %w", err)
	}

	return s, nil
}

// Close releases the connection pool. It is a no-op on a transaction-scoped
// value; the outer pool stays open.
func (s *SQLite) Close() error {
	if s.tx {
		return nil
	}
	return s.Db.Close()
}

// Ping verifies the database connection is still alive. Inside a
// transaction the connection is already held, so there is nothing to check.
func (s *SQLite) Ping(ctx context.Context) error {
	if s.tx {
		return nil
	}
	return s.Db.PingContext(ctx)
}

// WithTx executes fn within a transaction, committing on success.
func (s *SQLite) WithTx(ctx context.Context, fn func(tx storage.Storage) error) error {
	if s.tx {
		return storage.ErrNestedTx
	}

	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WithTx: begin: %w", err)
	}
	// Rollback after Commit returns sql.ErrTxDone, which we ignore.
	defer func() { _ = tx.Rollback() }()

	if err := fn(&SQLite{Db: s.Db, q: tx, tx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("WithTx: commit: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateClient inserts a new row into the clients table.
//
// The ? placeholders are filled in by the driver, which sends values
// separately from the SQL text, so user input is never parsed as SQL.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateClient(ctx context.Context, in types.ClientInput) (types.Client, error) {
	createdAt := time.Now().UTC()

	result, err := s.q.ExecContext(ctx,
		"INSERT INTO clients (name, email, created_at) VALUES (?, ?, ?)",
		in.Name, in.Email, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Client{}, storage.ErrDuplicateEmail
		}
		return types.Client{}, fmt.Errorf("CreateClient: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Client{}, fmt.Errorf("CreateClient: last insert id: %w", err)
	}

	return types.Client{
		ID:        lastID,
		Name:      in.Name,
		Email:     in.Email,
		CreatedAt: createdAt,
	}, nil
}

// GetClientByID fetches exactly one client row matched by primary key.
// The order of the Scan targets must match the order of the SELECT columns.
func (s *SQLite) GetClientByID(ctx context.Context, id int64) (types.Client, error) {
	var client types.Client

	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM clients WHERE id = ? LIMIT 1", id,
	).Scan(&client.ID, &client.Name, &client.Email, &client.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Client{}, storage.ErrNotFound
		}
		return types.Client{}, fmt.Errorf("GetClientByID: scan: %w", err)
	}

	client.CreatedAt = client.CreatedAt.UTC()
	return client, nil
}

// GetClients returns all client rows ordered by id.
func (s *SQLite) GetClients(ctx context.Context) ([]types.Client, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, name, email, created_at FROM clients ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("GetClients: query: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty table encodes as [] rather than null.
	clients := make([]types.Client, 0)

	for rows.Next() {
		var client types.Client
		if err := rows.Scan(
			&client.ID,
			&client.Name,
			&client.Email,
			&client.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("GetClients: scan row: %w", err)
		}
		client.CreatedAt = client.CreatedAt.UTC()
		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetClients: rows iteration: %w", err)
	}

	return clients, nil
}

// UpdateClientByID replaces a client's name and email.
// Returns the updated client so the caller can echo it back.
func (s *SQLite) UpdateClientByID(ctx context.Context, id int64, in types.ClientInput) (types.Client, error) {
	result, err := s.q.ExecContext(ctx,
		"UPDATE clients SET name = ?, email = ? WHERE id = ?",
		in.Name, in.Email, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Client{}, storage.ErrDuplicateEmail
		}
		return types.Client{}, fmt.Errorf("UpdateClientByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.Client{}, fmt.Errorf("UpdateClientByID: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Client{}, storage.ErrNotFound
	}

	// Re-fetch so we return exactly what is stored, created_at included.
	return s.GetClientByID(ctx, id)
}

// DeleteClientByID removes a client row by primary key.
func (s *SQLite) DeleteClientByID(ctx context.Context, id int64) (bool, error) {
	result, err := s.q.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("DeleteClientByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteClientByID: rows affected: %w", err)
	}

	return affected > 0, nil
}

// ClientExists reports whether another client already uses email.
// Ids start at 1, so excludeID 0 excludes nothing.
func (s *SQLite) ClientExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool

	err := s.q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM clients WHERE email = ? AND id != ?)",
		email, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ClientExists: scan: %w", err)
	}

	return exists, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
