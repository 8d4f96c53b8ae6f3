// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Storage interface using a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aanand-mishra/clients-api/internal/storage"
	"github.com/aanand-mishra/clients-api/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a unique
// constraint failure.
const uniqueViolation = "23505"

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements storage.Storage on top of pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
	q    dbtx
	tx   bool
}

var _ storage.Storage = (*Postgres)(nil)

// New connects to databaseURL, verifies the connection and applies pending
// migrations.
func New(ctx context.Context, databaseURL string) (*Postgres, error) {
	if err := ApplyMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("postgres.New: migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Postgres{pool: pool, q: pool}, nil
}

// Close releases the pool. No-op inside a transaction.
func (p *Postgres) Close() error {
	if !p.tx {
		p.pool.Close()
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if p.tx {
		return nil
	}
	return p.pool.Ping(ctx)
}

func (p *Postgres) WithTx(ctx context.Context, fn func(tx storage.Storage) error) error {
	if p.tx {
		return storage.ErrNestedTx
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("WithTx: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Postgres{pool: p.pool, q: tx, tx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("WithTx: commit: %w", err)
	}
	return nil
}

func (p *Postgres) CreateClient(ctx context.Context, in types.ClientInput) (types.Client, error) {
	query := `
		INSERT INTO clients (name, email)
		VALUES ($1, $2)
		RETURNING id, name, email, created_at
	`

	client, err := scanClient(p.q.QueryRow(ctx, query, in.Name, in.Email))
	if err != nil {
		if isUniqueViolation(err) {
			return types.Client{}, storage.ErrDuplicateEmail
		}
		return types.Client{}, fmt.Errorf("CreateClient: %w", err)
	}

	return client, nil
}

func (p *Postgres) GetClientByID(ctx context.Context, id int64) (types.Client, error) {
	query := `
		SELECT id, name, email, created_at
		FROM clients
		WHERE id = $1
	`

	client, err := scanClient(p.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Client{}, storage.ErrNotFound
		}
		return types.Client{}, fmt.Errorf("GetClientByID: %w", err)
	}

	return client, nil
}

func (p *Postgres) GetClients(ctx context.Context) ([]types.Client, error) {
	query := `
		SELECT id, name, email, created_at
		FROM clients
		ORDER BY id
	`

	rows, err := p.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("GetClients: query: %w", err)
	}
	defer rows.Close()

	clients := make([]types.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("GetClients: scan row: %w", err)
		}
		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetClients: rows iteration: %w", err)
	}

	return clients, nil
}

func (p *Postgres) UpdateClientByID(ctx context.Context, id int64, in types.ClientInput) (types.Client, error) {
	query := `
		UPDATE clients
		SET name = $1, email = $2
		WHERE id = $3
		RETURNING id, name, email, created_at
	`

	client, err := scanClient(p.q.QueryRow(ctx, query, in.Name, in.Email, id))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return types.Client{}, storage.ErrNotFound
		case isUniqueViolation(err):
			return types.Client{}, storage.ErrDuplicateEmail
		}
		return types.Client{}, fmt.Errorf("UpdateClientByID: %w", err)
	}

	return client, nil
}

func (p *Postgres) DeleteClientByID(ctx context.Context, id int64) (bool, error) {
	tag, err := p.q.Exec(ctx, "DELETE FROM clients WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("DeleteClientByID: exec: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) ClientExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool

	query := "SELECT EXISTS (SELECT 1 FROM clients WHERE email = $1 AND id <> $2)"
	if err := p.q.QueryRow(ctx, query, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ClientExists: scan: %w", err)
	}

	return exists, nil
}

func scanClient(row pgx.Row) (types.Client, error) {
	var client types.Client
	if err := row.Scan(&client.ID, &client.Name, &client.Email, &client.CreatedAt); err != nil {
		return types.Client{}, err
	}
	client.CreatedAt = client.CreatedAt.UTC()
	return client, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
