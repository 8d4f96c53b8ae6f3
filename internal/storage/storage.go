// Package storage defines the Storage interface, the contract any database
// backend must satisfy to serve the clients API.
//
// Handlers depend only on this interface, so the SQLite and PostgreSQL
// drivers are interchangeable and tests can run against an in-memory
// SQLite database.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/clients-api/internal/types"
)

var (
	// ErrNotFound is returned when no client matches the given id.
	ErrNotFound = errors.New("storage: client not found")

	// ErrDuplicateEmail is returned when a write would leave two clients
	// with the same email. Drivers map their unique-constraint violation
	// onto it.
	ErrDuplicateEmail = errors.New("storage: email already exists")
)

// Storage is the database contract.
// Every method takes the request context; it bounds the lifetime of the
// work done on behalf of that request.
type Storage interface {
	// CreateClient inserts a new client and returns the stored record with
	// its generated id and created_at.
	CreateClient(ctx context.Context, in types.ClientInput) (types.Client, error)

	// GetClientByID fetches a single client. Returns ErrNotFound if absent.
	GetClientByID(ctx context.Context, id int64) (types.Client, error)

	// GetClients returns every client ordered by id.
	// Returns an empty slice (not nil) if there are none.
	GetClients(ctx context.Context) ([]types.Client, error)

	// UpdateClientByID overwrites name and email of an existing client and
	// returns the updated record. id and created_at are never touched.
	UpdateClientByID(ctx context.Context, id int64, in types.ClientInput) (types.Client, error)

	// DeleteClientByID removes a client permanently and reports whether a
	// row was actually deleted.
	DeleteClientByID(ctx context.Context, id int64) (bool, error)

	// ClientExists reports whether a client with the given email exists.
	// A non-zero excludeID ignores that client, which lets an update keep
	// its own email.
	ClientExists(ctx context.Context, email string, excludeID int64) (bool, error)

	// WithTx runs fn against a transaction-scoped Storage. The transaction
	// commits if fn returns nil and rolls back otherwise. Calling WithTx on
	// the Storage passed to fn is an error.
	WithTx(ctx context.Context, fn func(tx Storage) error) error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close() error
}

// ErrNestedTx is returned by WithTx when called inside a transaction.
var ErrNestedTx = errors.New("storage: nested transactions are not supported")
