package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aanand-mishra/clients-api/internal/storage"
	"github.com/aanand-mishra/clients-api/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestCreateClient(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	before := time.Now().UTC()
	client, err := s.CreateClient(ctx, types.ClientInput{Name: "Test User", Email: "test@example.com"})
	require.NoError(t, err)

	require.NotZero(t, client.ID)
	require.Equal(t, "Test User", client.Name)
	require.Equal(t, "test@example.com", client.Email)
	require.WithinDuration(t, before, client.CreatedAt, time.Minute)
}

func TestCreateClientRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateClient(ctx, types.ClientInput{Name: "First", Email: "dup@example.com"})
	require.NoError(t, err)

	// The unique index catches this even without a prior ClientExists check.
	_, err = s.CreateClient(ctx, types.ClientInput{Name: "Second", Email: "dup@example.com"})
	require.ErrorIs(t, err, storage.ErrDuplicateEmail)
}

func TestGetClientByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateClient(ctx, types.ClientInput{Name: "Test User", Email: "test@example.com"})
	require.NoError(t, err)

	fetched, err := s.GetClientByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, created.Name, fetched.Name)
	require.Equal(t, created.Email, fetched.Email)
	require.True(t, created.CreatedAt.Equal(fetched.CreatedAt))

	_, err = s.GetClientByID(ctx, 9999)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetClients(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	clients, err := s.GetClients(ctx)
	require.NoError(t, err)
	require.NotNil(t, clients)
	require.Empty(t, clients)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := s.CreateClient(ctx, types.ClientInput{Name: "User", Email: email})
		require.NoError(t, err)
	}

	clients, err = s.GetClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 3)
	require.Equal(t, "a@example.com", clients[0].Email)
	require.Equal(t, "c@example.com", clients[2].Email)
}

func TestUpdateClientByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateClient(ctx, types.ClientInput{Name: "Test User", Email: "test@example.com"})
	require.NoError(t, err)

	t.Run("overwrites name and email", func(t *testing.T) {
		updated, err := s.UpdateClientByID(ctx, created.ID,
			types.ClientInput{Name: "Updated User", Email: "updated@example.com"})
		require.NoError(t, err)
		require.Equal(t, created.ID, updated.ID)
		require.Equal(t, "Updated User", updated.Name)
		require.Equal(t, "updated@example.com", updated.Email)
		require.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	})

	t.Run("keeping the same email succeeds", func(t *testing.T) {
		updated, err := s.UpdateClientByID(ctx, created.ID,
			types.ClientInput{Name: "Renamed", Email: "updated@example.com"})
		require.NoError(t, err)
		require.Equal(t, "Renamed", updated.Name)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := s.UpdateClientByID(ctx, 9999, types.ClientInput{Name: "x", Email: "x@example.com"})
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("email of another client", func(t *testing.T) {
		_, err := s.CreateClient(ctx, types.ClientInput{Name: "Other", Email: "other@example.com"})
		require.NoError(t, err)

		_, err = s.UpdateClientByID(ctx, created.ID,
			types.ClientInput{Name: "Renamed", Email: "other@example.com"})
		require.ErrorIs(t, err, storage.ErrDuplicateEmail)
	})
}

func TestDeleteClientByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateClient(ctx, types.ClientInput{Name: "Test User", Email: "test@example.com"})
	require.NoError(t, err)

	deleted, err := s.DeleteClientByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = s.GetClientByID(ctx, created.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	deleted, err = s.DeleteClientByID(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestClientExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateClient(ctx, types.ClientInput{Name: "Test User", Email: "test@example.com"})
	require.NoError(t, err)

	exists, err := s.ClientExists(ctx, "test@example.com", 0)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.ClientExists(ctx, "nonexistent@example.com", 0)
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = s.ClientExists(ctx, "test@example.com", created.ID)
	require.NoError(t, err)
	require.False(t, exists, "a client never collides with itself")
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("commits on success", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx storage.Storage) error {
			_, err := tx.CreateClient(ctx, types.ClientInput{Name: "Tx", Email: "tx@example.com"})
			return err
		})
		require.NoError(t, err)

		exists, err := s.ClientExists(ctx, "tx@example.com", 0)
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx storage.Storage) error {
			if _, err := tx.CreateClient(ctx, types.ClientInput{Name: "Gone", Email: "gone@example.com"}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		exists, err := s.ClientExists(ctx, "gone@example.com", 0)
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("nested transactions are rejected", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx storage.Storage) error {
			return tx.WithTx(ctx, func(storage.Storage) error { return nil })
		})
		require.ErrorIs(t, err, storage.ErrNestedTx)
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.db")

	s, err := New(path)
	require.NoError(t, err)
	_, err = s.CreateClient(context.Background(), types.ClientInput{Name: "Kept", Email: "kept@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening re-runs ApplyMigrations against an up-to-date schema.
	s, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clients, err := s.GetClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 1)
}
