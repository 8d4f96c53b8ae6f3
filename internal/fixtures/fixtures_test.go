package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aanand-mishra/clients-api/internal/storage/sqlite"
	"github.com/aanand-mishra/clients-api/internal/types"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeFile(t, `[
			{"name": " Ada Lovelace ", "email": "ada@example.com"},
			{"name": "Grace Hopper", "email": "grace@example.com"}
		]`)

		clients, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, []types.ClientInput{
			{Name: "Ada Lovelace", Email: "ada@example.com"},
			{Name: "Grace Hopper", Email: "grace@example.com"},
		}, clients)
	})

	t.Run("bundled dev fixtures", func(t *testing.T) {
		clients, err := Load("../../config/fixtures.json")
		require.NoError(t, err)
		require.NotEmpty(t, clients)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Load(writeFile(t, `{"name": "not an array"}`))
		require.Error(t, err)
	})

	t.Run("invalid entry", func(t *testing.T) {
		_, err := Load(writeFile(t, `[{"name": "A", "email": "a@example.com"}, {"name": ""}]`))
		require.ErrorContains(t, err, "fixture 1")
	})

	t.Run("repeated email", func(t *testing.T) {
		_, err := Load(writeFile(t, `[
			{"name": "A", "email": "a@example.com"},
			{"name": "B", "email": "a@example.com"}
		]`))
		require.ErrorContains(t, err, "repeats fixture 0")
	})
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.CreateClient(ctx, types.ClientInput{Name: "Existing", Email: "grace@example.com"})
	require.NoError(t, err)

	clients := []types.ClientInput{
		{Name: "Ada Lovelace", Email: "ada@example.com"},
		{Name: "Grace Hopper", Email: "grace@example.com"},
	}

	n, err := Seed(ctx, st, clients)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = Seed(ctx, st, clients)
	require.NoError(t, err)
	require.Zero(t, n)

	all, err := st.GetClients(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Existing", all[0].Name)
}
