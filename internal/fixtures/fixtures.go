// Package fixtures loads client records from a JSON file and seeds them
// into storage. The file is a plain array:
//
//	[
//	  { "name": "Ada Lovelace", "email": "ada@example.com" },
//	  { "name": "Grace Hopper", "email": "grace@example.com" }
//	]
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aanand-mishra/clients-api/internal/logger"
	"github.com/aanand-mishra/clients-api/internal/storage"
	"github.com/aanand-mishra/clients-api/internal/types"
)

// Load reads and validates the fixtures file at path. Every entry is
// normalized; the first invalid entry fails the whole load.
func Load(path string) ([]types.ClientInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var clients []types.ClientInput
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}

	seen := make(map[string]int, len(clients))
	for i := range clients {
		clients[i].Normalize()
		if err := clients[i].Validate(); err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		if j, ok := seen[clients[i].Email]; ok {
			return nil, fmt.Errorf("fixture %d: email %q repeats fixture %d", i, clients[i].Email, j)
		}
		seen[clients[i].Email] = i
	}

	return clients, nil
}

// Seed inserts every client whose email is not stored yet and returns how
// many were inserted. Seeding the same fixtures twice inserts nothing the
// second time.
func Seed(ctx context.Context, st storage.Storage, clients []types.ClientInput) (int, error) {
	log := logger.FromContext(ctx)
	inserted := 0

	err := st.WithTx(ctx, func(tx storage.Storage) error {
		for _, in := range clients {
			exists, err := tx.ClientExists(ctx, in.Email, 0)
			if err != nil {
				return err
			}
			if exists {
				log.Debug("fixture already present", slog.String("email", in.Email))
				continue
			}

			if _, err := tx.CreateClient(ctx, in); err != nil {
				return fmt.Errorf("seed %s: %w", in.Email, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}
