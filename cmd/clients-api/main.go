// main is the entry point of the Clients API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (a .env file in the working
//     directory is read into the environment first)
//  2. Initialise the logger
//  3. Connect to the configured database and apply migrations
//  4. Seed fixtures when seed_path is set
//  5. Build the router and start the HTTP server in a separate goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close storage, exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/clients-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/clients-api
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aanand-mishra/clients-api/internal/config"
	"github.com/aanand-mishra/clients-api/internal/fixtures"
	"github.com/aanand-mishra/clients-api/internal/http/router"
	"github.com/aanand-mishra/clients-api/internal/logger"
	"github.com/aanand-mishra/clients-api/internal/storage"
	"github.com/aanand-mishra/clients-api/internal/storage/postgres"
	"github.com/aanand-mishra/clients-api/internal/storage/sqlite"
	_ "github.com/joho/godotenv/autoload"
)

const version = "1.0.0"

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := logger.New(logger.Config{
		Service: "clients-api",
		Version: version,
		Env:     cfg.Env,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})

	log.Info("starting clients-api",
		slog.String("storage_driver", cfg.StorageDriver),
	)

	ctx := logger.WithContext(context.Background(), log)

	// ── 3. Initialise Storage (Database) ──────────────────────────────────
	st, err := openStorage(ctx, cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storage initialised", slog.String("driver", cfg.StorageDriver))

	// ── 4. Seed Fixtures ──────────────────────────────────────────────────
	if cfg.SeedPath != "" {
		if err := seed(ctx, st, cfg.SeedPath); err != nil {
			log.Error("failed to seed fixtures",
				slog.String("path", cfg.SeedPath),
				slog.String("error", err.Error()))
			_ = st.Close()
			os.Exit(1)
		}
	}

	// ── 5. Create and Start the HTTP Server ───────────────────────────────
	server := &http.Server{
		Addr: cfg.HTTPServer.Addr,
		Handler: router.New(st, router.Options{
			Version:           version,
			Logger:            log,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		}),
		ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelError),

		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	exitCode := 0
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		exitCode = 1
	}

	if err := st.Close(); err != nil {
		log.Error("failed to close storage", slog.String("error", err.Error()))
		exitCode = 1
	}

	if exitCode == 0 {
		log.Info("server stopped gracefully")
	}
	os.Exit(exitCode)
}

// openStorage returns the backend selected by storage_driver. Both drivers
// apply pending migrations before returning.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		return sqlite.New(cfg.StoragePath)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func seed(ctx context.Context, st storage.Storage, path string) error {
	clients, err := fixtures.Load(path)
	if err != nil {
		return err
	}

	n, err := fixtures.Seed(ctx, st, clients)
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("fixtures seeded",
		slog.String("path", path),
		slog.Int("inserted", n),
		slog.Int("total", len(clients)),
	)
	return nil
}
