// Package router wires every HTTP route to its handler and applies the
// global middleware chain.
//
// Route table:
//
//	POST   /clients/       create a client
//	GET    /clients/       list all clients
//	GET    /clients/{id}   get one client
//	PUT    /clients/{id}   update a client
//	DELETE /clients/{id}   delete a client
//	GET    /livez          liveness probe
//	GET    /readyz         readiness probe
//
// The collection routes also answer without the trailing slash.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/clients-api/internal/http/handlers/client"
	"github.com/aanand-mishra/clients-api/internal/http/handlers/health"
	"github.com/aanand-mishra/clients-api/internal/http/middleware"
	"github.com/aanand-mishra/clients-api/internal/storage"
)

// Options carries the values the routes need besides storage.
type Options struct {
	Version string
	Logger  *slog.Logger

	// RequestsPerMinute and Burst configure the per-IP limit on /clients
	// routes. Zero disables limiting.
	RequestsPerMinute int
	Burst             int
}

// New returns the root handler serving every route.
func New(st storage.Storage, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	limit := middleware.RateLimit(opts.RequestsPerMinute, opts.Burst)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Chain(h, limit))
	}

	create := client.New(st)
	list := client.GetList(st)

	handle("POST /clients", create)
	handle("POST /clients/{$}", create)
	handle("GET /clients", list)
	handle("GET /clients/{$}", list)
	handle("GET /clients/{id}", client.GetByID(st))
	handle("PUT /clients/{id}", client.Update(st))
	handle("DELETE /clients/{id}", client.Delete(st))

	startTime := time.Now()
	mux.HandleFunc("GET /livez", health.Livez(startTime, opts.Version))
	mux.HandleFunc("GET /readyz", health.Readyz(startTime, opts.Version, st))

	return middleware.Chain(mux, middleware.Logging(opts.Logger))
}
