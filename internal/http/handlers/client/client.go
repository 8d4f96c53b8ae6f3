// Package client contains all HTTP handlers for the Client resource.
//
// Each exported function is a factory: it receives the storage dependency
// once, at route registration, and returns the handler the router calls on
// every request.
//
//	router.HandleFunc("POST /clients/{$}", client.New(storage))
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/clients-api/internal/logger"
	"github.com/aanand-mishra/clients-api/internal/storage"
	"github.com/aanand-mishra/clients-api/internal/types"
	"github.com/aanand-mishra/clients-api/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// Messages returned verbatim in the "detail" field.
const (
	MsgDuplicateEmail = "Client with this email already exists."
	MsgInternal       = "internal server error"
)

// maxBodyBytes caps the request body size read by create and update.
const maxBodyBytes = 1 << 20

// NotFoundMessage is the detail returned when id matches no client.
func NotFoundMessage(id int64) string {
	return fmt.Sprintf("Client not found with id %d", id)
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /clients/
// Creates a new client from the JSON request body.
//
// Request body (JSON):
//
//	{ "name": "Test User", "email": "test@example.com" }
//
// Success response (200 OK), the stored record:
//
//	{ "id": 1, "name": "Test User", "email": "test@example.com", "created_at": "2024-01-02T15:04:05Z" }
//
// Error responses:
//
//	400 Bad Request           email already used by another client
//	422 Unprocessable Entity  empty body, malformed JSON, or failed validation
//	500 Internal              database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx)

		in, ok := decodeInput(w, r)
		if !ok {
			return
		}

		log.Info("creating a client", slog.String("email", in.Email))

		// The existence check gives the friendly 400; the unique index on
		// email catches any writer that slips in between check and insert.
		var created types.Client
		err := st.WithTx(ctx, func(tx storage.Storage) error {
			exists, err := tx.ClientExists(ctx, in.Email, 0)
			if err != nil {
				return err
			}
			if exists {
				return storage.ErrDuplicateEmail
			}

			created, err = tx.CreateClient(ctx, in)
			return err
		})
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateEmail) {
				response.WriteJSON(w, http.StatusBadRequest, response.Detail(MsgDuplicateEmail))
				return
			}
			writeInternal(w, log, "error creating client", err)
			return
		}

		log.Info("client created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusOK, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /clients/
// Returns a JSON array of all clients ordered by id, or [] when there are
// none.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Debug("getting all clients")

		clients, err := st.GetClients(r.Context())
		if err != nil {
			writeInternal(w, log, "error getting clients", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, clients)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /clients/{id}
//
// Error responses:
//
//	404 Not Found             no client with that id
//	422 Unprocessable Entity  id is not an integer
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		id, ok := parseID(w, r)
		if !ok {
			return
		}

		client, err := st.GetClientByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.Detail(NotFoundMessage(id)))
				return
			}
			writeInternal(w, log, "error getting client", err, slog.Int64("id", id))
			return
		}

		response.WriteJSON(w, http.StatusOK, client)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /clients/{id}
// Replaces name and email of an existing client. Keeping the client's own
// email is never a conflict.
//
// Error responses:
//
//	400 Bad Request           email belongs to a different client
//	404 Not Found             no client with that id
//	422 Unprocessable Entity  invalid id, empty body, or failed validation
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx)

		id, ok := parseID(w, r)
		if !ok {
			return
		}

		in, ok := decodeInput(w, r)
		if !ok {
			return
		}

		log.Info("updating a client", slog.Int64("id", id))

		var updated types.Client
		err := st.WithTx(ctx, func(tx storage.Storage) error {
			existing, err := tx.GetClientByID(ctx, id)
			if err != nil {
				return err
			}

			if existing.Email != in.Email {
				exists, err := tx.ClientExists(ctx, in.Email, id)
				if err != nil {
					return err
				}
				if exists {
					return storage.ErrDuplicateEmail
				}
			}

			updated, err = tx.UpdateClientByID(ctx, id, in)
			return err
		})
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				response.WriteJSON(w, http.StatusNotFound, response.Detail(NotFoundMessage(id)))
			case errors.Is(err, storage.ErrDuplicateEmail):
				response.WriteJSON(w, http.StatusBadRequest, response.Detail(MsgDuplicateEmail))
			default:
				writeInternal(w, log, "error updating client", err, slog.Int64("id", id))
			}
			return
		}

		log.Info("client updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /clients/{id}
// Permanently removes a client. Success is 204 No Content with no body.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		id, ok := parseID(w, r)
		if !ok {
			return
		}

		deleted, err := st.DeleteClientByID(r.Context(), id)
		if err != nil {
			writeInternal(w, log, "error deleting client", err, slog.Int64("id", id))
			return
		}
		if !deleted {
			response.WriteJSON(w, http.StatusNotFound, response.Detail(NotFoundMessage(id)))
			return
		}

		log.Info("client deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseID reads the {id} path segment. On failure it writes the 422 and
// returns false.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusUnprocessableEntity,
			response.Detail("invalid id: must be an integer"))
		return 0, false
	}
	return id, true
}

// decodeInput decodes, normalizes and validates the request body. On
// failure it writes the 422 and returns false.
func decodeInput(w http.ResponseWriter, r *http.Request) (types.ClientInput, bool) {
	var in types.ClientInput

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusUnprocessableEntity, response.Detail("request body is empty"))
		return in, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusUnprocessableEntity, response.GeneralError(err))
		return in, false
	}

	in.Normalize()

	if err := in.Validate(); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.WriteJSON(w, http.StatusUnprocessableEntity, response.ValidationError(verrs))
		} else {
			response.WriteJSON(w, http.StatusUnprocessableEntity, response.GeneralError(err))
		}
		return in, false
	}

	return in, true
}

// writeInternal logs err and answers 500 without leaking it to the caller.
func writeInternal(w http.ResponseWriter, log *slog.Logger, msg string, err error, attrs ...any) {
	log.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	response.WriteJSON(w, http.StatusInternalServerError, response.Detail(MsgInternal))
}
