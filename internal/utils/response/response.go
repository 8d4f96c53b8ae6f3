// Package response provides helpers for writing consistent JSON HTTP
// responses.
//
// Success responses may be any JSON shape (a client, a list of clients).
// Error responses always look like:
//
//	{ "detail": "Client not found with id 9999" }
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the error envelope.
type Response struct {
	Detail string `json:"detail"`
}

// WriteJSON writes data JSON-encoded with the given HTTP status code.
//
// Header() → WriteHeader() → body writes, in that order: once WriteHeader
// is called, headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Detail wraps a message that is safe to show to the caller.
func Detail(msg string) Response {
	return Response{Detail: msg}
}

// GeneralError wraps any Go error. Use it only for errors whose text is
// meant for the caller, such as JSON decode errors.
func GeneralError(err error) Response {
	return Response{Detail: err.Error()}
}

// ValidationError converts validator.FieldError values into a single
// human-readable message, joined with ", ".
//
//	{ "detail": "field name is required, field email is required" }
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "max":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must not exceed %s characters", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{Detail: strings.Join(errMessages, ", ")}
}
