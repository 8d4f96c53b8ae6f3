// Package types holds the shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, and fixtures can all import types without depending
// on each other.
package types

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Client is a stored client record as it is returned to API consumers.
//
// ID and CreatedAt are assigned by the storage layer when the record is
// created and never change afterwards.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientInput is the payload accepted by create and update.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  controls the key names read from the request body.
//
//  2. validate:"..." holds rules checked by go-playground/validator.
//     "required" means the field must be non-empty after Normalize; "max"
//     matches the column width of the PostgreSQL schema.
//
// id and created_at are read-only: they are accepted in the body so that a
// client can PUT back a record it received, but they are ignored.
type ClientInput struct {
	Name  string `json:"name"  validate:"required,max=255"`
	Email string `json:"email" validate:"required,max=255"`
}

// Normalize trims surrounding whitespace so "  " fails the required rule
// and " a@b.c" collides with "a@b.c".
func (in *ClientInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

// validate caches struct metadata, so a single instance serves every call.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name ("email") rather than the Go field
	// name ("Email") so error messages match what the caller sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks the validate:"..." rules on the input. A non-nil error is
// always a validator.ValidationErrors.
func (in ClientInput) Validate() error {
	return validate.Struct(in)
}
