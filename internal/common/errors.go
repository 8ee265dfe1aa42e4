package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound   = errors.New("requested resource not found")
	ErrBadRequest = errors.New("Invalid request payload")
	ErrConflict   = errors.New("resource conflict")
	ErrValidation = errors.New("validation failed")

	ErrAccountNotFound   = errors.New("Couldn't find user with this email")
	ErrBlocked           = errors.New("You are blocked and cannot access user account")
	ErrBadCredential     = errors.New("Wrong password")
	ErrDuplicateUsername = errors.New("User with same name already exists")
	ErrDuplicateEmail    = errors.New("User with this email already exists")
	ErrPasswordMismatch  = errors.New("Password did not match")
	ErrPartialFailure    = errors.New("bulk operation stopped before all accounts were updated")
)

// FieldError attaches the form field an error belongs to.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *FieldError) Unwrap() error { return e.Err }

// Required reports a missing form field as a validation error.
func Required(field, label string) error {
	return &FieldError{Field: field, Message: label + " is required", Err: ErrValidation}
}

// FieldOf returns the form field attached to err, or "" for form-level errors.
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}

// PartialFailureError reports a bulk operation that stopped on its first failing write.
// Accounts in Succeeded stay mutated.
type PartialFailureError struct {
	Action    string
	Succeeded []string
	Failed    string
	Skipped   []string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s stopped at %q after %d account(s) (%s): %v",
		e.Action, e.Failed, len(e.Succeeded), strings.Join(e.Succeeded, ", "), e.Err)
}

func (e *PartialFailureError) Unwrap() []error { return []error{ErrPartialFailure, e.Err} }

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	// A partial failure may wrap any store error; the report decides the status.
	if errors.Is(err, ErrPartialFailure) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrBadCredential) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrBlocked) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) || errors.Is(err, ErrPasswordMismatch) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == UniqueViolation {
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// publicErrors are the sentinels whose text is safe to show, most specific first.
var publicErrors = []error{
	ErrAccountNotFound, ErrBlocked, ErrBadCredential,
	ErrDuplicateUsername, ErrDuplicateEmail, ErrPasswordMismatch, ErrPartialFailure,
	ErrValidation, ErrNotFound, ErrBadRequest, ErrConflict,
}

// PublicMessage is the text shown to the user for err. Wrapping context is dropped and
// internal failures get a generic message.
func PublicMessage(err error) string {
	if HTTPStatusFromError(err) == http.StatusInternalServerError {
		return "Something went wrong. Please try again"
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrConflict.Error()
}

// UniqueViolation is the Postgres SQLSTATE for unique constraint violations.
const UniqueViolation = "23505"
