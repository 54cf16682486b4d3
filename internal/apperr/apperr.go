// Package apperr defines the error taxonomy shared by every component and its
// mapping onto HTTP status codes.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrRateLimited        = errors.New("rate limited")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrConflict           = errors.New("conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTimeout            = errors.New("timeout")
)

// ValidationError reports a rejected input field. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type AuthErrorKind int

const (
	AuthMalformed AuthErrorKind = iota
	AuthInvalidSignature
	AuthExpired
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthInvalidSignature:
		return "invalid_signature"
	case AuthExpired:
		return "expired"
	default:
		return "malformed"
	}
}

type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + e.Kind.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// StorageError wraps a failed storage call with the operation that issued it.
// It matches ErrTimeout when the request deadline caused the failure and
// ErrStorageUnavailable otherwise.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	deadline := errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, context.Canceled)
	switch target {
	case ErrTimeout:
		return deadline
	case ErrStorageUnavailable:
		return !deadline
	}
	return false
}

// Storage wraps err as a StorageError. Domain errors pass through untouched.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || isDomain(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func isDomain(err error) bool {
	var ve *ValidationError
	var ae *AuthError
	return errors.As(err, &ve) || errors.As(err, &ae) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrConflict)
}

// Retryable reports whether err is a transient storage failure. Deadline
// expiry is not retryable because the request budget is already spent.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

type ItemFailure struct {
	Index      int    `json:"index"`
	QuestionID string `json:"question_id"`
	Reason     string `json:"reason"`
}

// PartialFailure lists the items of a batch that were not applied. Items not
// listed were applied.
type PartialFailure struct {
	Items []ItemFailure
}

func (e *PartialFailure) Error() string {
	ids := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		ids = append(ids, it.QuestionID)
	}
	return fmt.Sprintf("%d item(s) failed: %s", len(e.Items), strings.Join(ids, ", "))
}

// Status maps err onto the HTTP status returned to clients.
func Status(err error) int {
	var ve *ValidationError
	var ae *AuthError
	var pf *PartialFailure
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &pf):
		return http.StatusMultiStatus
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
