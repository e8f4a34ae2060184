package license

import (
	"errors"
	"fmt"
	"strings"

	"clinic-controlplane/pkg/errutil"
)

var (
	ErrValidation        = errors.New("license: validation failed")
	ErrDuplicateEmail    = errors.New("license: customer email already registered")
	ErrDuplicateKey      = errors.New("license: license key already exists")
	ErrExhaustedKeyspace = errors.New("license: could not reserve a unique license key")
	ErrNotFound          = errors.New("license: not found")
	ErrStorage           = errors.New("license: storage failure")
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every offending field of a request at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a backend failure that is not one of the typed conflicts.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("license: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ToAPIError maps service errors onto the public error envelope.
// Unknown errors collapse into a generic internal error.
func ToAPIError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errutil.As(err); ok {
		return err
	}

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]errutil.Detail, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, errutil.Detail{Field: f.Field, Message: f.Reason})
		}
		return errutil.ValidationFailed("request validation failed", err, errutil.WithDetails(details...))
	case errors.Is(err, ErrValidation):
		return errutil.ValidationFailed(strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "), err)
	case errors.Is(err, ErrDuplicateEmail):
		return errutil.Conflict("a customer with this contact email already exists", err)
	case errors.Is(err, ErrDuplicateKey):
		return errutil.Conflict("license key collision, retry the request", err)
	case errors.Is(err, ErrExhaustedKeyspace):
		return errutil.Conflict("unable to allocate a unique license key", err)
	default:
		return errutil.Internal("internal error", err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, ErrExhaustedKeyspace):
		return "exhausted_keyspace"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
