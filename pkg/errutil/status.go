package errutil

import "net/http"

// CoreStatus is the transport independent error code rendered to clients.
type CoreStatus string

const (
	StatusBadRequest          CoreStatus = "bad_request"
	StatusValidationFailed    CoreStatus = "validation_failed"
	StatusConflict            CoreStatus = "conflict"
	StatusIdempotencyConflict CoreStatus = "idempotency_conflict"
	StatusInternal            CoreStatus = "internal"
)

// HTTPStatus maps the CoreStatus to the HTTP response code.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest, StatusValidationFailed:
		return http.StatusBadRequest
	case StatusConflict, StatusIdempotencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
