package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for engine responses. Use errors.Is() to check.
var (
	ErrRequest     = errors.New("engine: bad request")
	ErrNotFound    = errors.New("engine: not found")
	ErrConflict    = errors.New("engine: conflict")
	ErrIndexExists = errors.New("engine: index already exists")
)

// Error wraps an underlying backend error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// ResponseError is an error reported by the engine with an HTTP-like status.
// Info carries the offending records or the raw error body.
type ResponseError struct {
	Status  int
	Type    string
	Message string
	Info    any
}

func (e *ResponseError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("engine: %d %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("engine: %d: %s", e.Status, e.Message)
}

// Unwrap maps the status onto the sentinel taxonomy.
func (e *ResponseError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return ErrRequest
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// ErrorBody renders the error the way it appears inside an mget record.
func (e *ResponseError) ErrorBody() map[string]any {
	return map[string]any{"type": e.Type, "reason": e.Message}
}

// NewRoutingMissing reports a request without the routing the mapping requires.
func NewRoutingMissing(index, docType, id string) *ResponseError {
	return &ResponseError{
		Status:  http.StatusBadRequest,
		Type:    "routing_missing_exception",
		Message: fmt.Sprintf("routing is required for [%s]/[%s]/[%s]", index, docType, id),
	}
}

// NewVersionConflict reports an optimistic concurrency failure.
func NewVersionConflict(id string, current, expected int64) *ResponseError {
	return &ResponseError{
		Status: http.StatusConflict,
		Type:   "version_conflict_engine_exception",
		Message: fmt.Sprintf("[%s]: version conflict, current version [%d] is different than the one provided [%d]",
			id, current, expected),
	}
}

// NewDocumentMissing reports an update of a document that does not exist.
func NewDocumentMissing(docType, id string) *ResponseError {
	return &ResponseError{
		Status:  http.StatusNotFound,
		Type:    "document_missing_exception",
		Message: fmt.Sprintf("[%s][%s]: document missing", docType, id),
	}
}

// NewIndexMissing reports an operation on an index that was never created.
func NewIndexMissing(index string) *ResponseError {
	return &ResponseError{
		Status:  http.StatusNotFound,
		Type:    "index_not_found_exception",
		Message: "no such index [" + index + "]",
	}
}
