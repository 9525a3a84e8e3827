package docmap

import (
	"errors"

	"github.com/kailas-cloud/docmap/internal/engine"
)

// Sentinel errors. Use errors.Is() to check.
var (
	ErrConfiguration     = errors.New("docmap: configuration error")
	ErrValidation        = errors.New("docmap: validation error")
	ErrIllegalOperation  = errors.New("docmap: illegal operation")
	ErrInvalidSchema     = errors.New("docmap: invalid schema")
	ErrUnknownField      = errors.New("docmap: unknown field")
	ErrUnknownConnection = errors.New("docmap: unknown connection")
)

// Engine errors re-exported from the engine layer.
var (
	ErrRequest     = engine.ErrRequest
	ErrNotFound    = engine.ErrNotFound
	ErrConflict    = engine.ErrConflict
	ErrIndexExists = engine.ErrIndexExists
)

// ResponseError is an engine-reported error with an HTTP-like status.
// Batch mget failures carry the offending records in Info.
type ResponseError = engine.ResponseError
