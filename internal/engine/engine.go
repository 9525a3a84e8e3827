// Package engine defines the document-store collaborator consumed by docmap
// and the write semantics shared by its backends.
package engine

import "context"

// Record is a raw engine response or stored-document record
// (`_index`, `_type`, `_id`, `_version`, `found`, `_source`, `error`, ...).
type Record map[string]any

// Params carries per-request parameters passed through to the engine
// unchanged (id, routing, parent, version, refresh, ...).
type Params map[string]any

// Client is the engine facade. Consumers depend on narrow sub-interfaces.
//
//nolint:interfacebloat // composed of the narrow interfaces below
type Client interface {
	Pinger
	DocumentStore
	IndexManager
	Searcher
	Close()
}

// Pinger checks engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentStore provides single and multi document operations.
type DocumentStore interface {
	// Get returns the document record. A missing document is reported as a
	// record with found=false, not as an error.
	Get(ctx context.Context, index, docType, id string, params Params) (Record, error)
	// MGet returns one record per requested doc, in request order.
	MGet(ctx context.Context, index, docType string, docs []map[string]any, params Params) ([]Record, error)
	// Index creates or replaces a whole document.
	Index(ctx context.Context, index, docType string, body map[string]any, params Params) (Record, error)
	// Update applies a partial update body {doc, doc_as_upsert, detect_noop}.
	Update(ctx context.Context, index, docType string, body map[string]any, params Params) (Record, error)
	// Delete removes a document.
	Delete(ctx context.Context, index, docType string, params Params) (Record, error)
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	// CreateIndex creates the index with settings, aliases and mappings.
	CreateIndex(ctx context.Context, index string, body map[string]any, params Params) error
}

// Searcher runs raw queries against an index.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
}

// SearchRequest is the input of a raw search. Query is backend-specific and
// passed through unchanged; "*" matches every document.
type SearchRequest struct {
	Index   string
	DocType string
	Query   string
	From    int
	Size    int
}

// SearchResponse is the output of a search.
type SearchResponse struct {
	Total int
	Hits  []Record
}

// Op constants name engine operations for errors, logs and metrics.
const (
	OpGet         = "get"
	OpMGet        = "mget"
	OpIndex       = "index"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpCreateIndex = "create_index"
	OpSearch      = "search"
	OpPing        = "ping"
)
