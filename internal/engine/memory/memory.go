// Package memory implements an in-process engine with the same document
// semantics as the network backends.
package memory

import (
	"context"
	"errors"
	"net/http"
	"path"
	"sort"
	"sync"

	"github.com/kailas-cloud/docmap/internal/engine"
)

// Compile-time check: Store implements engine.Client.
var _ engine.Client = (*Store)(nil)

type docKey struct {
	index   string
	docType string
	id      string
}

var errClosed = errors.New("memory: store closed")

// Store keeps documents and index bodies in memory.
type Store struct {
	mu      sync.RWMutex
	indices map[string]map[string]any
	docs    map[docKey]*engine.StoredDoc
	closed  bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		indices: make(map[string]map[string]any),
		docs:    make(map[docKey]*engine.StoredDoc),
	}
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen(engine.OpPing)
}

// Close marks the store closed. Every later call fails; stored data is kept.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// CreateIndex stores the index body; an existing index is an error.
func (s *Store) CreateIndex(_ context.Context, index string, body map[string]any, _ engine.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(engine.OpCreateIndex); err != nil {
		return err
	}
	if _, ok := s.indices[index]; ok {
		return engine.ErrIndexExists
	}
	normalized, err := engine.Normalize(body)
	if err != nil {
		return err
	}
	s.indices[index] = normalized
	return nil
}

// Get returns a found record or the not-found marker.
func (s *Store) Get(_ context.Context, index, docType, id string, params engine.Params) (engine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(engine.OpGet); err != nil {
		return nil, err
	}
	t := engine.Target{Index: index, DocType: docType, ID: id}
	if err := engine.CheckRouting(s.routingRequired(index, docType), t, params); err != nil {
		return nil, err
	}
	return s.record(t), nil
}

// MGet resolves every requested doc in order. Per-doc routing failures are
// reported inside the record, not as an error.
func (s *Store) MGet(
	_ context.Context, index, docType string, docs []map[string]any, params engine.Params,
) ([]engine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(engine.OpMGet); err != nil {
		return nil, err
	}
	out := make([]engine.Record, 0, len(docs))
	for _, spec := range docs {
		t := engine.SpecTarget(index, docType, spec)
		if err := engine.CheckRouting(s.routingRequired(t.Index, t.DocType), t, engine.SpecParams(spec, params)); err != nil {
			re, _ := err.(*engine.ResponseError)
			out = append(out, engine.ErrorRecord(t, re))
			continue
		}
		out = append(out, s.record(t))
	}
	return out, nil
}

// Index creates or replaces a document.
func (s *Store) Index(
	_ context.Context, index, docType string, body map[string]any, params engine.Params,
) (engine.Record, error) {
	t := engine.Target{Index: index, DocType: docType, ID: engine.ResolveID(params)}
	return s.write(engine.OpIndex, t, params, func(current *engine.StoredDoc) (*engine.WriteResult, error) {
		return engine.ApplyIndex(t, current, body, params)
	})
}

// Update applies a partial update.
func (s *Store) Update(
	_ context.Context, index, docType string, body map[string]any, params engine.Params,
) (engine.Record, error) {
	id, _ := engine.ParamString(params, "id")
	t := engine.Target{Index: index, DocType: docType, ID: id}
	return s.write(engine.OpUpdate, t, params, func(current *engine.StoredDoc) (*engine.WriteResult, error) {
		return engine.ApplyUpdate(t, current, body, params)
	})
}

// Delete removes a document.
func (s *Store) Delete(_ context.Context, index, docType string, params engine.Params) (engine.Record, error) {
	id, _ := engine.ParamString(params, "id")
	t := engine.Target{Index: index, DocType: docType, ID: id}
	return s.write(engine.OpDelete, t, params, func(current *engine.StoredDoc) (*engine.WriteResult, error) {
		return engine.ApplyDelete(t, current, params)
	})
}

// Search supports the match-all query "*" only, ordered by id.
func (s *Store) Search(_ context.Context, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	if req.Query != "" && req.Query != "*" {
		return nil, &engine.ResponseError{
			Status:  http.StatusBadRequest,
			Type:    "query_shard_exception",
			Message: "memory engine supports only the match-all query",
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(engine.OpSearch); err != nil {
		return nil, err
	}

	var keys []docKey
	for k := range s.docs {
		if !matchIndex(req.Index, k.index) {
			continue
		}
		if req.DocType != "" && k.docType != req.DocType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].index != keys[j].index {
			return keys[i].index < keys[j].index
		}
		return keys[i].id < keys[j].id
	})

	resp := &engine.SearchResponse{Total: len(keys)}
	from := max(req.From, 0)
	size := req.Size
	if size <= 0 {
		size = 10
	}
	for i := from; i < len(keys) && i < from+size; i++ {
		k := keys[i]
		resp.Hits = append(resp.Hits, found(
			engine.Target{Index: k.index, DocType: k.docType, ID: k.id}, s.docs[k],
		))
	}
	return resp, nil
}

func (s *Store) write(
	op string, t engine.Target, params engine.Params,
	apply func(current *engine.StoredDoc) (*engine.WriteResult, error),
) (engine.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	if err := engine.CheckRouting(s.routingRequired(t.Index, t.DocType), t, params); err != nil {
		return nil, err
	}
	key := docKey{index: t.Index, docType: t.DocType, id: t.ID}
	res, err := apply(s.docs[key])
	if err != nil {
		return nil, err
	}
	if res.Write {
		if res.Next == nil {
			delete(s.docs, key)
		} else {
			s.docs[key] = res.Next
		}
	}
	// Writes to an unknown index create it implicitly.
	if _, ok := s.indices[t.Index]; !ok {
		s.indices[t.Index] = map[string]any{}
	}
	return res.Response, nil
}

// checkOpen must be called with mu held.
func (s *Store) checkOpen(op string) error {
	if s.closed {
		return &engine.Error{Op: op, Err: errClosed}
	}
	return nil
}

func (s *Store) record(t engine.Target) engine.Record {
	doc, ok := s.docs[docKey{index: t.Index, docType: t.DocType, id: t.ID}]
	if !ok {
		return engine.MissingRecord(t)
	}
	return found(t, doc)
}

// found renders a record over a copy of the stored source so callers never
// alias store state.
func found(t engine.Target, doc *engine.StoredDoc) engine.Record {
	cp := *doc
	cp.Source, _ = engine.Normalize(doc.Source)
	return engine.FoundRecord(t, &cp)
}

func (s *Store) routingRequired(index, docType string) bool {
	return engine.RoutingRequired(s.indices[index], docType)
}

// matchIndex matches an index name against a glob pattern.
func matchIndex(pattern, index string) bool {
	if pattern == "" {
		return true
	}
	ok, err := path.Match(pattern, index)
	return err == nil && ok
}
