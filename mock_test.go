package docmap

import (
	"context"
	"testing"
)

// --- recording engine ---

type engineCall struct {
	op      string
	index   string
	docType string
	id      string
	body    map[string]any
	docs    []map[string]any
	params  Params
}

type fakeEngine struct {
	calls []engineCall

	getFn         func(index, docType, id string, params Params) (Record, error)
	mgetFn        func(index, docType string, docs []map[string]any, params Params) ([]Record, error)
	indexFn       func(index, docType string, body map[string]any, params Params) (Record, error)
	updateFn      func(index, docType string, body map[string]any, params Params) (Record, error)
	deleteFn      func(index, docType string, params Params) (Record, error)
	createIndexFn func(index string, body map[string]any) error
	searchFn      func(req *SearchRequest) (*SearchResponse, error)

	closed int
}

func (f *fakeEngine) record(c engineCall) { f.calls = append(f.calls, c) }

func (f *fakeEngine) Ping(_ context.Context) error { return nil }
func (f *fakeEngine) Close()                       { f.closed++ }

func (f *fakeEngine) Get(_ context.Context, index, docType, id string, params Params) (Record, error) {
	f.record(engineCall{op: "get", index: index, docType: docType, id: id, params: params})
	if f.getFn == nil {
		return Record{"_id": id, "found": false}, nil
	}
	return f.getFn(index, docType, id, params)
}

func (f *fakeEngine) MGet(
	_ context.Context, index, docType string, docs []map[string]any, params Params,
) ([]Record, error) {
	f.record(engineCall{op: "mget", index: index, docType: docType, docs: docs, params: params})
	if f.mgetFn == nil {
		return nil, nil
	}
	return f.mgetFn(index, docType, docs, params)
}

func (f *fakeEngine) Index(
	_ context.Context, index, docType string, body map[string]any, params Params,
) (Record, error) {
	f.record(engineCall{op: "index", index: index, docType: docType, body: body, params: params})
	if f.indexFn == nil {
		return Record{"result": "created"}, nil
	}
	return f.indexFn(index, docType, body, params)
}

func (f *fakeEngine) Update(
	_ context.Context, index, docType string, body map[string]any, params Params,
) (Record, error) {
	f.record(engineCall{op: "update", index: index, docType: docType, body: body, params: params})
	if f.updateFn == nil {
		return Record{"result": "updated"}, nil
	}
	return f.updateFn(index, docType, body, params)
}

func (f *fakeEngine) Delete(_ context.Context, index, docType string, params Params) (Record, error) {
	f.record(engineCall{op: "delete", index: index, docType: docType, params: params})
	if f.deleteFn == nil {
		return Record{"result": "deleted"}, nil
	}
	return f.deleteFn(index, docType, params)
}

func (f *fakeEngine) CreateIndex(_ context.Context, index string, body map[string]any, _ Params) error {
	f.record(engineCall{op: "create_index", index: index, body: body})
	if f.createIndexFn == nil {
		return nil
	}
	return f.createIndexFn(index, body)
}

func (f *fakeEngine) Search(_ context.Context, req *SearchRequest) (*SearchResponse, error) {
	f.record(engineCall{op: "search", index: req.Index, docType: req.DocType})
	if f.searchFn == nil {
		return &SearchResponse{}, nil
	}
	return f.searchFn(req)
}

// useEngine registers e under alias for the duration of the test.
func useEngine(t *testing.T, alias string, e Engine) {
	t.Helper()
	AddConnection(alias, e)
	t.Cleanup(func() { _ = RemoveConnection(alias) })
}

func newFake(t *testing.T) *fakeEngine {
	t.Helper()
	f := &fakeEngine{}
	useEngine(t, DefaultUsing, f)
	return f
}

func expectNoCalls(t *testing.T, f *fakeEngine) {
	t.Helper()
	if len(f.calls) != 0 {
		t.Fatalf("expected no engine calls, got %d (first: %s)", len(f.calls), f.calls[0].op)
	}
}

// --- shared types ---

func blogPost(t *testing.T) *DocType {
	t.Helper()
	dt, err := Define("Post",
		WithDocType("post"),
		WithField("title", Text(Required())),
		WithField("tags", Keyword(Multi())),
		WithField("views", Integer()),
		WithField("extra", Object()),
		WithIndex(IndexConfig{Name: "blog"}),
	)
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	return dt
}
