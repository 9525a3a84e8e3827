package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// Result values reported by write operations.
const (
	ResultCreated  = "created"
	ResultUpdated  = "updated"
	ResultNoop     = "noop"
	ResultDeleted  = "deleted"
	ResultNotFound = "not_found"
)

// StoredDoc is the envelope a backend persists for every document.
type StoredDoc struct {
	Version int64          `json:"_version"`
	Routing string         `json:"_routing,omitempty"`
	Parent  string         `json:"_parent,omitempty"`
	Source  map[string]any `json:"_source"`
}

// Target addresses a single document.
type Target struct {
	Index   string
	DocType string
	ID      string
}

// WriteResult is the outcome of applying a write to the current stored state.
// Next is nil when the document must be removed.
type WriteResult struct {
	Next     *StoredDoc
	Write    bool
	Response Record
}

// ParamString returns params[key] rendered as a string.
func ParamString(params Params, key string) (string, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// ParamVersion returns the expected version carried by params, if any.
func ParamVersion(params Params) (int64, bool, error) {
	raw, ok := ParamString(params, "version")
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, &ResponseError{
			Status:  http.StatusBadRequest,
			Type:    "illegal_argument_exception",
			Message: fmt.Sprintf("invalid version %q", raw),
		}
	}
	return v, true, nil
}

// ResolveID returns the id carried by params or a freshly generated one.
func ResolveID(params Params) string {
	if id, ok := ParamString(params, "id"); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// RoutingRequired reports whether the mapping of docType in an index body
// declares `_routing: {required: true}`.
func RoutingRequired(indexBody map[string]any, docType string) bool {
	mappings, _ := indexBody["mappings"].(map[string]any)
	typeMapping, _ := mappings[docType].(map[string]any)
	routing, _ := typeMapping["_routing"].(map[string]any)
	required, _ := routing["required"].(bool)
	return required
}

// CheckRouting fails when routing is required but absent from params.
func CheckRouting(required bool, t Target, params Params) error {
	if !required {
		return nil
	}
	if _, ok := ParamString(params, "routing"); ok {
		return nil
	}
	return NewRoutingMissing(t.Index, t.DocType, t.ID)
}

// SpecTarget addresses an mget doc spec; `_index` and `_type` in the spec
// override the request defaults.
func SpecTarget(index, docType string, spec map[string]any) Target {
	t := Target{Index: index, DocType: docType}
	if v, ok := ParamString(spec, "_index"); ok {
		t.Index = v
	}
	if v, ok := ParamString(spec, "_type"); ok {
		t.DocType = v
	}
	t.ID, _ = ParamString(spec, "_id")
	return t
}

// SpecParams merges the per-doc routing of an mget spec over request params.
func SpecParams(spec map[string]any, params Params) Params {
	out := make(Params, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	for _, key := range []string{"routing", "_routing"} {
		if v, ok := spec[key]; ok {
			out["routing"] = v
		}
	}
	return out
}

// FoundRecord renders a stored document the way get/mget report it.
func FoundRecord(t Target, doc *StoredDoc) Record {
	r := Record{
		"_index":   t.Index,
		"_type":    t.DocType,
		"_id":      t.ID,
		"_version": doc.Version,
		"found":    true,
		"_source":  doc.Source,
	}
	if doc.Routing != "" {
		r["_routing"] = doc.Routing
	}
	if doc.Parent != "" {
		r["_parent"] = doc.Parent
	}
	return r
}

// MissingRecord renders the not-found marker.
func MissingRecord(t Target) Record {
	return Record{"_index": t.Index, "_type": t.DocType, "_id": t.ID, "found": false}
}

// ErrorRecord renders a per-document failure inside an mget response.
func ErrorRecord(t Target, err *ResponseError) Record {
	return Record{"_index": t.Index, "_type": t.DocType, "_id": t.ID, "error": err.ErrorBody()}
}

func writeRecord(t Target, version int64, result string) Record {
	return Record{
		"_index":   t.Index,
		"_type":    t.DocType,
		"_id":      t.ID,
		"_version": version,
		"result":   result,
	}
}

func checkVersion(t Target, current *StoredDoc, params Params) error {
	expected, ok, err := ParamVersion(params)
	if err != nil || !ok {
		return err
	}
	var have int64
	if current != nil {
		have = current.Version
	}
	if have != expected {
		return NewVersionConflict(t.ID, have, expected)
	}
	return nil
}

func nextEnvelope(current *StoredDoc, source map[string]any, params Params) *StoredDoc {
	next := &StoredDoc{Version: 1, Source: source}
	if current != nil {
		next.Version = current.Version + 1
		next.Routing = current.Routing
		next.Parent = current.Parent
	}
	if r, ok := ParamString(params, "routing"); ok {
		next.Routing = r
	}
	if p, ok := ParamString(params, "parent"); ok {
		next.Parent = p
	}
	return next
}

// ApplyIndex computes a full-document write over the current state (nil if absent).
func ApplyIndex(t Target, current *StoredDoc, body map[string]any, params Params) (*WriteResult, error) {
	if err := checkVersion(t, current, params); err != nil {
		return nil, err
	}
	source, err := Normalize(body)
	if err != nil {
		return nil, err
	}
	next := nextEnvelope(current, source, params)
	result := ResultCreated
	if current != nil {
		result = ResultUpdated
	}
	return &WriteResult{Next: next, Write: true, Response: writeRecord(t, next.Version, result)}, nil
}

// ApplyUpdate computes a partial update over the current state.
// The body carries doc, doc_as_upsert and detect_noop.
func ApplyUpdate(t Target, current *StoredDoc, body map[string]any, params Params) (*WriteResult, error) {
	doc, _ := body["doc"].(map[string]any)
	partial, err := Normalize(doc)
	if err != nil {
		return nil, err
	}
	if current == nil {
		if upsert, _ := body["doc_as_upsert"].(bool); !upsert {
			return nil, NewDocumentMissing(t.DocType, t.ID)
		}
		if err := checkVersion(t, nil, params); err != nil {
			return nil, err
		}
		next := nextEnvelope(nil, partial, params)
		return &WriteResult{Next: next, Write: true, Response: writeRecord(t, next.Version, ResultCreated)}, nil
	}
	if err := checkVersion(t, current, params); err != nil {
		return nil, err
	}

	merged := DeepMerge(current.Source, partial)
	if noop, _ := body["detect_noop"].(bool); noop && reflect.DeepEqual(merged, current.Source) {
		return &WriteResult{Next: current, Response: writeRecord(t, current.Version, ResultNoop)}, nil
	}
	next := nextEnvelope(current, merged, params)
	return &WriteResult{Next: next, Write: true, Response: writeRecord(t, next.Version, ResultUpdated)}, nil
}

// ApplyDelete computes a removal over the current state.
func ApplyDelete(t Target, current *StoredDoc, params Params) (*WriteResult, error) {
	if current == nil {
		return nil, &ResponseError{
			Status:  http.StatusNotFound,
			Type:    ResultNotFound,
			Message: fmt.Sprintf("[%s][%s]: document not found", t.DocType, t.ID),
			Info:    writeRecord(t, 1, ResultNotFound),
		}
	}
	if err := checkVersion(t, current, params); err != nil {
		return nil, err
	}
	return &WriteResult{Write: true, Response: writeRecord(t, current.Version+1, ResultDeleted)}, nil
}

// DeepMerge returns a copy of dst with src merged in; nested objects merge
// recursively, every other value in src replaces the one in dst.
func DeepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		sub, ok := v.(map[string]any)
		existing, exOK := out[k].(map[string]any)
		if ok && exOK {
			out[k] = DeepMerge(existing, sub)
			continue
		}
		out[k] = v
	}
	return out
}

// Normalize round-trips a document through JSON so that numbers, slices
// and nested objects compare equal to what a backend reads back.
func Normalize(doc map[string]any) (map[string]any, error) {
	if doc == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, &ResponseError{Status: http.StatusBadRequest, Type: "mapper_parsing_exception", Message: err.Error()}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	return out, nil
}
