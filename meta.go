package docmap

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// DocMetaFields are the meta keys sent with every write as request parameters.
var DocMetaFields = []string{"id", "parent", "routing", "timestamp", "ttl", "version", "version_type"}

// MetaFields are DocMetaFields plus the keys engines report back.
var MetaFields = append(slices.Clone(DocMetaFields),
	"index", "doc_type", "using", "score", "result", "seq_no", "primary_term")

var (
	docMetaSet = toSet(DocMetaFields)
	metaSet    = toSet(MetaFields)
)

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// IsDocMetaField reports whether name is one of DocMetaFields.
func IsDocMetaField(name string) bool { return docMetaSet[name] }

// IsMetaField reports whether name is one of MetaFields.
func IsMetaField(name string) bool { return metaSet[name] }

// IsMetaAttr reports whether an attribute name addresses metadata:
// "_" followed by one of MetaFields, e.g. "_id" or "_routing".
func IsMetaAttr(name string) bool {
	rest, ok := strings.CutPrefix(name, "_")
	return ok && metaSet[rest]
}

// Meta holds the out-of-band attributes of a document instance.
type Meta struct {
	values map[string]any
}

func newMeta() *Meta {
	return &Meta{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (m *Meta) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores a value under key.
func (m *Meta) Set(key string, v any) { m.values[key] = v }

// Has reports whether key is present.
func (m *Meta) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Delete removes key.
func (m *Meta) Delete(key string) { delete(m.values, key) }

// Keys returns the present keys in sorted order.
func (m *Meta) Keys() []string {
	return slices.Sorted(maps.Keys(m.values))
}

// ID returns the document id, empty when unset.
func (m *Meta) ID() string { return m.str("id") }

// Index returns the index the document was read from or written to.
func (m *Meta) Index() string { return m.str("index") }

// DocType returns the engine doc type of the last response.
func (m *Meta) DocType() string { return m.str("doc_type") }

// Routing returns the routing value, empty when unset.
func (m *Meta) Routing() string { return m.str("routing") }

// Result returns the result of the last write: created, updated, noop or deleted.
func (m *Meta) Result() string { return m.str("result") }

// Version returns the document version, 0 when unknown.
func (m *Meta) Version() int64 {
	switch v := m.values["version"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func (m *Meta) str(key string) string {
	v, ok := m.values[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// docParams extracts the DocMetaFields present as write parameters.
func (m *Meta) docParams() map[string]any {
	out := make(map[string]any)
	for k, v := range m.values {
		if docMetaSet[k] {
			out[k] = v
		}
	}
	return out
}

// absorb copies every MetaFields entry of an engine record, keyed with or
// without the leading underscore; `_type` becomes doc_type.
func (m *Meta) absorb(rec map[string]any) {
	for k, v := range rec {
		name := strings.TrimPrefix(k, "_")
		if name == "type" {
			name = "doc_type"
		}
		if metaSet[name] {
			m.values[name] = v
		}
	}
}
