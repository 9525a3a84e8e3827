package docmap

import (
	"errors"
	"fmt"
	"strings"
)

// Document is an instance of a DocType: payload values plus metadata.
type Document struct {
	dt   *DocType
	meta *Meta
	data map[string]any
}

// New creates a document. Keys of the form "_" + a meta field name (e.g.
// "_id", "_routing") go to metadata; every other key must be a schema field.
func (dt *DocType) New(values map[string]any) (*Document, error) {
	d := &Document{dt: dt, meta: newMeta(), data: make(map[string]any)}
	for k, v := range values {
		if err := d.SetAttr(k, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// FromRecord builds a document from an engine record. Every key other than
// `_source` becomes metadata with its leading underscore stripped (`_type` as
// doc_type, `found` kept as is); the source is decoded field by field and
// keys the schema does not declare are dropped.
func (dt *DocType) FromRecord(rec Record) (*Document, error) {
	d := &Document{dt: dt, meta: newMeta(), data: make(map[string]any)}
	for k, v := range rec {
		if k == "_source" {
			continue
		}
		name := strings.TrimPrefix(k, "_")
		if name == "type" {
			name = "doc_type"
		}
		d.meta.Set(name, v)
	}

	source, _ := rec["_source"].(map[string]any)
	for name, raw := range source {
		f, ok := dt.schema.Field(name)
		if !ok {
			continue
		}
		v, err := f.Deserialize(raw)
		if err != nil {
			return nil, fmt.Errorf("decode field %q: %w", name, err)
		}
		d.data[name] = v
	}
	return d, nil
}

// DocType returns the type the document belongs to.
func (d *Document) DocType() *DocType { return d.dt }

// Meta returns the metadata container.
func (d *Document) Meta() *Meta { return d.meta }

// Field returns a payload value.
func (d *Document) Field(name string) (any, bool) {
	v, ok := d.data[name]
	return v, ok
}

// SetField sets a payload value; the name must be declared in the schema.
func (d *Document) SetField(name string, v any) error {
	if _, ok := d.dt.schema.Field(name); !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, d.dt.name, name)
	}
	d.data[name] = v
	return nil
}

// Attr reads an attribute: meta attribute names ("_id", "_index", ...) read
// metadata, anything else reads the payload.
func (d *Document) Attr(name string) (any, bool) {
	if IsMetaAttr(name) {
		return d.meta.Get(name[1:])
	}
	return d.Field(name)
}

// SetAttr writes an attribute with the same routing as Attr.
func (d *Document) SetAttr(name string, v any) error {
	if IsMetaAttr(name) {
		d.meta.Set(name[1:], v)
		return nil
	}
	return d.SetField(name, v)
}

// String renders the type name with whichever of index, doc_type and id are
// present, e.g. Post(index="blog", doc_type="post", id="1").
func (d *Document) String() string {
	var parts []string
	for _, k := range []string{"index", "doc_type", "id"} {
		if v, ok := d.meta.Get(k); ok {
			parts = append(parts, fmt.Sprintf("%s=%q", k, fmt.Sprint(v)))
		}
	}
	return d.dt.name + "(" + strings.Join(parts, ", ") + ")"
}

// PayloadOption configures ToPayload.
type PayloadOption func(*payloadConfig)

type payloadConfig struct {
	includeMeta bool
	keepEmpty   bool
}

// IncludeMeta wraps the payload under `_source` next to the document meta
// fields, the resolved index and the doc type. `_index` is omitted when no
// index resolves; a wildcard index is an ErrValidation.
func IncludeMeta() PayloadOption {
	return func(c *payloadConfig) { c.includeMeta = true }
}

// KeepEmpty keeps nil, empty list and empty map values.
func KeepEmpty() PayloadOption {
	return func(c *payloadConfig) { c.keepEmpty = true }
}

// ToPayload serializes the payload in field declaration order. Empty values
// are skipped unless KeepEmpty is given.
func (d *Document) ToPayload(opts ...PayloadOption) (map[string]any, error) {
	var cfg payloadConfig
	for _, o := range opts {
		o(&cfg)
	}

	payload := make(map[string]any, len(d.data))
	for _, name := range d.dt.schema.order {
		v, ok := d.data[name]
		if !ok {
			continue
		}
		if !cfg.keepEmpty && isEmpty(v) {
			continue
		}
		out, err := d.dt.schema.fields[name].Serialize(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrValidation, name, err)
		}
		payload[name] = out
	}
	if !cfg.includeMeta {
		return payload, nil
	}

	out := make(map[string]any, len(DocMetaFields)+3)
	for k, v := range d.meta.docParams() {
		out["_"+k] = v
	}
	index, err := d.resolveIndex("")
	switch {
	case err == nil:
		out["_index"] = index
	case !errors.Is(err, errNoIndex):
		return nil, err
	}
	out["_type"] = d.dt.schema.DocType()
	out["_source"] = payload
	return out, nil
}

// FullClean validates every field: required fields must be present and
// non-empty, present values must serialize. All failures are reported.
func (d *Document) FullClean() error {
	var errs []error
	for _, name := range d.dt.schema.order {
		f := d.dt.schema.fields[name]
		v, ok := d.data[name]
		if !ok {
			if f.Required() {
				errs = append(errs, fmt.Errorf("field %q: %w", name, errRequired))
			}
			continue
		}
		if err := f.Clean(v); err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrValidation, errors.Join(errs...))
	}
	return nil
}

var errNoIndex = errors.New("no index")

// resolveIndex picks the explicit index, then the instance's own, then the
// bound index. Wildcard targets are rejected.
func (d *Document) resolveIndex(explicit string) (string, error) {
	index := explicit
	if index == "" {
		index = d.meta.Index()
	}
	if index == "" {
		index = d.dt.index.Name()
	}
	if index == "" {
		return "", fmt.Errorf("%w: %w", ErrValidation, errNoIndex)
	}
	if strings.Contains(index, "*") {
		return "", fmt.Errorf("%w: cannot write to wildcard index %q", ErrValidation, index)
	}
	return index, nil
}
