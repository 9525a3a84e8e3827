package docmap

import (
	"fmt"
	"maps"
	"path"
)

// IndexConfig declares the index a document type owns.
type IndexConfig struct {
	Name      string // default "*"
	Using     string // default DefaultUsing
	Settings  map[string]any
	Aliases   map[string]any
	Analyzers []Analyzer
}

// DocType is a declared document type: its schema and its index binding.
type DocType struct {
	name   string
	schema *Schema
	index  *Index
}

type namedField struct {
	name  string
	field Field
}

type namedMeta struct {
	name   string
	params map[string]any
}

type definition struct {
	docType    string
	fields     []namedField
	metaFields []namedMeta
	bases      []*DocType
	index      *IndexConfig
}

// DefineOption configures a document type declaration.
type DefineOption func(*definition)

// WithDocType sets the engine document type name (default DefaultDocType).
func WithDocType(name string) DefineOption {
	return func(d *definition) { d.docType = name }
}

// WithField declares a payload field.
func WithField(name string, f Field) DefineOption {
	return func(d *definition) { d.fields = append(d.fields, namedField{name: name, field: f}) }
}

// WithMetaField declares a meta field, e.g. WithMetaField("routing", map[string]any{"required": true}).
func WithMetaField(name string, params map[string]any) DefineOption {
	return func(d *definition) { d.metaFields = append(d.metaFields, namedMeta{name: name, params: params}) }
}

// Extends inherits fields, meta fields and the index binding of bases.
// Earlier bases take precedence over later ones.
func Extends(bases ...*DocType) DefineOption {
	return func(d *definition) { d.bases = append(d.bases, bases...) }
}

// WithIndex binds the type to an index of its own.
func WithIndex(cfg IndexConfig) DefineOption {
	return func(d *definition) {
		c := cfg
		d.index = &c
	}
}

// Define declares a document type. Fields are registered in order, then meta
// fields, then each base schema is merged without overriding what is
// already declared.
func Define(name string, opts ...DefineOption) (*DocType, error) {
	def := &definition{}
	for _, o := range opts {
		o(def)
	}

	schema := newSchema(def.docType)
	for _, f := range def.fields {
		schema.field(f.name, f.field)
	}
	for _, m := range def.metaFields {
		schema.metaField(m.name, m.params)
	}
	for _, base := range def.bases {
		if base == nil {
			return nil, fmt.Errorf("%w: %s extends a nil type", ErrInvalidSchema, name)
		}
		schema.update(base.schema, true)
	}
	if err := schema.validate(); err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}

	dt := &DocType{name: name, schema: schema}
	dt.index = bindIndex(dt, def)
	return dt, nil
}

// MustDefine is Define that panics on error, for package-level declarations.
func MustDefine(name string, opts ...DefineOption) *DocType {
	dt, err := Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return dt
}

// bindIndex builds the declared index, or inherits the first non-default
// index of the bases, or falls back to DefaultIndex. The type is registered
// on whichever index it ends up bound to.
func bindIndex(dt *DocType, def *definition) *Index {
	return resolveIndexBinding(def).Document(dt)
}

func resolveIndexBinding(def *definition) *Index {
	if cfg := def.index; cfg != nil {
		idx := NewIndex(cfg.Name, cfg.Using)
		if len(cfg.Settings) > 0 {
			idx.Settings(maps.Clone(cfg.Settings))
		}
		if len(cfg.Aliases) > 0 {
			idx.Aliases(maps.Clone(cfg.Aliases))
		}
		for _, a := range cfg.Analyzers {
			idx.Analyzer(a)
		}
		return idx
	}
	for _, base := range def.bases {
		if base.index != DefaultIndex {
			return base.index
		}
	}
	return DefaultIndex
}

// Name returns the declared type name.
func (dt *DocType) Name() string { return dt.name }

// Schema returns the type schema.
func (dt *DocType) Schema() *Schema { return dt.schema }

// Index returns the bound index.
func (dt *DocType) Index() *Index { return dt.index }

// Matches reports whether an engine record belongs to this type: its
// `_index` matches the bound index pattern and its `_type` the doc type.
func (dt *DocType) Matches(rec Record) bool {
	return dt.matches(dt.index.Name(), rec)
}

func (dt *DocType) matches(pattern string, rec Record) bool {
	index, _ := rec["_index"].(string)
	docType, _ := rec["_type"].(string)
	ok, err := path.Match(pattern, index)
	return err == nil && ok && docType == dt.schema.DocType()
}
