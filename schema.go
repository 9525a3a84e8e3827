package docmap

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DefaultDocType names the document type of a schema declared without one.
const DefaultDocType = "doc"

// MetaField is an opaque meta-field declaration rendered into the mapping
// under its `_`-prefixed name, e.g. `_routing: {required: true}`.
type MetaField struct {
	Params map[string]any
}

// Schema holds the field and meta-field declarations of a document type.
// It is built once by Define and not mutated afterwards.
type Schema struct {
	docType    string
	order      []string
	fields     map[string]Field
	metaFields map[string]MetaField
}

func newSchema(docType string) *Schema {
	if docType == "" {
		docType = DefaultDocType
	}
	return &Schema{
		docType:    docType,
		fields:     make(map[string]Field),
		metaFields: make(map[string]MetaField),
	}
}

// field registers a field; the last registration of a name wins, the
// position stays that of the first one.
func (s *Schema) field(name string, f Field) {
	if _, ok := s.fields[name]; !ok {
		s.order = append(s.order, name)
	}
	s.fields[name] = f
}

func (s *Schema) metaField(name string, params map[string]any) {
	s.metaFields[metaKey(name)] = MetaField{Params: maps.Clone(params)}
}

// update merges other into s. With updateOnly, names already present in s
// are kept.
func (s *Schema) update(other *Schema, updateOnly bool) {
	for _, name := range other.order {
		if _, ok := s.fields[name]; ok && updateOnly {
			continue
		}
		s.field(name, other.fields[name])
	}
	for name, mf := range other.metaFields {
		if _, ok := s.metaFields[name]; ok && updateOnly {
			continue
		}
		s.metaFields[name] = mf
	}
}

// validate rejects field names that collide with meta fields or with the
// reserved meta accessor names.
func (s *Schema) validate() error {
	for _, name := range s.order {
		if s.fields[name] == nil {
			return fmt.Errorf("%w: field %q has no descriptor", ErrInvalidSchema, name)
		}
		if _, ok := s.metaFields[name]; ok {
			return fmt.Errorf("%w: field %q collides with a meta field", ErrInvalidSchema, name)
		}
		if IsMetaAttr(name) {
			return fmt.Errorf("%w: field name %q is reserved for metadata", ErrInvalidSchema, name)
		}
	}
	return nil
}

// DocType returns the document type name.
func (s *Schema) DocType() string { return s.docType }

// Fields returns field names in declaration order.
func (s *Schema) Fields() []string { return slices.Clone(s.order) }

// Field returns the descriptor registered under name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// MetaFields returns the meta-field declarations keyed by `_`-prefixed name.
func (s *Schema) MetaFields() map[string]MetaField {
	return maps.Clone(s.metaFields)
}

// Mapping renders the engine mapping of the document type.
func (s *Schema) Mapping() map[string]any {
	props := make(map[string]any, len(s.order))
	for _, name := range s.order {
		props[name] = s.fields[name].Mapping()
	}
	m := map[string]any{"properties": props}
	for name, mf := range s.metaFields {
		params := maps.Clone(mf.Params)
		if params == nil {
			params = map[string]any{}
		}
		m[name] = params
	}
	return m
}

func metaKey(name string) string {
	if strings.HasPrefix(name, "_") {
		return name
	}
	return "_" + name
}
