package docmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"time"
)

// Field kinds.
const (
	KindKeyword = "keyword"
	KindText    = "text"
	KindInteger = "integer"
	KindFloat   = "float"
	KindBoolean = "boolean"
	KindDate    = "date"
	KindObject  = "object"
)

var errRequired = errors.New("value required")

// Field describes how a payload value is mapped, encoded and validated.
type Field interface {
	Kind() string
	// Mapping renders the engine mapping of the field.
	Mapping() map[string]any
	// Serialize converts an application value into its engine form.
	Serialize(v any) (any, error)
	// Deserialize converts an engine value back into its application form.
	Deserialize(v any) (any, error)
	// Clean validates a value; empty values fail only on required fields.
	Clean(v any) error
	Required() bool
}

// FieldOption configures a built-in field.
type FieldOption func(*descriptor)

// Required marks the field as mandatory for validation.
func Required() FieldOption {
	return func(d *descriptor) { d.required = true }
}

// Multi makes the field hold a list; every element goes through the field codec.
func Multi() FieldOption {
	return func(d *descriptor) { d.multi = true }
}

// FieldParam adds an opaque mapping parameter such as analyzer or format.
func FieldParam(key string, value any) FieldOption {
	return func(d *descriptor) { d.params[key] = value }
}

type codec func(any) (any, error)

// descriptor is the built-in Field implementation.
type descriptor struct {
	kind     string
	required bool
	multi    bool
	params   map[string]any

	serialize   codec
	deserialize codec
}

func newField(kind string, ser, deser codec, opts []FieldOption) *descriptor {
	d := &descriptor{kind: kind, params: map[string]any{}, serialize: ser, deserialize: deser}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Keyword is an exact-value string field.
func Keyword(opts ...FieldOption) Field {
	return newField(KindKeyword, toString, toString, opts)
}

// Text is a full-text string field.
func Text(opts ...FieldOption) Field {
	return newField(KindText, toString, toString, opts)
}

// Integer is a 64-bit integer field.
func Integer(opts ...FieldOption) Field {
	return newField(KindInteger, toInt64, toInt64, opts)
}

// Float is a 64-bit floating point field.
func Float(opts ...FieldOption) Field {
	return newField(KindFloat, toFloat64, toFloat64, opts)
}

// Boolean is a true/false field.
func Boolean(opts ...FieldOption) Field {
	return newField(KindBoolean, toBool, toBool, opts)
}

// Date stores time.Time values as RFC 3339 strings.
func Date(opts ...FieldOption) Field {
	return newField(KindDate, serializeDate, deserializeDate, opts)
}

// Object stores a nested map as is.
func Object(opts ...FieldOption) Field {
	return newField(KindObject, toObject, toObject, opts)
}

func (d *descriptor) Kind() string   { return d.kind }
func (d *descriptor) Required() bool { return d.required }

func (d *descriptor) Mapping() map[string]any {
	m := make(map[string]any, len(d.params)+1)
	maps.Copy(m, d.params)
	m["type"] = d.kind
	return m
}

func (d *descriptor) Serialize(v any) (any, error) {
	return d.apply(v, d.serialize)
}

func (d *descriptor) Deserialize(v any) (any, error) {
	return d.apply(v, d.deserialize)
}

func (d *descriptor) Clean(v any) error {
	if isEmpty(v) {
		if d.required {
			return errRequired
		}
		return nil
	}
	_, err := d.Serialize(v)
	return err
}

func (d *descriptor) apply(v any, fn codec) (any, error) {
	if v == nil {
		return nil, nil
	}
	if !d.multi {
		return fn(v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%s: expected a list, got %T", d.kind, v)
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		item, err := fn(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = item
	}
	return out, nil
}

// isEmpty reports nil, empty lists and empty maps. Zero scalars are values.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func toString(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return nil, fmt.Errorf("expected string, got %T", v)
	}
}

func toInt64(v any) (any, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", u)
		}
		return int64(u), nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

func floatToInt(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (any, error) {
	if n, ok := v.(json.Number); ok {
		return n.Float64()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	default:
		return nil, fmt.Errorf("expected number, got %T", v)
	}
}

func toBool(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func serializeDate(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", t, err)
		}
		return parsed.UTC().Format(time.RFC3339Nano), nil
	default:
		return nil, fmt.Errorf("expected time.Time, got %T", v)
	}
}

func deserializeDate(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", t, err)
		}
		return parsed.UTC(), nil
	default:
		return nil, fmt.Errorf("expected date string, got %T", v)
	}
}

func toObject(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected map[string]any, got %T", v)
	}
	return m, nil
}
