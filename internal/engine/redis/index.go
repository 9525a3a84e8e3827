package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docmap/internal/engine"
)

// CreateIndex stores the index body (SET NX) and creates an FT index over the
// index's JSON documents for every searchable field of every mapped type.
func (s *Store) CreateIndex(ctx context.Context, index string, body map[string]any, _ engine.Params) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal index body: %w", err)
	}

	cmd := s.b().Set().Key(s.indexKey(index)).Value(string(data)).Nx().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return engine.ErrIndexExists
		}
		return &engine.Error{Op: engine.OpCreateIndex, Err: err}
	}

	normalized, err := engine.Normalize(body)
	if err != nil {
		return err
	}
	s.mappings.Store(index, normalized)

	args := buildCreateArgs(s.searchIndex(index), s.prefix+index+":", normalized)
	if args == nil {
		return nil
	}
	ft := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, ft).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &engine.Error{Op: engine.OpCreateIndex, Err: err}
	}
	return nil
}

// routingRequired consults the (cached) index body. An index that was never
// created has no routing requirement.
func (s *Store) routingRequired(ctx context.Context, index, docType string) (bool, error) {
	if body, ok := s.mappings.Load(index); ok {
		m, _ := body.(map[string]any)
		return engine.RoutingRequired(m, docType), nil
	}

	cmd := s.b().Get().Key(s.indexKey(index)).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, &engine.Error{Op: engine.OpGet, Err: err}
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return false, fmt.Errorf("unmarshal index body %s: %w", index, err)
	}
	s.mappings.Store(index, body)
	return engine.RoutingRequired(body, docType), nil
}

// buildCreateArgs renders FT.CREATE arguments for the mapped properties, or
// nil when nothing is searchable.
func buildCreateArgs(name, keyPrefix string, body map[string]any) []string {
	mappings, _ := body["mappings"].(map[string]any)

	types := make([]string, 0, len(mappings))
	for t := range mappings {
		types = append(types, t)
	}
	sort.Strings(types)

	seen := make(map[string]bool)
	var schema []string
	for _, t := range types {
		typeMapping, _ := mappings[t].(map[string]any)
		props, _ := typeMapping["properties"].(map[string]any)
		names := make([]string, 0, len(props))
		for n := range props {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			prop, _ := props[n].(map[string]any)
			kind, _ := prop["type"].(string)
			ftType := searchFieldType(kind)
			if ftType == "" || seen[n] {
				continue
			}
			seen[n] = true
			schema = append(schema, "$._source."+n, "AS", n, ftType)
		}
	}
	if len(schema) == 0 {
		return nil
	}

	args := []string{name, "ON", "JSON", "PREFIX", "1", keyPrefix, "SCHEMA"}
	return append(args, schema...)
}

func searchFieldType(kind string) string {
	switch kind {
	case "text":
		return "TEXT"
	case "keyword", "boolean":
		return "TAG"
	case "integer", "long", "short", "byte", "float", "double":
		return "NUMERIC"
	default:
		return ""
	}
}
