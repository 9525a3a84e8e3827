package docmap

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// DefaultUsing is the connection alias used when none is given.
const DefaultUsing = "default"

// DefaultIndex is bound to every type declared without an index of its own
// or an ancestor that has one. Its name is the match-all pattern.
var DefaultIndex = NewIndex("*", DefaultUsing)

// Analyzer is a custom analyzer rendered under settings.analysis.analyzer.
type Analyzer struct {
	Name       string
	Definition map[string]any
}

// Index describes an engine index: name pattern, connection alias, settings,
// aliases, analyzers and the document types stored in it.
type Index struct {
	name  string
	using string

	mu        sync.RWMutex
	settings  map[string]any
	aliases   map[string]any
	analyzers []Analyzer
	docs      []*DocType
}

// NewIndex creates an index descriptor. Empty name means "*", empty using
// means DefaultUsing.
func NewIndex(name, using string) *Index {
	if name == "" {
		name = "*"
	}
	if using == "" {
		using = DefaultUsing
	}
	return &Index{
		name:     name,
		using:    using,
		settings: make(map[string]any),
		aliases:  make(map[string]any),
	}
}

// Name returns the index name or pattern.
func (i *Index) Name() string { return i.name }

// Using returns the connection alias.
func (i *Index) Using() string { return i.using }

// Clone copies the index under a new name; empty name keeps the current one.
func (i *Index) Clone(name string) *Index {
	if name == "" {
		name = i.name
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return &Index{
		name:      name,
		using:     i.using,
		settings:  maps.Clone(i.settings),
		aliases:   maps.Clone(i.aliases),
		analyzers: slices.Clone(i.analyzers),
		docs:      slices.Clone(i.docs),
	}
}

// Settings merges index settings.
func (i *Index) Settings(kv map[string]any) *Index {
	i.mu.Lock()
	maps.Copy(i.settings, kv)
	i.mu.Unlock()
	return i
}

// Aliases merges index aliases.
func (i *Index) Aliases(kv map[string]any) *Index {
	i.mu.Lock()
	maps.Copy(i.aliases, kv)
	i.mu.Unlock()
	return i
}

// Analyzer registers a custom analyzer; a later one with the same name wins.
func (i *Index) Analyzer(a Analyzer) *Index {
	i.mu.Lock()
	defer i.mu.Unlock()
	for n, existing := range i.analyzers {
		if existing.Name == a.Name {
			i.analyzers[n] = a
			return i
		}
	}
	i.analyzers = append(i.analyzers, a)
	return i
}

// Document registers a document type stored in the index.
func (i *Index) Document(dt *DocType) *Index {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !slices.Contains(i.docs, dt) {
		i.docs = append(i.docs, dt)
	}
	return i
}

// Documents returns the registered document types.
func (i *Index) Documents() []*DocType {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.docs)
}

// Body renders the index creation body: settings (with analysis), aliases
// and one mapping per doc type. Types sharing a doc type are merged in
// registration order.
func (i *Index) Body() map[string]any {
	i.mu.RLock()
	defer i.mu.RUnlock()

	body := make(map[string]any)
	settings := maps.Clone(i.settings)
	if len(i.analyzers) > 0 {
		analyzers := make(map[string]any, len(i.analyzers))
		for _, a := range i.analyzers {
			analyzers[a.Name] = maps.Clone(a.Definition)
		}
		settings["analysis"] = map[string]any{"analyzer": analyzers}
	}
	if len(settings) > 0 {
		body["settings"] = settings
	}
	if len(i.aliases) > 0 {
		body["aliases"] = maps.Clone(i.aliases)
	}
	if len(i.docs) > 0 {
		mappings := make(map[string]any, len(i.docs))
		for _, dt := range i.docs {
			name := dt.schema.DocType()
			m := dt.schema.Mapping()
			if prev, ok := mappings[name].(map[string]any); ok {
				m = mergeMapping(prev, m)
			}
			mappings[name] = m
		}
		body["mappings"] = mappings
	}
	return body
}

// mergeMapping combines two mappings of the same doc type. Properties are
// unioned; for a property or meta key present in both, next wins.
func mergeMapping(prev, next map[string]any) map[string]any {
	out := maps.Clone(prev)
	for k, v := range next {
		if k != "properties" {
			out[k] = v
			continue
		}
		props, _ := prev["properties"].(map[string]any)
		merged := maps.Clone(props)
		if merged == nil {
			merged = map[string]any{}
		}
		maps.Copy(merged, v.(map[string]any))
		out[k] = merged
	}
	return out
}

// Save creates the index with its mappings through the connection using
// (empty means the index's own alias). An existing index yields ErrIndexExists.
func (i *Index) Save(ctx context.Context, using string) error {
	if strings.ContainsAny(i.name, "*?") {
		return fmt.Errorf("%w: cannot create wildcard index %q", ErrValidation, i.name)
	}
	if using == "" {
		using = i.using
	}
	conn, err := GetConnection(using)
	if err != nil {
		return err
	}
	return conn.CreateIndex(ctx, i.name, i.Body(), nil)
}
