package docmap

import (
	"context"
)

// Search is a query handle bound to a document type. Builder methods return
// a copy, so a handle can be shared and refined.
type Search struct {
	dt    *DocType
	using string
	index string
	query string
	from  int
	size  int
}

// SearchResult holds the matching documents of one page.
type SearchResult struct {
	Total int
	Hits  []*Document
}

// Search creates a query handle over the type's index. Using and OnIndex
// override the connection and the index.
func (dt *DocType) Search(opts ...Option) *Search {
	cfg := newOpConfig(opts)
	return &Search{dt: dt, using: cfg.using, index: dt.readIndex(cfg.index), query: "*"}
}

// Query sets the raw engine query; "*" matches everything.
func (s *Search) Query(q string) *Search {
	c := *s
	c.query = q
	return &c
}

// From sets the offset of the first hit.
func (s *Search) From(n int) *Search {
	c := *s
	c.from = n
	return &c
}

// Size sets the page size (engine default when 0).
func (s *Search) Size(n int) *Search {
	c := *s
	c.size = n
	return &c
}

// Execute runs the query. Hits outside the searched index pattern or of
// another doc type are skipped.
func (s *Search) Execute(ctx context.Context) (*SearchResult, error) {
	conn, err := s.dt.connection(s.using)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Search(ctx, &SearchRequest{
		Index:   s.index,
		DocType: s.dt.schema.DocType(),
		Query:   s.query,
		From:    s.from,
		Size:    s.size,
	})
	if err != nil {
		return nil, err
	}

	out := &SearchResult{Total: resp.Total}
	for _, hit := range resp.Hits {
		if !s.dt.matches(s.index, hit) {
			continue
		}
		doc, err := s.dt.FromRecord(hit)
		if err != nil {
			return nil, err
		}
		out.Hits = append(out.Hits, doc)
	}
	return out, nil
}
