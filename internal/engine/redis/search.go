package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docmap/internal/engine"
)

// Search runs FT.SEARCH over the index created by CreateIndex and returns the
// stored envelopes as found records.
func (s *Store) Search(ctx context.Context, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	if req.Index == "" || strings.ContainsAny(req.Index, "*?") {
		return nil, fmt.Errorf("search requires a concrete index, got %q", req.Index)
	}
	query := req.Query
	if query == "" {
		query = "*"
	}
	size := req.Size
	if size <= 0 {
		size = 10
	}

	args := []string{
		s.searchIndex(req.Index), query,
		"LIMIT", strconv.Itoa(max(req.From, 0)), strconv.Itoa(size),
		"RETURN", "1", "$",
		"DIALECT", "2",
	}
	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &engine.Error{Op: engine.OpSearch, Err: err}
	}
	return s.parseSearchResult(req, raw)
}

// parseSearchResult reads the 2-stride reply [total, key1, fields1, key2, fields2, ...].
func (s *Store) parseSearchResult(req *engine.SearchRequest, raw []rueidis.RedisMessage) (*engine.SearchResponse, error) {
	if len(raw) == 0 {
		return &engine.SearchResponse{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	resp := &engine.SearchResponse{Total: int(total)}
	keyPrefix := s.prefix + req.Index + ":"
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		docType, id, ok := strings.Cut(strings.TrimPrefix(key, keyPrefix), ":")
		if !ok || (req.DocType != "" && docType != req.DocType) {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		doc, err := decodeEnvelope(fieldValue(fields, "$"))
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		t := engine.Target{Index: req.Index, DocType: docType, ID: id}
		resp.Hits = append(resp.Hits, engine.FoundRecord(t, doc))
	}
	return resp, nil
}

// fieldValue finds name in a flat [name1, value1, name2, value2, ...] array.
func fieldValue(pairs []rueidis.RedisMessage, name string) string {
	for j := 0; j+1 < len(pairs); j += 2 {
		k, err := pairs[j].ToString()
		if err != nil || k != name {
			continue
		}
		v, _ := pairs[j+1].ToString()
		return v
	}
	return ""
}
