package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docmap/internal/engine"
)

// casScript writes ARGV[2] (or deletes the key when empty) only while the
// stored _version still equals ARGV[1]; an absent key has version 0.
var casScript = rueidis.NewLuaScript(`
local cur = redis.call('JSON.GET', KEYS[1], '$._version')
local have = 0
if cur then
  local arr = cjson.decode(cur)
  if arr[1] then have = arr[1] end
end
if tonumber(ARGV[1]) ~= tonumber(have) then
  return redis.error_reply('CONFLICT ' .. tostring(have))
end
if ARGV[2] == '' then
  redis.call('DEL', KEYS[1])
else
  redis.call('JSON.SET', KEYS[1], '$', ARGV[2])
end
return 1
`)

// Get returns a found record or the not-found marker.
func (s *Store) Get(ctx context.Context, index, docType, id string, params engine.Params) (engine.Record, error) {
	t := engine.Target{Index: index, DocType: docType, ID: id}
	required, err := s.routingRequired(ctx, index, docType)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckRouting(required, t, params); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, t)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return engine.MissingRecord(t), nil
	}
	return engine.FoundRecord(t, doc), nil
}

// MGet fetches all requested docs in a single DoMulti round-trip.
// Per-doc routing failures are reported inside the record.
func (s *Store) MGet(
	ctx context.Context, index, docType string, docs []map[string]any, params engine.Params,
) ([]engine.Record, error) {
	out := make([]engine.Record, len(docs))
	targets := make([]engine.Target, 0, len(docs))
	slots := make([]int, 0, len(docs))

	for i, spec := range docs {
		t := engine.SpecTarget(index, docType, spec)
		required, err := s.routingRequired(ctx, t.Index, t.DocType)
		if err != nil {
			return nil, err
		}
		if err := engine.CheckRouting(required, t, engine.SpecParams(spec, params)); err != nil {
			re, _ := err.(*engine.ResponseError)
			out[i] = engine.ErrorRecord(t, re)
			continue
		}
		targets = append(targets, t)
		slots = append(slots, i)
	}
	if len(targets) == 0 {
		return out, nil
	}

	cmds := make([]rueidis.Completed, len(targets))
	for i, t := range targets {
		cmds[i] = s.b().Arbitrary("JSON.GET").Keys(s.docKey(t)).Args("$").Build()
	}
	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		t := targets[i]
		doc, err := decodeResult(res)
		if err != nil {
			return nil, &engine.Error{Op: engine.OpMGet, Err: fmt.Errorf("key %s: %w", s.docKey(t), err)}
		}
		if doc == nil {
			out[slots[i]] = engine.MissingRecord(t)
			continue
		}
		out[slots[i]] = engine.FoundRecord(t, doc)
	}
	return out, nil
}

// Index creates or replaces a document.
func (s *Store) Index(
	ctx context.Context, index, docType string, body map[string]any, params engine.Params,
) (engine.Record, error) {
	t := engine.Target{Index: index, DocType: docType, ID: engine.ResolveID(params)}
	return s.write(ctx, engine.OpIndex, t, params, func(current *engine.StoredDoc) (*engine.WriteResult, error) {
		return engine.ApplyIndex(t, current, body, params)
	})
}

// Update applies a partial update.
func (s *Store) Update(
	ctx context.Context, index, docType string, body map[string]any, params engine.Params,
) (engine.Record, error) {
	id, _ := engine.ParamString(params, "id")
	t := engine.Target{Index: index, DocType: docType, ID: id}
	return s.write(ctx, engine.OpUpdate, t, params, func(current *engine.StoredDoc) (*engine.WriteResult, error) {
		return engine.ApplyUpdate(t, current, body, params)
	})
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, index, docType string, params engine.Params) (engine.Record, error) {
	id, _ := engine.ParamString(params, "id")
	t := engine.Target{Index: index, DocType: docType, ID: id}
	return s.write(ctx, engine.OpDelete, t, params, func(current *engine.StoredDoc) (*engine.WriteResult, error) {
		return engine.ApplyDelete(t, current, params)
	})
}

// write reads the current envelope, applies the write and stores the result
// through the compare-and-set script. A concurrent writer surfaces as a
// version conflict.
func (s *Store) write(
	ctx context.Context, op string, t engine.Target, params engine.Params,
	apply func(current *engine.StoredDoc) (*engine.WriteResult, error),
) (engine.Record, error) {
	required, err := s.routingRequired(ctx, t.Index, t.DocType)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckRouting(required, t, params); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, t)
	if err != nil {
		return nil, err
	}
	res, err := apply(current)
	if err != nil {
		return nil, err
	}
	if !res.Write {
		return res.Response, nil
	}

	var have int64
	if current != nil {
		have = current.Version
	}
	payload := ""
	if res.Next != nil {
		data, err := json.Marshal(res.Next)
		if err != nil {
			return nil, fmt.Errorf("marshal document: %w", err)
		}
		payload = string(data)
	}

	err = casScript.Exec(ctx, s.client, []string{s.docKey(t)}, []string{strconv.FormatInt(have, 10), payload}).Error()
	if err != nil {
		if isRedisErr(err, "conflict") {
			return nil, engine.NewVersionConflict(t.ID, conflictVersion(err), have)
		}
		return nil, &engine.Error{Op: op, Err: err}
	}
	return res.Response, nil
}

func (s *Store) load(ctx context.Context, t engine.Target) (*engine.StoredDoc, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(s.docKey(t)).Args("$").Build()
	doc, err := decodeResult(s.do(ctx, cmd))
	if err != nil {
		return nil, &engine.Error{Op: engine.OpGet, Err: err}
	}
	return doc, nil
}

// decodeResult parses a JSON.GET $ reply; a missing key yields nil.
func decodeResult(res rueidis.RedisResult) (*engine.StoredDoc, error) {
	raw, err := res.ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeEnvelope(raw)
}

// decodeEnvelope accepts both the `[{...}]` form of a $ path and a bare object.
func decodeEnvelope(raw string) (*engine.StoredDoc, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var docs []engine.StoredDoc
		if err := json.Unmarshal([]byte(raw), &docs); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return normalizeSource(&docs[0]), nil
	}
	var doc engine.StoredDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return normalizeSource(&doc), nil
}

func normalizeSource(doc *engine.StoredDoc) *engine.StoredDoc {
	if doc.Source == nil {
		doc.Source = map[string]any{}
	}
	return doc
}

func conflictVersion(err error) int64 {
	re, _ := rueidis.IsRedisErr(err)
	fields := strings.Fields(re.Error())
	if len(fields) == 0 {
		return 0
	}
	v, _ := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	return v
}
