package docmap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docmap/internal/engine"
	"github.com/kailas-cloud/docmap/internal/logger"
)

// DocSpec addresses one document of an MGet: `_id` plus optional `_index`,
// `_type` and `routing`.
type DocSpec map[string]any

// IDs builds MGet specs from plain ids.
func IDs(ids ...string) []DocSpec {
	out := make([]DocSpec, len(ids))
	for i, id := range ids {
		out[i] = DocSpec{"_id": id}
	}
	return out
}

// Init creates the bound index (cloned under OnIndex when given) together
// with the mapping of this type.
func (dt *DocType) Init(ctx context.Context, opts ...Option) error {
	cfg := newOpConfig(opts)
	idx := dt.index.Clone(cfg.index)
	idx.Document(dt)
	return idx.Save(ctx, cfg.using)
}

// Get fetches one document. A document that does not exist yields (nil, nil).
func (dt *DocType) Get(ctx context.Context, id string, opts ...Option) (*Document, error) {
	cfg := newOpConfig(opts)
	conn, err := dt.connection(cfg.using)
	if err != nil {
		return nil, err
	}
	rec, err := conn.Get(ctx, dt.readIndex(cfg.index), dt.schema.DocType(), id, cfg.params)
	if err != nil {
		return nil, err
	}
	if !isFound(rec) {
		return nil, nil
	}
	return dt.FromRecord(rec)
}

// MGet fetches documents in request order. Missing documents follow the
// Missing policy; per-document engine errors fail the whole call when
// RaiseOnError is set. Both failures are reported once after the full scan,
// errors taking precedence over missing documents.
func (dt *DocType) MGet(ctx context.Context, specs []DocSpec, opts ...Option) ([]*Document, error) {
	cfg := newOpConfig(opts)
	if err := cfg.checkMissing(); err != nil {
		return nil, err
	}
	conn, err := dt.connection(cfg.using)
	if err != nil {
		return nil, err
	}

	docs := make([]map[string]any, len(specs))
	for i, s := range specs {
		docs[i] = s
	}
	recs, err := conn.MGet(ctx, dt.readIndex(cfg.index), dt.schema.DocType(), docs, cfg.params)
	if err != nil {
		return nil, err
	}

	var (
		objs        []*Document
		errorDocs   []Record
		missingDocs []Record
	)
	for _, rec := range recs {
		switch {
		case isFound(rec):
			if len(errorDocs) > 0 || len(missingDocs) > 0 {
				continue // the call fails anyway
			}
			doc, err := dt.FromRecord(rec)
			if err != nil {
				return nil, err
			}
			objs = append(objs, doc)
		case rec["error"] != nil:
			if cfg.raiseOnError {
				errorDocs = append(errorDocs, rec)
			}
			if cfg.missing == MissingNone {
				objs = append(objs, nil)
			}
		case cfg.missing == MissingRaise:
			missingDocs = append(missingDocs, rec)
		case cfg.missing == MissingNone:
			objs = append(objs, nil)
		}
	}

	if len(errorDocs) > 0 {
		err := &engine.ResponseError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Required routing not provided for documents %s.", joinIDs(errorDocs)),
			Info:    errorDocs,
		}
		logger.FromContext(ctx, nil).Warn("Multi-get failed",
			zap.String("type", dt.name), zap.Int("errors", len(errorDocs)), zap.Error(err))
		return nil, err
	}
	if len(missingDocs) > 0 {
		err := &engine.ResponseError{
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("Documents %s not found.", joinIDs(missingDocs)),
			Info:    map[string]any{"docs": missingDocs},
		}
		logger.FromContext(ctx, nil).Debug("Multi-get missing documents",
			zap.String("type", dt.name), zap.Int("missing", len(missingDocs)))
		return nil, err
	}
	return objs, nil
}

// Save validates the document (unless SkipValidation) and indexes it in
// full. Response metadata is copied back. It reports whether the engine
// created a new document.
func (d *Document) Save(ctx context.Context, opts ...Option) (bool, error) {
	cfg := newOpConfig(opts)
	if cfg.validate {
		if err := d.FullClean(); err != nil {
			return false, err
		}
	}
	index, err := d.resolveIndex(cfg.index)
	if err != nil {
		return false, err
	}
	conn, err := d.dt.connection(cfg.using)
	if err != nil {
		return false, err
	}
	body, err := d.ToPayload()
	if err != nil {
		return false, err
	}

	resp, err := conn.Index(ctx, index, d.dt.schema.DocType(), body, cfg.writeParams(d.meta.docParams()))
	if err != nil {
		return false, err
	}
	d.meta.absorb(resp)
	result, _ := resp["result"].(string)
	return result == engine.ResultCreated, nil
}

// Update sets fields locally and sends exactly those fields, as serialized
// by a full payload pass, as a partial update. Response metadata is copied
// back.
func (d *Document) Update(ctx context.Context, fields map[string]any, opts ...Option) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: update requires at least one field", ErrIllegalOperation)
	}
	cfg := newOpConfig(opts)
	for name := range fields {
		if _, ok := d.dt.schema.Field(name); !ok {
			return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, d.dt.name, name)
		}
	}
	index, err := d.resolveIndex(cfg.index)
	if err != nil {
		return err
	}
	conn, err := d.dt.connection(cfg.using)
	if err != nil {
		return err
	}

	for name, v := range fields {
		d.data[name] = v
	}
	values, err := d.ToPayload()
	if err != nil {
		return err
	}
	partial := make(map[string]any, len(fields))
	for name := range fields {
		partial[name] = values[name]
	}
	body := map[string]any{
		"doc":           partial,
		"doc_as_upsert": cfg.docAsUpsert,
		"detect_noop":   cfg.detectNoop,
	}

	resp, err := conn.Update(ctx, index, d.dt.schema.DocType(), body, cfg.writeParams(d.meta.docParams()))
	if err != nil {
		return err
	}
	d.meta.absorb(resp)
	return nil
}

// Delete removes the document from the engine. The instance is left as is.
func (d *Document) Delete(ctx context.Context, opts ...Option) error {
	cfg := newOpConfig(opts)
	index, err := d.resolveIndex(cfg.index)
	if err != nil {
		return err
	}
	conn, err := d.dt.connection(cfg.using)
	if err != nil {
		return err
	}
	_, err = conn.Delete(ctx, index, d.dt.schema.DocType(), cfg.writeParams(d.meta.docParams()))
	return err
}

func (dt *DocType) connection(using string) (Engine, error) {
	if using == "" {
		using = dt.index.Using()
	}
	return GetConnection(using)
}

// readIndex is the read target: the explicit index or the bound pattern.
func (dt *DocType) readIndex(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return dt.index.Name()
}

func isFound(rec Record) bool {
	found, _ := rec["found"].(bool)
	return found
}

func joinIDs(recs []Record) string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = fmt.Sprint(r["_id"])
	}
	return strings.Join(ids, ", ")
}
