package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docmap/internal/metrics"
)

// Compile-time check: Instrumented implements Client.
var _ Client = (*Instrumented)(nil)

// Instrumented wraps a Client with structured logging and request metrics.
// Errors pass through unchanged.
type Instrumented struct {
	inner   Client
	alias   string
	logger  *zap.Logger
	metrics *metrics.Engine
}

// NewInstrumented wraps inner. A nil logger disables logging, nil metrics
// disable metrics.
func NewInstrumented(inner Client, alias string, logger *zap.Logger, m *metrics.Engine) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{inner: inner, alias: alias, logger: logger, metrics: m}
}

// Unwrap returns the wrapped client.
func (c *Instrumented) Unwrap() Client { return c.inner }

func (c *Instrumented) observe(op, index string, start time.Time, err error) {
	dur := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.Observe(c.alias, op, status, dur.Seconds())

	if err != nil {
		c.logger.Warn("Engine request failed",
			zap.String("alias", c.alias),
			zap.String("op", op),
			zap.String("index", index),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("Engine request completed",
		zap.String("alias", c.alias),
		zap.String("op", op),
		zap.String("index", index),
		zap.Duration("duration", dur),
	)
}

// Ping delegates to the wrapped client.
func (c *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.inner.Ping(ctx)
	c.observe(OpPing, "", start, err)
	return err
}

// Close delegates to the wrapped client.
func (c *Instrumented) Close() { c.inner.Close() }

// Get delegates to the wrapped client.
func (c *Instrumented) Get(ctx context.Context, index, docType, id string, params Params) (Record, error) {
	start := time.Now()
	r, err := c.inner.Get(ctx, index, docType, id, params)
	c.observe(OpGet, index, start, err)
	return r, err
}

// MGet delegates to the wrapped client.
func (c *Instrumented) MGet(
	ctx context.Context, index, docType string, docs []map[string]any, params Params,
) ([]Record, error) {
	start := time.Now()
	r, err := c.inner.MGet(ctx, index, docType, docs, params)
	c.observe(OpMGet, index, start, err)
	return r, err
}

// Index delegates to the wrapped client.
func (c *Instrumented) Index(
	ctx context.Context, index, docType string, body map[string]any, params Params,
) (Record, error) {
	start := time.Now()
	r, err := c.inner.Index(ctx, index, docType, body, params)
	c.observe(OpIndex, index, start, err)
	return r, err
}

// Update delegates to the wrapped client.
func (c *Instrumented) Update(
	ctx context.Context, index, docType string, body map[string]any, params Params,
) (Record, error) {
	start := time.Now()
	r, err := c.inner.Update(ctx, index, docType, body, params)
	c.observe(OpUpdate, index, start, err)
	return r, err
}

// Delete delegates to the wrapped client.
func (c *Instrumented) Delete(ctx context.Context, index, docType string, params Params) (Record, error) {
	start := time.Now()
	r, err := c.inner.Delete(ctx, index, docType, params)
	c.observe(OpDelete, index, start, err)
	return r, err
}

// CreateIndex delegates to the wrapped client.
func (c *Instrumented) CreateIndex(ctx context.Context, index string, body map[string]any, params Params) error {
	start := time.Now()
	err := c.inner.CreateIndex(ctx, index, body, params)
	c.observe(OpCreateIndex, index, start, err)
	return err
}

// Search delegates to the wrapped client.
func (c *Instrumented) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	start := time.Now()
	r, err := c.inner.Search(ctx, req)
	c.observe(OpSearch, req.Index, start, err)
	return r, err
}
