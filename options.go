package docmap

import (
	"fmt"

	"github.com/kailas-cloud/docmap/internal/engine"
)

// MissingPolicy decides what MGet does with documents that were not found.
type MissingPolicy string

// Missing policies.
const (
	MissingNone  MissingPolicy = "none"  // keep a nil slot
	MissingRaise MissingPolicy = "raise" // fail the batch with a not-found error
	MissingSkip  MissingPolicy = "skip"  // drop the slot
)

// Option configures a document operation.
type Option interface {
	apply(*opConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*opConfig)

func (f optionFunc) apply(c *opConfig) { f(c) }

type opConfig struct {
	using        string
	index        string
	params       engine.Params
	raiseOnError bool
	missing      MissingPolicy
	detectNoop   bool
	docAsUpsert  bool
	refresh      bool
	validate     bool
}

func newOpConfig(opts []Option) *opConfig {
	c := &opConfig{
		params:       engine.Params{},
		raiseOnError: true,
		missing:      MissingNone,
		detectNoop:   true,
		validate:     true,
	}
	for _, o := range opts {
		o.apply(c)
	}
	return c
}

// Using selects the connection alias.
func Using(alias string) Option {
	return optionFunc(func(c *opConfig) { c.using = alias })
}

// OnIndex overrides the target index.
func OnIndex(name string) Option {
	return optionFunc(func(c *opConfig) { c.index = name })
}

// Param passes an engine request parameter through unchanged. It overrides
// the value derived from document metadata.
func Param(key string, value any) Option {
	return optionFunc(func(c *opConfig) { c.params[key] = value })
}

// RaiseOnError makes MGet fail when the engine reports per-document errors
// (default true).
func RaiseOnError(raise bool) Option {
	return optionFunc(func(c *opConfig) { c.raiseOnError = raise })
}

// Missing sets the MGet policy for documents that were not found
// (default MissingNone).
func Missing(p MissingPolicy) Option {
	return optionFunc(func(c *opConfig) { c.missing = p })
}

// DetectNoop makes Update skip writes that change nothing (default true).
func DetectNoop(detect bool) Option {
	return optionFunc(func(c *opConfig) { c.detectNoop = detect })
}

// DocAsUpsert makes Update create the document when it does not exist.
func DocAsUpsert(upsert bool) Option {
	return optionFunc(func(c *opConfig) { c.docAsUpsert = upsert })
}

// Refresh asks the engine to make the write visible to search immediately.
func Refresh(refresh bool) Option {
	return optionFunc(func(c *opConfig) { c.refresh = refresh })
}

// SkipValidation disables the FullClean pass of Save.
func SkipValidation() Option {
	return optionFunc(func(c *opConfig) { c.validate = false })
}

func (c *opConfig) checkMissing() error {
	switch c.missing {
	case MissingNone, MissingRaise, MissingSkip:
		return nil
	default:
		return fmt.Errorf("%w: missing must be one of %q, %q or %q, got %q",
			ErrConfiguration, MissingNone, MissingRaise, MissingSkip, c.missing)
	}
}

// writeParams merges document meta params, caller params and refresh.
func (c *opConfig) writeParams(docMeta map[string]any) engine.Params {
	out := make(engine.Params, len(docMeta)+len(c.params)+1)
	for k, v := range docMeta {
		out[k] = v
	}
	for k, v := range c.params {
		out[k] = v
	}
	if c.refresh {
		out["refresh"] = "true"
	}
	return out
}
