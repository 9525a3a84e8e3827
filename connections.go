package docmap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docmap/internal/config"
	"github.com/kailas-cloud/docmap/internal/engine"
	"github.com/kailas-cloud/docmap/internal/engine/memory"
	engineRedis "github.com/kailas-cloud/docmap/internal/engine/redis"
	"github.com/kailas-cloud/docmap/internal/metrics"
)

const defaultReadinessTimeout = 10 * time.Second

// Engine is the document store a connection alias resolves to.
type Engine = engine.Client

// Engine request and response types.
type (
	Record         = engine.Record
	Params         = engine.Params
	SearchRequest  = engine.SearchRequest
	SearchResponse = engine.SearchResponse
)

// Config is the YAML configuration of logging and connections.
type (
	Config           = config.Config
	ConnectionConfig = config.ConnectionConfig
)

// LoadConfig reads a YAML configuration file, expanding ${VAR:-default}.
func LoadConfig(path string) (Config, error) {
	return config.LoadFile(path)
}

var registry = struct {
	mu    sync.RWMutex
	conns map[string]Engine
}{conns: make(map[string]Engine)}

// AddConnection registers an engine under alias. A different engine already
// registered under alias is closed and replaced.
func AddConnection(alias string, e Engine) {
	registry.mu.Lock()
	prev, ok := registry.conns[alias]
	registry.conns[alias] = e
	registry.mu.Unlock()
	if ok && prev != e {
		prev.Close()
	}
}

// GetConnection returns the engine registered under alias; empty alias means
// DefaultUsing.
func GetConnection(alias string) (Engine, error) {
	if alias == "" {
		alias = DefaultUsing
	}
	registry.mu.RLock()
	e, ok := registry.conns[alias]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, alias)
	}
	return e, nil
}

// RemoveConnection unregisters alias and closes its engine.
func RemoveConnection(alias string) error {
	registry.mu.Lock()
	e, ok := registry.conns[alias]
	delete(registry.conns, alias)
	registry.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownConnection, alias)
	}
	e.Close()
	return nil
}

// Connections returns the registered aliases in sorted order.
func Connections() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]string, 0, len(registry.conns))
	for alias := range registry.conns {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// ConnectOption configures Connect.
type ConnectOption interface {
	apply(*connectConfig)
}

// connectOptionFunc adapts a function to the ConnectOption interface.
type connectOptionFunc func(*connectConfig)

func (f connectOptionFunc) apply(c *connectConfig) { f(c) }

type connectConfig struct {
	driver    string
	addrs     []string
	username  string
	password  string
	db        int
	keyPrefix string
	readiness time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis connects to a Redis instance with the JSON and Search modules.
func WithRedis(addr, password string) ConnectOption {
	return connectOptionFunc(func(c *connectConfig) {
		c.driver = config.DriverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey connects to a Valkey instance with the JSON and Search modules.
func WithValkey(addr, password string) ConnectOption {
	return connectOptionFunc(func(c *connectConfig) {
		c.driver = config.DriverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory uses an in-process engine.
func WithMemory() ConnectOption {
	return connectOptionFunc(func(c *connectConfig) {
		c.driver = config.DriverMemory
	})
}

// WithKeyPrefix namespaces every key written to Redis or Valkey.
// Default: "docmap:".
func WithKeyPrefix(prefix string) ConnectOption {
	return connectOptionFunc(func(c *connectConfig) {
		c.keyPrefix = prefix
	})
}

// WithReadinessTimeout bounds the wait for a network engine to answer PING.
// Default: 10s.
func WithReadinessTimeout(d time.Duration) ConnectOption {
	return connectOptionFunc(func(c *connectConfig) {
		c.readiness = d
	})
}

// WithLogger enables structured logging of engine requests.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) ConnectOption {
	return connectOptionFunc(func(c *connectConfig) {
		c.logger = l
	})
}

// WithPrometheus registers engine request metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) ConnectOption {
	return connectOptionFunc(func(c *connectConfig) {
		c.metricsReg = reg
	})
}

// Connect builds an engine, waits until it is ready and registers it under
// alias (empty means DefaultUsing).
func Connect(ctx context.Context, alias string, opts ...ConnectOption) (Engine, error) {
	cfg := &connectConfig{readiness: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}
	if alias == "" {
		alias = DefaultUsing
	}

	store, err := createEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var m *metrics.Engine
	if cfg.metricsReg != nil {
		m, err = metrics.NewEngine(cfg.metricsReg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("docmap: %w", err)
		}
	}
	e := engine.NewInstrumented(store, alias, cfg.logger, m)
	AddConnection(alias, e)
	return e, nil
}

func createEngine(ctx context.Context, cfg *connectConfig) (Engine, error) {
	switch cfg.driver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverRedis, config.DriverValkey:
		s, err := engineRedis.NewStore(engineRedis.Config{
			Addrs:     cfg.addrs,
			Username:  cfg.username,
			Password:  cfg.password,
			DB:        cfg.db,
			KeyPrefix: cfg.keyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("docmap: create %s engine: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, cfg.readiness); err != nil {
			s.Close()
			return nil, fmt.Errorf("docmap: %s not ready: %w", cfg.driver, err)
		}
		return s, nil
	case "":
		return nil, fmt.Errorf("%w: no driver (use WithRedis, WithValkey or WithMemory)", ErrConfiguration)
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrConfiguration, cfg.driver)
	}
}

// ConnectFromConfig connects every alias of cfg. Already connected aliases
// are closed again when a later one fails.
func ConnectFromConfig(ctx context.Context, cfg Config, opts ...ConnectOption) error {
	var connected []string
	for _, alias := range cfg.Aliases() {
		c := cfg.Connections[alias]
		connOpts := append([]ConnectOption{fromConnectionConfig(c)}, opts...)
		if _, err := Connect(ctx, alias, connOpts...); err != nil {
			var errs []error
			for _, a := range connected {
				errs = append(errs, RemoveConnection(a))
			}
			return errors.Join(append([]error{fmt.Errorf("connect %q: %w", alias, err)}, errs...)...)
		}
		connected = append(connected, alias)
	}
	return nil
}

func fromConnectionConfig(c ConnectionConfig) ConnectOption {
	return connectOptionFunc(func(cc *connectConfig) {
		cc.driver = c.Driver
		cc.addrs = c.Addrs
		cc.username = c.Username
		cc.password = c.Password
		cc.db = c.DB
		cc.keyPrefix = c.KeyPrefix
		if c.ReadinessTimeout > 0 {
			cc.readiness = time.Duration(c.ReadinessTimeout) * time.Second
		}
	})
}
