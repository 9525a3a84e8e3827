// Package config loads connection and logging settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported connection drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverMemory = "memory"
)

// DefaultAlias names the connection used when an operation names none.
const DefaultAlias = "default"

// Config holds docmap settings.
type Config struct {
	Logging     LoggingConfig               `yaml:"logging"`
	Connections map[string]ConnectionConfig `yaml:"connections"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// ConnectionConfig describes one engine connection, keyed by alias.
type ConnectionConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from config/<env>.yaml.
func Load(env string) (Config, error) {
	return LoadFile(filepath.Join("config", env+".yaml"))
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, substituting ${VAR} and ${VAR:-default} first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if len(c.Connections) == 0 {
		c.Connections = map[string]ConnectionConfig{
			DefaultAlias: {Driver: DriverMemory},
		}
	}
	for alias, conn := range c.Connections {
		if conn.Driver == "" {
			conn.Driver = DriverRedis
		}
		if conn.KeyPrefix == "" {
			conn.KeyPrefix = "docmap:"
		}
		if conn.ReadinessTimeout <= 0 {
			conn.ReadinessTimeout = 10
		}
		c.Connections[alias] = conn
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	for _, alias := range c.Aliases() {
		conn := c.Connections[alias]
		switch conn.Driver {
		case DriverRedis, DriverValkey:
			if len(conn.Addrs) == 0 {
				return fmt.Errorf("connections.%s.addrs is required for driver %q", alias, conn.Driver)
			}
		case DriverMemory:
		default:
			return fmt.Errorf(
				"connections.%s.driver must be %q, %q or %q, got %q",
				alias, DriverRedis, DriverValkey, DriverMemory, conn.Driver,
			)
		}
	}
	return nil
}

// Aliases returns connection aliases in sorted order.
func (c *Config) Aliases() []string {
	out := make([]string, 0, len(c.Connections))
	for alias := range c.Connections {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
