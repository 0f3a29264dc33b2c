// Package config loads curator settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/aretw0/curator/internal/logging"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. A missing file means defaults.
const DefaultPath = "curator.yaml"

var (
	Backends    = []string{"file", "sqlite", "loam", "memory"}
	Providers   = []string{"ollama", "openai", "process", "static"}
	ResultKinds = []string{"none", "file", "redis"}
)

// Config is the full runtime configuration.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	Backend  string `yaml:"backend"`
	LogLevel string `yaml:"log_level"`

	Capability CapabilityConfig `yaml:"capability"`
	Results    ResultsConfig    `yaml:"results"`
	Defaults   RequestDefaults  `yaml:"defaults"`
	Server     ServerConfig     `yaml:"server"`
}

type CapabilityConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"`

	// Static is the fixed reply of the static provider.
	Static string `yaml:"static"`
	// Command and Args configure the process provider.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type ResultsConfig struct {
	Kind      string        `yaml:"kind"`
	Dir       string        `yaml:"dir"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`

	// Redact lists record fields masked before saving (username, store_id, items).
	Redact []string `yaml:"redact"`
	// EncryptionKey is a base64 AES-256 key; when set, records are sealed at rest.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys still open records sealed with a retired key.
	FallbackKeys []string `yaml:"fallback_keys"`
}

type RequestDefaults struct {
	StoreID string `yaml:"store_id"`
	TopK    int    `yaml:"top_k"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  "data",
		Backend:  "file",
		LogLevel: "info",
		Capability: CapabilityConfig{
			Provider: "ollama",
			Timeout:  60 * time.Second,
		},
		Results: ResultsConfig{
			Kind: "file",
			Dir:  ".curator/runs",
		},
		Defaults: RequestDefaults{
			StoreID: "ABC",
			TopK:    3,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("CURATOR_DATA_DIR", &c.DataDir)
	str("CURATOR_BACKEND", &c.Backend)
	str("CURATOR_LOG_LEVEL", &c.LogLevel)
	str("CURATOR_PROVIDER", &c.Capability.Provider)
	str("CURATOR_MODEL", &c.Capability.Model)
	str("CURATOR_STORE", &c.Defaults.StoreID)
	str("CURATOR_RESULTS", &c.Results.Kind)
	str("CURATOR_REDIS_ADDR", &c.Results.RedisAddr)
	str("CURATOR_RESULTS_KEY", &c.Results.EncryptionKey)
	str("CURATOR_ADDR", &c.Server.Addr)

	if v := os.Getenv("CURATOR_CAPABILITY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CURATOR_CAPABILITY_TIMEOUT: %w", err)
		}
		c.Capability.Timeout = d
	}
	if v := os.Getenv("CURATOR_CAPABILITY_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CURATOR_CAPABILITY_RETRIES: %w", err)
		}
		c.Capability.Retries = n
	}
	return nil
}

// Validate rejects unknown backends, providers and result stores.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(Backends, c.Backend) {
		errs = append(errs, fmt.Errorf("unknown backend %q (want one of %v)", c.Backend, Backends))
	}
	if !slices.Contains(Providers, c.Capability.Provider) {
		errs = append(errs, fmt.Errorf("unknown provider %q (want one of %v)", c.Capability.Provider, Providers))
	}
	if !slices.Contains(ResultKinds, c.Results.Kind) {
		errs = append(errs, fmt.Errorf("unknown results kind %q (want one of %v)", c.Results.Kind, ResultKinds))
	}
	if c.Capability.Provider == "process" && c.Capability.Command == "" {
		errs = append(errs, errors.New("process provider needs capability.command"))
	}
	if c.Capability.Timeout < 0 {
		errs = append(errs, errors.New("capability.timeout must not be negative"))
	}
	if c.Capability.Retries < 0 {
		errs = append(errs, errors.New("capability.retries must not be negative"))
	}
	if c.Defaults.TopK < 0 {
		errs = append(errs, errors.New("defaults.top_k must not be negative"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
