// Package config builds the single Config value the court engine runs with.
//
// Precedence: defaults, then court.yml, then environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultModel        = "gemini-2.5-flash"
	DefaultIterationCap = 6
	DefaultAttempts     = 6
	DefaultInitialDelay = time.Second
	DefaultCallTimeout  = 120 * time.Second
	DefaultOutputDir    = "historical_reports"
	DefaultLookupURL    = "https://en.wikipedia.org/w/api.php"
	DefaultLookupLimit  = 3
	DefaultChatURL      = "https://openrouter.ai/api/v1"
)

// Generator backends.
const (
	BackendChat = "chat"
	BackendA2A  = "a2a"
)

// Environment variables read by Load.
const (
	EnvModel        = "MODEL"
	EnvGeneratorURL = "COURT_GENERATOR_URL"
	EnvAPIKey       = "COURT_API_KEY"
	EnvA2AEndpoint  = "COURT_A2A_ENDPOINT"
	EnvIterationCap = "COURT_ITERATION_CAP"
	EnvOutputDir    = "COURT_OUTPUT_DIR"
)

// RetryConfig bounds collaborator retries.
type RetryConfig struct {
	Attempts     int           `yaml:"attempts,omitempty"`
	InitialDelay time.Duration `yaml:"initialDelay,omitempty"`
}

// GeneratorConfig selects and addresses the text-generation service.
type GeneratorConfig struct {
	Backend  string `yaml:"backend,omitempty"`
	BaseURL  string `yaml:"baseURL,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"` // A2A agent URL
}

// LookupConfig addresses the reference lookup service.
type LookupConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	BaseURL string `yaml:"baseURL,omitempty"`
	Limit   int    `yaml:"limit,omitempty"`
}

// On reports whether lookups are enabled. Unset means enabled.
func (l LookupConfig) On() bool {
	return l.Enabled == nil || *l.Enabled
}

// Config holds runtime configuration for a court run. It is built once at
// process start and passed into the engine; stages never read the
// environment themselves.
type Config struct {
	Model        string          `yaml:"model,omitempty"`
	IterationCap int             `yaml:"iterationCap,omitempty"`
	Retry        RetryConfig     `yaml:"retry,omitempty"`
	CallTimeout  time.Duration   `yaml:"callTimeout,omitempty"`
	OutputDir    string          `yaml:"outputDir,omitempty"`
	Docket       string          `yaml:"docket,omitempty"`
	Generator    GeneratorConfig `yaml:"generator,omitempty"`
	Lookup       LookupConfig    `yaml:"lookup,omitempty"`
	LogLevel     string          `yaml:"logLevel,omitempty"`
	LogFormat    string          `yaml:"logFormat,omitempty"`
}

// Default returns a Config with every default applied.
func Default() Config {
	var cfg Config
	cfg.applyDefaults(time.Now())
	return cfg
}

// Load reads court.yml or court.yaml from dir (a missing file is not an
// error), applies environment overrides from getenv and fills defaults.
// A nil getenv means os.Getenv.
func Load(dir string, getenv func(string) string) (Config, error) {
	var cfg Config
	for _, name := range []string{"court.yml", "court.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", name, err)
		}
		break
	}
	return finish(cfg, getenv)
}

// LoadFile reads a config file at an explicit path. Unlike Load, a missing
// file is an error.
func LoadFile(path string, getenv func(string) string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return finish(cfg, getenv)
}

func finish(cfg Config, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults(time.Now())
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v, ok := lookup(getenv, EnvModel); ok {
		c.Model = v
	}
	if v, ok := lookup(getenv, EnvGeneratorURL); ok {
		c.Generator.BaseURL = v
	}
	if v, ok := lookup(getenv, EnvAPIKey); ok {
		c.Generator.APIKey = v
	}
	if v, ok := lookup(getenv, EnvA2AEndpoint); ok {
		c.Generator.Endpoint = v
		if c.Generator.Backend == "" {
			c.Generator.Backend = BackendA2A
		}
	}
	if v, ok := lookup(getenv, EnvOutputDir); ok {
		c.OutputDir = v
	}
	if v, ok := lookup(getenv, EnvIterationCap); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvIterationCap, err)
		}
		c.IterationCap = n
	}
	return nil
}

func lookup(getenv func(string) string, key string) (string, bool) {
	v := strings.TrimSpace(getenv(key))
	return v, v != ""
}

// modelPattern accepts provider-style model identifiers such as
// "gemini-2.5-flash" or "meta-llama/llama-3.1-8b-instruct:free".
var modelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/-]*$`)

func (c *Config) applyDefaults(now time.Time) {
	if c.Model == "" {
		slog.Warn("model not set, falling back", "model", DefaultModel)
		c.Model = DefaultModel
	} else if !modelPattern.MatchString(c.Model) {
		slog.Warn("model is invalid, falling back", "model", c.Model, "fallback", DefaultModel)
		c.Model = DefaultModel
	}
	if c.IterationCap == 0 {
		c.IterationCap = DefaultIterationCap
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = DefaultAttempts
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = DefaultInitialDelay
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Docket == "" {
		c.Docket = fmt.Sprintf("HC-%d-001", now.Year())
	}
	if c.Generator.Backend == "" {
		c.Generator.Backend = BackendChat
	}
	if c.Generator.Backend == BackendChat && c.Generator.BaseURL == "" {
		c.Generator.BaseURL = DefaultChatURL
	}
	if c.Lookup.BaseURL == "" {
		c.Lookup.BaseURL = DefaultLookupURL
	}
	if c.Lookup.Limit == 0 {
		c.Lookup.Limit = DefaultLookupLimit
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.IterationCap < 1 {
		errs = append(errs, fmt.Errorf("iterationCap must be >= 1, got %d", c.IterationCap))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be >= 1, got %d", c.Retry.Attempts))
	}
	if c.Retry.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("retry.initialDelay must not be negative"))
	}
	if c.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("callTimeout must not be negative"))
	}
	switch c.Generator.Backend {
	case BackendChat:
	case BackendA2A:
		if c.Generator.Endpoint == "" {
			errs = append(errs, fmt.Errorf("generator.endpoint is required for the %s backend", BackendA2A))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown generator backend %q", c.Generator.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
