package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"oaigate/internal/common/fsutil"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr                   string          `json:"addr" yaml:"addr" toml:"addr"`
	APIPrefix              string          `json:"api_prefix" yaml:"api_prefix" toml:"api_prefix"`
	LogLevel               string          `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat              string          `json:"log_format" yaml:"log_format" toml:"log_format"`
	DefaultModel           string          `json:"default_model" yaml:"default_model" toml:"default_model"`
	MaxBodyBytes           int64           `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	RequestTimeoutSeconds  int             `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int             `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`
	CORS                   CORS            `json:"cors" yaml:"cors" toml:"cors"`
	Backends               []BackendConfig `json:"backends" yaml:"backends" toml:"backends"`
}

type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// BackendConfig declares one model name and the backend serving it.
type BackendConfig struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Type    string `json:"type" yaml:"type" toml:"type"`
	OwnedBy string `json:"owned_by" yaml:"owned_by" toml:"owned_by"`
	// StreamDelayMS spaces streamed words for the mock and lorem backends.
	// nil selects the backend default; 0 disables the delay.
	StreamDelayMS    *int `json:"stream_delay_ms" yaml:"stream_delay_ms" toml:"stream_delay_ms"`
	MaxContextTokens int  `json:"max_context_tokens" yaml:"max_context_tokens" toml:"max_context_tokens"`
	// Words is the lorem answer length when a request sets no max_tokens.
	Words int `json:"words" yaml:"words" toml:"words"`

	BaseURL       string `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKeyEnv     string `json:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`
	UpstreamModel string `json:"upstream_model" yaml:"upstream_model" toml:"upstream_model"`
	MaxTokens     int    `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
}

// Backend types understood by the registry builder.
const (
	TypeMock      = "mock"
	TypeLorem     = "lorem"
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
)

// Defaults.
const (
	DefaultAddr            = ":8000"
	DefaultAPIPrefix       = "/v1"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultMaxBodyBytes    = int64(1 << 20)
	DefaultShutdownSeconds = 10
	DefaultBackendName     = "mock-gpt"
	// DefaultStreamDelayMS paces the built-in mock at roughly ten words a second.
	DefaultStreamDelayMS = 100
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields. A config without backends gets the
// built-in mock so the gateway always has something to serve.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.APIPrefix == "" {
		c.APIPrefix = DefaultAPIPrefix
	}
	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = DefaultShutdownSeconds
	}
	if c.CORS.Enabled && len(c.CORS.Origins) == 0 {
		c.CORS.Origins = []string{"*"}
	}
	if len(c.Backends) == 0 {
		delay := DefaultStreamDelayMS
		c.Backends = []BackendConfig{{Name: DefaultBackendName, Type: TypeMock, StreamDelayMS: &delay}}
	}
	for i := range c.Backends {
		c.Backends[i].Type = strings.ToLower(strings.TrimSpace(c.Backends[i].Type))
	}
}

// Validate reports every configuration problem it finds, joined.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format: unsupported value %q (want json or console)", c.LogFormat))
	}
	if c.RequestTimeoutSeconds < 0 {
		errs = append(errs, errors.New("request_timeout_seconds: must not be negative"))
	}
	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		where := fmt.Sprintf("backends[%d]", i)
		name := strings.TrimSpace(b.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		} else if seen[name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", where, name))
		}
		seen[name] = true
		if b.StreamDelayMS != nil && *b.StreamDelayMS < 0 {
			errs = append(errs, fmt.Errorf("%s: stream_delay_ms must not be negative", where))
		}
		switch b.Type {
		case TypeMock, TypeLorem:
		case TypeOpenAI:
			if strings.TrimSpace(b.BaseURL) == "" {
				errs = append(errs, fmt.Errorf("%s: base_url is required for type %q", where, b.Type))
			}
		case TypeAnthropic:
			if strings.TrimSpace(b.APIKeyEnv) == "" {
				errs = append(errs, fmt.Errorf("%s: api_key_env is required for type %q", where, b.Type))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown type %q", where, b.Type))
		}
	}
	if c.DefaultModel != "" && len(c.Backends) > 0 && !seen[c.DefaultModel] {
		errs = append(errs, fmt.Errorf("default_model: %q is not a configured backend", c.DefaultModel))
	}
	return errors.Join(errs...)
}
