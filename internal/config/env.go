package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"oaigate/internal/common/fsutil"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "OAIGATE_"

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	if !fsutil.PathExists(p) {
		return nil
	}
	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("load %s: %w", p, err)
	}
	return nil
}

// ApplyEnv overlays OAIGATE_* variables onto c. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("API_PREFIX"); ok {
		c.APIPrefix = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := get("DEFAULT_MODEL"); ok {
		c.DefaultModel = v
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		c.CORS.Enabled = true
		c.CORS.Origins = SplitCSV(v)
	}
	if v, ok := get("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_BODY_BYTES: %w", EnvPrefix, err)
		}
		c.MaxBodyBytes = n
	}
	if v, ok := get("REQUEST_TIMEOUT_SECONDS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREQUEST_TIMEOUT_SECONDS: %w", EnvPrefix, err)
		}
		c.RequestTimeoutSeconds = n
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty
// entries.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// APIKey resolves the key for b from the environment variable it names.
func (b BackendConfig) APIKey(lookup func(string) (string, bool)) string {
	if b.APIKeyEnv == "" {
		return ""
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(b.APIKeyEnv)
	return strings.TrimSpace(v)
}
