package httpapi

import "strings"

const defaultMaxBodyBytes int64 = 1 << 20

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes = defaultMaxBodyBytes

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
		return
	}
	maxBodyBytes = n
}

// requestTimeout bounds a generation request in seconds. Zero means the
// request runs until it finishes or the client goes away.
var requestTimeout = int64(0)

// SetRequestTimeoutSeconds sets the generation timeout in seconds (0 disables).
func SetRequestTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	requestTimeout = sec
}

// apiPrefix is where the OpenAI-compatible routes are mounted.
var apiPrefix = "/v1"

// SetAPIPrefix changes the mount point of the OpenAI-compatible routes.
// An empty prefix restores /v1.
func SetAPIPrefix(p string) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		apiPrefix = "/v1"
		return
	}
	apiPrefix = "/" + p
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
