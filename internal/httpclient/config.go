package httpclient

import (
	"net/http"
	"time"
)

// DefaultUserAgent identifies the watchers to upstream APIs.
const DefaultUserAgent = "releasewatcher/1.0"

// DefaultMaxBodyBytes caps response bodies. Release listings and registry manifests stay far below it.
const DefaultMaxBodyBytes int64 = 32 << 20

// BasicAuth holds credentials sent with every request of a client.
type BasicAuth struct {
	Username string
	Password string
}

// Config holds everything a client is built from.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string // sent with every request, per-request headers win
	BasicAuth    *BasicAuth
	RateLimit    *RateLimitConfig // nil disables quota backoff
	MaxBodyBytes int64            // 0 disables the limit

	// WrapTransport decorates the transport, for instance to inject bearer tokens.
	WrapTransport func(http.RoundTripper) http.RoundTripper
}

// DefaultConfig returns the settings used when a builder option is not given.
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		UserAgent:    DefaultUserAgent,
		Headers:      map[string]string{},
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}
