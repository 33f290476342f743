package httpclient

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClientBuilder assembles a Config step by step. Watchers start from DefaultConfig
// and add the upstream specific bits: auth, accept headers, quota headers.
type HTTPClientBuilder struct {
	config Config
	logger zerolog.Logger
}

// NewHTTPClientBuilder starts from DefaultConfig
func NewHTTPClientBuilder(logger zerolog.Logger) *HTTPClientBuilder {
	return &HTTPClientBuilder{config: DefaultConfig(), logger: logger}
}

// WithTimeout bounds each request, retries included
func (b *HTTPClientBuilder) WithTimeout(timeout time.Duration) *HTTPClientBuilder {
	b.config.Timeout = timeout
	return b
}

// WithUserAgent replaces DefaultUserAgent
func (b *HTTPClientBuilder) WithUserAgent(userAgent string) *HTTPClientBuilder {
	b.config.UserAgent = userAgent
	return b
}

// WithHeader adds a header sent with every request
func (b *HTTPClientBuilder) WithHeader(key, value string) *HTTPClientBuilder {
	if b.config.Headers == nil {
		b.config.Headers = map[string]string{}
	}
	b.config.Headers[key] = value
	return b
}

// WithBasicAuth sets credentials for basic authentication. An empty username disables it.
func (b *HTTPClientBuilder) WithBasicAuth(username, password string) *HTTPClientBuilder {
	if username == "" {
		b.config.BasicAuth = nil
		return b
	}
	b.config.BasicAuth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithRateLimit enables quota backoff driven by the given headers
func (b *HTTPClientBuilder) WithRateLimit(config RateLimitConfig) *HTTPClientBuilder {
	b.config.RateLimit = &config
	return b
}

// WithTransportWrapper decorates the underlying transport
func (b *HTTPClientBuilder) WithTransportWrapper(wrap func(http.RoundTripper) http.RoundTripper) *HTTPClientBuilder {
	b.config.WrapTransport = wrap
	return b
}

// WithMaxBodyBytes replaces DefaultMaxBodyBytes, 0 disables the limit
func (b *HTTPClientBuilder) WithMaxBodyBytes(limit int64) *HTTPClientBuilder {
	b.config.MaxBodyBytes = limit
	return b
}

// Build creates the client
func (b *HTTPClientBuilder) Build() (*HTTPClient, error) {
	return NewHTTPClient(b.config, b.logger)
}
