// Package httpclient wraps net/http with the transport settings, authentication and
// rate-limit handling shared by every upstream watcher.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// HTTPRequest represents an HTTP request
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    io.Reader
	Context context.Context
}

// HTTPResponse is a fully read response
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	URL        string
}

// IsSuccess reports a 2xx status code
func (r *HTTPResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// AsError describes the response as an *HTTPError
func (r *HTTPResponse) AsError() error {
	return newHTTPError(r.StatusCode, r.URL, r.Body)
}

// HTTPClient performs requests against one kind of upstream
type HTTPClient struct {
	client    *http.Client
	config    Config
	logger    zerolog.Logger
	rateLimit *RateLimitHandler
}

// NewHTTPClient creates a client from config
func NewHTTPClient(config Config, logger zerolog.Logger) (*HTTPClient, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
	}

	var roundTripper http.RoundTripper = transport
	if config.WrapTransport != nil {
		roundTripper = config.WrapTransport(roundTripper)
	}

	c := &HTTPClient{
		client: &http.Client{Transport: roundTripper, Timeout: config.Timeout},
		config: config,
		logger: logger,
	}
	if config.RateLimit != nil {
		c.rateLimit = NewRateLimitHandler(*config.RateLimit, logger)
	}

	logger.Debug().
		Dur("timeout", config.Timeout).
		Bool("rate_limit_backoff", config.RateLimit != nil).
		Msg("HTTP client created")
	return c, nil
}

// Transport returns the round tripper of the client, for libraries that issue their own requests.
func (c *HTTPClient) Transport() http.RoundTripper {
	return c.client.Transport
}

// Do performs req, waiting out an exhausted upstream quota once when configured.
func (c *HTTPClient) Do(req *HTTPRequest) (*HTTPResponse, error) {
	if c.rateLimit == nil {
		return c.do(req)
	}
	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return c.rateLimit.DoWithRateLimit(ctx, c.do, req)
}

// Get performs a GET request with optional extra headers
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*HTTPResponse, error) {
	return c.Do(&HTTPRequest{URL: url, Method: http.MethodGet, Headers: headers, Context: ctx})
}

func (c *HTTPClient) do(req *HTTPRequest) (*HTTPResponse, error) {
	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, req.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: req.URL, Err: err}
	}

	httpReq.Header.Set("Accept", "*/*")
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	for key, value := range c.config.Headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if c.config.BasicAuth != nil && httpReq.Header.Get("Authorization") == "" {
		httpReq.SetBasicAuth(c.config.BasicAuth.Username, c.config.BasicAuth.Password)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: req.URL, Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", req.URL).
		Int("status_code", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("HTTP request completed")

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		URL:        req.URL,
	}, nil
}

func (c *HTTPClient) readBody(r io.Reader) ([]byte, error) {
	limit := c.config.MaxBodyBytes
	if limit <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}
