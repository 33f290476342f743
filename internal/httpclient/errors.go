package httpclient

import (
	"fmt"
	"net/http"
)

const maxErrorBodyBytes = 512

// NetworkError reports a request that never produced a usable response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError reports a response with a non-2xx status code.
// Body holds the start of the response body, which upstream APIs use for error details.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func newHTTPError(statusCode int, url string, body []byte) *HTTPError {
	text := string(body)
	if len(text) > maxErrorBodyBytes {
		text = text[:maxErrorBodyBytes] + "..."
	}
	return &HTTPError{StatusCode: statusCode, URL: url, Body: text}
}
