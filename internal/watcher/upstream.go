package watcher

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aleister1102/releasewatcher/internal/httpclient"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/araddon/dateparse"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// bearerTransport injects a static OAuth2 bearer token into every request.
func bearerTransport(token string) func(http.RoundTripper) http.RoundTripper {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return func(base http.RoundTripper) http.RoundTripper {
		return &oauth2.Transport{Source: source, Base: base}
	}
}

// get performs a GET and turns transport failures and non-2xx answers into watch errors.
// Rate-limit failures keep their own type.
func get(ctx context.Context, client *httpclient.HTTPClient, url string, headers map[string]string) (*httpclient.HTTPResponse, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		var rateErr *models.RateLimitExceededError
		if errors.As(err, &rateErr) {
			return nil, err
		}
		return nil, models.WrapWatchError(err, "call to %s failed", url)
	}
	if !resp.IsSuccess() {
		return nil, models.WrapWatchError(resp.AsError(), "call to %s failed with status %d", url, resp.StatusCode)
	}
	return resp, nil
}

// getJSON performs a GET and parses the body as JSON.
func getJSON(ctx context.Context, client *httpclient.HTTPClient, url string) (gjson.Result, *httpclient.HTTPResponse, error) {
	resp, err := get(ctx, client, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return gjson.Result{}, nil, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}, nil, models.NewWatchError("invalid JSON returned by %s", url)
	}
	return gjson.ParseBytes(resp.Body), resp, nil
}

// requireString returns the string at path or a watch error naming the missing field.
func requireString(item gjson.Result, path, url string) (string, error) {
	value := item.Get(path)
	if !value.Exists() || value.Type == gjson.Null {
		return "", models.NewWatchError("field '%s' missing from response of %s", path, url)
	}
	return value.String(), nil
}

// requireArray returns the elements of a JSON array or a watch error.
func requireArray(value gjson.Result, url string) ([]gjson.Result, error) {
	if !value.IsArray() {
		return nil, models.NewWatchError("expected a JSON array from %s", url)
	}
	return value.Array(), nil
}

// parseTimestamp parses an upstream date. Values without a zone are taken as UTC.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, models.WrapWatchError(err, "invalid date '%s'", value)
	}
	return t.UTC(), nil
}
