package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/peterhellberg/link"
)

// NextPage returns the rel="next" target of the Link header, resolved against the URL
// of the page just read. It returns an empty string on the last page.
func NextPage(headers http.Header, current string) string {
	next, ok := link.ParseHeader(headers)["next"]
	if !ok || next.URI == "" {
		return ""
	}
	return resolveReference(current, next.URI)
}

// AuthChallenge is a parsed WWW-Authenticate challenge
type AuthChallenge struct {
	Scheme     string
	Parameters map[string]string
}

// ParseAuthChallenge parses a single WWW-Authenticate challenge such as
// `Bearer realm="https://auth.docker.io/token",service="registry.docker.io",scope="repository:library/nginx:pull"`.
func ParseAuthChallenge(header string) (AuthChallenge, error) {
	header = strings.TrimSpace(header)
	scheme, rest, _ := strings.Cut(header, " ")
	if scheme == "" {
		return AuthChallenge{}, fmt.Errorf("empty authentication challenge")
	}

	challenge := AuthChallenge{Scheme: strings.ToLower(scheme), Parameters: map[string]string{}}
	for _, param := range splitParams(rest) {
		key, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found {
			continue
		}
		challenge.Parameters[strings.ToLower(strings.TrimSpace(key))] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return challenge, nil
}

// splitParams splits auth-params on commas, keeping quoted values such as
// scope="repository:app:pull,push" whole.
func splitParams(s string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func resolveReference(base, target string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return target
	}
	ref, err := url.Parse(target)
	if err != nil {
		return target
	}
	return baseURL.ResolveReference(ref).String()
}
