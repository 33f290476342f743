package httpclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPage(t *testing.T) {
	tests := []struct {
		name    string
		links   []string
		current string
		want    string
	}{
		{
			name:    "relative next link",
			links:   []string{`</v2/library/nginx/tags/list?last=1.25&n=100>; rel="next"`},
			current: "https://registry-1.docker.io/v2/library/nginx/tags/list",
			want:    "https://registry-1.docker.io/v2/library/nginx/tags/list?last=1.25&n=100",
		},
		{
			name:    "next among other relations",
			links:   []string{`<https://api.example.com/items?page=1>; rel="prev", <https://api.example.com/items?page=3>; rel="next"`},
			current: "https://api.example.com/items?page=2",
			want:    "https://api.example.com/items?page=3",
		},
		{
			name:    "relations split over several headers",
			links:   []string{`<https://api.example.com/items?page=1>; rel="first"`, `<https://api.example.com/items?page=2>; rel="next"`},
			current: "https://api.example.com/items?page=1",
			want:    "https://api.example.com/items?page=2",
		},
		{
			name:    "last page",
			links:   []string{`<https://api.example.com/items?page=1>; rel="first"`},
			current: "https://api.example.com/items",
			want:    "",
		},
		{name: "no header", current: "https://api.example.com", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for _, value := range tt.links {
				headers.Add("Link", value)
			}
			assert.Equal(t, tt.want, NextPage(headers, tt.current))
		})
	}
}

func TestParseAuthChallenge(t *testing.T) {
	challenge, err := ParseAuthChallenge(`Bearer realm="https://auth.docker.io/token",service="registry.docker.io",scope="repository:library/nginx:pull,push"`)
	require.NoError(t, err)

	assert.Equal(t, "bearer", challenge.Scheme)
	assert.Equal(t, "https://auth.docker.io/token", challenge.Parameters["realm"])
	assert.Equal(t, "registry.docker.io", challenge.Parameters["service"])
	assert.Equal(t, "repository:library/nginx:pull,push", challenge.Parameters["scope"])
}

func TestParseAuthChallenge_Errors(t *testing.T) {
	_, err := ParseAuthChallenge("   ")
	assert.Error(t, err)

	challenge, err := ParseAuthChallenge(`Basic charset="UTF-8"`)
	require.NoError(t, err)
	assert.Equal(t, "basic", challenge.Scheme)
	assert.Empty(t, challenge.Parameters["realm"])
}
