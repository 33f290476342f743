package watcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/httpclient"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
)

const githubPageSize = 100

// GithubConfig holds the fields shared by the github_* watchers.
type GithubConfig struct {
	BaseConfig              `yaml:",inline"`
	Repo                    string `yaml:"repo" validate:"required"`
	APIURL                  string `yaml:"api_url" validate:"required,url"`
	Username                string `yaml:"username,omitempty"`
	Password                string `yaml:"password,omitempty"`
	Token                   string `yaml:"token,omitempty"`
	TimeoutSeconds          int    `yaml:"timeout_seconds" validate:"min=1"`
	RateLimitWaitMaxSeconds int    `yaml:"rate_limit_wait_max_seconds" validate:"min=0"`
}

func newGithubConfig(typeName string, common config.GithubConfig) GithubConfig {
	return GithubConfig{
		BaseConfig:              BaseConfig{Type: typeName},
		APIURL:                  common.APIURL,
		Username:                common.Username,
		Password:                common.Password,
		Token:                   common.Token,
		TimeoutSeconds:          common.TimeoutSeconds,
		RateLimitWaitMaxSeconds: common.RateLimitWaitMaxSeconds,
	}
}

// Name returns the friendly name, defaulting to the repository
func (c GithubConfig) Name() string {
	return nameOr(c.FriendlyName, c.Repo)
}

// repoURL returns the API URL of a repository resource.
func (c GithubConfig) repoURL(resource string, query url.Values) string {
	u := fmt.Sprintf("%s/repos/%s/%s", strings.TrimRight(c.APIURL, "/"), c.Repo, resource)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// newClient builds a client authenticating with the token, or basic credentials when no token is set.
func (c GithubConfig) newClient(logger zerolog.Logger) (*httpclient.HTTPClient, error) {
	builder := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(config.Seconds(c.TimeoutSeconds)).
		WithHeader("Accept", "application/vnd.github+json").
		WithRateLimit(httpclient.GitHubRateLimit(config.Seconds(c.RateLimitWaitMaxSeconds)))

	if c.Token != "" {
		builder.WithTransportWrapper(bearerTransport(c.Token))
	} else {
		builder.WithBasicAuth(c.Username, c.Password)
	}
	return builder.Build()
}

// GithubCommitConfig configures a github_commit watcher
type GithubCommitConfig struct {
	GithubConfig `yaml:",inline"`
	Branch       string `yaml:"branch" validate:"required"`
	Commit       string `yaml:"commit" validate:"required"`
}

func (c GithubCommitConfig) CurrentID() string { return c.Commit }

func (c GithubCommitConfig) String() string {
	return fmt.Sprintf("%s:%s:%s", c.Repo, c.Branch, c.Commit)
}

// GithubCommitType watches the commits of a branch
type GithubCommitType struct{}

func (GithubCommitType) Name() string { return "github_commit" }

func (t GithubCommitType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := GithubCommitConfig{
		GithubConfig: newGithubConfig(t.Name(), pc.Common.Github),
		Branch:       "master",
	}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t GithubCommitType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[GithubCommitConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	return newAPIWatcher(typed, typed.BaseConfig, logger, typed.newClient, func(ctx context.Context, w *APIWatcher) ([]apiItem, error) {
		query := url.Values{"sha": {typed.Branch}, "per_page": {fmt.Sprint(githubPageSize)}}
		return fetchAPIItems(ctx, w.client, typed.repoURL("commits", query), "sha", "commit.committer.date")
	}, datedRelease)
}

// GithubReleaseConfig configures a github_release watcher
type GithubReleaseConfig struct {
	GithubConfig `yaml:",inline"`
	Release      string `yaml:"release" validate:"required"`
}

func (c GithubReleaseConfig) CurrentID() string { return c.Release }

func (c GithubReleaseConfig) String() string {
	return fmt.Sprintf("%s:%s", c.Repo, c.Release)
}

// GithubReleaseType watches the published releases of a repository
type GithubReleaseType struct{}

func (GithubReleaseType) Name() string { return "github_release" }

func (t GithubReleaseType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := GithubReleaseConfig{GithubConfig: newGithubConfig(t.Name(), pc.Common.Github)}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t GithubReleaseType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[GithubReleaseConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	return newAPIWatcher(typed, typed.BaseConfig, logger, typed.newClient, func(ctx context.Context, w *APIWatcher) ([]apiItem, error) {
		query := url.Values{"per_page": {fmt.Sprint(githubPageSize)}}
		return fetchAPIItems(ctx, w.client, typed.repoURL("releases", query), "tag_name", "published_at")
	}, datedRelease)
}

// GithubTagConfig configures a github_tag watcher
type GithubTagConfig struct {
	GithubConfig `yaml:",inline"`
	Tag          string `yaml:"tag" validate:"required"`
}

func (c GithubTagConfig) CurrentID() string { return c.Tag }

func (c GithubTagConfig) String() string {
	return fmt.Sprintf("%s:%s", c.Repo, c.Tag)
}

// GithubTagType watches the tags of a repository. Tag dates come from their commits.
type GithubTagType struct{}

func (GithubTagType) Name() string { return "github_tag" }

func (t GithubTagType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := GithubTagConfig{GithubConfig: newGithubConfig(t.Name(), pc.Common.Github)}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t GithubTagType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[GithubTagConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}

	return newAPIWatcher(typed, typed.BaseConfig, logger, typed.newClient, func(ctx context.Context, w *APIWatcher) ([]apiItem, error) {
		query := url.Values{"per_page": {fmt.Sprint(githubPageSize)}}
		u := typed.repoURL("tags", query)
		items, err := fetchAPIItems(ctx, w.client, u, "name", "")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.CommitURL == "" {
				return nil, models.NewWatchError("field 'commit.url' missing from response of %s", u)
			}
		}
		return items, nil
	}, resolveGithubTag)
}

// resolveGithubTag dates a tag with the committer date of its commit.
func resolveGithubTag(ctx context.Context, w *APIWatcher, item apiItem) (models.Release, error) {
	commit, _, err := getJSON(ctx, w.client, item.CommitURL)
	if err != nil {
		return models.Release{}, err
	}
	if item.Date, err = requireString(commit, "commit.committer.date", item.CommitURL); err != nil {
		return models.Release{}, err
	}
	return datedRelease(ctx, w, item)
}

