package watcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/httpclient"
	"github.com/rs/zerolog"
)

const gitlabPageSize = 100

// GitlabConfig holds the fields shared by the gitlab_* watchers.
type GitlabConfig struct {
	BaseConfig              `yaml:",inline"`
	Repo                    string `yaml:"repo" validate:"required"`
	APIURL                  string `yaml:"api_url" validate:"required,url"`
	Token                   string `yaml:"token,omitempty"`
	TimeoutSeconds          int    `yaml:"timeout_seconds" validate:"min=1"`
	RateLimitWaitMaxSeconds int    `yaml:"rate_limit_wait_max_seconds" validate:"min=0"`
}

func newGitlabConfig(typeName string, common config.GitlabConfig) GitlabConfig {
	return GitlabConfig{
		BaseConfig:              BaseConfig{Type: typeName},
		APIURL:                  common.APIURL,
		Token:                   common.Token,
		TimeoutSeconds:          common.TimeoutSeconds,
		RateLimitWaitMaxSeconds: common.RateLimitWaitMaxSeconds,
	}
}

// Name returns the friendly name, defaulting to the project path
func (c GitlabConfig) Name() string {
	return nameOr(c.FriendlyName, c.Repo)
}

// projectURL returns the API URL of a project resource. The project path is sent URL-encoded.
func (c GitlabConfig) projectURL(resource string, query url.Values) string {
	u := fmt.Sprintf("%s/projects/%s/%s", strings.TrimRight(c.APIURL, "/"), url.PathEscape(c.Repo), resource)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c GitlabConfig) newClient(logger zerolog.Logger) (*httpclient.HTTPClient, error) {
	builder := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(config.Seconds(c.TimeoutSeconds)).
		WithRateLimit(httpclient.GitLabRateLimit(config.Seconds(c.RateLimitWaitMaxSeconds)))

	if c.Token != "" {
		builder.WithTransportWrapper(bearerTransport(c.Token))
	}
	return builder.Build()
}

func gitlabPage() url.Values {
	return url.Values{"per_page": {fmt.Sprint(gitlabPageSize)}}
}

// GitlabCommitConfig configures a gitlab_commit watcher
type GitlabCommitConfig struct {
	GitlabConfig `yaml:",inline"`
	Branch       string `yaml:"branch" validate:"required"`
	Commit       string `yaml:"commit" validate:"required"`
}

func (c GitlabCommitConfig) CurrentID() string { return c.Commit }

func (c GitlabCommitConfig) String() string {
	return fmt.Sprintf("%s:%s:%s", c.Repo, c.Branch, c.Commit)
}

// GitlabCommitType watches the commits of a branch
type GitlabCommitType struct{}

func (GitlabCommitType) Name() string { return "gitlab_commit" }

func (t GitlabCommitType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := GitlabCommitConfig{
		GitlabConfig: newGitlabConfig(t.Name(), pc.Common.Gitlab),
		Branch:       "master",
	}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t GitlabCommitType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[GitlabCommitConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	return newAPIWatcher(typed, typed.BaseConfig, logger, typed.newClient, func(ctx context.Context, w *APIWatcher) ([]apiItem, error) {
		query := gitlabPage()
		query.Set("ref_name", typed.Branch)
		return fetchAPIItems(ctx, w.client, typed.projectURL("repository/commits", query), "id", "committed_date")
	}, datedRelease)
}

// GitlabReleaseConfig configures a gitlab_release watcher
type GitlabReleaseConfig struct {
	GitlabConfig `yaml:",inline"`
	Release      string `yaml:"release" validate:"required"`
}

func (c GitlabReleaseConfig) CurrentID() string { return c.Release }

func (c GitlabReleaseConfig) String() string {
	return fmt.Sprintf("%s:%s", c.Repo, c.Release)
}

// GitlabReleaseType watches the releases of a project
type GitlabReleaseType struct{}

func (GitlabReleaseType) Name() string { return "gitlab_release" }

func (t GitlabReleaseType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := GitlabReleaseConfig{GitlabConfig: newGitlabConfig(t.Name(), pc.Common.Gitlab)}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t GitlabReleaseType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[GitlabReleaseConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	return newAPIWatcher(typed, typed.BaseConfig, logger, typed.newClient, func(ctx context.Context, w *APIWatcher) ([]apiItem, error) {
		return fetchAPIItems(ctx, w.client, typed.projectURL("releases", gitlabPage()), "tag_name", "released_at")
	}, datedRelease)
}

// GitlabTagConfig configures a gitlab_tag watcher
type GitlabTagConfig struct {
	GitlabConfig `yaml:",inline"`
	Tag          string `yaml:"tag" validate:"required"`
}

func (c GitlabTagConfig) CurrentID() string { return c.Tag }

func (c GitlabTagConfig) String() string {
	return fmt.Sprintf("%s:%s", c.Repo, c.Tag)
}

// GitlabTagType watches the tags of a project. GitLab embeds the tag commit, no extra call is needed.
type GitlabTagType struct{}

func (GitlabTagType) Name() string { return "gitlab_tag" }

func (t GitlabTagType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := GitlabTagConfig{GitlabConfig: newGitlabConfig(t.Name(), pc.Common.Gitlab)}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t GitlabTagType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[GitlabTagConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	return newAPIWatcher(typed, typed.BaseConfig, logger, typed.newClient, func(ctx context.Context, w *APIWatcher) ([]apiItem, error) {
		return fetchAPIItems(ctx, w.client, typed.projectURL("repository/tags", gitlabPage()), "name", "commit.committed_date")
	}, datedRelease)
}
