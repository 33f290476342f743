package config

import "time"

// CommonConfig holds per-upstream defaults inherited by every watcher of that upstream.
type CommonConfig struct {
	Github  GithubConfig  `json:"github,omitempty" yaml:"github,omitempty"`
	Gitlab  GitlabConfig  `json:"gitlab,omitempty" yaml:"gitlab,omitempty"`
	Docker  DockerConfig  `json:"docker,omitempty" yaml:"docker,omitempty"`
	Pypi    PypiConfig    `json:"pypi,omitempty" yaml:"pypi,omitempty"`
	RawHTML RawHTMLConfig `json:"raw_html,omitempty" yaml:"raw_html,omitempty"`
}

// GithubConfig holds the defaults of the github_* watchers.
type GithubConfig struct {
	APIURL                  string `json:"api_url,omitempty" yaml:"api_url,omitempty" validate:"required,url"`
	Username                string `json:"username,omitempty" yaml:"username,omitempty"`
	Password                string `json:"password,omitempty" yaml:"password,omitempty"`
	Token                   string `json:"token,omitempty" yaml:"token,omitempty"`
	TimeoutSeconds          int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=1"`
	RateLimitWaitMaxSeconds int    `json:"rate_limit_wait_max_seconds,omitempty" yaml:"rate_limit_wait_max_seconds,omitempty" validate:"min=0"`
}

// GitlabConfig holds the defaults of the gitlab_* watchers.
type GitlabConfig struct {
	APIURL                  string `json:"api_url,omitempty" yaml:"api_url,omitempty" validate:"required,url"`
	Token                   string `json:"token,omitempty" yaml:"token,omitempty"`
	TimeoutSeconds          int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=1"`
	RateLimitWaitMaxSeconds int    `json:"rate_limit_wait_max_seconds,omitempty" yaml:"rate_limit_wait_max_seconds,omitempty" validate:"min=0"`
}

// DockerConfig holds the defaults of the docker_registry watcher.
type DockerConfig struct {
	Username       string `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=1"`
}

// PypiConfig holds the defaults of the pypi watcher.
type PypiConfig struct {
	APIURL         string `json:"api_url,omitempty" yaml:"api_url,omitempty" validate:"required,url"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=1"`
}

// RawHTMLConfig holds the defaults of the raw_html watcher.
type RawHTMLConfig struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=1"`
}

// NewDefaultCommonConfig creates default upstream configuration
func NewDefaultCommonConfig() CommonConfig {
	return CommonConfig{
		Github: GithubConfig{
			APIURL:                  DefaultGithubAPIURL,
			TimeoutSeconds:          DefaultTimeoutSeconds,
			RateLimitWaitMaxSeconds: DefaultRateLimitWaitMaxSeconds,
		},
		Gitlab: GitlabConfig{
			APIURL:                  DefaultGitlabAPIURL,
			TimeoutSeconds:          DefaultTimeoutSeconds,
			RateLimitWaitMaxSeconds: DefaultRateLimitWaitMaxSeconds,
		},
		Docker: DockerConfig{
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Pypi: PypiConfig{
			APIURL:         DefaultPypiAPIURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		RawHTML: RawHTMLConfig{
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}
}

// Seconds converts a configured number of seconds into a duration.
func Seconds(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
