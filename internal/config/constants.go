package config

// Core defaults
const (
	DefaultThreads              = 2
	DefaultRunMode              = RunModeOnce
	DefaultSleepDurationSeconds = 5

	RunModeOnce   = "once"
	RunModeRepeat = "repeat"
)

// Logger defaults
const (
	LogTypeStdout = "stdout"
	LogTypeFile   = "file"

	DefaultLogType       = LogTypeStdout
	DefaultLogFile       = "release_watcher.log"
	DefaultLogFormat     = "console"
	DefaultLogLevel      = "info"
	DefaultMaxLogBackups = 3
	DefaultMaxLogSizeMB  = 100
)

// Upstream defaults
const (
	DefaultTimeoutSeconds          = 10
	DefaultRateLimitWaitMaxSeconds = 120

	DefaultGithubAPIURL = "https://api.github.com"
	DefaultGitlabAPIURL = "https://gitlab.com/api/v4"
	DefaultPypiAPIURL   = "https://pypi.org/pypi"
)

// ConfigPathEnv names the environment variable that can point at the configuration file.
const ConfigPathEnv = "RELEASEWATCHER_CONFIG_PATH"
