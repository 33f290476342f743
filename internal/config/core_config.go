package config

import "time"

// CoreConfig controls how watchers are run.
type CoreConfig struct {
	Threads              int    `json:"threads,omitempty" yaml:"threads,omitempty" validate:"min=1"`
	RunMode              string `json:"run_mode,omitempty" yaml:"run_mode,omitempty" validate:"required,runmode"`
	SleepDurationSeconds int    `json:"sleep_duration_seconds,omitempty" yaml:"sleep_duration_seconds,omitempty" validate:"min=1"`
}

// NewDefaultCoreConfig creates default core configuration
func NewDefaultCoreConfig() CoreConfig {
	return CoreConfig{
		Threads:              DefaultThreads,
		RunMode:              DefaultRunMode,
		SleepDurationSeconds: DefaultSleepDurationSeconds,
	}
}

// SleepDuration returns the pause between two runs in repeat mode.
func (c CoreConfig) SleepDuration() time.Duration {
	return time.Duration(c.SleepDurationSeconds) * time.Second
}
