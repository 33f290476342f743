package config

// LogConfig defines configuration for logging
type LogConfig struct {
	Type       string `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,logtype"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty" validate:"required_if=Type file"`
	Level      string `json:"level,omitempty" yaml:"level,omitempty" validate:"omitempty,loglevel"`
	Format     string `json:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,logformat"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty" validate:"min=0"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty" validate:"min=0"`
}

// NewDefaultLogConfig creates default log configuration
func NewDefaultLogConfig() LogConfig {
	return LogConfig{
		Type:       DefaultLogType,
		Path:       DefaultLogFile,
		Level:      DefaultLogLevel,
		Format:     DefaultLogFormat,
		MaxBackups: DefaultMaxLogBackups,
		MaxSizeMB:  DefaultMaxLogSizeMB,
	}
}
