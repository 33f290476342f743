package logger

import (
	"strings"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/rs/zerolog"
)

// Format selects how log lines are rendered.
type Format string

const (
	FormatConsole Format = "console" // colored when written to a terminal stream
	FormatText    Format = "text"    // console layout without colors
	FormatJSON    Format = "json"
)

// Options is the resolved form of config.LogConfig.
type Options struct {
	Level  zerolog.Level
	Format Format

	// FilePath enables the rotating file writer when set.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
}

// DefaultOptions logs info and above to the console.
func DefaultOptions() Options {
	return Options{
		Level:      zerolog.InfoLevel,
		Format:     FormatConsole,
		MaxSizeMB:  config.DefaultMaxLogSizeMB,
		MaxBackups: config.DefaultMaxLogBackups,
	}
}

// OptionsFromConfig resolves cfg. A relative file path is taken relative to baseDir.
func OptionsFromConfig(cfg config.LogConfig, baseDir string) (Options, error) {
	opts := DefaultOptions()

	if cfg.Level != "" {
		level, err := ParseLevel(cfg.Level)
		if err != nil {
			return opts, err
		}
		opts.Level = level
	}
	opts.Format = ParseFormat(cfg.Format)

	if strings.EqualFold(cfg.Type, config.LogTypeFile) {
		path := cfg.Path
		if path == "" {
			path = config.DefaultLogFile
		}
		opts.FilePath = common.ResolvePath(baseDir, path)
	}
	if cfg.MaxSizeMB > 0 {
		opts.MaxSizeMB = cfg.MaxSizeMB
	}
	if cfg.MaxBackups > 0 {
		opts.MaxBackups = cfg.MaxBackups
	}
	return opts, nil
}

// ParseLevel accepts zerolog level names plus "warning".
func ParseLevel(s string) (zerolog.Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "warning" {
		normalized = "warn"
	}
	level, err := zerolog.ParseLevel(normalized)
	if err != nil || normalized == "" {
		return zerolog.InfoLevel, common.NewValidationError("log level", s, "expected debug, info, warn or error")
	}
	return level, nil
}

// ParseFormat falls back to FormatConsole for unknown names.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	default:
		return FormatConsole
	}
}
