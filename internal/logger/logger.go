// Package logger builds the application's zerolog logger from configuration.
package logger

import (
	"io"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/rs/zerolog"
)

// New creates the root logger from the logger section of the configuration.
// Relative log file paths are resolved against configDir.
func New(cfg config.LogConfig, configDir string) (zerolog.Logger, error) {
	return NewLoggerBuilder().WithConfig(cfg, configDir).WithStdLog().Build()
}

// Bootstrap returns the console logger used before the configuration is loaded.
func Bootstrap(w io.Writer) zerolog.Logger {
	return zerolog.New(formatWriter(FormatConsole, w, true)).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}
