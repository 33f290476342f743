package logger

import (
	"io"
	stdlog "log"
	"os"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/rs/zerolog"
)

// LoggerBuilder provides fluent interface for building loggers
type LoggerBuilder struct {
	opts          Options
	stream        io.Writer
	captureStdLog bool
	err           error
}

// NewLoggerBuilder starts from DefaultOptions writing to stdout
func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{opts: DefaultOptions(), stream: os.Stdout}
}

// WithConfig resolves the logger section of the configuration
func (lb *LoggerBuilder) WithConfig(cfg config.LogConfig, baseDir string) *LoggerBuilder {
	opts, err := OptionsFromConfig(cfg, baseDir)
	if err != nil {
		lb.err = err
		return lb
	}
	lb.opts = opts
	return lb
}

// WithLevel overrides the configured level
func (lb *LoggerBuilder) WithLevel(level zerolog.Level) *LoggerBuilder {
	lb.opts.Level = level
	return lb
}

// WithOutput replaces stdout when logging to a stream
func (lb *LoggerBuilder) WithOutput(w io.Writer) *LoggerBuilder {
	lb.stream = w
	return lb
}

// WithStdLog routes the standard log package, used by net/http for instance, through the logger
func (lb *LoggerBuilder) WithStdLog() *LoggerBuilder {
	lb.captureStdLog = true
	return lb
}

// Build creates the logger
func (lb *LoggerBuilder) Build() (zerolog.Logger, error) {
	if lb.err != nil {
		return zerolog.Nop(), lb.err
	}
	if lb.opts.FilePath != "" && lb.opts.MaxSizeMB <= 0 {
		return zerolog.Nop(), common.NewValidationError("max_size_mb", lb.opts.MaxSizeMB, "must be positive")
	}

	var w io.Writer
	if lb.opts.FilePath != "" {
		file, err := rotatingFile(lb.opts)
		if err != nil {
			return zerolog.Nop(), err
		}
		w = file
	} else {
		w = formatWriter(lb.opts.Format, lb.stream, true)
	}

	logger := zerolog.New(w).Level(lb.opts.Level).With().Timestamp().Logger()
	if lb.captureStdLog {
		stdlog.SetFlags(0)
		stdlog.SetOutput(logger)
	}
	return logger, nil
}
