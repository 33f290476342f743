package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func formatWriter(format Format, out io.Writer, color bool) io.Writer {
	switch format {
	case FormatJSON:
		return out
	case FormatText:
		color = false
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: !color}
}

// rotatingFile never colors its output, escape codes only help terminals.
func rotatingFile(opts Options) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
		return nil, common.WrapErrorf(err, "failed to create log directory for %s", opts.FilePath)
	}
	file := &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		LocalTime:  true,
	}
	return formatWriter(opts.Format, file, false), nil
}
