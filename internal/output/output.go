// Package output renders watch results to files, metrics endpoints and notification channels.
package output

import (
	"context"
	"fmt"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/aleister1102/releasewatcher/internal/registry"
	"github.com/rs/zerolog"
)

// Config is the typed configuration of one output
type Config interface {
	TypeName() string
	String() string
}

// Output consumes the results of a run. Outputs holding resources also implement io.Closer.
type Output interface {
	Emit(ctx context.Context, results []models.WatchResult) error
}

// Type parses the configuration of an output kind and builds outputs from it
type Type interface {
	Name() string
	ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error)
	Create(cfg Config, logger zerolog.Logger) (Output, error)
}

// Registry resolves output type names
type Registry = registry.Registry[Type]

// NewRegistry creates a registry holding the given types
func NewRegistry(types ...Type) *Registry {
	r := registry.New[Type]("output")
	for _, t := range types {
		r.Register(t.Name(), t)
	}
	return r
}

// BuiltinTypes returns every output kind shipped with the binary
func BuiltinTypes() []Type {
	return []Type{
		CSVFileType{},
		YAMLFileType{},
		PrometheusFileType{},
		PrometheusHTTPType{},
		DiscordWebhookType{},
		ParquetFileType{},
		SQLiteType{},
	}
}

// NewDefaultRegistry creates a registry with every built-in output kind
func NewDefaultRegistry() *Registry {
	return NewRegistry(BuiltinTypes()...)
}

type runIDKey struct{}

// WithRunID attaches the identifier of the current run to ctx
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the run identifier carried by ctx, or an empty string
func RunID(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey{}).(string)
	return runID
}

func decodeEntry(raw config.RawEntry, out interface{}) error {
	if err := raw.Decode(out); err != nil {
		return fmt.Errorf("invalid %s output: %w", raw.Type, err)
	}
	if err := config.ValidateStruct(out); err != nil {
		return fmt.Errorf("invalid %s output: %w", raw.Type, err)
	}
	return nil
}

func configAs[C Config](cfg Config, typeName string) (C, error) {
	typed, ok := cfg.(C)
	if !ok {
		var zero C
		return zero, fmt.Errorf("%s output cannot be created from %T", typeName, cfg)
	}
	return typed, nil
}

func outputLogger(logger zerolog.Logger, component string, cfg Config) zerolog.Logger {
	return logger.With().Str("component", component).Str("output", cfg.String()).Logger()
}
