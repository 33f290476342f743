// Package watcher defines the watcher contracts, the shared filter-and-compare algorithm
// and every built-in watcher kind.
package watcher

import (
	"context"
	"fmt"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/aleister1102/releasewatcher/internal/registry"
	"github.com/rs/zerolog"
)

// Config is the typed, immutable configuration of one watcher.
type Config interface {
	models.WatcherConfig
}

// Watcher tracks one artifact against one upstream.
type Watcher interface {
	Config() Config
	// Watch fetches the upstream candidates and compares them with the current identifier.
	Watch(ctx context.Context) (models.WatchResult, error)
}

// Type parses the configuration of a watcher kind and builds watchers from it.
type Type interface {
	Name() string
	ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error)
	Create(cfg Config, logger zerolog.Logger) (Watcher, error)
}

// Registry resolves watcher type names.
type Registry = registry.Registry[Type]

// NewRegistry creates a registry holding the given types, later entries winning on name clashes.
func NewRegistry(types ...Type) *Registry {
	r := registry.New[Type]("watcher")
	for _, t := range types {
		r.Register(t.Name(), t)
	}
	return r
}

// BuiltinTypes returns every watcher kind shipped with the binary, in registration order.
func BuiltinTypes() []Type {
	return []Type{
		GithubCommitType{},
		GithubReleaseType{},
		GithubTagType{},
		GitlabCommitType{},
		GitlabReleaseType{},
		GitlabTagType{},
		DockerRegistryType{},
		PypiType{},
		RawHTMLType{},
	}
}

// NewDefaultRegistry creates a registry with every built-in watcher kind.
func NewDefaultRegistry() *Registry {
	return NewRegistry(BuiltinTypes()...)
}

// BaseConfig holds the fields shared by every watcher kind.
type BaseConfig struct {
	Type         string   `yaml:"type" validate:"required"`
	FriendlyName string   `yaml:"name,omitempty"`
	Includes     []string `yaml:"includes,omitempty" validate:"dive,regexp"`
	Excludes     []string `yaml:"excludes,omitempty" validate:"dive,regexp"`
	Constraint   string   `yaml:"constraint,omitempty"`
}

// TypeName returns the registry name of the watcher kind
func (c BaseConfig) TypeName() string {
	return c.Type
}

func (c BaseConfig) filter() (*Filter, error) {
	return NewFilter(c.Includes, c.Excludes, c.Constraint)
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// decodeEntry decodes raw over out, which carries the inherited defaults, and validates the result.
func decodeEntry(raw config.RawEntry, out interface{}) error {
	if err := raw.Decode(out); err != nil {
		return fmt.Errorf("invalid %s watcher: %w", raw.Type, err)
	}
	if err := config.ValidateStruct(out); err != nil {
		return fmt.Errorf("invalid %s watcher: %w", raw.Type, err)
	}
	return nil
}

// configAs asserts the concrete config type handed to a Type's Create.
func configAs[C Config](cfg Config, typeName string) (C, error) {
	typed, ok := cfg.(C)
	if !ok {
		var zero C
		return zero, fmt.Errorf("%s watcher cannot be created from %T", typeName, cfg)
	}
	return typed, nil
}

func watcherLogger(logger zerolog.Logger, cfg Config) zerolog.Logger {
	return logger.With().
		Str("component", "Watcher").
		Str("type", cfg.TypeName()).
		Str("watcher", cfg.String()).
		Logger()
}
