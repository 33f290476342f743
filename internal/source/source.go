// Package source supplies watcher configurations, from files or from the main configuration.
package source

import (
	"context"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/registry"
	"github.com/aleister1102/releasewatcher/internal/watcher"
)

// Config is the typed configuration of one source
type Config interface {
	TypeName() string
	String() string
}

// Source produces watcher configurations
type Source interface {
	// ReadWatcherConfigs returns every watcher configuration that parsed successfully.
	// Invalid entries are logged and skipped.
	ReadWatcherConfigs(ctx context.Context) ([]watcher.Config, error)
}

// Type parses the configuration of a source kind and builds sources from it
type Type interface {
	Name() string
	ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error)
	Create(cfg Config, loader *Loader) (Source, error)
}

// Registry resolves source type names
type Registry = registry.Registry[Type]

// NewRegistry creates a registry holding the given types
func NewRegistry(types ...Type) *Registry {
	r := registry.New[Type]("source")
	for _, t := range types {
		r.Register(t.Name(), t)
	}
	return r
}

// BuiltinTypes returns every source kind shipped with the binary
func BuiltinTypes() []Type {
	return []Type{FileType{}, InlineType{}}
}

// NewDefaultRegistry creates a registry with every built-in source kind
func NewDefaultRegistry() *Registry {
	return NewRegistry(BuiltinTypes()...)
}
