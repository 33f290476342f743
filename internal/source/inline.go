package source

import (
	"context"
	"fmt"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/watcher"
	"gopkg.in/yaml.v3"
)

// InlineConfig configures watchers embedded in the main configuration file
type InlineConfig struct {
	Type     string            `yaml:"type" validate:"required"`
	Watchers []yaml.Node `yaml:"watchers" validate:"-"`
}

// TypeName returns the registry name of the source kind
func (c InlineConfig) TypeName() string { return c.Type }

func (c InlineConfig) String() string {
	return fmt.Sprintf("inline (%d watchers)", len(c.Watchers))
}

// InlineType reads watchers from the source entry itself
type InlineType struct{}

func (InlineType) Name() string { return "inline" }

func (t InlineType) ParseConfig(_ config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := InlineConfig{Type: t.Name()}
	if err := raw.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid inline source: %w", err)
	}
	if err := config.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid inline source: %w", err)
	}
	return cfg, nil
}

func (t InlineType) Create(cfg Config, loader *Loader) (Source, error) {
	typed, ok := cfg.(InlineConfig)
	if !ok {
		return nil, fmt.Errorf("inline source cannot be created from %T", cfg)
	}
	return &InlineSource{cfg: typed, loader: loader}, nil
}

// InlineSource parses the watchers embedded in its configuration
type InlineSource struct {
	cfg    InlineConfig
	loader *Loader
}

// ReadWatcherConfigs parses the embedded entries, skipping the invalid ones
func (s *InlineSource) ReadWatcherConfigs(_ context.Context) ([]watcher.Config, error) {
	if len(s.cfg.Watchers) == 0 {
		s.loader.logger.Warn().Msg("Inline source declares no watchers")
	}
	return s.loader.ParseWatchers(s.cfg.Watchers, "inline"), nil
}
