package source

import (
	"fmt"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/watcher"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// watcherDocument is the layout of a document listing watchers
type watcherDocument struct {
	Watchers []yaml.Node `yaml:"watchers"`
}

// Loader turns raw watcher entries into typed watcher configurations
type Loader struct {
	watchers *watcher.Registry
	pc       config.ParseContext
	logger   zerolog.Logger
}

// NewLoader creates a loader resolving watcher types through watchers
func NewLoader(watchers *watcher.Registry, pc config.ParseContext, logger zerolog.Logger) *Loader {
	return &Loader{
		watchers: watchers,
		pc:       pc,
		logger:   logger.With().Str("component", "WatcherLoader").Logger(),
	}
}

// ParseDocument parses a YAML document with a top-level watchers list.
func (l *Loader) ParseDocument(data []byte, origin string) ([]watcher.Config, error) {
	var doc watcherDocument
	if err := yaml.Unmarshal(config.ExpandEnvReferences(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse watchers from %s: %w", origin, err)
	}
	if len(doc.Watchers) == 0 {
		l.logger.Warn().Str("origin", origin).Msg("No watchers declared")
	}
	return l.ParseWatchers(doc.Watchers, origin), nil
}

// ParseWatchers parses each entry independently. An entry that fails is logged and skipped.
func (l *Loader) ParseWatchers(entries []yaml.Node, origin string) []watcher.Config {
	configs := make([]watcher.Config, 0, len(entries))
	for i := range entries {
		cfg, err := l.parseWatcher(&entries[i])
		if err != nil {
			l.logger.Error().
				Err(err).
				Str("origin", origin).
				Int("index", i).
				Int("line", entries[i].Line).
				Msg("Skipping invalid watcher configuration")
			continue
		}
		l.logger.Debug().Str("origin", origin).Str("watcher", cfg.String()).Str("type", cfg.TypeName()).Msg("Watcher configured")
		configs = append(configs, cfg)
	}
	return configs
}

func (l *Loader) parseWatcher(node *yaml.Node) (watcher.Config, error) {
	var entry config.RawEntry
	if err := entry.UnmarshalYAML(node); err != nil {
		return nil, err
	}
	if entry.Type == "" {
		return nil, fmt.Errorf("missing type property on watcher configuration")
	}
	watcherType, err := l.watchers.Lookup(entry.Type)
	if err != nil {
		return nil, err
	}
	return watcherType.ParseConfig(l.pc, entry)
}
