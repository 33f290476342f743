package source

import (
	"context"
	"fmt"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/watcher"
	"github.com/rs/zerolog"
)

// FileConfig configures a file source. Path is a glob, relative paths resolve against the
// configuration directory.
type FileConfig struct {
	Type string `yaml:"type" validate:"required"`
	Path string `yaml:"path" validate:"required"`
}

// TypeName returns the registry name of the source kind
func (c FileConfig) TypeName() string { return c.Type }

func (c FileConfig) String() string { return c.Path }

// FileType reads watchers from YAML files
type FileType struct{}

func (FileType) Name() string { return "file" }

func (t FileType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := FileConfig{Type: t.Name()}
	if err := raw.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid file source: %w", err)
	}
	if err := config.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid file source: %w", err)
	}
	cfg.Path = common.ResolvePath(pc.ConfigDir, cfg.Path)
	return cfg, nil
}

func (t FileType) Create(cfg Config, loader *Loader) (Source, error) {
	typed, ok := cfg.(FileConfig)
	if !ok {
		return nil, fmt.Errorf("file source cannot be created from %T", cfg)
	}
	logger := loader.logger.With().Str("component", "FileSource").Str("path", typed.Path).Logger()
	return &FileSource{
		cfg:         typed,
		loader:      loader,
		fileManager: common.NewFileManager(logger),
		logger:      logger,
	}, nil
}

// FileSource reads every file matching a glob
type FileSource struct {
	cfg         FileConfig
	loader      *Loader
	fileManager *common.FileManager
	logger      zerolog.Logger
}

// ReadWatcherConfigs parses each matching file. Unreadable or malformed files are logged and skipped.
func (s *FileSource) ReadWatcherConfigs(ctx context.Context) ([]watcher.Config, error) {
	paths, err := s.fileManager.Glob(s.cfg.Path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		s.logger.Warn().Msg("No watcher file matches the source path")
		return nil, nil
	}

	var configs []watcher.Config
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return configs, err
		}

		data, err := s.fileManager.ReadFile(path)
		if err != nil {
			s.logger.Error().Err(err).Str("file", path).Msg("Skipping unreadable watcher file")
			continue
		}
		parsed, err := s.loader.ParseDocument(data, path)
		if err != nil {
			s.logger.Error().Err(err).Str("file", path).Msg("Skipping malformed watcher file")
			continue
		}
		s.logger.Debug().Str("file", path).Int("watchers", len(parsed)).Msg("Watcher file read")
		configs = append(configs, parsed...)
	}
	return configs, nil
}
