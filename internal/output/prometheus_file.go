package output

import (
	"context"
	"path/filepath"
	"time"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// PrometheusFileConfig configures a prometheus_file output
type PrometheusFileConfig struct {
	Type string `yaml:"type" validate:"required"`
	Path string `yaml:"path" validate:"required"`
}

// TypeName returns the registry name of the output kind
func (c PrometheusFileConfig) TypeName() string { return c.Type }

func (c PrometheusFileConfig) String() string { return c.Type + ":" + c.Path }

// PrometheusFileType builds prometheus_file outputs
type PrometheusFileType struct{}

// Name returns the registry name of the kind
func (PrometheusFileType) Name() string { return "prometheus_file" }

// ParseConfig decodes a prometheus_file entry
func (t PrometheusFileType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	var cfg PrometheusFileConfig
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.Path = common.ResolvePath(pc.ConfigDir, cfg.Path)
	return cfg, nil
}

// Create builds a PrometheusFileOutput
func (t PrometheusFileType) Create(cfg Config, logger zerolog.Logger) (Output, error) {
	typed, err := configAs[PrometheusFileConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	gauges, err := newReleaseGauges(registry)
	if err != nil {
		return nil, common.WrapError(err, "failed to register release gauges")
	}

	logger = outputLogger(logger, "PrometheusFileOutput", typed)
	return &PrometheusFileOutput{
		cfg:         typed,
		registry:    registry,
		gauges:      gauges,
		fileManager: common.NewFileManager(logger),
		logger:      logger,
		now:         time.Now,
	}, nil
}

// PrometheusFileOutput writes the release gauges in the text exposition format,
// for a node-exporter textfile collector for instance
type PrometheusFileOutput struct {
	cfg         PrometheusFileConfig
	registry    *prometheus.Registry
	gauges      *releaseGauges
	fileManager *common.FileManager
	logger      zerolog.Logger
	now         func() time.Time
}

// Emit replaces the gauges with the results and writes the file
func (o *PrometheusFileOutput) Emit(_ context.Context, results []models.WatchResult) error {
	if err := o.fileManager.EnsureDirectory(filepath.Dir(o.cfg.Path), 0755); err != nil {
		return err
	}

	o.gauges.set(results, o.now())
	if err := prometheus.WriteToTextfile(o.cfg.Path, o.registry); err != nil {
		return common.WrapErrorf(err, "failed to write metrics file: %s", o.cfg.Path)
	}
	o.logger.Info().Int("results", len(results)).Str("path", o.cfg.Path).Msg("Metrics file written")
	return nil
}
