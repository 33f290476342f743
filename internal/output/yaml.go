package output

import (
	"context"
	"time"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// YAMLFileConfig configures a yaml_file output
type YAMLFileConfig struct {
	Type            string `yaml:"type" validate:"required"`
	Path            string `yaml:"path" validate:"required"`
	DisplayUpToDate bool   `yaml:"display_up_to_date"`
}

// TypeName returns the registry name of the output kind
func (c YAMLFileConfig) TypeName() string { return c.Type }

func (c YAMLFileConfig) String() string { return c.Type + ":" + c.Path }

// YAMLFileType builds yaml_file outputs
type YAMLFileType struct{}

// Name returns the registry name of the kind
func (YAMLFileType) Name() string { return "yaml_file" }

// ParseConfig decodes a yaml_file entry
func (t YAMLFileType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := YAMLFileConfig{DisplayUpToDate: true}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.Path = common.ResolvePath(pc.ConfigDir, cfg.Path)
	return cfg, nil
}

// Create builds a YAMLFileOutput
func (t YAMLFileType) Create(cfg Config, logger zerolog.Logger) (Output, error) {
	typed, err := configAs[YAMLFileConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	logger = outputLogger(logger, "YAMLFileOutput", typed)
	return &YAMLFileOutput{
		cfg:         typed,
		fileManager: common.NewFileManager(logger),
		logger:      logger,
	}, nil
}

type yamlRelease struct {
	Name string    `yaml:"name"`
	Date time.Time `yaml:"date"`
}

type yamlResult struct {
	Type               string        `yaml:"type"`
	Name               string        `yaml:"name"`
	CurrentRelease     string        `yaml:"current_release,omitempty"`
	CurrentReleaseDate *time.Time    `yaml:"current_release_date,omitempty"`
	MissedReleaseCount int           `yaml:"missed_release_count"`
	MissedReleases     []yamlRelease `yaml:"missed_releases"`
	NewestRelease      *yamlRelease  `yaml:"newest_release,omitempty"`
}

type yamlDocument struct {
	Results []yamlResult `yaml:"results"`
}

// YAMLFileOutput writes a results document, replacing the file on every emit
type YAMLFileOutput struct {
	cfg         YAMLFileConfig
	fileManager *common.FileManager
	logger      zerolog.Logger
}

// Emit renders the results and writes the file
func (o *YAMLFileOutput) Emit(_ context.Context, results []models.WatchResult) error {
	doc := yamlDocument{Results: []yamlResult{}}
	for _, row := range buildRows(results, o.cfg.DisplayUpToDate) {
		entry := yamlResult{
			Type:               row.Type,
			Name:               row.Name,
			CurrentRelease:     row.CurrentRelease,
			CurrentReleaseDate: row.CurrentReleaseDate,
			MissedReleaseCount: row.MissedCount,
			MissedReleases:     []yamlRelease{},
		}
		for _, missed := range row.MissedReleases {
			entry.MissedReleases = append(entry.MissedReleases, yamlRelease{Name: missed.Name, Date: missed.ReleaseDate.UTC()})
		}
		if row.NewestReleaseDate != nil {
			entry.NewestRelease = &yamlRelease{Name: row.NewestRelease, Date: *row.NewestReleaseDate}
		}
		doc.Results = append(doc.Results, entry)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return common.WrapError(err, "failed to marshal yaml results")
	}
	if err := o.fileManager.WriteFile(o.cfg.Path, data, common.DefaultFileWriteOptions()); err != nil {
		return err
	}
	o.logger.Info().Int("results", len(doc.Results)).Str("path", o.cfg.Path).Msg("YAML file written")
	return nil
}
