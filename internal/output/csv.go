package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
)

// CSVHeader is the first line written by csv_file outputs
var CSVHeader = []string{
	"Type",
	"Name",
	"Current release",
	"Current release date",
	"Missed releases",
	"Newest release",
	"Newest release date",
}

// CSVFileConfig configures a csv_file output
type CSVFileConfig struct {
	Type            string `yaml:"type" validate:"required"`
	Path            string `yaml:"path" validate:"required"`
	DisplayUpToDate bool   `yaml:"display_up_to_date"`
	DisplayHeader   bool   `yaml:"display_header"`
}

// TypeName returns the registry name of the output kind
func (c CSVFileConfig) TypeName() string { return c.Type }

func (c CSVFileConfig) String() string { return c.Type + ":" + c.Path }

// CSVFileType builds csv_file outputs
type CSVFileType struct{}

// Name returns the registry name of the kind
func (CSVFileType) Name() string { return "csv_file" }

// ParseConfig decodes a csv_file entry
func (t CSVFileType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := CSVFileConfig{DisplayUpToDate: true, DisplayHeader: true}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.Path = common.ResolvePath(pc.ConfigDir, cfg.Path)
	return cfg, nil
}

// Create builds a CSVFileOutput
func (t CSVFileType) Create(cfg Config, logger zerolog.Logger) (Output, error) {
	typed, err := configAs[CSVFileConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	logger = outputLogger(logger, "CSVFileOutput", typed)
	return &CSVFileOutput{
		cfg:         typed,
		fileManager: common.NewFileManager(logger),
		logger:      logger,
	}, nil
}

// CSVFileOutput writes one line per result, replacing the file on every emit
type CSVFileOutput struct {
	cfg         CSVFileConfig
	fileManager *common.FileManager
	logger      zerolog.Logger
}

// Emit renders the results and writes the file
func (o *CSVFileOutput) Emit(_ context.Context, results []models.WatchResult) error {
	rows := buildRows(results, o.cfg.DisplayUpToDate)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if o.cfg.DisplayHeader {
		if err := writer.Write(CSVHeader); err != nil {
			return common.WrapError(err, "failed to write csv header")
		}
	}
	for _, row := range rows {
		record := []string{
			row.Type,
			row.Name,
			row.CurrentRelease,
			formatDate(row.CurrentReleaseDate),
			strconv.Itoa(row.MissedCount),
			row.NewestRelease,
			formatDate(row.NewestReleaseDate),
		}
		if err := writer.Write(record); err != nil {
			return common.WrapErrorf(err, "failed to write csv row for %s", row.Name)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return common.WrapError(err, "failed to flush csv content")
	}

	if err := o.fileManager.WriteFile(o.cfg.Path, buf.Bytes(), common.DefaultFileWriteOptions()); err != nil {
		return err
	}
	o.logger.Info().Int("rows", len(rows)).Str("path", o.cfg.Path).Msg("CSV file written")
	return nil
}
