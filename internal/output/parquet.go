package output

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// ParquetWatchResult is the parquet schema of one result.
// Timestamps are Unix milliseconds, optional fields are nil when the release is absent.
type ParquetWatchResult struct {
	RunID              string   `parquet:"run_id"`
	EmittedAt          int64    `parquet:"emitted_at"`
	Type               string   `parquet:"type"`
	Name               string   `parquet:"name"`
	CurrentRelease     *string  `parquet:"current_release,optional"`
	CurrentReleaseDate *int64   `parquet:"current_release_date,optional"`
	MissedCount        int32    `parquet:"missed_count"`
	MissedReleases     []string `parquet:"missed_releases,list"`
	NewestRelease      *string  `parquet:"newest_release,optional"`
	NewestReleaseDate  *int64   `parquet:"newest_release_date,optional"`
}

// ParquetFileConfig configures a parquet_file output
type ParquetFileConfig struct {
	Type        string `yaml:"type" validate:"required"`
	Path        string `yaml:"path" validate:"required"`
	Compression string `yaml:"compression" validate:"oneof=zstd gzip snappy none"`
}

// TypeName returns the registry name of the output kind
func (c ParquetFileConfig) TypeName() string { return c.Type }

func (c ParquetFileConfig) String() string { return c.Type + ":" + c.Path }

// ParquetFileType builds parquet_file outputs
type ParquetFileType struct{}

// Name returns the registry name of the kind
func (ParquetFileType) Name() string { return "parquet_file" }

// ParseConfig decodes a parquet_file entry
func (t ParquetFileType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := ParquetFileConfig{Compression: "zstd"}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.Compression = strings.ToLower(cfg.Compression)
	cfg.Path = common.ResolvePath(pc.ConfigDir, cfg.Path)
	return cfg, nil
}

// Create builds a ParquetFileOutput
func (t ParquetFileType) Create(cfg Config, logger zerolog.Logger) (Output, error) {
	typed, err := configAs[ParquetFileConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	logger = outputLogger(logger, "ParquetFileOutput", typed)
	return &ParquetFileOutput{
		cfg:         typed,
		fileManager: common.NewFileManager(logger),
		logger:      logger,
		now:         time.Now,
	}, nil
}

// ParquetFileOutput writes the results of the last run to a parquet file
type ParquetFileOutput struct {
	cfg         ParquetFileConfig
	fileManager *common.FileManager
	logger      zerolog.Logger
	now         func() time.Time
}

// Emit writes one record per result, replacing the file
func (o *ParquetFileOutput) Emit(ctx context.Context, results []models.WatchResult) error {
	records := o.transform(RunID(ctx), buildRows(results, true))

	var buf bytes.Buffer
	writer := parquet.NewWriter(&buf, parquet.SchemaOf(ParquetWatchResult{}), o.compressionOption())
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return common.WrapErrorf(err, "failed to write parquet record for %s", record.Name)
		}
	}
	if err := writer.Close(); err != nil {
		return common.WrapError(err, "failed to close parquet writer")
	}

	if err := o.fileManager.WriteFile(o.cfg.Path, buf.Bytes(), common.DefaultFileWriteOptions()); err != nil {
		return err
	}
	o.logger.Info().Int("records", len(records)).Str("path", o.cfg.Path).Msg("Parquet file written")
	return nil
}

func (o *ParquetFileOutput) transform(runID string, rows []Row) []ParquetWatchResult {
	emittedAt := o.now().UTC().UnixMilli()
	records := make([]ParquetWatchResult, 0, len(rows))
	for _, row := range rows {
		missed := make([]string, 0, len(row.MissedReleases))
		for _, release := range row.MissedReleases {
			missed = append(missed, release.Name)
		}
		records = append(records, ParquetWatchResult{
			RunID:              runID,
			EmittedAt:          emittedAt,
			Type:               row.Type,
			Name:               row.Name,
			CurrentRelease:     stringPtrOrNil(row.CurrentRelease),
			CurrentReleaseDate: unixMilliPtr(row.CurrentReleaseDate),
			MissedCount:        int32(row.MissedCount),
			MissedReleases:     missed,
			NewestRelease:      stringPtrOrNil(row.NewestRelease),
			NewestReleaseDate:  unixMilliPtr(row.NewestReleaseDate),
		})
	}
	return records
}

func (o *ParquetFileOutput) compressionOption() parquet.WriterOption {
	switch o.cfg.Compression {
	case "snappy":
		return parquet.Compression(&parquet.Snappy)
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "zstd":
		return parquet.Compression(&parquet.Zstd)
	default:
		return parquet.Compression(&parquet.Uncompressed)
	}
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func unixMilliPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	millis := t.UnixMilli()
	return &millis
}
