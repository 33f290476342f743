package output

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"time"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const watchResultsSchema = `
CREATE TABLE IF NOT EXISTS watch_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	emitted_at DATETIME NOT NULL,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	current_release TEXT,
	current_release_date DATETIME,
	missed_count INTEGER NOT NULL DEFAULT 0,
	newest_release TEXT,
	newest_release_date DATETIME
);
CREATE INDEX IF NOT EXISTS idx_watch_results_run_id ON watch_results (run_id);
`

const insertWatchResult = `INSERT INTO watch_results
	(run_id, emitted_at, type, name, current_release, current_release_date, missed_count, newest_release, newest_release_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteConfig configures a sqlite output
type SQLiteConfig struct {
	Type string `yaml:"type" validate:"required"`
	Path string `yaml:"path" validate:"required"`
}

// TypeName returns the registry name of the output kind
func (c SQLiteConfig) TypeName() string { return c.Type }

func (c SQLiteConfig) String() string { return c.Type + ":" + c.Path }

// SQLiteType builds sqlite outputs
type SQLiteType struct{}

// Name returns the registry name of the kind
func (SQLiteType) Name() string { return "sqlite" }

// ParseConfig decodes a sqlite entry
func (t SQLiteType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	var cfg SQLiteConfig
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.Path = common.ResolvePath(pc.ConfigDir, cfg.Path)
	return cfg, nil
}

// Create opens the database and ensures the schema exists
func (t SQLiteType) Create(cfg Config, logger zerolog.Logger) (Output, error) {
	typed, err := configAs[SQLiteConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	logger = outputLogger(logger, "SQLiteOutput", typed)

	if err := common.NewFileManager(logger).EnsureDirectory(filepath.Dir(typed.Path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", typed.Path)
	if err != nil {
		logger.Error().Err(err).Str("db_path", typed.Path).Msg("Failed to open database")
		return nil, common.WrapErrorf(err, "failed to open sqlite database %s", typed.Path)
	}
	if _, err := db.Exec(watchResultsSchema); err != nil {
		_ = db.Close()
		logger.Error().Err(err).Msg("Failed to initialize database schema")
		return nil, common.WrapError(err, "failed to initialize watch_results schema")
	}

	logger.Debug().Str("db_path", typed.Path).Msg("Database initialized and schema verified")
	return &SQLiteOutput{
		cfg:    typed,
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SQLiteOutput appends the results of every run to the watch_results table
type SQLiteOutput struct {
	cfg    SQLiteConfig
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time

	closeOnce sync.Once
}

// Emit inserts one row per result in a single transaction
func (o *SQLiteOutput) Emit(ctx context.Context, results []models.WatchResult) error {
	rows := buildRows(results, true)
	runID := RunID(ctx)
	emittedAt := o.now().UTC()

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, insertWatchResult)
	if err != nil {
		return common.WrapError(err, "failed to prepare insert statement")
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			runID,
			emittedAt,
			row.Type,
			row.Name,
			nullString(row.CurrentRelease),
			nullTime(row.CurrentReleaseDate),
			row.MissedCount,
			nullString(row.NewestRelease),
			nullTime(row.NewestReleaseDate),
		)
		if err != nil {
			return common.WrapErrorf(err, "failed to insert result for %s", row.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.WrapError(err, "failed to commit results")
	}
	o.logger.Info().Int("rows", len(rows)).Str("run_id", runID).Msg("Results recorded")
	return nil
}

// Close closes the database connection
func (o *SQLiteOutput) Close() error {
	var err error
	o.closeOnce.Do(func() {
		err = o.db.Close()
	})
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
