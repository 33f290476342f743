package output

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/aleister1102/releasewatcher/internal/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Names(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, "output", r.Kind())
	assert.Equal(t, []string{
		"csv_file",
		"discord_webhook",
		"parquet_file",
		"prometheus_file",
		"prometheus_http",
		"sqlite",
		"yaml_file",
	}, r.Names())

	_, err := r.Lookup("email")
	var unknown *registry.UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "output", unknown.Kind)
	assert.Equal(t, "email", unknown.Name)
}

func TestParseConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("csv defaults and relative path", func(t *testing.T) {
		cfg, err := parseOutputConfig(t, CSVFileType{}, dir, "type: csv_file\npath: out/report.csv\n")
		require.NoError(t, err)
		assert.Equal(t, CSVFileConfig{
			Type:            "csv_file",
			Path:            filepath.Join(dir, "out", "report.csv"),
			DisplayUpToDate: true,
			DisplayHeader:   true,
		}, cfg)
	})

	t.Run("csv overrides", func(t *testing.T) {
		cfg, err := parseOutputConfig(t, CSVFileType{}, dir, "type: csv_file\npath: /tmp/r.csv\ndisplay_up_to_date: false\ndisplay_header: false\n")
		require.NoError(t, err)
		typed := cfg.(CSVFileConfig)
		assert.Equal(t, "/tmp/r.csv", typed.Path)
		assert.False(t, typed.DisplayUpToDate)
		assert.False(t, typed.DisplayHeader)
	})

	t.Run("prometheus http default port", func(t *testing.T) {
		cfg, err := parseOutputConfig(t, PrometheusHTTPType{}, dir, "type: prometheus_http\n")
		require.NoError(t, err)
		assert.Equal(t, DefaultMetricsPort, cfg.(PrometheusHTTPConfig).Port)
		assert.Equal(t, "prometheus_http::8080", cfg.String())
	})

	t.Run("parquet default compression", func(t *testing.T) {
		cfg, err := parseOutputConfig(t, ParquetFileType{}, dir, "type: parquet_file\npath: results.parquet\n")
		require.NoError(t, err)
		assert.Equal(t, "zstd", cfg.(ParquetFileConfig).Compression)
	})

	t.Run("discord defaults", func(t *testing.T) {
		cfg, err := parseOutputConfig(t, DiscordWebhookType{}, dir, "type: discord_webhook\nwebhook_url: https://discord.com/api/webhooks/1/secret\n")
		require.NoError(t, err)
		typed := cfg.(DiscordWebhookConfig)
		assert.Equal(t, DiscordUsername, typed.Username)
		assert.False(t, typed.DisplayUpToDate)
		assert.NotContains(t, typed.String(), "secret")
	})

	failures := []struct {
		name    string
		typ     Type
		entry   string
		wantErr string
	}{
		{name: "csv without path", typ: CSVFileType{}, entry: "type: csv_file\n", wantErr: "path"},
		{name: "yaml without path", typ: YAMLFileType{}, entry: "type: yaml_file\n", wantErr: "path"},
		{name: "sqlite without path", typ: SQLiteType{}, entry: "type: sqlite\n", wantErr: "path"},
		{name: "port out of range", typ: PrometheusHTTPType{}, entry: "type: prometheus_http\nport: 70000\n", wantErr: "port"},
		{name: "unknown compression", typ: ParquetFileType{}, entry: "type: parquet_file\npath: x.parquet\ncompression: lz4\n", wantErr: "compression"},
		{name: "invalid webhook url", typ: DiscordWebhookType{}, entry: "type: discord_webhook\nwebhook_url: not a url\n", wantErr: "webhook_url"},
		{name: "wrong field type", typ: CSVFileType{}, entry: "type: csv_file\npath: [a, b]\n", wantErr: "invalid csv_file output"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOutputConfig(t, tt.typ, dir, tt.entry)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

type foreignConfig struct{}

func (foreignConfig) TypeName() string { return "foreign" }
func (foreignConfig) String() string   { return "foreign" }

func TestCreate_RejectsForeignConfig(t *testing.T) {
	for _, typ := range BuiltinTypes() {
		t.Run(typ.Name(), func(t *testing.T) {
			_, err := typ.Create(foreignConfig{}, zerolog.Nop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "cannot be created from")
		})
	}
}

func TestRunID(t *testing.T) {
	assert.Empty(t, RunID(context.Background()))
	assert.Equal(t, "run-42", RunID(WithRunID(context.Background(), "run-42")))
}

func TestBuildRows(t *testing.T) {
	rows := buildRows(sampleResults(), true)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"docker_registry", "github_release", "pypi"}, []string{rows[0].Type, rows[1].Type, rows[2].Type})

	unresolved, outdated, upToDate := rows[0], rows[1], rows[2]
	assert.False(t, unresolved.CurrentFound)
	assert.Nil(t, unresolved.CurrentReleaseDate)
	assert.Nil(t, unresolved.NewestReleaseDate)

	assert.Equal(t, "v3", outdated.NewestRelease)
	assert.Equal(t, day(3, 1), *outdated.NewestReleaseDate)
	assert.Equal(t, 2, outdated.MissedCount)

	assert.True(t, upToDate.UpToDate)
	assert.Empty(t, upToDate.NewestRelease)

	hidden := buildRows(sampleResults(), false)
	require.Len(t, hidden, 1)
	assert.Equal(t, "octo/app", hidden[0].Name)
}

func TestBuildRows_HidesUnresolvedWithoutCandidates(t *testing.T) {
	cfg := stubWatcherConfig{typeName: "docker_registry", name: "hub:nginx", current: "1.25"}
	unresolved := models.NewWatchResult(cfg, nil, nil)
	unresolvedWithCandidates := models.NewWatchResult(cfg, nil, []models.Release{models.NewRelease("1.26", day(time.March, 1))})

	assert.Empty(t, buildRows([]models.WatchResult{unresolved}, false))
	assert.Len(t, buildRows([]models.WatchResult{unresolved}, true), 1)

	rows := buildRows([]models.WatchResult{unresolvedWithCandidates}, false)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].CurrentFound)
	assert.Equal(t, 1, rows[0].MissedCount)
}
