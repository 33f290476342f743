package output

import (
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readParquetResults(t *testing.T, path string) []ParquetWatchResult {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	stat, err := file.Stat()
	require.NoError(t, err)
	pqFile, err := parquet.OpenFile(file, stat.Size())
	require.NoError(t, err)

	reader := parquet.NewReader(pqFile)
	var records []ParquetWatchResult
	for {
		var record ParquetWatchResult
		if err := reader.Read(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
		}
		records = append(records, record)
	}
	return records
}

func TestParquetFileOutput_Emit(t *testing.T) {
	for _, compression := range []string{"zstd", "gzip", "snappy", "none"} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history", "results.parquet")
			out := createOutput(t, ParquetFileType{}, ParquetFileConfig{Type: "parquet_file", Path: path, Compression: compression}).(*ParquetFileOutput)
			out.now = func() time.Time { return metricsNow }

			require.NoError(t, out.Emit(WithRunID(t.Context(), "run-1"), sampleResults()))

			records := readParquetResults(t, path)
			require.Len(t, records, 3)

			unresolved, outdated, upToDate := records[0], records[1], records[2]
			for _, record := range records {
				assert.Equal(t, "run-1", record.RunID)
				assert.Equal(t, metricsNow.UnixMilli(), record.EmittedAt)
			}

			assert.Equal(t, "hub:nginx", unresolved.Name)
			assert.Nil(t, unresolved.CurrentRelease)
			assert.Nil(t, unresolved.CurrentReleaseDate)
			assert.Nil(t, unresolved.NewestRelease)

			assert.Equal(t, "github_release", outdated.Type)
			require.NotNil(t, outdated.CurrentRelease)
			assert.Equal(t, "v1", *outdated.CurrentRelease)
			require.NotNil(t, outdated.NewestReleaseDate)
			assert.Equal(t, day(time.March, 1).UnixMilli(), *outdated.NewestReleaseDate)
			assert.Equal(t, int32(2), outdated.MissedCount)
			assert.Equal(t, []string{"v3", "v2"}, outdated.MissedReleases)

			assert.Equal(t, "requests", upToDate.Name)
			assert.Zero(t, upToDate.MissedCount)
			assert.Nil(t, upToDate.NewestRelease)
		})
	}
}

func TestSQLiteOutput_AppendsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "history.sqlite")
	out := createOutput(t, SQLiteType{}, SQLiteConfig{Type: "sqlite", Path: path}).(*SQLiteOutput)
	t.Cleanup(func() { _ = out.Close() })

	require.NoError(t, out.Emit(WithRunID(t.Context(), "run-1"), sampleResults()))
	require.NoError(t, out.Emit(WithRunID(t.Context(), "run-2"), sampleResults()[:1]))

	var total, firstRun int
	require.NoError(t, out.db.QueryRow(`SELECT COUNT(*) FROM watch_results`).Scan(&total))
	require.NoError(t, out.db.QueryRow(`SELECT COUNT(*) FROM watch_results WHERE run_id = ?`, "run-1").Scan(&firstRun))
	assert.Equal(t, 4, total)
	assert.Equal(t, 3, firstRun)

	var (
		current, newest sql.NullString
		missed          int
	)
	require.NoError(t, out.db.QueryRow(
		`SELECT current_release, newest_release, missed_count FROM watch_results WHERE run_id = ? AND name = ?`,
		"run-1", "octo/app",
	).Scan(&current, &newest, &missed))
	assert.Equal(t, sql.NullString{String: "v1", Valid: true}, current)
	assert.Equal(t, sql.NullString{String: "v3", Valid: true}, newest)
	assert.Equal(t, 2, missed)

	require.NoError(t, out.db.QueryRow(
		`SELECT current_release, newest_release FROM watch_results WHERE name = ?`, "hub:nginx",
	).Scan(&current, &newest))
	assert.False(t, current.Valid)
	assert.False(t, newest.Valid)

	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
}

func TestSQLiteOutput_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	cfg := SQLiteConfig{Type: "sqlite", Path: path}

	first := createOutput(t, SQLiteType{}, cfg).(*SQLiteOutput)
	require.NoError(t, first.Emit(WithRunID(t.Context(), "run-1"), sampleResults()))
	require.NoError(t, first.Close())

	second := createOutput(t, SQLiteType{}, cfg).(*SQLiteOutput)
	t.Cleanup(func() { _ = second.Close() })

	var total int
	require.NoError(t, second.db.QueryRow(`SELECT COUNT(*) FROM watch_results`).Scan(&total))
	assert.Equal(t, 3, total)
}
