package output

import (
	"testing"
	"time"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubWatcherConfig struct {
	typeName string
	name     string
	current  string
}

func (c stubWatcherConfig) TypeName() string  { return c.typeName }
func (c stubWatcherConfig) Name() string      { return c.name }
func (c stubWatcherConfig) CurrentID() string { return c.current }
func (c stubWatcherConfig) String() string    { return c.name + ":" + c.current }

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

// sampleResults returns an outdated, an up to date and an unresolved result, in no particular order
func sampleResults() []models.WatchResult {
	current := models.NewRelease("v1", day(time.January, 1))
	outdated := models.NewWatchResult(
		stubWatcherConfig{typeName: "github_release", name: "octo/app", current: "v1"},
		&current,
		[]models.Release{
			models.NewRelease("v3", day(time.March, 1)),
			models.NewRelease("v2", day(time.February, 1)),
		},
	)

	latest := models.NewRelease("2.31", day(time.January, 10))
	upToDate := models.NewWatchResult(stubWatcherConfig{typeName: "pypi", name: "requests", current: "2.31"}, &latest, nil)

	unresolved := models.NewWatchResult(stubWatcherConfig{typeName: "docker_registry", name: "hub:nginx", current: "1.25"}, nil, nil)

	return []models.WatchResult{upToDate, outdated, unresolved}
}

func parseOutputConfig(t *testing.T, typ Type, configDir string, entry string) (Config, error) {
	t.Helper()
	raw, err := config.ParseRawEntry([]byte(entry))
	require.NoError(t, err)
	return typ.ParseConfig(config.ParseContext{ConfigDir: configDir, Common: config.NewDefaultCommonConfig()}, raw)
}

func createOutput(t *testing.T, typ Type, cfg Config) Output {
	t.Helper()
	out, err := typ.Create(cfg, zerolog.Nop())
	require.NoError(t, err)
	return out
}
