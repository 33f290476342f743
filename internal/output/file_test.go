package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCSVFileOutput_Emit(t *testing.T) {
	tests := []struct {
		name string
		cfg  CSVFileConfig
		want string
	}{
		{
			name: "header and up to date artifacts",
			cfg:  CSVFileConfig{DisplayUpToDate: true, DisplayHeader: true},
			want: "Type,Name,Current release,Current release date,Missed releases,Newest release,Newest release date\n" +
				"docker_registry,hub:nginx,,,0,,\n" +
				"github_release,octo/app,v1,2024-01-01T00:00:00Z,2,v3,2024-03-01T00:00:00Z\n" +
				"pypi,requests,2.31,2024-01-10T00:00:00Z,0,,\n",
		},
		{
			name: "outdated only without header",
			cfg:  CSVFileConfig{},
			want: "github_release,octo/app,v1,2024-01-01T00:00:00Z,2,v3,2024-03-01T00:00:00Z\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Type = "csv_file"
			cfg.Path = filepath.Join(t.TempDir(), "nested", "report.csv")

			out := createOutput(t, CSVFileType{}, cfg)
			require.NoError(t, out.Emit(t.Context(), sampleResults()))

			content, err := os.ReadFile(cfg.Path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(content))
		})
	}
}

func TestCSVFileOutput_ReplacesPreviousContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	out := createOutput(t, CSVFileType{}, CSVFileConfig{Type: "csv_file", Path: path, DisplayHeader: true})

	require.NoError(t, out.Emit(t.Context(), sampleResults()))
	require.NoError(t, out.Emit(t.Context(), nil))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Type,Name,Current release,Current release date,Missed releases,Newest release,Newest release date\n", string(content))
}

func TestYAMLFileOutput_Emit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	out := createOutput(t, YAMLFileType{}, YAMLFileConfig{Type: "yaml_file", Path: path, DisplayUpToDate: false})

	require.NoError(t, out.Emit(t.Context(), sampleResults()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Results []struct {
			Type               string     `yaml:"type"`
			Name               string     `yaml:"name"`
			CurrentRelease     string     `yaml:"current_release"`
			CurrentReleaseDate *time.Time `yaml:"current_release_date"`
			MissedReleaseCount int        `yaml:"missed_release_count"`
			MissedReleases     []struct {
				Name string    `yaml:"name"`
				Date time.Time `yaml:"date"`
			} `yaml:"missed_releases"`
			NewestRelease *struct {
				Name string    `yaml:"name"`
				Date time.Time `yaml:"date"`
			} `yaml:"newest_release"`
		} `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal(content, &doc))
	require.Len(t, doc.Results, 1, "results without missed releases are hidden")

	outdated := doc.Results[0]
	assert.Equal(t, "github_release", outdated.Type)
	assert.Equal(t, "v1", outdated.CurrentRelease)
	require.NotNil(t, outdated.CurrentReleaseDate)
	assert.True(t, day(time.January, 1).Equal(*outdated.CurrentReleaseDate))
	assert.Equal(t, 2, outdated.MissedReleaseCount)
	require.Len(t, outdated.MissedReleases, 2)
	assert.Equal(t, "v3", outdated.MissedReleases[0].Name)
	assert.Equal(t, "v2", outdated.MissedReleases[1].Name)
	require.NotNil(t, outdated.NewestRelease)
	assert.Equal(t, "v3", outdated.NewestRelease.Name)
	assert.True(t, day(time.March, 1).Equal(outdated.NewestRelease.Date))
}

func TestYAMLFileOutput_EmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	out := createOutput(t, YAMLFileType{}, YAMLFileConfig{Type: "yaml_file", Path: path, DisplayUpToDate: true})

	require.NoError(t, out.Emit(t.Context(), nil))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "results: []\n", string(content))
}
