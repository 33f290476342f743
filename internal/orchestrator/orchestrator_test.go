package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/aleister1102/releasewatcher/internal/output"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pypiReleases = `{
  "info": {"name": "requests"},
  "releases": {
    "1.0": [{"upload_time_iso_8601": "2024-01-01T00:00:00Z"}],
    "2.0": [{"upload_time_iso_8601": "2024-02-01T00:00:00Z"}],
    "3.0": [{"upload_time_iso_8601": "2024-03-01T00:00:00Z"}]
  }
}`

func newPypiServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/requests/json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pypiReleases))
	}))
	t.Cleanup(server.Close)
	return server
}

type recordingConfig struct{ name string }

func (c recordingConfig) TypeName() string { return "recording" }
func (c recordingConfig) String() string   { return "recording:" + c.name }

// recordingType hands out outputs that remember what they were given
type recordingType struct {
	mu      sync.Mutex
	outputs map[string]*recordingOutput
}

func newRecordingType() *recordingType {
	return &recordingType{outputs: map[string]*recordingOutput{}}
}

func (t *recordingType) Name() string { return "recording" }

func (t *recordingType) ParseConfig(_ config.ParseContext, raw config.RawEntry) (output.Config, error) {
	var entry struct {
		Name string `yaml:"name"`
	}
	if err := raw.Decode(&entry); err != nil {
		return nil, err
	}
	return recordingConfig{name: entry.Name}, nil
}

func (t *recordingType) Create(cfg output.Config, _ zerolog.Logger) (output.Output, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	name := cfg.(recordingConfig).name
	out := &recordingOutput{fail: name == "broken"}
	t.outputs[name] = out
	return out, nil
}

func (t *recordingType) get(name string) *recordingOutput {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outputs[name]
}

type recordingOutput struct {
	fail    bool
	runIDs  []string
	emitted [][]models.WatchResult
	closed  int
}

func (o *recordingOutput) Emit(ctx context.Context, results []models.WatchResult) error {
	o.runIDs = append(o.runIDs, output.RunID(ctx))
	o.emitted = append(o.emitted, results)
	if o.fail {
		return errors.New("sink unavailable")
	}
	return nil
}

func (o *recordingOutput) Close() error {
	o.closed++
	return nil
}

func parseConfig(t *testing.T, dir, content string) *config.GlobalConfig {
	t.Helper()
	cfg, err := config.ParseGlobalConfig([]byte(content), dir)
	require.NoError(t, err)
	return cfg
}

func sequentialRunIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
}

func TestOrchestrator_RunCycle(t *testing.T) {
	server := newPypiServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "more.yaml"), []byte(`
watchers:
  - type: pypi
    package: missing
    version: "1.0"
`), 0o644))

	cfg := parseConfig(t, dir, fmt.Sprintf(`
core:
  threads: 4
common:
  pypi:
    api_url: %s
sources:
  - type: inline
    watchers:
      - type: pypi
        package: requests
        version: "2.0"
      - type: no_such_watcher
        name: ignored
  - type: file
    path: "*.yaml"
  - type: ftp
    host: example.com
outputs:
  - type: recording
    name: main
  - type: recording
    name: broken
  - type: csv_file
    path: out/report.csv
  - type: csv_file
  - type: smtp
`, server.URL))

	recording := newRecordingType()
	outputs := output.NewRegistry(append(output.BuiltinTypes(), recording)...)

	o, err := New(t.Context(), cfg, zerolog.Nop(), WithOutputRegistry(outputs), WithRunIDGenerator(sequentialRunIDs()))
	require.NoError(t, err)
	require.Len(t, o.Watchers(), 2)

	report, err := o.RunCycle(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 2, report.Watchers)
	assert.Equal(t, 1, report.FailedOutputs)
	require.Len(t, report.Results, 1, "the watcher of the missing package fails and is dropped")

	result := report.Results[0]
	assert.Equal(t, "requests", result.Name())
	require.NotNil(t, result.CurrentRelease)
	assert.Equal(t, "2.0", result.CurrentRelease.Name)
	require.Len(t, result.MissedReleases, 1)
	assert.Equal(t, "3.0", result.MissedReleases[0].Name)

	primary := recording.get("main")
	require.NotNil(t, primary)
	assert.Equal(t, []string{"run-1"}, primary.runIDs)
	assert.Equal(t, report.Results, primary.emitted[0])
	assert.Len(t, recording.get("broken").emitted, 1)

	csv, err := os.ReadFile(filepath.Join(dir, "out", "report.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "pypi,requests,2.0,2024-02-01T00:00:00Z,1,3.0,2024-03-01T00:00:00Z\n")

	second, err := o.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "run-2", second.RunID)
	assert.Equal(t, []string{"run-1", "run-2"}, primary.runIDs)

	require.NoError(t, o.Close())
	assert.Equal(t, 1, primary.closed)
	assert.Equal(t, 1, recording.get("broken").closed)
}

func TestOrchestrator_CancelledCycleDoesNotEmit(t *testing.T) {
	server := newPypiServer(t)
	cfg := parseConfig(t, t.TempDir(), fmt.Sprintf(`
common:
  pypi:
    api_url: %s
sources:
  - type: inline
    watchers:
      - type: pypi
        package: requests
        version: "2.0"
outputs:
  - type: recording
    name: main
`, server.URL))

	recording := newRecordingType()
	o, err := New(t.Context(), cfg, zerolog.Nop(), WithOutputRegistry(output.NewRegistry(recording)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	report, err := o.RunCycle(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
	assert.Empty(t, recording.get("main").emitted)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantSection string
	}{
		{
			name: "no sources",
			content: `
outputs:
  - type: csv_file
    path: out.csv
`,
			wantSection: "sources",
		},
		{
			name: "only invalid sources",
			content: `
sources:
  - type: file
  - type: kafka
outputs:
  - type: csv_file
    path: out.csv
`,
			wantSection: "sources",
		},
		{
			name: "only invalid outputs",
			content: `
sources:
  - type: inline
    watchers: []
outputs:
  - type: csv_file
  - type: prometheus_http
    port: -1
`,
			wantSection: "outputs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parseConfig(t, t.TempDir(), tt.content)

			_, err := New(t.Context(), cfg, zerolog.Nop())

			var cfgErr *common.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantSection, cfgErr.Section)
		})
	}
}

func TestNew_NoWatchersStillRuns(t *testing.T) {
	cfg := parseConfig(t, t.TempDir(), `
sources:
  - type: inline
    watchers: []
outputs:
  - type: recording
    name: main
`)
	recording := newRecordingType()
	o, err := New(t.Context(), cfg, zerolog.Nop(), WithOutputRegistry(output.NewRegistry(recording)))
	require.NoError(t, err)
	assert.Empty(t, o.Watchers())

	report, err := o.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Len(t, recording.get("main").emitted, 1)
}
