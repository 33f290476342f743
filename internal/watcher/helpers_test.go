package watcher

import (
	"testing"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testParseContext points every API-based watcher at the given base URL.
func testParseContext(baseURL string) config.ParseContext {
	common := config.NewDefaultCommonConfig()
	common.Github.APIURL = baseURL
	common.Gitlab.APIURL = baseURL
	common.Pypi.APIURL = baseURL
	return config.ParseContext{ConfigDir: ".", Common: common}
}

func parseWatcherConfig(t *testing.T, pc config.ParseContext, doc string) Config {
	t.Helper()
	raw, err := config.ParseRawEntry([]byte(doc))
	require.NoError(t, err)

	watcherType, err := NewDefaultRegistry().Lookup(raw.Type)
	require.NoError(t, err)

	cfg, err := watcherType.ParseConfig(pc, raw)
	require.NoError(t, err)
	return cfg
}

func newTestWatcher(t *testing.T, pc config.ParseContext, doc string) Watcher {
	t.Helper()
	cfg := parseWatcherConfig(t, pc, doc)

	watcherType, err := NewDefaultRegistry().Lookup(cfg.TypeName())
	require.NoError(t, err)

	w, err := watcherType.Create(cfg, zerolog.Nop())
	require.NoError(t, err)
	return w
}
