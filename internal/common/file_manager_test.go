package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/etc/rw/out.csv", ResolvePath("/etc/rw", "out.csv"))
	assert.Equal(t, "/tmp/out.csv", ResolvePath("/etc/rw", "/tmp/out.csv"))
	assert.Equal(t, "out.csv", ResolvePath("", "out.csv"))
	assert.Equal(t, "", ResolvePath("/etc/rw", ""))
}

func TestFileManager_WriteFileCreatesDirectories(t *testing.T) {
	fm := NewFileManager(zerolog.Nop())
	target := filepath.Join(t.TempDir(), "nested", "dir", "results.yaml")

	require.NoError(t, fm.WriteFile(target, []byte("results: []\n"), DefaultFileWriteOptions()))

	data, err := fm.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "results: []\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestFileManager_WriteFileOverwrites(t *testing.T) {
	fm := NewFileManager(zerolog.Nop())
	target := filepath.Join(t.TempDir(), "metrics.prom")

	require.NoError(t, fm.WriteFile(target, []byte("first"), DefaultFileWriteOptions()))
	require.NoError(t, fm.WriteFile(target, []byte("second"), DefaultFileWriteOptions()))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileManager_Glob(t *testing.T) {
	fm := NewFileManager(zerolog.Nop())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c.yaml"), 0755))

	files, err := fm.Glob(filepath.Join(dir, "*.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml")}, files)

	_, err = fm.Glob("[")
	assert.Error(t, err)
}

func TestFileManager_EnsureDirectoryRejectsFile(t *testing.T) {
	fm := NewFileManager(zerolog.Nop())
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	err := fm.EnsureDirectory(file, 0755)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
