package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type descriptor struct {
	id int
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := New[descriptor]("watcher")
	reg.Register("pypi", descriptor{id: 1})
	reg.Register("docker_registry", descriptor{id: 2})

	got, err := reg.Lookup("pypi")
	require.NoError(t, err)
	assert.Equal(t, 1, got.id)
	assert.Equal(t, []string{"docker_registry", "pypi"}, reg.Names())
	assert.Equal(t, "watcher", reg.Kind())
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	reg := New[descriptor]("output")
	reg.Register("csv_file", descriptor{id: 1})
	reg.Register("csv_file", descriptor{id: 2})

	got, err := reg.Lookup("csv_file")
	require.NoError(t, err)
	assert.Equal(t, 2, got.id)
	assert.Len(t, reg.Names(), 1)
}

func TestRegistry_UnknownType(t *testing.T) {
	reg := New[descriptor]("source")

	_, err := reg.Lookup("s3")
	require.Error(t, err)

	var unknown *UnknownTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "s3", unknown.Name)
	assert.Equal(t, "source", unknown.Kind)
	assert.Equal(t, "unknown source type 's3'", err.Error())
}

func TestRegistry_InstancesAreIndependent(t *testing.T) {
	sources := New[descriptor]("source")
	outputs := New[descriptor]("output")
	sources.Register("file", descriptor{id: 1})

	_, err := outputs.Lookup("file")
	assert.Error(t, err)
}
