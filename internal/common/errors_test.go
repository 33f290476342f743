package common

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	cause := errors.New("connection reset")

	wrapped := WrapError(cause, "fetch releases")
	assert.EqualError(t, wrapped, "fetch releases: connection reset")
	assert.ErrorIs(t, wrapped, cause)

	formatted := WrapErrorf(cause, "fetch %s page %d", "tags", 2)
	assert.EqualError(t, formatted, "fetch tags page 2: connection reset")
	assert.ErrorIs(t, formatted, cause)

	assert.NoError(t, WrapError(nil, "nothing to wrap"))
	assert.NoError(t, WrapErrorf(nil, "nothing %s", "here"))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("max_size_mb", -1, "must be positive")
	assert.EqualError(t, err, "invalid max_size_mb -1: must be positive")
}

func TestConfigurationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigurationError
		expected string
	}{
		{name: "section and field", err: NewConfigurationError("outputs", "path", "required"), expected: "configuration error in section 'outputs', field 'path': required"},
		{name: "section only", err: NewConfigurationError("sources", "", "no usable source"), expected: "configuration error in section 'sources': no usable source"},
		{name: "reason only", err: NewConfigurationError("", "", "broken"), expected: "configuration error: broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrInvalidConfiguration)
		})
	}
}

func TestEntryError(t *testing.T) {
	cause := errors.New("unknown output type \"kafka\"")

	tests := []struct {
		name     string
		err      *EntryError
		expected string
	}{
		{name: "full position", err: NewEntryError("outputs", 1, 12, "kafka", cause), expected: `outputs[1] (type "kafka") at line 12: unknown output type "kafka"`},
		{name: "no line", err: NewEntryError("sources", 0, 0, "file", cause), expected: `sources[0] (type "file"): unknown output type "kafka"`},
		{name: "no type", err: NewEntryError("sources", 3, 7, "", cause), expected: `sources[3] at line 7: unknown output type "kafka"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.expected)
			assert.ErrorIs(t, tt.err, cause)
			assert.ErrorIs(t, tt.err, ErrInvalidConfiguration)
		})
	}
}

func TestErrorCollector(t *testing.T) {
	var collector ErrorCollector
	assert.Zero(t, collector.Len())
	assert.NoError(t, collector.Error())

	collector.Add(nil)
	collector.AddWithContext(nil, "ignored")
	assert.Zero(t, collector.Len())

	first := errors.New("first")
	collector.Add(first)
	assert.Same(t, first, collector.Error())

	collector.AddWithContext(fs.ErrPermission, "sqlite:out.db")
	assert.Equal(t, 2, collector.Len())

	err := collector.Error()
	require.Error(t, err)
	assert.EqualError(t, err, "2 errors occurred: [first; sqlite:out.db: permission denied]")
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, fs.ErrPermission)
}
