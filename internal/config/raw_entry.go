package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RawEntry is one untyped `type:`-tagged configuration entry (a source, a watcher or an output).
// It keeps the YAML node so the registered type can decode it into its own config struct.
type RawEntry struct {
	Type string
	node yaml.Node
}

// UnmarshalYAML captures the entry node and reads its type name.
func (e *RawEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping, got %s", value.Line, nodeKindName(value.Kind))
	}

	var header struct {
		Type string `yaml:"type"`
	}
	if err := value.Decode(&header); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	e.Type = header.Type
	e.node = *value
	return nil
}

// Decode decodes the entry into out. Fields of out that are absent from the entry keep their value,
// which is how defaults are inherited.
func (e RawEntry) Decode(out interface{}) error {
	if e.node.Kind == 0 {
		return fmt.Errorf("empty %q entry", e.Type)
	}
	if err := e.node.Decode(out); err != nil {
		return fmt.Errorf("line %d: %w", e.node.Line, err)
	}
	return nil
}

// Line returns the line of the entry in its source document, or 0 when unknown.
func (e RawEntry) Line() int {
	return e.node.Line
}

// ParseRawEntry parses a single YAML mapping into a RawEntry.
func ParseRawEntry(data []byte) (RawEntry, error) {
	var entry RawEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return RawEntry{}, err
	}
	return entry, nil
}

// ParseContext carries what every typed entry parser needs besides the entry itself.
type ParseContext struct {
	// ConfigDir is the directory of the main configuration file; relative paths resolve against it.
	ConfigDir string
	Common    CommonConfig
}

func nodeKindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "nothing"
	}
}
