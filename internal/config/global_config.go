package config

import (
	"os"
	"path/filepath"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	Core    CoreConfig   `json:"core,omitempty" yaml:"core,omitempty"`
	Logger  LogConfig    `json:"logger,omitempty" yaml:"logger,omitempty"`
	Common  CommonConfig `json:"common,omitempty" yaml:"common,omitempty"`
	Sources []RawEntry   `json:"-" yaml:"sources,omitempty" validate:"-"`
	Outputs []RawEntry   `json:"-" yaml:"outputs,omitempty" validate:"-"`

	// ConfigFileDir is the absolute directory of the loaded file.
	ConfigFileDir string `json:"-" yaml:"-" validate:"-"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Core:   NewDefaultCoreConfig(),
		Logger: NewDefaultLogConfig(),
		Common: NewDefaultCommonConfig(),
	}
}

// ParseContext returns the context handed to typed entry parsers.
func (c *GlobalConfig) ParseContext() ParseContext {
	return ParseContext{
		ConfigDir: c.ConfigFileDir,
		Common:    c.Common,
	}
}

// LoadGlobalConfig reads, expands and validates the configuration file chosen by ResolveConfigPath.
// JSON files are accepted too since YAML is a superset of JSON.
func LoadGlobalConfig(providedPath string, logger zerolog.Logger) (*GlobalConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, common.WrapError(err, "failed to determine working directory")
	}

	filePath := ResolveConfigPath(providedPath, cwd)
	switch {
	case filePath == "" && providedPath != "":
		return nil, common.NewValidationError("config file", providedPath, "no such file")
	case filePath == "":
		return nil, common.NewConfigurationError("", "", "no configuration file found, use --config or "+ConfigPathEnv)
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to resolve config file path")
	}
	configDir := filepath.Dir(absPath)
	loadDotEnv(configDir, logger)

	data, err := common.NewFileManager(logger).ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	cfg, err := ParseGlobalConfig(data, configDir)
	if err != nil {
		return nil, common.WrapErrorf(err, "invalid configuration %s", absPath)
	}

	logger.Debug().Str("path", absPath).Int("sources", len(cfg.Sources)).Int("outputs", len(cfg.Outputs)).Msg("Configuration loaded")
	return cfg, nil
}

// ParseGlobalConfig decodes configuration content on top of the defaults and validates it.
// ${VAR} references are expanded from the environment first.
func ParseGlobalConfig(data []byte, configDir string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()
	if err := yaml.Unmarshal(ExpandEnvReferences(data), cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}
	cfg.ConfigFileDir = configDir

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
