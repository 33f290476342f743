package config

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// DefaultConfigFiles are looked up in the working directory when no path is given.
var DefaultConfigFiles = []string{"config.yaml", "config.yml"}

var envReferencePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ResolveConfigPath picks the configuration file: the explicit path first, then
// $RELEASEWATCHER_CONFIG_PATH, then DefaultConfigFiles in dir. It returns "" when nothing exists.
// An explicit path that does not exist is never replaced by a fallback.
func ResolveConfigPath(explicit, dir string) string {
	if explicit != "" {
		if isRegularFile(explicit) {
			return explicit
		}
		return ""
	}

	if fromEnv := os.Getenv(ConfigPathEnv); fromEnv != "" && isRegularFile(fromEnv) {
		return fromEnv
	}

	for _, name := range DefaultConfigFiles {
		if candidate := filepath.Join(dir, name); isRegularFile(candidate) {
			return candidate
		}
	}
	return ""
}

// loadDotEnv reads the .env file next to the configuration, if any, so ${VAR}
// references can point at secrets kept out of the configuration itself.
// Variables already present in the environment win.
func loadDotEnv(configDir string, logger zerolog.Logger) {
	path := filepath.Join(configDir, ".env")
	if !isRegularFile(path) {
		return
	}
	if err := godotenv.Load(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to load .env file")
		return
	}
	logger.Debug().Str("path", path).Msg("Loaded .env file")
}

// ExpandEnvReferences replaces ${VAR} with the variable value, unset variables become empty.
// A bare $ is left alone so regular expressions survive untouched.
func ExpandEnvReferences(data []byte) []byte {
	return envReferencePattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envReferencePattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
