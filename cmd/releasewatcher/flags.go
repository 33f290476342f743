package main

import (
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/spf13/pflag"
)

// AppFlags holds the command line values that override the configuration file
type AppFlags struct {
	ConfigFile string
	RunMode    string
	Threads    int
	LogLevel   string
}

func (f *AppFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigFile, "config", "c", "", "Path to the YAML/JSON configuration file. If not set, searches default locations.")
	flags.StringVarP(&f.RunMode, "run-mode", "m", "", "Run mode: once or repeat (overrides config file if set)")
	flags.IntVarP(&f.Threads, "threads", "t", 0, "Number of watchers run in parallel (overrides config file if set)")
	flags.StringVarP(&f.LogLevel, "log-level", "l", "", "Log level: debug, info, warn or error (overrides config file if set)")
}

// apply copies the flags that were set onto cfg and validates the result
func (f AppFlags) apply(cfg *config.GlobalConfig) error {
	if f.RunMode != "" {
		cfg.Core.RunMode = f.RunMode
	}
	if f.Threads != 0 {
		cfg.Core.Threads = f.Threads
	}
	if f.LogLevel != "" {
		cfg.Logger.Level = f.LogLevel
	}
	return config.ValidateConfig(cfg)
}
