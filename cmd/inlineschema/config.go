package main

import (
	"os"

	"github.com/ged/inlineschema/internal/common"
	"github.com/ged/inlineschema/internal/store"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoggingConfig controls CLI log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // error, warn, info, debug
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// ConfigDoc is the YAML configuration document consumed by the CLI.
type ConfigDoc struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Ledger  store.Config  `mapstructure:"ledger" yaml:"ledger"`
}

// Load reads and decodes a config document from path.
func (c *ConfigDoc) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// loadConfigDoc loads the configured document, falling back to defaults
// (sqlite, conventional table names) when the file is absent.
func loadConfigDoc() ConfigDoc {
	var doc ConfigDoc
	path := viper.GetViper().GetString("config")
	if err := doc.Load(path); err != nil {
		if !os.IsNotExist(err) {
			common.GetLogger().Warn("failed to load config", "path", path, "error", err)
		}
	}
	return doc
}
