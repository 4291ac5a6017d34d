// Package app wires the scout together: configuration, logging, the
// persistence backend, the document, the catalog and the session.
package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/bad33ndj3/mcp-l10n-index/internal/catalog"
	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. L10N_CATALOG_PATH.
const EnvPrefix = "L10N"

// Config holds all configuration of the scout.
type Config struct {
	StateDir string        `mapstructure:"state_dir"`
	Language string        `mapstructure:"language"`
	Workers  int           `mapstructure:"workers"`
	Catalog  CatalogConfig `mapstructure:"catalog"`
	Document DocConfig     `mapstructure:"document"`
	Store    StoreConfig   `mapstructure:"store"`
	Log      LogConfig     `mapstructure:"log"`
}

// CatalogConfig selects the resource catalog and tunes the matcher.
type CatalogConfig struct {
	Path          string `mapstructure:"path"`
	Watch         bool   `mapstructure:"watch"`
	MinSignalLen  int    `mapstructure:"min_signal_len"`
	PatternMinLen int    `mapstructure:"pattern_min_len"`
	PartialMinLen int    `mapstructure:"partial_min_len"`
	TopN          int    `mapstructure:"top_n"`
	FoldAccents   bool   `mapstructure:"fold_accents"`
}

// DocConfig locates the document the scout works on.
type DocConfig struct {
	Path string `mapstructure:"path"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	def := catalog.DefaultMatchConfig()

	v.SetDefault("state_dir", ".mcp-l10n")
	v.SetDefault("language", "en")
	v.SetDefault("workers", 4)

	v.SetDefault("catalog.path", "locales")
	v.SetDefault("catalog.watch", true)
	v.SetDefault("catalog.min_signal_len", def.MinSignalLen)
	v.SetDefault("catalog.pattern_min_len", def.PatternMinLen)
	v.SetDefault("catalog.partial_min_len", def.PartialMinLen)
	v.SetDefault("catalog.top_n", def.TopN)
	v.SetDefault("catalog.fold_accents", def.FoldAccents)

	v.SetDefault("document.path", "document.yaml")

	v.SetDefault("store.backend", store.BackendFile)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "l10n:")

	v.SetDefault("log.level", "debug")
}

// LoadConfig reads l10n.yaml (from the working directory or ./config, if
// present) and L10N_* environment variables into a Config.
func LoadConfig(v *viper.Viper) (*Config, error) {
	v.SetConfigName("l10n")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// MatchConfig returns the matcher thresholds.
func (c CatalogConfig) MatchConfig() catalog.MatchConfig {
	return catalog.MatchConfig{
		MinSignalLen:  c.MinSignalLen,
		PatternMinLen: c.PatternMinLen,
		PartialMinLen: c.PartialMinLen,
		TopN:          c.TopN,
		FoldAccents:   c.FoldAccents,
	}
}

// StoreConfig returns the backend configuration for store.Open.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Backend:       c.Store.Backend,
		Dir:           c.StateDir,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		RedisPrefix:   c.Store.RedisPrefix,
	}
}
