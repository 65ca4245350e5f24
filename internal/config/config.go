// Package config loads prmsparam settings from a TOML file and PRMS_*
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config is the prmsparam configuration.
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Verbose bool          `mapstructure:"verbose"`
}

// CatalogConfig locates the parameter catalog. An empty URL selects the
// bundled catalog.
type CatalogConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

// StoreConfig locates the bucket holding parameter snapshots and output.
// An empty URL selects the working directory.
type StoreConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.key", "parameters.xml")
	v.SetDefault("store.url", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("verbose", false)
}

// NewViper returns a viper instance with defaults and environment binding.
// If path is set that file is read; otherwise prmsparam.toml is looked up
// in the working directory and its absence is not an error.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("PRMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		return v, nil
	}
	v.SetConfigName("prmsparam")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}
	return v, nil
}

// FromViper decodes the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if cfg.Store.URL == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve working directory")
		}
		cfg.Store.URL = "file://" + filepath.ToSlash(wd)
	}
	return &cfg, nil
}

// Load reads the configuration from path, or from the default lookup when
// path is empty.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}
