// Package config loads darc CLI settings from darc.yaml and defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// LegacyKey is the encryption key used by shipped runtimes. It is only a
// configuration default; the library never embeds a key.
const LegacyKey = "aQj8CScgNP4VsfXK"

// Config holds CLI settings.
type Config struct {
	Root                      string   `mapstructure:"root"`
	Output                    string   `mapstructure:"output"`
	Compress                  bool     `mapstructure:"compress"`
	Split                     bool     `mapstructure:"split"`
	Ordering                  string   `mapstructure:"ordering"`
	HashAlgorithm             string   `mapstructure:"hash_algorithm"`
	EncryptionKey             string   `mapstructure:"encryption_key"`
	EncryptedExtensions       []string `mapstructure:"encrypted_extensions"`
	SkipCompressionExtensions []string `mapstructure:"skip_compression_extensions"`
	Layout                    Layout   `mapstructure:"layout"`
	LogLevel                  string   `mapstructure:"log_level"`
	LogFormat                 string   `mapstructure:"log_format"`
	NoProgress                bool     `mapstructure:"no_progress"`
}

// Layout holds texture set packing settings.
type Layout struct {
	Margin     int  `mapstructure:"margin"`
	PowerOfTwo bool `mapstructure:"power_of_two"`
}

// Load reads cfgFile, or darc.yaml from the working directory or home
// directory when cfgFile is empty. A missing default file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("root", ".")
	v.SetDefault("output", "game.arc")
	v.SetDefault("compress", false)
	v.SetDefault("split", false)
	v.SetDefault("ordering", "")
	v.SetDefault("hash_algorithm", "sha256")
	v.SetDefault("encryption_key", LegacyKey)
	v.SetDefault("encrypted_extensions", []string{"luac", "scriptc", "gui_scriptc", "render_scriptc"})
	v.SetDefault("skip_compression_extensions", []string{})
	v.SetDefault("layout.margin", 0)
	v.SetDefault("layout.power_of_two", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("no_progress", false)

	v.SetEnvPrefix("DARC")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName("darc")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a build.
func (c *Config) Validate() error {
	if c.EncryptionKey != "" && len(c.EncryptionKey) != 16 {
		return fmt.Errorf("encryption_key must be 16 bytes, got %d", len(c.EncryptionKey))
	}
	if c.Layout.Margin < 0 {
		return fmt.Errorf("layout.margin must not be negative, got %d", c.Layout.Margin)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
