// SPDX-License-Identifier: MPL-2.0

// Package config loads optional tool-level defaults with Viper from
// ~/.config/pkgdeploy/config.toml (or the platform equivalent). Everything
// in it can be overridden by CLI flags; a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "pkgdeploy"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

type (
	// Config is the tool-level configuration.
	Config struct {
		// Repository holds default upload target settings.
		Repository RepositoryDefaults `mapstructure:"repository"`
		// Verbose enables debug logging by default.
		Verbose bool `mapstructure:"verbose"`
	}

	// RepositoryDefaults are fallback values for the upload target, used
	// when the corresponding flags are not given.
	RepositoryDefaults struct {
		Name     string `mapstructure:"name"`
		URL      string `mapstructure:"url"`
		Username string `mapstructure:"username"`
	}
)

// ConfigDir returns the pkgdeploy configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the config file and environment overrides. A missing config
// file yields the zero-value defaults.
func Load() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileExt)
	v.AddConfigPath(dir)

	v.SetEnvPrefix("PKGDEPLOY")
	v.AutomaticEnv()

	v.SetDefault("repository.name", "")
	v.SetDefault("repository.url", "")
	v.SetDefault("repository.username", "")
	v.SetDefault("verbose", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
