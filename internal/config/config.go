// Package config loads the keyctl configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds settings from $XDG_CONFIG_HOME/keyctl/config.yaml.
type Config struct {
	// DBPath overrides database discovery when set.
	DBPath             string `yaml:"db_path"`
	LogLevel           string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat          string `yaml:"log_format" validate:"omitempty,oneof=text json"`
	IdentificationMode string `yaml:"identification_mode" validate:"omitempty,oneof=fluid strict"`
	Output             string `yaml:"output" validate:"omitempty,oneof=text json"`
}

var validate = validator.New()

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Output:    "text",
	}
}

// DefaultPath returns the config file location, honouring XDG_CONFIG_HOME.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "keyctl", "config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "keyctl", "config.yaml")
	}
	return ""
}

// Load reads the file at path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
