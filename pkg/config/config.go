// Package config loads the harmonyctl configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the harmonyctl configuration.
type Config struct {
	GatewayURL string `yaml:"gateway_url" json:"gateway_url"`
	Token      string `yaml:"token" json:"token"`
	Format     string `yaml:"format" json:"format"`
	Device     string `yaml:"device" json:"device"`
}

// DefaultPath returns the default config file path: ~/.harmony/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".harmony", "config.yaml")
	}
	return filepath.Join(home, ".harmony", "config.yaml")
}

// Load reads the configuration from the given YAML file path.
// If the file does not exist, it returns a default Config with no error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		GatewayURL: "wss://harmony.adapt.chat",
		Format:     "json",
		Device:     "desktop",
	}

	// Check permissions before reading: warn if the config file is
	// world-readable, since it may contain a token.
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		fmt.Fprintf(os.Stderr,
			"warning: config file %s has permissions %04o, expected 0600. "+
				"Tokens may be exposed to other users.\n",
			path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
