// Package config holds the two configuration surfaces of a build: the
// ambient tool configuration (.kiln.yml) and the per-build descriptor
// that names source, image and plugins.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".kiln.yml"

// Config is the top-level kiln configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Registry RegistryConfig `yaml:"registry"`
}

// BackendConfig selects and tunes the build engine connection.
type BackendConfig struct {
	// Endpoint of the engine API; empty means the environment decides.
	Endpoint string `yaml:"endpoint"`

	// Retries is the number of extra attempts for transient engine
	// errors.
	Retries int `yaml:"retries"`

	// Backoff is the base delay between retries; it doubles per
	// attempt.
	Backoff time.Duration `yaml:"backoff"`
}

// RegistryConfig carries push credentials.
type RegistryConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load reads configuration from a YAML file. If path is empty, it
// tries the default file. Returns sensible defaults if the file
// doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{}
}
