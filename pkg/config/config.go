package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nspcc-dev/aioracle/pkg/core/storage/dbconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is the default path to the config directory.
	DefaultConfigPath = "./config"
	// DefaultConfigFile is the name of the config file in the config
	// directory.
	DefaultConfigFile = "protocol.yml"

	// DefaultMaxReqThreshold is the default percentage of active executors a
	// request threshold may reach.
	DefaultMaxReqThreshold = 67

	// UserAgentFormat is a formatted string used to generate user agent string.
	UserAgentFormat = "/aioracle:%s/"
)

// Version is the version of the node, set at build time.
var Version string

// Config top level struct representing the config
// for the node.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
	Oracle                   Oracle                   `yaml:"Oracle"`
}

// Load attempts to load the config from the given directory.
func Load(path string) (Config, error) {
	return LoadFile(filepath.Join(path, DefaultConfigFile))
}

// LoadFile loads config from the provided path. Unknown fields are
// rejected and the result is validated.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err = decoder.Decode(&config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Default returns the configuration with all the defaults applied.
func Default() Config {
	return Config{
		ApplicationConfiguration: ApplicationConfiguration{
			DBConfiguration: dbconfig.DBConfiguration{
				Type: dbconfig.InMemoryDB,
			},
			LogLevel: "info",
			RPC: RPC{
				MaxRequestBodyBytes:   DefaultMaxRequestBodyBytes,
				MaxRequestHeaderBytes: DefaultMaxRequestHeaderBytes,
				MaxWebSocketClients:   DefaultMaxWebSocketClients,
				MaxWebSocketFeeds:     DefaultMaxWebSocketFeeds,
			},
		},
		Oracle: Oracle{
			MaxReqThreshold: DefaultMaxReqThreshold,
		},
	}
}

// Validate checks the whole configuration for consistency.
func (c *Config) Validate() error {
	if err := c.ApplicationConfiguration.Validate(); err != nil {
		return err
	}
	if err := c.Oracle.Validate(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	return nil
}

// UserAgent returns the node user agent string with the current version.
func UserAgent() string {
	return fmt.Sprintf(UserAgentFormat, Version)
}
