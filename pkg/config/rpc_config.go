package config

import (
	"errors"
)

// Default RPC server limits.
const (
	DefaultMaxRequestBodyBytes   = 5 * 1024 * 1024
	DefaultMaxRequestHeaderBytes = 1024 * 1024
	DefaultMaxWebSocketClients   = 64
	DefaultMaxWebSocketFeeds     = 16
)

// RPC is an RPC service configuration information.
type RPC struct {
	BasicService          `yaml:",inline"`
	EnableCORSWorkaround  bool `yaml:"EnableCORSWorkaround"`
	MaxRequestBodyBytes   int  `yaml:"MaxRequestBodyBytes"`
	MaxRequestHeaderBytes int  `yaml:"MaxRequestHeaderBytes"`
	MaxWebSocketClients   int  `yaml:"MaxWebSocketClients"`
	MaxWebSocketFeeds     int  `yaml:"MaxWebSocketFeeds"`
}

// Validate checks RPC for internal consistency. It returns an error if the
// configuration is invalid.
func (cfg *RPC) Validate() error {
	if cfg.MaxRequestBodyBytes <= 0 {
		return errors.New("MaxRequestBodyBytes must be positive")
	}
	if cfg.MaxRequestHeaderBytes <= 0 {
		return errors.New("MaxRequestHeaderBytes must be positive")
	}
	if cfg.MaxWebSocketClients < 0 || cfg.MaxWebSocketFeeds < 0 {
		return errors.New("negative websocket limits")
	}
	return nil
}
