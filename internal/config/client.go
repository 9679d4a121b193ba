// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClientConfig is the top-level client configuration file.
type ClientConfig struct {
	Server      string   `yaml:"server"`
	Protocol    string   `yaml:"protocol"` // "uamp" or "mvisp"
	QueueSize   int      `yaml:"queue_size"`
	Features    FeatureFlags `yaml:"features"`

	// UAMP-only convenience overrides.
	NumAgents uint32 `yaml:"num_agents"`
	DurationMS uint32 `yaml:"duration_ms"`
	Seed       uint32 `yaml:"seed"`

	// MVISP-only: the state table the client will offer on accept.
	States []string `yaml:"states"`
}

// FeatureFlags mirrors protocol.Features in config-file form, kept
// independent of the protocol package so config stays a leaf
// dependency.
type FeatureFlags struct {
	ThreeD          bool `yaml:"three_d"`
	AppearDisappear bool `yaml:"appear_disappear"`
}

func (c *ClientConfig) setDefaults() {
	if c.QueueSize == 0 {
		c.QueueSize = 6
	}
}

// Validate fills in defaults and bounds-checks the loaded config.
func (c *ClientConfig) Validate() error {
	c.setDefaults()
	if c.Server == "" {
		return fmt.Errorf("config: server address is required")
	}
	if c.Protocol != "uamp" && c.Protocol != "mvisp" {
		return fmt.Errorf("config: protocol must be \"uamp\" or \"mvisp\", got %q", c.Protocol)
	}
	if c.QueueSize < 2 {
		return fmt.Errorf("config: queue_size must be >= 2, got %d", c.QueueSize)
	}
	if c.Protocol == "uamp" && c.NumAgents == 0 {
		return fmt.Errorf("config: num_agents is required for the uamp protocol")
	}
	return nil
}

// LoadClientConfig reads and validates a ClientConfig from path.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
