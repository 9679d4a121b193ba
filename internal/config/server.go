// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package config loads the YAML-driven server and client
// configuration described by the ambient configuration component:
// listen address, worker-thread count, simulation defaults, rate
// limits and observability/archival toggles.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the top-level server configuration file.
type ServerConfig struct {
	Listen               string             `yaml:"listen"`
	Protocol             string             `yaml:"protocol"` // "uamp" or "mvisp"
	MaxAgents            uint32             `yaml:"max_agents"`
	Workers              int                `yaml:"workers"` // 0 = detect logical CPU count
	ReplyRateBytesPerSec int                `yaml:"reply_rate_bytes_per_sec"` // 0 = unlimited
	Logging              LoggingConfig      `yaml:"logging"`
	Metrics              MetricsConfig      `yaml:"metrics"`
	Archive              ArchiveConfig      `yaml:"archive"`
	Housekeeping         HousekeepingConfig `yaml:"housekeeping"`
	Simulation           SimulationConfig   `yaml:"simulation"`
}

// LoggingConfig selects the slog handler format/level and an optional
// log file fan-out.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|text
	File   string `yaml:"file"`   // empty = stdout only
}

// MetricsConfig controls the Prometheus /metrics endpoint. TCP
// diagnostics sampling does not depend on it.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ArchiveConfig controls session-trace capture and optional S3
// upload.
type ArchiveConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Directory      string `yaml:"directory"`
	RetentionCount int    `yaml:"retention_count"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Prefix       string `yaml:"s3_prefix"`
	S3Region       string `yaml:"s3_region"`
}

// HousekeepingConfig controls the cron-driven reaper.
type HousekeepingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// SimulationConfig seeds the map-free reference mobility generator.
type SimulationConfig struct {
	BoundMM uint32 `yaml:"bound_mm"`
	StepMS  uint32 `yaml:"step_ms"`

	// DurationMS is the simulation's time limit for the MVISP
	// variant, where the server (not the client) publishes it as
	// part of the spec offer.
	DurationMS uint32 `yaml:"duration_ms"`

	// NumAgents is the agent count an MVISP server publishes in its
	// spec offer. Distinct from MaxAgents (the UAMP accept-cap): a
	// zero value here is a legitimate, if degenerate, MVISP
	// configuration that denies every client per the MVISP-no-agents
	// rule, so it is never defaulted to 1.
	NumAgents uint32 `yaml:"num_agents"`
}

// DurationOrDefault returns DurationMS, or a 60-second default when
// unset.
func (c SimulationConfig) DurationOrDefault() uint32 {
	if c.DurationMS == 0 {
		return 60_000
	}
	return c.DurationMS
}

func (c *ServerConfig) setDefaults() {
	if c.Workers == 0 {
		c.Workers = 0 // resolved at runtime via gopsutil; 0 remains the "detect" sentinel
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Housekeeping.Cron == "" {
		c.Housekeeping.Cron = "*/5 * * * *"
	}
	if c.Archive.RetentionCount == 0 {
		c.Archive.RetentionCount = 10
	}
	if c.Simulation.BoundMM == 0 {
		c.Simulation.BoundMM = 1_000_000
	}
	if c.Simulation.StepMS == 0 {
		c.Simulation.StepMS = 100
	}
}

// Validate fills in defaults and bounds-checks the loaded config.
func (c *ServerConfig) Validate() error {
	c.setDefaults()
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.Protocol != "uamp" && c.Protocol != "mvisp" {
		return fmt.Errorf("config: protocol must be \"uamp\" or \"mvisp\", got %q", c.Protocol)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	if c.ReplyRateBytesPerSec < 0 {
		return fmt.Errorf("config: reply_rate_bytes_per_sec must be >= 0")
	}
	if c.Archive.Enabled && c.Archive.Directory == "" {
		return fmt.Errorf("config: archive.directory is required when archive.enabled is true")
	}
	return nil
}

// LoadServerConfig reads and validates a ServerConfig from path.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
