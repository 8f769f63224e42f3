// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

// Package config handles application configuration from environment
// variables and optional YAML config files, with sensible defaults.
//
// Precedence: environment variables > config file > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Import modes. Full mode archives every player event row; skip-raw-archival
// stages events in a temporary table and keeps only the collapsed sessions.
const (
	ImportModeFull            = "full"
	ImportModeSkipRawArchival = "skip-raw-archival"
)

// Config is the root configuration for all AdLens commands.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Import   ImportConfig   `koanf:"import"`
	Grading  GradingConfig  `koanf:"grading"`
	Audit    AuditConfig    `koanf:"audit"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"min=0"` // 0 = use runtime.NumCPU()
}

// ImportConfig holds CSV ingestion settings.
type ImportConfig struct {
	PlayerEventsFile string `koanf:"player_events_file"`
	ImpressionsFile  string `koanf:"impressions_file"`
	BatchSize        int    `koanf:"batch_size" validate:"min=1,max=100000"`
	Mode             string `koanf:"mode" validate:"oneof=full skip-raw-archival"`
	SampleLimit      int    `koanf:"sample_limit" validate:"min=0"`
}

// GradingConfig holds the percentile thresholds used to assign letter
// grades to campaigns ranked by entrance rate. A campaign whose percentile
// is below SBelow gets S, below ABelow gets A, and so on; everything at or
// above CBelow gets D.
type GradingConfig struct {
	SBelow float64 `koanf:"s_below" validate:"gt=0,lte=100"`
	ABelow float64 `koanf:"a_below" validate:"gt=0,lte=100"`
	BBelow float64 `koanf:"b_below" validate:"gt=0,lte=100"`
	CBelow float64 `koanf:"c_below" validate:"gt=0,lte=100"`
}

// AuditConfig holds quality-audit settings.
type AuditConfig struct {
	File        string `koanf:"file"`
	SampleLimit int    `koanf:"sample_limit" validate:"min=0"`
	LogDir      string `koanf:"log_dir" validate:"required"`
}

// ServerConfig holds HTTP read-API settings.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that the configuration is complete and internally
// consistent. Struct tags cover per-field bounds; cross-field rules are
// checked by hand.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	g := c.Grading
	if !(g.SBelow < g.ABelow && g.ABelow < g.BBelow && g.BBelow < g.CBelow) {
		return fmt.Errorf("grading thresholds must be strictly increasing: s_below=%.1f a_below=%.1f b_below=%.1f c_below=%.1f",
			g.SBelow, g.ABelow, g.BBelow, g.CBelow)
	}

	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("server.rate_limit_window must be positive, got %s", c.Server.RateLimitWindow)
	}

	return nil
}
