// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package main

import (
	"os"
	"sync"

	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/database"
	"github.com/adlens/adlens/internal/logging"
)

// commandContext loads configuration once and hands out shared resources
// to the subcommands.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads and validates the configuration, then initializes
// logging from it. The --config flag takes the place of CONFIG_PATH.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.configFlag != nil && *c.configFlag != "" {
			if err := os.Setenv(config.ConfigPathEnvVar, *c.configFlag); err != nil {
				c.configErr = err
				return
			}
		}

		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}

		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Caller: cfg.Logging.Caller,
		})
		c.config = cfg
	})
	return c.config, c.configErr
}

// openDB opens the configured database. Callers own the returned handle
// and must Close it.
func (c *commandContext) openDB() (*database.DB, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

// closeDB closes the database, logging rather than failing on error.
func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database")
	}
}
