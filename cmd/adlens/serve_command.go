// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package main

import (
	"github.com/spf13/cobra"

	"github.com/adlens/adlens/internal/api"
	"github.com/adlens/adlens/internal/grading"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API over the star schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			srv := api.NewServer(cfg.Server, db, grading.FromConfig(cfg.Grading))
			return srv.Start(cmd.Context())
		},
	}
}
