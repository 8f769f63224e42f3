// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adlens/adlens/internal/grading"
	"github.com/adlens/adlens/internal/metrics"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the star schema from reconciled sessions and impressions",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			started := time.Now()
			stats, err := db.BuildStarSchema(cmd.Context(), grading.FromConfig(cfg.Grading))
			if err != nil {
				metrics.StageErrors.WithLabelValues("build").Inc()
				return err
			}
			metrics.ObserveStage("build", time.Since(started))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Star schema rebuilt in %s\n", time.Since(started).Round(time.Millisecond))
			fmt.Fprintf(out, "Campaigns:  %d\n", stats.Campaigns)
			fmt.Fprintf(out, "Customers:  %d\n", stats.Customers)
			fmt.Fprintf(out, "Events:     %d\n", stats.Events)
			fmt.Fprintf(out, "Summaries:  %d\n", stats.Summaries)
			fmt.Fprintf(out, "Details:    %d\n", stats.Details)
			return nil
		},
	}
}
