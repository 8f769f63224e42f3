// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/models"
	"github.com/adlens/adlens/internal/pipeline"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run the import pipeline: ingest, collapse, reconcile, repair",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			if modeFlag != "" {
				if modeFlag != config.ImportModeFull && modeFlag != config.ImportModeSkipRawArchival {
					return fmt.Errorf("unknown import mode %q", modeFlag)
				}
				cfg.Import.Mode = modeFlag
			}

			result, err := pipeline.New(db, cfg).Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Import finished in %s (mode %s)\n", result.Elapsed.Round(time.Millisecond), result.Mode)
			printImportStats(cmd, "Player events", result.PlayerStats)
			printImportStats(cmd, "Impressions", result.ImpressionStats)
			fmt.Fprintf(out, "Sessions:      %d collapsed, %d duplicates skipped\n",
				result.Collapse.SessionsInserted, result.Collapse.SessionsSkipped)
			fmt.Fprintf(out, "Reconciled:    %d/%d sessions (%.2f%%), %d audiences linked\n",
				result.Reconcile.MatchedSessions, result.Reconcile.TotalSessions,
				result.Reconcile.MatchRate, result.Reconcile.LinkedAudiences)
			fmt.Fprintf(out, "Repaired:      %d impressions, %d sessions (%d/%d residual)\n",
				result.Repair.ImpressionsRepaired, result.Repair.SessionsRepaired,
				result.Repair.ResidualImpressions, result.Repair.ResidualSessions)
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "Import mode: full or skip-raw-archival")

	return cmd
}

func printImportStats(cmd *cobra.Command, label string, stats models.ImportStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-14s %d rows, %d inserted, %d duplicates, %d invalid\n",
		label+":", stats.TotalRows, stats.Inserted, stats.Duplicates, stats.Invalid)
	for _, issue := range stats.InvalidSample {
		fmt.Fprintf(out, "  line %d: %s", issue.Line, issue.Reason)
		if issue.Field != "" {
			fmt.Fprintf(out, " (field %s, value %q)", issue.Field, issue.Value)
		}
		fmt.Fprintln(out)
	}
}
