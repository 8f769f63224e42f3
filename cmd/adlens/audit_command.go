// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/adlens/adlens/internal/pipeline"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit an impression CSV for quality issues without importing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			file := cfg.Audit.File
			if fileFlag != "" {
				file = fileFlag
			}

			report, err := pipeline.NewAuditor(cfg.Audit).Audit(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Audited %s in %s (run %s)\n",
				report.File, report.Elapsed.Round(time.Millisecond), report.RunID)
			fmt.Fprintf(out, "Rows: %d total, %d clean\n", report.TotalRows, report.CleanRows)

			if len(report.Issues) == 0 {
				fmt.Fprintln(out, "No issues found")
				return nil
			}

			types := make([]string, 0, len(report.Issues))
			for t := range report.Issues {
				types = append(types, t)
			}
			sort.Strings(types)

			for _, t := range types {
				tally := report.Issues[t]
				fmt.Fprintf(out, "%s: %d\n", t, tally.Count)
				for _, issue := range tally.Samples {
					fmt.Fprintf(out, "  line %d: %s", issue.Line, issue.Reason)
					if issue.Field != "" {
						fmt.Fprintf(out, " (field %s, value %q)", issue.Field, issue.Value)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fileFlag, "file", "", "CSV file to audit (defaults to the configured audit file)")

	return cmd
}
