// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the session-impression reconciliation without modifying data",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			report, err := db.VerifyReconciliation(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sessions:    %d matched of %d (%.2f%%)\n",
				report.MatchedSessions, report.TotalSessions, report.SessionMatchRate)
			fmt.Fprintf(out, "Impressions: %d linked of %d (%.2f%%)\n",
				report.LinkedImpressions, report.TotalImpressions, report.ImpressionLinkRate)
			fmt.Fprintf(out, "Audiences:   avg %.2f, min %d, max %d per matched session\n",
				report.AvgAudiences, report.MinAudiences, report.MaxAudiences)

			fmt.Fprintln(out, "\nAudience distribution:")
			for _, bucket := range report.Distribution {
				fmt.Fprintf(out, "  %3d audiences: %6d sessions (%.2f%%)\n",
					bucket.AudienceCount, bucket.SessionCount, bucket.Percent)
			}

			fmt.Fprintf(out, "\nUnmatched: %d without start time, %d with no counterpart data\n",
				report.UnmatchedNoStartAt, report.UnmatchedNoData)

			if len(report.Mismatches) == 0 {
				fmt.Fprintln(out, "Link accuracy: all linked impressions satisfy the match predicate")
			} else {
				fmt.Fprintf(out, "Link accuracy: %d sessions hold mismatched links\n", len(report.Mismatches))
				for _, m := range report.Mismatches {
					fmt.Fprintf(out, "  %s (content %s): %d matched, %d mismatched\n",
						m.CampaignSessionID, m.ContentID, m.Matched, m.Mismatched)
				}
			}

			if len(report.Samples) > 0 {
				fmt.Fprintln(out, "\nLargest sessions:")
				for _, s := range report.Samples {
					fmt.Fprintf(out, "  %s (content %s, %s): %d audiences: %s\n",
						s.CampaignSessionID, s.ContentID, s.StartAt.Format(time.RFC3339),
						s.AudienceCount, s.Audiences)
				}
			}
			return nil
		},
	}
}
