// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/adlens/adlens/internal/models"
)

func TestVerifyReconciliation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsertEvents(t, db,
		testEvent("cmp-1", "sess-1", models.ActionPlayStart, "c1", baseTime),
		// Starts, but no impression arrives at this instant.
		testEvent("cmp-1", "sess-2", models.ActionPlayStart, "c1", baseTime.Add(time.Hour)),
		// Never starts at all.
		testEvent("cmp-1", "sess-3", models.ActionPlayEnd, "c1", baseTime.Add(2*time.Hour)),
	)

	imp1 := testImpression("c1", "aud-1", baseTime)
	imp1.Gender = strPtr("M")
	imp1.Age = strPtr("20s")
	imp2 := testImpression("c1", "aud-2", baseTime)
	imp2.Gender = strPtr("F")
	imp2.Age = strPtr("30s")
	mustInsertImpressions(t, db, imp1, imp2)

	mustCollapse(t, db)
	mustReconcile(t, db)

	report, err := db.VerifyReconciliation(ctx)
	if err != nil {
		t.Fatalf("VerifyReconciliation failed: %v", err)
	}

	if report.TotalSessions != 3 || report.MatchedSessions != 1 {
		t.Errorf("Expected 1 of 3 sessions matched, got %d of %d",
			report.MatchedSessions, report.TotalSessions)
	}
	if report.TotalImpressions != 2 || report.LinkedImpressions != 2 {
		t.Errorf("Expected all 2 impressions linked, got %d of %d",
			report.LinkedImpressions, report.TotalImpressions)
	}
	if report.ImpressionLinkRate != 100 {
		t.Errorf("Expected 100%% link rate, got %f", report.ImpressionLinkRate)
	}
	if report.AvgAudiences != 2 || report.MinAudiences != 2 || report.MaxAudiences != 2 {
		t.Errorf("Expected uniform audience count 2, got avg=%f min=%d max=%d",
			report.AvgAudiences, report.MinAudiences, report.MaxAudiences)
	}

	t.Run("distribution", func(t *testing.T) {
		if len(report.Distribution) != 1 {
			t.Fatalf("Expected one distribution bucket, got %v", report.Distribution)
		}
		b := report.Distribution[0]
		if b.AudienceCount != 2 || b.SessionCount != 1 || b.Percent != 100 {
			t.Errorf("Unexpected bucket: %+v", b)
		}
	})

	t.Run("no mismatches on a correct reconciliation", func(t *testing.T) {
		if len(report.Mismatches) != 0 {
			t.Errorf("Expected no link mismatches, got %v", report.Mismatches)
		}
	})

	t.Run("unmatched causes split", func(t *testing.T) {
		if report.UnmatchedNoStartAt != 1 {
			t.Errorf("Expected 1 session without start_at, got %d", report.UnmatchedNoStartAt)
		}
		if report.UnmatchedNoData != 1 {
			t.Errorf("Expected 1 session without counterpart data, got %d", report.UnmatchedNoData)
		}
	})

	t.Run("samples carry the audience roster", func(t *testing.T) {
		if len(report.Samples) != 1 {
			t.Fatalf("Expected one sample, got %d", len(report.Samples))
		}
		s := report.Samples[0]
		if s.CampaignSessionID != "sess-1" || s.AudienceCount != 2 {
			t.Errorf("Unexpected sample: %+v", s)
		}
		if !strings.Contains(s.Audiences, "aud-1") || !strings.Contains(s.Audiences, "aud-2") {
			t.Errorf("Expected both audiences in roster, got %q", s.Audiences)
		}
	})
}

func TestVerifyReconciliationEmptyDatabase(t *testing.T) {
	db := setupTestDB(t)

	report, err := db.VerifyReconciliation(context.Background())
	if err != nil {
		t.Fatalf("VerifyReconciliation failed: %v", err)
	}
	if report.TotalSessions != 0 || report.SessionMatchRate != 0 {
		t.Errorf("Expected empty report, got %+v", report)
	}
	if len(report.Distribution) != 0 || len(report.Samples) != 0 {
		t.Errorf("Expected no buckets or samples, got %+v", report)
	}
}
