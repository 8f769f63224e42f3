// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/models"
)

func TestAudit(t *testing.T) {
	dir := t.TempDir()
	logDir := t.TempDir()

	file := writeFixture(t, dir, "impressions.csv",
		`content_id,title,audience_id,age,gender,play_at,attention_sec,is_attention,is_entrance,content_group
c1,Clean Ad,aud-1,20s,M,2025-06-01 10:00:00,5.5,true,true,drinks
c1,Clean Ad,,20s,F,2025-06-01 10:00:01,3,true,false,drinks
c1,Clean Ad,aud-2,20s,M,not-a-date,3,true,false,drinks
c1,Clean Ad,aud-3,20s,M,2025-06-01 10:00:02,-4,true,false,drinks
c1,Clean Ad,aud-4,20s,M,2025-06-01 10:00:03,3,yes,false,drinks
c1,Clean Ad,aud-5,20s,X,2025-06-01 10:00:04,3,true,false,drinks
c1,spot_03.mp4,aud-6,20s,M,2025-06-01 10:00:05,3,true,false,drinks
c1,Clean Ad,aud-1,20s,M,2025-06-01 10:00:00,5.5,true,true,drinks
c2,Clean Ad,aud-7,30s,여,2025-06-01 10:00:06,2,false,false,snacks
`)

	auditor := NewAuditor(config.AuditConfig{SampleLimit: 3, LogDir: logDir})
	report, err := auditor.Audit(file)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}

	if report.TotalRows != 9 {
		t.Errorf("Expected 9 rows, got %d", report.TotalRows)
	}
	// Rows 1 and 9 are the only defect-free ones.
	if report.CleanRows != 2 {
		t.Errorf("Expected 2 clean rows, got %d", report.CleanRows)
	}

	wantCounts := map[string]int64{
		models.IssueMissingField:       1,
		models.IssueInvalidDate:        1,
		models.IssueInvalidNumber:      1,
		models.IssueInvalidBoolean:     1,
		models.IssueInvalidGender:      1,
		models.IssueForbiddenExtension: 1,
		models.IssueDuplicateKey:       1,
	}
	for issueType, want := range wantCounts {
		tally := report.Issues[issueType]
		if tally == nil {
			t.Errorf("Expected issues of type %s", issueType)
			continue
		}
		if tally.Count != want {
			t.Errorf("Expected %d %s issues, got %d", want, issueType, tally.Count)
		}
		if len(tally.Samples) == 0 {
			t.Errorf("Expected samples for %s", issueType)
		}
	}

	t.Run("korean gender labels are allowed", func(t *testing.T) {
		if tally := report.Issues[models.IssueInvalidGender]; tally.Count != 1 {
			t.Errorf("Expected only X flagged, got %+v", tally)
		}
	})

	t.Run("log file is written per run", func(t *testing.T) {
		matches, err := filepath.Glob(filepath.Join(logDir, "quality-check-"+report.RunID+".log"))
		if err != nil {
			t.Fatalf("Glob failed: %v", err)
		}
		if len(matches) != 1 {
			t.Errorf("Expected one audit log for run %s, got %v", report.RunID, matches)
		}
	})
}

func TestAuditSampleCap(t *testing.T) {
	dir := t.TempDir()

	// Five rows with empty audience ids, cap of two samples.
	file := writeFixture(t, dir, "impressions.csv",
		`content_id,title,audience_id,age,gender,play_at,attention_sec,is_attention,is_entrance,content_group
c1,Ad,,20s,M,2025-06-01 10:00:00,1,true,true,g
c1,Ad,,20s,M,2025-06-01 10:00:01,1,true,true,g
c1,Ad,,20s,M,2025-06-01 10:00:02,1,true,true,g
c1,Ad,,20s,M,2025-06-01 10:00:03,1,true,true,g
c1,Ad,,20s,M,2025-06-01 10:00:04,1,true,true,g
`)

	auditor := NewAuditor(config.AuditConfig{SampleLimit: 2, LogDir: t.TempDir()})
	report, err := auditor.Audit(file)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}

	tally := report.Issues[models.IssueMissingField]
	if tally == nil || tally.Count != 5 {
		t.Fatalf("Expected 5 missing-field issues, got %+v", tally)
	}
	if len(tally.Samples) != 2 {
		t.Errorf("Expected samples capped at 2, got %d", len(tally.Samples))
	}
}

func TestAuditColumnRules(t *testing.T) {
	dir := t.TempDir()

	// Every column is required, booleans are case-insensitive, and a row
	// with several empty columns yields a single missing-field issue.
	file := writeFixture(t, dir, "impressions.csv",
		`content_id,title,audience_id,age,gender,play_at,attention_sec,is_attention,is_entrance,content_group
c1,,aud-1,20s,M,2025-06-01 10:00:00,1,true,true,g
c1,Ad,aud-2,20s,M,2025-06-01 10:00:01,1,TRUE,False,g
c1,Ad,aud-3,,M,2025-06-01 10:00:02,1,true,true,
`)

	auditor := NewAuditor(config.AuditConfig{SampleLimit: 5, LogDir: t.TempDir()})
	report, err := auditor.Audit(file)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}

	tally := report.Issues[models.IssueMissingField]
	if tally == nil || tally.Count != 2 {
		t.Fatalf("Expected 2 missing-field issues, got %+v", tally)
	}
	if tally.Samples[0].Field != "title" || tally.Samples[1].Field != "age" {
		t.Errorf("Expected first empty column flagged per row, got %+v", tally.Samples)
	}

	if report.Issues[models.IssueInvalidBoolean] != nil {
		t.Errorf("Expected no boolean issues for mixed case, got %+v",
			report.Issues[models.IssueInvalidBoolean])
	}
	if report.CleanRows != 1 {
		t.Errorf("Expected 1 clean row, got %d", report.CleanRows)
	}
}

func TestAuditMissingFile(t *testing.T) {
	auditor := NewAuditor(config.AuditConfig{SampleLimit: 2, LogDir: t.TempDir()})
	if _, err := auditor.Audit(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
