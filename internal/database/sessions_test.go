// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package database

import (
	"context"
	"testing"
	"time"

	"github.com/adlens/adlens/internal/models"
)

func TestCollapseSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := testEvent("cmp-1", "sess-1", models.ActionPlayStart, "content-1", baseTime)
	start.ContentTitle = strPtr("Brand Video")
	start.DeviceID = strPtr("device-9")

	earlyEnd := testEvent("cmp-1", "sess-1", models.ActionPlayEnd, "content-1", baseTime.Add(10*time.Second))
	earlyEnd.DurationSecond = floatPtr(10)
	earlyEnd.ElapsedSecond = floatPtr(9)

	lateEnd := testEvent("cmp-1", "sess-1", models.ActionPlayEnd, "content-1", baseTime.Add(30*time.Second))
	lateEnd.DurationSecond = floatPtr(30)
	lateEnd.ElapsedSecond = floatPtr(29)

	mustInsertEvents(t, db, start, earlyEnd, lateEnd)

	stats := mustCollapse(t, db)
	if stats.SourceEvents != 3 {
		t.Errorf("Expected 3 source events, got %d", stats.SourceEvents)
	}
	if stats.SessionsInserted != 1 {
		t.Errorf("Expected 1 session inserted, got %d", stats.SessionsInserted)
	}

	s := getSession(t, db, "sess-1")
	if s.CampaignID != "cmp-1" {
		t.Errorf("Expected campaign cmp-1, got %s", s.CampaignID)
	}
	if s.ContentTitle == nil || *s.ContentTitle != "Brand Video" {
		t.Errorf("Expected content title Brand Video, got %v", s.ContentTitle)
	}
	if s.StartAt == nil || !s.StartAt.Equal(baseTime) {
		t.Errorf("Expected start_at %v, got %v", baseTime, s.StartAt)
	}

	// All end fields come from the latest PLAY_END row as a unit.
	if s.EndAt == nil || !s.EndAt.Equal(baseTime.Add(30*time.Second)) {
		t.Errorf("Expected end_at from latest PLAY_END, got %v", s.EndAt)
	}
	if s.DurationSecond == nil || *s.DurationSecond != 30 {
		t.Errorf("Expected duration 30, got %v", s.DurationSecond)
	}
	if s.ElapsedSecond == nil || *s.ElapsedSecond != 29 {
		t.Errorf("Expected elapsed 29, got %v", s.ElapsedSecond)
	}

	t.Run("existing sessions survive a re-collapse", func(t *testing.T) {
		again, err := db.CollapseSessions(ctx, RawPlayerEvents)
		if err != nil {
			t.Fatalf("CollapseSessions failed: %v", err)
		}
		if again.SessionsInserted != 0 {
			t.Errorf("Expected 0 inserted on re-collapse, got %d", again.SessionsInserted)
		}
		if again.SessionsSkipped != 1 {
			t.Errorf("Expected 1 skipped on re-collapse, got %d", again.SessionsSkipped)
		}
	})
}

func TestCollapseSessionsDropsEmptySessionID(t *testing.T) {
	db := setupTestDB(t)

	orphan := testEvent("cmp-1", "", models.ActionPlayStart, "content-1", baseTime)
	mustInsertEvents(t, db, orphan)

	stats := mustCollapse(t, db)
	if stats.SourceEvents != 1 {
		t.Errorf("Expected 1 source event, got %d", stats.SourceEvents)
	}
	if stats.SessionsInserted != 0 {
		t.Errorf("Expected orphan event to be dropped, got %d sessions", stats.SessionsInserted)
	}
}

func TestCollapseSessionsWithoutStart(t *testing.T) {
	db := setupTestDB(t)

	end := testEvent("cmp-1", "sess-tail", models.ActionPlayEnd, "content-1", baseTime)
	end.DurationSecond = floatPtr(15)
	mustInsertEvents(t, db, end)

	mustCollapse(t, db)

	s := getSession(t, db, "sess-tail")
	if s.StartAt != nil {
		t.Errorf("Expected NULL start_at for session without PLAY_START, got %v", s.StartAt)
	}
	if s.EndAt == nil || !s.EndAt.Equal(baseTime) {
		t.Errorf("Expected end_at %v, got %v", baseTime, s.EndAt)
	}
}

func TestCollapseSessionsRejectsUnknownSource(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.CollapseSessions(context.Background(), "raw_impressions"); err == nil {
		t.Fatal("Expected error for unknown source table")
	}
}

func TestCollapseSessionsFromStaging(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.CreateStagingPlayerEvents(ctx); err != nil {
		t.Fatalf("CreateStagingPlayerEvents failed: %v", err)
	}

	start := testEvent("cmp-2", "sess-stg", models.ActionPlayStart, "content-2", baseTime)
	end := testEvent("cmp-2", "sess-stg", models.ActionPlayEnd, "content-2", baseTime.Add(time.Minute))
	end.DurationSecond = floatPtr(60)

	n, err := db.InsertStagingPlayerEvents(ctx, []models.PlayerEvent{start, end})
	if err != nil {
		t.Fatalf("InsertStagingPlayerEvents failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 staged rows, got %d", n)
	}

	stats, err := db.CollapseSessions(ctx, StagingPlayerEvents)
	if err != nil {
		t.Fatalf("CollapseSessions from staging failed: %v", err)
	}
	if stats.SessionsInserted != 1 {
		t.Errorf("Expected 1 session from staging, got %d", stats.SessionsInserted)
	}

	if err := db.DropStagingPlayerEvents(ctx); err != nil {
		t.Fatalf("DropStagingPlayerEvents failed: %v", err)
	}

	// The collapsed session must outlive the staging table.
	s := getSession(t, db, "sess-stg")
	if s.CampaignID != "cmp-2" {
		t.Errorf("Expected campaign cmp-2, got %s", s.CampaignID)
	}
	if s.StartAt == nil || !s.StartAt.Equal(baseTime) {
		t.Errorf("Expected start_at %v, got %v", baseTime, s.StartAt)
	}
}
