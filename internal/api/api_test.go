// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/database"
	"github.com/adlens/adlens/internal/grading"
	"github.com/adlens/adlens/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests in this package.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestServer(t *testing.T) (*database.DB, http.Handler) {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	srv := NewServer(config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		Timeout:         10 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
	}, db, grading.Default())

	return db, srv.Router()
}

func doGet(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func seedSummaries(t *testing.T, db *database.DB) {
	t.Helper()
	rows := []models.PerformanceSummary{
		{CampaignID: "cmp-a", ContentTitle: "Brand Video", ContentGroup: "drinks",
			Impressions: 100, AttentionRate: 0.4, EntranceRate: 0.8, Grade: "S"},
		{CampaignID: "cmp-b", ContentTitle: "Other Ad", ContentGroup: "drinks",
			Impressions: 50, AttentionRate: 0.2, EntranceRate: 0.5, Grade: "B"},
		{CampaignID: "cmp-c", ContentTitle: "Third Ad", ContentGroup: "",
			Impressions: 50, AttentionRate: 0.1, EntranceRate: 0.2, Grade: "D"},
	}
	for _, s := range rows {
		_, err := db.Conn().Exec(`
			INSERT INTO performance_summaries (
				campaign_id, content_title, content_group, impressions,
				attention_rate, entrance_rate, grade
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.CampaignID, s.ContentTitle, s.ContentGroup, s.Impressions,
			s.AttentionRate, s.EntranceRate, s.Grade)
		if err != nil {
			t.Fatalf("Failed to seed summary: %v", err)
		}
	}
}

func TestHealth(t *testing.T) {
	_, handler := setupTestServer(t)

	rec := doGet(t, handler, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestPerformanceUnfiltered(t *testing.T) {
	db, handler := setupTestServer(t)
	seedSummaries(t, db)

	rec := doGet(t, handler, "/api/v1/performance")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body models.PerformanceResponse
	decodeBody(t, rec, &body)

	if body.Filtered {
		t.Error("Expected unfiltered response")
	}
	if len(body.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(body.Rows))
	}
	if body.Rows[0].CampaignID != "cmp-a" || body.Rows[0].Rank != 1 {
		t.Errorf("Unexpected top row: %+v", body.Rows[0])
	}

	t.Run("summary totals are impression-weighted", func(t *testing.T) {
		if body.Summary.Campaigns != 3 || body.Summary.Impressions != 200 {
			t.Errorf("Unexpected totals: %+v", body.Summary)
		}
		// (100*0.8 + 50*0.5 + 50*0.2) / 200
		want := (100*0.8 + 50*0.5 + 50*0.2) / 200
		if diff := body.Summary.AvgEntranceRate - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Expected weighted entrance rate %f, got %f", want, body.Summary.AvgEntranceRate)
		}
	})

	t.Run("group rollups", func(t *testing.T) {
		if len(body.Groups) != 2 {
			t.Fatalf("Expected 2 groups, got %+v", body.Groups)
		}
		drinks := body.Groups[0]
		if drinks.ContentGroup != "drinks" || drinks.Campaigns != 2 || drinks.Impressions != 150 {
			t.Errorf("Unexpected drinks rollup: %+v", drinks)
		}
		if body.Groups[1].ContentGroup != "ungrouped" {
			t.Errorf("Expected empty group labeled ungrouped, got %+v", body.Groups[1])
		}
	})
}

func TestPerformanceFiltered(t *testing.T) {
	db, handler := setupTestServer(t)

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	title := "Espresso Ad"
	group := "coffee"
	male := "M"
	female := "F"
	imps := []models.Impression{
		{ContentID: "c1", Title: &title, AudienceID: "aud-1", Gender: &male,
			PlayAt: at, IsEntrance: true},
		{ContentID: "c1", Title: &title, AudienceID: "aud-2", Gender: &female,
			PlayAt: at.Add(time.Minute), ContentGroup: &group},
	}
	if _, _, err := db.InsertImpressions(context.Background(), imps); err != nil {
		t.Fatalf("Failed to seed impressions: %v", err)
	}

	rec := doGet(t, handler, "/api/v1/performance?gender=F")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body models.PerformanceResponse
	decodeBody(t, rec, &body)
	if !body.Filtered {
		t.Error("Expected filtered response")
	}
	if len(body.Rows) != 1 || body.Rows[0].Impressions != 1 {
		t.Errorf("Unexpected rows: %+v", body.Rows)
	}
	if len(body.FilterOptions.ContentGroups) != 1 || body.FilterOptions.ContentGroups[0] != "coffee" {
		t.Errorf("Unexpected filter options: %+v", body.FilterOptions)
	}
}

func TestPerformanceRejectsBadParams(t *testing.T) {
	_, handler := setupTestServer(t)

	for _, path := range []string{
		"/api/v1/performance?from=garbage",
		"/api/v1/performance?timeSlot=brunch",
	} {
		rec := doGet(t, handler, path)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", path, rec.Code)
		}
		var body models.ErrorResponse
		decodeBody(t, rec, &body)
		if body.Error == "" {
			t.Errorf("Expected error message for %s", path)
		}
	}
}

func TestCampaigns(t *testing.T) {
	db, handler := setupTestServer(t)

	t.Run("empty database yields an empty list", func(t *testing.T) {
		rec := doGet(t, handler, "/api/v1/campaigns")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "[]" {
			t.Errorf("Expected empty JSON array, got %q", rec.Body.String())
		}
	})

	seedSummaries(t, db)
	rec := doGet(t, handler, "/api/v1/campaigns")
	var body []models.PerformanceSummary
	decodeBody(t, rec, &body)
	if len(body) != 3 || body[0].CampaignID != "cmp-a" {
		t.Errorf("Unexpected campaigns: %+v", body)
	}
}

func TestCampaignDetail(t *testing.T) {
	db, handler := setupTestServer(t)

	_, err := db.Conn().Exec(`
		INSERT INTO campaign_details (
			campaign_id, content_title, total_viewers, attention_count,
			entrance_count, total_watch_time, age_distribution, gender_distribution
		) VALUES ('cmp-a', 'Brand Video', 2, 1, 2, 8.5, '{"20s":1,"30s":1}', '{"M":1,"F":1}')`)
	if err != nil {
		t.Fatalf("Failed to seed detail: %v", err)
	}

	rec := doGet(t, handler, "/api/v1/campaigns/cmp-a")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var detail models.CampaignDetail
	decodeBody(t, rec, &detail)
	if detail.TotalViewers != 2 || detail.AgeDistribution["30s"] != 1 {
		t.Errorf("Unexpected detail: %+v", detail)
	}

	t.Run("unknown campaign is a 404", func(t *testing.T) {
		rec := doGet(t, handler, "/api/v1/campaigns/nope")
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}
