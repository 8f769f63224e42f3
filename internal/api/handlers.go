// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

// Package api serves the read-only query surface over the star schema:
// ranked campaign performance with optional filters, campaign drill-downs,
// and health/metrics endpoints for operations.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adlens/adlens/internal/database"
	"github.com/adlens/adlens/internal/grading"
	"github.com/adlens/adlens/internal/models"
)

// Handler holds the dependencies of the read API endpoints.
type Handler struct {
	db         *database.DB
	thresholds grading.Thresholds
}

// NewHandler creates a Handler.
func NewHandler(db *database.DB, thresholds grading.Thresholds) *Handler {
	return &Handler{db: db, thresholds: thresholds}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unreachable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Performance returns ranked campaign performance.
//
// Method: GET
// Path: /api/v1/performance
//
// Without filter parameters the pre-aggregated summaries are served
// directly. With any of from, to, timeSlot, contentGroups, ageGroups, or
// gender set, the raw impressions are re-aggregated under the filter and
// the subset is re-graded with the same percentile thresholds.
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parsePerformanceFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var rows []models.PerformanceRow
	filtered := !filter.IsZero()
	if filtered {
		rows, err = h.db.QueryFilteredPerformance(ctx, filter, h.thresholds)
	} else {
		rows, err = h.summaryRows(ctx)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to query performance", err)
		return
	}

	opts, err := h.db.QueryFilterOptions(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to query filter options", err)
		return
	}

	respondJSON(w, http.StatusOK, models.PerformanceResponse{
		Rows:          rows,
		Groups:        rollupGroups(rows),
		Summary:       summarize(rows),
		FilterOptions: opts,
		Filtered:      filtered,
	})
}

// summaryRows serves the pre-aggregated scorecards as ranked rows.
func (h *Handler) summaryRows(ctx context.Context) ([]models.PerformanceRow, error) {
	summaries, err := h.db.QueryPerformanceSummaries(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]models.PerformanceRow, len(summaries))
	for i, s := range summaries {
		rows[i] = models.PerformanceRow{
			Rank:          i + 1,
			CampaignID:    s.CampaignID,
			ContentTitle:  s.ContentTitle,
			ContentGroup:  s.ContentGroup,
			Impressions:   s.Impressions,
			AttentionRate: s.AttentionRate,
			EntranceRate:  s.EntranceRate,
			Grade:         s.Grade,
		}
	}
	return rows, nil
}

// Campaigns returns the pre-aggregated campaign scorecards.
//
// Method: GET
// Path: /api/v1/campaigns
func (h *Handler) Campaigns(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.db.QueryPerformanceSummaries(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to query campaigns", err)
		return
	}
	if summaries == nil {
		summaries = []models.PerformanceSummary{}
	}
	respondJSON(w, http.StatusOK, summaries)
}

// CampaignDetail returns one campaign's drill-down.
//
// Method: GET
// Path: /api/v1/campaigns/{campaignID}
func (h *Handler) CampaignDetail(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	detail, err := h.db.GetCampaignDetail(r.Context(), campaignID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "campaign not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to query campaign detail", err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}
