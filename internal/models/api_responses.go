// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package models

// PerformanceRow is one ranked campaign in the performance response.
type PerformanceRow struct {
	Rank          int     `json:"rank"`
	CampaignID    string  `json:"campaign_id"`
	ContentTitle  string  `json:"content_title"`
	ContentGroup  string  `json:"content_group,omitempty"`
	Impressions   int64   `json:"impressions"`
	AttentionRate float64 `json:"attention_rate"`
	EntranceRate  float64 `json:"entrance_rate"`
	Grade         string  `json:"grade"`
}

// GroupRollup aggregates performance per content group, weighted by
// impression counts.
type GroupRollup struct {
	ContentGroup  string  `json:"content_group"`
	Campaigns     int64   `json:"campaigns"`
	Impressions   int64   `json:"impressions"`
	AttentionRate float64 `json:"attention_rate"`
	EntranceRate  float64 `json:"entrance_rate"`
}

// PerformanceSummaryTotals is the global summary block of the
// performance response.
type PerformanceSummaryTotals struct {
	Campaigns        int64   `json:"campaigns"`
	Impressions      int64   `json:"impressions"`
	AvgAttentionRate float64 `json:"avg_attention_rate"`
	AvgEntranceRate  float64 `json:"avg_entrance_rate"`
}

// FilterOptions lists the distinct values available for filtering.
type FilterOptions struct {
	ContentGroups []string `json:"content_groups"`
	AgeGroups     []string `json:"age_groups"`
}

// PerformanceResponse is the full payload of GET /api/v1/performance.
type PerformanceResponse struct {
	Rows          []PerformanceRow         `json:"rows"`
	Groups        []GroupRollup            `json:"groups"`
	Summary       PerformanceSummaryTotals `json:"summary"`
	FilterOptions FilterOptions            `json:"filter_options"`
	Filtered      bool                     `json:"filtered"`
}

// ErrorResponse is the standard API error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
