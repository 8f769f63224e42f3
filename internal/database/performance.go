// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/adlens/adlens/internal/grading"
	"github.com/adlens/adlens/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// QueryPerformanceSummaries returns the pre-aggregated campaign scorecards
// ranked by entrance rate descending, ties broken by campaign id.
func (db *DB) QueryPerformanceSummaries(ctx context.Context) ([]models.PerformanceSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT campaign_id, content_title, content_group, impressions,
			attention_rate, entrance_rate, grade
		FROM performance_summaries
		ORDER BY entrance_rate DESC, campaign_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance summaries: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.PerformanceSummary
	for rows.Next() {
		var s models.PerformanceSummary
		if err := rows.Scan(&s.CampaignID, &s.ContentTitle, &s.ContentGroup,
			&s.Impressions, &s.AttentionRate, &s.EntranceRate, &s.Grade); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// QueryFilteredPerformance aggregates raw impressions per content id under
// the given filter and re-grades the subset with the same percentile logic
// as the full build. Rows come back ranked by entrance rate descending.
func (db *DB) QueryFilteredPerformance(ctx context.Context, filter PerformanceFilter,
	thresholds grading.Thresholds) ([]models.PerformanceRow, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	whereClause, args := buildFilterWhereClause(filter)
	query := fmt.Sprintf(`
		SELECT
			content_id,
			COALESCE(MAX(title), content_id),
			COALESCE(MAX(content_group), ''),
			COUNT(*),
			SUM(CASE WHEN is_attention THEN 1 ELSE 0 END),
			SUM(CASE WHEN is_entrance THEN 1 ELSE 0 END)
		FROM raw_impressions
		WHERE %s
		GROUP BY content_id
		ORDER BY content_id`, whereClause)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query filtered performance: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.PerformanceRow
	for rows.Next() {
		var r models.PerformanceRow
		var attention, entrance int64
		if err := rows.Scan(&r.CampaignID, &r.ContentTitle, &r.ContentGroup,
			&r.Impressions, &attention, &entrance); err != nil {
			return nil, fmt.Errorf("failed to scan filtered row: %w", err)
		}
		if r.Impressions > 0 {
			r.AttentionRate = float64(attention) / float64(r.Impressions)
			r.EntranceRate = float64(entrance) / float64(r.Impressions)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read filtered rows: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EntranceRate != out[j].EntranceRate {
			return out[i].EntranceRate > out[j].EntranceRate
		}
		return out[i].CampaignID < out[j].CampaignID
	})
	grades := thresholds.Assign(len(out))
	for i := range out {
		out[i].Rank = i + 1
		out[i].Grade = grades[i]
	}

	return out, nil
}

// QueryFilterOptions returns the distinct filter values available in the
// impression data.
func (db *DB) QueryFilterOptions(ctx context.Context) (models.FilterOptions, error) {
	var opts models.FilterOptions

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT content_group FROM raw_impressions
		WHERE content_group IS NOT NULL
		ORDER BY content_group`)
	if err != nil {
		return opts, fmt.Errorf("failed to query content groups: %w", err)
	}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			closeQuietly(rows)
			return opts, fmt.Errorf("failed to scan content group: %w", err)
		}
		opts.ContentGroups = append(opts.ContentGroups, g)
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return opts, err
	}
	closeQuietly(rows)

	rows, err = db.conn.QueryContext(ctx, `
		SELECT DISTINCT age FROM raw_impressions
		WHERE age IS NOT NULL AND age <> ''
		ORDER BY age`)
	if err != nil {
		return opts, fmt.Errorf("failed to query age groups: %w", err)
	}
	defer closeQuietly(rows)
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return opts, fmt.Errorf("failed to scan age group: %w", err)
		}
		opts.AgeGroups = append(opts.AgeGroups, a)
	}
	return opts, rows.Err()
}

// GetCampaignDetail returns the drill-down row for one campaign.
func (db *DB) GetCampaignDetail(ctx context.Context, campaignID string) (*models.CampaignDetail, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var d models.CampaignDetail
	var ageJSON, genderJSON string
	err := db.conn.QueryRowContext(ctx, `
		SELECT campaign_id, content_title, total_viewers, attention_count,
			entrance_count, total_watch_time, age_distribution, gender_distribution
		FROM campaign_details
		WHERE campaign_id = ?`, campaignID).
		Scan(&d.CampaignID, &d.ContentTitle, &d.TotalViewers, &d.AttentionCount,
			&d.EntranceCount, &d.TotalWatchTime, &ageJSON, &genderJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", campaignID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign detail: %w", err)
	}

	if err := json.Unmarshal([]byte(ageJSON), &d.AgeDistribution); err != nil {
		return nil, fmt.Errorf("failed to decode age distribution: %w", err)
	}
	if err := json.Unmarshal([]byte(genderJSON), &d.GenderDistrib); err != nil {
		return nil, fmt.Errorf("failed to decode gender distribution: %w", err)
	}

	return &d, nil
}
