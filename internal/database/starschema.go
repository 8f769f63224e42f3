// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

/*
starschema.go - Star-Schema Build

Derives campaigns, customers, events, performance_summaries, and
campaign_details from the reconciled base tables. Stages run strictly in
that order because later stages join against earlier stages' committed
output. All five tables are deleted and rebuilt from scratch on every run.

Campaign titles resolve through a 3-tier fallback: a non-filename title
from the player feed's PLAY_START rows, else a non-filename impression
title found by exact timestamp match, else the player feed title verbatim.
Within a tier, ties break to the lexicographically smallest title.
*/
package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/adlens/adlens/internal/grading"
	"github.com/adlens/adlens/internal/logging"
	"github.com/adlens/adlens/internal/models"
)

// forbiddenTitlePattern matches filename-like content titles.
const forbiddenTitlePattern = `\.(mp4|jpg|jpeg|png)$`

// BuildStarSchema rebuilds all derived star-schema tables.
func (db *DB) BuildStarSchema(ctx context.Context, thresholds grading.Thresholds) (models.BuildStats, error) {
	var stats models.BuildStats

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if err := db.resetDerivedTables(ctx); err != nil {
		return stats, err
	}

	src, err := db.playStartSource(ctx)
	if err != nil {
		return stats, err
	}

	if stats.Campaigns, err = db.buildCampaigns(ctx, src); err != nil {
		return stats, err
	}
	if stats.Customers, err = db.buildCustomers(ctx); err != nil {
		return stats, err
	}
	if stats.Events, err = db.buildEvents(ctx, src); err != nil {
		return stats, err
	}
	if stats.Summaries, err = db.buildPerformanceSummaries(ctx, thresholds); err != nil {
		return stats, err
	}
	if stats.Details, err = db.buildCampaignDetails(ctx); err != nil {
		return stats, err
	}

	logging.Info().
		Int64("campaigns", stats.Campaigns).
		Int64("customers", stats.Customers).
		Int64("events", stats.Events).
		Int64("summaries", stats.Summaries).
		Int64("details", stats.Details).
		Msg("Star schema rebuilt")

	return stats, nil
}

func (db *DB) resetDerivedTables(ctx context.Context) error {
	for _, table := range []string{
		"campaign_details", "performance_summaries", "events", "customers", "campaigns",
	} {
		if _, err := db.conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// playStartSource returns a derived-table clause yielding the PLAY_START
// rows the campaign and event builds join against. Full imports archive
// every event, so the raw table is authoritative; after a skip-raw-archival
// import the collapsed sessions stand in for it, with start_at playing the
// role of the PLAY_START timestamp.
func (db *DB) playStartSource(ctx context.Context) (string, error) {
	n, err := db.queryCount(ctx, `SELECT COUNT(*) FROM raw_player_events`)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return `(SELECT campaign_id, content_id, content_title, iso_time
			FROM raw_player_events WHERE action = 'PLAY_START')`, nil
	}
	return `(SELECT campaign_id, content_id, content_title, start_at AS iso_time
		FROM play_sessions WHERE start_at IS NOT NULL)`, nil
}

// buildCampaigns resolves one row per campaign id through the 3-tier
// fallback. Each tier inserts with ON CONFLICT DO NOTHING, so earlier tiers
// win.
func (db *DB) buildCampaigns(ctx context.Context, src string) (int64, error) {
	tiers := []struct {
		name  string
		query string
	}{
		{
			name: "clean player title",
			query: fmt.Sprintf(`
				INSERT INTO campaigns (campaign_id, content_id, content_title)
				SELECT
					campaign_id,
					arg_min(content_id, content_title),
					MIN(content_title)
				FROM %s ps
				WHERE campaign_id <> ''
					AND content_title IS NOT NULL
					AND NOT regexp_matches(content_title, '%s')
				GROUP BY campaign_id
				ON CONFLICT (campaign_id) DO NOTHING`, src, forbiddenTitlePattern),
		},
		{
			name: "time-matched impression title",
			query: fmt.Sprintf(`
				INSERT INTO campaigns (campaign_id, content_id, content_title)
				SELECT
					ps.campaign_id,
					arg_min(ps.content_id, ri.title),
					MIN(ri.title)
				FROM %s ps
				JOIN raw_impressions ri ON ri.play_at = ps.iso_time
				WHERE ps.campaign_id <> ''
					AND ri.title IS NOT NULL
					AND NOT regexp_matches(ri.title, '%s')
				GROUP BY ps.campaign_id
				ON CONFLICT (campaign_id) DO NOTHING`, src, forbiddenTitlePattern),
		},
		{
			// Terminal fallback: keep the filename title rather than lose
			// the campaign.
			name: "verbatim player title",
			query: fmt.Sprintf(`
				INSERT INTO campaigns (campaign_id, content_id, content_title)
				SELECT
					campaign_id,
					arg_min(content_id, COALESCE(content_title, content_id)),
					MIN(COALESCE(content_title, content_id))
				FROM %s ps
				WHERE campaign_id <> ''
				GROUP BY campaign_id
				ON CONFLICT (campaign_id) DO NOTHING`, src),
		},
	}

	var total int64
	for _, tier := range tiers {
		res, err := db.conn.ExecContext(ctx, tier.query)
		if err != nil {
			return 0, fmt.Errorf("failed to build campaigns (%s): %w", tier.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		logging.Debug().Str("tier", tier.name).Int64("resolved", n).Msg("Campaign tier resolved")
		total += n
	}
	return total, nil
}

// buildCustomers aggregates impressions per audience id with a modal
// reduction on demographics.
func (db *DB) buildCustomers(ctx context.Context) (int64, error) {
	query := `
		INSERT INTO customers (customer_id, gender, age, total_watch_time)
		SELECT
			audience_id,
			COALESCE(mode(gender) FILTER (WHERE gender IS NOT NULL AND gender <> ''), 'unknown'),
			COALESCE(mode(age) FILTER (WHERE age IS NOT NULL AND age <> ''), 'unknown'),
			COALESCE(SUM(attention_sec), 0)
		FROM raw_impressions
		WHERE audience_id <> ''
		GROUP BY audience_id`

	res, err := db.conn.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to build customers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// buildEvents equi-joins impressions to PLAY_START rows on exact timestamp.
// A non-selective join can multiply rows; selectivity depends on upstream
// timestamp uniqueness.
func (db *DB) buildEvents(ctx context.Context, src string) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO events (campaign_id, customer_id, play_at, is_attention, is_entrance, attention_sec)
		SELECT
			ps.campaign_id,
			ri.audience_id,
			ri.play_at,
			ri.is_attention,
			ri.is_entrance,
			ri.attention_sec
		FROM raw_impressions ri
		JOIN %s ps ON ri.play_at = ps.iso_time
		WHERE ps.campaign_id <> ''
			AND ri.audience_id <> ''`, src)

	res, err := db.conn.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to build events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// buildPerformanceSummaries aggregates events per campaign, ranks by
// entrance rate, and assigns percentile grades. Ties on entrance rate break
// to the ascending campaign id so repeated builds produce identical grades.
func (db *DB) buildPerformanceSummaries(ctx context.Context, thresholds grading.Thresholds) (int64, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			e.campaign_id,
			c.content_title,
			COALESCE(g.content_group, ''),
			COUNT(*),
			SUM(CASE WHEN e.is_attention THEN 1 ELSE 0 END),
			SUM(CASE WHEN e.is_entrance THEN 1 ELSE 0 END)
		FROM events e
		JOIN campaigns c ON e.campaign_id = c.campaign_id
		LEFT JOIN (
			SELECT content_id, MAX(content_group) AS content_group
			FROM raw_impressions
			GROUP BY content_id
		) g ON g.content_id = c.content_id
		GROUP BY e.campaign_id, c.content_title, g.content_group
		ORDER BY e.campaign_id`)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate events: %w", err)
	}
	defer closeQuietly(rows)

	var summaries []models.PerformanceSummary
	for rows.Next() {
		var s models.PerformanceSummary
		var attention, entrance int64
		if err := rows.Scan(&s.CampaignID, &s.ContentTitle, &s.ContentGroup,
			&s.Impressions, &attention, &entrance); err != nil {
			return 0, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if s.Impressions > 0 {
			s.AttentionRate = float64(attention) / float64(s.Impressions)
			s.EntranceRate = float64(entrance) / float64(s.Impressions)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read summary rows: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].EntranceRate != summaries[j].EntranceRate {
			return summaries[i].EntranceRate > summaries[j].EntranceRate
		}
		return summaries[i].CampaignID < summaries[j].CampaignID
	})
	grades := thresholds.Assign(len(summaries))
	for i := range summaries {
		summaries[i].Grade = grades[i]
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO performance_summaries (
			campaign_id, content_title, content_group, impressions, attention_rate, entrance_rate, grade
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare summary insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range summaries {
		s := &summaries[i]
		if _, err := stmt.ExecContext(ctx,
			s.CampaignID, s.ContentTitle, s.ContentGroup, s.Impressions,
			s.AttentionRate, s.EntranceRate, s.Grade); err != nil {
			return 0, fmt.Errorf("failed to insert summary for %s: %w", s.CampaignID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit summaries: %w", err)
	}
	return int64(len(summaries)), nil
}

// buildCampaignDetails aggregates per-campaign viewer counts and
// demographic histograms. Histograms count distinct customers per bucket
// and are stored as JSON objects.
func (db *DB) buildCampaignDetails(ctx context.Context) (int64, error) {
	details := make(map[string]*models.CampaignDetail)
	var order []string

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			e.campaign_id,
			c.content_title,
			COUNT(DISTINCT e.customer_id),
			SUM(CASE WHEN e.is_attention THEN 1 ELSE 0 END),
			SUM(CASE WHEN e.is_entrance THEN 1 ELSE 0 END),
			COALESCE(SUM(e.attention_sec), 0)
		FROM events e
		JOIN campaigns c ON e.campaign_id = c.campaign_id
		GROUP BY e.campaign_id, c.content_title
		ORDER BY e.campaign_id`)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate campaign details: %w", err)
	}
	for rows.Next() {
		d := &models.CampaignDetail{
			AgeDistribution: make(map[string]int64),
			GenderDistrib:   make(map[string]int64),
		}
		if err := rows.Scan(&d.CampaignID, &d.ContentTitle, &d.TotalViewers,
			&d.AttentionCount, &d.EntranceCount, &d.TotalWatchTime); err != nil {
			closeQuietly(rows)
			return 0, fmt.Errorf("failed to scan detail row: %w", err)
		}
		details[d.CampaignID] = d
		order = append(order, d.CampaignID)
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return 0, fmt.Errorf("failed to read detail rows: %w", err)
	}
	closeQuietly(rows)

	if err := db.fillDistribution(ctx, details, "age", func(d *models.CampaignDetail) map[string]int64 {
		return d.AgeDistribution
	}); err != nil {
		return 0, err
	}
	if err := db.fillDistribution(ctx, details, "gender", func(d *models.CampaignDetail) map[string]int64 {
		return d.GenderDistrib
	}); err != nil {
		return 0, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_details (
			campaign_id, content_title, total_viewers, attention_count,
			entrance_count, total_watch_time, age_distribution, gender_distribution
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare detail insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, id := range order {
		d := details[id]
		ageJSON, err := json.Marshal(d.AgeDistribution)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal age distribution for %s: %w", id, err)
		}
		genderJSON, err := json.Marshal(d.GenderDistrib)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal gender distribution for %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx,
			d.CampaignID, d.ContentTitle, d.TotalViewers, d.AttentionCount,
			d.EntranceCount, d.TotalWatchTime, string(ageJSON), string(genderJSON)); err != nil {
			return 0, fmt.Errorf("failed to insert detail for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit campaign details: %w", err)
	}
	return int64(len(order)), nil
}

// fillDistribution populates one demographic histogram (column is "age" or
// "gender") counting distinct customers per bucket.
func (db *DB) fillDistribution(ctx context.Context, details map[string]*models.CampaignDetail,
	column string, pick func(*models.CampaignDetail) map[string]int64) error {
	query := fmt.Sprintf(`
		SELECT e.campaign_id, c.%s, COUNT(DISTINCT e.customer_id)
		FROM events e
		JOIN customers c ON e.customer_id = c.customer_id
		GROUP BY e.campaign_id, c.%s
		ORDER BY e.campaign_id, c.%s`, column, column, column)

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to aggregate %s distribution: %w", column, err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var campaignID, bucket string
		var count int64
		if err := rows.Scan(&campaignID, &bucket, &count); err != nil {
			return fmt.Errorf("failed to scan %s distribution row: %w", column, err)
		}
		if d, ok := details[campaignID]; ok {
			pick(d)[bucket] = count
		}
	}
	return rows.Err()
}

// CountCampaigns returns the number of derived campaigns.
func (db *DB) CountCampaigns(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.queryCount(ctx, `SELECT COUNT(*) FROM campaigns`)
}

// CountEvents returns the number of derived fact rows.
func (db *DB) CountEvents(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.queryCount(ctx, `SELECT COUNT(*) FROM events`)
}
