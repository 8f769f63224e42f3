// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package database

import (
	"context"
	"fmt"

	"github.com/adlens/adlens/internal/models"
)

// VerifyReconciliation runs the read-only verification of the session to
// impression links: totals, audience-count distribution, a link accuracy
// check against the matching predicate, and the split of unmatched causes.
// It writes nothing and is safe to run at any time.
func (db *DB) VerifyReconciliation(ctx context.Context) (*models.VerifyReport, error) {
	report := &models.VerifyReport{}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE len(impression_ids) > 0),
			COALESCE(SUM(len(impression_ids)), 0),
			COUNT(*) FILTER (WHERE len(impression_ids) = 0 AND start_at IS NULL)
		FROM play_sessions`)
	if err := row.Scan(&report.TotalSessions, &report.MatchedSessions,
		&report.LinkedImpressions, &report.UnmatchedNoStartAt); err != nil {
		return nil, fmt.Errorf("failed to compute verification totals: %w", err)
	}

	var err error
	report.TotalImpressions, err = db.queryCount(ctx, `SELECT COUNT(*) FROM raw_impressions`)
	if err != nil {
		return nil, err
	}

	if report.TotalSessions > 0 {
		report.SessionMatchRate = float64(report.MatchedSessions) / float64(report.TotalSessions) * 100
	}
	if report.TotalImpressions > 0 {
		report.ImpressionLinkRate = float64(report.LinkedImpressions) / float64(report.TotalImpressions) * 100
	}
	report.UnmatchedNoData = report.TotalSessions - report.MatchedSessions - report.UnmatchedNoStartAt

	if report.MatchedSessions > 0 {
		row = db.conn.QueryRowContext(ctx, `
			SELECT
				AVG(len(impression_ids)),
				MIN(len(impression_ids)),
				MAX(len(impression_ids))
			FROM play_sessions
			WHERE len(impression_ids) > 0`)
		if err := row.Scan(&report.AvgAudiences, &report.MinAudiences, &report.MaxAudiences); err != nil {
			return nil, fmt.Errorf("failed to compute audience stats: %w", err)
		}
	}

	if err := db.verifyDistribution(ctx, report); err != nil {
		return nil, err
	}
	if err := db.verifyLinkAccuracy(ctx, report); err != nil {
		return nil, err
	}
	if err := db.verifySamples(ctx, report); err != nil {
		return nil, err
	}

	return report, nil
}

// verifyDistribution fills the per-session audience-count distribution.
func (db *DB) verifyDistribution(ctx context.Context, report *models.VerifyReport) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT len(impression_ids), COUNT(*)
		FROM play_sessions
		WHERE len(impression_ids) > 0
		GROUP BY len(impression_ids)
		ORDER BY len(impression_ids)`)
	if err != nil {
		return fmt.Errorf("failed to query audience distribution: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var b models.AudienceBucket
		if err := rows.Scan(&b.AudienceCount, &b.SessionCount); err != nil {
			return fmt.Errorf("failed to scan distribution row: %w", err)
		}
		if report.MatchedSessions > 0 {
			b.Percent = float64(b.SessionCount) / float64(report.MatchedSessions) * 100
		}
		report.Distribution = append(report.Distribution, b)
	}
	return rows.Err()
}

// verifyLinkAccuracy finds sessions holding a linked impression that does
// not satisfy the matching predicate. A correct reconciliation yields none.
func (db *DB) verifyLinkAccuracy(ctx context.Context, report *models.VerifyReport) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			x.campaign_session_id,
			x.content_id,
			COUNT(CASE WHEN ri.content_id = x.content_id AND ri.play_at = x.start_at THEN 1 END),
			COUNT(CASE WHEN ri.id IS NULL OR ri.content_id <> x.content_id OR ri.play_at <> x.start_at THEN 1 END)
		FROM (
			SELECT campaign_session_id, content_id, start_at,
				unnest(impression_ids) AS imp_id
			FROM play_sessions
			WHERE len(impression_ids) > 0
		) x
		LEFT JOIN raw_impressions ri ON ri.id = x.imp_id
		GROUP BY x.campaign_session_id, x.content_id, x.start_at
		HAVING COUNT(CASE WHEN ri.id IS NULL OR ri.content_id <> x.content_id OR ri.play_at <> x.start_at THEN 1 END) > 0
		LIMIT 10`)
	if err != nil {
		return fmt.Errorf("failed to verify link accuracy: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var m models.LinkMismatch
		if err := rows.Scan(&m.CampaignSessionID, &m.ContentID, &m.Matched, &m.Mismatched); err != nil {
			return fmt.Errorf("failed to scan mismatch row: %w", err)
		}
		report.Mismatches = append(report.Mismatches, m)
	}
	return rows.Err()
}

// verifySamples picks the most-audienced sessions with their audience
// roster for eyeballing.
func (db *DB) verifySamples(ctx context.Context, report *models.VerifyReport) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			ps.campaign_session_id,
			ps.content_id,
			ps.start_at,
			len(ps.impression_ids),
			string_agg(
				ri.audience_id || '(' || COALESCE(ri.gender, '?') || ',' || COALESCE(ri.age, '?') || ')',
				', ' ORDER BY ri.id)
		FROM play_sessions ps
		JOIN (
			SELECT campaign_session_id, unnest(impression_ids) AS imp_id
			FROM play_sessions
		) x ON x.campaign_session_id = ps.campaign_session_id
		JOIN raw_impressions ri ON ri.id = x.imp_id
		WHERE len(ps.impression_ids) > 0
		GROUP BY ps.campaign_session_id, ps.content_id, ps.start_at, ps.impression_ids
		ORDER BY len(ps.impression_ids) DESC, ps.campaign_session_id
		LIMIT 3`)
	if err != nil {
		return fmt.Errorf("failed to query verification samples: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var s models.SessionAudienceSample
		if err := rows.Scan(&s.CampaignSessionID, &s.ContentID, &s.StartAt,
			&s.AudienceCount, &s.Audiences); err != nil {
			return fmt.Errorf("failed to scan sample row: %w", err)
		}
		report.Samples = append(report.Samples, s)
	}
	return rows.Err()
}
