// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package database

import (
	"context"
	"fmt"

	"github.com/adlens/adlens/internal/logging"
	"github.com/adlens/adlens/internal/models"
)

// ReconcileSessions links impressions to sessions by exact time match:
// an impression belongs to a session when its content_id equals the
// session's content_id and its play_at equals the session's start_at.
//
// All links are recomputed from scratch in two bulk statements, so the
// operation is idempotent: sessions with no counterpart end up with an
// empty list, never NULL.
func (db *DB) ReconcileSessions(ctx context.Context) (models.ReconcileStats, error) {
	var stats models.ReconcileStats

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`UPDATE play_sessions SET impression_ids = []`); err != nil {
		return stats, fmt.Errorf("failed to clear impression links: %w", err)
	}

	query := `
		UPDATE play_sessions
		SET impression_ids = m.ids
		FROM (
			SELECT
				ps.campaign_session_id AS sid,
				list(ri.id ORDER BY ri.id) AS ids
			FROM play_sessions ps
			JOIN raw_impressions ri
				ON ri.content_id = ps.content_id
				AND ri.play_at = ps.start_at
			WHERE ps.start_at IS NOT NULL
			GROUP BY ps.campaign_session_id
		) m
		WHERE play_sessions.campaign_session_id = m.sid`

	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return stats, fmt.Errorf("failed to reconcile sessions: %w", err)
	}

	row := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE len(impression_ids) > 0),
			COALESCE(SUM(len(impression_ids)), 0)
		FROM play_sessions`)
	if err := row.Scan(&stats.TotalSessions, &stats.MatchedSessions, &stats.LinkedAudiences); err != nil {
		return stats, fmt.Errorf("failed to compute reconcile stats: %w", err)
	}

	if stats.TotalSessions > 0 {
		stats.MatchRate = float64(stats.MatchedSessions) / float64(stats.TotalSessions) * 100
	}
	if stats.MatchedSessions > 0 {
		stats.AvgPerMatched = float64(stats.LinkedAudiences) / float64(stats.MatchedSessions)
	}

	logging.Info().
		Int64("total_sessions", stats.TotalSessions).
		Int64("matched_sessions", stats.MatchedSessions).
		Float64("match_rate_pct", stats.MatchRate).
		Int64("linked_audiences", stats.LinkedAudiences).
		Float64("avg_per_matched", stats.AvgPerMatched).
		Msg("Reconciled impressions to sessions")

	return stats, nil
}
