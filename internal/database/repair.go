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

// RepairContent fixes filename-like content metadata that leaked from the
// player firmware into both CSV feeds. Two rules run in order, each as one
// atomic statement:
//
// Rule A: a linked impression whose title ends in .mp4 or .jpg takes its
// owning session's content_id as both title and content_group.
//
// Rule B: a session whose content_title still looks like a media filename
// takes the title of its lowest-id linked impression, which rule A has
// already repaired.
//
// Running the pass again on repaired data changes nothing. Residual counts
// scan the whole of each table, so corrupt rows outside any rule's reach,
// such as impressions linked to no session, still get reported.
func (db *DB) RepairContent(ctx context.Context) (models.RepairStats, error) {
	var stats models.RepairStats

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ruleA := `
		UPDATE raw_impressions
		SET title = m.content_id, content_group = m.content_id
		FROM (
			SELECT unnest(ps.impression_ids) AS imp_id, ps.content_id
			FROM play_sessions ps
		) m
		WHERE raw_impressions.id = m.imp_id
			AND (raw_impressions.title LIKE '%.mp4' OR raw_impressions.title LIKE '%.jpg')`

	res, err := db.conn.ExecContext(ctx, ruleA)
	if err != nil {
		return stats, fmt.Errorf("failed to repair impression titles: %w", err)
	}
	stats.ImpressionsRepaired, err = res.RowsAffected()
	if err != nil {
		return stats, fmt.Errorf("failed to read rows affected: %w", err)
	}

	stats.ResidualImpressions, err = db.queryCount(ctx, `
		SELECT COUNT(*)
		FROM raw_impressions
		WHERE title LIKE '%.mp4' OR title LIKE '%.jpg'`)
	if err != nil {
		return stats, err
	}

	ruleB := `
		UPDATE play_sessions
		SET content_title = m.new_title
		FROM (
			SELECT x.campaign_session_id AS sid, arg_min(ri.title, ri.id) AS new_title
			FROM (
				SELECT ps.campaign_session_id, unnest(ps.impression_ids) AS imp_id
				FROM play_sessions ps
				WHERE regexp_matches(ps.content_title, '\.(mp4|jpg|jpeg|png)$')
			) x
			JOIN raw_impressions ri ON ri.id = x.imp_id
			WHERE ri.title IS NOT NULL AND ri.title <> ''
			GROUP BY x.campaign_session_id
		) m
		WHERE play_sessions.campaign_session_id = m.sid`

	res, err = db.conn.ExecContext(ctx, ruleB)
	if err != nil {
		return stats, fmt.Errorf("failed to repair session titles: %w", err)
	}
	stats.SessionsRepaired, err = res.RowsAffected()
	if err != nil {
		return stats, fmt.Errorf("failed to read rows affected: %w", err)
	}

	stats.ResidualSessions, err = db.queryCount(ctx, `
		SELECT COUNT(*)
		FROM play_sessions
		WHERE content_title IS NOT NULL
			AND regexp_matches(content_title, '\.(mp4|jpg|jpeg|png)$')`)
	if err != nil {
		return stats, err
	}

	logging.Info().
		Int64("impressions_repaired", stats.ImpressionsRepaired).
		Int64("sessions_repaired", stats.SessionsRepaired).
		Int64("residual_impressions", stats.ResidualImpressions).
		Int64("residual_sessions", stats.ResidualSessions).
		Msg("Repaired content metadata")

	return stats, nil
}
