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

// ResetPlaySessions deletes all collapsed sessions. Import runs call this
// before collapsing so re-imports converge to the same state.
func (db *DB) ResetPlaySessions(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM play_sessions`); err != nil {
		return fmt.Errorf("failed to reset play_sessions: %w", err)
	}
	return nil
}

// CollapseSessions folds player events into one play_sessions row per
// campaign_session_id. Events with an empty campaign_session_id are dropped.
//
// Start fields come from the earliest PLAY_START row. End fields are taken
// together from the latest PLAY_END row, so end_at, duration_second, and
// elapsed_second always describe the same physical event. Metadata columns
// take the maximum non-null value across the group. A session id already
// present in play_sessions is left untouched.
//
// source must be RawPlayerEvents or StagingPlayerEvents; both tables share
// the column subset the collapse reads.
func (db *DB) CollapseSessions(ctx context.Context, source string) (models.CollapseStats, error) {
	var stats models.CollapseStats

	if source != RawPlayerEvents && source != StagingPlayerEvents {
		return stats, fmt.Errorf("unknown collapse source table %q", source)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var err error
	stats.SourceEvents, err = db.queryCount(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, source))
	if err != nil {
		return stats, err
	}

	candidates, err := db.queryCount(ctx, fmt.Sprintf(
		`SELECT COUNT(DISTINCT campaign_session_id) FROM %s WHERE campaign_session_id <> ''`, source))
	if err != nil {
		return stats, err
	}

	query := fmt.Sprintf(`
		INSERT INTO play_sessions (
			campaign_session_id, campaign_id, content_id, content_title,
			device_id, start_at, end_at, duration_second, elapsed_second
		)
		SELECT
			campaign_session_id,
			MAX(campaign_id),
			MAX(content_id),
			MAX(content_title),
			MAX(device_id),
			MIN(iso_time) FILTER (WHERE action = 'PLAY_START'),
			arg_max(iso_time, iso_time) FILTER (WHERE action = 'PLAY_END'),
			arg_max(duration_second, iso_time) FILTER (WHERE action = 'PLAY_END'),
			arg_max(elapsed_second, iso_time) FILTER (WHERE action = 'PLAY_END')
		FROM %s
		WHERE campaign_session_id <> ''
		GROUP BY campaign_session_id
		ON CONFLICT (campaign_session_id) DO NOTHING`, source)

	res, err := db.conn.ExecContext(ctx, query)
	if err != nil {
		return stats, fmt.Errorf("failed to collapse sessions: %w", err)
	}

	stats.SessionsInserted, err = res.RowsAffected()
	if err != nil {
		return stats, fmt.Errorf("failed to read rows affected: %w", err)
	}
	stats.SessionsSkipped = candidates - stats.SessionsInserted

	logging.Info().
		Int64("source_events", stats.SourceEvents).
		Int64("inserted", stats.SessionsInserted).
		Int64("skipped", stats.SessionsSkipped).
		Msg("Collapsed player events into sessions")

	return stats, nil
}

// CountPlaySessions returns the number of collapsed sessions.
func (db *DB) CountPlaySessions(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.queryCount(ctx, `SELECT COUNT(*) FROM play_sessions`)
}
