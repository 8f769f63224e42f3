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

// RawPlayerEvents is the permanent player event archive written by full
// imports.
const RawPlayerEvents = "raw_player_events"

// StagingPlayerEvents is the table used by skip-raw-archival imports. It
// carries only the columns the collapse reads and is dropped after the
// collapse completes.
const StagingPlayerEvents = "staging_player_events"

// ResetRawPlayerEvents deletes all archived player events. Import runs call
// this first so a re-import of the same file converges to the same state.
func (db *DB) ResetRawPlayerEvents(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM raw_player_events`); err != nil {
		return fmt.Errorf("failed to reset raw_player_events: %w", err)
	}
	return nil
}

// ResetRawImpressions deletes all impression rows.
func (db *DB) ResetRawImpressions(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM raw_impressions`); err != nil {
		return fmt.Errorf("failed to reset raw_impressions: %w", err)
	}
	return nil
}

// CreateStagingPlayerEvents drops and recreates the staging table used by
// skip-raw-archival imports.
func (db *DB) CreateStagingPlayerEvents(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DROP TABLE IF EXISTS staging_player_events`); err != nil {
		return fmt.Errorf("failed to drop staging table: %w", err)
	}

	query := `CREATE TABLE staging_player_events (
		campaign_id TEXT NOT NULL,
		campaign_session_id TEXT NOT NULL,
		content_session_id TEXT NOT NULL,
		action TEXT NOT NULL,
		content_id TEXT NOT NULL,
		content_title TEXT,
		device_id TEXT,
		iso_time TIMESTAMP NOT NULL,
		duration_second DOUBLE,
		elapsed_second DOUBLE
	)`
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}
	return nil
}

// DropStagingPlayerEvents removes the staging table after a skip-raw-archival
// import has collapsed it into play_sessions.
func (db *DB) DropStagingPlayerEvents(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DROP TABLE IF EXISTS staging_player_events`); err != nil {
		return fmt.Errorf("failed to drop staging table: %w", err)
	}
	return nil
}

// InsertPlayerEvents bulk-inserts a batch of player events into the archive
// inside a single transaction. Rows whose natural key already exists are
// skipped; the returned counts separate inserted rows from duplicates.
func (db *DB) InsertPlayerEvents(ctx context.Context, events []models.PlayerEvent) (inserted, duplicates int64, err error) {
	if len(events) == 0 {
		return 0, 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_player_events (
			campaign_id, campaign_session_id, content_session_id, action,
			content_id, content_title, device_id,
			date, iso_local_time, iso_time, playlist_created_time,
			iso_time_date, part_date, duration_second, elapsed_second,
			inventory_id, player_version, pricing_rule, content_duration,
			content_selection, content_version, sequence_id, advertiser_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (campaign_session_id, content_session_id, action, iso_time) DO NOTHING`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range events {
		e := &events[i]
		res, execErr := stmt.ExecContext(ctx,
			e.CampaignID, e.CampaignSessionID, e.ContentSessionID, e.Action,
			e.ContentID, e.ContentTitle, e.DeviceID,
			e.Date, e.ISOLocalTime, e.ISOTime, e.PlaylistCreated,
			e.ISOTimeDate, e.PartDate, e.DurationSecond, e.ElapsedSecond,
			e.InventoryID, e.PlayerVersion, e.PricingRule, e.ContentDuration,
			e.ContentSelection, e.ContentVersion, e.SequenceID, e.AdvertiserID)
		if execErr != nil {
			return 0, 0, fmt.Errorf("failed to insert player event %s/%s: %w",
				e.CampaignSessionID, e.Action, execErr)
		}

		affected, raErr := res.RowsAffected()
		if raErr != nil {
			return 0, 0, fmt.Errorf("failed to read rows affected: %w", raErr)
		}
		if affected == 0 {
			duplicates++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit player event batch: %w", err)
	}
	return inserted, duplicates, nil
}

// InsertStagingPlayerEvents bulk-inserts a batch into the staging table.
// The staging table is rebuilt every run, so duplicate tracking is not
// needed; the collapse GROUP BY absorbs repeated rows.
func (db *DB) InsertStagingPlayerEvents(ctx context.Context, events []models.PlayerEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO staging_player_events (
			campaign_id, campaign_session_id, content_session_id, action,
			content_id, content_title, device_id,
			iso_time, duration_second, elapsed_second
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare staging insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range events {
		e := &events[i]
		if _, execErr := stmt.ExecContext(ctx,
			e.CampaignID, e.CampaignSessionID, e.ContentSessionID, e.Action,
			e.ContentID, e.ContentTitle, e.DeviceID,
			e.ISOTime, e.DurationSecond, e.ElapsedSecond); execErr != nil {
			return 0, fmt.Errorf("failed to insert staging event %s/%s: %w",
				e.CampaignSessionID, e.Action, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit staging batch: %w", err)
	}
	return int64(len(events)), nil
}

// InsertImpressions bulk-inserts a batch of impressions inside a single
// transaction, skipping rows whose (content_id, audience_id, play_at) key
// already exists.
func (db *DB) InsertImpressions(ctx context.Context, imps []models.Impression) (inserted, duplicates int64, err error) {
	if len(imps) == 0 {
		return 0, 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_impressions (
			content_id, title, audience_id, age, gender,
			play_at, attention_sec, is_attention, is_entrance, content_group
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (content_id, audience_id, play_at) DO NOTHING`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range imps {
		imp := &imps[i]
		res, execErr := stmt.ExecContext(ctx,
			imp.ContentID, imp.Title, imp.AudienceID, imp.Age, imp.Gender,
			imp.PlayAt, imp.AttentionSec, imp.IsAttention, imp.IsEntrance, imp.ContentGroup)
		if execErr != nil {
			return 0, 0, fmt.Errorf("failed to insert impression %s/%s: %w",
				imp.ContentID, imp.AudienceID, execErr)
		}

		affected, raErr := res.RowsAffected()
		if raErr != nil {
			return 0, 0, fmt.Errorf("failed to read rows affected: %w", raErr)
		}
		if affected == 0 {
			duplicates++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit impression batch: %w", err)
	}
	return inserted, duplicates, nil
}

// CountRawPlayerEvents returns the number of archived player events.
func (db *DB) CountRawPlayerEvents(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.queryCount(ctx, `SELECT COUNT(*) FROM raw_player_events`)
}

// CountRawImpressions returns the number of impression rows.
func (db *DB) CountRawImpressions(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.queryCount(ctx, `SELECT COUNT(*) FROM raw_impressions`)
}
