// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

/*
schema.go - Database Schema Management

Tables:
  - raw_player_events: archive of every player CSV row (full import mode)
  - raw_impressions: audience measurement rows, one per detected exposure
  - play_sessions: player events collapsed to one row per campaign session,
    with impression_ids holding the reconciled impression links as a LIST
  - campaigns, customers, events: star-schema dimensions and facts
  - performance_summaries, campaign_details: pre-aggregated scorecards

Raw tables carry UNIQUE constraints on their natural keys so re-imports can
rely on INSERT ... ON CONFLICT DO NOTHING for idempotence. Derived tables
are deleted and rebuilt wholesale by each build run.
*/
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// initialize creates sequences, tables, and indexes.
func (db *DB) initialize() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the schema DDL in dependency order.
func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_raw_player_events START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_raw_impressions START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_events START 1`,

		// Player event archive. The six timestamp columns are redundant
		// encodings of the same instant as shipped by the player firmware;
		// iso_time is the authoritative one for matching.
		`CREATE TABLE IF NOT EXISTS raw_player_events (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_raw_player_events'),
			campaign_id TEXT NOT NULL,
			campaign_session_id TEXT NOT NULL,
			content_session_id TEXT NOT NULL,
			action TEXT NOT NULL,
			content_id TEXT NOT NULL,
			content_title TEXT,
			device_id TEXT,
			date TIMESTAMP,
			iso_local_time TIMESTAMP,
			iso_time TIMESTAMP NOT NULL,
			playlist_created_time TIMESTAMP,
			iso_time_date TIMESTAMP,
			part_date TIMESTAMP,
			duration_second DOUBLE,
			elapsed_second DOUBLE,
			inventory_id TEXT,
			player_version TEXT,
			pricing_rule TEXT,
			content_duration DOUBLE,
			content_selection TEXT,
			content_version TEXT,
			sequence_id TEXT,
			advertiser_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (campaign_session_id, content_session_id, action, iso_time)
		)`,

		// Audience measurement rows.
		`CREATE TABLE IF NOT EXISTS raw_impressions (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_raw_impressions'),
			content_id TEXT NOT NULL,
			title TEXT,
			audience_id TEXT NOT NULL,
			age TEXT,
			gender TEXT,
			play_at TIMESTAMP NOT NULL,
			attention_sec DOUBLE NOT NULL DEFAULT 0,
			is_attention BOOLEAN NOT NULL DEFAULT FALSE,
			is_entrance BOOLEAN NOT NULL DEFAULT FALSE,
			content_group TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (content_id, audience_id, play_at)
		)`,

		// Collapsed playback sessions. impression_ids holds the ordered ids
		// of the impressions matched to this session by the reconciler.
		`CREATE TABLE IF NOT EXISTS play_sessions (
			campaign_session_id TEXT PRIMARY KEY,
			campaign_id TEXT NOT NULL,
			content_id TEXT NOT NULL,
			content_title TEXT,
			device_id TEXT,
			start_at TIMESTAMP,
			end_at TIMESTAMP,
			duration_second DOUBLE,
			elapsed_second DOUBLE,
			impression_ids BIGINT[] DEFAULT [],
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS campaigns (
			campaign_id TEXT PRIMARY KEY,
			content_id TEXT NOT NULL,
			content_title TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS customers (
			customer_id TEXT PRIMARY KEY,
			gender TEXT NOT NULL,
			age TEXT NOT NULL,
			total_watch_time DOUBLE NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_events'),
			campaign_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			play_at TIMESTAMP NOT NULL,
			is_attention BOOLEAN NOT NULL DEFAULT FALSE,
			is_entrance BOOLEAN NOT NULL DEFAULT FALSE,
			attention_sec DOUBLE NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS performance_summaries (
			campaign_id TEXT PRIMARY KEY,
			content_title TEXT NOT NULL,
			content_group TEXT NOT NULL DEFAULT '',
			impressions BIGINT NOT NULL,
			attention_rate DOUBLE NOT NULL,
			entrance_rate DOUBLE NOT NULL,
			grade TEXT NOT NULL
		)`,

		// Distributions are JSON objects mapping bucket -> distinct viewers.
		`CREATE TABLE IF NOT EXISTS campaign_details (
			campaign_id TEXT PRIMARY KEY,
			content_title TEXT NOT NULL,
			total_viewers BIGINT NOT NULL,
			attention_count BIGINT NOT NULL,
			entrance_count BIGINT NOT NULL,
			total_watch_time DOUBLE NOT NULL,
			age_distribution TEXT NOT NULL,
			gender_distribution TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_raw_player_events_session
			ON raw_player_events (campaign_session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_player_events_time
			ON raw_player_events (iso_time)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_impressions_match
			ON raw_impressions (content_id, play_at)`,
		`CREATE INDEX IF NOT EXISTS idx_play_sessions_match
			ON play_sessions (content_id, start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_campaign
			ON events (campaign_id)`,
	}
}
