// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

// Package models defines data structures used throughout AdLens: raw CSV
// rows, collapsed play sessions, star-schema records, pipeline statistics,
// and API responses.
package models

import "time"

// Player event actions recognized by the session collapser.
const (
	ActionPlayStart = "PLAY_START"
	ActionPlayEnd   = "PLAY_END"
)

// PlayerEvent is one row of the player feed: a single playback lifecycle
// action (start, end, ...) emitted by a signage player.
//
// Pointer fields are nullable in the source data. The six timestamp fields
// (Date, ISOLocalTime, ISOTime, PlaylistCreated, ISOTimeDate, PartDate) all
// describe the same instant in different encodings; only ISOTime is
// authoritative for matching.
type PlayerEvent struct {
	ID                int64      `json:"id"`
	CampaignID        string     `json:"campaign_id"`
	CampaignSessionID string     `json:"campaign_session_id"`
	ContentSessionID  string     `json:"content_session_id"`
	Action            string     `json:"action"`
	ContentID         string     `json:"content_id"`
	ContentTitle      *string    `json:"content_title,omitempty"`
	DeviceID          *string    `json:"device_id,omitempty"`
	Date              *time.Time `json:"date,omitempty"`
	ISOLocalTime      *time.Time `json:"iso_local_time,omitempty"`
	ISOTime           time.Time  `json:"iso_time"`
	PlaylistCreated   *time.Time `json:"playlist_created_time,omitempty"`
	ISOTimeDate       *time.Time `json:"iso_time_date,omitempty"`
	PartDate          *time.Time `json:"part_date,omitempty"`
	DurationSecond    *float64   `json:"duration_second,omitempty"`
	ElapsedSecond     *float64   `json:"elapsed_second,omitempty"`
	InventoryID       *string    `json:"inventory_id,omitempty"`
	PlayerVersion     *string    `json:"player_version,omitempty"`
	PricingRule       *string    `json:"pricing_rule,omitempty"`
	ContentDuration   *float64   `json:"content_duration,omitempty"`
	ContentSelection  *string    `json:"content_selection,omitempty"`
	ContentVersion    *string    `json:"content_version,omitempty"`
	SequenceID        *string    `json:"sequence_id,omitempty"`
	AdvertiserID      *string    `json:"advertiser_id,omitempty"`
}

// Impression is one row of the content-performance feed: a single detected
// viewer exposure to a piece of content.
type Impression struct {
	ID           int64     `json:"id"`
	ContentID    string    `json:"content_id"`
	Title        *string   `json:"title,omitempty"`
	AudienceID   string    `json:"audience_id"`
	Age          *string   `json:"age,omitempty"`
	Gender       *string   `json:"gender,omitempty"`
	PlayAt       time.Time `json:"play_at"`
	AttentionSec float64   `json:"attention_sec"`
	IsAttention  bool      `json:"is_attention"`
	IsEntrance   bool      `json:"is_entrance"`
	ContentGroup *string   `json:"content_group,omitempty"`
}

// PlaySession is the collapse of all player events sharing one
// campaign_session_id: the start fields come from PLAY_START rows, the end
// fields from the latest PLAY_END row, and ImpressionIDs holds the ordered
// ids of the impressions reconciled to the session by exact time match.
type PlaySession struct {
	CampaignSessionID string     `json:"campaign_session_id"`
	CampaignID        string     `json:"campaign_id"`
	ContentID         string     `json:"content_id"`
	ContentTitle      *string    `json:"content_title,omitempty"`
	DeviceID          *string    `json:"device_id,omitempty"`
	StartAt           *time.Time `json:"start_at,omitempty"`
	EndAt             *time.Time `json:"end_at,omitempty"`
	DurationSecond    *float64   `json:"duration_second,omitempty"`
	ElapsedSecond     *float64   `json:"elapsed_second,omitempty"`
	ImpressionIDs     []int64    `json:"impression_ids"`
}

// Campaign is a star-schema dimension row: one advertising campaign with
// the best available human-readable title.
type Campaign struct {
	CampaignID   string `json:"campaign_id"`
	ContentID    string `json:"content_id"`
	ContentTitle string `json:"content_title"`
}

// Customer is a star-schema dimension row: one detected viewer with their
// modal demographics across all impressions.
type Customer struct {
	CustomerID     string  `json:"customer_id"`
	Gender         string  `json:"gender"`
	Age            string  `json:"age"`
	TotalWatchTime float64 `json:"total_watch_time"`
}

// Event is a star-schema fact row: one impression joined to the campaign
// playback it occurred during.
type Event struct {
	ID           int64     `json:"id"`
	CampaignID   string    `json:"campaign_id"`
	CustomerID   string    `json:"customer_id"`
	PlayAt       time.Time `json:"play_at"`
	IsAttention  bool      `json:"is_attention"`
	IsEntrance   bool      `json:"is_entrance"`
	AttentionSec float64   `json:"attention_sec"`
}

// PerformanceSummary is a pre-aggregated per-campaign scorecard.
type PerformanceSummary struct {
	CampaignID    string  `json:"campaign_id"`
	ContentTitle  string  `json:"content_title"`
	ContentGroup  string  `json:"content_group"`
	Impressions   int64   `json:"impressions"`
	AttentionRate float64 `json:"attention_rate"`
	EntranceRate  float64 `json:"entrance_rate"`
	Grade         string  `json:"grade"`
}

// CampaignDetail is a per-campaign drill-down with distinct-viewer counts
// and demographic distributions.
type CampaignDetail struct {
	CampaignID      string           `json:"campaign_id"`
	ContentTitle    string           `json:"content_title"`
	TotalViewers    int64            `json:"total_viewers"`
	AttentionCount  int64            `json:"attention_count"`
	EntranceCount   int64            `json:"entrance_count"`
	TotalWatchTime  float64          `json:"total_watch_time"`
	AgeDistribution map[string]int64 `json:"age_distribution"`
	GenderDistrib   map[string]int64 `json:"gender_distribution"`
}
