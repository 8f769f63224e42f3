// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package models

import "time"

// ImportStats summarizes one CSV ingestion run for a single file.
type ImportStats struct {
	File          string        `json:"file"`
	TotalRows     int64         `json:"total_rows"`
	Inserted      int64         `json:"inserted"`
	Duplicates    int64         `json:"duplicates"`
	Invalid       int64         `json:"invalid"`
	InvalidSample []RowIssue    `json:"invalid_sample,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
}

// RowIssue is one sampled row-level validation failure.
type RowIssue struct {
	Line   int64  `json:"line"` // 1-based data row number, excluding the header
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
	Value  string `json:"value,omitempty"`
}

// CollapseStats summarizes the session-collapse stage.
type CollapseStats struct {
	SourceEvents     int64 `json:"source_events"`
	SessionsInserted int64 `json:"sessions_inserted"`
	SessionsSkipped  int64 `json:"sessions_skipped"` // duplicate campaign_session_id
}

// ReconcileStats summarizes the time-match reconciliation stage.
type ReconcileStats struct {
	TotalSessions   int64   `json:"total_sessions"`
	MatchedSessions int64   `json:"matched_sessions"`
	MatchRate       float64 `json:"match_rate"` // percent
	LinkedAudiences int64   `json:"linked_audiences"`
	AvgPerMatched   float64 `json:"avg_per_matched"`
}

// RepairStats summarizes the content-repair pass.
type RepairStats struct {
	ImpressionsRepaired int64 `json:"impressions_repaired"` // rule A
	SessionsRepaired    int64 `json:"sessions_repaired"`    // rule B
	ResidualImpressions int64 `json:"residual_impressions"` // still filename-like after rule A
	ResidualSessions    int64 `json:"residual_sessions"`    // still filename-like after rule B
}

// BuildStats summarizes the star-schema build.
type BuildStats struct {
	Campaigns int64 `json:"campaigns"`
	Customers int64 `json:"customers"`
	Events    int64 `json:"events"`
	Summaries int64 `json:"summaries"`
	Details   int64 `json:"details"`
}

// VerifyReport is the read-only reconciliation verification output.
type VerifyReport struct {
	TotalSessions      int64                   `json:"total_sessions"`
	MatchedSessions    int64                   `json:"matched_sessions"`
	SessionMatchRate   float64                 `json:"session_match_rate"` // percent
	TotalImpressions   int64                   `json:"total_impressions"`
	LinkedImpressions  int64                   `json:"linked_impressions"`
	ImpressionLinkRate float64                 `json:"impression_link_rate"` // percent
	AvgAudiences       float64                 `json:"avg_audiences"`
	MinAudiences       int64                   `json:"min_audiences"`
	MaxAudiences       int64                   `json:"max_audiences"`
	Distribution       []AudienceBucket        `json:"distribution"`
	Mismatches         []LinkMismatch          `json:"mismatches,omitempty"`
	UnmatchedNoStartAt int64                   `json:"unmatched_no_start_at"`
	UnmatchedNoData    int64                   `json:"unmatched_no_data"`
	Samples            []SessionAudienceSample `json:"samples,omitempty"`
}

// AudienceBucket is one row of the per-session audience-count distribution.
type AudienceBucket struct {
	AudienceCount int64   `json:"audience_count"`
	SessionCount  int64   `json:"session_count"`
	Percent       float64 `json:"percent"`
}

// LinkMismatch reports a session holding a linked impression that does not
// satisfy the matching predicate. A correct reconciliation produces none.
type LinkMismatch struct {
	CampaignSessionID string `json:"campaign_session_id"`
	ContentID         string `json:"content_id"`
	Matched           int64  `json:"matched"`
	Mismatched        int64  `json:"mismatched"`
}

// SessionAudienceSample is one of the most-audienced sessions, shown in the
// verification report for eyeballing.
type SessionAudienceSample struct {
	CampaignSessionID string    `json:"campaign_session_id"`
	ContentID         string    `json:"content_id"`
	StartAt           time.Time `json:"start_at"`
	AudienceCount     int64     `json:"audience_count"`
	Audiences         string    `json:"audiences"`
}

// Audit issue types reported by the quality auditor.
const (
	IssueMissingField       = "missingField"
	IssueInvalidNumber      = "invalidNumber"
	IssueInvalidBoolean     = "invalidBoolean"
	IssueInvalidDate        = "invalidDate"
	IssueInvalidGender      = "invalidGender"
	IssueDuplicateKey       = "duplicateKey"
	IssueForbiddenExtension = "forbiddenExtension"
)

// AuditReport is the output of the standalone CSV quality audit.
type AuditReport struct {
	File      string                `json:"file"`
	RunID     string                `json:"run_id"`
	TotalRows int64                 `json:"total_rows"`
	CleanRows int64                 `json:"clean_rows"`
	Issues    map[string]*IssueTally `json:"issues"`
	Elapsed   time.Duration         `json:"elapsed"`
}

// IssueTally is the count and capped sample list for one issue type.
type IssueTally struct {
	Count   int64      `json:"count"`
	Samples []RowIssue `json:"samples,omitempty"`
}
