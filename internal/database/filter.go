// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package database

import (
	"fmt"
	"strings"
	"time"
)

// Time-of-day buckets accepted by the performance filter. Night wraps
// midnight.
const (
	TimeSlotMorning = "morning" // 06:00 - 10:59
	TimeSlotLunch   = "lunch"   // 11:00 - 13:59
	TimeSlotDinner  = "dinner"  // 17:00 - 20:59
	TimeSlotNight   = "night"   // 21:00 - 05:59
)

// PerformanceFilter contains the optional filter parameters of the
// performance query. All fields combine with AND logic; the slice fields
// use OR logic within the field. A zero filter means "serve the
// pre-aggregated summaries".
type PerformanceFilter struct {
	From          *time.Time
	To            *time.Time
	TimeSlot      string
	ContentGroups []string
	AgeGroups     []string
	Gender        string
}

// IsZero reports whether no filter dimension is set.
func (f PerformanceFilter) IsZero() bool {
	return f.From == nil && f.To == nil && f.TimeSlot == "" &&
		len(f.ContentGroups) == 0 && len(f.AgeGroups) == 0 && f.Gender == ""
}

// Validate rejects unknown time-slot values.
func (f PerformanceFilter) Validate() error {
	switch f.TimeSlot {
	case "", TimeSlotMorning, TimeSlotLunch, TimeSlotDinner, TimeSlotNight:
		return nil
	default:
		return fmt.Errorf("unknown time slot %q", f.TimeSlot)
	}
}

// appendInClause adds a parameterized IN clause for a multi-value filter
// dimension.
func appendInClause(columnName string, values []string, whereClauses *[]string, args *[]interface{}) {
	if len(values) == 0 {
		return
	}

	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, v)
	}
	*whereClauses = append(*whereClauses,
		fmt.Sprintf("%s IN (%s)", columnName, strings.Join(placeholders, ", ")))
}

// buildFilterConditions builds WHERE clause conditions and args from a
// PerformanceFilter, targeting the raw_impressions columns.
func buildFilterConditions(filter PerformanceFilter) ([]string, []interface{}) {
	whereClauses := []string{}
	args := []interface{}{}

	if filter.From != nil {
		whereClauses = append(whereClauses, "play_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		whereClauses = append(whereClauses, "play_at <= ?")
		args = append(args, *filter.To)
	}

	switch filter.TimeSlot {
	case TimeSlotMorning:
		whereClauses = append(whereClauses, "EXTRACT(HOUR FROM play_at) >= 6 AND EXTRACT(HOUR FROM play_at) < 11")
	case TimeSlotLunch:
		whereClauses = append(whereClauses, "EXTRACT(HOUR FROM play_at) >= 11 AND EXTRACT(HOUR FROM play_at) < 14")
	case TimeSlotDinner:
		whereClauses = append(whereClauses, "EXTRACT(HOUR FROM play_at) >= 17 AND EXTRACT(HOUR FROM play_at) < 21")
	case TimeSlotNight:
		// Wraps midnight.
		whereClauses = append(whereClauses, "(EXTRACT(HOUR FROM play_at) >= 21 OR EXTRACT(HOUR FROM play_at) < 6)")
	}

	appendInClause("content_group", filter.ContentGroups, &whereClauses, &args)
	appendInClause("age", filter.AgeGroups, &whereClauses, &args)

	if filter.Gender != "" {
		whereClauses = append(whereClauses, "gender = ?")
		args = append(args, filter.Gender)
	}

	return whereClauses, args
}

// buildFilterWhereClause wraps buildFilterConditions into a WHERE clause
// string with a "1=1" base for safe concatenation.
func buildFilterWhereClause(filter PerformanceFilter) (string, []interface{}) {
	clauses, args := buildFilterConditions(filter)
	if len(clauses) == 0 {
		return "1=1", args
	}
	return "1=1 AND " + strings.Join(clauses, " AND "), args
}
