// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package database

import (
	"strings"
	"testing"
	"time"
)

func TestPerformanceFilterIsZero(t *testing.T) {
	if !(PerformanceFilter{}).IsZero() {
		t.Error("Expected empty filter to be zero")
	}

	now := time.Now()
	cases := map[string]PerformanceFilter{
		"from":           {From: &now},
		"to":             {To: &now},
		"time slot":      {TimeSlot: TimeSlotLunch},
		"content groups": {ContentGroups: []string{"coffee"}},
		"age groups":     {AgeGroups: []string{"20s"}},
		"gender":         {Gender: "F"},
	}
	for name, f := range cases {
		if f.IsZero() {
			t.Errorf("Expected filter with %s set to be non-zero", name)
		}
	}
}

func TestPerformanceFilterValidate(t *testing.T) {
	for _, slot := range []string{"", TimeSlotMorning, TimeSlotLunch, TimeSlotDinner, TimeSlotNight} {
		if err := (PerformanceFilter{TimeSlot: slot}).Validate(); err != nil {
			t.Errorf("Expected slot %q to validate, got %v", slot, err)
		}
	}
	if err := (PerformanceFilter{TimeSlot: "brunch"}).Validate(); err == nil {
		t.Error("Expected unknown slot to fail validation")
	}
}

func TestBuildFilterWhereClause(t *testing.T) {
	t.Run("zero filter", func(t *testing.T) {
		where, args := buildFilterWhereClause(PerformanceFilter{})
		if where != "1=1" {
			t.Errorf("Expected bare 1=1, got %q", where)
		}
		if len(args) != 0 {
			t.Errorf("Expected no args, got %v", args)
		}
	})

	t.Run("all dimensions", func(t *testing.T) {
		from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
		where, args := buildFilterWhereClause(PerformanceFilter{
			From:          &from,
			To:            &to,
			TimeSlot:      TimeSlotMorning,
			ContentGroups: []string{"coffee", "tea"},
			AgeGroups:     []string{"20s"},
			Gender:        "F",
		})

		for _, fragment := range []string{
			"play_at >= ?",
			"play_at <= ?",
			"EXTRACT(HOUR FROM play_at) >= 6",
			"content_group IN (?, ?)",
			"age IN (?)",
			"gender = ?",
		} {
			if !strings.Contains(where, fragment) {
				t.Errorf("Expected clause to contain %q, got %q", fragment, where)
			}
		}
		if len(args) != 6 {
			t.Errorf("Expected 6 args, got %d: %v", len(args), args)
		}
	})

	t.Run("night slot wraps midnight", func(t *testing.T) {
		where, _ := buildFilterWhereClause(PerformanceFilter{TimeSlot: TimeSlotNight})
		if !strings.Contains(where, ">= 21 OR EXTRACT(HOUR FROM play_at) < 6") {
			t.Errorf("Expected wrapping night clause, got %q", where)
		}
	})
}
