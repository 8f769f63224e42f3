// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package grading

import "testing"

func TestForPercentile(t *testing.T) {
	th := Default()

	tests := []struct {
		percentile float64
		want       string
	}{
		{0, "S"},
		{9.99, "S"},
		{10, "A"},
		{29.99, "A"},
		{30, "B"},
		{49.99, "B"},
		{50, "C"},
		{69.99, "C"},
		{70, "D"},
		{100, "D"},
	}

	for _, tt := range tests {
		if got := th.ForPercentile(tt.percentile); got != tt.want {
			t.Errorf("ForPercentile(%v) = %q, want %q", tt.percentile, got, tt.want)
		}
	}
}

func TestAssignFiveCampaigns(t *testing.T) {
	// Entrance rates [0.9, 0.7, 0.5, 0.3, 0.1] descending: percentiles are
	// 0, 20, 40, 60, 80.
	got := Default().Assign(5)
	want := []string{"S", "A", "B", "C", "D"}

	if len(got) != len(want) {
		t.Fatalf("Assign(5) returned %d grades, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Assign(5)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAssignLegacyThresholds(t *testing.T) {
	// The B<60 variant with no reachable D band.
	th := Thresholds{SBelow: 10, ABelow: 30, BBelow: 60, CBelow: 100}

	got := th.Assign(10)
	want := []string{"S", "A", "A", "B", "B", "B", "C", "C", "C", "C"}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Assign(10)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAssignSingleCampaign(t *testing.T) {
	got := Default().Assign(1)
	if len(got) != 1 || got[0] != "S" {
		t.Errorf("Assign(1) = %v, want [S]", got)
	}
}

func TestAssignEmpty(t *testing.T) {
	if got := Default().Assign(0); len(got) != 0 {
		t.Errorf("Assign(0) = %v, want empty", got)
	}
}

func TestPercentileZeroTotal(t *testing.T) {
	if got := Percentile(3, 0); got != 0 {
		t.Errorf("Percentile(3, 0) = %v, want 0", got)
	}
}
