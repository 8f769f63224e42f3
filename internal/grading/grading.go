// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

// Package grading assigns percentile-based letter grades to campaigns
// ranked by entrance rate. The same logic serves the star-schema build and
// the filtered read API, so a filtered subset is re-graded identically to
// the full population.
package grading

import "github.com/adlens/adlens/internal/config"

// Thresholds are percentile cutoffs for letter grades. A campaign whose
// percentile rank is below SBelow gets S, below ABelow gets A, and so on;
// at or above CBelow it gets D.
type Thresholds struct {
	SBelow float64
	ABelow float64
	BBelow float64
	CBelow float64
}

// Default returns the standard five-grade thresholds.
func Default() Thresholds {
	return Thresholds{SBelow: 10, ABelow: 30, BBelow: 50, CBelow: 70}
}

// FromConfig builds Thresholds from the grading configuration.
func FromConfig(cfg config.GradingConfig) Thresholds {
	return Thresholds{
		SBelow: cfg.SBelow,
		ABelow: cfg.ABelow,
		BBelow: cfg.BBelow,
		CBelow: cfg.CBelow,
	}
}

// Percentile returns the percentile rank of the zero-based index in a
// descending sort of the given size.
func Percentile(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(index) / float64(total) * 100
}

// ForPercentile maps a percentile rank to a letter grade.
func (t Thresholds) ForPercentile(p float64) string {
	switch {
	case p < t.SBelow:
		return "S"
	case p < t.ABelow:
		return "A"
	case p < t.BBelow:
		return "B"
	case p < t.CBelow:
		return "C"
	default:
		return "D"
	}
}

// Assign returns the grade for every position of a ranking with the given
// size, in rank order. Callers sort campaigns by entrance rate descending
// (ties broken by campaign id ascending) and apply the result positionally.
func (t Thresholds) Assign(total int) []string {
	grades := make([]string, total)
	for i := range grades {
		grades[i] = t.ForPercentile(Percentile(i, total))
	}
	return grades
}
