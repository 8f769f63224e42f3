// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package api

import (
	"sort"

	"github.com/adlens/adlens/internal/models"
)

// rollupGroups aggregates ranked rows per content group. Rates are
// impression-weighted so large campaigns dominate their group's average,
// matching how the global summary weighs them.
func rollupGroups(rows []models.PerformanceRow) []models.GroupRollup {
	type acc struct {
		campaigns   int64
		impressions int64
		attention   float64
		entrance    float64
	}
	byGroup := make(map[string]*acc)

	for _, row := range rows {
		group := row.ContentGroup
		if group == "" {
			group = "ungrouped"
		}
		a := byGroup[group]
		if a == nil {
			a = &acc{}
			byGroup[group] = a
		}
		a.campaigns++
		a.impressions += row.Impressions
		a.attention += float64(row.Impressions) * row.AttentionRate
		a.entrance += float64(row.Impressions) * row.EntranceRate
	}

	out := make([]models.GroupRollup, 0, len(byGroup))
	for group, a := range byGroup {
		rollup := models.GroupRollup{
			ContentGroup: group,
			Campaigns:    a.campaigns,
			Impressions:  a.impressions,
		}
		if a.impressions > 0 {
			rollup.AttentionRate = a.attention / float64(a.impressions)
			rollup.EntranceRate = a.entrance / float64(a.impressions)
		}
		out = append(out, rollup)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntranceRate != out[j].EntranceRate {
			return out[i].EntranceRate > out[j].EntranceRate
		}
		return out[i].ContentGroup < out[j].ContentGroup
	})
	return out
}

// summarize computes the global totals block over the ranked rows.
func summarize(rows []models.PerformanceRow) models.PerformanceSummaryTotals {
	totals := models.PerformanceSummaryTotals{Campaigns: int64(len(rows))}

	var attention, entrance float64
	for _, row := range rows {
		totals.Impressions += row.Impressions
		attention += float64(row.Impressions) * row.AttentionRate
		entrance += float64(row.Impressions) * row.EntranceRate
	}
	if totals.Impressions > 0 {
		totals.AvgAttentionRate = attention / float64(totals.Impressions)
		totals.AvgEntranceRate = entrance / float64(totals.Impressions)
	}
	return totals
}
