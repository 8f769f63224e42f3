// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/adlens/adlens/internal/database"
	"github.com/adlens/adlens/internal/logging"
	"github.com/adlens/adlens/internal/models"
)

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError sends the standard error payload.
func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		logging.Error().Err(err).Int("status", status).Msg("API error")
	}
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// parseDateParam accepts a plain date or a full timestamp. endOfDay extends
// a plain date to its last second so "to=2025-06-01" includes the whole day.
func parseDateParam(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	if ts, err := time.Parse("2006-01-02", value); err == nil {
		if endOfDay {
			ts = ts.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		}
		return &ts, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			ts = ts.UTC()
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", value)
}

// splitListParam splits a comma-separated multi-value query parameter.
func splitListParam(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parsePerformanceFilter reads the filter dimensions off the query string.
func parsePerformanceFilter(r *http.Request) (database.PerformanceFilter, error) {
	var filter database.PerformanceFilter
	q := r.URL.Query()

	from, err := parseDateParam(q.Get("from"), false)
	if err != nil {
		return filter, err
	}
	to, err := parseDateParam(q.Get("to"), true)
	if err != nil {
		return filter, err
	}

	filter.From = from
	filter.To = to
	filter.TimeSlot = q.Get("timeSlot")
	filter.ContentGroups = splitListParam(q.Get("contentGroups"))
	filter.AgeGroups = splitListParam(q.Get("ageGroups"))
	filter.Gender = q.Get("gender")

	return filter, filter.Validate()
}
