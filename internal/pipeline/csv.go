// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

// Package pipeline implements the batch ingestion pipeline: tolerant CSV
// reading, validated bulk imports of both feeds, and the orchestration of
// the collapse, reconcile, and repair stages. The strict quality audit of
// the impression feed also lives here.
package pipeline

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// utf8BOM is stripped from the head of the stream when present.
const utf8BOM = "\xef\xbb\xbf"

// timeLayouts are tried in order when parsing timestamp fields. All values
// are normalized to UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
}

// parseTime parses a timestamp in any accepted layout.
func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// Record is one data row keyed by header name. Missing columns read as
// empty strings, so ragged rows degrade instead of failing.
type Record struct {
	Line   int64 // 1-based data row number, excluding the header
	header map[string]int
	fields []string
}

// Get returns the trimmed value of a column, or "" when the row is too
// short or the header lacks the column.
func (r Record) Get(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

// Reader reads delimited rows as header-keyed records. It tolerates a
// byte-order mark, ragged rows, and loose quoting.
type Reader struct {
	csv    *csv.Reader
	header map[string]int
	line   int64
}

// NewReader wraps rd, strips an optional BOM, and consumes the header row.
func NewReader(rd io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(rd)
	head, err := buffered.Peek(len(utf8BOM))
	if err == nil && string(head) == utf8BOM {
		if _, err := buffered.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("failed to skip byte-order mark: %w", err)
		}
	}

	cr := csv.NewReader(buffered)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	headerRow, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.TrimSpace(name)] = i
	}

	return &Reader{csv: cr, header: header}, nil
}

// Next returns the next data row, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	fields, err := r.csv.Read()
	if err != nil {
		return Record{}, err
	}
	r.line++
	return Record{Line: r.line, header: r.header, fields: fields}, nil
}

// HasColumn reports whether the header carries the given column.
func (r *Reader) HasColumn(column string) bool {
	_, ok := r.header[column]
	return ok
}

// optionalString returns nil for an empty field.
func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// optionalTime parses an optional timestamp field, returning nil when the
// field is empty or unparseable. Only required timestamps reject a row.
func optionalTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	ts, err := parseTime(value)
	if err != nil {
		return nil
	}
	return &ts
}

// optionalFloat parses an optional numeric field, returning nil when the
// field is empty or not a finite number.
func optionalFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// looseBool reads boolean-like fields the way the feeds write them: the
// literal "true" and nothing else is true.
func looseBool(value string) bool {
	return value == "true"
}
