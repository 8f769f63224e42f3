// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package pipeline

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	cases := map[string]time.Time{
		"2025-06-01T10:30:00Z":       time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		"2025-06-01 10:30:00":        time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		"2025-06-01T10:30:00":        time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		"2025-06-01":                 time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		"2025-06-01 10:30:00.123456": time.Date(2025, 6, 1, 10, 30, 0, 123456000, time.UTC),
	}
	for input, want := range cases {
		got, err := parseTime(input)
		if err != nil {
			t.Errorf("parseTime(%q) failed: %v", input, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseTime(%q) = %v, want %v", input, got, want)
		}
	}

	for _, bad := range []string{"", "not-a-date", "2025-13-40", "10:30:00"} {
		if _, err := parseTime(bad); err == nil {
			t.Errorf("Expected parseTime(%q) to fail", bad)
		}
	}
}

func TestReader(t *testing.T) {
	t.Run("strips BOM and trims fields", func(t *testing.T) {
		input := "\xef\xbb\xbfa,b,c\n 1 ,2, 3\n"
		r, err := NewReader(strings.NewReader(input))
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		if !r.HasColumn("a") {
			t.Error("Expected BOM-stripped header to expose column a")
		}

		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if rec.Line != 1 {
			t.Errorf("Expected line 1, got %d", rec.Line)
		}
		if rec.Get("a") != "1" || rec.Get("b") != "2" || rec.Get("c") != "3" {
			t.Errorf("Unexpected fields: %q %q %q", rec.Get("a"), rec.Get("b"), rec.Get("c"))
		}
	})

	t.Run("tolerates ragged rows", func(t *testing.T) {
		input := "a,b,c\n1\n1,2,3,4\n"
		r, err := NewReader(strings.NewReader(input))
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}

		short, err := r.Next()
		if err != nil {
			t.Fatalf("Next failed on short row: %v", err)
		}
		if short.Get("a") != "1" || short.Get("b") != "" || short.Get("c") != "" {
			t.Errorf("Unexpected short row fields: %q %q %q",
				short.Get("a"), short.Get("b"), short.Get("c"))
		}

		long, err := r.Next()
		if err != nil {
			t.Fatalf("Next failed on long row: %v", err)
		}
		if long.Get("c") != "3" {
			t.Errorf("Expected long row to keep mapped columns, got %q", long.Get("c"))
		}
	})

	t.Run("unknown column reads empty", func(t *testing.T) {
		r, err := NewReader(strings.NewReader("a\n1\n"))
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if rec.Get("missing") != "" {
			t.Errorf("Expected empty value for unknown column, got %q", rec.Get("missing"))
		}
	})

	t.Run("returns EOF at end", func(t *testing.T) {
		r, err := NewReader(strings.NewReader("a\n"))
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		if _, err := r.Next(); !errors.Is(err, io.EOF) {
			t.Errorf("Expected io.EOF, got %v", err)
		}
	})

	t.Run("empty input fails on header", func(t *testing.T) {
		if _, err := NewReader(strings.NewReader("")); err == nil {
			t.Error("Expected error for empty input")
		}
	})
}

func TestOptionalParsers(t *testing.T) {
	if optionalString("") != nil {
		t.Error("Expected nil for empty string")
	}
	if v := optionalString("x"); v == nil || *v != "x" {
		t.Errorf("Expected x, got %v", v)
	}

	if optionalFloat("") != nil || optionalFloat("abc") != nil ||
		optionalFloat("NaN") != nil || optionalFloat("+Inf") != nil {
		t.Error("Expected nil for empty or non-finite numbers")
	}
	if f := optionalFloat("12.5"); f == nil || *f != 12.5 {
		t.Errorf("Expected 12.5, got %v", f)
	}

	if optionalTime("") != nil || optionalTime("garbage") != nil {
		t.Error("Expected nil for empty or unparseable timestamps")
	}
	if ts := optionalTime("2025-06-01 10:00:00"); ts == nil {
		t.Error("Expected parsed timestamp")
	}

	if !looseBool("true") || looseBool("True") || looseBool("1") || looseBool("") {
		t.Error("Expected only the literal lowercase true to be true")
	}
}
