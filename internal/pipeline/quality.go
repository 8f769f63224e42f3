// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/logging"
	"github.com/adlens/adlens/internal/models"
)

// allowedGenders is the gender allow-list of the impression feed. The feed
// mixes English and Korean labels.
var allowedGenders = map[string]struct{}{
	"M": {}, "F": {}, "male": {}, "female": {}, "남": {}, "여": {},
}

// forbiddenExtensions flag free-text fields still carrying a raw media
// filename from the upstream production defect.
var forbiddenExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".mp4", ".mov", ".avi", ".webm",
}

// requiredImpressionFields must be non-empty on every impression row. The
// audit flags the first empty one and moves on.
var requiredImpressionFields = []string{
	"content_id", "title", "audience_id", "age", "gender",
	"play_at", "attention_sec", "is_attention", "is_entrance", "content_group",
}

// Auditor runs the strict read-only quality check over an impression feed
// file. Unlike the tolerant import, the audit flags every defect class and
// writes a per-run log file; it never modifies the database.
type Auditor struct {
	cfg config.AuditConfig
}

// NewAuditor creates an Auditor.
func NewAuditor(cfg config.AuditConfig) *Auditor {
	return &Auditor{cfg: cfg}
}

// Audit checks every row of the file and returns per-issue tallies with
// capped samples. A full issue log is written to the configured log
// directory under a fresh run id.
func (a *Auditor) Audit(file string) (*models.AuditReport, error) {
	report := &models.AuditReport{
		File:   file,
		RunID:  uuid.NewString(),
		Issues: make(map[string]*models.IssueTally),
	}
	started := time.Now()

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader, err := NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	logFile, err := a.openLogFile(report.RunID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = logFile.Close()
	}()
	fmt.Fprintf(logFile, "quality check %s\nfile: %s\nstarted: %s\n\n",
		report.RunID, file, started.UTC().Format(time.RFC3339))

	seen := make(map[string]struct{})
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.TotalRows++
			a.flag(report, logFile, models.RowIssue{
				Line: report.TotalRows, Reason: err.Error(),
			}, models.IssueMissingField)
			continue
		}

		report.TotalRows++
		if a.checkRow(report, logFile, rec, seen) {
			report.CleanRows++
		}
	}

	report.Elapsed = time.Since(started)
	a.writeSummary(logFile, report)

	logging.Info().
		Str("file", file).
		Str("run_id", report.RunID).
		Int64("total", report.TotalRows).
		Int64("clean", report.CleanRows).
		Dur("elapsed", report.Elapsed).
		Msg("Quality audit finished")

	return report, nil
}

// checkRow applies every defect check to one row and reports whether the
// row came through clean.
func (a *Auditor) checkRow(report *models.AuditReport, logFile io.Writer,
	rec Record, seen map[string]struct{}) bool {
	clean := true
	flag := func(issueType, field, reason, value string) {
		clean = false
		a.flag(report, logFile, models.RowIssue{
			Line: rec.Line, Field: field, Reason: reason, Value: value,
		}, issueType)
	}

	for _, field := range requiredImpressionFields {
		if rec.Get(field) == "" {
			flag(models.IssueMissingField, field, "required field is empty", "")
			break
		}
	}

	playAt := rec.Get("play_at")
	if _, err := parseTime(playAt); err != nil {
		flag(models.IssueInvalidDate, "play_at", "unparseable timestamp", playAt)
	}

	sec := rec.Get("attention_sec")
	f, err := strconv.ParseFloat(sec, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		flag(models.IssueInvalidNumber, "attention_sec", "not a non-negative finite number", sec)
	}

	for _, field := range []string{"is_attention", "is_entrance"} {
		if v := strings.ToLower(rec.Get(field)); v != "true" && v != "false" {
			flag(models.IssueInvalidBoolean, field, `expected "true" or "false"`, rec.Get(field))
			break
		}
	}

	if gender := rec.Get("gender"); gender != "" {
		if _, ok := allowedGenders[gender]; !ok {
			flag(models.IssueInvalidGender, "gender", "outside the gender allow-list", gender)
		}
	}

extensions:
	for _, field := range []string{"content_id", "title", "content_group"} {
		value := strings.ToLower(rec.Get(field))
		for _, ext := range forbiddenExtensions {
			if strings.Contains(value, ext) {
				flag(models.IssueForbiddenExtension, field, "contains a media file extension", rec.Get(field))
				break extensions
			}
		}
	}

	key := rec.Get("content_id") + "|" + rec.Get("audience_id") + "|" + rec.Get("play_at")
	if _, dup := seen[key]; dup {
		flag(models.IssueDuplicateKey, "", "duplicate (content_id, audience_id, play_at) key", key)
	} else {
		seen[key] = struct{}{}
	}

	return clean
}

// flag tallies one issue, keeps a capped sample, and appends to the log.
func (a *Auditor) flag(report *models.AuditReport, logFile io.Writer,
	issue models.RowIssue, issueType string) {
	tally := report.Issues[issueType]
	if tally == nil {
		tally = &models.IssueTally{}
		report.Issues[issueType] = tally
	}
	tally.Count++
	if len(tally.Samples) < a.cfg.SampleLimit {
		tally.Samples = append(tally.Samples, issue)
	}

	fmt.Fprintf(logFile, "line %d: %s field=%s value=%q (%s)\n",
		issue.Line, issueType, issue.Field, issue.Value, issue.Reason)
}

func (a *Auditor) openLogFile(runID string) (*os.File, error) {
	if err := os.MkdirAll(a.cfg.LogDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", a.cfg.LogDir, err)
	}
	path := filepath.Join(a.cfg.LogDir, "quality-check-"+runID+".log")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log %s: %w", path, err)
	}
	return f, nil
}

func (a *Auditor) writeSummary(logFile io.Writer, report *models.AuditReport) {
	types := make([]string, 0, len(report.Issues))
	for issueType := range report.Issues {
		types = append(types, issueType)
	}
	sort.Strings(types)

	fmt.Fprintf(logFile, "\ntotal rows: %d\nclean rows: %d\n", report.TotalRows, report.CleanRows)
	for _, issueType := range types {
		fmt.Fprintf(logFile, "%s: %d\n", issueType, report.Issues[issueType].Count)
	}
}
