// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/database"
	"github.com/adlens/adlens/internal/logging"
	"github.com/adlens/adlens/internal/metrics"
	"github.com/adlens/adlens/internal/models"
)

// progressInterval controls how often batch progress is logged.
const progressInterval = 50000

// issueSampler collects the first few row-level validation failures for the
// run summary. Counting continues past the cap.
type issueSampler struct {
	limit   int
	total   int64
	samples []models.RowIssue
}

func newIssueSampler(limit int) *issueSampler {
	return &issueSampler{limit: limit}
}

func (s *issueSampler) add(issue models.RowIssue) {
	s.total++
	if len(s.samples) < s.limit {
		s.samples = append(s.samples, issue)
	}
}

// Importer loads one CSV feed into the database in validated batches.
// Parsing runs ahead of insertion: a producer goroutine fills batches while
// the consumer flushes the previous one.
type Importer struct {
	db  *database.DB
	cfg config.ImportConfig
}

// NewImporter creates an Importer bound to a database and import settings.
func NewImporter(db *database.DB, cfg config.ImportConfig) *Importer {
	return &Importer{db: db, cfg: cfg}
}

// insertFunc flushes one parsed batch and reports inserted/duplicate counts.
type insertFunc[T any] func(ctx context.Context, batch []T) (inserted, duplicates int64, err error)

// parseFunc converts one CSV record, or reports a row issue.
type parseFunc[T any] func(rec Record) (T, *models.RowIssue)

// runImport streams a CSV file through parse and insert with a one-batch
// parse-ahead. Row-level failures are sampled and counted, never fatal;
// unreadable files and insert failures abort the run.
func runImport[T any](ctx context.Context, path string, batchSize int,
	sampler *issueSampler, parse parseFunc[T], insert insertFunc[T]) (models.ImportStats, error) {

	stats := models.ImportStats{File: path}
	started := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return stats, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader, err := NewReader(f)
	if err != nil {
		return stats, fmt.Errorf("failed to read %s: %w", path, err)
	}

	batches := make(chan []T, 1)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(batches)

		batch := make([]T, 0, batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case batches <- batch:
				batch = make([]T, 0, batchSize)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for {
			rec, err := reader.Next()
			if errors.Is(err, io.EOF) {
				return flush()
			}
			if err != nil {
				// csv.Reader with LazyQuotes still rejects a handful of
				// malformed quote sequences. Treat them as row issues.
				stats.TotalRows++
				sampler.add(models.RowIssue{Line: stats.TotalRows, Reason: err.Error()})
				continue
			}

			stats.TotalRows++
			row, issue := parse(rec)
			if issue != nil {
				sampler.add(*issue)
				continue
			}

			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
			if stats.TotalRows%progressInterval == 0 {
				logging.Info().
					Str("file", path).
					Int64("rows", stats.TotalRows).
					Msg("Import progress")
			}
		}
	})

	group.Go(func() error {
		for batch := range batches {
			inserted, duplicates, err := insert(ctx, batch)
			if err != nil {
				return err
			}
			stats.Inserted += inserted
			stats.Duplicates += duplicates
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return stats, err
	}

	stats.Invalid = sampler.total
	stats.InvalidSample = sampler.samples
	stats.Elapsed = time.Since(started)

	logging.Info().
		Str("file", path).
		Int64("total", stats.TotalRows).
		Int64("inserted", stats.Inserted).
		Int64("duplicates", stats.Duplicates).
		Int64("invalid", stats.Invalid).
		Dur("elapsed", stats.Elapsed).
		Msg("Import finished")

	return stats, nil
}

// playerDateFields are the six redundant timestamp encodings shipped on
// every full-feed player row.
var playerDateFields = []string{
	"date", "iso_local_time", "iso_time", "playlist_created_time", "iso_time_date", "part_date",
}

// parsePlayerRowFull maps one player feed record for a full import. All six
// date fields must be present and parseable; the first failing field rejects
// the whole row.
func parsePlayerRowFull(rec Record) (models.PlayerEvent, *models.RowIssue) {
	for _, field := range playerDateFields {
		if _, err := parseTime(rec.Get(field)); err != nil {
			return models.PlayerEvent{}, &models.RowIssue{
				Line:   rec.Line,
				Field:  field,
				Reason: "unparseable timestamp",
				Value:  rec.Get(field),
			}
		}
	}
	return parsePlayerRow(rec)
}

// parsePlayerRow maps one player feed record, requiring only iso_time; it
// anchors both the collapse and every downstream timestamp join. Staged
// imports use this directly since the staging table keeps no other dates.
func parsePlayerRow(rec Record) (models.PlayerEvent, *models.RowIssue) {
	isoTime, err := parseTime(rec.Get("iso_time"))
	if err != nil {
		return models.PlayerEvent{}, &models.RowIssue{
			Line:   rec.Line,
			Field:  "iso_time",
			Reason: "unparseable timestamp",
			Value:  rec.Get("iso_time"),
		}
	}

	return models.PlayerEvent{
		CampaignID:        rec.Get("campaign_id"),
		CampaignSessionID: rec.Get("campaign_session_id"),
		ContentSessionID:  rec.Get("content_session_id"),
		Action:            rec.Get("action"),
		ContentID:         rec.Get("content_id"),
		ContentTitle:      optionalString(rec.Get("content_title")),
		DeviceID:          optionalString(rec.Get("device_id")),
		Date:              optionalTime(rec.Get("date")),
		ISOLocalTime:      optionalTime(rec.Get("iso_local_time")),
		ISOTime:           isoTime,
		PlaylistCreated:   optionalTime(rec.Get("playlist_created_time")),
		ISOTimeDate:       optionalTime(rec.Get("iso_time_date")),
		PartDate:          optionalTime(rec.Get("part_date")),
		DurationSecond:    optionalFloat(rec.Get("duration_second")),
		ElapsedSecond:     optionalFloat(rec.Get("elapsed_second")),
		InventoryID:       optionalString(rec.Get("inventory_id")),
		PlayerVersion:     optionalString(rec.Get("player_version")),
		PricingRule:       optionalString(rec.Get("pricing_rule")),
		ContentDuration:   optionalFloat(rec.Get("content_duration")),
		ContentSelection:  optionalString(rec.Get("content_selection")),
		ContentVersion:    optionalString(rec.Get("content_version")),
		SequenceID:        optionalString(rec.Get("sequence_id")),
		AdvertiserID:      optionalString(rec.Get("advertiser_id")),
	}, nil
}

// parseImpressionRow maps one impression feed record. play_at is required.
func parseImpressionRow(rec Record) (models.Impression, *models.RowIssue) {
	playAt, err := parseTime(rec.Get("play_at"))
	if err != nil {
		return models.Impression{}, &models.RowIssue{
			Line:   rec.Line,
			Field:  "play_at",
			Reason: "unparseable timestamp",
			Value:  rec.Get("play_at"),
		}
	}

	var attentionSec float64
	if f := optionalFloat(rec.Get("attention_sec")); f != nil {
		attentionSec = *f
	}

	return models.Impression{
		ContentID:    rec.Get("content_id"),
		Title:        optionalString(rec.Get("title")),
		AudienceID:   rec.Get("audience_id"),
		Age:          optionalString(rec.Get("age")),
		Gender:       optionalString(rec.Get("gender")),
		PlayAt:       playAt,
		AttentionSec: attentionSec,
		IsAttention:  looseBool(rec.Get("is_attention")),
		IsEntrance:   looseBool(rec.Get("is_entrance")),
		ContentGroup: optionalString(rec.Get("content_group")),
	}, nil
}

// ImportPlayerEvents loads the player feed into the raw archive. Rows must
// carry all six date fields in parseable form.
func (im *Importer) ImportPlayerEvents(ctx context.Context) (models.ImportStats, error) {
	sampler := newIssueSampler(im.cfg.SampleLimit)
	stats, err := runImport(ctx, im.cfg.PlayerEventsFile, im.cfg.BatchSize,
		sampler, parsePlayerRowFull, im.db.InsertPlayerEvents)
	if err != nil {
		return stats, err
	}
	metrics.RecordImportRows("player_events", stats.Inserted, stats.Duplicates, stats.Invalid)
	return stats, nil
}

// ImportPlayerEventsStaged loads the player feed into the staging table for
// a skip-raw-archival run.
func (im *Importer) ImportPlayerEventsStaged(ctx context.Context) (models.ImportStats, error) {
	sampler := newIssueSampler(im.cfg.SampleLimit)
	stats, err := runImport(ctx, im.cfg.PlayerEventsFile, im.cfg.BatchSize, sampler,
		parsePlayerRow,
		func(ctx context.Context, batch []models.PlayerEvent) (int64, int64, error) {
			n, err := im.db.InsertStagingPlayerEvents(ctx, batch)
			return n, 0, err
		})
	if err != nil {
		return stats, err
	}
	metrics.RecordImportRows("player_events", stats.Inserted, stats.Duplicates, stats.Invalid)
	return stats, nil
}

// ImportImpressions loads the impression feed.
func (im *Importer) ImportImpressions(ctx context.Context) (models.ImportStats, error) {
	sampler := newIssueSampler(im.cfg.SampleLimit)
	stats, err := runImport(ctx, im.cfg.ImpressionsFile, im.cfg.BatchSize,
		sampler, parseImpressionRow, im.db.InsertImpressions)
	if err != nil {
		return stats, err
	}
	metrics.RecordImportRows("impressions", stats.Inserted, stats.Duplicates, stats.Invalid)
	return stats, nil
}
