// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/database"
	"github.com/adlens/adlens/internal/logging"
	"github.com/adlens/adlens/internal/metrics"
	"github.com/adlens/adlens/internal/models"
)

// Pipeline orchestrates an import run: reset, ingest both feeds, collapse,
// reconcile, repair. The pipeline assumes exclusive ownership of the
// database for the duration of a run; concurrent runs against the same
// file are undefined.
type Pipeline struct {
	db  *database.DB
	cfg *config.Config
}

// New creates a Pipeline.
func New(db *database.DB, cfg *config.Config) *Pipeline {
	return &Pipeline{db: db, cfg: cfg}
}

// RunResult aggregates the per-stage statistics of one import run.
type RunResult struct {
	Mode            string
	PlayerStats     models.ImportStats
	ImpressionStats models.ImportStats
	Collapse        models.CollapseStats
	Reconcile       models.ReconcileStats
	Repair          models.RepairStats
	Elapsed         time.Duration
}

// Run executes the import pipeline in the configured mode. Stages run
// strictly in sequence; each stage reads the previous stage's committed
// output. Re-running against the same files converges to the same state.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{Mode: p.cfg.Import.Mode}
	started := time.Now()

	logging.Info().
		Str("mode", result.Mode).
		Str("player_events", p.cfg.Import.PlayerEventsFile).
		Str("impressions", p.cfg.Import.ImpressionsFile).
		Msg("Import run starting")

	if err := p.reset(ctx); err != nil {
		metrics.StageErrors.WithLabelValues("import").Inc()
		return nil, err
	}

	if err := p.ingest(ctx, result); err != nil {
		metrics.StageErrors.WithLabelValues("import").Inc()
		return nil, err
	}

	if err := p.collapse(ctx, result); err != nil {
		metrics.StageErrors.WithLabelValues("collapse").Inc()
		return nil, err
	}

	stageStart := time.Now()
	reconcile, err := p.db.ReconcileSessions(ctx)
	if err != nil {
		metrics.StageErrors.WithLabelValues("reconcile").Inc()
		return nil, fmt.Errorf("reconcile stage failed: %w", err)
	}
	result.Reconcile = reconcile
	metrics.ObserveStage("reconcile", time.Since(stageStart))
	metrics.SessionsMatched.Set(float64(reconcile.MatchedSessions))

	stageStart = time.Now()
	repair, err := p.db.RepairContent(ctx)
	if err != nil {
		metrics.StageErrors.WithLabelValues("repair").Inc()
		return nil, fmt.Errorf("repair stage failed: %w", err)
	}
	result.Repair = repair
	metrics.ObserveStage("repair", time.Since(stageStart))

	result.Elapsed = time.Since(started)
	logging.Info().
		Str("mode", result.Mode).
		Dur("elapsed", result.Elapsed).
		Msg("Import run finished")

	return result, nil
}

// reset clears every table the run rewrites. A skip-raw-archival run also
// clears the raw archive so a later build cannot join against rows from an
// older import.
func (p *Pipeline) reset(ctx context.Context) error {
	if err := p.db.ResetRawPlayerEvents(ctx); err != nil {
		return err
	}
	if err := p.db.ResetRawImpressions(ctx); err != nil {
		return err
	}
	return p.db.ResetPlaySessions(ctx)
}

// ingest loads both feeds. The player feed's destination depends on mode.
func (p *Pipeline) ingest(ctx context.Context, result *RunResult) error {
	importer := NewImporter(p.db, p.cfg.Import)
	stageStart := time.Now()

	var err error
	if p.cfg.Import.Mode == config.ImportModeSkipRawArchival {
		if err := p.db.CreateStagingPlayerEvents(ctx); err != nil {
			return err
		}
		result.PlayerStats, err = importer.ImportPlayerEventsStaged(ctx)
	} else {
		result.PlayerStats, err = importer.ImportPlayerEvents(ctx)
	}
	if err != nil {
		return fmt.Errorf("player feed import failed: %w", err)
	}

	result.ImpressionStats, err = importer.ImportImpressions(ctx)
	if err != nil {
		return fmt.Errorf("impression feed import failed: %w", err)
	}

	metrics.ObserveStage("import", time.Since(stageStart))
	return nil
}

// collapse folds the imported player events into sessions and, in
// skip-raw-archival mode, drops the staging table afterwards.
func (p *Pipeline) collapse(ctx context.Context, result *RunResult) error {
	source := database.RawPlayerEvents
	if p.cfg.Import.Mode == config.ImportModeSkipRawArchival {
		source = database.StagingPlayerEvents
	}

	stageStart := time.Now()
	collapse, err := p.db.CollapseSessions(ctx, source)
	if err != nil {
		return fmt.Errorf("collapse stage failed: %w", err)
	}
	result.Collapse = collapse
	metrics.ObserveStage("collapse", time.Since(stageStart))

	if source == database.StagingPlayerEvents {
		if err := p.db.DropStagingPlayerEvents(ctx); err != nil {
			return err
		}
	}
	return nil
}
