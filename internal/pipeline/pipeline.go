// Package pipeline wires the full generation chain of spec.md §2: drum
// engine, analyzer, groove bass, lead, and the event merger, gated by
// Config.Mode.
package pipeline

import (
	"log/slog"

	"github.com/groovegen/groovegen/internal/analyzer"
	"github.com/groovegen/groovegen/internal/bass"
	"github.com/groovegen/groovegen/internal/drumengine"
	"github.com/groovegen/groovegen/internal/lead"
	"github.com/groovegen/groovegen/internal/merge"
	"github.com/groovegen/groovegen/internal/model"
)

// Run executes Config+seed through every stage the configured Mode
// requires and returns the assembled Result (spec.md §2, §6).
func Run(cfg *model.Config, logger *slog.Logger) (*model.Result, error) {
	diag := &model.Diagnostics{}

	drumEvents, barMetrics, err := drumengine.Generate(cfg, cfg.Seed, logger, diag)
	if err != nil {
		return nil, err
	}

	grids := analyzer.Analyze(drumEvents, cfg.Timebase)

	var bassNotes []model.BassNote
	if cfg.Mode == model.ModeDrumsBass || cfg.Mode == model.ModeFull {
		bassNotes, err = bass.Generate(cfg, grids, logger, diag)
		if err != nil {
			return nil, err
		}
	}

	var leadNotes []model.LeadNote
	if cfg.Mode == model.ModeFull {
		leadNotes, err = lead.Generate(cfg, grids, bassNotes, logger, diag)
		if err != nil {
			return nil, err
		}
	}

	byTrack := merge.Merge(cfg.Timebase, drumEvents, bassNotes, leadNotes)

	return &model.Result{
		Timebase:    cfg.Timebase,
		Events:      byTrack,
		DrumEvents:  drumEvents,
		BassNotes:   bassNotes,
		LeadNotes:   leadNotes,
		BarMetrics:  barMetrics,
		Diagnostics: *diag,
	}, nil
}
