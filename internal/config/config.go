// Package config loads and validates the declarative JSON configuration
// file consumed by cmd/groovegen (spec.md §6, SPEC_FULL.md §6: "the file
// is JSON"). Unknown keys are rejected at parse time per spec.md §9.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/groovegen/groovegen/internal/model"
)

// Load reads and validates the JSON configuration at path into a
// model.Config, rejecting unknown top-level and nested fields.
func Load(path string) (*model.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates and decodes raw JSON bytes into a model.Config,
// rejecting unknown top-level and nested fields. Used directly by
// callers that already hold the configuration in memory, such as a
// queued job's payload (internal/storage).
func Parse(data []byte) (*model.Config, error) {
	var cfg model.Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the cross-field invariants of spec.md §6/§8 that JSON
// schema validation alone cannot express: timebase ranges, modulator
// param_path references, and per-layer field ranges.
func Validate(cfg *model.Config) error {
	if err := cfg.Timebase.Validate(); err != nil {
		return err
	}
	switch cfg.Mode {
	case model.ModeDrumsOnly, model.ModeDrumsBass, model.ModeFull, "":
	default:
		return fmt.Errorf("%w: unknown mode %q", model.ErrInvalidConfiguration, cfg.Mode)
	}
	if len(cfg.Layers) == 0 {
		return fmt.Errorf("%w: at least one layer must be configured", model.ErrInvalidConfiguration)
	}
	for name, lc := range cfg.Layers {
		if lc.Steps != 0 && lc.Steps != model.StepsPerBar {
			return fmt.Errorf("%w: layer %q steps must be %d, got %d", model.ErrInvalidConfiguration, name, model.StepsPerBar, lc.Steps)
		}
		if lc.Fills < 0 || lc.Fills > model.StepsPerBar {
			return fmt.Errorf("%w: layer %q fills %d out of [0,%d]", model.ErrInvalidConfiguration, name, lc.Fills, model.StepsPerBar)
		}
		if lc.SwingPercent != 0 && (lc.SwingPercent < 0.5 || lc.SwingPercent > 0.62) {
			return fmt.Errorf("%w: layer %q swing_percent %.3f out of [0.5,0.62]", model.ErrInvalidConfiguration, name, lc.SwingPercent)
		}
		if lc.RatchetProb < 0 || lc.RatchetProb > 0.3 {
			return fmt.Errorf("%w: layer %q ratchet_prob %.3f out of [0,0.3]", model.ErrInvalidConfiguration, name, lc.RatchetProb)
		}
	}
	for _, m := range cfg.Modulators {
		if !model.IsRecognisedParamPath(m.ParamPath, cfg.Layers) {
			return fmt.Errorf("%w: modulator param_path %q", model.ErrReferenceMissing, m.ParamPath)
		}
		if m.MinVal > m.MaxVal {
			return fmt.Errorf("%w: modulator %q min_val > max_val", model.ErrInvalidConfiguration, m.ParamPath)
		}
	}
	if cfg.Lead.Enabled && !model.ValidScale(cfg.Lead.ScaleType) {
		return fmt.Errorf("%w: lead scale_type %q", model.ErrReferenceMissing, cfg.Lead.ScaleType)
	}
	deriveMicroCapTicks(cfg)
	return nil
}

// deriveMicroCapTicks converts targets.t_ms_cap into each layer's
// MicroCapTicks, the field LayerConfig documents as "derived at load
// time" rather than read directly from JSON.
func deriveMicroCapTicks(cfg *model.Config) {
	if cfg.Targets.TMsCap <= 0 {
		return
	}
	capTicks := model.TicksFromMs(cfg.Targets.TMsCap, cfg.BPM, cfg.PPQ)
	for name, lc := range cfg.Layers {
		lc.MicroCapTicks = capTicks
		cfg.Layers[name] = lc
	}
}
