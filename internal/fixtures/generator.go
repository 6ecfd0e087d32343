// Package fixtures emits a small ladder of sample model.Config JSON
// files together with the deterministic MIDI they produce, for use as
// smoke-test fixtures by consumers that don't want to hand-write a
// config from scratch (adapts the teacher's fixtures.Generate/Manifest
// shape to groovegen's own domain).
package fixtures

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/groovegen/groovegen/internal/midi"
	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/pipeline"
)

// Config controls where fixtures are written and the root seed they are
// derived from.
type Config struct {
	OutputDir string
	Seed      int64
}

// Manifest describes generated fixtures for tests/consumers.
type Manifest struct {
	Seed     int64             `json:"seed"`
	Fixtures []ManifestFixture `json:"fixtures"`
}

// ManifestFixture summarizes one preset's config and the pipeline
// output it produced.
type ManifestFixture struct {
	Name       string     `json:"name"`
	ConfigFile string     `json:"config_file"`
	MIDIFiles  []string   `json:"midi_files"`
	Mode       model.Mode `json:"mode"`
	Bars       int        `json:"bars"`
	DrumEvents int        `json:"drum_events"`
	BassNotes  int        `json:"bass_notes"`
	LeadNotes  int        `json:"lead_notes"`
}

// Generate writes one config.json + per-track .mid per preset, plus a
// manifest.json, into OutputDir.
func Generate(cfg Config) (*Manifest, error) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./testdata/fixtures"
	}
	configsDir := filepath.Join(cfg.OutputDir, "configs")
	midiDir := filepath.Join(cfg.OutputDir, "midi")
	for _, d := range []string{configsDir, midiDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("fixtures: mkdir %s: %w", d, err)
		}
	}

	manifest := &Manifest{Seed: cfg.Seed}

	for _, preset := range presets(cfg.Seed) {
		configFile := preset.name + ".json"
		configPath := filepath.Join(configsDir, configFile)
		data, err := json.MarshalIndent(preset.cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("fixtures: marshal %s: %w", preset.name, err)
		}
		if err := os.WriteFile(configPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("fixtures: write %s: %w", configPath, err)
		}

		result, err := pipeline.Run(preset.cfg, nil)
		if err != nil {
			return nil, fmt.Errorf("fixtures: run preset %s: %w", preset.name, err)
		}

		midiFiles, err := writeTrackMIDIFiles(midiDir, preset.name, preset.cfg.Timebase, result)
		if err != nil {
			return nil, err
		}

		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			Name:       preset.name,
			ConfigFile: filepath.Join("configs", configFile),
			MIDIFiles:  midiFiles,
			Mode:       preset.cfg.Mode,
			Bars:       preset.cfg.Bars,
			DrumEvents: len(result.DrumEvents),
			BassNotes:  len(result.BassNotes),
			LeadNotes:  len(result.LeadNotes),
		})
	}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("fixtures: marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("fixtures: write manifest: %w", err)
	}

	return manifest, nil
}

func writeTrackMIDIFiles(midiDir, name string, tb model.Timebase, result *model.Result) ([]string, error) {
	var written []string
	for _, track := range []model.TrackID{model.TrackDrums, model.TrackBass, model.TrackLead} {
		events := result.Events[track]
		if len(events) == 0 {
			continue
		}
		rel := fmt.Sprintf("%s_%s.mid", name, track)
		path := filepath.Join(midiDir, rel)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("fixtures: create %s: %w", path, err)
		}
		single := map[model.TrackID][]model.OutputEvent{track: events}
		_, werr := midi.Write(f, tb, single)
		cerr := f.Close()
		if werr != nil {
			return nil, fmt.Errorf("fixtures: write smf %s: %w", path, werr)
		}
		if cerr != nil {
			return nil, fmt.Errorf("fixtures: close %s: %w", path, cerr)
		}
		written = append(written, filepath.Join("midi", rel))
	}
	return written, nil
}

type preset struct {
	name string
	cfg  *model.Config
}

// presets returns a small ladder of configs spanning each mode, so
// consumers get a minimal drums-only fixture, a drums+bass fixture,
// and a full drums+bass+lead fixture without writing their own.
func presets(seed int64) []preset {
	baseLayers := func() map[string]model.LayerConfig {
		return map[string]model.LayerConfig{
			"kick":  {Name: model.LayerKick, Steps: model.StepsPerBar, Fills: 4, Note: 36, Velocity: 112},
			"snare": {Name: model.LayerSnare, Steps: model.StepsPerBar, Fills: 2, Rot: 4, Note: 38, Velocity: 104},
			"hat_c": {Name: model.LayerHatC, Steps: model.StepsPerBar, Fills: 11, Note: 42, Velocity: 78, SwingPercent: 0.56},
		}
	}

	drumsOnly := &model.Config{
		Mode:     model.ModeDrumsOnly,
		Timebase: model.Timebase{BPM: 120, PPQ: 1920, Bars: 4, StepsPerBar: model.StepsPerBar},
		Seed:     seed,
		Layers:   baseLayers(),
	}

	drumsBass := &model.Config{
		Mode:     model.ModeDrumsBass,
		Timebase: model.Timebase{BPM: 126, PPQ: 1920, Bars: 8, StepsPerBar: model.StepsPerBar},
		Seed:     seed + 1,
		Layers:   baseLayers(),
		Bass: model.BassConfig{
			Enabled: true, RootNote: 33, FixedMode: model.BassRootFifthDriver,
			RegisterGravityCenter: 36,
		},
	}

	full := &model.Config{
		Mode:     model.ModeFull,
		Timebase: model.Timebase{BPM: 122, PPQ: 1920, Bars: 8, StepsPerBar: model.StepsPerBar},
		Seed:     seed + 2,
		Layers:   baseLayers(),
		Bass: model.BassConfig{
			Enabled: true, RootNote: 36, FixedMode: model.BassPocketGroove,
			RegisterGravityCenter: 40,
		},
		Lead: model.LeadConfig{
			Enabled: true, ScaleRootPC: 0, ScaleType: model.ScaleAeolian,
			MinPhraseBars: 2, MaxPhraseBars: 4, CallResponsePattern: "CRCR",
			RegisterLow: 60, RegisterHigh: 79, RegisterGravityCenter: 69,
			MinInterNoteGapSteps: 1, MinSemitoneDistance: 1,
			AvoidRootOnBassHits: true,
		},
	}

	return []preset{
		{"drums_only", drumsOnly},
		{"drums_plus_bass", drumsBass},
		{"full", full},
	}
}
