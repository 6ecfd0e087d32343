package seeddir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/groovegen/groovegen/internal/model"
)

func sampleConfig() *model.Config {
	return &model.Config{
		Mode:     model.ModeFull,
		Timebase: model.Timebase{BPM: 120, PPQ: 1920, Bars: 2, StepsPerBar: model.StepsPerBar},
		Seed:     1,
		Layers:   map[string]model.LayerConfig{"kick": {Name: model.LayerKick, Steps: model.StepsPerBar, Note: 36, Velocity: 110}},
	}
}

func sampleResult() *model.Result {
	events := map[model.TrackID][]model.OutputEvent{
		model.TrackDrums: {
			{Tick: 0, Track: model.TrackDrums, Channel: 9, EventType: model.NoteOn, Pitch: 36, Velocity: 110},
			{Tick: 240, Track: model.TrackDrums, Channel: 9, EventType: model.NoteOff, Pitch: 36},
		},
		model.TrackBass: {
			{Tick: 0, Track: model.TrackBass, Channel: 0, EventType: model.NoteOn, Pitch: 33, Velocity: 90},
			{Tick: 480, Track: model.TrackBass, Channel: 0, EventType: model.NoteOff, Pitch: 33},
		},
		model.TrackLead: {
			{Tick: 0, Track: model.TrackLead, Channel: 1, EventType: model.NoteOn, Pitch: 64, Velocity: 85},
			{Tick: 480, Track: model.TrackLead, Channel: 1, EventType: model.NoteOff, Pitch: 64},
		},
	}
	return &model.Result{
		Timebase: model.Timebase{BPM: 120, PPQ: 1920, Bars: 2, StepsPerBar: model.StepsPerBar},
		Events:   events,
	}
}

func TestWriteProducesExpectedLayout(t *testing.T) {
	root := t.TempDir()
	cfg := sampleConfig()

	dir, err := Write(root, "", cfg, sampleResult(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, rel := range []string{"config.json", "metadata.json", "drums/main.mid", "bass/main.mid", "leads/main.mid", "checksums.txt"} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Fatalf("expected %s to exist: %v", rel, err)
		}
	}
}

func TestWriteModeGatesTrackFiles(t *testing.T) {
	root := t.TempDir()
	cfg := sampleConfig()
	cfg.Mode = model.ModeDrumsOnly

	dir, err := Write(root, "", cfg, sampleResult(), time.Now())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "bass/main.mid")); !os.IsNotExist(err) {
		t.Fatalf("expected no bass/main.mid in drums_only mode")
	}
	if _, err := os.Stat(filepath.Join(dir, "leads/main.mid")); !os.IsNotExist(err) {
		t.Fatalf("expected no leads/main.mid in drums_only mode")
	}
}

func TestVerifyChecksumsDetectsCorruption(t *testing.T) {
	root := t.TempDir()
	dir, err := Write(root, "my-seed", sampleConfig(), sampleResult(), time.Now())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := VerifyChecksums(dir); err != nil {
		t.Fatalf("expected checksums to verify, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "drums/main.mid"), []byte("corrupt"), 0o644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}
	if err := VerifyChecksums(dir); err == nil {
		t.Fatalf("expected checksum mismatch after corruption")
	}
}

func TestWriteMintsSeedIDWhenEmpty(t *testing.T) {
	root := t.TempDir()
	dir, err := Write(root, "", sampleConfig(), sampleResult(), time.Now())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(dir) == "" {
		t.Fatalf("expected a minted seed id directory name")
	}
}
