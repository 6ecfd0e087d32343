package fixtures

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateProducesConfigsAndMIDI(t *testing.T) {
	dir := t.TempDir()

	manifest, err := Generate(Config{OutputDir: dir, Seed: 7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(manifest.Fixtures) != 3 {
		t.Fatalf("expected 3 preset fixtures, got %d", len(manifest.Fixtures))
	}

	for _, fx := range manifest.Fixtures {
		if _, err := os.Stat(filepath.Join(dir, fx.ConfigFile)); err != nil {
			t.Fatalf("config missing for %s: %v", fx.Name, err)
		}
		if len(fx.MIDIFiles) == 0 {
			t.Fatalf("expected at least one midi file for %s", fx.Name)
		}
		for _, rel := range fx.MIDIFiles {
			path := filepath.Join(dir, rel)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read midi %s: %v", path, err)
			}
			if string(data[:4]) != "MThd" {
				t.Fatalf("%s missing MThd header", path)
			}
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		t.Fatalf("manifest.json missing: %v", err)
	}
}

func TestGenerateDrumsOnlyHasNoBassOrLeadMIDI(t *testing.T) {
	dir := t.TempDir()
	manifest, err := Generate(Config{OutputDir: dir, Seed: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, fx := range manifest.Fixtures {
		if fx.Name != "drums_only" {
			continue
		}
		if fx.BassNotes != 0 || fx.LeadNotes != 0 {
			t.Fatalf("drums_only preset should not produce bass/lead notes, got bass=%d lead=%d", fx.BassNotes, fx.LeadNotes)
		}
		if len(fx.MIDIFiles) != 1 {
			t.Fatalf("drums_only preset should emit exactly one midi file, got %v", fx.MIDIFiles)
		}
	}
}
