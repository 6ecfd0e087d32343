package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalConfig = `{
  "mode": "drums_only",
  "BPM": 124,
  "PPQ": 1920,
  "Bars": 4,
  "StepsPerBar": 16,
  "seed": 42,
  "layers": {
    "kick": {"name": "kick", "steps": 16, "fills": 4, "note": 36, "velocity": 110}
  }
}`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, minimalConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bars != 4 || cfg.Seed != 42 {
		t.Fatalf("unexpected parsed config: %+v", cfg)
	}
	if _, ok := cfg.Layers["kick"]; !ok {
		t.Fatalf("expected kick layer to be present")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTemp(t, `{
		"mode": "drums_only", "BPM": 120, "PPQ": 1920, "Bars": 1, "StepsPerBar": 16,
		"seed": 1, "layers": {"kick": {"name": "kick", "steps": 16, "fills": 4}},
		"totally_unknown_field": true
	}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown top-level field")
	}
}

func TestLoadRejectsInvalidBPM(t *testing.T) {
	path := writeTemp(t, `{
		"mode": "drums_only", "BPM": 5, "PPQ": 1920, "Bars": 1, "StepsPerBar": 16,
		"seed": 1, "layers": {"kick": {"name": "kick", "steps": 16, "fills": 4}}
	}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for bpm out of range")
	}
}

func TestLoadRejectsUnknownModulatorParamPath(t *testing.T) {
	path := writeTemp(t, `{
		"mode": "drums_only", "BPM": 120, "PPQ": 1920, "Bars": 1, "StepsPerBar": 16,
		"seed": 1, "layers": {"kick": {"name": "kick", "steps": 16, "fills": 4}},
		"modulators": [{"param_path": "not_a_real_path", "mode": "ou", "min_val": 0, "max_val": 1}]
	}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown modulator param_path")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
