// Package seeddir persists one generation run to a seed project
// directory (SPEC_FULL.md §4.12): config, metadata, per-track MIDI
// files and a sha256 checksum manifest, in the same write-then-verify
// shape the teacher used for its playlist exports.
package seeddir

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/groovegen/groovegen/internal/midi"
	"github.com/groovegen/groovegen/internal/model"
)

// Metadata is the summary record written alongside config.json
// (seeds/<seed_id>/metadata.json).
type Metadata struct {
	SeedID      string           `json:"seed_id"`
	CreatedAt   string           `json:"created_at"`
	Mode        model.Mode       `json:"mode"`
	Bars        int              `json:"bars"`
	Seed        int64            `json:"seed"`
	Diagnostics model.Diagnostics `json:"diagnostics"`
}

// Write persists result under rootDir/seeds/<seedID>, minting a seed ID
// via uuid.NewString if seedID is empty, and returns the directory path.
func Write(rootDir, seedID string, cfg *model.Config, result *model.Result, createdAt time.Time) (string, error) {
	if seedID == "" {
		seedID = uuid.NewString()
	}
	dir := filepath.Join(rootDir, "seeds", seedID)

	for _, sub := range []string{"drums", "bass/variants", "leads/variants"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("seeddir: mkdir %s: %w", sub, err)
		}
	}

	var written []string

	configPath := filepath.Join(dir, "config.json")
	if err := writeJSON(configPath, cfg); err != nil {
		return "", err
	}
	written = append(written, "config.json")

	meta := Metadata{
		SeedID: seedID, CreatedAt: createdAt.UTC().Format(time.RFC3339),
		Mode: cfg.Mode, Bars: cfg.Bars, Seed: cfg.Seed, Diagnostics: result.Diagnostics,
	}
	metaPath := filepath.Join(dir, "metadata.json")
	if err := writeJSON(metaPath, meta); err != nil {
		return "", err
	}
	written = append(written, "metadata.json")

	drumsRel := "drums/main.mid"
	if err := writeTrackMIDI(filepath.Join(dir, drumsRel), cfg.Timebase, result.Events, model.TrackDrums); err != nil {
		return "", err
	}
	written = append(written, drumsRel)

	if cfg.Mode == model.ModeDrumsBass || cfg.Mode == model.ModeFull {
		bassRel := "bass/main.mid"
		if err := writeTrackMIDI(filepath.Join(dir, bassRel), cfg.Timebase, result.Events, model.TrackBass); err != nil {
			return "", err
		}
		written = append(written, bassRel)
	}

	if cfg.Mode == model.ModeFull {
		leadRel := "leads/main.mid"
		if err := writeTrackMIDI(filepath.Join(dir, leadRel), cfg.Timebase, result.Events, model.TrackLead); err != nil {
			return "", err
		}
		written = append(written, leadRel)
	}

	checksumsPath := filepath.Join(dir, "checksums.txt")
	if err := writeChecksums(checksumsPath, dir, written); err != nil {
		return "", err
	}

	return dir, nil
}

// VerifyChecksums reads a seed directory's sha256 manifest (format:
// "<hex>  <relative path>") and verifies every referenced file still
// matches. Returns nil if everything checks out.
func VerifyChecksums(seedDir string) error {
	manifestPath := filepath.Join(seedDir, "checksums.txt")
	f, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("seeddir: open manifest: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return fmt.Errorf("seeddir: invalid manifest line %d: %q", lineNo, line)
		}
		want := parts[0]
		name := parts[len(parts)-1]
		path := filepath.Join(seedDir, name)

		got, err := fileSHA256(path)
		if err != nil {
			return fmt.Errorf("seeddir: hash %s: %w", path, err)
		}
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("seeddir: checksum mismatch for %s: want %s got %s", name, want, got)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("seeddir: read manifest: %w", err)
	}
	return nil
}

// fileSHA256 returns the hex SHA256 of a file's contents.
func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("seeddir: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("seeddir: write %s: %w", path, err)
	}
	return nil
}

func writeTrackMIDI(path string, tb model.Timebase, byTrack map[model.TrackID][]model.OutputEvent, track model.TrackID) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("seeddir: create %s: %w", path, err)
	}
	defer f.Close()

	single := map[model.TrackID][]model.OutputEvent{track: byTrack[track]}
	if _, err := midi.Write(f, tb, single); err != nil {
		return fmt.Errorf("seeddir: write smf %s: %w", path, err)
	}
	return nil
}

func writeChecksums(path, baseDir string, relPaths []string) error {
	var b strings.Builder
	for _, rel := range relPaths {
		sum, err := fileSHA256(filepath.Join(baseDir, rel))
		if err != nil {
			return fmt.Errorf("seeddir: hash %s: %w", rel, err)
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, rel)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
