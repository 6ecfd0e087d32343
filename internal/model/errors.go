package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds per spec.md §7. Wrap with fmt.Errorf("...: %w", ErrX)
// so callers can errors.Is against the kind while keeping a specific message.
var (
	// ErrInvalidConfiguration: values out of declared ranges. Fatal, surfaced
	// before any generation begins.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrReferenceMissing: unknown param_path in a modulator, unknown scale
	// in KeySpec derivation. Fatal.
	ErrReferenceMissing = errors.New("reference missing")

	// ErrConstraintUnsatisfiable: bass validation exhausted retries and
	// relaxations. Never fails the pipeline; recorded in Diagnostics.
	ErrConstraintUnsatisfiable = errors.New("constraint unsatisfiable")

	// ErrEventDropped: lead slot search found no valid placement. Never
	// fails the pipeline; recorded in Diagnostics.
	ErrEventDropped = errors.New("event dropped")
)

// Diagnostics accumulates non-fatal degradations so the pipeline never
// panics or aborts on a soft failure (spec.md §4.13, §7).
type Diagnostics struct {
	Warnings []string `json:"warnings,omitempty"`

	BassRelaxations []BassRelaxation `json:"bass_relaxations,omitempty"`
	DroppedLeadNotes []DroppedNote   `json:"dropped_lead_notes,omitempty"`
	RescueBars       []RescueEvent   `json:"rescue_bars,omitempty"`
}

// BassRelaxation records that bar-level bass validation had to relax a
// constraint after exhausting retries (spec.md §4.8 Validation).
type BassRelaxation struct {
	Bar        int    `json:"bar"`
	Attempt    int    `json:"attempt"`
	Relaxed    string `json:"relaxed"` // "kick_overlap" | "density" | "motif_coherence"
	Reason     string `json:"reason"`
}

// DroppedNote records a lead note that could not be placed (spec.md §4.13).
type DroppedNote struct {
	Bar    int    `json:"bar"`
	Step   int    `json:"step"`
	Reason string `json:"reason"`
}

// RescueEvent records a controller rescue bar (spec.md §4.6 step 4).
type RescueEvent struct {
	Bar int     `json:"bar"`
	E   float64 `json:"e"`
}

func (d *Diagnostics) warn(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) AddBassRelaxation(bar, attempt int, relaxed, reason string) {
	d.BassRelaxations = append(d.BassRelaxations, BassRelaxation{Bar: bar, Attempt: attempt, Relaxed: relaxed, Reason: reason})
	d.warn("bar %d: relaxed %s after attempt %d (%s)", bar, relaxed, attempt, reason)
}

func (d *Diagnostics) AddDroppedNote(bar, step int, reason string) {
	d.DroppedLeadNotes = append(d.DroppedLeadNotes, DroppedNote{Bar: bar, Step: step, Reason: reason})
	d.warn("bar %d step %d: lead event dropped (%s)", bar, step, reason)
}

func (d *Diagnostics) AddRescue(bar int, e float64) {
	d.RescueBars = append(d.RescueBars, RescueEvent{Bar: bar, E: e})
	d.warn("bar %d: controller rescue triggered (E=%.3f)", bar, e)
}
