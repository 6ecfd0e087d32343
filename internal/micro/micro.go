// Package micro applies per-onset micro-timing (spec.md §4.3): swing,
// discrete beat-bin offsets, aggregate magnitude capping, and choke-group
// suppression.
package micro

import (
	"sort"

	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/rng"
)

// Offset computes the micro-timing offset in ticks for one onset of layer
// cfg at step s, bar-index bar. Ordering invariant (spec.md §4.3): swing
// first, then beat-bin, then cap — applied in that order so the result is
// independent of call-site bookkeeping.
func Offset(cfg model.LayerConfig, tb model.Timebase, bar, step int, state *rng.State) int {
	stepTicks := tb.StepTicks()

	offsetTicks := 0
	if step%2 == 1 {
		offsetTicks += roundToInt((cfg.SwingPercent - 0.5) * float64(stepTicks) * 2)
	}

	if len(cfg.BeatBinsMs) > 0 && len(cfg.BeatBinsMs) == len(cfg.BeatBinsProbs) {
		idx := state.WeightedChoice(cfg.BeatBinsProbs)
		binMs := cfg.BeatBinsMs[idx]
		binTicks := msToTicks(binMs, tb)
		if cfg.BeatBinCapMs > 0 {
			capTicks := msToTicks(cfg.BeatBinCapMs, tb)
			binTicks = clampInt(binTicks, -capTicks, capTicks)
		}
		offsetTicks += binTicks
	} else if cfg.MicroMs != 0 {
		offsetTicks += msToTicks(cfg.MicroMs, tb)
	}

	if cfg.MicroCapTicks > 0 {
		offsetTicks = clampInt(offsetTicks, -cfg.MicroCapTicks, cfg.MicroCapTicks)
	}
	return offsetTicks
}

// ApplyChokeGroups removes onsets in a layer whenever the layer it chokes
// against (cfg.ChokeWithNote names the other layer) has an onset at the
// same step. Removal is outright — no duration clipping (spec.md §4.3).
// Layers are visited in sorted name order so a mutual choke pair (each
// naming the other) resolves deterministically instead of depending on Go's
// randomised map iteration order.
func ApplyChokeGroups(layers map[string]model.LayerConfig, masks map[string]model.LayerMask) {
	names := make([]string, 0, len(layers))
	for name := range layers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := layers[name]
		if cfg.ChokeWithNote == "" {
			continue
		}
		other, ok := masks[cfg.ChokeWithNote]
		if !ok {
			continue
		}
		m, ok := masks[name]
		if !ok {
			continue
		}
		for s := 0; s < model.StepsPerBar; s++ {
			if other.Onsets[s] && m.Onsets[s] {
				m.Onsets[s] = false
			}
		}
		masks[name] = m
	}
}

func msToTicks(ms float64, tb model.Timebase) int {
	return model.TicksFromMs(ms, tb.BPM, tb.PPQ)
}

func roundToInt(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
