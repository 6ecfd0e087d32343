// Package analyzer implements the drum analyzer of spec.md §4.7: it
// partitions the merged, sorted drum event stream by bar and produces a
// read-only SlotGrid per bar, labelling every 16th-note step with the
// anchor tags the groove bass and lead engines key their decisions on.
// The grid is frozen before bass begins (spec.md §9: "the drum grid is
// frozen before bass begins").
package analyzer

import (
	"github.com/groovegen/groovegen/internal/model"
)

// Analyze builds one SlotGrid per bar from events, in a single
// deterministic pass keyed only by (layer, bar, step) — never by event
// arrival order, so re-running it on the same event set always yields
// the same grid (spec.md §8 invariant 10).
func Analyze(events []model.DrumEvent, tb model.Timebase) []model.SlotGrid {
	if tb.Bars <= 0 {
		return nil
	}

	type barOnsets struct {
		kick, snare, clap, hatC, hatO [model.StepsPerBar]bool
	}
	perBar := make([]barOnsets, tb.Bars)

	for _, e := range events {
		if e.Bar < 0 || e.Bar >= tb.Bars {
			continue
		}
		b := &perBar[e.Bar]
		switch e.Layer {
		case model.LayerKick:
			b.kick[e.Step] = true
		case model.LayerSnare:
			b.snare[e.Step] = true
		case model.LayerClap:
			b.clap[e.Step] = true
		case model.LayerHatC:
			b.hatC[e.Step] = true
		case model.LayerHatO:
			b.hatO[e.Step] = true
		}
	}

	grids := make([]model.SlotGrid, tb.Bars)
	for bar := 0; bar < tb.Bars; bar++ {
		b := perBar[bar]
		grid := model.SlotGrid{Bar: bar}
		fillZoneStart := fillZoneStartStep(bar)
		for s := 0; s < model.StepsPerBar; s++ {
			label := model.SlotLabel{
				IsKick:    b.kick[s],
				PreKick:   b.kick[(s+1)%model.StepsPerBar],
				PostKick:  b.kick[((s-1)%model.StepsPerBar+model.StepsPerBar)%model.StepsPerBar],
				SnareZone: nearby(b.snare, s, 1) || nearby(b.clap, s, 1),
				BarStart:  s == 0,
				BarEnd:    s == model.StepsPerBar-1,
				HatDense:  windowCount(b.hatC, b.hatO, s, 2) >= 3,
				HatSparse: windowCount(b.hatC, b.hatO, s, 2) == 0,
				FillZone:  fillZoneStart >= 0 && s >= fillZoneStart,
			}
			grid.Slots[s] = label
		}
		grids[bar] = grid
	}
	return grids
}

// fillZoneStartStep returns the first step of the last-2-steps fill zone
// for bar if it is the last bar of its 4-bar group, or -1 otherwise
// (spec.md §4.7: "fill_zone: step belongs to the last 2 steps of the
// last bar of a 4-bar group").
func fillZoneStartStep(bar int) int {
	if (bar+1)%4 != 0 {
		return -1
	}
	return model.StepsPerBar - 2
}

// nearby reports whether mask has an onset within +-window steps of s,
// wrapping within the bar.
func nearby(mask [model.StepsPerBar]bool, s, window int) bool {
	for d := -window; d <= window; d++ {
		idx := (((s + d) % model.StepsPerBar) + model.StepsPerBar) % model.StepsPerBar
		if mask[idx] {
			return true
		}
	}
	return false
}

// windowCount counts onsets across two hat masks within [s-window,
// s+window], used for the hat_dense/hat_sparse labels.
func windowCount(a, b [model.StepsPerBar]bool, s, window int) int {
	count := 0
	for d := -window; d <= window; d++ {
		idx := (((s + d) % model.StepsPerBar) + model.StepsPerBar) % model.StepsPerBar
		if a[idx] {
			count++
		}
		if b[idx] {
			count++
		}
	}
	return count
}

// GridForBar returns the SlotGrid for bar, or the zero grid if out of
// range. Convenience for callers that index grids by bar number directly.
func GridForBar(grids []model.SlotGrid, bar int) model.SlotGrid {
	if bar < 0 || bar >= len(grids) {
		return model.SlotGrid{Bar: bar}
	}
	return grids[bar]
}
