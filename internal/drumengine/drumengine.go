// Package drumengine orchestrates the Euclidean/step core, micro-timing,
// density/accent and feedback controller into the drum engine of
// spec.md §2/§4.2-§4.6: given a Config and a root seed it emits the
// sorted-by-construction stream of DrumEvent for every configured layer,
// one bar at a time, in ascending bar order (spec.md §5: bars are
// processed strictly in order because the controller depends on bar
// i-1's metrics before emitting bar i).
package drumengine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/groovegen/groovegen/internal/controller"
	"github.com/groovegen/groovegen/internal/density"
	"github.com/groovegen/groovegen/internal/euclid"
	"github.com/groovegen/groovegen/internal/metrics"
	"github.com/groovegen/groovegen/internal/micro"
	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/rng"
)

// history stores every bar's onset mask per layer so the PRE/NOT_PRE
// condition stack can look one bar back (spec.md §4.2). It implements
// euclid.History.
type history struct {
	masks map[model.LayerName][]model.LayerMask // indexed by bar
}

func newHistory() *history {
	return &history{masks: make(map[model.LayerName][]model.LayerMask)}
}

func (h *history) OnsetAt(layer model.LayerName, bar, step int) bool {
	bars := h.masks[layer]
	if bar < 0 || bar >= len(bars) {
		return false
	}
	return bars[bar].Onsets[step]
}

func (h *history) record(layer model.LayerName, bar int, mask model.LayerMask) {
	bars := h.masks[layer]
	for len(bars) <= bar {
		bars = append(bars, model.LayerMask{})
	}
	bars[bar] = mask
	h.masks[layer] = bars
}

// Generate runs the full feedback drum engine (spec.md §4.12: MEASURE →
// BIAS → MODULATE → GUARD → EMIT per bar) and returns the sorted drum
// event stream plus the per-bar metrics the controller measured.
func Generate(cfg *model.Config, seed int64, logger *slog.Logger, diag *model.Diagnostics) ([]model.DrumEvent, []model.BarMetrics, error) {
	if err := cfg.Timebase.Validate(); err != nil {
		return nil, nil, err
	}

	ctrl, err := controller.New(cfg, seed, logger)
	if err != nil {
		return nil, nil, err
	}

	layerNames := orderedLayerNames(cfg.Layers)

	hist := newHistory()
	var events []model.DrumEvent
	var barMetrics []model.BarMetrics

	for bar := 0; bar < cfg.Bars; bar++ {
		barMasks := make(map[string]model.LayerMask, len(layerNames))
		barMicroOffsets := make(map[string][]int, len(layerNames))

		for _, name := range layerNames {
			lc := cfg.Layers[name]
			layer := model.LayerName(name)

			mask, vel, err := generateSkeleton(cfg, lc, layer, bar, hist, ctrl)
			if err != nil {
				return nil, nil, err
			}

			stable := hasStableSkeleton(lc)
			if layer == model.LayerKick {
				if _, ok := ctrl.ModulatorValue("kick.rotation_rate_per_bar"); ok {
					stable = false
				}
			}

			if bar == 0 {
				ctrl.InitLayerProbability(name, mask)
			} else if stable {
				mask = gateByController(mask, ctrl.Probability(name), rng.Derive(seed, "drum", "controller-gate", name, bar))
			}

			hist.record(layer, bar, model.LayerMask{Onsets: mask, Velocities: vel})
			barMasks[name] = model.LayerMask{Onsets: mask, Velocities: vel}
		}

		micro.ApplyChokeGroups(cfg.Layers, barMasks)

		for _, name := range layerNames {
			lc := cfg.Layers[name]
			m := barMasks[name]

			accentCfg := cfg.Accent
			if av, ok := ctrl.ModulatorValue("accent.prob"); ok {
				accentCfg.Prob = av
			}
			accentState := rng.Derive(seed, "drum", "accent", name, bar)
			velocities := density.ApplyAccent(m.Onsets, m.Velocities, accentCfg, accentState)

			microState := rng.Derive(seed, "drum", "micro", name, bar)
			straighten := bar > 0 && ctrl.Straighten(name)

			for step := 0; step < model.StepsPerBar; step++ {
				if !m.Onsets[step] {
					continue
				}
				effectiveLC := lc
				if sw, ok := ctrl.ModulatorValue(name + ".swing_percent"); ok {
					effectiveLC.SwingPercent = sw
				}
				if rp, ok := ctrl.ModulatorValue(name + ".ratchet_prob"); ok {
					effectiveLC.RatchetProb = rp
				}
				if straighten {
					effectiveLC.SwingPercent = 0.5
				}
				offset := micro.Offset(effectiveLC, cfg.Timebase, bar, step, microState)
				barMicroOffsets[name] = append(barMicroOffsets[name], offset)

				ev := model.DrumEvent{
					Layer:            layer(name),
					Bar:              bar,
					Step:             step,
					Note:             lc.Note,
					Velocity:         velocities[step],
					MicroOffsetTicks: offset,
					DurationTicks:    cfg.Timebase.StepTicks(),
				}
				extra := ratchetEvents(ev, effectiveLC, rng.Derive(seed, "drum", "ratchet", name, bar, step))
				if len(extra) > 0 {
					ev.DurationTicks = extra[0].DurationTicks
				}
				events = append(events, ev)
				events = append(events, extra...)
			}
		}

		bm := computeBarMetrics(bar, cfg, barMasks, barMicroOffsets)
		barMetrics = append(barMetrics, bm)

		if bar+1 < cfg.Bars {
			ctrl.Step(bar+1, bm, diag)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].Tick(cfg.Timebase), events[j].Tick(cfg.Timebase)
		if ti != tj {
			return ti < tj
		}
		if events[i].Layer != events[j].Layer {
			return events[i].Layer < events[j].Layer
		}
		return events[i].Step < events[j].Step
	})

	return events, barMetrics, nil
}

func layer(name string) model.LayerName { return model.LayerName(name) }

// orderedLayerNames returns every configured layer name in a
// deterministic order with "kick" first: the hat density clamp's
// void-bias weighting (spec.md §4.4) reads the current bar's kick onsets
// to compute distance-to-kick, so kick must be generated before any
// layer that leans on it, within the same bar.
func orderedLayerNames(layers map[string]model.LayerConfig) []string {
	names := make([]string, 0, len(layers))
	for name := range layers {
		if name != string(model.LayerKick) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := layers[string(model.LayerKick)]; ok {
		names = append([]string{string(model.LayerKick)}, names...)
	}
	return names
}

// hasStableSkeleton reports whether a layer's deterministic skeleton
// (Euclidean mask + rotation + conditions) is identical bar after bar, a
// precondition for letting the controller's persistent probability
// vector gate it safely: a layer whose rotation drifts would otherwise
// be gated against step positions computed for a different bar's
// skeleton (spec.md §4.6's p[] is defined per step index, not per
// onset-identity).
func hasStableSkeleton(lc model.LayerConfig) bool {
	return lc.RotationRatePerBar == 0
}

func gateByController(mask [model.StepsPerBar]bool, p [model.StepsPerBar]float64, state *rng.State) [model.StepsPerBar]bool {
	out := mask
	for s := range out {
		if out[s] && !state.Bernoulli(p[s]) {
			out[s] = false
		}
	}
	return out
}

// generateSkeleton builds one bar's deterministic onset mask for a
// layer: Euclidean base, rotation drift, offbeats-only restriction, the
// condition stack, ghost notes and the into-2 displacement (spec.md
// §4.2), then the hat-density clamp where configured (spec.md §4.4).
func generateSkeleton(cfg *model.Config, lc model.LayerConfig, layer model.LayerName, bar int, hist *history, ctrl *controller.Controller) ([model.StepsPerBar]bool, [model.StepsPerBar]int, error) {
	rotationRate := lc.RotationRatePerBar
	if layer == model.LayerKick {
		if rv, ok := ctrl.ModulatorValue("kick.rotation_rate_per_bar"); ok {
			rotationRate = rv
		}
	}
	rot := euclid.RotationForBar(rotationRate, float64(lc.Rot), bar, cfg.Guard.MaxRotRate)
	if bar > 0 && ctrl.RotationReset(string(layer)) {
		rot = 0
	}

	base := euclid.Rotate(euclid.Bjorklund(model.StepsPerBar, lc.Fills), rot)

	if lc.OffbeatsOnly {
		for s := 0; s < model.StepsPerBar; s += 2 {
			base[s] = false
		}
	}

	condState := rng.Derive(cfg.Seed, "drum", "conditions", string(layer), bar)
	conditioned, err := euclid.ApplyConditions(base, lc.Conditions, layer, bar, hist, cfg.Guard.KickImmutable, condState)
	if err != nil {
		return [model.StepsPerBar]bool{}, [model.StepsPerBar]int{}, fmt.Errorf("layer %s bar %d: %w", layer, bar, err)
	}

	var mask [model.StepsPerBar]bool
	var vel [model.StepsPerBar]int
	for s, on := range conditioned {
		mask[s] = on
		if on {
			vel[s] = lc.Velocity
		}
	}

	ghostState := rng.Derive(cfg.Seed, "drum", "ghost", string(layer), bar)
	applyGhostNotes(&mask, &vel, lc, ghostState)

	displaceState := rng.Derive(cfg.Seed, "drum", "displace", string(layer), bar)
	applyDisplacement(&mask, lc, displaceState)

	if layer == model.LayerHatC || layer == model.LayerHatO {
		if cfg.Targets.HatDensityTarget > 0 {
			var kick [model.StepsPerBar]bool
			for s := 0; s < model.StepsPerBar; s++ {
				kick[s] = hist.OnsetAt(model.LayerKick, bar, s)
			}
			target := cfg.Targets.HatDensityTarget
			if thinBias, ok := ctrl.ModulatorValue("thin_bias"); ok {
				target = clampUnit(target * (1 - thinBias))
			}
			mask = density.ClampToTarget(mask, kick, target, cfg.Targets.HatDensityTol)
			for s := range mask {
				if mask[s] && vel[s] == 0 {
					vel[s] = lc.Velocity
				}
			}
		}
	}

	return mask, vel, nil
}

// applyGhostNotes adds a low-velocity onset one step ahead of an existing
// onset with probability ghost_pre1_prob, when that step is free
// (spec.md §6 LayerConfig field ghost_pre1_prob: a groove-programming
// ghost-note embellishment).
func applyGhostNotes(mask *[model.StepsPerBar]bool, vel *[model.StepsPerBar]int, lc model.LayerConfig, state *rng.State) {
	if lc.GhostPre1Prob <= 0 {
		return
	}
	const ghostVelocityFraction = 0.5
	onsets := *mask
	for s, on := range onsets {
		if !on {
			continue
		}
		pre := ((s - 1) % model.StepsPerBar + model.StepsPerBar) % model.StepsPerBar
		if mask[pre] {
			continue
		}
		if state.Bernoulli(lc.GhostPre1Prob) {
			mask[pre] = true
			vel[pre] = clampVelocity(int(float64(lc.Velocity) * ghostVelocityFraction))
		}
	}
}

// applyDisplacement moves a downbeat onset onto step 2 with probability
// displace_into_2_prob, a common techno-hat displacement trick (spec.md
// §6 field displace_into_2_prob), when step 2 is free.
func applyDisplacement(mask *[model.StepsPerBar]bool, lc model.LayerConfig, state *rng.State) {
	if lc.DisplaceInto2Prob <= 0 || !mask[0] || mask[2] {
		return
	}
	if state.Bernoulli(lc.DisplaceInto2Prob) {
		mask[0] = false
		mask[2] = true
	}
}

// ratchetEvents subdivides an onset into ratchet_repeat equal retriggers
// within its single step, with probability ratchet_prob (spec.md §6
// field ratchet_prob/ratchet_repeat), returning the additional events
// beyond the original (the original keeps the step's full duration
// unless ratcheted, in which case durations are divided evenly).
func ratchetEvents(base model.DrumEvent, lc model.LayerConfig, state *rng.State) []model.DrumEvent {
	if lc.RatchetProb <= 0 || lc.RatchetRepeat < 2 || !state.Bernoulli(lc.RatchetProb) {
		return nil
	}
	repeats := lc.RatchetRepeat
	slice := base.DurationTicks / repeats
	if slice <= 0 {
		return nil
	}
	var extra []model.DrumEvent
	for i := 0; i < repeats; i++ {
		ev := base
		ev.RetriggerOffsetTicks = i * slice
		ev.DurationTicks = slice
		if i == 0 {
			continue // the original event already covers the first retrigger
		}
		extra = append(extra, ev)
	}
	return extra
}

func clampVelocity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return v
}

// clampUnit clamps a density-target fraction to [0,1] after thin_bias
// scaling, since ClampToTarget treats target as a fraction of StepsPerBar.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// computeBarMetrics assembles the BarMetrics record the controller reads
// (spec.md §4.5), deriving the union and hat masks from this bar's
// per-layer masks.
func computeBarMetrics(bar int, cfg *model.Config, masks map[string]model.LayerMask, microOffsets map[string][]int) model.BarMetrics {
	var all [][model.StepsPerBar]bool
	var hats [][model.StepsPerBar]bool
	for name, m := range masks {
		all = append(all, m.Onsets)
		if model.LayerName(name) == model.LayerHatC || model.LayerName(name) == model.LayerHatO {
			hats = append(hats, m.Onsets)
		}
	}
	union := metrics.UnionMask(all...)

	tms := make(map[model.LayerName]float64, len(masks))
	for name, offsets := range microOffsets {
		tms[model.LayerName(name)] = metrics.MicroMagnitudeMs(offsets, cfg.BPM, cfg.PPQ)
	}

	return model.BarMetrics{
		Bar: bar,
		E:   metrics.Entrainment(union),
		S:   metrics.Syncopation(union),
		H:   metrics.HatDensity(hats...),
		TMs: tms,
	}
}
