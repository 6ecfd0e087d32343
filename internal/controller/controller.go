// Package controller implements the feedback controller of spec.md §4.6:
// a per-layer step-probability vector nudged bar-by-bar toward
// configured syncopation/entrainment targets, long-horizon parameter
// modulators, and a guardrail rescue path. It is the only stateful
// component in the pipeline (spec.md §4.12); every other engine is a
// pure function of its inputs.
package controller

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/groovegen/groovegen/internal/metrics"
	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/rng"
)

// LayerState is the controller's per-layer mutable state: the current
// step-probability vector plus the one-bar "straighten" flag rescue sets.
type LayerState struct {
	P          [model.StepsPerBar]float64
	straighten bool // consumed by the next Straighten call, then cleared
	rotReset   bool
}

// ModulatorState is the controller's per-modulator mutable state
// (spec.md §4.6 step 3).
type ModulatorState struct {
	Cfg   model.ModulatorConfig
	Value float64
	walk  *rng.State
}

// Controller owns every layer's step-probability vector and every
// configured modulator's current value, threaded bar by bar by the drum
// engine (spec.md §4.12: MEASURE → BIAS → MODULATE → GUARD → EMIT).
type Controller struct {
	cfg        *model.Config
	logger     *slog.Logger
	layers     map[string]*LayerState
	modulators []*ModulatorState
	csv        []string
}

// New builds a Controller for cfg, seeding each modulator's random-walk
// sub-generator from (seed, "controller", param_path) so modulator
// trajectories are independent of everything else in the pipeline.
func New(cfg *model.Config, seed int64, logger *slog.Logger) (*Controller, error) {
	c := &Controller{
		cfg:    cfg,
		logger: logger,
		layers: make(map[string]*LayerState, len(cfg.Layers)),
	}
	for name := range cfg.Layers {
		c.layers[name] = &LayerState{}
	}
	for _, m := range cfg.Modulators {
		if !model.IsRecognisedParamPath(m.ParamPath, cfg.Layers) {
			return nil, fmt.Errorf("%w: unknown modulator param_path %q", model.ErrReferenceMissing, m.ParamPath)
		}
		mid := float64(m.MinVal+m.MaxVal) / 2
		c.modulators = append(c.modulators, &ModulatorState{
			Cfg:   m,
			Value: mid,
			walk:  rng.Derive(seed, "controller", m.ParamPath),
		})
	}
	return c, nil
}

// InitLayerProbability seeds a layer's probability vector from the
// deterministic skeleton mask computed for bar 0, so the controller never
// perturbs the very first bar before it has any metrics to react to.
func (c *Controller) InitLayerProbability(layer string, mask [model.StepsPerBar]bool) {
	st, ok := c.layers[layer]
	if !ok {
		return
	}
	for i, on := range mask {
		if on {
			st.P[i] = 1.0
		} else {
			st.P[i] = 0.0
		}
	}
}

// Probability returns the layer's current step-probability vector. The
// drumengine samples each step against it (spec.md §4.6: "hand updated
// probabilities to next bar's Step Core").
func (c *Controller) Probability(layer string) [model.StepsPerBar]float64 {
	if st, ok := c.layers[layer]; ok {
		return st.P
	}
	var neutral [model.StepsPerBar]float64
	for i := range neutral {
		neutral[i] = 1.0
	}
	return neutral
}

// Straighten reports whether layer's swing should be forced to 0.5 for
// the bar about to be generated (one-shot rescue effect), consuming the
// flag.
func (c *Controller) Straighten(layer string) bool {
	st, ok := c.layers[layer]
	if !ok {
		return false
	}
	v := st.straighten
	st.straighten = false
	return v
}

// RotationReset reports whether layer's rotation accumulator should be
// treated as zero for the bar about to be generated, consuming the flag.
func (c *Controller) RotationReset(layer string) bool {
	st, ok := c.layers[layer]
	if !ok {
		return false
	}
	v := st.rotReset
	st.rotReset = false
	return v
}

// ModulatorValue returns the current value of the modulator targeting
// paramPath, or ok=false if no modulator targets it.
func (c *Controller) ModulatorValue(paramPath string) (float64, bool) {
	for _, m := range c.modulators {
		if m.Cfg.ParamPath == paramPath {
			return m.Value, true
		}
	}
	return 0, false
}

// Step runs one bar's MEASURE → BIAS → MODULATE → GUARD cycle using the
// metrics measured from the bar that was just emitted, updating state for
// the bar about to be generated next (spec.md §4.6, §4.12). With
// cfg.Guard.KickImmutable set, the kick layer is excluded from bias and
// guard, per spec.md §4.2/§4.6.
func (c *Controller) Step(nextBar int, prev model.BarMetrics, diag *model.Diagnostics) {
	c.bias(prev)
	c.modulate(nextBar)
	rescued := c.guard(prev, diag, nextBar)
	c.logCSV(nextBar-1, prev, rescued)
}

// bias implements the sync-biased Markov update of spec.md §4.6 step 2:
// when S is outside [S_low, S_high], nudge every mutable layer's
// probabilities toward either the metric-strength profile (less
// syncopated) or an offbeat-favouring profile (more syncopated), bounded
// by max_delta_per_bar.
func (c *Controller) bias(prev model.BarMetrics) {
	t := c.cfg.Targets
	maxDelta := maxDeltaPerBar(c.cfg.Modulators)
	for name, st := range c.layers {
		if c.isKickImmutable(name) {
			continue
		}
		for i := range st.P {
			var target float64
			switch {
			case prev.S < t.SLow:
				target = 0.5 * (st.P[i] + metrics.StepWeight(i))
			case prev.S > t.SHigh:
				target = 0.5 * (st.P[i] + offbeatBias(i))
			default:
				continue
			}
			st.P[i] = stepToward(st.P[i], target, maxDelta)
		}
	}
}

// offbeatBias is the "offbeat-favouring distribution" of spec.md §4.6
// step 2: the complement of the metric-strength profile, so weak
// positions pull probability up and strong positions pull it down.
func offbeatBias(step int) float64 {
	return 1 - metrics.StepWeight(step)
}

func stepToward(current, target, maxDelta float64) float64 {
	delta := target - current
	if maxDelta > 0 {
		if delta > maxDelta {
			delta = maxDelta
		}
		if delta < -maxDelta {
			delta = -maxDelta
		}
	}
	return clamp01(current + delta)
}

func maxDeltaPerBar(mods []model.ModulatorConfig) float64 {
	// The bias step shares a sensible default cap with the modulators'
	// own max_delta_per_bar when configured; spec.md §4.6 ties both to
	// the same "max_delta_per_bar" concept rather than defining two
	// independent constants.
	best := 0.15
	for _, m := range mods {
		if m.MaxDeltaPerBar > 0 && m.MaxDeltaPerBar < best {
			best = m.MaxDeltaPerBar
		}
	}
	return best
}

// modulate advances every configured long-horizon modulator by one bar
// (spec.md §4.6 step 3): random_walk takes a bounded random step, ou
// relaxes toward the configured midpoint, sine follows a phase-locked
// sinusoid. All are clipped to [min_val,max_val] with per-bar delta
// bounded by max_delta_per_bar.
func (c *Controller) modulate(bar int) {
	for _, m := range c.modulators {
		prev := m.Value
		var next float64
		mid := (m.Cfg.MinVal + m.Cfg.MaxVal) / 2
		switch m.Cfg.Mode {
		case model.ModulatorRandomWalk:
			step := m.Cfg.StepPerBar
			if step <= 0 {
				step = (m.Cfg.MaxVal - m.Cfg.MinVal) * 0.05
			}
			delta := (m.walk.Float64()*2 - 1) * step
			next = prev + delta
		case model.ModulatorOU:
			tau := m.Cfg.Tau
			if tau <= 0 {
				tau = 8
			}
			next = prev + (mid-prev)/tau
		case model.ModulatorSine:
			step := m.Cfg.StepPerBar
			if step <= 0 {
				step = 1
			}
			amp := (m.Cfg.MaxVal - m.Cfg.MinVal) / 2
			next = mid + amp*math.Sin(float64(bar)*step+m.Cfg.Phase)
		default:
			next = prev
		}
		if m.Cfg.MaxDeltaPerBar > 0 {
			d := next - prev
			if d > m.Cfg.MaxDeltaPerBar {
				d = m.Cfg.MaxDeltaPerBar
			}
			if d < -m.Cfg.MaxDeltaPerBar {
				d = -m.Cfg.MaxDeltaPerBar
			}
			next = prev + d
		}
		m.Value = clampRange(next, m.Cfg.MinVal, m.Cfg.MaxVal)
	}
}

// guard implements the continuity guardrail of spec.md §4.6 step 4: if E
// falls below guard.min_E, rescue halves offbeat probabilities, resets
// rotation accumulators and straightens swing for one bar. kick_immutable
// layers are never touched.
func (c *Controller) guard(prev model.BarMetrics, diag *model.Diagnostics, nextBar int) bool {
	if c.cfg.Guard.MinE <= 0 || prev.E >= c.cfg.Guard.MinE {
		return false
	}
	for name, st := range c.layers {
		if c.isKickImmutable(name) {
			continue
		}
		for i := range st.P {
			if !metrics.IsStrongStep(i) {
				st.P[i] *= 0.5
			}
		}
		st.straighten = true
		st.rotReset = true
	}
	if diag != nil {
		diag.AddRescue(nextBar, prev.E)
	}
	if c.logger != nil {
		c.logger.Warn("controller rescue triggered", "bar", nextBar, "prev_bar_E", prev.E, "min_E", c.cfg.Guard.MinE)
	}
	return true
}

func (c *Controller) isKickImmutable(layer string) bool {
	return c.cfg.Guard.KickImmutable && model.LayerName(layer) == model.LayerKick
}

// logCSV appends a best-effort per-bar diagnostics row: (bar, E, S,
// H_density, entropy) per spec.md §4.6 step 5. Logging failures never
// propagate; the row is simply held in memory for an external writer.
func (c *Controller) logCSV(bar int, m model.BarMetrics, rescued bool) {
	entropy := 0.0
	n := 0
	for _, st := range c.layers {
		entropy += metrics.Entropy(st.P)
		n++
	}
	if n > 0 {
		entropy /= float64(n)
	}
	c.csv = append(c.csv, fmt.Sprintf("%d,%.4f,%.4f,%.4f,%.4f,%t", bar, m.E, m.S, m.H, entropy, rescued))
}

// CSVRows returns the accumulated per-bar diagnostics rows, header first.
func (c *Controller) CSVRows() []string {
	rows := make([]string, 0, len(c.csv)+1)
	rows = append(rows, "bar,E,S,H_density,entropy,rescued")
	rows = append(rows, c.csv...)
	return rows
}

func (c *Controller) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "controller(layers=%d, modulators=%d)", len(c.layers), len(c.modulators))
	return b.String()
}

func clamp01(v float64) float64 { return clampRange(v, 0, 1) }

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
