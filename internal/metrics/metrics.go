// Package metrics computes the per-bar scoring values the feedback
// controller reads: entrainment (E), syncopation (S), hat density (H) and
// per-layer micro-timing magnitude (T) (spec.md §4.5). Every function here
// is a pure read of already-frozen masks; nothing in this package mutates
// pipeline state.
package metrics

import (
	"math"

	"github.com/groovegen/groovegen/internal/model"
)

// stepWeights is the standard metric-hierarchy weighting for a 16-step bar
// in 4/4: the downbeat is strongest, the other quarter-note beats next,
// then 8th-note offbeats, then 16th-note offbeats. Used both to classify
// strong/weak positions for syncopation and as weight_strong(i) in the
// controller's Markov bias (spec.md §4.6).
var stepWeights = [model.StepsPerBar]float64{
	1.00, 0.25, 0.50, 0.25,
	0.80, 0.25, 0.50, 0.25,
	0.90, 0.25, 0.50, 0.25,
	0.80, 0.25, 0.50, 0.25,
}

// StepWeight returns the metric strength of step s, in [0,1]. This is
// weight_strong(i) of spec.md §4.6.
func StepWeight(s int) float64 {
	return stepWeights[((s%model.StepsPerBar)+model.StepsPerBar)%model.StepsPerBar]
}

// strongThreshold separates "strong" from "weak" step positions for the
// syncopation measure below.
const strongThreshold = 0.5

// IsStrongStep reports whether s is a metrically strong position.
func IsStrongStep(s int) bool {
	return StepWeight(s) >= strongThreshold
}

// UnionMask ORs the onset flags of every mask in layers together, giving
// the combined rhythmic skeleton the bar-level metrics are computed over.
func UnionMask(layers ...[model.StepsPerBar]bool) [model.StepsPerBar]bool {
	var out [model.StepsPerBar]bool
	for _, l := range layers {
		for i, on := range l {
			if on {
				out[i] = true
			}
		}
	}
	return out
}

// Entrainment computes E: the normalized autocorrelation of the union
// onset mask at a lag of one quarter note (4 steps), per spec.md §4.5.
// Normalization divides by the zero-lag value (the total onset count) so
// E sits in [0,1]; a bar with no onsets has no pulse to entrain to and is
// defined as 0.
func Entrainment(union [model.StepsPerBar]bool) float64 {
	total := 0
	for _, on := range union {
		if on {
			total++
		}
	}
	if total == 0 {
		return 0
	}
	const lag = 4
	matches := 0
	for i := 0; i < model.StepsPerBar; i++ {
		if union[i] && union[(i+lag)%model.StepsPerBar] {
			matches++
		}
	}
	return float64(matches) / float64(total)
}

// Syncopation computes S: the number of onsets on weak metric positions
// minus the number on strong positions (IsStrongStep), divided by the
// onset count and rescaled to [0,1] (spec.md §4.5). Each onset counts
// once; the step weights do not scale its contribution. A
// silent bar is neither syncopated nor square; it is defined as neutral
// (0.5).
func Syncopation(union [model.StepsPerBar]bool) float64 {
	total := 0
	weak := 0
	strong := 0
	for i, on := range union {
		if !on {
			continue
		}
		total++
		if IsStrongStep(i) {
			strong++
		} else {
			weak++
		}
	}
	if total == 0 {
		return 0.5
	}
	raw := float64(weak-strong) / float64(total) // in [-1, 1]
	return (raw + 1) / 2
}

// HatDensity computes H: the fraction of 16th-note steps carrying any hat
// onset, across every hat-family mask passed in (closed + open hats
// share the one H metric per spec.md §4.5).
func HatDensity(hatLayers ...[model.StepsPerBar]bool) float64 {
	union := UnionMask(hatLayers...)
	count := 0
	for _, on := range union {
		if on {
			count++
		}
	}
	return float64(count) / float64(model.StepsPerBar)
}

// MicroMagnitudeMs averages the absolute micro-timing offset (in
// milliseconds) of a layer's onsets in one bar: T_ms of spec.md §4.5.
// An onset-free layer contributes 0 (nothing to average).
func MicroMagnitudeMs(offsetTicks []int, bpm float64, ppq int) float64 {
	if len(offsetTicks) == 0 {
		return 0
	}
	msPerQuarter := 60000.0 / bpm
	ticksToMs := msPerQuarter / float64(ppq)
	sum := 0.0
	for _, t := range offsetTicks {
		sum += math.Abs(float64(t)) * ticksToMs
	}
	return sum / float64(len(offsetTicks))
}

// Entropy computes the mean per-step Bernoulli entropy (in bits) of a
// per-step probability vector, used only for the controller's
// best-effort CSV diagnostics (spec.md §4.6 step 5) as a rough measure of
// how undecided the current step probabilities are.
func Entropy(p [model.StepsPerBar]float64) float64 {
	h := 0.0
	for _, v := range p {
		if v <= 0 || v >= 1 {
			continue
		}
		h -= v*math.Log2(v) + (1-v)*math.Log2(1-v)
	}
	return h / model.StepsPerBar
}
