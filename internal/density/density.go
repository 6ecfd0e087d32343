// Package density implements the post-condition density clamp and the
// post-schedule velocity accent pass of spec.md §4.4.
package density

import (
	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/rng"
)

// localWeight is the "sum of (1 - distance_to_kick_step/16)" void-bias
// weight of spec.md §4.4: steps near a kick onset carry high weight
// (dense-feeling), steps far from every kick carry low weight and are
// preferred by the thinning/filling bias.
func localWeight(step int, kick [model.StepsPerBar]bool) float64 {
	sum := 0.0
	for k, on := range kick {
		if !on {
			continue
		}
		d := step - k
		if d < 0 {
			d = -d
		}
		if other := model.StepsPerBar - d; other < d {
			d = other
		}
		sum += 1 - float64(d)/model.StepsPerBar
	}
	return sum
}

// ClampToTarget adjusts mask so its onset count falls within
// [round(target*16)-tol16, round(target*16)+tol16] (spec.md §4.4),
// removing or adding onsets chosen by ascending local weight in both passes
// (the "void bias" that prefers low-weight steps — farthest from any
// kick — when thinning, and prefers those same low-weight steps when
// filling back in, so added onsets land in genuine gaps rather than
// doubling up near existing hits).
func ClampToTarget(mask [model.StepsPerBar]bool, kick [model.StepsPerBar]bool, target, tol float64) [model.StepsPerBar]bool {
	targetCount := roundToInt(target * model.StepsPerBar)
	tolCount := roundToInt(tol * model.StepsPerBar)
	lo := targetCount - tolCount
	hi := targetCount + tolCount
	if lo < 0 {
		lo = 0
	}
	if hi > model.StepsPerBar {
		hi = model.StepsPerBar
	}

	count := 0
	for _, on := range mask {
		if on {
			count++
		}
	}

	out := mask
	if count > hi {
		removeLowestWeight(&out, kick, count-hi)
	} else if count < lo {
		addLowestWeight(&out, kick, lo-count)
	}
	return out
}

// weightedStep pairs a step index with its void-bias weight so the
// remove/add passes can sort candidates by weight.
type weightedStep struct {
	step   int
	weight float64
}

func removeLowestWeight(mask *[model.StepsPerBar]bool, kick [model.StepsPerBar]bool, n int) {
	var onsets []weightedStep
	for s, on := range mask {
		if on {
			onsets = append(onsets, weightedStep{s, localWeight(s, kick)})
		}
	}
	sortByWeightAsc(onsets)
	for i := 0; i < n && i < len(onsets); i++ {
		mask[onsets[i].step] = false
	}
}

func addLowestWeight(mask *[model.StepsPerBar]bool, kick [model.StepsPerBar]bool, n int) {
	var gaps []weightedStep
	for s, on := range mask {
		if !on {
			gaps = append(gaps, weightedStep{s, localWeight(s, kick)})
		}
	}
	sortByWeightAsc(gaps)
	for i := 0; i < n && i < len(gaps); i++ {
		mask[gaps[i].step] = true
	}
}

func sortByWeightAsc(c []weightedStep) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && (c[j].weight < c[j-1].weight || (c[j].weight == c[j-1].weight && c[j].step < c[j-1].step)); j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

// eligibleForAccent reports whether the accent pass may accent an onset at
// step under the given pattern mode, per spec.md §4.4 ("pattern mode (random,
// offbeat_focused, downbeat_focused)").
func eligibleForAccent(mode string, step int) bool {
	switch mode {
	case "offbeat_focused":
		return step%2 == 1
	case "downbeat_focused":
		return step%4 == 0
	default:
		return true
	}
}

// ApplyAccent multiplies the base velocity of each surviving onset by an
// accent gain drawn with probability accent.prob, restricted to the
// steps the configured pattern mode favours (spec.md §4.4). Velocities
// are clamped to the valid MIDI range.
func ApplyAccent(mask [model.StepsPerBar]bool, baseVel [model.StepsPerBar]int, cfg model.AccentConfig, state *rng.State) [model.StepsPerBar]int {
	const accentGain = 1.25
	out := baseVel
	for s, on := range mask {
		if !on {
			continue
		}
		if !eligibleForAccent(cfg.Mode, s) {
			continue
		}
		if state.Bernoulli(cfg.Prob) {
			out[s] = clampVelocity(int(float64(out[s]) * accentGain))
		}
	}
	return out
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

func roundToInt(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}
