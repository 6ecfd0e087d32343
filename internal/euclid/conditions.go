package euclid

import (
	"fmt"

	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/rng"
	mapset "github.com/deckarep/golang-set/v2"
)

// History answers "did layer l have an onset at step s of bar b?" for
// every bar already emitted. The PRE/NOT_PRE conditions of spec.md §4.2
// read one bar back through this interface; the caller (drumengine) owns
// the buffers and passes a read-only view in.
type History interface {
	OnsetAt(layer model.LayerName, bar, step int) bool
}

// ApplyConditions filters mask according to layer's condition stack
// (spec.md §4.2). Conditions compose left-to-right: an onset survives iff
// every condition in the stack passes. When kickImmutable is true and
// layer is the kick layer, the stack is skipped entirely (spec.md §4.2:
// "when guard.kick_immutable is true, conditions affecting the kick layer
// are skipped").
func ApplyConditions(
	mask []bool,
	conditions []model.Condition,
	layer model.LayerName,
	bar int,
	hist History,
	kickImmutable bool,
	state *rng.State,
) ([]bool, error) {
	if kickImmutable && layer == model.LayerKick {
		return mask, nil
	}

	out := make([]bool, len(mask))
	copy(out, mask)

	for _, cond := range conditions {
		if err := applyOne(out, cond, layer, bar, hist, state); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyOne(mask []bool, cond model.Condition, layer model.LayerName, bar int, hist History, state *rng.State) error {
	switch cond.Type {
	case model.CondProb:
		for s := range mask {
			if mask[s] && !state.Bernoulli(cond.Prob) {
				mask[s] = false
			}
		}
	case model.CondPre:
		keepIfPre(mask, model.LayerName(cond.Layer), bar, hist, true)
	case model.CondNotPre:
		keepIfPre(mask, model.LayerName(cond.Layer), bar, hist, false)
	case model.CondFill:
		if !isFillBar(bar) {
			clearAll(mask)
		}
	case model.CondEveryN:
		if cond.N <= 0 {
			return fmt.Errorf("%w: EVERY_N requires n > 0", model.ErrInvalidConfiguration)
		}
		if ((bar + cond.Offset) % cond.N) != 0 {
			clearAll(mask)
		}
	default:
		return fmt.Errorf("%w: unknown condition type %q", model.ErrReferenceMissing, cond.Type)
	}
	return nil
}

// keepIfPre removes every onset whose same step in the prior bar did not
// (want==true) / did (want==false) have an onset on otherLayer.
func keepIfPre(mask []bool, otherLayer model.LayerName, bar int, hist History, want bool) {
	// bar==0 has no prior bar: PRE has nothing to confirm (everything
	// clears), NOT_PRE has nothing to veto (everything survives) — both
	// fall out of the had=false comparison below.
	for s := range mask {
		if !mask[s] {
			continue
		}
		had := bar > 0 && hist.OnsetAt(otherLayer, bar-1, s)
		if had != want {
			mask[s] = false
		}
	}
}

func isFillBar(bar int) bool {
	return (bar+1)%4 == 0
}

func clearAll(mask []bool) {
	for i := range mask {
		mask[i] = false
	}
}

// StepSet converts a mask to a set of onset step indices. Nothing in this
// module calls it: ApplyConditions and micro.ApplyChokeGroups scan the
// boolean masks directly.
func StepSet(mask []bool) mapset.Set[int] {
	set := mapset.NewThreadUnsafeSet[int]()
	for s, on := range mask {
		if on {
			set.Add(s)
		}
	}
	return set
}
