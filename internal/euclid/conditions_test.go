package euclid

import (
	"testing"

	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/rng"
)

type fakeHistory map[int][16]bool // bar -> onsets

func (h fakeHistory) OnsetAt(layer model.LayerName, bar, step int) bool {
	row, ok := h[bar]
	if !ok {
		return false
	}
	return row[step]
}

func TestApplyConditionsProbDeterministic(t *testing.T) {
	mask := Bjorklund(16, 8)
	conds := []model.Condition{{Type: model.CondProb, Prob: 0.5}}
	a, err := ApplyConditions(mask, conds, model.LayerHatC, 0, fakeHistory{}, false, rng.Derive(1, "a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ApplyConditions(mask, conds, model.LayerHatC, 0, fakeHistory{}, false, rng.Derive(1, "a"))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("PROB condition not deterministic at step %d", i)
		}
	}
}

func TestKickImmutableSkipsConditions(t *testing.T) {
	mask := Bjorklund(16, 4)
	conds := []model.Condition{{Type: model.CondFill}}
	out, err := ApplyConditions(mask, conds, model.LayerKick, 0, fakeHistory{}, true, rng.Derive(1, "k"))
	if err != nil {
		t.Fatal(err)
	}
	if countOnsets(out) != countOnsets(mask) {
		t.Fatalf("kick_immutable should skip conditions, got %v from %v", out, mask)
	}
}

func TestFillConditionOnlyKeepsLastBarOfPhrase(t *testing.T) {
	mask := []bool{true, true, true, true}
	for _, tc := range []struct {
		bar  int
		want int
	}{
		{0, 0}, {1, 0}, {2, 0}, {3, 4}, {4, 0}, {7, 4},
	} {
		out, err := ApplyConditions(mask, []model.Condition{{Type: model.CondFill}}, model.LayerSnare, tc.bar, fakeHistory{}, false, rng.Derive(1, "f"))
		if err != nil {
			t.Fatal(err)
		}
		if got := countOnsets(out); got != tc.want {
			t.Fatalf("bar %d: expected %d onsets, got %d", tc.bar, tc.want, got)
		}
	}
}

func TestEveryNCondition(t *testing.T) {
	mask := []bool{true, true}
	cond := model.Condition{Type: model.CondEveryN, N: 2, Offset: 0}
	for bar, want := range map[int]int{0: 2, 1: 0, 2: 2, 3: 0} {
		out, err := ApplyConditions(mask, []model.Condition{cond}, model.LayerClap, bar, fakeHistory{}, false, rng.Derive(1, "e"))
		if err != nil {
			t.Fatal(err)
		}
		if got := countOnsets(out); got != want {
			t.Fatalf("bar %d: expected %d, got %d", bar, want, got)
		}
	}
}

func TestPreConditionRequiresPriorBarOnset(t *testing.T) {
	mask := []bool{true, true, false, false}
	hist := fakeHistory{0: [16]bool{0: true}}
	cond := model.Condition{Type: model.CondPre, Layer: string(model.LayerKick)}
	out, err := ApplyConditions(mask, []model.Condition{cond}, model.LayerHatC, 1, hist, false, rng.Derive(1, "p"))
	if err != nil {
		t.Fatal(err)
	}
	if !out[0] || out[1] {
		t.Fatalf("PRE should keep step 0 (kick present prior bar) and drop step 1, got %v", out)
	}
}

func TestNotPreConditionNegatesPre(t *testing.T) {
	mask := []bool{true, true, false, false}
	hist := fakeHistory{0: [16]bool{0: true}}
	cond := model.Condition{Type: model.CondNotPre, Layer: string(model.LayerKick)}
	out, err := ApplyConditions(mask, []model.Condition{cond}, model.LayerHatC, 1, hist, false, rng.Derive(1, "np"))
	if err != nil {
		t.Fatal(err)
	}
	if out[0] || !out[1] {
		t.Fatalf("NOT_PRE should drop step 0 and keep step 1, got %v", out)
	}
}

func TestUnknownConditionIsReferenceMissing(t *testing.T) {
	mask := []bool{true}
	_, err := ApplyConditions(mask, []model.Condition{{Type: "BOGUS"}}, model.LayerSnare, 0, fakeHistory{}, false, rng.Derive(1, "u"))
	if err == nil {
		t.Fatal("expected error for unknown condition type")
	}
}
