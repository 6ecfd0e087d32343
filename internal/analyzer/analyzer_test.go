package analyzer

import (
	"testing"

	"github.com/groovegen/groovegen/internal/model"
)

func kickEvent(bar, step int) model.DrumEvent {
	return model.DrumEvent{Layer: model.LayerKick, Bar: bar, Step: step, Note: 36, Velocity: 100, DurationTicks: 480}
}

func TestAnalyzeLabelsKickAndNeighbours(t *testing.T) {
	tb := model.Timebase{Bars: 1, StepsPerBar: model.StepsPerBar}
	events := []model.DrumEvent{kickEvent(0, 4)}
	grids := Analyze(events, tb)
	if len(grids) != 1 {
		t.Fatalf("expected 1 grid, got %d", len(grids))
	}
	g := grids[0]
	if !g.Slots[4].IsKick {
		t.Fatalf("step 4 should be labelled is_kick")
	}
	if !g.Slots[3].PreKick {
		t.Fatalf("step 3 should be labelled pre_kick (kick at step 4 = s+1)")
	}
	if !g.Slots[5].PostKick {
		t.Fatalf("step 5 should be labelled post_kick (kick at step 4 = s-1)")
	}
	if !g.Slots[0].BarStart || g.Slots[0].BarEnd {
		t.Fatalf("step 0 should be bar_start only")
	}
	if g.Slots[15].BarStart || !g.Slots[15].BarEnd {
		t.Fatalf("step 15 should be bar_end only")
	}
}

func TestAnalyzeFillZoneOnlyOnFourthBar(t *testing.T) {
	tb := model.Timebase{Bars: 4, StepsPerBar: model.StepsPerBar}
	grids := Analyze(nil, tb)
	for bar := 0; bar < 3; bar++ {
		if grids[bar].Slots[15].FillZone {
			t.Fatalf("bar %d is not the last of its 4-bar group, fill_zone should be false", bar)
		}
	}
	if !grids[3].Slots[14].FillZone || !grids[3].Slots[15].FillZone {
		t.Fatalf("bar 3's last two steps should be fill_zone")
	}
	if grids[3].Slots[13].FillZone {
		t.Fatalf("bar 3 step 13 is outside the last-2-steps fill zone")
	}
}

func TestAnalyzeHatDenseAndSparse(t *testing.T) {
	tb := model.Timebase{Bars: 1, StepsPerBar: model.StepsPerBar}
	events := []model.DrumEvent{
		{Layer: model.LayerHatC, Bar: 0, Step: 0},
		{Layer: model.LayerHatC, Bar: 0, Step: 1},
		{Layer: model.LayerHatC, Bar: 0, Step: 2},
	}
	grids := Analyze(events, tb)
	if !grids[0].Slots[1].HatDense {
		t.Fatalf("step 1 has 3 hats within +-2 window, should be hat_dense")
	}
	if !grids[0].Slots[10].HatSparse {
		t.Fatalf("step 10 has no hats nearby, should be hat_sparse")
	}
}

func TestAnalyzeIdempotentOnSameEvents(t *testing.T) {
	tb := model.Timebase{Bars: 2, StepsPerBar: model.StepsPerBar}
	events := []model.DrumEvent{kickEvent(0, 0), kickEvent(1, 8)}
	g1 := Analyze(events, tb)
	g2 := Analyze(events, tb)
	if len(g1) != len(g2) {
		t.Fatalf("grid length differs between runs")
	}
	for i := range g1 {
		if g1[i] != g2[i] {
			t.Fatalf("bar %d grid differs between identical runs", i)
		}
	}
}
