package drumengine

import (
	"testing"

	"github.com/groovegen/groovegen/internal/model"
)

func metronomeConfig() *model.Config {
	return &model.Config{
		Mode: model.ModeDrumsOnly,
		Timebase: model.Timebase{
			BPM: 120, PPQ: 1920, Bars: 2, StepsPerBar: model.StepsPerBar,
		},
		Seed: 42,
		Layers: map[string]model.LayerConfig{
			"kick": {Name: model.LayerKick, Steps: 16, Fills: 4, Rot: 0, Note: 36, Velocity: 100, SwingPercent: 0.5},
		},
	}
}

func TestMetronomeBaselineFourOnFloorEveryBar(t *testing.T) {
	events, _, err := Generate(metronomeConfig(), 42, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(events) != 8 {
		t.Fatalf("expected 8 kick events across 2 bars of 4, got %d", len(events))
	}
	for _, e := range events {
		if e.Step != 0 && e.Step != 4 && e.Step != 8 && e.Step != 12 {
			t.Fatalf("unexpected kick step %d, expected four-on-the-floor at {0,4,8,12}", e.Step)
		}
		if e.MicroOffsetTicks != 0 {
			t.Fatalf("swing=0.5 and no beat bins should produce zero micro offset, got %d", e.MicroOffsetTicks)
		}
		if e.Velocity != 100 {
			t.Fatalf("velocity should be untouched at 100, got %d", e.Velocity)
		}
	}
}

func TestEveryDrumEventRespectsStepAndMicroCapInvariants(t *testing.T) {
	cfg := metronomeConfig()
	cfg.Layers["hat_c"] = model.LayerConfig{
		Name: model.LayerHatC, Steps: 16, Fills: 12, Note: 42, Velocity: 80,
		SwingPercent: 0.58, BeatBinsMs: []float64{-5, 0, 5}, BeatBinsProbs: []float64{0.3, 0.4, 0.3},
		BeatBinCapMs: 10, MicroCapTicks: 40,
	}
	events, _, err := Generate(cfg, 7, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, e := range events {
		if e.Step < 0 || e.Step >= model.StepsPerBar {
			t.Fatalf("step %d out of range", e.Step)
		}
		cap := cfg.Layers[string(e.Layer)].MicroCapTicks
		if cap > 0 {
			off := e.MicroOffsetTicks
			if off < 0 {
				off = -off
			}
			if off > cap {
				t.Fatalf("layer %s micro offset %d exceeds cap %d", e.Layer, e.MicroOffsetTicks, cap)
			}
		}
	}
}

func TestKickImmutableUnchangedAcrossBars(t *testing.T) {
	cfg := metronomeConfig()
	cfg.Bars = 8
	cfg.Guard.KickImmutable = true
	cfg.Guard.MinE = 0.9 // force rescue attempts most bars
	cfg.Layers["hat_c"] = model.LayerConfig{
		Name: model.LayerHatC, Steps: 16, Fills: 3, Note: 42, Velocity: 70,
	}

	events, _, err := Generate(cfg, 99, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	kickSteps := map[int][]int{} // bar -> steps
	for _, e := range events {
		if e.Layer == model.LayerKick {
			kickSteps[e.Bar] = append(kickSteps[e.Bar], e.Step)
		}
	}
	want := []int{0, 4, 8, 12}
	for bar := 0; bar < cfg.Bars; bar++ {
		got := kickSteps[bar]
		if len(got) != len(want) {
			t.Fatalf("bar %d: kick step count = %d, want %d", bar, len(got), len(want))
		}
		for i, s := range got {
			if s != want[i] {
				t.Fatalf("bar %d: kick steps = %v, want %v (kick_immutable must hold)", bar, got, want)
			}
		}
	}
}

func TestDeterministicReplay(t *testing.T) {
	cfg := metronomeConfig()
	cfg.Layers["hat_c"] = model.LayerConfig{Name: model.LayerHatC, Steps: 16, Fills: 11, Note: 42, Velocity: 70, RatchetProb: 0.2, RatchetRepeat: 2}

	e1, m1, err := Generate(cfg, 123, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	e2, m2, err := Generate(cfg, 123, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(e1) != len(e2) {
		t.Fatalf("replay produced different event counts: %d vs %d", len(e1), len(e2))
	}
	for i := range e1 {
		if e1[i] != e2[i] {
			t.Fatalf("replay diverged at event %d: %+v vs %+v", i, e1[i], e2[i])
		}
	}
	for i := range m1 {
		if m1[i].E != m2[i].E || m1[i].S != m2[i].S || m1[i].H != m2[i].H {
			t.Fatalf("replay metrics diverged at bar %d", i)
		}
	}
}
