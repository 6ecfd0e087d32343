package bass

import (
	"testing"

	"github.com/groovegen/groovegen/internal/model"
)

func flatGrid(bar int) model.SlotGrid {
	g := model.SlotGrid{Bar: bar}
	for s := 0; s < model.StepsPerBar; s++ {
		g.Slots[s] = model.SlotLabel{BarStart: s == 0, BarEnd: s == model.StepsPerBar-1}
	}
	g.Slots[0].IsKick = true
	g.Slots[8].IsKick = true
	g.Slots[4].SnareZone = true
	g.Slots[12].SnareZone = true
	return g
}

func baseConfig() *model.Config {
	return &model.Config{
		Seed: 7,
		Timebase: model.Timebase{BPM: 120, PPQ: 1920, Bars: 4, StepsPerBar: model.StepsPerBar},
		Bass: model.BassConfig{
			Enabled:  true,
			RootNote: 36,
			FixedMode: model.BassPocketGroove,
		},
	}
}

func TestGenerateRespectsRegisterBounds(t *testing.T) {
	cfg := baseConfig()
	grids := []model.SlotGrid{flatGrid(0), flatGrid(1), flatGrid(2), flatGrid(3)}
	notes, err := Generate(cfg, grids, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	profile := DefaultModeProfiles()[model.BassPocketGroove]
	if len(notes) == 0 {
		t.Fatalf("expected some bass notes")
	}
	for _, n := range notes {
		if n.Pitch < profile.RegisterLo || n.Pitch > profile.RegisterHi {
			t.Fatalf("pitch %d out of register [%d,%d]", n.Pitch, profile.RegisterLo, profile.RegisterHi)
		}
	}
}

func TestGenerateAvoidsKickOverlapWhenForbidden(t *testing.T) {
	cfg := baseConfig()
	grids := []model.SlotGrid{flatGrid(0)}
	notes, err := Generate(cfg, grids, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, n := range notes {
		if n.Step == 8 { // kick step, not bar_start, pocket_groove forbids overlap
			t.Fatalf("pocket_groove note landed on a forbidden kick step (non bar-start)")
		}
	}
}

func TestGenerateDisabledReturnsNothing(t *testing.T) {
	cfg := baseConfig()
	cfg.Bass.Enabled = false
	notes, err := Generate(cfg, []model.SlotGrid{flatGrid(0)}, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if notes != nil {
		t.Fatalf("expected nil notes when bass disabled, got %v", notes)
	}
}

func TestGenerateDeterministicReplay(t *testing.T) {
	cfg := baseConfig()
	grids := []model.SlotGrid{flatGrid(0), flatGrid(1), flatGrid(2)}
	n1, err := Generate(cfg, grids, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	n2, err := Generate(cfg, grids, nil, &model.Diagnostics{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(n1) != len(n2) {
		t.Fatalf("replay note count differs: %d vs %d", len(n1), len(n2))
	}
	for i := range n1 {
		if n1[i] != n2[i] {
			t.Fatalf("replay diverged at note %d: %+v vs %+v", i, n1[i], n2[i])
		}
	}
}

func TestCanPlaceEnforcesMinGap(t *testing.T) {
	profile := model.ModeProfile{MinInterNoteGapSteps: 4}
	var occupied [model.StepsPerBar]bool
	occupied[0] = true
	grid := flatGrid(0)
	if canPlace(2, occupied, grid, profile) {
		t.Fatalf("step 2 is within min-gap 4 of occupied step 0, should be rejected")
	}
	if !canPlace(4, occupied, grid, profile) {
		t.Fatalf("step 4 is exactly min-gap away, should be accepted")
	}
}

func TestCanPlaceEnforcesMaxConsecutiveAtGapOne(t *testing.T) {
	profile := model.ModeProfile{MinInterNoteGapSteps: 1, MaxConsecutiveNotes: 2}
	var occupied [model.StepsPerBar]bool
	occupied[0] = true
	occupied[1] = true
	grid := flatGrid(0)
	if canPlace(2, occupied, grid, profile) {
		t.Fatalf("placing step 2 would make a run of 3, exceeding MaxConsecutiveNotes=2")
	}
}

func TestCircularDistWraps(t *testing.T) {
	if d := circularDist(0, 15); d != 1 {
		t.Fatalf("circularDist(0,15) = %d, want 1", d)
	}
	if d := circularDist(2, 10); d != 8 {
		t.Fatalf("circularDist(2,10) = %d, want 8", d)
	}
}
