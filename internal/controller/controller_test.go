package controller

import (
	"testing"

	"github.com/groovegen/groovegen/internal/model"
)

func testConfig() *model.Config {
	return &model.Config{
		Layers: map[string]model.LayerConfig{
			"kick":  {},
			"hat_c": {},
		},
		Targets: model.Targets{SLow: 0.3, SHigh: 0.7},
		Guard:   model.Guard{MinE: 0.7, KickImmutable: true},
		Modulators: []model.ModulatorConfig{
			{ParamPath: "thin_bias", Mode: model.ModulatorOU, MinVal: 0, MaxVal: 1, Tau: 4, MaxDeltaPerBar: 0.2},
		},
	}
}

func TestNewRejectsUnknownParamPath(t *testing.T) {
	cfg := testConfig()
	cfg.Modulators = append(cfg.Modulators, model.ModulatorConfig{ParamPath: "nonsense.path"})
	if _, err := New(cfg, 1, nil); err == nil {
		t.Fatalf("expected error for unknown param_path")
	}
}

func TestGuardRescueSkipsKickImmutable(t *testing.T) {
	cfg := testConfig()
	c, err := New(cfg, 1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var full [model.StepsPerBar]bool
	for i := range full {
		full[i] = true
	}
	c.InitLayerProbability("kick", full)
	c.InitLayerProbability("hat_c", full)

	diag := &model.Diagnostics{}
	c.Step(1, model.BarMetrics{E: 0.1, S: 0.5}, diag)

	if len(diag.RescueBars) != 1 {
		t.Fatalf("expected one rescue bar recorded, got %d", len(diag.RescueBars))
	}
	kickP := c.Probability("kick")
	for i, v := range kickP {
		if v != 1.0 {
			t.Fatalf("kick step %d probability changed to %v, kick_immutable must be untouched", i, v)
		}
	}
	hatP := c.Probability("hat_c")
	if hatP[1] >= 1.0 {
		t.Fatalf("hat weak step should have been halved by rescue, got %v", hatP[1])
	}
	if !c.Straighten("hat_c") {
		t.Fatalf("expected hat_c to be flagged for one-bar swing straighten after rescue")
	}
	if c.Straighten("hat_c") {
		t.Fatalf("Straighten flag should be consumed after one read")
	}
}

func TestBiasMovesTowardStrengthWhenUndersyncopated(t *testing.T) {
	cfg := testConfig()
	c, _ := New(cfg, 1, nil)
	var empty [model.StepsPerBar]bool
	c.InitLayerProbability("hat_c", empty)

	c.Step(1, model.BarMetrics{E: 0.9, S: 0.1}, nil) // S < SLow=0.3

	p := c.Probability("hat_c")
	if p[0] <= 0 {
		t.Fatalf("downbeat probability should rise toward weight_strong(0)=1.0 when under-syncopated, got %v", p[0])
	}
}

func TestModulatorOUConvergesTowardMidpoint(t *testing.T) {
	cfg := testConfig()
	c, _ := New(cfg, 1, nil)
	for bar := 1; bar <= 50; bar++ {
		c.Step(bar, model.BarMetrics{E: 1, S: 0.5}, nil)
	}
	v, ok := c.ModulatorValue("thin_bias")
	if !ok {
		t.Fatalf("expected thin_bias modulator registered")
	}
	if diff := v - 0.5; diff > 0.05 || diff < -0.05 {
		t.Fatalf("OU modulator should converge near midpoint 0.5 after many bars, got %v", v)
	}
}
