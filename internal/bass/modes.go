package bass

import "github.com/groovegen/groovegen/internal/model"

// DefaultModeProfiles returns the six BassMode configurations of
// spec.md §3/§4.8. Density is expressed as a fraction of the 16-step
// bar; register bounds and pitch pools follow the mode's character
// (sub-anchor stays low and sparse, lead_ish ranges high and dense).
func DefaultModeProfiles() map[model.BassMode]model.ModeProfile {
	return map[model.BassMode]model.ModeProfile{
		model.BassSubAnchor: {
			Mode:       model.BassSubAnchor,
			DensityMin: 0.1250, DensityMax: 0.2500,
			RegisterLo: 24, RegisterHi: 43,
			PitchPool:                  []model.PitchPoolEntry{model.PoolRoot, model.PoolRootDown12},
			SlotWeights:                map[string]float64{"bar_start": 1.0, "is_kick": 0.8, "snare_zone": 0.1},
			ForbidKickOverlap:          false,
			AllowKickOverlapAtBarStart: true,
			MaxConsecutiveNotes:        2,
			MinInterNoteGapSteps:       3,
			AnchorLabel:                "bar_start",
		},
		model.BassRootFifthDriver: {
			Mode:       model.BassRootFifthDriver,
			DensityMin: 0.3750, DensityMax: 0.5000,
			RegisterLo: 31, RegisterHi: 50,
			PitchPool:                  []model.PitchPoolEntry{model.PoolRoot, model.PoolFifth, model.PoolRootUp12},
			SlotWeights:                map[string]float64{"is_kick": 1.0, "bar_start": 0.8, "post_kick": 0.4},
			ForbidKickOverlap:          false,
			AllowKickOverlapAtBarStart: true,
			MaxConsecutiveNotes:        4,
			MinInterNoteGapSteps:       1,
			AnchorLabel:                "is_kick",
		},
		model.BassPocketGroove: {
			Mode:       model.BassPocketGroove,
			DensityMin: 0.3125, DensityMax: 0.4375,
			RegisterLo: 31, RegisterHi: 48,
			PitchPool:                  []model.PitchPoolEntry{model.PoolRoot, model.PoolFifth, model.PoolMinorSeventh},
			SlotWeights:                map[string]float64{"post_kick": 1.0, "hat_sparse": 0.6, "snare_zone": 0.3},
			ForbidKickOverlap:          true,
			AllowKickOverlapAtBarStart: true,
			MaxConsecutiveNotes:        3,
			MinInterNoteGapSteps:       2,
			AnchorLabel:                "post_kick",
		},
		model.BassRollingOstinato: {
			Mode:       model.BassRollingOstinato,
			DensityMin: 0.5000, DensityMax: 0.6875,
			RegisterLo: 31, RegisterHi: 48,
			PitchPool:                  []model.PitchPoolEntry{model.PoolRoot, model.PoolMinorSeventh, model.PoolMajorSecondUp},
			SlotWeights:                map[string]float64{"hat_dense": 0.8, "is_kick": 0.5, "bar_start": 0.5},
			ForbidKickOverlap:          false,
			AllowKickOverlapAtBarStart: true,
			MaxConsecutiveNotes:        8,
			MinInterNoteGapSteps:       1,
			AnchorLabel:                "hat_dense",
		},
		model.BassOffbeatStabs: {
			Mode:       model.BassOffbeatStabs,
			DensityMin: 0.1875, DensityMax: 0.3125,
			RegisterLo: 36, RegisterHi: 55,
			PitchPool:                  []model.PitchPoolEntry{model.PoolRoot, model.PoolFifth, model.PoolPassing},
			SlotWeights:                map[string]float64{"post_kick": 0.7, "hat_sparse": 0.7, "snare_zone": 0.5},
			ForbidKickOverlap:          true,
			AllowKickOverlapAtBarStart: false,
			MaxConsecutiveNotes:        2,
			MinInterNoteGapSteps:       2,
			AnchorLabel:                "post_kick",
		},
		model.BassLeadIsh: {
			Mode:       model.BassLeadIsh,
			DensityMin: 0.4375, DensityMax: 0.6250,
			RegisterLo: 38, RegisterHi: 60,
			PitchPool:                  []model.PitchPoolEntry{model.PoolRoot, model.PoolFifth, model.PoolMinorSeventh, model.PoolMajorSecondUp, model.PoolPassing},
			SlotWeights:                map[string]float64{"fill_zone": 0.8, "snare_zone": 0.6, "hat_dense": 0.4},
			ForbidKickOverlap:          true,
			AllowKickOverlapAtBarStart: false,
			MaxConsecutiveNotes:        6,
			MinInterNoteGapSteps:       1,
			AnchorLabel:                "fill_zone",
		},
	}
}

// tagModeCandidates implements the seed-tag mapping rule of spec.md
// §4.8: "{minimal, dubby} -> sub_anchor/offbeat_stabs; {warehouse,
// urgent, industrial} -> root_fifth_driver/pocket_groove/
// rolling_ostinato; {rolling, hypnotic} -> rolling_ostinato/
// pocket_groove; otherwise choose by energy band."
var tagModeCandidates = map[string][]model.BassMode{
	"minimal":    {model.BassSubAnchor, model.BassOffbeatStabs},
	"dubby":      {model.BassSubAnchor, model.BassOffbeatStabs},
	"warehouse":  {model.BassRootFifthDriver, model.BassPocketGroove, model.BassRollingOstinato},
	"urgent":     {model.BassRootFifthDriver, model.BassPocketGroove, model.BassRollingOstinato},
	"industrial": {model.BassRootFifthDriver, model.BassPocketGroove, model.BassRollingOstinato},
	"rolling":    {model.BassRollingOstinato, model.BassPocketGroove},
	"hypnotic":   {model.BassRollingOstinato, model.BassPocketGroove},
}

// energyBandLadder orders modes from lowest to highest energy character,
// used as the "otherwise choose by energy band" fallback.
var energyBandLadder = []model.BassMode{
	model.BassSubAnchor, model.BassOffbeatStabs, model.BassPocketGroove,
	model.BassRootFifthDriver, model.BassRollingOstinato, model.BassLeadIsh,
}
