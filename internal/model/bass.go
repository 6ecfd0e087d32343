package model

// BassMode is the sum type of spec.md §3: "each variant carrying its
// specific record" is realised here as ModeProfile lookup by name rather
// than Go sub-typing, since every mode shares the same field shape and
// only the weights/pools differ (spec.md §9 design note).
type BassMode string

const (
	BassSubAnchor       BassMode = "sub_anchor"
	BassRootFifthDriver BassMode = "root_fifth_driver"
	BassPocketGroove    BassMode = "pocket_groove"
	BassRollingOstinato BassMode = "rolling_ostinato"
	BassOffbeatStabs    BassMode = "offbeat_stabs"
	BassLeadIsh         BassMode = "lead_ish"
)

// PitchPoolEntry names one member of a mode's pitch pool, relative to the
// configured root note (spec.md §3).
type PitchPoolEntry string

const (
	PoolRoot        PitchPoolEntry = "root"
	PoolRootDown12  PitchPoolEntry = "root-12"
	PoolFifth       PitchPoolEntry = "root+7"
	PoolRootUp12    PitchPoolEntry = "root+12"
	PoolMinorSeventh PitchPoolEntry = "root+10"
	PoolMajorSecondUp PitchPoolEntry = "root+14"
	PoolPassing     PitchPoolEntry = "passing"
)

// ModeProfile is the per-mode configuration record (spec.md §3, §4.8).
type ModeProfile struct {
	Mode BassMode

	DensityMin float64 // notes-per-bar fraction of 16 steps, e.g. 0.25
	DensityMax float64

	RegisterLo int
	RegisterHi int

	PitchPool []PitchPoolEntry

	SlotWeights map[string]float64 // label name -> preference weight

	ForbidKickOverlap    bool
	// AllowKickOverlapAtBarStart is the "explicit strong-beat allowance"
	// of spec.md §3/§4.8: even a kick-avoiding mode may still anchor a
	// bass note on the downbeat.
	AllowKickOverlapAtBarStart bool
	MaxConsecutiveNotes        int
	MinInterNoteGapSteps       int

	// AnchorLabel is the slot label this mode's notes are drawn toward
	// for the anchor_match(mode_anchor, labels) scoring term (spec.md
	// §4.8).
	AnchorLabel string
}

// ScoringWeights are the tunable slot-scoring coefficients of spec.md §4.8
// / §9 (defaults: W_role_tag=1.0, W_anchor=0.6, W_strength=0.5,
// W_density=0.3, W_overlap=2.0).
type ScoringWeights struct {
	WRoleTag  float64
	WAnchor   float64
	WStrength float64
	WDensity  float64
	WOverlap  float64
	WKickAvoid float64
}

// DefaultScoringWeights returns the weights named in spec.md §9(b).
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		WRoleTag:   1.0,
		WAnchor:    0.6,
		WStrength:  0.5,
		WDensity:   0.3,
		WOverlap:   2.0,
		WKickAvoid: 1.0,
	}
}

// BassConfig is the bass engine's slice of the top-level Config.
type BassConfig struct {
	Enabled       bool              `json:"enabled"`
	RootNote      int               `json:"root_note"`
	FixedMode     BassMode          `json:"fixed_mode,omitempty"`
	ModeByBar     []BassMode        `json:"mode_by_bar,omitempty"`
	SeedTags      []string          `json:"seed_tags,omitempty"`
	RegisterGravityCenter int       `json:"register_gravity_center"`
	Weights       ScoringWeights    `json:"-"`
}

// BassNote is a pitched, timed bass onset (spec.md §3).
type BassNote struct {
	Bar           int
	Step          int
	Pitch         int
	StartBeat     float64
	DurationBeats float64
	Velocity      int
	Meta          string
}

// Tick returns the note's absolute tick position within the whole piece.
func (n BassNote) Tick(tb Timebase) int {
	return n.Bar*tb.BarTicks() + n.Step*tb.StepTicks()
}
