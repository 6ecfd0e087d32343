package model

// ScaleType names the supported diatonic/pentatonic scale shapes
// (spec.md §3).
type ScaleType string

const (
	ScaleAeolian    ScaleType = "aeolian"
	ScaleDorian     ScaleType = "dorian"
	ScalePhrygian   ScaleType = "phrygian"
	ScaleMinorPent  ScaleType = "minor_pent"
)

// scaleDegreeSemitones enumerates each supported scale as ascending
// semitone offsets within one octave (spec.md §3: "Derived scale_degrees").
var scaleDegreeSemitones = map[ScaleType][]int{
	ScaleAeolian:   {0, 2, 3, 5, 7, 8, 10},
	ScaleDorian:    {0, 2, 3, 5, 7, 9, 10},
	ScalePhrygian:  {0, 1, 3, 5, 7, 8, 10},
	ScaleMinorPent: {0, 3, 5, 7, 10},
}

// KeySpec identifies the active key/scale (spec.md §3).
type KeySpec struct {
	RootPC            int
	Scale             ScaleType
	DefaultRootOctave int
}

// Degrees returns the ascending semitone offsets of one octave of the
// active scale.
func (k KeySpec) Degrees() []int {
	return scaleDegreeSemitones[k.Scale]
}

// ValidScale reports whether s is one of the scales this engine knows.
func ValidScale(s ScaleType) bool {
	_, ok := scaleDegreeSemitones[s]
	return ok
}

// PitchInScale reports whether a MIDI pitch is diatonic to k
// (spec.md §8 invariant 3).
func (k KeySpec) PitchInScale(pitch int) bool {
	pc := ((pitch-k.RootPC)%12 + 12) % 12
	for _, d := range k.Degrees() {
		if d == pc {
			return true
		}
	}
	return false
}

// NearestInScalePitch returns the in-scale pitch nearest to target.
func (k KeySpec) NearestInScalePitch(target int) int {
	best := target
	bestDist := 1 << 30
	for delta := 0; delta <= 12; delta++ {
		for _, cand := range []int{target - delta, target + delta} {
			if k.PitchInScale(cand) {
				dist := cand - target
				if dist < 0 {
					dist = -dist
				}
				if dist < bestDist {
					bestDist = dist
					best = cand
				}
			}
		}
		if bestDist <= delta {
			break
		}
	}
	return best
}

// DegreeToPitch maps a scale-degree index (0-based, wraps across octaves)
// and an octave offset relative to KeySpec.DefaultRootOctave to a MIDI
// pitch.
func (k KeySpec) DegreeToPitch(degreeIndex, octaveOffset int) int {
	degrees := k.Degrees()
	n := len(degrees)
	octaveShift := floorDiv(degreeIndex, n)
	idx := ((degreeIndex % n) + n) % n
	base := 12*(k.DefaultRootOctave+octaveOffset+octaveShift) + k.RootPC + degrees[idx]
	return base
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// HarmonyTrack is the per-bar chord/color tone record (spec.md §3). MVP is
// identical every bar.
type HarmonyTrack struct {
	TonicDegree      int
	ChordToneDegrees []int
	ColorToneDegrees []int
}

// PhraseRole distinguishes call/response segments (spec.md §3).
type PhraseRole string

const (
	RoleCall PhraseRole = "CALL"
	RoleResp PhraseRole = "RESP"
)

// PhrasePosition marks a logical note's place within its phrase.
type PhrasePosition string

const (
	PosStart PhrasePosition = "start"
	PosInner PhrasePosition = "inner"
	PosEnd   PhrasePosition = "end"
)

// PhraseSegment is one entry of the PhrasePlan (spec.md §3). Segments tile
// [0, bars) exactly.
type PhraseSegment struct {
	BarStart           int
	BarEnd             int // exclusive
	Role               PhraseRole
	FormLabel          string
	ResolutionRequired bool
}

// TensionLabel classifies a logical note's harmonic tension.
type TensionLabel string

const (
	TensionNone    TensionLabel = ""
	TensionResolve TensionLabel = "resolve"
	TensionBuild   TensionLabel = "build"
)

// LogicalNote is one entry of the MotifPlan (spec.md §3), before pitch
// assignment.
type LogicalNote struct {
	PhraseID       int
	Role           PhraseRole
	PhrasePosition PhrasePosition
	Bar            int
	Step           int
	BeatStrength   string
	TensionLabel   TensionLabel
	ContourIndex   int
	Accent         bool
}

// ToneCategory classifies a lead note's harmonic function (spec.md §4.10).
type ToneCategory string

const (
	ToneChord   ToneCategory = "chord"
	ToneColor   ToneCategory = "color"
	TonePassing ToneCategory = "passing"
)

// LeadNote is a LogicalNote with pitch assignment (spec.md §3).
type LeadNote struct {
	LogicalNote
	ToneCategory  ToneCategory
	Degree        int
	OctaveOffset  int
	Pitch         int
	Velocity      int
	StartTick     int
	DurationTicks int
}

// LeadConfig is the lead engine's slice of the top-level Config.
type LeadConfig struct {
	Enabled                  bool     `json:"enabled"`
	ScaleRootPC              int      `json:"scale_root_pc"`
	ScaleType                ScaleType `json:"scale_type"`
	MinPhraseBars            int      `json:"min_phrase_bars"`
	MaxPhraseBars            int      `json:"max_phrase_bars"`
	CallResponsePattern      string   `json:"call_response_pattern"` // e.g. "CRCR"
	PhraseEndResolutionDegrees []int  `json:"phrase_end_resolution_degrees"`
	RegisterLow              int      `json:"register_low"`
	RegisterHigh             int      `json:"register_high"`
	RegisterGravityCenter    int      `json:"register_gravity_center"`
	RegisterDriftPerPhrase   int      `json:"register_drift_per_phrase"`
	MaxStepJitter            int      `json:"max_step_jitter"`
	MinInterNoteGapSteps     int      `json:"min_inter_note_gap_steps"`
	AvoidRootOnBassHits      bool     `json:"avoid_root_on_bass_hits"`
	MinSemitoneDistance      int      `json:"min_semitone_distance"`
	VoiceLeading             VoiceLeadWeights `json:"-"`
	SlotAlignment            SlotAlignWeights `json:"-"`
}

// VoiceLeadWeights are the α,β,γ coefficients of spec.md §4.10 / §9(b).
type VoiceLeadWeights struct {
	Alpha float64 // |semitone_jump|
	Beta  float64 // |pitch - gravity_center|
	Gamma float64 // violate_emphasis(contour)
}

// DefaultVoiceLeadWeights returns the defaults named in spec.md §9(b).
func DefaultVoiceLeadWeights() VoiceLeadWeights {
	return VoiceLeadWeights{Alpha: 1.0, Beta: 0.3, Gamma: 0.5}
}

// SlotAlignWeights are the slot-alignment scoring coefficients of
// spec.md §4.10.
type SlotAlignWeights struct {
	WPref     float64
	WAnchor   float64
	WStrength float64
	WDensity  float64
	WOverlap  float64
}

// DefaultSlotAlignWeights mirrors the bass engine's defaults.
func DefaultSlotAlignWeights() SlotAlignWeights {
	return SlotAlignWeights{WPref: 1.0, WAnchor: 0.6, WStrength: 0.5, WDensity: 0.3, WOverlap: 2.0}
}

// RhythmEvent is one entry of a rhythm template (spec.md §4.10).
type RhythmEvent struct {
	StepOffset  int
	LengthSteps int
	Accent      bool
	AnchorType  string
}

// RhythmTemplate and ContourTemplate are the fusion inputs of the lead
// realiser (spec.md §4.10).
type RhythmTemplate struct {
	Name   string
	Role   PhraseRole
	MinBars int
	MaxBars int
	Events []RhythmEvent
}

type ContourTemplate struct {
	Name             string
	Role             PhraseRole
	DegreeIntervals  []int
	EmphasisIndices  []int
	TensionProfile   []TensionLabel
}
