package model

// LayerName identifies one of the fixed drum layers. The layer set is
// configuration-driven but these names are what the analyzer, controller
// and bass engine key their special-cased logic on.
type LayerName string

const (
	LayerKick  LayerName = "kick"
	LayerHatC  LayerName = "hat_c"
	LayerHatO  LayerName = "hat_o"
	LayerSnare LayerName = "snare"
	LayerClap  LayerName = "clap"
)

// BeatBin is one entry of a layer's discrete micro-timing distribution
// (spec.md §4.3).
type BeatBin struct {
	Ms   float64
	Prob float64
}

// LayerConfig is the per-layer configuration record of spec.md §6.
type LayerConfig struct {
	Name  LayerName `json:"name"`
	Steps int       `json:"steps"` // Euclidean steps, always 16
	Fills int       `json:"fills"`
	Rot   int       `json:"rot"`
	Note  int       `json:"note"` // GM MIDI note number
	Velocity int    `json:"velocity"`

	SwingPercent float64 `json:"swing_percent"` // [0.5, 0.62]
	MicroMs      float64 `json:"micro_ms"`      // legacy flat micro offset, ms
	BeatBinsMs   []float64 `json:"beat_bins_ms"`
	BeatBinsProbs []float64 `json:"beat_bins_probs"`
	BeatBinCapMs float64 `json:"beat_bin_cap_ms"`

	OffbeatsOnly bool `json:"offbeats_only"`

	RatchetProb   float64 `json:"ratchet_prob"` // [0, 0.3]
	RatchetRepeat int     `json:"ratchet_repeat"`

	ChokeWithNote string `json:"choke_with_note"` // layer whose onset at the same step removes this layer's onset

	RotationRatePerBar float64 `json:"rotation_rate_per_bar"`

	GhostPre1Prob        float64 `json:"ghost_pre1_prob"`
	DisplaceInto2Prob    float64 `json:"displace_into_2_prob"`

	Conditions []Condition `json:"-"`

	MicroCapTicks int `json:"-"` // derived from targets.T_ms_cap at load time
}

// Targets are the feedback controller's per-bar objective ranges
// (spec.md §4.5, §4.6).
type Targets struct {
	SLow  float64 `json:"s_low"`
	SHigh float64 `json:"s_high"`
	ETarget float64 `json:"e_target"`
	TMsCap  float64 `json:"t_ms_cap"`
	HLow    float64 `json:"h_low"`
	HHigh   float64 `json:"h_high"`
	HatDensityTarget float64 `json:"hat_density_target"`
	HatDensityTol    float64 `json:"hat_density_tol"`
}

// Guard holds the controller's continuity guardrails (spec.md §4.6).
type Guard struct {
	MinE         float64 `json:"min_e"`
	MaxRotRate   float64 `json:"max_rot_rate"`
	KickImmutable bool   `json:"kick_immutable"`
}

// ModulatorConfig drives one named parameter path over bars
// (spec.md §4.6, §6).
type ModulatorConfig struct {
	ParamPath     string        `json:"param_path"`
	Mode          ModulatorMode `json:"mode"`
	MinVal        float64       `json:"min_val"`
	MaxVal        float64       `json:"max_val"`
	StepPerBar    float64       `json:"step_per_bar"`
	Tau           float64       `json:"tau,omitempty"`
	MaxDeltaPerBar float64      `json:"max_delta_per_bar"`
	Phase         float64       `json:"phase,omitempty"`
}

// RecognisedParamPaths are the param_path values the controller knows how
// to apply (spec.md §6).
var RecognisedParamPaths = map[string]bool{
	"thin_bias":                  true,
	"accent.prob":                true,
	"kick.rotation_rate_per_bar": true,
}

// IsRecognisedParamPath reports whether path is a statically known
// controller target, or a "<layer>.swing_percent" / "<layer>.ratchet_prob"
// path for one of layers.
func IsRecognisedParamPath(path string, layers map[string]LayerConfig) bool {
	if RecognisedParamPaths[path] {
		return true
	}
	for name := range layers {
		if path == name+".swing_percent" || path == name+".ratchet_prob" {
			return true
		}
	}
	return false
}

// AccentConfig steers the post-schedule velocity accent pass (spec.md §4.4).
type AccentConfig struct {
	Prob float64 `json:"prob"`
	Mode string  `json:"mode"` // "random" | "offbeat_focused" | "downbeat_focused"
}

// Config is the fully-parsed, validated input to the pipeline (spec.md §6).
type Config struct {
	Mode Mode `json:"mode"`
	Timebase

	Seed int64 `json:"seed"`

	Layers map[string]LayerConfig `json:"layers"`

	Targets    Targets           `json:"targets"`
	Guard      Guard             `json:"guard"`
	Modulators []ModulatorConfig `json:"modulators"`
	Accent     AccentConfig      `json:"accent"`

	Bass BassConfig `json:"bass"`
	Lead LeadConfig `json:"lead"`
}

// LayerMask is a frozen per-bar onset/velocity buffer for one layer
// (spec.md §3). Index is the 16th-note step.
type LayerMask struct {
	Onsets     [StepsPerBar]bool
	Velocities [StepsPerBar]int
}

// DrumEvent is one scheduled drum onset (spec.md §3).
type DrumEvent struct {
	Layer          LayerName
	Bar            int
	Step           int
	Note           int
	Velocity       int
	MicroOffsetTicks int
	// RetriggerOffsetTicks spaces a ratchet retrigger within its step,
	// independent of MicroOffsetTicks: it is never subject to the
	// layer's micro-timing cap, since it encodes a stepped onset
	// position rather than a swing/feel nudge.
	RetriggerOffsetTicks int
	DurationTicks  int
}

// Tick returns the event's absolute tick position within the whole piece.
func (e DrumEvent) Tick(tb Timebase) int {
	return e.Bar*tb.BarTicks() + e.Step*tb.StepTicks() + e.MicroOffsetTicks + e.RetriggerOffsetTicks
}

// BarMetrics is the read-only scoring output of spec.md §4.5, one value
// set per bar per the controller's measurement step.
type BarMetrics struct {
	Bar     int
	E       float64
	S       float64
	H       float64
	TMs     map[LayerName]float64
	Entropy float64
}
