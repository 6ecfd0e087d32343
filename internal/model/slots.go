package model

// SlotLabel annotates one 16th-note step of a bar with the anchor tags the
// bass and lead engines read (spec.md §3, §4.7). Built once by the drum
// analyzer and treated as a read-only borrow thereafter.
type SlotLabel struct {
	IsKick    bool
	PreKick   bool
	PostKick  bool
	SnareZone bool
	BarStart  bool
	BarEnd    bool
	FillZone  bool
	HatDense  bool
	HatSparse bool
}

// BeatStrength classifies a slot as metrically strong or weak, derived
// from its labels (spec.md §4.10: "strong iff bar_start|snare_zone|is_kick").
func (l SlotLabel) BeatStrength() string {
	if l.BarStart || l.SnareZone || l.IsKick {
		return "strong"
	}
	return "weak"
}

// SlotGrid is the per-bar array of SlotLabels produced by the drum
// analyzer (spec.md §3, §4.7).
type SlotGrid struct {
	Bar   int
	Slots [StepsPerBar]SlotLabel
}
