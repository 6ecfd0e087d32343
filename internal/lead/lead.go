// Package lead implements the melodic lead engine of spec.md §4.10: it
// plans a CALL/RESP phrase structure over the piece, fuses a rhythm
// template with a contour template into a logical (pitchless) motif
// plan, then assigns pitches by minimising a voice-leading cost while
// breaking ties against the frozen drum SlotGrid and avoiding unison
// collisions with the bass line.
package lead

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/rng"
)

// DefaultHarmonyTrack is the MVP harmony of spec.md §4.10: identical
// every bar, tonic triad as chord tones, the remaining scale degrees as
// color tones.
func DefaultHarmonyTrack(key model.KeySpec) model.HarmonyTrack {
	n := len(key.Degrees())
	chord := []int{0}
	if n > 2 {
		chord = append(chord, 2, 4)
	}
	var color []int
	for d := 0; d < n; d++ {
		isChord := false
		for _, c := range chord {
			if c == d {
				isChord = true
			}
		}
		if !isChord {
			color = append(color, d)
		}
	}
	return model.HarmonyTrack{TonicDegree: 0, ChordToneDegrees: chord, ColorToneDegrees: color}
}

// PlanPhrases tiles [0,bars) into CALL/RESP segments following
// cfg.CallResponsePattern (default "CRCR"), each sized within
// [MinPhraseBars,MaxPhraseBars] and clipped to fit exactly (spec.md
// §4.10 "Phrase plan").
func PlanPhrases(cfg model.LeadConfig, bars int, state *rng.State) []model.PhraseSegment {
	pattern := cfg.CallResponsePattern
	if pattern == "" {
		pattern = "CRCR"
	}
	minB := cfg.MinPhraseBars
	if minB < 1 {
		minB = 2
	}
	maxB := cfg.MaxPhraseBars
	if maxB < minB {
		maxB = minB
	}

	var segments []model.PhraseSegment
	bar := 0
	patIdx := 0
	for bar < bars {
		roleChar := pattern[patIdx%len(pattern)]
		role := model.RoleCall
		if roleChar == 'R' {
			role = model.RoleResp
		}
		length := minB
		if maxB > minB {
			length += state.IntRange(0, maxB-minB)
		}
		if bar+length > bars {
			length = bars - bar
		}
		end := bar + length
		segments = append(segments, model.PhraseSegment{
			BarStart:           bar,
			BarEnd:             end,
			Role:               role,
			FormLabel:          fmt.Sprintf("%c%d", roleChar, patIdx),
			ResolutionRequired: role == model.RoleResp,
		})
		bar = end
		patIdx++
	}
	return segments
}

// BuildMotifPlan fuses a rhythm template with a contour template per
// phrase segment, producing the pitchless LogicalNote stream of
// spec.md §4.10. A rhythm/contour pair is chosen once per phrase and
// repeated every bar of the segment, with an optional per-bar step
// jitter (LeadConfig.MaxStepJitter).
func BuildMotifPlan(cfg model.LeadConfig, phrases []model.PhraseSegment, grids []model.SlotGrid, seed int64) []model.LogicalNote {
	rhythmLib := DefaultRhythmTemplates()
	contourLib := DefaultContourTemplates()

	var notes []model.LogicalNote
	for pid, seg := range phrases {
		segLen := seg.BarEnd - seg.BarStart
		phraseState := rng.Derive(seed, "lead", "phrase", pid)

		rhythmCandidates := filterByBarLen(rhythmTemplatesForRole(rhythmLib, seg.Role), segLen)
		if len(rhythmCandidates) == 0 {
			rhythmCandidates = rhythmTemplatesForRole(rhythmLib, seg.Role)
		}
		contourCandidates := contourTemplatesForRole(contourLib, seg.Role)
		if len(rhythmCandidates) == 0 || len(contourCandidates) == 0 {
			continue
		}
		rt := rhythmCandidates[phraseState.IntRange(0, len(rhythmCandidates)-1)]
		ct := contourCandidates[phraseState.IntRange(0, len(contourCandidates)-1)]

		for bar := seg.BarStart; bar < seg.BarEnd; bar++ {
			barState := rng.Derive(seed, "lead", "bar", bar)
			for i, ev := range rt.Events {
				step := ev.StepOffset
				if cfg.MaxStepJitter > 0 {
					jitter := barState.IntRange(-cfg.MaxStepJitter, cfg.MaxStepJitter)
					step = clampStep(step + jitter)
				}

				pos := model.PosInner
				if bar == seg.BarStart && i == 0 {
					pos = model.PosStart
				}
				if bar == seg.BarEnd-1 && i == len(rt.Events)-1 {
					pos = model.PosEnd
				}

				contourIdx := i % len(ct.DegreeIntervals)
				tension := model.TensionNone
				if contourIdx < len(ct.TensionProfile) {
					tension = ct.TensionProfile[contourIdx]
				}
				if pos == model.PosEnd && seg.ResolutionRequired {
					tension = model.TensionResolve
				}

				strength := "weak"
				if bar >= 0 && bar < len(grids) {
					strength = grids[bar].Slots[step].BeatStrength()
				}

				notes = append(notes, model.LogicalNote{
					PhraseID:       pid,
					Role:           seg.Role,
					PhrasePosition: pos,
					Bar:            bar,
					Step:           step,
					BeatStrength:   strength,
					TensionLabel:   tension,
					ContourIndex:   ct.DegreeIntervals[contourIdx],
					Accent:         ev.Accent,
				})
			}
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Bar != notes[j].Bar {
			return notes[i].Bar < notes[j].Bar
		}
		return notes[i].Step < notes[j].Step
	})
	return notes
}

func filterByBarLen(templates []model.RhythmTemplate, segLen int) []model.RhythmTemplate {
	var out []model.RhythmTemplate
	for _, t := range templates {
		if segLen >= t.MinBars && segLen <= t.MaxBars {
			out = append(out, t)
		}
	}
	return out
}

func clampStep(step int) int {
	step %= model.StepsPerBar
	if step < 0 {
		step += model.StepsPerBar
	}
	return step
}

// AssignPitches realises pitches for notes, minimising the voice-leading
// cost of spec.md §4.10 (alpha*|jump| + beta*|pitch-gravity| +
// gamma*violate_emphasis) and breaking ties toward the drum grid's
// preferred slots (SlotAlignWeights), while enforcing the register,
// minimum-semitone-distance, bass-root-avoidance and minimum-gap
// constraints. Notes with no valid candidate are dropped into diag.
func AssignPitches(cfg model.LeadConfig, key model.KeySpec, harmony model.HarmonyTrack, notes []model.LogicalNote,
	grids []model.SlotGrid, bassPitchByBarStep map[[2]int]int, tb model.Timebase, seed int64, logger *slog.Logger, diag *model.Diagnostics) []model.LeadNote {

	weights := cfg.VoiceLeading
	if weights == (model.VoiceLeadWeights{}) {
		weights = model.DefaultVoiceLeadWeights()
	}
	slotWeights := cfg.SlotAlignment
	if slotWeights == (model.SlotAlignWeights{}) {
		slotWeights = model.DefaultSlotAlignWeights()
	}
	gravity := cfg.RegisterGravityCenter
	if gravity == 0 {
		gravity = (cfg.RegisterLow + cfg.RegisterHigh) / 2
	}
	regLow, regHigh := cfg.RegisterLow, cfg.RegisterHigh
	if regHigh <= regLow {
		regLow, regHigh = 48, 84
	}

	phraseEndDegrees := cfg.PhraseEndResolutionDegrees
	if len(phraseEndDegrees) == 0 {
		phraseEndDegrees = []int{1, 5}
	}
	phraseEndPool := make([]int, len(phraseEndDegrees))
	for i, d := range phraseEndDegrees {
		phraseEndPool[i] = d - 1 // scale degrees are 1-based (spec.md §4.10); harmony pools are 0-based indices
	}

	var out []model.LeadNote
	prevPitch := gravity
	lastAcceptedIdx := -1 // bar*StepsPerBar+step of the last accepted note

	for _, ln := range notes {
		state := rng.Derive(seed, "lead", "pitch", ln.Bar, ln.Step, ln.PhraseID)
		category := sampleToneCategory(ln, state)
		degreePool := degreesForCategory(category, harmony)
		if ln.PhrasePosition == model.PosEnd && ln.TensionLabel == model.TensionResolve {
			// Override the harmonic-function pool: a resolving phrase end
			// must land on phrase_end_resolution_degrees, not merely any
			// chord tone (spec.md §4.10, invariant 4).
			degreePool = phraseEndPool
		}

		label := model.SlotLabel{}
		if ln.Bar >= 0 && ln.Bar < len(grids) {
			label = grids[ln.Bar].Slots[ln.Step]
		}

		curIdx := ln.Bar*model.StepsPerBar + ln.Step
		if lastAcceptedIdx >= 0 && cfg.MinInterNoteGapSteps > 0 && curIdx-lastAcceptedIdx < cfg.MinInterNoteGapSteps {
			if diag != nil {
				diag.AddDroppedNote(ln.Bar, ln.Step, "violates minimum inter-note gap")
			}
			if logger != nil {
				logger.Warn("lead note dropped: violates minimum inter-note gap", "bar", ln.Bar, "step", ln.Step)
			}
			continue
		}

		bestCost := math.Inf(1)
		bestPitch := 0
		bestDegree := 0
		bestOct := 0
		found := false

		for _, deg := range degreePool {
			for oct := -2; oct <= 2; oct++ {
				pitch := key.DegreeToPitch(deg, oct)
				if pitch < regLow || pitch > regHigh {
					continue
				}
				jump := absInt(pitch - prevPitch)
				if cfg.MinSemitoneDistance > 0 && jump != 0 && jump < cfg.MinSemitoneDistance {
					continue
				}
				if cfg.AvoidRootOnBassHits {
					if bassPitch, ok := bassPitchByBarStep[[2]int{ln.Bar, ln.Step}]; ok &&
						mod12(pitch) == key.RootPC && mod12(bassPitch) == key.RootPC {
						continue
					}
				}

				violate := math.Min(float64(absInt(deg-ln.ContourIndex)), 4) / 4.0
				cost := weights.Alpha*float64(jump) + weights.Beta*float64(absInt(pitch-gravity)) + weights.Gamma*violate
				cost -= slotAlignScore(label, ln.Accent, slotWeights) * 0.1

				if cost < bestCost {
					bestCost = cost
					bestPitch = pitch
					bestDegree = deg
					bestOct = oct
					found = true
				}
			}
		}

		if !found {
			if diag != nil {
				diag.AddDroppedNote(ln.Bar, ln.Step, "no valid pitch within register/gap/semitone constraints")
			}
			if logger != nil {
				logger.Warn("lead note dropped: no valid pitch within constraints", "bar", ln.Bar, "step", ln.Step)
			}
			continue
		}

		velocity := 85
		if ln.Accent {
			velocity += 15
		}
		if ln.BeatStrength == "strong" {
			velocity += 8
		}
		if velocity > 127 {
			velocity = 127
		}

		durationSteps := 2
		durationTicks := durationSteps * tb.StepTicks()
		startTick := ln.Bar*tb.BarTicks() + ln.Step*tb.StepTicks()

		out = append(out, model.LeadNote{
			LogicalNote:   ln,
			ToneCategory:  category,
			Degree:        bestDegree,
			OctaveOffset:  bestOct,
			Pitch:         bestPitch,
			Velocity:      velocity,
			StartTick:     startTick,
			DurationTicks: durationTicks,
		})
		prevPitch = bestPitch
		lastAcceptedIdx = curIdx
	}
	return out
}

// sampleToneCategory picks the harmonic function of a logical note
// (spec.md §4.10): phrase starts and resolving phrase ends are forced to
// chord tones, everything else is weighted-sampled.
func sampleToneCategory(ln model.LogicalNote, state *rng.State) model.ToneCategory {
	if ln.PhrasePosition == model.PosStart || (ln.PhrasePosition == model.PosEnd && ln.TensionLabel == model.TensionResolve) {
		return model.ToneChord
	}
	switch state.WeightedChoice([]float64{0.55, 0.30, 0.15}) {
	case 0:
		return model.ToneChord
	case 1:
		return model.ToneColor
	default:
		return model.TonePassing
	}
}

func degreesForCategory(cat model.ToneCategory, harmony model.HarmonyTrack) []int {
	switch cat {
	case model.ToneChord:
		return harmony.ChordToneDegrees
	case model.ToneColor:
		return harmony.ColorToneDegrees
	default:
		out := append([]int{}, harmony.ChordToneDegrees...)
		return append(out, harmony.ColorToneDegrees...)
	}
}

// slotAlignScore is the tie-breaking component of spec.md §4.10's slot
// alignment term: it rewards accents that land on snare/kick slots or in
// the fill zone, and any note on a strong slot. Overlap and density are
// already enforced structurally via MinInterNoteGapSteps, so only
// preference, fill-zone anchor and strength are scored here.
func slotAlignScore(label model.SlotLabel, accent bool, weights model.SlotAlignWeights) float64 {
	pref := 0.0
	if accent && (label.SnareZone || label.IsKick) {
		pref = 1.0
	}
	anchor := 0.0
	if accent && label.FillZone {
		anchor = 1.0
	}
	strength := 0.0
	if label.BeatStrength() == "strong" {
		strength = 1.0
	}
	return weights.WPref*pref + weights.WAnchor*anchor + weights.WStrength*strength
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func mod12(pitch int) int {
	return ((pitch % 12) + 12) % 12
}

// deriveKeySpec resolves the active key in precedence order (spec.md
// §4.9): an explicit "key_<pc>_<scale>" seed tag, else the root pitch
// class most common among bassNotes, else cfg's configured root/scale.
func deriveKeySpec(cfg model.LeadConfig, seedTags []string, bassNotes []model.BassNote) model.KeySpec {
	if ks, ok := keySpecFromTags(seedTags); ok {
		return ks
	}
	if pc, ok := rootPCFromBassHistogram(bassNotes); ok {
		return model.KeySpec{RootPC: pc, Scale: cfg.ScaleType, DefaultRootOctave: 5}
	}
	return model.KeySpec{RootPC: cfg.ScaleRootPC, Scale: cfg.ScaleType, DefaultRootOctave: 5}
}

// keySpecFromTags scans tags for "key_<pc>_<scale>" and returns the first
// well-formed match.
func keySpecFromTags(tags []string) (model.KeySpec, bool) {
	for _, tag := range tags {
		parts := strings.SplitN(tag, "_", 3)
		if len(parts) != 3 || parts[0] != "key" {
			continue
		}
		pc, err := strconv.Atoi(parts[1])
		if err != nil || pc < 0 || pc > 11 {
			continue
		}
		scale := model.ScaleType(parts[2])
		if !model.ValidScale(scale) {
			continue
		}
		return model.KeySpec{RootPC: pc, Scale: scale, DefaultRootOctave: 5}, true
	}
	return model.KeySpec{}, false
}

// rootPCFromBassHistogram returns the pitch class most frequent among
// bassNotes, ties broken toward the lower pitch class, or ok=false when
// bassNotes is empty.
func rootPCFromBassHistogram(bassNotes []model.BassNote) (int, bool) {
	if len(bassNotes) == 0 {
		return 0, false
	}
	var hist [12]int
	for _, bn := range bassNotes {
		hist[mod12(bn.Pitch)]++
	}
	best, bestCount := 0, -1
	for pc, count := range hist {
		if count > bestCount {
			best, bestCount = pc, count
		}
	}
	return best, true
}

// Generate runs the full lead pipeline for cfg against the frozen drum
// grids and the already-generated bass notes (spec.md §4.10).
func Generate(cfg *model.Config, grids []model.SlotGrid, bassNotes []model.BassNote, logger *slog.Logger, diag *model.Diagnostics) ([]model.LeadNote, error) {
	if !cfg.Lead.Enabled {
		return nil, nil
	}
	if !model.ValidScale(cfg.Lead.ScaleType) {
		return nil, fmt.Errorf("lead scale_type %q: %w", cfg.Lead.ScaleType, model.ErrReferenceMissing)
	}
	key := deriveKeySpec(cfg.Lead, cfg.Bass.SeedTags, bassNotes)
	harmony := DefaultHarmonyTrack(key)

	phraseState := rng.Derive(cfg.Seed, "lead", "phrases")
	phrases := PlanPhrases(cfg.Lead, cfg.Bars, phraseState)

	notes := BuildMotifPlan(cfg.Lead, phrases, grids, cfg.Seed)

	bassPitchByBarStep := make(map[[2]int]int, len(bassNotes))
	for _, bn := range bassNotes {
		bassPitchByBarStep[[2]int{bn.Bar, bn.Step}] = bn.Pitch
	}

	leadNotes := AssignPitches(cfg.Lead, key, harmony, notes, grids, bassPitchByBarStep, cfg.Timebase, cfg.Seed, logger, diag)
	if logger != nil {
		logger.Debug("lead generation complete", "phrases", len(phrases), "notes", len(leadNotes))
	}
	return leadNotes, nil
}
