// Package bass implements the groove bass engine of spec.md §4.8: for
// each bar it selects a BassMode, scores the frozen drum SlotGrid's 16
// steps against that mode's preferences, greedily picks a note set
// under hard placement constraints, and carries a light pitch motif
// forward across bars with bar-boundary variation.
package bass

import (
	"log/slog"
	"math"
	"sort"

	"github.com/groovegen/groovegen/internal/model"
	"github.com/groovegen/groovegen/internal/rng"
)

const maxAttempts = 4

// SelectMode resolves the bass mode for bar, honouring a fixed mode or
// per-bar override before falling back to the seed-tag mapping table of
// spec.md §4.8, and finally an energy-band ladder.
func SelectMode(cfg model.BassConfig, bar int, grid model.SlotGrid) model.BassMode {
	if cfg.FixedMode != "" {
		return cfg.FixedMode
	}
	if bar < len(cfg.ModeByBar) && cfg.ModeByBar[bar] != "" {
		return cfg.ModeByBar[bar]
	}
	for _, tag := range cfg.SeedTags {
		if candidates, ok := tagModeCandidates[tag]; ok {
			return candidates[int(Energy(grid)*float64(len(candidates)))%len(candidates)]
		}
	}
	idx := int(Energy(grid) * float64(len(energyBandLadder)))
	if idx >= len(energyBandLadder) {
		idx = len(energyBandLadder) - 1
	}
	return energyBandLadder[idx]
}

// Energy is a coarse [0,1] proxy for a bar's drum intensity, used only to
// pick a mode when no seed tag applies: the fraction of steps carrying a
// kick, snare/clap, or non-sparse hat label.
func Energy(grid model.SlotGrid) float64 {
	active := 0
	for _, s := range grid.Slots {
		if s.IsKick || s.SnareZone || !s.HatSparse {
			active++
		}
	}
	return float64(active) / float64(model.StepsPerBar)
}

// Generate produces the full bass note stream across every bar of grids,
// deriving a per-bar RNG state from cfg.Seed (spec.md §4.1) and persisting
// a step-occupancy/pitch motif across bars for continuity (spec.md §4.8).
func Generate(cfg *model.Config, grids []model.SlotGrid, logger *slog.Logger, diag *model.Diagnostics) ([]model.BassNote, error) {
	if !cfg.Bass.Enabled {
		return nil, nil
	}
	if err := validateBassConfig(cfg.Bass); err != nil {
		return nil, err
	}
	profiles := DefaultModeProfiles()
	weights := cfg.Bass.Weights
	if weights == (model.ScoringWeights{}) {
		weights = model.DefaultScoringWeights()
	}

	var notes []model.BassNote
	var prevOccupied [model.StepsPerBar]bool
	var prevPitchMotif []int
	havePrev := false

	for bar, grid := range grids {
		profile := profiles[SelectMode(cfg.Bass, bar, grid)]
		stickiness, mutateCount := boundaryShape(bar)
		if !havePrev {
			stickiness = 0
		}

		barNotes, occupied, pitchMotif := generateBar(bar, grid, profile, weights, cfg.Bass.RootNote,
			prevOccupied, havePrev, stickiness, mutateCount, prevPitchMotif, cfg.Seed, logger, diag)

		notes = append(notes, barNotes...)
		prevOccupied = occupied
		prevPitchMotif = pitchMotif
		havePrev = true
	}
	if logger != nil {
		logger.Debug("bass generation complete", "bars", len(grids), "notes", len(notes))
	}
	return notes, nil
}

func validateBassConfig(cfg model.BassConfig) error {
	if cfg.RegisterGravityCenter != 0 && (cfg.RegisterGravityCenter < 0 || cfg.RegisterGravityCenter > 127) {
		return model.ErrInvalidConfiguration
	}
	return nil
}

// boundaryShape returns the step-reuse stickiness and pitch-mutation
// count for bar, per spec.md §4.8's "bar-boundary variation": motifs
// loosen at the 2-, 4- and 8-bar hierarchy boundaries.
func boundaryShape(bar int) (stickiness float64, mutateCount int) {
	if bar == 0 {
		return 0, 0
	}
	stickiness, mutateCount = 0.85, 0
	if bar%2 == 0 {
		stickiness, mutateCount = 0.6, 1
	}
	if bar%4 == 0 {
		stickiness, mutateCount = 0.4, 2
	}
	if bar%8 == 0 {
		stickiness, mutateCount = 0.2, 3
	}
	return stickiness, mutateCount
}

func generateBar(bar int, grid model.SlotGrid, profile model.ModeProfile, weights model.ScoringWeights, root int,
	prevOccupied [model.StepsPerBar]bool, havePrev bool, stickiness float64, mutateCount int,
	prevPitchMotif []int, seed int64, logger *slog.Logger, diag *model.Diagnostics) ([]model.BassNote, [model.StepsPerBar]bool, []int) {

	relaxKickOverlap := false
	relaxGap := false
	var chosen []int
	var attempt int

	for attempt = 0; attempt < maxAttempts+2; attempt++ {
		workingProfile := profile
		if relaxKickOverlap {
			workingProfile.ForbidKickOverlap = false
		}
		if relaxGap {
			workingProfile.MinInterNoteGapSteps = 1
		}
		state := rng.Derive(seed, "bass", bar, attempt)
		chosen = buildBar(grid, workingProfile, weights, prevOccupied, stickiness, state)
		if len(chosen) > 0 {
			break
		}
		if attempt == maxAttempts-1 && !relaxKickOverlap {
			relaxKickOverlap = true
			if diag != nil {
				diag.AddBassRelaxation(bar, attempt, "kick_overlap", "no placeable step under kick-avoidance constraint")
			}
			if logger != nil {
				logger.Warn("bass relaxing kick-overlap constraint", "bar", bar, "attempt", attempt)
			}
		} else if attempt == maxAttempts && !relaxGap {
			relaxGap = true
			if diag != nil {
				diag.AddBassRelaxation(bar, attempt, "density", "no placeable step under min-gap constraint")
			}
			if logger != nil {
				logger.Warn("bass relaxing min-gap constraint", "bar", bar, "attempt", attempt)
			}
		}
	}

	var occupied [model.StepsPerBar]bool
	for _, s := range chosen {
		occupied[s] = true
	}

	if havePrev && len(chosen) > 0 {
		if coherence(occupied, prevOccupied) < 0.5 && stickiness >= 0.6 {
			if diag != nil {
				diag.AddBassRelaxation(bar, attempt, "motif_coherence", "step overlap with previous bar fell below 0.5 despite high stickiness")
			}
			if logger != nil {
				logger.Warn("bass motif coherence dropped despite high stickiness", "bar", bar)
			}
		}
	}

	pitchMotif := buildPitchMotif(len(chosen), prevPitchMotif, mutateCount, len(profile.PitchPool), rng.Derive(seed, "bass", "pitch", bar))

	notes := make([]model.BassNote, 0, len(chosen))
	for i, step := range chosen {
		entry := profile.PitchPool[pitchMotif[i]%len(profile.PitchPool)]
		pitch := clampToRegister(resolvePitch(entry, root), profile.RegisterLo, profile.RegisterHi)
		gap := nextGapSteps(chosen, i)
		duration := math.Max(0.25, math.Min(4.0, float64(gap)/4.0*0.9))
		velocity := 92
		if grid.Slots[step].BeatStrength() == "strong" {
			velocity = 108
		}
		notes = append(notes, model.BassNote{
			Bar:           bar,
			Step:          step,
			Pitch:         pitch,
			StartBeat:     float64(step) / 4.0,
			DurationBeats: duration,
			Velocity:      velocity,
			Meta:          string(profile.Mode),
		})
	}
	return notes, occupied, pitchMotif
}

// buildBar greedily selects step indices under hard placement
// constraints (canPlace), breaking ties by highest composite slot score
// plus a stickiness bonus toward the previous bar's occupied steps.
func buildBar(grid model.SlotGrid, profile model.ModeProfile, weights model.ScoringWeights,
	prevOccupied [model.StepsPerBar]bool, stickiness float64, state *rng.State) []int {

	target := int(math.Round((profile.DensityMin + state.Float64()*(profile.DensityMax-profile.DensityMin)) * model.StepsPerBar))
	if target < 1 {
		target = 1
	}

	var occupied [model.StepsPerBar]bool
	var chosen []int
	for len(chosen) < target {
		bestStep := -1
		bestScore := math.Inf(-1)
		for s := 0; s < model.StepsPerBar; s++ {
			if occupied[s] || !canPlace(s, occupied, grid, profile) {
				continue
			}
			score := scoreSlot(grid, profile, weights, occupied, s)
			if prevOccupied[s] {
				score += stickiness
			}
			if score > bestScore {
				bestScore = score
				bestStep = s
			}
		}
		if bestStep == -1 {
			break
		}
		occupied[bestStep] = true
		chosen = append(chosen, bestStep)
	}
	sort.Ints(chosen)
	return chosen
}

// canPlace enforces the mode's hard constraints (spec.md §4.8): a
// kick-avoiding mode never lands on is_kick (unless bar_start is
// explicitly allowed), and MinInterNoteGapSteps<=1 switches the
// constraint from a minimum spacing check to a maximum-consecutive-run
// check, since the two are mutually exclusive at gap=1.
func canPlace(step int, occupied [model.StepsPerBar]bool, grid model.SlotGrid, profile model.ModeProfile) bool {
	label := grid.Slots[step]
	if profile.ForbidKickOverlap && label.IsKick && !(profile.AllowKickOverlapAtBarStart && label.BarStart) {
		return false
	}
	if profile.MinInterNoteGapSteps > 1 {
		for s := 0; s < model.StepsPerBar; s++ {
			if occupied[s] && circularDist(step, s) < profile.MinInterNoteGapSteps {
				return false
			}
		}
		return true
	}
	if profile.MaxConsecutiveNotes > 0 {
		run := 1
		for d := 1; d < model.StepsPerBar; d++ {
			idx := ((step-d)%model.StepsPerBar + model.StepsPerBar) % model.StepsPerBar
			if !occupied[idx] {
				break
			}
			run++
		}
		for d := 1; d < model.StepsPerBar; d++ {
			idx := (step + d) % model.StepsPerBar
			if !occupied[idx] {
				break
			}
			run++
		}
		if run > profile.MaxConsecutiveNotes {
			return false
		}
	}
	return true
}

// scoreSlot implements the slot scoring formula of spec.md §4.8:
// w_tag*sum(preferred_slot_weights) + w_anchor*anchor_match +
// w_strength*beat_strength + w_density*local_sparsity_bonus -
// w_overlap*overlap_penalty - w_kick_avoid*kick_avoidance.
func scoreSlot(grid model.SlotGrid, profile model.ModeProfile, weights model.ScoringWeights, occupied [model.StepsPerBar]bool, step int) float64 {
	label := grid.Slots[step]

	tagScore := 0.0
	for name, w := range profile.SlotWeights {
		if slotHasLabel(label, name) {
			tagScore += w
		}
	}

	anchorScore := 0.0
	if slotHasLabel(label, profile.AnchorLabel) {
		anchorScore = 1.0
	}

	strength := 0.0
	if label.BeatStrength() == "strong" {
		strength = 1.0
	}

	density := localSparsityBonus(occupied, step)
	overlap := overlapPenalty(occupied, step, profile.MinInterNoteGapSteps)

	kickAvoid := 0.0
	if profile.ForbidKickOverlap && label.IsKick {
		kickAvoid = 1.0
	}

	return weights.WRoleTag*tagScore + weights.WAnchor*anchorScore + weights.WStrength*strength +
		weights.WDensity*density - weights.WOverlap*overlap - weights.WKickAvoid*kickAvoid
}

func slotHasLabel(l model.SlotLabel, name string) bool {
	switch name {
	case "is_kick":
		return l.IsKick
	case "pre_kick":
		return l.PreKick
	case "post_kick":
		return l.PostKick
	case "snare_zone":
		return l.SnareZone
	case "bar_start":
		return l.BarStart
	case "bar_end":
		return l.BarEnd
	case "fill_zone":
		return l.FillZone
	case "hat_dense":
		return l.HatDense
	case "hat_sparse":
		return l.HatSparse
	default:
		return false
	}
}

// localSparsityBonus rewards steps far from any already-chosen step in
// this bar, normalised to [0,1] and saturating at distance 4.
func localSparsityBonus(occupied [model.StepsPerBar]bool, step int) float64 {
	minDist := model.StepsPerBar
	any := false
	for s := 0; s < model.StepsPerBar; s++ {
		if !occupied[s] {
			continue
		}
		any = true
		if d := circularDist(step, s); d < minDist {
			minDist = d
		}
	}
	if !any {
		return 1.0
	}
	if minDist > 4 {
		minDist = 4
	}
	return float64(minDist) / 4.0
}

// overlapPenalty graded-penalises steps that fall within minGap of an
// already-chosen step (0 when minGap<=1, since adjacency is then legal).
func overlapPenalty(occupied [model.StepsPerBar]bool, step, minGap int) float64 {
	if minGap <= 1 {
		return 0
	}
	minDist := model.StepsPerBar
	for s := 0; s < model.StepsPerBar; s++ {
		if !occupied[s] {
			continue
		}
		if d := circularDist(step, s); d < minDist {
			minDist = d
		}
	}
	if minDist >= minGap {
		return 0
	}
	return float64(minGap-minDist) / float64(minGap)
}

func circularDist(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if model.StepsPerBar-d < d {
		return model.StepsPerBar - d
	}
	return d
}

// coherence is the fraction of steps whose occupancy matches between a
// and b, the Hamming-similarity measure spec.md §4.8 names as the
// motif-continuity check.
func coherence(a, b [model.StepsPerBar]bool) float64 {
	match := 0
	for s := 0; s < model.StepsPerBar; s++ {
		if a[s] == b[s] {
			match++
		}
	}
	return float64(match) / float64(model.StepsPerBar)
}

// buildPitchMotif carries a per-rank pool-index assignment across bars,
// resizing to count and mutating mutateCount random ranks (spec.md §4.8
// bar-boundary variation).
func buildPitchMotif(count int, prev []int, mutateCount, poolLen int, state *rng.State) []int {
	if poolLen <= 0 {
		poolLen = 1
	}
	motif := make([]int, count)
	for i := range motif {
		if len(prev) > 0 {
			motif[i] = prev[i%len(prev)]
		}
	}
	for i := 0; i < mutateCount && len(motif) > 0; i++ {
		idx := state.IntRange(0, len(motif)-1)
		motif[idx] = state.IntRange(0, poolLen-1)
	}
	return motif
}

func resolvePitch(entry model.PitchPoolEntry, root int) int {
	switch entry {
	case model.PoolRoot:
		return root
	case model.PoolRootDown12:
		return root - 12
	case model.PoolFifth:
		return root + 7
	case model.PoolRootUp12:
		return root + 12
	case model.PoolMinorSeventh:
		return root + 10
	case model.PoolMajorSecondUp:
		return root + 14
	case model.PoolPassing:
		return root + 2
	default:
		return root
	}
}

func clampToRegister(pitch, lo, hi int) int {
	for pitch < lo {
		pitch += 12
	}
	for pitch > hi {
		pitch -= 12
	}
	return pitch
}

func nextGapSteps(chosen []int, i int) int {
	if i == len(chosen)-1 {
		return model.StepsPerBar - chosen[i]
	}
	return chosen[i+1] - chosen[i]
}
