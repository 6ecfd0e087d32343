package lead

import "github.com/groovegen/groovegen/internal/model"

// DefaultRhythmTemplates returns the small built-in rhythm template
// library of spec.md §4.10: each names the step offsets within a single
// bar where a CALL or RESP phrase produces a logical note.
func DefaultRhythmTemplates() []model.RhythmTemplate {
	return []model.RhythmTemplate{
		{
			Name: "call_sparse", Role: model.RoleCall, MinBars: 1, MaxBars: 4,
			Events: []model.RhythmEvent{
				{StepOffset: 0, LengthSteps: 4, AnchorType: "bar_start"},
				{StepOffset: 6, LengthSteps: 2, AnchorType: "post_kick"},
				{StepOffset: 10, LengthSteps: 2, AnchorType: "post_kick"},
			},
		},
		{
			Name: "call_syncopated", Role: model.RoleCall, MinBars: 1, MaxBars: 4,
			Events: []model.RhythmEvent{
				{StepOffset: 0, LengthSteps: 2, AnchorType: "bar_start"},
				{StepOffset: 3, LengthSteps: 2, Accent: true, AnchorType: "pre_kick"},
				{StepOffset: 7, LengthSteps: 2, AnchorType: "snare_zone"},
				{StepOffset: 11, LengthSteps: 2, AnchorType: "hat_sparse"},
				{StepOffset: 14, LengthSteps: 2, Accent: true, AnchorType: "fill_zone"},
			},
		},
		{
			Name: "resp_resolve", Role: model.RoleResp, MinBars: 1, MaxBars: 4,
			Events: []model.RhythmEvent{
				{StepOffset: 2, LengthSteps: 2, AnchorType: "post_kick"},
				{StepOffset: 8, LengthSteps: 4, Accent: true, AnchorType: "snare_zone"},
				{StepOffset: 14, LengthSteps: 2, AnchorType: "bar_end"},
			},
		},
		{
			Name: "resp_dense", Role: model.RoleResp, MinBars: 1, MaxBars: 4,
			Events: []model.RhythmEvent{
				{StepOffset: 0, LengthSteps: 2, AnchorType: "bar_start"},
				{StepOffset: 4, LengthSteps: 2, AnchorType: "is_kick"},
				{StepOffset: 7, LengthSteps: 1, AnchorType: "hat_dense"},
				{StepOffset: 9, LengthSteps: 2, AnchorType: "post_kick"},
				{StepOffset: 12, LengthSteps: 2, Accent: true, AnchorType: "snare_zone"},
			},
		},
	}
}

// DefaultContourTemplates supplies the degree-interval shapes fused with
// a rhythm template's step positions (spec.md §4.10).
func DefaultContourTemplates() []model.ContourTemplate {
	return []model.ContourTemplate{
		{
			Name: "rising_call", Role: model.RoleCall,
			DegreeIntervals: []int{0, 1, 2, 3, 2},
			EmphasisIndices: []int{0, 3},
			TensionProfile:  []model.TensionLabel{model.TensionNone, model.TensionNone, model.TensionBuild, model.TensionBuild, model.TensionNone},
		},
		{
			Name: "arc_call", Role: model.RoleCall,
			DegreeIntervals: []int{2, 3, 4, 3, 1, 0},
			EmphasisIndices: []int{2},
			TensionProfile:  []model.TensionLabel{model.TensionNone, model.TensionBuild, model.TensionBuild, model.TensionNone, model.TensionNone, model.TensionResolve},
		},
		{
			Name: "falling_resp", Role: model.RoleResp,
			DegreeIntervals: []int{4, 2, 1, 0},
			EmphasisIndices: []int{0},
			TensionProfile:  []model.TensionLabel{model.TensionBuild, model.TensionNone, model.TensionNone, model.TensionResolve},
		},
		{
			Name: "settle_resp", Role: model.RoleResp,
			DegreeIntervals: []int{1, 3, 2, 0, 0},
			EmphasisIndices: []int{1, 3},
			TensionProfile:  []model.TensionLabel{model.TensionNone, model.TensionBuild, model.TensionNone, model.TensionResolve, model.TensionResolve},
		},
	}
}

func rhythmTemplatesForRole(templates []model.RhythmTemplate, role model.PhraseRole) []model.RhythmTemplate {
	var out []model.RhythmTemplate
	for _, t := range templates {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}

func contourTemplatesForRole(templates []model.ContourTemplate, role model.PhraseRole) []model.ContourTemplate {
	var out []model.ContourTemplate
	for _, t := range templates {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}
