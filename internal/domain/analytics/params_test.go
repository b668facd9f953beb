package analytics

import "testing"

func TestDefaultParamsValidate(t *testing.T) {
	t.Parallel()

	params := DefaultParams()
	if err := params.Validate(); err != nil {
		t.Fatalf("default params must validate: %v", err)
	}
	if params.Version != ModelVersion {
		t.Fatalf("unexpected version: got=%q want=%q", params.Version, ModelVersion)
	}
}

func TestParamsOrderingProperties(t *testing.T) {
	t.Parallel()

	params := DefaultParams()

	// Slot shots must be worth more than perimeter shots, tips more than
	// wrist shots, and high quality more than low quality. Exact values are
	// a versioned choice, the ordering is the model's contract.
	if params.SlotBase <= params.OuterBase {
		t.Fatalf("slot base must exceed outer base: slot=%v outer=%v", params.SlotBase, params.OuterBase)
	}
	if params.ShotTypeMultipliers[6] <= params.ShotTypeMultipliers[2] {
		t.Fatalf("tip multiplier must exceed wrist: tip=%v wrist=%v",
			params.ShotTypeMultipliers[6], params.ShotTypeMultipliers[2])
	}
	if params.QualityMultipliers[1] <= params.QualityMultipliers[2] {
		t.Fatalf("high quality must exceed low quality: high=%v low=%v",
			params.QualityMultipliers[1], params.QualityMultipliers[2])
	}
	if params.PowerPlayMultiplier <= 1 || params.ShortHandedMultiplier >= 1 {
		t.Fatalf("strength multipliers must straddle even strength: pp=%v sh=%v",
			params.PowerPlayMultiplier, params.ShortHandedMultiplier)
	}
}

func TestParamsValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*ModelParams)
	}{
		{name: "missing version", mutate: func(p *ModelParams) { p.Version = "" }},
		{name: "inverted bases", mutate: func(p *ModelParams) { p.SlotBase = p.OuterBase }},
		{name: "cap above one", mutate: func(p *ModelParams) { p.XGCap = 1.5 }},
		{name: "blend not normalized", mutate: func(p *ModelParams) { p.PositionRateWeight = 0.9 }},
		{name: "no volume buckets", mutate: func(p *ModelParams) { p.VolumeBuckets = nil }},
		{name: "save pct out of range", mutate: func(p *ModelParams) { p.DefaultSavePct = 1.2 }},
		{name: "zero ice time estimate", mutate: func(p *ModelParams) { p.EstimatedTOIForward = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			params := DefaultParams()
			tc.mutate(&params)
			if err := params.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
