package analytics

import "fmt"

// ModelVersion tags every derived row with the parameter set that produced
// it, so recomputed seasons are distinguishable from rows built under older
// weights.
const ModelVersion = "v1"

// ModelParams holds the weighting constants for the derivation models. The
// numbers are deliberately plain data: tests assert ordering and bounds
// properties, and a new version means a new parameter set, not new code.
type ModelParams struct {
	Version string

	// Shot location bands. SlotBase applies when the y coordinate falls
	// inside [SlotYMin, SlotYMax]; everything else (including shots with no
	// coordinate) takes OuterBase.
	SlotYMin  float64
	SlotYMax  float64
	SlotBase  float64
	OuterBase float64

	// Multiplier per archive shot-type code; unknown codes fall back to 1.
	ShotTypeMultipliers map[int]float64

	// Multiplier per archive quality code; unknown codes fall back to 1.
	QualityMultipliers map[int]float64

	// Strength-state multipliers applied when penalty coverage lets the
	// state be determined.
	PowerPlayMultiplier   float64
	ShortHandedMultiplier float64

	// Hard ceiling on a single shot's xG.
	XGCap float64

	// Estimation mode: blend weights between position rate and volume
	// bucket rate, volume bucket upper bounds, and the regression weight
	// pulling low-volume shooters toward the blended rate.
	PositionRateWeight  float64
	VolumeRateWeight    float64
	DefaultShootingRate float64
	VolumeBuckets       []VolumeBucket

	// GSAx estimation fallback when no measured season qualifies.
	DefaultSavePct             float64
	MinGoalieGamesForLeagueAvg int

	// Game score coefficients.
	GameScoreGoal       float64
	GameScoreAssist     float64
	GameScoreShot       float64
	GameScoreBlock      float64
	GameScorePIM        float64
	GameScoreFaceoffWin float64

	// Ice-time estimation, minutes per game by position class.
	EstimatedTOIDefense int
	EstimatedTOIForward int

	// Clutch goals count from this period onward (3 = third period and OT).
	ClutchPeriod int
}

// VolumeBucket maps a season shot volume below Limit to an estimation
// regression weight. Buckets must be sorted ascending; the final bucket's
// Limit is ignored and acts as the catch-all.
type VolumeBucket struct {
	Limit      int
	Regression float64
}

// DefaultParams returns the v1 production parameter set.
func DefaultParams() ModelParams {
	return ModelParams{
		Version:   ModelVersion,
		SlotYMin:  100,
		SlotYMax:  200,
		SlotBase:  0.12,
		OuterBase: 0.04,
		ShotTypeMultipliers: map[int]float64{
			1: 1.40, // snap
			2: 1.00, // wrist
			3: 1.19, // slap
			4: 1.25, // backhand
			5: 1.25, // default
			6: 1.82, // tip
		},
		QualityMultipliers: map[int]float64{
			1: 1.15,
			5: 1.15,
			2: 0.85,
			6: 0.85,
		},
		PowerPlayMultiplier:   1.10,
		ShortHandedMultiplier: 0.85,
		XGCap:                 0.25,

		PositionRateWeight:  0.6,
		VolumeRateWeight:    0.4,
		DefaultShootingRate: 0.10,
		VolumeBuckets: []VolumeBucket{
			{Limit: 20, Regression: 0.8},
			{Limit: 50, Regression: 0.6},
			{Limit: 80, Regression: 0.4},
			{Limit: 0, Regression: 0.4},
		},

		DefaultSavePct:             0.91,
		MinGoalieGamesForLeagueAvg: 5,

		GameScoreGoal:       1.0,
		GameScoreAssist:     0.75,
		GameScoreShot:       0.5,
		GameScoreBlock:      0.15,
		GameScorePIM:        -0.35,
		GameScoreFaceoffWin: 0.01,

		EstimatedTOIDefense: 20,
		EstimatedTOIForward: 15,

		ClutchPeriod: 3,
	}
}

func (p ModelParams) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("model params version is required")
	}
	if p.SlotBase <= p.OuterBase {
		return fmt.Errorf("slot base must exceed outer base")
	}
	if p.XGCap <= 0 || p.XGCap > 1 {
		return fmt.Errorf("xg cap must be in (0, 1]")
	}
	if p.PositionRateWeight+p.VolumeRateWeight != 1.0 {
		return fmt.Errorf("estimation blend weights must sum to 1")
	}
	if len(p.VolumeBuckets) == 0 {
		return fmt.Errorf("volume buckets are required")
	}
	if p.DefaultSavePct <= 0 || p.DefaultSavePct >= 1 {
		return fmt.Errorf("default save pct must be in (0, 1)")
	}
	if p.EstimatedTOIDefense <= 0 || p.EstimatedTOIForward <= 0 {
		return fmt.Errorf("estimated ice time must be positive")
	}

	return nil
}
