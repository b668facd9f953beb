package skaterstats

// SeasonLine is one skater's season aggregate for one team, keyed by
// (player, team, season). Source columns come from the skaters stat feed;
// the Derived block is recomputed from events and may be NULL until a
// derivation run has covered the season.
type SeasonLine struct {
	PlayerID         int64
	TeamID           int64
	SeasonID         int64
	GamesPlayed      int
	Goals            int
	Assists          int
	Points           int
	PlusMinus        int
	PenaltyMinutes   float64
	Shots            int
	Hits             int
	PPGoals          int
	PPAssists        int
	SHGoals          int
	SHAssists        int
	GameWinningGoals int
	FirstGoals       int
	InsuranceGoals   int
	EmptyNetGoals    int
	OvertimeGoals    int
	ShootoutGoals    int
	ShootoutAttempts int
	FaceoffWins      int
	FaceoffAttempts  int
	IceTimeSeconds   *int
	TOIEstimated     bool

	Derived Derived
}

// Derived carries the event-computed extensions. Per-60 rates are nil when
// ice time is zero or unknown; they are never zero-filled.
type Derived struct {
	ShootingPct     *float64
	PointsPer60     *float64
	GoalsPer60      *float64
	AssistsPer60    *float64
	ShotsPer60      *float64
	FaceoffWins     int
	FaceoffAttempts int
	FaceoffPct      *float64
	Blocks          int
	ClutchGoals     int
	IPP             *float64
	GameScoreTotal  *float64
	GameScoreAvg    *float64
}
