package analytics

// Provenance distinguishes metrics computed from real shot coordinates from
// metrics approximated out of aggregate totals. The flag propagates to every
// aggregate built on top of a derived value; no derived row goes unflagged.
const (
	ProvenanceMeasured  = "measured"
	ProvenanceEstimated = "estimated"
)

// Strength states attached to measured shot xG.
const (
	StrengthEven        = "EV"
	StrengthPowerPlay   = "PP"
	StrengthShortHanded = "SH"
)

// ShotXG is the per-shot expected goals value for a season with coordinate
// coverage.
type ShotXG struct {
	ShotID       int64
	GameID       int64
	SeasonID     int64
	PlayerID     int64
	TeamID       int64
	GoalieID     *int64
	XG           float64
	Strength     string
	IsGoal       bool
	ModelVersion string
}

// PlayerXG is the season rollup per (player, team, season).
type PlayerXG struct {
	PlayerID           int64
	TeamID             int64
	SeasonID           int64
	Shots              int
	Goals              int
	XG                 float64
	GoalsAboveExpected float64
	Provenance         string
	ModelVersion       string
}

// GoalieGSAx is goals saved above expected per (goalie, team, season).
type GoalieGSAx struct {
	GoalieID      int64
	TeamID        int64
	SeasonID      int64
	ShotsFaced    int
	GoalsAgainst  int
	ExpectedGoals float64
	GSAx          float64
	Provenance    string
	ModelVersion  string
}

// TeamStreak is the fold over a team's date-ordered final games in one
// season. A point streak counts wins and overtime/shootout losses.
type TeamStreak struct {
	TeamID        int64
	SeasonID      int64
	CurrentKind   string
	CurrentLength int
	LongestWin    int
	LongestLoss   int
	LongestPoint  int
}

// HeadToHead aggregates final games between an unordered team pair within a
// season. Team1ID is always the lower id.
type HeadToHead struct {
	SeasonID   int64
	Team1ID    int64
	Team2ID    int64
	Games      int
	Team1Wins  int
	Team2Wins  int
	Ties       int
	Team1Goals int
	Team2Goals int
	GameIDs    []int64
}

// VenueStat aggregates a team's home results per venue within a season.
type VenueStat struct {
	SeasonID     int64
	TeamID       int64
	VenueName    string
	Games        int
	Wins         int
	Losses       int
	GoalsFor     int
	GoalsAgainst int
	GameIDs      []int64
}
