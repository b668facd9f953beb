package teamstats

// SeasonLine is one team's standings row for a season, keyed by
// (team, season). Source columns come from the standings feed; Derived is
// recomputed from games and events.
type SeasonLine struct {
	TeamID           int64
	SeasonID         int64
	GamesPlayed      int
	Wins             int
	Losses           int
	OTLosses         int
	ShootoutWins     int
	RegulationWins   int
	ROW              int
	Points           int
	WinPct           *float64
	GoalsFor         int
	GoalsAgainst     int
	PowerPlayPct     *float64
	PenaltyKillPct   *float64
	ShootoutPct      *float64
	HomeRecord       string
	VisitingRecord   string
	PastTen          string
	StreakLabel      string
	Rank             *int
	ClinchedPlayoffs bool

	Derived Derived
}

// Derived carries event- and game-computed extensions. Percentages are
// fractions in [0,1]; PDO stays in percentage form centered at 100. A nil
// value means the season lacked the event coverage to compute it.
type Derived struct {
	CorsiFor         int
	CorsiAgainst     int
	CorsiPct         *float64
	FenwickFor       int
	FenwickAgainst   int
	FenwickPct       *float64
	PDO              *float64
	HomeWins         int
	HomeLosses       int
	HomeOTLosses     int
	HomeGoalsFor     int
	HomeGoalsAgainst int
	AwayWins         int
	AwayLosses       int
	AwayOTLosses     int
	AwayGoalsFor     int
	AwayGoalsAgainst int
}
