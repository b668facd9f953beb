package goaliestats

// SeasonLine is one goalie's season aggregate for one team, keyed by
// (player, team, season), sourced from the goalies stat feed.
type SeasonLine struct {
	PlayerID       int64
	TeamID         int64
	SeasonID       int64
	GamesPlayed    int
	Wins           int
	Losses         int
	OTLosses       int
	ShootoutLosses int
	SecondsPlayed  int
	ShotsAgainst   int
	Saves          int
	GoalsAgainst   int
	GAA            *float64
	SavePct        *float64
	Shutouts       int
}
