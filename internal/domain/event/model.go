package event

// Play-by-play rows from the archive. Upserts are keyed by the archive's
// event id and overwrite the full row, so re-ingestion of identical data is
// a no-op while late coordinate backfills still land.
//
// Every kind shares the same locator block: game, season, teams, period and
// elapsed seconds within the period's running clock.

// Shot is a shot on goal (the archive's shots table carries goals too,
// flagged through GoalEventID).
type Shot struct {
	ID             int64
	GameID         int64
	SeasonID       int64
	PlayerID       int64
	GoalieID       *int64
	TeamID         int64
	OpponentTeamID int64
	Home           bool
	Period         int
	ClockTime      string
	GameSeconds    int
	X              *float64
	Y              *float64
	ShotType       *int
	ShotTypeDesc   string
	Quality        *int
	QualityDesc    string
	GoalEventID    *int64
}

// IsGoal reports whether the shot scored. The archive links scoring shots to
// their goal event instead of carrying a boolean.
func (s Shot) IsGoal() bool {
	return s.GoalEventID != nil
}

// HasLocation reports whether the shot carries rink coordinates. Seasons
// where no shot has coordinates derive xG in estimation mode.
func (s Shot) HasLocation() bool {
	return s.X != nil && s.Y != nil
}

type Goal struct {
	ID             int64
	GameID         int64
	SeasonID       int64
	TeamID         int64
	OpponentTeamID int64
	Home           bool
	Period         int
	ClockTime      string
	GameSeconds    int
	X              *float64
	Y              *float64
	ScorerID       int64
	Assist1ID      *int64
	Assist2ID      *int64
	GoalType       string
	PowerPlay      bool
	ShortHanded    bool
	EmptyNet       bool
	PenaltyShot    bool
	Insurance      bool
	GameWinning    bool
	GameTieing     bool
}

type Penalty struct {
	ID             int64
	GameID         int64
	SeasonID       int64
	PlayerID       *int64
	TeamID         int64
	OpponentTeamID int64
	Home           bool
	Period         int
	ClockTime      string
	GameSeconds    int
	Minutes        float64
	Class          string
	Description    string
	Offence        string
	Bench          bool
	PenaltyShot    bool
	PowerPlay      bool
}

// Window returns the penalized team's box window in absolute game seconds.
// Bench infractions served by a skater and penalty shots open no window.
func (p Penalty) Window() (start, end int, ok bool) {
	if p.Bench || p.PenaltyShot || p.Minutes <= 0 {
		return 0, 0, false
	}
	start = absoluteSeconds(p.Period, p.GameSeconds)
	return start, start + int(p.Minutes*60), true
}

type Faceoff struct {
	ID              int64
	GameID          int64
	SeasonID        int64
	HomePlayerID    int64
	VisitorPlayerID int64
	HomeTeamID      int64
	VisitorTeamID   int64
	Period          int
	ClockTime       string
	GameSeconds     int
	LocationID      *int
	HomeWin         bool
	WinTeamID       int64
}

type Hit struct {
	ID             int64
	GameID         int64
	SeasonID       int64
	PlayerID       int64
	TeamID         int64
	OpponentTeamID int64
	Home           bool
	Period         int
	ClockTime      string
	GameSeconds    int
	HitType        *int
}

// BlockedShot attributes the attempt to the shooter's team and the block to
// the blocker's team.
type BlockedShot struct {
	ID            int64
	GameID        int64
	SeasonID      int64
	ShooterID     int64
	ShooterTeamID int64
	BlockerID     int64
	BlockerTeamID int64
	Home          bool
	Period        int
	ClockTime     string
	GameSeconds   int
}

// absoluteSeconds flattens (period, seconds-into-period) onto one game
// clock. Regulation periods run 20 minutes; overtime continues the count.
func absoluteSeconds(period, seconds int) int {
	if period < 1 {
		period = 1
	}
	return (period-1)*1200 + seconds
}

// AbsoluteSeconds is the exported form used by derivation when ordering
// events across periods.
func AbsoluteSeconds(period, seconds int) int {
	return absoluteSeconds(period, seconds)
}
