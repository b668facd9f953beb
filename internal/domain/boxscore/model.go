package boxscore

// Line is one player's counting line in one game, folded from play-by-play
// events for games with coverage. Lines are fully replaced per season on
// each derivation run.
type Line struct {
	GameID          int64
	SeasonID        int64
	PlayerID        int64
	TeamID          int64
	Goals           int
	Assists         int
	Points          int
	Shots           int
	Blocks          int
	Hits            int
	FaceoffWins     int
	FaceoffAttempts int
	PenaltyMinutes  float64
	GameScore       float64
}
