package roster

import "fmt"

// Assignment records a player on a team's roster for one season. The
// (player, team, season) triple is the natural key; re-ingestion upserts.
type Assignment struct {
	PlayerID     int64
	TeamID       int64
	SeasonID     int64
	JerseyNumber *int
	Position     string
	Status       string
}

func (a Assignment) Validate() error {
	if a.PlayerID <= 0 {
		return fmt.Errorf("roster player id is required")
	}
	if a.TeamID <= 0 {
		return fmt.Errorf("roster team id is required")
	}
	if a.SeasonID <= 0 {
		return fmt.Errorf("roster season id is required")
	}

	return nil
}
