package team

import (
	"fmt"
	"strings"
)

// Team is league reference data keyed by the upstream team id.
//
// Provisional teams are discovered from schedule rows before the teams feed
// lists them (expansion franchises mid-announcement); they get completed in
// place once a teams feed carries the full record.
type Team struct {
	ID           int64
	Name         string
	City         string
	Code         string
	Nickname     string
	DivisionID   *int64
	DivisionName string
	Provisional  bool
}

func (t Team) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}

// NormalizeCode uppercases and trims a team short code for matching.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeName lowercases and collapses whitespace in a display name so the
// same club matches across sources that format it differently.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
