package player

import (
	"fmt"
	"strings"
	"time"
)

// PositionClass groups raw feed positions into skater/goalie buckets used by
// derivation (ice-time estimation, xG shooting rates).
type PositionClass string

const (
	ClassForward PositionClass = "F"
	ClassDefense PositionClass = "D"
	ClassGoalie  PositionClass = "G"
)

// Identity ref sources. The API and the archive key players differently, so
// every resolved record leaves a ref row behind.
const (
	SourceLeagueStat = "leaguestat"
	SourceArchive    = "archive"
)

// Match confidence recorded on a ref. Low-confidence natural-key matches are
// kept auditable instead of silently merged.
const (
	ConfidenceExact   = "exact"
	ConfidenceNatural = "natural"
	ConfidenceLow     = "low"
)

// Player is biographical reference data. Rows are never deleted, only
// flagged inactive when a player stops appearing in rosters.
type Player struct {
	ID            int64
	FirstName     string
	LastName      string
	Position      string
	PositionClass PositionClass
	Shoots        string
	Catches       string
	Height        string
	Weight        *int
	BirthDate     *time.Time
	Hometown      string
	HomeProvince  string
	BirthCountry  string
	Rookie        bool
	Veteran       bool
	ImageURL      string
	Active        bool
}

func (p Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Player) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id is required")
	}
	if strings.TrimSpace(p.FirstName) == "" && strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("player name is required")
	}

	return nil
}

// ExternalRef links a source-local key to a resolved player id.
type ExternalRef struct {
	Source      string
	ExternalKey string
	PlayerID    int64
	Confidence  string
}

// ClassifyPosition maps raw feed positions onto F/D/G.
func ClassifyPosition(position string) PositionClass {
	switch strings.ToUpper(strings.TrimSpace(position)) {
	case "G", "GK":
		return ClassGoalie
	case "D", "LD", "RD":
		return ClassDefense
	default:
		return ClassForward
	}
}

// NaturalKey builds the composite fallback key used when no external ref
// exists: normalized full name plus birth date. Callers must treat a key
// built without a birth date as low confidence.
func NaturalKey(firstName, lastName string, birthDate *time.Time) string {
	name := strings.Join(strings.Fields(strings.ToLower(firstName+" "+lastName)), " ")
	if birthDate == nil {
		return name
	}
	return name + "|" + birthDate.Format("2006-01-02")
}

// SplitNaturalKey reverses NaturalKey. A malformed date segment is dropped
// rather than failing the whole lookup.
func SplitNaturalKey(key string) (string, *time.Time) {
	name, datePart, found := strings.Cut(key, "|")
	name = strings.TrimSpace(name)
	if !found {
		return name, nil
	}
	parsed, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return name, nil
	}
	return name, &parsed
}
