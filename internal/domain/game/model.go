package game

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusScheduled  = "Scheduled"
	StatusInProgress = "In Progress"
	StatusFinal      = "Final"
	StatusFinalOT    = "Final OT"
	StatusFinalSO    = "Final SO"
)

// Game rows mutate as data arrives (score, status, attendance) until the
// status is terminal, after which re-ingestion of identical data is a no-op.
type Game struct {
	ID             int64
	SeasonID       int64
	HomeTeamID     int64
	VisitingTeamID int64
	HomeScore      *int
	VisitingScore  *int
	Status         string
	Overtime       bool
	Shootout       bool
	ScheduledAt    *time.Time
	VenueName      string
	VenueLocation  string
	Attendance     *int
	DayOfWeek      string
	IsWeekend      bool
}

func (g Game) Validate() error {
	if g.ID <= 0 {
		return fmt.Errorf("game id is required")
	}
	if g.SeasonID <= 0 {
		return fmt.Errorf("game season id is required")
	}
	if g.HomeTeamID <= 0 || g.VisitingTeamID <= 0 {
		return fmt.Errorf("game team ids are required")
	}

	return nil
}

// NormalizeStatus folds the feed's status variants (with or without the
// overtime/shootout flags it sometimes encodes separately) onto the
// canonical set.
func NormalizeStatus(raw string, overtime, shootout bool) string {
	status := strings.TrimSpace(raw)
	if status == "" {
		return StatusScheduled
	}

	lowered := strings.ToLower(status)
	switch {
	case strings.Contains(lowered, "final"):
		if shootout || strings.HasSuffix(lowered, "so") {
			return StatusFinalSO
		}
		if overtime || strings.HasSuffix(lowered, "ot") {
			return StatusFinalOT
		}
		return StatusFinal
	case strings.Contains(lowered, "progress"), strings.Contains(lowered, "live"):
		return StatusInProgress
	default:
		return status
	}
}

// IsFinalStatus reports whether a status is terminal. Aggregates only count
// terminal games.
func IsFinalStatus(status string) bool {
	switch status {
	case StatusFinal, StatusFinalOT, StatusFinalSO:
		return true
	default:
		return false
	}
}

// Outcome categories produced by Result, consumed by the streak fold.
const (
	OutcomeWin     = "W"
	OutcomeLoss    = "L"
	OutcomeOTLoss  = "OTL"
	OutcomeTie     = "T"
	OutcomeUnknown = ""
)

// Result classifies a terminal game from one team's perspective. OT and
// shootout losses are their own category; OT wins count as wins.
func (g Game) Result(teamID int64) string {
	if !IsFinalStatus(g.Status) || g.HomeScore == nil || g.VisitingScore == nil {
		return OutcomeUnknown
	}

	var forGoals, againstGoals int
	switch teamID {
	case g.HomeTeamID:
		forGoals, againstGoals = *g.HomeScore, *g.VisitingScore
	case g.VisitingTeamID:
		forGoals, againstGoals = *g.VisitingScore, *g.HomeScore
	default:
		return OutcomeUnknown
	}

	switch {
	case forGoals > againstGoals:
		return OutcomeWin
	case forGoals < againstGoals:
		if g.Status == StatusFinalOT || g.Status == StatusFinalSO {
			return OutcomeOTLoss
		}
		return OutcomeLoss
	default:
		return OutcomeTie
	}
}

// ApplyCalendar sets the day-of-week metadata from the scheduled time.
func (g *Game) ApplyCalendar() {
	if g.ScheduledAt == nil {
		g.DayOfWeek = ""
		g.IsWeekend = false
		return
	}
	day := g.ScheduledAt.Weekday()
	g.DayOfWeek = day.String()
	g.IsWeekend = day == time.Saturday || day == time.Sunday
}
