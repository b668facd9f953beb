package usecase

import (
	"sort"

	"github.com/jmorneau/rinkstats/internal/domain/boxscore"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	"github.com/jmorneau/rinkstats/internal/domain/skaterstats"
)

// deriveSkaterStats extends every feed skater line with event-computed
// metrics. The first return value carries ice-time estimates for lines the
// feed left without TOI; the second carries the full derived block for every
// line. Per-60 rates computed over an estimated TOI inherit its flag.
func (s *DerivationService) deriveSkaterStats(ds *seasonDataset, lines []boxscore.Line) ([]skaterstats.SeasonLine, []skaterstats.SeasonLine) {
	type key struct {
		playerID int64
		teamID   int64
	}

	faceoffWins := make(map[key]int)
	faceoffAttempts := make(map[key]int)
	for _, faceoff := range ds.faceoffs {
		home := key{playerID: faceoff.HomePlayerID, teamID: faceoff.HomeTeamID}
		visitor := key{playerID: faceoff.VisitorPlayerID, teamID: faceoff.VisitorTeamID}
		faceoffAttempts[home]++
		faceoffAttempts[visitor]++
		if faceoff.HomeWin {
			faceoffWins[home]++
		} else {
			faceoffWins[visitor]++
		}
	}

	blocks := make(map[key]int)
	for _, block := range ds.blocked {
		blocks[key{playerID: block.BlockerID, teamID: block.BlockerTeamID}]++
	}

	clutchGoals := make(map[key]int)
	for _, goal := range ds.goals {
		if goal.Period >= s.params.ClutchPeriod {
			clutchGoals[key{playerID: goal.ScorerID, teamID: goal.TeamID}]++
		}
	}

	gameScoreTotal := make(map[key]float64)
	gameScoreGames := make(map[key]int)
	for _, line := range lines {
		k := key{playerID: line.PlayerID, teamID: line.TeamID}
		gameScoreTotal[k] += line.GameScore
		gameScoreGames[k]++
	}

	// Team season goals back individual point percentage. The standings
	// total is the closest season-wide figure available when event coverage
	// is partial.
	teamGoals := make(map[int64]int, len(ds.teams))
	for _, team := range ds.teams {
		teamGoals[team.TeamID] = team.GoalsFor
	}

	estimates := make([]skaterstats.SeasonLine, 0)
	derived := make([]skaterstats.SeasonLine, 0, len(ds.skaters))
	for _, line := range ds.skaters {
		k := key{playerID: line.PlayerID, teamID: line.TeamID}

		if line.IceTimeSeconds == nil && line.GamesPlayed > 0 {
			minutes := s.params.EstimatedTOIForward
			if ds.positionClass(line.PlayerID) == player.ClassDefense {
				minutes = s.params.EstimatedTOIDefense
			}
			seconds := line.GamesPlayed * minutes * 60
			line.IceTimeSeconds = &seconds
			line.TOIEstimated = true
			estimates = append(estimates, line)
		}

		d := skaterstats.Derived{
			FaceoffWins:     faceoffWins[k],
			FaceoffAttempts: faceoffAttempts[k],
			Blocks:          blocks[k],
			ClutchGoals:     clutchGoals[k],
		}

		// Shooting percentage is zero without shots, not unknown.
		shootingPct := 0.0
		if line.Shots > 0 {
			shootingPct = 100 * float64(line.Goals) / float64(line.Shots)
		}
		d.ShootingPct = &shootingPct

		if line.IceTimeSeconds != nil && *line.IceTimeSeconds > 0 {
			toi := float64(*line.IceTimeSeconds)
			d.PointsPer60 = ratePer60(line.Points, toi)
			d.GoalsPer60 = ratePer60(line.Goals, toi)
			d.AssistsPer60 = ratePer60(line.Assists, toi)
			d.ShotsPer60 = ratePer60(line.Shots, toi)
		}

		if d.FaceoffAttempts > 0 {
			pct := 100 * float64(d.FaceoffWins) / float64(d.FaceoffAttempts)
			d.FaceoffPct = &pct
		}

		if goals := teamGoals[line.TeamID]; goals > 0 {
			ipp := 100 * float64(line.Points) / float64(goals)
			d.IPP = &ipp
		}

		if games := gameScoreGames[k]; games > 0 {
			total := gameScoreTotal[k]
			avg := total / float64(games)
			d.GameScoreTotal = &total
			d.GameScoreAvg = &avg
		}

		line.Derived = d
		derived = append(derived, line)
	}

	sort.Slice(derived, func(i, j int) bool {
		if derived[i].PlayerID != derived[j].PlayerID {
			return derived[i].PlayerID < derived[j].PlayerID
		}
		return derived[i].TeamID < derived[j].TeamID
	})

	return estimates, derived
}

func ratePer60(stat int, toiSeconds float64) *float64 {
	rate := float64(stat) * 3600 / toiSeconds
	return &rate
}
