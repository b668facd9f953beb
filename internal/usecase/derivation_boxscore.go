package usecase

import (
	"sort"

	"github.com/jmorneau/rinkstats/internal/domain/boxscore"
)

// foldBoxscoreLines builds per (game, player, team) counting lines from the
// season's events, for final games only. The shots table already includes
// scoring shots, so shots-on-goal needs no goal adjustment; assists credit
// both the primary and secondary helper.
func (s *DerivationService) foldBoxscoreLines(ds *seasonDataset) []boxscore.Line {
	type key struct {
		gameID   int64
		playerID int64
		teamID   int64
	}
	agg := make(map[key]*boxscore.Line)
	touch := func(gameID, playerID, teamID int64) *boxscore.Line {
		k := key{gameID: gameID, playerID: playerID, teamID: teamID}
		line, ok := agg[k]
		if !ok {
			line = &boxscore.Line{
				GameID:   gameID,
				SeasonID: ds.seasonID,
				PlayerID: playerID,
				TeamID:   teamID,
			}
			agg[k] = line
		}
		return line
	}

	for _, shot := range ds.shots {
		if !ds.isFinal(shot.GameID) {
			continue
		}
		touch(shot.GameID, shot.PlayerID, shot.TeamID).Shots++
	}
	for _, goal := range ds.goals {
		if !ds.isFinal(goal.GameID) {
			continue
		}
		touch(goal.GameID, goal.ScorerID, goal.TeamID).Goals++
		if goal.Assist1ID != nil {
			touch(goal.GameID, *goal.Assist1ID, goal.TeamID).Assists++
		}
		if goal.Assist2ID != nil {
			touch(goal.GameID, *goal.Assist2ID, goal.TeamID).Assists++
		}
	}
	for _, penalty := range ds.penalties {
		if !ds.isFinal(penalty.GameID) || penalty.PlayerID == nil {
			continue
		}
		touch(penalty.GameID, *penalty.PlayerID, penalty.TeamID).PenaltyMinutes += penalty.Minutes
	}
	for _, faceoff := range ds.faceoffs {
		if !ds.isFinal(faceoff.GameID) {
			continue
		}
		home := touch(faceoff.GameID, faceoff.HomePlayerID, faceoff.HomeTeamID)
		visitor := touch(faceoff.GameID, faceoff.VisitorPlayerID, faceoff.VisitorTeamID)
		home.FaceoffAttempts++
		visitor.FaceoffAttempts++
		if faceoff.HomeWin {
			home.FaceoffWins++
		} else {
			visitor.FaceoffWins++
		}
	}
	for _, hit := range ds.hits {
		if !ds.isFinal(hit.GameID) {
			continue
		}
		touch(hit.GameID, hit.PlayerID, hit.TeamID).Hits++
	}
	for _, block := range ds.blocked {
		if !ds.isFinal(block.GameID) {
			continue
		}
		touch(block.GameID, block.BlockerID, block.BlockerTeamID).Blocks++
	}

	out := make([]boxscore.Line, 0, len(agg))
	for _, line := range agg {
		line.Points = line.Goals + line.Assists
		line.GameScore = s.gameScore(*line)
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GameID != out[j].GameID {
			return out[i].GameID < out[j].GameID
		}
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].PlayerID < out[j].PlayerID
	})

	return out
}

// gameScore is the fixed linear weighting over one game line.
func (s *DerivationService) gameScore(line boxscore.Line) float64 {
	return s.params.GameScoreGoal*float64(line.Goals) +
		s.params.GameScoreAssist*float64(line.Assists) +
		s.params.GameScoreShot*float64(line.Shots) +
		s.params.GameScoreBlock*float64(line.Blocks) +
		s.params.GameScorePIM*line.PenaltyMinutes +
		s.params.GameScoreFaceoffWin*float64(line.FaceoffWins)
}
