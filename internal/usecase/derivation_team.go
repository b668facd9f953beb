package usecase

import (
	"sort"
	"strings"

	"github.com/jmorneau/rinkstats/internal/domain/analytics"
	"github.com/jmorneau/rinkstats/internal/domain/game"
	"github.com/jmorneau/rinkstats/internal/domain/teamstats"
)

// deriveTeamStats extends every standings line with possession metrics, PDO
// and home/away splits. Corsi and Fenwick only count games where both the
// shots and blocked-shots tables have rows; a season without a single such
// game leaves the percentages nil.
func (s *DerivationService) deriveTeamStats(ds *seasonDataset) []teamstats.SeasonLine {
	type possession struct {
		corsiFor       int
		corsiAgainst   int
		fenwickFor     int
		fenwickAgainst int
		covered        int
	}

	shotsByGame := make(map[int64]map[int64]int)
	for _, shot := range ds.shots {
		byTeam, ok := shotsByGame[shot.GameID]
		if !ok {
			byTeam = make(map[int64]int)
			shotsByGame[shot.GameID] = byTeam
		}
		byTeam[shot.TeamID]++
	}
	blocksByGame := make(map[int64]map[int64]int)
	for _, block := range ds.blocked {
		byShooter, ok := blocksByGame[block.GameID]
		if !ok {
			byShooter = make(map[int64]int)
			blocksByGame[block.GameID] = byShooter
		}
		byShooter[block.ShooterTeamID]++
	}

	poss := make(map[int64]*possession)
	touchPossession := func(teamID int64) *possession {
		p, ok := poss[teamID]
		if !ok {
			p = &possession{}
			poss[teamID] = p
		}
		return p
	}
	for gameID, shots := range shotsByGame {
		blocks, ok := blocksByGame[gameID]
		if !ok {
			continue
		}
		g, ok := ds.games[gameID]
		if !ok || !game.IsFinalStatus(g.Status) {
			continue
		}

		homeAttempts := shots[g.HomeTeamID] + blocks[g.HomeTeamID]
		visitorAttempts := shots[g.VisitingTeamID] + blocks[g.VisitingTeamID]

		home := touchPossession(g.HomeTeamID)
		home.corsiFor += homeAttempts
		home.corsiAgainst += visitorAttempts
		home.fenwickFor += shots[g.HomeTeamID]
		home.fenwickAgainst += shots[g.VisitingTeamID]
		home.covered++

		visitor := touchPossession(g.VisitingTeamID)
		visitor.corsiFor += visitorAttempts
		visitor.corsiAgainst += homeAttempts
		visitor.fenwickFor += shots[g.VisitingTeamID]
		visitor.fenwickAgainst += shots[g.HomeTeamID]
		visitor.covered++
	}

	// PDO denominators come from the full season's shot rows regardless of
	// blocked-shot coverage.
	shotsFor := make(map[int64]int)
	shotsAgainst := make(map[int64]int)
	for _, shot := range ds.shots {
		shotsFor[shot.TeamID]++
		shotsAgainst[shot.OpponentTeamID]++
	}

	type split struct {
		wins, losses, otLosses int
		goalsFor, goalsAgainst int
	}
	homeSplits := make(map[int64]*split)
	awaySplits := make(map[int64]*split)
	touchSplit := func(m map[int64]*split, teamID int64) *split {
		sp, ok := m[teamID]
		if !ok {
			sp = &split{}
			m[teamID] = sp
		}
		return sp
	}
	for _, g := range ds.finalGames {
		if g.HomeScore == nil || g.VisitingScore == nil {
			continue
		}
		home := touchSplit(homeSplits, g.HomeTeamID)
		home.goalsFor += *g.HomeScore
		home.goalsAgainst += *g.VisitingScore
		switch g.Result(g.HomeTeamID) {
		case game.OutcomeWin:
			home.wins++
		case game.OutcomeLoss:
			home.losses++
		case game.OutcomeOTLoss:
			home.otLosses++
		}

		away := touchSplit(awaySplits, g.VisitingTeamID)
		away.goalsFor += *g.VisitingScore
		away.goalsAgainst += *g.HomeScore
		switch g.Result(g.VisitingTeamID) {
		case game.OutcomeWin:
			away.wins++
		case game.OutcomeLoss:
			away.losses++
		case game.OutcomeOTLoss:
			away.otLosses++
		}
	}

	out := make([]teamstats.SeasonLine, 0, len(ds.teams))
	for _, line := range ds.teams {
		d := teamstats.Derived{}

		if p := poss[line.TeamID]; p != nil && p.covered > 0 {
			d.CorsiFor = p.corsiFor
			d.CorsiAgainst = p.corsiAgainst
			d.FenwickFor = p.fenwickFor
			d.FenwickAgainst = p.fenwickAgainst
			if total := p.corsiFor + p.corsiAgainst; total > 0 {
				pct := float64(p.corsiFor) / float64(total)
				d.CorsiPct = &pct
			}
			if total := p.fenwickFor + p.fenwickAgainst; total > 0 {
				pct := float64(p.fenwickFor) / float64(total)
				d.FenwickPct = &pct
			}
		}

		sf := shotsFor[line.TeamID]
		sa := shotsAgainst[line.TeamID]
		if sf > 0 && sa > 0 {
			pdo := 100*float64(line.GoalsFor)/float64(sf) +
				100*float64(sa-line.GoalsAgainst)/float64(sa)
			d.PDO = &pdo
		}

		if sp := homeSplits[line.TeamID]; sp != nil {
			d.HomeWins = sp.wins
			d.HomeLosses = sp.losses
			d.HomeOTLosses = sp.otLosses
			d.HomeGoalsFor = sp.goalsFor
			d.HomeGoalsAgainst = sp.goalsAgainst
		}
		if sp := awaySplits[line.TeamID]; sp != nil {
			d.AwayWins = sp.wins
			d.AwayLosses = sp.losses
			d.AwayOTLosses = sp.otLosses
			d.AwayGoalsFor = sp.goalsFor
			d.AwayGoalsAgainst = sp.goalsAgainst
		}

		line.Derived = d
		out = append(out, line)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })

	return out
}

// foldTeamStreaks runs every team's date-ordered final games through one
// pass. Wins and overtime/shootout losses both extend a point streak; only a
// regulation loss breaks it. A tie or a final without scores breaks every
// run outright.
func foldTeamStreaks(ds *seasonDataset) []analytics.TeamStreak {
	type state struct {
		currentKind  string
		currentLen   int
		longestWin   int
		longestLoss  int
		pointRun     int
		longestPoint int
	}
	states := make(map[int64]*state)
	touch := func(teamID int64) *state {
		st, ok := states[teamID]
		if !ok {
			st = &state{}
			states[teamID] = st
		}
		return st
	}

	for _, g := range ds.finalGames {
		for _, teamID := range []int64{g.HomeTeamID, g.VisitingTeamID} {
			st := touch(teamID)
			outcome := g.Result(teamID)
			switch outcome {
			case game.OutcomeWin, game.OutcomeLoss, game.OutcomeOTLoss:
			default:
				st.currentKind = ""
				st.currentLen = 0
				st.pointRun = 0
				continue
			}

			if outcome == st.currentKind {
				st.currentLen++
			} else {
				st.currentKind = outcome
				st.currentLen = 1
			}

			switch outcome {
			case game.OutcomeWin:
				if st.currentLen > st.longestWin {
					st.longestWin = st.currentLen
				}
				st.pointRun++
			case game.OutcomeLoss:
				if st.currentLen > st.longestLoss {
					st.longestLoss = st.currentLen
				}
				st.pointRun = 0
			case game.OutcomeOTLoss:
				st.pointRun++
			}
			if st.pointRun > st.longestPoint {
				st.longestPoint = st.pointRun
			}
		}
	}

	teamIDs := make([]int64, 0, len(states))
	for teamID := range states {
		teamIDs = append(teamIDs, teamID)
	}
	sort.Slice(teamIDs, func(i, j int) bool { return teamIDs[i] < teamIDs[j] })

	out := make([]analytics.TeamStreak, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		st := states[teamID]
		out = append(out, analytics.TeamStreak{
			TeamID:        teamID,
			SeasonID:      ds.seasonID,
			CurrentKind:   st.currentKind,
			CurrentLength: st.currentLen,
			LongestWin:    st.longestWin,
			LongestLoss:   st.longestLoss,
			LongestPoint:  st.longestPoint,
		})
	}

	return out
}

// foldHeadToHead aggregates final games per unordered team pair. The lower
// team id always lands in the Team1 slot so a pair maps onto one row no
// matter which side hosted.
func foldHeadToHead(ds *seasonDataset) []analytics.HeadToHead {
	type pair struct {
		team1 int64
		team2 int64
	}
	rows := make(map[pair]*analytics.HeadToHead)

	for _, g := range ds.finalGames {
		if g.HomeScore == nil || g.VisitingScore == nil {
			continue
		}
		p := pair{team1: g.HomeTeamID, team2: g.VisitingTeamID}
		if p.team1 > p.team2 {
			p.team1, p.team2 = p.team2, p.team1
		}
		row, ok := rows[p]
		if !ok {
			row = &analytics.HeadToHead{
				SeasonID: ds.seasonID,
				Team1ID:  p.team1,
				Team2ID:  p.team2,
			}
			rows[p] = row
		}

		team1Goals, team2Goals := *g.HomeScore, *g.VisitingScore
		if g.HomeTeamID != p.team1 {
			team1Goals, team2Goals = team2Goals, team1Goals
		}
		row.Games++
		row.Team1Goals += team1Goals
		row.Team2Goals += team2Goals
		switch {
		case team1Goals > team2Goals:
			row.Team1Wins++
		case team2Goals > team1Goals:
			row.Team2Wins++
		default:
			row.Ties++
		}
		row.GameIDs = append(row.GameIDs, g.ID)
	}

	out := make([]analytics.HeadToHead, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Team1ID != out[j].Team1ID {
			return out[i].Team1ID < out[j].Team1ID
		}
		return out[i].Team2ID < out[j].Team2ID
	})

	return out
}

// foldVenueStats aggregates home results per (team, venue). Games without a
// recorded venue stay out; overtime and shootout losses land in the loss
// column since the venue table keeps a two-way record.
func foldVenueStats(ds *seasonDataset) []analytics.VenueStat {
	type key struct {
		teamID int64
		venue  string
	}
	rows := make(map[key]*analytics.VenueStat)

	for _, g := range ds.finalGames {
		if g.HomeScore == nil || g.VisitingScore == nil {
			continue
		}
		venue := strings.TrimSpace(g.VenueName)
		if venue == "" {
			continue
		}
		k := key{teamID: g.HomeTeamID, venue: venue}
		row, ok := rows[k]
		if !ok {
			row = &analytics.VenueStat{
				SeasonID:  ds.seasonID,
				TeamID:    g.HomeTeamID,
				VenueName: venue,
			}
			rows[k] = row
		}

		row.Games++
		switch g.Result(g.HomeTeamID) {
		case game.OutcomeWin:
			row.Wins++
		case game.OutcomeLoss, game.OutcomeOTLoss:
			row.Losses++
		}
		row.GoalsFor += *g.HomeScore
		row.GoalsAgainst += *g.VisitingScore
		row.GameIDs = append(row.GameIDs, g.ID)
	}

	out := make([]analytics.VenueStat, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].VenueName < out[j].VenueName
	})

	return out
}
