package usecase

import (
	"math"
	"testing"

	"github.com/jmorneau/rinkstats/internal/domain/event"
	"github.com/jmorneau/rinkstats/internal/domain/game"
	"github.com/jmorneau/rinkstats/internal/domain/teamstats"
)

func finalGame(id, home, visitor int64, homeScore, visitorScore int, status string) game.Game {
	return game.Game{
		ID:             id,
		SeasonID:       5,
		HomeTeamID:     home,
		VisitingTeamID: visitor,
		HomeScore:      intPtr(homeScore),
		VisitingScore:  intPtr(visitorScore),
		Status:         status,
	}
}

func repeatShots(gameID, teamID, opponentID int64, n int) []event.Shot {
	out := make([]event.Shot, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, event.Shot{
			ID:             gameID*1000 + teamID*100 + int64(i),
			GameID:         gameID,
			SeasonID:       5,
			PlayerID:       teamID * 10,
			TeamID:         teamID,
			OpponentTeamID: opponentID,
		})
	}
	return out
}

func repeatBlockedShots(gameID, shooterTeamID, blockerTeamID int64, n int) []event.BlockedShot {
	out := make([]event.BlockedShot, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, event.BlockedShot{
			ID:            gameID*2000 + shooterTeamID*100 + int64(i),
			GameID:        gameID,
			SeasonID:      5,
			ShooterID:     shooterTeamID * 10,
			ShooterTeamID: shooterTeamID,
			BlockerID:     blockerTeamID * 10,
			BlockerTeamID: blockerTeamID,
		})
	}
	return out
}

func TestDeriveTeamStatsPossession(t *testing.T) {
	t.Parallel()

	svc := newTestDerivationService()

	g := finalGame(10, 1, 2, 4, 2, game.StatusFinal)
	ds := &seasonDataset{
		seasonID:   5,
		games:      map[int64]game.Game{10: g},
		finalGames: []game.Game{g},
		teams: []teamstats.SeasonLine{
			{TeamID: 1, SeasonID: 5, GoalsFor: 4, GoalsAgainst: 2},
			{TeamID: 2, SeasonID: 5, GoalsFor: 2, GoalsAgainst: 4},
		},
	}
	ds.shots = append(ds.shots, repeatShots(10, 1, 2, 10)...)
	ds.shots = append(ds.shots, repeatShots(10, 2, 1, 8)...)
	ds.blocked = append(ds.blocked, repeatBlockedShots(10, 1, 2, 2)...)
	ds.blocked = append(ds.blocked, repeatBlockedShots(10, 2, 1, 3)...)

	lines := svc.deriveTeamStats(ds)
	if len(lines) != 2 {
		t.Fatalf("unexpected line count: got=%d want=2", len(lines))
	}

	home, visitor := lines[0].Derived, lines[1].Derived
	if home.CorsiFor != 12 || home.CorsiAgainst != 11 {
		t.Fatalf("unexpected home corsi: for=%d against=%d", home.CorsiFor, home.CorsiAgainst)
	}
	if home.FenwickFor != 10 || home.FenwickAgainst != 8 {
		t.Fatalf("unexpected home fenwick: for=%d against=%d", home.FenwickFor, home.FenwickAgainst)
	}

	// Possession is zero-sum across the two sides of a covered game.
	if home.CorsiFor != visitor.CorsiAgainst || home.CorsiAgainst != visitor.CorsiFor {
		t.Fatalf("corsi must mirror between opponents")
	}

	if home.CorsiPct == nil || visitor.CorsiPct == nil {
		t.Fatalf("covered season must compute possession percentages")
	}
	if got, want := *home.CorsiPct, 12.0/23.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("unexpected home corsi pct: got=%v want=%v", got, want)
	}
	if sum := *home.CorsiPct + *visitor.CorsiPct; math.Abs(sum-1) > 1e-9 {
		t.Fatalf("corsi percentages must sum to one: got=%v", sum)
	}

	// Both goal shares known: PDO = shooting% + save%.
	if home.PDO == nil {
		t.Fatalf("expected pdo with shot coverage")
	}
	wantPDO := 100*4.0/10.0 + 100*(8.0-2.0)/8.0
	if math.Abs(*home.PDO-wantPDO) > 1e-9 {
		t.Fatalf("unexpected pdo: got=%v want=%v", *home.PDO, wantPDO)
	}

	if home.HomeWins != 1 || home.HomeGoalsFor != 4 || home.HomeGoalsAgainst != 2 {
		t.Fatalf("unexpected home split: %+v", home)
	}
	if visitor.AwayLosses != 1 || visitor.AwayGoalsFor != 2 {
		t.Fatalf("unexpected away split: %+v", visitor)
	}
}

func TestDeriveTeamStatsRequiresBlockedShotCoverage(t *testing.T) {
	t.Parallel()

	svc := newTestDerivationService()

	g := finalGame(10, 1, 2, 3, 1, game.StatusFinal)
	ds := &seasonDataset{
		seasonID:   5,
		games:      map[int64]game.Game{10: g},
		finalGames: []game.Game{g},
		teams:      []teamstats.SeasonLine{{TeamID: 1, SeasonID: 5, GoalsFor: 3, GoalsAgainst: 1}},
	}
	// Shots only; the blocked-shots table has nothing for this game.
	ds.shots = append(ds.shots, repeatShots(10, 1, 2, 6)...)
	ds.shots = append(ds.shots, repeatShots(10, 2, 1, 4)...)

	lines := svc.deriveTeamStats(ds)
	if len(lines) != 1 {
		t.Fatalf("unexpected line count: got=%d", len(lines))
	}
	d := lines[0].Derived
	if d.CorsiPct != nil || d.FenwickPct != nil || d.CorsiFor != 0 {
		t.Fatalf("uncovered game must not produce possession metrics: %+v", d)
	}
	// PDO still computes from the shots table alone.
	if d.PDO == nil {
		t.Fatalf("expected pdo without blocked-shot coverage")
	}
}

func TestFoldTeamStreaks(t *testing.T) {
	t.Parallel()

	// Team 1's season reads W W OTL W L L in date order.
	results := []struct {
		id           int64
		homeScore    int
		visitorScore int
		status       string
	}{
		{id: 1, homeScore: 3, visitorScore: 1, status: game.StatusFinal},
		{id: 2, homeScore: 2, visitorScore: 1, status: game.StatusFinal},
		{id: 3, homeScore: 1, visitorScore: 2, status: game.StatusFinalOT},
		{id: 4, homeScore: 4, visitorScore: 0, status: game.StatusFinal},
		{id: 5, homeScore: 0, visitorScore: 3, status: game.StatusFinal},
		{id: 6, homeScore: 1, visitorScore: 5, status: game.StatusFinal},
	}
	ds := &seasonDataset{seasonID: 5}
	for _, r := range results {
		ds.finalGames = append(ds.finalGames, finalGame(r.id, 1, 2, r.homeScore, r.visitorScore, r.status))
	}

	streaks := foldTeamStreaks(ds)
	var team1 *teamStreakAssertion
	for i := range streaks {
		if streaks[i].TeamID == 1 {
			team1 = &teamStreakAssertion{streaks[i].CurrentKind, streaks[i].CurrentLength, streaks[i].LongestWin, streaks[i].LongestLoss, streaks[i].LongestPoint}
		}
	}
	if team1 == nil {
		t.Fatalf("expected a streak row for team 1")
	}
	want := teamStreakAssertion{game.OutcomeLoss, 2, 2, 2, 4}
	if *team1 != want {
		t.Fatalf("unexpected streaks: got=%+v want=%+v", *team1, want)
	}
}

type teamStreakAssertion struct {
	kind         string
	length       int
	longestWin   int
	longestLoss  int
	longestPoint int
}

func TestFoldHeadToHeadPairsOnLowerID(t *testing.T) {
	t.Parallel()

	ds := &seasonDataset{seasonID: 5}
	// Same pair, hosted once on each side.
	ds.finalGames = append(ds.finalGames,
		finalGame(1, 5, 3, 2, 4, game.StatusFinal),
		finalGame(2, 3, 5, 3, 3, game.StatusFinal),
	)

	rows := foldHeadToHead(ds)
	if len(rows) != 1 {
		t.Fatalf("unordered pair must fold onto one row: got=%d", len(rows))
	}
	row := rows[0]
	if row.Team1ID != 3 || row.Team2ID != 5 {
		t.Fatalf("lower team id must take the first slot: team1=%d team2=%d", row.Team1ID, row.Team2ID)
	}
	if row.Games != 2 || row.Team1Wins != 1 || row.Team2Wins != 0 || row.Ties != 1 {
		t.Fatalf("unexpected record: %+v", row)
	}
	if row.Team1Goals != 7 || row.Team2Goals != 5 {
		t.Fatalf("unexpected goal totals: %+v", row)
	}
	if len(row.GameIDs) != 2 {
		t.Fatalf("unexpected game ids: %v", row.GameIDs)
	}
}

func TestFoldVenueStats(t *testing.T) {
	t.Parallel()

	withVenue := func(g game.Game, venue string) game.Game {
		g.VenueName = venue
		return g
	}
	ds := &seasonDataset{seasonID: 5}
	ds.finalGames = append(ds.finalGames,
		withVenue(finalGame(1, 1, 2, 3, 1, game.StatusFinal), "Civic Arena"),
		withVenue(finalGame(2, 1, 3, 1, 2, game.StatusFinalOT), " Civic Arena "),
		withVenue(finalGame(3, 1, 4, 2, 0, game.StatusFinal), ""),
	)

	rows := foldVenueStats(ds)
	if len(rows) != 1 {
		t.Fatalf("blank venues must be skipped and names trimmed: got=%d rows", len(rows))
	}
	row := rows[0]
	if row.VenueName != "Civic Arena" || row.TeamID != 1 {
		t.Fatalf("unexpected venue row: %+v", row)
	}
	// The OT loss lands in the loss column; the venue record is two-way.
	if row.Games != 2 || row.Wins != 1 || row.Losses != 1 {
		t.Fatalf("unexpected venue record: %+v", row)
	}
	if row.GoalsFor != 4 || row.GoalsAgainst != 3 {
		t.Fatalf("unexpected venue goals: %+v", row)
	}
}
