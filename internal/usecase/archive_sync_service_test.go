package usecase

import (
	"testing"
	"time"

	"github.com/jmorneau/rinkstats/internal/domain/ingestrun"
	"github.com/jmorneau/rinkstats/internal/domain/player"
)

func TestMergeArchivePlayerFillsGaps(t *testing.T) {
	t.Parallel()

	birth := time.Date(1999, 3, 14, 0, 0, 0, 0, time.UTC)
	existing := player.Player{
		ID:        100,
		FirstName: "Sarah",
		LastName:  "Nurse",
		Shoots:    "L",
	}
	row := ArchivePlayer{
		ExternalID:  7100,
		Position:    "F",
		Shoots:      "L",
		Height:      "5-8",
		Weight:      intPtr(150),
		BirthDate:   &birth,
		Hometown:    "Hamilton",
		Nationality: "CAN",
	}

	merged, changed, conflicts := mergeArchivePlayer(existing, row)
	if !changed {
		t.Fatalf("gap fills must mark the row changed")
	}
	if len(conflicts) != 0 {
		t.Fatalf("agreement is not a conflict: %v", conflicts)
	}
	if merged.Position != "F" || merged.PositionClass != player.ClassForward {
		t.Fatalf("position gap must be filled and classified: %+v", merged)
	}
	if merged.Weight == nil || *merged.Weight != 150 || merged.BirthCountry != "CAN" {
		t.Fatalf("biographical gaps must be filled: %+v", merged)
	}
}

func TestMergeArchivePlayerKeepsFeedValuesOnConflict(t *testing.T) {
	t.Parallel()

	feedBirth := time.Date(1999, 3, 14, 0, 0, 0, 0, time.UTC)
	archiveBirth := time.Date(1998, 3, 14, 0, 0, 0, 0, time.UTC)
	existing := player.Player{
		ID:        100,
		Shoots:    "L",
		Weight:    intPtr(150),
		BirthDate: &feedBirth,
	}
	row := ArchivePlayer{
		ExternalID: 7100,
		Shoots:     "R",
		Weight:     intPtr(160),
		BirthDate:  &archiveBirth,
	}

	merged, changed, conflicts := mergeArchivePlayer(existing, row)
	if changed {
		t.Fatalf("conflicts alone must not rewrite the row")
	}
	if merged.Shoots != "L" || *merged.Weight != 150 || !merged.BirthDate.Equal(feedBirth) {
		t.Fatalf("feed values must win conflicts: %+v", merged)
	}
	if len(conflicts) != 3 {
		t.Fatalf("every disagreement must be reported: %v", conflicts)
	}

	anomalies := reconciliationAnomalies("7100", conflicts)
	if len(anomalies) != 3 {
		t.Fatalf("unexpected anomaly count: got=%d", len(anomalies))
	}
	for _, a := range anomalies {
		if a.Kind != ingestrun.AnomalyReconciliationConflict || a.EntityKey != "player:7100" {
			t.Fatalf("unexpected anomaly: %+v", a)
		}
	}
}

func TestNewPlayerFromArchive(t *testing.T) {
	t.Parallel()

	row := ArchivePlayer{
		ExternalID:  7200,
		FirstName:   "Emma",
		LastName:    "Green",
		Position:    "G",
		Nationality: "USA",
		Rookie:      true,
	}

	p := newPlayerFromArchive(row)
	if p.ID != 7200 || p.PositionClass != player.ClassGoalie || p.BirthCountry != "USA" {
		t.Fatalf("unexpected created player: %+v", p)
	}
	if !p.Active || !p.Rookie {
		t.Fatalf("archive creations must be active: %+v", p)
	}
}

func TestArchiveIdentityResolve(t *testing.T) {
	t.Parallel()

	identity := archiveIdentity{7100: 100}

	if got, ok := identity.resolve(7100); !ok || got != 100 {
		t.Fatalf("unexpected resolution: got=%d ok=%v", got, ok)
	}
	if _, ok := identity.resolve(9999); ok {
		t.Fatalf("unknown ids must not resolve")
	}

	if got, ok := identity.resolvePtr(nil); !ok || got != nil {
		t.Fatalf("nil actor must pass through: got=%v ok=%v", got, ok)
	}
	if got, ok := identity.resolvePtr(int64Ptr(7100)); !ok || got == nil || *got != 100 {
		t.Fatalf("unexpected pointer resolution: got=%v ok=%v", got, ok)
	}
	if got, ok := identity.resolvePtr(int64Ptr(9999)); ok || got != nil {
		t.Fatalf("unresolved pointer must come back nil: got=%v ok=%v", got, ok)
	}
}

func TestCollectActorIDs(t *testing.T) {
	t.Parallel()

	bundle := ArchiveEventBundle{
		Shots:        []ArchiveShot{{PlayerID: 7100, GoalieID: int64Ptr(7900)}},
		Goals:        []ArchiveGoal{{ScorerID: 7100, Assist1ID: int64Ptr(7101), Assist2ID: int64Ptr(7102)}},
		Penalties:    []ArchivePenalty{{PlayerID: nil}},
		Faceoffs:     []ArchiveFaceoff{{HomePlayerID: 7100, VisitorPlayerID: 7200}},
		Hits:         []ArchiveHit{{PlayerID: 7300}},
		BlockedShots: []ArchiveBlockedShot{{ShooterID: 7100, BlockerID: 7400}},
	}

	got := collectActorIDs(bundle)
	want := []int64{7100, 7101, 7102, 7200, 7300, 7400, 7900}
	if len(got) != len(want) {
		t.Fatalf("unexpected actor ids: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("actor ids must be sorted and deduped: got=%v want=%v", got, want)
		}
	}
}

func TestFilterBundleBySeasons(t *testing.T) {
	t.Parallel()

	bundle := ArchiveEventBundle{
		Shots: []ArchiveShot{{ID: 1, SeasonID: 5}, {ID: 2, SeasonID: 6}},
		Goals: []ArchiveGoal{{ID: 3, SeasonID: 6}},
		Hits:  []ArchiveHit{{ID: 4, SeasonID: 5}},
	}

	filtered := filterBundleBySeasons(bundle, []int64{5})
	if len(filtered.Shots) != 1 || filtered.Shots[0].ID != 1 {
		t.Fatalf("unexpected filtered shots: %+v", filtered.Shots)
	}
	if len(filtered.Goals) != 0 || len(filtered.Hits) != 1 {
		t.Fatalf("unexpected filtered bundle: %+v", filtered)
	}

	// Nil keeps the whole export.
	full := filterBundleBySeasons(bundle, nil)
	if len(full.Shots) != 2 {
		t.Fatalf("nil filter must keep everything: %+v", full.Shots)
	}
}

func TestMapArchiveShotsDropsAndResolves(t *testing.T) {
	t.Parallel()

	identity := archiveIdentity{7100: 100, 7900: 900}
	knownGames := map[int64]bool{10: true}
	drops := newDropTally()

	rows := []ArchiveShot{
		{ID: 1, GameID: 10, SeasonID: 5, PlayerID: 7100, GoalieID: int64Ptr(7900), TeamID: 1, OpponentTeamID: 2},
		// Shooter unknown: the row is dropped.
		{ID: 2, GameID: 10, SeasonID: 5, PlayerID: 9999, TeamID: 1, OpponentTeamID: 2},
		// Game never ingested: the row is dropped.
		{ID: 3, GameID: 99, SeasonID: 5, PlayerID: 7100, TeamID: 1, OpponentTeamID: 2},
		// Goalie unknown: the shot survives with a nil goalie.
		{ID: 4, GameID: 10, SeasonID: 5, PlayerID: 7100, GoalieID: int64Ptr(8888), TeamID: 1, OpponentTeamID: 2},
	}

	out := mapArchiveShots(rows, identity, knownGames, drops)
	if len(out) != 2 {
		t.Fatalf("unexpected surviving shots: got=%d want=2", len(out))
	}
	if out[0].PlayerID != 100 || out[0].GoalieID == nil || *out[0].GoalieID != 900 {
		t.Fatalf("actors must map to canonical ids: %+v", out[0])
	}
	if out[1].ID != 4 || out[1].GoalieID != nil {
		t.Fatalf("unresolved goalie must leave the shot goalie-less: %+v", out[1])
	}

	anomalies := drops.anomalies()
	if len(anomalies) != 3 {
		t.Fatalf("unexpected anomaly count: got=%d", len(anomalies))
	}
	kinds := make(map[string]int)
	for _, a := range anomalies {
		kinds[a.Kind]++
	}
	if kinds[ingestrun.AnomalyIdentityUnresolved] != 2 || kinds[ingestrun.AnomalyConstraintViolation] != 1 {
		t.Fatalf("unexpected anomaly kinds: %v", kinds)
	}
}

func TestMapArchivePenaltiesKeepsBenchRows(t *testing.T) {
	t.Parallel()

	identity := archiveIdentity{}
	knownGames := map[int64]bool{10: true}
	drops := newDropTally()

	rows := []ArchivePenalty{
		{ID: 1, GameID: 10, SeasonID: 5, TeamID: 1, OpponentTeamID: 2, Minutes: 2, Bench: true},
		// Unresolved player: the penalty still lands, unattributed.
		{ID: 2, GameID: 10, SeasonID: 5, PlayerID: int64Ptr(9999), TeamID: 1, OpponentTeamID: 2, Minutes: 2},
	}

	out := mapArchivePenalties(rows, identity, knownGames, drops)
	if len(out) != 2 {
		t.Fatalf("penalties must survive without a player: got=%d", len(out))
	}
	if out[0].PlayerID != nil || out[1].PlayerID != nil {
		t.Fatalf("unattributed penalties must carry no player: %+v", out)
	}
	if len(drops.anomalies()) != 1 {
		t.Fatalf("the unresolved player must still be flagged")
	}
}

func TestDropTallyFoldsRepeats(t *testing.T) {
	t.Parallel()

	drops := newDropTally()
	for i := 0; i < 40; i++ {
		drops.unresolvedActor("shots", 9999)
	}
	drops.unknownGame("goals", 77)

	anomalies := drops.anomalies()
	if len(anomalies) != 2 {
		t.Fatalf("repeated drops must fold into one anomaly: got=%d", len(anomalies))
	}
	if anomalies[1].EntityKey != "shots:player:9999" || anomalies[1].Reason != "40 archive rows dropped" {
		t.Fatalf("unexpected folded anomaly: %+v", anomalies[1])
	}
}
