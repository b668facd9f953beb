package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/jmorneau/rinkstats/internal/domain/event"
	"github.com/jmorneau/rinkstats/internal/domain/game"
	"github.com/jmorneau/rinkstats/internal/domain/goaliestats"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	"github.com/jmorneau/rinkstats/internal/domain/season"
	"github.com/jmorneau/rinkstats/internal/domain/skaterstats"
	"github.com/jmorneau/rinkstats/internal/domain/team"
	"github.com/jmorneau/rinkstats/internal/domain/teamstats"
)

type stubSeasonRepo struct {
	upserted []season.Season
	calls    int
}

func (r *stubSeasonRepo) UpsertMany(_ context.Context, seasons []season.Season) error {
	r.calls++
	r.upserted = append(r.upserted, seasons...)
	return nil
}

func (r *stubSeasonRepo) List(context.Context) ([]season.Season, error)         { return nil, nil }
func (r *stubSeasonRepo) GetByID(context.Context, int64) (*season.Season, error) { return nil, nil }

type stubTeamRepo struct {
	upserted []team.Team
}

func (r *stubTeamRepo) UpsertMany(_ context.Context, teams []team.Team) error {
	r.upserted = append(r.upserted, teams...)
	return nil
}

func (r *stubTeamRepo) List(context.Context) ([]team.Team, error)               { return nil, nil }
func (r *stubTeamRepo) GetByID(context.Context, int64) (*team.Team, error)      { return nil, nil }
func (r *stubTeamRepo) GetByCode(context.Context, string) (*team.Team, error)   { return nil, nil }

type stubPlayerRepo struct {
	upserted []player.Player
	refs     []player.ExternalRef
}

func (r *stubPlayerRepo) UpsertMany(_ context.Context, players []player.Player) error {
	r.upserted = append(r.upserted, players...)
	return nil
}

func (r *stubPlayerRepo) UpsertRefs(_ context.Context, refs []player.ExternalRef) error {
	r.refs = append(r.refs, refs...)
	return nil
}

func (r *stubPlayerRepo) GetByID(context.Context, int64) (*player.Player, error) { return nil, nil }
func (r *stubPlayerRepo) List(context.Context) ([]player.Player, error)          { return nil, nil }
func (r *stubPlayerRepo) FindByNaturalKey(context.Context, string) (*player.Player, error) {
	return nil, nil
}
func (r *stubPlayerRepo) ResolveRef(context.Context, string, string) (int64, error) { return 0, nil }

type stubGameRepo struct {
	upserted []game.Game
}

func (r *stubGameRepo) UpsertMany(_ context.Context, games []game.Game) error {
	r.upserted = append(r.upserted, games...)
	return nil
}

func (r *stubGameRepo) GetByID(context.Context, int64) (*game.Game, error) { return nil, nil }
func (r *stubGameRepo) ListBySeason(context.Context, int64) ([]game.Game, error) {
	return nil, nil
}
func (r *stubGameRepo) ListFinalBySeason(context.Context, int64) ([]game.Game, error) {
	return nil, nil
}

type stubRawDataRepo struct {
	upserted []rawdata.Payload
}

func (r *stubRawDataRepo) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	r.upserted = append(r.upserted, items...)
	return nil
}

func (r *stubRawDataRepo) CountBySource(context.Context) (map[string]int, error) { return nil, nil }

func TestUpsertSeasonsNormalizesAndInfersKind(t *testing.T) {
	t.Parallel()

	repo := &stubSeasonRepo{}
	svc := &IngestionService{seasonRepo: repo}

	err := svc.UpsertSeasons(context.Background(), []season.Season{
		{ID: 5, Name: "  2024-2025 Regular Season  "},
		{ID: 6, Name: "2025 Playoffs"},
		{ID: 7, Name: "2025 Exhibition", Kind: season.KindRegular},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.upserted) != 3 {
		t.Fatalf("unexpected upsert count: got=%d want=3", len(repo.upserted))
	}
	if repo.upserted[0].Name != "2024-2025 Regular Season" {
		t.Fatalf("unexpected trimmed name: got=%q", repo.upserted[0].Name)
	}
	if repo.upserted[0].Kind != season.KindRegular {
		t.Fatalf("unexpected inferred kind: got=%q want=%q", repo.upserted[0].Kind, season.KindRegular)
	}
	if repo.upserted[1].Kind != season.KindPlayoff {
		t.Fatalf("unexpected inferred kind: got=%q want=%q", repo.upserted[1].Kind, season.KindPlayoff)
	}
	// An explicit kind is never overwritten by inference.
	if repo.upserted[2].Kind != season.KindRegular {
		t.Fatalf("explicit kind overwritten: got=%q", repo.upserted[2].Kind)
	}
}

func TestUpsertSeasonsValidation(t *testing.T) {
	t.Parallel()

	repo := &stubSeasonRepo{}
	svc := &IngestionService{seasonRepo: repo}

	if err := svc.UpsertSeasons(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("repository called on empty batch")
	}

	err := svc.UpsertSeasons(context.Background(), []season.Season{{ID: 0, Name: "2024"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing season id: got=%v want=ErrInvalidInput", err)
	}

	err = svc.UpsertSeasons(context.Background(), []season.Season{{ID: 5, Name: "   "}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank season name: got=%v want=ErrInvalidInput", err)
	}
	if repo.calls != 0 {
		t.Fatalf("repository called despite validation failure")
	}
}

func TestUpsertTeamsNormalizes(t *testing.T) {
	t.Parallel()

	repo := &stubTeamRepo{}
	svc := &IngestionService{teamRepo: repo}

	err := svc.UpsertTeams(context.Background(), []team.Team{
		{ID: 1, Name: "  Toronto Sceptres ", City: " Toronto ", Code: " tor ", Nickname: " Sceptres "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.upserted[0]
	if got.Name != "Toronto Sceptres" || got.City != "Toronto" || got.Nickname != "Sceptres" {
		t.Fatalf("unexpected trimmed team fields: %+v", got)
	}
	if got.Code != "TOR" {
		t.Fatalf("unexpected normalized code: got=%q want=%q", got.Code, "TOR")
	}

	err = svc.UpsertTeams(context.Background(), []team.Team{{ID: 2, Name: "   "}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank team name: got=%v want=ErrInvalidInput", err)
	}
}

func TestUpsertPlayersClassifiesPosition(t *testing.T) {
	t.Parallel()

	repo := &stubPlayerRepo{}
	svc := &IngestionService{playerRepo: repo}

	err := svc.UpsertPlayers(context.Background(), []player.Player{
		{ID: 100, FirstName: " Marie ", LastName: " Poulin ", Position: "C"},
		{ID: 101, LastName: "Campbell", Position: "G", PositionClass: player.ClassGoalie},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.upserted[0].FirstName != "Marie" || repo.upserted[0].LastName != "Poulin" {
		t.Fatalf("unexpected trimmed names: %+v", repo.upserted[0])
	}
	if repo.upserted[0].PositionClass != player.ClassForward {
		t.Fatalf("unexpected classified position: got=%q want=%q", repo.upserted[0].PositionClass, player.ClassForward)
	}
	if repo.upserted[1].PositionClass != player.ClassGoalie {
		t.Fatalf("explicit position class overwritten: got=%q", repo.upserted[1].PositionClass)
	}

	err = svc.UpsertPlayers(context.Background(), []player.Player{{ID: 102}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("nameless player: got=%v want=ErrInvalidInput", err)
	}
}

func TestUpsertPlayerRefsDefaultsAndValidation(t *testing.T) {
	t.Parallel()

	repo := &stubPlayerRepo{}
	svc := &IngestionService{playerRepo: repo}

	err := svc.UpsertPlayerRefs(context.Background(), []player.ExternalRef{
		{Source: " LeagueStat ", ExternalKey: " 100 ", PlayerID: 100},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.refs[0]
	if got.Source != player.SourceLeagueStat {
		t.Fatalf("unexpected normalized source: got=%q want=%q", got.Source, player.SourceLeagueStat)
	}
	if got.ExternalKey != "100" {
		t.Fatalf("unexpected trimmed external key: got=%q", got.ExternalKey)
	}
	if got.Confidence != player.ConfidenceExact {
		t.Fatalf("unexpected default confidence: got=%q want=%q", got.Confidence, player.ConfidenceExact)
	}

	err = svc.UpsertPlayerRefs(context.Background(), []player.ExternalRef{
		{Source: "archive", ExternalKey: "7100", PlayerID: 0},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing player id on ref: got=%v want=ErrInvalidInput", err)
	}
}

func TestUpsertGamesNormalizesStatusAndCalendar(t *testing.T) {
	t.Parallel()

	repo := &stubGameRepo{}
	svc := &IngestionService{gameRepo: repo}

	// 2025-01-18 is a Saturday.
	saturday := time.Date(2025, time.January, 18, 19, 0, 0, 0, time.UTC)
	err := svc.UpsertGames(context.Background(), []game.Game{
		{
			ID:             10,
			SeasonID:       5,
			HomeTeamID:     1,
			VisitingTeamID: 2,
			Status:         "Final",
			Overtime:       true,
			ScheduledAt:    &saturday,
			VenueName:      "  Coca-Cola Coliseum ",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.upserted[0]
	if got.Status != game.StatusFinalOT {
		t.Fatalf("unexpected normalized status: got=%q want=%q", got.Status, game.StatusFinalOT)
	}
	if got.VenueName != "Coca-Cola Coliseum" {
		t.Fatalf("unexpected trimmed venue: got=%q", got.VenueName)
	}
	if got.DayOfWeek != "Saturday" || !got.IsWeekend {
		t.Fatalf("unexpected calendar fields: day=%q weekend=%v", got.DayOfWeek, got.IsWeekend)
	}

	err = svc.UpsertGames(context.Background(), []game.Game{
		{ID: 11, SeasonID: 5, HomeTeamID: 1},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing visiting team: got=%v want=ErrInvalidInput", err)
	}
}

func TestUpsertEventValidation(t *testing.T) {
	t.Parallel()

	svc := &IngestionService{}

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "shot without player",
			call: func() error {
				return svc.UpsertShots(context.Background(), []event.Shot{
					{ID: 1, GameID: 10, SeasonID: 5},
				})
			},
		},
		{
			name: "goal without scorer",
			call: func() error {
				return svc.UpsertGoals(context.Background(), []event.Goal{
					{ID: 1, GameID: 10, SeasonID: 5},
				})
			},
		},
		{
			name: "penalty with negative minutes",
			call: func() error {
				return svc.UpsertPenalties(context.Background(), []event.Penalty{
					{ID: 1, GameID: 10, SeasonID: 5, Minutes: -2},
				})
			},
		},
		{
			name: "faceoff without game",
			call: func() error {
				return svc.UpsertFaceoffs(context.Background(), []event.Faceoff{
					{ID: 1, SeasonID: 5},
				})
			},
		},
		{
			name: "hit without player",
			call: func() error {
				return svc.UpsertHits(context.Background(), []event.Hit{
					{ID: 1, GameID: 10, SeasonID: 5},
				})
			},
		},
		{
			name: "blocked shot without blocker",
			call: func() error {
				return svc.UpsertBlockedShots(context.Background(), []event.BlockedShot{
					{ID: 1, GameID: 10, SeasonID: 5, ShooterID: 100},
				})
			},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if err := tc.call(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("unexpected error: got=%v want=ErrInvalidInput", err)
			}
		})
	}
}

func TestUpsertStatLineValidation(t *testing.T) {
	t.Parallel()

	svc := &IngestionService{}

	err := svc.UpsertSkaterStats(context.Background(), []skaterstats.SeasonLine{
		{PlayerID: 100, TeamID: 1, SeasonID: 5, Goals: -1},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative skater goals: got=%v want=ErrInvalidInput", err)
	}

	err = svc.UpsertGoalieStats(context.Background(), []goaliestats.SeasonLine{
		{PlayerID: 900, SeasonID: 5},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("goalie line without team: got=%v want=ErrInvalidInput", err)
	}

	err = svc.UpsertTeamStats(context.Background(), []teamstats.SeasonLine{
		{TeamID: 1, SeasonID: 5, Losses: -3},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative team losses: got=%v want=ErrInvalidInput", err)
	}
}

func TestUpsertRawPayloadsHashesAndStampsSource(t *testing.T) {
	t.Parallel()

	repo := &stubRawDataRepo{}
	svc := &IngestionService{rawDataRepo: repo}

	body := `{"teams":[{"id":1}]}`
	err := svc.UpsertRawPayloads(context.Background(), " LeagueStat ", []rawdata.Payload{
		{EntityType: " Teams ", EntityKey: " season:5 ", PayloadJSON: "  " + body + "  "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.upserted[0]
	if got.Source != sourceStatsFeed {
		t.Fatalf("unexpected source: got=%q want=%q", got.Source, sourceStatsFeed)
	}
	if got.EntityType != "teams" || got.EntityKey != "season:5" {
		t.Fatalf("unexpected entity fields: type=%q key=%q", got.EntityType, got.EntityKey)
	}
	sum := sha256.Sum256([]byte(body))
	if want := hex.EncodeToString(sum[:]); got.PayloadHash != want {
		t.Fatalf("unexpected payload hash: got=%q want=%q", got.PayloadHash, want)
	}

	err = svc.UpsertRawPayloads(context.Background(), "", []rawdata.Payload{
		{EntityType: "games", EntityKey: "season:5", PayloadJSON: body},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.upserted[1].Source != sourceStatsFeed {
		t.Fatalf("blank source should default: got=%q", repo.upserted[1].Source)
	}

	err = svc.UpsertRawPayloads(context.Background(), sourceEventArchive, []rawdata.Payload{
		{EntityType: "events", EntityKey: "", PayloadJSON: body},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank entity key: got=%v want=ErrInvalidInput", err)
	}
}

func TestUpsertRawPayloadsWithoutRepoIsNoOp(t *testing.T) {
	t.Parallel()

	svc := &IngestionService{}
	err := svc.UpsertRawPayloads(context.Background(), sourceStatsFeed, []rawdata.Payload{
		{EntityType: "teams", EntityKey: "season:5", PayloadJSON: "{}"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
