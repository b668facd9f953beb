package usecase

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmorneau/rinkstats/internal/domain/analytics"
	"github.com/jmorneau/rinkstats/internal/domain/goaliestats"
	"github.com/jmorneau/rinkstats/internal/domain/ingestrun"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	"github.com/jmorneau/rinkstats/internal/domain/roster"
	"github.com/jmorneau/rinkstats/internal/domain/skaterstats"
	"github.com/jmorneau/rinkstats/internal/domain/team"
	"github.com/jmorneau/rinkstats/internal/platform/id"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
)

func TestNormalizeRefreshCategories(t *testing.T) {
	t.Parallel()

	t.Run("empty selects everything with derive", func(t *testing.T) {
		t.Parallel()
		categories, derive, err := normalizeRefreshCategories(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !derive {
			t.Fatalf("empty input must request the derive stage")
		}
		if !reflect.DeepEqual(categories, ingestCategoryOrder) {
			t.Fatalf("unexpected categories: got=%v", categories)
		}
	})

	t.Run("aliases and order", func(t *testing.T) {
		t.Parallel()
		// Request out of order with aliases; output must follow apply order.
		categories, derive, err := normalizeRefreshCategories([]string{"Events", "games", "TEAMS", "derive", "teams"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !derive {
			t.Fatalf("derive alias must be recognized")
		}
		want := []string{CategoryTeams, CategorySchedule, CategoryArchiveEvents}
		if !reflect.DeepEqual(categories, want) {
			t.Fatalf("unexpected categories: got=%v want=%v", categories, want)
		}
	})

	t.Run("derive only", func(t *testing.T) {
		t.Parallel()
		categories, derive, err := normalizeRefreshCategories([]string{"derive"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !derive || len(categories) != 0 {
			t.Fatalf("derive-only request must carry no ingest categories: categories=%v derive=%v", categories, derive)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		t.Parallel()
		_, _, err := normalizeRefreshCategories([]string{"linescores"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
}

func TestBuildRefreshTasks(t *testing.T) {
	t.Parallel()

	categories := []string{CategorySeasons, CategoryTeams, CategoryArchivePlayers}
	seasons := []int64{1, 2}

	tasks := buildRefreshTasks(categories, seasons)

	// Seasons runs ahead of the grid; teams fans out per season; archive
	// players runs once league-wide.
	if len(tasks) != 3 {
		t.Fatalf("unexpected task count: got=%d want=3", len(tasks))
	}
	if tasks[0].category != CategoryTeams || tasks[0].seasonID == nil || *tasks[0].seasonID != 1 {
		t.Fatalf("unexpected first task: %+v", tasks[0])
	}
	if tasks[1].category != CategoryTeams || *tasks[1].seasonID != 2 {
		t.Fatalf("unexpected second task: %+v", tasks[1])
	}
	if tasks[2].category != CategoryArchivePlayers || tasks[2].seasonID != nil {
		t.Fatalf("archive task must not be season scoped: %+v", tasks[2])
	}
}

func TestNormalizeRefreshWorkers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		value     int
		taskCount int
		want      int
	}{
		{name: "cap at four", value: 16, taskCount: 100, want: 4},
		{name: "explicit below cap", value: 2, taskCount: 100, want: 2},
		{name: "shrink to task count", value: 4, taskCount: 3, want: 3},
		{name: "at least one", value: 1, taskCount: 0, want: 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeRefreshWorkers(tc.value, tc.taskCount); got != tc.want {
				t.Fatalf("unexpected worker count: got=%d want=%d", got, tc.want)
			}
		})
	}

	// Zero falls back to the CPU count, still capped.
	if got := normalizeRefreshWorkers(0, 100); got < 1 || got > 4 {
		t.Fatalf("auto worker count out of range: got=%d", got)
	}
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		succeeded int
		failed    int
		skipped   int
		anomalies int
		want      string
	}{
		{name: "all ok", succeeded: 5, want: ingestrun.StatusSucceeded},
		{name: "partial failure degrades", succeeded: 4, failed: 1, want: ingestrun.StatusDegraded},
		{name: "anomalies degrade", succeeded: 5, anomalies: 2, want: ingestrun.StatusDegraded},
		{name: "total failure", failed: 3, want: ingestrun.StatusFailed},
		{name: "failure with skips degrades", failed: 2, skipped: 1, want: ingestrun.StatusDegraded},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runStatus(tc.succeeded, tc.failed, tc.skipped, tc.anomalies)
			if got != tc.want {
				t.Fatalf("unexpected run status: got=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestFailedCategories(t *testing.T) {
	t.Parallel()

	sid1, sid2 := int64(1), int64(2)
	rows := []ingestrun.TaskResult{
		{Category: CategoryRosters, SeasonID: &sid1, Status: ingestrun.TaskFailed},
		{Category: CategoryRosters, SeasonID: &sid2, Status: ingestrun.TaskFailed},
		{Category: CategorySchedule, SeasonID: &sid1, Status: ingestrun.TaskFailed},
		{Category: CategorySchedule, SeasonID: &sid2, Status: ingestrun.TaskOK},
		{Category: CategoryStandings, SeasonID: &sid1, Status: ingestrun.TaskSkipped},
	}

	got := failedCategories(rows)

	// Only categories where every task failed count; a single surviving
	// season keeps schedule off the list.
	want := []string{CategoryRosters}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected failed categories: got=%v want=%v", got, want)
	}
}

func TestStampAnomalies(t *testing.T) {
	t.Parallel()

	sid := int64(7)
	preset := int64(3)
	anomalies := []ingestrun.Anomaly{
		{Kind: ingestrun.AnomalyIdentityUnresolved},
		{Kind: ingestrun.AnomalyReconciliationConflict, Category: "custom", SeasonID: &preset},
	}

	stampAnomalies(anomalies, "run-1", CategoryArchivePlayers, &sid)

	if anomalies[0].RunID != "run-1" || anomalies[0].Category != CategoryArchivePlayers || *anomalies[0].SeasonID != 7 {
		t.Fatalf("blank fields must be stamped: %+v", anomalies[0])
	}
	// Anomalies that already carry scope keep it.
	if anomalies[1].Category != "custom" || *anomalies[1].SeasonID != 3 {
		t.Fatalf("preset scope must survive stamping: %+v", anomalies[1])
	}
	if anomalies[1].RunID != "run-1" {
		t.Fatalf("run id must always be stamped: %+v", anomalies[1])
	}
}

func TestSortTaskRows(t *testing.T) {
	t.Parallel()

	sid1, sid2 := int64(1), int64(2)
	rows := []ingestrun.TaskResult{
		{Category: CategoryDerive, SeasonID: &sid1},
		{Category: CategorySchedule, SeasonID: &sid2},
		{Category: CategorySeasons},
		{Category: CategorySchedule, SeasonID: &sid1},
	}

	sortTaskRows(rows)

	if rows[0].Category != CategorySeasons {
		t.Fatalf("seasons must sort first: got=%q", rows[0].Category)
	}
	if rows[1].Category != CategorySchedule || *rows[1].SeasonID != 1 {
		t.Fatalf("schedule must sort by season: %+v", rows[1])
	}
	if rows[3].Category != CategoryDerive {
		t.Fatalf("derive must sort last: got=%q", rows[3].Category)
	}
}

func TestCategoryWriteKey(t *testing.T) {
	t.Parallel()

	// Every category whose apply stage upserts players must share one lock.
	playerWriters := []string{CategoryRosters, CategorySkaterStats, CategoryGoalieStats, CategoryArchivePlayers}
	for _, category := range playerWriters {
		if got := categoryWriteKey(category); got != "players" {
			t.Fatalf("category %q must lock the players table: got=%q", category, got)
		}
	}

	if got := categoryWriteKey(CategoryTeams); got != CategoryTeams {
		t.Fatalf("teams must keep their own lock: got=%q", got)
	}
	if got := categoryWriteKey(CategorySchedule); got == "players" {
		t.Fatalf("schedule must not contend with player writers")
	}
}

func TestSplitEventWave(t *testing.T) {
	t.Parallel()

	sid := int64(5)
	tasks := []refreshTask{
		{category: CategoryRosters, seasonID: &sid},
		{category: CategoryArchiveEvents},
		{category: CategorySchedule, seasonID: &sid},
	}

	entities, events := splitEventWave(tasks)
	if len(entities) != 2 || len(events) != 1 {
		t.Fatalf("unexpected split: entities=%d events=%d", len(entities), len(events))
	}
	if entities[0].category != CategoryRosters || entities[1].category != CategorySchedule {
		t.Fatalf("entity order must be preserved: %+v", entities)
	}
	if events[0].category != CategoryArchiveEvents {
		t.Fatalf("unexpected event wave: %+v", events)
	}
}

func TestTaskEntityKey(t *testing.T) {
	t.Parallel()

	sid := int64(5)
	if got := taskEntityKey(refreshTask{category: CategoryRosters, seasonID: &sid}); got != "rosters:season:5" {
		t.Fatalf("unexpected entity key: got=%q", got)
	}
	if got := taskEntityKey(refreshTask{category: CategoryArchivePlayers}); got != CategoryArchivePlayers {
		t.Fatalf("unexpected league-wide entity key: got=%q", got)
	}
}

// refreshPlayerRepo counts how many writers touch the players table at once.
type refreshPlayerRepo struct {
	stubPlayerRepo
	mu        sync.Mutex
	active    atomic.Int32
	maxActive atomic.Int32
	writes    atomic.Int32
}

func (r *refreshPlayerRepo) UpsertMany(ctx context.Context, players []player.Player) error {
	current := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		seen := r.maxActive.Load()
		if current <= seen || r.maxActive.CompareAndSwap(seen, current) {
			break
		}
	}

	// Hold the write open long enough for an unserialized second writer to
	// overlap it.
	time.Sleep(10 * time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.stubPlayerRepo.UpsertMany(ctx, players); err != nil {
		return err
	}
	r.writes.Add(1)
	return nil
}

type refreshTeamRepo struct {
	stubTeamRepo
}

func (r *refreshTeamRepo) List(context.Context) ([]team.Team, error) {
	return []team.Team{{ID: 1, Name: "Toronto Sceptres", Code: "TOR"}}, nil
}

type refreshRosterRepo struct{}

func (*refreshRosterRepo) UpsertMany(context.Context, []roster.Assignment) error { return nil }
func (*refreshRosterRepo) ListBySeason(context.Context, int64) ([]roster.Assignment, error) {
	return nil, nil
}
func (*refreshRosterRepo) ListByTeamSeason(context.Context, int64, int64) ([]roster.Assignment, error) {
	return nil, nil
}

type refreshSkaterStatsRepo struct{}

func (*refreshSkaterStatsRepo) UpsertMany(context.Context, []skaterstats.SeasonLine) error {
	return nil
}
func (*refreshSkaterStatsRepo) ListBySeason(context.Context, int64) ([]skaterstats.SeasonLine, error) {
	return nil, nil
}
func (*refreshSkaterStatsRepo) UpdateDerived(context.Context, []skaterstats.SeasonLine) error {
	return nil
}
func (*refreshSkaterStatsRepo) UpdateIceTimeEstimates(context.Context, []skaterstats.SeasonLine) error {
	return nil
}

type refreshGoalieStatsRepo struct{}

func (*refreshGoalieStatsRepo) UpsertMany(context.Context, []goaliestats.SeasonLine) error {
	return nil
}
func (*refreshGoalieStatsRepo) ListBySeason(context.Context, int64) ([]goaliestats.SeasonLine, error) {
	return nil, nil
}
func (*refreshGoalieStatsRepo) ListAll(context.Context) ([]goaliestats.SeasonLine, error) {
	return nil, nil
}

// refreshFeedProvider serves one roster player plus one skater and one goalie
// line for players the roster never produced, so three categories all write
// the players table.
type refreshFeedProvider struct{}

func (*refreshFeedProvider) Seasons(context.Context) ([]ExternalSeason, rawdata.Payload, error) {
	return nil, rawdata.Payload{}, nil
}

func (*refreshFeedProvider) Teams(context.Context, int64) ([]ExternalTeam, rawdata.Payload, error) {
	return nil, rawdata.Payload{}, nil
}

func (*refreshFeedProvider) Roster(context.Context, int64, int64) ([]ExternalRosterPlayer, rawdata.Payload, error) {
	return []ExternalRosterPlayer{{
		PlayerID: 100, FirstName: "Sarah", LastName: "Nurse", Position: "F",
		Shoots: "L", Height: "5'8\"", Hometown: "Hamilton, ON", Status: "active",
	}}, rawdata.Payload{}, nil
}

func (*refreshFeedProvider) Schedule(context.Context, int64) ([]ExternalGame, rawdata.Payload, error) {
	return nil, rawdata.Payload{}, nil
}

func (*refreshFeedProvider) SkaterStats(context.Context, int64) ([]ExternalSkaterLine, rawdata.Payload, error) {
	return []ExternalSkaterLine{{
		PlayerID: 200, TeamID: 1, FirstName: "Midseason", LastName: "Callup",
		Position: "F", GamesPlayed: 3,
	}}, rawdata.Payload{}, nil
}

func (*refreshFeedProvider) GoalieStats(context.Context, int64) ([]ExternalGoalieLine, rawdata.Payload, error) {
	return []ExternalGoalieLine{{
		PlayerID: 300, TeamID: 1, FirstName: "Emergency", LastName: "Backup",
		GamesPlayed: 1,
	}}, rawdata.Payload{}, nil
}

func (*refreshFeedProvider) Standings(context.Context, int64) ([]ExternalStandingsRow, rawdata.Payload, error) {
	return nil, rawdata.Payload{}, nil
}

// refreshArchiveProvider snapshots the player write count when the event
// fetch starts.
type refreshArchiveProvider struct {
	players        *refreshPlayerRepo
	writesAtEvents atomic.Int32
}

func (*refreshArchiveProvider) Players(context.Context) ([]ArchivePlayer, rawdata.Payload, error) {
	return nil, rawdata.Payload{}, nil
}

func (p *refreshArchiveProvider) AllEvents(context.Context) (ArchiveEventBundle, []rawdata.Payload, error) {
	p.writesAtEvents.Store(p.players.writes.Load())
	return ArchiveEventBundle{}, nil, nil
}

func newRefreshPipeline() (*RefreshService, *refreshPlayerRepo, *refreshArchiveProvider) {
	players := &refreshPlayerRepo{}
	ingestion := &IngestionService{
		seasonRepo:      &stubSeasonRepo{},
		teamRepo:        &stubTeamRepo{},
		playerRepo:      players,
		rosterRepo:      &refreshRosterRepo{},
		gameRepo:        &stubGameRepo{},
		skaterStatsRepo: &refreshSkaterStatsRepo{},
		goalieStatsRepo: &refreshGoalieStatsRepo{},
	}

	feed := NewFeedSyncService(&refreshFeedProvider{}, &refreshTeamRepo{}, players, ingestion, logging.NewNop())
	archiveProvider := &refreshArchiveProvider{players: players}
	archive := NewArchiveSyncService(archiveProvider, players, &stubGameRepo{}, &stubSeasonRepo{}, ingestion, logging.NewNop())

	svc := NewRefreshService(
		feed,
		archive,
		&DerivationService{params: analytics.DefaultParams()},
		&stubSeasonRepo{},
		&statusRunRepo{},
		id.NewRandomGenerator(),
		logging.NewNop(),
	)
	return svc, players, archiveProvider
}

func refreshPipelineInput() RefreshInput {
	return RefreshInput{
		Seasons:    []int64{5},
		Categories: []string{"rosters", "skaters", "goalies", "archive_events"},
		SkipDerive: true,
		MaxWorkers: 4,
	}
}

func TestRefreshSerializesPlayerTableWriters(t *testing.T) {
	t.Parallel()

	svc, players, _ := newRefreshPipeline()

	result, err := svc.Refresh(context.Background(), refreshPipelineInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FailedCount != 0 {
		t.Fatalf("no task may fail: %+v", result.Tasks)
	}

	// Roster, skater stub and goalie stub each write once.
	if got := players.writes.Load(); got != 3 {
		t.Fatalf("unexpected player write count: got=%d want=3", got)
	}
	if got := players.maxActive.Load(); got != 1 {
		t.Fatalf("players table had concurrent writers: max=%d", got)
	}
}

func TestRefreshArchiveEventsWaitForEntityCategories(t *testing.T) {
	t.Parallel()

	svc, players, archive := newRefreshPipeline()

	if _, err := svc.Refresh(context.Background(), refreshPipelineInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := players.writes.Load()
	if got := archive.writesAtEvents.Load(); got != total || total != 3 {
		t.Fatalf("event fetch started before entity categories drained: at_fetch=%d total=%d", got, total)
	}
}
