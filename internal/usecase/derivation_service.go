package usecase

import (
	"context"
	"fmt"

	"github.com/jmorneau/rinkstats/internal/domain/analytics"
	"github.com/jmorneau/rinkstats/internal/domain/boxscore"
	"github.com/jmorneau/rinkstats/internal/domain/event"
	"github.com/jmorneau/rinkstats/internal/domain/game"
	"github.com/jmorneau/rinkstats/internal/domain/goaliestats"
	"github.com/jmorneau/rinkstats/internal/domain/ingestrun"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	"github.com/jmorneau/rinkstats/internal/domain/skaterstats"
	"github.com/jmorneau/rinkstats/internal/domain/teamstats"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
)

// DerivationService recomputes every derived metric for a season from the
// raw tables. Runs are full recomputation: each metric's rows are replaced
// for the scope, never patched, so the output always reflects the current
// raw data.
type DerivationService struct {
	params          analytics.ModelParams
	gameRepo        game.Repository
	eventRepo       event.Repository
	playerRepo      player.Repository
	boxscoreRepo    boxscore.Repository
	skaterStatsRepo skaterstats.Repository
	goalieStatsRepo goaliestats.Repository
	teamStatsRepo   teamstats.Repository
	analyticsRepo   analytics.Repository
	logger          *logging.Logger
}

func NewDerivationService(
	params analytics.ModelParams,
	gameRepo game.Repository,
	eventRepo event.Repository,
	playerRepo player.Repository,
	boxscoreRepo boxscore.Repository,
	skaterStatsRepo skaterstats.Repository,
	goalieStatsRepo goaliestats.Repository,
	teamStatsRepo teamstats.Repository,
	analyticsRepo analytics.Repository,
	logger *logging.Logger,
) *DerivationService {
	if logger == nil {
		logger = logging.Default()
	}
	if err := params.Validate(); err != nil {
		logger.Warn("invalid model params, falling back to defaults", "error", err)
		params = analytics.DefaultParams()
	}

	return &DerivationService{
		params:          params,
		gameRepo:        gameRepo,
		eventRepo:       eventRepo,
		playerRepo:      playerRepo,
		boxscoreRepo:    boxscoreRepo,
		skaterStatsRepo: skaterStatsRepo,
		goalieStatsRepo: goalieStatsRepo,
		teamStatsRepo:   teamStatsRepo,
		analyticsRepo:   analyticsRepo,
		logger:          logger,
	}
}

// DerivationSummary reports what one season's derivation produced.
type DerivationSummary struct {
	SeasonID       int64
	Measured       bool
	BoxscoreLines  int
	ShotXGRows     int
	PlayerXGRows   int
	GoalieGSAxRows int
	SkaterRows     int
	TeamRows       int
	StreakRows     int
	HeadToHeadRows int
	VenueRows      int
	Anomalies      []ingestrun.Anomaly
}

// Records is the row total reported on the run's task result.
func (s DerivationSummary) Records() int {
	return s.BoxscoreLines + s.ShotXGRows + s.PlayerXGRows + s.GoalieGSAxRows +
		s.SkaterRows + s.TeamRows + s.StreakRows + s.HeadToHeadRows + s.VenueRows
}

func (s *DerivationService) guard(ctx context.Context) error {
	if s.gameRepo == nil || s.eventRepo == nil || s.playerRepo == nil || s.boxscoreRepo == nil ||
		s.skaterStatsRepo == nil || s.goalieStatsRepo == nil || s.teamStatsRepo == nil || s.analyticsRepo == nil {
		s.logger.WarnContext(ctx, "skip derivation: store repositories are not fully configured")
		return fmt.Errorf("%w: derivation store is not fully configured", ErrDependencyUnavailable)
	}

	return nil
}

// DeriveSeason rebuilds the season's derived rows: boxscore lines, xG and
// GSAx (measured from coordinates when the season has them, estimated
// otherwise), skater and team derived columns, streaks, head-to-head and
// venue aggregates.
func (s *DerivationService) DeriveSeason(ctx context.Context, seasonID int64) (DerivationSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DerivationService.DeriveSeason")
	defer span.End()

	summary := DerivationSummary{SeasonID: seasonID}
	if seasonID <= 0 {
		return summary, fmt.Errorf("%w: season id is required", ErrInvalidInput)
	}
	if err := s.guard(ctx); err != nil {
		return summary, err
	}

	ds, err := s.loadSeasonDataset(ctx, seasonID)
	if err != nil {
		return summary, err
	}
	summary.Measured = ds.hasCoordinates()

	if len(ds.finalGames) > 0 && !ds.hasEvents() {
		summary.Anomalies = append(summary.Anomalies, ingestrun.Anomaly{
			Kind:      ingestrun.AnomalyDerivationIncomplete,
			SeasonID:  &seasonID,
			EntityKey: fmt.Sprintf("season:%d", seasonID),
			Reason:    "final games exist but no play-by-play coverage, event-derived metrics are empty",
		})
	}

	// Boxscore lines come first; game score season aggregates and the
	// skater derived block read them.
	lines := s.foldBoxscoreLines(ds)
	if err := s.boxscoreRepo.ReplaceBySeason(ctx, seasonID, lines); err != nil {
		return summary, fmt.Errorf("replace boxscore lines season_id=%d: %w", seasonID, err)
	}
	summary.BoxscoreLines = len(lines)

	if err := s.deriveExpectedGoals(ctx, ds, &summary); err != nil {
		return summary, err
	}

	estimates, derived := s.deriveSkaterStats(ds, lines)
	if err := s.skaterStatsRepo.UpdateIceTimeEstimates(ctx, estimates); err != nil {
		return summary, fmt.Errorf("update ice time estimates season_id=%d: %w", seasonID, err)
	}
	if err := s.skaterStatsRepo.UpdateDerived(ctx, derived); err != nil {
		return summary, fmt.Errorf("update skater derived stats season_id=%d: %w", seasonID, err)
	}
	summary.SkaterRows = len(derived)

	teamLines := s.deriveTeamStats(ds)
	if err := s.teamStatsRepo.UpdateDerived(ctx, teamLines); err != nil {
		return summary, fmt.Errorf("update team derived stats season_id=%d: %w", seasonID, err)
	}
	summary.TeamRows = len(teamLines)

	streaks := foldTeamStreaks(ds)
	if err := s.analyticsRepo.ReplaceTeamStreaks(ctx, seasonID, streaks); err != nil {
		return summary, fmt.Errorf("replace team streaks season_id=%d: %w", seasonID, err)
	}
	summary.StreakRows = len(streaks)

	matchups := foldHeadToHead(ds)
	if err := s.analyticsRepo.ReplaceHeadToHead(ctx, seasonID, matchups); err != nil {
		return summary, fmt.Errorf("replace head to head season_id=%d: %w", seasonID, err)
	}
	summary.HeadToHeadRows = len(matchups)

	venues := foldVenueStats(ds)
	if err := s.analyticsRepo.ReplaceVenueStats(ctx, seasonID, venues); err != nil {
		return summary, fmt.Errorf("replace venue stats season_id=%d: %w", seasonID, err)
	}
	summary.VenueRows = len(venues)

	s.logger.InfoContext(ctx, "season derivation complete",
		"season_id", seasonID,
		"measured", summary.Measured,
		"records", summary.Records(),
		"anomalies", len(summary.Anomalies),
	)

	return summary, nil
}

// seasonDataset stages everything one season's derivation reads, so each
// metric folds over memory instead of issuing its own queries.
type seasonDataset struct {
	seasonID   int64
	games      map[int64]game.Game
	finalGames []game.Game
	shots      []event.Shot
	goals      []event.Goal
	penalties  []event.Penalty
	faceoffs   []event.Faceoff
	hits       []event.Hit
	blocked    []event.BlockedShot
	skaters    []skaterstats.SeasonLine
	goalies    []goaliestats.SeasonLine
	teams      []teamstats.SeasonLine
	players    map[int64]player.Player
}

func (s *DerivationService) loadSeasonDataset(ctx context.Context, seasonID int64) (*seasonDataset, error) {
	ds := &seasonDataset{seasonID: seasonID}

	games, err := s.gameRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list games season_id=%d: %w", seasonID, err)
	}
	ds.games = make(map[int64]game.Game, len(games))
	for _, item := range games {
		ds.games[item.ID] = item
	}

	// Date-ordered; the streak and head-to-head folds depend on it.
	ds.finalGames, err = s.gameRepo.ListFinalBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list final games season_id=%d: %w", seasonID, err)
	}

	ds.shots, err = s.eventRepo.ListShotsBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list shots season_id=%d: %w", seasonID, err)
	}
	ds.goals, err = s.eventRepo.ListGoalsBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list goals season_id=%d: %w", seasonID, err)
	}
	ds.penalties, err = s.eventRepo.ListPenaltiesBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list penalties season_id=%d: %w", seasonID, err)
	}
	ds.faceoffs, err = s.eventRepo.ListFaceoffsBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list faceoffs season_id=%d: %w", seasonID, err)
	}
	ds.hits, err = s.eventRepo.ListHitsBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list hits season_id=%d: %w", seasonID, err)
	}
	ds.blocked, err = s.eventRepo.ListBlockedShotsBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list blocked shots season_id=%d: %w", seasonID, err)
	}

	ds.skaters, err = s.skaterStatsRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list skater stats season_id=%d: %w", seasonID, err)
	}
	ds.goalies, err = s.goalieStatsRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list goalie stats season_id=%d: %w", seasonID, err)
	}
	ds.teams, err = s.teamStatsRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list team stats season_id=%d: %w", seasonID, err)
	}

	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players season_id=%d: %w", seasonID, err)
	}
	ds.players = make(map[int64]player.Player, len(players))
	for _, item := range players {
		ds.players[item.ID] = item
	}

	return ds, nil
}

func (ds *seasonDataset) hasCoordinates() bool {
	for _, shot := range ds.shots {
		if shot.HasLocation() {
			return true
		}
	}
	return false
}

func (ds *seasonDataset) hasEvents() bool {
	return len(ds.shots)+len(ds.goals)+len(ds.penalties)+len(ds.faceoffs)+len(ds.hits)+len(ds.blocked) > 0
}

func (ds *seasonDataset) isFinal(gameID int64) bool {
	g, ok := ds.games[gameID]
	return ok && game.IsFinalStatus(g.Status)
}

func (ds *seasonDataset) positionClass(playerID int64) player.PositionClass {
	if p, ok := ds.players[playerID]; ok && p.PositionClass != "" {
		return p.PositionClass
	}
	return player.ClassForward
}
