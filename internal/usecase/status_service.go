package usecase

import (
	"context"
	"fmt"

	"github.com/jmorneau/rinkstats/internal/domain/event"
	"github.com/jmorneau/rinkstats/internal/domain/game"
	"github.com/jmorneau/rinkstats/internal/domain/ingestrun"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	"github.com/jmorneau/rinkstats/internal/domain/season"
	"github.com/jmorneau/rinkstats/internal/domain/team"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
)

// SeasonCoverage summarizes how much of one season the store holds.
type SeasonCoverage struct {
	SeasonID   int64        `json:"season_id"`
	Name       string       `json:"name"`
	Games      int          `json:"games"`
	FinalGames int          `json:"final_games"`
	Events     event.Counts `json:"events"`
}

// StatusReport is the store inventory plus the latest run's trail.
type StatusReport struct {
	Seasons     int                    `json:"seasons"`
	Teams       int                    `json:"teams"`
	Players     int                    `json:"players"`
	Games       int                    `json:"games"`
	Coverage    []SeasonCoverage       `json:"coverage"`
	RawPayloads map[string]int         `json:"raw_payloads"`
	LatestRun   *ingestrun.Run         `json:"latest_run,omitempty"`
	Tasks       []ingestrun.TaskResult `json:"tasks,omitempty"`
	Anomalies   []ingestrun.Anomaly    `json:"anomalies,omitempty"`
}

// StatusService reads back what the pipeline has landed without touching any
// external source.
type StatusService struct {
	seasonRepo  season.Repository
	teamRepo    team.Repository
	playerRepo  player.Repository
	gameRepo    game.Repository
	eventRepo   event.Repository
	rawDataRepo rawdata.Repository
	runRepo     ingestrun.Repository
	logger      *logging.Logger
}

func NewStatusService(
	seasonRepo season.Repository,
	teamRepo team.Repository,
	playerRepo player.Repository,
	gameRepo game.Repository,
	eventRepo event.Repository,
	rawDataRepo rawdata.Repository,
	runRepo ingestrun.Repository,
	logger *logging.Logger,
) *StatusService {
	if logger == nil {
		logger = logging.Default()
	}

	return &StatusService{
		seasonRepo:  seasonRepo,
		teamRepo:    teamRepo,
		playerRepo:  playerRepo,
		gameRepo:    gameRepo,
		eventRepo:   eventRepo,
		rawDataRepo: rawDataRepo,
		runRepo:     runRepo,
		logger:      logger,
	}
}

func (s *StatusService) guard(ctx context.Context) error {
	if s.seasonRepo == nil || s.teamRepo == nil || s.playerRepo == nil ||
		s.gameRepo == nil || s.eventRepo == nil || s.rawDataRepo == nil || s.runRepo == nil {
		s.logger.WarnContext(ctx, "skip status: store repositories are not fully configured")
		return fmt.Errorf("%w: status store is not fully configured", ErrDependencyUnavailable)
	}

	return nil
}

func (s *StatusService) Status(ctx context.Context) (StatusReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatusService.Status")
	defer span.End()

	if err := s.guard(ctx); err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{}

	seasons, err := s.seasonRepo.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list seasons: %w", err)
	}
	report.Seasons = len(seasons)

	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list teams: %w", err)
	}
	report.Teams = len(teams)

	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list players: %w", err)
	}
	report.Players = len(players)

	report.Coverage = make([]SeasonCoverage, 0, len(seasons))
	for _, item := range seasons {
		games, err := s.gameRepo.ListBySeason(ctx, item.ID)
		if err != nil {
			return report, fmt.Errorf("list games season_id=%d: %w", item.ID, err)
		}
		finals := 0
		for _, g := range games {
			if game.IsFinalStatus(g.Status) {
				finals++
			}
		}
		counts, err := s.eventRepo.CountsBySeason(ctx, item.ID)
		if err != nil {
			return report, fmt.Errorf("count events season_id=%d: %w", item.ID, err)
		}

		report.Games += len(games)
		report.Coverage = append(report.Coverage, SeasonCoverage{
			SeasonID:   item.ID,
			Name:       item.Name,
			Games:      len(games),
			FinalGames: finals,
			Events:     counts,
		})
	}

	report.RawPayloads, err = s.rawDataRepo.CountBySource(ctx)
	if err != nil {
		return report, fmt.Errorf("count raw payloads: %w", err)
	}

	run, err := s.runRepo.LatestRun(ctx)
	if err != nil {
		return report, fmt.Errorf("latest run: %w", err)
	}
	if run != nil {
		report.LatestRun = run
		report.Tasks, err = s.runRepo.ListTaskResults(ctx, run.ID)
		if err != nil {
			return report, fmt.Errorf("list task results run_id=%s: %w", run.ID, err)
		}
		report.Anomalies, err = s.runRepo.ListAnomalies(ctx, run.ID)
		if err != nil {
			return report, fmt.Errorf("list anomalies run_id=%s: %w", run.ID, err)
		}
	}

	return report, nil
}
