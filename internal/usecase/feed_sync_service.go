package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmorneau/rinkstats/internal/domain/game"
	"github.com/jmorneau/rinkstats/internal/domain/goaliestats"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	"github.com/jmorneau/rinkstats/internal/domain/roster"
	"github.com/jmorneau/rinkstats/internal/domain/season"
	"github.com/jmorneau/rinkstats/internal/domain/skaterstats"
	"github.com/jmorneau/rinkstats/internal/domain/team"
	"github.com/jmorneau/rinkstats/internal/domain/teamstats"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
)

// StatsFeedProvider is the league stats API surface the pipeline pulls
// reference and aggregate data from. Every call also returns the raw payload
// it parsed, kept for provenance.
type StatsFeedProvider interface {
	Seasons(ctx context.Context) ([]ExternalSeason, rawdata.Payload, error)
	Teams(ctx context.Context, seasonID int64) ([]ExternalTeam, rawdata.Payload, error)
	Roster(ctx context.Context, teamID, seasonID int64) ([]ExternalRosterPlayer, rawdata.Payload, error)
	Schedule(ctx context.Context, seasonID int64) ([]ExternalGame, rawdata.Payload, error)
	SkaterStats(ctx context.Context, seasonID int64) ([]ExternalSkaterLine, rawdata.Payload, error)
	GoalieStats(ctx context.Context, seasonID int64) ([]ExternalGoalieLine, rawdata.Payload, error)
	Standings(ctx context.Context, seasonID int64) ([]ExternalStandingsRow, rawdata.Payload, error)
}

type ExternalSeason struct {
	ID        int64
	Name      string
	Career    bool
	Playoff   bool
	StartDate *time.Time
	EndDate   *time.Time
}

type ExternalTeam struct {
	ID           int64
	Name         string
	City         string
	Code         string
	Nickname     string
	DivisionID   *int64
	DivisionName string
}

type ExternalRosterPlayer struct {
	PlayerID     int64
	FirstName    string
	LastName     string
	Position     string
	Shoots       string
	Catches      string
	Height       string
	Weight       *int
	BirthDate    *time.Time
	Hometown     string
	HomeProvince string
	BirthCountry string
	Rookie       bool
	Veteran      bool
	ImageURL     string
	Status       string
	JerseyNumber *int
}

type ExternalGame struct {
	ID               int64
	SeasonID         int64
	HomeTeamID       int64
	VisitingTeamID   int64
	HomeTeamName     string
	VisitingTeamName string
	HomeTeamCode     string
	VisitingTeamCode string
	HomeScore        *int
	VisitingScore    *int
	StatusLabel      string
	Overtime         bool
	Shootout         bool
	VenueName        string
	VenueLocation    string
	Attendance       *int
	ScheduledAt      *time.Time
}

type ExternalSkaterLine struct {
	PlayerID         int64
	TeamID           int64
	FirstName        string
	LastName         string
	Position         string
	Rookie           bool
	GamesPlayed      int
	Goals            int
	Assists          int
	Points           int
	PlusMinus        int
	PenaltyMinutes   float64
	Shots            int
	PPGoals          int
	PPAssists        int
	SHGoals          int
	SHAssists        int
	GameWinningGoals int
	FirstGoals       int
	InsuranceGoals   int
	EmptyNetGoals    int
	OvertimeGoals    int
	ShootoutGoals    int
	ShootoutAttempts int
	FaceoffAttempts  int
	FaceoffWins      int
	FaceoffPct       *float64
	Hits             int
	IceTimeSeconds   *int
}

type ExternalGoalieLine struct {
	PlayerID       int64
	TeamID         int64
	FirstName      string
	LastName       string
	GamesPlayed    int
	Wins           int
	Losses         int
	OTLosses       int
	ShootoutLosses int
	SecondsPlayed  int
	ShotsAgainst   int
	Saves          int
	GoalsAgainst   int
	GAA            *float64
	SavePct        *float64
	Shutouts       int
}

type ExternalStandingsRow struct {
	TeamID               int64
	TeamName             string
	GamesPlayed          int
	Wins                 int
	Losses               int
	OTLosses             int
	ShootoutWins         int
	RegulationWins       int
	RegulationPlusOTWins int
	Points               int
	WinPct               *float64
	GoalsFor             int
	GoalsAgainst         int
	PowerPlayPct         *float64
	PenaltyKillPct       *float64
	ShootoutPct          *float64
	HomeRecord           string
	VisitingRecord       string
	PastTen              string
	Streak               string
	Rank                 *int
	ClinchedPlayoffs     bool
}

// FeedSyncService pulls the league stats API and lands it through the
// ingestion layer. Each Sync method covers one refresh category and returns
// the number of records written.
type FeedSyncService struct {
	provider   StatsFeedProvider
	teamRepo   team.Repository
	playerRepo player.Repository
	ingestion  *IngestionService
	logger     *logging.Logger
}

func NewFeedSyncService(
	provider StatsFeedProvider,
	teamRepo team.Repository,
	playerRepo player.Repository,
	ingestion *IngestionService,
	logger *logging.Logger,
) *FeedSyncService {
	if logger == nil {
		logger = logging.Default()
	}

	return &FeedSyncService{
		provider:   provider,
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		ingestion:  ingestion,
		logger:     logger,
	}
}

func (s *FeedSyncService) guard(ctx context.Context, operation string) error {
	if s.provider == nil || s.ingestion == nil || s.teamRepo == nil || s.playerRepo == nil {
		s.logger.WarnContext(ctx,
			"skip "+operation+": stats feed is not fully configured",
			"provider_nil", s.provider == nil,
			"ingestion_nil", s.ingestion == nil,
			"team_repo_nil", s.teamRepo == nil,
			"player_repo_nil", s.playerRepo == nil,
		)
		return fmt.Errorf("%w: stats feed is not fully configured", ErrDependencyUnavailable)
	}

	return nil
}

func (s *FeedSyncService) SyncSeasons(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncSeasons")
	defer span.End()

	if err := s.guard(ctx, "season sync"); err != nil {
		return 0, err
	}

	rows, payload, err := s.provider.Seasons(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch seasons from stats feed: %w", ErrSourceUnavailable, err)
	}

	mapped := mapExternalSeasonsToDomain(rows)
	if len(rows) > 0 && len(mapped) < len(rows) {
		s.logger.WarnContext(ctx, "some season rows could not be mapped", "provider_count", len(rows), "mapped_count", len(mapped))
	}
	if err := s.ingestion.UpsertSeasons(ctx, mapped); err != nil {
		return 0, fmt.Errorf("upsert seasons from stats feed: %w", err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceStatsFeed, []rawdata.Payload{payload}); err != nil {
		return 0, fmt.Errorf("upsert season raw payload: %w", err)
	}

	return len(mapped), nil
}

func (s *FeedSyncService) SyncTeams(ctx context.Context, seasonID int64) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncTeams")
	defer span.End()

	if err := s.guard(ctx, "team sync"); err != nil {
		return 0, err
	}

	rows, payload, err := s.provider.Teams(ctx, seasonID)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch teams from stats feed season_id=%d: %w", ErrSourceUnavailable, seasonID, err)
	}

	mapped := mapExternalTeamsToDomain(rows)
	if len(rows) > 0 && len(mapped) < len(rows) {
		s.logger.WarnContext(ctx, "some team rows could not be mapped", "season_id", seasonID, "provider_count", len(rows), "mapped_count", len(mapped))
	}
	if err := s.ingestion.UpsertTeams(ctx, mapped); err != nil {
		return 0, fmt.Errorf("upsert teams season_id=%d: %w", seasonID, err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceStatsFeed, applySeasonToPayloads(seasonID, []rawdata.Payload{payload})); err != nil {
		return 0, fmt.Errorf("upsert team raw payload season_id=%d: %w", seasonID, err)
	}

	return len(mapped), nil
}

// SyncRosters walks every known team and pulls its roster for the season.
// Teams without a roster in that season return empty rows and are skipped.
func (s *FeedSyncService) SyncRosters(ctx context.Context, seasonID int64) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncRosters")
	defer span.End()

	if err := s.guard(ctx, "roster sync"); err != nil {
		return 0, err
	}

	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list teams for roster sync season_id=%d: %w", seasonID, err)
	}

	var (
		players     []player.Player
		refs        []player.ExternalRef
		assignments []roster.Assignment
		payloads    []rawdata.Payload
	)
	for _, item := range teams {
		rows, payload, err := s.provider.Roster(ctx, item.ID, seasonID)
		if err != nil {
			return 0, fmt.Errorf("%w: fetch roster from stats feed team_id=%d season_id=%d: %w", ErrSourceUnavailable, item.ID, seasonID, err)
		}
		payloads = append(payloads, payload)
		if len(rows) == 0 {
			s.logger.DebugContext(ctx, "roster is empty for team", "team_id", item.ID, "season_id", seasonID)
			continue
		}

		mappedPlayers, mappedRefs, mappedAssignments := mapExternalRosterToDomain(item.ID, seasonID, rows)
		players = append(players, mappedPlayers...)
		refs = append(refs, mappedRefs...)
		assignments = append(assignments, mappedAssignments...)
	}

	if err := s.ingestion.UpsertPlayers(ctx, players); err != nil {
		return 0, fmt.Errorf("upsert roster players season_id=%d: %w", seasonID, err)
	}
	if err := s.ingestion.UpsertPlayerRefs(ctx, refs); err != nil {
		return 0, fmt.Errorf("upsert roster player refs season_id=%d: %w", seasonID, err)
	}
	if err := s.ingestion.UpsertRosters(ctx, assignments); err != nil {
		return 0, fmt.Errorf("upsert roster assignments season_id=%d: %w", seasonID, err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceStatsFeed, applySeasonToPayloads(seasonID, payloads)); err != nil {
		return 0, fmt.Errorf("upsert roster raw payloads season_id=%d: %w", seasonID, err)
	}

	return len(assignments), nil
}

// SyncSchedule lands the season's games. Teams referenced by a game but
// absent from the teams feed are created provisionally so the foreign keys
// hold; a later teams sync completes them.
func (s *FeedSyncService) SyncSchedule(ctx context.Context, seasonID int64) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncSchedule")
	defer span.End()

	if err := s.guard(ctx, "schedule sync"); err != nil {
		return 0, err
	}

	rows, payload, err := s.provider.Schedule(ctx, seasonID)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch schedule from stats feed season_id=%d: %w", ErrSourceUnavailable, seasonID, err)
	}

	knownTeams, err := s.knownTeamIDs(ctx)
	if err != nil {
		return 0, err
	}

	games, provisional := mapExternalGamesToDomain(rows, knownTeams)
	if len(rows) > 0 && len(games) < len(rows) {
		s.logger.WarnContext(ctx, "some schedule rows could not be mapped", "season_id", seasonID, "provider_count", len(rows), "mapped_count", len(games))
	}
	if len(provisional) > 0 {
		s.logger.WarnContext(ctx,
			"schedule references teams missing from the teams feed, creating provisional rows",
			"season_id", seasonID,
			"team_count", len(provisional),
		)
		if err := s.ingestion.UpsertTeams(ctx, provisional); err != nil {
			return 0, fmt.Errorf("upsert provisional teams season_id=%d: %w", seasonID, err)
		}
	}
	if err := s.ingestion.UpsertGames(ctx, games); err != nil {
		return 0, fmt.Errorf("upsert games season_id=%d: %w", seasonID, err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceStatsFeed, applySeasonToPayloads(seasonID, []rawdata.Payload{payload})); err != nil {
		return 0, fmt.Errorf("upsert schedule raw payload season_id=%d: %w", seasonID, err)
	}

	return len(games), nil
}

// SyncSkaterStats lands the season's skater aggregate lines. Stat rows for
// players the roster sync never produced (mid-season trades, call-ups) get a
// minimal player row so the line is not lost.
func (s *FeedSyncService) SyncSkaterStats(ctx context.Context, seasonID int64) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncSkaterStats")
	defer span.End()

	if err := s.guard(ctx, "skater stats sync"); err != nil {
		return 0, err
	}

	rows, payload, err := s.provider.SkaterStats(ctx, seasonID)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch skater stats from stats feed season_id=%d: %w", ErrSourceUnavailable, seasonID, err)
	}

	knownPlayers, err := s.knownPlayerIDs(ctx)
	if err != nil {
		return 0, err
	}

	lines, stubs := mapExternalSkaterLinesToDomain(seasonID, rows, knownPlayers)
	if len(rows) > 0 && len(lines) < len(rows) {
		s.logger.WarnContext(ctx, "some skater stat rows could not be mapped", "season_id", seasonID, "provider_count", len(rows), "mapped_count", len(lines))
	}
	if err := s.upsertPlayerStubs(ctx, "skater stat", seasonID, stubs); err != nil {
		return 0, err
	}
	if err := s.ingestion.UpsertSkaterStats(ctx, lines); err != nil {
		return 0, fmt.Errorf("upsert skater stats season_id=%d: %w", seasonID, err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceStatsFeed, applySeasonToPayloads(seasonID, []rawdata.Payload{payload})); err != nil {
		return 0, fmt.Errorf("upsert skater stats raw payload season_id=%d: %w", seasonID, err)
	}

	return len(lines), nil
}

func (s *FeedSyncService) SyncGoalieStats(ctx context.Context, seasonID int64) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncGoalieStats")
	defer span.End()

	if err := s.guard(ctx, "goalie stats sync"); err != nil {
		return 0, err
	}

	rows, payload, err := s.provider.GoalieStats(ctx, seasonID)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch goalie stats from stats feed season_id=%d: %w", ErrSourceUnavailable, seasonID, err)
	}

	knownPlayers, err := s.knownPlayerIDs(ctx)
	if err != nil {
		return 0, err
	}

	lines, stubs := mapExternalGoalieLinesToDomain(seasonID, rows, knownPlayers)
	if len(rows) > 0 && len(lines) < len(rows) {
		s.logger.WarnContext(ctx, "some goalie stat rows could not be mapped", "season_id", seasonID, "provider_count", len(rows), "mapped_count", len(lines))
	}
	if err := s.upsertPlayerStubs(ctx, "goalie stat", seasonID, stubs); err != nil {
		return 0, err
	}
	if err := s.ingestion.UpsertGoalieStats(ctx, lines); err != nil {
		return 0, fmt.Errorf("upsert goalie stats season_id=%d: %w", seasonID, err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceStatsFeed, applySeasonToPayloads(seasonID, []rawdata.Payload{payload})); err != nil {
		return 0, fmt.Errorf("upsert goalie stats raw payload season_id=%d: %w", seasonID, err)
	}

	return len(lines), nil
}

func (s *FeedSyncService) SyncStandings(ctx context.Context, seasonID int64) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncStandings")
	defer span.End()

	if err := s.guard(ctx, "standings sync"); err != nil {
		return 0, err
	}

	rows, payload, err := s.provider.Standings(ctx, seasonID)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch standings from stats feed season_id=%d: %w", ErrSourceUnavailable, seasonID, err)
	}

	knownTeams, err := s.knownTeamIDs(ctx)
	if err != nil {
		return 0, err
	}

	lines, provisional := mapExternalStandingsToDomain(seasonID, rows, knownTeams)
	if len(rows) > 0 && len(lines) < len(rows) {
		s.logger.WarnContext(ctx, "some standings rows could not be mapped", "season_id", seasonID, "provider_count", len(rows), "mapped_count", len(lines))
	}
	if len(provisional) > 0 {
		s.logger.WarnContext(ctx,
			"standings reference teams missing from the teams feed, creating provisional rows",
			"season_id", seasonID,
			"team_count", len(provisional),
		)
		if err := s.ingestion.UpsertTeams(ctx, provisional); err != nil {
			return 0, fmt.Errorf("upsert provisional teams season_id=%d: %w", seasonID, err)
		}
	}
	if err := s.ingestion.UpsertTeamStats(ctx, lines); err != nil {
		return 0, fmt.Errorf("upsert team stats season_id=%d: %w", seasonID, err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceStatsFeed, applySeasonToPayloads(seasonID, []rawdata.Payload{payload})); err != nil {
		return 0, fmt.Errorf("upsert standings raw payload season_id=%d: %w", seasonID, err)
	}

	return len(lines), nil
}

func (s *FeedSyncService) knownTeamIDs(ctx context.Context) (map[int64]bool, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams for stats feed sync: %w", err)
	}

	out := make(map[int64]bool, len(teams))
	for _, item := range teams {
		out[item.ID] = true
	}

	return out, nil
}

func (s *FeedSyncService) knownPlayerIDs(ctx context.Context) (map[int64]bool, error) {
	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players for stats feed sync: %w", err)
	}

	out := make(map[int64]bool, len(players))
	for _, item := range players {
		out[item.ID] = true
	}

	return out, nil
}

func (s *FeedSyncService) upsertPlayerStubs(ctx context.Context, kind string, seasonID int64, stubs []player.Player) error {
	if len(stubs) == 0 {
		return nil
	}

	s.logger.WarnContext(ctx,
		kind+" rows reference players missing from rosters, creating minimal rows",
		"season_id", seasonID,
		"player_count", len(stubs),
	)
	if err := s.ingestion.UpsertPlayers(ctx, stubs); err != nil {
		return fmt.Errorf("upsert %s player stubs season_id=%d: %w", kind, seasonID, err)
	}

	refs := make([]player.ExternalRef, 0, len(stubs))
	for _, stub := range stubs {
		refs = append(refs, feedPlayerRef(stub.ID))
	}
	if err := s.ingestion.UpsertPlayerRefs(ctx, refs); err != nil {
		return fmt.Errorf("upsert %s player stub refs season_id=%d: %w", kind, seasonID, err)
	}

	return nil
}

func mapExternalSeasonsToDomain(rows []ExternalSeason) []season.Season {
	out := make([]season.Season, 0, len(rows))
	for _, row := range rows {
		if row.ID <= 0 {
			continue
		}
		out = append(out, season.Season{
			ID:        row.ID,
			Name:      row.Name,
			Kind:      season.InferKind(row.Name),
			Career:    row.Career,
			Playoff:   row.Playoff,
			StartDate: row.StartDate,
			EndDate:   row.EndDate,
		})
	}

	return out
}

func mapExternalTeamsToDomain(rows []ExternalTeam) []team.Team {
	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		if row.ID <= 0 {
			continue
		}
		out = append(out, team.Team{
			ID:           row.ID,
			Name:         row.Name,
			City:         row.City,
			Code:         team.NormalizeCode(row.Code),
			Nickname:     row.Nickname,
			DivisionID:   row.DivisionID,
			DivisionName: row.DivisionName,
		})
	}

	return out
}

func mapExternalRosterToDomain(teamID, seasonID int64, rows []ExternalRosterPlayer) ([]player.Player, []player.ExternalRef, []roster.Assignment) {
	players := make([]player.Player, 0, len(rows))
	refs := make([]player.ExternalRef, 0, len(rows))
	assignments := make([]roster.Assignment, 0, len(rows))
	for _, row := range rows {
		if row.PlayerID <= 0 {
			continue
		}
		players = append(players, player.Player{
			ID:            row.PlayerID,
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			Position:      row.Position,
			PositionClass: player.ClassifyPosition(row.Position),
			Shoots:        row.Shoots,
			Catches:       row.Catches,
			Height:        row.Height,
			Weight:        row.Weight,
			BirthDate:     row.BirthDate,
			Hometown:      row.Hometown,
			HomeProvince:  row.HomeProvince,
			BirthCountry:  row.BirthCountry,
			Rookie:        row.Rookie,
			Veteran:       row.Veteran,
			ImageURL:      row.ImageURL,
			Active:        true,
		})
		refs = append(refs, feedPlayerRef(row.PlayerID))
		assignments = append(assignments, roster.Assignment{
			PlayerID:     row.PlayerID,
			TeamID:       teamID,
			SeasonID:     seasonID,
			JerseyNumber: row.JerseyNumber,
			Position:     row.Position,
			Status:       row.Status,
		})
	}

	return players, refs, assignments
}

func mapExternalGamesToDomain(rows []ExternalGame, knownTeams map[int64]bool) ([]game.Game, []team.Team) {
	games := make([]game.Game, 0, len(rows))
	var provisional []team.Team
	for _, row := range rows {
		if row.ID <= 0 || row.SeasonID <= 0 || row.HomeTeamID <= 0 || row.VisitingTeamID <= 0 {
			continue
		}

		item := game.Game{
			ID:             row.ID,
			SeasonID:       row.SeasonID,
			HomeTeamID:     row.HomeTeamID,
			VisitingTeamID: row.VisitingTeamID,
			HomeScore:      row.HomeScore,
			VisitingScore:  row.VisitingScore,
			Status:         game.NormalizeStatus(row.StatusLabel, row.Overtime, row.Shootout),
			Overtime:       row.Overtime,
			Shootout:       row.Shootout,
			ScheduledAt:    row.ScheduledAt,
			VenueName:      row.VenueName,
			VenueLocation:  row.VenueLocation,
			Attendance:     row.Attendance,
		}
		item.ApplyCalendar()
		games = append(games, item)

		provisional = appendProvisionalTeam(provisional, knownTeams, row.HomeTeamID, row.HomeTeamName, row.HomeTeamCode)
		provisional = appendProvisionalTeam(provisional, knownTeams, row.VisitingTeamID, row.VisitingTeamName, row.VisitingTeamCode)
	}

	return games, provisional
}

func appendProvisionalTeam(provisional []team.Team, knownTeams map[int64]bool, id int64, name, code string) []team.Team {
	if id <= 0 || knownTeams[id] {
		return provisional
	}
	knownTeams[id] = true

	if name == "" {
		name = "Team " + strconv.FormatInt(id, 10)
	}
	return append(provisional, team.Team{
		ID:          id,
		Name:        name,
		Code:        team.NormalizeCode(code),
		Provisional: true,
	})
}

func mapExternalSkaterLinesToDomain(seasonID int64, rows []ExternalSkaterLine, knownPlayers map[int64]bool) ([]skaterstats.SeasonLine, []player.Player) {
	lines := make([]skaterstats.SeasonLine, 0, len(rows))
	var stubs []player.Player
	for _, row := range rows {
		if row.PlayerID <= 0 || row.TeamID <= 0 {
			continue
		}

		lines = append(lines, skaterstats.SeasonLine{
			PlayerID:         row.PlayerID,
			TeamID:           row.TeamID,
			SeasonID:         seasonID,
			GamesPlayed:      row.GamesPlayed,
			Goals:            row.Goals,
			Assists:          row.Assists,
			Points:           row.Points,
			PlusMinus:        row.PlusMinus,
			PenaltyMinutes:   row.PenaltyMinutes,
			Shots:            row.Shots,
			Hits:             row.Hits,
			PPGoals:          row.PPGoals,
			PPAssists:        row.PPAssists,
			SHGoals:          row.SHGoals,
			SHAssists:        row.SHAssists,
			GameWinningGoals: row.GameWinningGoals,
			FirstGoals:       row.FirstGoals,
			InsuranceGoals:   row.InsuranceGoals,
			EmptyNetGoals:    row.EmptyNetGoals,
			OvertimeGoals:    row.OvertimeGoals,
			ShootoutGoals:    row.ShootoutGoals,
			ShootoutAttempts: row.ShootoutAttempts,
			FaceoffWins:      row.FaceoffWins,
			FaceoffAttempts:  row.FaceoffAttempts,
			IceTimeSeconds:   row.IceTimeSeconds,
		})

		if !knownPlayers[row.PlayerID] {
			knownPlayers[row.PlayerID] = true
			stubs = append(stubs, player.Player{
				ID:            row.PlayerID,
				FirstName:     row.FirstName,
				LastName:      row.LastName,
				Position:      row.Position,
				PositionClass: player.ClassifyPosition(row.Position),
				Rookie:        row.Rookie,
				Active:        true,
			})
		}
	}

	return lines, stubs
}

func mapExternalGoalieLinesToDomain(seasonID int64, rows []ExternalGoalieLine, knownPlayers map[int64]bool) ([]goaliestats.SeasonLine, []player.Player) {
	lines := make([]goaliestats.SeasonLine, 0, len(rows))
	var stubs []player.Player
	for _, row := range rows {
		if row.PlayerID <= 0 || row.TeamID <= 0 {
			continue
		}

		lines = append(lines, goaliestats.SeasonLine{
			PlayerID:       row.PlayerID,
			TeamID:         row.TeamID,
			SeasonID:       seasonID,
			GamesPlayed:    row.GamesPlayed,
			Wins:           row.Wins,
			Losses:         row.Losses,
			OTLosses:       row.OTLosses,
			ShootoutLosses: row.ShootoutLosses,
			SecondsPlayed:  row.SecondsPlayed,
			ShotsAgainst:   row.ShotsAgainst,
			Saves:          row.Saves,
			GoalsAgainst:   row.GoalsAgainst,
			GAA:            row.GAA,
			SavePct:        row.SavePct,
			Shutouts:       row.Shutouts,
		})

		if !knownPlayers[row.PlayerID] {
			knownPlayers[row.PlayerID] = true
			stubs = append(stubs, player.Player{
				ID:            row.PlayerID,
				FirstName:     row.FirstName,
				LastName:      row.LastName,
				Position:      "G",
				PositionClass: player.ClassGoalie,
				Active:        true,
			})
		}
	}

	return lines, stubs
}

func mapExternalStandingsToDomain(seasonID int64, rows []ExternalStandingsRow, knownTeams map[int64]bool) ([]teamstats.SeasonLine, []team.Team) {
	lines := make([]teamstats.SeasonLine, 0, len(rows))
	var provisional []team.Team
	for _, row := range rows {
		if row.TeamID <= 0 {
			continue
		}

		lines = append(lines, teamstats.SeasonLine{
			TeamID:           row.TeamID,
			SeasonID:         seasonID,
			GamesPlayed:      row.GamesPlayed,
			Wins:             row.Wins,
			Losses:           row.Losses,
			OTLosses:         row.OTLosses,
			ShootoutWins:     row.ShootoutWins,
			RegulationWins:   row.RegulationWins,
			ROW:              row.RegulationPlusOTWins,
			Points:           row.Points,
			WinPct:           row.WinPct,
			GoalsFor:         row.GoalsFor,
			GoalsAgainst:     row.GoalsAgainst,
			PowerPlayPct:     row.PowerPlayPct,
			PenaltyKillPct:   row.PenaltyKillPct,
			ShootoutPct:      row.ShootoutPct,
			HomeRecord:       row.HomeRecord,
			VisitingRecord:   row.VisitingRecord,
			PastTen:          row.PastTen,
			StreakLabel:      row.Streak,
			Rank:             row.Rank,
			ClinchedPlayoffs: row.ClinchedPlayoffs,
		})

		provisional = appendProvisionalTeam(provisional, knownTeams, row.TeamID, row.TeamName, "")
	}

	return lines, provisional
}

// feedPlayerRef is the identity ref for a player sourced from the stats
// feed. Feed ids are the canonical ids, so the mapping is exact.
func feedPlayerRef(playerID int64) player.ExternalRef {
	return player.ExternalRef{
		Source:      player.SourceLeagueStat,
		ExternalKey: strconv.FormatInt(playerID, 10),
		PlayerID:    playerID,
		Confidence:  player.ConfidenceExact,
	}
}

func applySeasonToPayloads(seasonID int64, payloads []rawdata.Payload) []rawdata.Payload {
	if seasonID <= 0 {
		return payloads
	}

	out := make([]rawdata.Payload, 0, len(payloads))
	for _, payload := range payloads {
		payload.SeasonID = &seasonID
		out = append(out, payload)
	}

	return out
}
