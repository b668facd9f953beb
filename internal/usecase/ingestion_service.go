package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jmorneau/rinkstats/internal/domain/event"
	"github.com/jmorneau/rinkstats/internal/domain/game"
	"github.com/jmorneau/rinkstats/internal/domain/goaliestats"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	"github.com/jmorneau/rinkstats/internal/domain/roster"
	"github.com/jmorneau/rinkstats/internal/domain/season"
	"github.com/jmorneau/rinkstats/internal/domain/skaterstats"
	"github.com/jmorneau/rinkstats/internal/domain/team"
	"github.com/jmorneau/rinkstats/internal/domain/teamstats"
)

// Raw payload sources. These name where bytes came from, which is a wider
// notion than the player identity ref namespaces.
const (
	sourceStatsFeed    = "leaguestat"
	sourceEventArchive = "pbparchive"
)

// IngestionService is the single write path into the store. Sync services
// map external records to domain types; this layer validates and persists
// them. Every method is a no-op on an empty batch so callers don't have to
// guard.
type IngestionService struct {
	seasonRepo      season.Repository
	teamRepo        team.Repository
	playerRepo      player.Repository
	rosterRepo      roster.Repository
	gameRepo        game.Repository
	eventRepo       event.Repository
	skaterStatsRepo skaterstats.Repository
	goalieStatsRepo goaliestats.Repository
	teamStatsRepo   teamstats.Repository
	rawDataRepo     rawdata.Repository
}

func NewIngestionService(
	seasonRepo season.Repository,
	teamRepo team.Repository,
	playerRepo player.Repository,
	rosterRepo roster.Repository,
	gameRepo game.Repository,
	eventRepo event.Repository,
	skaterStatsRepo skaterstats.Repository,
	goalieStatsRepo goaliestats.Repository,
	teamStatsRepo teamstats.Repository,
	rawDataRepo rawdata.Repository,
) *IngestionService {
	return &IngestionService{
		seasonRepo:      seasonRepo,
		teamRepo:        teamRepo,
		playerRepo:      playerRepo,
		rosterRepo:      rosterRepo,
		gameRepo:        gameRepo,
		eventRepo:       eventRepo,
		skaterStatsRepo: skaterStatsRepo,
		goalieStatsRepo: goalieStatsRepo,
		teamStatsRepo:   teamStatsRepo,
		rawDataRepo:     rawDataRepo,
	}
}

func (s *IngestionService) UpsertSeasons(ctx context.Context, seasons []season.Season) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertSeasons")
	defer span.End()

	if len(seasons) == 0 {
		return nil
	}
	for idx := range seasons {
		seasons[idx].Name = strings.TrimSpace(seasons[idx].Name)
		if seasons[idx].ID <= 0 {
			return fmt.Errorf("%w: season id is required", ErrInvalidInput)
		}
		if seasons[idx].Name == "" {
			return fmt.Errorf("%w: season name is required", ErrInvalidInput)
		}
		if seasons[idx].Kind == "" {
			seasons[idx].Kind = season.InferKind(seasons[idx].Name)
		}
	}

	if err := s.seasonRepo.UpsertMany(ctx, seasons); err != nil {
		return fmt.Errorf("upsert seasons: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertTeams(ctx context.Context, teams []team.Team) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertTeams")
	defer span.End()

	if len(teams) == 0 {
		return nil
	}
	for idx := range teams {
		teams[idx].Name = strings.TrimSpace(teams[idx].Name)
		teams[idx].City = strings.TrimSpace(teams[idx].City)
		teams[idx].Code = team.NormalizeCode(teams[idx].Code)
		teams[idx].Nickname = strings.TrimSpace(teams[idx].Nickname)
		if err := teams[idx].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if err := s.teamRepo.UpsertMany(ctx, teams); err != nil {
		return fmt.Errorf("upsert teams: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertPlayers(ctx context.Context, players []player.Player) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertPlayers")
	defer span.End()

	if len(players) == 0 {
		return nil
	}
	for idx := range players {
		players[idx].FirstName = strings.TrimSpace(players[idx].FirstName)
		players[idx].LastName = strings.TrimSpace(players[idx].LastName)
		if players[idx].PositionClass == "" {
			players[idx].PositionClass = player.ClassifyPosition(players[idx].Position)
		}
		if err := players[idx].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if err := s.playerRepo.UpsertMany(ctx, players); err != nil {
		return fmt.Errorf("upsert players: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertPlayerRefs(ctx context.Context, refs []player.ExternalRef) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertPlayerRefs")
	defer span.End()

	if len(refs) == 0 {
		return nil
	}
	for idx := range refs {
		refs[idx].Source = strings.ToLower(strings.TrimSpace(refs[idx].Source))
		refs[idx].ExternalKey = strings.TrimSpace(refs[idx].ExternalKey)
		if refs[idx].Source == "" || refs[idx].ExternalKey == "" {
			return fmt.Errorf("%w: ref source and external key are required", ErrInvalidInput)
		}
		if refs[idx].PlayerID <= 0 {
			return fmt.Errorf("%w: ref player id is required", ErrInvalidInput)
		}
		if refs[idx].Confidence == "" {
			refs[idx].Confidence = player.ConfidenceExact
		}
	}

	if err := s.playerRepo.UpsertRefs(ctx, refs); err != nil {
		return fmt.Errorf("upsert player refs: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertRosters(ctx context.Context, assignments []roster.Assignment) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertRosters")
	defer span.End()

	if len(assignments) == 0 {
		return nil
	}
	for idx := range assignments {
		assignments[idx].Position = strings.TrimSpace(assignments[idx].Position)
		assignments[idx].Status = strings.TrimSpace(assignments[idx].Status)
		if err := assignments[idx].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if err := s.rosterRepo.UpsertMany(ctx, assignments); err != nil {
		return fmt.Errorf("upsert roster assignments: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertGames(ctx context.Context, games []game.Game) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertGames")
	defer span.End()

	if len(games) == 0 {
		return nil
	}
	for idx := range games {
		games[idx].Status = game.NormalizeStatus(games[idx].Status, games[idx].Overtime, games[idx].Shootout)
		games[idx].VenueName = strings.TrimSpace(games[idx].VenueName)
		games[idx].VenueLocation = strings.TrimSpace(games[idx].VenueLocation)
		games[idx].ApplyCalendar()
		if err := games[idx].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if err := s.gameRepo.UpsertMany(ctx, games); err != nil {
		return fmt.Errorf("upsert games: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertShots(ctx context.Context, shots []event.Shot) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertShots")
	defer span.End()

	if len(shots) == 0 {
		return nil
	}
	for _, item := range shots {
		if item.ID <= 0 || item.GameID <= 0 || item.SeasonID <= 0 || item.PlayerID <= 0 {
			return fmt.Errorf("%w: shot id, game id, season id and player id are required", ErrInvalidInput)
		}
	}

	if err := s.eventRepo.UpsertShots(ctx, shots); err != nil {
		return fmt.Errorf("upsert shots: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertGoals(ctx context.Context, goals []event.Goal) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertGoals")
	defer span.End()

	if len(goals) == 0 {
		return nil
	}
	for _, item := range goals {
		if item.ID <= 0 || item.GameID <= 0 || item.SeasonID <= 0 || item.ScorerID <= 0 {
			return fmt.Errorf("%w: goal id, game id, season id and scorer id are required", ErrInvalidInput)
		}
	}

	if err := s.eventRepo.UpsertGoals(ctx, goals); err != nil {
		return fmt.Errorf("upsert goals: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertPenalties(ctx context.Context, penalties []event.Penalty) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertPenalties")
	defer span.End()

	if len(penalties) == 0 {
		return nil
	}
	for _, item := range penalties {
		if item.ID <= 0 || item.GameID <= 0 || item.SeasonID <= 0 {
			return fmt.Errorf("%w: penalty id, game id and season id are required", ErrInvalidInput)
		}
		if item.Minutes < 0 {
			return fmt.Errorf("%w: penalty minutes cannot be negative", ErrInvalidInput)
		}
	}

	if err := s.eventRepo.UpsertPenalties(ctx, penalties); err != nil {
		return fmt.Errorf("upsert penalties: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertFaceoffs(ctx context.Context, faceoffs []event.Faceoff) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertFaceoffs")
	defer span.End()

	if len(faceoffs) == 0 {
		return nil
	}
	for _, item := range faceoffs {
		if item.ID <= 0 || item.GameID <= 0 || item.SeasonID <= 0 {
			return fmt.Errorf("%w: faceoff id, game id and season id are required", ErrInvalidInput)
		}
	}

	if err := s.eventRepo.UpsertFaceoffs(ctx, faceoffs); err != nil {
		return fmt.Errorf("upsert faceoffs: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertHits(ctx context.Context, hits []event.Hit) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertHits")
	defer span.End()

	if len(hits) == 0 {
		return nil
	}
	for _, item := range hits {
		if item.ID <= 0 || item.GameID <= 0 || item.SeasonID <= 0 || item.PlayerID <= 0 {
			return fmt.Errorf("%w: hit id, game id, season id and player id are required", ErrInvalidInput)
		}
	}

	if err := s.eventRepo.UpsertHits(ctx, hits); err != nil {
		return fmt.Errorf("upsert hits: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertBlockedShots(ctx context.Context, blocks []event.BlockedShot) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertBlockedShots")
	defer span.End()

	if len(blocks) == 0 {
		return nil
	}
	for _, item := range blocks {
		if item.ID <= 0 || item.GameID <= 0 || item.SeasonID <= 0 || item.ShooterID <= 0 || item.BlockerID <= 0 {
			return fmt.Errorf("%w: blocked shot id, game id, season id, shooter id and blocker id are required", ErrInvalidInput)
		}
	}

	if err := s.eventRepo.UpsertBlockedShots(ctx, blocks); err != nil {
		return fmt.Errorf("upsert blocked shots: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertSkaterStats(ctx context.Context, lines []skaterstats.SeasonLine) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertSkaterStats")
	defer span.End()

	if len(lines) == 0 {
		return nil
	}
	for _, item := range lines {
		if item.PlayerID <= 0 || item.TeamID <= 0 || item.SeasonID <= 0 {
			return fmt.Errorf("%w: skater line player id, team id and season id are required", ErrInvalidInput)
		}
		if item.GamesPlayed < 0 || item.Goals < 0 || item.Assists < 0 || item.Shots < 0 {
			return fmt.Errorf("%w: skater counting stats cannot be negative", ErrInvalidInput)
		}
	}

	if err := s.skaterStatsRepo.UpsertMany(ctx, lines); err != nil {
		return fmt.Errorf("upsert skater stats: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertGoalieStats(ctx context.Context, lines []goaliestats.SeasonLine) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertGoalieStats")
	defer span.End()

	if len(lines) == 0 {
		return nil
	}
	for _, item := range lines {
		if item.PlayerID <= 0 || item.TeamID <= 0 || item.SeasonID <= 0 {
			return fmt.Errorf("%w: goalie line player id, team id and season id are required", ErrInvalidInput)
		}
		if item.GamesPlayed < 0 || item.ShotsAgainst < 0 || item.Saves < 0 || item.GoalsAgainst < 0 {
			return fmt.Errorf("%w: goalie counting stats cannot be negative", ErrInvalidInput)
		}
	}

	if err := s.goalieStatsRepo.UpsertMany(ctx, lines); err != nil {
		return fmt.Errorf("upsert goalie stats: %w", err)
	}
	return nil
}

func (s *IngestionService) UpsertTeamStats(ctx context.Context, lines []teamstats.SeasonLine) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertTeamStats")
	defer span.End()

	if len(lines) == 0 {
		return nil
	}
	for _, item := range lines {
		if item.TeamID <= 0 || item.SeasonID <= 0 {
			return fmt.Errorf("%w: team line team id and season id are required", ErrInvalidInput)
		}
		if item.GamesPlayed < 0 || item.Wins < 0 || item.Losses < 0 || item.Points < 0 {
			return fmt.Errorf("%w: team counting stats cannot be negative", ErrInvalidInput)
		}
	}

	if err := s.teamStatsRepo.UpsertMany(ctx, lines); err != nil {
		return fmt.Errorf("upsert team stats: %w", err)
	}
	return nil
}

// UpsertRawPayloads hashes and lands fetched source bytes. The hash is
// computed here so every payload row carries one no matter which provider
// produced it.
func (s *IngestionService) UpsertRawPayloads(ctx context.Context, source string, items []rawdata.Payload) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertRawPayloads")
	defer span.End()

	if s.rawDataRepo == nil || len(items) == 0 {
		return nil
	}

	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = sourceStatsFeed
	}

	cleaned := make([]rawdata.Payload, 0, len(items))
	for _, item := range items {
		item.Source = source
		item.EntityType = strings.ToLower(strings.TrimSpace(item.EntityType))
		item.EntityKey = strings.TrimSpace(item.EntityKey)
		item.PayloadJSON = strings.TrimSpace(item.PayloadJSON)
		if item.EntityType == "" || item.EntityKey == "" || item.PayloadJSON == "" {
			return fmt.Errorf("%w: entity_type, entity_key and payload are required", ErrInvalidInput)
		}

		hash := sha256.Sum256([]byte(item.PayloadJSON))
		item.PayloadHash = hex.EncodeToString(hash[:])
		cleaned = append(cleaned, item)
	}

	if err := s.rawDataRepo.UpsertMany(ctx, cleaned); err != nil {
		return fmt.Errorf("upsert raw payloads: %w", err)
	}

	return nil
}
