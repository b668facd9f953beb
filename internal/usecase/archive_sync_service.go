package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jmorneau/rinkstats/internal/domain/event"
	"github.com/jmorneau/rinkstats/internal/domain/game"
	"github.com/jmorneau/rinkstats/internal/domain/ingestrun"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	"github.com/jmorneau/rinkstats/internal/domain/season"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
)

// EventArchiveProvider is the play-by-play archive surface. The archive
// ships whole-history exports, so calls are not season-scoped; season
// filtering happens after the fetch.
type EventArchiveProvider interface {
	Players(ctx context.Context) ([]ArchivePlayer, rawdata.Payload, error)
	AllEvents(ctx context.Context) (ArchiveEventBundle, []rawdata.Payload, error)
}

type ArchivePlayer struct {
	ExternalID   int64
	FirstName    string
	LastName     string
	Position     string
	Shoots       string
	Catches      string
	Height       string
	Weight       *int
	BirthDate    *time.Time
	Hometown     string
	Nationality  string
	JerseyNumber *int
	TeamID       *int64
	SeasonID     *int64
	Rookie       bool
	ImageURL     string
}

type ArchiveShot struct {
	ID                  int64
	GameID              int64
	SeasonID            int64
	PlayerID            int64
	GoalieID            *int64
	TeamID              int64
	OpponentTeamID      int64
	Home                bool
	Period              int
	ClockTime           string
	Seconds             int
	X                   *float64
	Y                   *float64
	ShotType            *int
	ShotTypeDescription string
	Quality             *int
	QualityDescription  string
	GameGoalID          *int64
}

type ArchiveGoal struct {
	ID             int64
	GameID         int64
	SeasonID       int64
	TeamID         int64
	OpponentTeamID int64
	Home           bool
	Period         int
	ClockTime      string
	Seconds        int
	X              *float64
	Y              *float64
	ScorerID       int64
	Assist1ID      *int64
	Assist2ID      *int64
	GoalType       string
	PowerPlay      bool
	ShortHanded    bool
	EmptyNet       bool
	PenaltyShot    bool
	Insurance      bool
	GameWinning    bool
	GameTieing     bool
}

type ArchivePenalty struct {
	ID             int64
	GameID         int64
	SeasonID       int64
	PlayerID       *int64
	TeamID         int64
	OpponentTeamID int64
	Home           bool
	Period         int
	ClockTime      string
	Seconds        int
	Minutes        float64
	Class          string
	Description    string
	Offence        string
	Bench          bool
	PenaltyShot    bool
	PowerPlay      bool
}

type ArchiveFaceoff struct {
	ID              int64
	GameID          int64
	SeasonID        int64
	HomePlayerID    int64
	VisitorPlayerID int64
	HomeTeamID      int64
	VisitorTeamID   int64
	Period          int
	ClockTime       string
	Seconds         int
	LocationID      *int
	HomeWin         bool
	WinTeamID       int64
}

type ArchiveHit struct {
	ID             int64
	GameID         int64
	SeasonID       int64
	PlayerID       int64
	TeamID         int64
	OpponentTeamID int64
	Home           bool
	Period         int
	ClockTime      string
	Seconds        int
	HitType        *int
}

type ArchiveBlockedShot struct {
	ID            int64
	GameID        int64
	SeasonID      int64
	ShooterID     int64
	ShooterTeamID int64
	BlockerID     int64
	BlockerTeamID int64
	Home          bool
	Period        int
	ClockTime     string
	Seconds       int
}

// ArchiveEventBundle is one full archive export across every event table.
type ArchiveEventBundle struct {
	Shots        []ArchiveShot
	Goals        []ArchiveGoal
	Penalties    []ArchivePenalty
	Faceoffs     []ArchiveFaceoff
	Hits         []ArchiveHit
	BlockedShots []ArchiveBlockedShot
}

// ArchiveSyncService lands the play-by-play archive. Archive records key
// players by their own id space, so every row passes through identity
// resolution before it is written; rows whose actors cannot be resolved are
// dropped and surfaced as anomalies instead of being force-inserted.
type ArchiveSyncService struct {
	provider   EventArchiveProvider
	playerRepo player.Repository
	gameRepo   game.Repository
	seasonRepo season.Repository
	ingestion  *IngestionService
	logger     *logging.Logger
}

func NewArchiveSyncService(
	provider EventArchiveProvider,
	playerRepo player.Repository,
	gameRepo game.Repository,
	seasonRepo season.Repository,
	ingestion *IngestionService,
	logger *logging.Logger,
) *ArchiveSyncService {
	if logger == nil {
		logger = logging.Default()
	}

	return &ArchiveSyncService{
		provider:   provider,
		playerRepo: playerRepo,
		gameRepo:   gameRepo,
		seasonRepo: seasonRepo,
		ingestion:  ingestion,
		logger:     logger,
	}
}

func (s *ArchiveSyncService) guard(ctx context.Context, operation string) error {
	if s.provider == nil || s.ingestion == nil || s.playerRepo == nil || s.gameRepo == nil || s.seasonRepo == nil {
		s.logger.WarnContext(ctx,
			"skip "+operation+": event archive is not fully configured",
			"provider_nil", s.provider == nil,
			"ingestion_nil", s.ingestion == nil,
			"player_repo_nil", s.playerRepo == nil,
			"game_repo_nil", s.gameRepo == nil,
			"season_repo_nil", s.seasonRepo == nil,
		)
		return fmt.Errorf("%w: event archive is not fully configured", ErrDependencyUnavailable)
	}

	return nil
}

// SyncPlayers reconciles the archive's player export against the canonical
// player table. Matching prefers an existing ref, then the shared upstream
// id, then the natural key; merged rows fill gaps without overwriting what
// the stats feed already asserted.
func (s *ArchiveSyncService) SyncPlayers(ctx context.Context) (int, []ingestrun.Anomaly, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ArchiveSyncService.SyncPlayers")
	defer span.End()

	if err := s.guard(ctx, "archive player sync"); err != nil {
		return 0, nil, err
	}

	rows, payload, err := s.provider.Players(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: fetch players from event archive: %w", ErrSourceUnavailable, err)
	}

	existing, err := s.playerRepo.List(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list players for archive reconciliation: %w", err)
	}
	byID := make(map[int64]player.Player, len(existing))
	for _, item := range existing {
		byID[item.ID] = item
	}

	var (
		upserts   []player.Player
		refs      []player.ExternalRef
		anomalies []ingestrun.Anomaly
		linked    int
	)
	for _, row := range rows {
		if row.ExternalID <= 0 {
			continue
		}
		key := strconv.FormatInt(row.ExternalID, 10)

		resolvedID, err := s.playerRepo.ResolveRef(ctx, player.SourceArchive, key)
		if err != nil {
			return 0, nil, fmt.Errorf("resolve archive player ref external_id=%d: %w", row.ExternalID, err)
		}

		switch {
		case resolvedID > 0:
			if known, ok := byID[resolvedID]; ok {
				merged, changed, conflicts := mergeArchivePlayer(known, row)
				anomalies = append(anomalies, reconciliationAnomalies(key, conflicts)...)
				if changed {
					upserts = append(upserts, merged)
					byID[merged.ID] = merged
				}
			}
			linked++

		case byID[row.ExternalID].ID == row.ExternalID:
			// The archive shares the feed's id space, so an untracked
			// archive id that matches a canonical row is an exact match.
			known := byID[row.ExternalID]
			merged, changed, conflicts := mergeArchivePlayer(known, row)
			anomalies = append(anomalies, reconciliationAnomalies(key, conflicts)...)
			if changed {
				upserts = append(upserts, merged)
				byID[merged.ID] = merged
			}
			refs = append(refs, player.ExternalRef{
				Source:      player.SourceArchive,
				ExternalKey: key,
				PlayerID:    row.ExternalID,
				Confidence:  player.ConfidenceExact,
			})
			linked++

		default:
			matched, ref, anomaly, err := s.matchByNaturalKey(ctx, key, row)
			if err != nil {
				return 0, nil, err
			}
			if anomaly != nil {
				anomalies = append(anomalies, *anomaly)
			}
			if ref != nil {
				refs = append(refs, *ref)
				if matched != nil && ref.Confidence == player.ConfidenceNatural {
					merged, changed, conflicts := mergeArchivePlayer(*matched, row)
					anomalies = append(anomalies, reconciliationAnomalies(key, conflicts)...)
					if changed {
						upserts = append(upserts, merged)
						byID[merged.ID] = merged
					}
				}
				linked++
				continue
			}

			created := newPlayerFromArchive(row)
			upserts = append(upserts, created)
			byID[created.ID] = created
			refs = append(refs, player.ExternalRef{
				Source:      player.SourceArchive,
				ExternalKey: key,
				PlayerID:    created.ID,
				Confidence:  player.ConfidenceExact,
			})
			linked++
		}
	}

	if err := s.ingestion.UpsertPlayers(ctx, upserts); err != nil {
		return 0, nil, fmt.Errorf("upsert reconciled archive players: %w", err)
	}
	if err := s.ingestion.UpsertPlayerRefs(ctx, refs); err != nil {
		return 0, nil, fmt.Errorf("upsert archive player refs: %w", err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceEventArchive, []rawdata.Payload{payload}); err != nil {
		return 0, nil, fmt.Errorf("upsert archive player raw payload: %w", err)
	}

	return linked, anomalies, nil
}

// matchByNaturalKey falls back to name plus birth date. A hit without a
// birth date is linked but flagged low confidence and left unmerged so the
// match stays auditable.
func (s *ArchiveSyncService) matchByNaturalKey(ctx context.Context, key string, row ArchivePlayer) (*player.Player, *player.ExternalRef, *ingestrun.Anomaly, error) {
	naturalKey := player.NaturalKey(row.FirstName, row.LastName, row.BirthDate)
	matched, err := s.playerRepo.FindByNaturalKey(ctx, naturalKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("find player by natural key for archive external_id=%s: %w", key, err)
	}
	if matched == nil {
		return nil, nil, nil, nil
	}

	confidence := player.ConfidenceNatural
	var anomaly *ingestrun.Anomaly
	if row.BirthDate == nil {
		confidence = player.ConfidenceLow
		anomaly = &ingestrun.Anomaly{
			Kind:      ingestrun.AnomalyLowConfidenceMatch,
			EntityKey: "player:" + key,
			Reason:    fmt.Sprintf("archive player %q matched player_id=%d by name only, no birth date to confirm", row.FirstName+" "+row.LastName, matched.ID),
		}
	}

	return matched, &player.ExternalRef{
		Source:      player.SourceArchive,
		ExternalKey: key,
		PlayerID:    matched.ID,
		Confidence:  confidence,
	}, anomaly, nil
}

// SyncEvents lands the archive's play-by-play tables. seasonIDs narrows the
// export to the requested seasons; nil keeps everything. Rows referencing
// unknown games or unresolved players are dropped with anomalies so the run
// report shows exactly what was lost.
func (s *ArchiveSyncService) SyncEvents(ctx context.Context, seasonIDs []int64) (int, []ingestrun.Anomaly, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ArchiveSyncService.SyncEvents")
	defer span.End()

	if err := s.guard(ctx, "archive event sync"); err != nil {
		return 0, nil, err
	}

	bundle, payloads, err := s.provider.AllEvents(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: fetch events from event archive: %w", ErrSourceUnavailable, err)
	}
	bundle = filterBundleBySeasons(bundle, seasonIDs)

	knownGames, err := s.knownGameIDs(ctx)
	if err != nil {
		return 0, nil, err
	}

	identity, newRefs, err := s.resolveEventActors(ctx, bundle)
	if err != nil {
		return 0, nil, err
	}
	if err := s.ingestion.UpsertPlayerRefs(ctx, newRefs); err != nil {
		return 0, nil, fmt.Errorf("upsert event actor refs: %w", err)
	}

	drops := newDropTally()
	shots := mapArchiveShots(bundle.Shots, identity, knownGames, drops)
	goals := mapArchiveGoals(bundle.Goals, identity, knownGames, drops)
	penalties := mapArchivePenalties(bundle.Penalties, identity, knownGames, drops)
	faceoffs := mapArchiveFaceoffs(bundle.Faceoffs, identity, knownGames, drops)
	hits := mapArchiveHits(bundle.Hits, identity, knownGames, drops)
	blocked := mapArchiveBlockedShots(bundle.BlockedShots, identity, knownGames, drops)

	if err := s.ingestion.UpsertShots(ctx, shots); err != nil {
		return 0, nil, fmt.Errorf("upsert archive shots: %w", err)
	}
	if err := s.ingestion.UpsertGoals(ctx, goals); err != nil {
		return 0, nil, fmt.Errorf("upsert archive goals: %w", err)
	}
	if err := s.ingestion.UpsertPenalties(ctx, penalties); err != nil {
		return 0, nil, fmt.Errorf("upsert archive penalties: %w", err)
	}
	if err := s.ingestion.UpsertFaceoffs(ctx, faceoffs); err != nil {
		return 0, nil, fmt.Errorf("upsert archive faceoffs: %w", err)
	}
	if err := s.ingestion.UpsertHits(ctx, hits); err != nil {
		return 0, nil, fmt.Errorf("upsert archive hits: %w", err)
	}
	if err := s.ingestion.UpsertBlockedShots(ctx, blocked); err != nil {
		return 0, nil, fmt.Errorf("upsert archive blocked shots: %w", err)
	}
	if err := s.ingestion.UpsertRawPayloads(ctx, sourceEventArchive, payloads); err != nil {
		return 0, nil, fmt.Errorf("upsert archive event raw payloads: %w", err)
	}

	written := len(shots) + len(goals) + len(penalties) + len(faceoffs) + len(hits) + len(blocked)
	anomalies := drops.anomalies()
	if len(anomalies) > 0 {
		s.logger.WarnContext(ctx, "some archive event rows were dropped", "written", written, "drop_reasons", len(anomalies))
	}

	return written, anomalies, nil
}

func (s *ArchiveSyncService) knownGameIDs(ctx context.Context) (map[int64]bool, error) {
	seasons, err := s.seasonRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seasons for archive event sync: %w", err)
	}

	out := make(map[int64]bool)
	for _, item := range seasons {
		games, err := s.gameRepo.ListBySeason(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("list games for archive event sync season_id=%d: %w", item.ID, err)
		}
		for _, g := range games {
			out[g.ID] = true
		}
	}

	return out, nil
}

// archiveIdentity maps archive player ids onto canonical ids. A missing
// entry means the actor could not be resolved.
type archiveIdentity map[int64]int64

func (m archiveIdentity) resolve(id int64) (int64, bool) {
	canonical, ok := m[id]
	return canonical, ok
}

// resolvePtr maps an optional actor. Nil stays nil; an unresolved id comes
// back nil with ok=false so callers can keep the row and flag the gap.
func (m archiveIdentity) resolvePtr(id *int64) (*int64, bool) {
	if id == nil {
		return nil, true
	}
	canonical, ok := m[*id]
	if !ok {
		return nil, false
	}
	return &canonical, true
}

// resolveEventActors resolves every distinct player id the bundle touches.
// Ids already known to the ref table or the player table resolve in place;
// the latter also get a ref written so the next run skips the lookup.
func (s *ArchiveSyncService) resolveEventActors(ctx context.Context, bundle ArchiveEventBundle) (archiveIdentity, []player.ExternalRef, error) {
	ids := collectActorIDs(bundle)
	identity := make(archiveIdentity, len(ids))
	var refs []player.ExternalRef

	for _, id := range ids {
		key := strconv.FormatInt(id, 10)
		resolved, err := s.playerRepo.ResolveRef(ctx, player.SourceArchive, key)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve event actor ref external_id=%d: %w", id, err)
		}
		if resolved > 0 {
			identity[id] = resolved
			continue
		}

		known, err := s.playerRepo.GetByID(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("get event actor player_id=%d: %w", id, err)
		}
		if known == nil {
			continue
		}
		identity[id] = known.ID
		refs = append(refs, player.ExternalRef{
			Source:      player.SourceArchive,
			ExternalKey: key,
			PlayerID:    known.ID,
			Confidence:  player.ConfidenceExact,
		})
	}

	return identity, refs, nil
}

func collectActorIDs(bundle ArchiveEventBundle) []int64 {
	seen := make(map[int64]bool)
	add := func(id int64) {
		if id > 0 {
			seen[id] = true
		}
	}
	addPtr := func(id *int64) {
		if id != nil {
			add(*id)
		}
	}

	for _, row := range bundle.Shots {
		add(row.PlayerID)
		addPtr(row.GoalieID)
	}
	for _, row := range bundle.Goals {
		add(row.ScorerID)
		addPtr(row.Assist1ID)
		addPtr(row.Assist2ID)
	}
	for _, row := range bundle.Penalties {
		addPtr(row.PlayerID)
	}
	for _, row := range bundle.Faceoffs {
		add(row.HomePlayerID)
		add(row.VisitorPlayerID)
	}
	for _, row := range bundle.Hits {
		add(row.PlayerID)
	}
	for _, row := range bundle.BlockedShots {
		add(row.ShooterID)
		add(row.BlockerID)
	}

	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// dropTally folds per-row drops into one anomaly per (kind, reason key) so a
// single unresolved player does not flood the anomaly table with every shot
// they took.
type dropTally struct {
	counts map[string]int
	kinds  map[string]string
}

func newDropTally() *dropTally {
	return &dropTally{counts: make(map[string]int), kinds: make(map[string]string)}
}

func (t *dropTally) unresolvedActor(table string, archivePlayerID int64) {
	key := fmt.Sprintf("%s:player:%d", table, archivePlayerID)
	t.counts[key]++
	t.kinds[key] = ingestrun.AnomalyIdentityUnresolved
}

func (t *dropTally) unknownGame(table string, gameID int64) {
	key := fmt.Sprintf("%s:game:%d", table, gameID)
	t.counts[key]++
	t.kinds[key] = ingestrun.AnomalyConstraintViolation
}

func (t *dropTally) anomalies() []ingestrun.Anomaly {
	keys := make([]string, 0, len(t.counts))
	for key := range t.counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]ingestrun.Anomaly, 0, len(keys))
	for _, key := range keys {
		out = append(out, ingestrun.Anomaly{
			Kind:      t.kinds[key],
			EntityKey: key,
			Reason:    fmt.Sprintf("%d archive rows dropped", t.counts[key]),
		})
	}

	return out
}

func filterBundleBySeasons(bundle ArchiveEventBundle, seasonIDs []int64) ArchiveEventBundle {
	if len(seasonIDs) == 0 {
		return bundle
	}
	keep := make(map[int64]bool, len(seasonIDs))
	for _, id := range seasonIDs {
		keep[id] = true
	}

	out := ArchiveEventBundle{}
	for _, row := range bundle.Shots {
		if keep[row.SeasonID] {
			out.Shots = append(out.Shots, row)
		}
	}
	for _, row := range bundle.Goals {
		if keep[row.SeasonID] {
			out.Goals = append(out.Goals, row)
		}
	}
	for _, row := range bundle.Penalties {
		if keep[row.SeasonID] {
			out.Penalties = append(out.Penalties, row)
		}
	}
	for _, row := range bundle.Faceoffs {
		if keep[row.SeasonID] {
			out.Faceoffs = append(out.Faceoffs, row)
		}
	}
	for _, row := range bundle.Hits {
		if keep[row.SeasonID] {
			out.Hits = append(out.Hits, row)
		}
	}
	for _, row := range bundle.BlockedShots {
		if keep[row.SeasonID] {
			out.BlockedShots = append(out.BlockedShots, row)
		}
	}

	return out
}

func mapArchiveShots(rows []ArchiveShot, identity archiveIdentity, knownGames map[int64]bool, drops *dropTally) []event.Shot {
	out := make([]event.Shot, 0, len(rows))
	for _, row := range rows {
		if !knownGames[row.GameID] {
			drops.unknownGame("shots", row.GameID)
			continue
		}
		playerID, ok := identity.resolve(row.PlayerID)
		if !ok {
			drops.unresolvedActor("shots", row.PlayerID)
			continue
		}
		goalieID, ok := identity.resolvePtr(row.GoalieID)
		if !ok && row.GoalieID != nil {
			drops.unresolvedActor("shots", *row.GoalieID)
		}

		out = append(out, event.Shot{
			ID:             row.ID,
			GameID:         row.GameID,
			SeasonID:       row.SeasonID,
			PlayerID:       playerID,
			GoalieID:       goalieID,
			TeamID:         row.TeamID,
			OpponentTeamID: row.OpponentTeamID,
			Home:           row.Home,
			Period:         row.Period,
			ClockTime:      row.ClockTime,
			GameSeconds:    row.Seconds,
			X:              row.X,
			Y:              row.Y,
			ShotType:       row.ShotType,
			ShotTypeDesc:   row.ShotTypeDescription,
			Quality:        row.Quality,
			QualityDesc:    row.QualityDescription,
			GoalEventID:    row.GameGoalID,
		})
	}

	return out
}

func mapArchiveGoals(rows []ArchiveGoal, identity archiveIdentity, knownGames map[int64]bool, drops *dropTally) []event.Goal {
	out := make([]event.Goal, 0, len(rows))
	for _, row := range rows {
		if !knownGames[row.GameID] {
			drops.unknownGame("goals", row.GameID)
			continue
		}
		scorerID, ok := identity.resolve(row.ScorerID)
		if !ok {
			drops.unresolvedActor("goals", row.ScorerID)
			continue
		}
		assist1, ok := identity.resolvePtr(row.Assist1ID)
		if !ok && row.Assist1ID != nil {
			drops.unresolvedActor("goals", *row.Assist1ID)
		}
		assist2, ok := identity.resolvePtr(row.Assist2ID)
		if !ok && row.Assist2ID != nil {
			drops.unresolvedActor("goals", *row.Assist2ID)
		}

		out = append(out, event.Goal{
			ID:             row.ID,
			GameID:         row.GameID,
			SeasonID:       row.SeasonID,
			TeamID:         row.TeamID,
			OpponentTeamID: row.OpponentTeamID,
			Home:           row.Home,
			Period:         row.Period,
			ClockTime:      row.ClockTime,
			GameSeconds:    row.Seconds,
			X:              row.X,
			Y:              row.Y,
			ScorerID:       scorerID,
			Assist1ID:      assist1,
			Assist2ID:      assist2,
			GoalType:       row.GoalType,
			PowerPlay:      row.PowerPlay,
			ShortHanded:    row.ShortHanded,
			EmptyNet:       row.EmptyNet,
			PenaltyShot:    row.PenaltyShot,
			Insurance:      row.Insurance,
			GameWinning:    row.GameWinning,
			GameTieing:     row.GameTieing,
		})
	}

	return out
}

func mapArchivePenalties(rows []ArchivePenalty, identity archiveIdentity, knownGames map[int64]bool, drops *dropTally) []event.Penalty {
	out := make([]event.Penalty, 0, len(rows))
	for _, row := range rows {
		if !knownGames[row.GameID] {
			drops.unknownGame("penalties", row.GameID)
			continue
		}
		// Bench penalties legitimately carry no player.
		playerID, ok := identity.resolvePtr(row.PlayerID)
		if !ok && row.PlayerID != nil {
			drops.unresolvedActor("penalties", *row.PlayerID)
		}

		out = append(out, event.Penalty{
			ID:             row.ID,
			GameID:         row.GameID,
			SeasonID:       row.SeasonID,
			PlayerID:       playerID,
			TeamID:         row.TeamID,
			OpponentTeamID: row.OpponentTeamID,
			Home:           row.Home,
			Period:         row.Period,
			ClockTime:      row.ClockTime,
			GameSeconds:    row.Seconds,
			Minutes:        row.Minutes,
			Class:          row.Class,
			Description:    row.Description,
			Offence:        row.Offence,
			Bench:          row.Bench,
			PenaltyShot:    row.PenaltyShot,
			PowerPlay:      row.PowerPlay,
		})
	}

	return out
}

func mapArchiveFaceoffs(rows []ArchiveFaceoff, identity archiveIdentity, knownGames map[int64]bool, drops *dropTally) []event.Faceoff {
	out := make([]event.Faceoff, 0, len(rows))
	for _, row := range rows {
		if !knownGames[row.GameID] {
			drops.unknownGame("faceoffs", row.GameID)
			continue
		}
		homePlayerID, ok := identity.resolve(row.HomePlayerID)
		if !ok {
			drops.unresolvedActor("faceoffs", row.HomePlayerID)
			continue
		}
		visitorPlayerID, ok := identity.resolve(row.VisitorPlayerID)
		if !ok {
			drops.unresolvedActor("faceoffs", row.VisitorPlayerID)
			continue
		}

		out = append(out, event.Faceoff{
			ID:              row.ID,
			GameID:          row.GameID,
			SeasonID:        row.SeasonID,
			HomePlayerID:    homePlayerID,
			VisitorPlayerID: visitorPlayerID,
			HomeTeamID:      row.HomeTeamID,
			VisitorTeamID:   row.VisitorTeamID,
			Period:          row.Period,
			ClockTime:       row.ClockTime,
			GameSeconds:     row.Seconds,
			LocationID:      row.LocationID,
			HomeWin:         row.HomeWin,
			WinTeamID:       row.WinTeamID,
		})
	}

	return out
}

func mapArchiveHits(rows []ArchiveHit, identity archiveIdentity, knownGames map[int64]bool, drops *dropTally) []event.Hit {
	out := make([]event.Hit, 0, len(rows))
	for _, row := range rows {
		if !knownGames[row.GameID] {
			drops.unknownGame("hits", row.GameID)
			continue
		}
		playerID, ok := identity.resolve(row.PlayerID)
		if !ok {
			drops.unresolvedActor("hits", row.PlayerID)
			continue
		}

		out = append(out, event.Hit{
			ID:             row.ID,
			GameID:         row.GameID,
			SeasonID:       row.SeasonID,
			PlayerID:       playerID,
			TeamID:         row.TeamID,
			OpponentTeamID: row.OpponentTeamID,
			Home:           row.Home,
			Period:         row.Period,
			ClockTime:      row.ClockTime,
			GameSeconds:    row.Seconds,
			HitType:        row.HitType,
		})
	}

	return out
}

func mapArchiveBlockedShots(rows []ArchiveBlockedShot, identity archiveIdentity, knownGames map[int64]bool, drops *dropTally) []event.BlockedShot {
	out := make([]event.BlockedShot, 0, len(rows))
	for _, row := range rows {
		if !knownGames[row.GameID] {
			drops.unknownGame("blocked_shots", row.GameID)
			continue
		}
		shooterID, ok := identity.resolve(row.ShooterID)
		if !ok {
			drops.unresolvedActor("blocked_shots", row.ShooterID)
			continue
		}
		blockerID, ok := identity.resolve(row.BlockerID)
		if !ok {
			drops.unresolvedActor("blocked_shots", row.BlockerID)
			continue
		}

		out = append(out, event.BlockedShot{
			ID:            row.ID,
			GameID:        row.GameID,
			SeasonID:      row.SeasonID,
			ShooterID:     shooterID,
			ShooterTeamID: row.ShooterTeamID,
			BlockerID:     blockerID,
			BlockerTeamID: row.BlockerTeamID,
			Home:          row.Home,
			Period:        row.Period,
			ClockTime:     row.ClockTime,
			GameSeconds:   row.Seconds,
		})
	}

	return out
}

// mergeArchivePlayer folds archive biographical data into a canonical row.
// The stats feed stays authoritative: archive values only fill gaps, and a
// disagreement on a stable field keeps the feed value and reports it.
func mergeArchivePlayer(existing player.Player, row ArchivePlayer) (player.Player, bool, []string) {
	merged := existing
	var conflicts []string

	if merged.Position == "" && row.Position != "" {
		merged.Position = row.Position
		merged.PositionClass = player.ClassifyPosition(row.Position)
	}
	if merged.Shoots == "" && row.Shoots != "" {
		merged.Shoots = row.Shoots
	} else if merged.Shoots != "" && row.Shoots != "" && merged.Shoots != row.Shoots {
		conflicts = append(conflicts, "shoots")
	}
	if merged.Catches == "" && row.Catches != "" {
		merged.Catches = row.Catches
	} else if merged.Catches != "" && row.Catches != "" && merged.Catches != row.Catches {
		conflicts = append(conflicts, "catches")
	}
	if merged.Height == "" && row.Height != "" {
		merged.Height = row.Height
	}
	if merged.Weight == nil && row.Weight != nil {
		merged.Weight = row.Weight
	} else if merged.Weight != nil && row.Weight != nil && *merged.Weight != *row.Weight {
		conflicts = append(conflicts, "weight")
	}
	if merged.BirthDate == nil && row.BirthDate != nil {
		merged.BirthDate = row.BirthDate
	} else if merged.BirthDate != nil && row.BirthDate != nil && !merged.BirthDate.Equal(*row.BirthDate) {
		conflicts = append(conflicts, "birth_date")
	}
	if merged.Hometown == "" && row.Hometown != "" {
		merged.Hometown = row.Hometown
	}
	if merged.BirthCountry == "" && row.Nationality != "" {
		merged.BirthCountry = row.Nationality
	}
	if merged.ImageURL == "" && row.ImageURL != "" {
		merged.ImageURL = row.ImageURL
	}

	return merged, playersDiffer(existing, merged), conflicts
}

func playersDiffer(a, b player.Player) bool {
	if a.Position != b.Position || a.Shoots != b.Shoots || a.Catches != b.Catches || a.Height != b.Height {
		return true
	}
	if a.Hometown != b.Hometown || a.BirthCountry != b.BirthCountry || a.ImageURL != b.ImageURL {
		return true
	}
	if (a.Weight == nil) != (b.Weight == nil) || (a.Weight != nil && *a.Weight != *b.Weight) {
		return true
	}
	if (a.BirthDate == nil) != (b.BirthDate == nil) || (a.BirthDate != nil && !a.BirthDate.Equal(*b.BirthDate)) {
		return true
	}

	return false
}

func newPlayerFromArchive(row ArchivePlayer) player.Player {
	return player.Player{
		ID:            row.ExternalID,
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
		BirthCountry:  row.Nationality,
		Rookie:        row.Rookie,
		ImageURL:      row.ImageURL,
		Active:        true,
	}
}

func reconciliationAnomalies(key string, conflicts []string) []ingestrun.Anomaly {
	out := make([]ingestrun.Anomaly, 0, len(conflicts))
	for _, field := range conflicts {
		out = append(out, ingestrun.Anomaly{
			Kind:      ingestrun.AnomalyReconciliationConflict,
			EntityKey: "player:" + key,
			Reason:    fmt.Sprintf("archive disagrees with stats feed on %s, feed value kept", field),
		})
	}

	return out
}
