package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/event"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

// EventRepository persists the six play-by-play kinds. Writes go through
// chunked multi-row statements; a season's shots file alone can carry several
// thousand rows and a statement per row makes full refreshes crawl.
type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) UpsertShots(ctx context.Context, shots []event.Shot) error {
	if len(shots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert shots: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	columns := []string{
		"id", "game_id", "season_id", "player_id", "goalie_id", "team_id",
		"opponent_team_id", "home", "period", "clock_time", "game_seconds",
		"x", "y", "shot_type", "shot_type_desc", "quality", "quality_desc",
		"goal_event_id",
	}
	suffix := `ON CONFLICT (id)
DO UPDATE SET
    goalie_id = EXCLUDED.goalie_id,
    x = EXCLUDED.x,
    y = EXCLUDED.y,
    shot_type = EXCLUDED.shot_type,
    shot_type_desc = EXCLUDED.shot_type_desc,
    quality = EXCLUDED.quality,
    quality_desc = EXCLUDED.quality_desc,
    goal_event_id = EXCLUDED.goal_event_id`

	for offset := 0; offset < len(shots); offset += chunkSize {
		from, to := chunkBounds(len(shots), offset)
		builder := qb.InsertInto("shots").Columns(columns...)
		for _, item := range shots[from:to] {
			builder.Values(
				item.ID, item.GameID, item.SeasonID, item.PlayerID, item.GoalieID,
				item.TeamID, item.OpponentTeamID, item.Home, item.Period,
				item.ClockTime, item.GameSeconds, item.X, item.Y, item.ShotType,
				item.ShotTypeDesc, item.Quality, item.QualityDesc, item.GoalEventID,
			)
		}
		query, args, err := builder.Suffix(suffix).ToSQL()
		if err != nil {
			return fmt.Errorf("build upsert shots query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert shots chunk at %d: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert shots tx: %w", err)
	}
	return nil
}

func (r *EventRepository) UpsertGoals(ctx context.Context, goals []event.Goal) error {
	if len(goals) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert goals: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	columns := []string{
		"id", "game_id", "season_id", "team_id", "opponent_team_id", "home",
		"period", "clock_time", "game_seconds", "x", "y", "scorer_id",
		"assist1_id", "assist2_id", "goal_type", "power_play", "short_handed",
		"empty_net", "penalty_shot", "insurance", "game_winning", "game_tieing",
	}
	suffix := `ON CONFLICT (id)
DO UPDATE SET
    x = EXCLUDED.x,
    y = EXCLUDED.y,
    assist1_id = EXCLUDED.assist1_id,
    assist2_id = EXCLUDED.assist2_id,
    goal_type = EXCLUDED.goal_type,
    power_play = EXCLUDED.power_play,
    short_handed = EXCLUDED.short_handed,
    empty_net = EXCLUDED.empty_net,
    penalty_shot = EXCLUDED.penalty_shot,
    insurance = EXCLUDED.insurance,
    game_winning = EXCLUDED.game_winning,
    game_tieing = EXCLUDED.game_tieing`

	for offset := 0; offset < len(goals); offset += chunkSize {
		from, to := chunkBounds(len(goals), offset)
		builder := qb.InsertInto("goals").Columns(columns...)
		for _, item := range goals[from:to] {
			builder.Values(
				item.ID, item.GameID, item.SeasonID, item.TeamID,
				item.OpponentTeamID, item.Home, item.Period, item.ClockTime,
				item.GameSeconds, item.X, item.Y, item.ScorerID, item.Assist1ID,
				item.Assist2ID, item.GoalType, item.PowerPlay, item.ShortHanded,
				item.EmptyNet, item.PenaltyShot, item.Insurance, item.GameWinning,
				item.GameTieing,
			)
		}
		query, args, err := builder.Suffix(suffix).ToSQL()
		if err != nil {
			return fmt.Errorf("build upsert goals query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert goals chunk at %d: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert goals tx: %w", err)
	}
	return nil
}

func (r *EventRepository) UpsertPenalties(ctx context.Context, penalties []event.Penalty) error {
	if len(penalties) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert penalties: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	columns := []string{
		"id", "game_id", "season_id", "player_id", "team_id",
		"opponent_team_id", "home", "period", "clock_time", "game_seconds",
		"minutes", "class", "description", "offence", "bench", "penalty_shot",
		"power_play",
	}
	suffix := `ON CONFLICT (id)
DO UPDATE SET
    minutes = EXCLUDED.minutes,
    class = EXCLUDED.class,
    description = EXCLUDED.description,
    offence = EXCLUDED.offence,
    bench = EXCLUDED.bench,
    penalty_shot = EXCLUDED.penalty_shot,
    power_play = EXCLUDED.power_play`

	for offset := 0; offset < len(penalties); offset += chunkSize {
		from, to := chunkBounds(len(penalties), offset)
		builder := qb.InsertInto("penalties").Columns(columns...)
		for _, item := range penalties[from:to] {
			builder.Values(
				item.ID, item.GameID, item.SeasonID, item.PlayerID, item.TeamID,
				item.OpponentTeamID, item.Home, item.Period, item.ClockTime,
				item.GameSeconds, item.Minutes, item.Class, item.Description,
				item.Offence, item.Bench, item.PenaltyShot, item.PowerPlay,
			)
		}
		query, args, err := builder.Suffix(suffix).ToSQL()
		if err != nil {
			return fmt.Errorf("build upsert penalties query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert penalties chunk at %d: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert penalties tx: %w", err)
	}
	return nil
}

func (r *EventRepository) UpsertFaceoffs(ctx context.Context, faceoffs []event.Faceoff) error {
	if len(faceoffs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert faceoffs: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	columns := []string{
		"id", "game_id", "season_id", "home_player_id", "visitor_player_id",
		"home_team_id", "visitor_team_id", "period", "clock_time",
		"game_seconds", "location_id", "home_win", "win_team_id",
	}
	suffix := `ON CONFLICT (id)
DO UPDATE SET
    location_id = EXCLUDED.location_id,
    home_win = EXCLUDED.home_win,
    win_team_id = EXCLUDED.win_team_id`

	for offset := 0; offset < len(faceoffs); offset += chunkSize {
		from, to := chunkBounds(len(faceoffs), offset)
		builder := qb.InsertInto("faceoffs").Columns(columns...)
		for _, item := range faceoffs[from:to] {
			builder.Values(
				item.ID, item.GameID, item.SeasonID, item.HomePlayerID,
				item.VisitorPlayerID, item.HomeTeamID, item.VisitorTeamID,
				item.Period, item.ClockTime, item.GameSeconds, item.LocationID,
				item.HomeWin, item.WinTeamID,
			)
		}
		query, args, err := builder.Suffix(suffix).ToSQL()
		if err != nil {
			return fmt.Errorf("build upsert faceoffs query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert faceoffs chunk at %d: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert faceoffs tx: %w", err)
	}
	return nil
}

func (r *EventRepository) UpsertHits(ctx context.Context, hits []event.Hit) error {
	if len(hits) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert hits: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	columns := []string{
		"id", "game_id", "season_id", "player_id", "team_id",
		"opponent_team_id", "home", "period", "clock_time", "game_seconds",
		"hit_type",
	}
	suffix := `ON CONFLICT (id)
DO UPDATE SET
    hit_type = EXCLUDED.hit_type`

	for offset := 0; offset < len(hits); offset += chunkSize {
		from, to := chunkBounds(len(hits), offset)
		builder := qb.InsertInto("hits").Columns(columns...)
		for _, item := range hits[from:to] {
			builder.Values(
				item.ID, item.GameID, item.SeasonID, item.PlayerID, item.TeamID,
				item.OpponentTeamID, item.Home, item.Period, item.ClockTime,
				item.GameSeconds, item.HitType,
			)
		}
		query, args, err := builder.Suffix(suffix).ToSQL()
		if err != nil {
			return fmt.Errorf("build upsert hits query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert hits chunk at %d: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert hits tx: %w", err)
	}
	return nil
}

func (r *EventRepository) UpsertBlockedShots(ctx context.Context, blocks []event.BlockedShot) error {
	if len(blocks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert blocked shots: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	columns := []string{
		"id", "game_id", "season_id", "shooter_id", "shooter_team_id",
		"blocker_id", "blocker_team_id", "home", "period", "clock_time",
		"game_seconds",
	}
	suffix := `ON CONFLICT (id)
DO UPDATE SET
    blocker_id = EXCLUDED.blocker_id,
    blocker_team_id = EXCLUDED.blocker_team_id`

	for offset := 0; offset < len(blocks); offset += chunkSize {
		from, to := chunkBounds(len(blocks), offset)
		builder := qb.InsertInto("blocked_shots").Columns(columns...)
		for _, item := range blocks[from:to] {
			builder.Values(
				item.ID, item.GameID, item.SeasonID, item.ShooterID,
				item.ShooterTeamID, item.BlockerID, item.BlockerTeamID,
				item.Home, item.Period, item.ClockTime, item.GameSeconds,
			)
		}
		query, args, err := builder.Suffix(suffix).ToSQL()
		if err != nil {
			return fmt.Errorf("build upsert blocked shots query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert blocked shots chunk at %d: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert blocked shots tx: %w", err)
	}
	return nil
}

func (r *EventRepository) ListShotsBySeason(ctx context.Context, seasonID int64) ([]event.Shot, error) {
	query, args, err := qb.Select(
		"id", "game_id", "season_id", "player_id", "goalie_id", "team_id",
		"opponent_team_id", "home", "period", "clock_time", "game_seconds",
		"x", "y", "shot_type", "shot_type_desc", "quality", "quality_desc",
		"goal_event_id",
	).From("shots").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("game_id", "period", "game_seconds", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list shots query: %w", err)
	}

	var rows []shotRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list shots season=%d: %w", seasonID, err)
	}

	out := make([]event.Shot, 0, len(rows))
	for _, row := range rows {
		out = append(out, event.Shot(row))
	}
	return out, nil
}

func (r *EventRepository) ListGoalsBySeason(ctx context.Context, seasonID int64) ([]event.Goal, error) {
	query, args, err := qb.Select(
		"id", "game_id", "season_id", "team_id", "opponent_team_id", "home",
		"period", "clock_time", "game_seconds", "x", "y", "scorer_id",
		"assist1_id", "assist2_id", "goal_type", "power_play", "short_handed",
		"empty_net", "penalty_shot", "insurance", "game_winning", "game_tieing",
	).From("goals").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("game_id", "period", "game_seconds", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list goals query: %w", err)
	}

	var rows []goalRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list goals season=%d: %w", seasonID, err)
	}

	out := make([]event.Goal, 0, len(rows))
	for _, row := range rows {
		out = append(out, event.Goal(row))
	}
	return out, nil
}

func (r *EventRepository) ListPenaltiesBySeason(ctx context.Context, seasonID int64) ([]event.Penalty, error) {
	query, args, err := qb.Select(
		"id", "game_id", "season_id", "player_id", "team_id",
		"opponent_team_id", "home", "period", "clock_time", "game_seconds",
		"minutes", "class", "description", "offence", "bench", "penalty_shot",
		"power_play",
	).From("penalties").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("game_id", "period", "game_seconds", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list penalties query: %w", err)
	}

	var rows []penaltyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list penalties season=%d: %w", seasonID, err)
	}

	out := make([]event.Penalty, 0, len(rows))
	for _, row := range rows {
		out = append(out, event.Penalty(row))
	}
	return out, nil
}

func (r *EventRepository) ListFaceoffsBySeason(ctx context.Context, seasonID int64) ([]event.Faceoff, error) {
	query, args, err := qb.Select(
		"id", "game_id", "season_id", "home_player_id", "visitor_player_id",
		"home_team_id", "visitor_team_id", "period", "clock_time",
		"game_seconds", "location_id", "home_win", "win_team_id",
	).From("faceoffs").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("game_id", "period", "game_seconds", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list faceoffs query: %w", err)
	}

	var rows []faceoffRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list faceoffs season=%d: %w", seasonID, err)
	}

	out := make([]event.Faceoff, 0, len(rows))
	for _, row := range rows {
		out = append(out, event.Faceoff(row))
	}
	return out, nil
}

func (r *EventRepository) ListHitsBySeason(ctx context.Context, seasonID int64) ([]event.Hit, error) {
	query, args, err := qb.Select(
		"id", "game_id", "season_id", "player_id", "team_id",
		"opponent_team_id", "home", "period", "clock_time", "game_seconds",
		"hit_type",
	).From("hits").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("game_id", "period", "game_seconds", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list hits query: %w", err)
	}

	var rows []hitRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list hits season=%d: %w", seasonID, err)
	}

	out := make([]event.Hit, 0, len(rows))
	for _, row := range rows {
		out = append(out, event.Hit(row))
	}
	return out, nil
}

func (r *EventRepository) ListBlockedShotsBySeason(ctx context.Context, seasonID int64) ([]event.BlockedShot, error) {
	query, args, err := qb.Select(
		"id", "game_id", "season_id", "shooter_id", "shooter_team_id",
		"blocker_id", "blocker_team_id", "home", "period", "clock_time",
		"game_seconds",
	).From("blocked_shots").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("game_id", "period", "game_seconds", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list blocked shots query: %w", err)
	}

	var rows []blockedShotRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list blocked shots season=%d: %w", seasonID, err)
	}

	out := make([]event.BlockedShot, 0, len(rows))
	for _, row := range rows {
		out = append(out, event.BlockedShot(row))
	}
	return out, nil
}

func (r *EventRepository) SeasonsWithShotCoordinates(ctx context.Context) (map[int64]bool, error) {
	query, args, err := qb.Select(
		"season_id",
		"BOOL_OR(x IS NOT NULL AND y IS NOT NULL) AS has_coordinates",
	).From("shots").
		GroupBy("season_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build shot coordinate coverage query: %w", err)
	}

	var rows []struct {
		SeasonID       int64 `db:"season_id"`
		HasCoordinates bool  `db:"has_coordinates"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("shot coordinate coverage: %w", err)
	}

	out := make(map[int64]bool, len(rows))
	for _, row := range rows {
		out[row.SeasonID] = row.HasCoordinates
	}
	return out, nil
}

func (r *EventRepository) CountsBySeason(ctx context.Context, seasonID int64) (event.Counts, error) {
	var counts event.Counts
	targets := []struct {
		table string
		dest  *int
	}{
		{"shots", &counts.Shots},
		{"goals", &counts.Goals},
		{"penalties", &counts.Penalties},
		{"faceoffs", &counts.Faceoffs},
		{"hits", &counts.Hits},
		{"blocked_shots", &counts.BlockedShots},
	}

	for _, target := range targets {
		query, args, err := qb.Select("COUNT(1)").From(target.table).
			Where(qb.Eq("season_id", seasonID)).
			ToSQL()
		if err != nil {
			return event.Counts{}, fmt.Errorf("build count %s query: %w", target.table, err)
		}
		if err := r.db.GetContext(ctx, target.dest, query, args...); err != nil {
			return event.Counts{}, fmt.Errorf("count %s season=%d: %w", target.table, seasonID, err)
		}
	}

	return counts, nil
}

// Row models convert with direct struct conversions; keep the field order in
// lockstep with the domain types.

type shotRow struct {
	ID             int64    `db:"id"`
	GameID         int64    `db:"game_id"`
	SeasonID       int64    `db:"season_id"`
	PlayerID       int64    `db:"player_id"`
	GoalieID       *int64   `db:"goalie_id"`
	TeamID         int64    `db:"team_id"`
	OpponentTeamID int64    `db:"opponent_team_id"`
	Home           bool     `db:"home"`
	Period         int      `db:"period"`
	ClockTime      string   `db:"clock_time"`
	GameSeconds    int      `db:"game_seconds"`
	X              *float64 `db:"x"`
	Y              *float64 `db:"y"`
	ShotType       *int     `db:"shot_type"`
	ShotTypeDesc   string   `db:"shot_type_desc"`
	Quality        *int     `db:"quality"`
	QualityDesc    string   `db:"quality_desc"`
	GoalEventID    *int64   `db:"goal_event_id"`
}

type goalRow struct {
	ID             int64    `db:"id"`
	GameID         int64    `db:"game_id"`
	SeasonID       int64    `db:"season_id"`
	TeamID         int64    `db:"team_id"`
	OpponentTeamID int64    `db:"opponent_team_id"`
	Home           bool     `db:"home"`
	Period         int      `db:"period"`
	ClockTime      string   `db:"clock_time"`
	GameSeconds    int      `db:"game_seconds"`
	X              *float64 `db:"x"`
	Y              *float64 `db:"y"`
	ScorerID       int64    `db:"scorer_id"`
	Assist1ID      *int64   `db:"assist1_id"`
	Assist2ID      *int64   `db:"assist2_id"`
	GoalType       string   `db:"goal_type"`
	PowerPlay      bool     `db:"power_play"`
	ShortHanded    bool     `db:"short_handed"`
	EmptyNet       bool     `db:"empty_net"`
	PenaltyShot    bool     `db:"penalty_shot"`
	Insurance      bool     `db:"insurance"`
	GameWinning    bool     `db:"game_winning"`
	GameTieing     bool     `db:"game_tieing"`
}

type penaltyRow struct {
	ID             int64   `db:"id"`
	GameID         int64   `db:"game_id"`
	SeasonID       int64   `db:"season_id"`
	PlayerID       *int64  `db:"player_id"`
	TeamID         int64   `db:"team_id"`
	OpponentTeamID int64   `db:"opponent_team_id"`
	Home           bool    `db:"home"`
	Period         int     `db:"period"`
	ClockTime      string  `db:"clock_time"`
	GameSeconds    int     `db:"game_seconds"`
	Minutes        float64 `db:"minutes"`
	Class          string  `db:"class"`
	Description    string  `db:"description"`
	Offence        string  `db:"offence"`
	Bench          bool    `db:"bench"`
	PenaltyShot    bool    `db:"penalty_shot"`
	PowerPlay      bool    `db:"power_play"`
}

type faceoffRow struct {
	ID              int64  `db:"id"`
	GameID          int64  `db:"game_id"`
	SeasonID        int64  `db:"season_id"`
	HomePlayerID    int64  `db:"home_player_id"`
	VisitorPlayerID int64  `db:"visitor_player_id"`
	HomeTeamID      int64  `db:"home_team_id"`
	VisitorTeamID   int64  `db:"visitor_team_id"`
	Period          int    `db:"period"`
	ClockTime       string `db:"clock_time"`
	GameSeconds     int    `db:"game_seconds"`
	LocationID      *int   `db:"location_id"`
	HomeWin         bool   `db:"home_win"`
	WinTeamID       int64  `db:"win_team_id"`
}

type hitRow struct {
	ID             int64  `db:"id"`
	GameID         int64  `db:"game_id"`
	SeasonID       int64  `db:"season_id"`
	PlayerID       int64  `db:"player_id"`
	TeamID         int64  `db:"team_id"`
	OpponentTeamID int64  `db:"opponent_team_id"`
	Home           bool   `db:"home"`
	Period         int    `db:"period"`
	ClockTime      string `db:"clock_time"`
	GameSeconds    int    `db:"game_seconds"`
	HitType        *int   `db:"hit_type"`
}

type blockedShotRow struct {
	ID            int64  `db:"id"`
	GameID        int64  `db:"game_id"`
	SeasonID      int64  `db:"season_id"`
	ShooterID     int64  `db:"shooter_id"`
	ShooterTeamID int64  `db:"shooter_team_id"`
	BlockerID     int64  `db:"blocker_id"`
	BlockerTeamID int64  `db:"blocker_team_id"`
	Home          bool   `db:"home"`
	Period        int    `db:"period"`
	ClockTime     string `db:"clock_time"`
	GameSeconds   int    `db:"game_seconds"`
}
