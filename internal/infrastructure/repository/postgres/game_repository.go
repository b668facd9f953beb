package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/game"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type GameRepository struct {
	db *sqlx.DB
}

var gameSelectColumns = []string{
	"id",
	"season_id",
	"home_team_id",
	"visiting_team_id",
	"home_score",
	"visiting_score",
	"status",
	"overtime",
	"shootout",
	"scheduled_at",
	"venue_name",
	"venue_location",
	"attendance",
	"day_of_week",
	"is_weekend",
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) UpsertMany(ctx context.Context, games []game.Game) error {
	if len(games) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert games: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range games {
		insertModel := gameInsertModel{
			ID:             item.ID,
			SeasonID:       item.SeasonID,
			HomeTeamID:     item.HomeTeamID,
			VisitingTeamID: item.VisitingTeamID,
			HomeScore:      item.HomeScore,
			VisitingScore:  item.VisitingScore,
			Status:         item.Status,
			Overtime:       item.Overtime,
			Shootout:       item.Shootout,
			ScheduledAt:    item.ScheduledAt,
			VenueName:      item.VenueName,
			VenueLocation:  item.VenueLocation,
			Attendance:     item.Attendance,
			DayOfWeek:      item.DayOfWeek,
			IsWeekend:      item.IsWeekend,
		}
		query, args, err := qb.InsertModel("games", insertModel, `ON CONFLICT (id)
DO UPDATE SET
    season_id = EXCLUDED.season_id,
    home_team_id = EXCLUDED.home_team_id,
    visiting_team_id = EXCLUDED.visiting_team_id,
    home_score = EXCLUDED.home_score,
    visiting_score = EXCLUDED.visiting_score,
    status = EXCLUDED.status,
    overtime = EXCLUDED.overtime,
    shootout = EXCLUDED.shootout,
    scheduled_at = EXCLUDED.scheduled_at,
    venue_name = EXCLUDED.venue_name,
    venue_location = EXCLUDED.venue_location,
    attendance = COALESCE(EXCLUDED.attendance, games.attendance),
    day_of_week = EXCLUDED.day_of_week,
    is_weekend = EXCLUDED.is_weekend,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert game query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert game id=%d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert games tx: %w", err)
	}
	return nil
}

func (r *GameRepository) GetByID(ctx context.Context, id int64) (*game.Game, error) {
	query, args, err := qb.Select(gameSelectColumns...).From("games").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get game query: %w", err)
	}

	var row gameRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get game id=%d: %w", id, err)
	}

	item := row.toDomain()
	return &item, nil
}

func (r *GameRepository) ListBySeason(ctx context.Context, seasonID int64) ([]game.Game, error) {
	return r.list(ctx, qb.Eq("season_id", seasonID))
}

// ListFinalBySeason returns terminal games ordered by scheduled time, the
// order streak and head-to-head folds depend on.
func (r *GameRepository) ListFinalBySeason(ctx context.Context, seasonID int64) ([]game.Game, error) {
	return r.list(ctx,
		qb.Eq("season_id", seasonID),
		qb.In("status", []any{game.StatusFinal, game.StatusFinalOT, game.StatusFinalSO}),
	)
}

func (r *GameRepository) list(ctx context.Context, conditions ...qb.Condition) ([]game.Game, error) {
	query, args, err := qb.Select(gameSelectColumns...).From("games").
		Where(conditions...).
		OrderBy("scheduled_at NULLS LAST", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list games query: %w", err)
	}

	var rows []gameRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type gameRow struct {
	ID             int64      `db:"id"`
	SeasonID       int64      `db:"season_id"`
	HomeTeamID     int64      `db:"home_team_id"`
	VisitingTeamID int64      `db:"visiting_team_id"`
	HomeScore      *int       `db:"home_score"`
	VisitingScore  *int       `db:"visiting_score"`
	Status         string     `db:"status"`
	Overtime       bool       `db:"overtime"`
	Shootout       bool       `db:"shootout"`
	ScheduledAt    *time.Time `db:"scheduled_at"`
	VenueName      string     `db:"venue_name"`
	VenueLocation  string     `db:"venue_location"`
	Attendance     *int       `db:"attendance"`
	DayOfWeek      string     `db:"day_of_week"`
	IsWeekend      bool       `db:"is_weekend"`
}

func (row gameRow) toDomain() game.Game {
	return game.Game{
		ID:             row.ID,
		SeasonID:       row.SeasonID,
		HomeTeamID:     row.HomeTeamID,
		VisitingTeamID: row.VisitingTeamID,
		HomeScore:      row.HomeScore,
		VisitingScore:  row.VisitingScore,
		Status:         row.Status,
		Overtime:       row.Overtime,
		Shootout:       row.Shootout,
		ScheduledAt:    row.ScheduledAt,
		VenueName:      row.VenueName,
		VenueLocation:  row.VenueLocation,
		Attendance:     row.Attendance,
		DayOfWeek:      row.DayOfWeek,
		IsWeekend:      row.IsWeekend,
	}
}

type gameInsertModel struct {
	ID             int64      `db:"id"`
	SeasonID       int64      `db:"season_id"`
	HomeTeamID     int64      `db:"home_team_id"`
	VisitingTeamID int64      `db:"visiting_team_id"`
	HomeScore      *int       `db:"home_score"`
	VisitingScore  *int       `db:"visiting_score"`
	Status         string     `db:"status"`
	Overtime       bool       `db:"overtime"`
	Shootout       bool       `db:"shootout"`
	ScheduledAt    *time.Time `db:"scheduled_at"`
	VenueName      string     `db:"venue_name"`
	VenueLocation  string     `db:"venue_location"`
	Attendance     *int       `db:"attendance"`
	DayOfWeek      string     `db:"day_of_week"`
	IsWeekend      bool       `db:"is_weekend"`
}
