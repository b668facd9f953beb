package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/roster"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type RosterRepository struct {
	db *sqlx.DB
}

func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) UpsertMany(ctx context.Context, assignments []roster.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert roster assignments: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range assignments {
		insertModel := rosterInsertModel{
			PlayerID:     item.PlayerID,
			TeamID:       item.TeamID,
			SeasonID:     item.SeasonID,
			JerseyNumber: item.JerseyNumber,
			Position:     item.Position,
			Status:       item.Status,
		}
		query, args, err := qb.InsertModel("roster_assignments", insertModel, `ON CONFLICT (player_id, team_id, season_id)
DO UPDATE SET
    jersey_number = EXCLUDED.jersey_number,
    position = EXCLUDED.position,
    status = EXCLUDED.status,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert roster assignment query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert roster assignment player=%d team=%d season=%d: %w",
				item.PlayerID, item.TeamID, item.SeasonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert roster assignments tx: %w", err)
	}
	return nil
}

func (r *RosterRepository) ListBySeason(ctx context.Context, seasonID int64) ([]roster.Assignment, error) {
	return r.list(ctx, qb.Eq("season_id", seasonID))
}

func (r *RosterRepository) ListByTeamSeason(ctx context.Context, teamID, seasonID int64) ([]roster.Assignment, error) {
	return r.list(ctx, qb.Eq("team_id", teamID), qb.Eq("season_id", seasonID))
}

func (r *RosterRepository) list(ctx context.Context, conditions ...qb.Condition) ([]roster.Assignment, error) {
	query, args, err := qb.Select(
		"player_id", "team_id", "season_id", "jersey_number", "position", "status",
	).From("roster_assignments").
		Where(conditions...).
		OrderBy("team_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list roster assignments query: %w", err)
	}

	var rows []rosterRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list roster assignments: %w", err)
	}

	out := make([]roster.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, roster.Assignment{
			PlayerID:     row.PlayerID,
			TeamID:       row.TeamID,
			SeasonID:     row.SeasonID,
			JerseyNumber: row.JerseyNumber,
			Position:     row.Position,
			Status:       row.Status,
		})
	}
	return out, nil
}

type rosterRow struct {
	PlayerID     int64  `db:"player_id"`
	TeamID       int64  `db:"team_id"`
	SeasonID     int64  `db:"season_id"`
	JerseyNumber *int   `db:"jersey_number"`
	Position     string `db:"position"`
	Status       string `db:"status"`
}

type rosterInsertModel struct {
	PlayerID     int64  `db:"player_id"`
	TeamID       int64  `db:"team_id"`
	SeasonID     int64  `db:"season_id"`
	JerseyNumber *int   `db:"jersey_number"`
	Position     string `db:"position"`
	Status       string `db:"status"`
}
