package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/goaliestats"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type GoalieStatsRepository struct {
	db *sqlx.DB
}

var goalieStatsColumns = []string{
	"player_id", "team_id", "season_id", "games_played", "wins", "losses",
	"ot_losses", "so_losses", "seconds_played", "shots_against", "saves",
	"goals_against", "gaa", "save_pct", "shutouts",
}

func NewGoalieStatsRepository(db *sqlx.DB) *GoalieStatsRepository {
	return &GoalieStatsRepository{db: db}
}

func (r *GoalieStatsRepository) UpsertMany(ctx context.Context, lines []goaliestats.SeasonLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert goalie stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range lines {
		insertModel := goalieStatsModel(item)
		query, args, err := qb.InsertModel("goalie_stats", insertModel, `ON CONFLICT (player_id, team_id, season_id)
DO UPDATE SET
    games_played = EXCLUDED.games_played,
    wins = EXCLUDED.wins,
    losses = EXCLUDED.losses,
    ot_losses = EXCLUDED.ot_losses,
    so_losses = EXCLUDED.so_losses,
    seconds_played = EXCLUDED.seconds_played,
    shots_against = EXCLUDED.shots_against,
    saves = EXCLUDED.saves,
    goals_against = EXCLUDED.goals_against,
    gaa = EXCLUDED.gaa,
    save_pct = EXCLUDED.save_pct,
    shutouts = EXCLUDED.shutouts,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert goalie stats query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert goalie stats player=%d season=%d: %w", item.PlayerID, item.SeasonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert goalie stats tx: %w", err)
	}
	return nil
}

func (r *GoalieStatsRepository) ListBySeason(ctx context.Context, seasonID int64) ([]goaliestats.SeasonLine, error) {
	return r.list(ctx, qb.Eq("season_id", seasonID))
}

func (r *GoalieStatsRepository) ListAll(ctx context.Context) ([]goaliestats.SeasonLine, error) {
	return r.list(ctx)
}

func (r *GoalieStatsRepository) list(ctx context.Context, conditions ...qb.Condition) ([]goaliestats.SeasonLine, error) {
	query, args, err := qb.Select(goalieStatsColumns...).From("goalie_stats").
		Where(conditions...).
		OrderBy("season_id", "team_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list goalie stats query: %w", err)
	}

	var rows []goalieStatsRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list goalie stats: %w", err)
	}

	out := make([]goaliestats.SeasonLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, goaliestats.SeasonLine(row))
	}
	return out, nil
}

type goalieStatsRow struct {
	PlayerID       int64    `db:"player_id"`
	TeamID         int64    `db:"team_id"`
	SeasonID       int64    `db:"season_id"`
	GamesPlayed    int      `db:"games_played"`
	Wins           int      `db:"wins"`
	Losses         int      `db:"losses"`
	OTLosses       int      `db:"ot_losses"`
	ShootoutLosses int      `db:"so_losses"`
	SecondsPlayed  int      `db:"seconds_played"`
	ShotsAgainst   int      `db:"shots_against"`
	Saves          int      `db:"saves"`
	GoalsAgainst   int      `db:"goals_against"`
	GAA            *float64 `db:"gaa"`
	SavePct        *float64 `db:"save_pct"`
	Shutouts       int      `db:"shutouts"`
}

func goalieStatsModel(item goaliestats.SeasonLine) goalieStatsRow {
	return goalieStatsRow(item)
}
