package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/boxscore"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type BoxscoreRepository struct {
	db *sqlx.DB
}

var boxscoreColumns = []string{
	"game_id", "season_id", "player_id", "team_id",
	"goals", "assists", "points", "shots", "blocks", "hits",
	"faceoff_wins", "faceoff_attempts", "penalty_minutes", "game_score",
}

func NewBoxscoreRepository(db *sqlx.DB) *BoxscoreRepository {
	return &BoxscoreRepository{db: db}
}

// ReplaceBySeason swaps the season's per-game lines in one transaction.
// Boxscore lines are a pure function of the events, so a delete-and-insert
// is simpler and safer than diffing against the previous run.
func (r *BoxscoreRepository) ReplaceBySeason(ctx context.Context, seasonID int64, lines []boxscore.Line) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace boxscore lines: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	deleteQuery, deleteArgs, err := qb.DeleteFrom("game_player_stats").
		Where(qb.Eq("season_id", seasonID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear boxscore lines query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("clear boxscore lines season=%d: %w", seasonID, err)
	}

	for offset := 0; offset < len(lines); offset += chunkSize {
		from, to := chunkBounds(len(lines), offset)
		builder := qb.InsertInto("game_player_stats").Columns(boxscoreColumns...)
		for _, item := range lines[from:to] {
			builder.Values(
				item.GameID, item.SeasonID, item.PlayerID, item.TeamID,
				item.Goals, item.Assists, item.Points, item.Shots, item.Blocks,
				item.Hits, item.FaceoffWins, item.FaceoffAttempts,
				item.PenaltyMinutes, item.GameScore,
			)
		}
		query, args, err := builder.ToSQL()
		if err != nil {
			return fmt.Errorf("build insert boxscore lines query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert boxscore lines chunk at %d: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace boxscore lines tx: %w", err)
	}
	return nil
}

func (r *BoxscoreRepository) ListBySeason(ctx context.Context, seasonID int64) ([]boxscore.Line, error) {
	return r.list(ctx, qb.Eq("season_id", seasonID))
}

func (r *BoxscoreRepository) ListByGame(ctx context.Context, gameID int64) ([]boxscore.Line, error) {
	return r.list(ctx, qb.Eq("game_id", gameID))
}

func (r *BoxscoreRepository) list(ctx context.Context, conditions ...qb.Condition) ([]boxscore.Line, error) {
	query, args, err := qb.Select(boxscoreColumns...).From("game_player_stats").
		Where(conditions...).
		OrderBy("game_id", "team_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list boxscore lines query: %w", err)
	}

	var rows []boxscoreRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list boxscore lines: %w", err)
	}

	out := make([]boxscore.Line, 0, len(rows))
	for _, row := range rows {
		out = append(out, boxscore.Line(row))
	}
	return out, nil
}

type boxscoreRow struct {
	GameID          int64   `db:"game_id"`
	SeasonID        int64   `db:"season_id"`
	PlayerID        int64   `db:"player_id"`
	TeamID          int64   `db:"team_id"`
	Goals           int     `db:"goals"`
	Assists         int     `db:"assists"`
	Points          int     `db:"points"`
	Shots           int     `db:"shots"`
	Blocks          int     `db:"blocks"`
	Hits            int     `db:"hits"`
	FaceoffWins     int     `db:"faceoff_wins"`
	FaceoffAttempts int     `db:"faceoff_attempts"`
	PenaltyMinutes  float64 `db:"penalty_minutes"`
	GameScore       float64 `db:"game_score"`
}
