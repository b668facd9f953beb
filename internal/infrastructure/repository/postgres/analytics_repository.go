package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jmorneau/rinkstats/internal/domain/analytics"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

// AnalyticsRepository persists derived metrics. Every writer clears the
// season's rows and reinserts inside one transaction, so readers never see a
// half-derived season and stale rows from shrunken inputs cannot linger.
type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) ReplaceShotXG(ctx context.Context, seasonID int64, rows []analytics.ShotXG) error {
	return r.replace(ctx, "shot_xg", seasonID, len(rows), func(builder *qb.InsertBuilder, i int) {
		item := rows[i]
		builder.Values(
			item.ShotID, item.GameID, item.SeasonID, item.PlayerID, item.TeamID,
			item.GoalieID, item.XG, item.Strength, item.IsGoal, item.ModelVersion,
		)
	}, "shot_id", "game_id", "season_id", "player_id", "team_id",
		"goalie_id", "xg", "strength", "is_goal", "model_version")
}

func (r *AnalyticsRepository) ReplacePlayerXG(ctx context.Context, seasonID int64, rows []analytics.PlayerXG) error {
	return r.replace(ctx, "player_xg", seasonID, len(rows), func(builder *qb.InsertBuilder, i int) {
		item := rows[i]
		builder.Values(
			item.PlayerID, item.TeamID, item.SeasonID, item.Shots, item.Goals,
			item.XG, item.GoalsAboveExpected, item.Provenance, item.ModelVersion,
		)
	}, "player_id", "team_id", "season_id", "shots", "goals",
		"xg", "goals_above_expected", "provenance", "model_version")
}

func (r *AnalyticsRepository) ReplaceGoalieGSAx(ctx context.Context, seasonID int64, rows []analytics.GoalieGSAx) error {
	return r.replace(ctx, "goalie_gsax", seasonID, len(rows), func(builder *qb.InsertBuilder, i int) {
		item := rows[i]
		builder.Values(
			item.GoalieID, item.TeamID, item.SeasonID, item.ShotsFaced,
			item.GoalsAgainst, item.ExpectedGoals, item.GSAx, item.Provenance,
			item.ModelVersion,
		)
	}, "goalie_id", "team_id", "season_id", "shots_faced",
		"goals_against", "expected_goals", "gsax", "provenance", "model_version")
}

func (r *AnalyticsRepository) ReplaceTeamStreaks(ctx context.Context, seasonID int64, rows []analytics.TeamStreak) error {
	return r.replace(ctx, "team_streaks", seasonID, len(rows), func(builder *qb.InsertBuilder, i int) {
		item := rows[i]
		builder.Values(
			item.TeamID, item.SeasonID, item.CurrentKind, item.CurrentLength,
			item.LongestWin, item.LongestLoss, item.LongestPoint,
		)
	}, "team_id", "season_id", "current_kind", "current_length",
		"longest_win", "longest_loss", "longest_point")
}

func (r *AnalyticsRepository) ReplaceHeadToHead(ctx context.Context, seasonID int64, rows []analytics.HeadToHead) error {
	return r.replace(ctx, "head_to_head", seasonID, len(rows), func(builder *qb.InsertBuilder, i int) {
		item := rows[i]
		builder.Values(
			item.SeasonID, item.Team1ID, item.Team2ID, item.Games,
			item.Team1Wins, item.Team2Wins, item.Ties, item.Team1Goals,
			item.Team2Goals, pq.Int64Array(item.GameIDs),
		)
	}, "season_id", "team1_id", "team2_id", "games",
		"team1_wins", "team2_wins", "ties", "team1_goals", "team2_goals", "game_ids")
}

func (r *AnalyticsRepository) ReplaceVenueStats(ctx context.Context, seasonID int64, rows []analytics.VenueStat) error {
	return r.replace(ctx, "venue_stats", seasonID, len(rows), func(builder *qb.InsertBuilder, i int) {
		item := rows[i]
		builder.Values(
			item.SeasonID, item.TeamID, item.VenueName, item.Games, item.Wins,
			item.Losses, item.GoalsFor, item.GoalsAgainst,
			pq.Int64Array(item.GameIDs),
		)
	}, "season_id", "team_id", "venue_name", "games", "wins",
		"losses", "goals_for", "goals_against", "game_ids")
}

func (r *AnalyticsRepository) replace(
	ctx context.Context,
	table string,
	seasonID int64,
	total int,
	appendRow func(builder *qb.InsertBuilder, i int),
	columns ...string,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace %s: %w", table, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	deleteQuery, deleteArgs, err := qb.DeleteFrom(table).
		Where(qb.Eq("season_id", seasonID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear %s query: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("clear %s season=%d: %w", table, seasonID, err)
	}

	for offset := 0; offset < total; offset += chunkSize {
		from, to := chunkBounds(total, offset)
		builder := qb.InsertInto(table).Columns(columns...)
		for i := from; i < to; i++ {
			appendRow(builder, i)
		}
		query, args, err := builder.ToSQL()
		if err != nil {
			return fmt.Errorf("build insert %s query: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s chunk at %d: %w", table, from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s tx: %w", table, err)
	}
	return nil
}

func (r *AnalyticsRepository) ListPlayerXGBySeason(ctx context.Context, seasonID int64) ([]analytics.PlayerXG, error) {
	query, args, err := qb.Select(
		"player_id", "team_id", "season_id", "shots", "goals", "xg",
		"goals_above_expected", "provenance", "model_version",
	).From("player_xg").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("team_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list player xg query: %w", err)
	}

	var rows []playerXGRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list player xg season=%d: %w", seasonID, err)
	}

	out := make([]analytics.PlayerXG, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.PlayerXG(row))
	}
	return out, nil
}

func (r *AnalyticsRepository) ListGoalieGSAxBySeason(ctx context.Context, seasonID int64) ([]analytics.GoalieGSAx, error) {
	query, args, err := qb.Select(
		"goalie_id", "team_id", "season_id", "shots_faced", "goals_against",
		"expected_goals", "gsax", "provenance", "model_version",
	).From("goalie_gsax").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("team_id", "goalie_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list goalie gsax query: %w", err)
	}

	var rows []goalieGSAxRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list goalie gsax season=%d: %w", seasonID, err)
	}

	out := make([]analytics.GoalieGSAx, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.GoalieGSAx(row))
	}
	return out, nil
}

func (r *AnalyticsRepository) ListTeamStreaksBySeason(ctx context.Context, seasonID int64) ([]analytics.TeamStreak, error) {
	query, args, err := qb.Select(
		"team_id", "season_id", "current_kind", "current_length",
		"longest_win", "longest_loss", "longest_point",
	).From("team_streaks").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("team_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list team streaks query: %w", err)
	}

	var rows []teamStreakRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list team streaks season=%d: %w", seasonID, err)
	}

	out := make([]analytics.TeamStreak, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.TeamStreak(row))
	}
	return out, nil
}

func (r *AnalyticsRepository) ListHeadToHeadBySeason(ctx context.Context, seasonID int64) ([]analytics.HeadToHead, error) {
	query, args, err := qb.Select(
		"season_id", "team1_id", "team2_id", "games", "team1_wins",
		"team2_wins", "ties", "team1_goals", "team2_goals", "game_ids",
	).From("head_to_head").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("team1_id", "team2_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list head to head query: %w", err)
	}

	var rows []headToHeadRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list head to head season=%d: %w", seasonID, err)
	}

	out := make([]analytics.HeadToHead, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.HeadToHead{
			SeasonID:   row.SeasonID,
			Team1ID:    row.Team1ID,
			Team2ID:    row.Team2ID,
			Games:      row.Games,
			Team1Wins:  row.Team1Wins,
			Team2Wins:  row.Team2Wins,
			Ties:       row.Ties,
			Team1Goals: row.Team1Goals,
			Team2Goals: row.Team2Goals,
			GameIDs:    []int64(row.GameIDs),
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) ListVenueStatsBySeason(ctx context.Context, seasonID int64) ([]analytics.VenueStat, error) {
	query, args, err := qb.Select(
		"season_id", "team_id", "venue_name", "games", "wins", "losses",
		"goals_for", "goals_against", "game_ids",
	).From("venue_stats").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("team_id", "venue_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list venue stats query: %w", err)
	}

	var rows []venueStatRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list venue stats season=%d: %w", seasonID, err)
	}

	out := make([]analytics.VenueStat, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.VenueStat{
			SeasonID:     row.SeasonID,
			TeamID:       row.TeamID,
			VenueName:    row.VenueName,
			Games:        row.Games,
			Wins:         row.Wins,
			Losses:       row.Losses,
			GoalsFor:     row.GoalsFor,
			GoalsAgainst: row.GoalsAgainst,
			GameIDs:      []int64(row.GameIDs),
		})
	}
	return out, nil
}

type playerXGRow struct {
	PlayerID           int64   `db:"player_id"`
	TeamID             int64   `db:"team_id"`
	SeasonID           int64   `db:"season_id"`
	Shots              int     `db:"shots"`
	Goals              int     `db:"goals"`
	XG                 float64 `db:"xg"`
	GoalsAboveExpected float64 `db:"goals_above_expected"`
	Provenance         string  `db:"provenance"`
	ModelVersion       string  `db:"model_version"`
}

type goalieGSAxRow struct {
	GoalieID      int64   `db:"goalie_id"`
	TeamID        int64   `db:"team_id"`
	SeasonID      int64   `db:"season_id"`
	ShotsFaced    int     `db:"shots_faced"`
	GoalsAgainst  int     `db:"goals_against"`
	ExpectedGoals float64 `db:"expected_goals"`
	GSAx          float64 `db:"gsax"`
	Provenance    string  `db:"provenance"`
	ModelVersion  string  `db:"model_version"`
}

type teamStreakRow struct {
	TeamID        int64  `db:"team_id"`
	SeasonID      int64  `db:"season_id"`
	CurrentKind   string `db:"current_kind"`
	CurrentLength int    `db:"current_length"`
	LongestWin    int    `db:"longest_win"`
	LongestLoss   int    `db:"longest_loss"`
	LongestPoint  int    `db:"longest_point"`
}

type headToHeadRow struct {
	SeasonID   int64         `db:"season_id"`
	Team1ID    int64         `db:"team1_id"`
	Team2ID    int64         `db:"team2_id"`
	Games      int           `db:"games"`
	Team1Wins  int           `db:"team1_wins"`
	Team2Wins  int           `db:"team2_wins"`
	Ties       int           `db:"ties"`
	Team1Goals int           `db:"team1_goals"`
	Team2Goals int           `db:"team2_goals"`
	GameIDs    pq.Int64Array `db:"game_ids"`
}

type venueStatRow struct {
	SeasonID     int64         `db:"season_id"`
	TeamID       int64         `db:"team_id"`
	VenueName    string        `db:"venue_name"`
	Games        int           `db:"games"`
	Wins         int           `db:"wins"`
	Losses       int           `db:"losses"`
	GoalsFor     int           `db:"goals_for"`
	GoalsAgainst int           `db:"goals_against"`
	GameIDs      pq.Int64Array `db:"game_ids"`
}
