package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/skaterstats"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

// SkaterStatsRepository keeps feed columns and derived columns on the same
// row but writes them through separate paths, so a stat-feed refresh never
// clears derivation output and a derivation run never touches feed columns.
type SkaterStatsRepository struct {
	db *sqlx.DB
}

func NewSkaterStatsRepository(db *sqlx.DB) *SkaterStatsRepository {
	return &SkaterStatsRepository{db: db}
}

func (r *SkaterStatsRepository) UpsertMany(ctx context.Context, lines []skaterstats.SeasonLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert skater stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range lines {
		insertModel := skaterStatsInsertModel{
			PlayerID:         item.PlayerID,
			TeamID:           item.TeamID,
			SeasonID:         item.SeasonID,
			GamesPlayed:      item.GamesPlayed,
			Goals:            item.Goals,
			Assists:          item.Assists,
			Points:           item.Points,
			PlusMinus:        item.PlusMinus,
			PenaltyMinutes:   item.PenaltyMinutes,
			Shots:            item.Shots,
			Hits:             item.Hits,
			PPGoals:          item.PPGoals,
			PPAssists:        item.PPAssists,
			SHGoals:          item.SHGoals,
			SHAssists:        item.SHAssists,
			GameWinningGoals: item.GameWinningGoals,
			FirstGoals:       item.FirstGoals,
			InsuranceGoals:   item.InsuranceGoals,
			EmptyNetGoals:    item.EmptyNetGoals,
			OvertimeGoals:    item.OvertimeGoals,
			ShootoutGoals:    item.ShootoutGoals,
			ShootoutAttempts: item.ShootoutAttempts,
			FaceoffWins:      item.FaceoffWins,
			FaceoffAttempts:  item.FaceoffAttempts,
			IceTimeSeconds:   item.IceTimeSeconds,
			TOIEstimated:     item.TOIEstimated,
		}
		query, args, err := qb.InsertModel("skater_stats", insertModel, `ON CONFLICT (player_id, team_id, season_id)
DO UPDATE SET
    games_played = EXCLUDED.games_played,
    goals = EXCLUDED.goals,
    assists = EXCLUDED.assists,
    points = EXCLUDED.points,
    plus_minus = EXCLUDED.plus_minus,
    penalty_minutes = EXCLUDED.penalty_minutes,
    shots = EXCLUDED.shots,
    hits = EXCLUDED.hits,
    pp_goals = EXCLUDED.pp_goals,
    pp_assists = EXCLUDED.pp_assists,
    sh_goals = EXCLUDED.sh_goals,
    sh_assists = EXCLUDED.sh_assists,
    gw_goals = EXCLUDED.gw_goals,
    first_goals = EXCLUDED.first_goals,
    insurance_goals = EXCLUDED.insurance_goals,
    en_goals = EXCLUDED.en_goals,
    ot_goals = EXCLUDED.ot_goals,
    so_goals = EXCLUDED.so_goals,
    so_attempts = EXCLUDED.so_attempts,
    faceoff_wins = EXCLUDED.faceoff_wins,
    faceoff_attempts = EXCLUDED.faceoff_attempts,
    ice_time_seconds = COALESCE(EXCLUDED.ice_time_seconds, skater_stats.ice_time_seconds),
    toi_estimated = CASE WHEN EXCLUDED.ice_time_seconds IS NULL THEN skater_stats.toi_estimated ELSE FALSE END,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert skater stats query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert skater stats player=%d season=%d: %w", item.PlayerID, item.SeasonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert skater stats tx: %w", err)
	}
	return nil
}

func (r *SkaterStatsRepository) ListBySeason(ctx context.Context, seasonID int64) ([]skaterstats.SeasonLine, error) {
	query, args, err := qb.Select(
		"player_id", "team_id", "season_id", "games_played", "goals",
		"assists", "points", "plus_minus", "penalty_minutes", "shots", "hits",
		"pp_goals", "pp_assists", "sh_goals", "sh_assists", "gw_goals",
		"first_goals", "insurance_goals", "en_goals", "ot_goals", "so_goals",
		"so_attempts", "faceoff_wins", "faceoff_attempts", "ice_time_seconds",
		"toi_estimated", "shooting_pct", "points_per_60", "goals_per_60",
		"assists_per_60", "shots_per_60", "pbp_faceoff_wins",
		"pbp_faceoff_attempts", "pbp_faceoff_pct", "pbp_blocks",
		"clutch_goals", "ipp", "game_score_total", "game_score_avg",
	).From("skater_stats").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("team_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list skater stats query: %w", err)
	}

	var rows []skaterStatsRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list skater stats season=%d: %w", seasonID, err)
	}

	out := make([]skaterstats.SeasonLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *SkaterStatsRepository) UpdateDerived(ctx context.Context, lines []skaterstats.SeasonLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update derived skater stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range lines {
		query, args, err := qb.Update("skater_stats").
			Set("shooting_pct", item.Derived.ShootingPct).
			Set("points_per_60", item.Derived.PointsPer60).
			Set("goals_per_60", item.Derived.GoalsPer60).
			Set("assists_per_60", item.Derived.AssistsPer60).
			Set("shots_per_60", item.Derived.ShotsPer60).
			Set("pbp_faceoff_wins", item.Derived.FaceoffWins).
			Set("pbp_faceoff_attempts", item.Derived.FaceoffAttempts).
			Set("pbp_faceoff_pct", item.Derived.FaceoffPct).
			Set("pbp_blocks", item.Derived.Blocks).
			Set("clutch_goals", item.Derived.ClutchGoals).
			Set("ipp", item.Derived.IPP).
			Set("game_score_total", item.Derived.GameScoreTotal).
			Set("game_score_avg", item.Derived.GameScoreAvg).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("player_id", item.PlayerID),
				qb.Eq("team_id", item.TeamID),
				qb.Eq("season_id", item.SeasonID),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update derived skater stats query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update derived skater stats player=%d season=%d: %w", item.PlayerID, item.SeasonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update derived skater stats tx: %w", err)
	}
	return nil
}

// UpdateIceTimeEstimates fills ice time only where the feed left it NULL;
// a measured value is never overwritten by an estimate.
func (r *SkaterStatsRepository) UpdateIceTimeEstimates(ctx context.Context, lines []skaterstats.SeasonLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update ice time estimates: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range lines {
		if item.IceTimeSeconds == nil {
			continue
		}
		query, args, err := qb.Update("skater_stats").
			Set("ice_time_seconds", *item.IceTimeSeconds).
			Set("toi_estimated", true).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("player_id", item.PlayerID),
				qb.Eq("team_id", item.TeamID),
				qb.Eq("season_id", item.SeasonID),
				qb.IsNull("ice_time_seconds"),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update ice time estimate query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update ice time estimate player=%d season=%d: %w", item.PlayerID, item.SeasonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update ice time estimates tx: %w", err)
	}
	return nil
}

type skaterStatsRow struct {
	PlayerID         int64    `db:"player_id"`
	TeamID           int64    `db:"team_id"`
	SeasonID         int64    `db:"season_id"`
	GamesPlayed      int      `db:"games_played"`
	Goals            int      `db:"goals"`
	Assists          int      `db:"assists"`
	Points           int      `db:"points"`
	PlusMinus        int      `db:"plus_minus"`
	PenaltyMinutes   float64  `db:"penalty_minutes"`
	Shots            int      `db:"shots"`
	Hits             int      `db:"hits"`
	PPGoals          int      `db:"pp_goals"`
	PPAssists        int      `db:"pp_assists"`
	SHGoals          int      `db:"sh_goals"`
	SHAssists        int      `db:"sh_assists"`
	GameWinningGoals int      `db:"gw_goals"`
	FirstGoals       int      `db:"first_goals"`
	InsuranceGoals   int      `db:"insurance_goals"`
	EmptyNetGoals    int      `db:"en_goals"`
	OvertimeGoals    int      `db:"ot_goals"`
	ShootoutGoals    int      `db:"so_goals"`
	ShootoutAttempts int      `db:"so_attempts"`
	FaceoffWins      int      `db:"faceoff_wins"`
	FaceoffAttempts  int      `db:"faceoff_attempts"`
	IceTimeSeconds   *int     `db:"ice_time_seconds"`
	TOIEstimated     bool     `db:"toi_estimated"`
	ShootingPct      *float64 `db:"shooting_pct"`
	PointsPer60      *float64 `db:"points_per_60"`
	GoalsPer60       *float64 `db:"goals_per_60"`
	AssistsPer60     *float64 `db:"assists_per_60"`
	ShotsPer60       *float64 `db:"shots_per_60"`
	PBPFaceoffWins   int      `db:"pbp_faceoff_wins"`
	PBPFaceoffAtt    int      `db:"pbp_faceoff_attempts"`
	PBPFaceoffPct    *float64 `db:"pbp_faceoff_pct"`
	PBPBlocks        int      `db:"pbp_blocks"`
	ClutchGoals      int      `db:"clutch_goals"`
	IPP              *float64 `db:"ipp"`
	GameScoreTotal   *float64 `db:"game_score_total"`
	GameScoreAvg     *float64 `db:"game_score_avg"`
}

func (row skaterStatsRow) toDomain() skaterstats.SeasonLine {
	return skaterstats.SeasonLine{
		PlayerID:         row.PlayerID,
		TeamID:           row.TeamID,
		SeasonID:         row.SeasonID,
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
		TOIEstimated:     row.TOIEstimated,
		Derived: skaterstats.Derived{
			ShootingPct:     row.ShootingPct,
			PointsPer60:     row.PointsPer60,
			GoalsPer60:      row.GoalsPer60,
			AssistsPer60:    row.AssistsPer60,
			ShotsPer60:      row.ShotsPer60,
			FaceoffWins:     row.PBPFaceoffWins,
			FaceoffAttempts: row.PBPFaceoffAtt,
			FaceoffPct:      row.PBPFaceoffPct,
			Blocks:          row.PBPBlocks,
			ClutchGoals:     row.ClutchGoals,
			IPP:             row.IPP,
			GameScoreTotal:  row.GameScoreTotal,
			GameScoreAvg:    row.GameScoreAvg,
		},
	}
}

type skaterStatsInsertModel struct {
	PlayerID         int64   `db:"player_id"`
	TeamID           int64   `db:"team_id"`
	SeasonID         int64   `db:"season_id"`
	GamesPlayed      int     `db:"games_played"`
	Goals            int     `db:"goals"`
	Assists          int     `db:"assists"`
	Points           int     `db:"points"`
	PlusMinus        int     `db:"plus_minus"`
	PenaltyMinutes   float64 `db:"penalty_minutes"`
	Shots            int     `db:"shots"`
	Hits             int     `db:"hits"`
	PPGoals          int     `db:"pp_goals"`
	PPAssists        int     `db:"pp_assists"`
	SHGoals          int     `db:"sh_goals"`
	SHAssists        int     `db:"sh_assists"`
	GameWinningGoals int     `db:"gw_goals"`
	FirstGoals       int     `db:"first_goals"`
	InsuranceGoals   int     `db:"insurance_goals"`
	EmptyNetGoals    int     `db:"en_goals"`
	OvertimeGoals    int     `db:"ot_goals"`
	ShootoutGoals    int     `db:"so_goals"`
	ShootoutAttempts int     `db:"so_attempts"`
	FaceoffWins      int     `db:"faceoff_wins"`
	FaceoffAttempts  int     `db:"faceoff_attempts"`
	IceTimeSeconds   *int    `db:"ice_time_seconds"`
	TOIEstimated     bool    `db:"toi_estimated"`
}
