package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/teamstats"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

// TeamStatsRepository mirrors the skater stats split: the standings feed owns
// the source columns, derivation owns the rest of the row.
type TeamStatsRepository struct {
	db *sqlx.DB
}

func NewTeamStatsRepository(db *sqlx.DB) *TeamStatsRepository {
	return &TeamStatsRepository{db: db}
}

func (r *TeamStatsRepository) UpsertMany(ctx context.Context, lines []teamstats.SeasonLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert team stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range lines {
		insertModel := teamStatsInsertModel{
			TeamID:           item.TeamID,
			SeasonID:         item.SeasonID,
			GamesPlayed:      item.GamesPlayed,
			Wins:             item.Wins,
			Losses:           item.Losses,
			OTLosses:         item.OTLosses,
			ShootoutWins:     item.ShootoutWins,
			RegulationWins:   item.RegulationWins,
			ROW:              item.ROW,
			Points:           item.Points,
			WinPct:           item.WinPct,
			GoalsFor:         item.GoalsFor,
			GoalsAgainst:     item.GoalsAgainst,
			PowerPlayPct:     item.PowerPlayPct,
			PenaltyKillPct:   item.PenaltyKillPct,
			ShootoutPct:      item.ShootoutPct,
			HomeRecord:       item.HomeRecord,
			VisitingRecord:   item.VisitingRecord,
			PastTen:          item.PastTen,
			StreakLabel:      item.StreakLabel,
			Rank:             item.Rank,
			ClinchedPlayoffs: item.ClinchedPlayoffs,
		}
		query, args, err := qb.InsertModel("team_stats", insertModel, `ON CONFLICT (team_id, season_id)
DO UPDATE SET
    games_played = EXCLUDED.games_played,
    wins = EXCLUDED.wins,
    losses = EXCLUDED.losses,
    ot_losses = EXCLUDED.ot_losses,
    so_wins = EXCLUDED.so_wins,
    regulation_wins = EXCLUDED.regulation_wins,
    reg_ot_wins = EXCLUDED.reg_ot_wins,
    points = EXCLUDED.points,
    win_pct = EXCLUDED.win_pct,
    goals_for = EXCLUDED.goals_for,
    goals_against = EXCLUDED.goals_against,
    power_play_pct = EXCLUDED.power_play_pct,
    penalty_kill_pct = EXCLUDED.penalty_kill_pct,
    shootout_pct = EXCLUDED.shootout_pct,
    home_record = EXCLUDED.home_record,
    visiting_record = EXCLUDED.visiting_record,
    past_ten = EXCLUDED.past_ten,
    streak_label = EXCLUDED.streak_label,
    rank = EXCLUDED.rank,
    clinched_playoffs = EXCLUDED.clinched_playoffs,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert team stats query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert team stats team=%d season=%d: %w", item.TeamID, item.SeasonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert team stats tx: %w", err)
	}
	return nil
}

func (r *TeamStatsRepository) ListBySeason(ctx context.Context, seasonID int64) ([]teamstats.SeasonLine, error) {
	query, args, err := qb.Select(
		"team_id", "season_id", "games_played", "wins", "losses", "ot_losses",
		"so_wins", "regulation_wins", "reg_ot_wins", "points", "win_pct",
		"goals_for", "goals_against", "power_play_pct", "penalty_kill_pct",
		"shootout_pct", "home_record", "visiting_record", "past_ten",
		"streak_label", "rank", "clinched_playoffs", "corsi_for",
		"corsi_against", "corsi_pct", "fenwick_for", "fenwick_against",
		"fenwick_pct", "pdo", "home_wins", "home_losses", "home_ot_losses",
		"home_goals_for", "home_goals_against", "away_wins", "away_losses",
		"away_ot_losses", "away_goals_for", "away_goals_against",
	).From("team_stats").
		Where(qb.Eq("season_id", seasonID)).
		OrderBy("team_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list team stats query: %w", err)
	}

	var rows []teamStatsRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list team stats season=%d: %w", seasonID, err)
	}

	out := make([]teamstats.SeasonLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TeamStatsRepository) UpdateDerived(ctx context.Context, lines []teamstats.SeasonLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update derived team stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range lines {
		query, args, err := qb.Update("team_stats").
			Set("corsi_for", item.Derived.CorsiFor).
			Set("corsi_against", item.Derived.CorsiAgainst).
			Set("corsi_pct", item.Derived.CorsiPct).
			Set("fenwick_for", item.Derived.FenwickFor).
			Set("fenwick_against", item.Derived.FenwickAgainst).
			Set("fenwick_pct", item.Derived.FenwickPct).
			Set("pdo", item.Derived.PDO).
			Set("home_wins", item.Derived.HomeWins).
			Set("home_losses", item.Derived.HomeLosses).
			Set("home_ot_losses", item.Derived.HomeOTLosses).
			Set("home_goals_for", item.Derived.HomeGoalsFor).
			Set("home_goals_against", item.Derived.HomeGoalsAgainst).
			Set("away_wins", item.Derived.AwayWins).
			Set("away_losses", item.Derived.AwayLosses).
			Set("away_ot_losses", item.Derived.AwayOTLosses).
			Set("away_goals_for", item.Derived.AwayGoalsFor).
			Set("away_goals_against", item.Derived.AwayGoalsAgainst).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("team_id", item.TeamID),
				qb.Eq("season_id", item.SeasonID),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update derived team stats query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update derived team stats team=%d season=%d: %w", item.TeamID, item.SeasonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update derived team stats tx: %w", err)
	}
	return nil
}

type teamStatsRow struct {
	TeamID           int64    `db:"team_id"`
	SeasonID         int64    `db:"season_id"`
	GamesPlayed      int      `db:"games_played"`
	Wins             int      `db:"wins"`
	Losses           int      `db:"losses"`
	OTLosses         int      `db:"ot_losses"`
	ShootoutWins     int      `db:"so_wins"`
	RegulationWins   int      `db:"regulation_wins"`
	ROW              int      `db:"reg_ot_wins"`
	Points           int      `db:"points"`
	WinPct           *float64 `db:"win_pct"`
	GoalsFor         int      `db:"goals_for"`
	GoalsAgainst     int      `db:"goals_against"`
	PowerPlayPct     *float64 `db:"power_play_pct"`
	PenaltyKillPct   *float64 `db:"penalty_kill_pct"`
	ShootoutPct      *float64 `db:"shootout_pct"`
	HomeRecord       string   `db:"home_record"`
	VisitingRecord   string   `db:"visiting_record"`
	PastTen          string   `db:"past_ten"`
	StreakLabel      string   `db:"streak_label"`
	Rank             *int     `db:"rank"`
	ClinchedPlayoffs bool     `db:"clinched_playoffs"`
	CorsiFor         int      `db:"corsi_for"`
	CorsiAgainst     int      `db:"corsi_against"`
	CorsiPct         *float64 `db:"corsi_pct"`
	FenwickFor       int      `db:"fenwick_for"`
	FenwickAgainst   int      `db:"fenwick_against"`
	FenwickPct       *float64 `db:"fenwick_pct"`
	PDO              *float64 `db:"pdo"`
	HomeWins         int      `db:"home_wins"`
	HomeLosses       int      `db:"home_losses"`
	HomeOTLosses     int      `db:"home_ot_losses"`
	HomeGoalsFor     int      `db:"home_goals_for"`
	HomeGoalsAgainst int      `db:"home_goals_against"`
	AwayWins         int      `db:"away_wins"`
	AwayLosses       int      `db:"away_losses"`
	AwayOTLosses     int      `db:"away_ot_losses"`
	AwayGoalsFor     int      `db:"away_goals_for"`
	AwayGoalsAgainst int      `db:"away_goals_against"`
}

func (row teamStatsRow) toDomain() teamstats.SeasonLine {
	return teamstats.SeasonLine{
		TeamID:           row.TeamID,
		SeasonID:         row.SeasonID,
		GamesPlayed:      row.GamesPlayed,
		Wins:             row.Wins,
		Losses:           row.Losses,
		OTLosses:         row.OTLosses,
		ShootoutWins:     row.ShootoutWins,
		RegulationWins:   row.RegulationWins,
		ROW:              row.ROW,
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
		StreakLabel:      row.StreakLabel,
		Rank:             row.Rank,
		ClinchedPlayoffs: row.ClinchedPlayoffs,
		Derived: teamstats.Derived{
			CorsiFor:         row.CorsiFor,
			CorsiAgainst:     row.CorsiAgainst,
			CorsiPct:         row.CorsiPct,
			FenwickFor:       row.FenwickFor,
			FenwickAgainst:   row.FenwickAgainst,
			FenwickPct:       row.FenwickPct,
			PDO:              row.PDO,
			HomeWins:         row.HomeWins,
			HomeLosses:       row.HomeLosses,
			HomeOTLosses:     row.HomeOTLosses,
			HomeGoalsFor:     row.HomeGoalsFor,
			HomeGoalsAgainst: row.HomeGoalsAgainst,
			AwayWins:         row.AwayWins,
			AwayLosses:       row.AwayLosses,
			AwayOTLosses:     row.AwayOTLosses,
			AwayGoalsFor:     row.AwayGoalsFor,
			AwayGoalsAgainst: row.AwayGoalsAgainst,
		},
	}
}

type teamStatsInsertModel struct {
	TeamID           int64    `db:"team_id"`
	SeasonID         int64    `db:"season_id"`
	GamesPlayed      int      `db:"games_played"`
	Wins             int      `db:"wins"`
	Losses           int      `db:"losses"`
	OTLosses         int      `db:"ot_losses"`
	ShootoutWins     int      `db:"so_wins"`
	RegulationWins   int      `db:"regulation_wins"`
	ROW              int      `db:"reg_ot_wins"`
	Points           int      `db:"points"`
	WinPct           *float64 `db:"win_pct"`
	GoalsFor         int      `db:"goals_for"`
	GoalsAgainst     int      `db:"goals_against"`
	PowerPlayPct     *float64 `db:"power_play_pct"`
	PenaltyKillPct   *float64 `db:"penalty_kill_pct"`
	ShootoutPct      *float64 `db:"shootout_pct"`
	HomeRecord       string   `db:"home_record"`
	VisitingRecord   string   `db:"visiting_record"`
	PastTen          string   `db:"past_ten"`
	StreakLabel      string   `db:"streak_label"`
	Rank             *int     `db:"rank"`
	ClinchedPlayoffs bool     `db:"clinched_playoffs"`
}
