package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/team"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// UpsertMany writes team reference rows. A provisional row (discovered from a
// schedule before the teams feed lists the club) never downgrades a complete
// one; the conflict clause only applies when the stored row is provisional or
// the incoming row is not.
func (r *TeamRepository) UpsertMany(ctx context.Context, teams []team.Team) error {
	if len(teams) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert teams: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range teams {
		insertModel := teamInsertModel{
			ID:           item.ID,
			Name:         item.Name,
			City:         item.City,
			Code:         item.Code,
			Nickname:     item.Nickname,
			DivisionID:   item.DivisionID,
			DivisionName: item.DivisionName,
			Provisional:  item.Provisional,
		}
		query, args, err := qb.InsertModel("teams", insertModel, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    city = EXCLUDED.city,
    code = EXCLUDED.code,
    nickname = EXCLUDED.nickname,
    division_id = EXCLUDED.division_id,
    division_name = EXCLUDED.division_name,
    provisional = EXCLUDED.provisional,
    updated_at = NOW()
WHERE teams.provisional OR NOT EXCLUDED.provisional`)
		if err != nil {
			return fmt.Errorf("build upsert team query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert team id=%d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert teams tx: %w", err)
	}
	return nil
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := teamSelect().OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list teams query: %w", err)
	}

	var rows []teamRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*team.Team, error) {
	query, args, err := teamSelect().Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get team query: %w", err)
	}

	var row teamRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team id=%d: %w", id, err)
	}

	item := row.toDomain()
	return &item, nil
}

func (r *TeamRepository) GetByCode(ctx context.Context, code string) (*team.Team, error) {
	query, args, err := teamSelect().
		Where(qb.Expr("UPPER(code) = ?", team.NormalizeCode(code))).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get team by code query: %w", err)
	}

	var row teamRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team code=%s: %w", code, err)
	}

	item := row.toDomain()
	return &item, nil
}

func teamSelect() *qb.SelectBuilder {
	return qb.Select(
		"id", "name", "city", "code", "nickname",
		"division_id", "division_name", "provisional",
	).From("teams")
}

type teamRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	City         string `db:"city"`
	Code         string `db:"code"`
	Nickname     string `db:"nickname"`
	DivisionID   *int64 `db:"division_id"`
	DivisionName string `db:"division_name"`
	Provisional  bool   `db:"provisional"`
}

func (row teamRow) toDomain() team.Team {
	return team.Team{
		ID:           row.ID,
		Name:         row.Name,
		City:         row.City,
		Code:         row.Code,
		Nickname:     row.Nickname,
		DivisionID:   row.DivisionID,
		DivisionName: row.DivisionName,
		Provisional:  row.Provisional,
	}
}

type teamInsertModel struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	City         string `db:"city"`
	Code         string `db:"code"`
	Nickname     string `db:"nickname"`
	DivisionID   *int64 `db:"division_id"`
	DivisionName string `db:"division_name"`
	Provisional  bool   `db:"provisional"`
}
