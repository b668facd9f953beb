package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/season"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type SeasonRepository struct {
	db *sqlx.DB
}

func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

func (r *SeasonRepository) UpsertMany(ctx context.Context, seasons []season.Season) error {
	if len(seasons) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert seasons: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range seasons {
		insertModel := seasonInsertModel{
			ID:        item.ID,
			Name:      item.Name,
			Kind:      item.Kind,
			Career:    item.Career,
			Playoff:   item.Playoff,
			StartDate: item.StartDate,
			EndDate:   item.EndDate,
		}
		query, args, err := qb.InsertModel("seasons", insertModel, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    kind = EXCLUDED.kind,
    career = EXCLUDED.career,
    playoff = EXCLUDED.playoff,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert season query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert season id=%d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert seasons tx: %w", err)
	}
	return nil
}

func (r *SeasonRepository) List(ctx context.Context) ([]season.Season, error) {
	query, args, err := qb.Select(
		"id", "name", "kind", "career", "playoff", "start_date", "end_date",
	).From("seasons").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list seasons query: %w", err)
	}

	var rows []seasonRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}

	out := make([]season.Season, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *SeasonRepository) GetByID(ctx context.Context, id int64) (*season.Season, error) {
	query, args, err := qb.Select(
		"id", "name", "kind", "career", "playoff", "start_date", "end_date",
	).From("seasons").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get season query: %w", err)
	}

	var row seasonRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get season id=%d: %w", id, err)
	}

	item := row.toDomain()
	return &item, nil
}

type seasonRow struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Kind      string     `db:"kind"`
	Career    bool       `db:"career"`
	Playoff   bool       `db:"playoff"`
	StartDate *time.Time `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
}

func (row seasonRow) toDomain() season.Season {
	return season.Season{
		ID:        row.ID,
		Name:      row.Name,
		Kind:      row.Kind,
		Career:    row.Career,
		Playoff:   row.Playoff,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
	}
}

type seasonInsertModel struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Kind      string     `db:"kind"`
	Career    bool       `db:"career"`
	Playoff   bool       `db:"playoff"`
	StartDate *time.Time `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
}
