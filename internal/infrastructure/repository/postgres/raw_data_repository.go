package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

// UpsertMany keeps one provenance row per (source, entity_type, entity_key).
// An unchanged payload hash leaves the stored row alone so ingested_at keeps
// marking the last time the content actually moved.
func (r *RawDataRepository) UpsertMany(ctx context.Context, items []rawdata.Payload) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert raw payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		insertModel := rawPayloadInsertModel{
			Source:      item.Source,
			EntityType:  item.EntityType,
			EntityKey:   item.EntityKey,
			SeasonID:    item.SeasonID,
			TeamID:      item.TeamID,
			Payload:     item.PayloadJSON,
			PayloadHash: item.PayloadHash,
			FetchedAt:   item.FetchedAt,
		}

		query, args, err := qb.InsertModel("raw_payloads", insertModel, `ON CONFLICT (source, entity_type, entity_key)
DO UPDATE SET
    season_id = EXCLUDED.season_id,
    team_id = EXCLUDED.team_id,
    payload = EXCLUDED.payload,
    payload_hash = EXCLUDED.payload_hash,
    fetched_at = EXCLUDED.fetched_at,
    ingested_at = NOW()
WHERE raw_payloads.payload_hash IS DISTINCT FROM EXCLUDED.payload_hash`)
		if err != nil {
			return fmt.Errorf("build upsert raw payload query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert raw payload entity=%s key=%s: %w", item.EntityType, item.EntityKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert raw payloads tx: %w", err)
	}

	return nil
}

func (r *RawDataRepository) CountBySource(ctx context.Context) (map[string]int, error) {
	query, args, err := qb.Select("source", "COUNT(1) AS payloads").
		From("raw_payloads").
		GroupBy("source").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count raw payloads query: %w", err)
	}

	var rows []struct {
		Source   string `db:"source"`
		Payloads int    `db:"payloads"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count raw payloads: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Source] = row.Payloads
	}
	return out, nil
}

type rawPayloadInsertModel struct {
	Source      string     `db:"source"`
	EntityType  string     `db:"entity_type"`
	EntityKey   string     `db:"entity_key"`
	SeasonID    *int64     `db:"season_id"`
	TeamID      *int64     `db:"team_id"`
	Payload     string     `db:"payload"`
	PayloadHash string     `db:"payload_hash"`
	FetchedAt   *time.Time `db:"fetched_at"`
}
