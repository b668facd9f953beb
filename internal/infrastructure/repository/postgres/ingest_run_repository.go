package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/ingestrun"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type IngestRunRepository struct {
	db *sqlx.DB
}

func NewIngestRunRepository(db *sqlx.DB) *IngestRunRepository {
	return &IngestRunRepository{db: db}
}

func (r *IngestRunRepository) CreateRun(ctx context.Context, run ingestrun.Run) error {
	query, args, err := qb.InsertInto("ingest_runs").
		Columns("id", "started_at", "status").
		Values(run.ID, run.StartedAt, run.Status).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build create ingest run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create ingest run id=%s: %w", run.ID, err)
	}
	return nil
}

func (r *IngestRunRepository) FinishRun(ctx context.Context, run ingestrun.Run) error {
	query, args, err := qb.Update("ingest_runs").
		Set("finished_at", run.FinishedAt).
		Set("status", run.Status).
		Where(qb.Eq("id", run.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build finish ingest run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("finish ingest run id=%s: %w", run.ID, err)
	}
	return nil
}

func (r *IngestRunRepository) InsertTaskResults(ctx context.Context, results []ingestrun.TaskResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx insert task results: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range results {
		query, args, err := qb.InsertInto("ingest_task_results").
			Columns("run_id", "category", "season_id", "status", "records", "duration_ms", "message").
			Values(item.RunID, item.Category, item.SeasonID, item.Status, item.Records, item.DurationMS, item.Message).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert task result query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert task result category=%s: %w", item.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert task results tx: %w", err)
	}
	return nil
}

func (r *IngestRunRepository) InsertAnomalies(ctx context.Context, anomalies []ingestrun.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx insert anomalies: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for offset := 0; offset < len(anomalies); offset += chunkSize {
		from, to := chunkBounds(len(anomalies), offset)
		builder := qb.InsertInto("ingest_anomalies").
			Columns("run_id", "category", "kind", "season_id", "entity_key", "reason", "created_at")
		for _, item := range anomalies[from:to] {
			createdAt := item.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			builder.Values(item.RunID, item.Category, item.Kind, item.SeasonID, item.EntityKey, item.Reason, createdAt)
		}
		query, args, err := builder.ToSQL()
		if err != nil {
			return fmt.Errorf("build insert anomalies query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert anomalies chunk at %d: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert anomalies tx: %w", err)
	}
	return nil
}

func (r *IngestRunRepository) LatestRun(ctx context.Context) (*ingestrun.Run, error) {
	query, args, err := qb.Select("id", "started_at", "finished_at", "status").
		From("ingest_runs").
		OrderBy("started_at DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build latest ingest run query: %w", err)
	}

	var row ingestRunRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest ingest run: %w", err)
	}

	run := ingestrun.Run(row)
	return &run, nil
}

func (r *IngestRunRepository) ListTaskResults(ctx context.Context, runID string) ([]ingestrun.TaskResult, error) {
	query, args, err := qb.Select(
		"run_id", "category", "season_id", "status", "records", "duration_ms", "message",
	).From("ingest_task_results").
		Where(qb.Eq("run_id", runID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list task results query: %w", err)
	}

	var rows []taskResultRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list task results run=%s: %w", runID, err)
	}

	out := make([]ingestrun.TaskResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, ingestrun.TaskResult(row))
	}
	return out, nil
}

func (r *IngestRunRepository) ListAnomalies(ctx context.Context, runID string) ([]ingestrun.Anomaly, error) {
	query, args, err := qb.Select(
		"run_id", "category", "kind", "season_id", "entity_key", "reason", "created_at",
	).From("ingest_anomalies").
		Where(qb.Eq("run_id", runID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list anomalies query: %w", err)
	}

	var rows []anomalyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list anomalies run=%s: %w", runID, err)
	}

	out := make([]ingestrun.Anomaly, 0, len(rows))
	for _, row := range rows {
		out = append(out, ingestrun.Anomaly(row))
	}
	return out, nil
}

type ingestRunRow struct {
	ID         string     `db:"id"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Status     string     `db:"status"`
}

type taskResultRow struct {
	RunID      string `db:"run_id"`
	Category   string `db:"category"`
	SeasonID   *int64 `db:"season_id"`
	Status     string `db:"status"`
	Records    int    `db:"records"`
	DurationMS int64  `db:"duration_ms"`
	Message    string `db:"message"`
}

type anomalyRow struct {
	RunID     string    `db:"run_id"`
	Category  string    `db:"category"`
	Kind      string    `db:"kind"`
	SeasonID  *int64    `db:"season_id"`
	EntityKey string    `db:"entity_key"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}
