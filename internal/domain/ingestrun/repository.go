package ingestrun

import "context"

type Repository interface {
	CreateRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, run Run) error
	InsertTaskResults(ctx context.Context, results []TaskResult) error
	InsertAnomalies(ctx context.Context, anomalies []Anomaly) error

	LatestRun(ctx context.Context) (*Run, error)
	ListTaskResults(ctx context.Context, runID string) ([]TaskResult, error)
	ListAnomalies(ctx context.Context, runID string) ([]Anomaly, error)
}
