package rawdata

import "context"

type Repository interface {
	UpsertMany(ctx context.Context, items []Payload) error
	CountBySource(ctx context.Context) (map[string]int, error)
}
