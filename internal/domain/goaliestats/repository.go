package goaliestats

import "context"

type Repository interface {
	UpsertMany(ctx context.Context, lines []SeasonLine) error
	ListBySeason(ctx context.Context, seasonID int64) ([]SeasonLine, error)
	ListAll(ctx context.Context) ([]SeasonLine, error)
}
