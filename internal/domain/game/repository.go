package game

import "context"

// Repository exposes game persistence.
type Repository interface {
	UpsertMany(ctx context.Context, games []Game) error
	GetByID(ctx context.Context, id int64) (*Game, error)
	ListBySeason(ctx context.Context, seasonID int64) ([]Game, error)
	ListFinalBySeason(ctx context.Context, seasonID int64) ([]Game, error)
}
