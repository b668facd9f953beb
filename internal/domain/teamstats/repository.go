package teamstats

import "context"

type Repository interface {
	UpsertMany(ctx context.Context, lines []SeasonLine) error
	ListBySeason(ctx context.Context, seasonID int64) ([]SeasonLine, error)
	UpdateDerived(ctx context.Context, lines []SeasonLine) error
}
