package skaterstats

import "context"

// Repository separates feed upserts from derivation updates so a derivation
// run never touches source columns.
type Repository interface {
	UpsertMany(ctx context.Context, lines []SeasonLine) error
	ListBySeason(ctx context.Context, seasonID int64) ([]SeasonLine, error)
	UpdateDerived(ctx context.Context, lines []SeasonLine) error
	UpdateIceTimeEstimates(ctx context.Context, lines []SeasonLine) error
}
