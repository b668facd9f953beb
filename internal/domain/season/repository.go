package season

import "context"

// Repository exposes season persistence.
type Repository interface {
	UpsertMany(ctx context.Context, seasons []Season) error
	List(ctx context.Context) ([]Season, error)
	GetByID(ctx context.Context, id int64) (*Season, error)
}
