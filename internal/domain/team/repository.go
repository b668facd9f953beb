package team

import "context"

// Repository describes team persistence needs from use cases.
type Repository interface {
	UpsertMany(ctx context.Context, teams []Team) error
	List(ctx context.Context) ([]Team, error)
	GetByID(ctx context.Context, id int64) (*Team, error)
	GetByCode(ctx context.Context, code string) (*Team, error)
}
