package player

import "context"

// Repository describes player persistence needs from use cases.
type Repository interface {
	UpsertMany(ctx context.Context, players []Player) error
	GetByID(ctx context.Context, id int64) (*Player, error)
	List(ctx context.Context) ([]Player, error)
	FindByNaturalKey(ctx context.Context, key string) (*Player, error)

	UpsertRefs(ctx context.Context, refs []ExternalRef) error
	ResolveRef(ctx context.Context, source, externalKey string) (int64, error)
}
