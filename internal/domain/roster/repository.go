package roster

import "context"

// Repository exposes roster assignment persistence.
type Repository interface {
	UpsertMany(ctx context.Context, assignments []Assignment) error
	ListBySeason(ctx context.Context, seasonID int64) ([]Assignment, error)
	ListByTeamSeason(ctx context.Context, teamID, seasonID int64) ([]Assignment, error)
}
