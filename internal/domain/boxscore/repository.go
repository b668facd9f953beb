package boxscore

import "context"

// Repository persists per-game player lines.
type Repository interface {
	ReplaceBySeason(ctx context.Context, seasonID int64, lines []Line) error
	ListBySeason(ctx context.Context, seasonID int64) ([]Line, error)
	ListByGame(ctx context.Context, gameID int64) ([]Line, error)
}
