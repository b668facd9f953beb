package analytics

import "context"

// Repository persists derived metric rows. Every write replaces the full
// scope (season) in one transaction; derivation never patches rows in place.
type Repository interface {
	ReplaceShotXG(ctx context.Context, seasonID int64, rows []ShotXG) error
	ReplacePlayerXG(ctx context.Context, seasonID int64, rows []PlayerXG) error
	ReplaceGoalieGSAx(ctx context.Context, seasonID int64, rows []GoalieGSAx) error
	ReplaceTeamStreaks(ctx context.Context, seasonID int64, rows []TeamStreak) error
	ReplaceHeadToHead(ctx context.Context, seasonID int64, rows []HeadToHead) error
	ReplaceVenueStats(ctx context.Context, seasonID int64, rows []VenueStat) error

	ListPlayerXGBySeason(ctx context.Context, seasonID int64) ([]PlayerXG, error)
	ListGoalieGSAxBySeason(ctx context.Context, seasonID int64) ([]GoalieGSAx, error)
	ListTeamStreaksBySeason(ctx context.Context, seasonID int64) ([]TeamStreak, error)
	ListHeadToHeadBySeason(ctx context.Context, seasonID int64) ([]HeadToHead, error)
	ListVenueStatsBySeason(ctx context.Context, seasonID int64) ([]VenueStat, error)
}
