package event

import "context"

// Repository persists and reads back play-by-play events. Upserts are keyed
// by the archive event id per kind.
type Repository interface {
	UpsertShots(ctx context.Context, shots []Shot) error
	UpsertGoals(ctx context.Context, goals []Goal) error
	UpsertPenalties(ctx context.Context, penalties []Penalty) error
	UpsertFaceoffs(ctx context.Context, faceoffs []Faceoff) error
	UpsertHits(ctx context.Context, hits []Hit) error
	UpsertBlockedShots(ctx context.Context, blocks []BlockedShot) error

	ListShotsBySeason(ctx context.Context, seasonID int64) ([]Shot, error)
	ListGoalsBySeason(ctx context.Context, seasonID int64) ([]Goal, error)
	ListPenaltiesBySeason(ctx context.Context, seasonID int64) ([]Penalty, error)
	ListFaceoffsBySeason(ctx context.Context, seasonID int64) ([]Faceoff, error)
	ListHitsBySeason(ctx context.Context, seasonID int64) ([]Hit, error)
	ListBlockedShotsBySeason(ctx context.Context, seasonID int64) ([]BlockedShot, error)

	// SeasonsWithShotCoordinates reports, per season, whether any shot row
	// carries x/y coordinates. Drives the measured/estimated xG split.
	SeasonsWithShotCoordinates(ctx context.Context) (map[int64]bool, error)
	CountsBySeason(ctx context.Context, seasonID int64) (Counts, error)
}

// Counts summarizes event coverage for one season.
type Counts struct {
	Shots        int
	Goals        int
	Penalties    int
	Faceoffs     int
	Hits         int
	BlockedShots int
}
