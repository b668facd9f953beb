package rawdata

import "time"

// Payload is one fetched source response kept for provenance. The hash lets
// re-ingestion detect unchanged payloads and audits what a run actually saw.
type Payload struct {
	Source      string
	EntityType  string
	EntityKey   string
	SeasonID    *int64
	TeamID      *int64
	PayloadJSON string
	PayloadHash string
	FetchedAt   *time.Time
}
