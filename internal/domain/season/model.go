package season

import (
	"strings"
	"time"
)

const (
	KindRegular   = "regular"
	KindPlayoff   = "playoff"
	KindPreseason = "preseason"
)

// Season is an immutable reference row keyed by the upstream season id.
type Season struct {
	ID        int64
	Name      string
	Kind      string
	Career    bool
	Playoff   bool
	StartDate *time.Time
	EndDate   *time.Time
}

// InferKind classifies a season from its upstream label. The feed carries no
// explicit kind field, only naming conventions.
func InferKind(name string) string {
	lowered := strings.ToLower(name)
	switch {
	case strings.Contains(lowered, "playoff"), strings.Contains(lowered, "finals"):
		return KindPlayoff
	case strings.Contains(lowered, "preseason"), strings.Contains(lowered, "pre-season"), strings.Contains(lowered, "exhibition"):
		return KindPreseason
	default:
		return KindRegular
	}
}
