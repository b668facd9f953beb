package ingestrun

import "time"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

// Task statuses within a run.
const (
	TaskOK      = "ok"
	TaskSkipped = "skipped"
	TaskFailed  = "failed"
)

// Anomaly kinds mirror the pipeline error taxonomy. Anomalies are per-record
// and never abort a run; they exist so no partial success is silent.
const (
	AnomalySourceUnavailable      = "source_unavailable"
	AnomalyReconciliationConflict = "reconciliation_conflict"
	AnomalyIdentityUnresolved     = "identity_unresolved"
	AnomalyDerivationIncomplete   = "derivation_input_incomplete"
	AnomalyConstraintViolation    = "constraint_violation"
	AnomalyLowConfidenceMatch     = "low_confidence_match"
)

// Run is one pipeline invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}

// TaskResult is the outcome of one (category, season) unit of work.
type TaskResult struct {
	RunID      string
	Category   string
	SeasonID   *int64
	Status     string
	Records    int
	DurationMS int64
	Message    string
}

// Anomaly records one skipped or conflicted record with its reason.
type Anomaly struct {
	RunID     string
	Category  string
	Kind      string
	SeasonID  *int64
	EntityKey string
	Reason    string
	CreatedAt time.Time
}
