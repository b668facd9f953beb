package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("conflict")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Pipeline taxonomy. Per-record failures map onto one of these so the run
// summary can bucket them; none of them aborts a run on its own.
var (
	// ErrSourceUnavailable marks a fetch that failed after retries. The
	// (category, season) task is skipped and other categories proceed.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrReconciliationConflict marks two sources disagreeing on an
	// authoritative field beyond the precedence rules. The authoritative
	// value is kept, the disagreement is recorded.
	ErrReconciliationConflict = errors.New("reconciliation conflict")

	// ErrIdentityUnresolved marks a raw record that matches no existing or
	// creatable entity key. The record is dropped with a reason, never
	// force-inserted under a synthetic key.
	ErrIdentityUnresolved = errors.New("identity unresolved")

	// ErrDerivationInputIncomplete marks a derivation scope missing required
	// raw data. Metrics degrade per their own rules (estimation mode, scope
	// omission); nothing is silently zeroed.
	ErrDerivationInputIncomplete = errors.New("derivation input incomplete")

	// ErrConstraintViolation marks an upsert that would break uniqueness or
	// a foreign key. The record is rejected and the run continues.
	ErrConstraintViolation = errors.New("constraint violation")
)
