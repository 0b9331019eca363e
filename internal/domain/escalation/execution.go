// internal/domain/escalation/execution.go
package escalation

import (
	"database/sql"
	"time"

	"shift_escalation_engine/internal/domain/policy"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an execution.
type Status string

const (
	StatusPending    Status = "pending"
	StatusEscalating Status = "escalating"
	StatusResolved   Status = "resolved"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further automated action may occur.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusFailed
}

// Execution is the runtime state machine instance tracking one attendance
// event's escalation progress. Corresponds to the 'escalation_executions'
// table. CurrentStage is monotonically non-decreasing, AttemptsInStage
// never exceeds the snapshot's MaxRetries, and a terminal record is
// immutable.
type Execution struct {
	ID                 uuid.UUID
	OrganizationID     uuid.UUID
	AttendanceRecordID uuid.UUID
	PolicyID           uuid.UUID
	Snapshot           policy.Snapshot
	CurrentStage       int
	AttemptsInStage    int
	Status             Status
	StartedAt          time.Time
	LastAttemptAt      sql.NullTime
	ResolvedAt         sql.NullTime
}

// NextAttemptAt returns the instant the execution is next due for a stage
// attempt. A record with no attempt yet is due at StartedAt; otherwise
// the current stage's delay applies after the last attempt, which covers
// both in-stage retries and the gap after advancing to a new stage.
func (e *Execution) NextAttemptAt() time.Time {
	if !e.LastAttemptAt.Valid {
		return e.StartedAt
	}
	st, ok := e.Snapshot.Stage(e.CurrentStage)
	if !ok {
		return e.LastAttemptAt.Time
	}
	return e.LastAttemptAt.Time.Add(st.Delay)
}

// Due reports whether a stage attempt should run at the given instant.
func (e *Execution) Due(now time.Time) bool {
	if e.Status.Terminal() {
		return false
	}
	return !e.NextAttemptAt().After(now)
}
