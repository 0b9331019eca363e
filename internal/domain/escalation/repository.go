// internal/domain/escalation/repository.go
package escalation

import (
	"context"
	"database/sql"
	"time"

	"shift_escalation_engine/internal/domain/channel"

	"github.com/google/uuid"
)

// ExecutionRepository defines durable per-attendance-event state
// operations. Mutations use compare-and-set semantics so that multiple
// engine instances can sweep concurrently without double-dispatching.
type ExecutionRepository interface {
	Create(ctx context.Context, e *Execution) error
	GetByID(ctx context.Context, id uuid.UUID) (*Execution, error)
	// GetByAttendanceRecord returns the execution bound to an attendance
	// record, terminal or not. ErrExecutionNotFound when none exists.
	GetByAttendanceRecord(ctx context.Context, attendanceRecordID uuid.UUID) (*Execution, error)
	// GetActiveByStaff returns the non-terminal execution for the staff
	// member's attendance record, used to correlate replies.
	GetActiveByStaff(ctx context.Context, staffID uuid.UUID) (*Execution, error)
	// ListActive returns all pending and escalating executions.
	ListActive(ctx context.Context) ([]*Execution, error)

	// Claim stamps last_attempt_at with claimedAt iff the record is still
	// non-terminal and last_attempt_at matches the value the caller read.
	// Exactly one of two concurrent claimants for the same due condition
	// succeeds; the loser must abandon the attempt silently.
	Claim(ctx context.Context, id uuid.UUID, seen sql.NullTime, claimedAt time.Time) (bool, error)

	// CommitStage writes stage/attempt/status after a dispatch attempt.
	// The update only lands if the record is still non-terminal and its
	// claim stamp still matches the committer's, so an in-flight attempt
	// can never resurrect a terminal record or overwrite a later claim.
	CommitStage(ctx context.Context, e *Execution) (bool, error)

	// MarkResolved transitions a non-terminal execution to resolved.
	// Returns false without error when the record is already terminal.
	MarkResolved(ctx context.Context, id uuid.UUID, resolvedAt time.Time) (bool, error)
}

// LogRepository is the append-only notification audit trail.
type LogRepository interface {
	Append(ctx context.Context, entry *LogEntry) error
	// CountStageAttempts counts dispatch attempts recorded for a stage of
	// an execution. Used to reconcile AttemptsInStage after a crash
	// between the log append and the execution commit.
	CountStageAttempts(ctx context.Context, executionID uuid.UUID, stage int) (int, error)
	// MarkResponded flips the most recent sent entry for the execution on
	// the given channel to responded. Reports whether an entry matched.
	MarkResponded(ctx context.Context, executionID uuid.UUID, ch channel.Type) (bool, error)
	ListByExecution(ctx context.Context, executionID uuid.UUID) ([]*LogEntry, error)
	// ListByOrganization returns a page of entries, newest first, plus the
	// total entry count for the organization.
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*LogEntry, int, error)
}
