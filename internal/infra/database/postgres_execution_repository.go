// internal/infra/database/postgres_execution_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shift_escalation_engine/internal/domain/escalation"

	"github.com/google/uuid"
)

// Custom errors specific to execution repository
var ErrExecutionNotFound = fmt.Errorf("escalation execution not found")
var ErrDuplicateExecution = fmt.Errorf("attendance record already has an escalation execution")

const executionColumns = `id, organization_id, attendance_record_id, policy_id, policy_snapshot,
               current_stage, attempts_in_stage, status, started_at, last_attempt_at, resolved_at`

type PostgresExecutionRepository struct {
	db *sql.DB
}

func NewPostgresExecutionRepository(db *sql.DB) *PostgresExecutionRepository {
	return &PostgresExecutionRepository{db: db}
}

func (r *PostgresExecutionRepository) Create(ctx context.Context, e *escalation.Execution) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	snapshot, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("error encoding policy snapshot: %w", err)
	}
	query := `INSERT INTO escalation_executions
               (id, organization_id, attendance_record_id, policy_id, policy_snapshot,
                current_stage, attempts_in_stage, status, started_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.db.ExecContext(ctx, query, e.ID, e.OrganizationID, e.AttendanceRecordID, e.PolicyID,
		snapshot, e.CurrentStage, e.AttemptsInStage, e.Status, e.StartedAt)
	if err != nil {
		// One attendance record holds at most one execution, enforced by
		// the attendance_record_id unique constraint.
		if strings.Contains(err.Error(), "escalation_executions_attendance_record_id_key") {
			return ErrDuplicateExecution
		}
		return fmt.Errorf("error creating escalation execution: %w", err)
	}
	return nil
}

func (r *PostgresExecutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*escalation.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM escalation_executions WHERE id = $1`
	return scanExecutionRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresExecutionRepository) GetByAttendanceRecord(ctx context.Context, attendanceRecordID uuid.UUID) (*escalation.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM escalation_executions WHERE attendance_record_id = $1`
	return scanExecutionRow(r.db.QueryRowContext(ctx, query, attendanceRecordID))
}

func (r *PostgresExecutionRepository) GetActiveByStaff(ctx context.Context, staffID uuid.UUID) (*escalation.Execution, error) {
	query := `SELECT e.id, e.organization_id, e.attendance_record_id, e.policy_id, e.policy_snapshot,
                      e.current_stage, e.attempts_in_stage, e.status, e.started_at, e.last_attempt_at, e.resolved_at
               FROM escalation_executions e
               JOIN attendance_records a ON a.id = e.attendance_record_id
               WHERE a.staff_id = $1 AND e.status IN ('pending', 'escalating')
               ORDER BY e.started_at DESC
               LIMIT 1`
	return scanExecutionRow(r.db.QueryRowContext(ctx, query, staffID))
}

func (r *PostgresExecutionRepository) ListActive(ctx context.Context) ([]*escalation.Execution, error) {
	query := `SELECT ` + executionColumns + `
               FROM escalation_executions
               WHERE status IN ('pending', 'escalating')
               ORDER BY started_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing active executions: %w", err)
	}
	defer rows.Close()

	executions := make([]*escalation.Execution, 0)
	for rows.Next() {
		e, err := scanExecutionFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning execution row: %w", err)
		}
		executions = append(executions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution rows: %w", err)
	}
	return executions, nil
}

// Claim is the optimistic lock for a stage attempt: the stamp only lands
// when last_attempt_at still matches what the claimant read and the
// record is not terminal. IS NOT DISTINCT FROM makes NULL compare equal
// for the first attempt.
func (r *PostgresExecutionRepository) Claim(ctx context.Context, id uuid.UUID, seen sql.NullTime, claimedAt time.Time) (bool, error) {
	query := `UPDATE escalation_executions
               SET last_attempt_at = $2
               WHERE id = $1
                 AND status IN ('pending', 'escalating')
                 AND last_attempt_at IS NOT DISTINCT FROM $3`
	res, err := r.db.ExecContext(ctx, query, id, claimedAt, seen)
	if err != nil {
		return false, fmt.Errorf("error claiming execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading claim result: %w", err)
	}
	return affected == 1, nil
}

// CommitStage writes the post-attempt state. The status guard rejects
// commits against a record another writer already made terminal, and the
// last_attempt_at guard rejects commits whose claim stamp has been
// superseded by a later claimant, even with a zero stage delay.
func (r *PostgresExecutionRepository) CommitStage(ctx context.Context, e *escalation.Execution) (bool, error) {
	query := `UPDATE escalation_executions
               SET current_stage = $2, attempts_in_stage = $3, status = $4,
                   last_attempt_at = $5, resolved_at = $6
               WHERE id = $1
                 AND status IN ('pending', 'escalating')
                 AND last_attempt_at IS NOT DISTINCT FROM $5`
	res, err := r.db.ExecContext(ctx, query, e.ID, e.CurrentStage, e.AttemptsInStage, e.Status, e.LastAttemptAt, e.ResolvedAt)
	if err != nil {
		return false, fmt.Errorf("error committing stage attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading commit result: %w", err)
	}
	return affected == 1, nil
}

func (r *PostgresExecutionRepository) MarkResolved(ctx context.Context, id uuid.UUID, resolvedAt time.Time) (bool, error) {
	query := `UPDATE escalation_executions
               SET status = $2, resolved_at = $3
               WHERE id = $1 AND status IN ('pending', 'escalating')`
	res, err := r.db.ExecContext(ctx, query, id, escalation.StatusResolved, resolvedAt)
	if err != nil {
		return false, fmt.Errorf("error resolving execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading resolve result: %w", err)
	}
	return affected == 1, nil
}

func scanExecutionFrom(sc rowScanner) (*escalation.Execution, error) {
	e := escalation.Execution{}
	var snapshot []byte
	err := sc.Scan(&e.ID, &e.OrganizationID, &e.AttendanceRecordID, &e.PolicyID, &snapshot,
		&e.CurrentStage, &e.AttemptsInStage, &e.Status, &e.StartedAt, &e.LastAttemptAt, &e.ResolvedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &e.Snapshot); err != nil {
		return nil, fmt.Errorf("error decoding policy snapshot: %w", err)
	}
	return &e, nil
}

func scanExecutionRow(row *sql.Row) (*escalation.Execution, error) {
	e, err := scanExecutionFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("error getting escalation execution: %w", err)
	}
	return e, nil
}
