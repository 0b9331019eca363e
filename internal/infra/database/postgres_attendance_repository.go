// internal/infra/database/postgres_attendance_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shift_escalation_engine/internal/domain/attendance"

	"github.com/google/uuid"
)

// Custom errors
var ErrAttendanceRecordNotFound = fmt.Errorf("attendance record not found")

type PostgresAttendanceRepository struct {
	db *sql.DB
}

func NewPostgresAttendanceRepository(db *sql.DB) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{db: db}
}

func (r *PostgresAttendanceRepository) Create(ctx context.Context, rec *attendance.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	query := `INSERT INTO attendance_records
               (id, organization_id, staff_id, shift_name, shift_start, shift_end, expected_at, clock_in_at, escalation_status)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, rec.ID, rec.OrganizationID, rec.StaffID, rec.ShiftName,
		rec.ShiftStart, rec.ShiftEnd, rec.ExpectedAt, rec.ClockInAt, rec.EscalationStatus).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating attendance record: %w", err)
	}
	return nil
}

func (r *PostgresAttendanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*attendance.Record, error) {
	query := `SELECT id, organization_id, staff_id, shift_name, shift_start, shift_end, expected_at, clock_in_at, escalation_status, created_at, updated_at
               FROM attendance_records WHERE id = $1`
	rec := &attendance.Record{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.OrganizationID, &rec.StaffID,
		&rec.ShiftName, &rec.ShiftStart, &rec.ShiftEnd, &rec.ExpectedAt, &rec.ClockInAt,
		&rec.EscalationStatus, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAttendanceRecordNotFound
		}
		return nil, fmt.Errorf("error getting attendance record: %w", err)
	}
	return rec, nil
}

func (r *PostgresAttendanceRepository) ListMissed(ctx context.Context, asOf time.Time) ([]*attendance.Record, error) {
	query := `SELECT id, organization_id, staff_id, shift_name, shift_start, shift_end, expected_at, clock_in_at, escalation_status, created_at, updated_at
               FROM attendance_records
               WHERE clock_in_at IS NULL AND expected_at < $1
               ORDER BY expected_at ASC`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("error listing missed check-ins: %w", err)
	}
	defer rows.Close()

	records := make([]*attendance.Record, 0)
	for rows.Next() {
		rec := &attendance.Record{}
		if err := rows.Scan(&rec.ID, &rec.OrganizationID, &rec.StaffID, &rec.ShiftName,
			&rec.ShiftStart, &rec.ShiftEnd, &rec.ExpectedAt, &rec.ClockInAt,
			&rec.EscalationStatus, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance records: %w", err)
	}
	return records, nil
}

func (r *PostgresAttendanceRepository) SetClockIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE attendance_records SET clock_in_at = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("error recording clock-in: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading clock-in result: %w", err)
	}
	if affected == 0 {
		return ErrAttendanceRecordNotFound
	}
	return nil
}

func (r *PostgresAttendanceRepository) SetEscalationStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE attendance_records SET escalation_status = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("error setting escalation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading escalation status result: %w", err)
	}
	if affected == 0 {
		return ErrAttendanceRecordNotFound
	}
	return nil
}
