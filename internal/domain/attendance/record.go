// internal/domain/attendance/record.go
package attendance

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// EscalationStatus mirror values written back onto attendance records for
// display. The escalation engine is the sole writer of this field.
const (
	EscalationStatusEscalating = "escalating"
	EscalationStatusResolved   = "resolved"
	EscalationStatusFailed     = "failed"
)

// Record is one shift's expected check-in, owned by the attendance
// tracking collaborator. The engine reads it to detect missed check-ins
// and to render message context, and writes only EscalationStatus.
type Record struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	StaffID          uuid.UUID
	ShiftName        string
	ShiftStart       time.Time
	ShiftEnd         time.Time
	ExpectedAt       time.Time // expected clock-in instant
	ClockInAt        sql.NullTime
	EscalationStatus sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Missed reports whether the expected check-in has passed without a
// clock-in as of the given instant.
func (r *Record) Missed(now time.Time) bool {
	return !r.ClockInAt.Valid && r.ExpectedAt.Before(now)
}
