// internal/domain/attendance/repository.go
package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the attendance-collaborator operations the engine
// depends on.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListMissed returns records whose expected check-in passed before
	// asOf with no clock-in recorded, oldest first.
	ListMissed(ctx context.Context, asOf time.Time) ([]*Record, error)
	// SetClockIn records a staff clock-in event.
	SetClockIn(ctx context.Context, id uuid.UUID, at time.Time) error
	// SetEscalationStatus mirrors the execution status onto the record.
	SetEscalationStatus(ctx context.Context, id uuid.UUID, status string) error
}
