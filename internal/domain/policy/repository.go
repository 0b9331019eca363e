// internal/domain/policy/repository.go
package policy

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for escalation policies.
// The engine itself only reads; Create and Deactivate exist for the
// policy CRUD collaborator that shares this storage.
type Repository interface {
	Create(ctx context.Context, p *Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	// ListDefaults returns the active policies flagged as the organization
	// default, newest first. More than one entry indicates a
	// data-integrity violation the caller must tolerate.
	ListDefaults(ctx context.Context, organizationID uuid.UUID) ([]*Policy, error)
	ListActive(ctx context.Context, organizationID uuid.UUID) ([]*Policy, error)
	// Deactivate soft-deletes a policy. In-flight executions keep the
	// snapshot they captured and are unaffected.
	Deactivate(ctx context.Context, id uuid.UUID) error
}
