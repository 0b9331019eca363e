// internal/domain/staff/repository.go
package staff

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the operations for persisting and retrieving Staff
// entities.
type Repository interface {
	Create(ctx context.Context, s *Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	// GetByPushChatID resolves the staff member behind a push-channel
	// reply, used for response correlation.
	GetByPushChatID(ctx context.Context, chatID int64) (*Staff, error)
	Update(ctx context.Context, s *Staff) error
	ListActive(ctx context.Context, organizationID uuid.UUID) ([]*Staff, error)
}
