// internal/domain/staff/staff.go
package staff

import (
	"database/sql"
	"strconv"
	"time"

	"shift_escalation_engine/internal/domain/channel"

	"github.com/google/uuid"
)

// Staff represents a staff member in the organization directory.
// Contact fields are optional per channel; a missing address means the
// corresponding escalation stage is skipped, not retried.
type Staff struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FirstName      string
	LastName       sql.NullString
	PushChatID     sql.NullInt64  // push-channel user id
	PhoneNumber    sql.NullString // SMS and voice calls
	PolicyID       uuid.NullUUID  // optional per-staff escalation policy
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName joins first and optional last name for message rendering.
func (s *Staff) FullName() string {
	if s.LastName.Valid {
		return s.FirstName + " " + s.LastName.String
	}
	return s.FirstName
}

// ContactFor resolves the recipient address for a channel type. The
// second return is false when the staff profile has no address for it.
func (s *Staff) ContactFor(t channel.Type) (string, bool) {
	switch t {
	case channel.TypePush:
		if s.PushChatID.Valid {
			return strconv.FormatInt(s.PushChatID.Int64, 10), true
		}
	case channel.TypeSMS, channel.TypeVoice:
		if s.PhoneNumber.Valid && s.PhoneNumber.String != "" {
			return s.PhoneNumber.String, true
		}
	}
	return "", false
}
