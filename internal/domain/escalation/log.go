// internal/domain/escalation/log.go
package escalation

import (
	"time"

	"shift_escalation_engine/internal/domain/channel"

	"github.com/google/uuid"
)

// LogStatus is the recorded outcome of a single dispatch attempt.
type LogStatus string

const (
	LogStatusSent      LogStatus = "sent"
	LogStatusFailed    LogStatus = "failed"
	LogStatusResponded LogStatus = "responded"
)

// LogEntry is one row of the append-only notification audit trail.
// Corresponds to the 'notification_log' table. Entries are never updated
// after creation except the sent→responded transition when a reply or
// clock-in is correlated to the entry. ExecutionID is empty for one-off
// assignment notices, which carry no escalation execution.
type LogEntry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	ExecutionID    uuid.NullUUID
	Channel        channel.Type
	Stage          int
	Recipient      string
	Message        string
	Status         LogStatus
	SentAt         time.Time
}
