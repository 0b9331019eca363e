// internal/domain/policy/policy.go
package policy

import (
	"time"

	"shift_escalation_engine/internal/domain/channel"

	"github.com/google/uuid"
)

// Stage is one step of an escalation policy: a single channel, the delay
// after the previous stage (also the retry interval within the stage),
// and the key of the message template to render.
type Stage struct {
	Channel     channel.Type  `json:"channel"`
	Delay       time.Duration `json:"delay"`
	TemplateKey string        `json:"templateKey"`
}

// Policy is the organization-scoped escalation configuration.
// Corresponds to the 'escalation_policies' table. Stage order is fixed at
// creation; stage indices are stable references used by executions and
// the notification log. Deletion is a soft delete via IsActive.
type Policy struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	IsDefault      bool
	IsActive       bool
	Stages         []Stage
	MaxRetries     int // dispatch attempts per stage before advancing
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot is the immutable copy of the parts of a policy an execution
// depends on. It is captured when the execution is created so that later
// policy edits or deactivation never reshape an escalation in progress.
type Snapshot struct {
	PolicyID   uuid.UUID `json:"policyId"`
	Stages     []Stage   `json:"stages"`
	MaxRetries int       `json:"maxRetries"`
}

// Snapshot captures the policy's stage plan for binding to an execution.
func (p *Policy) Snapshot() Snapshot {
	stages := make([]Stage, len(p.Stages))
	copy(stages, p.Stages)
	return Snapshot{PolicyID: p.ID, Stages: stages, MaxRetries: p.MaxRetries}
}

// Stage returns the stage definition at index i, reporting false when i
// is out of range.
func (s Snapshot) Stage(i int) (Stage, bool) {
	if i < 0 || i >= len(s.Stages) {
		return Stage{}, false
	}
	return s.Stages[i], true
}

// HasStage reports whether a stage exists at index i.
func (s Snapshot) HasStage(i int) bool {
	return i >= 0 && i < len(s.Stages)
}

// LastStage returns the index of the final stage, or -1 for an empty plan.
func (s Snapshot) LastStage() int {
	return len(s.Stages) - 1
}
