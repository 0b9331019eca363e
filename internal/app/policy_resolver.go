// internal/app/policy_resolver.go
package app

import (
	"context"
	"fmt"

	"shift_escalation_engine/internal/domain/policy"
	"shift_escalation_engine/internal/domain/staff"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrPolicyNotConfigured signals that no escalation policy is resolvable
// for an organization. This is a setup defect surfaced to operators, not
// a transient fault, so callers must not retry it automatically.
var ErrPolicyNotConfigured = fmt.Errorf("no escalation policy configured for organization")

// PolicyResolver selects the applicable escalation policy for an
// organization and, optionally, a specific staff member.
type PolicyResolver struct {
	policyRepo policy.Repository
	staffRepo  staff.Repository
	logger     *logrus.Logger
}

func NewPolicyResolver(pr policy.Repository, sr staff.Repository, logger *logrus.Logger) *PolicyResolver {
	return &PolicyResolver{policyRepo: pr, staffRepo: sr, logger: logger}
}

// Resolve returns exactly one policy. Selection order: a policy bound to
// the staff member's profile if set and still active, else the
// organization's active default. If more than one default is flagged (a
// data-integrity violation) the most recently created wins and a warning
// is logged; the caller never fails for that reason.
func (r *PolicyResolver) Resolve(ctx context.Context, organizationID uuid.UUID, staffID uuid.NullUUID) (*policy.Policy, error) {
	if staffID.Valid {
		bound, err := r.resolveStaffBound(ctx, staffID.UUID)
		if err != nil {
			return nil, err
		}
		if bound != nil {
			return bound, nil
		}
	}

	defaults, err := r.policyRepo.ListDefaults(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list default policies for organization %s: %w", organizationID, err)
	}
	if len(defaults) == 0 {
		return nil, ErrPolicyNotConfigured
	}
	if len(defaults) > 1 {
		r.logger.WithFields(logrus.Fields{
			"organization_id": organizationID,
			"default_count":   len(defaults),
			"chosen_policy":   defaults[0].ID,
		}).Warn("Multiple default escalation policies flagged; using the most recently created")
	}
	return defaults[0], nil
}

// resolveStaffBound returns the staff member's bound policy when it is
// set and active, or nil to fall back to the organization default.
func (r *PolicyResolver) resolveStaffBound(ctx context.Context, staffID uuid.UUID) (*policy.Policy, error) {
	member, err := r.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to load staff %s for policy resolution: %w", staffID, err)
	}
	if !member.PolicyID.Valid {
		return nil, nil
	}
	bound, err := r.policyRepo.GetByID(ctx, member.PolicyID.UUID)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"staff_id":  staffID,
			"policy_id": member.PolicyID.UUID,
		}).Warn("Staff-bound policy not found; falling back to organization default")
		return nil, nil
	}
	if !bound.IsActive {
		r.logger.WithFields(logrus.Fields{
			"staff_id":  staffID,
			"policy_id": bound.ID,
		}).Warn("Staff-bound policy is inactive; falling back to organization default")
		return nil, nil
	}
	return bound, nil
}
