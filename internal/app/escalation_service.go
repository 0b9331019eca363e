// internal/app/escalation_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shift_escalation_engine/internal/domain/attendance"
	"shift_escalation_engine/internal/domain/channel"
	"shift_escalation_engine/internal/domain/escalation"
	"shift_escalation_engine/internal/domain/policy"
	"shift_escalation_engine/internal/domain/staff"
	idb "shift_escalation_engine/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EscalationExecutor defines the operations the scheduler and the
// response-correlation handlers drive.
type EscalationExecutor interface {
	// CreateForMissedCheckIn binds a policy snapshot to a missed
	// check-in and creates a pending execution. Fails fast with
	// ErrPolicyNotConfigured without creating a record.
	CreateForMissedCheckIn(ctx context.Context, rec *attendance.Record) (*escalation.Execution, error)
	// ExecuteStage performs one stage attempt for the execution.
	// Calling it on a terminal execution is an idempotent no-op.
	ExecuteStage(ctx context.Context, executionID uuid.UUID) (StageOutcome, error)
	// Resolve ends an in-flight escalation because the staff member
	// responded. Idempotent: resolving a terminal execution is a no-op.
	Resolve(ctx context.Context, executionID uuid.UUID, via channel.Type) error
	// ResolveByClockIn correlates a clock-in event to the execution bound
	// to the attendance record, if any.
	ResolveByClockIn(ctx context.Context, attendanceRecordID uuid.UUID) error
	// ResolveByPushReply correlates a push-channel reply to the staff
	// member's active execution, if any.
	ResolveByPushReply(ctx context.Context, chatID int64) error
}

// StageOutcome reports what a single ExecuteStage call did.
type StageOutcome struct {
	Status          escalation.Status
	Stage           int // stage the attempt ran against (or current stage for no-ops)
	AttemptsInStage int
	Dispatched      bool // an adapter send was attempted
	Delivered       bool // the adapter reported success
	Abandoned       bool // lost a claim or commit race; winner is authoritative
	NextAttemptAt   time.Time
}

// EscalationService is the stage executor and resolution correlator. All
// execution mutations flow through here under the claim/commit
// compare-and-set discipline of the execution repository.
type EscalationService struct {
	resolver       *PolicyResolver
	execRepo       escalation.ExecutionRepository
	logRepo        escalation.LogRepository
	staffRepo      staff.Repository
	attendanceRepo attendance.Repository
	channels       *channel.Registry
	logger         *logrus.Logger
	now            func() time.Time
}

func NewEscalationService(
	resolver *PolicyResolver,
	execRepo escalation.ExecutionRepository,
	logRepo escalation.LogRepository,
	staffRepo staff.Repository,
	attendanceRepo attendance.Repository,
	channels *channel.Registry,
	logger *logrus.Logger,
) *EscalationService {
	return &EscalationService{
		resolver:       resolver,
		execRepo:       execRepo,
		logRepo:        logRepo,
		staffRepo:      staffRepo,
		attendanceRepo: attendanceRepo,
		channels:       channels,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *EscalationService) CreateForMissedCheckIn(ctx context.Context, rec *attendance.Record) (*escalation.Execution, error) {
	pol, err := s.resolver.Resolve(ctx, rec.OrganizationID, uuid.NullUUID{UUID: rec.StaffID, Valid: true})
	if err != nil {
		// Configuration errors surface to the operator; no execution
		// record may exist without a bound policy snapshot.
		return nil, err
	}

	exec := &escalation.Execution{
		ID:                 uuid.New(),
		OrganizationID:     rec.OrganizationID,
		AttendanceRecordID: rec.ID,
		PolicyID:           pol.ID,
		Snapshot:           pol.Snapshot(),
		Status:             escalation.StatusPending,
		StartedAt:          s.now(),
	}
	if err := s.execRepo.Create(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to create escalation execution for attendance record %s: %w", rec.ID, err)
	}
	if err := s.attendanceRepo.SetEscalationStatus(ctx, rec.ID, attendance.EscalationStatusEscalating); err != nil {
		s.logger.WithError(err).WithField("attendance_record_id", rec.ID).
			Error("Failed to mirror escalation status onto attendance record")
	}
	s.logger.WithFields(logrus.Fields{
		"execution_id":         exec.ID,
		"attendance_record_id": rec.ID,
		"policy_id":            pol.ID,
		"stages":               len(exec.Snapshot.Stages),
	}).Info("Escalation execution created for missed check-in")
	return exec, nil
}

func (s *EscalationService) ExecuteStage(ctx context.Context, executionID uuid.UUID) (StageOutcome, error) {
	exec, err := s.execRepo.GetByID(ctx, executionID)
	if err != nil {
		return StageOutcome{}, fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}
	if exec.Status.Terminal() {
		// Replays after resolution or exhaustion must not mutate anything.
		return s.outcome(exec, false, false, false), nil
	}

	claimedAt := s.now()
	claimed, err := s.execRepo.Claim(ctx, exec.ID, exec.LastAttemptAt, claimedAt)
	if err != nil {
		return StageOutcome{}, fmt.Errorf("failed to claim execution %s: %w", exec.ID, err)
	}
	if !claimed {
		// A concurrent sweep or a resolution got here first. Not an
		// error and not a failure; the winner's outcome is authoritative.
		s.logger.WithField("execution_id", exec.ID).Debug("Lost claim race; abandoning stage attempt")
		return s.outcome(exec, false, false, true), nil
	}
	exec.LastAttemptAt = sql.NullTime{Time: claimedAt, Valid: true}

	// A crash between the log append and the execution commit leaves the
	// attempt recorded only in the log. The dispatch already happened, so
	// resume by completing the interrupted attempt's bookkeeping instead
	// of sending again: adopt the logged count, apply the transition and
	// commit, with no new dispatch.
	if counted, cErr := s.logRepo.CountStageAttempts(ctx, exec.ID, exec.CurrentStage); cErr != nil {
		s.logger.WithError(cErr).WithField("execution_id", exec.ID).
			Warn("Could not reconcile attempt count from notification log")
	} else if counted > exec.AttemptsInStage {
		s.logger.WithFields(logrus.Fields{
			"execution_id": exec.ID,
			"stage":        exec.CurrentStage,
			"logged":       counted,
			"committed":    exec.AttemptsInStage,
		}).Warn("Notification log ahead of execution state; completing interrupted attempt without dispatch")
		// attempts_in_stage never exceeds the retry budget, even if the
		// log over-counts a stage.
		budget := exec.Snapshot.MaxRetries
		if budget < 1 {
			budget = 1
		}
		if counted > budget {
			counted = budget
		}
		exec.AttemptsInStage = counted
		exec.Status = escalation.StatusEscalating
		s.transition(exec, claimedAt)
		committed, err := s.execRepo.CommitStage(ctx, exec)
		if err != nil {
			return StageOutcome{}, fmt.Errorf("failed to commit reconciled attempt for execution %s: %w", exec.ID, err)
		}
		if committed && exec.Status == escalation.StatusFailed {
			s.mirrorStatus(ctx, exec.AttendanceRecordID, attendance.EscalationStatusFailed)
		}
		return s.outcome(exec, false, false, !committed), nil
	}

	rec, err := s.attendanceRepo.GetByID(ctx, exec.AttendanceRecordID)
	if err != nil {
		return StageOutcome{}, fmt.Errorf("failed to load attendance record %s: %w", exec.AttendanceRecordID, err)
	}
	member, err := s.staffRepo.GetByID(ctx, rec.StaffID)
	if err != nil {
		return StageOutcome{}, fmt.Errorf("failed to load staff %s: %w", rec.StaffID, err)
	}

	stage, recipient, found, outc, err := s.findDispatchableStage(ctx, exec, member)
	if err != nil {
		return StageOutcome{}, err
	}
	if !found {
		return outc, nil
	}

	message := renderStageMessage(stage.TemplateKey, member, rec)
	res := s.channels.Send(ctx, stage.Channel, recipient, message)

	entry := &escalation.LogEntry{
		ID:             uuid.New(),
		OrganizationID: exec.OrganizationID,
		ExecutionID:    uuid.NullUUID{UUID: exec.ID, Valid: true},
		Channel:        stage.Channel,
		Stage:          exec.CurrentStage,
		Recipient:      recipient,
		Message:        message,
		Status:         escalation.LogStatusSent,
		SentAt:         claimedAt,
	}
	if !res.Success {
		entry.Status = escalation.LogStatusFailed
		s.logger.WithError(res.Err).WithFields(logrus.Fields{
			"execution_id": exec.ID,
			"stage":        exec.CurrentStage,
			"channel":      stage.Channel,
		}).Warn("Dispatch attempt failed")
	}
	if err := s.logRepo.Append(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("execution_id", exec.ID).
			Error("Failed to append notification log entry")
	}

	dispatchedStage := exec.CurrentStage
	exec.AttemptsInStage++
	// Delivery success never resolves the execution; only an external
	// response event does.
	exec.Status = escalation.StatusEscalating
	s.transition(exec, claimedAt)

	committed, err := s.execRepo.CommitStage(ctx, exec)
	if err != nil {
		return StageOutcome{}, fmt.Errorf("failed to commit stage attempt for execution %s: %w", exec.ID, err)
	}
	if !committed {
		// Either a resolution landed while the dispatch was in flight or a
		// later claimant superseded this attempt's stamp. The attempt
		// completes but must not overwrite the winner's state.
		s.logger.WithField("execution_id", exec.ID).Info("Stage commit rejected; a concurrent resolution or claim supersedes this attempt")
		out := StageOutcome{Stage: dispatchedStage, Dispatched: true, Delivered: res.Success, Abandoned: true}
		if current, gErr := s.execRepo.GetByID(ctx, exec.ID); gErr == nil {
			out.Status = current.Status
		}
		return out, nil
	}
	if exec.Status == escalation.StatusFailed {
		s.mirrorStatus(ctx, exec.AttendanceRecordID, attendance.EscalationStatusFailed)
		s.logger.WithFields(logrus.Fields{
			"execution_id": exec.ID,
			"stage":        dispatchedStage,
		}).Warn("Escalation exhausted without response; execution failed")
	}

	out := s.outcome(exec, true, res.Success, false)
	out.Stage = dispatchedStage
	return out, nil
}

// findDispatchableStage walks forward from the current stage, skipping
// stages whose channel has no recipient address on the staff profile. A
// missing contact method is a deterministic configuration gap, not a
// transient fault: it consumes no retry attempt and produces no log
// entry. Returns found=false when the walk terminated the execution.
func (s *EscalationService) findDispatchableStage(ctx context.Context, exec *escalation.Execution, member *staff.Staff) (stage policy.Stage, recipient string, found bool, out StageOutcome, err error) {
	for {
		st, ok := exec.Snapshot.Stage(exec.CurrentStage)
		if !ok {
			break // empty or exhausted stage plan
		}
		addr, has := member.ContactFor(st.Channel)
		if has {
			return st, addr, true, StageOutcome{}, nil
		}
		s.logger.WithFields(logrus.Fields{
			"execution_id": exec.ID,
			"staff_id":     member.ID,
			"stage":        exec.CurrentStage,
			"channel":      st.Channel,
		}).Warn("No contact address for stage channel; skipping stage")
		if !exec.Snapshot.HasStage(exec.CurrentStage + 1) {
			break
		}
		exec.CurrentStage++
		exec.AttemptsInStage = 0
	}

	exec.Status = escalation.StatusFailed
	exec.ResolvedAt = sql.NullTime{Time: s.now(), Valid: true}
	committed, cErr := s.execRepo.CommitStage(ctx, exec)
	if cErr != nil {
		return policy.Stage{}, "", false, StageOutcome{}, fmt.Errorf("failed to commit skipped-out execution %s: %w", exec.ID, cErr)
	}
	if committed {
		s.mirrorStatus(ctx, exec.AttendanceRecordID, attendance.EscalationStatusFailed)
	}
	return policy.Stage{}, "", false, s.outcome(exec, false, false, !committed), nil
}

// transition applies the post-attempt state decision from the captured
// policy snapshot.
func (s *EscalationService) transition(exec *escalation.Execution, at time.Time) {
	maxRetries := exec.Snapshot.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	switch {
	case exec.AttemptsInStage < maxRetries:
		// Remain on the stage; the sweep re-arms after the stage delay.
	case exec.Snapshot.HasStage(exec.CurrentStage + 1):
		exec.CurrentStage++
		exec.AttemptsInStage = 0
	default:
		exec.Status = escalation.StatusFailed
		exec.ResolvedAt = sql.NullTime{Time: at, Valid: true}
	}
}

func (s *EscalationService) Resolve(ctx context.Context, executionID uuid.UUID, via channel.Type) error {
	exec, err := s.execRepo.GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution %s for resolution: %w", executionID, err)
	}
	if exec.Status.Terminal() {
		return nil
	}
	resolved, err := s.execRepo.MarkResolved(ctx, exec.ID, s.now())
	if err != nil {
		return fmt.Errorf("failed to resolve execution %s: %w", exec.ID, err)
	}
	if !resolved {
		// Already terminal by the time the update landed.
		return nil
	}
	if via.Valid() {
		if _, err := s.logRepo.MarkResponded(ctx, exec.ID, via); err != nil {
			s.logger.WithError(err).WithField("execution_id", exec.ID).
				Error("Failed to mark notification log entry as responded")
		}
	}
	s.mirrorStatus(ctx, exec.AttendanceRecordID, attendance.EscalationStatusResolved)
	s.logger.WithFields(logrus.Fields{
		"execution_id": exec.ID,
		"via":          via,
	}).Info("Escalation resolved")
	return nil
}

func (s *EscalationService) ResolveByClockIn(ctx context.Context, attendanceRecordID uuid.UUID) error {
	exec, err := s.execRepo.GetByAttendanceRecord(ctx, attendanceRecordID)
	if err != nil {
		if err == idb.ErrExecutionNotFound {
			return nil // clock-in before any escalation started
		}
		return fmt.Errorf("failed to look up execution for attendance record %s: %w", attendanceRecordID, err)
	}
	// A clock-in is not a channel reply; no log entry flips to responded.
	return s.Resolve(ctx, exec.ID, "")
}

func (s *EscalationService) ResolveByPushReply(ctx context.Context, chatID int64) error {
	member, err := s.staffRepo.GetByPushChatID(ctx, chatID)
	if err != nil {
		if err == idb.ErrStaffNotFound {
			s.logger.WithField("chat_id", chatID).Debug("Push reply from unknown chat; ignoring")
			return nil
		}
		return fmt.Errorf("failed to look up staff for chat %d: %w", chatID, err)
	}
	exec, err := s.execRepo.GetActiveByStaff(ctx, member.ID)
	if err != nil {
		if err == idb.ErrExecutionNotFound {
			return nil // nothing in flight for this staff member
		}
		return fmt.Errorf("failed to look up active execution for staff %s: %w", member.ID, err)
	}
	return s.Resolve(ctx, exec.ID, channel.TypePush)
}

func (s *EscalationService) mirrorStatus(ctx context.Context, attendanceRecordID uuid.UUID, status string) {
	if err := s.attendanceRepo.SetEscalationStatus(ctx, attendanceRecordID, status); err != nil {
		s.logger.WithError(err).WithField("attendance_record_id", attendanceRecordID).
			Error("Failed to mirror escalation status onto attendance record")
	}
}

func (s *EscalationService) outcome(exec *escalation.Execution, dispatched, delivered, abandoned bool) StageOutcome {
	out := StageOutcome{
		Status:          exec.Status,
		Stage:           exec.CurrentStage,
		AttemptsInStage: exec.AttemptsInStage,
		Dispatched:      dispatched,
		Delivered:       delivered,
		Abandoned:       abandoned,
	}
	if !exec.Status.Terminal() {
		out.NextAttemptAt = exec.NextAttemptAt()
	}
	return out
}
