// internal/app/assignment_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"shift_escalation_engine/internal/domain/attendance"
	"shift_escalation_engine/internal/domain/channel"
	"shift_escalation_engine/internal/domain/escalation"
	"shift_escalation_engine/internal/domain/staff"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoPushContact signals that the assigned staff member has no
// push-channel address configured.
var ErrNoPushContact = fmt.Errorf("staff member has no push contact configured")

// AssignmentService sends the one-off notification when a driver is
// assigned to a shift. This is a fire-and-forget single dispatch through
// the push channel adapter with no retry or stage semantics; errors are
// surfaced to the caller but must never block the assignment operation.
// Each dispatch attempt lands in the notification log so the audit trail
// covers assignment notices as well as escalations.
type AssignmentService struct {
	staffRepo      staff.Repository
	attendanceRepo attendance.Repository
	logRepo        escalation.LogRepository
	channels       *channel.Registry
	logger         *logrus.Logger
}

func NewAssignmentService(sr staff.Repository, ar attendance.Repository, lr escalation.LogRepository, channels *channel.Registry, logger *logrus.Logger) *AssignmentService {
	return &AssignmentService{staffRepo: sr, attendanceRepo: ar, logRepo: lr, channels: channels, logger: logger}
}

// NotifyAssigned dispatches the assignment notice for the shift behind
// the attendance record.
func (s *AssignmentService) NotifyAssigned(ctx context.Context, staffID, attendanceRecordID uuid.UUID) error {
	member, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return fmt.Errorf("failed to load staff %s for assignment notice: %w", staffID, err)
	}
	rec, err := s.attendanceRepo.GetByID(ctx, attendanceRecordID)
	if err != nil {
		return fmt.Errorf("failed to load attendance record %s for assignment notice: %w", attendanceRecordID, err)
	}

	recipient, ok := member.ContactFor(channel.TypePush)
	if !ok {
		s.logger.WithField("staff_id", staffID).Warn("Assignment notice skipped; no push contact configured")
		return ErrNoPushContact
	}

	message := renderAssignmentMessage(member, rec)
	res := s.channels.Send(ctx, channel.TypePush, recipient, message)

	entry := &escalation.LogEntry{
		ID:             uuid.New(),
		OrganizationID: rec.OrganizationID,
		Channel:        channel.TypePush,
		Stage:          0,
		Recipient:      recipient,
		Message:        message,
		Status:         escalation.LogStatusSent,
		SentAt:         time.Now(),
	}
	if !res.Success {
		entry.Status = escalation.LogStatusFailed
	}
	if err := s.logRepo.Append(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("attendance_record_id", attendanceRecordID).
			Error("Failed to append notification log entry for assignment notice")
	}

	if !res.Success {
		s.logger.WithError(res.Err).WithFields(logrus.Fields{
			"staff_id":             staffID,
			"attendance_record_id": attendanceRecordID,
		}).Warn("Assignment notice dispatch failed")
		return fmt.Errorf("assignment notice dispatch failed: %w", res.Err)
	}
	s.logger.WithFields(logrus.Fields{
		"staff_id":             staffID,
		"attendance_record_id": attendanceRecordID,
		"provider_message_id":  res.ProviderMessageID,
	}).Info("Assignment notice sent")
	return nil
}
