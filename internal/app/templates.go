// internal/app/templates.go
package app

import (
	"fmt"

	"shift_escalation_engine/internal/domain/attendance"
	"shift_escalation_engine/internal/domain/staff"
)

// Message template keys referenced by policy stage definitions.
const (
	TemplateMissedCheckIn       = "missed_checkin"
	TemplateMissedCheckInUrgent = "missed_checkin_urgent"
	TemplateMissedCheckInVoice  = "missed_checkin_voice"
	TemplateShiftAssigned       = "shift_assigned"
)

const timeWindowLayout = "15:04"

// renderStageMessage renders a stage's message template against the
// shift and staff context.
func renderStageMessage(key string, member *staff.Staff, rec *attendance.Record) string {
	window := fmt.Sprintf("%s–%s", rec.ShiftStart.Format(timeWindowLayout), rec.ShiftEnd.Format(timeWindowLayout))
	date := rec.ShiftStart.Format("2006-01-02")

	switch key {
	case TemplateMissedCheckIn:
		return fmt.Sprintf("Hi %s, you have not clocked in for %s on %s (%s). Please clock in now or reply to this message.",
			member.FirstName, rec.ShiftName, date, window)
	case TemplateMissedCheckInUrgent:
		return fmt.Sprintf("URGENT: %s, your clock-in for %s on %s (%s) is still missing. Contact your supervisor immediately.",
			member.FullName(), rec.ShiftName, date, window)
	case TemplateMissedCheckInVoice:
		return fmt.Sprintf("This is an automated call for %s. You are expected on shift %s today between %s and have not clocked in. Please respond.",
			member.FullName(), rec.ShiftName, window)
	default:
		// Unknown keys still produce a usable message rather than
		// blocking the escalation.
		return fmt.Sprintf("Hi %s, please check your clock-in for %s on %s (%s).",
			member.FirstName, rec.ShiftName, date, window)
	}
}

// renderAssignmentMessage renders the fire-and-forget driver-assignment
// notification.
func renderAssignmentMessage(member *staff.Staff, rec *attendance.Record) string {
	return fmt.Sprintf("Hi %s, you have been assigned to %s on %s (%s–%s).",
		member.FirstName, rec.ShiftName, rec.ShiftStart.Format("2006-01-02"),
		rec.ShiftStart.Format(timeWindowLayout), rec.ShiftEnd.Format(timeWindowLayout))
}
