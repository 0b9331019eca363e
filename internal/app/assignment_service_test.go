package app

import (
	"context"
	"io"
	"testing"

	"shift_escalation_engine/internal/domain/channel"
	"shift_escalation_engine/internal/domain/escalation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignmentService(h *harness) *AssignmentService {
	log := logrus.New()
	log.SetOutput(io.Discard)
	registry := channel.NewRegistry()
	registry.Register(channel.TypePush, h.push)
	return NewAssignmentService(h.staffRepo, h.attRepo, h.logRepo, registry, log)
}

func TestNotifyAssigned(t *testing.T) {
	ctx := context.Background()

	t.Run("sends a single push notice and records it in the log", func(t *testing.T) {
		h := newHarness(t)
		member := h.addStaff(t, true, true)
		rec := h.addRecord(t, member.ID)
		svc := newAssignmentService(h)

		require.NoError(t, svc.NotifyAssigned(ctx, member.ID, rec.ID))
		require.Equal(t, 1, h.push.callCount())
		assert.Equal(t, "4200123", h.push.calls[0].recipient)
		assert.Contains(t, h.push.calls[0].message, rec.ShiftName)

		entries, total, err := h.logRepo.ListByOrganization(ctx, h.orgID, 10, 0)
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, escalation.LogStatusSent, entries[0].Status)
		assert.Equal(t, channel.TypePush, entries[0].Channel)
		assert.Equal(t, 0, entries[0].Stage)
		assert.Equal(t, "4200123", entries[0].Recipient)
		// Assignment notices belong to no escalation execution.
		assert.False(t, entries[0].ExecutionID.Valid)
	})

	t.Run("reports a missing push contact", func(t *testing.T) {
		h := newHarness(t)
		member := h.addStaff(t, false, true)
		rec := h.addRecord(t, member.ID)
		svc := newAssignmentService(h)

		err := svc.NotifyAssigned(ctx, member.ID, rec.ID)
		assert.ErrorIs(t, err, ErrNoPushContact)
		assert.Equal(t, 0, h.push.callCount())

		// Nothing was dispatched, so nothing is logged.
		_, total, err := h.logRepo.ListByOrganization(ctx, h.orgID, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("surfaces a dispatch failure and logs it", func(t *testing.T) {
		h := newHarness(t)
		member := h.addStaff(t, true, true)
		rec := h.addRecord(t, member.ID)
		h.push.results = []channel.SendResult{{Success: false, Err: assert.AnError}}
		svc := newAssignmentService(h)

		err := svc.NotifyAssigned(ctx, member.ID, rec.ID)
		assert.ErrorIs(t, err, assert.AnError)

		entries, total, err := h.logRepo.ListByOrganization(ctx, h.orgID, 10, 0)
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, escalation.LogStatusFailed, entries[0].Status)
	})

	t.Run("fails cleanly for an unknown staff member", func(t *testing.T) {
		h := newHarness(t)
		member := h.addStaff(t, true, true)
		rec := h.addRecord(t, member.ID)
		svc := newAssignmentService(h)

		err := svc.NotifyAssigned(ctx, uuid.New(), rec.ID)
		assert.Error(t, err)
		assert.Equal(t, 0, h.push.callCount())
	})
}
