package scheduler

import (
	"context"
	"sync"
	"time"

	"shift_escalation_engine/internal/app"
	"shift_escalation_engine/internal/domain/attendance"
	"shift_escalation_engine/internal/domain/escalation"
	idb "shift_escalation_engine/internal/infra/database"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const sweepTimeout = 2 * time.Minute

// EscalationScheduler drives all due-condition detection with a single
// recurring sweep: missed check-ins get a fresh execution and an
// immediate stage 0 attempt, and escalating executions past their stage
// delay get their next attempt. Dispatches for different executions run
// concurrently up to a bounded worker count; per-execution serialization
// is the executor's claim discipline, not the scheduler's.
type EscalationScheduler struct {
	cronEngine     *cron.Cron
	svc            app.EscalationExecutor
	execRepo       escalation.ExecutionRepository
	attendanceRepo attendance.Repository
	logger         *logrus.Logger
	cronSpecSweep  string
	workers        int64
	now            func() time.Time
}

func NewEscalationScheduler(
	svc app.EscalationExecutor,
	execRepo escalation.ExecutionRepository,
	attendanceRepo attendance.Repository,
	logger *logrus.Logger,
	cronSpecSweep string, // e.g., "* * * * *" (every minute)
	workers int,
) *EscalationScheduler {
	if workers < 1 {
		workers = 1
	}
	return &EscalationScheduler{
		cronEngine:     cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		svc:            svc,
		execRepo:       execRepo,
		attendanceRepo: attendanceRepo,
		logger:         logger,
		cronSpecSweep:  cronSpecSweep,
		workers:        int64(workers),
		now:            time.Now,
	}
}

func (s *EscalationScheduler) Start() {
	s.logger.Info("Starting escalation scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecSweep, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add escalation sweep cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Infof("Escalation scheduler started, sweep spec %q", s.cronSpecSweep)
}

// Sweep runs one pass of due-condition detection and dispatch. Exported
// so operational tooling and tests can trigger a pass directly.
func (s *EscalationScheduler) Sweep(ctx context.Context) {
	now := s.now()
	due := s.collectDue(ctx, now)
	if len(due) == 0 {
		return
	}
	s.logger.WithField("due_count", len(due)).Debug("Sweep dispatching due executions")

	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	for _, id := range due {
		if err := sem.Acquire(ctx, 1); err != nil {
			s.logger.WithError(err).Warn("Sweep aborted while waiting for a dispatch slot")
			break
		}
		wg.Add(1)
		go func(executionID uuid.UUID) {
			defer wg.Done()
			defer sem.Release(1)
			if _, err := s.svc.ExecuteStage(ctx, executionID); err != nil {
				s.logger.WithError(err).WithField("execution_id", executionID).
					Error("Stage attempt failed during sweep")
			}
		}(id)
	}
	wg.Wait()
}

// collectDue gathers the executions requiring action: newly created ones
// for missed check-ins plus active executions whose stage delay elapsed.
func (s *EscalationScheduler) collectDue(ctx context.Context, now time.Time) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	due := make([]uuid.UUID, 0)

	missed, err := s.attendanceRepo.ListMissed(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Sweep could not list missed check-ins")
	}
	for _, rec := range missed {
		if _, err := s.execRepo.GetByAttendanceRecord(ctx, rec.ID); err == nil {
			continue // execution already exists; phase two handles it if active
		} else if err != idb.ErrExecutionNotFound {
			s.logger.WithError(err).WithField("attendance_record_id", rec.ID).
				Error("Sweep could not check for existing execution")
			continue
		}

		exec, err := s.svc.CreateForMissedCheckIn(ctx, rec)
		if err != nil {
			if err == app.ErrPolicyNotConfigured {
				// Setup defect: alert the operator, never retry blindly.
				s.logger.WithFields(logrus.Fields{
					"organization_id":      rec.OrganizationID,
					"attendance_record_id": rec.ID,
				}).Error("No escalation policy configured; missed check-in cannot be escalated")
			} else {
				s.logger.WithError(err).WithField("attendance_record_id", rec.ID).
					Error("Failed to create escalation execution")
			}
			continue
		}
		seen[exec.ID] = struct{}{}
		due = append(due, exec.ID) // stage 0 fires immediately
	}

	active, err := s.execRepo.ListActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Sweep could not list active executions")
		return due
	}
	for _, exec := range active {
		if _, ok := seen[exec.ID]; ok {
			continue
		}
		if exec.Due(now) {
			seen[exec.ID] = struct{}{}
			due = append(due, exec.ID)
		}
	}
	return due
}

func (s *EscalationScheduler) Stop() {
	s.logger.Info("Stopping escalation scheduler...")
	ctx := s.cronEngine.Stop() // Stops new runs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Escalation scheduler gracefully stopped.")
}
