package app

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"shift_escalation_engine/internal/domain/attendance"
	"shift_escalation_engine/internal/domain/channel"
	"shift_escalation_engine/internal/domain/escalation"
	"shift_escalation_engine/internal/domain/policy"
	"shift_escalation_engine/internal/domain/staff"
	idb "shift_escalation_engine/internal/infra/database"

	"github.com/google/uuid"
)

// In-memory repositories implementing the same conditional-write
// semantics as the Postgres layer, so claim/commit race properties are
// testable without a database.

type memPolicyRepo struct {
	mu       sync.Mutex
	policies map[uuid.UUID]*policy.Policy
}

func newMemPolicyRepo() *memPolicyRepo {
	return &memPolicyRepo{policies: make(map[uuid.UUID]*policy.Policy)}
}

func (r *memPolicyRepo) Create(_ context.Context, p *policy.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.policies[p.ID] = &cp
	return nil
}

func (r *memPolicyRepo) GetByID(_ context.Context, id uuid.UUID) (*policy.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[id]
	if !ok {
		return nil, idb.ErrPolicyNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPolicyRepo) ListDefaults(_ context.Context, organizationID uuid.UUID) ([]*policy.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*policy.Policy, 0)
	for _, p := range r.policies {
		if p.OrganizationID == organizationID && p.IsDefault && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPolicyRepo) ListActive(_ context.Context, organizationID uuid.UUID) ([]*policy.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*policy.Policy, 0)
	for _, p := range r.policies {
		if p.OrganizationID == organizationID && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPolicyRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[id]
	if !ok {
		return idb.ErrPolicyNotFound
	}
	p.IsActive = false
	return nil
}

type memStaffRepo struct {
	mu      sync.Mutex
	members map[uuid.UUID]*staff.Staff
}

func newMemStaffRepo() *memStaffRepo {
	return &memStaffRepo{members: make(map[uuid.UUID]*staff.Staff)}
}

func (r *memStaffRepo) Create(_ context.Context, s *staff.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.members[s.ID] = &cp
	return nil
}

func (r *memStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*staff.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.members[id]
	if !ok {
		return nil, idb.ErrStaffNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memStaffRepo) GetByPushChatID(_ context.Context, chatID int64) (*staff.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.members {
		if s.PushChatID.Valid && s.PushChatID.Int64 == chatID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, idb.ErrStaffNotFound
}

func (r *memStaffRepo) Update(_ context.Context, s *staff.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[s.ID]; !ok {
		return idb.ErrStaffNotFound
	}
	cp := *s
	r.members[s.ID] = &cp
	return nil
}

func (r *memStaffRepo) ListActive(_ context.Context, organizationID uuid.UUID) ([]*staff.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*staff.Staff, 0)
	for _, s := range r.members {
		if s.OrganizationID == organizationID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memAttendanceRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*attendance.Record
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{records: make(map[uuid.UUID]*attendance.Record)}
}

func (r *memAttendanceRepo) Create(_ context.Context, rec *attendance.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *memAttendanceRepo) GetByID(_ context.Context, id uuid.UUID) (*attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, idb.ErrAttendanceRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memAttendanceRepo) ListMissed(_ context.Context, asOf time.Time) ([]*attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*attendance.Record, 0)
	for _, rec := range r.records {
		if rec.Missed(asOf) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpectedAt.Before(out[j].ExpectedAt) })
	return out, nil
}

func (r *memAttendanceRepo) SetClockIn(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return idb.ErrAttendanceRecordNotFound
	}
	rec.ClockInAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (r *memAttendanceRepo) SetEscalationStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return idb.ErrAttendanceRecordNotFound
	}
	rec.EscalationStatus = sql.NullString{String: status, Valid: true}
	return nil
}

type memExecutionRepo struct {
	mu    sync.Mutex
	execs map[uuid.UUID]*escalation.Execution
	// staffByAttendance mirrors the attendance join for GetActiveByStaff.
	staffByAttendance map[uuid.UUID]uuid.UUID
}

func newMemExecutionRepo() *memExecutionRepo {
	return &memExecutionRepo{
		execs:             make(map[uuid.UUID]*escalation.Execution),
		staffByAttendance: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *memExecutionRepo) bindStaff(attendanceRecordID, staffID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staffByAttendance[attendanceRecordID] = staffID
}

func (r *memExecutionRepo) Create(_ context.Context, e *escalation.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.execs {
		if existing.AttendanceRecordID == e.AttendanceRecordID {
			return idb.ErrDuplicateExecution
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	r.execs[e.ID] = &cp
	return nil
}

func (r *memExecutionRepo) GetByID(_ context.Context, id uuid.UUID) (*escalation.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.execs[id]
	if !ok {
		return nil, idb.ErrExecutionNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memExecutionRepo) GetByAttendanceRecord(_ context.Context, attendanceRecordID uuid.UUID) (*escalation.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.execs {
		if e.AttendanceRecordID == attendanceRecordID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, idb.ErrExecutionNotFound
}

func (r *memExecutionRepo) GetActiveByStaff(_ context.Context, staffID uuid.UUID) (*escalation.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.execs {
		if e.Status.Terminal() {
			continue
		}
		if r.staffByAttendance[e.AttendanceRecordID] == staffID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, idb.ErrExecutionNotFound
}

func (r *memExecutionRepo) ListActive(_ context.Context) ([]*escalation.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*escalation.Execution, 0)
	for _, e := range r.execs {
		if !e.Status.Terminal() {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memExecutionRepo) Claim(_ context.Context, id uuid.UUID, seen sql.NullTime, claimedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.execs[id]
	if !ok {
		return false, idb.ErrExecutionNotFound
	}
	if e.Status.Terminal() {
		return false, nil
	}
	if e.LastAttemptAt.Valid != seen.Valid {
		return false, nil
	}
	if seen.Valid && !e.LastAttemptAt.Time.Equal(seen.Time) {
		return false, nil
	}
	e.LastAttemptAt = sql.NullTime{Time: claimedAt, Valid: true}
	return true, nil
}

func (r *memExecutionRepo) CommitStage(_ context.Context, e *escalation.Execution) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.execs[e.ID]
	if !ok {
		return false, idb.ErrExecutionNotFound
	}
	if stored.Status.Terminal() {
		return false, nil
	}
	if stored.LastAttemptAt.Valid != e.LastAttemptAt.Valid {
		return false, nil
	}
	if stored.LastAttemptAt.Valid && !stored.LastAttemptAt.Time.Equal(e.LastAttemptAt.Time) {
		return false, nil
	}
	cp := *e
	r.execs[e.ID] = &cp
	return true, nil
}

func (r *memExecutionRepo) MarkResolved(_ context.Context, id uuid.UUID, resolvedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.execs[id]
	if !ok {
		return false, idb.ErrExecutionNotFound
	}
	if e.Status.Terminal() {
		return false, nil
	}
	e.Status = escalation.StatusResolved
	e.ResolvedAt = sql.NullTime{Time: resolvedAt, Valid: true}
	return true, nil
}

type memLogRepo struct {
	mu      sync.Mutex
	entries []*escalation.LogEntry
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{entries: make([]*escalation.LogEntry, 0)}
}

func (r *memLogRepo) Append(_ context.Context, entry *escalation.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *memLogRepo) CountStageAttempts(_ context.Context, executionID uuid.UUID, stage int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.entries {
		if e.ExecutionID.Valid && e.ExecutionID.UUID == executionID && e.Stage == stage {
			count++
		}
	}
	return count, nil
}

func (r *memLogRepo) MarkResponded(_ context.Context, executionID uuid.UUID, ch channel.Type) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.ExecutionID.Valid && e.ExecutionID.UUID == executionID && e.Channel == ch && e.Status == escalation.LogStatusSent {
			e.Status = escalation.LogStatusResponded
			return true, nil
		}
	}
	return false, nil
}

func (r *memLogRepo) ListByExecution(_ context.Context, executionID uuid.UUID) ([]*escalation.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*escalation.LogEntry, 0)
	for _, e := range r.entries {
		if e.ExecutionID.Valid && e.ExecutionID.UUID == executionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memLogRepo) ListByOrganization(_ context.Context, organizationID uuid.UUID, limit, offset int) ([]*escalation.LogEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*escalation.LogEntry, 0)
	for _, e := range r.entries {
		if e.OrganizationID == organizationID {
			cp := *e
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].SentAt.After(matched[j].SentAt) })
	total := len(matched)
	if offset >= total {
		return []*escalation.LogEntry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

type sendCall struct {
	recipient string
	message   string
}

// fakeAdapter records sends and replays queued results (success when the
// queue is empty). onSend, when set, runs before the result is returned
// and lets tests interleave a resolution with an in-flight dispatch.
type fakeAdapter struct {
	mu      sync.Mutex
	results []channel.SendResult
	calls   []sendCall
	onSend  func()
}

func (f *fakeAdapter) Send(_ context.Context, recipient, message string) channel.SendResult {
	f.mu.Lock()
	f.calls = append(f.calls, sendCall{recipient: recipient, message: message})
	var res channel.SendResult
	if len(f.results) > 0 {
		res = f.results[0]
		f.results = f.results[1:]
	} else {
		res = channel.SendResult{Success: true, ProviderMessageID: "fake-1"}
	}
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return res
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
