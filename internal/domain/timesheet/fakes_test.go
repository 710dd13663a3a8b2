package timesheet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"workforce/internal/domain/apperr"
	"workforce/internal/domain/audit"
	"workforce/internal/domain/audit/audittest"
	"workforce/internal/domain/policy"
)

type memStore struct {
	seq        int
	timesheets map[string]Timesheet
	entries    map[string]TimeEntry

	// hooks for failure injection
	beforeInsert func(ts Timesheet)
	deleteErr    error
}

func newMemStore() *memStore {
	return &memStore{timesheets: map[string]Timesheet{}, entries: map[string]TimeEntry{}}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

func (m *memStore) snapshot() func() {
	ts := make(map[string]Timesheet, len(m.timesheets))
	for k, v := range m.timesheets {
		ts[k] = v
	}
	es := make(map[string]TimeEntry, len(m.entries))
	for k, v := range m.entries {
		es[k] = v
	}
	return func() {
		m.timesheets = ts
		m.entries = es
	}
}

func (m *memStore) Get(_ context.Context, tenantID, id string) (Timesheet, error) {
	ts, ok := m.timesheets[id]
	if !ok || ts.TenantID != tenantID {
		return Timesheet{}, apperr.NotFound("timesheet not found")
	}
	return ts, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, tenantID, id string) (Timesheet, error) {
	return m.Get(ctx, tenantID, id)
}

func (m *memStore) FindByWeek(_ context.Context, tenantID, userID string, weekStart time.Time) (Timesheet, bool, error) {
	for _, ts := range m.timesheets {
		if ts.TenantID == tenantID && ts.UserID == userID && ts.WeekStart.Equal(weekStart) {
			return ts, true, nil
		}
	}
	return Timesheet{}, false, nil
}

func (m *memStore) Insert(ctx context.Context, ts Timesheet) (Timesheet, error) {
	if m.beforeInsert != nil {
		hook := m.beforeInsert
		m.beforeInsert = nil
		hook(ts)
	}
	if _, exists, _ := m.FindByWeek(ctx, ts.TenantID, ts.UserID, ts.WeekStart); exists {
		return Timesheet{}, apperr.Conflict("a timesheet already exists for this week")
	}
	ts.ID = m.nextID("ts")
	ts.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.UpdatedAt = ts.CreatedAt
	m.timesheets[ts.ID] = ts
	return ts, nil
}

func (m *memStore) UpdateStatus(_ context.Context, ts Timesheet) (Timesheet, error) {
	if _, ok := m.timesheets[ts.ID]; !ok {
		return Timesheet{}, apperr.NotFound("timesheet not found")
	}
	m.timesheets[ts.ID] = ts
	return ts, nil
}

func (m *memStore) Delete(_ context.Context, tenantID, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	ts, ok := m.timesheets[id]
	if !ok || ts.TenantID != tenantID {
		return apperr.NotFound("timesheet not found")
	}
	delete(m.timesheets, id)
	return nil
}

func (m *memStore) hours(id string) float64 {
	var total float64
	for _, e := range m.entries {
		if e.TimesheetID == id {
			total += e.Hours
		}
	}
	return total
}

func (m *memStore) List(_ context.Context, q ListQuery) ([]Timesheet, int, error) {
	var allowed map[string]bool
	if q.UserIDs != nil {
		allowed = map[string]bool{}
		for _, id := range q.UserIDs {
			allowed[id] = true
		}
	}
	var matched []Timesheet
	for _, ts := range m.timesheets {
		switch {
		case ts.TenantID != q.TenantID:
		case allowed != nil && !allowed[ts.UserID]:
		case q.UserID != "" && ts.UserID != q.UserID:
		case q.Status != "" && ts.Status != q.Status:
		case q.WeekStart != nil && !ts.WeekStart.Equal(*q.WeekStart):
		case q.From != nil && ts.WeekStart.Before(*q.From):
		case q.To != nil && ts.WeekStart.After(*q.To):
		default:
			ts.TotalHours = m.hours(ts.ID)
			matched = append(matched, ts)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	out := []Timesheet{}
	for i := q.Offset; i < len(matched) && i < q.Offset+q.Limit; i++ {
		out = append(out, matched[i])
	}
	return out, total, nil
}

func (m *memStore) ListEntries(_ context.Context, tenantID, timesheetID string) ([]TimeEntry, error) {
	out := []TimeEntry{}
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.TimesheetID == timesheetID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) InsertEntry(_ context.Context, e TimeEntry) (TimeEntry, error) {
	e.ID = m.nextID("te")
	m.entries[e.ID] = e
	return e, nil
}

func (m *memStore) DeleteEntry(_ context.Context, tenantID, timesheetID, entryID string) (bool, error) {
	e, ok := m.entries[entryID]
	if !ok || e.TenantID != tenantID || e.TimesheetID != timesheetID {
		return false, nil
	}
	delete(m.entries, entryID)
	return true, nil
}

func (m *memStore) DeleteEntries(_ context.Context, tenantID, timesheetID string) error {
	for id, e := range m.entries {
		if e.TenantID == tenantID && e.TimesheetID == timesheetID {
			delete(m.entries, id)
		}
	}
	return nil
}

// memTx restores the store snapshot when fn fails.
type memTx struct {
	store *memStore
	calls int

	// afterRollback simulates another writer committing once this unit aborts.
	afterRollback func()
}

func (t *memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	restore := t.store.snapshot()
	if err := fn(ctx); err != nil {
		restore()
		if t.afterRollback != nil {
			hook := t.afterRollback
			t.afterRollback = nil
			hook()
		}
		return err
	}
	return nil
}

type fakePolicies struct {
	policies map[string]*policy.Policy
}

func (f *fakePolicies) Resolve(_ context.Context, tenantID string) (*policy.Policy, error) {
	return f.policies[tenantID], nil
}

func (f *fakePolicies) WeekStartDay(_ context.Context, tenantID string) (int, error) {
	if p := f.policies[tenantID]; p != nil {
		return p.WeekStartDay, nil
	}
	return policy.DefaultWeekStartDay, nil
}

type fakeTeam map[string][]string

func (f fakeTeam) DirectReports(_ context.Context, _ string, managerID string) ([]string, error) {
	return f[managerID], nil
}

type fixture struct {
	svc   *Service
	store *memStore
	tx    *memTx
	sink  *audittest.Sink
}

// 2025-01-15 is a Wednesday.
var fixedNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func newFixture(policies map[string]*policy.Policy) *fixture {
	store := newMemStore()
	tx := &memTx{store: store}
	sink := &audittest.Sink{}
	team := fakeTeam{"mgr": {"emp-1", "emp-2"}}
	svc := NewService(store, tx, &fakePolicies{policies: policies}, team, audit.NewRecorder(sink, nil), nil)
	svc.Now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, store: store, tx: tx, sink: sink}
}
