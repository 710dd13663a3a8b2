package timesheet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/apperr"
	"workforce/internal/domain/audit"
	"workforce/internal/domain/audit/audittest"
	"workforce/internal/domain/policy"
)

var monday = time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)

func mustCreate(t *testing.T, f *fixture, tenantID, userID string, week time.Time) Timesheet {
	t.Helper()
	ts, err := f.svc.Create(context.Background(), tenantID, userID, week)
	require.NoError(t, err)
	return ts
}

func TestCreateNormalizesWeekAndRejectsDuplicates(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	ts := mustCreate(t, f, "t1", "emp-1", fixedNow)
	assert.Equal(t, StatusDraft, ts.Status)
	assert.Equal(t, monday, ts.WeekStart)

	_, err := f.svc.Create(ctx, "t1", "emp-1", monday.AddDate(0, 0, 4))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.Create(ctx, "t2", "emp-1", monday)
	assert.NoError(t, err, "other tenants have their own key space")

	assert.Equal(t, []string{ActionCreate, ActionCreate}, f.sink.Actions())
}

func TestCreateUsesTenantWeekStartDay(t *testing.T) {
	f := newFixture(map[string]*policy.Policy{"t1": {TenantID: "t1", WeekStartDay: 0}})

	ts := mustCreate(t, f, "t1", "emp-1", fixedNow)
	assert.Equal(t, time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC), ts.WeekStart)
}

func TestCreateMapsRacingInsertToConflict(t *testing.T) {
	f := newFixture(nil)
	f.store.beforeInsert = func(ts Timesheet) {
		f.store.timesheets["racer"] = Timesheet{ID: "racer", TenantID: ts.TenantID, UserID: ts.UserID, WeekStart: ts.WeekStart, Status: StatusDraft}
	}

	_, err := f.svc.Create(context.Background(), "t1", "emp-1", monday)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Empty(t, f.sink.Events)
}

func TestSubmitApproveFlow(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)

	_, err := f.svc.Submit(ctx, "t1", ts.ID, "someone-else")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	submitted, err := f.svc.Submit(ctx, "t1", ts.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedBy)
	assert.Equal(t, "emp-1", *submitted.SubmittedBy)
	assert.Equal(t, fixedNow, *submitted.SubmittedAt)

	_, err = f.svc.Submit(ctx, "t1", ts.ID, "emp-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	approved, err := f.svc.Approve(ctx, "t1", ts.ID, "mgr", "  looks good ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "mgr", *approved.ReviewedBy)
	assert.Equal(t, "looks good", approved.ReviewNote)

	_, err = f.svc.Reject(ctx, "t1", ts.ID, "mgr", "too late")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	assert.Equal(t, []string{ActionCreate, ActionSubmit, ActionApprove}, f.sink.Actions())
}

func TestTransitionsFromDraftAreInvalid(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)

	_, err := f.svc.Approve(ctx, "t1", ts.ID, "mgr", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = f.svc.Reject(ctx, "t1", ts.ID, "mgr", "note")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, _, err = f.svc.Recall(ctx, "t1", ts.ID, "emp-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	current, err := f.svc.Get(ctx, "t1", ts.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, current.Status)
}

func TestRejectRequiresNote(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	_, err := f.svc.Submit(ctx, "t1", ts.ID, "emp-1")
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, "t1", ts.ID, "mgr", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	rejected, err := f.svc.Reject(ctx, "t1", ts.ID, "mgr", "missing friday")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "missing friday", rejected.ReviewNote)
}

func TestRecall(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	_, err := f.svc.Submit(ctx, "t1", ts.ID, "emp-1")
	require.NoError(t, err)

	_, _, err = f.svc.Recall(ctx, "t1", ts.ID, "emp-2")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	recalled, prior, err := f.svc.Recall(ctx, "t1", ts.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, prior)
	assert.Equal(t, StatusDraft, recalled.Status)
	assert.Nil(t, recalled.SubmittedBy)
	assert.Nil(t, recalled.SubmittedAt)
}

func TestRecallAfterReviewStartedIsInvalid(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	_, err := f.svc.Submit(ctx, "t1", ts.ID, "emp-1")
	require.NoError(t, err)

	stored := f.store.timesheets[ts.ID]
	reviewedAt := fixedNow
	stored.ReviewedAt = &reviewedAt
	f.store.timesheets[ts.ID] = stored

	_, _, err = f.svc.Recall(ctx, "t1", ts.ID, "emp-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, StatusSubmitted, f.store.timesheets[ts.ID].Status)
}

func TestRemove(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	_, err := f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 1, Hours: 8})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Remove(ctx, "t1", ts.ID, "emp-2"), apperr.ErrForbidden)

	require.NoError(t, f.svc.Remove(ctx, "t1", ts.ID, "emp-1"))
	assert.Empty(t, f.store.timesheets)
	assert.Empty(t, f.store.entries)

	_, err = f.svc.Get(ctx, "t1", ts.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemoveNonDraftIsInvalid(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	_, err := f.svc.Submit(ctx, "t1", ts.ID, "emp-1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Remove(ctx, "t1", ts.ID, "emp-1"), apperr.ErrInvalidState)
}

func TestRemoveRollsBackEntryDeletionOnFailure(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	_, err := f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 2, Hours: 4})
	require.NoError(t, err)

	boom := errors.New("connection lost")
	f.store.deleteErr = boom

	err = f.svc.Remove(ctx, "t1", ts.ID, "emp-1")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.store.entries, 1)
	assert.Contains(t, f.store.timesheets, ts.ID)
}

func TestGetMyCurrent(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	first, created, err := f.svc.GetMyCurrent(ctx, "t1", "emp-1", 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, monday, first.WeekStart)

	second, created, err := f.svc.GetMyCurrent(ctx, "t1", "emp-1", 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	_, _, err = f.svc.GetMyCurrent(ctx, "t1", "emp-1", 9)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGetMyCurrentRejectsForeignWeekStart(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "t1", "emp-1", monday)
	require.NoError(t, err)

	_, _, err = f.svc.GetMyCurrent(ctx, "t1", "emp-1", 0)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.EqualError(t, err, "weekStartDay must match the tenant week start day 1")
	assert.Len(t, f.store.timesheets, 1)

	current, autoCreated, err := f.svc.GetMyCurrent(ctx, "t1", "emp-1", 1)
	require.NoError(t, err)
	assert.False(t, autoCreated)
	assert.Equal(t, created.ID, current.ID)
}

func TestGetMyCurrentResolvesConcurrentCreate(t *testing.T) {
	f := newFixture(nil)
	racer := Timesheet{ID: "racer", TenantID: "t1", UserID: "emp-1", WeekStart: monday, Status: StatusDraft}
	f.store.beforeInsert = func(Timesheet) { f.store.timesheets[racer.ID] = racer }
	f.tx.afterRollback = func() { f.store.timesheets[racer.ID] = racer }

	ts, created, err := f.svc.GetMyCurrent(context.Background(), "t1", "emp-1", 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "racer", ts.ID)
}

func TestFindAllTeamScope(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	e1 := mustCreate(t, f, "t1", "emp-1", monday)
	mustCreate(t, f, "t1", "emp-2", monday)
	mustCreate(t, f, "t1", "emp-3", monday)
	mustCreate(t, f, "t2", "emp-1", monday)

	_, err := f.svc.AddEntry(ctx, "t1", e1.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 1, Hours: 7.5})
	require.NoError(t, err)
	_, err = f.svc.AddEntry(ctx, "t1", e1.ID, "emp-1", EntryInput{ProjectID: "p2", DayOfWeek: 2, Hours: 2})
	require.NoError(t, err)

	res, err := f.svc.FindAll(ctx, "t1", "mgr", ListFilter{Team: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	users := []string{}
	for _, ts := range res.Timesheets {
		users = append(users, ts.UserID)
		assert.Equal(t, "t1", ts.TenantID)
		if ts.ID == e1.ID {
			assert.InDelta(t, 9.5, ts.TotalHours, 0.0001)
		}
	}
	assert.ElementsMatch(t, []string{"emp-1", "emp-2"}, users)

	res, err = f.svc.FindAll(ctx, "t1", "emp-3", ListFilter{Team: true})
	require.NoError(t, err)
	assert.Empty(t, res.Timesheets)
	assert.Zero(t, res.Total)

	res, err = f.svc.FindAll(ctx, "t1", "mgr", ListFilter{Team: true, UserID: "emp-3"})
	require.NoError(t, err)
	assert.Empty(t, res.Timesheets)
}

func TestFindAllFiltersAndPaging(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	mustCreate(t, f, "t1", "emp-1", monday)
	mustCreate(t, f, "t1", "emp-1", monday.AddDate(0, 0, 7))
	mustCreate(t, f, "t1", "emp-1", monday.AddDate(0, 0, 14))

	wed := monday.AddDate(0, 0, 9)
	res, err := f.svc.FindAll(ctx, "t1", "hr", ListFilter{WeekStart: &wed})
	require.NoError(t, err)
	require.Len(t, res.Timesheets, 1)
	assert.Equal(t, monday.AddDate(0, 0, 7), res.Timesheets[0].WeekStart)

	res, err = f.svc.FindAll(ctx, "t1", "hr", ListFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Timesheets, 1)
	assert.Equal(t, 2, res.Page)

	_, err = f.svc.FindAll(ctx, "t1", "hr", ListFilter{Status: "archived"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAddEntryNeverCapsHours(t *testing.T) {
	f := newFixture(map[string]*policy.Policy{"t1": {TenantID: "t1", MaxHoursPerDay: 24, WeekStartDay: 1}})
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)

	entry, err := f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 1, Hours: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, entry.Hours)
}

func TestAddEntryValidation(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)

	cases := map[string]EntryInput{
		"negative hours": {ProjectID: "p1", DayOfWeek: 1, Hours: -1},
		"day too large":  {ProjectID: "p1", DayOfWeek: 7, Hours: 1},
		"day negative":   {ProjectID: "p1", DayOfWeek: -1, Hours: 1},
		"no project":     {DayOfWeek: 1, Hours: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	entry, err := f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 3, Hours: 30})
	require.NoError(t, err, "hours are not capped at write time")
	assert.Equal(t, monday, entry.WeekStart)
	assert.Equal(t, "emp-1", entry.UserID)

	_, err = f.svc.AddEntry(ctx, "t1", ts.ID, "emp-2", EntryInput{ProjectID: "p1", DayOfWeek: 3, Hours: 1})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRemoveEntry(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	entry, err := f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 1, Hours: 8})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RemoveEntry(ctx, "t1", ts.ID, "missing", "emp-1"), apperr.ErrNotFound)
	require.NoError(t, f.svc.RemoveEntry(ctx, "t1", ts.ID, entry.ID, "emp-1"))

	entries, err := f.svc.ListEntries(ctx, "t1", ts.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = f.svc.ListEntries(ctx, "t1", "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEditsRequireDraft(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	entry, err := f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 1, Hours: 8})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "t1", ts.ID, "emp-1")
	require.NoError(t, err)

	_, err = f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 2, Hours: 8})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.ErrorIs(t, f.svc.RemoveEntry(ctx, "t1", ts.ID, entry.ID, "emp-1"), apperr.ErrInvalidState)
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(nil)
	f.svc.Audit = audit.NewRecorder(&audittest.Sink{Err: errors.New("audit down")}, nil)

	ts, err := f.svc.Create(context.Background(), "t1", "emp-1", monday)
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), "t1", ts.ID, "emp-1")
	assert.NoError(t, err)
}

func TestExport(t *testing.T) {
	f := newFixture(map[string]*policy.Policy{"t1": {TenantID: "t1", MaxHoursPerDay: 10, WeekStartDay: 1}})
	ctx := context.Background()
	ts := mustCreate(t, f, "t1", "emp-1", monday)
	_, err := f.svc.AddEntry(ctx, "t1", ts.ID, "emp-1", EntryInput{ProjectID: "p1", DayOfWeek: 2, Hours: 12, Note: "release"})
	require.NoError(t, err)

	table, err := f.svc.Export(ctx, "t1", ts.ID)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"2025-01-14", "Tuesday", "p1", "", "12.00", "release"}, table.Rows[0])
	assert.Contains(t, table.Fields, exportField("Valid", "false"))
	require.NotEmpty(t, table.Notes)
	assert.Contains(t, table.Notes[0], ErrorMaxHoursExceeded)

	_, err = f.svc.Export(ctx, "t1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
