package timesheet

import (
	"context"
	"time"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/policy"
)

type StoreAPI interface {
	Get(ctx context.Context, tenantID, timesheetID string) (Timesheet, error)
	GetForUpdate(ctx context.Context, tenantID, timesheetID string) (Timesheet, error)
	FindByWeek(ctx context.Context, tenantID, userID string, weekStart time.Time) (Timesheet, bool, error)
	Insert(ctx context.Context, ts Timesheet) (Timesheet, error)
	UpdateStatus(ctx context.Context, ts Timesheet) (Timesheet, error)
	Delete(ctx context.Context, tenantID, timesheetID string) error
	List(ctx context.Context, q ListQuery) ([]Timesheet, int, error)

	ListEntries(ctx context.Context, tenantID, timesheetID string) ([]TimeEntry, error)
	InsertEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	DeleteEntry(ctx context.Context, tenantID, timesheetID, entryID string) (bool, error)
	DeleteEntries(ctx context.Context, tenantID, timesheetID string) error
}

// TxRunner groups store calls into one atomic unit. Store calls made with
// the ctx passed to fn join the transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type PolicyResolver interface {
	Resolve(ctx context.Context, tenantID string) (*policy.Policy, error)
	WeekStartDay(ctx context.Context, tenantID string) (int, error)
}

type TeamResolver interface {
	DirectReports(ctx context.Context, tenantID, managerID string) ([]string, error)
}

type AuditLogger interface {
	Log(ctx context.Context, evt audit.Event)
}
