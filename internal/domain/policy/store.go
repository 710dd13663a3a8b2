package policy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"workforce/internal/platform/db"
	"workforce/internal/platform/querier"
)

type StoreAPI interface {
	Get(ctx context.Context, tenantID string) (*Policy, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(q querier.Querier) *Store {
	return &Store{DB: q}
}

// Get returns nil when the tenant has no policy row.
func (s *Store) Get(ctx context.Context, tenantID string) (*Policy, error) {
	var p Policy
	err := db.Executor(ctx, s.DB).QueryRow(ctx, `
    SELECT tenant_id, min_hours_per_day, max_hours_per_day, min_hours_per_week, max_hours_per_week,
           allow_overtime, require_approval, week_start_day
    FROM timesheet_policies
    WHERE tenant_id = $1
  `, tenantID).Scan(&p.TenantID, &p.MinHoursPerDay, &p.MaxHoursPerDay, &p.MinHoursPerWeek, &p.MaxHoursPerWeek,
		&p.AllowOvertime, &p.RequireApproval, &p.WeekStartDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
