package policy

import (
	"context"
	"fmt"
)

type Resolver struct {
	Store StoreAPI
}

func NewResolver(store StoreAPI) *Resolver {
	return &Resolver{Store: store}
}

// Resolve loads the tenant's timesheet policy. A nil policy with a nil error
// means the tenant enforces no hard limits.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (*Policy, error) {
	p, err := r.Store.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve timesheet policy: %w", err)
	}
	return p, nil
}

func (r *Resolver) WeekStartDay(ctx context.Context, tenantID string) (int, error) {
	p, err := r.Resolve(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if p == nil || p.WeekStartDay < 0 || p.WeekStartDay > 6 {
		return DefaultWeekStartDay, nil
	}
	return p.WeekStartDay, nil
}
