package leave

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"workforce/internal/domain/apperr"
	"workforce/internal/domain/audit"
	"workforce/internal/domain/audit/audittest"
)

type memStore struct {
	mu       sync.Mutex
	seq      int
	types    map[string]BenefitType
	balances map[string]BenefitBalance
	requests map[string]LeaveRequest

	setBalanceErr error
}

func newMemStore() *memStore {
	return &memStore{
		types:    map[string]BenefitType{},
		balances: map[string]BenefitBalance{},
		requests: map[string]LeaveRequest{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

func (m *memStore) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	balances := make(map[string]BenefitBalance, len(m.balances))
	for k, v := range m.balances {
		balances[k] = v
	}
	requests := make(map[string]LeaveRequest, len(m.requests))
	for k, v := range m.requests {
		requests[k] = v
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.balances = balances
		m.requests = requests
	}
}

func (m *memStore) addType(bt BenefitType) {
	m.types[bt.ID] = bt
}

func (m *memStore) setBalance(tenantID, userID, typeID string, amount int64) {
	id := m.nextID("bal")
	m.balances[id] = BenefitBalance{ID: id, TenantID: tenantID, UserID: userID, BenefitTypeID: typeID, CurrentBalance: decimal.NewFromInt(amount)}
}

func (m *memStore) GetBenefitType(_ context.Context, tenantID, id string) (BenefitType, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bt, ok := m.types[id]
	if !ok || bt.TenantID != tenantID {
		return BenefitType{}, false, nil
	}
	return bt, true, nil
}

func (m *memStore) findBalance(tenantID, userID, typeID string) (BenefitBalance, bool) {
	for _, b := range m.balances {
		if b.TenantID == tenantID && b.UserID == userID && b.BenefitTypeID == typeID {
			return b, true
		}
	}
	return BenefitBalance{}, false
}

func (m *memStore) GetBalance(_ context.Context, tenantID, userID, typeID string) (BenefitBalance, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.findBalance(tenantID, userID, typeID)
	return b, ok, nil
}

func (m *memStore) GetBalanceForUpdate(ctx context.Context, tenantID, userID, typeID string) (BenefitBalance, bool, error) {
	return m.GetBalance(ctx, tenantID, userID, typeID)
}

func (m *memStore) InsertBalanceIfMissing(_ context.Context, tenantID, userID, typeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findBalance(tenantID, userID, typeID); ok {
		return nil
	}
	id := m.nextID("bal")
	m.balances[id] = BenefitBalance{ID: id, TenantID: tenantID, UserID: userID, BenefitTypeID: typeID, CurrentBalance: decimal.Zero}
	return nil
}

func (m *memStore) SetBalance(_ context.Context, tenantID, balanceID string, amount decimal.Decimal) (BenefitBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setBalanceErr != nil {
		return BenefitBalance{}, m.setBalanceErr
	}
	b, ok := m.balances[balanceID]
	if !ok || b.TenantID != tenantID {
		return BenefitBalance{}, apperr.NotFound("benefit balance not found")
	}
	b.CurrentBalance = amount
	m.balances[balanceID] = b
	return b, nil
}

func (m *memStore) ListBalances(_ context.Context, tenantID, userID string) ([]BalanceRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []BalanceRow{}
	for _, b := range m.balances {
		if b.TenantID == tenantID && b.UserID == userID {
			out = append(out, BalanceRow{Balance: b, Type: m.types[b.BenefitTypeID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type.Name < out[j].Type.Name })
	return out, nil
}

func (m *memStore) InsertRequest(_ context.Context, r LeaveRequest) (LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID("req")
	m.requests[r.ID] = r
	return r, nil
}

func (m *memStore) GetRequest(_ context.Context, tenantID, id string) (LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.TenantID != tenantID {
		return LeaveRequest{}, apperr.NotFound("leave request not found")
	}
	return r, nil
}

func (m *memStore) GetRequestForUpdate(ctx context.Context, tenantID, id string) (LeaveRequest, error) {
	return m.GetRequest(ctx, tenantID, id)
}

func (m *memStore) UpdateRequest(_ context.Context, r LeaveRequest) (LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return LeaveRequest{}, apperr.NotFound("leave request not found")
	}
	m.requests[r.ID] = r
	return r, nil
}

func (m *memStore) ListRequests(_ context.Context, q ListQuery) ([]LeaveRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var allowed map[string]bool
	if q.UserIDs != nil {
		allowed = map[string]bool{}
		for _, id := range q.UserIDs {
			allowed[id] = true
		}
	}
	var matched []LeaveRequest
	for _, r := range m.requests {
		switch {
		case r.TenantID != q.TenantID:
		case allowed != nil && !allowed[r.UserID]:
		case q.UserID != "" && r.UserID != q.UserID:
		case q.Status != "" && r.Status != q.Status:
		case q.From != nil && r.EndDate.Before(*q.From):
		case q.To != nil && r.StartDate.After(*q.To):
		default:
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	out := []LeaveRequest{}
	for i := q.Offset; i < len(matched) && i < q.Offset+q.Limit; i++ {
		out = append(out, matched[i])
	}
	return out, len(matched), nil
}

type txCtxKey struct{}

// memTx serialises units of work the way row locks would and restores the
// store snapshot when fn fails. Nested calls join the outer unit.
type memTx struct {
	mu    sync.Mutex
	store *memStore
}

func (t *memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txCtxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	restore := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txCtxKey{}, true)); err != nil {
		restore()
		return err
	}
	return nil
}

type fakeTeam map[string][]string

func (f fakeTeam) DirectReports(_ context.Context, _ string, managerID string) ([]string, error) {
	return f[managerID], nil
}

type fixture struct {
	svc   *Service
	store *memStore
	sink  *audittest.Sink
}

var fixedNow = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	store := newMemStore()
	store.addType(BenefitType{ID: "pto", TenantID: "t1", Key: "pto", Name: "Paid time off", Unit: UnitDays, RequiresApproval: true, TotalAmount: decimal.NewFromInt(10)})
	store.addType(BenefitType{ID: "sick", TenantID: "t1", Key: "sick", Name: "Sick leave", Unit: UnitDays, AllowNegative: true, TotalAmount: decimal.NewFromInt(5)})
	store.addType(BenefitType{ID: "other-pto", TenantID: "t2", Key: "pto", Name: "PTO", Unit: UnitHours})

	sink := &audittest.Sink{}
	svc := NewService(store, &memTx{store: store}, fakeTeam{"mgr": {"emp-1", "emp-2"}}, audit.NewRecorder(sink, nil), nil)
	svc.Now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, store: store, sink: sink}
}

func (f *fixture) balance(userID, typeID string) decimal.Decimal {
	b, _ := f.store.findBalance("t1", userID, typeID)
	return b.CurrentBalance
}
