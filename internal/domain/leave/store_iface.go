package leave

import (
	"context"

	"github.com/shopspring/decimal"

	"workforce/internal/domain/audit"
)

type BalanceStore interface {
	GetBalance(ctx context.Context, tenantID, userID, benefitTypeID string) (BenefitBalance, bool, error)
	GetBalanceForUpdate(ctx context.Context, tenantID, userID, benefitTypeID string) (BenefitBalance, bool, error)
	InsertBalanceIfMissing(ctx context.Context, tenantID, userID, benefitTypeID string) error
	SetBalance(ctx context.Context, tenantID, balanceID string, amount decimal.Decimal) (BenefitBalance, error)
	ListBalances(ctx context.Context, tenantID, userID string) ([]BalanceRow, error)
}

type StoreAPI interface {
	BalanceStore
	GetBenefitType(ctx context.Context, tenantID, benefitTypeID string) (BenefitType, bool, error)
	InsertRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error)
	GetRequest(ctx context.Context, tenantID, requestID string) (LeaveRequest, error)
	GetRequestForUpdate(ctx context.Context, tenantID, requestID string) (LeaveRequest, error)
	UpdateRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error)
	ListRequests(ctx context.Context, q ListQuery) ([]LeaveRequest, int, error)
}

// TxRunner groups store calls into one atomic unit. Store calls made with
// the ctx passed to fn join the transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TeamResolver interface {
	DirectReports(ctx context.Context, tenantID, managerID string) ([]string, error)
}

type AuditLogger interface {
	Log(ctx context.Context, evt audit.Event)
}
