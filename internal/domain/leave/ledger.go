package leave

import (
	"context"

	"github.com/shopspring/decimal"

	"workforce/internal/domain/apperr"
)

// Ledger keeps one running balance per (tenant, user, benefit type).
// Balances change only through Debit.
type Ledger struct {
	Store BalanceStore
	Tx    TxRunner
}

func NewLedger(store BalanceStore, tx TxRunner) *Ledger {
	return &Ledger{Store: store, Tx: tx}
}

// GetOrCreate returns the balance row, inserting it at zero when missing.
// Concurrent callers converge on the same row.
func (l *Ledger) GetOrCreate(ctx context.Context, tenantID, userID, benefitTypeID string) (BenefitBalance, error) {
	b, found, err := l.Store.GetBalance(ctx, tenantID, userID, benefitTypeID)
	if err != nil {
		return BenefitBalance{}, err
	}
	if found {
		return b, nil
	}
	if err := l.Store.InsertBalanceIfMissing(ctx, tenantID, userID, benefitTypeID); err != nil {
		return BenefitBalance{}, err
	}
	b, found, err = l.Store.GetBalance(ctx, tenantID, userID, benefitTypeID)
	if err != nil {
		return BenefitBalance{}, err
	}
	if !found {
		return BenefitBalance{}, apperr.NotFound("benefit balance not found")
	}
	return b, nil
}

// Debit subtracts amount from the balance. It joins the caller's
// transaction when ctx carries one and reads the row under lock, so the
// write never uses a stale balance.
func (l *Ledger) Debit(ctx context.Context, tenantID, userID, benefitTypeID string, amount decimal.Decimal, allowNegative bool) (BenefitBalance, error) {
	if !amount.IsPositive() {
		return BenefitBalance{}, apperr.Validation("debit amount must be greater than zero")
	}
	var out BenefitBalance
	err := l.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := l.Store.InsertBalanceIfMissing(ctx, tenantID, userID, benefitTypeID); err != nil {
			return err
		}
		current, found, err := l.Store.GetBalanceForUpdate(ctx, tenantID, userID, benefitTypeID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound("benefit balance not found")
		}
		next := current.CurrentBalance.Sub(amount)
		if next.IsNegative() && !allowNegative {
			return &apperr.InsufficientBalanceError{Available: current.CurrentBalance, Requested: amount}
		}
		out, err = l.Store.SetBalance(ctx, tenantID, current.ID, next)
		return err
	})
	if err != nil {
		return BenefitBalance{}, err
	}
	return out, nil
}
