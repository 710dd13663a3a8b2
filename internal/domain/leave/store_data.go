package leave

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"workforce/internal/domain/apperr"
	"workforce/internal/platform/db"
)

func (s *Store) GetBenefitType(ctx context.Context, tenantID, benefitTypeID string) (BenefitType, bool, error) {
	var bt BenefitType
	err := db.Executor(ctx, s.DB).QueryRow(ctx, `
    SELECT id, tenant_id, key, name, unit, requires_approval, allow_negative, total_amount
    FROM benefit_types
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, benefitTypeID).Scan(&bt.ID, &bt.TenantID, &bt.Key, &bt.Name, &bt.Unit, &bt.RequiresApproval, &bt.AllowNegative, &bt.TotalAmount)
	if db.IsNoRows(err) {
		return BenefitType{}, false, nil
	}
	if err != nil {
		return BenefitType{}, false, fmt.Errorf("load benefit type: %w", err)
	}
	return bt, true, nil
}

func (s *Store) getBalance(ctx context.Context, tenantID, userID, benefitTypeID, lock string) (BenefitBalance, bool, error) {
	var b BenefitBalance
	err := db.Executor(ctx, s.DB).QueryRow(ctx, `
    SELECT id, tenant_id, user_id, benefit_type_id, current_balance, updated_at
    FROM benefit_balances
    WHERE tenant_id = $1 AND user_id = $2 AND benefit_type_id = $3
  `+lock, tenantID, userID, benefitTypeID).Scan(&b.ID, &b.TenantID, &b.UserID, &b.BenefitTypeID, &b.CurrentBalance, &b.UpdatedAt)
	if db.IsNoRows(err) {
		return BenefitBalance{}, false, nil
	}
	if err != nil {
		return BenefitBalance{}, false, fmt.Errorf("load benefit balance: %w", err)
	}
	return b, true, nil
}

func (s *Store) GetBalance(ctx context.Context, tenantID, userID, benefitTypeID string) (BenefitBalance, bool, error) {
	return s.getBalance(ctx, tenantID, userID, benefitTypeID, "")
}

// GetBalanceForUpdate locks the balance row until the surrounding
// transaction ends.
func (s *Store) GetBalanceForUpdate(ctx context.Context, tenantID, userID, benefitTypeID string) (BenefitBalance, bool, error) {
	return s.getBalance(ctx, tenantID, userID, benefitTypeID, " FOR UPDATE")
}

func (s *Store) InsertBalanceIfMissing(ctx context.Context, tenantID, userID, benefitTypeID string) error {
	if _, err := db.Executor(ctx, s.DB).Exec(ctx, `
    INSERT INTO benefit_balances (tenant_id, user_id, benefit_type_id, current_balance)
    VALUES ($1,$2,$3,0)
    ON CONFLICT (tenant_id, user_id, benefit_type_id) DO NOTHING
  `, tenantID, userID, benefitTypeID); err != nil {
		return fmt.Errorf("create benefit balance: %w", err)
	}
	return nil
}

func (s *Store) SetBalance(ctx context.Context, tenantID, balanceID string, amount decimal.Decimal) (BenefitBalance, error) {
	var b BenefitBalance
	err := db.Executor(ctx, s.DB).QueryRow(ctx, `
    UPDATE benefit_balances
    SET current_balance = $3, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
    RETURNING id, tenant_id, user_id, benefit_type_id, current_balance, updated_at
  `, tenantID, balanceID, amount).Scan(&b.ID, &b.TenantID, &b.UserID, &b.BenefitTypeID, &b.CurrentBalance, &b.UpdatedAt)
	if db.IsNoRows(err) {
		return BenefitBalance{}, apperr.NotFound("benefit balance not found")
	}
	if err != nil {
		return BenefitBalance{}, fmt.Errorf("update benefit balance: %w", err)
	}
	return b, nil
}

func (s *Store) ListBalances(ctx context.Context, tenantID, userID string) ([]BalanceRow, error) {
	rows, err := db.Executor(ctx, s.DB).Query(ctx, `
    SELECT b.id, b.tenant_id, b.user_id, b.benefit_type_id, b.current_balance, b.updated_at,
           t.id, t.tenant_id, t.key, t.name, t.unit, t.requires_approval, t.allow_negative, t.total_amount
    FROM benefit_balances b
    JOIN benefit_types t ON t.id = b.benefit_type_id AND t.tenant_id = b.tenant_id
    WHERE b.tenant_id = $1 AND b.user_id = $2
    ORDER BY t.name
  `, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list benefit balances: %w", err)
	}
	defer rows.Close()

	out := []BalanceRow{}
	for rows.Next() {
		var r BalanceRow
		if err := rows.Scan(&r.Balance.ID, &r.Balance.TenantID, &r.Balance.UserID, &r.Balance.BenefitTypeID, &r.Balance.CurrentBalance, &r.Balance.UpdatedAt,
			&r.Type.ID, &r.Type.TenantID, &r.Type.Key, &r.Type.Name, &r.Type.Unit, &r.Type.RequiresApproval, &r.Type.AllowNegative, &r.Type.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan benefit balance: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const requestColumns = `
    id, tenant_id, user_id, benefit_type_id, start_date, end_date, amount, status,
    approver_id, approved_at, note, created_at, updated_at`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var r LeaveRequest
	err := row.Scan(&r.ID, &r.TenantID, &r.UserID, &r.BenefitTypeID, &r.StartDate, &r.EndDate, &r.Amount, &r.Status,
		&r.ApproverID, &r.ApprovedAt, &r.Note, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return LeaveRequest{}, err
	}
	r.CalendarDays = SpanDays(r.StartDate, r.EndDate)
	return r, nil
}

func (s *Store) InsertRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	out, err := scanRequest(db.Executor(ctx, s.DB).QueryRow(ctx, `
    INSERT INTO leave_requests (tenant_id, user_id, benefit_type_id, start_date, end_date, amount, status, note)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING `+requestColumns,
		req.TenantID, req.UserID, req.BenefitTypeID, req.StartDate, req.EndDate, req.Amount, req.Status, req.Note))
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("insert leave request: %w", err)
	}
	return out, nil
}

func (s *Store) getRequest(ctx context.Context, tenantID, requestID, lock string) (LeaveRequest, error) {
	r, err := scanRequest(db.Executor(ctx, s.DB).QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE tenant_id = $1 AND id = $2
  `+lock, tenantID, requestID))
	if db.IsNoRows(err) {
		return LeaveRequest{}, apperr.NotFound("leave request not found")
	}
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("load leave request: %w", err)
	}
	return r, nil
}

func (s *Store) GetRequest(ctx context.Context, tenantID, requestID string) (LeaveRequest, error) {
	return s.getRequest(ctx, tenantID, requestID, "")
}

func (s *Store) GetRequestForUpdate(ctx context.Context, tenantID, requestID string) (LeaveRequest, error) {
	return s.getRequest(ctx, tenantID, requestID, " FOR UPDATE")
}

func (s *Store) UpdateRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	out, err := scanRequest(db.Executor(ctx, s.DB).QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $3, approver_id = $4, approved_at = $5, note = $6, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
    RETURNING `+requestColumns,
		req.TenantID, req.ID, req.Status, req.ApproverID, req.ApprovedAt, req.Note))
	if db.IsNoRows(err) {
		return LeaveRequest{}, apperr.NotFound("leave request not found")
	}
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("update leave request: %w", err)
	}
	return out, nil
}

func (s *Store) ListRequests(ctx context.Context, q ListQuery) ([]LeaveRequest, int, error) {
	where := " WHERE tenant_id = $1"
	args := []any{q.TenantID}
	add := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if q.UserIDs != nil {
		add(" AND user_id = ANY($%d::uuid[])", q.UserIDs)
	}
	if q.UserID != "" {
		add(" AND user_id = $%d", q.UserID)
	}
	if q.Status != "" {
		add(" AND status = $%d", q.Status)
	}
	if q.From != nil {
		add(" AND end_date >= $%d", *q.From)
	}
	if q.To != nil {
		add(" AND start_date <= $%d", *q.To)
	}

	exec := db.Executor(ctx, s.DB)

	var total int
	if err := exec.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}

	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	rows, err := exec.Query(ctx, "SELECT "+requestColumns+" FROM leave_requests"+where+
		fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", limitPos, offsetPos),
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}
	defer rows.Close()

	out := []LeaveRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan leave request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}
	return out, total, nil
}
