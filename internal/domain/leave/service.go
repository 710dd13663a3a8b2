package leave

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"workforce/internal/domain/apperr"
	"workforce/internal/domain/audit"
)

type Service struct {
	Store  StoreAPI
	Ledger *Ledger
	Tx     TxRunner
	Team   TeamResolver
	Audit  AuditLogger
	Logger *zap.Logger
	Now    func() time.Time
}

func NewService(store StoreAPI, tx TxRunner, team TeamResolver, auditLog AuditLogger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:  store,
		Ledger: NewLedger(store, tx),
		Tx:     tx,
		Team:   team,
		Audit:  auditLog,
		Logger: logger,
		Now:    time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) record(ctx context.Context, tenantID, actorID, action, entityID string, before, after any) {
	if s.Audit == nil {
		return
	}
	s.Audit.Log(ctx, audit.Event{
		TenantID:    tenantID,
		ActorUserID: actorID,
		Action:      action,
		Entity:      entityLeaveRequest,
		EntityID:    entityID,
		Before:      before,
		After:       after,
	})
}

func (s *Service) benefitType(ctx context.Context, tenantID, benefitTypeID string) (BenefitType, error) {
	bt, found, err := s.Store.GetBenefitType(ctx, tenantID, benefitTypeID)
	if err != nil {
		return BenefitType{}, err
	}
	if !found {
		return BenefitType{}, apperr.Validation("invalid benefit type")
	}
	return bt, nil
}

// Create files a pending request after checking the requester can cover it.
func (s *Service) Create(ctx context.Context, tenantID, userID string, in CreateInput) (LeaveRequest, error) {
	if !in.Amount.IsPositive() {
		return LeaveRequest{}, apperr.Validation("amount must be greater than zero")
	}
	if !WithinScale(in.Amount) {
		return LeaveRequest{}, apperr.Validation("amount must have at most %d decimal places", AmountPlaces)
	}
	start, end, err := NormalizePeriod(in.StartDate, in.EndDate)
	if err != nil {
		return LeaveRequest{}, err
	}
	bt, err := s.benefitType(ctx, tenantID, in.BenefitTypeID)
	if err != nil {
		return LeaveRequest{}, err
	}

	var created LeaveRequest
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		balance, err := s.Ledger.GetOrCreate(ctx, tenantID, userID, bt.ID)
		if err != nil {
			return err
		}
		if !bt.AllowNegative && balance.CurrentBalance.LessThan(in.Amount) {
			return &apperr.InsufficientBalanceError{Available: balance.CurrentBalance, Requested: in.Amount}
		}
		created, err = s.Store.InsertRequest(ctx, LeaveRequest{
			TenantID:      tenantID,
			UserID:        userID,
			BenefitTypeID: bt.ID,
			StartDate:     start,
			EndDate:       end,
			Amount:        in.Amount,
			Status:        StatusPending,
			Note:          strings.TrimSpace(in.Note),
		})
		return err
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	s.record(ctx, tenantID, userID, ActionCreate, created.ID, nil, created)
	return created, nil
}

// Approve marks the request approved and debits the balance in one
// transaction. Either both are committed or neither is.
func (s *Service) Approve(ctx context.Context, tenantID, requestID, approverID, note string) (LeaveRequest, error) {
	var before, after LeaveRequest
	var balance BenefitBalance
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		req, err := s.Store.GetRequestForUpdate(ctx, tenantID, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return apperr.Validation("cannot approve request with status: %s", req.Status)
		}
		before = req

		bt, err := s.benefitType(ctx, tenantID, req.BenefitTypeID)
		if err != nil {
			return err
		}

		s.decide(&req, StatusApproved, approverID, note)
		if after, err = s.Store.UpdateRequest(ctx, req); err != nil {
			return err
		}
		balance, err = s.Ledger.Debit(ctx, tenantID, req.UserID, req.BenefitTypeID, req.Amount, bt.AllowNegative)
		return err
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	s.Logger.Debug("leave request approved",
		zap.String("tenantId", tenantID),
		zap.String("requestId", requestID),
		zap.String("balance", balance.CurrentBalance.String()))
	s.record(ctx, tenantID, approverID, ActionApprove, requestID, before, after)
	return after, nil
}

// Reject closes a pending request without touching the balance.
func (s *Service) Reject(ctx context.Context, tenantID, requestID, approverID, note string) (LeaveRequest, error) {
	var before, after LeaveRequest
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		req, err := s.Store.GetRequestForUpdate(ctx, tenantID, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return apperr.Validation("cannot reject request with status: %s", req.Status)
		}
		before = req
		s.decide(&req, StatusRejected, approverID, note)
		after, err = s.Store.UpdateRequest(ctx, req)
		return err
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	s.record(ctx, tenantID, approverID, ActionReject, requestID, before, after)
	return after, nil
}

func (s *Service) decide(req *LeaveRequest, status, approverID, note string) {
	now := s.now()
	req.Status = status
	req.ApproverID = &approverID
	req.ApprovedAt = &now
	if note = strings.TrimSpace(note); note != "" {
		req.Note = note
	}
}

// Cancel withdraws the caller's own pending request.
func (s *Service) Cancel(ctx context.Context, tenantID, requestID, userID string) (LeaveRequest, error) {
	var before, after LeaveRequest
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		req, err := s.Store.GetRequestForUpdate(ctx, tenantID, requestID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return apperr.Validation("you can only cancel your own requests")
		}
		if req.Status != StatusPending {
			return apperr.Validation("cannot cancel request with status: %s", req.Status)
		}
		before = req
		req.Status = StatusCancelled
		after, err = s.Store.UpdateRequest(ctx, req)
		return err
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	s.record(ctx, tenantID, userID, ActionCancel, requestID, before, after)
	return after, nil
}

// FindAll lists requests in the tenant. Mine wins over Team; Team restricts
// the listing to the caller's direct reports.
func (s *Service) FindAll(ctx context.Context, tenantID, callerID string, f ListFilter) (ListResult, error) {
	page, pageSize := normalizePage(f.Page, f.PageSize)
	result := ListResult{Requests: []LeaveRequest{}, Page: page, PageSize: pageSize}

	if f.Status != "" && !IsValidStatus(f.Status) {
		return ListResult{}, apperr.Validation("invalid status: %s", f.Status)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return ListResult{}, apperr.Validation("to must not be before from")
	}

	q := ListQuery{
		TenantID: tenantID,
		Status:   f.Status,
		From:     f.From,
		To:       f.To,
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	}
	switch {
	case f.Mine:
		q.UserID = callerID
	case f.Team:
		reports, err := s.Team.DirectReports(ctx, tenantID, callerID)
		if err != nil {
			return ListResult{}, err
		}
		if len(reports) == 0 {
			return result, nil
		}
		q.UserIDs = reports
	}

	rows, total, err := s.Store.ListRequests(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	result.Requests = rows
	result.Total = total
	return result, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *Service) Get(ctx context.Context, tenantID, requestID string) (LeaveRequest, error) {
	return s.Store.GetRequest(ctx, tenantID, requestID)
}

// GetUserBenefitBalances reports each balance with its allocation and the
// amount used so far.
func (s *Service) GetUserBenefitBalances(ctx context.Context, tenantID, userID string) ([]BalanceView, error) {
	rows, err := s.Store.ListBalances(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]BalanceView, 0, len(rows))
	for _, r := range rows {
		out = append(out, BalanceView{
			BenefitTypeID:   r.Type.ID,
			BenefitTypeKey:  r.Type.Key,
			BenefitTypeName: r.Type.Name,
			Unit:            r.Type.Unit,
			CurrentBalance:  r.Balance.CurrentBalance,
			TotalAmount:     r.Type.TotalAmount,
			UsedAmount:      r.Type.TotalAmount.Sub(r.Balance.CurrentBalance).StringFixed(2),
		})
	}
	return out, nil
}
