package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"workforce/internal/domain/apperr"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/leave"
	"workforce/internal/platform/metrics"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, tenantID, userID string, in leave.CreateInput) (leave.LeaveRequest, error)
	Approve(ctx context.Context, tenantID, requestID, approverID, note string) (leave.LeaveRequest, error)
	Reject(ctx context.Context, tenantID, requestID, approverID, note string) (leave.LeaveRequest, error)
	Cancel(ctx context.Context, tenantID, requestID, userID string) (leave.LeaveRequest, error)
	FindAll(ctx context.Context, tenantID, callerID string, f leave.ListFilter) (leave.ListResult, error)
	Get(ctx context.Context, tenantID, requestID string) (leave.LeaveRequest, error)
	GetUserBenefitBalances(ctx context.Context, tenantID, userID string) ([]leave.BalanceView, error)
}

type ManagerVerifier interface {
	VerifyManagerOf(ctx context.Context, tenantID, managerID, targetUserID string) error
}

type Handler struct {
	Service         Service
	Team            ManagerVerifier
	Perms           middleware.PermissionStore
	Metrics         *metrics.Collector
	Logger          *zap.Logger
	DefaultPageSize int
	MaxPageSize     int
}

func NewHandler(service Service, team ManagerVerifier, perms middleware.PermissionStore, collector *metrics.Collector, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:         service,
		Team:            team,
		Perms:           perms,
		Metrics:         collector,
		Logger:          logger,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
	})
}

func currentUser(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
	}
	return user, ok
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, fallback string) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.Logger.Error(fallback, zap.Error(err), zap.String("requestId", middleware.GetRequestID(r.Context())))
	}
	api.FailError(w, err, code, fallback, middleware.GetRequestID(r.Context()))
}

func leaveRequestID(w http.ResponseWriter, r *http.Request) (string, bool) {
	return shared.PathID(w, r, "requestID", "leave request", middleware.GetRequestID(r.Context()))
}

func (h *Handler) authorizeUser(ctx context.Context, user auth.UserContext, ownerID string) error {
	if user.UserID == ownerID || user.IsTenantWide() {
		return nil
	}
	if user.IsManager() {
		return h.Team.VerifyManagerOf(ctx, user.TenantID, user.UserID, ownerID)
	}
	return apperr.Forbidden("you cannot access another user's leave")
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	target := strings.TrimSpace(r.URL.Query().Get("userId"))
	if target == "" {
		target = user.UserID
	}
	if err := h.authorizeUser(r.Context(), user, target); err != nil {
		h.fail(w, r, err, "leave_balances_failed", "failed to list leave balances")
		return
	}

	balances, err := h.Service.GetUserBenefitBalances(r.Context(), user.TenantID, target)
	if err != nil {
		h.fail(w, r, err, "leave_balances_failed", "failed to list leave balances")
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	from := v.OptionalDate("from", q.Get("from"))
	to := v.OptionalDate("to", q.Get("to"))
	if from != nil && to != nil {
		v.DateOrder("from", *from, "to", *to)
	}
	v.Enum("status", q.Get("status"), []string{leave.StatusPending, leave.StatusApproved, leave.StatusRejected, leave.StatusCancelled}, "must be pending, approved, rejected or cancelled")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	filter := leave.ListFilter{
		Mine:     shared.ParseBool(q.Get("mine")),
		Team:     shared.ParseBool(q.Get("team")),
		Status:   strings.ToLower(strings.TrimSpace(q.Get("status"))),
		From:     from,
		To:       to,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	if !user.IsTenantWide() && !filter.Team {
		filter.Mine = true
	}

	result, err := h.Service.FindAll(r.Context(), user.TenantID, user.UserID, filter)
	if err != nil {
		h.fail(w, r, err, "leave_requests_failed", "failed to list leave requests")
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := leaveRequestID(w, r)
	if !ok {
		return
	}
	req, err := h.Service.Get(r.Context(), user.TenantID, id)
	if err != nil {
		h.fail(w, r, err, "leave_request_failed", "failed to load leave request")
		return
	}
	if err := h.authorizeUser(r.Context(), user, req.UserID); err != nil {
		h.fail(w, r, err, "leave_request_failed", "failed to load leave request")
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type createPayload struct {
	BenefitTypeID string          `json:"benefitTypeId"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("benefitTypeId", payload.BenefitTypeID, "is required")
	start, okStart := v.Date("startDate", payload.StartDate)
	end, okEnd := v.Date("endDate", payload.EndDate)
	if okStart && okEnd {
		v.DateOrder("startDate", start, "endDate", end)
	}
	v.Positive("amount", payload.Amount)
	v.Scale("amount", payload.Amount, leave.AmountPlaces)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, leave.CreateInput{
		BenefitTypeID: strings.TrimSpace(payload.BenefitTypeID),
		StartDate:     start,
		EndDate:       end,
		Amount:        payload.Amount,
		Note:          strings.TrimSpace(payload.Note),
	})
	if err != nil {
		h.fail(w, r, err, "leave_request_create_failed", "failed to create leave request")
		return
	}
	h.Metrics.Transition(leave.ActionCreate)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Note string `json:"note"`
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, leave.ActionApprove)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, leave.ActionReject)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, action string) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	code, fallback := "leave_approve_failed", "failed to approve leave request"
	if action == leave.ActionReject {
		code, fallback = "leave_reject_failed", "failed to reject leave request"
	}

	id, ok := leaveRequestID(w, r)
	if !ok {
		return
	}
	current, err := h.Service.Get(r.Context(), user.TenantID, id)
	if err != nil {
		h.fail(w, r, err, code, fallback)
		return
	}
	if !user.IsTenantWide() {
		if err := h.Team.VerifyManagerOf(r.Context(), user.TenantID, user.UserID, current.UserID); err != nil {
			h.fail(w, r, err, code, fallback)
			return
		}
	}

	var decided leave.LeaveRequest
	if action == leave.ActionReject {
		decided, err = h.Service.Reject(r.Context(), user.TenantID, id, user.UserID, payload.Note)
	} else {
		decided, err = h.Service.Approve(r.Context(), user.TenantID, id, user.UserID, payload.Note)
	}
	if err != nil {
		h.fail(w, r, err, code, fallback)
		return
	}
	h.Metrics.Transition(action)
	h.Logger.Info("leave request decided",
		zap.String("action", action),
		zap.String("requestId", id),
		zap.String("approverId", user.UserID),
		zap.String("userId", decided.UserID))
	api.Success(w, decided, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := leaveRequestID(w, r)
	if !ok {
		return
	}
	cancelled, err := h.Service.Cancel(r.Context(), user.TenantID, id, user.UserID)
	if err != nil {
		h.fail(w, r, err, "leave_cancel_failed", "failed to cancel leave request")
		return
	}
	h.Metrics.Transition(leave.ActionCancel)
	api.Success(w, cancelled, middleware.GetRequestID(r.Context()))
}
