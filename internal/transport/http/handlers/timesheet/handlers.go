package timesheethandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"workforce/internal/domain/apperr"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/timesheet"
	"workforce/internal/platform/export"
	"workforce/internal/platform/metrics"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, tenantID, userID string, weekStart time.Time) (timesheet.Timesheet, error)
	Submit(ctx context.Context, tenantID, timesheetID, actorID string) (timesheet.Timesheet, error)
	Approve(ctx context.Context, tenantID, timesheetID, reviewerID, note string) (timesheet.Timesheet, error)
	Reject(ctx context.Context, tenantID, timesheetID, reviewerID, note string) (timesheet.Timesheet, error)
	Recall(ctx context.Context, tenantID, timesheetID, actorID string) (timesheet.Timesheet, string, error)
	Remove(ctx context.Context, tenantID, timesheetID, actorID string) error
	GetMyCurrent(ctx context.Context, tenantID, userID string, weekStartDay int) (timesheet.Timesheet, bool, error)
	FindAll(ctx context.Context, tenantID, callerID string, f timesheet.ListFilter) (timesheet.ListResult, error)
	Get(ctx context.Context, tenantID, timesheetID string) (timesheet.Timesheet, error)
	ListEntries(ctx context.Context, tenantID, timesheetID string) ([]timesheet.TimeEntry, error)
	AddEntry(ctx context.Context, tenantID, timesheetID, actorID string, in timesheet.EntryInput) (timesheet.TimeEntry, error)
	RemoveEntry(ctx context.Context, tenantID, timesheetID, entryID, actorID string) error
	Validate(ctx context.Context, tenantID, timesheetID string) (timesheet.ValidationResult, error)
	Export(ctx context.Context, tenantID, timesheetID string) (export.Table, error)
}

type WeekStartResolver interface {
	WeekStartDay(ctx context.Context, tenantID string) (int, error)
}

type ManagerVerifier interface {
	VerifyManagerOf(ctx context.Context, tenantID, managerID, targetUserID string) error
}

type Handler struct {
	Service         Service
	Policies        WeekStartResolver
	Team            ManagerVerifier
	Perms           middleware.PermissionStore
	Metrics         *metrics.Collector
	Logger          *zap.Logger
	DefaultPageSize int
	MaxPageSize     int
}

func NewHandler(service Service, policies WeekStartResolver, team ManagerVerifier, perms middleware.PermissionStore, collector *metrics.Collector, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:         service,
		Policies:        policies,
		Team:            team,
		Perms:           perms,
		Metrics:         collector,
		Logger:          logger,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermTimesheetRead, h.Perms)
	write := middleware.RequirePermission(auth.PermTimesheetWrite, h.Perms)
	review := middleware.RequirePermission(auth.PermTimesheetApprove, h.Perms)

	r.Route("/timesheets", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(write).Get("/current", h.handleCurrent)
		r.With(read).Get("/{timesheetID}", h.handleGet)
		r.With(write).Delete("/{timesheetID}", h.handleDelete)
		r.With(write).Post("/{timesheetID}/submit", h.handleSubmit)
		r.With(review).Post("/{timesheetID}/approve", h.handleApprove)
		r.With(review).Post("/{timesheetID}/reject", h.handleReject)
		r.With(write).Post("/{timesheetID}/recall", h.handleRecall)
		r.With(read).Get("/{timesheetID}/validate", h.handleValidate)
		r.With(read).Get("/{timesheetID}/entries", h.handleListEntries)
		r.With(write).Post("/{timesheetID}/entries", h.handleAddEntry)
		r.With(write).Delete("/{timesheetID}/entries/{entryID}", h.handleDeleteEntry)
		r.With(read).Get("/{timesheetID}/export", h.handleExport)
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

func timesheetID(w http.ResponseWriter, r *http.Request) (string, bool) {
	return shared.PathID(w, r, "timesheetID", "timesheet", middleware.GetRequestID(r.Context()))
}

// authorizeUser allows the owner, tenant-wide roles and the owner's manager.
func (h *Handler) authorizeUser(ctx context.Context, user auth.UserContext, ownerID string) error {
	if user.UserID == ownerID || user.IsTenantWide() {
		return nil
	}
	if user.IsManager() {
		return h.Team.VerifyManagerOf(ctx, user.TenantID, user.UserID, ownerID)
	}
	return apperr.Forbidden("you cannot access another user's timesheet")
}

// authorizeReview allows tenant-wide roles and the owner's manager.
func (h *Handler) authorizeReview(ctx context.Context, user auth.UserContext, ownerID string) error {
	if user.IsTenantWide() {
		return nil
	}
	return h.Team.VerifyManagerOf(ctx, user.TenantID, user.UserID, ownerID)
}

// loadAuthorized fetches the timesheet named in the URL and checks the caller
// may see it.
func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request, user auth.UserContext) (timesheet.Timesheet, bool) {
	id, ok := timesheetID(w, r)
	if !ok {
		return timesheet.Timesheet{}, false
	}
	ts, err := h.Service.Get(r.Context(), user.TenantID, id)
	if err != nil {
		h.fail(w, r, err, "timesheet_get_failed", "failed to load timesheet")
		return timesheet.Timesheet{}, false
	}
	if err := h.authorizeUser(r.Context(), user, ts.UserID); err != nil {
		h.fail(w, r, err, "timesheet_get_failed", "failed to load timesheet")
		return timesheet.Timesheet{}, false
	}
	return ts, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	weekStart := v.OptionalDate("weekStart", q.Get("weekStart"))
	from := v.OptionalDate("from", q.Get("from"))
	to := v.OptionalDate("to", q.Get("to"))
	v.Enum("status", q.Get("status"), []string{timesheet.StatusDraft, timesheet.StatusSubmitted, timesheet.StatusApproved, timesheet.StatusRejected}, "must be draft, submitted, approved or rejected")
	if from != nil && to != nil {
		v.DateOrder("from", *from, "to", *to)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	filter := timesheet.ListFilter{
		UserID:    strings.TrimSpace(q.Get("userId")),
		WeekStart: weekStart,
		Status:    strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Team:      shared.ParseBool(q.Get("team")),
		From:      from,
		To:        to,
		Page:      page.Page,
		PageSize:  page.PageSize,
	}
	switch {
	case filter.Team:
	case filter.UserID != "":
		if err := h.authorizeUser(r.Context(), user, filter.UserID); err != nil {
			h.fail(w, r, err, "timesheet_list_failed", "failed to list timesheets")
			return
		}
	case !user.IsTenantWide():
		filter.UserID = user.UserID
	}

	result, err := h.Service.FindAll(r.Context(), user.TenantID, user.UserID, filter)
	if err != nil {
		h.fail(w, r, err, "timesheet_list_failed", "failed to list timesheets")
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

type createPayload struct {
	WeekStart string `json:"weekStart"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
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
	weekStart, _ := v.Date("weekStart", payload.WeekStart)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	ts, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, weekStart)
	if err != nil {
		h.fail(w, r, err, "timesheet_create_failed", "failed to create timesheet")
		return
	}
	h.Metrics.Transition(timesheet.ActionCreate)
	api.Created(w, ts, middleware.GetRequestID(r.Context()))
}

type currentResponse struct {
	Timesheet   timesheet.Timesheet `json:"timesheet"`
	AutoCreated bool                `json:"autoCreated"`
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	startDay, err := h.Policies.WeekStartDay(r.Context(), user.TenantID)
	if err != nil {
		h.fail(w, r, err, "timesheet_current_failed", "failed to load current timesheet")
		return
	}
	// weekStartDay is accepted only as an assertion of the tenant's day.
	if raw := strings.TrimSpace(r.URL.Query().Get("weekStartDay")); raw != "" {
		v := shared.NewValidator()
		if requested, convErr := strconv.Atoi(raw); convErr != nil {
			v.Add("weekStartDay", "must be an integer")
		} else {
			v.IntRange("weekStartDay", requested, 0, 6, "must be between 0 and 6")
			if !v.HasIssues() && requested != startDay {
				v.Add("weekStartDay", fmt.Sprintf("must match the tenant week start day %d", startDay))
			}
		}
		if v.Reject(w, middleware.GetRequestID(r.Context())) {
			return
		}
	}

	ts, created, err := h.Service.GetMyCurrent(r.Context(), user.TenantID, user.UserID, startDay)
	if err != nil {
		h.fail(w, r, err, "timesheet_current_failed", "failed to load current timesheet")
		return
	}
	if created {
		h.Metrics.Transition(timesheet.ActionCreate)
	}
	api.Success(w, currentResponse{Timesheet: ts, AutoCreated: created}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ts, ok := h.loadAuthorized(w, r, user)
	if !ok {
		return
	}
	api.Success(w, ts, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := timesheetID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Remove(r.Context(), user.TenantID, id, user.UserID); err != nil {
		h.fail(w, r, err, "timesheet_delete_failed", "failed to delete timesheet")
		return
	}
	h.Metrics.Transition(timesheet.ActionDelete)
	api.Success(w, map[string]bool{"deleted": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := timesheetID(w, r)
	if !ok {
		return
	}
	ts, err := h.Service.Submit(r.Context(), user.TenantID, id, user.UserID)
	if err != nil {
		h.fail(w, r, err, "timesheet_submit_failed", "failed to submit timesheet")
		return
	}
	h.Metrics.Transition(timesheet.ActionSubmit)
	api.Success(w, ts, middleware.GetRequestID(r.Context()))
}

type reviewPayload struct {
	Note string `json:"note"`
}

// decodeOptional decodes a JSON body that may be absent.
func decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, timesheet.ActionApprove)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, timesheet.ActionReject)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request, action string) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload reviewPayload
	if err := decodeOptional(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	code, fallback := "timesheet_approve_failed", "failed to approve timesheet"
	if action == timesheet.ActionReject {
		code, fallback = "timesheet_reject_failed", "failed to reject timesheet"
	}

	id, ok := timesheetID(w, r)
	if !ok {
		return
	}
	current, err := h.Service.Get(r.Context(), user.TenantID, id)
	if err != nil {
		h.fail(w, r, err, code, fallback)
		return
	}
	if err := h.authorizeReview(r.Context(), user, current.UserID); err != nil {
		h.fail(w, r, err, code, fallback)
		return
	}

	var ts timesheet.Timesheet
	if action == timesheet.ActionReject {
		ts, err = h.Service.Reject(r.Context(), user.TenantID, id, user.UserID, payload.Note)
	} else {
		ts, err = h.Service.Approve(r.Context(), user.TenantID, id, user.UserID, payload.Note)
	}
	if err != nil {
		h.fail(w, r, err, code, fallback)
		return
	}
	h.Metrics.Transition(action)
	api.Success(w, ts, middleware.GetRequestID(r.Context()))
}

type recallResponse struct {
	Timesheet      timesheet.Timesheet `json:"timesheet"`
	PreviousStatus string              `json:"previousStatus"`
}

func (h *Handler) handleRecall(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := timesheetID(w, r)
	if !ok {
		return
	}
	ts, previous, err := h.Service.Recall(r.Context(), user.TenantID, id, user.UserID)
	if err != nil {
		h.fail(w, r, err, "timesheet_recall_failed", "failed to recall timesheet")
		return
	}
	h.Metrics.Transition(timesheet.ActionRecall)
	api.Success(w, recallResponse{Timesheet: ts, PreviousStatus: previous}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ts, ok := h.loadAuthorized(w, r, user)
	if !ok {
		return
	}
	result, err := h.Service.Validate(r.Context(), user.TenantID, ts.ID)
	if err != nil {
		h.fail(w, r, err, "timesheet_validate_failed", "failed to validate timesheet")
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ts, ok := h.loadAuthorized(w, r, user)
	if !ok {
		return
	}
	entries, err := h.Service.ListEntries(r.Context(), user.TenantID, ts.ID)
	if err != nil {
		h.fail(w, r, err, "timesheet_entries_failed", "failed to list time entries")
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

type entryPayload struct {
	ProjectID string  `json:"projectId"`
	TaskID    *string `json:"taskId"`
	DayOfWeek *int    `json:"dayOfWeek"`
	Hours     float64 `json:"hours"`
	Note      string  `json:"note"`
}

func (h *Handler) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := timesheetID(w, r)
	if !ok {
		return
	}
	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("projectId", payload.ProjectID, "is required")
	if payload.DayOfWeek == nil {
		v.Add("dayOfWeek", "is required")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	entry, err := h.Service.AddEntry(r.Context(), user.TenantID, id, user.UserID, timesheet.EntryInput{
		ProjectID: strings.TrimSpace(payload.ProjectID),
		TaskID:    payload.TaskID,
		DayOfWeek: *payload.DayOfWeek,
		Hours:     payload.Hours,
		Note:      payload.Note,
	})
	if err != nil {
		h.fail(w, r, err, "timesheet_entry_create_failed", "failed to add time entry")
		return
	}
	api.Created(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := timesheetID(w, r)
	if !ok {
		return
	}
	entryID, ok := shared.PathID(w, r, "entryID", "time entry", middleware.GetRequestID(r.Context()))
	if !ok {
		return
	}
	if err := h.Service.RemoveEntry(r.Context(), user.TenantID, id, entryID, user.UserID); err != nil {
		h.fail(w, r, err, "timesheet_entry_delete_failed", "failed to delete time entry")
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatPDF
	}
	contentType, err := export.ContentType(format)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "format", Reason: "must be pdf or xlsx"}})
		return
	}
	ts, ok := h.loadAuthorized(w, r, user)
	if !ok {
		return
	}

	table, err := h.Service.Export(r.Context(), user.TenantID, ts.ID)
	if err != nil {
		h.fail(w, r, err, "timesheet_export_failed", "failed to export timesheet")
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		h.fail(w, r, err, "timesheet_export_failed", "failed to export timesheet")
		return
	}

	filename := fmt.Sprintf("timesheet-%s.%s", ts.WeekStart.Format(time.DateOnly), format)
	if err := api.Attachment(w, contentType, filename, buf.Bytes()); err != nil {
		h.Logger.Warn("write export failed", zap.Error(err), zap.String("timesheetId", ts.ID))
	}
}
