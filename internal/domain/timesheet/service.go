package timesheet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"workforce/internal/domain/apperr"
	"workforce/internal/domain/audit"
)

type Service struct {
	Store     StoreAPI
	Tx        TxRunner
	Policies  PolicyResolver
	Team      TeamResolver
	Audit     AuditLogger
	Validator *Validator
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewService(store StoreAPI, tx TxRunner, policies PolicyResolver, team TeamResolver, auditLog AuditLogger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:     store,
		Tx:        tx,
		Policies:  policies,
		Team:      team,
		Audit:     auditLog,
		Validator: NewValidator(store, policies),
		Logger:    logger,
		Now:       time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) record(ctx context.Context, tenantID, actorID, action, entity, entityID string, before, after any) {
	if s.Audit == nil {
		return
	}
	s.Audit.Log(ctx, audit.Event{
		TenantID:    tenantID,
		ActorUserID: actorID,
		Action:      action,
		Entity:      entity,
		EntityID:    entityID,
		Before:      before,
		After:       after,
	})
}

// Create opens a draft timesheet for the week containing weekStart.
func (s *Service) Create(ctx context.Context, tenantID, userID string, weekStart time.Time) (Timesheet, error) {
	startDay, err := s.Policies.WeekStartDay(ctx, tenantID)
	if err != nil {
		return Timesheet{}, err
	}
	ts, err := s.createForWeek(ctx, tenantID, userID, NormalizeWeekStart(weekStart, startDay))
	if err != nil {
		return Timesheet{}, err
	}
	s.record(ctx, tenantID, userID, ActionCreate, entityTimesheet, ts.ID, nil, ts)
	return ts, nil
}

func (s *Service) createForWeek(ctx context.Context, tenantID, userID string, weekStart time.Time) (Timesheet, error) {
	var created Timesheet
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		_, exists, err := s.Store.FindByWeek(ctx, tenantID, userID, weekStart)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("a timesheet already exists for this week")
		}
		created, err = s.Store.Insert(ctx, Timesheet{
			TenantID:  tenantID,
			UserID:    userID,
			WeekStart: weekStart,
			Status:    StatusDraft,
		})
		return err
	})
	if err != nil {
		return Timesheet{}, err
	}
	return created, nil
}

// transition locks the timesheet, lets mutate check preconditions and edit
// it, then persists the result in the same transaction.
func (s *Service) transition(ctx context.Context, tenantID, timesheetID string, mutate func(ts *Timesheet) error) (before, after Timesheet, err error) {
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		ts, err := s.Store.GetForUpdate(ctx, tenantID, timesheetID)
		if err != nil {
			return err
		}
		before = ts
		if err := mutate(&ts); err != nil {
			return err
		}
		after, err = s.Store.UpdateStatus(ctx, ts)
		return err
	})
	return before, after, err
}

func (s *Service) Submit(ctx context.Context, tenantID, timesheetID, actorID string) (Timesheet, error) {
	before, after, err := s.transition(ctx, tenantID, timesheetID, func(ts *Timesheet) error {
		if ts.Status != StatusDraft {
			return apperr.InvalidState("cannot submit timesheet with status: %s", ts.Status)
		}
		if ts.UserID != actorID {
			return apperr.Forbidden("you can only submit your own timesheet")
		}
		now := s.now()
		ts.Status = StatusSubmitted
		ts.SubmittedBy = &actorID
		ts.SubmittedAt = &now
		return nil
	})
	if err != nil {
		return Timesheet{}, err
	}
	s.record(ctx, tenantID, actorID, ActionSubmit, entityTimesheet, timesheetID, before, after)
	return after, nil
}

func (s *Service) Approve(ctx context.Context, tenantID, timesheetID, reviewerID, note string) (Timesheet, error) {
	return s.review(ctx, tenantID, timesheetID, reviewerID, note, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, tenantID, timesheetID, reviewerID, note string) (Timesheet, error) {
	return s.review(ctx, tenantID, timesheetID, reviewerID, note, StatusRejected)
}

func (s *Service) review(ctx context.Context, tenantID, timesheetID, reviewerID, note, status string) (Timesheet, error) {
	note = strings.TrimSpace(note)
	verb, action := "approve", ActionApprove
	if status == StatusRejected {
		verb, action = "reject", ActionReject
	}
	before, after, err := s.transition(ctx, tenantID, timesheetID, func(ts *Timesheet) error {
		if ts.Status != StatusSubmitted {
			return apperr.InvalidState("cannot %s timesheet with status: %s", verb, ts.Status)
		}
		if status == StatusRejected && note == "" {
			return apperr.Validation("a note is required when rejecting a timesheet")
		}
		now := s.now()
		ts.Status = status
		ts.ReviewedBy = &reviewerID
		ts.ReviewedAt = &now
		ts.ReviewNote = note
		return nil
	})
	if err != nil {
		return Timesheet{}, err
	}
	s.record(ctx, tenantID, reviewerID, action, entityTimesheet, timesheetID, before, after)
	return after, nil
}

// Recall moves a submitted, unreviewed timesheet back to draft and reports
// the status it had before.
func (s *Service) Recall(ctx context.Context, tenantID, timesheetID, actorID string) (Timesheet, string, error) {
	before, after, err := s.transition(ctx, tenantID, timesheetID, func(ts *Timesheet) error {
		if ts.Status != StatusSubmitted {
			return apperr.InvalidState("cannot recall timesheet with status: %s", ts.Status)
		}
		if ts.UserID != actorID {
			return apperr.Forbidden("you can only recall your own timesheet")
		}
		if ts.ReviewedAt != nil {
			return apperr.InvalidState("timesheet has already been reviewed")
		}
		ts.Status = StatusDraft
		ts.SubmittedBy = nil
		ts.SubmittedAt = nil
		return nil
	})
	if err != nil {
		return Timesheet{}, "", err
	}
	s.record(ctx, tenantID, actorID, ActionRecall, entityTimesheet, timesheetID, before, after)
	return after, before.Status, nil
}

// Remove deletes a draft timesheet together with its entries.
func (s *Service) Remove(ctx context.Context, tenantID, timesheetID, actorID string) error {
	var before Timesheet
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		ts, err := s.lockDraft(ctx, tenantID, timesheetID, actorID, "delete")
		if err != nil {
			return err
		}
		before = ts
		if err := s.Store.DeleteEntries(ctx, tenantID, timesheetID); err != nil {
			return err
		}
		return s.Store.Delete(ctx, tenantID, timesheetID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, tenantID, actorID, ActionDelete, entityTimesheet, timesheetID, before, nil)
	return nil
}

func (s *Service) lockDraft(ctx context.Context, tenantID, timesheetID, actorID, verb string) (Timesheet, error) {
	ts, err := s.Store.GetForUpdate(ctx, tenantID, timesheetID)
	if err != nil {
		return Timesheet{}, err
	}
	if ts.Status != StatusDraft {
		return Timesheet{}, apperr.InvalidState("cannot %s timesheet with status: %s", verb, ts.Status)
	}
	if ts.UserID != actorID {
		return Timesheet{}, apperr.Forbidden("you can only %s your own timesheet", verb)
	}
	return ts, nil
}

// GetMyCurrent returns the caller's timesheet for the current week, creating
// it when missing. autoCreated is true only when this call created it.
// weekStartDay must be the tenant's configured day so the anchor matches the
// one Create and FindAll compute.
func (s *Service) GetMyCurrent(ctx context.Context, tenantID, userID string, weekStartDay int) (Timesheet, bool, error) {
	if !validWeekday(weekStartDay) {
		return Timesheet{}, false, apperr.Validation("weekStartDay must be between 0 and 6")
	}
	tenantDay, err := s.Policies.WeekStartDay(ctx, tenantID)
	if err != nil {
		return Timesheet{}, false, err
	}
	if weekStartDay != tenantDay {
		return Timesheet{}, false, apperr.Validation("weekStartDay must match the tenant week start day %d", tenantDay)
	}
	weekStart := NormalizeWeekStart(s.now(), weekStartDay)

	ts, found, err := s.Store.FindByWeek(ctx, tenantID, userID, weekStart)
	if err != nil {
		return Timesheet{}, false, err
	}
	if found {
		return ts, false, nil
	}

	ts, err = s.createForWeek(ctx, tenantID, userID, weekStart)
	if errors.Is(err, apperr.ErrConflict) {
		ts, found, err = s.Store.FindByWeek(ctx, tenantID, userID, weekStart)
		if err != nil {
			return Timesheet{}, false, err
		}
		if !found {
			return Timesheet{}, false, fmt.Errorf("timesheet for week %s vanished after conflict", weekStart.Format(time.DateOnly))
		}
		return ts, false, nil
	}
	if err != nil {
		return Timesheet{}, false, err
	}
	s.Logger.Debug("auto-created current timesheet",
		zap.String("tenantId", tenantID),
		zap.String("userId", userID),
		zap.String("weekStart", weekStart.Format(time.DateOnly)))
	s.record(ctx, tenantID, userID, ActionCreate, entityTimesheet, ts.ID, nil, ts)
	return ts, true, nil
}

// FindAll lists timesheets in the tenant. With Team set the listing is
// restricted to the caller's direct reports.
func (s *Service) FindAll(ctx context.Context, tenantID, callerID string, f ListFilter) (ListResult, error) {
	page, pageSize := normalizePage(f.Page, f.PageSize)
	result := ListResult{Timesheets: []Timesheet{}, Page: page, PageSize: pageSize}

	if f.Status != "" && !IsValidStatus(f.Status) {
		return ListResult{}, apperr.Validation("invalid status: %s", f.Status)
	}

	q := ListQuery{
		TenantID: tenantID,
		UserID:   f.UserID,
		Status:   f.Status,
		From:     f.From,
		To:       f.To,
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	}
	if f.WeekStart != nil {
		startDay, err := s.Policies.WeekStartDay(ctx, tenantID)
		if err != nil {
			return ListResult{}, err
		}
		week := NormalizeWeekStart(*f.WeekStart, startDay)
		q.WeekStart = &week
	}
	if f.Team {
		reports, err := s.Team.DirectReports(ctx, tenantID, callerID)
		if err != nil {
			return ListResult{}, err
		}
		if len(reports) == 0 {
			return result, nil
		}
		q.UserIDs = reports
	}

	rows, total, err := s.Store.List(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	result.Timesheets = rows
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

func (s *Service) Get(ctx context.Context, tenantID, timesheetID string) (Timesheet, error) {
	return s.Store.Get(ctx, tenantID, timesheetID)
}

func (s *Service) ListEntries(ctx context.Context, tenantID, timesheetID string) ([]TimeEntry, error) {
	if _, err := s.Store.Get(ctx, tenantID, timesheetID); err != nil {
		return nil, err
	}
	return s.Store.ListEntries(ctx, tenantID, timesheetID)
}

func validateEntry(in EntryInput) error {
	if strings.TrimSpace(in.ProjectID) == "" {
		return apperr.Validation("projectId is required")
	}
	if !validWeekday(in.DayOfWeek) {
		return apperr.Validation("dayOfWeek must be between 0 and 6")
	}
	if math.IsNaN(in.Hours) || math.IsInf(in.Hours, 0) || in.Hours < 0 {
		return apperr.Validation("hours must be a non-negative number")
	}
	return nil
}

// AddEntry logs hours on a draft timesheet. Hours are not capped here; the
// validator reports policy violations.
func (s *Service) AddEntry(ctx context.Context, tenantID, timesheetID, actorID string, in EntryInput) (TimeEntry, error) {
	if err := validateEntry(in); err != nil {
		return TimeEntry{}, err
	}
	var entry TimeEntry
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		ts, err := s.lockDraft(ctx, tenantID, timesheetID, actorID, "edit")
		if err != nil {
			return err
		}
		entry, err = s.Store.InsertEntry(ctx, TimeEntry{
			TenantID:    tenantID,
			UserID:      ts.UserID,
			TimesheetID: ts.ID,
			ProjectID:   strings.TrimSpace(in.ProjectID),
			TaskID:      in.TaskID,
			WeekStart:   ts.WeekStart,
			DayOfWeek:   in.DayOfWeek,
			Hours:       in.Hours,
			Note:        in.Note,
		})
		return err
	})
	if err != nil {
		return TimeEntry{}, err
	}
	s.record(ctx, tenantID, actorID, ActionEntryCreate, entityTimeEntry, entry.ID, nil, entry)
	return entry, nil
}

func (s *Service) RemoveEntry(ctx context.Context, tenantID, timesheetID, entryID, actorID string) error {
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.lockDraft(ctx, tenantID, timesheetID, actorID, "edit"); err != nil {
			return err
		}
		deleted, err := s.Store.DeleteEntry(ctx, tenantID, timesheetID, entryID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.NotFound("time entry not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, tenantID, actorID, ActionEntryDelete, entityTimeEntry, entryID, nil, nil)
	return nil
}

func (s *Service) Validate(ctx context.Context, tenantID, timesheetID string) (ValidationResult, error) {
	return s.Validator.Validate(ctx, tenantID, timesheetID)
}
