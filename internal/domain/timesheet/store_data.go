package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"workforce/internal/domain/apperr"
	"workforce/internal/platform/db"
)

const uniqueWeekConstraint = "timesheets_tenant_user_week_key"

const timesheetColumns = `
    t.id, t.tenant_id, t.user_id, t.week_start, t.status, t.submitted_by, t.submitted_at,
    t.reviewed_by, t.reviewed_at, t.review_note, t.created_at, t.updated_at`

func scanTimesheet(row pgx.Row, extra ...any) (Timesheet, error) {
	var ts Timesheet
	dest := []any{&ts.ID, &ts.TenantID, &ts.UserID, &ts.WeekStart, &ts.Status, &ts.SubmittedBy, &ts.SubmittedAt,
		&ts.ReviewedBy, &ts.ReviewedAt, &ts.ReviewNote, &ts.CreatedAt, &ts.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Timesheet{}, err
	}
	return ts, nil
}

func (s *Store) get(ctx context.Context, tenantID, timesheetID, lock string) (Timesheet, error) {
	ts, err := scanTimesheet(db.Executor(ctx, s.DB).QueryRow(ctx, `
    SELECT `+timesheetColumns+`
    FROM timesheets t
    WHERE t.tenant_id = $1 AND t.id = $2
  `+lock, tenantID, timesheetID))
	if db.IsNoRows(err) {
		return Timesheet{}, apperr.NotFound("timesheet not found")
	}
	if err != nil {
		return Timesheet{}, fmt.Errorf("load timesheet: %w", err)
	}
	return ts, nil
}

func (s *Store) Get(ctx context.Context, tenantID, timesheetID string) (Timesheet, error) {
	return s.get(ctx, tenantID, timesheetID, "")
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (s *Store) GetForUpdate(ctx context.Context, tenantID, timesheetID string) (Timesheet, error) {
	return s.get(ctx, tenantID, timesheetID, " FOR UPDATE")
}

func (s *Store) FindByWeek(ctx context.Context, tenantID, userID string, weekStart time.Time) (Timesheet, bool, error) {
	ts, err := scanTimesheet(db.Executor(ctx, s.DB).QueryRow(ctx, `
    SELECT `+timesheetColumns+`
    FROM timesheets t
    WHERE t.tenant_id = $1 AND t.user_id = $2 AND t.week_start = $3
  `, tenantID, userID, weekStart))
	if db.IsNoRows(err) {
		return Timesheet{}, false, nil
	}
	if err != nil {
		return Timesheet{}, false, fmt.Errorf("find timesheet by week: %w", err)
	}
	return ts, true, nil
}

func (s *Store) Insert(ctx context.Context, ts Timesheet) (Timesheet, error) {
	out, err := scanTimesheet(db.Executor(ctx, s.DB).QueryRow(ctx, `
    INSERT INTO timesheets AS t (tenant_id, user_id, week_start, status, review_note)
    VALUES ($1,$2,$3,$4,'')
    RETURNING `+timesheetColumns,
		ts.TenantID, ts.UserID, ts.WeekStart, ts.Status))
	if db.IsUniqueViolation(err, uniqueWeekConstraint) {
		return Timesheet{}, apperr.Conflict("a timesheet already exists for this week")
	}
	if err != nil {
		return Timesheet{}, fmt.Errorf("insert timesheet: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, ts Timesheet) (Timesheet, error) {
	out, err := scanTimesheet(db.Executor(ctx, s.DB).QueryRow(ctx, `
    UPDATE timesheets AS t
    SET status = $3, submitted_by = $4, submitted_at = $5, reviewed_by = $6, reviewed_at = $7,
        review_note = $8, updated_at = now()
    WHERE t.tenant_id = $1 AND t.id = $2
    RETURNING `+timesheetColumns,
		ts.TenantID, ts.ID, ts.Status, ts.SubmittedBy, ts.SubmittedAt, ts.ReviewedBy, ts.ReviewedAt, ts.ReviewNote))
	if db.IsNoRows(err) {
		return Timesheet{}, apperr.NotFound("timesheet not found")
	}
	if err != nil {
		return Timesheet{}, fmt.Errorf("update timesheet: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, tenantID, timesheetID string) error {
	tag, err := db.Executor(ctx, s.DB).Exec(ctx, "DELETE FROM timesheets WHERE tenant_id = $1 AND id = $2", tenantID, timesheetID)
	if err != nil {
		return fmt.Errorf("delete timesheet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("timesheet not found")
	}
	return nil
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]Timesheet, int, error) {
	where := " WHERE t.tenant_id = $1"
	args := []any{q.TenantID}
	add := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if q.UserIDs != nil {
		add(" AND t.user_id = ANY($%d::uuid[])", q.UserIDs)
	}
	if q.UserID != "" {
		add(" AND t.user_id = $%d", q.UserID)
	}
	if q.WeekStart != nil {
		add(" AND t.week_start = $%d", *q.WeekStart)
	}
	if q.Status != "" {
		add(" AND t.status = $%d", q.Status)
	}
	if q.From != nil {
		add(" AND t.week_start >= $%d", *q.From)
	}
	if q.To != nil {
		add(" AND t.week_start <= $%d", *q.To)
	}

	exec := db.Executor(ctx, s.DB)

	var total int
	if err := exec.QueryRow(ctx, "SELECT COUNT(1) FROM timesheets t"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count timesheets: %w", err)
	}

	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	rows, err := exec.Query(ctx, `
    SELECT `+timesheetColumns+`, COALESCE(SUM(e.hours), 0)::float8
    FROM timesheets t
    LEFT JOIN time_entries e ON e.tenant_id = t.tenant_id AND e.timesheet_id = t.id
  `+where+`
    GROUP BY t.id
    ORDER BY t.week_start DESC, t.created_at DESC
  `+fmt.Sprintf(" LIMIT $%d OFFSET $%d", limitPos, offsetPos), append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list timesheets: %w", err)
	}
	defer rows.Close()

	out := []Timesheet{}
	for rows.Next() {
		var hours float64
		ts, err := scanTimesheet(rows, &hours)
		if err != nil {
			return nil, 0, fmt.Errorf("scan timesheet: %w", err)
		}
		ts.TotalHours = hours
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list timesheets: %w", err)
	}
	return out, total, nil
}

func (s *Store) ListEntries(ctx context.Context, tenantID, timesheetID string) ([]TimeEntry, error) {
	rows, err := db.Executor(ctx, s.DB).Query(ctx, `
    SELECT id, tenant_id, user_id, timesheet_id, project_id, task_id, week_start, day_of_week,
           hours::float8, note, created_at
    FROM time_entries
    WHERE tenant_id = $1 AND timesheet_id = $2
    ORDER BY day_of_week, id
  `, tenantID, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	entries := []TimeEntry{}
	for rows.Next() {
		var e TimeEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.UserID, &e.TimesheetID, &e.ProjectID, &e.TaskID, &e.WeekStart,
			&e.DayOfWeek, &e.Hours, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) InsertEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	if err := db.Executor(ctx, s.DB).QueryRow(ctx, `
    INSERT INTO time_entries (tenant_id, user_id, timesheet_id, project_id, task_id, week_start, day_of_week, hours, note)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id, created_at
  `, entry.TenantID, entry.UserID, entry.TimesheetID, entry.ProjectID, entry.TaskID, entry.WeekStart,
		entry.DayOfWeek, entry.Hours, entry.Note).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return TimeEntry{}, fmt.Errorf("insert time entry: %w", err)
	}
	return entry, nil
}

func (s *Store) DeleteEntry(ctx context.Context, tenantID, timesheetID, entryID string) (bool, error) {
	tag, err := db.Executor(ctx, s.DB).Exec(ctx, `
    DELETE FROM time_entries WHERE tenant_id = $1 AND timesheet_id = $2 AND id = $3
  `, tenantID, timesheetID, entryID)
	if err != nil {
		return false, fmt.Errorf("delete time entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteEntries(ctx context.Context, tenantID, timesheetID string) error {
	if _, err := db.Executor(ctx, s.DB).Exec(ctx, `
    DELETE FROM time_entries WHERE tenant_id = $1 AND timesheet_id = $2
  `, tenantID, timesheetID); err != nil {
		return fmt.Errorf("delete time entries: %w", err)
	}
	return nil
}
