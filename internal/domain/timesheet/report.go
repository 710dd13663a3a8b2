package timesheet

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"workforce/internal/platform/export"
)

// Export builds a printable report of the timesheet, its entries and the
// validation outcome.
func (s *Service) Export(ctx context.Context, tenantID, timesheetID string) (export.Table, error) {
	ts, err := s.Store.Get(ctx, tenantID, timesheetID)
	if err != nil {
		return export.Table{}, err
	}
	p, err := s.Policies.Resolve(ctx, tenantID)
	if err != nil {
		return export.Table{}, err
	}
	entries, err := s.Store.ListEntries(ctx, tenantID, timesheetID)
	if err != nil {
		return export.Table{}, err
	}
	return buildReport(ts, entries, Evaluate(ts, p, entries)), nil
}

func buildReport(ts Timesheet, entries []TimeEntry, res ValidationResult) export.Table {
	t := export.Table{
		Title: "Timesheet",
		Fields: []export.Field{
			{Label: "User", Value: ts.UserID},
			{Label: "Week start", Value: ts.WeekStart.Format(time.DateOnly)},
			{Label: "Status", Value: ts.Status},
			{Label: "Total hours", Value: formatHours(res.Summary.TotalHours)},
			{Label: "Days with entries", Value: strconv.Itoa(res.Summary.DaysWithEntries)},
			{Label: "Projects", Value: strconv.Itoa(res.Summary.ProjectCount)},
			{Label: "Valid", Value: strconv.FormatBool(res.Valid)},
		},
		Headers: []string{"Date", "Day", "Project", "Task", "Hours", "Note"},
	}
	if ts.ReviewedBy != nil {
		t.Fields = append(t.Fields, export.Field{Label: "Reviewed by", Value: *ts.ReviewedBy})
	}
	if ts.ReviewNote != "" {
		t.Fields = append(t.Fields, export.Field{Label: "Review note", Value: ts.ReviewNote})
	}

	for _, e := range entries {
		task := ""
		if e.TaskID != nil {
			task = *e.TaskID
		}
		t.Rows = append(t.Rows, []string{
			entryDate(ts.WeekStart, e.DayOfWeek).Format(time.DateOnly),
			weekdayName(e.DayOfWeek),
			e.ProjectID,
			task,
			formatHours(e.Hours),
			e.Note,
		})
	}
	for _, issue := range res.Errors {
		t.Notes = append(t.Notes, fmt.Sprintf("error %s: %s", issue.Code, issue.Message))
	}
	for _, issue := range res.Warnings {
		t.Notes = append(t.Notes, fmt.Sprintf("warning %s: %s", issue.Code, issue.Message))
	}
	return t
}

// entryDate resolves an absolute weekday to its date within the week that
// starts at weekStart.
func entryDate(weekStart time.Time, dayOfWeek int) time.Time {
	offset := (dayOfWeek - int(weekStart.Weekday()) + daysPerWeek) % daysPerWeek
	return weekStart.AddDate(0, 0, offset)
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}
