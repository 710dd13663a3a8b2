package timesheet

import "time"

type Timesheet struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	UserID      string     `json:"userId"`
	WeekStart   time.Time  `json:"weekStart"`
	Status      string     `json:"status"`
	SubmittedBy *string    `json:"submittedBy,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ReviewedBy  *string    `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	ReviewNote  string     `json:"reviewNote"`
	TotalHours  float64    `json:"totalHours"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TimeEntry struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	UserID      string    `json:"userId"`
	TimesheetID string    `json:"timesheetId"`
	ProjectID   string    `json:"projectId"`
	TaskID      *string   `json:"taskId,omitempty"`
	WeekStart   time.Time `json:"weekStart"`
	DayOfWeek   int       `json:"dayOfWeek"`
	Hours       float64   `json:"hours"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"createdAt"`
}

type EntryInput struct {
	ProjectID string
	TaskID    *string
	DayOfWeek int
	Hours     float64
	Note      string
}

// ListFilter is the caller-facing filter for FindAll. Zero values mean "any".
type ListFilter struct {
	UserID    string
	WeekStart *time.Time
	Status    string
	Team      bool
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// ListQuery is the store-level query. A non-nil UserIDs restricts results to
// those users; an empty non-nil slice matches nothing.
type ListQuery struct {
	TenantID  string
	UserIDs   []string
	UserID    string
	WeekStart *time.Time
	Status    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type ListResult struct {
	Timesheets []Timesheet `json:"timesheets"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
}

type Issue struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	EntryID   string `json:"entryId,omitempty"`
	DayOfWeek *int   `json:"dayOfWeek,omitempty"`
	Days      []int  `json:"days,omitempty"`
}

type Summary struct {
	TotalHours      float64 `json:"totalHours"`
	DaysWithEntries int     `json:"daysWithEntries"`
	EntryCount      int     `json:"entryCount"`
	ProjectCount    int     `json:"projectCount"`
	Status          string  `json:"status"`
}

type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Summary  Summary `json:"summary"`
}
