package timesheet

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

const (
	ErrorMaxHoursExceeded = "max_hours_exceeded"
	WarningNoEntries      = "no_entries"
	WarningLowHours       = "low_hours"
)

const (
	ActionCreate      = "timesheet.create"
	ActionSubmit      = "timesheet.submit"
	ActionApprove     = "timesheet.approve"
	ActionReject      = "timesheet.reject"
	ActionRecall      = "timesheet.recall"
	ActionDelete      = "timesheet.delete"
	ActionEntryCreate = "timesheet.entry.create"
	ActionEntryDelete = "timesheet.entry.delete"
)

const (
	entityTimesheet = "timesheet"
	entityTimeEntry = "time_entry"
)

const (
	daysPerWeek       = 7
	weekendDays       = 2
	expectedEntryDays = daysPerWeek - weekendDays
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}
