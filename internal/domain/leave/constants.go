package leave

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

const (
	UnitDays  = "days"
	UnitHours = "hours"
)

const (
	ActionCreate  = "leave.request.create"
	ActionApprove = "leave.request.approve"
	ActionReject  = "leave.request.reject"
	ActionCancel  = "leave.request.cancel"
)

const entityLeaveRequest = "leave_request"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}
