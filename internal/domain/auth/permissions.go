package auth

import "context"

const (
	PermTimesheetRead    = "timesheet.read"
	PermTimesheetWrite   = "timesheet.write"
	PermTimesheetApprove = "timesheet.approve"
	PermLeaveRead        = "leave.read"
	PermLeaveWrite       = "leave.write"
	PermLeaveApprove     = "leave.approve"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermTimesheetRead,
		PermTimesheetWrite,
		PermLeaveRead,
		PermLeaveWrite,
	},
	RoleManager: {
		PermTimesheetRead,
		PermTimesheetWrite,
		PermTimesheetApprove,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
	},
	RoleHR: {
		PermTimesheetRead,
		PermTimesheetWrite,
		PermTimesheetApprove,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
	},
	RoleAdmin: {
		PermTimesheetRead,
		PermTimesheetWrite,
		PermTimesheetApprove,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, roleName, permission string) (bool, error) {
	for _, p := range RolePermissions[roleName] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
