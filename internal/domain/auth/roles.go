package auth

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

// UserContext is the caller identity injected by upstream authentication.
type UserContext struct {
	UserID   string
	TenantID string
	RoleName string
}

func (u UserContext) IsTenantWide() bool {
	return u.RoleName == RoleHR || u.RoleName == RoleAdmin
}

func (u UserContext) IsManager() bool {
	return u.RoleName == RoleManager
}
