package policy

import "time"

// DefaultWeekStartDay is used when a tenant has no policy (Monday).
const DefaultWeekStartDay = int(time.Monday)

type Policy struct {
	TenantID        string  `json:"tenantId"`
	MinHoursPerDay  float64 `json:"minHoursPerDay"`
	MaxHoursPerDay  float64 `json:"maxHoursPerDay"`
	MinHoursPerWeek float64 `json:"minHoursPerWeek"`
	MaxHoursPerWeek float64 `json:"maxHoursPerWeek"`
	AllowOvertime   bool    `json:"allowOvertime"`
	RequireApproval bool    `json:"requireApproval"`
	WeekStartDay    int     `json:"weekStartDay"`
}
