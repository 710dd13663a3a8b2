package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type BenefitType struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenantId"`
	Key              string          `json:"key"`
	Name             string          `json:"name"`
	Unit             string          `json:"unit"`
	RequiresApproval bool            `json:"requiresApproval"`
	AllowNegative    bool            `json:"allowNegative"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
}

type BenefitBalance struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenantId"`
	UserID         string          `json:"userId"`
	BenefitTypeID  string          `json:"benefitTypeId"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type LeaveRequest struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenantId"`
	UserID        string          `json:"userId"`
	BenefitTypeID string          `json:"benefitTypeId"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	Amount        decimal.Decimal `json:"amount"`
	CalendarDays  decimal.Decimal `json:"calendarDays"`
	Status        string          `json:"status"`
	ApproverID    *string         `json:"approverId,omitempty"`
	ApprovedAt    *time.Time      `json:"approvedAt,omitempty"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type CreateInput struct {
	BenefitTypeID string
	StartDate     time.Time
	EndDate       time.Time
	Amount        decimal.Decimal
	Note          string
}

type ListFilter struct {
	Mine     bool
	Team     bool
	Status   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ListQuery is the store-level query. A non-nil UserIDs restricts results to
// those users. From/To select requests overlapping the range.
type ListQuery struct {
	TenantID string
	UserIDs  []string
	UserID   string
	Status   string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

type ListResult struct {
	Requests []LeaveRequest `json:"requests"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// BalanceRow is a balance joined with its benefit type.
type BalanceRow struct {
	Balance BenefitBalance
	Type    BenefitType
}

type BalanceView struct {
	BenefitTypeID   string          `json:"benefitTypeId"`
	BenefitTypeKey  string          `json:"benefitTypeKey"`
	BenefitTypeName string          `json:"benefitTypeName"`
	Unit            string          `json:"unit"`
	CurrentBalance  decimal.Decimal `json:"currentBalance"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	UsedAmount      string          `json:"usedAmount"`
}
