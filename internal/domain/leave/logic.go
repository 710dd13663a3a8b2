package leave

import (
	"time"

	"github.com/shopspring/decimal"

	"workforce/internal/domain/apperr"
)

// AmountPlaces is the scale amounts and balances are stored with.
const AmountPlaces = 2

// WithinScale reports whether amount is representable without rounding.
func WithinScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(AmountPlaces))
}

// NormalizePeriod truncates both ends of a request to UTC calendar dates and
// rejects a period that ends before it starts.
func NormalizePeriod(start, end time.Time) (time.Time, time.Time, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperr.Validation("end date must not be before start date")
	}
	return start, end, nil
}

// SpanDays is the inclusive calendar-day length of a normalized period.
func SpanDays(start, end time.Time) decimal.Decimal {
	days := int64(DateOnly(end).Sub(DateOnly(start)).Hours()/24) + 1
	if days < 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(days)
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
