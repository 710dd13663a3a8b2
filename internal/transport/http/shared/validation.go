package shared

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"workforce/internal/transport/http/api"
)

// ValidationIssue is one field-level problem reported under
// error.details.fields.
type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator accumulates issues across a whole payload so the client sees
// every problem in one response. The zero value is ready to use.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

// Add records reason against field. Blank reasons and exact repeats are
// ignored.
func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	issue := ValidationIssue{Field: strings.TrimSpace(field), Reason: strings.TrimSpace(reason)}
	if issue.Reason == "" || slices.Contains(v.issues, issue) {
		return
	}
	v.issues = append(v.issues, issue)
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Enum accepts an empty value; pair it with Required when the field is
// mandatory.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if !slices.ContainsFunc(allowed, func(candidate string) bool {
		return strings.EqualFold(value, strings.TrimSpace(candidate))
	}) {
		v.Add(field, reason)
	}
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

// OptionalDate parses raw when present and records an issue when malformed.
func (v *Validator) OptionalDate(field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if parsed, ok := v.Date(field, raw); ok {
		return &parsed
	}
	return nil
}

func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() || !end.Before(start) {
		return
	}
	v.Add(startField, "must be on or before "+endField)
	v.Add(endField, "must be on or after "+startField)
}

func (v *Validator) Positive(field string, value decimal.Decimal) {
	if !value.IsPositive() {
		v.Add(field, "must be greater than zero")
	}
}

// Scale flags values with more than places decimal digits.
func (v *Validator) Scale(field string, value decimal.Decimal, places int32) {
	if !value.Equal(value.Round(places)) {
		v.Add(field, fmt.Sprintf("must have at most %d decimal places", places))
	}
}

func (v *Validator) IntRange(field string, value, lo, hi int, reason string) {
	if value < lo || value > hi {
		v.Add(field, reason)
	}
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

// Issues returns the recorded issues ordered by field, then reason.
func (v *Validator) Issues() []ValidationIssue {
	if !v.HasIssues() {
		return nil
	}
	out := slices.Clone(v.issues)
	slices.SortStableFunc(out, func(a, b ValidationIssue) int {
		return cmp.Or(cmp.Compare(a.Field, b.Field), cmp.Compare(a.Reason, b.Reason))
	})
	return out
}

// Reject writes a 400 listing every issue and reports whether it did.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": issues}, requestID)
}
