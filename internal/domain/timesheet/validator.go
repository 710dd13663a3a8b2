package timesheet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"workforce/internal/domain/policy"
)

// Validator checks a timesheet's entries against the tenant policy. It only
// reads.
type Validator struct {
	Store    StoreAPI
	Policies PolicyResolver
}

func NewValidator(store StoreAPI, policies PolicyResolver) *Validator {
	return &Validator{Store: store, Policies: policies}
}

func (v *Validator) Validate(ctx context.Context, tenantID, timesheetID string) (ValidationResult, error) {
	ts, err := v.Store.Get(ctx, tenantID, timesheetID)
	if err != nil {
		return ValidationResult{}, err
	}
	p, err := v.Policies.Resolve(ctx, tenantID)
	if err != nil {
		return ValidationResult{}, err
	}
	entries, err := v.Store.ListEntries(ctx, tenantID, timesheetID)
	if err != nil {
		return ValidationResult{}, err
	}
	return Evaluate(ts, p, entries), nil
}

// Evaluate applies the rules to already loaded data. p may be nil.
func Evaluate(ts Timesheet, p *policy.Policy, entries []TimeEntry) ValidationResult {
	sorted := make([]TimeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		return sorted[i].ID < sorted[j].ID
	})

	result := ValidationResult{Errors: []Issue{}, Warnings: []Issue{}}
	days := map[int]bool{}
	workdays := map[int]bool{}
	projects := map[string]bool{}
	var total float64

	for _, e := range sorted {
		total += e.Hours
		days[e.DayOfWeek] = true
		if e.DayOfWeek >= 1 && e.DayOfWeek <= expectedEntryDays {
			workdays[e.DayOfWeek] = true
		}
		projects[e.ProjectID] = true

		if p != nil && p.MaxHoursPerDay > 0 && e.Hours > p.MaxHoursPerDay {
			day := e.DayOfWeek
			result.Errors = append(result.Errors, Issue{
				Code:      ErrorMaxHoursExceeded,
				Message:   fmt.Sprintf("%s entry has %.2f hours, above the daily maximum of %.2f", weekdayName(day), e.Hours, p.MaxHoursPerDay),
				EntryID:   e.ID,
				DayOfWeek: &day,
			})
		}
	}

	if len(workdays) < expectedEntryDays {
		var missing []int
		var names []string
		for d := 1; d <= expectedEntryDays; d++ {
			if !workdays[d] {
				missing = append(missing, d)
				names = append(names, weekdayName(d))
			}
		}
		result.Warnings = append(result.Warnings, Issue{
			Code:    WarningNoEntries,
			Message: fmt.Sprintf("entries found for %d of %d working days; missing: %s", len(workdays), expectedEntryDays, strings.Join(names, ", ")),
			Days:    missing,
		})
	}

	if p != nil && p.MinHoursPerWeek > 0 && total < p.MinHoursPerWeek {
		result.Warnings = append(result.Warnings, Issue{
			Code:    WarningLowHours,
			Message: fmt.Sprintf("total of %.2f hours is below the weekly minimum of %.2f", total, p.MinHoursPerWeek),
		})
	}

	result.Valid = len(result.Errors) == 0
	result.Summary = Summary{
		TotalHours:      total,
		DaysWithEntries: len(days),
		EntryCount:      len(sorted),
		ProjectCount:    len(projects),
		Status:          ts.Status,
	}
	return result
}
