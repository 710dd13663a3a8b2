package timesheet

import "time"

// NormalizeWeekStart truncates t to a UTC calendar date and moves it back to
// the most recent weekStartDay (0=Sunday..6=Saturday).
func NormalizeWeekStart(t time.Time, weekStartDay int) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) - weekStartDay + daysPerWeek) % daysPerWeek
	return day.AddDate(0, 0, -offset)
}

func validWeekday(d int) bool {
	return d >= 0 && d < daysPerWeek
}

func weekdayName(d int) string {
	if !validWeekday(d) {
		return "unknown"
	}
	return time.Weekday(d).String()
}
