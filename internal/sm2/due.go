package sm2

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage form of a due date.
const DateLayout = "2006-01-02"

// Date truncates t to midnight in t's own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays returns the calendar date n days after the date of t.
func AddDays(t time.Time, n int) time.Time {
	return Date(t).AddDate(0, 0, n)
}

// civil maps the calendar date of t onto UTC midnight so that dates from
// different locations compare by year, month and day only.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DueOn reports whether a due date has arrived by today. Time of day is
// ignored on both sides.
func DueOn(due, today time.Time) bool {
	return !civil(due).After(civil(today))
}

// IsDue reports whether s is eligible for review today. Past-due items stay due.
func IsDue(s ReviewState, today time.Time) bool {
	return DueOn(s.DueDate, today)
}

// SelectDue returns the items whose due date has arrived, in arrival order.
func SelectDue[T any](items []T, today time.Time, dueDate func(T) time.Time) []T {
	var due []T
	for _, it := range items {
		if DueOn(dueDate(it), today) {
			due = append(due, it)
		}
	}
	return due
}

// DueStates is SelectDue over bare review states.
func DueStates(states []ReviewState, today time.Time) []ReviewState {
	return SelectDue(states, today, func(s ReviewState) time.Time { return s.DueDate })
}

// DaysUntilDue is the signed number of calendar days from today to due.
// It is negative for overdue items.
func DaysUntilDue(due, today time.Time) int {
	return int(civil(due).Sub(civil(today)).Hours() / 24)
}

// DescribeDue renders the distance to a due date for display.
func DescribeDue(due, today time.Time) string {
	days := DaysUntilDue(due, today)
	switch {
	case days == 0:
		return "Due today"
	case days < 0:
		return fmt.Sprintf("Overdue by %d %s", -days, plural(-days))
	default:
		return fmt.Sprintf("Due in %d %s", days, plural(days))
	}
}

func plural(days int) string {
	if days == 1 {
		return "day"
	}
	return "days"
}

// ParseDate reads a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due date %q: %w", s, err)
	}
	return t, nil
}
