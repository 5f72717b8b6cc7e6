// Package recurrence decides whether a session template is due on a given
// calendar date. Everything here is pure: no clock reads, no I/O.
package recurrence

import (
	"time"

	"github.com/lessonloop/api/internal/model"
)

// DateOnly truncates t to its calendar date in UTC. All date arithmetic in
// this package runs on normalized values so DST shifts cannot skew day
// counts.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MondayIndex maps time.Weekday (Sunday=0) onto the Monday=0..Sunday=6
// convention used by SessionTemplate.DayOfWeek.
func MondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// Matches reports whether tpl should generate a session on date. Checks
// short-circuit in order: status, weekday, start/end window, then minimum
// spacing since the last materialization. Weekday equality alone is not
// sufficient: a weekly template generated earlier the same week must not
// fire again, and biweekly/monthly templates share the weekday but need a
// longer gap.
func Matches(tpl *model.SessionTemplate, date time.Time) bool {
	if tpl.Status != model.TemplateActive {
		return false
	}
	d := DateOnly(date)
	if MondayIndex(d.Weekday()) != tpl.DayOfWeek {
		return false
	}
	if d.Before(DateOnly(tpl.StartDate)) {
		return false
	}
	if tpl.EndDate != nil && d.After(DateOnly(*tpl.EndDate)) {
		return false
	}
	if tpl.LastGenerated == nil {
		// First ever occurrence, no spacing to enforce.
		return true
	}
	return DaysBetween(*tpl.LastGenerated, d) >= tpl.RecurrenceType.MinSpacingDays()
}

// NextDate returns the first date on or after from that Matches, or nil if
// no occurrence exists within the next 370 days (paused/ended templates and
// templates past their end date have no next occurrence).
func NextDate(tpl *model.SessionTemplate, from time.Time) *time.Time {
	d := DateOnly(from)
	for i := 0; i < 370; i++ {
		if Matches(tpl, d) {
			next := d
			return &next
		}
		d = d.AddDate(0, 0, 1)
	}
	return nil
}
