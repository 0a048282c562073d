package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for holidays.
const DateLayout = "2006-01-02"

// DaysOff is a calendar of weekends and holidays on which rules flagged
// SkipDaysOff are not enforced.
type DaysOff struct {
	holidays map[string]struct{}
}

// NewDaysOff builds a calendar from holiday dates in DateLayout form.
func NewDaysOff(holidays []string) (DaysOff, error) {
	d := DaysOff{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		t, err := time.Parse(DateLayout, h)
		if err != nil {
			return DaysOff{}, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		d.holidays[t.Format(DateLayout)] = struct{}{}
	}
	return d, nil
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func (d DaysOff) IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday reports whether t's calendar date is a configured holiday.
func (d DaysOff) IsHoliday(t time.Time) bool {
	_, ok := d.holidays[t.Format(DateLayout)]
	return ok
}

// IsDayOff reports whether t is on a weekend or a holiday.
func (d DaysOff) IsDayOff(t time.Time) bool {
	return d.IsWeekend(t) || d.IsHoliday(t)
}

// Holidays returns the number of configured holidays.
func (d DaysOff) Holidays() int { return len(d.holidays) }

// Enforced reports whether rule applies on now's calendar day.
func (d DaysOff) Enforced(rule SiteRule, now time.Time) bool {
	return !rule.SkipDaysOff || !d.IsDayOff(now)
}
