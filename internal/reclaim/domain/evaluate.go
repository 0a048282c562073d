package domain

import "time"

// IsActive reports whether rule is blocking at now.
//
// Disabled rules and rules with a missing or malformed schedule are never
// active. All comparisons use the wall clock of now's location.
func IsActive(rule SiteRule, now time.Time) bool {
	if !rule.Enabled || rule.Mode == nil {
		return false
	}
	return rule.Mode.activeAt(now)
}

// Remaining is the time until a rule's active state next changes.
// TotalMinutes == Hours*60 + Minutes, all fields non-negative.
type Remaining struct {
	Hours        int `json:"hours"`
	Minutes      int `json:"minutes"`
	TotalMinutes int `json:"totalMinutes"`
}

// RemainingFromMinutes splits total minutes into hours and minutes. Negative
// input clamps to zero.
func RemainingFromMinutes(total int) Remaining {
	if total < 0 {
		total = 0
	}
	return Remaining{Hours: total / 60, Minutes: total % 60, TotalMinutes: total}
}

// IsZero reports whether no flip is pending.
func (r Remaining) IsZero() bool { return r.TotalMinutes == 0 }

// Duration returns the remaining time as a time.Duration.
func (r Remaining) Duration() time.Duration {
	return time.Duration(r.TotalMinutes) * time.Minute
}

// RemainingUntilFlip returns the time until IsActive(rule, ·) changes value.
//
// It is zero for disabled rules, malformed schedules, full-day ranges (which
// never flip) and UntilTime rules whose time has already passed.
func RemainingUntilFlip(rule SiteRule, now time.Time) Remaining {
	if !rule.Enabled || rule.Mode == nil {
		return Remaining{}
	}
	return RemainingFromMinutes(rule.Mode.minutesUntilFlip(now))
}

// Countdown is RemainingUntilFlip at second precision, for a ticking display:
// the seconds already elapsed in the current minute are subtracted.
func Countdown(rule SiteRule, now time.Time) time.Duration {
	rem := RemainingUntilFlip(rule, now)
	if rem.IsZero() {
		return 0
	}
	d := rem.Duration() - time.Duration(now.Second())*time.Second
	if d < 0 {
		return 0
	}
	return d
}
