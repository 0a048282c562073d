package domain

import (
	"fmt"
	"strings"
	"time"
)

// ModeKind names the variant of a rule's blocking schedule.
//
// until - legacy one-shot: block until a time of day, then stay open
// range - recurring daily window [start, end), may cross midnight
type ModeKind uint8

const (
	// ModeUntilTime blocks until a time of day is reached today.
	ModeUntilTime ModeKind = iota
	// ModeDailyRange blocks inside a recurring daily window.
	ModeDailyRange
)

// String returns a stable string representation of the mode kind.
func (k ModeKind) String() string {
	switch k {
	case ModeUntilTime:
		return "until"
	case ModeDailyRange:
		return "range"
	default:
		return fmt.Sprintf("ModeKind(%d)", k)
	}
}

// ParseModeKind converts a string into a ModeKind. Besides "until" and
// "range" it accepts the extension's names "simple" and "timeRange".
func ParseModeKind(s string) (ModeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "until", "simple":
		return ModeUntilTime, nil
	case "range", "timerange", "daily":
		return ModeDailyRange, nil
	default:
		return 0, fmt.Errorf("unsupported ModeKind: %q", s)
	}
}

// Mode is the schedule of a SiteRule. It is one of UntilTime or DailyRange.
type Mode interface {
	Kind() ModeKind
	String() string

	// activeAt and minutesUntilFlip see enabled rules only.
	activeAt(now time.Time) bool
	minutesUntilFlip(now time.Time) int
}

// UntilTime blocks while At, taken as a time today, is still in the future.
// Once passed it stays inactive; it does not recur the next day.
type UntilTime struct {
	At *TimeOfDay
}

// Until is a convenience constructor for an UntilTime mode.
func Until(at TimeOfDay) UntilTime {
	return UntilTime{At: &at}
}

func (m UntilTime) Kind() ModeKind { return ModeUntilTime }

func (m UntilTime) String() string {
	return "until " + optString(m.At)
}

func (m UntilTime) activeAt(now time.Time) bool {
	if !present(m.At) {
		return false
	}
	return m.At.On(now).After(now)
}

func (m UntilTime) minutesUntilFlip(now time.Time) int {
	if !m.activeAt(now) {
		return 0
	}
	return m.At.MinuteOfDay() - minuteOfDay(now)
}

// DailyRange blocks every day while the time of day is in [Start, End).
// Start > End crosses midnight; Start == End blocks the whole day.
type DailyRange struct {
	Start *TimeOfDay
	End   *TimeOfDay
}

// Daily is a convenience constructor for a DailyRange mode.
func Daily(start, end TimeOfDay) DailyRange {
	return DailyRange{Start: &start, End: &end}
}

func (m DailyRange) Kind() ModeKind { return ModeDailyRange }

func (m DailyRange) String() string {
	return optString(m.Start) + "-" + optString(m.End)
}

// bounds returns the window as minutes-of-day; ok is false when either end
// is missing or out of range.
func (m DailyRange) bounds() (start, end int, ok bool) {
	if !present(m.Start) || !present(m.End) {
		return 0, 0, false
	}
	return m.Start.MinuteOfDay(), m.End.MinuteOfDay(), true
}

// FullDay reports whether the window covers the whole day.
func (m DailyRange) FullDay() bool {
	s, e, ok := m.bounds()
	return ok && s == e
}

func (m DailyRange) activeAt(now time.Time) bool {
	s, e, ok := m.bounds()
	if !ok {
		return false
	}
	cur := minuteOfDay(now)
	switch {
	case s < e:
		return cur >= s && cur < e
	case s > e:
		return cur >= s || cur < e
	default:
		return true
	}
}

func (m DailyRange) minutesUntilFlip(now time.Time) int {
	s, e, ok := m.bounds()
	if !ok || s == e {
		return 0
	}
	target := s
	if m.activeAt(now) {
		target = e
	}
	diff := target - minuteOfDay(now)
	if diff <= 0 {
		diff += MinutesPerDay
	}
	return diff
}

// BuildMode parses a schedule from its text fields. Unlike legacy record
// decoding it is strict: every time the kind needs must parse.
func BuildMode(kind ModeKind, until, start, end string) (Mode, error) {
	switch kind {
	case ModeUntilTime:
		at, err := ParseTimeOfDay(until)
		if err != nil {
			return nil, fmt.Errorf("until: %w", err)
		}
		return Until(at), nil
	case ModeDailyRange:
		s, err := ParseTimeOfDay(start)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		e, err := ParseTimeOfDay(end)
		if err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		return Daily(s, e), nil
	default:
		return nil, fmt.Errorf("unsupported ModeKind: %d", kind)
	}
}

func present(t *TimeOfDay) bool {
	return t != nil && t.Valid()
}

func optString(t *TimeOfDay) string {
	if !present(t) {
		return "--:--"
	}
	return t.String()
}

var (
	_ Mode = UntilTime{}
	_ Mode = DailyRange{}
)
