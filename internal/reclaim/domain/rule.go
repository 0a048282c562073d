package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyPattern is returned for rules without a site and pattern.
	ErrEmptyPattern = errors.New("rule pattern must not be empty")
	// ErrNoMode is returned for rules without a schedule.
	ErrNoMode = errors.New("rule mode must be set")
)

// SiteRule is one entry of the user's block list.
//
// Notes:
// - ID is opaque and immutable once assigned (the store assigns one when empty).
// - Site is what the user typed and is only used for display.
// - Pattern is the glob matched against URLs; see CompilePattern.
// - Mode is resolved once when a record is loaded and never re-derived per call.
type SiteRule struct {
	ID          string
	Site        string
	Pattern     string
	Enabled     bool
	Mode        Mode
	SkipDaysOff bool // not enforced on weekends and holidays
	CreatedAt   time.Time
}

// NewSiteRule constructs an enabled SiteRule and validates its fields.
// An empty pattern falls back to site.
func NewSiteRule(id, site, pattern string, mode Mode, createdAt time.Time) (SiteRule, error) {
	r := SiteRule{
		ID:        strings.TrimSpace(id),
		Site:      strings.TrimSpace(site),
		Pattern:   strings.TrimSpace(pattern),
		Enabled:   true,
		Mode:      mode,
		CreatedAt: createdAt,
	}
	if r.Pattern == "" {
		r.Pattern = r.Site
	}
	if err := r.Validate(); err != nil {
		return SiteRule{}, err
	}
	return r, nil
}

// Validate checks the rule for required fields and well-formed times.
// Evaluation never calls Validate: malformed rules evaluate as inactive.
func (r SiteRule) Validate() error {
	if r.Pattern == "" {
		return ErrEmptyPattern
	}
	switch m := r.Mode.(type) {
	case UntilTime:
		if !present(m.At) {
			return fmt.Errorf("%w: until time missing", ErrInvalidTime)
		}
	case DailyRange:
		if !present(m.Start) || !present(m.End) {
			return fmt.Errorf("%w: range start and end required", ErrInvalidTime)
		}
	case nil:
		return ErrNoMode
	default:
		return fmt.Errorf("unsupported mode %T", m)
	}
	return nil
}

// Label returns the site for display, falling back to the pattern.
func (r SiteRule) Label() string {
	if r.Site != "" {
		return r.Site
	}
	return r.Pattern
}

// WithEnabled returns a copy of r with Enabled set.
func (r SiteRule) WithEnabled(enabled bool) SiteRule {
	r.Enabled = enabled
	return r
}
