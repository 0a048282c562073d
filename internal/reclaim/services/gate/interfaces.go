package gate

import (
	"time"

	"github.com/haukened/reclaim/internal/reclaim/domain"
)

// RuleSource supplies the current rule list. The gate reads it on every
// call and never caches it.
type RuleSource interface {
	List() ([]domain.SiteRule, error)
}

// PatternCompiler turns a rule's glob into a matcher, typically through a cache.
type PatternCompiler interface {
	Compile(pattern string) (*domain.Pattern, error)
}

// Calendar decides whether a rule is enforced on a given day.
type Calendar interface {
	Enforced(rule domain.SiteRule, now time.Time) bool
}
