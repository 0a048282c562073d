// Package gate decides whether a URL is blocked right now.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/common/log"
	"github.com/haukened/reclaim/internal/reclaim/domain"
)

// Gate matches URLs against the active rules. It holds no rule state of its
// own and is safe for concurrent use if its dependencies are.
type Gate struct {
	rules    RuleSource
	patterns PatternCompiler
	calendar Calendar
	clock    clock.Clock
	logger   log.Logger
}

type Options struct {
	Rules    RuleSource
	Patterns PatternCompiler // nil compiles on every call
	Calendar Calendar        // nil enforces every rule every day
	Clock    clock.Clock
	Logger   log.Logger
}

type compileFunc func(string) (*domain.Pattern, error)

func (f compileFunc) Compile(p string) (*domain.Pattern, error) { return f(p) }

type everyDay struct{}

func (everyDay) Enforced(domain.SiteRule, time.Time) bool { return true }

func New(opts Options) *Gate {
	g := &Gate{
		rules:    opts.Rules,
		patterns: opts.Patterns,
		calendar: opts.Calendar,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
	if g.patterns == nil {
		g.patterns = compileFunc(domain.CompilePattern)
	}
	if g.calendar == nil {
		g.calendar = everyDay{}
	}
	if g.clock == nil {
		g.clock = clock.RealClock{}
	}
	if g.logger == nil {
		g.logger = log.NewNoopLogger()
	}
	return g
}

// Check returns the decision for rawURL at the current time. The first
// enabled, enforced, active rule whose pattern matches wins; rule order is
// the store's order.
func (g *Gate) Check(ctx context.Context, rawURL string) (domain.BlockDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmptyDecision(), err
	}
	rules, err := g.rules.List()
	if err != nil {
		return domain.EmptyDecision(), fmt.Errorf("load rules: %w", err)
	}
	return g.Decide(rules, rawURL, g.clock.Now()), nil
}

// Decide evaluates rawURL against an explicit rule list at now.
func (g *Gate) Decide(rules []domain.SiteRule, rawURL string, now time.Time) domain.BlockDecision {
	for _, r := range rules {
		if !r.Enabled || !g.calendar.Enforced(r, now) || !domain.IsActive(r, now) {
			continue
		}
		p, err := g.patterns.Compile(r.Pattern)
		if err != nil {
			g.logger.Debug(map[string]any{
				"rule_id": r.ID,
				"pattern": r.Pattern,
				"error":   err,
			}, "skipping rule with unusable pattern")
			continue
		}
		if !p.Match(rawURL) {
			continue
		}
		return domain.BlockDecision{
			Blocked:   true,
			Rule:      r,
			Remaining: domain.RemainingUntilFlip(r, now),
		}
	}
	return domain.EmptyDecision()
}

// Release reports whether a URL held on the interstitial may be opened.
func (g *Gate) Release(ctx context.Context, originalURL string) (bool, error) {
	d, err := g.Check(ctx, originalURL)
	if err != nil {
		return false, err
	}
	return !d.Blocked, nil
}
