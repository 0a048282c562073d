// Package monitor re-evaluates the rule list on a fixed interval and reports
// when rules start or stop blocking.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/common/log"
	"github.com/haukened/reclaim/internal/reclaim/domain"
)

// DefaultInterval matches the once-a-minute re-check of the browser extension.
const DefaultInterval = time.Minute

// RuleSource supplies the current rule list.
type RuleSource interface {
	List() ([]domain.SiteRule, error)
}

// Calendar decides whether a rule is enforced on a given day.
type Calendar interface {
	Enforced(rule domain.SiteRule, now time.Time) bool
}

// Transition is emitted when a rule flips between blocking and not blocking.
type Transition struct {
	RuleID    string           `json:"ruleId"`
	Site      string           `json:"site"`
	Active    bool             `json:"active"`
	At        time.Time        `json:"at"`
	Remaining domain.Remaining `json:"remaining"`
}

// Notifier receives transitions. Notify is called from the monitor goroutine
// and should not block for long.
type Notifier interface {
	Notify(ctx context.Context, t Transition)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, t Transition)

func (f NotifierFunc) Notify(ctx context.Context, t Transition) { f(ctx, t) }

// RuleStatus is the state of one rule as of the latest pass.
type RuleStatus struct {
	ID        string           `json:"id"`
	Site      string           `json:"site"`
	Mode      string           `json:"mode"`
	Enabled   bool             `json:"enabled"`
	Enforced  bool             `json:"enforced"`
	Active    bool             `json:"active"`
	Remaining domain.Remaining `json:"remaining"`
}

type Options struct {
	Rules    RuleSource
	Calendar Calendar // nil enforces every rule every day
	Notifier Notifier // nil only logs
	Clock    clock.Clock
	Logger   log.Logger
	Interval time.Duration // <= 0 uses DefaultInterval
}

// Monitor tracks the last seen state of every rule. The first pass records
// a baseline; later passes notify once for each rule whose state changed.
type Monitor struct {
	rules    RuleSource
	calendar Calendar
	notifier Notifier
	clock    clock.Clock
	logger   log.Logger
	interval time.Duration

	mu       sync.RWMutex
	last     map[string]bool
	snapshot []RuleStatus
	checked  time.Time
}

type everyDay struct{}

func (everyDay) Enforced(domain.SiteRule, time.Time) bool { return true }

func New(opts Options) *Monitor {
	m := &Monitor{
		rules:    opts.Rules,
		calendar: opts.Calendar,
		notifier: opts.Notifier,
		clock:    opts.Clock,
		logger:   opts.Logger,
		interval: opts.Interval,
		last:     make(map[string]bool),
	}
	if m.calendar == nil {
		m.calendar = everyDay{}
	}
	if m.clock == nil {
		m.clock = clock.RealClock{}
	}
	if m.logger == nil {
		m.logger = log.NewNoopLogger()
	}
	if m.notifier == nil {
		m.notifier = NewLogNotifier(m.logger)
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	return m
}

// Interval returns the re-check period.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Run performs a pass immediately and then every interval until ctx is done.
// Pass errors are logged and do not stop the loop.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info(map[string]any{"interval": m.interval.String()}, "rule monitor started")
	for {
		if _, err := m.Tick(ctx); err != nil {
			m.logger.Error(map[string]any{"error": err}, "rule monitor pass failed")
		}
		select {
		case <-ctx.Done():
			m.logger.Info(nil, "rule monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick evaluates every rule once and returns the transitions it notified.
func (m *Monitor) Tick(ctx context.Context) ([]Transition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rules, err := m.rules.List()
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	now := m.clock.Now()

	statuses := make([]RuleStatus, 0, len(rules))
	var flips []Transition

	m.mu.Lock()
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		st := evaluate(r, m.calendar, now)
		statuses = append(statuses, st)
		seen[r.ID] = true

		prev, known := m.last[r.ID]
		m.last[r.ID] = st.Active
		if known && prev != st.Active {
			flips = append(flips, Transition{
				RuleID:    r.ID,
				Site:      r.Label(),
				Active:    st.Active,
				At:        now,
				Remaining: st.Remaining,
			})
		}
	}
	for id := range m.last {
		if !seen[id] {
			delete(m.last, id)
		}
	}
	m.snapshot = statuses
	m.checked = now
	m.mu.Unlock()

	for _, t := range flips {
		m.notifier.Notify(ctx, t)
	}
	return flips, nil
}

// Snapshot returns the statuses from the latest pass and when it ran.
func (m *Monitor) Snapshot() ([]RuleStatus, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RuleStatus, len(m.snapshot))
	copy(out, m.snapshot)
	return out, m.checked
}

func evaluate(r domain.SiteRule, cal Calendar, now time.Time) RuleStatus {
	st := RuleStatus{
		ID:       r.ID,
		Site:     r.Label(),
		Enabled:  r.Enabled,
		Enforced: cal.Enforced(r, now),
	}
	if r.Mode != nil {
		st.Mode = r.Mode.String()
	}
	if st.Enforced {
		st.Active = domain.IsActive(r, now)
		st.Remaining = domain.RemainingUntilFlip(r, now)
	}
	return st
}
