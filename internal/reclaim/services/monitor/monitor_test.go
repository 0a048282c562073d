package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/common/log"
	"github.com/haukened/reclaim/internal/reclaim/domain"
)

type stubSource struct {
	mu    sync.Mutex
	rules []domain.SiteRule
	err   error
}

func (s *stubSource) List() ([]domain.SiteRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SiteRule(nil), s.rules...), s.err
}

type recorder struct {
	mu  sync.Mutex
	got []Transition
}

func (r *recorder) Notify(_ context.Context, t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, t)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func workRule() domain.SiteRule {
	return domain.SiteRule{
		ID: "work", Site: "youtube.com", Pattern: "youtube", Enabled: true,
		Mode: domain.Daily(domain.MustTimeOfDay(9, 0), domain.MustTimeOfDay(17, 0)),
	}
}

func TestMonitor_Tick_NotifiesOncePerFlip(t *testing.T) {
	src := &stubSource{rules: []domain.SiteRule{workRule()}}
	clk := &clock.MockClock{CurrentTime: time.Date(2025, 8, 1, 8, 58, 0, 0, time.UTC)}
	rec := &recorder{}
	m := New(Options{Rules: src, Notifier: rec, Clock: clk})
	ctx := context.Background()

	flips, err := m.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, flips, "first pass is the baseline")

	clk.Advance(time.Minute) // 08:59
	flips, err = m.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, flips)

	clk.Advance(time.Minute) // 09:00
	flips, err = m.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, flips, 1)
	assert.Equal(t, Transition{
		RuleID:    "work",
		Site:      "youtube.com",
		Active:    true,
		At:        clk.Now(),
		Remaining: domain.RemainingFromMinutes(8 * 60),
	}, flips[0])

	clk.Advance(time.Minute) // still active
	flips, err = m.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, flips)

	clk.Set(time.Date(2025, 8, 1, 17, 0, 0, 0, time.UTC))
	flips, err = m.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, flips, 1)
	assert.False(t, flips[0].Active)
	assert.Equal(t, 16*60, flips[0].Remaining.TotalMinutes)

	assert.Equal(t, 2, rec.len())
}

func TestMonitor_Tick_DisableAndRemove(t *testing.T) {
	src := &stubSource{rules: []domain.SiteRule{workRule()}}
	clk := &clock.MockClock{CurrentTime: time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	m := New(Options{Rules: src, Notifier: rec, Clock: clk})
	ctx := context.Background()

	_, err := m.Tick(ctx)
	require.NoError(t, err)

	src.rules = []domain.SiteRule{workRule().WithEnabled(false)}
	flips, err := m.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, flips, 1, "disabling an active rule is a flip")
	assert.False(t, flips[0].Active)

	src.rules = nil
	_, err = m.Tick(ctx)
	require.NoError(t, err)

	// re-adding starts from a fresh baseline
	src.rules = []domain.SiteRule{workRule()}
	flips, err = m.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, flips)
}

func TestMonitor_Snapshot(t *testing.T) {
	dayOff, err := domain.NewDaysOff([]string{"2025-08-01"})
	require.NoError(t, err)
	skip := workRule()
	skip.ID = "skip"
	skip.SkipDaysOff = true

	src := &stubSource{rules: []domain.SiteRule{workRule(), skip}}
	now := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	m := New(Options{Rules: src, Calendar: dayOff, Clock: &clock.MockClock{CurrentTime: now}})

	statuses, checked := m.Snapshot()
	assert.Empty(t, statuses)
	assert.True(t, checked.IsZero())

	_, err = m.Tick(context.Background())
	require.NoError(t, err)

	statuses, checked = m.Snapshot()
	assert.Equal(t, now, checked)
	require.Len(t, statuses, 2)
	assert.Equal(t, RuleStatus{
		ID: "work", Site: "youtube.com", Mode: "09:00-17:00",
		Enabled: true, Enforced: true, Active: true,
		Remaining: domain.RemainingFromMinutes(7 * 60),
	}, statuses[0])
	assert.False(t, statuses[1].Enforced)
	assert.False(t, statuses[1].Active)
	assert.True(t, statuses[1].Remaining.IsZero())
}

func TestMonitor_Tick_Errors(t *testing.T) {
	boom := errors.New("boom")
	m := New(Options{Rules: &stubSource{err: boom}})
	_, err := m.Tick(context.Background())
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Tick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMonitor_Run_StopsOnCancel(t *testing.T) {
	src := &stubSource{rules: []domain.SiteRule{workRule()}}
	m := New(Options{Rules: src, Interval: 5 * time.Millisecond})
	assert.Equal(t, 5*time.Millisecond, m.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		statuses, _ := m.Snapshot()
		return len(statuses) == 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNew_Defaults(t *testing.T) {
	m := New(Options{Rules: &stubSource{}})
	assert.Equal(t, DefaultInterval, m.Interval())
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(log.NewZapLogger(zap.New(core)))

	rec := &recorder{}
	f := Fanout{n, rec, NotifierFunc(func(context.Context, Transition) {})}
	f.Notify(context.Background(), Transition{RuleID: "a", Site: "a.com", Active: true, Remaining: domain.RemainingFromMinutes(90)})
	f.Notify(context.Background(), Transition{RuleID: "a", Site: "a.com", Active: false})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "site blocked", entries[0].Message)
	assert.Equal(t, "1h30m0s", entries[0].ContextMap()["remaining"])
	assert.Equal(t, "site unblocked", entries[1].Message)
	assert.Equal(t, 2, rec.len())
}
