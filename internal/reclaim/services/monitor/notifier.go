package monitor

import (
	"context"

	"github.com/haukened/reclaim/internal/reclaim/common/log"
)

type logNotifier struct {
	logger log.Logger
}

// NewLogNotifier returns a Notifier that writes each transition to logger.
func NewLogNotifier(logger log.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(_ context.Context, t Transition) {
	msg := "site unblocked"
	if t.Active {
		msg = "site blocked"
	}
	n.logger.Info(map[string]any{
		"rule_id":   t.RuleID,
		"site":      t.Site,
		"remaining": t.Remaining.Duration().String(),
	}, msg)
}

// Fanout delivers each transition to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, t Transition) {
	for _, n := range f {
		n.Notify(ctx, t)
	}
}
