package httpapi

import (
	"time"

	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
	"github.com/haukened/reclaim/internal/reclaim/services/monitor"
)

// RuleJSON is the wire form of a rule.
type RuleJSON struct {
	ID          string    `json:"id"`
	Site        string    `json:"site"`
	Pattern     string    `json:"pattern"`
	Enabled     bool      `json:"enabled"`
	Mode        string    `json:"mode,omitempty"` // "until" | "range"
	Until       string    `json:"until,omitempty"`
	Start       string    `json:"start,omitempty"`
	End         string    `json:"end,omitempty"`
	Schedule    string    `json:"schedule,omitempty"`
	SkipDaysOff bool      `json:"skipDaysOff"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewRuleRequest is the body of POST /v1/rules. Mode defaults to "until";
// the times it needs are checked when the schedule is built.
type NewRuleRequest struct {
	Site        string `json:"site" validate:"required_without=Pattern"`
	Pattern     string `json:"pattern"`
	Mode        string `json:"mode" validate:"omitempty,oneof=until simple range timeRange"`
	Until       string `json:"until"`
	Start       string `json:"start"`
	End         string `json:"end"`
	SkipDaysOff bool   `json:"skipDaysOff"`
	Enabled     *bool  `json:"enabled"`
}

// PatchRuleRequest is the body of PATCH /v1/rules/{id}.
type PatchRuleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// DecisionJSON is the answer of GET /v1/check.
type DecisionJSON struct {
	URL              string           `json:"url"`
	Blocked          bool             `json:"blocked"`
	SiteLabel        string           `json:"siteLabel,omitempty"`
	Rule             *RuleJSON        `json:"rule,omitempty"`
	Remaining        domain.Remaining `json:"remaining"`
	CountdownSeconds int64            `json:"countdownSeconds"`
}

// StatusJSON is the answer of GET /v1/status.
type StatusJSON struct {
	CheckedAt time.Time            `json:"checkedAt"`
	Rules     []monitor.RuleStatus `json:"rules"`
	Store     StoreJSON            `json:"store"`
}

type StoreJSON struct {
	Rules   uint64    `json:"rules"`
	Version uint64    `json:"version"`
	Updated time.Time `json:"updated"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// ruleJSON converts a domain rule to its wire form.
func ruleJSON(r domain.SiteRule) RuleJSON {
	out := RuleJSON{
		ID:          r.ID,
		Site:        r.Site,
		Pattern:     r.Pattern,
		Enabled:     r.Enabled,
		SkipDaysOff: r.SkipDaysOff,
		CreatedAt:   r.CreatedAt,
	}
	switch m := r.Mode.(type) {
	case domain.UntilTime:
		out.Mode = m.Kind().String()
		out.Until = timeText(m.At)
	case domain.DailyRange:
		out.Mode = m.Kind().String()
		out.Start = timeText(m.Start)
		out.End = timeText(m.End)
	}
	if r.Mode != nil {
		out.Schedule = r.Mode.String()
	}
	return out
}

func timeText(t *domain.TimeOfDay) string {
	if t == nil || !t.Valid() {
		return ""
	}
	return t.String()
}

func storeJSON(st rulestore.StoreStats) StoreJSON {
	out := StoreJSON{Rules: st.Rules, Version: st.Version}
	if st.UpdatedUnix > 0 {
		out.Updated = time.Unix(st.UpdatedUnix, 0).UTC()
	}
	return out
}
