package rulestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/haukened/reclaim/internal/reclaim/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is the persisted shape of a rule. It matches the entries of the
// extension's "blockedSites" storage key, where the legacy single-time fields
// and the newer range fields co-exist on one object.
type Record struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Pattern     string `json:"pattern,omitempty"`
	Enabled     bool   `json:"enabled"`
	BlockMode   string `json:"blockMode,omitempty"` // "simple" | "timeRange"
	UnblockTime string `json:"unblockTime,omitempty"`
	BlockStart  string `json:"blockStart,omitempty"`
	BlockEnd    string `json:"blockEnd,omitempty"`
	SkipDaysOff bool   `json:"skipDaysOff,omitempty"`
	CreatedAt   int64  `json:"createdAt,omitempty"` // unix milliseconds
}

// Rule resolves the record into a domain rule. Unparsable times become
// absent, and an unknown block mode leaves the rule without a schedule; both
// evaluate as inactive.
func (rec Record) Rule() domain.SiteRule {
	r := domain.SiteRule{
		ID:          rec.ID,
		Site:        strings.TrimSpace(rec.URL),
		Pattern:     strings.TrimSpace(rec.Pattern),
		Enabled:     rec.Enabled,
		SkipDaysOff: rec.SkipDaysOff,
	}
	if r.Pattern == "" {
		r.Pattern = r.Site
	}
	if rec.CreatedAt > 0 {
		r.CreatedAt = time.UnixMilli(rec.CreatedAt)
	}

	kind := domain.ModeUntilTime
	if rec.BlockMode != "" {
		k, err := domain.ParseModeKind(rec.BlockMode)
		if err != nil {
			return r
		}
		kind = k
	}
	switch kind {
	case domain.ModeDailyRange:
		r.Mode = domain.DailyRange{
			Start: domain.ParseOptionalTimeOfDay(rec.BlockStart),
			End:   domain.ParseOptionalTimeOfDay(rec.BlockEnd),
		}
	default:
		r.Mode = domain.UntilTime{At: domain.ParseOptionalTimeOfDay(rec.UnblockTime)}
	}
	return r
}

// RecordOf converts a domain rule into its persisted shape.
func RecordOf(r domain.SiteRule) Record {
	rec := Record{
		ID:          r.ID,
		URL:         r.Site,
		Pattern:     r.Pattern,
		Enabled:     r.Enabled,
		SkipDaysOff: r.SkipDaysOff,
	}
	if !r.CreatedAt.IsZero() {
		rec.CreatedAt = r.CreatedAt.UnixMilli()
	}
	switch m := r.Mode.(type) {
	case domain.UntilTime:
		rec.BlockMode = "simple"
		rec.UnblockTime = timeString(m.At)
	case domain.DailyRange:
		rec.BlockMode = "timeRange"
		rec.BlockStart = timeString(m.Start)
		rec.BlockEnd = timeString(m.End)
	}
	return rec
}

func timeString(t *domain.TimeOfDay) string {
	if t == nil || !t.Valid() {
		return ""
	}
	return t.String()
}

// EncodeRule serializes a rule for storage.
func EncodeRule(r domain.SiteRule) ([]byte, error) {
	return json.Marshal(RecordOf(r))
}

// DecodeRule deserializes a stored rule.
func DecodeRule(b []byte) (domain.SiteRule, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return domain.SiteRule{}, fmt.Errorf("decode rule: %w", err)
	}
	return rec.Rule(), nil
}

// DecodeLegacyExport reads an export of the extension's storage: either the
// bare "blockedSites" array or an object holding it.
func DecodeLegacyExport(b []byte) ([]domain.SiteRule, error) {
	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		var wrapped struct {
			BlockedSites []Record `json:"blockedSites"`
		}
		if err2 := json.Unmarshal(b, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode export: %w", err)
		}
		recs = wrapped.BlockedSites
	}
	rules := make([]domain.SiteRule, 0, len(recs))
	for _, rec := range recs {
		rules = append(rules, rec.Rule())
	}
	return rules, nil
}

// NewID returns a random opaque rule identifier.
func NewID() string {
	return uuid.NewString()
}
