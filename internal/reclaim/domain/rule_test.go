package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSiteRule_Valid(t *testing.T) {
	now := time.Now()
	r, err := NewSiteRule(" id1 ", "youtube.com", "*://*.youtube.com/*", Until(MustTimeOfDay(18, 0)), now)
	require.NoError(t, err)
	assert.Equal(t, "id1", r.ID)
	assert.Equal(t, "youtube.com", r.Site)
	assert.Equal(t, "*://*.youtube.com/*", r.Pattern)
	assert.True(t, r.Enabled)
	assert.Equal(t, ModeUntilTime, r.Mode.Kind())
	assert.Equal(t, now, r.CreatedAt)
}

func TestNewSiteRule_PatternFallsBackToSite(t *testing.T) {
	r, err := NewSiteRule("", "reddit.com", "", Daily(MustTimeOfDay(8, 0), MustTimeOfDay(19, 0)), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "reddit.com", r.Pattern)
}

func TestNewSiteRule_Invalid(t *testing.T) {
	now := time.Now()

	_, err := NewSiteRule("", "", "", Until(MustTimeOfDay(1, 0)), now)
	assert.True(t, errors.Is(err, ErrEmptyPattern), "expected ErrEmptyPattern, got %v", err)

	_, err = NewSiteRule("", "a.com", "", nil, now)
	assert.ErrorIs(t, err, ErrNoMode)

	_, err = NewSiteRule("", "a.com", "", UntilTime{}, now)
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = NewSiteRule("", "a.com", "", DailyRange{Start: ptr(MustTimeOfDay(1, 0))}, now)
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = NewSiteRule("", "a.com", "", DailyRange{Start: &TimeOfDay{Hour: 30}, End: ptr(MustTimeOfDay(1, 0))}, now)
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestSiteRule_LabelAndWithEnabled(t *testing.T) {
	r := SiteRule{Pattern: "*.x.com*", Enabled: true}
	assert.Equal(t, "*.x.com*", r.Label())
	r.Site = "x.com"
	assert.Equal(t, "x.com", r.Label())

	off := r.WithEnabled(false)
	assert.False(t, off.Enabled)
	assert.True(t, r.Enabled, "WithEnabled must not mutate the receiver")
}
