package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
	"github.com/haukened/reclaim/internal/reclaim/services/gate"
	"github.com/haukened/reclaim/internal/reclaim/services/monitor"
)

type fixture struct {
	srv   *Server
	store rulestore.Store
	clk   *clock.MockClock
	mon   *monitor.Monitor
}

// newFixture serves a memory store holding one 09:00-17:00 rule for
// youtube.com, with the clock at Friday 2025-08-01 10:00:30.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock.MockClock{CurrentTime: time.Date(2025, 8, 1, 10, 0, 30, 0, time.UTC)}
	store, err := rulestore.NewMemory(clk, domain.SiteRule{
		ID: "work", Site: "youtube.com", Pattern: "*://*.youtube.com/*", Enabled: true,
		Mode: domain.Daily(domain.MustTimeOfDay(9, 0), domain.MustTimeOfDay(17, 0)),
	})
	require.NoError(t, err)
	g := gate.New(gate.Options{Rules: store, Clock: clk})
	mon := monitor.New(monitor.Options{Rules: store, Clock: clk})
	srv := New(Options{Addr: "127.0.0.1:0", Gate: g, Rules: store, Status: mon, Clock: clk})
	return &fixture{srv: srv, store: store, clk: clk, mon: mon}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCheck(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/check?url=https://www.youtube.com/watch?v%3D1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	d := decode[DecisionJSON](t, rec)
	assert.True(t, d.Blocked)
	assert.Equal(t, "youtube.com", d.SiteLabel)
	require.NotNil(t, d.Rule)
	assert.Equal(t, "work", d.Rule.ID)
	assert.Equal(t, "range", d.Rule.Mode)
	assert.Equal(t, domain.Remaining{Hours: 7, TotalMinutes: 420}, d.Remaining)
	assert.Equal(t, int64(7*3600-30), d.CountdownSeconds)

	rec = f.do(t, http.MethodGet, "/v1/check?url=golang.org", "")
	require.Equal(t, http.StatusOK, rec.Code)
	d = decode[DecisionJSON](t, rec)
	assert.False(t, d.Blocked)
	assert.Equal(t, "http://golang.org", d.URL)
	assert.Nil(t, d.Rule)
}

func TestCheck_BadURL(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{
		"/v1/check",
		"/v1/check?url=",
		"/v1/check?url=ftp://example.com/",
		"/v1/check?url=javascript://alert(1)",
	} {
		rec := f.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, decode[errorJSON](t, rec).Error, "bad request")
	}
}

func TestGo_Redirects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/go?url=https://www.youtube.com/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/blocked?url=https%3A%2F%2Fwww.youtube.com%2F", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/go?url=https://golang.org/doc", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://golang.org/doc", rec.Header().Get("Location"))
}

func TestBlocked_RendersAndReleases(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/blocked?url=https%3A%2F%2Fm.youtube.com%2F", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "youtube.com is blocked")
	assert.Contains(t, body, "blocked daily 09:00 to 17:00")
	assert.Contains(t, body, "06:59:30")
	assert.Contains(t, body, `content="60"`)

	f.clk.Set(time.Date(2025, 8, 1, 16, 59, 20, 0, time.UTC))
	rec = f.do(t, http.MethodGet, "/blocked?url=https%3A%2F%2Fm.youtube.com%2F", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "00:00:40")
	assert.Contains(t, rec.Body.String(), `content="41"`)

	f.clk.Set(time.Date(2025, 8, 1, 17, 0, 0, 0, time.UTC))
	rec = f.do(t, http.MethodGet, "/blocked?url=https%3A%2F%2Fm.youtube.com%2F", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://m.youtube.com/", rec.Header().Get("Location"))
}

func TestRules_CRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/rules", `{"site":"reddit.com","mode":"timeRange","start":"23:00","end":"02:00","skipDaysOff":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[RuleJSON](t, rec)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "/v1/rules/"+added.ID, rec.Header().Get("Location"))
	assert.Equal(t, "*://*.reddit.com/*", added.Pattern)
	assert.Equal(t, "range", added.Mode)
	assert.Equal(t, "23:00", added.Start)
	assert.Equal(t, "02:00", added.End)
	assert.True(t, added.Enabled)
	assert.True(t, added.SkipDaysOff)

	rec = f.do(t, http.MethodGet, "/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]RuleJSON](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "work", list[0].ID)
	assert.Equal(t, added.ID, list[1].ID)

	rec = f.do(t, http.MethodPatch, "/v1/rules/work", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[RuleJSON](t, rec).Enabled)

	rec = f.do(t, http.MethodGet, "/v1/check?url=https://www.youtube.com/", "")
	assert.False(t, decode[DecisionJSON](t, rec).Blocked, "disabled rule no longer blocks")

	rec = f.do(t, http.MethodGet, "/v1/rules/work", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "09:00-17:00", decode[RuleJSON](t, rec).Schedule)

	rec = f.do(t, http.MethodDelete, "/v1/rules/work", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = f.do(t, method, "/v1/rules/work", "")
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
	rec = f.do(t, http.MethodPatch, "/v1/rules/work", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRules_AddDefaultsAndErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/rules", `{"site":"news","until":"18:00","enabled":false}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[RuleJSON](t, rec)
	assert.Equal(t, "*://*news*/*", added.Pattern)
	assert.Equal(t, "until", added.Mode)
	assert.Equal(t, "18:00", added.Until)
	assert.False(t, added.Enabled)

	bad := []string{
		``,
		`{`,
		`{"site":"a.com","until":"18:00","extra":1}`,
		`{"until":"18:00"}`,
		`{"site":"a.com","mode":"weekly","until":"18:00"}`,
		`{"site":"a.com"}`,
		`{"site":"a.com","until":"24:00"}`,
		`{"site":"a.com","mode":"range","start":"09:00"}`,
	}
	for _, body := range bad {
		rec := f.do(t, http.MethodPost, "/v1/rules", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec = f.do(t, http.MethodPatch, "/v1/rules/work", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.mon.Tick(context.Background())
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StatusJSON](t, rec)
	require.Len(t, st.Rules, 1)
	assert.True(t, st.Rules[0].Active)
	assert.Equal(t, uint64(1), st.Store.Rules)
	assert.Equal(t, uint64(1), st.Store.Version)
	assert.True(t, st.CheckedAt.Equal(f.clk.Now()))

	noMon := New(Options{Rules: f.store})
	rr := httptest.NewRecorder()
	noMon.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"rules":[]`)
}

type failingStore struct{ rulestore.Store }

func (failingStore) List() ([]domain.SiteRule, error) { return nil, errors.New("disk on fire") }

func TestInternalErrorsAreHidden(t *testing.T) {
	srv := New(Options{Gate: gate.New(gate.Options{Rules: failingStore{}}), Rules: failingStore{}})

	for _, target := range []string{"/v1/rules", "/v1/check?url=https://a.com/"} {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code, target)
		assert.NotContains(t, rr.Body.String(), "disk on fire")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/v1/rules/work", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.srv.Start(ctx))
	assert.Error(t, f.srv.Start(ctx), "second start fails")
	addr := f.srv.Address()
	assert.NotEqual(t, "127.0.0.1:0", addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, f.srv.Stop())
	require.NoError(t, f.srv.Stop())
	assert.Equal(t, "127.0.0.1:0", f.srv.Address())
}

func TestServer_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.srv.Start(ctx))
	addr := f.srv.Address()

	cancel()
	require.Eventually(t, func() bool { return f.srv.Address() != addr }, time.Second, 5*time.Millisecond)
}

func TestServer_StartBadAddress(t *testing.T) {
	srv := New(Options{Addr: "256.0.0.1:99999"})
	assert.Error(t, srv.Start(context.Background()))
}

func TestClockText(t *testing.T) {
	assert.Equal(t, "00:00:00", clockText(0))
	assert.Equal(t, "01:02:03", clockText(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "23:59:59", clockText(24*time.Hour-time.Second))
}

func TestScheduleText(t *testing.T) {
	assert.Equal(t, "blocked until 18:00", scheduleText(domain.Until(domain.MustTimeOfDay(18, 0))))
	assert.Equal(t, "blocked all day", scheduleText(domain.Daily(domain.MustTimeOfDay(0, 0), domain.MustTimeOfDay(0, 0))))
	assert.Equal(t, "blocked", scheduleText(nil))
}
