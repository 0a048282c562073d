package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
)

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Is lets callers test 404 answers against rulestore.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == rulestore.ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to a running daemon.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the daemon at baseURL, e.g. "http://127.0.0.1:8377".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			// /go and /blocked answer with redirects meant for browsers
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

func (c *Client) ListRules(ctx context.Context) ([]RuleJSON, error) {
	var out []RuleJSON
	err := c.do(ctx, http.MethodGet, "/v1/rules", nil, &out)
	return out, err
}

func (c *Client) GetRule(ctx context.Context, id string) (RuleJSON, error) {
	var out RuleJSON
	err := c.do(ctx, http.MethodGet, "/v1/rules/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) AddRule(ctx context.Context, req NewRuleRequest) (RuleJSON, error) {
	var out RuleJSON
	err := c.do(ctx, http.MethodPost, "/v1/rules", req, &out)
	return out, err
}

func (c *Client) SetEnabled(ctx context.Context, id string, enabled bool) (RuleJSON, error) {
	var out RuleJSON
	err := c.do(ctx, http.MethodPatch, "/v1/rules/"+url.PathEscape(id), PatchRuleRequest{Enabled: &enabled}, &out)
	return out, err
}

func (c *Client) DeleteRule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/rules/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Check(ctx context.Context, rawURL string) (DecisionJSON, error) {
	var out DecisionJSON
	err := c.do(ctx, http.MethodGet, "/v1/check?url="+url.QueryEscape(rawURL), nil, &out)
	return out, err
}

func (c *Client) Status(ctx context.Context) (StatusJSON, error) {
	var out StatusJSON
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorJSON
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RequestFor builds the add request that recreates rule on a daemon. It is
// used to import rules loaded from files or extension exports.
func RequestFor(rule domain.SiteRule) NewRuleRequest {
	rj := ruleJSON(rule)
	enabled := rule.Enabled
	return NewRuleRequest{
		Site:        rule.Site,
		Pattern:     rule.Pattern,
		Mode:        rj.Mode,
		Until:       rj.Until,
		Start:       rj.Start,
		End:         rj.End,
		SkipDaysOff: rule.SkipDaysOff,
		Enabled:     &enabled,
	}
}
