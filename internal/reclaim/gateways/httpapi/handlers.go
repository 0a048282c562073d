package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/haukened/reclaim/internal/reclaim/common/utils"
	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
	"github.com/haukened/reclaim/internal/reclaim/services/monitor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validator.New()

// errBadRequest marks client errors that are not domain sentinels.
var errBadRequest = errors.New("bad request")

const maxBodyBytes = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	target, err := targetURL(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.gate.Check(r.Context(), target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.decisionJSON(target, d))
}

// handleGo sends the browser either to the interstitial or on to the URL.
func (s *Server) handleGo(w http.ResponseWriter, r *http.Request) {
	target, err := targetURL(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.gate.Check(r.Context(), target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if d.Blocked {
		http.Redirect(w, r, blockedPath(target), http.StatusFound)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	rules, err := s.rules.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]RuleJSON, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleJSON(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var req NewRuleRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	rule, err := buildRule(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	saved, err := s.rules.Put(rule)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info(map[string]any{"rule_id": saved.ID, "site": saved.Label(), "mode": saved.Mode.String()}, "rule added")
	w.Header().Set("Location", "/v1/rules/"+url.PathEscape(saved.ID))
	writeJSON(w, http.StatusCreated, ruleJSON(saved))
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.rules.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ruleJSON(rule))
}

func (s *Server) handlePatchRule(w http.ResponseWriter, r *http.Request) {
	var req PatchRuleRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	rule, err := s.rules.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	saved, err := s.rules.Put(rule.WithEnabled(*req.Enabled))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info(map[string]any{"rule_id": saved.ID, "enabled": saved.Enabled}, "rule updated")
	writeJSON(w, http.StatusOK, ruleJSON(saved))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.rules.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info(map[string]any{"rule_id": id}, "rule removed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	out := StatusJSON{Store: storeJSON(s.rules.Stats())}
	if s.status != nil {
		out.Rules, out.CheckedAt = s.status.Snapshot()
	}
	if out.Rules == nil {
		out.Rules = []monitor.RuleStatus{}
	}
	writeJSON(w, http.StatusOK, out)
}

// buildRule turns an add request into a validated rule. A missing pattern
// is derived from the site.
func buildRule(req NewRuleRequest) (domain.SiteRule, error) {
	kind := domain.ModeUntilTime
	if req.Mode != "" {
		k, err := domain.ParseModeKind(req.Mode)
		if err != nil {
			return domain.SiteRule{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		kind = k
	}
	mode, err := domain.BuildMode(kind, req.Until, req.Start, req.End)
	if err != nil {
		return domain.SiteRule{}, err
	}
	pattern := strings.TrimSpace(req.Pattern)
	if pattern == "" {
		pattern = utils.DerivePattern(req.Site)
	}
	rule, err := domain.NewSiteRule("", req.Site, pattern, mode, time.Time{})
	if err != nil {
		return domain.SiteRule{}, err
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	rule.SkipDaysOff = req.SkipDaysOff
	return rule, nil
}

func (s *Server) decisionJSON(target string, d domain.BlockDecision) DecisionJSON {
	out := DecisionJSON{URL: target, Blocked: d.Blocked, Remaining: d.Remaining}
	if d.Blocked {
		rule := ruleJSON(d.Rule)
		out.Rule = &rule
		out.SiteLabel = utils.SiteLabel(target)
		out.CountdownSeconds = int64(domain.Countdown(d.Rule, s.clock.Now()) / time.Second)
	}
	return out
}

// targetURL reads the url query parameter. Bare hosts get an http scheme;
// only http and https URLs are accepted.
func targetURL(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		return "", fmt.Errorf("%w: url parameter required", errBadRequest)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid url %q", errBadRequest, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", errBadRequest, u.Scheme)
	}
	return raw, nil
}

func blockedPath(target string) string {
	return "/blocked?url=" + url.QueryEscape(target)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rulestore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidTime),
		errors.Is(err, domain.ErrEmptyPattern),
		errors.Is(err, domain.ErrNoMode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(map[string]any{"error": err}, "request failed")
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorJSON{Error: msg})
}
