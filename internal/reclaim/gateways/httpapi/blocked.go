package httpapi

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/haukened/reclaim/internal/reclaim/common/utils"
	"github.com/haukened/reclaim/internal/reclaim/domain"
)

// maxRefresh is how often the interstitial reloads while a long block runs.
const maxRefresh = 60

var blockedPage = template.Must(template.New("blocked").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.Refresh}}">
<title>{{.SiteLabel}} is blocked</title>
</head>
<body>
<main>
<h1>{{.SiteLabel}} is blocked</h1>
<p class="rule">{{.RuleName}}: {{.Schedule}}</p>
{{if .Countdown}}<p class="countdown">Opens in <time>{{.Countdown}}</time></p>{{end}}
<p class="target">{{.URL}}</p>
</main>
</body>
</html>
`))

type blockedView struct {
	SiteLabel string
	RuleName  string
	Schedule  string
	Countdown string
	Refresh   int
	URL       string
}

// handleBlocked renders the interstitial for a held URL, or sends the browser
// back to it once the block has lifted.
func (s *Server) handleBlocked(w http.ResponseWriter, r *http.Request) {
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
	if !d.Blocked {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	view := newBlockedView(target, d, s.clock.Now())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := blockedPage.Execute(w, view); err != nil {
		s.logger.Error(map[string]any{"error": err}, "render blocked page")
	}
}

func newBlockedView(target string, d domain.BlockDecision, now time.Time) blockedView {
	v := blockedView{
		SiteLabel: utils.SiteLabel(target),
		RuleName:  utils.DisplayName(d.Rule.Label()),
		Schedule:  scheduleText(d.Rule.Mode),
		Refresh:   maxRefresh,
		URL:       target,
	}
	left := domain.Countdown(d.Rule, now)
	if left > 0 {
		v.Countdown = clockText(left)
		if secs := int(left/time.Second) + 1; secs < maxRefresh {
			v.Refresh = secs
		}
	}
	return v
}

// scheduleText describes when a rule blocks.
func scheduleText(m domain.Mode) string {
	switch m := m.(type) {
	case domain.UntilTime:
		return "blocked until " + timeText(m.At)
	case domain.DailyRange:
		if m.FullDay() {
			return "blocked all day"
		}
		return fmt.Sprintf("blocked daily %s to %s", timeText(m.Start), timeText(m.End))
	default:
		return "blocked"
	}
}

// clockText formats d as HH:MM:SS.
func clockText(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
