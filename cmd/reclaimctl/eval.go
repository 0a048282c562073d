package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/config"
	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulefile"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
	"github.com/haukened/reclaim/internal/reclaim/services/gate"
	"github.com/haukened/reclaim/internal/reclaim/services/monitor"
)

var (
	evalRules string
	evalAt    string
	evalDate  string
	evalURL   string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a rule file offline at a given time",
	Example: `  reclaimctl eval --rules focus.yaml --at 23:30
  reclaimctl eval --rules blockedSites.json --date 2025-08-02 --at 10:00 --url https://www.youtube.com/`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalRules, "rules", "", "rule file (YAML, JSON, TOML or an extension export)")
	evalCmd.Flags().StringVar(&evalAt, "at", "", "time of day HH:MM (default now)")
	evalCmd.Flags().StringVar(&evalDate, "date", "", "date YYYY-MM-DD (default today)")
	evalCmd.Flags().StringVar(&evalURL, "url", "", "also decide this URL")
	_ = evalCmd.MarkFlagRequired("rules")
}

func runEval(cmd *cobra.Command, _ []string) error {
	now, err := evalTime(time.Now(), evalDate, evalAt)
	if err != nil {
		return err
	}
	rules, err := loadRules(evalRules)
	if err != nil {
		return err
	}
	calendar, err := domain.NewDaysOff(config.DEFAULT_APP_CONFIG.Gate.Holidays)
	if err != nil {
		return err
	}

	clk := clock.FixedClock(now)
	store, err := rulestore.NewMemory(clk, rules...)
	if err != nil {
		return err
	}
	defer store.Close()

	mon := monitor.New(monitor.Options{Rules: store, Calendar: calendar, Clock: clk})
	if _, err := mon.Tick(cmd.Context()); err != nil {
		return err
	}
	statuses, _ := mon.Snapshot()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s, %d rules\n", now.Format("Mon 2006-01-02 15:04"), len(statuses))
	if err := printStatuses(out, statuses); err != nil {
		return err
	}
	if evalURL == "" {
		return nil
	}

	g := gate.New(gate.Options{Rules: store, Calendar: calendar, Clock: clk})
	d, err := g.Check(cmd.Context(), evalURL)
	if err != nil {
		return err
	}
	if !d.Blocked {
		fmt.Fprintf(out, "%s is not blocked\n", evalURL)
		return nil
	}
	fmt.Fprintf(out, "%s is blocked by %s (%s)", evalURL, d.Rule.ID, d.Rule.Mode)
	if !d.Remaining.IsZero() {
		fmt.Fprintf(out, ", opens in %s", remainingText(d.Remaining))
	}
	fmt.Fprintln(out)
	return nil
}

// evalTime combines optional date and time-of-day flags with now, in now's location.
func evalTime(now time.Time, date, at string) (time.Time, error) {
	if date != "" {
		d, err := time.ParseInLocation(domain.DateLayout, date, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date: %w", err)
		}
		now = time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), 0, now.Location())
	}
	if at != "" {
		tod, err := domain.ParseTimeOfDay(at)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --at: %w", err)
		}
		now = tod.On(now)
	}
	return now, nil
}

// loadRules reads a rule file, falling back to the extension export format
// for JSON files without a rules list.
func loadRules(path string) ([]domain.SiteRule, error) {
	rules, err := rulefile.LoadFile(path)
	if err == nil || !strings.EqualFold(filepath.Ext(path), ".json") {
		return rules, err
	}
	buf, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, err
	}
	legacy, legacyErr := rulestore.DecodeLegacyExport(buf)
	if legacyErr != nil {
		return nil, err
	}
	return legacy, nil
}
