package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/gateways/httpapi"
	"github.com/haukened/reclaim/internal/reclaim/services/monitor"
)

var checkCmd = &cobra.Command{
	Use:   "check URL",
	Short: "Ask the daemon whether a URL is blocked right now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := client().Check(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printDecision(cmd.OutOrStdout(), d)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's latest evaluation of every rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := client().Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d rules, store version %d", st.Store.Rules, st.Store.Version)
		if !st.CheckedAt.IsZero() {
			fmt.Fprintf(out, ", checked %s", st.CheckedAt.Local().Format("15:04:05"))
		}
		fmt.Fprintln(out)
		return printStatuses(out, st.Rules)
	},
}

func printStatuses(w io.Writer, statuses []monitor.RuleStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSITE\tSCHEDULE\tACTIVE\tFLIPS IN")
	for _, r := range statuses {
		active := "no"
		switch {
		case !r.Enabled:
			active = "disabled"
		case !r.Enforced:
			active = "day off"
		case r.Active:
			active = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Site, r.Mode, active, remainingText(r.Remaining))
	}
	return tw.Flush()
}

func printDecision(w io.Writer, d httpapi.DecisionJSON) {
	if !d.Blocked || d.Rule == nil {
		fmt.Fprintf(w, "%s is not blocked\n", d.URL)
		return
	}
	fmt.Fprintf(w, "%s is blocked by %s (%s)", d.URL, d.Rule.ID, d.Rule.Schedule)
	if !d.Remaining.IsZero() {
		fmt.Fprintf(w, ", opens in %s", remainingText(d.Remaining))
	}
	fmt.Fprintln(w)
}

// remainingText renders a Remaining as "2h 5m", "45m" or "-" when nothing is pending.
func remainingText(r domain.Remaining) string {
	switch {
	case r.IsZero():
		return "-"
	case r.Hours == 0:
		return fmt.Sprintf("%dm", r.Minutes)
	default:
		return fmt.Sprintf("%dh %dm", r.Hours, r.Minutes)
	}
}
