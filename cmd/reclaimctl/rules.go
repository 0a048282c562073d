package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haukened/reclaim/internal/reclaim/gateways/httpapi"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
)

var (
	addPattern     string
	addUntil       string
	addStart       string
	addEnd         string
	addSkipDaysOff bool
	addDisabled    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List site rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rules, err := client().ListRules(cmd.Context())
		if err != nil {
			return err
		}
		printRules(cmd.OutOrStdout(), rules)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add SITE",
	Short: "Block a site until a time today or inside a daily window",
	Example: `  reclaimctl add youtube.com --until 18:00
  reclaimctl add reddit --start 23:00 --end 07:00 --skip-days-off`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := addRequest(args[0])
		if err != nil {
			return err
		}
		rule, err := client().AddRule(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) %s\n", rule.ID, rule.Pattern, rule.Schedule)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addPattern, "pattern", "", "URL glob; derived from SITE when empty")
	addCmd.Flags().StringVar(&addUntil, "until", "", "block until HH:MM today")
	addCmd.Flags().StringVar(&addStart, "start", "", "daily window start HH:MM")
	addCmd.Flags().StringVar(&addEnd, "end", "", "daily window end HH:MM")
	addCmd.Flags().BoolVar(&addSkipDaysOff, "skip-days-off", false, "do not block on weekends and holidays")
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "add the rule disabled")
}

// addRequest builds the request from the add flags.
func addRequest(site string) (httpapi.NewRuleRequest, error) {
	enabled := !addDisabled
	req := httpapi.NewRuleRequest{
		Site:        site,
		Pattern:     addPattern,
		SkipDaysOff: addSkipDaysOff,
		Enabled:     &enabled,
	}
	switch {
	case addUntil != "" && (addStart != "" || addEnd != ""):
		return req, fmt.Errorf("use either --until or --start/--end")
	case addUntil != "":
		req.Mode, req.Until = "until", addUntil
	case addStart != "" && addEnd != "":
		req.Mode, req.Start, req.End = "range", addStart, addEnd
	default:
		return req, fmt.Errorf("one of --until or --start and --end is required")
	}
	return req, nil
}

var enableCmd = &cobra.Command{
	Use:   "enable ID",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], true) },
}

var disableCmd = &cobra.Command{
	Use:   "disable ID",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], false) },
}

func setEnabled(cmd *cobra.Command, id string, enabled bool) error {
	rule, err := client().SetEnabled(cmd.Context(), id, enabled)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rule.ID, enabledText(rule.Enabled))
	return nil
}

var removeCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete a rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().DeleteRule(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import the blockedSites export of the browser extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		rules, err := rulestore.DecodeLegacyExport(buf)
		if err != nil {
			return err
		}
		c := client()
		imported := 0
		for _, r := range rules {
			// records with unparsable times never block; leave them behind
			if err := r.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", r.Label(), err)
				continue
			}
			if _, err := c.AddRule(cmd.Context(), httpapi.RequestFor(r)); err != nil {
				return fmt.Errorf("import %s: %w", r.Label(), err)
			}
			imported++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d rules\n", imported, len(rules))
		return nil
	},
}

func printRules(w io.Writer, rules []httpapi.RuleJSON) {
	if len(rules) == 0 {
		fmt.Fprintln(w, "No rules.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tSCHEDULE\tDAYS OFF\tSITE\tPATTERN")
	for _, r := range rules {
		daysOff := "block"
		if r.SkipDaysOff {
			daysOff = "skip"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, enabledText(r.Enabled), r.Schedule, daysOff, r.Site, r.Pattern)
	}
	_ = tw.Flush()
}

func enabledText(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
