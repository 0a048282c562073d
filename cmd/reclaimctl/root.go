package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/reclaim/internal/reclaim/gateways/httpapi"
)

const defaultServer = "http://127.0.0.1:8377"

var (
	serverURL     string
	serverTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "reclaimctl",
	Short: "Manage the sites reclaimd blocks",
	Long: `reclaimctl talks to a running reclaimd over HTTP to list, add and toggle
site rules and to check URLs. The eval command works offline on a rule file.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "reclaimd base URL (env RECLAIMCTL_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&serverTimeout, "timeout", 5*time.Second, "request timeout")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(evalCmd)
}

func client() *httpapi.Client {
	return httpapi.NewClient(serverURL, serverTimeout)
}

// defaultServerURL uses RECLAIMCTL_SERVER when set. The daemon owns the
// RECLAIM_ prefix.
func defaultServerURL() string {
	if server := os.Getenv("RECLAIMCTL_SERVER"); server != "" {
		return server
	}
	return defaultServer
}
