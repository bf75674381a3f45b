// Package cli implements the lastmiled command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lastmiled",
		Short: "Last-mile delivery scheduler - multi-agent negotiation simulator",
		Long: `lastmiled runs scripted last-mile delivery scenarios: orders and couriers
appear over simulated time and negotiate delivery schedules through
price requests, variant scoring and atomic schedule commits.

Examples:
  lastmiled run --orders orders.json --couriers couriers.json --time-stop 100
  lastmiled run --orders orders.json --couriers couriers.json --pace --progress 10
  lastmiled runs --limit 20`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: search ., ./configs, /etc/lastmile)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewRunsCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
