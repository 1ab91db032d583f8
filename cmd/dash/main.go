package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dash",
		Short:         "Dash task and reminder notifier",
		Long:          "Dash serves the task board API and posts task and reminder notifications to Discord.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newSummaryCommand())
	rootCmd.AddCommand(newArchiveCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dash: %v\n", err)
		os.Exit(1)
	}
}
