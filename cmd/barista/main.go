// Command barista runs the workplace Slack assistant: coffee-chat matching,
// timed polls, knowledge-base Q&A, and anonymous feedback.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by the build via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "barista",
		Short:         "Workplace Slack assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(buildServeCmd())
	root.AddCommand(buildImportCmd())
	root.AddCommand(buildVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("barista %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
