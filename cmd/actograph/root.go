package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "actograph",
	Short: "Aggregate live file-activity from coding-agent probes",
	Long: `actograph runs an orchestrator that connects to one or more coding-agent
introspection probes, merges their per-file observations with a
conflict-free merge core, and pushes a batched, coalesced view to a
front-end.`,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
