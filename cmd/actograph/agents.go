package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/actograph/internal/processor"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect agent-type processor configuration",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the agent-type tags the processor registry recognizes",
	Long: `Lists every agent-type tag registered with the default Processor
Registry. Any tag not listed here still works — it falls through to
the Default Processor — this just shows which types get specialized
context-window handling.`,
	Run: func(cmd *cobra.Command, args []string) {
		r := processor.NewRegistry()
		tags := r.Tags()
		sort.Strings(tags)

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Println(cyan("registered agent types:"))
		for _, t := range tags {
			fmt.Printf("  %s\n", t)
		}
	},
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
	rootCmd.AddCommand(agentsCmd)
}
