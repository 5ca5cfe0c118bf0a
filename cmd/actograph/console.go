package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/actograph/internal/console"
	"github.com/steveyegge/actograph/internal/orchestrator"
	"github.com/steveyegge/actograph/internal/processor"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start an interactive debug shell over a fresh orchestrator",
	Long: `Starts a standalone orchestrator (not the one behind "serve") and an
interactive readline shell for inspecting its merged state — useful
for exercising probes directly without a front-end.`,
	Run: func(cmd *cobra.Command, args []string) {
		agents, _ := cmd.Flags().GetStringArray("agent")
		runConsole(agents)
	},
}

func init() {
	consoleCmd.Flags().StringArray("agent", nil, "agent to register at startup, type:port")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(agentSpecs []string) {
	orch := orchestrator.New(processor.NewRegistry(), orchestrator.Callbacks{}, nil)
	defer orch.Dispose()

	for _, spec := range agentSpecs {
		agentType, port, err := parseAgentSpec(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "actograph: skipping --agent %q: %v\n", spec, err)
			continue
		}
		orch.AddAgent(uuid.NewString(), agentType, port)
	}

	if err := console.New(orch).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "actograph: console: %v\n", err)
		os.Exit(1)
	}
}
