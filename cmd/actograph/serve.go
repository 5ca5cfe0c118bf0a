package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/actograph/internal/agentconn"
	"github.com/steveyegge/actograph/internal/batcher"
	"github.com/steveyegge/actograph/internal/hostconfig"
	"github.com/steveyegge/actograph/internal/hostlink"
	"github.com/steveyegge/actograph/internal/orchestrator"
	"github.com/steveyegge/actograph/internal/processor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestrator and push server",
	Long: `Starts the agent orchestrator, wires its merged snapshots and deltas
through the outbound batcher, and pushes the batched result to every
connected front-end over the hostlink push server.

Agents are registered at startup via repeated --agent flags in
type:port form, e.g. --agent cursor:9001 --agent claude-code:9002.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		agents, _ := cmd.Flags().GetStringArray("agent")
		runServe(configPath, agents)
	},
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "path to a YAML host config file")
	serveCmd.Flags().StringArray("agent", nil, "agent to register at startup, type:port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(configPath string, agentSpecs []string) {
	cfg := loadConfigOrExit(configPath)

	link := hostlink.NewServer(cfg.ListenAddr)
	if err := link.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "actograph: %v\n", err)
		os.Exit(1)
	}
	defer link.Stop()

	batch := batcher.New(cfg.BatchWindow, func(d orchestrator.Delta) {
		link.Broadcast("delta", d)
	})
	defer batch.Dispose()

	yellow := color.New(color.FgYellow).SprintFunc()
	orch := orchestrator.New(processor.NewRegistry(), orchestrator.Callbacks{
		OnMergedSnapshot: func(s orchestrator.Snapshot) {
			link.Broadcast("snapshot", s)
		},
		OnMergedDelta: func(d orchestrator.Delta) {
			batch.Receive(d)
		},
		OnAgentUpdate: func(infos []agentconn.Info) {
			link.Broadcast("agent_update", infos)
			for _, info := range infos {
				if !info.Connected {
					fmt.Printf("%s agent %s disconnected\n", yellow("!"), info.DisplayName)
				}
			}
		},
	}, nil)
	defer orch.Dispose()
	orch.SetHighWaterBytes(cfg.SocketHighWaterBytes)
	if len(cfg.PaletteOverride) > 0 {
		orch.SetPalette(cfg.PaletteOverride)
	}

	for _, spec := range agentSpecs {
		agentType, port, err := parseAgentSpec(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "actograph: skipping --agent %q: %v\n", spec, err)
			continue
		}
		orch.AddAgent(uuid.NewString(), agentType, port)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s actograph serving on %s (batch window %v, %d agent(s))\n",
		green("actograph"), cfg.ListenAddr, cfg.BatchWindow, orch.AgentCount())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nactograph: shutting down")
}

func loadConfigOrExit(configPath string) hostconfig.Config {
	if configPath == "" {
		return hostconfig.DefaultConfig()
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "actograph: reading config %s: %v\n", configPath, err)
		os.Exit(1)
	}
	cfg, err := hostconfig.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "actograph: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// parseAgentSpec parses a "type:port" --agent flag value.
func parseAgentSpec(spec string) (agentType string, port int, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("expected type:port")
	}
	port, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", parts[1], err)
	}
	return parts[0], port, nil
}
