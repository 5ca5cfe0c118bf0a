package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/actograph/internal/hostconfig"
	"github.com/steveyegge/actograph/internal/hostlink"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Watch merged activity in real-time",
	Long: `Connects to a running actograph serve instance's push server and prints
every snapshot, delta, and agent-update envelope as it arrives.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		runTail(addr)
	},
}

func init() {
	tailCmd.Flags().String("addr", hostconfig.DefaultConfig().ListenAddr, "address of a running actograph serve instance")
	rootCmd.AddCommand(tailCmd)
}

func runTail(addr string) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "actograph: connecting to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nstopped following")
		conn.Close()
		os.Exit(0)
	}()

	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s following %s (Ctrl+C to stop)\n", cyan("actograph"), addr)

	dec := json.NewDecoder(conn)
	for {
		var env hostlink.Envelope
		if err := dec.Decode(&env); err != nil {
			fmt.Fprintf(os.Stderr, "actograph: stream ended: %v\n", err)
			return
		}
		displayEnvelope(env)
	}
}

func displayEnvelope(env hostlink.Envelope) {
	switch env.Kind {
	case "snapshot":
		fmt.Printf("[snapshot] %+v\n", env.Payload)
	case "delta":
		fmt.Printf("[delta]    %+v\n", env.Payload)
	case "agent_update":
		fmt.Printf("[agents]   %+v\n", env.Payload)
	default:
		fmt.Printf("[%s] %+v\n", env.Kind, env.Payload)
	}
}
