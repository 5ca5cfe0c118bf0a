// Package console is an interactive debug shell over a running
// orchestrator, adapted from the project's natural-language REPL: same
// readline/history/signal-handling shape, but slash commands query
// orchestrator state directly instead of dispatching to an AI
// conversation handler.
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/steveyegge/actograph/internal/orchestrator"
)

// Console is the interactive debug shell.
type Console struct {
	orch *orchestrator.Orchestrator
	rl   *readline.Instance
}

// New creates a Console bound to a running orchestrator.
func New(orch *orchestrator.Orchestrator) *Console {
	return &Console{orch: orch}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".actograph")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, "console_history")
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("/agents"),
		readline.PcItem("/nodes"),
		readline.PcItem("/snapshot"),
		readline.PcItem("/help"),
		readline.PcItem("/quit"),
		readline.PcItem("/exit"),
	)
}

// Run starts the read-eval-print loop. It returns when the user exits or
// the input stream closes.
func (c *Console) Run() error {
	cyan := color.New(color.FgCyan).SprintFunc()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("actograph> "),
		HistoryFile:       historyPath(),
		HistoryLimit:      1000,
		AutoComplete:      completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("console: creating readline: %w", err)
	}
	c.rl = rl
	defer rl.Close()

	c.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Println("goodbye")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := c.dispatch(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("error:"), err)
		}
	}
}

func (c *Console) dispatch(line string) error {
	switch line {
	case "/quit", "/exit":
		return io.EOF
	case "/help":
		c.printHelp()
		return nil
	case "/agents":
		c.printAgents()
		return nil
	case "/nodes", "/snapshot":
		c.printSnapshot()
		return nil
	default:
		return fmt.Errorf("unrecognized command %q (try /help)", line)
	}
}

func (c *Console) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Println()
	fmt.Println(cyan("actograph debug console"))
	fmt.Println("type /help for commands")
	fmt.Println()
}

func (c *Console) printHelp() {
	fmt.Println("/agents    list connected agents")
	fmt.Println("/nodes     dump the current merged file view")
	fmt.Println("/snapshot  alias for /nodes")
	fmt.Println("/quit      leave the console")
}

func (c *Console) printAgents() {
	snap := c.orch.GetMergedSnapshot()
	if len(snap.Agents) == 0 {
		fmt.Println("no agents connected")
		return
	}
	for _, a := range snap.Agents {
		status := "connected"
		if !a.Connected {
			status = "disconnected"
		}
		fmt.Printf("  %-16s %-14s %-12s %s\n", a.DisplayName, a.AgentType, status, a.Color)
	}
}

func (c *Console) printSnapshot() {
	snap := c.orch.GetMergedSnapshot()
	if len(snap.Nodes) == 0 {
		fmt.Println("no files tracked")
		return
	}
	sorted := append([]orchestrator.NodeSummary(nil), snap.Nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	for _, n := range sorted {
		fmt.Printf("  %-40s heat=%.2f inContext=%-5t last=%s (%s)\n",
			n.Path, n.Heat, n.InContext, n.LastAction, n.LastActionAgentID)
	}
}
