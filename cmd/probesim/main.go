// Command probesim speaks the inbound wire protocol as a loopback TCP
// server, simulating a coding-agent introspection probe for
// exercising the orchestrator end-to-end without a real agent attached.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	port := flag.Int("port", 9001, "loopback TCP port to listen on")
	agentID := flag.String("agent-id", "probesim-1", "agent_id field sent on the wire")
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between simulated deltas")
	files := flag.Int("files", 5, "number of distinct file paths to simulate activity over")
	flag.Parse()

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", *port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "probesim: listen: %v\n", err)
		os.Exit(1)
	}
	defer listener.Close()

	fmt.Printf("probesim: listening on %s as agent %q\n", listener.Addr(), *agentID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		connCh <- conn
	}()

	select {
	case <-sigCh:
		fmt.Println("\nprobesim: stopped before connect")
		return
	case conn := <-connCh:
		defer conn.Close()
		fmt.Println("probesim: orchestrator connected")
		runSession(conn, *agentID, *interval, *files, sigCh)
	}
}

func runSession(conn net.Conn, agentID string, interval time.Duration, fileCount int, sigCh chan os.Signal) {
	paths := make([]string, fileCount)
	for i := range paths {
		paths[i] = fmt.Sprintf("pkg/file_%02d.go", i)
	}

	enc := json.NewEncoder(conn)
	seq := 0

	seq++
	if err := enc.Encode(initialSnapshot(agentID, seq, paths)); err != nil {
		fmt.Fprintf(os.Stderr, "probesim: write snapshot: %v\n", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	turn := 0
	for {
		select {
		case <-sigCh:
			fmt.Println("\nprobesim: stopped")
			return
		case <-ticker.C:
			turn++
			seq++
			delta := randomDelta(agentID, seq, turn, paths)
			if err := enc.Encode(delta); err != nil {
				fmt.Fprintf(os.Stderr, "probesim: write delta: %v\n", err)
				return
			}
		}
	}
}

func initialSnapshot(agentID string, seq int, paths []string) map[string]interface{} {
	nodes := make(map[string]interface{}, len(paths))
	for _, p := range paths {
		nodes[p] = map[string]interface{}{
			"heat":          0.1,
			"in_context":    false,
			"last_action":   "read",
			"timestamp_ms":  nowMs(),
			"turn_accessed": 0,
		}
	}
	return map[string]interface{}{
		"type":     "snapshot",
		"seq":      seq,
		"agent_id": agentID,
		"nodes":    nodes,
	}
}

var actions = []string{"read", "write", "search"}

func randomDelta(agentID string, seq, turn int, paths []string) map[string]interface{} {
	path := paths[rand.Intn(len(paths))]
	update := map[string]interface{}{
		"path":          path,
		"heat":          rand.Float64(),
		"in_context":    rand.Intn(2) == 0,
		"last_action":   actions[rand.Intn(len(actions))],
		"timestamp_ms":  nowMs(),
		"turn_accessed": turn,
	}
	return map[string]interface{}{
		"type":     "delta",
		"seq":      seq,
		"agent_id": agentID,
		"updates":  []interface{}{update},
		"removed":  []string{},
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
