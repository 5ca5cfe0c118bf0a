package processor

import (
	"sync"

	"github.com/steveyegge/actograph/internal/merge"
	"github.com/steveyegge/actograph/internal/wire"
)

// ContextWindowProcessor augments the default normalization with two
// agent-type-specific refinements:
//
//   - burst collapsing: multiple updates to the same path within one raw
//     delta (a characteristic read/write/re-read triple some agents emit
//     as one batched flush) are collapsed into a single NodeUpdate,
//     keeping the maximum heat, the OR of inContext, and the
//     highest-priority action observed at the latest timestamp in the
//     burst.
//   - context staleness: a file is only reported inContext=true if the
//     agent has touched it within contextWindowTurns turns of its most
//     recently observed turn. This configuration is processor-local and
//     is never exposed to the merge core.
//
// Concrete per-agent-type processors are thin configurations of this
// type; they exist so the Registry can select different context-window
// widths per agent type without leaking any of that per-type knowledge
// into internal/merge.
type ContextWindowProcessor struct {
	// ContextWindowTurns is how many turns of inactivity on a path cause
	// inContext to be considered stale for that path. Zero disables
	// staleness tracking (inContext is reported as the agent sent it).
	ContextWindowTurns int

	mu       sync.Mutex
	lastTurn int // the agent's furthest-observed turn counter across all paths
}

var _ Processor = (*ContextWindowProcessor)(nil)

// NewContextWindowProcessor constructs a processor with the given
// context-window width. A width of 0 disables staleness adjustment.
func NewContextWindowProcessor(contextWindowTurns int) *ContextWindowProcessor {
	return &ContextWindowProcessor{ContextWindowTurns: contextWindowTurns}
}

func (p *ContextWindowProcessor) ProcessSnapshot(raw *wire.Snapshot) SnapshotResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, n := range raw.Nodes {
		p.observeTurnLocked(n.TurnAccessed)
	}

	nodes := make(map[string]NodeUpdate, len(raw.Nodes))
	for rawPath, n := range raw.Nodes {
		cp := canonicalize(rawPath)
		state := toState(n.Heat, n.InContext, n.LastAction, n.TimestampMs, n.TurnAccessed)
		state.InContext = state.InContext && p.isFreshLocked(n.TurnAccessed)
		nodes[cp] = NodeUpdate{Path: cp, State: state}
	}
	return SnapshotResult{Seq: raw.Seq, Nodes: nodes}
}

func (p *ContextWindowProcessor) ProcessDelta(raw *wire.Delta) DeltaResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range raw.Updates {
		p.observeTurnLocked(u.TurnAccessed)
	}

	// Group raw updates by canonical path to collapse same-tick bursts,
	// preserving first-seen order for deterministic output ordering.
	order := make([]string, 0, len(raw.Updates))
	bursts := make(map[string][]wire.DeltaUpdate)
	for _, u := range raw.Updates {
		cp := canonicalize(u.Path)
		if _, seen := bursts[cp]; !seen {
			order = append(order, cp)
		}
		bursts[cp] = append(bursts[cp], u)
	}

	updates := make([]NodeUpdate, 0, len(order))
	for _, cp := range order {
		updates = append(updates, NodeUpdate{Path: cp, State: p.collapseBurstLocked(bursts[cp])})
	}

	removed := make([]string, 0, len(raw.Removed))
	for _, r := range raw.Removed {
		removed = append(removed, canonicalize(r))
	}

	return DeltaResult{Seq: raw.Seq, Updates: updates, Removed: removed}
}

func (p *ContextWindowProcessor) ProcessUsage(raw *wire.Usage) map[string]interface{} {
	return raw.Data
}

// collapseBurstLocked reduces repeated same-path observations within one
// delta to a single representative state. Must be called with p.mu held.
func (p *ContextWindowProcessor) collapseBurstLocked(burst []wire.DeltaUpdate) merge.PerAgentFileState {
	var best wire.DeltaUpdate
	haveBest := false
	var maxHeat float64
	inContext := false

	for _, u := range burst {
		if u.Heat > maxHeat {
			maxHeat = u.Heat
		}
		if u.InContext {
			inContext = true
		}
		p.observeTurnLocked(u.TurnAccessed)

		if !haveBest || collapseDominates(u, best) {
			best = u
			haveBest = true
		}
	}

	state := toState(maxHeat, inContext, best.LastAction, best.TimestampMs, best.TurnAccessed)
	state.InContext = state.InContext && p.isFreshLocked(best.TurnAccessed)
	return state
}

func collapseDominates(candidate, leader wire.DeltaUpdate) bool {
	if candidate.TimestampMs != leader.TimestampMs {
		return candidate.TimestampMs > leader.TimestampMs
	}
	return actionPriority(candidate.LastAction) > actionPriority(leader.LastAction)
}

func actionPriority(raw string) int {
	switch raw {
	case "write":
		return 3
	case "search":
		return 2
	default:
		return 1
	}
}

func (p *ContextWindowProcessor) observeTurnLocked(turn int) {
	if turn > p.lastTurn {
		p.lastTurn = turn
	}
}

func (p *ContextWindowProcessor) isFreshLocked(turn int) bool {
	if p.ContextWindowTurns <= 0 {
		return true
	}
	return p.lastTurn-turn <= p.ContextWindowTurns
}
