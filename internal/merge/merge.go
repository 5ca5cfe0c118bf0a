// Package merge implements the conflict-free merge core: a pure module of
// three operations over a Merged File Node, plus its derivation function.
//
// Everything in this package is deliberately side-effect free. No field of
// the derived view is ever written except by recompute; no operation here
// performs I/O, logging, or locking — callers (internal/orchestrator) own
// serialization.
package merge

import "github.com/steveyegge/actograph/internal/action"

// PerAgentFileState is what one agent reports about one file.
type PerAgentFileState struct {
	Heat         float64
	InContext    bool
	LastAction   action.Action
	TimestampMs  int64
	TurnAccessed int
}

// View is the derived, per-file aggregate exposed to the rest of the
// system. It is always a pure function of the agents map on the node that
// produced it — see Derive.
type View struct {
	Heat                   float64
	InContext              bool
	LastAction             action.Action
	LastActionAgentID      string
	LastActionTimestampMs  int64
}

// Node is the orchestrator-owned aggregate for one file path: a set of
// per-agent replicas plus their derived view. The zero value is not a
// valid Node — use CreateMergedNode.
type Node struct {
	Path   string
	Agents map[string]PerAgentFileState
	View   View
}

// CreateMergedNode creates a new node with exactly one per-agent entry and
// a derived view already computed from it.
func CreateMergedNode(path, agentID string, state PerAgentFileState) *Node {
	n := &Node{
		Path:   path,
		Agents: map[string]PerAgentFileState{agentID: state},
	}
	n.View = Derive(n.Agents)
	return n
}

// ApplyAgentUpdate writes (creates or wholesale-replaces) one agent's entry
// and recomputes the derived view. Applying the same update twice is a
// no-op on the resulting view (idempotency).
func ApplyAgentUpdate(n *Node, agentID string, state PerAgentFileState) {
	n.Agents[agentID] = state
	n.View = Derive(n.Agents)
}

// RemoveAgentFromNode deletes one agent's entry and recomputes the derived
// view. It returns false iff the node is now empty — per the invariant
// that every Merged File Node holds at least one entry, the caller must
// delete the node from its owning map when this returns false.
func RemoveAgentFromNode(n *Node, agentID string) bool {
	delete(n.Agents, agentID)
	n.View = Derive(n.Agents)
	return len(n.Agents) > 0
}

// Derive computes the derived view from an agents map. It is total: an
// empty map yields the documented empty-view values (heat=0,
// inContext=false, lastAction=read, lastAgentId="", lastTs=0). Callers
// never emit that empty view to the UI — the node is deleted instead —
// but the function itself makes no such judgment.
//
// An entry dominates the running leader iff its timestamp is strictly
// greater, or equal with a strictly higher action priority
// (write > search > read). On a total tie (equal timestamp and action)
// the entry with the lexicographically smallest agent ID wins, so the
// derived view does not depend on Go's unspecified map iteration order
// and convergence holds.
func Derive(agents map[string]PerAgentFileState) View {
	var v View
	haveLeader := false

	for agentID, state := range agents {
		if state.Heat > v.Heat {
			v.Heat = state.Heat
		}
		if state.InContext {
			v.InContext = true
		}

		totalTie := state.TimestampMs == v.LastActionTimestampMs && state.LastAction == v.LastAction
		if !haveLeader || dominates(state, v.LastAction, v.LastActionTimestampMs) ||
			(totalTie && agentID < v.LastActionAgentID) {
			v.LastAction = state.LastAction
			v.LastActionAgentID = agentID
			v.LastActionTimestampMs = state.TimestampMs
			haveLeader = true
		}
	}

	return v
}

// dominates reports whether candidate beats the current leader's
// (action, timestamp) pair under the priority tiebreak rule.
func dominates(candidate PerAgentFileState, leaderAction action.Action, leaderTs int64) bool {
	if candidate.TimestampMs > leaderTs {
		return true
	}
	if candidate.TimestampMs == leaderTs && candidate.LastAction.Priority() > leaderAction.Priority() {
		return true
	}
	return false
}
