package orchestrator

import (
	"github.com/steveyegge/actograph/internal/agentconn"
	"github.com/steveyegge/actograph/internal/merge"
)

// GetMergedSnapshot materializes every current node into a full Snapshot.
// Concurrent callers collapse onto a single materialization via
// singleflight: callers that share one pass receive the same Snapshot,
// including the same Seq, where separate passes would each have taken
// the next sequence number.
func (o *Orchestrator) GetMergedSnapshot() Snapshot {
	v, _, _ := o.sf.Do("snapshot", func() (interface{}, error) {
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.buildSnapshotLocked(), nil
	})
	return v.(Snapshot)
}

func (o *Orchestrator) buildSnapshotLocked() Snapshot {
	o.seq++

	nodes := make([]NodeSummary, 0, len(o.nodes))
	for path, node := range o.nodes {
		nodes = append(nodes, o.summarizeNodeLocked(path, node))
	}

	agents := make([]agentconn.Info, 0, len(o.conns))
	for _, c := range o.conns {
		agents = append(agents, c.Info())
	}

	return Snapshot{
		Seq:       o.seq,
		Nodes:     nodes,
		CallEdges: []interface{}{},
		Agents:    agents,
	}
}

func (o *Orchestrator) summarizeNodeLocked(path string, node *merge.Node) NodeSummary {
	agents := make(map[string]AgentFileView, len(node.Agents))
	for instanceID, state := range node.Agents {
		displayName := instanceID
		if c, ok := o.conns[instanceID]; ok {
			displayName = c.DisplayName
		}
		agents[displayName] = AgentFileView{
			Heat:        state.Heat,
			InContext:   state.InContext,
			LastAction:  state.LastAction.String(),
			TimestampMs: state.TimestampMs,
		}
	}

	lastActionAgent := node.View.LastActionAgentID
	if c, ok := o.conns[lastActionAgent]; ok {
		lastActionAgent = c.DisplayName
	}

	return NodeSummary{
		Path:                  path,
		Agents:                agents,
		Heat:                  node.View.Heat,
		InContext:             node.View.InContext,
		LastAction:            node.View.LastAction.String(),
		LastActionAgentID:     lastActionAgent,
		LastActionTimestampMs: node.View.LastActionTimestampMs,
	}
}

// emitSnapshotLocked posts a freshly materialized snapshot to the host
// callback, if registered. Called after inbound snapshot processing
// completes: the final pass emits a full merged snapshot.
func (o *Orchestrator) emitSnapshotLocked() {
	if o.callbacks.OnMergedSnapshot == nil {
		return
	}
	o.callbacks.OnMergedSnapshot(o.buildSnapshotLocked())
}
