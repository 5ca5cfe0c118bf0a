package orchestrator

import (
	"log"

	"github.com/steveyegge/actograph/internal/agentconn"
	"github.com/steveyegge/actograph/internal/merge"
	"github.com/steveyegge/actograph/internal/wire"
)

// handleInboundSnapshotLocked implements inbound snapshot semantics: the
// agent is declaring its complete file-state replica, so
// its prior contributions are retracted from every node before the new
// set is inserted. The result is posted as one full merged snapshot.
func (o *Orchestrator) handleInboundSnapshotLocked(conn *agentconn.Connection, raw *wire.Snapshot) {
	conn.LastSeq = raw.Seq
	result := conn.Processor.ProcessSnapshot(raw)

	for path, node := range o.nodes {
		if _, ok := node.Agents[conn.InstanceID]; !ok {
			continue
		}
		if !merge.RemoveAgentFromNode(node, conn.InstanceID) {
			delete(o.nodes, path)
		}
	}

	for path, update := range result.Nodes {
		node, exists := o.nodes[path]
		if !exists {
			node = merge.CreateMergedNode(path, conn.InstanceID, update.State)
			o.nodes[path] = node
			continue
		}
		merge.ApplyAgentUpdate(node, conn.InstanceID, update.State)
	}

	o.emitSnapshotLocked()
}

// handleInboundDeltaLocked implements inbound delta semantics: a
// per-agent lastSeq guard drops out-of-order deltas, each update creates
// or refreshes a node, each removal retracts the agent's entry, and every
// affected path is folded into one outbound merged delta.
func (o *Orchestrator) handleInboundDeltaLocked(conn *agentconn.Connection, raw *wire.Delta) {
	if raw.Seq <= conn.LastSeq {
		log.Printf("orchestrator: dropping stale delta seq=%d from %q (lastSeq=%d)", raw.Seq, conn.DisplayName, conn.LastSeq)
		return
	}
	conn.LastSeq = raw.Seq

	result := conn.Processor.ProcessDelta(raw)

	affected := make(map[string]bool)

	for _, update := range result.Updates {
		node, exists := o.nodes[update.Path]
		if !exists {
			node = merge.CreateMergedNode(update.Path, conn.InstanceID, update.State)
			o.nodes[update.Path] = node
		} else {
			merge.ApplyAgentUpdate(node, conn.InstanceID, update.State)
		}
		affected[update.Path] = true
	}

	for _, path := range result.Removed {
		node, exists := o.nodes[path]
		if !exists {
			continue
		}
		if !merge.RemoveAgentFromNode(node, conn.InstanceID) {
			delete(o.nodes, path)
		}
		affected[path] = true
	}

	if len(affected) == 0 {
		return
	}

	entries := make([]DeltaEntry, 0, len(affected))
	for path := range affected {
		node, exists := o.nodes[path]
		if !exists {
			entries = append(entries, DeltaEntry{ID: path, Action: "remove"})
			continue
		}
		entries = append(entries, o.updateEntryLocked(path, node))
	}
	o.emitDeltaLocked(entries)
}

func (o *Orchestrator) handleInboundUsageLocked(conn *agentconn.Connection, raw *wire.Usage) {
	// Usage telemetry is processor-defined and has no core callback
	// (there are exactly three outbound callbacks); it is normalized and
	// discarded here unless a future host-side sink is wired in.
	_ = conn.Processor.ProcessUsage(raw)
}

// updateEntryLocked builds the outbound delta entry for a path whose node
// still exists after a mutation: an onMergedDelta update entry carries
// the current derived view plus per-agent heat/context keyed by
// displayName).
func (o *Orchestrator) updateEntryLocked(path string, node *merge.Node) DeltaEntry {
	agentHeat := make(map[string]float64, len(node.Agents))
	agentContext := make(map[string]bool, len(node.Agents))
	for instanceID, state := range node.Agents {
		displayName := instanceID
		if c, ok := o.conns[instanceID]; ok {
			displayName = c.DisplayName
		}
		agentHeat[displayName] = state.Heat
		agentContext[displayName] = state.InContext
	}

	return DeltaEntry{
		ID:           path,
		Action:       node.View.LastAction.String(),
		InContext:    node.View.InContext,
		Changed:      true,
		AgentHeat:    agentHeat,
		AgentContext: agentContext,
	}
}
