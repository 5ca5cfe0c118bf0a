package orchestrator

import "github.com/steveyegge/actograph/internal/agentconn"

// AgentFileView is one agent's contribution to a file, keyed by
// displayName in the structures that carry it: instanceId is never
// exposed to the host.
type AgentFileView struct {
	Heat        float64
	InContext   bool
	LastAction  string
	TimestampMs int64
}

// NodeSummary is one file's complete merged state as exposed to the host.
type NodeSummary struct {
	Path                  string
	Agents                map[string]AgentFileView // keyed by displayName
	Heat                  float64
	InContext             bool
	LastAction            string
	LastActionAgentID     string // displayName
	LastActionTimestampMs int64
}

// Snapshot is the full merged view delivered via onMergedSnapshot.
type Snapshot struct {
	Seq       int
	Nodes     []NodeSummary
	CallEdges []interface{} // always empty; call-graph data is supplied externally
	Agents    []agentconn.Info
}

// DeltaEntry is one changed or removed path within a merged delta.
// Action is "remove" for a retraction; otherwise one of
// read/write/search, and the remaining fields are populated.
type DeltaEntry struct {
	ID           string // path
	Action       string
	InContext    bool
	Changed      bool
	AgentHeat    map[string]float64 // displayName -> heat
	AgentContext map[string]bool    // displayName -> inContext
}

// Delta is an incremental merged update delivered via onMergedDelta.
type Delta struct {
	Seq     int
	Entries []DeltaEntry
}
