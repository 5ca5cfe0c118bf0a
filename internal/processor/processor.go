// Package processor implements the pluggable agent-adaptation layer
// between the wire decoder and the merge core.
//
// A processor may only rename/normalize, reclassify actions, collapse
// same-file same-tick sequences, or drop observations. It may never
// fabricate data for paths its agent never mentioned, and it may never
// consult another agent's state — doing so would leak agent identity into
// the merge algebra, which must stay agent-agnostic.
package processor

import (
	"github.com/steveyegge/actograph/internal/action"
	"github.com/steveyegge/actograph/internal/merge"
	"github.com/steveyegge/actograph/internal/wire"
)

// NodeUpdate carries one agent's Per-Agent File State plus the path it
// describes, on its way into the merge core.
type NodeUpdate struct {
	Path  string
	State merge.PerAgentFileState
}

// SnapshotResult is the processed form of an inbound snapshot: the
// agent's complete file-state replica, keyed by path.
type SnapshotResult struct {
	Seq   int
	Nodes map[string]NodeUpdate
}

// DeltaResult is the processed form of an inbound delta: updates to
// apply and paths to retract, all for one agent.
type DeltaResult struct {
	Seq     int
	Updates []NodeUpdate
	Removed []string
}

// Processor normalizes and optionally enriches one agent's raw
// observations before they reach the merge core.
type Processor interface {
	// ProcessSnapshot converts a raw inbound snapshot into normalized
	// node updates.
	ProcessSnapshot(raw *wire.Snapshot) SnapshotResult

	// ProcessDelta converts a raw inbound delta into normalized updates
	// and retractions.
	ProcessDelta(raw *wire.Delta) DeltaResult

	// ProcessUsage handles processor-defined usage telemetry. The
	// default implementation is a passthrough; concrete processors may
	// override it to extract agent-specific metrics. Nothing in this
	// package interprets the returned value — it exists for processors
	// that want to surface usage data to a host-side sink.
	ProcessUsage(raw *wire.Usage) map[string]interface{}
}

func toState(h float64, inCtx bool, rawAction string, ts int64, turn int) merge.PerAgentFileState {
	return merge.PerAgentFileState{
		Heat:         clampHeat(h),
		InContext:    inCtx,
		LastAction:   action.Normalize(rawAction),
		TimestampMs:  ts,
		TurnAccessed: turn,
	}
}

func clampHeat(h float64) float64 {
	if h < 0 {
		return 0
	}
	if h > 1 {
		return 1
	}
	return h
}
