package processor

import (
	"path"

	"github.com/steveyegge/actograph/internal/wire"
)

// DefaultProcessor performs only action normalization, path
// canonicalization, and clamping of heat to [0, 1] — the fall-through for any agent-type tag the
// Registry does not recognize.
type DefaultProcessor struct{}

// NewDefaultProcessor constructs a DefaultProcessor. It holds no state,
// so every call returns an equivalent, independently usable instance.
func NewDefaultProcessor() *DefaultProcessor {
	return &DefaultProcessor{}
}

var _ Processor = (*DefaultProcessor)(nil)

func (p *DefaultProcessor) ProcessSnapshot(raw *wire.Snapshot) SnapshotResult {
	nodes := make(map[string]NodeUpdate, len(raw.Nodes))
	for p2, n := range raw.Nodes {
		cp := canonicalize(p2)
		nodes[cp] = NodeUpdate{
			Path:  cp,
			State: toState(n.Heat, n.InContext, n.LastAction, n.TimestampMs, n.TurnAccessed),
		}
	}
	return SnapshotResult{Seq: raw.Seq, Nodes: nodes}
}

func (p *DefaultProcessor) ProcessDelta(raw *wire.Delta) DeltaResult {
	updates := make([]NodeUpdate, 0, len(raw.Updates))
	for _, u := range raw.Updates {
		cp := canonicalize(u.Path)
		updates = append(updates, NodeUpdate{
			Path:  cp,
			State: toState(u.Heat, u.InContext, u.LastAction, u.TimestampMs, u.TurnAccessed),
		})
	}

	removed := make([]string, 0, len(raw.Removed))
	for _, r := range raw.Removed {
		removed = append(removed, canonicalize(r))
	}

	return DeltaResult{Seq: raw.Seq, Updates: updates, Removed: removed}
}

func (p *DefaultProcessor) ProcessUsage(raw *wire.Usage) map[string]interface{} {
	return raw.Data
}

// canonicalize normalizes a path reported by an agent: it cleans the path
// (collapsing "./" and ".." segments and duplicate separators) without
// resolving it against any filesystem, since the merge core has no
// notion of a working directory.
func canonicalize(p string) string {
	if p == "" {
		return p
	}
	return path.Clean(p)
}
