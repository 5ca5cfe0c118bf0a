// Package orchestrator owns the agent-connections map and the merge core,
// and is the only component that mutates either. Every public method is
// guarded by a single mutex, which stands in for
// the single-threaded cooperative event loop the design assumes: a
// method call runs to completion before the next begins, exactly as a
// single task-queue tick would.
package orchestrator

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/steveyegge/actograph/internal/agentconn"
	"github.com/steveyegge/actograph/internal/merge"
	"github.com/steveyegge/actograph/internal/processor"
	"github.com/steveyegge/actograph/internal/wire"
)

// pausePollInterval is how often a paused read loop re-checks whether its
// decoder's buffer has drained below the high-water mark (§4.1, §5).
const pausePollInterval = 20 * time.Millisecond

// Callbacks are the three nullable host hooks. Any of them may be nil;
// a nil callback is simply not invoked.
type Callbacks struct {
	OnMergedSnapshot func(Snapshot)
	OnMergedDelta    func(Delta)
	OnAgentUpdate    func([]agentconn.Info)
}

// Orchestrator is the process-wide coordinator. Construct one per
// running session; Dispose releases every connection it owns.
type Orchestrator struct {
	mu sync.Mutex

	registry *processor.Registry
	dial     func(port int) (net.Conn, error)

	conns map[string]*agentconn.Connection
	nodes map[string]*merge.Node

	seq          int
	typeOrdinals map[string]int
	paletteIdx   int
	palette      []string
	highWater    int

	callbacks Callbacks
	sf        singleflight.Group
	disposed  bool
}

// New constructs an Orchestrator. dial, when nil, defaults to dialing
// loopback TCP on the given port; tests substitute a fake dialer so no
// network is touched.
func New(registry *processor.Registry, callbacks Callbacks, dial func(port int) (net.Conn, error)) *Orchestrator {
	if registry == nil {
		registry = processor.NewRegistry()
	}
	if dial == nil {
		dial = dialLoopback
	}
	return &Orchestrator{
		registry:     registry,
		dial:         dial,
		conns:        make(map[string]*agentconn.Connection),
		nodes:        make(map[string]*merge.Node),
		typeOrdinals: make(map[string]int),
		palette:      agentconn.Palette,
		callbacks:    callbacks,
	}
}

func dialLoopback(port int) (net.Conn, error) {
	return net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
}

// SetPalette overrides the color-rotation sequence new agents are
// assigned from. A nil or empty slice restores agentconn.Palette. Only
// affects colors allocated after the call — already-connected agents
// keep theirs, matching the rule that disconnect never releases an
// allocation.
func (o *Orchestrator) SetPalette(colors []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(colors) == 0 {
		o.palette = agentconn.Palette
		return
	}
	o.palette = colors
}

// SetHighWaterBytes overrides the per-connection decoder buffer
// high-water mark (§4.1) for connections established after the call. A
// non-positive value leaves wire.HighWaterMark as the default.
func (o *Orchestrator) SetHighWaterBytes(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.highWater = n
}

// AddAgent registers a new agent connection. A duplicate instanceId is
// logged and ignored, state unchanged. Network
// failure never surfaces as an error to the caller — it is reported via
// the agent-update callback with connected=false.
func (o *Orchestrator) AddAgent(instanceID, agentType string, tcpPort int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.disposed {
		return
	}
	if _, exists := o.conns[instanceID]; exists {
		log.Printf("orchestrator: duplicate registration for agent %q ignored", instanceID)
		return
	}

	displayName := o.allocateDisplayNameLocked(agentType)
	color := o.allocateColorLocked()
	proc := o.registry.Get(agentType)

	conn := agentconn.NewConnection(instanceID, agentType, displayName, color, tcpPort, proc)
	if o.highWater > 0 {
		conn.Decoder.SetHighWater(o.highWater)
	}
	o.conns[instanceID] = conn

	netConn, err := o.dial(tcpPort)
	if err != nil {
		log.Printf("orchestrator: agent %q (%s) connect failed on port %d: %v", displayName, instanceID, tcpPort, err)
	} else {
		conn.Conn = netConn
		conn.Connected = true
		go o.readLoop(instanceID, netConn)
	}

	o.emitAgentUpdateLocked()
}

// RemoveAgent tears down an agent's socket and retracts its contributions
// from every merged node. Removing an unregistered instanceId is
// logged and is a no-op.
func (o *Orchestrator) RemoveAgent(instanceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removeAgentLocked(instanceID)
}

func (o *Orchestrator) removeAgentLocked(instanceID string) {
	conn, exists := o.conns[instanceID]
	if !exists {
		log.Printf("orchestrator: removeAgent for unknown agent %q ignored", instanceID)
		return
	}
	conn.Close()
	delete(o.conns, instanceID)

	var entries []DeltaEntry
	for path, node := range o.nodes {
		if _, ok := node.Agents[instanceID]; !ok {
			continue
		}
		if merge.RemoveAgentFromNode(node, instanceID) {
			entries = append(entries, o.updateEntryLocked(path, node))
		} else {
			delete(o.nodes, path)
			entries = append(entries, DeltaEntry{ID: path, Action: "remove"})
		}
	}

	if len(entries) > 0 {
		o.emitDeltaLocked(entries)
	}
	o.emitAgentUpdateLocked()
}

// AgentCount returns the number of currently registered connections
// (connected or not).
func (o *Orchestrator) AgentCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.conns)
}

// Dispose closes every connection concurrently via an errgroup, clears
// all state, and marks the orchestrator unusable. Safe to call more than
// once.
func (o *Orchestrator) Dispose() error {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return nil
	}
	o.disposed = true
	conns := make([]*agentconn.Connection, 0, len(o.conns))
	for _, c := range o.conns {
		conns = append(conns, c)
	}
	o.conns = make(map[string]*agentconn.Connection)
	o.nodes = make(map[string]*merge.Node)
	o.mu.Unlock()

	var g errgroup.Group
	for _, c := range conns {
		c := c
		g.Go(func() error {
			c.Close()
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) allocateDisplayNameLocked(agentType string) string {
	o.typeOrdinals[agentType]++
	return fmt.Sprintf("%s-%d", agentType, o.typeOrdinals[agentType])
}

func (o *Orchestrator) allocateColorLocked() string {
	c := o.palette[o.paletteIdx%len(o.palette)]
	o.paletteIdx++
	return c
}

func (o *Orchestrator) emitAgentUpdateLocked() {
	if o.callbacks.OnAgentUpdate == nil {
		return
	}
	infos := make([]agentconn.Info, 0, len(o.conns))
	for _, c := range o.conns {
		infos = append(infos, c.Info())
	}
	o.callbacks.OnAgentUpdate(infos)
}

func (o *Orchestrator) emitDeltaLocked(entries []DeltaEntry) {
	o.seq++
	if o.callbacks.OnMergedDelta != nil {
		o.callbacks.OnMergedDelta(Delta{Seq: o.seq, Entries: entries})
	}
}

// readLoop pumps bytes from one agent's socket into its decoder and
// dispatches decoded messages. It runs on its own goroutine per
// connection; the suspension points are exactly those of waiting on
// the socket. Every dispatch re-enters the orchestrator through its
// mutex, so message handling itself remains single-threaded in effect.
//
// Back-pressure: once the decoder's retained buffer crosses the
// high-water mark, further reads from this socket are paused (no Read
// call is issued) until the buffer drains back below it — this is the
// closest TCP-level analogue to pausing a stream's 'data' events.
func (o *Orchestrator) readLoop(instanceID string, conn net.Conn) {
	buf := make([]byte, 64*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			o.feed(instanceID, buf[:n])
		}
		if err != nil {
			o.handleSocketClose(instanceID)
			return
		}
		for o.paused(instanceID) {
			time.Sleep(pausePollInterval)
			if !o.stillConnected(instanceID) {
				return
			}
		}
	}
}

func (o *Orchestrator) feed(instanceID string, chunk []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, exists := o.conns[instanceID]
	if !exists {
		return
	}
	msgs := conn.Decoder.Feed(chunk)
	for _, m := range msgs {
		o.dispatchLocked(conn, m)
	}
}

// paused reports whether the named agent's decoder buffer currently
// exceeds the high-water mark.
func (o *Orchestrator) paused(instanceID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	conn, exists := o.conns[instanceID]
	if !exists {
		return false
	}
	return conn.Decoder.Paused()
}

// stillConnected reports whether the named agent is still registered and
// marked connected; a paused read loop uses this to give up if the
// connection was torn down while it was waiting to drain.
func (o *Orchestrator) stillConnected(instanceID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	conn, exists := o.conns[instanceID]
	return exists && conn.Connected
}

func (o *Orchestrator) dispatchLocked(conn *agentconn.Connection, msg *wire.Message) {
	switch msg.Kind {
	case wire.KindSnapshot:
		o.handleInboundSnapshotLocked(conn, msg.Snapshot)
	case wire.KindDelta:
		o.handleInboundDeltaLocked(conn, msg.Delta)
	case wire.KindUsage:
		o.handleInboundUsageLocked(conn, msg.Usage)
	}
}

func (o *Orchestrator) handleSocketClose(instanceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	conn, exists := o.conns[instanceID]
	if !exists {
		return
	}
	conn.Connected = false
	o.emitAgentUpdateLocked()
}
