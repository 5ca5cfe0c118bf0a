package orchestrator

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/actograph/internal/agentconn"
	"github.com/steveyegge/actograph/internal/processor"
)

// pipeDialer returns a dial func backed by net.Pipe, handing the test the
// server-side end of each dialed connection so it can write wire protocol
// lines without touching a real socket.
func pipeDialer(t *testing.T) (dial func(int) (net.Conn, error), serverEnds *sync.Map) {
	serverEnds = &sync.Map{}
	dial = func(port int) (net.Conn, error) {
		client, server := net.Pipe()
		serverEnds.Store(port, server)
		return client, nil
	}
	return dial, serverEnds
}

func newTestOrchestrator(t *testing.T, cb Callbacks) (*Orchestrator, *sync.Map) {
	dial, ends := pipeDialer(t)
	o := New(processor.NewRegistry(), cb, dial)
	return o, ends
}

func TestAddAgent_AllocatesDisplayNameAndColor(t *testing.T) {
	var mu sync.Mutex
	var updates [][]agentconn.Info
	o, _ := newTestOrchestrator(t, Callbacks{
		OnAgentUpdate: func(infos []agentconn.Info) {
			mu.Lock()
			updates = append(updates, infos)
			mu.Unlock()
		},
	})
	defer o.Dispose()

	o.AddAgent("inst-1", "cursor", 9001)
	o.AddAgent("inst-2", "cursor", 9002)

	assert.Equal(t, 2, o.AgentCount())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 2)
	last := updates[len(updates)-1]
	names := map[string]bool{}
	colors := map[string]bool{}
	for _, i := range last {
		names[i.DisplayName] = true
		colors[i.Color] = true
	}
	assert.True(t, names["cursor-1"])
	assert.True(t, names["cursor-2"])
	assert.True(t, colors[agentconn.Palette[0]])
	assert.True(t, colors[agentconn.Palette[1]])
}

func TestAddAgent_DuplicateIgnored(t *testing.T) {
	o, _ := newTestOrchestrator(t, Callbacks{})
	defer o.Dispose()

	o.AddAgent("inst-1", "cursor", 9001)
	o.AddAgent("inst-1", "cursor", 9002)

	assert.Equal(t, 1, o.AgentCount())
}

func TestRemoveAgent_UnknownIsNoop(t *testing.T) {
	o, _ := newTestOrchestrator(t, Callbacks{})
	defer o.Dispose()

	o.RemoveAgent("nope")
	assert.Equal(t, 0, o.AgentCount())
}

func TestInboundDelta_EmitsMergedUpdate(t *testing.T) {
	var mu sync.Mutex
	var deltas []Delta
	o, ends := newTestOrchestrator(t, Callbacks{
		OnMergedDelta: func(d Delta) {
			mu.Lock()
			deltas = append(deltas, d)
			mu.Unlock()
		},
	})
	defer o.Dispose()

	o.AddAgent("inst-1", "cursor", 9001)

	serverEndAny, ok := ends.Load(9001)
	require.True(t, ok)
	serverEnd := serverEndAny.(net.Conn)

	line := `{"type":"delta","seq":1,"agent_id":"inst-1","updates":[{"path":"a.go","heat":0.7,"in_context":true,"last_action":"write","timestamp_ms":100,"turn_accessed":1}],"removed":[]}` + "\n"
	_, err := serverEnd.Write([]byte(line))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(deltas) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, deltas[0].Entries, 1)
	assert.Equal(t, "a.go", deltas[0].Entries[0].ID)
	assert.Equal(t, "write", deltas[0].Entries[0].Action)
}

func TestInboundSnapshot_SetsLastSeqAndDropsStaleDelta(t *testing.T) {
	var mu sync.Mutex
	var snapshots []Snapshot
	var deltas []Delta
	o, ends := newTestOrchestrator(t, Callbacks{
		OnMergedSnapshot: func(s Snapshot) {
			mu.Lock()
			snapshots = append(snapshots, s)
			mu.Unlock()
		},
		OnMergedDelta: func(d Delta) {
			mu.Lock()
			deltas = append(deltas, d)
			mu.Unlock()
		},
	})
	defer o.Dispose()

	o.AddAgent("inst-1", "cursor", 9001)
	serverEndAny, ok := ends.Load(9001)
	require.True(t, ok)
	serverEnd := serverEndAny.(net.Conn)

	snapshotLine := `{"type":"snapshot","seq":100,"agent_id":"inst-1","nodes":{"a.go":{"heat":0.9,"in_context":true,"last_action":"write","timestamp_ms":500,"turn_accessed":3}}}` + "\n"
	_, err := serverEnd.Write([]byte(snapshotLine))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snapshots) == 1
	}, time.Second, 5*time.Millisecond)

	// A delta with seq=5, lower than the snapshot's seq=100, must be
	// dropped as stale — spec.md's open question says snapshot.seq
	// becomes the new lastSeq.
	staleLine := `{"type":"delta","seq":5,"agent_id":"inst-1","updates":[{"path":"a.go","heat":0.1,"in_context":false,"last_action":"read","timestamp_ms":1,"turn_accessed":1}],"removed":[]}` + "\n"
	_, err = serverEnd.Write([]byte(staleLine))
	require.NoError(t, err)

	// Give the stale delta a chance to be (wrongly) processed before
	// asserting it never produced an outbound delta.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, deltas, "stale delta following a higher-seq snapshot must be dropped")

	require.Len(t, snapshots[0].Nodes, 1)
	assert.Equal(t, "a.go", snapshots[0].Nodes[0].Path)
	assert.Equal(t, "write", snapshots[0].Nodes[0].LastAction)
}

func TestRemoveAgent_RetractsContributionsAndEmitsRemoval(t *testing.T) {
	var mu sync.Mutex
	var deltas []Delta
	o, ends := newTestOrchestrator(t, Callbacks{
		OnMergedDelta: func(d Delta) {
			mu.Lock()
			deltas = append(deltas, d)
			mu.Unlock()
		},
	})
	defer o.Dispose()

	o.AddAgent("inst-1", "cursor", 9001)
	serverEndAny, _ := ends.Load(9001)
	serverEnd := serverEndAny.(net.Conn)

	line := `{"type":"delta","seq":1,"agent_id":"inst-1","updates":[{"path":"a.go","heat":0.5,"in_context":true,"last_action":"read","timestamp_ms":10,"turn_accessed":1}],"removed":[]}` + "\n"
	_, err := serverEnd.Write([]byte(line))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(deltas) == 1
	}, time.Second, 5*time.Millisecond)

	o.RemoveAgent("inst-1")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, deltas, 2)
	assert.Equal(t, "remove", deltas[1].Entries[0].Action)
}

func TestGetMergedSnapshot_SeqMonotonic(t *testing.T) {
	o, _ := newTestOrchestrator(t, Callbacks{})
	defer o.Dispose()

	s1 := o.GetMergedSnapshot()
	s2 := o.GetMergedSnapshot()
	assert.Greater(t, s2.Seq, s1.Seq)
}

func TestAddAgent_ConnectFailureReportsDisconnected(t *testing.T) {
	var mu sync.Mutex
	var last []agentconn.Info
	o := New(processor.NewRegistry(), Callbacks{
		OnAgentUpdate: func(infos []agentconn.Info) {
			mu.Lock()
			last = infos
			mu.Unlock()
		},
	}, func(port int) (net.Conn, error) {
		return nil, errDial
	})
	defer o.Dispose()

	o.AddAgent("inst-1", "cursor", 9001)
	assert.Equal(t, 1, o.AgentCount())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, last, 1)
	assert.False(t, last[0].Connected)
}

var errDial = &dialError{}

type dialError struct{}

func (e *dialError) Error() string { return "dial failed" }

func TestSetPalette_OverridesSubsequentAllocationsOnly(t *testing.T) {
	o, _ := newTestOrchestrator(t, Callbacks{})
	defer o.Dispose()

	o.AddAgent("inst-1", "cursor", 9001)
	first := o.conns["inst-1"].Color

	o.SetPalette([]string{"#111111", "#222222"})
	o.AddAgent("inst-2", "cursor", 9002)
	second := o.conns["inst-2"].Color

	assert.NotEqual(t, first, second)
	assert.Equal(t, "#222222", second) // rotation index is 1 after the first agent

	o.SetPalette(nil)
	o.AddAgent("inst-3", "cursor", 9003)
	assert.Equal(t, agentconn.Palette[2%len(agentconn.Palette)], o.conns["inst-3"].Color)
}

func TestSetHighWaterBytes_AppliesToNewConnections(t *testing.T) {
	o, _ := newTestOrchestrator(t, Callbacks{})
	defer o.Dispose()

	o.SetHighWaterBytes(8)
	o.AddAgent("inst-1", "cursor", 9001)

	conn := o.conns["inst-1"]
	require.NotNil(t, conn)
	conn.Decoder.Feed([]byte(`{"type":"usage","agent_id":"a1"`)) // no newline, 31 bytes > 8
	assert.True(t, conn.Decoder.Paused())
}

