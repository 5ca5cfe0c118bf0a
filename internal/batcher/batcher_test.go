package batcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/actograph/internal/orchestrator"
)

func TestOutboundBatcher_CoalescesWithinWindow(t *testing.T) {
	var mu sync.Mutex
	var posted []orchestrator.Delta
	b := New(30*time.Millisecond, func(d orchestrator.Delta) {
		mu.Lock()
		posted = append(posted, d)
		mu.Unlock()
	})

	b.Receive(orchestrator.Delta{Seq: 1, Entries: []orchestrator.DeltaEntry{{ID: "a.go", Action: "read"}}})
	b.Receive(orchestrator.Delta{Seq: 2, Entries: []orchestrator.DeltaEntry{{ID: "a.go", Action: "write"}}})
	b.Receive(orchestrator.Delta{Seq: 3, Entries: []orchestrator.DeltaEntry{{ID: "b.go", Action: "read"}}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(posted) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, posted[0].Entries, 2) // deduped: a.go once, b.go once
	assert.Equal(t, 3, posted[0].Seq)     // latest contributing seq
}

func TestOutboundBatcher_DedupKeepsLatestPerPath(t *testing.T) {
	var mu sync.Mutex
	var posted []orchestrator.Delta
	b := New(20*time.Millisecond, func(d orchestrator.Delta) {
		mu.Lock()
		posted = append(posted, d)
		mu.Unlock()
	})

	b.Receive(orchestrator.Delta{Seq: 1, Entries: []orchestrator.DeltaEntry{{ID: "a.go", Action: "read"}}})
	b.Receive(orchestrator.Delta{Seq: 2, Entries: []orchestrator.DeltaEntry{{ID: "a.go", Action: "write"}}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(posted) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "write", posted[0].Entries[0].Action)
}

func TestOutboundBatcher_DisposeSuppressesFlush(t *testing.T) {
	var mu sync.Mutex
	posted := 0
	b := New(15*time.Millisecond, func(d orchestrator.Delta) {
		mu.Lock()
		posted++
		mu.Unlock()
	})

	b.Receive(orchestrator.Delta{Seq: 1, Entries: []orchestrator.DeltaEntry{{ID: "a.go"}}})
	b.Dispose()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, posted)
}

func TestOutboundBatcher_MultipleWindowsEachPost(t *testing.T) {
	var mu sync.Mutex
	var posted []orchestrator.Delta
	b := New(15*time.Millisecond, func(d orchestrator.Delta) {
		mu.Lock()
		posted = append(posted, d)
		mu.Unlock()
	})

	b.Receive(orchestrator.Delta{Seq: 1, Entries: []orchestrator.DeltaEntry{{ID: "a.go"}}})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(posted) == 1
	}, time.Second, 5*time.Millisecond)

	b.Receive(orchestrator.Delta{Seq: 2, Entries: []orchestrator.DeltaEntry{{ID: "b.go"}}})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(posted) == 2
	}, time.Second, 5*time.Millisecond)
}
