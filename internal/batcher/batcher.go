// Package batcher decouples the merged-delta rate from the outbound
// front-end channel. It accumulates entries from a run
// of merged deltas and posts at most one coalesced message per flush
// window.
package batcher

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/steveyegge/actograph/internal/orchestrator"
)

// DefaultWindow is the default flush cadence: 200ms, ~5Hz.
const DefaultWindow = 200 * time.Millisecond

type state int

const (
	stateIdle state = iota
	statePendingFlush
	stateDisposed
)

// OutboundBatcher accumulates orchestrator.Delta entries and posts a
// deduplicated, coalesced Delta at most once per window. Safe for
// concurrent use: the orchestrator's delta callback may fire from any
// goroutine servicing an agent's socket.
type OutboundBatcher struct {
	mu      sync.Mutex
	window  time.Duration
	limiter *rate.Limiter
	state   state

	pending    map[string]orchestrator.DeltaEntry // keyed by path, latest wins
	pendingSeq int

	post func(orchestrator.Delta)
}

// New constructs a batcher with the given flush window. post is invoked
// on its own goroutine (the timer's) whenever a flush fires with at
// least one pending entry; it is never called with an empty Delta.
func New(window time.Duration, post func(orchestrator.Delta)) *OutboundBatcher {
	if window <= 0 {
		window = DefaultWindow
	}
	return &OutboundBatcher{
		window:  window,
		limiter: rate.NewLimiter(rate.Every(window), 1),
		pending: make(map[string]orchestrator.DeltaEntry),
		post:    post,
	}
}

// Receive accepts one merged delta from the orchestrator. Entries are
// deduplicated by path, keeping only the latest update per path within
// the current window; the posted sequence number is that of the latest
// contributing delta.
func (b *OutboundBatcher) Receive(d orchestrator.Delta) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateDisposed {
		return
	}

	for _, e := range d.Entries {
		b.pending[e.ID] = e
	}
	if d.Seq > b.pendingSeq {
		b.pendingSeq = d.Seq
	}

	if b.state == stateIdle {
		b.state = statePendingFlush
		delay := b.limiter.Reserve().Delay()
		if delay < b.window {
			delay = b.window
		}
		time.AfterFunc(delay, b.flush)
	}
}

func (b *OutboundBatcher) flush() {
	b.mu.Lock()
	if b.state == stateDisposed {
		b.mu.Unlock()
		return
	}

	entries := make([]orchestrator.DeltaEntry, 0, len(b.pending))
	for _, e := range b.pending {
		entries = append(entries, e)
	}
	seq := b.pendingSeq
	b.pending = make(map[string]orchestrator.DeltaEntry)
	b.state = stateIdle
	post := b.post
	b.mu.Unlock()

	if len(entries) == 0 || post == nil {
		return
	}
	post(orchestrator.Delta{Seq: seq, Entries: entries})
}

// Dispose clears any pending state and prevents future flushes. Safe to
// call more than once.
func (b *OutboundBatcher) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateDisposed
	b.pending = make(map[string]orchestrator.DeltaEntry)
}
