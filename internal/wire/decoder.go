package wire

import (
	"bytes"
	"log"
)

// HighWaterMark is the default retained-buffer size above which the
// underlying socket should be paused until the buffer drains below it.
const HighWaterMark = 256 * 1024 // 256 KiB

// Decoder accumulates bytes from one connection and emits complete,
// newline-delimited JSON lines as decoded Messages. It is not safe for
// concurrent use — the orchestrator's single-threaded task queue owns one
// Decoder per agent connection.
type Decoder struct {
	label        string // used only in log lines, e.g. the agent's instanceId
	buf          bytes.Buffer
	highWater    int
	paused       bool
	unknownKinds map[string]bool // logged once each
}

// NewDecoder creates a Decoder for one connection. label is used only to
// annotate log output (typically the agent's instanceId).
func NewDecoder(label string) *Decoder {
	return &Decoder{
		label:        label,
		highWater:    HighWaterMark,
		unknownKinds: make(map[string]bool),
	}
}

// Feed appends a chunk of bytes read from the socket and returns every
// complete line's decoded Message (malformed or unrecognized lines are
// logged and skipped, never returned as an error: a malformed line or
// unrecognized discriminator never tears down the connection).
//
// After Feed returns, call Paused to learn whether the caller should stop
// reading from the socket until the buffer drains.
func (d *Decoder) Feed(chunk []byte) []*Message {
	d.buf.Write(chunk)

	var out []*Message
	for {
		raw := d.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}

		line := raw[:idx]
		d.buf.Next(idx + 1)

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}

		msg, err := Decode(trimmed)
		if err != nil {
			d.logDropped(err)
			continue
		}
		out = append(out, msg)
	}

	d.paused = d.buf.Len() > d.highWater
	return out
}

// SetHighWater overrides the high-water mark for this decoder. A
// non-positive value is ignored, leaving the previous (default)
// threshold in place.
func (d *Decoder) SetHighWater(n int) {
	if n > 0 {
		d.highWater = n
	}
}

// Paused reports whether the retained buffer currently exceeds the
// high-water mark. The caller (internal/orchestrator) uses this to pause
// and later resume reads from the underlying socket.
func (d *Decoder) Paused() bool {
	return d.paused
}

// BufferedLen returns the number of bytes currently retained (the partial
// final line, plus anything else not yet drained by Feed).
func (d *Decoder) BufferedLen() int {
	return d.buf.Len()
}

func (d *Decoder) logDropped(err error) {
	if uk, ok := err.(*UnknownKindError); ok {
		if d.unknownKinds[uk.Kind] {
			return
		}
		d.unknownKinds[uk.Kind] = true
		log.Printf("wire[%s]: dropping unrecognized message type %q", d.label, uk.Kind)
		return
	}
	log.Printf("wire[%s]: dropping malformed line: %v", d.label, err)
}
