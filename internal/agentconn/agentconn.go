// Package agentconn defines the orchestrator's per-agent connection
// record. The allocation of displayName and color
// is owned by internal/orchestrator — this package only holds the
// palette constant and the record shape, so that allocation state never
// escapes into a package-level global.
package agentconn

import (
	"net"

	"github.com/steveyegge/actograph/internal/processor"
	"github.com/steveyegge/actograph/internal/wire"
)

// Palette is the fixed, compile-time color sequence agents are assigned
// from, in order of connection. Rotation wraps once every agent has
// been assigned a color.
var Palette = []string{
	"#e06c75", // red
	"#61afef", // blue
	"#98c379", // green
	"#e5c07b", // yellow
	"#c678dd", // magenta
	"#56b6c2", // cyan
	"#d19a66", // orange
	"#abb2bf", // gray
}

// Connection is one agent's live state as owned by the orchestrator.
type Connection struct {
	InstanceID  string
	AgentType   string
	DisplayName string
	Color       string
	TCPPort     int

	Conn      net.Conn
	Decoder   *wire.Decoder
	Processor processor.Processor

	Connected bool
	LastSeq   int
}

// NewConnection builds a connection record with allocations already
// decided by the caller (the orchestrator's counters and palette
// rotation index). It does not dial the socket — that is the
// orchestrator's responsibility, since dialing is fallible and the
// record must exist (with connected=false) even on failure.
func NewConnection(instanceID, agentType, displayName, color string, tcpPort int, proc processor.Processor) *Connection {
	return &Connection{
		InstanceID:  instanceID,
		AgentType:   agentType,
		DisplayName: displayName,
		Color:       color,
		TCPPort:     tcpPort,
		Decoder:     wire.NewDecoder(instanceID),
		Processor:   proc,
	}
}

// Close tears down the socket, if any, and marks the connection
// disconnected. Idempotent.
func (c *Connection) Close() {
	if c.Conn != nil {
		_ = c.Conn.Close()
		c.Conn = nil
	}
	c.Connected = false
}

// Info is the host-visible projection of a Connection. InstanceID never
// appears here — only displayName is exposed to the host, keeping
// instanceId private to the orchestrator.
type Info struct {
	DisplayName string
	AgentType   string
	Color       string
	Connected   bool
}

// Info projects this connection's host-visible fields.
func (c *Connection) Info() Info {
	return Info{
		DisplayName: c.DisplayName,
		AgentType:   c.AgentType,
		Color:       c.Color,
		Connected:   c.Connected,
	}
}
