package agentconn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/actograph/internal/processor"
)

func TestNewConnection_InitializesDisconnected(t *testing.T) {
	c := NewConnection("inst-1", "cursor", "cursor-1", Palette[0], 9001, processor.NewDefaultProcessor())

	assert.False(t, c.Connected)
	assert.Nil(t, c.Conn)
	assert.NotNil(t, c.Decoder)
}

func TestConnection_Info_NeverLeaksInstanceID(t *testing.T) {
	c := NewConnection("secret-instance-id", "cursor", "cursor-1", Palette[0], 9001, processor.NewDefaultProcessor())
	c.Connected = true

	info := c.Info()
	assert.Equal(t, "cursor-1", info.DisplayName)
	assert.True(t, info.Connected)
}

func TestConnection_Close_IsIdempotent(t *testing.T) {
	c := NewConnection("inst-1", "cursor", "cursor-1", Palette[0], 9001, processor.NewDefaultProcessor())
	c.Close()
	c.Close()
	assert.False(t, c.Connected)
}

func TestPalette_HasEntries(t *testing.T) {
	assert.NotEmpty(t, Palette)
}
