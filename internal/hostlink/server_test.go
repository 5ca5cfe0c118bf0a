package hostlink

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_BroadcastsToConnectedClients(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.NoError(t, s.Start())
	defer s.Stop()

	conn, err := net.Dial("tcp", s.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Broadcast("agent_update", map[string]string{"hello": "world"})

	reader := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadBytes('\n')
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(line, &env))
	assert.Equal(t, "agent_update", env.Kind)
}

func TestServer_StartTwiceErrors(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.NoError(t, s.Start())
	defer s.Stop()

	err := s.Start()
	assert.Error(t, err)
}

func TestServer_StopClosesClients(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.NoError(t, s.Start())

	conn, err := net.Dial("tcp", s.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.Equal(t, 0, s.ClientCount())
}
