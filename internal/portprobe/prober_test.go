package portprobe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestTryConnect_Open(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	assert.True(t, New().TryConnect(context.Background(), "127.0.0.1", port, time.Second))
}

func TestTryConnect_Closed(t *testing.T) {
	ln, port := listen(t)
	ln.Close()

	assert.False(t, New().TryConnect(context.Background(), "127.0.0.1", port, time.Second))
}

func TestTryConnect_CancelledContext(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, New().TryConnect(ctx, "127.0.0.1", port, time.Second))
}

func TestTryConnect_InvalidHost(t *testing.T) {
	assert.False(t, New().TryConnect(context.Background(), "", 0, 100*time.Millisecond))
}
