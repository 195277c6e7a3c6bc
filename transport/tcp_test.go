package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startListener(t *testing.T, b *bridge, stats *Stats) (*Listener, context.CancelFunc, <-chan error) {
	t.Helper()

	l := NewListener("127.0.0.1:0", b.factory, SessionConfig{IdleTimeout: 50 * time.Millisecond}, nil, stats)
	require.NoError(t, l.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Serve(ctx) }()

	return l, cancel, errCh
}

func dial(t *testing.T, l *Listener) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", l.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	return conn
}

func TestListenerServesClient(t *testing.T) {
	b := newBridge()
	stats := &Stats{}
	l, cancel, errCh := startListener(t, b, stats)

	conn := dial(t, l)
	_, err := conn.Write([]byte(":GR#:GD#"))
	require.NoError(t, err)
	readReply(t, conn, "12:00:00#")
	readReply(t, conn, "+45*00#")

	_, err = conn.Write([]byte("F+"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return len(b.backend.Moves()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	cancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, []int32{testIncrement}, b.backend.Moves())
	assert.Equal(t, uint64(1), stats.Snapshot().Sessions)
}

func TestListenerRefusesSecondClient(t *testing.T) {
	b := newBridge()
	stats := &Stats{}
	l, cancel, errCh := startListener(t, b, stats)
	defer func() {
		cancel()
		require.NoError(t, <-errCh)
	}()

	first := dial(t, l)
	defer first.Close()

	// Make sure the first client holds the slot before the second arrives
	_, err := first.Write([]byte(":CM#"))
	require.NoError(t, err)
	readReply(t, first, "M31 EXCALIBUR#")
	require.True(t, l.Active())

	second := dial(t, l)
	defer second.Close()

	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = second.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, uint64(1), stats.Snapshot().Refused)

	// Once the first client leaves the slot frees up
	require.NoError(t, first.Close())
	assert.Eventually(t, func() bool { return !l.Active() }, 2*time.Second, 5*time.Millisecond)

	third := dial(t, l)
	defer third.Close()
	_, err = third.Write([]byte(":GD#"))
	require.NoError(t, err)
	readReply(t, third, "+45*00#")
}

func TestListenerServeBeforeListen(t *testing.T) {
	l := NewListener("127.0.0.1:0", newBridge().factory, SessionConfig{}, nil, nil)

	assert.Nil(t, l.Addr())
	assert.Error(t, l.Serve(context.Background()))
	assert.NoError(t, l.Close())
}

func TestListenerBadAddress(t *testing.T) {
	l := NewListener("256.0.0.1:bad", newBridge().factory, SessionConfig{}, nil, nil)
	assert.Error(t, l.ListenAndServe(context.Background()))
}
