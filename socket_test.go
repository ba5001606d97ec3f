package evcore

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenLoopback starts a plain net.Listener the tests drive directly,
// independent of TCPServer, so socket-level behavior can be exercised
// against a deterministic peer.
func listenLoopback(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func TestTCPSendConnectsAndReceivesReply(t *testing.T) {
	ln := listenLoopback(t)
	addr := ln.Addr().(*net.TCPAddr)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		_, _ = conn.Write(buf[:n])
	}()

	l := New()
	var received []byte
	err := l.Start(func(l *Loop) {
		l.TCPSend(addr.IP.String(), addr.Port, []byte("hello"), func(s *Socket, data []byte) {
			received = append(received, data...)
			l.Exit()
		}, func(Condition) {}, SocketOptions{})
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), received)
}

func TestTCPSendConnectionRefusedDeliversTCPRefused(t *testing.T) {
	ln := listenLoopback(t)
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close() // nothing listening now, so dial must fail

	l := New()
	var cond Condition
	err := l.Start(func(l *Loop) {
		l.TCPSend(addr.IP.String(), addr.Port, nil, func(*Socket, []byte) {}, func(c Condition) {
			cond = c
			l.Exit()
		}, SocketOptions{})
	})
	require.NoError(t, err)
	require.NotNil(t, cond)
	var refused TCPRefusedCondition
	assert.ErrorAs(t, cond, &refused)
}

func TestCloseSocketTwicePanicsWithErrSocketClosed(t *testing.T) {
	ln := listenLoopback(t)
	addr := ln.Addr().(*net.TCPAddr)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
	}()

	l := New()
	err := l.Start(func(l *Loop) {
		sock := l.TCPSend(addr.IP.String(), addr.Port, nil, func(*Socket, []byte) {}, func(Condition) {}, SocketOptions{})
		// Give the dial goroutine a chance to finish and wire the socket
		// into the registry before driving it from the loop goroutine.
		l.Delay(func(*Loop) {
			if l.registry.lookup(sock.id) == nil {
				l.Exit()
				return
			}
			sock.CloseSocket()
			assert.Panics(t, func() { sock.CloseSocket() })
			l.Exit()
		}, DelayOptions{Seconds: 0.05}, nil)
	})
	require.NoError(t, err)
}

func TestSocketHalfClosedWritePendingDrainsBeforeClose(t *testing.T) {
	ln := listenLoopback(t)
	addr := ln.Addr().(*net.TCPAddr)

	recvDone := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		total := make([]byte, 0, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				total = append(total, buf[:n]...)
			}
			if err != nil {
				break
			}
		}
		recvDone <- total
	}()

	l := New()
	payload := make([]byte, 1<<16)
	for i := range payload {
		payload[i] = byte(i)
	}

	err := l.Start(func(l *Loop) {
		sock := l.TCPSend(addr.IP.String(), addr.Port, nil, func(*Socket, []byte) {}, func(Condition) {}, SocketOptions{})
		l.Delay(func(*Loop) {
			if l.registry.lookup(sock.id) == nil {
				l.Exit()
				return
			}
			sock.WriteSocketData(payload, Callbacks{})
			sock.CloseSocket()
			l.Delay(func(*Loop) { l.Exit() }, DelayOptions{Seconds: 0.3}, nil)
		}, DelayOptions{Seconds: 0.05}, nil)
	})
	require.NoError(t, err)

	select {
	case got := <-recvDone:
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("peer never observed the full write before close")
	}
}
