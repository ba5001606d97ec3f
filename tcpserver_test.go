package evcore

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPServerExplicitPortAcceptsConnection(t *testing.T) {
	// Find a free port up front so the dialing goroutine can connect
	// without needing to observe the server's bound address.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := probe.Addr().(*net.TCPAddr)
	require.NoError(t, probe.Close())

	l := New()
	readCh := make(chan []byte, 1)

	go func() {
		for i := 0; i < 50; i++ {
			conn, err := net.Dial("tcp", addr.String())
			if err == nil {
				_, _ = conn.Write([]byte("ping"))
				buf := make([]byte, 64)
				n, _ := conn.Read(buf)
				readCh <- buf[:n]
				_ = conn.Close()
				return
			}
		}
		readCh <- nil
	}()

	var srv *TCPServer
	startErr := l.Start(func(l *Loop) {
		var err error
		srv, err = l.TCPServer(addr.IP.String(), addr.Port, func(s *Socket, data []byte) {
			s.WriteSocketData(data, Callbacks{})
		}, func(Condition) {}, TCPServerOptions{})
		require.NoError(t, err)

		go func() {
			got := <-readCh
			_ = l.Submit(func() {
				assert.Equal(t, []byte("ping"), got)
				srv.CloseTCPServer()
				l.Exit()
			})
		}()
	})
	require.NoError(t, startErr)
}

func TestCloseTCPServerIsIdempotent(t *testing.T) {
	l := New()
	err := l.Start(func(l *Loop) {
		srv, err := l.TCPServer("127.0.0.1", 0, func(*Socket, []byte) {}, func(Condition) {}, TCPServerOptions{})
		require.NoError(t, err)
		srv.CloseTCPServer()
		assert.NotPanics(t, func() { srv.CloseTCPServer() })
		l.Exit()
	})
	require.NoError(t, err)
}
