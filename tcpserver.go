package evcore

import (
	"net"
	"strconv"
	"sync"
)

// tcpServerState is the kind-specific state a TCP server's handleRecord
// carries.
type tcpServerState struct {
	mu       sync.Mutex
	ln       *net.TCPListener
	closed   bool
}

// TCPServer is an application-visible handle to a listening TCP server.
type TCPServer struct {
	loop *Loop
	id   Handle
}

// TCPServer binds bindAddress:port and accepts connections, seeding each
// accepted socket's callback bundle with readCB/eventCB. An empty
// bindAddress means 0.0.0.0. Backlog is advisory; Go's runtime listener
// does not expose it directly and this implementation does not attempt
// to emulate it.
func (l *Loop) TCPServer(bindAddress string, port int, readCB func(*Socket, []byte), eventCB func(Condition), opts TCPServerOptions) (*TCPServer, error) {
	if bindAddress == "" {
		bindAddress = "0.0.0.0"
	}
	addr := &net.TCPAddr{IP: net.ParseIP(bindAddress), Port: port}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, err
	}

	rec := l.registry.allocate(KindTCPServer)
	st := &tcpServerState{ln: ln}
	rec.state = st
	rec.cancel = func() {
		st.mu.Lock()
		st.closed = true
		st.mu.Unlock()
		_ = ln.Close()
	}

	srv := &TCPServer{loop: l, id: rec.id}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			l.Submit(func() {
				if l.registry.lookup(rec.id) == nil {
					_ = conn.Close()
					return
				}
				l.newSocket(conn, true, Callbacks{Read: readCB, Event: eventCB}, SocketOptions{})
			})
		}
	}()

	return srv, nil
}

// CloseTCPServer stops accepting new connections but leaves already
// accepted sockets alive. Calling it a second time is a no-op.
func (s *TCPServer) CloseTCPServer() {
	s.loop.registry.destroy(s.id)
}

// addrString is a small helper shared with the HTTP server for turning a
// bind address and port into a net.Listen-compatible string.
func addrString(bindAddress string, port int) string {
	if bindAddress == "" {
		bindAddress = "0.0.0.0"
	}
	return net.JoinHostPort(bindAddress, strconv.Itoa(port))
}
