package evcore

import (
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// socketPhase tracks the state machine: connecting -> open ->
// half-closed-write-pending -> closed. closed is terminal.
type socketPhase uint8

const (
	phaseConnecting socketPhase = iota
	phaseOpen
	phaseHalfClosedWritePending
	phaseClosed
)

// socketState is the kind-specific state a socket's handleRecord carries.
type socketState struct {
	mu sync.Mutex

	conn     net.Conn
	incoming bool
	phase    socketPhase

	readEnable  bool
	writeEnable bool

	readTimeout  time.Duration
	writeTimeout time.Duration

	writeQ       *queue.Queue
	writeCBArmed bool
	closePending bool

	cond        *sync.Cond
	writerWake  chan struct{}
	readerAwake chan struct{}
}

func newSocketState(conn net.Conn, incoming bool) *socketState {
	st := &socketState{
		conn:        conn,
		incoming:    incoming,
		phase:       phaseOpen,
		readEnable:  true,
		writeEnable: true,
		writeQ:      queue.New(),
		writerWake:  make(chan struct{}, 1),
	}
	st.cond = sync.NewCond(&st.mu)
	return st
}

// Socket is an application-visible handle to a connected TCP socket.
type Socket struct {
	loop *Loop
	id   Handle
}

// lookupSocket resolves s to its record and state, panicking with
// ErrSocketClosed if the socket no longer exists or has been closed,
// matching the "thrown, not delivered" contract for operations on a
// closed socket.
func (s *Socket) lookupSocket() (*handleRecord, *socketState) {
	rec := s.loop.registry.lookup(s.id)
	if rec == nil {
		panic(ErrSocketClosed)
	}
	st := rec.state.(*socketState)
	st.mu.Lock()
	if st.phase == phaseClosed {
		st.mu.Unlock()
		panic(ErrSocketClosed)
	}
	st.mu.Unlock()
	return rec, st
}

// WriteSocketData appends data to the socket's outbound write buffer. Any
// callback supplied in cbs replaces the current one in that slot before
// the write is enqueued.
func (s *Socket) WriteSocketData(data []byte, cbs Callbacks) {
	rec, st := s.lookupSocket()

	st.mu.Lock()
	rec.callbacks.replace(cbs)
	if cbs.Write != nil {
		st.writeCBArmed = true
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	st.writeQ.Add(chunk)
	st.mu.Unlock()

	select {
	case st.writerWake <- struct{}{}:
	default:
	}
}

// SetSocketTimeouts arms or clears the socket's per-direction idle
// timeouts. A value of zero or less clears the corresponding timeout.
func (s *Socket) SetSocketTimeouts(readSeconds, writeSeconds float64) {
	_, st := s.lookupSocket()
	st.mu.Lock()
	st.readTimeout = durationFromSeconds(readSeconds)
	st.writeTimeout = durationFromSeconds(writeSeconds)
	st.mu.Unlock()
}

// EnableSocket sets the per-direction enable bits, waking the reader if
// read is being enabled.
func (s *Socket) EnableSocket(read, write bool) {
	_, st := s.lookupSocket()
	st.mu.Lock()
	if read {
		st.readEnable = true
	}
	if write {
		st.writeEnable = true
	}
	st.cond.Broadcast()
	st.mu.Unlock()
}

// DisableSocket clears the per-direction enable bits. Clearing read stops
// the reader from starting another read, so no new read deadline is
// armed; a read already in progress keeps its deadline. The write bit is
// recorded only: it does not pause the writer or its write deadline.
func (s *Socket) DisableSocket(read, write bool) {
	_, st := s.lookupSocket()
	st.mu.Lock()
	if read {
		st.readEnable = false
	}
	if write {
		st.writeEnable = false
	}
	st.mu.Unlock()
}

// CloseSocket closes the socket. If the write buffer is non-empty the
// close is deferred until it drains. Calling CloseSocket a second time
// panics with ErrSocketClosed, per the documented socket-close/server-
// close asymmetry.
func (s *Socket) CloseSocket() {
	rec, st := s.lookupSocket()

	st.mu.Lock()
	if st.writeQ.Length() > 0 {
		st.phase = phaseHalfClosedWritePending
		st.closePending = true
		st.mu.Unlock()
		return
	}
	st.mu.Unlock()

	s.loop.finalizeSocketClose(rec, st)
}

// LocalAddr and RemoteAddr expose the underlying connection's endpoints,
// a supplement not excluded by any stated non-goal.
func (s *Socket) LocalAddr() net.Addr {
	_, st := s.lookupSocket()
	if st.conn == nil {
		return nil
	}
	return st.conn.LocalAddr()
}

func (s *Socket) RemoteAddr() net.Addr {
	_, st := s.lookupSocket()
	if st.conn == nil {
		return nil
	}
	return st.conn.RemoteAddr()
}

// finalizeSocketClose transitions the socket to closed, closes the
// connection, and destroys the handle record. Must run on the loop
// goroutine.
func (l *Loop) finalizeSocketClose(rec *handleRecord, st *socketState) {
	st.mu.Lock()
	if st.phase == phaseClosed {
		st.mu.Unlock()
		return
	}
	st.phase = phaseClosed
	st.cond.Broadcast()
	conn := st.conn
	st.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	l.registry.destroy(rec.id)
}

// newSocket wires a freshly dialed or accepted net.Conn into the
// registry, starting its reader and writer goroutines, and returns the
// application-facing handle.
func (l *Loop) newSocket(conn net.Conn, incoming bool, cbs Callbacks, opts SocketOptions) *Socket {
	rec := l.registry.allocate(KindSocket)
	rec.callbacks = cbs
	st := newSocketState(conn, incoming)
	st.readTimeout = durationFromSeconds(opts.ReadTimeoutSeconds)
	st.writeTimeout = durationFromSeconds(opts.WriteTimeoutSeconds)
	rec.state = st
	rec.cancel = func() { _ = conn.Close() }

	if tc, ok := conn.(*net.TCPConn); ok && opts.NoDelay {
		_ = tc.SetNoDelay(true)
	}

	sock := &Socket{loop: l, id: rec.id}
	l.runSocketReader(rec, st, sock)
	l.runSocketWriter(rec, st, sock)
	return sock
}

func (l *Loop) runSocketReader(rec *handleRecord, st *socketState, sock *Socket) {
	go func() {
		buf := make([]byte, 64*1024)
		for {
			st.mu.Lock()
			for !st.readEnable && st.phase != phaseClosed {
				st.cond.Wait()
			}
			closed := st.phase == phaseClosed
			timeout := st.readTimeout
			st.mu.Unlock()
			if closed {
				return
			}

			if timeout > 0 {
				_ = st.conn.SetReadDeadline(time.Now().Add(timeout))
			} else {
				_ = st.conn.SetReadDeadline(time.Time{})
			}

			n, err := st.conn.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				l.Submit(func() {
					r := l.registry.lookup(rec.id)
					if r == nil {
						return
					}
					cb := r.callbacks.Read
					if cb != nil {
						l.safeCall(func() { cb(sock, chunk) }, r.callbacks.Event)
					}
				})
			}
			if err != nil {
				l.deliverSocketError(rec, st, err)
				return
			}
		}
	}()
}

func (l *Loop) runSocketWriter(rec *handleRecord, st *socketState, sock *Socket) {
	go func() {
		for {
			st.mu.Lock()
			for st.writeQ.Length() == 0 && st.phase != phaseClosed {
				st.mu.Unlock()
				<-st.writerWake
				st.mu.Lock()
			}
			if st.phase == phaseClosed {
				st.mu.Unlock()
				return
			}
			chunk, _ := st.writeQ.Peek().([]byte)
			st.mu.Unlock()

			timeout := st.writeTimeout
			if timeout > 0 {
				_ = st.conn.SetWriteDeadline(time.Now().Add(timeout))
			} else {
				_ = st.conn.SetWriteDeadline(time.Time{})
			}

			_, err := st.conn.Write(chunk)
			if err != nil {
				l.deliverSocketError(rec, st, err)
				return
			}

			st.mu.Lock()
			st.writeQ.Remove()
			drained := st.writeQ.Length() == 0
			armed := st.writeCBArmed
			pendingClose := st.closePending
			if drained && armed {
				st.writeCBArmed = false
			}
			st.mu.Unlock()

			if drained {
				if armed {
					l.Submit(func() {
						r := l.registry.lookup(rec.id)
						if r == nil {
							return
						}
						cb := r.callbacks.Write
						if cb != nil {
							l.safeCall(func() { cb(sock) }, r.callbacks.Event)
						}
					})
				}
				if pendingClose {
					l.Submit(func() {
						l.finalizeSocketClose(rec, st)
					})
					return
				}
			}
		}
	}()
}

// deliverSocketError classifies a read/write error into the appropriate
// Condition, routes it to the socket's event-cb, and closes the socket
// before returning, per the terminal-condition contract.
func (l *Loop) deliverSocketError(rec *handleRecord, st *socketState, err error) {
	var cond Condition
	switch {
	case err == nil:
		return
	case isEOF(err):
		cond = newTCPEOF()
	case isTimeout(err):
		cond = newTCPTimeout("socket")
	case isRefused(err):
		cond = newTCPRefused(err)
	default:
		cond = newTCPError(-1, "socket error", err)
	}

	l.Submit(func() {
		r := l.registry.lookup(rec.id)
		if r == nil {
			l.finalizeSocketClose(rec, st)
			return
		}
		cb := r.callbacks.Event
		l.finalizeSocketClose(rec, st)
		l.safeCall(func() { l.dispatch(cb, cond) }, nil)
	})
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func isRefused(err error) bool {
	oe, ok := err.(*net.OpError)
	return ok && oe.Op == "dial"
}

// TCPSend creates a socket connected to host:port, writes data once the
// connection is established, and returns it. host is resolved
// synchronously if it is already an IPv4 literal, asynchronously
// otherwise. Any connection-level failure is delivered to eventCB and
// the socket closed before the callback returns. The returned Socket is
// valid immediately; operations on it before the connection resolves
// observe the connecting placeholder state.
func (l *Loop) TCPSend(host string, port int, data []byte, readCB func(*Socket, []byte), eventCB func(Condition), opts SocketOptions) *Socket {
	rec := l.registry.allocate(KindSocket)
	placeholder := &socketState{phase: phaseConnecting, writeQ: queue.New()}
	placeholder.cond = sync.NewCond(&placeholder.mu)
	rec.state = placeholder
	rec.callbacks = Callbacks{Read: readCB, Event: eventCB}
	sock := &Socket{loop: l, id: rec.id}

	dial := func(addr string) {
		go func() {
			conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, strconv.Itoa(port)), dialTimeout(opts))
			l.Submit(func() {
				if l.registry.lookup(rec.id) == nil {
					return
				}
				if err != nil {
					l.registry.destroy(rec.id)
					l.dispatch(eventCB, classifyDialError(err))
					return
				}
				st := newSocketState(conn, false)
				st.readTimeout = durationFromSeconds(opts.ReadTimeoutSeconds)
				st.writeTimeout = durationFromSeconds(opts.WriteTimeoutSeconds)
				rec.state = st
				rec.cancel = func() { _ = conn.Close() }
				if tc, ok := conn.(*net.TCPConn); ok && opts.NoDelay {
					_ = tc.SetNoDelay(true)
				}
				l.runSocketReader(rec, st, sock)
				l.runSocketWriter(rec, st, sock)
				if len(data) > 0 {
					sock.WriteSocketData(data, Callbacks{})
				}
			})
		}()
	}

	rec.cancel = func() {}
	l.DNSLookup(host, func(addr string, family int) {
		dial(addr)
	}, func(cond Condition) {
		l.registry.destroy(rec.id)
		l.dispatch(eventCB, cond)
	})

	return sock
}

func dialTimeout(opts SocketOptions) time.Duration {
	if opts.ReadTimeoutSeconds > 0 {
		return durationFromSeconds(opts.ReadTimeoutSeconds)
	}
	return 10 * time.Second
}

func classifyDialError(err error) Condition {
	if isTimeout(err) {
		return newTCPTimeout("connect")
	}
	return newTCPRefused(err)
}
