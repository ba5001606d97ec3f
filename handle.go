package evcore

import "fmt"

// Handle is an opaque, application-visible reference to a record in the
// loop's registry. The loop never hands the underlying reactor resource a
// Go closure directly, only a dense Handle, recovering the record (and
// its Callbacks) from the registry inside the trampoline that dispatches
// a completion.
type Handle uint64

// Kind tags the reactor resource a handle record refers to.
type Kind uint8

const (
	KindTimer Kind = iota
	KindSignal
	KindDNS
	KindSocket
	KindTCPServer
	KindHTTPServer
	KindHTTPClient
	KindHTTPRequest
)

func (k Kind) String() string {
	switch k {
	case KindTimer:
		return "timer"
	case KindSignal:
		return "signal"
	case KindDNS:
		return "dns"
	case KindSocket:
		return "socket"
	case KindTCPServer:
		return "tcp-server"
	case KindHTTPServer:
		return "http-server"
	case KindHTTPClient:
		return "http-client"
	case KindHTTPRequest:
		return "http-request"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// handleRecord is the registry's unit of bookkeeping: a handle's kind, its
// generation, its callback bundle, and kind-specific state. The registry
// never sets generation (it stays zero): ids are issued monotonically and
// never reused, so a late wakeup carrying a stale Handle finds no record.
type handleRecord struct {
	id         Handle
	generation uint64
	kind       Kind
	callbacks  Callbacks
	// state holds kind-specific data: *socketState, *signalState,
	// *tcpServerState, *httpServerState, *httpRequestState, or nil for
	// one-shot kinds (timer, dns, http-client) that carry no extra state
	// once the terminal callback has been scheduled.
	state any
	// cancel, if non-nil, releases the underlying reactor resource
	// (stops a timer, closes a socket, cancels a goroutine via context)
	// without running any user callback. destroy calls this once, after
	// removing the record from the registry.
	cancel func()
}
