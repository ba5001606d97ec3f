package evcore

import (
	"errors"
	"fmt"
)

// Condition is the value raised to an event-cb: the unified channel for
// both informational notifications and errors.
type Condition interface {
	error
	// Informational reports whether this condition is a *-info leaf
	// rather than an error. Such conditions leave their handle alive,
	// except tcp-eof, on which the socket is closed.
	Informational() bool
}

// ConnInfo is the informational-non-fatal root of the taxonomy: parent of
// tcp-info and http-info.
type ConnInfo struct {
	Kind    string // "tcp-info" or "http-info"
	Message string
}

func (e ConnInfo) Error() string      { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }
func (e ConnInfo) Informational() bool { return true }

// ConnError extends ConnInfo, carrying an error code and message. Code is
// -1 when synthesized (no underlying OS/library errno).
type ConnError struct {
	Kind    string // "dns-error", "tcp-error", "http-error"
	Code    int
	Msg     string
	Cause   error
}

func (e *ConnError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (code=%d): %s: %v", e.Kind, e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s (code=%d): %s", e.Kind, e.Code, e.Msg)
}

func (e *ConnError) Informational() bool { return false }

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *ConnError) Unwrap() error { return e.Cause }

func newConnError(kind string, code int, msg string, cause error) *ConnError {
	return &ConnError{Kind: kind, Code: code, Msg: msg, Cause: cause}
}

// DNSError specializes ConnError for resolver failures.
type DNSError struct{ *ConnError }

func newDNSError(code int, msg string, cause error) *DNSError {
	return &DNSError{newConnError("dns-error", code, msg, cause)}
}

// TCPError specializes ConnError for socket failures.
type TCPError struct{ *ConnError }

func newTCPError(code int, msg string, cause error) *TCPError {
	return &TCPError{newConnError("tcp-error", code, msg, cause)}
}

// TCPEOFCondition is the informational tcp-eof leaf: the peer closed its
// write side.
type TCPEOFCondition struct{ ConnInfo }

func newTCPEOF() TCPEOFCondition {
	return TCPEOFCondition{ConnInfo{Kind: "tcp-eof", Message: "peer closed write side"}}
}

// TCPTimeoutCondition and TCPRefusedCondition are tcp-error
// specializations, terminal for the socket.
type TCPTimeoutCondition struct{ *TCPError }
type TCPRefusedCondition struct{ *TCPError }

func newTCPTimeout(dir string) TCPTimeoutCondition {
	return TCPTimeoutCondition{newTCPError(-1, fmt.Sprintf("%s timeout", dir), nil)}
}

func newTCPRefused(cause error) TCPRefusedCondition {
	return TCPRefusedCondition{newTCPError(-1, "connection refused", cause)}
}

// HTTPError specializes ConnError for HTTP failures.
type HTTPError struct{ *ConnError }

func newHTTPError(code int, msg string, cause error) *HTTPError {
	return &HTTPError{newConnError("http-error", code, msg, cause)}
}

// HTTPTimeoutCondition and HTTPRefusedCondition are http-error
// specializations, terminal for the request.
type HTTPTimeoutCondition struct{ *HTTPError }
type HTTPRefusedCondition struct{ *HTTPError }

func newHTTPTimeout() HTTPTimeoutCondition {
	return HTTPTimeoutCondition{newHTTPError(-1, "request timed out", nil)}
}

func newHTTPRefused(cause error) HTTPRefusedCondition {
	return HTTPRefusedCondition{newHTTPError(-1, "connection refused", cause)}
}

// ErrSocketClosed is the sole condition raised synchronously via panic
// rather than delivered to event-cb, when the application calls any
// socket operation on a closed socket.
var ErrSocketClosed = errors.New("evcore: socket-closed")

// ErrLoopActive is returned by Start when this Loop has already been
// started, whether it is still running or has terminated. The check is per
// Loop: starting a different Loop from inside a running loop's callback
// is not detected.
var ErrLoopActive = errors.New("evcore: event-loop-active")

// ErrSignalExists is returned by SignalHandler when a record for the
// given signal is already installed.
var ErrSignalExists = errors.New("evcore: signal-exists")

// ErrHandleDestroyed names the already-destroyed case. lookup reports a
// missing id as a nil record and the trampoline silently returns; no
// function in this package returns this error or delivers it to a
// callback.
var ErrHandleDestroyed = errors.New("evcore: handle already destroyed")

// ErrLoopTerminated is returned by Submit/SubmitInternal once the loop
// has finished tearing down.
var ErrLoopTerminated = errors.New("evcore: loop terminated")

// AppError wraps a value recovered from a panicking user callback when
// catch-app-errors is enabled, so it can travel through event-cb as a
// Condition alongside the reactor's own conditions.
type AppError struct {
	Cause error
}

func (e *AppError) Error() string       { return "app-error: " + e.Cause.Error() }
func (e *AppError) Informational() bool { return false }
func (e *AppError) Unwrap() error       { return e.Cause }

func newAppError(recovered any) *AppError {
	if err, ok := recovered.(error); ok {
		return &AppError{Cause: err}
	}
	return &AppError{Cause: fmt.Errorf("%v", recovered)}
}
