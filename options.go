// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package evcore

// loopOptions holds the configuration a Start call resolves before
// entering the loop: fatal/logger/default-error callback channels and the
// error-trapping policy, all thread-local to the running loop rather than
// process-wide state.
type loopOptions struct {
	logger          Logger
	fatalCB         func(error)
	defaultEventCB  func(Condition)
	catchAppErrors  bool
}

// LoopOption configures a Loop at Start time.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithLogger installs a structured logger for loop-internal diagnostics
// (poller errors, signal dispatch, DNS/TCP/HTTP goroutine handoffs). If
// never supplied, Start installs a no-op logger.
func WithLogger(logger Logger) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithFatalCB installs the callback invoked when the reactor itself
// reports an internal failure that would normally abort the process: a
// failed poll of the wake mechanism (epoll_wait on Linux). The loop exits
// immediately afterwards. A failed wake-fd write is returned from Submit
// and does not reach this callback.
func WithFatalCB(fn func(error)) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.fatalCB = fn
		return nil
	}}
}

// WithDefaultEventCB installs the fallback condition sink used when a
// raised condition has no event-cb of its own to reach (an operation
// registered without one, or an application error trapped with no
// enclosing handler). If never supplied, the default re-raises on
// connection-error and above, silently absorbs connection-info, and
// re-raises any other error.
func WithDefaultEventCB(fn func(Condition)) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.defaultEventCB = fn
		return nil
	}}
}

// WithCatchAppErrors sets the error-trapping policy. When enabled, any
// error raised from inside a user callback is routed to the nearest
// event-cb (the one registered with the operation that invoked the
// callback) or to default-event-cb if none, instead of propagating out
// of the loop and terminating it. Disabled by default.
func WithCatchAppErrors(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.catchAppErrors = enabled
		return nil
	}}
}

func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		logger: newNoOpLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.defaultEventCB == nil {
		cfg.defaultEventCB = defaultEventCB
	}
	return cfg, nil
}

// defaultEventCB implements the documented fallback policy: re-raise on
// connection-error and above, silently absorb connection-info, re-raise
// anything else by panicking (surfacing it the same way an uncaught
// application error would).
func defaultEventCB(c Condition) {
	if c == nil {
		return
	}
	if c.Informational() {
		return
	}
	panic(c)
}

// DelayOptions configures a Delay call.
type DelayOptions struct {
	// Seconds is the delay before the timer fires. Zero schedules the
	// callback for the next loop iteration.
	Seconds float64
}

// SocketOptions configures socket creation by TCPSend. Sockets accepted by
// a TCPServer are created with the zero value.
type SocketOptions struct {
	ReadTimeoutSeconds  float64
	WriteTimeoutSeconds float64
	// NoDelay disables Nagle's algorithm on the underlying connection.
	NoDelay bool
}

// TCPServerOptions configures TCPServer.
type TCPServerOptions struct {
	Backlog int
}

// HTTPServerOptions configures HTTPServer.
type HTTPServerOptions struct {
	ReadTimeoutSeconds  float64
	WriteTimeoutSeconds float64
}

// HTTPClientOptions configures HTTPClient.
type HTTPClientOptions struct {
	TimeoutSeconds float64
	Method         string
	Headers        map[string]string
	Body           []byte
}
