// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package evcore is a single-threaded, callback-oriented event loop
// exposing timers, signal handlers, IPv4 DNS resolution, TCP clients and
// servers, and HTTP clients and servers over one cooperative reactor.
//
// # Architecture
//
// A [Loop] owns a handle registry mapping opaque [Handle] ids to reactor
// resources and the [Callbacks] bundle attached to them. Every primitive
// (Delay, SignalHandler, DNSLookup, TCPSend, TCPServer, HTTPServer,
// HTTPClient) allocates a handle, arms the underlying resource, and returns
// immediately; completion always happens later, on the loop goroutine, via
// the callback bundle. Work that must block (DNS, connect, accept, HTTP
// transport) runs on a dedicated goroutine that hands its result back to
// the loop goroutine with Loop.Submit, never invoking a user callback
// itself. The registry is guarded by a mutex; the HTTP server's request
// goroutines allocate and destroy their request records directly.
//
// # Usage
//
//	loop := evcore.New()
//	err := loop.Start(func(l *evcore.Loop) {
//	    l.Delay(func(*evcore.Loop) {
//	        fmt.Println("tick")
//	        l.Exit()
//	    }, evcore.DelayOptions{Seconds: 1}, nil)
//	})
//
// # Error types
//
// Conditions delivered to an event-cb form a small hierarchy:
// [ConnInfo] is the informational root, [ConnError] extends it with an
// error code and message, and [DNSError], [TCPError], and [HTTPError]
// specialize ConnError per subsystem, down to the terminal conditions
// [TCPEOFCondition], [TCPTimeoutCondition], [TCPRefusedCondition],
// [HTTPTimeoutCondition], and [HTTPRefusedCondition]. [ErrSocketClosed]
// is the sole condition raised as a Go panic rather than delivered to a
// callback.
package evcore
