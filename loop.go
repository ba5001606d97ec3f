// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package evcore

import (
	"container/heap"
	"runtime"
	"sync"
	"time"
)

// Task is a unit of work handed to Submit or SubmitInternal: always run on
// the loop goroutine, never concurrently with any other callback.
type Task struct {
	Runnable func()
}

// Loop is a single-threaded, callback-oriented event-loop supervisor. A
// Loop is created with New and driven to completion by Start, which blocks
// the calling goroutine until the loop drains naturally or Exit is called.
type Loop struct {
	registry *registry
	signals  *signalRegistry
	state    *loopState

	logger         Logger
	fatalCB        func(error)
	defaultEventCB func(Condition)
	catchAppErrors bool

	mu       sync.Mutex
	external []Task
	internal []Task
	timers   timerHeap

	waker waker

	exitRequested bool
	loopGoroutine uint64

	startedAt time.Time
}

// New allocates a Loop in its created, not-yet-started state.
func New() *Loop {
	return &Loop{
		registry: newRegistry(),
		signals:  newSignalRegistry(),
		state:    newLoopState(),
	}
}

// Start initializes the reactor, runs entry inside the loop, then drives
// the loop until it drains naturally or Exit is called, tearing down
// afterwards. Start blocks the caller. Only one Start may be active on a
// Loop at a time; a second concurrent call returns ErrLoopActive.
func (l *Loop) Start(entry func(*Loop), opts ...LoopOption) error {
	if !l.state.TryTransition(StateCreated, StateRunning) {
		return ErrLoopActive
	}

	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		l.state.Store(StateTerminated)
		return err
	}
	l.logger = cfg.logger
	l.fatalCB = cfg.fatalCB
	l.defaultEventCB = cfg.defaultEventCB
	l.catchAppErrors = cfg.catchAppErrors

	w, err := newWaker()
	if err != nil {
		l.state.Store(StateTerminated)
		return err
	}
	l.waker = w

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	l.loopGoroutine = getGoroutineID()
	l.startedAt = time.Now()

	l.logInfo(catLoop, "loop started")

	l.safeCall(func() { entry(l) }, nil)

	for !l.exitRequested {
		l.runTimers()
		l.drainQueue(&l.internal)
		l.drainQueue(&l.external)

		if l.exitRequested {
			break
		}
		if l.isEmpty() {
			break
		}

		timeout := l.nextTimeout()
		if err := l.waker.poll(timeout); err != nil {
			l.logError(catPoll, "poller failed, terminating loop", err)
			if l.fatalCB != nil {
				l.fatalCB(err)
			}
			break
		}
	}

	l.state.Store(StateDraining)
	l.registry.purge()
	_ = l.waker.close()
	l.state.Store(StateTerminated)
	l.logInfo(catLoop, "loop terminated")
	return nil
}

// Exit requests immediate loop termination. In-flight callbacks complete
// but queued events do not; all handle records are forcibly destroyed
// during teardown without invoking any of their callbacks. Exit must be
// called from the loop goroutine (from inside a callback); calling it
// from any other goroutine races the loop's exit check and is logged as
// a warning instead of honored directly — use Submit to hop onto the
// loop goroutine first.
func (l *Loop) Exit() {
	if !l.isLoopThread() {
		l.logWarn(catLoop, "Exit called off the loop goroutine, ignoring", nil)
		return
	}
	l.exitRequested = true
}

// isLoopThread reports whether the calling goroutine is the one running
// this Loop's Start call.
func (l *Loop) isLoopThread() bool {
	return l.loopGoroutine != 0 && getGoroutineID() == l.loopGoroutine
}

// isEmpty reports whether the loop has no queued work and no outstanding
// handle, the condition for a natural exit.
func (l *Loop) isEmpty() bool {
	l.mu.Lock()
	empty := len(l.external) == 0 && len(l.internal) == 0 && len(l.timers) == 0
	l.mu.Unlock()
	return empty && l.registry.count() == 0
}

// nextTimeout computes how long the poller may block, capped so the loop
// remains responsive even with no pending timer.
func (l *Loop) nextTimeout() time.Duration {
	const maxWait = 5 * time.Second

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.external) > 0 || len(l.internal) > 0 {
		return 0
	}
	if len(l.timers) == 0 {
		return maxWait
	}
	delay := time.Until(l.timers[0].when)
	if delay < 0 {
		return 0
	}
	if delay > maxWait {
		return maxWait
	}
	return delay
}

// drainQueue executes every task queued in *q at the moment of the call.
// Internal and external queues are drained separately so priority-internal
// work (registry bookkeeping) always runs ahead of caller-submitted work.
func (l *Loop) drainQueue(q *[]Task) {
	l.mu.Lock()
	tasks := *q
	*q = nil
	l.mu.Unlock()

	for _, t := range tasks {
		if l.exitRequested {
			return
		}
		l.safeCall(t.Runnable, nil)
	}
}

// Submit enqueues a task for execution on the loop goroutine, waking the
// loop if it is currently blocked in the poller. It is how goroutines
// running blocking work (DNS resolution, dial, accept, HTTP transport)
// hand their result back without touching the registry themselves.
func (l *Loop) Submit(fn func()) error {
	return l.submit(&l.external, fn)
}

// SubmitInternal is Submit for loop-internal bookkeeping that should run
// ahead of caller-submitted tasks within the same tick.
func (l *Loop) SubmitInternal(fn func()) error {
	return l.submit(&l.internal, fn)
}

func (l *Loop) submit(q *[]Task, fn func()) error {
	if l.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}
	l.mu.Lock()
	*q = append(*q, Task{Runnable: fn})
	l.mu.Unlock()
	return l.waker.wake()
}

// safeCall invokes fn under the error-trapping policy: if catchAppErrors
// is enabled, a panic is recovered and routed as an AppError to eventCB
// (or defaultEventCB if nil); otherwise the panic propagates, unwinding
// Start and terminating the loop.
func (l *Loop) safeCall(fn func(), eventCB func(Condition)) {
	if fn == nil {
		return
	}
	if !l.catchAppErrors {
		fn()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			cb := eventCB
			if cb == nil {
				cb = l.defaultEventCB
			}
			cb(newAppError(r))
		}
	}()
	fn()
}

// dispatch routes cond to cb, falling back to the loop's default-event-cb
// when cb is nil (no event-cb was registered for the operation in
// question).
func (l *Loop) dispatch(cb func(Condition), cond Condition) {
	if cb == nil {
		cb = l.defaultEventCB
	}
	cb(cond)
}

// --- timers ---

type timerEntry struct {
	when     time.Time
	fn       func()
	eventCB  func(Condition)
	canceled bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)         { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// runTimers executes every timer due at or before now, skipping any
// canceled via its handle's destroy/cancel before it fired.
func (l *Loop) runTimers() {
	now := time.Now()
	for {
		if l.exitRequested {
			return
		}
		l.mu.Lock()
		if len(l.timers) == 0 || l.timers[0].when.After(now) {
			l.mu.Unlock()
			return
		}
		e := heap.Pop(&l.timers).(*timerEntry)
		l.mu.Unlock()

		if e.canceled {
			continue
		}
		l.safeCall(e.fn, e.eventCB)
	}
}

func (l *Loop) scheduleTimer(e *timerEntry) {
	l.mu.Lock()
	heap.Push(&l.timers, e)
	l.mu.Unlock()
}

// getGoroutineID parses the current goroutine's numeric id out of a stack
// trace; used only by isLoopThread, for Exit's off-goroutine check.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// Stats reports the loop's current bookkeeping counts.
type Stats struct {
	IncomingConnections int
	OutgoingConnections int
	OpenDNSQueries      int
	DataRegistryCount   int
	FnRegistryCount     int
}

// Stats returns a snapshot of the loop's registry accounting. Every
// record carries exactly one callback bundle, so DataRegistryCount and
// FnRegistryCount always coincide in this implementation.
func (l *Loop) Stats() Stats {
	count := l.registry.count()
	return Stats{
		IncomingConnections: l.registry.countWhere(func(r *handleRecord) bool {
			st, ok := r.state.(*socketState)
			return ok && st.incoming
		}),
		OutgoingConnections: l.registry.countWhere(func(r *handleRecord) bool {
			st, ok := r.state.(*socketState)
			return ok && !st.incoming
		}),
		OpenDNSQueries:    l.registry.countWhere(func(r *handleRecord) bool { return r.kind == KindDNS }),
		DataRegistryCount: count,
		FnRegistryCount:   count,
	}
}
