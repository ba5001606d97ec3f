package evcore

import "sync/atomic"

// LoopState is the lifecycle state of a Loop.
//
// State machine:
//
//	StateCreated   -> StateRunning     [Start]
//	StateRunning   -> StateDraining    [Exit, or registry/queue empties naturally]
//	StateDraining  -> StateTerminated  [teardown complete]
//
// StateCreated is never re-entered; StateTerminated is terminal.
type LoopState uint32

const (
	// StateCreated is the state before Start has been called.
	StateCreated LoopState = iota
	// StateRunning is the state while the entry function and reactor
	// callbacks are executing.
	StateRunning
	// StateDraining is set once Exit has been requested, or once the
	// registry and task queue have both gone empty; in-flight callbacks
	// finish but no further reactor wakeups are dispatched.
	StateDraining
	// StateTerminated is the state once Start has returned to its caller.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// loopState is a small atomic CAS state machine with no cache-line
// padding: evcore has no lock-free multi-producer hot path for padding
// to protect.
type loopState struct {
	v atomic.Uint32
}

func newLoopState() *loopState {
	s := &loopState{}
	s.v.Store(uint32(StateCreated))
	return s
}

// Load returns the current state atomically.
func (s *loopState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state, bypassing transition validation.
// Only used for the one-way slide through StateDraining into
// StateTerminated.
func (s *loopState) Store(state LoopState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to
// another, returning whether it succeeded.
func (s *loopState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
