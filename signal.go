package evcore

import (
	"os"
	"os/signal"
	"sync"
)

// signalState is the kind-specific state a signal handler's handleRecord
// carries: the signal number and the channel os/signal delivers to. The
// record's cancel stops that delivery, restoring the prior disposition.
type signalState struct {
	signo os.Signal
	ch    chan os.Signal
}

// signalRegistry tracks the one handle allowed per signo, independent of
// the generic handle registry so SignalHandler can enforce
// "at most one record may be active" without scanning every record.
// os.Signal values from the syscall package (syscall.Signal) are plain
// comparable integers under the interface, so they key a map directly.
type signalRegistry struct {
	mu  sync.Mutex
	byNumber map[os.Signal]Handle
}

func newSignalRegistry() *signalRegistry {
	return &signalRegistry{byNumber: make(map[os.Signal]Handle)}
}

// SignalHandler installs a handler for signo: a reactor-style signal
// event is raised on signalCB every time the process receives it,
// overlaying (not replacing) the host's normal handling. Returns
// ErrSignalExists if a handler for signo is already installed.
func (l *Loop) SignalHandler(signo os.Signal, signalCB func(*Loop, os.Signal), eventCB func(Condition)) (Handle, error) {
	l.signals.mu.Lock()
	if _, exists := l.signals.byNumber[signo]; exists {
		l.signals.mu.Unlock()
		return 0, ErrSignalExists
	}
	l.signals.mu.Unlock()

	rec := l.registry.allocate(KindSignal)
	rec.callbacks.Event = eventCB

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signo)

	done := make(chan struct{})
	st := &signalState{signo: signo, ch: ch}
	rec.state = st
	rec.cancel = func() {
		signal.Stop(ch)
		close(done)
		l.signals.mu.Lock()
		delete(l.signals.byNumber, signo)
		l.signals.mu.Unlock()
	}

	l.signals.mu.Lock()
	l.signals.byNumber[signo] = rec.id
	l.signals.mu.Unlock()

	go func() {
		for {
			select {
			case sig, ok := <-ch:
				if !ok {
					return
				}
				l.Submit(func() {
					r := l.registry.lookup(rec.id)
					if r == nil {
						return
					}
					l.safeCall(func() { signalCB(l, sig) }, r.callbacks.Event)
				})
			case <-done:
				return
			}
		}
	}()

	return rec.id, nil
}

// FreeSignalHandler tears down the handler installed for id, restoring
// the process's prior disposition for that signal.
func (l *Loop) FreeSignalHandler(id Handle) {
	l.registry.destroy(id)
}

// ClearSignalHandlers frees every installed signal handler.
func (l *Loop) ClearSignalHandlers() {
	l.signals.mu.Lock()
	ids := make([]Handle, 0, len(l.signals.byNumber))
	for _, id := range l.signals.byNumber {
		ids = append(ids, id)
	}
	l.signals.mu.Unlock()

	for _, id := range ids {
		l.registry.destroy(id)
	}
}
