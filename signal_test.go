package evcore

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalHandlerReceivesSignal(t *testing.T) {
	l := New()
	received := make(chan os.Signal, 1)
	err := l.Start(func(l *Loop) {
		_, err := l.SignalHandler(syscall.SIGUSR1, func(l *Loop, sig os.Signal) {
			received <- sig
			l.Exit()
		}, nil)
		require.NoError(t, err)

		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)
		}()
	})
	require.NoError(t, err)

	select {
	case sig := <-received:
		assert.Equal(t, syscall.SIGUSR1, sig)
	default:
		t.Fatal("signal handler never fired")
	}
}

func TestSignalHandlerDuplicateReturnsErrSignalExists(t *testing.T) {
	l := New()
	err := l.Start(func(l *Loop) {
		_, err := l.SignalHandler(syscall.SIGUSR2, func(*Loop, os.Signal) {}, nil)
		require.NoError(t, err)

		_, err = l.SignalHandler(syscall.SIGUSR2, func(*Loop, os.Signal) {}, nil)
		assert.ErrorIs(t, err, ErrSignalExists)

		l.ClearSignalHandlers()
		l.Exit()
	})
	require.NoError(t, err)
}

func TestClearSignalHandlersAllowsReinstall(t *testing.T) {
	l := New()
	err := l.Start(func(l *Loop) {
		_, err := l.SignalHandler(syscall.SIGUSR1, func(*Loop, os.Signal) {}, nil)
		require.NoError(t, err)

		l.ClearSignalHandlers()

		_, err = l.SignalHandler(syscall.SIGUSR1, func(*Loop, os.Signal) {}, nil)
		assert.NoError(t, err)

		l.ClearSignalHandlers()
		l.Exit()
	})
	require.NoError(t, err)
}

func TestFreeSignalHandlerRemovesRegistration(t *testing.T) {
	l := New()
	err := l.Start(func(l *Loop) {
		id, err := l.SignalHandler(syscall.SIGUSR2, func(*Loop, os.Signal) {}, nil)
		require.NoError(t, err)

		l.FreeSignalHandler(id)

		_, err = l.SignalHandler(syscall.SIGUSR2, func(*Loop, os.Signal) {}, nil)
		assert.NoError(t, err)

		l.ClearSignalHandlers()
		l.Exit()
	})
	require.NoError(t, err)
}
