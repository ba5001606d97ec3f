package evcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayZeroSecondsFiresOnNextTick(t *testing.T) {
	l := New()
	var fired bool
	err := l.Start(func(l *Loop) {
		l.Delay(func(*Loop) {
			fired = true
		}, DelayOptions{}, nil)
	})
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestDelayOrdersByDeadline(t *testing.T) {
	l := New()
	var order []int
	err := l.Start(func(l *Loop) {
		l.Delay(func(*Loop) { order = append(order, 2) }, DelayOptions{Seconds: 0.02}, nil)
		l.Delay(func(*Loop) { order = append(order, 1) }, DelayOptions{Seconds: 0.005}, nil)
		l.Delay(func(*Loop) {
			order = append(order, 3)
			l.Exit()
		}, DelayOptions{Seconds: 0.04}, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDurationFromSeconds(t *testing.T) {
	assert.Equal(t, time.Duration(0), durationFromSeconds(0))
	assert.Equal(t, time.Duration(0), durationFromSeconds(-1))
	assert.Equal(t, 500*time.Millisecond, durationFromSeconds(0.5))
}

func TestDelayCancelViaLoopExitSkipsLaterTimer(t *testing.T) {
	l := New()
	var laterFired bool
	err := l.Start(func(l *Loop) {
		l.Delay(func(*Loop) { l.Exit() }, DelayOptions{Seconds: 0}, nil)
		l.Delay(func(*Loop) { laterFired = true }, DelayOptions{Seconds: 0.5}, nil)
	})
	require.NoError(t, err)
	assert.False(t, laterFired)
}
