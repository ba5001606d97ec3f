package evcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWakerWakeUnblocksPoll(t *testing.T) {
	w, err := newWaker()
	require.NoError(t, err)
	defer w.close()

	done := make(chan error, 1)
	go func() {
		done <- w.poll(2 * time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, w.wake())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poll did not wake within the timeout")
	}
}

func TestWakerPollTimesOutWithoutWake(t *testing.T) {
	w, err := newWaker()
	require.NoError(t, err)
	defer w.close()

	start := time.Now()
	err = w.poll(50 * time.Millisecond)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWakerDoubleWakeCoalesces(t *testing.T) {
	w, err := newWaker()
	require.NoError(t, err)
	defer w.close()

	require.NoError(t, w.wake())
	require.NoError(t, w.wake())

	// A single poll call should observe the wake and return promptly,
	// regardless of how many wake() calls coalesced into it.
	start := time.Now()
	err = w.poll(2 * time.Second)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
