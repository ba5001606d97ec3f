package evcore

import "time"

// waker is the loop's self-wake mechanism: the thing Submit/SubmitInternal
// use to interrupt a blocked poll so newly queued work runs promptly, and
// the thing Start blocks on between ticks when there is nothing else to
// do. Linux gets an epoll-backed eventfd (poller_linux.go); every other
// platform gets a portable channel-based fallback (poller_other.go).
type waker interface {
	wake() error
	poll(timeout time.Duration) error
	close() error
}
