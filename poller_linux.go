//go:build linux

package evcore

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// epollWaker is the loop's self-wake mechanism on Linux: an eventfd
// registered with a single-entry epoll instance. The loop's own blocking
// I/O runs on dedicated goroutines that hand results back via Submit, so
// nothing else is ever registered with this epoll instance.
type epollWaker struct {
	epfd     int
	eventFD  int
	eventBuf [1]unix.EpollEvent
	drainBuf [8]byte
}

func newWaker() (waker, error) {
	eventFD, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = unix.Close(eventFD)
		return nil, err
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(eventFD)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, eventFD, ev); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(eventFD)
		return nil, err
	}
	return &epollWaker{epfd: epfd, eventFD: eventFD}, nil
}

func (w *epollWaker) wake() error {
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]
	_, err := writeFD(w.eventFD, buf)
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

func (w *epollWaker) poll(timeout time.Duration) error {
	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}
	n, err := unix.EpollWait(w.epfd, w.eventBuf[:], ms)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	if n > 0 {
		for {
			if _, err := readFD(w.eventFD, w.drainBuf[:]); err != nil {
				break
			}
		}
	}
	return nil
}

func (w *epollWaker) close() error {
	_ = unix.Close(w.epfd)
	return closeFD(w.eventFD)
}
