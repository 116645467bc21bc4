//go:build linux

// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// NewEpollPoller returns a [Poller] based on epoll(7) that reports at
// most maxEvents descriptors per wait.
func NewEpollPoller(maxEvents int) (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	p := &epollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, maxEvents+1),
		wakefd: wakefd,
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// epollPoller implements [Poller]; the eventfd makes Wake possible.
//
// Wake may run on any goroutine, including after Close, so mu guards the
// closed flag and the eventfd lifetime.
type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
	wakefd int

	mu     sync.Mutex
	closed bool
}

// Add implements [Poller].
func (p *epollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Wait implements [Poller].
func (p *epollPoller) Wait(ready []int, timeout time.Duration) (int, error) {
	size := min(len(ready)+1, len(p.events))
	n, err := unix.EpollWait(p.epfd, p.events[:size], int(timeout.Milliseconds()))
	if err == unix.EINTR {
		// The Go runtime preempts threads with signals; not a failure.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count := 0
	for _, ev := range p.events[:n] {
		if int(ev.Fd) == p.wakefd {
			var counter [8]byte
			unix.Read(p.wakefd, counter[:])
			continue
		}
		if count < len(ready) {
			ready[count] = int(ev.Fd)
			count++
		}
	}
	return count, nil
}

// Wake implements [Poller]. It returns [os.ErrClosed] after Close.
func (p *epollPoller) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return os.ErrClosed
	}
	one := [8]byte{1}
	_, err := unix.Write(p.wakefd, one[:])
	return err
}

// Close implements [Poller]. Closing twice is a no-op.
func (p *epollPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}
