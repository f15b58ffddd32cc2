//go:build linux

// Package poll wraps epoll(7).
//
// epoll can't carry Go pointers in its event data, so the poller keeps the
// handler of every registered descriptor in a map keyed by fd. A Poller is
// not safe for concurrent use; it belongs to the goroutine running the
// event loop.
package poll

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Events uint32

const (
	EventRead       Events = unix.EPOLLIN
	EventWrite      Events = unix.EPOLLOUT
	EventPeerClosed Events = unix.EPOLLRDHUP
	EventHangup     Events = unix.EPOLLHUP
	EventError      Events = unix.EPOLLERR

	// EdgeTriggered only reports transitions. The owner must drain the
	// descriptor until it would block.
	EdgeTriggered Events = unix.EPOLLET
)

func (ev Events) Has(flags Events) bool { return ev&flags != 0 }

// IsClosing reports whether ev says the descriptor is done for.
func (ev Events) IsClosing() bool {
	return ev.Has(EventPeerClosed | EventHangup | EventError)
}

// Handler is notified when its descriptor is ready.
type Handler interface {
	OnReady(ev Events)
}

type Event struct {
	Fd      int
	Handler Handler
	Events  Events
}

var (
	ErrAlreadyRegistered = errors.New("descriptor is already registered")
	ErrNotRegistered     = errors.New("descriptor is not registered")
	ErrPollerClosed      = errors.New("poller is closed")
)

type Poller struct {
	epfd     int
	handlers map[int]Handler
	buf      []unix.EpollEvent
	closed   bool
}

// New creates an epoll instance reporting at most maxEvents per Wait.
func New(maxEvents int) (*Poller, error) {
	if maxEvents <= 0 {
		return nil, errors.Errorf("max events must be positive, got %d", maxEvents)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "creating epoll instance")
	}

	return &Poller{
		epfd:     epfd,
		handlers: make(map[int]Handler),
		buf:      make([]unix.EpollEvent, maxEvents),
	}, nil
}

func (p *Poller) Register(fd int, interest Events, h Handler) error {
	if p.closed {
		return ErrPollerClosed
	}
	if _, ok := p.handlers[fd]; ok {
		return ErrAlreadyRegistered
	}

	ev := unix.EpollEvent{Events: uint32(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return errors.Wrapf(err, "adding fd %d", fd)
	}

	p.handlers[fd] = h
	return nil
}

func (p *Poller) Modify(fd int, interest Events) error {
	if p.closed {
		return ErrPollerClosed
	}
	if _, ok := p.handlers[fd]; !ok {
		return ErrNotRegistered
	}

	ev := unix.EpollEvent{Events: uint32(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return errors.Wrapf(err, "modifying fd %d", fd)
	}

	return nil
}

// Deregister stops watching fd. The handler is forgotten even if the
// kernel already dropped the descriptor.
func (p *Poller) Deregister(fd int) error {
	if p.closed {
		return ErrPollerClosed
	}
	if _, ok := p.handlers[fd]; !ok {
		return ErrNotRegistered
	}
	delete(p.handlers, fd)

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return errors.Wrapf(err, "removing fd %d", fd)
	}

	return nil
}

// Wait blocks until at least one descriptor is ready or timeout passes.
// A negative timeout waits forever. An interrupted wait returns an
// empty batch.
func (p *Poller) Wait(timeout time.Duration) ([]Event, error) {
	if p.closed {
		return nil, ErrPollerClosed
	}

	msec := -1
	if timeout >= 0 {
		msec = int(timeout.Milliseconds())
	}

	n, err := unix.EpollWait(p.epfd, p.buf, msec)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "waiting for events")
	}

	batch := make([]Event, 0, n)
	for _, ev := range p.buf[:n] {
		fd := int(ev.Fd)
		h, ok := p.handlers[fd]
		if !ok {
			continue
		}
		batch = append(batch, Event{Fd: fd, Handler: h, Events: Events(ev.Events)})
	}

	return batch, nil
}

// Len returns the number of registered descriptors.
func (p *Poller) Len() int { return len(p.handlers) }

// Close releases the epoll instance.
// Registered descriptors are left open; closing them is up to their owners.
func (p *Poller) Close() error {
	if p.closed {
		return ErrPollerClosed
	}
	p.closed = true
	p.handlers = nil

	return errors.Wrap(unix.Close(p.epfd), "closing epoll instance")
}
