//go:build linux

package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sys/unix"
)

type recorder struct {
	events []Events
}

func (r *recorder) OnReady(ev Events) { r.events = append(r.events, ev) }

type PollerTestSuite struct {
	suite.Suite

	p    *Poller
	a, b int
}

func TestPollerTestSuite(t *testing.T) {
	suite.Run(t, new(PollerTestSuite))
}

func (s *PollerTestSuite) SetupTest() {
	var err error
	s.p, err = New(4)
	s.Require().NoError(err)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	s.Require().NoError(err)
	s.a, s.b = fds[0], fds[1]
}

func (s *PollerTestSuite) TearDownTest() {
	_ = unix.Close(s.a)
	_ = unix.Close(s.b)
	if !s.p.closed {
		s.NoError(s.p.Close())
	}
}

func (s *PollerTestSuite) TestNewInvalid() {
	_, err := New(0)
	s.Error(err)
}

func (s *PollerTestSuite) TestReadReady() {
	h := &recorder{}
	s.Require().NoError(s.p.Register(s.a, EventRead, h))
	s.Equal(1, s.p.Len())

	batch, err := s.p.Wait(0)
	s.Require().NoError(err)
	s.Empty(batch)

	_, err = unix.Write(s.b, []byte("hi"))
	s.Require().NoError(err)

	batch, err = s.p.Wait(time.Second)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.Equal(s.a, batch[0].Fd)
	s.Same(h, batch[0].Handler)
	s.True(batch[0].Events.Has(EventRead))
	s.False(batch[0].Events.IsClosing())

	batch[0].Handler.OnReady(batch[0].Events)
	s.Len(h.events, 1)
}

func (s *PollerTestSuite) TestEdgeTriggered() {
	h := &recorder{}
	s.Require().NoError(s.p.Register(s.a, EventRead|EdgeTriggered, h))

	_, err := unix.Write(s.b, []byte("hi"))
	s.Require().NoError(err)

	batch, err := s.p.Wait(time.Second)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)

	// Nothing new arrived, so no edge.
	batch, err = s.p.Wait(0)
	s.Require().NoError(err)
	s.Empty(batch)
}

func (s *PollerTestSuite) TestPeerClosed() {
	h := &recorder{}
	s.Require().NoError(s.p.Register(s.a, EventRead|EventPeerClosed|EventHangup|EventError, h))

	s.Require().NoError(unix.Close(s.b))
	s.b = -1

	batch, err := s.p.Wait(time.Second)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.True(batch[0].Events.IsClosing())
}

func (s *PollerTestSuite) TestRegisterTwice() {
	s.Require().NoError(s.p.Register(s.a, EventRead, &recorder{}))
	s.ErrorIs(s.p.Register(s.a, EventRead, &recorder{}), ErrAlreadyRegistered)
}

func (s *PollerTestSuite) TestModify() {
	s.ErrorIs(s.p.Modify(s.a, EventWrite), ErrNotRegistered)

	s.Require().NoError(s.p.Register(s.a, EventRead, &recorder{}))
	s.Require().NoError(s.p.Modify(s.a, EventWrite))

	// An empty socket is writable.
	batch, err := s.p.Wait(time.Second)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.True(batch[0].Events.Has(EventWrite))
}

func (s *PollerTestSuite) TestDeregister() {
	s.ErrorIs(s.p.Deregister(s.a), ErrNotRegistered)

	s.Require().NoError(s.p.Register(s.a, EventRead, &recorder{}))
	s.Require().NoError(s.p.Deregister(s.a))
	s.Zero(s.p.Len())

	_, err := unix.Write(s.b, []byte("hi"))
	s.Require().NoError(err)

	batch, err := s.p.Wait(0)
	s.Require().NoError(err)
	s.Empty(batch)
}

func (s *PollerTestSuite) TestClose() {
	s.Require().NoError(s.p.Close())
	s.ErrorIs(s.p.Close(), ErrPollerClosed)

	_, err := s.p.Wait(0)
	s.ErrorIs(err, ErrPollerClosed)
	s.ErrorIs(s.p.Register(s.a, EventRead, &recorder{}), ErrPollerClosed)
}
