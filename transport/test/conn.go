// Package test holds behaviour shared by every [transport.Conn].
package test

import (
	"bytes"
	"io"
	"time"

	"tinyhttpd/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

// ConnTestSuite runs against a connected pair. Embedders fill C1 and C2
// in SetupTest after calling this SetupTest.
type ConnTestSuite struct {
	suite.Suite
	C1, C2 transport.Conn
	Clock  clock.Clock
}

func (s *ConnTestSuite) SetupTest() {
	s.Clock = clock.New() // Use real-time timer for now.
}

func (s *ConnTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	_ = s.C1.Close()
	_ = s.C2.Close()
}

// ReadFull reads from c until n bytes arrived, the peer finished or the
// timeout passed. c never blocks, so this polls.
func ReadFull(c transport.Conn, n int, clk clock.Clock, timeout time.Duration) ([]byte, error) {
	deadline := clk.Now().Add(timeout)
	result := make([]byte, 0, n)
	buf := make([]byte, 4096)

	for len(result) < n {
		m, err := c.Read(buf)
		result = append(result, buf[:m]...)
		switch {
		case err == nil:
		case errors.Is(err, transport.ErrWouldBlock):
			if clk.Now().After(deadline) {
				return result, transport.ErrDeadLineExceeded
			}
			time.Sleep(time.Millisecond)
		default:
			return result, err
		}
	}

	return result, nil
}

func (s *ConnTestSuite) TestReadWrite() {
	data := []byte("Hello, World!")

	n, err := s.C1.Write(data)
	s.Require().NoError(err)
	s.Equal(len(data), n)

	got, err := ReadFull(s.C2, len(data), s.Clock, time.Second)
	s.Require().NoError(err)
	s.Equal(data, got)
}

func (s *ConnTestSuite) TestReadWouldBlock() {
	buf := make([]byte, 10)

	n, err := s.C2.Read(buf)
	s.ErrorIs(err, transport.ErrWouldBlock)
	s.Zero(n)
}

func (s *ConnTestSuite) TestLargeWrite() {
	// Bigger than any socket buffer, so Write has to wait for the reader.
	data := bytes.Repeat([]byte("ABCD"), 1<<20)

	done := make(chan error, 1)
	go func() {
		_, err := s.C1.Write(data)
		done <- err
	}()

	got, err := ReadFull(s.C2, len(data), s.Clock, 5*time.Second)
	s.Require().NoError(err)
	s.Equal(data, got)
	s.NoError(<-done)
}

func (s *ConnTestSuite) TestCloseWrite() {
	_, err := s.C1.Write([]byte("bye"))
	s.Require().NoError(err)
	s.Require().NoError(s.C1.CloseWrite())

	got, err := ReadFull(s.C2, 4, s.Clock, time.Second)
	s.ErrorIs(err, io.EOF)
	s.Equal([]byte("bye"), got)

	// The other direction still works.
	_, err = s.C2.Write([]byte("ok"))
	s.Require().NoError(err)
	got, err = ReadFull(s.C1, 2, s.Clock, time.Second)
	s.Require().NoError(err)
	s.Equal([]byte("ok"), got)
}

func (s *ConnTestSuite) TestClose() {
	s.Require().NoError(s.C1.Close())
	s.ErrorIs(s.C1.Close(), transport.ErrConnClosed)

	buf := make([]byte, 10)

	n, err := s.C1.Read(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)

	n, err = s.C1.Write(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)

	s.ErrorIs(s.C1.CloseWrite(), transport.ErrConnClosed)

	// The peer sees the end of the stream.
	_, err = ReadFull(s.C2, 1, s.Clock, time.Second)
	s.ErrorIs(err, io.EOF)
}

func (s *ConnTestSuite) TestWriteDeadLine() {
	s.C1.SetWriteTimeout(50 * time.Millisecond)

	// Nobody reads C2, so the buffers fill up eventually.
	chunk := make([]byte, 64*1024)
	var err error
	for i := 0; i < 1024; i++ {
		if _, err = s.C1.Write(chunk); err != nil {
			break
		}
	}
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
}
