package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/framewire-io/framewire/internal/proto"
)

// ErrRecvTimeout is returned by Recv when its deadline passes.
var ErrRecvTimeout = errors.New("transport: stream recv timeout")

var errStreamClosed = errors.New("transport: stream closed")

// Stream is one logical exchange on a Conn. Incoming frames for its id are
// delivered already decoded and reassembled.
type Stream struct {
	id uint32
	c  *Conn

	rx chan proto.Frame

	closeOnce sync.Once
	closedCh  chan struct{}

	mu  sync.Mutex
	err error
}

func newStream(id uint32, c *Conn) *Stream {
	return &Stream{
		id:       id,
		c:        c,
		rx:       make(chan proto.Frame, 64),
		closedCh: make(chan struct{}),
	}
}

// ID returns the stream identifier.
func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) deliver(f proto.Frame) {
	select {
	case s.rx <- f:
	case <-s.closedCh:
	}
}

func (s *Stream) closeWithErr(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.closedCh)
		s.c.forgetStream(s.id)
	})
}

// Close tears the stream down locally without notifying the peer.
func (s *Stream) Close() {
	s.closeWithErr(errStreamClosed)
}

// Send writes a frame on this stream.
func (s *Stream) Send(f proto.Frame) error {
	select {
	case <-s.closedCh:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.err
	default:
		return s.c.WriteFrame(f)
	}
}

// Recv waits for the next frame, up to deadline when it is positive.
func (s *Stream) Recv(deadline time.Duration) (proto.Frame, error) {
	if deadline > 0 {
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		select {
		case f := <-s.rx:
			return f, nil
		case <-timer.C:
			return nil, ErrRecvTimeout
		case <-s.closedCh:
			return nil, errStreamClosed
		}
	}
	select {
	case f := <-s.rx:
		return f, nil
	case <-s.closedCh:
		return nil, errStreamClosed
	}
}

// RequestStream sends a REQUEST_STREAM frame with the given initial demand.
func (s *Stream) RequestStream(initialN uint32, metadata, data []byte) error {
	return s.Send(proto.NewRequestStream(s.id, initialN, metadata, data, 0))
}

// Payload sends a PAYLOAD frame. Callers pass FlagNext/FlagComplete through
// flags.
func (s *Stream) Payload(metadata, data []byte, flags proto.Flags) error {
	return s.Send(proto.NewPayload(s.id, metadata, data, flags))
}

// RequestN grants the peer n more units of demand.
func (s *Stream) RequestN(n uint32) error {
	return s.Send(proto.NewRequestN(s.id, n))
}

// Cancel tells the peer to stop and tears the stream down.
func (s *Stream) Cancel() error {
	err := s.Send(proto.NewCancel(s.id))
	s.Close()
	return err
}

// Error sends an ERROR frame describing a stream failure.
func (s *Stream) Error(description string) error {
	return s.Send(proto.NewError(s.id, []byte(description)))
}
