package transport

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/framewire-io/framewire/internal/proto"
)

// Role decides which half of the stream id space a side allocates from.
type Role int

const (
	// RoleClient allocates odd stream ids.
	RoleClient Role = iota
	// RoleServer allocates even stream ids.
	RoleServer
)

// Options tune a connection. The zero value is usable; missing fields get
// defaults.
type Options struct {
	// MaxFrameSize caps the encoded size of a single frame; larger logical
	// frames are fragmented on write and reassembled on read.
	MaxFrameSize int
	// StrictFragments rejects interleaved fragment chains across streams.
	StrictFragments bool
	// KeepaliveInterval is how often a keepalive probe is sent.
	KeepaliveInterval time.Duration
	// KeepaliveTimeout closes the connection when nothing has arrived for
	// this long.
	KeepaliveTimeout time.Duration
	// ReadLimit caps the size of a single websocket message.
	ReadLimit int64
	// Logger receives connection-level events. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

const (
	defaultMaxFrameSize      = 16 * 1024
	defaultKeepaliveInterval = 20 * time.Second
	defaultKeepaliveTimeout  = 60 * time.Second
	defaultReadLimit         = 1 << 20
)

func (o Options) withDefaults() Options {
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = defaultMaxFrameSize
	}
	if o.KeepaliveInterval <= 0 {
		o.KeepaliveInterval = defaultKeepaliveInterval
	}
	if o.KeepaliveTimeout <= 0 {
		o.KeepaliveTimeout = defaultKeepaliveTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

var errConnClosed = errors.New("transport: connection closed")

// Conn carries frames over one websocket connection, one binary message per
// frame. All frame parsing happens here; streams only ever see decoded,
// reassembled frames.
type Conn struct {
	ws   *websocket.Conn
	role Role
	opts Options
	log  zerolog.Logger

	writeMu sync.Mutex

	// asm is only touched from readLoop, which gives the assembler the
	// single-threaded arrival-order processing it needs.
	asm *proto.Assembler

	streamMu   sync.Mutex
	streams    map[uint32]*Stream
	nextStream uint32

	acceptCh chan *Stream

	closedCh  chan struct{}
	closeOnce sync.Once
	closeErr  atomic.Value

	bornAt              time.Time
	lastActiveMonoNanos atomic.Int64
}

func newConn(ws *websocket.Conn, role Role, opts Options) *Conn {
	opts = opts.withDefaults()
	c := &Conn{
		ws:       ws,
		role:     role,
		opts:     opts,
		log:      *opts.Logger,
		asm:      proto.NewAssembler(opts.StrictFragments),
		streams:  make(map[uint32]*Stream),
		acceptCh: make(chan *Stream, 16),
		closedCh: make(chan struct{}),
		bornAt:   time.Now(),
	}
	ws.SetReadLimit(opts.ReadLimit)
	c.markActive()
	go c.readLoop()
	go c.keepaliveLoop()
	return c
}

func (c *Conn) markActive() {
	c.lastActiveMonoNanos.Store(time.Since(c.bornAt).Nanoseconds())
}

func (c *Conn) idleFor() time.Duration {
	idle := time.Since(c.bornAt) - time.Duration(c.lastActiveMonoNanos.Load())
	if idle < 0 {
		return 0
	}
	return idle
}

// Err returns the reason the connection closed, or nil while it is open.
func (c *Conn) Err() error {
	if err, ok := c.closeErr.Load().(error); ok {
		return err
	}
	return nil
}

// Done is closed when the connection shuts down.
func (c *Conn) Done() <-chan struct{} { return c.closedCh }

// Close shuts the connection down and fails all open streams.
func (c *Conn) Close() error {
	c.closeWithErr(errConnClosed)
	return nil
}

func (c *Conn) closeWithErr(err error) {
	c.closeOnce.Do(func() {
		if err == nil {
			err = errConnClosed
		}
		c.closeErr.Store(err)
		close(c.closedCh)

		c.streamMu.Lock()
		streams := c.streams
		c.streams = make(map[uint32]*Stream)
		c.streamMu.Unlock()
		for _, s := range streams {
			s.closeWithErr(err)
		}

		_ = c.ws.Close()
		c.log.Debug().Err(err).Msg("connection closed")
	})
}

// WriteFrame puts one logical frame on the wire, fragmenting it when it
// exceeds the frame size limit.
func (c *Conn) WriteFrame(f proto.Frame) error {
	select {
	case <-c.closedCh:
		return fmt.Errorf("%w: %v", errConnClosed, c.Err())
	default:
	}
	frames, err := proto.Split(f, c.opts.MaxFrameSize)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for _, fr := range frames {
		_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, fr); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) readLoop() {
	defer c.closeWithErr(errors.New("transport: read loop exit"))

	for {
		mt, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.markActive()
		if mt != websocket.BinaryMessage {
			continue
		}
		f, err := proto.Decode(msg)
		if err != nil {
			// A frame that fails decode means the byte stream is
			// corrupt; there is no way to resynchronize.
			c.log.Warn().Err(err).Msg("undecodable frame, terminating connection")
			c.closeWithErr(err)
			return
		}
		if err := c.handleFrame(f); err != nil {
			c.closeWithErr(err)
			return
		}
	}
}

func (c *Conn) handleFrame(f proto.Frame) error {
	if f.Type() == proto.FrameKeepalive {
		if f.Flags().Has(proto.FlagRespond) {
			data, _ := f.Data()
			return c.WriteFrame(proto.NewKeepalive(data, false))
		}
		return nil
	}
	if f.Type() == proto.FrameCancel {
		c.asm.Discard(f.StreamID())
	}

	out, done, err := c.asm.Offer(f)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}
	f = out

	id := f.StreamID()
	if proto.IsConnectionLevel(id) {
		c.log.Debug().Stringer("frame", f).Msg("connection-level frame")
		return nil
	}
	if s := c.getStream(id); s != nil {
		s.deliver(f)
		return nil
	}
	if c.initiatedByPeer(id) && isRequestType(f.Type()) {
		s := c.registerStream(id)
		s.deliver(f)
		select {
		case c.acceptCh <- s:
		case <-c.closedCh:
		}
		return nil
	}
	// frame for a stream already torn down on this side
	c.log.Debug().Uint32("stream", id).Stringer("frame", f).Msg("frame for unknown stream dropped")
	return nil
}

func isRequestType(t proto.FrameType) bool {
	switch t {
	case proto.FrameRequestResponse, proto.FrameRequestFNF, proto.FrameRequestStream, proto.FrameRequestChannel:
		return true
	}
	return false
}

func (c *Conn) initiatedByPeer(id uint32) bool {
	if c.role == RoleServer {
		return proto.IsClientInitiated(id)
	}
	return proto.IsServerInitiated(id)
}

func (c *Conn) keepaliveLoop() {
	ticker := time.NewTicker(c.opts.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closedCh:
			return
		case <-ticker.C:
			if c.idleFor() > c.opts.KeepaliveTimeout {
				c.closeWithErr(errors.New("transport: keepalive timeout"))
				return
			}
			if err := c.WriteFrame(proto.NewKeepalive(nil, true)); err != nil {
				c.closeWithErr(err)
				return
			}
		}
	}
}

// OpenStream allocates a stream id on this side's half of the id space and
// registers a stream for it.
func (c *Conn) OpenStream() (*Stream, error) {
	select {
	case <-c.closedCh:
		return nil, fmt.Errorf("%w: %v", errConnClosed, c.Err())
	default:
	}
	c.streamMu.Lock()
	c.nextStream++
	id := c.nextStream * 2
	if c.role == RoleClient {
		id--
	}
	if id > proto.MaxStreamID {
		c.streamMu.Unlock()
		return nil, errors.New("transport: stream ids exhausted")
	}
	s := newStream(id, c)
	c.streams[id] = s
	c.streamMu.Unlock()
	return s, nil
}

// Accept returns the next stream the peer opened.
func (c *Conn) Accept() (*Stream, error) {
	select {
	case s := <-c.acceptCh:
		return s, nil
	case <-c.closedCh:
		return nil, fmt.Errorf("%w: %v", errConnClosed, c.Err())
	}
}

func (c *Conn) registerStream(id uint32) *Stream {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	s := newStream(id, c)
	c.streams[id] = s
	return s
}

func (c *Conn) getStream(id uint32) *Stream {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	return c.streams[id]
}

func (c *Conn) forgetStream(id uint32) {
	c.streamMu.Lock()
	delete(c.streams, id)
	c.streamMu.Unlock()
}
