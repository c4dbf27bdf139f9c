package proto

import "fmt"

// Split fragments a frame whose encoded size exceeds maxFrameSize into a
// chain of frames on the same stream. Every frame but the last carries
// FlagFollows. The first frame alone keeps the type-specific fixed fields;
// continuation frames are PAYLOAD frames. Metadata bytes are spread before
// data bytes, each fragment length-prefixing its own metadata slice. A frame
// that already fits is returned unchanged as a single-element chain.
func Split(f Frame, maxFrameSize int) ([]Frame, error) {
	if len(f) <= maxFrameSize {
		return []Frame{f}, nil
	}
	if !f.Type().Fragmentable() {
		return nil, fmt.Errorf("%w: %s frame of %d bytes", ErrMaxFrameSize, f.Type(), len(f))
	}
	fixed := f.fixedLen()
	if maxFrameSize <= HeaderSize+fixed+metadataLenSize {
		return nil, fmt.Errorf("%w: limit %d", ErrMaxFrameSize, maxFrameSize)
	}

	var metadata []byte
	if f.HasMetadata() {
		var err error
		if metadata, err = f.Metadata(); err != nil {
			return nil, err
		}
	}
	data, err := f.Data()
	if err != nil {
		return nil, err
	}
	var requestN uint32
	if fixed > 0 {
		if requestN, err = f.RequestN(); err != nil {
			return nil, err
		}
	}

	// COMPLETE belongs on the terminating frame; everything else stays on
	// the first.
	firstFlags := f.Flags() &^ (FlagFollows | FlagMetadata | FlagComplete)
	complete := f.Flags() & FlagComplete

	var out []Frame
	mdRem, dataRem := metadata, data
	for first := true; first || len(mdRem) > 0 || len(dataRem) > 0; first = false {
		t := FramePayload
		var flags Flags
		var n uint32
		room := maxFrameSize - HeaderSize
		if first {
			t = f.Type()
			flags = firstFlags
			n = requestN
			room -= fixed
		}
		var mdSlice []byte
		if len(mdRem) > 0 {
			room -= metadataLenSize
			take := min(room, len(mdRem))
			mdSlice, mdRem = mdRem[:take], mdRem[take:]
			room -= take
		} else if first && metadata != nil {
			// keep a present-but-empty metadata block on the first frame
			mdSlice = metadata[:0]
			room -= metadataLenSize
		}
		take := min(room, len(dataRem))
		var dataSlice []byte
		dataSlice, dataRem = dataRem[:take], dataRem[take:]
		if len(mdRem) > 0 || len(dataRem) > 0 {
			flags |= FlagFollows
		} else {
			flags |= complete
		}
		out = append(out, build(f.StreamID(), t, flags, n, mdSlice, dataSlice))
	}
	return out, nil
}

// chain accumulates one stream's in-progress fragment chain. The assembler
// owns these buffers; incoming frame bytes are copied out so callers may
// reuse their read buffers between frames.
type chain struct {
	frameType   FrameType
	flags       Flags
	requestN    uint32
	hasMetadata bool
	metadata    []byte
	data        []byte
}

// Assembler reassembles fragment chains, keyed by stream id. It is not safe
// for concurrent use; process a connection's frames in arrival order on one
// goroutine, which is also what the wire format's ordering rules require.
type Assembler struct {
	// Strict rejects a fragment chain starting while another stream's
	// chain is open. Leave false for wire formats that let chains on
	// different streams interleave.
	Strict bool

	chains map[uint32]*chain
}

// NewAssembler returns an empty assembler.
func NewAssembler(strict bool) *Assembler {
	return &Assembler{Strict: strict, chains: make(map[uint32]*chain)}
}

// Offer feeds the next frame from the wire through the assembler. A frame
// that is not part of a chain is handed back unchanged. A frame that starts
// or continues a chain is absorbed and (nil, false, nil) is returned. The
// terminating frame of a chain yields the reassembled logical frame, which
// owns its own buffer.
//
// Non-fragmentable frames (REQUEST_N, CANCEL, ...) pass through even while
// a chain is open on their stream; a CANCEL's caller can then Discard the
// chain.
func (a *Assembler) Offer(f Frame) (Frame, bool, error) {
	if !f.Type().Fragmentable() {
		// The follows bit has per-type meaning elsewhere (keepalive
		// respond), so it is not interpreted here.
		return f, true, nil
	}
	id := f.StreamID()
	c := a.chains[id]
	if c == nil {
		if !f.HasFollows() {
			return f, true, nil
		}
		if a.Strict && len(a.chains) > 0 {
			return nil, false, fmt.Errorf("%w: stream %d started inside another chain", ErrInterleavedFragments, id)
		}
		c = &chain{
			frameType: f.Type(),
			flags:     f.Flags() &^ (FlagFollows | FlagMetadata | FlagComplete),
		}
		if f.Type().HasInitialRequestN() {
			n, err := f.RequestN()
			if err != nil {
				return nil, false, err
			}
			c.requestN = n
		}
		if err := c.absorb(f); err != nil {
			return nil, false, err
		}
		a.chains[id] = c
		return nil, false, nil
	}
	if err := c.absorb(f); err != nil {
		return nil, false, err
	}
	if f.HasFollows() {
		return nil, false, nil
	}
	delete(a.chains, id)
	c.flags |= f.Flags() & FlagComplete
	var metadata []byte
	if c.hasMetadata {
		metadata = c.metadata
		if metadata == nil {
			metadata = []byte{}
		}
	}
	return build(id, c.frameType, c.flags, c.requestN, metadata, c.data), true, nil
}

func (c *chain) absorb(f Frame) error {
	if f.HasMetadata() {
		md, err := f.Metadata()
		if err != nil {
			return err
		}
		c.metadata = append(c.metadata, md...)
		c.hasMetadata = true
	}
	d, err := f.Data()
	if err != nil {
		return err
	}
	c.data = append(c.data, d...)
	return nil
}

// Pending returns the number of open chains.
func (a *Assembler) Pending() int { return len(a.chains) }

// Discard drops any in-progress chain for the stream, as on cancellation.
func (a *Assembler) Discard(streamID uint32) { delete(a.chains, streamID) }

// Close reports chains left open when the connection ends and drops their
// state.
func (a *Assembler) Close() error {
	n := len(a.chains)
	if n == 0 {
		return nil
	}
	a.chains = make(map[uint32]*chain)
	return fmt.Errorf("%w: %d chains still open", ErrIncompleteChain, n)
}
