package proto

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the fixed frame header size: a 4-byte stream id word
	// followed by a 2-byte word holding the 6-bit type and 10-bit flags.
	HeaderSize = 6

	// MaxStreamID is the largest legal stream id. The top bit of the stream
	// id word is reserved and must be zero on the wire.
	MaxStreamID = 1<<31 - 1

	// MaxMetadataLen is the largest metadata block the 3-byte length prefix
	// can describe.
	MaxMetadataLen = 1<<24 - 1

	metadataLenSize = 3
	requestNSize    = 4
)

// Flags is the 10-bit flag field of a frame header.
type Flags uint16

const (
	// FlagIgnore marks a frame the receiver may ignore if not understood.
	FlagIgnore Flags = 0x200
	// FlagMetadata marks a length-prefixed metadata block as present.
	FlagMetadata Flags = 0x100
	// FlagFollows marks that more fragments of the same logical message
	// follow on this stream.
	FlagFollows Flags = 0x080
	// FlagRespond asks for a response to a keepalive. Shares the bit with
	// FlagFollows; keepalive frames are never fragmented.
	FlagRespond Flags = 0x080
	// FlagComplete marks the final frame of a stream.
	FlagComplete Flags = 0x040
	// FlagNext marks a payload frame carrying content.
	FlagNext Flags = 0x020

	flagsMask Flags = 0x3ff
)

// Has reports whether all bits of fl are set.
func (f Flags) Has(fl Flags) bool { return f&fl == fl }

// Frame is a single encoded frame. It is a view over the wire bytes; the
// accessors slice into it without copying, so a Frame and anything obtained
// from it are only valid while the backing buffer is.
type Frame []byte

// EncodeHeader writes the fixed header into b, which must be at least
// HeaderSize bytes. It panics if streamID exceeds MaxStreamID.
func EncodeHeader(b []byte, streamID uint32, t FrameType, flags Flags) {
	if streamID > MaxStreamID {
		panic(fmt.Sprintf("proto: stream id %d out of range", streamID))
	}
	binary.BigEndian.PutUint32(b[0:4], streamID)
	binary.BigEndian.PutUint16(b[4:6], uint16(t)<<10|uint16(flags&flagsMask))
}

// Decode validates b as a frame and returns it as a Frame sharing the same
// backing array. Structural problems fail decode; no partially valid frame
// is ever returned.
func Decode(b []byte) (Frame, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrMalformedFrame, len(b), HeaderSize)
	}
	if binary.BigEndian.Uint32(b[0:4])&(1<<31) != 0 {
		return nil, fmt.Errorf("%w: reserved stream id bit set", ErrMalformedFrame)
	}
	f := Frame(b)
	t := f.Type()
	if !t.Valid() {
		return nil, fmt.Errorf("%w: code 0x%02x", ErrUnknownFrameType, uint8(t))
	}
	if f.HasMetadata() && !t.CanHaveMetadata() {
		return nil, fmt.Errorf("%w: metadata flag on %s", ErrMalformedFrame, t)
	}
	if _, err := f.DataLen(); err != nil {
		return nil, err
	}
	return f, nil
}

// StreamID returns the frame's stream identifier.
func (f Frame) StreamID() uint32 {
	return binary.BigEndian.Uint32(f[0:4]) & MaxStreamID
}

// Type returns the frame's type code. It may be outside the closed set if
// the frame did not come through Decode.
func (f Frame) Type() FrameType {
	return FrameType(binary.BigEndian.Uint16(f[4:6]) >> 10)
}

// Flags returns the frame's 10-bit flag field.
func (f Frame) Flags() Flags {
	return Flags(binary.BigEndian.Uint16(f[4:6])) & flagsMask
}

// HasMetadata reports whether the metadata flag is set.
func (f Frame) HasMetadata() bool { return f.Flags().Has(FlagMetadata) }

// HasFollows reports whether more fragments follow this frame.
func (f Frame) HasFollows() bool { return f.Flags().Has(FlagFollows) }

// fixedLen is the size of the type-specific fixed field between header and
// metadata. Request frames with an initial demand and REQUEST_N both carry
// one 4-byte count there.
func (f Frame) fixedLen() int {
	t := f.Type()
	if t.HasInitialRequestN() || t == FrameRequestN {
		return requestNSize
	}
	return 0
}

// InitialRequestN returns the initial flow-control demand of a
// stream-initiating frame. Zero is a legal value meaning no demand yet.
func (f Frame) InitialRequestN() (uint32, error) {
	if !f.Type().HasInitialRequestN() {
		return 0, fmt.Errorf("%w: %s", ErrRequestNNotSupported, f.Type())
	}
	return f.requestN()
}

// RequestN returns the flow-control count of a frame that carries one:
// either an initial demand or the count of a REQUEST_N frame.
func (f Frame) RequestN() (uint32, error) {
	t := f.Type()
	if !t.HasInitialRequestN() && t != FrameRequestN {
		return 0, fmt.Errorf("%w: %s", ErrRequestNNotSupported, t)
	}
	return f.requestN()
}

func (f Frame) requestN() (uint32, error) {
	if len(f) < HeaderSize+requestNSize {
		return 0, fmt.Errorf("%w: truncated request n", ErrInconsistentLength)
	}
	return binary.BigEndian.Uint32(f[HeaderSize : HeaderSize+requestNSize]), nil
}

// Metadata returns the metadata block without copying. A frame whose
// metadata flag is unset has no metadata, not an empty block.
func (f Frame) Metadata() ([]byte, error) {
	if !f.HasMetadata() {
		return nil, fmt.Errorf("%w: %s", ErrNoMetadataPresent, f.Type())
	}
	off := HeaderSize + f.fixedLen()
	if len(f) < off+metadataLenSize {
		return nil, fmt.Errorf("%w: truncated metadata length", ErrInconsistentLength)
	}
	n := int(readUint24(f[off:]))
	if len(f) < off+metadataLenSize+n {
		return nil, fmt.Errorf("%w: metadata %d bytes, %d available", ErrInconsistentLength, n, len(f)-off-metadataLenSize)
	}
	return f[off+metadataLenSize : off+metadataLenSize+n], nil
}

// Data returns the data block without copying. Zero remaining bytes is a
// legal empty block on a data-capable type.
func (f Frame) Data() ([]byte, error) {
	if !f.Type().CanHaveData() {
		return nil, fmt.Errorf("%w: %s", ErrDataNotSupported, f.Type())
	}
	off, err := f.dataOffset()
	if err != nil {
		return nil, err
	}
	return f[off:], nil
}

// DataLen derives the data block length from the overall frame length and
// the optional field sizes:
//
//	len(f) - HeaderSize - fixed - (metadata ? 3+metadataLen : 0)
//
// It also validates the frame structure: a negative result, a truncated
// optional field, or trailing bytes on a type that cannot carry data all
// fail with ErrInconsistentLength.
func (f Frame) DataLen() (int, error) {
	off, err := f.dataOffset()
	if err != nil {
		return 0, err
	}
	n := len(f) - off
	if n > 0 && !f.Type().CanHaveData() {
		return 0, fmt.Errorf("%w: %d trailing bytes on %s", ErrInconsistentLength, n, f.Type())
	}
	return n, nil
}

func (f Frame) dataOffset() (int, error) {
	off := HeaderSize + f.fixedLen()
	if f.HasMetadata() {
		if len(f) < off+metadataLenSize {
			return 0, fmt.Errorf("%w: truncated metadata length", ErrInconsistentLength)
		}
		off += metadataLenSize + int(readUint24(f[off:]))
	}
	if off > len(f) {
		return 0, fmt.Errorf("%w: %d bytes short", ErrInconsistentLength, off-len(f))
	}
	return off, nil
}

func (f Frame) String() string {
	return fmt.Sprintf("[%s stream=%d flags=0x%03x len=%d]", f.Type(), f.StreamID(), uint16(f.Flags()), len(f))
}

func readUint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}
