package proto

import "fmt"

// build assembles a frame in the strict field order: header, optional 4-byte
// flow-control count, optional length-prefixed metadata, data. A nil
// metadata slice means no metadata block; an empty non-nil slice encodes a
// present, zero-length block.
func build(streamID uint32, t FrameType, flags Flags, requestN uint32, metadata, data []byte) Frame {
	hasN := t.HasInitialRequestN() || t == FrameRequestN
	if metadata != nil {
		if len(metadata) > MaxMetadataLen {
			panic(fmt.Sprintf("proto: metadata %d bytes exceeds %d", len(metadata), MaxMetadataLen))
		}
		flags |= FlagMetadata
	}
	n := HeaderSize + len(data)
	if hasN {
		n += requestNSize
	}
	if metadata != nil {
		n += metadataLenSize + len(metadata)
	}
	f := make(Frame, n)
	EncodeHeader(f, streamID, t, flags)
	off := HeaderSize
	if hasN {
		f[off] = byte(requestN >> 24)
		f[off+1] = byte(requestN >> 16)
		f[off+2] = byte(requestN >> 8)
		f[off+3] = byte(requestN)
		off += requestNSize
	}
	if metadata != nil {
		putUint24(f[off:], uint32(len(metadata)))
		off += metadataLenSize
		copy(f[off:], metadata)
		off += len(metadata)
	}
	copy(f[off:], data)
	return f
}

// Encode builds a frame of an arbitrary type, validating the requested
// fields against the type's capabilities. The typed constructors below are
// preferred; Encode exists for types without a dedicated constructor, such
// as SETUP and RESUME.
func Encode(streamID uint32, t FrameType, flags Flags, requestN uint32, metadata, data []byte) (Frame, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: code 0x%02x", ErrUnknownFrameType, uint8(t))
	}
	if streamID > MaxStreamID {
		return nil, fmt.Errorf("%w: stream id %d out of range", ErrMalformedFrame, streamID)
	}
	if metadata != nil && !t.CanHaveMetadata() {
		return nil, fmt.Errorf("%w: %s", ErrNoMetadataPresent, t)
	}
	if len(data) > 0 && !t.CanHaveData() {
		return nil, fmt.Errorf("%w: %s", ErrDataNotSupported, t)
	}
	if requestN != 0 && !t.HasInitialRequestN() && t != FrameRequestN {
		return nil, fmt.Errorf("%w: %s", ErrRequestNNotSupported, t)
	}
	return build(streamID, t, flags, requestN, metadata, data), nil
}

// NewPayload builds a PAYLOAD frame. Callers pass stream control bits
// (FlagNext, FlagComplete, FlagFollows) through flags.
func NewPayload(streamID uint32, metadata, data []byte, flags Flags) Frame {
	return build(streamID, FramePayload, flags, 0, metadata, data)
}

// NewRequestStream builds a REQUEST_STREAM frame carrying the initial
// flow-control demand. Zero demand is legal; policy above the codec decides
// whether to reject it.
func NewRequestStream(streamID, initialN uint32, metadata, data []byte, flags Flags) Frame {
	return build(streamID, FrameRequestStream, flags, initialN, metadata, data)
}

// NewRequestChannel builds a REQUEST_CHANNEL frame.
func NewRequestChannel(streamID, initialN uint32, metadata, data []byte, flags Flags) Frame {
	return build(streamID, FrameRequestChannel, flags, initialN, metadata, data)
}

// NewRequestResponse builds a REQUEST_RESPONSE frame.
func NewRequestResponse(streamID uint32, metadata, data []byte, flags Flags) Frame {
	return build(streamID, FrameRequestResponse, flags, 0, metadata, data)
}

// NewRequestFNF builds a fire-and-forget request frame.
func NewRequestFNF(streamID uint32, metadata, data []byte, flags Flags) Frame {
	return build(streamID, FrameRequestFNF, flags, 0, metadata, data)
}

// NewRequestN builds a REQUEST_N frame: a bare flow-control count, no
// metadata, no data.
func NewRequestN(streamID, n uint32) Frame {
	return build(streamID, FrameRequestN, 0, n, nil, nil)
}

// NewCancel builds a CANCEL frame for the given stream.
func NewCancel(streamID uint32) Frame {
	return build(streamID, FrameCancel, 0, 0, nil, nil)
}

// NewError builds an ERROR frame whose data block describes the error.
func NewError(streamID uint32, description []byte) Frame {
	return build(streamID, FrameError, 0, 0, nil, description)
}

// NewMetadataPush builds a connection-level METADATA_PUSH frame.
func NewMetadataPush(metadata []byte) Frame {
	if metadata == nil {
		metadata = []byte{}
	}
	return build(0, FrameMetadataPush, 0, 0, metadata, nil)
}

// NewKeepalive builds a connection-level KEEPALIVE frame. respond asks the
// peer to echo it back.
func NewKeepalive(data []byte, respond bool) Frame {
	var flags Flags
	if respond {
		flags |= FlagRespond
	}
	return build(0, FrameKeepalive, flags, 0, nil, data)
}
