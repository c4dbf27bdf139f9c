package proto

import "errors"

var (
	// ErrMalformedFrame is returned when a buffer cannot be parsed as a
	// frame: shorter than the fixed header, reserved stream-id bit set, or
	// optional fields that do not fit the buffer.
	ErrMalformedFrame = errors.New("proto: malformed frame")

	// ErrUnknownFrameType is returned when the encoded type code does not
	// map to a known frame type.
	ErrUnknownFrameType = errors.New("proto: unknown frame type")

	// ErrInconsistentLength is returned when the derived data length is
	// negative or otherwise impossible, which means the frame was truncated
	// or corrupted in transit.
	ErrInconsistentLength = errors.New("proto: inconsistent payload size")

	// ErrNoMetadataPresent is returned when metadata is requested from a
	// frame whose metadata flag is not set.
	ErrNoMetadataPresent = errors.New("proto: no metadata present")

	// ErrDataNotSupported is returned when data is requested from a frame
	// type that cannot carry a data block.
	ErrDataNotSupported = errors.New("proto: frame type does not support data")

	// ErrRequestNNotSupported is returned when a flow-control count is
	// requested from a frame type that carries none.
	ErrRequestNNotSupported = errors.New("proto: frame type does not carry request n")

	// ErrInterleavedFragments is returned by a strict Assembler when a new
	// fragment chain starts while another stream's chain is still open.
	ErrInterleavedFragments = errors.New("proto: interleaved fragment chains")

	// ErrIncompleteChain is returned when the connection ends while one or
	// more fragment chains are still waiting for their terminating frame.
	ErrIncompleteChain = errors.New("proto: incomplete fragment chain")

	// ErrMaxFrameSize is returned by Split when the size limit is too small
	// to fit even one byte of content next to the fixed fields.
	ErrMaxFrameSize = errors.New("proto: max frame size too small to fragment")
)
