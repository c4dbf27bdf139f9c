package proto

// FrameType is the 6-bit frame type code carried in every frame header.
type FrameType uint8

const (
	// FrameReserved (0x00) is not a legal wire value.
	FrameReserved FrameType = 0x00
	// FrameSetup opens a connection. Connection-level, stream id 0.
	FrameSetup FrameType = 0x01
	// FrameLease grants the peer permission to send requests.
	FrameLease FrameType = 0x02
	// FrameKeepalive carries liveness probes and their responses.
	FrameKeepalive FrameType = 0x03
	// FrameRequestResponse starts a single-response exchange.
	FrameRequestResponse FrameType = 0x04
	// FrameRequestFNF starts a fire-and-forget exchange.
	FrameRequestFNF FrameType = 0x05
	// FrameRequestStream starts a stream of responses.
	FrameRequestStream FrameType = 0x06
	// FrameRequestChannel starts a bidirectional stream.
	FrameRequestChannel FrameType = 0x07
	// FrameRequestN grants additional flow-control demand on a stream.
	FrameRequestN FrameType = 0x08
	// FrameCancel cancels an outstanding request.
	FrameCancel FrameType = 0x09
	// FramePayload carries response or channel content.
	FramePayload FrameType = 0x0A
	// FrameError reports a connection- or stream-level error.
	FrameError FrameType = 0x0B
	// FrameMetadataPush carries connection-level metadata only.
	FrameMetadataPush FrameType = 0x0C
	// FrameResume asks to resume a previous connection.
	FrameResume FrameType = 0x0D
	// FrameResumeOK accepts a resume request.
	FrameResumeOK FrameType = 0x0E
	// FrameExt is the extension escape hatch.
	FrameExt FrameType = 0x3F

	frameTypeLimit = 0x40
)

type caps uint8

const (
	capValid caps = 1 << iota
	capData
	capMetadata
	capRequestN
	capFragment
)

// frameCaps is the single source of truth for per-type layout capabilities.
// Adding a frame kind means adding one entry here; nothing else branches on
// raw type codes.
var frameCaps = [frameTypeLimit]caps{
	FrameSetup:           capValid | capData | capMetadata,
	FrameLease:           capValid | capMetadata,
	FrameKeepalive:       capValid | capData,
	FrameRequestResponse: capValid | capData | capMetadata | capFragment,
	FrameRequestFNF:      capValid | capData | capMetadata | capFragment,
	FrameRequestStream:   capValid | capData | capMetadata | capFragment | capRequestN,
	FrameRequestChannel:  capValid | capData | capMetadata | capFragment | capRequestN,
	FrameRequestN:        capValid,
	FrameCancel:          capValid,
	FramePayload:         capValid | capData | capMetadata | capFragment,
	FrameError:           capValid | capData,
	FrameMetadataPush:    capValid | capMetadata,
	FrameResume:          capValid,
	FrameResumeOK:        capValid,
	FrameExt:             capValid | capData | capMetadata,
}

var frameTypeNames = [frameTypeLimit]string{
	FrameSetup:           "SETUP",
	FrameLease:           "LEASE",
	FrameKeepalive:       "KEEPALIVE",
	FrameRequestResponse: "REQUEST_RESPONSE",
	FrameRequestFNF:      "REQUEST_FNF",
	FrameRequestStream:   "REQUEST_STREAM",
	FrameRequestChannel:  "REQUEST_CHANNEL",
	FrameRequestN:        "REQUEST_N",
	FrameCancel:          "CANCEL",
	FramePayload:         "PAYLOAD",
	FrameError:           "ERROR",
	FrameMetadataPush:    "METADATA_PUSH",
	FrameResume:          "RESUME",
	FrameResumeOK:        "RESUME_OK",
	FrameExt:             "EXT",
}

// Valid reports whether t is a member of the closed frame-type set.
func (t FrameType) Valid() bool {
	return t < frameTypeLimit && frameCaps[t]&capValid != 0
}

// CanHaveData reports whether frames of this type may carry a trailing data
// block. A type without this capability must have no bytes beyond its fixed
// fields.
func (t FrameType) CanHaveData() bool {
	return t < frameTypeLimit && frameCaps[t]&capData != 0
}

// CanHaveMetadata reports whether frames of this type may set the metadata
// flag and carry a length-prefixed metadata block.
func (t FrameType) CanHaveMetadata() bool {
	return t < frameTypeLimit && frameCaps[t]&capMetadata != 0
}

// HasInitialRequestN reports whether the frame layout includes a 4-byte
// initial flow-control count immediately after the header.
func (t FrameType) HasInitialRequestN() bool {
	return t < frameTypeLimit && frameCaps[t]&capRequestN != 0
}

// Fragmentable reports whether frames of this type may be split across
// multiple frames using the follows flag.
func (t FrameType) Fragmentable() bool {
	return t < frameTypeLimit && frameCaps[t]&capFragment != 0
}

func (t FrameType) String() string {
	if t < frameTypeLimit && frameTypeNames[t] != "" {
		return frameTypeNames[t]
	}
	return "UNKNOWN"
}
