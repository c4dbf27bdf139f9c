package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, b []byte) Frame {
	t.Helper()
	f, err := Decode(b)
	require.NoError(t, err)
	return f
}

func TestPayloadFrameScenario(t *testing.T) {
	f := mustDecode(t, NewPayload(7, []byte("m"), []byte("hello"), FlagNext))

	assert.Equal(t, FramePayload, f.Type())
	assert.Equal(t, uint32(7), f.StreamID())
	assert.True(t, f.HasMetadata())
	assert.False(t, f.HasFollows())

	md, err := f.Metadata()
	require.NoError(t, err)
	assert.Equal(t, []byte("m"), md)

	data, err := f.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestRequestStreamScenario(t *testing.T) {
	f := mustDecode(t, NewRequestStream(1, 2147483647, nil, []byte{}, 0))

	assert.Equal(t, FrameRequestStream, f.Type())
	assert.Equal(t, uint32(1), f.StreamID())
	assert.False(t, f.HasMetadata())

	n, err := f.InitialRequestN()
	require.NoError(t, err)
	assert.Equal(t, uint32(2147483647), n)

	// empty but present data block
	data, err := f.Data()
	require.NoError(t, err)
	assert.Len(t, data, 0)
}

func TestRoundTrip(t *testing.T) {
	md := []byte("meta-bytes")
	data := []byte("data-bytes")

	cases := []struct {
		name  string
		frame Frame
		typ   FrameType
		md    []byte
		data  []byte
	}{
		{"payload", NewPayload(3, md, data, FlagNext|FlagComplete), FramePayload, md, data},
		{"payload no metadata", NewPayload(3, nil, data, FlagNext), FramePayload, nil, data},
		{"request response", NewRequestResponse(5, md, data, 0), FrameRequestResponse, md, data},
		{"request fnf", NewRequestFNF(5, nil, data, 0), FrameRequestFNF, nil, data},
		{"request stream", NewRequestStream(7, 10, md, data, 0), FrameRequestStream, md, data},
		{"request channel", NewRequestChannel(9, 1, md, data, FlagComplete), FrameRequestChannel, md, data},
		{"metadata push", NewMetadataPush(md), FrameMetadataPush, md, nil},
		{"error", NewError(11, data), FrameError, nil, data},
		{"keepalive", NewKeepalive(data, false), FrameKeepalive, nil, data},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := mustDecode(t, tc.frame)
			assert.Equal(t, tc.typ, f.Type())

			if tc.md != nil {
				require.True(t, f.HasMetadata())
				got, err := f.Metadata()
				require.NoError(t, err)
				assert.Equal(t, tc.md, got)
			} else {
				assert.False(t, f.HasMetadata())
			}

			if tc.typ.CanHaveData() {
				got, err := f.Data()
				require.NoError(t, err)
				assert.Equal(t, len(tc.data), len(got))
				if len(tc.data) > 0 {
					assert.Equal(t, tc.data, got)
				}
			}

			// payload-size law
			n, err := f.DataLen()
			require.NoError(t, err)
			assert.Equal(t, len(tc.data), n)
		})
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	f := mustDecode(t, NewPayload(1, nil, nil, FlagIgnore|FlagNext|FlagComplete))
	assert.True(t, f.Flags().Has(FlagIgnore))
	assert.True(t, f.Flags().Has(FlagNext))
	assert.True(t, f.Flags().Has(FlagComplete))
	assert.False(t, f.HasFollows())
	assert.False(t, f.HasMetadata())
}

func TestEmptyMetadataBlockIsDistinctFromAbsent(t *testing.T) {
	withEmpty := mustDecode(t, NewPayload(1, []byte{}, []byte("d"), 0))
	require.True(t, withEmpty.HasMetadata())
	md, err := withEmpty.Metadata()
	require.NoError(t, err)
	assert.Len(t, md, 0)

	without := mustDecode(t, NewPayload(1, nil, []byte("d"), 0))
	assert.False(t, without.HasMetadata())
	_, err = without.Metadata()
	assert.ErrorIs(t, err, ErrNoMetadataPresent)
}

func TestRequestNFrame(t *testing.T) {
	f := mustDecode(t, NewRequestN(5, 42))
	assert.Equal(t, FrameRequestN, f.Type())

	n, err := f.RequestN()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), n)

	// REQUEST_N carries a bare count, not an initial demand
	_, err = f.InitialRequestN()
	assert.ErrorIs(t, err, ErrRequestNNotSupported)
}

func TestZeroRequestNIsLegal(t *testing.T) {
	f := mustDecode(t, NewRequestStream(1, 0, nil, nil, 0))
	n, err := f.InitialRequestN()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)
}

func TestCapabilityMismatch(t *testing.T) {
	push := mustDecode(t, NewMetadataPush([]byte("m")))
	_, err := push.Data()
	assert.ErrorIs(t, err, ErrDataNotSupported)

	payload := mustDecode(t, NewPayload(3, nil, []byte("d"), 0))
	_, err = payload.RequestN()
	assert.ErrorIs(t, err, ErrRequestNNotSupported)
	_, err = payload.InitialRequestN()
	assert.ErrorIs(t, err, ErrRequestNNotSupported)

	cancel := mustDecode(t, NewCancel(3))
	_, err = cancel.Data()
	assert.ErrorIs(t, err, ErrDataNotSupported)
	_, err = cancel.Metadata()
	assert.ErrorIs(t, err, ErrNoMetadataPresent)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid := NewPayload(7, []byte("m"), []byte("hello"), 0)

	t.Run("truncated below header", func(t *testing.T) {
		for n := 0; n < HeaderSize; n++ {
			_, err := Decode(valid[:n])
			assert.ErrorIs(t, err, ErrMalformedFrame, "length %d", n)
		}
	})

	t.Run("reserved stream id bit", func(t *testing.T) {
		b := append(Frame(nil), valid...)
		b[0] |= 0x80
		_, err := Decode(b)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("unknown type code", func(t *testing.T) {
		for _, code := range []FrameType{FrameReserved, 0x0f, 0x3e} {
			b := make([]byte, HeaderSize)
			EncodeHeader(b, 1, code, 0)
			_, err := Decode(b)
			assert.ErrorIs(t, err, ErrUnknownFrameType, "code 0x%02x", uint8(code))
		}
	})

	t.Run("metadata flag on type without metadata", func(t *testing.T) {
		b := make([]byte, HeaderSize+4)
		EncodeHeader(b, 1, FrameRequestN, FlagMetadata)
		_, err := Decode(b)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("metadata length exceeds frame", func(t *testing.T) {
		b := make([]byte, HeaderSize+metadataLenSize+2)
		EncodeHeader(b, 1, FramePayload, FlagMetadata)
		putUint24(b[HeaderSize:], 10)
		_, err := Decode(b)
		assert.ErrorIs(t, err, ErrInconsistentLength)
	})

	t.Run("truncated request n", func(t *testing.T) {
		b := make([]byte, HeaderSize+2)
		EncodeHeader(b, 1, FrameRequestStream, 0)
		_, err := Decode(b)
		assert.ErrorIs(t, err, ErrInconsistentLength)
	})

	t.Run("trailing bytes on type without data", func(t *testing.T) {
		b := make([]byte, HeaderSize+1)
		EncodeHeader(b, 1, FrameCancel, 0)
		_, err := Decode(b)
		assert.ErrorIs(t, err, ErrInconsistentLength)
	})
}

func TestZeroCopyViews(t *testing.T) {
	buf := NewPayload(7, []byte("m"), []byte("hello"), 0)
	f := mustDecode(t, buf)

	data, err := f.Data()
	require.NoError(t, err)
	// the view aliases the source buffer
	buf[len(buf)-1] = 'X'
	assert.Equal(t, []byte("hellX"), data)
}

func TestEncodeGeneric(t *testing.T) {
	f, err := Encode(0, FrameSetup, 0, 0, []byte("mime"), []byte("setup"))
	require.NoError(t, err)
	g := mustDecode(t, f)
	assert.Equal(t, FrameSetup, g.Type())
	assert.Equal(t, uint32(0), g.StreamID())

	_, err = Encode(1, 0x3e, 0, 0, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownFrameType)

	_, err = Encode(1, FrameCancel, 0, 0, nil, []byte("x"))
	assert.ErrorIs(t, err, ErrDataNotSupported)

	_, err = Encode(1, FramePayload, 0, 7, nil, nil)
	assert.ErrorIs(t, err, ErrRequestNNotSupported)

	_, err = Encode(1, FrameError, 0, 0, []byte("m"), nil)
	assert.ErrorIs(t, err, ErrNoMetadataPresent)

	_, err = Encode(uint32(1)<<31, FramePayload, 0, 0, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestEncodeHeaderPanicsOnBadStreamID(t *testing.T) {
	b := make([]byte, HeaderSize)
	assert.Panics(t, func() { EncodeHeader(b, MaxStreamID+1, FramePayload, 0) })
}

func TestKeepaliveRespondFlag(t *testing.T) {
	ka := mustDecode(t, NewKeepalive([]byte("ka"), true))
	assert.True(t, ka.Flags().Has(FlagRespond))
	data, err := ka.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("ka"), data)

	quiet := mustDecode(t, NewKeepalive(nil, false))
	assert.False(t, quiet.Flags().Has(FlagRespond))
}
