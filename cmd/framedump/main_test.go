package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framewire-io/framewire/internal/proto"
)

func capture(frames ...proto.Frame) []byte {
	var buf bytes.Buffer
	for _, f := range frames {
		n := len(f)
		buf.Write([]byte{byte(n >> 16), byte(n >> 8), byte(n)})
		buf.Write(f)
	}
	return buf.Bytes()
}

func TestReadFrames(t *testing.T) {
	raw := capture(
		proto.NewRequestStream(1, 5, []byte("m"), []byte("hello"), 0),
		proto.NewPayload(1, nil, []byte("world"), proto.FlagNext|proto.FlagComplete),
		proto.NewRequestN(1, 2),
	)

	var got []proto.Frame
	err := readFrames(bytes.NewReader(raw), func(f proto.Frame) { got = append(got, f) })
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, proto.FrameRequestStream, got[0].Type())
	assert.Equal(t, proto.FramePayload, got[1].Type())
	assert.Equal(t, proto.FrameRequestN, got[2].Type())
}

func TestReadFramesTruncated(t *testing.T) {
	raw := capture(proto.NewCancel(3))
	err := readFrames(bytes.NewReader(raw[:len(raw)-2]), func(proto.Frame) {})
	assert.Error(t, err)
}

func TestReadFramesRejectsBadFrame(t *testing.T) {
	bad := capture(proto.Frame{0, 0, 0, 1, 0, 0}) // type 0x00 is not valid
	err := readFrames(bytes.NewReader(bad), func(proto.Frame) {})
	assert.ErrorIs(t, err, proto.ErrUnknownFrameType)
}

func TestMaybeGzip(t *testing.T) {
	raw := capture(proto.NewPayload(7, []byte("m"), []byte("hi"), 0))

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	for _, in := range [][]byte{raw, gz.Bytes()} {
		r, err := maybeGzip(bufio.NewReader(bytes.NewReader(in)))
		require.NoError(t, err)
		var n int
		require.NoError(t, readFrames(r, func(proto.Frame) { n++ }))
		assert.Equal(t, 1, n)
	}
}

func TestDumpOutput(t *testing.T) {
	raw := capture(
		proto.NewRequestStream(9, 4, []byte("md"), []byte("data"), 0),
		proto.NewPayload(9, nil, []byte("x"), proto.FlagNext),
	)

	var out strings.Builder
	require.NoError(t, dump(bytes.NewReader(raw), &out))

	s := out.String()
	assert.Contains(t, s, "REQUEST_STREAM")
	assert.Contains(t, s, "PAYLOAD")
	assert.Contains(t, s, "n=4")
	assert.Contains(t, s, "metadata=2B")
	assert.Contains(t, s, "2 frames")
}
