package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameTypeCapabilities(t *testing.T) {
	cases := []struct {
		t                            FrameType
		data, metadata, reqN, fragOK bool
	}{
		{FrameSetup, true, true, false, false},
		{FrameLease, false, true, false, false},
		{FrameKeepalive, true, false, false, false},
		{FrameRequestResponse, true, true, false, true},
		{FrameRequestFNF, true, true, false, true},
		{FrameRequestStream, true, true, true, true},
		{FrameRequestChannel, true, true, true, true},
		{FrameRequestN, false, false, false, false},
		{FrameCancel, false, false, false, false},
		{FramePayload, true, true, false, true},
		{FrameError, true, false, false, false},
		{FrameMetadataPush, false, true, false, false},
		{FrameResume, false, false, false, false},
		{FrameResumeOK, false, false, false, false},
		{FrameExt, true, true, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.t.String(), func(t *testing.T) {
			assert.True(t, tc.t.Valid())
			assert.Equal(t, tc.data, tc.t.CanHaveData())
			assert.Equal(t, tc.metadata, tc.t.CanHaveMetadata())
			assert.Equal(t, tc.reqN, tc.t.HasInitialRequestN())
			assert.Equal(t, tc.fragOK, tc.t.Fragmentable())
		})
	}
}

func TestFrameTypeOutsideClosedSet(t *testing.T) {
	for _, code := range []FrameType{FrameReserved, 0x0f, 0x10, 0x3e, 0x40, 0xff} {
		assert.False(t, code.Valid(), "code 0x%02x", uint8(code))
		assert.False(t, code.CanHaveData())
		assert.False(t, code.HasInitialRequestN())
		assert.Equal(t, "UNKNOWN", code.String())
	}
}
