package vcdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFrame assembles a 892-byte frame with the given header fields.
func buildFrame(version, scid, vcid uint8, counter uint32, replay bool) []byte {
	frame := make([]byte, FrameLen)
	frame[0] = version<<6 | scid>>2
	frame[1] = scid<<6 | vcid
	frame[2] = byte(counter >> 16)
	frame[3] = byte(counter >> 8)
	frame[4] = byte(counter)
	if replay {
		frame[5] = 0x80
	}
	return frame
}

func TestParse(t *testing.T) {
	frame := buildFrame(1, 195, 0, 100, false)
	for i := 6; i < FrameLen; i++ {
		frame[i] = byte(i)
	}

	v, err := Parse(frame)
	require.NoError(t, err)

	assert.Equal(t, uint8(1), v.Version)
	assert.Equal(t, uint8(195), v.SpacecraftID)
	assert.Equal(t, uint8(0), v.VCID)
	assert.Equal(t, uint32(100), v.Counter)
	assert.False(t, v.Replay)
	require.Len(t, v.MPDU, 886)
	assert.Equal(t, frame[6:], v.MPDU)
}

func TestParseMaxCounter(t *testing.T) {
	v, err := Parse(buildFrame(0, 195, 5, CounterModulo-1, true))
	require.NoError(t, err)

	assert.Equal(t, uint32(16777215), v.Counter)
	assert.True(t, v.Replay)
	assert.Equal(t, uint8(5), v.VCID)
}

func TestParseWrongLength(t *testing.T) {
	_, err := Parse(make([]byte, FrameLen-1))
	assert.Error(t, err)

	_, err = Parse(make([]byte, FrameLen+1))
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	tests := []struct {
		scid   uint8
		vcid   uint8
		scName string
		vcName string
		isFill bool
	}{
		{scid: 195, vcid: 0, scName: "COMS-1", vcName: "VIS"},
		{scid: 195, vcid: 9, scName: "COMS-1", vcName: "GOCI"},
		{scid: 195, vcid: 63, scName: "COMS-1", vcName: "FILL", isFill: true},
		{scid: 42, vcid: 30, scName: "", vcName: ""},
	}

	for _, tt := range tests {
		v, err := Parse(buildFrame(0, tt.scid, tt.vcid, 0, false))
		require.NoError(t, err)

		assert.Equal(t, tt.scName, v.SpacecraftName())
		assert.Equal(t, tt.vcName, v.ChannelName())
		assert.Equal(t, tt.isFill, v.IsFill())
	}
}
