package mpdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMPDU(pointer uint16) []byte {
	data := make([]byte, Len)
	data[0] = byte(pointer >> 8 & 0x07)
	data[1] = byte(pointer)
	return data
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		pointer   uint16
		hasHeader bool
	}{
		{name: "header at zone start", pointer: 0, hasHeader: true},
		{name: "header mid zone", pointer: 400, hasHeader: true},
		{name: "header at zone end", pointer: 883, hasHeader: true},
		{name: "no header", pointer: NoHeader, hasHeader: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildMPDU(tt.pointer)
			for i := 2; i < Len; i++ {
				data[i] = byte(i)
			}

			m, err := Parse(data)
			require.NoError(t, err)

			assert.Equal(t, tt.pointer, m.Pointer)
			assert.Equal(t, tt.hasHeader, m.HasHeader)
			require.Len(t, m.PacketZone, ZoneLen)
			assert.Equal(t, data[2:], m.PacketZone)
		})
	}
}

func TestParseIgnoresSpare(t *testing.T) {
	data := buildMPDU(100)
	data[0] |= 0xF8 // spare bits set on the wire

	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), m.Pointer)
}

func TestParseWrongLength(t *testing.T) {
	_, err := Parse(make([]byte, Len-1))
	assert.Error(t, err)
}
