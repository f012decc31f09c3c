// Package vcdu implements parsing of CCSDS Virtual Channel Data Units, the
// 892-byte transfer frames carried on the LRIT/HRIT downlink.
package vcdu

import (
	"fmt"

	"github.com/rcarmo/go-xrit/internal/protocol/encoding"
)

const (
	// FrameLen is the fixed on-air length of one VCDU.
	FrameLen = 892

	headerLen     = 6
	headerBits    = headerLen * 8
	CounterModulo = 1 << 24

	// FillVCID marks fill frames carrying no M_PDU data.
	FillVCID = 63
)

// VCDU is one parsed transfer frame. MPDU aliases the frame buffer; callers
// that retain it across frames must copy.
type VCDU struct {
	Version      uint8
	SpacecraftID uint8
	VCID         uint8
	Counter      uint32
	Replay       bool
	MPDU         []byte
}

var spacecraftNames = map[uint8]string{
	195: "COMS-1",
}

var channelNames = map[uint8]string{
	0:  "VIS",
	1:  "SWIR",
	2:  "WV",
	3:  "IR1",
	4:  "IR2",
	5:  "ANT",
	6:  "ENC",
	7:  "CMDPS",
	8:  "NWP",
	9:  "GOCI",
	10: "BINARY",
	11: "TYPHOON",
	63: "FILL",
}

// Parse decodes the 6-byte primary header of a transfer frame. The only
// failure is a wrong frame length; field values pass through unchecked.
func Parse(frame []byte) (*VCDU, error) {
	if len(frame) != FrameLen {
		return nil, fmt.Errorf("vcdu: frame length %d, want %d", len(frame), FrameLen)
	}

	header := frame[:headerLen]

	version, _ := encoding.ReadBits(header, 0, 2, headerBits)
	scid, _ := encoding.ReadBits(header, 2, 8, headerBits)
	vcid, _ := encoding.ReadBits(header, 10, 6, headerBits)
	counter, _ := encoding.ReadBits(header, 16, 24, headerBits)
	replay, _ := encoding.ReadBits(header, 40, 1, headerBits)

	return &VCDU{
		Version:      uint8(version),
		SpacecraftID: uint8(scid),
		VCID:         uint8(vcid),
		Counter:      uint32(counter),
		Replay:       replay == 1,
		MPDU:         frame[headerLen:],
	}, nil
}

// IsFill reports whether the frame is a fill frame.
func (v *VCDU) IsFill() bool {
	return v.VCID == FillVCID
}

// SpacecraftName returns the name of a recognized spacecraft, or "" when the
// id is unknown.
func (v *VCDU) SpacecraftName() string {
	return spacecraftNames[v.SpacecraftID]
}

// ChannelName returns the name of a recognized virtual channel, or "" when
// the VCID is unknown.
func (v *VCDU) ChannelName() string {
	return channelNames[v.VCID]
}
