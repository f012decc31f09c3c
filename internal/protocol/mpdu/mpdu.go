// Package mpdu implements parsing of CCSDS Multiplexing Protocol Data Units,
// the 886-byte payload of a VCDU carrying a slice of the CP_PDU byte stream.
package mpdu

import (
	"fmt"

	"github.com/rcarmo/go-xrit/internal/protocol/encoding"
)

const (
	// Len is the fixed M_PDU length (VCDU frame minus primary header).
	Len = 886

	headerLen  = 2
	headerBits = headerLen * 8

	// ZoneLen is the packet zone length following the M_PDU header.
	ZoneLen = 884

	// NoHeader is the first-header-pointer value indicating that no CP_PDU
	// header begins inside this packet zone.
	NoHeader = 2047
)

// MPDU is one parsed multiplexing PDU. PacketZone aliases the input slice.
type MPDU struct {
	// Pointer is the byte offset of the first CP_PDU header within the
	// packet zone, or NoHeader.
	Pointer    uint16
	HasHeader  bool
	PacketZone []byte
}

// Parse decodes the 2-byte M_PDU header and exposes the packet zone.
func Parse(data []byte) (*MPDU, error) {
	if len(data) != Len {
		return nil, fmt.Errorf("mpdu: length %d, want %d", len(data), Len)
	}

	pointer, _ := encoding.ReadBits(data[:headerLen], 5, 11, headerBits)

	return &MPDU{
		Pointer:    uint16(pointer),
		HasHeader:  pointer != NoHeader,
		PacketZone: data[headerLen:],
	}, nil
}
