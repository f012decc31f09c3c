// Package cppdu implements assembly of CCSDS Path Protocol Data Units from
// M_PDU packet zones. A CP_PDU is opened at a first-header pointer, grows
// across frames, and is finished against its declared length and CRC trailer.
package cppdu

import (
	"fmt"

	"github.com/rcarmo/go-xrit/internal/protocol/encoding"
)

const (
	HeaderLen  = 6
	headerBits = HeaderLen * 8

	// crcLen is the CRC trailer included in the declared payload length.
	crcLen = 2

	// mpduLen bounds a "short" CP_PDU: one that fits entirely inside the
	// remainder of a single M_PDU.
	mpduLen = 886
)

// SequenceFlag is the 2-bit CP_PDU sequence flag.
type SequenceFlag uint8

const (
	Continue SequenceFlag = 0
	First    SequenceFlag = 1
	Last     SequenceFlag = 2
	Single   SequenceFlag = 3
)

func (f SequenceFlag) String() string {
	switch f {
	case Continue:
		return "CONTINUE"
	case First:
		return "FIRST"
	case Last:
		return "LAST"
	case Single:
		return "SINGLE"
	}
	return fmt.Sprintf("SequenceFlag(%d)", uint8(f))
}

// CPPDU is a path PDU in assembly. Payload accumulates everything after the
// 6-byte header, including the trailing 2-byte CRC.
type CPPDU struct {
	Version      uint8
	Type         uint8
	SecondaryHdr bool
	APID         uint16
	Sequence     SequenceFlag
	Counter      uint16
	// Length is the declared payload length in bytes (header-stored value
	// plus one), covering data and CRC trailer.
	Length  int
	Payload []byte
}

// Open parses a 6-byte header at the start of data and begins payload
// accumulation with the remaining bytes.
func Open(data []byte) (*CPPDU, error) {
	if len(data) < HeaderLen {
		return nil, fmt.Errorf("cppdu: %d bytes, need %d for header", len(data), HeaderLen)
	}

	header := data[:HeaderLen]

	version, _ := encoding.ReadBits(header, 0, 3, headerBits)
	ptype, _ := encoding.ReadBits(header, 3, 1, headerBits)
	shf, _ := encoding.ReadBits(header, 4, 1, headerBits)
	apid, _ := encoding.ReadBits(header, 5, 11, headerBits)
	seq, _ := encoding.ReadBits(header, 16, 2, headerBits)
	counter, _ := encoding.ReadBits(header, 18, 14, headerBits)
	length, _ := encoding.ReadBits(header, 32, 16, headerBits)

	p := &CPPDU{
		Version:      uint8(version),
		Type:         uint8(ptype),
		SecondaryHdr: shf == 1,
		APID:         uint16(apid),
		Sequence:     SequenceFlag(seq),
		Counter:      uint16(counter),
		Length:       int(length) + 1,
	}
	p.Payload = append(p.Payload, data[HeaderLen:]...)

	return p, nil
}

// Append extends the payload with the next packet zone slice.
func (p *CPPDU) Append(data []byte) {
	p.Payload = append(p.Payload, data...)
}

// Overrun reports whether the payload already exceeds the declared length of
// a short CP_PDU. Such a PDU arrived whole inside the zone remainder and
// carries trailing fill that Trim removes before Finish.
func (p *CPPDU) Overrun() bool {
	return p.Length > 1 && p.Length < mpduLen && len(p.Payload) > p.Length
}

// Trim cuts the payload back to the declared length.
func (p *CPPDU) Trim() {
	if len(p.Payload) > p.Length {
		p.Payload = p.Payload[:p.Length]
	}
}

// Finish appends the final bytes, then checks the accumulated payload
// against the declared length and the CRC trailer.
func (p *CPPDU) Finish(final []byte, lut *encoding.CRCTable) (lengthOK, crcOK bool) {
	p.Append(final)

	lengthOK = len(p.Payload) == p.Length

	if len(p.Payload) >= crcLen {
		crcOK = lut.Verify(p.Payload[:len(p.Payload)-crcLen], p.Payload[len(p.Payload)-crcLen:])
	}

	return lengthOK, crcOK
}

// Data returns the payload with the CRC trailer stripped.
func (p *CPPDU) Data() []byte {
	if len(p.Payload) < crcLen {
		return nil
	}
	return p.Payload[:len(p.Payload)-crcLen]
}

// IsEOF reports whether this is the EOF-marker CP_PDU sent after the LAST
// PDU of a transport file: APID 0, counter 0, sequence CONTINUE, length 1.
func (p *CPPDU) IsEOF() bool {
	return p.APID == 0 && p.Counter == 0 && p.Sequence == Continue && p.Length == 1
}
