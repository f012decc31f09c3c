// Package tpfile implements assembly of CCSDS Transport Files from the
// payloads of a FIRST…CONTINUE…LAST CP_PDU sequence.
package tpfile

import (
	"fmt"

	"github.com/rcarmo/go-xrit/internal/protocol/encoding"
)

const (
	headerLen  = 10
	headerBits = headerLen * 8
)

// TPFile is a transport file in assembly.
type TPFile struct {
	Counter uint16
	// Length is the declared file length in bytes (the header stores bits).
	Length  int
	Payload []byte
}

// Open parses the 10-byte header at the start of the first CP_PDU payload
// and begins accumulation with the remaining bytes.
func Open(data []byte) (*TPFile, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("tpfile: %d bytes, need %d for header", len(data), headerLen)
	}

	header := data[:headerLen]

	counter, _ := encoding.ReadBits(header, 0, 16, headerBits)
	lengthBits, _ := encoding.ReadBits(header, 16, 64, headerBits)

	f := &TPFile{
		Counter: uint16(counter),
		Length:  int(lengthBits / 8),
	}
	f.Payload = append(f.Payload, data[headerLen:]...)

	return f, nil
}

// Append extends the payload with the next CP_PDU data.
func (f *TPFile) Append(data []byte) {
	f.Payload = append(f.Payload, data...)
}

// Finish appends the final CP_PDU data and checks the accumulated payload
// against the declared file length.
func (f *TPFile) Finish(data []byte) (lengthOK bool) {
	f.Append(data)
	return len(f.Payload) == f.Length
}

// Band derives the image band and segment number from the file counter, for
// diagnostics only. Counters outside the image ranges yield ("", 0).
func (f *TPFile) Band() (band string, segment int) {
	c := int(f.Counter)
	switch {
	case c >= 1 && c <= 10:
		return "VIS", c
	case c >= 11 && c <= 20:
		return "SWIR", c - 10
	case c >= 21 && c <= 30:
		return "WV", c - 20
	case c >= 31 && c <= 40:
		return "IR1", c - 30
	case c >= 41 && c <= 50:
		return "IR2", c - 40
	}
	return "", 0
}
