package demux

import (
	"github.com/rcarmo/go-xrit/internal/logging"
	"github.com/rcarmo/go-xrit/internal/metrics"
	"github.com/rcarmo/go-xrit/internal/protocol/cppdu"
	"github.com/rcarmo/go-xrit/internal/protocol/mpdu"
	"github.com/rcarmo/go-xrit/internal/protocol/tpfile"
	"github.com/rcarmo/go-xrit/internal/protocol/vcdu"
)

// Channel reassembles the CP_PDU stream of one virtual channel. It owns the
// CP_PDU and transport file currently in progress; both are nil between
// packets and files.
type Channel struct {
	vcid  uint8
	demux *Demuxer

	current *cppdu.CPPDU
	file    *tpfile.TPFile
}

func newChannel(vcid uint8, d *Demuxer) *Channel {
	return &Channel{vcid: vcid, demux: d}
}

// ingest advances the channel state machine by one VCDU.
func (c *Channel) ingest(v *vcdu.VCDU) error {
	m, err := mpdu.Parse(v.MPDU)
	if err != nil {
		logging.Warn("vcid %d: %v", c.vcid, err)
		return nil
	}

	if !m.HasHeader {
		// The whole packet zone belongs to the open CP_PDU.
		if c.current == nil {
			logging.Warn("vcid %d: no cp_pdu to append to, discarding %d bytes (dropped packets?)", c.vcid, len(m.PacketZone))
			return nil
		}
		c.current.Append(m.PacketZone)
		return nil
	}

	if m.Pointer != 0 {
		// Bytes before the pointer close the previous CP_PDU.
		if c.current != nil {
			lengthOK, crcOK := c.current.Finish(m.PacketZone[:m.Pointer], c.demux.crc)
			c.report(lengthOK, crcOK)
			if err := c.handleComplete(c.current); err != nil {
				return err
			}
		} else {
			logging.Warn("vcid %d: no cp_pdu to finish (dropped packets?)", c.vcid)
		}
	}

	next, err := cppdu.Open(m.PacketZone[m.Pointer:])
	if err != nil {
		logging.Warn("vcid %d: %v", c.vcid, err)
		c.current = nil
		return nil
	}
	c.current = next

	// A short CP_PDU can arrive whole inside the zone remainder, followed
	// by fill bytes that Trim removes.
	if c.current.Overrun() {
		c.current.Trim()
		lengthOK, crcOK := c.current.Finish(nil, c.demux.crc)
		c.report(lengthOK, crcOK)
		if err := c.handleComplete(c.current); err != nil {
			return err
		}
		c.current = nil
		return nil
	}

	if c.current.IsEOF() {
		logging.Debug("vcid %d: cp_pdu eof marker", c.vcid)
		c.current = nil
		return nil
	}

	logging.Debug("vcid %d: cp_pdu apid=%d seq=%s counter=%d length=%d pointer=%d",
		c.vcid, c.current.APID, c.current.Sequence, c.current.Counter, c.current.Length, m.Pointer)

	return nil
}

// report logs the length and CRC outcome of a finished CP_PDU and counts
// failures. Failed CP_PDUs are still forwarded to the transport file stage;
// the final length check there catches unrecoverable files.
func (c *Channel) report(lengthOK, crcOK bool) {
	if !lengthOK {
		metrics.LengthErrors.Inc()
		c.demux.bump(func(s *Stats) { s.LengthErrors++ })
		if c.current != nil {
			logging.Warn("vcid %d: cp_pdu length mismatch (expected %d, got %d)",
				c.vcid, c.current.Length, len(c.current.Payload))
		}
	}
	if !crcOK {
		metrics.CRCErrors.Inc()
		c.demux.bump(func(s *Stats) { s.CRCErrors++ })
		logging.Warn("vcid %d: cp_pdu crc mismatch", c.vcid)
	}
	if lengthOK && crcOK {
		logging.Debug("vcid %d: cp_pdu length and crc ok", c.vcid)
	}
}

// handleComplete forwards a finished CP_PDU to the transport file stage.
// The CRC trailer is stripped first.
func (c *Channel) handleComplete(p *cppdu.CPPDU) error {
	data := p.Data()

	switch p.Sequence {
	case cppdu.First:
		f, err := tpfile.Open(data)
		if err != nil {
			logging.Warn("vcid %d: %v", c.vcid, err)
			return nil
		}
		c.file = f

	case cppdu.Continue:
		if c.file == nil {
			logging.Warn("vcid %d: no tp_file to append to (dropped packets?)", c.vcid)
			return nil
		}
		c.file.Append(data)

	case cppdu.Last:
		if c.file == nil {
			logging.Warn("vcid %d: no tp_file to finish (dropped packets?)", c.vcid)
			return nil
		}
		f := c.file
		c.file = nil
		if err := c.finishFile(f, data); err != nil {
			return err
		}

	case cppdu.Single:
		f, err := tpfile.Open(data)
		if err != nil {
			logging.Warn("vcid %d: %v", c.vcid, err)
			return nil
		}
		if err := c.finishFile(f, nil); err != nil {
			return err
		}
	}

	return nil
}

// finishFile closes a transport file and, on a clean length check, hands the
// payload to decryption and emission. Length failures skip the file.
func (c *Channel) finishFile(f *tpfile.TPFile, final []byte) error {
	lengthOK := f.Finish(final)

	if band, segment := f.Band(); band != "" {
		logging.Debug("vcid %d: tp_file counter=%d (%s segment %d) length=%d",
			c.vcid, f.Counter, band, segment, f.Length)
	} else {
		logging.Debug("vcid %d: tp_file counter=%d length=%d", c.vcid, f.Counter, f.Length)
	}

	if !lengthOK {
		metrics.FilesSkipped.Inc()
		c.demux.bump(func(s *Stats) { s.FilesSkipped++ })
		logging.Warn("vcid %d: skipping file, length mismatch (expected %d, got %d, dropped packets?)",
			c.vcid, f.Length, len(f.Payload))
		return nil
	}

	return c.demux.emit(c, f.Payload)
}
