package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rcarmo/go-xrit/internal/logging"
)

// tcpSource reads fixed-size records from a TCP stream. prefixLen framing
// bytes, when present, are stripped from the front of every record.
type tcpSource struct {
	addr      string
	prefixLen int

	mu     sync.Mutex
	conn   net.Conn
	closed bool

	// handshake, when set, runs on the fresh connection before streaming.
	handshake func(net.Conn) error
}

func newTCPSource(addr string, prefixLen int) *tcpSource {
	return &tcpSource{addr: addr, prefixLen: prefixLen}
}

// The goesrecv publisher speaks nanomsg; a fixed SP handshake selects the
// VCDU stream before raw records follow.
var (
	nanomsgRequest  = []byte{0x00, 0x53, 0x50, 0x00, 0x00, 0x21, 0x00, 0x00}
	nanomsgResponse = []byte{0x00, 0x53, 0x50, 0x00, 0x00, 0x20, 0x00, 0x00}
)

func newGoesrecvSource(addr string) *tcpSource {
	s := newTCPSource(addr, 8)
	s.handshake = func(conn net.Conn) error {
		if _, err := conn.Write(nanomsgRequest); err != nil {
			return fmt.Errorf("nanomsg handshake: %w", err)
		}
		reply := make([]byte, len(nanomsgResponse))
		if _, err := io.ReadFull(conn, reply); err != nil {
			return fmt.Errorf("nanomsg handshake: %w", err)
		}
		if !bytes.Equal(reply, nanomsgResponse) {
			return fmt.Errorf("nanomsg handshake: bad response % x", reply)
		}
		return nil
	}
	return s
}

func (s *tcpSource) Run(push Push) error {
	conn, err := net.Dial("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("source: connect %s: %w", s.addr, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.mu.Unlock()

	logging.Info("connected to %s", s.addr)

	if s.handshake != nil {
		if err := s.handshake(conn); err != nil {
			conn.Close()
			return err
		}
	}

	record := make([]byte, s.prefixLen+frameLen)
	for {
		if _, err := io.ReadFull(conn, record); err != nil {
			if s.wasClosed() || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("source: read %s: %w", s.addr, err)
		}
		push(record[s.prefixLen:])
	}
}

func (s *tcpSource) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *tcpSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
