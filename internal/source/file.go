package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rcarmo/go-xrit/internal/logging"
)

// fileSource yields 892-byte chunks from a VCDU packet file until EOF.
type fileSource struct {
	path string
	file *os.File
}

func newFileSource(path string) *fileSource {
	return &fileSource{path: path}
}

func (s *fileSource) Run(push Push) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	s.file = f
	defer f.Close()

	logging.Info("reading frames from %s", s.path)

	frame := make([]byte, frameLen)
	frames := 0
	for {
		_, err := io.ReadFull(f, frame)
		if errors.Is(err, io.EOF) {
			logging.Info("input file loaded (%d frames)", frames)
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			logging.Warn("input file ends with a partial frame, discarded")
			return nil
		}
		if err != nil {
			return fmt.Errorf("source: read %s: %w", s.path, err)
		}
		push(frame)
		frames++
	}
}

func (s *fileSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
