// Package source implements the VCDU input adapters: raw TCP records, the
// goesrecv nanomsg stream, and packet files. Every adapter delivers fixed
// 892-byte frames to a push function; the demuxer core treats them all the
// same.
package source

import (
	"fmt"

	"github.com/rcarmo/go-xrit/internal/config"
	"github.com/rcarmo/go-xrit/internal/protocol/vcdu"
)

// Push delivers one frame to the demuxer intake queue. The buffer may be
// reused after the call returns.
type Push func(frame []byte)

// Source feeds frames until the input ends or Close interrupts it.
type Source interface {
	// Run pushes frames until EOF or error. It returns nil on a clean end
	// of input (file EOF; for TCP sources, a remote close at a record
	// boundary or a local Close).
	Run(push Push) error
	Close() error
}

// New builds the configured source.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourceOSP:
		return newTCPSource(cfg.Host+":"+cfg.Port, 0), nil
	case config.SourceGoesrecv:
		return newGoesrecvSource(cfg.Host + ":" + cfg.Port), nil
	case config.SourceFile:
		return newFileSource(cfg.InputFile), nil
	}
	return nil, fmt.Errorf("source: unknown kind %q", cfg.Kind)
}

// frameLen is the record size every adapter ultimately yields.
const frameLen = vcdu.FrameLen
