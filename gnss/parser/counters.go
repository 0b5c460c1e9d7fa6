package parser

import (
	"fmt"
	"sync/atomic"
)

// Counters records the activity of one parser.  The parser updates it from
// the goroutine that feeds it bytes, but it may be read from any goroutine.
// A set of counters may be shared by several parsers.
type Counters struct {
	// Frames counts the frames that passed their integrity check.
	Frames atomic.Uint64

	// Messages counts the messages that were decoded and published.
	Messages atomic.Uint64

	CRCErrors     atomic.Uint64
	ParityErrors  atomic.Uint64
	UnknownIDs    atomic.Uint64
	DecodeErrors  atomic.Uint64
	PublishErrors atomic.Uint64
}

// Stats is a copy of the counters taken at one moment.
type Stats struct {
	Frames        uint64 `json:"frames"`
	Messages      uint64 `json:"messages"`
	CRCErrors     uint64 `json:"crc_errors"`
	ParityErrors  uint64 `json:"parity_errors"`
	UnknownIDs    uint64 `json:"unknown_ids"`
	DecodeErrors  uint64 `json:"decode_errors"`
	PublishErrors uint64 `json:"publish_errors"`
}

// Snapshot returns the current values of the counters.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Frames:        c.Frames.Load(),
		Messages:      c.Messages.Load(),
		CRCErrors:     c.CRCErrors.Load(),
		ParityErrors:  c.ParityErrors.Load(),
		UnknownIDs:    c.UnknownIDs.Load(),
		DecodeErrors:  c.DecodeErrors.Load(),
		PublishErrors: c.PublishErrors.Load(),
	}
}

// count increments the counter that records errors of the given kind.
func (c *Counters) count(kind ErrorKind) {
	switch kind {
	case CRCMismatch:
		c.CRCErrors.Add(1)
	case ParityMismatch:
		c.ParityErrors.Add(1)
	case UnknownMessageID:
		c.UnknownIDs.Add(1)
	case DecodeFailed:
		c.DecodeErrors.Add(1)
	case PublishFailed:
		c.PublishErrors.Add(1)
	}
}

// Errors returns the total number of errors of all kinds.
func (s Stats) Errors() uint64 {
	return s.CRCErrors + s.ParityErrors + s.UnknownIDs + s.DecodeErrors + s.PublishErrors
}

func (s Stats) String() string {
	return fmt.Sprintf("frames %d, messages %d, crc errors %d, parity errors %d, unknown ids %d, decode errors %d, publish errors %d",
		s.Frames, s.Messages, s.CRCErrors, s.ParityErrors, s.UnknownIDs, s.DecodeErrors, s.PublishErrors)
}
