// The sbf package decodes Septentrio Binary Format blocks.  A block is:
//
//	'$' '@' crc:u16 id:u16 length:u16 body
//
// Multi-byte fields are little-endian.  The bottom 13 bits of the id are the
// block type and the top 3 bits are the revision.  The length counts the
// whole block including the header and is a multiple of 4.  The CRC is the
// CRC-16 of everything from the id to the end of the block.
package sbf

import (
	"encoding/binary"
	"log/slog"

	"github.com/goblimey/go-gnssparser/gnss/crc"
	"github.com/goblimey/go-gnssparser/gnss/parser"
)

// ProtocolID identifies the protocol in messages and errors.
const ProtocolID = "SBF"

const (
	Sync1 = 0x24 // '$'
	Sync2 = 0x40 // '@'

	// HeaderLength is the length of the sync, CRC, id and length fields.
	HeaderLength = 8

	// MaxFrameLength is the size of the parser's buffer.  A longer block
	// is treated as a false start.
	MaxFrameLength = 8192
)

// The CRC covers the block from this offset.
const crcStart = 4

type state int

const (
	stateSync1 state = iota
	stateSync2
	stateHeader
	stateMessage
)

// Parser is the block decoder for SBF.
type Parser struct {
	*parser.Dispatcher[uint16]

	state  state
	buffer [MaxFrameLength]byte
	index  int
	length int
}

// New creates an SBF parser with no blocks registered.  See
// RegisterDefaultMessages.
func New(counters *parser.Counters, logger *slog.Logger) *Parser {
	p := Parser{
		Dispatcher: parser.NewDispatcher[uint16](ProtocolID, counters, logger),
	}
	return &p
}

// Read consumes one byte of the stream.  It returns true if the byte
// completed a block with a good CRC.
func (p *Parser) Read(b byte) bool {
	switch p.state {

	case stateSync1:
		if b == Sync1 {
			p.buffer[0] = b
			p.index = 1
			p.state = stateSync2
		}

	case stateSync2:
		switch b {
		case Sync2:
			p.buffer[p.index] = b
			p.index++
			p.state = stateHeader
		case Sync1:
			// Stay here, this may be the real start of block.
		default:
			p.Reset()
		}

	case stateHeader:
		p.buffer[p.index] = b
		p.index++
		if p.index < HeaderLength {
			return false
		}

		p.length = int(binary.LittleEndian.Uint16(p.buffer[6:8]))
		if p.length < HeaderLength || p.length > MaxFrameLength || p.length%4 != 0 {
			p.Reset()
			return false
		}
		if p.index == p.length {
			return p.frameComplete()
		}
		p.state = stateMessage

	case stateMessage:
		p.buffer[p.index] = b
		p.index++
		if p.index < p.length {
			return false
		}
		return p.frameComplete()
	}

	return false
}

// frameComplete checks the CRC of a complete block and dispatches it.
func (p *Parser) frameComplete() bool {
	defer p.Reset()

	frame := p.buffer[:p.length]
	want := binary.LittleEndian.Uint16(frame[2:4])
	got := crc.CRC16(frame[crcStart:])
	if got != want {
		p.Fail(parser.CRCMismatch, "crc16 error - block says 0x%04x, calculated 0x%04x", want, got)
		return false
	}

	id := binary.LittleEndian.Uint16(frame[4:6])
	p.Dispatch(id, frame)
	return true
}

// Reset discards any partial block.
func (p *Parser) Reset() {
	p.state = stateSync1
	p.index = 0
	p.length = 0
}
