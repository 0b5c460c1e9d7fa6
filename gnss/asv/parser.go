// The asv package decodes the Asv framed protocol.  A frame is:
//
//	0xAA 0x44 length:u16 sequence:u16 sender:u8 target:u8 id:u16 payload crc:u16
//
// Multi-byte fields are little-endian.  The length field gives the length of
// the payload, so the whole frame is 12 bytes longer.  The CRC is the CRC-16
// of everything before it.
package asv

import (
	"encoding/binary"
	"log/slog"

	"github.com/goblimey/go-gnssparser/gnss/crc"
	"github.com/goblimey/go-gnssparser/gnss/parser"
)

// ProtocolID identifies the protocol in messages and errors.
const ProtocolID = "Asv"

const (
	Sync1 = 0xAA
	Sync2 = 0x44

	// HeaderLength is the number of bytes before the payload.
	HeaderLength = 10

	// CRCLength is the number of bytes in the trailing CRC.
	CRCLength = 2

	// MaxFrameLength is the size of the parser's buffer.  A longer frame
	// is treated as a false start.
	MaxFrameLength = 1024

	// MaxPayloadLength is the longest payload that fits in a frame.
	MaxPayloadLength = MaxFrameLength - HeaderLength - CRCLength
)

// The length field is read once this many bytes have arrived.
const lengthKnownAt = 4

type state int

const (
	stateSync1 state = iota
	stateSync2
	stateMessageLength
	stateMessage
)

// Parser is the frame decoder for the Asv protocol.
type Parser struct {
	*parser.Dispatcher[uint16]

	state  state
	buffer [MaxFrameLength]byte
	index  int
	total  int
}

// New creates an Asv parser with no messages registered.  See
// RegisterDefaultMessages.
func New(counters *parser.Counters, logger *slog.Logger) *Parser {
	p := Parser{
		Dispatcher: parser.NewDispatcher[uint16](ProtocolID, counters, logger),
	}
	return &p
}

// Read consumes one byte of the stream.  It returns true if the byte
// completed a frame with a good CRC.
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
			p.state = stateMessageLength
		case Sync1:
			// Stay here, this may be the real start of frame.
		default:
			p.Reset()
		}

	case stateMessageLength:
		p.buffer[p.index] = b
		p.index++
		if p.index == lengthKnownAt {
			payloadLength := int(binary.LittleEndian.Uint16(p.buffer[2:4]))
			p.total = payloadLength + HeaderLength + CRCLength
			if p.total > MaxFrameLength {
				p.Reset()
				return false
			}
			p.state = stateMessage
		}

	case stateMessage:
		p.buffer[p.index] = b
		p.index++
		if p.index < p.total {
			return false
		}
		return p.frameComplete()
	}

	return false
}

// frameComplete checks the CRC of a complete frame and dispatches it.
func (p *Parser) frameComplete() bool {
	defer p.Reset()

	frame := p.buffer[:p.total]
	crcPos := p.total - CRCLength
	want := binary.LittleEndian.Uint16(frame[crcPos:])
	got := crc.CRC16(frame[:crcPos])
	if got != want {
		p.Fail(parser.CRCMismatch, "crc16 error - frame says 0x%04x, calculated 0x%04x", want, got)
		return false
	}

	id := binary.LittleEndian.Uint16(frame[8:10])
	p.Dispatch(id, frame)
	return true
}

// Reset discards any partial frame.
func (p *Parser) Reset() {
	p.state = stateSync1
	p.index = 0
	p.total = 0
}
