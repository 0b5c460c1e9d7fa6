// The rtcm3 package decodes RTCM version 3 message frames.  A frame is a
// 3-byte leader, an embedded message of up to 1023 bytes and a 3-byte
// CRC-24Q.  The leader is the preamble 0xD3, six reserved bits, which are
// zero, and the 10-bit length of the embedded message.  The message starts
// with a 12-bit message number.
//
// Besides the typed messages, a caller can ask for the undecoded frames of
// chosen message numbers, for example to relay MSM messages to a caster
// without decoding them.
package rtcm3

import (
	"log/slog"

	"github.com/goblimey/go-gnssparser/gnss/crc"
	"github.com/goblimey/go-gnssparser/gnss/parser"
	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// ProtocolID identifies the protocol in messages and errors.
const ProtocolID = "RTCMv3"

// Preamble is the first byte of every frame.
const Preamble = 0xD3

const (
	// LeaderLengthBytes is the length of the leader - preamble, reserved
	// bits and message length.
	LeaderLengthBytes = 3
	LeaderLengthBits  = LeaderLengthBytes * 8

	// CRCLengthBytes is the length of the CRC at the end of the frame.
	CRCLengthBytes = 3
	CRCLengthBits  = CRCLengthBytes * 8

	// MaxMessageLength is the largest value of the 10-bit length field.
	MaxMessageLength = 1023

	// MaxFrameLength is the size of the parser's buffer.
	MaxFrameLength = LeaderLengthBytes + MaxMessageLength + CRCLengthBytes

	lenMessageNumber = 12
)

type state int

const (
	stateSync state = iota
	stateLength
	stateMessage
)

// RawMessage is an undecoded frame.  Frame is a copy of the parser's buffer
// and belongs to the receiver.
type RawMessage struct {
	MessageNumber uint16
	Frame         []byte
}

// RawHandler receives undecoded frames.
type RawHandler func(m *RawMessage)

// Parser is the frame decoder for RTCM version 3.
type Parser struct {
	*parser.Dispatcher[uint16]

	state  state
	buffer [MaxFrameLength]byte
	index  int
	total  int

	raw         map[uint16]bool
	rawHandlers []RawHandler
}

// New creates an RTCM3 parser with no messages registered.  See
// RegisterDefaultMessages and RegisterRaw.
func New(counters *parser.Counters, logger *slog.Logger) *Parser {
	p := Parser{
		Dispatcher: parser.NewDispatcher[uint16](ProtocolID, counters, logger),
		raw:        make(map[uint16]bool),
	}
	return &p
}

// RegisterRaw asks for the undecoded frames of the given message numbers to
// be published to the raw handlers.  A number can be registered both for
// raw frames and as a typed message, and then it's published both ways.
func (p *Parser) RegisterRaw(numbers ...uint16) {
	for _, n := range numbers {
		p.raw[n] = true
	}
}

// OnRawMessage adds a handler for undecoded frames.
func (p *Parser) OnRawMessage(h RawHandler) {
	p.rawHandlers = append(p.rawHandlers, h)
}

// Read consumes one byte of the stream.  It returns true if the byte
// completed a frame with a good CRC.
func (p *Parser) Read(b byte) bool {
	switch p.state {

	case stateSync:
		if b == Preamble {
			p.buffer[0] = b
			p.index = 1
			p.state = stateLength
		}

	case stateLength:
		p.buffer[p.index] = b
		p.index++
		if p.index < LeaderLengthBytes {
			return false
		}

		// The top six bits are reserved and should be zero.  If not,
		// this wasn't the start of a frame.
		if p.buffer[1]&0xFC != 0 {
			p.Reset()
			return false
		}

		messageLength := int(utils.GetBitsAsUint64(p.buffer[:], 14, 10))
		p.total = LeaderLengthBytes + messageLength + CRCLengthBytes
		if p.total > MaxFrameLength {
			p.Reset()
			return false
		}
		p.state = stateMessage

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
	crcPos := p.total - CRCLengthBytes
	want := uint32(utils.GetBitsAsUint64(frame, uint(crcPos*8), CRCLengthBits))
	got := crc.CRC24Q(frame[:crcPos])
	if got != want {
		p.Fail(parser.CRCMismatch, "crc error - frame says 0x%06x, calculated 0x%06x", want, got)
		return false
	}

	// A frame too short to hold a message number is filed as message 0,
	// which no message type uses.
	var number uint16
	if p.total-LeaderLengthBytes-CRCLengthBytes >= 2 {
		number = uint16(utils.GetBitsAsUint64(frame, LeaderLengthBits, lenMessageNumber))
	}

	_, typed := p.Lookup(number)
	if typed || !p.raw[number] {
		p.Dispatch(number, frame)
	} else {
		p.Counters().Frames.Add(1)
	}

	if p.raw[number] {
		raw := RawMessage{
			MessageNumber: number,
			Frame:         append([]byte(nil), frame...),
		}
		for _, h := range p.rawHandlers {
			h(&raw)
		}
	}

	return true
}

// Reset discards any partial frame.
func (p *Parser) Reset() {
	p.state = stateSync
	p.index = 0
	p.total = 0
}
