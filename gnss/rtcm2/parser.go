// The rtcm2 package decodes RTCM version 2 messages.
//
// RTCM2 is bit-oriented.  A message is a sequence of 30-bit words, each
// holding 24 data bits and 6 parity bits.  The words are sent six bits at a
// time, least significant bit first, in bytes whose top two bits are 01.
// The first word of a message starts with the preamble 0x66 and the second
// word gives the number of data words that follow.
package rtcm2

import (
	"log/slog"

	"github.com/goblimey/go-gnssparser/gnss/crc"
	"github.com/goblimey/go-gnssparser/gnss/parser"
	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// ProtocolID identifies the protocol in messages and errors.
const ProtocolID = "RTCMv2"

// Preamble starts the first word of every message.
const Preamble = 0x66

const (
	// HeaderLength is the length in bytes of the two header words.
	HeaderLength = 6

	// MaxDataWords is the largest value of the 5-bit length field.
	MaxDataWords = 31

	// MaxFrameLength is the data length of the longest message.
	MaxFrameLength = HeaderLength + MaxDataWords*3

	bitsPerWord  = 30
	bitsPerByte  = 6
	byteTagMask  = 0xC0
	byteTag      = 0x40
	bytesPerWord = 3
)

// Parser is the frame decoder for RTCM version 2.
type Parser struct {
	*parser.Dispatcher[uint8]

	buffer [MaxFrameLength]byte

	// word accumulates the incoming bits.  The top two bits are the last
	// two bits of the previous word.
	word uint32

	// count is the number of data bytes in the buffer.  Zero means that
	// the parser is searching for a preamble.
	count int

	// bits is the number of bits of the current word received so far.
	bits int

	// length is the expected number of data bytes, known once the
	// second word has arrived.
	length int
}

// New creates an RTCM2 parser with no messages registered.  See
// RegisterDefaultMessages.
func New(counters *parser.Counters, logger *slog.Logger) *Parser {
	p := Parser{
		Dispatcher: parser.NewDispatcher[uint8](ProtocolID, counters, logger),
	}
	return &p
}

// Read consumes one byte of the stream.  Bytes that aren't in the 6-of-8
// form are ignored.  It returns true if the byte completed a message whose
// words all passed their parity checks.
func (p *Parser) Read(b byte) bool {
	if b&byteTagMask != byteTag {
		return false
	}

	for i := 0; i < bitsPerByte; i, b = i+1, b>>1 {
		p.word = p.word<<1 | uint32(b&1)

		if p.count == 0 {
			// Searching for the start of a message.
			if !p.preambleFound() {
				continue
			}
			data, ok := crc.DecodeWord(p.word)
			if !ok {
				continue
			}
			copy(p.buffer[:bytesPerWord], data[:])
			p.count = bytesPerWord
			p.bits = 0
			continue
		}

		p.bits++
		if p.bits < bitsPerWord {
			continue
		}
		p.bits = 0

		data, ok := crc.DecodeWord(p.word)
		if !ok {
			p.Fail(parser.ParityMismatch, "parity error in word %d", p.count/bytesPerWord+1)
			p.Reset()
			continue
		}

		copy(p.buffer[p.count:p.count+bytesPerWord], data[:])
		p.count += bytesPerWord
		if p.count == HeaderLength {
			p.length = int(p.buffer[5]>>3)*bytesPerWord + HeaderLength
		}
		if p.count < p.length {
			continue
		}

		// The message is complete.  Any bits left in this byte are
		// dropped.
		frame := p.buffer[:p.length]
		id := uint8(utils.GetBitsAsUint64(frame, 8, 6))
		p.Dispatch(id, frame)
		p.Reset()
		return true
	}

	return false
}

// preambleFound returns true if the last 30 bits received could be the
// first word of a message.
func (p *Parser) preambleFound() bool {
	preamble := byte(p.word >> 22)
	if p.word&0x40000000 != 0 {
		// The previous word ended in a 1, so this one was sent
		// complemented.
		preamble ^= 0xFF
	}
	return preamble == Preamble
}

// Reset discards any partial message and starts searching for a preamble.
// The last two bits received are kept because the parity of the next word
// depends on them.
func (p *Parser) Reset() {
	p.word &= 0x3
	p.count = 0
	p.bits = 0
	p.length = 0
}
