package rtcm2

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/crc"
	"github.com/goblimey/go-gnssparser/gnss/parser"
	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// Lengths of the header fields in the bit stream.
const (
	lenPreamble    = 8
	lenMessageType = 6
	lenStationID   = 10
	lenZCount      = 13
	lenSequence    = 3
	lenDataWords   = 5
	lenHealth      = 3
)

// MaxZCount is the limit of the modified Z-count, one hour in units of 0.6
// seconds.
const MaxZCount = 6000

// Message is an RTCM2 message.
type Message interface {
	parser.Decodable[uint8]

	// FrameHeader returns the common header.
	FrameHeader() *Header

	// SerializeBody returns the data bytes that follow the header.  The
	// length must be a multiple of three and no more than 93.
	SerializeBody() ([]byte, error)
}

// Header holds the fields of the first two words of every message.
type Header struct {
	// MessageType - uint6.
	MessageType uint8 `json:"message_type"`

	// StationID - uint10.
	StationID uint16 `json:"station_id"`

	// ZCount is the modified Z-count, the time within the hour in units
	// of 0.6 seconds - uint13, less than 6000.
	ZCount uint16 `json:"z_count"`

	// Sequence - uint3.
	Sequence uint8 `json:"sequence"`

	// Health is the station health - uint3.  7 means that the station
	// is not working.
	Health uint8 `json:"health"`
}

// FrameHeader returns the header.
func (h *Header) FrameHeader() *Header {
	return h
}

// ProtocolID returns "RTCMv2".
func (h *Header) ProtocolID() string {
	return ProtocolID
}

// MessageID returns the message type.
func (h *Header) MessageID() uint8 {
	return h.MessageType
}

// Seconds returns the modified Z-count in seconds.
func (h *Header) Seconds() float64 {
	return float64(h.ZCount) * 0.6
}

// decode fills in the header from the first 48 bits of frame and returns the
// data that follows it.  The message type in the frame must match the one
// already in the header.
func (h *Header) decode(frame []byte) ([]byte, error) {
	if len(frame) < HeaderLength {
		return nil, fmt.Errorf("overrun - expected at least %d bytes in an RTCM2 message, got %d",
			HeaderLength, len(frame))
	}

	var pos uint
	preamble := utils.GetBitsAsUint64(frame, pos, lenPreamble)
	pos += lenPreamble
	if preamble != Preamble {
		return nil, fmt.Errorf("expected preamble 0x%02x got 0x%02x", Preamble, preamble)
	}

	messageType := uint8(utils.GetBitsAsUint64(frame, pos, lenMessageType))
	pos += lenMessageType
	if messageType != h.MessageType {
		return nil, fmt.Errorf("expected message type %d got %d", h.MessageType, messageType)
	}

	stationID := uint16(utils.GetBitsAsUint64(frame, pos, lenStationID))
	pos += lenStationID
	zCount := uint16(utils.GetBitsAsUint64(frame, pos, lenZCount))
	pos += lenZCount
	if zCount >= MaxZCount {
		return nil, fmt.Errorf("modified Z-count %d out of range", zCount)
	}
	sequence := uint8(utils.GetBitsAsUint64(frame, pos, lenSequence))
	pos += lenSequence
	dataWords := int(utils.GetBitsAsUint64(frame, pos, lenDataWords))
	pos += lenDataWords
	health := uint8(utils.GetBitsAsUint64(frame, pos, lenHealth))

	want := HeaderLength + dataWords*bytesPerWord
	if len(frame) < want {
		return nil, fmt.Errorf("overrun - header says %d data words, the message has %d bytes",
			dataWords, len(frame))
	}

	h.StationID = stationID
	h.ZCount = zCount
	h.Sequence = sequence
	h.Health = health

	return frame[HeaderLength:want], nil
}

// serialize writes the header into the first six bytes of buff.
func (h *Header) serialize(buff []byte, dataWords int) {
	var pos uint
	utils.SetBitsFromUint64(buff, pos, lenPreamble, Preamble)
	pos += lenPreamble
	utils.SetBitsFromUint64(buff, pos, lenMessageType, uint64(h.MessageType))
	pos += lenMessageType
	utils.SetBitsFromUint64(buff, pos, lenStationID, uint64(h.StationID))
	pos += lenStationID
	utils.SetBitsFromUint64(buff, pos, lenZCount, uint64(h.ZCount))
	pos += lenZCount
	utils.SetBitsFromUint64(buff, pos, lenSequence, uint64(h.Sequence))
	pos += lenSequence
	utils.SetBitsFromUint64(buff, pos, lenDataWords, uint64(dataWords))
	pos += lenDataWords
	utils.SetBitsFromUint64(buff, pos, lenHealth, uint64(h.Health))
}

// Serialize returns the data bytes of a message, header first, before they
// are split into words.
func Serialize(m Message) ([]byte, error) {
	h := m.FrameHeader()
	if h.MessageType != m.MessageID() {
		return nil, fmt.Errorf("header says message type %d, message is type %d",
			h.MessageType, m.MessageID())
	}
	if h.ZCount >= MaxZCount {
		return nil, fmt.Errorf("modified Z-count %d out of range", h.ZCount)
	}

	body, err := m.SerializeBody()
	if err != nil {
		return nil, err
	}
	if len(body)%bytesPerWord != 0 {
		return nil, errors.New("message body is not a whole number of words")
	}
	dataWords := len(body) / bytesPerWord
	if dataWords > MaxDataWords {
		return nil, fmt.Errorf("message body of %d words is too long - the maximum is %d",
			dataWords, MaxDataWords)
	}

	data := make([]byte, HeaderLength, HeaderLength+len(body))
	h.serialize(data, dataWords)
	return append(data, body...), nil
}

// Encoder turns messages into the bytes that are sent down the line.  The
// parity of each word depends on the last two bits of the word before, so
// an Encoder remembers them from one message to the next.
type Encoder struct {
	last uint32
}

// Encode returns the transmitted form of a message.
func (e *Encoder) Encode(m Message) ([]byte, error) {
	data, err := Serialize(m)
	if err != nil {
		return nil, err
	}
	return e.encodeWords(data), nil
}

// encodeWords splits data into words, adds the parity and returns the
// words in 6-of-8 form.
func (e *Encoder) encodeWords(data []byte) []byte {
	words := len(data) / bytesPerWord
	out := make([]byte, 0, words*bitsPerWord/bitsPerByte)
	for w := 0; w < words; w++ {
		var d [3]byte
		copy(d[:], data[w*bytesPerWord:])
		e.last = crc.EncodeWord(e.last, d)

		// Send bits 29 to 0, six to a byte, the first bit to go in
		// the least significant position.
		for i := 0; i < bitsPerWord/bitsPerByte; i++ {
			var b byte
			for j := 0; j < bitsPerByte; j++ {
				bit := (e.last >> (bitsPerWord - 1 - (i*bitsPerByte + j))) & 1
				b |= byte(bit) << j
			}
			out = append(out, byteTag|b)
		}
	}
	return out
}

// Encode returns the transmitted form of a message sent at the start of a
// stream.
func Encode(m Message) ([]byte, error) {
	var e Encoder
	return e.Encode(m)
}

// padBody rounds the length of a body in bits up to a whole number of
// words.
func padBody(bits uint) []byte {
	wordBits := uint(bytesPerWord * 8)
	words := (bits + wordBits - 1) / wordBits
	return make([]byte, words*bytesPerWord)
}

// DefaultMessages returns the constructors of the messages that
// RegisterDefaultMessages registers.
func DefaultMessages() []parser.Constructor[uint8] {
	return []parser.Constructor[uint8]{
		func() parser.Decodable[uint8] { return NewMessage1() },
		func() parser.Decodable[uint8] { return NewMessage9() },
		func() parser.Decodable[uint8] { return NewMessage3() },
		func() parser.Decodable[uint8] { return NewMessage16() },
		func() parser.Decodable[uint8] { return NewMessage31() },
	}
}

// RegisterDefaultMessages registers all the messages in this package with p
// and returns p.
func RegisterDefaultMessages(p *Parser) *Parser {
	for _, c := range DefaultMessages() {
		p.Add(c)
	}
	return p
}
