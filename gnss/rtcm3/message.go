package rtcm3

import (
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/crc"
	"github.com/goblimey/go-gnssparser/gnss/parser"
	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// Message is an RTCM3 message.
type Message interface {
	parser.Decodable[uint16]

	// SerializeMessage returns the embedded message, without the leader
	// and CRC.
	SerializeMessage() ([]byte, error)
}

// messageBase supplies the methods that all message types share.
type messageBase struct{}

// ProtocolID returns "RTCMv3".
func (messageBase) ProtocolID() string {
	return ProtocolID
}

// embeddedMessage checks the length of a frame and returns the number of
// bits in the embedded message.  It fails if there are fewer than want.
func embeddedMessage(frame []byte, messageNumber uint16, want uint) (uint, error) {
	if len(frame) < LeaderLengthBytes+CRCLengthBytes {
		return 0, fmt.Errorf("overrun - expected at least %d bytes in an RTCM3 frame, got %d",
			LeaderLengthBytes+CRCLengthBytes, len(frame))
	}

	lenMessageInBits := uint(len(frame))*8 - LeaderLengthBits - CRCLengthBits
	if lenMessageInBits < want {
		return 0, fmt.Errorf("overrun - expected %d bits in a message type %d, got %d",
			want, messageNumber, lenMessageInBits)
	}

	got := uint16(utils.GetBitsAsUint64(frame, LeaderLengthBits, lenMessageNumber))
	if got != messageNumber {
		return 0, fmt.Errorf("expected message type %d got %d", messageNumber, got)
	}

	return lenMessageInBits, nil
}

// Encode returns the complete frame for a message.
func Encode(m Message) ([]byte, error) {
	message, err := m.SerializeMessage()
	if err != nil {
		return nil, err
	}
	return EncodeFrame(message)
}

// EncodeFrame wraps an embedded message in a leader and CRC.
func EncodeFrame(message []byte) ([]byte, error) {
	if len(message) > MaxMessageLength {
		return nil, fmt.Errorf("message of %d bytes is too long - the maximum is %d",
			len(message), MaxMessageLength)
	}

	frame := make([]byte, LeaderLengthBytes, LeaderLengthBytes+len(message)+CRCLengthBytes)
	frame[0] = Preamble
	utils.SetBitsFromUint64(frame, 14, 10, uint64(len(message)))
	frame = append(frame, message...)
	hash := crc.CRC24QBytes(frame)
	return append(frame, hash[:]...), nil
}

// newMessageBuffer returns a zeroed buffer big enough for a message of the
// given number of bits.
func newMessageBuffer(bits uint) []byte {
	return make([]byte, (bits+7)/8)
}

// DefaultMessages returns the constructors of the messages that
// RegisterDefaultMessages registers.
func DefaultMessages() []parser.Constructor[uint16] {
	return []parser.Constructor[uint16]{
		func() parser.Decodable[uint16] { return &Message1004{} },
		func() parser.Decodable[uint16] { return &Message1005{} },
		func() parser.Decodable[uint16] { return &Message1006{} },
		func() parser.Decodable[uint16] { return &Message1012{} },
		func() parser.Decodable[uint16] { return &Message1020{} },
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
