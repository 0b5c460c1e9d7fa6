package asv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/crc"
	"github.com/goblimey/go-gnssparser/gnss/parser"
)

// Message IDs.
const (
	HeartbeatID     = 0x0100
	GbasVdbSendID   = 0x0101
	GbasVdbSendV2ID = 0x0102
)

// Message is an Asv message.
type Message interface {
	parser.Decodable[uint16]

	// FrameHeader returns the addressing fields of the frame.
	FrameHeader() *Header

	// MarshalPayload returns the payload of the frame.
	MarshalPayload() ([]byte, error)
}

// Header holds the addressing fields that every frame carries.
type Header struct {
	// Sequence is the frame sequence number set by the sender.
	Sequence uint16 `json:"sequence"`

	SenderID uint8 `json:"sender_id"`
	TargetID uint8 `json:"target_id"`
}

// FrameHeader returns the header.  Messages embed Header, so this satisfies
// that part of the Message interface for them.
func (h *Header) FrameHeader() *Header {
	return h
}

// ProtocolID returns "Asv".
func (h *Header) ProtocolID() string {
	return ProtocolID
}

// decode checks that frame is a complete Asv frame carrying message id,
// fills in the header fields and returns the payload.
func (h *Header) decode(frame []byte, id uint16) ([]byte, error) {
	if len(frame) < HeaderLength+CRCLength {
		return nil, fmt.Errorf("overrun - expected at least %d bytes in an Asv frame, got %d",
			HeaderLength+CRCLength, len(frame))
	}

	payloadLength := int(binary.LittleEndian.Uint16(frame[2:4]))
	if len(frame) != payloadLength+HeaderLength+CRCLength {
		return nil, fmt.Errorf("frame length %d doesn't match payload length %d",
			len(frame), payloadLength)
	}

	gotID := binary.LittleEndian.Uint16(frame[8:10])
	if gotID != id {
		return nil, fmt.Errorf("expected message 0x%04x got 0x%04x", id, gotID)
	}

	h.Sequence = binary.LittleEndian.Uint16(frame[4:6])
	h.SenderID = frame[6]
	h.TargetID = frame[7]

	return frame[HeaderLength : HeaderLength+payloadLength], nil
}

// Encode returns the complete frame for a message.
func Encode(m Message) ([]byte, error) {
	payload, err := m.MarshalPayload()
	if err != nil {
		return nil, err
	}
	return EncodeFrame(m.MessageID(), *m.FrameHeader(), payload)
}

// EncodeFrame builds a frame from its parts.
func EncodeFrame(id uint16, h Header, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("payload of %d bytes is too long - the maximum is %d",
			len(payload), MaxPayloadLength)
	}

	frame := make([]byte, HeaderLength, HeaderLength+len(payload)+CRCLength)
	frame[0] = Sync1
	frame[1] = Sync2
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(payload)))
	binary.LittleEndian.PutUint16(frame[4:6], h.Sequence)
	frame[6] = h.SenderID
	frame[7] = h.TargetID
	binary.LittleEndian.PutUint16(frame[8:10], id)
	frame = append(frame, payload...)
	frame = binary.LittleEndian.AppendUint16(frame, crc.CRC16(frame))

	return frame, nil
}

// Heartbeat is sent periodically by every device.  It has no payload.
type Heartbeat struct {
	Header
}

func (m *Heartbeat) MessageID() uint16 { return HeartbeatID }
func (m *Heartbeat) Name() string      { return "Heartbeat" }

func (m *Heartbeat) Deserialize(frame []byte) error {
	payload, err := m.decode(frame, HeartbeatID)
	if err != nil {
		return err
	}
	if len(payload) != 0 {
		return fmt.Errorf("heartbeat should have no payload, got %d bytes", len(payload))
	}
	return nil
}

func (m *Heartbeat) MarshalPayload() ([]byte, error) {
	return nil, nil
}

func (m *Heartbeat) String() string {
	return fmt.Sprintf("heartbeat from %d to %d, sequence %d", m.SenderID, m.TargetID, m.Sequence)
}

// GbasVdbSend asks a GBAS VHF data broadcast transmitter to send a message
// in the given TDMA slots.
type GbasVdbSend struct {
	Header

	// Slots is a bit mask of TDMA slots, bit 0 for slot A to bit 7 for
	// slot H.
	Slots uint8 `json:"slots"`

	// Data is the VDB message to send.
	Data []byte `json:"data"`
}

func (m *GbasVdbSend) MessageID() uint16 { return GbasVdbSendID }
func (m *GbasVdbSend) Name() string      { return "GbasVdbSend" }

func (m *GbasVdbSend) Deserialize(frame []byte) error {
	payload, err := m.decode(frame, GbasVdbSendID)
	if err != nil {
		return err
	}
	if len(payload) < 1 {
		return errors.New("GbasVdbSend payload is empty")
	}
	m.Slots = payload[0]
	m.Data = append([]byte(nil), payload[1:]...)
	return nil
}

func (m *GbasVdbSend) MarshalPayload() ([]byte, error) {
	payload := make([]byte, 0, 1+len(m.Data))
	payload = append(payload, m.Slots)
	return append(payload, m.Data...), nil
}

func (m *GbasVdbSend) String() string {
	return fmt.Sprintf("GBAS VDB send, slots %08b, %d bytes", m.Slots, len(m.Data))
}

// GbasVdbSendV2 is the second version of GbasVdbSend.  It adds a request ID
// so that the transmitter can acknowledge the request and a lifetime, the
// number of frames for which the message is repeated.
type GbasVdbSendV2 struct {
	Header

	RequestID uint16 `json:"request_id"`
	Slots     uint8  `json:"slots"`
	LifeTime  uint8  `json:"life_time"`
	Data      []byte `json:"data"`
}

const gbasVdbSendV2Fixed = 4

func (m *GbasVdbSendV2) MessageID() uint16 { return GbasVdbSendV2ID }
func (m *GbasVdbSendV2) Name() string      { return "GbasVdbSendV2" }

func (m *GbasVdbSendV2) Deserialize(frame []byte) error {
	payload, err := m.decode(frame, GbasVdbSendV2ID)
	if err != nil {
		return err
	}
	if len(payload) < gbasVdbSendV2Fixed {
		return fmt.Errorf("GbasVdbSendV2 payload too short - want at least %d bytes, got %d",
			gbasVdbSendV2Fixed, len(payload))
	}
	m.RequestID = binary.LittleEndian.Uint16(payload[0:2])
	m.Slots = payload[2]
	m.LifeTime = payload[3]
	m.Data = append([]byte(nil), payload[gbasVdbSendV2Fixed:]...)
	return nil
}

func (m *GbasVdbSendV2) MarshalPayload() ([]byte, error) {
	payload := make([]byte, gbasVdbSendV2Fixed, gbasVdbSendV2Fixed+len(m.Data))
	binary.LittleEndian.PutUint16(payload[0:2], m.RequestID)
	payload[2] = m.Slots
	payload[3] = m.LifeTime
	return append(payload, m.Data...), nil
}

func (m *GbasVdbSendV2) String() string {
	return fmt.Sprintf("GBAS VDB send v2, request %d, slots %08b, lifetime %d, %d bytes",
		m.RequestID, m.Slots, m.LifeTime, len(m.Data))
}

// DefaultMessages returns the constructors of the messages that
// RegisterDefaultMessages registers.
func DefaultMessages() []parser.Constructor[uint16] {
	return []parser.Constructor[uint16]{
		func() parser.Decodable[uint16] { return &Heartbeat{} },
		func() parser.Decodable[uint16] { return &GbasVdbSend{} },
		func() parser.Decodable[uint16] { return &GbasVdbSendV2{} },
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
