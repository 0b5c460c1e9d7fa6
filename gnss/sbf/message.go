package sbf

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goblimey/go-gnssparser/gnss/crc"
	"github.com/goblimey/go-gnssparser/gnss/parser"
)

// Block types.
const (
	GPSRawCAID   = 4017
	GEORawL1ID   = 4020
	GALRawINAVID = 4023
)

const (
	typeMask      = 0x1fff
	revisionShift = 13

	// MaxRevision is the largest revision that fits in the id.
	MaxRevision = 7
)

// timeHeaderLength is the length of the header plus the time stamp that
// every block carries.
const timeHeaderLength = HeaderLength + 6

// Values of TOW and WNc that mean "not known".
const (
	TOWDoNotUse = 0xffffffff
	WNcDoNotUse = 0xffff
)

// The start of GPS time.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// BlockType returns the block type part of an id.
func BlockType(id uint16) uint16 {
	return id & typeMask
}

// Revision returns the revision part of an id.
func Revision(id uint16) uint8 {
	return uint8(id >> revisionShift)
}

// BlockID makes an id from a block type and a revision.
func BlockID(blockType uint16, revision uint8) uint16 {
	return blockType&typeMask | uint16(revision)<<revisionShift
}

// Message is an SBF block.
type Message interface {
	parser.Decodable[uint16]

	// BlockHeader returns the time stamp and revision of the block.
	BlockHeader() *Header

	// MarshalBody returns the block after the time stamp, unpadded.
	MarshalBody() ([]byte, error)
}

// Header holds the fields that every block carries besides its type.
type Header struct {
	Revision uint8 `json:"revision"`

	// TOW is the time of week in milliseconds.
	TOW uint32 `json:"tow"`

	// WNc is the continuous GPS week number.
	WNc uint16 `json:"wnc"`
}

// BlockHeader returns the header.  Blocks embed Header, so this satisfies
// that part of the Message interface for them.
func (h *Header) BlockHeader() *Header {
	return h
}

// ProtocolID returns "SBF".
func (h *Header) ProtocolID() string {
	return ProtocolID
}

// Time returns the time stamp as a time in the GPS time scale, which
// runs ahead of UTC by the leap seconds since 1980.  It returns the zero
// time if the receiver didn't know the time.
func (h *Header) Time() time.Time {
	if h.TOW == TOWDoNotUse || h.WNc == WNcDoNotUse {
		return time.Time{}
	}
	return gpsEpoch.AddDate(0, 0, 7*int(h.WNc)).Add(time.Duration(h.TOW) * time.Millisecond)
}

// decode checks that frame is a complete block of the given type, fills in
// the header and returns the rest of the block.
func (h *Header) decode(frame []byte, blockType uint16) ([]byte, error) {
	if len(frame) < timeHeaderLength {
		return nil, fmt.Errorf("overrun - expected at least %d bytes in an SBF block, got %d",
			timeHeaderLength, len(frame))
	}

	id := binary.LittleEndian.Uint16(frame[4:6])
	if BlockType(id) != blockType {
		return nil, fmt.Errorf("expected block type %d got %d", blockType, BlockType(id))
	}

	h.Revision = Revision(id)
	h.TOW = binary.LittleEndian.Uint32(frame[8:12])
	h.WNc = binary.LittleEndian.Uint16(frame[12:14])

	return frame[timeHeaderLength:], nil
}

// Encode returns the complete block for a message.
func Encode(m Message) ([]byte, error) {
	body, err := m.MarshalBody()
	if err != nil {
		return nil, err
	}

	h := m.BlockHeader()
	if h.Revision > MaxRevision {
		return nil, fmt.Errorf("revision %d - the maximum is %d", h.Revision, MaxRevision)
	}

	payload := make([]byte, 6, 6+len(body))
	binary.LittleEndian.PutUint32(payload[0:4], h.TOW)
	binary.LittleEndian.PutUint16(payload[4:6], h.WNc)
	payload = append(payload, body...)

	return EncodeFrame(BlockID(BlockType(m.MessageID()), h.Revision), payload)
}

// EncodeFrame wraps a payload in a block header and computes the CRC.  The
// payload is padded with zeros to make the block length a multiple of 4.
func EncodeFrame(id uint16, payload []byte) ([]byte, error) {
	length := HeaderLength + len(payload)
	if pad := length % 4; pad != 0 {
		length += 4 - pad
	}
	if length > MaxFrameLength {
		return nil, fmt.Errorf("block of %d bytes is too long - the maximum is %d",
			length, MaxFrameLength)
	}

	frame := make([]byte, length)
	frame[0] = Sync1
	frame[1] = Sync2
	binary.LittleEndian.PutUint16(frame[4:6], id)
	binary.LittleEndian.PutUint16(frame[6:8], uint16(length))
	copy(frame[HeaderLength:], payload)
	binary.LittleEndian.PutUint16(frame[2:4], crc.CRC16(frame[crcStart:]))

	return frame, nil
}

// DefaultMessages returns the constructors of the blocks that
// RegisterDefaultMessages registers.  They are registered at revision 0.
func DefaultMessages() []parser.Constructor[uint16] {
	return []parser.Constructor[uint16]{
		func() parser.Decodable[uint16] { return &GPSRawCA{} },
		func() parser.Decodable[uint16] { return &GEORawL1{} },
		func() parser.Decodable[uint16] { return &GALRawINAV{} },
	}
}

// RegisterDefaultMessages registers all the blocks in this package with p
// and returns p.
func RegisterDefaultMessages(p *Parser) *Parser {
	for _, c := range DefaultMessages() {
		p.Add(c)
	}
	return p
}
