package rtcm3

import (
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// Message types 1005 and 1006 give the position of the base station's
// antenna reference point.  1006 adds the antenna height.
const (
	MessageType1005 = 1005
	MessageType1006 = 1006
)

// Lengths of the fields in the bit stream.
const (
	lenStationID             = 12
	lenITRFRealisationYear   = 6
	lenIndicator             = 1
	lenAntennaRef            = 38
	lenQuarterCycleIndicator = 2
	lenAntennaHeight         = 16
)

const lenStationPosition = lenStationID + lenITRFRealisationYear +
	4*lenIndicator + lenAntennaRef + 2*lenIndicator + lenAntennaRef +
	lenQuarterCycleIndicator + lenAntennaRef

const lengthOfMessage1005InBits = lenMessageNumber + lenStationPosition
const lengthOfMessage1006InBits = lengthOfMessage1005InBits + lenAntennaHeight

// The antenna coordinates and height are in units of 1/10,000 of a metre.
const scaleFactor = 0.0001

// StationPosition holds the fields that messages 1005 and 1006 share.
type StationPosition struct {
	// StationID - uint12.
	StationID uint `json:"station_id"`

	// ITRFRealisationYear is reserved for the ITRF realisation year -
	// uint6.
	ITRFRealisationYear uint `json:"itrf_realisation_year"`

	// The station supports these constellations.
	GPSIndicator     bool `json:"gps_indicator"`
	GlonassIndicator bool `json:"glonass_indicator"`
	GalileoIndicator bool `json:"galileo_indicator"`

	// ReferenceStationIndicator is false for a real station and true
	// for a virtual one.
	ReferenceStationIndicator bool `json:"reference_station_indicator"`

	// AntennaRefX is the antenna Reference Point coordinate X in ECEF - int38.
	// Scaled integer in 0.0001 m units (tenth mm).
	AntennaRefX int64 `json:"antenna_ref_x"`

	SingleReceiverOscillator bool `json:"single_receiver_oscillator"`

	// Reserved - uint1.
	Reserved uint `json:"reserved"`

	// AntennaRefY is the antenna Reference Point coordinate Y in ECEF - int38.
	AntennaRefY int64 `json:"antenna_ref_y"`

	// QuarterCycleIndicator - uint2.
	QuarterCycleIndicator uint `json:"quarter_cycle_indicator"`

	// AntennaRefZ is the antenna Reference Point coordinate Z in ECEF - int38.
	AntennaRefZ int64 `json:"antenna_ref_z"`
}

func getBool(bitStream []byte, pos uint) bool {
	return utils.GetBitsAsUint64(bitStream, pos, 1) == 1
}

func setBool(bitStream []byte, pos uint, value bool) {
	var v uint64
	if value {
		v = 1
	}
	utils.SetBitsFromUint64(bitStream, pos, 1, v)
}

// decode reads the station position starting at bit pos and returns the
// position of the next field.
func (sp *StationPosition) decode(bitStream []byte, pos uint) uint {
	sp.StationID = uint(utils.GetBitsAsUint64(bitStream, pos, lenStationID))
	pos += lenStationID
	sp.ITRFRealisationYear = uint(utils.GetBitsAsUint64(bitStream, pos, lenITRFRealisationYear))
	pos += lenITRFRealisationYear
	sp.GPSIndicator = getBool(bitStream, pos)
	pos += lenIndicator
	sp.GlonassIndicator = getBool(bitStream, pos)
	pos += lenIndicator
	sp.GalileoIndicator = getBool(bitStream, pos)
	pos += lenIndicator
	sp.ReferenceStationIndicator = getBool(bitStream, pos)
	pos += lenIndicator
	sp.AntennaRefX = utils.GetBitsAsInt64(bitStream, pos, lenAntennaRef)
	pos += lenAntennaRef
	sp.SingleReceiverOscillator = getBool(bitStream, pos)
	pos += lenIndicator
	sp.Reserved = uint(utils.GetBitsAsUint64(bitStream, pos, lenIndicator))
	pos += lenIndicator
	sp.AntennaRefY = utils.GetBitsAsInt64(bitStream, pos, lenAntennaRef)
	pos += lenAntennaRef
	sp.QuarterCycleIndicator = uint(utils.GetBitsAsUint64(bitStream, pos, lenQuarterCycleIndicator))
	pos += lenQuarterCycleIndicator
	sp.AntennaRefZ = utils.GetBitsAsInt64(bitStream, pos, lenAntennaRef)
	pos += lenAntennaRef
	return pos
}

// encode is the mirror of decode.
func (sp *StationPosition) encode(bitStream []byte, pos uint) uint {
	utils.SetBitsFromUint64(bitStream, pos, lenStationID, uint64(sp.StationID))
	pos += lenStationID
	utils.SetBitsFromUint64(bitStream, pos, lenITRFRealisationYear, uint64(sp.ITRFRealisationYear))
	pos += lenITRFRealisationYear
	setBool(bitStream, pos, sp.GPSIndicator)
	pos += lenIndicator
	setBool(bitStream, pos, sp.GlonassIndicator)
	pos += lenIndicator
	setBool(bitStream, pos, sp.GalileoIndicator)
	pos += lenIndicator
	setBool(bitStream, pos, sp.ReferenceStationIndicator)
	pos += lenIndicator
	utils.SetBitsFromInt64(bitStream, pos, lenAntennaRef, sp.AntennaRefX)
	pos += lenAntennaRef
	setBool(bitStream, pos, sp.SingleReceiverOscillator)
	pos += lenIndicator
	utils.SetBitsFromUint64(bitStream, pos, lenIndicator, uint64(sp.Reserved))
	pos += lenIndicator
	utils.SetBitsFromInt64(bitStream, pos, lenAntennaRef, sp.AntennaRefY)
	pos += lenAntennaRef
	utils.SetBitsFromUint64(bitStream, pos, lenQuarterCycleIndicator, uint64(sp.QuarterCycleIndicator))
	pos += lenQuarterCycleIndicator
	utils.SetBitsFromInt64(bitStream, pos, lenAntennaRef, sp.AntennaRefZ)
	pos += lenAntennaRef
	return pos
}

// ECEF returns the antenna reference point in metres.
func (sp *StationPosition) ECEF() (x, y, z float64) {
	x = float64(sp.AntennaRefX) * scaleFactor
	y = float64(sp.AntennaRefY) * scaleFactor
	z = float64(sp.AntennaRefZ) * scaleFactor
	return x, y, z
}

func (sp *StationPosition) String() string {
	display := fmt.Sprintf("stationID %d, ITRF realisation year %d,\n",
		sp.StationID, sp.ITRFRealisationYear)
	x, y, z := sp.ECEF()
	display += fmt.Sprintf("ECEF coords in metres (%.4f, %.4f, %.4f)\n", x, y, z)
	return display
}

// Message1005 contains a message of type 1005 - antenna position.
type Message1005 struct {
	messageBase
	StationPosition
}

func (m *Message1005) MessageID() uint16 { return MessageType1005 }
func (m *Message1005) Name() string      { return "stationary RTK reference station ARP" }

func (m *Message1005) Deserialize(frame []byte) error {
	if _, err := embeddedMessage(frame, MessageType1005, lengthOfMessage1005InBits); err != nil {
		return err
	}
	m.decode(frame, LeaderLengthBits+lenMessageNumber)
	return nil
}

func (m *Message1005) SerializeMessage() ([]byte, error) {
	bitStream := newMessageBuffer(lengthOfMessage1005InBits)
	utils.SetBitsFromUint64(bitStream, 0, lenMessageNumber, MessageType1005)
	m.encode(bitStream, lenMessageNumber)
	return bitStream, nil
}

// Message1006 contains a message of type 1006 - antenna position and
// height.
type Message1006 struct {
	messageBase
	StationPosition

	// AntennaHeight is the height of the antenna reference point above
	// the marker in 0.0001 m units - uint16.
	AntennaHeight uint `json:"antenna_height"`
}

func (m *Message1006) MessageID() uint16 { return MessageType1006 }
func (m *Message1006) Name() string      { return "stationary RTK reference station ARP with antenna height" }

func (m *Message1006) Deserialize(frame []byte) error {
	if _, err := embeddedMessage(frame, MessageType1006, lengthOfMessage1006InBits); err != nil {
		return err
	}
	pos := m.decode(frame, LeaderLengthBits+lenMessageNumber)
	m.AntennaHeight = uint(utils.GetBitsAsUint64(frame, pos, lenAntennaHeight))
	return nil
}

func (m *Message1006) SerializeMessage() ([]byte, error) {
	bitStream := newMessageBuffer(lengthOfMessage1006InBits)
	utils.SetBitsFromUint64(bitStream, 0, lenMessageNumber, MessageType1006)
	pos := m.encode(bitStream, lenMessageNumber)
	utils.SetBitsFromUint64(bitStream, pos, lenAntennaHeight, uint64(m.AntennaHeight))
	return bitStream, nil
}

func (m *Message1006) String() string {
	return m.StationPosition.String() +
		fmt.Sprintf("antenna height %.4f metres\n", float64(m.AntennaHeight)*scaleFactor)
}
