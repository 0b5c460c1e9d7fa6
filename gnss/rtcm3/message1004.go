package rtcm3

import (
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// MessageType1004 is extended L1&L2 GPS RTK observables.
const MessageType1004 = 1004

// Lengths of the fields of one GPS satellite in a message type 1004.
const (
	lenSatelliteID       = 6
	lenL1CodeIndicator   = 1
	lenGPSL1Pseudorange  = 24
	lenPhaseRangeDiff    = 20
	lenLockTime          = 7
	lenGPSL1Ambiguity    = 8
	lenCNR               = 8
	lenL2CodeIndicator   = 2
	lenL2PseudorangeDiff = 14

	lenGPSObservation = lenSatelliteID + lenL1CodeIndicator + lenGPSL1Pseudorange +
		lenPhaseRangeDiff + lenLockTime + lenGPSL1Ambiguity + lenCNR +
		lenL2CodeIndicator + lenL2PseudorangeDiff + lenPhaseRangeDiff + lenLockTime + lenCNR
)

// The speed of light in metres per millisecond, the unit of the
// pseudorange ambiguity.
const lightMillisecond = 299792.458

// GPSObservation holds the L1 and L2 observations of one GPS satellite.
// The values are the scaled integers sent on the wire.
type GPSObservation struct {
	SatelliteID uint `json:"satellite_id"`

	L1CodeIndicator uint `json:"l1_code_indicator"`

	// L1Pseudorange is the L1 pseudorange modulo one light millisecond,
	// in units of 0.02 m - uint24.
	L1Pseudorange uint `json:"l1_pseudorange"`

	// L1PhaseRangeDiff is L1 phaserange minus L1 pseudorange in units of
	// 0.0005 m - int20.
	L1PhaseRangeDiff int64 `json:"l1_phase_range_diff"`

	L1LockTime uint `json:"l1_lock_time"`

	// L1Ambiguity is the whole number of light milliseconds in the L1
	// pseudorange - uint8.
	L1Ambiguity uint `json:"l1_ambiguity"`

	// L1CNR is the carrier to noise ratio in units of 0.25 dB-Hz - uint8.
	L1CNR uint `json:"l1_cnr"`

	L2CodeIndicator uint `json:"l2_code_indicator"`

	// L2PseudorangeDiff is L2 minus L1 pseudorange in units of 0.02 m -
	// int14.
	L2PseudorangeDiff int64 `json:"l2_pseudorange_diff"`

	// L2PhaseRangeDiff is L2 phaserange minus L1 pseudorange in units of
	// 0.0005 m - int20.
	L2PhaseRangeDiff int64 `json:"l2_phase_range_diff"`

	L2LockTime uint `json:"l2_lock_time"`
	L2CNR      uint `json:"l2_cnr"`
}

// L1PseudorangeMetres returns the full L1 pseudorange in metres.
func (o *GPSObservation) L1PseudorangeMetres() float64 {
	return float64(o.L1Pseudorange)*0.02 + float64(o.L1Ambiguity)*lightMillisecond
}

// Message1004 contains GPS L1 and L2 observations.
type Message1004 struct {
	messageBase
	ObservableHeader

	Satellites []GPSObservation `json:"satellites"`
}

func (m *Message1004) MessageID() uint16 { return MessageType1004 }
func (m *Message1004) Name() string      { return "extended L1&L2 GPS RTK observables" }

func (m *Message1004) Deserialize(frame []byte) error {
	lenMessageInBits, err := embeddedMessage(frame, MessageType1004, 0)
	if err != nil {
		return err
	}

	pos, err := m.ObservableHeader.Deserialize(frame, LeaderLengthBits)
	if err != nil {
		return err
	}

	want := pos - LeaderLengthBits + m.NumberOfSatellites*lenGPSObservation
	if lenMessageInBits < want {
		return fmt.Errorf("overrun - expected %d bits in a message type 1004 with %d satellites, got %d",
			want, m.NumberOfSatellites, lenMessageInBits)
	}

	m.Satellites = make([]GPSObservation, m.NumberOfSatellites)
	for i := range m.Satellites {
		o := &m.Satellites[i]
		o.SatelliteID = uint(utils.GetBitsAsUint64(frame, pos, lenSatelliteID))
		pos += lenSatelliteID
		o.L1CodeIndicator = uint(utils.GetBitsAsUint64(frame, pos, lenL1CodeIndicator))
		pos += lenL1CodeIndicator
		o.L1Pseudorange = uint(utils.GetBitsAsUint64(frame, pos, lenGPSL1Pseudorange))
		pos += lenGPSL1Pseudorange
		o.L1PhaseRangeDiff = utils.GetBitsAsInt64(frame, pos, lenPhaseRangeDiff)
		pos += lenPhaseRangeDiff
		o.L1LockTime = uint(utils.GetBitsAsUint64(frame, pos, lenLockTime))
		pos += lenLockTime
		o.L1Ambiguity = uint(utils.GetBitsAsUint64(frame, pos, lenGPSL1Ambiguity))
		pos += lenGPSL1Ambiguity
		o.L1CNR = uint(utils.GetBitsAsUint64(frame, pos, lenCNR))
		pos += lenCNR
		o.L2CodeIndicator = uint(utils.GetBitsAsUint64(frame, pos, lenL2CodeIndicator))
		pos += lenL2CodeIndicator
		o.L2PseudorangeDiff = utils.GetBitsAsInt64(frame, pos, lenL2PseudorangeDiff)
		pos += lenL2PseudorangeDiff
		o.L2PhaseRangeDiff = utils.GetBitsAsInt64(frame, pos, lenPhaseRangeDiff)
		pos += lenPhaseRangeDiff
		o.L2LockTime = uint(utils.GetBitsAsUint64(frame, pos, lenLockTime))
		pos += lenLockTime
		o.L2CNR = uint(utils.GetBitsAsUint64(frame, pos, lenCNR))
		pos += lenCNR
	}

	return nil
}

func (m *Message1004) SerializeMessage() ([]byte, error) {
	h := m.ObservableHeader
	h.MessageNumber = MessageType1004
	h.NumberOfSatellites = uint(len(m.Satellites))

	lenHeader, _ := observableHeaderLength(MessageType1004)
	bitStream := newMessageBuffer(lenHeader + uint(len(m.Satellites))*lenGPSObservation)

	pos, err := h.Serialize(bitStream, 0)
	if err != nil {
		return nil, err
	}

	for i := range m.Satellites {
		o := &m.Satellites[i]
		utils.SetBitsFromUint64(bitStream, pos, lenSatelliteID, uint64(o.SatelliteID))
		pos += lenSatelliteID
		utils.SetBitsFromUint64(bitStream, pos, lenL1CodeIndicator, uint64(o.L1CodeIndicator))
		pos += lenL1CodeIndicator
		utils.SetBitsFromUint64(bitStream, pos, lenGPSL1Pseudorange, uint64(o.L1Pseudorange))
		pos += lenGPSL1Pseudorange
		utils.SetBitsFromInt64(bitStream, pos, lenPhaseRangeDiff, o.L1PhaseRangeDiff)
		pos += lenPhaseRangeDiff
		utils.SetBitsFromUint64(bitStream, pos, lenLockTime, uint64(o.L1LockTime))
		pos += lenLockTime
		utils.SetBitsFromUint64(bitStream, pos, lenGPSL1Ambiguity, uint64(o.L1Ambiguity))
		pos += lenGPSL1Ambiguity
		utils.SetBitsFromUint64(bitStream, pos, lenCNR, uint64(o.L1CNR))
		pos += lenCNR
		utils.SetBitsFromUint64(bitStream, pos, lenL2CodeIndicator, uint64(o.L2CodeIndicator))
		pos += lenL2CodeIndicator
		utils.SetBitsFromInt64(bitStream, pos, lenL2PseudorangeDiff, o.L2PseudorangeDiff)
		pos += lenL2PseudorangeDiff
		utils.SetBitsFromInt64(bitStream, pos, lenPhaseRangeDiff, o.L2PhaseRangeDiff)
		pos += lenPhaseRangeDiff
		utils.SetBitsFromUint64(bitStream, pos, lenLockTime, uint64(o.L2LockTime))
		pos += lenLockTime
		utils.SetBitsFromUint64(bitStream, pos, lenCNR, uint64(o.L2CNR))
		pos += lenCNR
	}

	return bitStream, nil
}

func (m *Message1004) String() string {
	display := m.ObservableHeader.String()
	for i := range m.Satellites {
		o := &m.Satellites[i]
		display += fmt.Sprintf("G%02d L1 %.2f m, cnr %.2f dB-Hz, lock %d\n",
			o.SatelliteID, o.L1PseudorangeMetres(), float64(o.L1CNR)*0.25, o.L1LockTime)
	}
	return display
}
