package rtcm3

import (
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// MessageType1012 is extended L1&L2 GLONASS RTK observables.
const MessageType1012 = 1012

// Lengths of the GLONASS fields that differ from GPS.
const (
	lenFrequencyChannel     = 5
	lenGlonassL1Pseudorange = 25
	lenGlonassL1Ambiguity   = 7

	lenGlonassObservation = lenSatelliteID + lenL1CodeIndicator + lenFrequencyChannel +
		lenGlonassL1Pseudorange + lenPhaseRangeDiff + lenLockTime + lenGlonassL1Ambiguity +
		lenCNR + lenL2CodeIndicator + lenL2PseudorangeDiff + lenPhaseRangeDiff + lenLockTime + lenCNR
)

// The GLONASS pseudorange ambiguity is in units of two light milliseconds.
const glonassAmbiguityUnit = 599584.916

// GlonassObservation holds the L1 and L2 observations of one GLONASS
// satellite.
type GlonassObservation struct {
	SatelliteID     uint `json:"satellite_id"`
	L1CodeIndicator uint `json:"l1_code_indicator"`

	// FrequencyChannel is the channel number plus 7 - uint5.
	FrequencyChannel uint `json:"frequency_channel"`

	// L1Pseudorange is in units of 0.02 m - uint25.
	L1Pseudorange uint `json:"l1_pseudorange"`

	L1PhaseRangeDiff int64 `json:"l1_phase_range_diff"`
	L1LockTime       uint  `json:"l1_lock_time"`

	// L1Ambiguity - uint7.
	L1Ambiguity uint `json:"l1_ambiguity"`

	L1CNR             uint  `json:"l1_cnr"`
	L2CodeIndicator   uint  `json:"l2_code_indicator"`
	L2PseudorangeDiff int64 `json:"l2_pseudorange_diff"`
	L2PhaseRangeDiff  int64 `json:"l2_phase_range_diff"`
	L2LockTime        uint  `json:"l2_lock_time"`
	L2CNR             uint  `json:"l2_cnr"`
}

// Channel returns the frequency channel number, -7 to +24.
func (o *GlonassObservation) Channel() int {
	return int(o.FrequencyChannel) - 7
}

// L1PseudorangeMetres returns the full L1 pseudorange in metres.
func (o *GlonassObservation) L1PseudorangeMetres() float64 {
	return float64(o.L1Pseudorange)*0.02 + float64(o.L1Ambiguity)*glonassAmbiguityUnit
}

// Message1012 contains GLONASS L1 and L2 observations.
type Message1012 struct {
	messageBase
	ObservableHeader

	Satellites []GlonassObservation `json:"satellites"`
}

func (m *Message1012) MessageID() uint16 { return MessageType1012 }
func (m *Message1012) Name() string      { return "extended L1&L2 GLONASS RTK observables" }

func (m *Message1012) Deserialize(frame []byte) error {
	lenMessageInBits, err := embeddedMessage(frame, MessageType1012, 0)
	if err != nil {
		return err
	}

	pos, err := m.ObservableHeader.Deserialize(frame, LeaderLengthBits)
	if err != nil {
		return err
	}

	want := pos - LeaderLengthBits + m.NumberOfSatellites*lenGlonassObservation
	if lenMessageInBits < want {
		return fmt.Errorf("overrun - expected %d bits in a message type 1012 with %d satellites, got %d",
			want, m.NumberOfSatellites, lenMessageInBits)
	}

	m.Satellites = make([]GlonassObservation, m.NumberOfSatellites)
	for i := range m.Satellites {
		o := &m.Satellites[i]
		o.SatelliteID = uint(utils.GetBitsAsUint64(frame, pos, lenSatelliteID))
		pos += lenSatelliteID
		o.L1CodeIndicator = uint(utils.GetBitsAsUint64(frame, pos, lenL1CodeIndicator))
		pos += lenL1CodeIndicator
		o.FrequencyChannel = uint(utils.GetBitsAsUint64(frame, pos, lenFrequencyChannel))
		pos += lenFrequencyChannel
		o.L1Pseudorange = uint(utils.GetBitsAsUint64(frame, pos, lenGlonassL1Pseudorange))
		pos += lenGlonassL1Pseudorange
		o.L1PhaseRangeDiff = utils.GetBitsAsInt64(frame, pos, lenPhaseRangeDiff)
		pos += lenPhaseRangeDiff
		o.L1LockTime = uint(utils.GetBitsAsUint64(frame, pos, lenLockTime))
		pos += lenLockTime
		o.L1Ambiguity = uint(utils.GetBitsAsUint64(frame, pos, lenGlonassL1Ambiguity))
		pos += lenGlonassL1Ambiguity
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

func (m *Message1012) SerializeMessage() ([]byte, error) {
	h := m.ObservableHeader
	h.MessageNumber = MessageType1012
	h.NumberOfSatellites = uint(len(m.Satellites))

	lenHeader, _ := observableHeaderLength(MessageType1012)
	bitStream := newMessageBuffer(lenHeader + uint(len(m.Satellites))*lenGlonassObservation)

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
		utils.SetBitsFromUint64(bitStream, pos, lenFrequencyChannel, uint64(o.FrequencyChannel))
		pos += lenFrequencyChannel
		utils.SetBitsFromUint64(bitStream, pos, lenGlonassL1Pseudorange, uint64(o.L1Pseudorange))
		pos += lenGlonassL1Pseudorange
		utils.SetBitsFromInt64(bitStream, pos, lenPhaseRangeDiff, o.L1PhaseRangeDiff)
		pos += lenPhaseRangeDiff
		utils.SetBitsFromUint64(bitStream, pos, lenLockTime, uint64(o.L1LockTime))
		pos += lenLockTime
		utils.SetBitsFromUint64(bitStream, pos, lenGlonassL1Ambiguity, uint64(o.L1Ambiguity))
		pos += lenGlonassL1Ambiguity
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

func (m *Message1012) String() string {
	display := m.ObservableHeader.String()
	for i := range m.Satellites {
		o := &m.Satellites[i]
		display += fmt.Sprintf("R%02d channel %d L1 %.2f m, cnr %.2f dB-Hz, lock %d\n",
			o.SatelliteID, o.Channel(), o.L1PseudorangeMetres(), float64(o.L1CNR)*0.25, o.L1LockTime)
	}
	return display
}
