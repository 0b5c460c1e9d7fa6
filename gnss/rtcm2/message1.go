package rtcm2

import (
	"fmt"
	"math"

	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// Message types 1 and 9 carry the same per-satellite corrections.  Type 9
// is sent a few satellites at a time.
const (
	MessageTypeDGPSCorrections    = 1
	MessageTypePartialCorrections = 9
)

// Lengths of the fields of one correction.
const (
	lenScaleFactor = 1
	lenUDRE        = 2
	lenSatellite   = 5
	lenPRC         = 16
	lenRRC         = 8
	lenIOD         = 8

	lenCorrection = lenScaleFactor + lenUDRE + lenSatellite + lenPRC + lenRRC + lenIOD
)

// MaxCorrections is the number of corrections that fit in the longest
// message.
const MaxCorrections = MaxDataWords * bytesPerWord * 8 / lenCorrection

// Correction is the differential correction for one GPS satellite.
type Correction struct {
	// ScaleFactor selects the units of PRC and RRC - 0 for 0.02 m and
	// 0.002 m/s, 1 for 0.32 m and 0.032 m/s.
	ScaleFactor uint8 `json:"scale_factor"`

	// UDRE is the user differential range error class - uint2.
	UDRE uint8 `json:"udre"`

	// PRN is the satellite number - uint5.  Zero means satellite 32.
	PRN uint8 `json:"prn"`

	// PRC is the pseudorange correction - int16.
	PRC int16 `json:"prc"`

	// RRC is the range rate correction - int8.
	RRC int8 `json:"rrc"`

	// IOD is the issue of data of the ephemeris that the correction
	// applies to.
	IOD uint8 `json:"iod"`
}

// Satellite returns the satellite number, 1-32.
func (c *Correction) Satellite() int {
	if c.PRN == 0 {
		return 32
	}
	return int(c.PRN)
}

// PseudorangeCorrection returns the pseudorange correction in metres.  It
// returns NaN if the satellite should not be used.
func (c *Correction) PseudorangeCorrection() float64 {
	if c.PRC == math.MinInt16 || c.RRC == math.MinInt8 {
		return math.NaN()
	}
	if c.ScaleFactor == 1 {
		return float64(c.PRC) * 0.32
	}
	return float64(c.PRC) * 0.02
}

// RangeRateCorrection returns the range rate correction in metres per
// second, or NaN.
func (c *Correction) RangeRateCorrection() float64 {
	if c.PRC == math.MinInt16 || c.RRC == math.MinInt8 {
		return math.NaN()
	}
	if c.ScaleFactor == 1 {
		return float64(c.RRC) * 0.032
	}
	return float64(c.RRC) * 0.002
}

// Message1 is a message of type 1 (differential GPS corrections) or type 9
// (GPS partial correction set).
type Message1 struct {
	Header

	Corrections []Correction `json:"corrections"`
}

// NewMessage1 creates an empty message of type 1.
func NewMessage1() *Message1 {
	return &Message1{Header: Header{MessageType: MessageTypeDGPSCorrections}}
}

// NewMessage9 creates an empty message of type 9.
func NewMessage9() *Message1 {
	return &Message1{Header: Header{MessageType: MessageTypePartialCorrections}}
}

func (m *Message1) Name() string {
	if m.MessageType == MessageTypePartialCorrections {
		return "GPS partial correction set"
	}
	return "differential GPS corrections"
}

func (m *Message1) Deserialize(frame []byte) error {
	body, err := m.decode(frame)
	if err != nil {
		return err
	}

	n := len(body) * 8 / lenCorrection
	m.Corrections = make([]Correction, 0, n)
	var pos uint
	for i := 0; i < n; i++ {
		var c Correction
		c.ScaleFactor = uint8(utils.GetBitsAsUint64(body, pos, lenScaleFactor))
		pos += lenScaleFactor
		c.UDRE = uint8(utils.GetBitsAsUint64(body, pos, lenUDRE))
		pos += lenUDRE
		c.PRN = uint8(utils.GetBitsAsUint64(body, pos, lenSatellite))
		pos += lenSatellite
		c.PRC = int16(utils.GetBitsAsInt64(body, pos, lenPRC))
		pos += lenPRC
		c.RRC = int8(utils.GetBitsAsInt64(body, pos, lenRRC))
		pos += lenRRC
		c.IOD = uint8(utils.GetBitsAsUint64(body, pos, lenIOD))
		pos += lenIOD
		m.Corrections = append(m.Corrections, c)
	}

	return nil
}

func (m *Message1) SerializeBody() ([]byte, error) {
	if len(m.Corrections) > MaxCorrections {
		return nil, fmt.Errorf("%d corrections - the maximum is %d", len(m.Corrections), MaxCorrections)
	}

	body := padBody(uint(len(m.Corrections)) * lenCorrection)
	var pos uint
	for _, c := range m.Corrections {
		utils.SetBitsFromUint64(body, pos, lenScaleFactor, uint64(c.ScaleFactor))
		pos += lenScaleFactor
		utils.SetBitsFromUint64(body, pos, lenUDRE, uint64(c.UDRE))
		pos += lenUDRE
		utils.SetBitsFromUint64(body, pos, lenSatellite, uint64(c.PRN))
		pos += lenSatellite
		utils.SetBitsFromInt64(body, pos, lenPRC, int64(c.PRC))
		pos += lenPRC
		utils.SetBitsFromInt64(body, pos, lenRRC, int64(c.RRC))
		pos += lenRRC
		utils.SetBitsFromUint64(body, pos, lenIOD, uint64(c.IOD))
		pos += lenIOD
	}
	return body, nil
}

func (m *Message1) String() string {
	s := fmt.Sprintf("type %d, station %d, time %.1f, %d corrections\n",
		m.MessageType, m.StationID, m.Seconds(), len(m.Corrections))
	for i := range m.Corrections {
		c := &m.Corrections[i]
		s += fmt.Sprintf("G%02d udre %d iod %d prc %.2f rrc %.3f\n",
			c.Satellite(), c.UDRE, c.IOD, c.PseudorangeCorrection(), c.RangeRateCorrection())
	}
	return s
}
