package rtcm3

import (
	"fmt"
	"math"

	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// MessageType1020 is GLONASS ephemeris.
const MessageType1020 = 1020

const lengthOfMessage1020InBits = 360

// Message1020 contains the broadcast ephemeris of one GLONASS satellite.
// The fields hold the integers sent on the wire.  Fields marked "sm" are
// sign-magnitude rather than twos-complement.  See the GLONASS ICD for the
// meaning of the P and M fields.
type Message1020 struct {
	messageBase

	SatelliteID uint `json:"satellite_id"`

	// FrequencyChannel is the channel number plus 7 - uint5.
	FrequencyChannel uint `json:"frequency_channel"`

	AlmanacHealth             uint `json:"almanac_health"`
	AlmanacHealthAvailability uint `json:"almanac_health_availability"`
	P1                        uint `json:"p1"`

	// The time of the start of the frame within the day, Moscow time.
	TkHours      uint `json:"tk_hours"`
	TkMinutes    uint `json:"tk_minutes"`
	TkHalfMinute uint `json:"tk_half_minute"`

	// BnMSB is the most significant bit of the health flag Bn.
	BnMSB uint `json:"bn_msb"`
	P2    uint `json:"p2"`

	// Tb is the time of the ephemeris within the day in units of 15
	// minutes - uint7.
	Tb uint `json:"tb"`

	// Velocity (sm24, 2^-20 km/s), position (sm27, 2^-11 km) and
	// acceleration (sm5, 2^-30 km/s^2) in PZ-90 coordinates.
	XnFirstDerivative  int64 `json:"xn_first_derivative"`
	Xn                 int64 `json:"xn"`
	XnSecondDerivative int64 `json:"xn_second_derivative"`
	YnFirstDerivative  int64 `json:"yn_first_derivative"`
	Yn                 int64 `json:"yn"`
	YnSecondDerivative int64 `json:"yn_second_derivative"`
	ZnFirstDerivative  int64 `json:"zn_first_derivative"`
	Zn                 int64 `json:"zn"`
	ZnSecondDerivative int64 `json:"zn_second_derivative"`

	P3 uint `json:"p3"`

	// GammaN is the relative frequency bias, sm11, 2^-40.
	GammaN int64 `json:"gamma_n"`

	MP  uint `json:"m_p"`
	MI3 uint `json:"m_i3"`

	// TauN is the satellite clock bias, sm22, 2^-30 s.
	TauN int64 `json:"tau_n"`

	// MDeltaTauN is the delay between L1 and L2, sm5, 2^-30 s.
	MDeltaTauN int64 `json:"m_delta_tau_n"`

	// EN is the age of the data in days - uint5.
	EN uint `json:"e_n"`

	MP4                        uint `json:"m_p4"`
	MFT                        uint `json:"m_ft"`
	MNT                        uint `json:"m_nt"`
	MM                         uint `json:"m_m"`
	AdditionalDataAvailability uint `json:"additional_data_availability"`
	NA                         uint `json:"n_a"`

	// TauC is the GLONASS time scale correction to UTC, sm32, 2^-31 s.
	TauC int64 `json:"tau_c"`

	MN4 uint `json:"m_n4"`

	// MTauGPS is the correction to GPS time, sm22, 2^-30 s.
	MTauGPS int64 `json:"m_tau_gps"`

	MI5      uint `json:"m_i5"`
	Reserved uint `json:"reserved"`
}

func (m *Message1020) MessageID() uint16 { return MessageType1020 }
func (m *Message1020) Name() string      { return "GLONASS ephemeris" }

// glonassField describes one field of a message 1020 for the
// codec loops below.
type glonassField struct {
	length        uint
	unsigned      *uint
	signMagnitude *int64
}

// fields lists the fields of the message in wire order.
func (m *Message1020) fields() []glonassField {
	u := func(length uint, v *uint) glonassField { return glonassField{length: length, unsigned: v} }
	sm := func(length uint, v *int64) glonassField { return glonassField{length: length, signMagnitude: v} }

	return []glonassField{
		u(6, &m.SatelliteID),
		u(5, &m.FrequencyChannel),
		u(1, &m.AlmanacHealth),
		u(1, &m.AlmanacHealthAvailability),
		u(2, &m.P1),
		u(5, &m.TkHours),
		u(6, &m.TkMinutes),
		u(1, &m.TkHalfMinute),
		u(1, &m.BnMSB),
		u(1, &m.P2),
		u(7, &m.Tb),
		sm(24, &m.XnFirstDerivative),
		sm(27, &m.Xn),
		sm(5, &m.XnSecondDerivative),
		sm(24, &m.YnFirstDerivative),
		sm(27, &m.Yn),
		sm(5, &m.YnSecondDerivative),
		sm(24, &m.ZnFirstDerivative),
		sm(27, &m.Zn),
		sm(5, &m.ZnSecondDerivative),
		u(1, &m.P3),
		sm(11, &m.GammaN),
		u(2, &m.MP),
		u(1, &m.MI3),
		sm(22, &m.TauN),
		sm(5, &m.MDeltaTauN),
		u(5, &m.EN),
		u(1, &m.MP4),
		u(4, &m.MFT),
		u(11, &m.MNT),
		u(2, &m.MM),
		u(1, &m.AdditionalDataAvailability),
		u(11, &m.NA),
		sm(32, &m.TauC),
		u(5, &m.MN4),
		sm(22, &m.MTauGPS),
		u(1, &m.MI5),
		u(7, &m.Reserved),
	}
}

func (m *Message1020) Deserialize(frame []byte) error {
	if _, err := embeddedMessage(frame, MessageType1020, lengthOfMessage1020InBits); err != nil {
		return err
	}

	var pos uint = LeaderLengthBits + lenMessageNumber
	for _, f := range m.fields() {
		if f.unsigned != nil {
			*f.unsigned = uint(utils.GetBitsAsUint64(frame, pos, f.length))
		} else {
			*f.signMagnitude = utils.GetBitsAsSignMagnitude(frame, pos, f.length)
		}
		pos += f.length
	}
	return nil
}

func (m *Message1020) SerializeMessage() ([]byte, error) {
	bitStream := newMessageBuffer(lengthOfMessage1020InBits)
	utils.SetBitsFromUint64(bitStream, 0, lenMessageNumber, MessageType1020)

	var pos uint = lenMessageNumber
	for _, f := range m.fields() {
		if f.unsigned != nil {
			utils.SetBitsFromUint64(bitStream, pos, f.length, uint64(*f.unsigned))
		} else {
			utils.SetBitsFromSignMagnitude(bitStream, pos, f.length, *f.signMagnitude)
		}
		pos += f.length
	}
	return bitStream, nil
}

// Position returns the satellite position in metres.
func (m *Message1020) Position() (x, y, z float64) {
	scale := math.Ldexp(1e3, -11)
	return float64(m.Xn) * scale, float64(m.Yn) * scale, float64(m.Zn) * scale
}

// Velocity returns the satellite velocity in metres per second.
func (m *Message1020) Velocity() (x, y, z float64) {
	scale := math.Ldexp(1e3, -20)
	return float64(m.XnFirstDerivative) * scale,
		float64(m.YnFirstDerivative) * scale,
		float64(m.ZnFirstDerivative) * scale
}

// ClockBias returns the satellite clock bias in seconds.
func (m *Message1020) ClockBias() float64 {
	return math.Ldexp(float64(m.TauN), -30)
}

func (m *Message1020) String() string {
	x, y, z := m.Position()
	return fmt.Sprintf("R%02d channel %d, tb %d, health %d, position (%.3f, %.3f, %.3f) m, clock bias %.9f s\n",
		m.SatelliteID, int(m.FrequencyChannel)-7, m.Tb, m.BnMSB, x, y, z, m.ClockBias())
}
