package rtcm2

import (
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// MessageTypeGlonassCorrections is the type of message 31.
const MessageTypeGlonassCorrections = 31

const (
	lenChange    = 1
	lenTimeOfDay = 7
)

// GlonassCorrection is the differential correction for one GLONASS
// satellite.  It has the same layout as a GPS correction except that the
// IOD is replaced by a change flag and the time of day of the ephemeris.
type GlonassCorrection struct {
	ScaleFactor uint8 `json:"scale_factor"`
	UDRE        uint8 `json:"udre"`

	// SatelliteID is the GLONASS slot number - uint5.
	SatelliteID uint8 `json:"satellite_id"`

	PRC int16 `json:"prc"`
	RRC int8  `json:"rrc"`

	// Change is set when the ephemeris has changed - uint1.
	Change uint8 `json:"change"`

	// TimeOfDay identifies the ephemeris in units of 30 seconds - uint7.
	TimeOfDay uint8 `json:"time_of_day"`
}

// Message31 carries differential GLONASS corrections.
type Message31 struct {
	Header

	Corrections []GlonassCorrection `json:"corrections"`
}

// NewMessage31 creates an empty message of type 31.
func NewMessage31() *Message31 {
	return &Message31{Header: Header{MessageType: MessageTypeGlonassCorrections}}
}

func (m *Message31) Name() string { return "differential GLONASS corrections" }

func (m *Message31) Deserialize(frame []byte) error {
	body, err := m.decode(frame)
	if err != nil {
		return err
	}

	n := len(body) * 8 / lenCorrection
	m.Corrections = make([]GlonassCorrection, 0, n)
	var pos uint
	for i := 0; i < n; i++ {
		var c GlonassCorrection
		c.ScaleFactor = uint8(utils.GetBitsAsUint64(body, pos, lenScaleFactor))
		pos += lenScaleFactor
		c.UDRE = uint8(utils.GetBitsAsUint64(body, pos, lenUDRE))
		pos += lenUDRE
		c.SatelliteID = uint8(utils.GetBitsAsUint64(body, pos, lenSatellite))
		pos += lenSatellite
		c.PRC = int16(utils.GetBitsAsInt64(body, pos, lenPRC))
		pos += lenPRC
		c.RRC = int8(utils.GetBitsAsInt64(body, pos, lenRRC))
		pos += lenRRC
		c.Change = uint8(utils.GetBitsAsUint64(body, pos, lenChange))
		pos += lenChange
		c.TimeOfDay = uint8(utils.GetBitsAsUint64(body, pos, lenTimeOfDay))
		pos += lenTimeOfDay
		m.Corrections = append(m.Corrections, c)
	}

	return nil
}

func (m *Message31) SerializeBody() ([]byte, error) {
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
		utils.SetBitsFromUint64(body, pos, lenSatellite, uint64(c.SatelliteID))
		pos += lenSatellite
		utils.SetBitsFromInt64(body, pos, lenPRC, int64(c.PRC))
		pos += lenPRC
		utils.SetBitsFromInt64(body, pos, lenRRC, int64(c.RRC))
		pos += lenRRC
		utils.SetBitsFromUint64(body, pos, lenChange, uint64(c.Change))
		pos += lenChange
		utils.SetBitsFromUint64(body, pos, lenTimeOfDay, uint64(c.TimeOfDay))
		pos += lenTimeOfDay
	}
	return body, nil
}

func (m *Message31) String() string {
	s := fmt.Sprintf("type 31, station %d, time %.1f, %d corrections\n",
		m.StationID, m.Seconds(), len(m.Corrections))
	for _, c := range m.Corrections {
		s += fmt.Sprintf("R%02d udre %d tod %d prc %d rrc %d\n",
			c.SatelliteID, c.UDRE, c.TimeOfDay, c.PRC, c.RRC)
	}
	return s
}
