package sbf

import (
	"encoding/binary"
	"fmt"
)

// Number of 32-bit navigation words in each raw navigation block.
const (
	GPSRawCAWords   = 10 // 300 bits, one subframe
	GEORawL1Words   = 8  // 250 bits
	GALRawINAVWords = 8  // 234 bits, one I/NAV page pair
)

// rawNavFixed is the length of the fields before the navigation words.
const rawNavFixed = 6

// RawNavBits holds the fields that the raw navigation blocks share.
type RawNavBits struct {
	Header

	// SVID is the satellite, see SatelliteCode.
	SVID uint8 `json:"svid"`

	// CRCPassed is set if the receiver's CRC or parity check passed.
	CRCPassed bool `json:"crc_passed"`

	// ViterbiCount is the number of corrected Viterbi errors.
	ViterbiCount uint8 `json:"viterbi_count"`

	// Source is the signal that the bits came from.  Only bits 0-4 are
	// defined.
	Source uint8 `json:"source"`

	// FreqNr is the GLONASS frequency number plus 8.  Not applicable to
	// these blocks.
	FreqNr uint8 `json:"freq_nr"`

	RxChannel uint8 `json:"rx_channel"`

	// NAVBits holds the navigation message.  The first bit received is
	// the MSB of NAVBits[0].  Unused bits at the end must be ignored.
	NAVBits []uint32 `json:"nav_bits"`
}

// Satellite returns the RINEX code of the satellite, for example "G05".
func (r *RawNavBits) Satellite() string {
	return SatelliteCode(r.SVID)
}

// decode fills in r from a block of the given type carrying words
// navigation words.
func (r *RawNavBits) decode(frame []byte, blockType uint16, words int) error {
	body, err := r.Header.decode(frame, blockType)
	if err != nil {
		return err
	}

	want := rawNavFixed + 4*words
	if len(body) < want {
		return fmt.Errorf("overrun - expected %d bytes after the time stamp in block %d, got %d",
			want, blockType, len(body))
	}

	r.SVID = body[0]
	r.CRCPassed = body[1] != 0
	r.ViterbiCount = body[2]
	r.Source = body[3]
	r.FreqNr = body[4]
	r.RxChannel = body[5]

	r.NAVBits = make([]uint32, words)
	for i := range r.NAVBits {
		pos := rawNavFixed + 4*i
		r.NAVBits[i] = binary.LittleEndian.Uint32(body[pos : pos+4])
	}

	return nil
}

// marshal is the mirror of decode.
func (r *RawNavBits) marshal(words int) ([]byte, error) {
	if len(r.NAVBits) != words {
		return nil, fmt.Errorf("expected %d navigation words, got %d", words, len(r.NAVBits))
	}

	body := make([]byte, rawNavFixed+4*words)
	body[0] = r.SVID
	if r.CRCPassed {
		body[1] = 1
	}
	body[2] = r.ViterbiCount
	body[3] = r.Source
	body[4] = r.FreqNr
	body[5] = r.RxChannel
	for i, w := range r.NAVBits {
		pos := rawNavFixed + 4*i
		binary.LittleEndian.PutUint32(body[pos:pos+4], w)
	}

	return body, nil
}

func (r *RawNavBits) String() string {
	return fmt.Sprintf("%s tow %d wnc %d, crc passed %v, source %d, channel %d, %d words\n",
		r.Satellite(), r.TOW, r.WNc, r.CRCPassed, r.Source&0x1f, r.RxChannel, len(r.NAVBits))
}

// GPSRawCA is a GPS C/A subframe.
type GPSRawCA struct {
	RawNavBits
}

func (m *GPSRawCA) MessageID() uint16 { return BlockID(GPSRawCAID, m.Revision) }
func (m *GPSRawCA) Name() string      { return "GPSRawCA" }

func (m *GPSRawCA) Deserialize(frame []byte) error {
	return m.decode(frame, GPSRawCAID, GPSRawCAWords)
}

func (m *GPSRawCA) MarshalBody() ([]byte, error) {
	return m.marshal(GPSRawCAWords)
}

// GEORawL1 is an SBAS L1 navigation frame.
type GEORawL1 struct {
	RawNavBits
}

func (m *GEORawL1) MessageID() uint16 { return BlockID(GEORawL1ID, m.Revision) }
func (m *GEORawL1) Name() string      { return "GEORawL1" }

func (m *GEORawL1) Deserialize(frame []byte) error {
	return m.decode(frame, GEORawL1ID, GEORawL1Words)
}

func (m *GEORawL1) MarshalBody() ([]byte, error) {
	return m.marshal(GEORawL1Words)
}

// GALRawINAV is a Galileo I/NAV page pair.
type GALRawINAV struct {
	RawNavBits
}

func (m *GALRawINAV) MessageID() uint16 { return BlockID(GALRawINAVID, m.Revision) }
func (m *GALRawINAV) Name() string      { return "GALRawINAV" }

func (m *GALRawINAV) Deserialize(frame []byte) error {
	return m.decode(frame, GALRawINAVID, GALRawINAVWords)
}

func (m *GALRawINAV) MarshalBody() ([]byte, error) {
	return m.marshal(GALRawINAVWords)
}
