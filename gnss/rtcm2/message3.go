package rtcm2

import (
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// MessageTypeReferenceStation is the type of message 3.
const MessageTypeReferenceStation = 3

const lenECEF = 32

// Message3 gives the position of the reference station.
type Message3 struct {
	Header

	// X, Y and Z are the ECEF coordinates of the station in units of
	// 0.01 m - int32.
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// NewMessage3 creates an empty message of type 3.
func NewMessage3() *Message3 {
	return &Message3{Header: Header{MessageType: MessageTypeReferenceStation}}
}

func (m *Message3) Name() string { return "reference station parameters" }

func (m *Message3) Deserialize(frame []byte) error {
	body, err := m.decode(frame)
	if err != nil {
		return err
	}

	if len(body)*8 < 3*lenECEF {
		return fmt.Errorf("overrun - expected %d bits in a message type 3, got %d",
			3*lenECEF, len(body)*8)
	}

	m.X = int32(utils.GetBitsAsInt64(body, 0, lenECEF))
	m.Y = int32(utils.GetBitsAsInt64(body, lenECEF, lenECEF))
	m.Z = int32(utils.GetBitsAsInt64(body, 2*lenECEF, lenECEF))
	return nil
}

func (m *Message3) SerializeBody() ([]byte, error) {
	body := padBody(3 * lenECEF)
	utils.SetBitsFromInt64(body, 0, lenECEF, int64(m.X))
	utils.SetBitsFromInt64(body, lenECEF, lenECEF, int64(m.Y))
	utils.SetBitsFromInt64(body, 2*lenECEF, lenECEF, int64(m.Z))
	return body, nil
}

func (m *Message3) String() string {
	const scaleFactor = 0.01
	return fmt.Sprintf("station %d, ECEF coords in metres (%.2f, %.2f, %.2f)\n",
		m.StationID, float64(m.X)*scaleFactor, float64(m.Y)*scaleFactor, float64(m.Z)*scaleFactor)
}
