package rtcm2

import (
	"bytes"
	"fmt"
)

// MessageTypeSpecial is the type of message 16.
const MessageTypeSpecial = 16

// MaxTextLength is the longest text that a message 16 can carry.
const MaxTextLength = 90

// Message16 is a special message, a line of text for the user.
type Message16 struct {
	Header

	Text string `json:"text"`
}

// NewMessage16 creates an empty message of type 16.
func NewMessage16() *Message16 {
	return &Message16{Header: Header{MessageType: MessageTypeSpecial}}
}

func (m *Message16) Name() string { return "special message" }

func (m *Message16) Deserialize(frame []byte) error {
	body, err := m.decode(frame)
	if err != nil {
		return err
	}

	if len(body) > MaxTextLength {
		body = body[:MaxTextLength]
	}

	// The last word is padded with nulls.
	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}
	m.Text = string(body)
	return nil
}

func (m *Message16) SerializeBody() ([]byte, error) {
	if len(m.Text) > MaxTextLength {
		return nil, fmt.Errorf("text of %d characters - the maximum is %d", len(m.Text), MaxTextLength)
	}
	if bytes.IndexByte([]byte(m.Text), 0) >= 0 {
		return nil, fmt.Errorf("text contains a null")
	}

	body := padBody(uint(len(m.Text)) * 8)
	copy(body, m.Text)
	return body, nil
}

func (m *Message16) String() string {
	return fmt.Sprintf("station %d says %q\n", m.StationID, m.Text)
}
