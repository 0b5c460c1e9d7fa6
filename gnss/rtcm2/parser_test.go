package rtcm2

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goblimey/go-gnssparser/gnss/parser"
)

// sink collects the events published by a parser.
type sink struct {
	messages []parser.Message
	errors   []*parser.ParseError
}

func newTestParser() (*Parser, *sink) {
	var s sink
	p := RegisterDefaultMessages(New(nil, nil))
	p.OnMessage(func(m parser.Message) error {
		s.messages = append(s.messages, m)
		return nil
	})
	p.OnError(func(pe *parser.ParseError) { s.errors = append(s.errors, pe) })
	return p, &s
}

func feed(p *Parser, data []byte) int {
	complete := 0
	for _, b := range data {
		if p.Read(b) {
			complete++
		}
	}
	return complete
}

func randomHeader(r *rand.Rand, messageType uint8) Header {
	return Header{
		MessageType: messageType,
		StationID:   uint16(r.Intn(1 << lenStationID)),
		ZCount:      uint16(r.Intn(MaxZCount)),
		Sequence:    uint8(r.Intn(1 << lenSequence)),
		Health:      uint8(r.Intn(1 << lenHealth)),
	}
}

func randomCorrections(r *rand.Rand) []Correction {
	c := make([]Correction, r.Intn(MaxCorrections+1))
	for i := range c {
		c[i] = Correction{
			ScaleFactor: uint8(r.Intn(2)),
			UDRE:        uint8(r.Intn(4)),
			PRN:         uint8(r.Intn(32)),
			PRC:         int16(r.Intn(0x10000) - 0x8000),
			RRC:         int8(r.Intn(0x100) - 0x80),
			IOD:         uint8(r.Intn(0x100)),
		}
	}
	return c
}

func randomText(r *rand.Rand) string {
	text := make([]byte, r.Intn(MaxTextLength+1))
	for i := range text {
		text[i] = byte(' ' + r.Intn(95))
	}
	return string(text)
}

// randomMessages returns one message of each registered type with random
// field values.
func randomMessages(r *rand.Rand) []Message {
	glonass := make([]GlonassCorrection, r.Intn(MaxCorrections+1))
	for i := range glonass {
		glonass[i] = GlonassCorrection{
			ScaleFactor: uint8(r.Intn(2)),
			UDRE:        uint8(r.Intn(4)),
			SatelliteID: uint8(r.Intn(32)),
			PRC:         int16(r.Intn(0x10000) - 0x8000),
			RRC:         int8(r.Intn(0x100) - 0x80),
			Change:      uint8(r.Intn(2)),
			TimeOfDay:   uint8(r.Intn(0x80)),
		}
	}

	return []Message{
		&Message1{Header: randomHeader(r, 1), Corrections: randomCorrections(r)},
		&Message1{Header: randomHeader(r, 9), Corrections: randomCorrections(r)},
		&Message3{Header: randomHeader(r, 3), X: r.Int31() - r.Int31(), Y: r.Int31() - r.Int31(), Z: r.Int31() - r.Int31()},
		&Message16{Header: randomHeader(r, 16), Text: randomText(r)},
		&Message31{Header: randomHeader(r, 31), Corrections: glonass},
	}
}

// fixedMessages returns a stream of messages whose transmitted form is known
// not to contain a false preamble between messages.
func fixedMessages() []Message {
	return []Message{
		&Message3{
			Header: Header{MessageType: 3, StationID: 100, ZCount: 1234, Sequence: 5},
			X:      384512345, Y: -12345678, Z: 498765432,
		},
		&Message1{
			Header: Header{MessageType: 1, StationID: 100, ZCount: 1235, Sequence: 6, Health: 1},
			Corrections: []Correction{
				{ScaleFactor: 0, UDRE: 1, PRN: 5, PRC: -1234, RRC: 12, IOD: 77},
				{ScaleFactor: 1, UDRE: 0, PRN: 0, PRC: 4321, RRC: -3, IOD: 200},
				{ScaleFactor: 0, UDRE: 3, PRN: 17, PRC: 0, RRC: 0, IOD: 1},
			},
		},
		&Message16{
			Header: Header{MessageType: 16, StationID: 100, ZCount: 1236, Sequence: 7},
			Text:   "HELLO FROM BASE 100",
		},
		&Message31{
			Header: Header{MessageType: 31, StationID: 100, ZCount: 1237, Sequence: 0},
			Corrections: []GlonassCorrection{
				{UDRE: 2, SatelliteID: 9, PRC: -500, RRC: 7, Change: 1, TimeOfDay: 33},
				{ScaleFactor: 1, SatelliteID: 24, PRC: 99, RRC: -99, TimeOfDay: 34},
			},
		},
		&Message1{
			Header:      Header{MessageType: 9, StationID: 100, ZCount: 1238, Sequence: 1},
			Corrections: []Correction{{UDRE: 2, PRN: 31, PRC: 250, RRC: -1, IOD: 9}},
		},
	}
}

// TestRoundTrip encodes random messages, feeds the result to a new parser
// and checks that the published message matches.
func TestRoundTrip(t *testing.T) {
	const seed = 3
	r := rand.New(rand.NewSource(seed))

	for i := 0; i < 50; i++ {
		for _, want := range randomMessages(r) {
			encoded, err := Encode(want)
			if err != nil {
				t.Fatalf("seed %d: %s: %v", seed, want.Name(), err)
			}

			p, s := newTestParser()
			if n := feed(p, encoded); n != 1 {
				t.Errorf("seed %d: %s: want 1 complete message, got %d", seed, want.Name(), n)
			}
			if len(s.errors) != 0 {
				t.Errorf("seed %d: %s: unexpected errors %v", seed, want.Name(), s.errors)
			}
			if len(s.messages) != 1 {
				t.Fatalf("seed %d: %s: want 1 message, got %d", seed, want.Name(), len(s.messages))
			}
			if diff := cmp.Diff(want, s.messages[0], cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("seed %d: %s mismatch (-want +got):\n%s", seed, want.Name(), diff)
			}
		}
	}
}

// TestStream checks that a stream of messages sent back to back, with the
// parity of each word chained to the word before, is decoded completely.
func TestStream(t *testing.T) {
	want := fixedMessages()

	var e Encoder
	var stream []byte
	for _, m := range want {
		encoded, err := e.Encode(m)
		if err != nil {
			t.Fatal(err)
		}
		stream = append(stream, encoded...)
	}

	p, s := newTestParser()
	if n := feed(p, stream); n != len(want) {
		t.Errorf("want %d complete messages, got %d", len(want), n)
	}
	if len(s.errors) != 0 {
		t.Errorf("unexpected errors %v", s.errors)
	}

	got := make([]Message, 0, len(s.messages))
	for _, m := range s.messages {
		got = append(got, m.(Message))
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// TestInvertedPreamble checks that a message whose first word is sent
// complemented, because the last bit of the previous word was a 1, is
// found.
func TestInvertedPreamble(t *testing.T) {
	want := fixedMessages()[0]

	// Start the encoder as if the previous word ended in a 1.
	e := Encoder{last: 0x1}
	encoded, err := e.Encode(want)
	if err != nil {
		t.Fatal(err)
	}

	// The receiver needs to have seen that bit.  The six bits of this
	// byte go in least significant first, so the last one in is a 1.
	lead := []byte{byteTag | 0x20}

	p, s := newTestParser()
	feed(p, lead)
	if n := feed(p, encoded); n != 1 {
		t.Fatalf("want 1 complete message, got %d", n)
	}
	if diff := cmp.Diff(want, s.messages[0]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// TestIgnoredBytes checks that bytes not in the 6-of-8 form, before and
// inside a message, are skipped.
func TestIgnoredBytes(t *testing.T) {
	const seed = 11
	r := rand.New(rand.NewSource(seed))

	want := fixedMessages()[1]
	encoded, _ := Encode(want)

	junkByte := func() byte {
		for {
			b := byte(r.Intn(0x100))
			if b&byteTagMask != byteTag {
				return b
			}
		}
	}

	for i := 0; i < 100; i++ {
		var stream []byte
		for j := r.Intn(256); j > 0; j-- {
			stream = append(stream, junkByte())
		}
		for _, b := range encoded {
			stream = append(stream, b)
			if r.Intn(4) == 0 {
				stream = append(stream, junkByte())
			}
		}

		p, s := newTestParser()
		if n := feed(p, stream); n != 1 {
			t.Fatalf("seed %d: want 1 complete message, got %d", seed, n)
		}
		if diff := cmp.Diff(want, s.messages[0]); diff != "" {
			t.Errorf("seed %d: mismatch (-want +got):\n%s", seed, diff)
		}
	}
}

// TestParityError flips each bit after the first word and checks that the
// parity check catches it and that no message is published.
func TestParityError(t *testing.T) {
	encoded, _ := Encode(fixedMessages()[0])

	// The first word is 5 bytes long.
	for i := 5; i < len(encoded); i++ {
		for bit := 0; bit < bitsPerByte; bit++ {
			corrupt := append([]byte(nil), encoded...)
			corrupt[i] ^= 1 << bit

			p, s := newTestParser()
			if n := feed(p, corrupt); n != 0 {
				t.Errorf("byte %d bit %d: want no complete messages, got %d", i, bit, n)
			}
			if len(s.messages) != 0 {
				t.Errorf("byte %d bit %d: want no messages, got %d", i, bit, len(s.messages))
			}
			if len(s.errors) != 1 || !errors.Is(s.errors[0], parser.ErrParityMismatch) {
				t.Errorf("byte %d bit %d: want one parity error, got %v", i, bit, s.errors)
			}
			if got := p.Counters().Snapshot().ParityErrors; got != 1 {
				t.Errorf("byte %d bit %d: want parity error count 1, got %d", i, bit, got)
			}
		}
	}
}

// TestCorruptFirstWord checks that a message with a damaged first word is
// never published.  The first word isn't checked until the preamble is
// found, so no error is reported either.
func TestCorruptFirstWord(t *testing.T) {
	encoded, _ := Encode(fixedMessages()[0])

	for i := 0; i < 5; i++ {
		for bit := 0; bit < bitsPerByte; bit++ {
			corrupt := append([]byte(nil), encoded...)
			corrupt[i] ^= 1 << bit

			p, s := newTestParser()
			feed(p, corrupt)
			if len(s.messages) != 0 {
				t.Errorf("byte %d bit %d: want no messages, got %d", i, bit, len(s.messages))
			}
		}
	}
}

// TestRecoveryAfterParityError checks that the parser finds the next
// message after a damaged one.
func TestRecoveryAfterParityError(t *testing.T) {
	messages := fixedMessages()

	var e Encoder
	first, _ := e.Encode(messages[0])
	second, _ := e.Encode(messages[1])

	// Damage a bit in the middle of the first message.
	first[12] ^= 0x04

	p, s := newTestParser()
	feed(p, first)
	if n := feed(p, second); n != 1 {
		t.Fatalf("want 1 complete message, got %d", n)
	}
	if len(s.errors) != 1 {
		t.Errorf("want 1 error, got %v", s.errors)
	}
	if diff := cmp.Diff(messages[1], s.messages[0]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// TestUnknownID checks that a sound message of a type that isn't registered
// produces exactly one error.
func TestUnknownID(t *testing.T) {
	unknown := &Message3{Header: Header{MessageType: 3}, X: 1, Y: 2, Z: 3}

	p := New(nil, nil)
	p.Add(func() parser.Decodable[uint8] { return NewMessage16() })

	var errs []*parser.ParseError
	var messages []parser.Message
	p.OnError(func(pe *parser.ParseError) { errs = append(errs, pe) })
	p.OnMessage(func(m parser.Message) error {
		messages = append(messages, m)
		return nil
	})

	encoded, _ := Encode(unknown)
	if n := feed(p, encoded); n != 1 {
		t.Errorf("want the message to be complete, got %d", n)
	}
	if len(errs) != 1 || !errors.Is(errs[0], parser.ErrUnknownMessageID) {
		t.Errorf("want one unknown message error, got %v", errs)
	}
	if len(messages) != 0 {
		t.Errorf("want no messages, got %d", len(messages))
	}
}

// TestDecodeFailure checks that a message with a bad Z-count is reported.
func TestDecodeFailure(t *testing.T) {
	m := NewMessage3()
	data, _ := Serialize(m)

	// Rewrite the header with a Z-count beyond the end of the hour.
	m.ZCount = 7000
	m.serialize(data, (len(data)-HeaderLength)/bytesPerWord)

	var e Encoder
	encoded := e.encodeWords(data)

	p, s := newTestParser()
	feed(p, encoded)

	if len(s.errors) != 1 || !errors.Is(s.errors[0], parser.ErrDecodeFailed) {
		t.Errorf("want one decode error, got %v", s.errors)
	}
	if len(s.messages) != 0 {
		t.Errorf("want no messages, got %d", len(s.messages))
	}
}

func TestSerializeErrors(t *testing.T) {
	long := NewMessage16()
	long.Text = string(make([]byte, MaxTextLength+1))

	tooMany := NewMessage1()
	tooMany.Corrections = make([]Correction, MaxCorrections+1)

	badTime := NewMessage3()
	badTime.ZCount = MaxZCount

	for _, m := range []Message{long, tooMany, badTime} {
		if _, err := Encode(m); err == nil {
			t.Errorf("%s: expected an error", m.Name())
		}
	}
}
