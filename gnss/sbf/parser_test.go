package sbf

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/kylelemons/godebug/diff"

	"github.com/goblimey/go-gnssparser/gnss/parser"
)

// gpsRawCABlock is a GPSRawCA block for G05 at TOW 345600000, week 2200.
// The navigation words are 0x8b000000 to 0x8b000009.
var gpsRawCABlock = []byte{
	0x24, 0x40, 0xfb, 0x39, 0xb1, 0x0f, 0x3c, 0x00, 0x00, 0x70, 0x99, 0x14,
	0x98, 0x08, 0x05, 0x01, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x8b,
	0x01, 0x00, 0x00, 0x8b, 0x02, 0x00, 0x00, 0x8b, 0x03, 0x00, 0x00, 0x8b,
	0x04, 0x00, 0x00, 0x8b, 0x05, 0x00, 0x00, 0x8b, 0x06, 0x00, 0x00, 0x8b,
	0x07, 0x00, 0x00, 0x8b, 0x08, 0x00, 0x00, 0x8b, 0x09, 0x00, 0x00, 0x8b,
}

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

// feed sends the bytes to the parser one at a time and returns the number of
// blocks that it reported as complete.
func feed(p *Parser, data []byte) int {
	complete := 0
	for _, b := range data {
		if p.Read(b) {
			complete++
		}
	}
	return complete
}

func randomRawNavBits(r *rand.Rand, words int) RawNavBits {
	raw := RawNavBits{
		Header: Header{
			TOW: r.Uint32(),
			WNc: uint16(r.Intn(0x10000)),
		},
		SVID:         uint8(r.Intn(0x100)),
		CRCPassed:    r.Intn(2) == 1,
		ViterbiCount: uint8(r.Intn(0x100)),
		Source:       uint8(r.Intn(0x100)),
		FreqNr:       uint8(r.Intn(0x100)),
		RxChannel:    uint8(r.Intn(0x100)),
		NAVBits:      make([]uint32, words),
	}
	for i := range raw.NAVBits {
		raw.NAVBits[i] = r.Uint32()
	}
	return raw
}

// randomMessages returns one block of each registered type with random
// field values.
func randomMessages(r *rand.Rand) []Message {
	return []Message{
		&GPSRawCA{randomRawNavBits(r, GPSRawCAWords)},
		&GEORawL1{randomRawNavBits(r, GEORawL1Words)},
		&GALRawINAV{randomRawNavBits(r, GALRawINAVWords)},
	}
}

// TestRoundTrip encodes random blocks, feeds them to the parser and checks
// that the published messages match.
func TestRoundTrip(t *testing.T) {
	const seed = 4017
	r := rand.New(rand.NewSource(seed))

	for i := 0; i < 100; i++ {
		for _, want := range randomMessages(r) {
			p, s := newTestParser()

			frame, err := Encode(want)
			if err != nil {
				t.Fatalf("seed %d: %s: %v", seed, want.Name(), err)
			}
			if len(frame)%4 != 0 {
				t.Errorf("seed %d: %s: block length %d is not a multiple of 4", seed, want.Name(), len(frame))
			}

			if n := feed(p, frame); n != 1 {
				t.Errorf("seed %d: %s: want 1 complete block, got %d", seed, want.Name(), n)
			}
			if len(s.errors) != 0 {
				t.Errorf("seed %d: %s: unexpected errors %v", seed, want.Name(), s.errors)
			}
			if len(s.messages) != 1 {
				t.Fatalf("seed %d: %s: want 1 message, got %d", seed, want.Name(), len(s.messages))
			}
			if d := cmp.Diff(want, s.messages[0], cmpopts.EquateEmpty()); d != "" {
				t.Errorf("seed %d: %s mismatch (-want +got):\n%s", seed, want.Name(), d)
			}
		}
	}
}

// TestGPSRawCA decodes a known block and checks the result.
func TestGPSRawCA(t *testing.T) {
	p, s := newTestParser()

	if n := feed(p, gpsRawCABlock); n != 1 {
		t.Fatalf("want 1 complete block, got %d", n)
	}
	if len(s.messages) != 1 {
		t.Fatalf("want 1 message, got %v", s.errors)
	}

	want := &GPSRawCA{RawNavBits{
		Header:    Header{TOW: 345600000, WNc: 2200},
		SVID:      5,
		CRCPassed: true,
		RxChannel: 3,
		NAVBits: []uint32{
			0x8b000000, 0x8b000001, 0x8b000002, 0x8b000003, 0x8b000004,
			0x8b000005, 0x8b000006, 0x8b000007, 0x8b000008, 0x8b000009,
		},
	}}
	got := s.messages[0].(*GPSRawCA)
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("mismatch (-want +got):\n%s", d)
	}

	wantTime := time.Date(2022, time.March, 10, 0, 0, 0, 0, time.UTC)
	if !got.Time().Equal(wantTime) {
		t.Errorf("want time %v got %v", wantTime, got.Time())
	}

	const wantString = "G05 tow 345600000 wnc 2200, crc passed true, source 0, channel 3, 10 words\n"
	if got.String() != wantString {
		t.Error(diff.Diff(wantString, got.String()))
	}

	// Encoding the decoded block gives back the original.
	frame, err := Encode(want)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(gpsRawCABlock, frame); d != "" {
		t.Errorf("encoded block mismatch (-want +got):\n%s", d)
	}
}

// TestResync checks that junk and false starts before a block don't stop it
// being decoded.
func TestResync(t *testing.T) {
	var testData = []struct {
		description string
		junk        []byte
	}{
		{"no junk", nil},
		{"text", []byte("hello")},
		{"repeated sync", []byte{Sync1, Sync1, Sync1}},
		{"sync then junk", []byte{Sync1, 0x41}},
		{"length too short", []byte{Sync1, Sync2, 0, 0, 0, 0, 0x04, 0x00}},
		{"length zero", []byte{Sync1, Sync2, 0, 0, 0, 0, 0x00, 0x00}},
		{"length not a multiple of 4", []byte{Sync1, Sync2, 0, 0, 0, 0, 0x0a, 0x00}},
		{"length too long", []byte{Sync1, Sync2, 0, 0, 0, 0, 0x04, 0x20}},
	}

	for _, td := range testData {
		p, s := newTestParser()
		stream := append(append([]byte{}, td.junk...), gpsRawCABlock...)
		if n := feed(p, stream); n != 1 {
			t.Errorf("%s: want 1 complete block, got %d", td.description, n)
		}
		if len(s.messages) != 1 {
			t.Errorf("%s: want 1 message, got %d", td.description, len(s.messages))
		}
		if len(s.errors) != 0 {
			t.Errorf("%s: unexpected errors %v", td.description, s.errors)
		}
	}
}

// TestCorruption flips each bit of the block apart from the sync and length
// fields and checks that the CRC check catches it.
func TestCorruption(t *testing.T) {
	for i := 2; i < len(gpsRawCABlock); i++ {
		if i == 6 || i == 7 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			p, s := newTestParser()
			frame := append([]byte{}, gpsRawCABlock...)
			frame[i] ^= 1 << bit

			if n := feed(p, frame); n != 0 {
				t.Errorf("byte %d bit %d: want no complete blocks, got %d", i, bit, n)
			}
			if len(s.messages) != 0 {
				t.Errorf("byte %d bit %d: corrupt block was published", i, bit)
			}
			if len(s.errors) != 1 || !errors.Is(s.errors[0], parser.ErrCRCMismatch) {
				t.Errorf("byte %d bit %d: want one crc error, got %v", i, bit, s.errors)
			}
		}
	}
}

// TestDispatchErrors checks blocks with good CRCs that can't be turned into
// messages.
func TestDispatchErrors(t *testing.T) {
	// A block with a GPSRawCA id but the length of a GEORawL1.
	short := make([]byte, 6+rawNavFixed+4*GEORawL1Words)

	var testData = []struct {
		description string
		id          uint16
		payload     []byte
		wantID      uint16
		wantError   error
		wantMessage string
	}{
		{"unknown type", 4001, nil, 4001, parser.ErrUnknownMessageID, "SBF: unknown message 4001"},
		{"unknown revision", BlockID(GPSRawCAID, 1), nil, 0x2fb1, parser.ErrUnknownMessageID,
			"SBF: unknown message 12209"},
		{"header only", GPSRawCAID, nil, GPSRawCAID, parser.ErrDecodeFailed,
			"SBF: cannot decode message 4017: overrun - expected at least 14 bytes in an SBF block, got 8"},
		{"short", GPSRawCAID, short, GPSRawCAID, parser.ErrDecodeFailed,
			"SBF: cannot decode message 4017: overrun - expected 46 bytes after the time stamp in block 4017, got 38"},
	}

	for _, td := range testData {
		p, s := newTestParser()
		frame, err := EncodeFrame(td.id, td.payload)
		if err != nil {
			t.Fatalf("%s: %v", td.description, err)
		}

		if n := feed(p, frame); n != 1 {
			t.Errorf("%s: want 1 complete block, got %d", td.description, n)
		}
		if len(s.messages) != 0 {
			t.Errorf("%s: unexpected message %v", td.description, s.messages)
		}
		if len(s.errors) != 1 {
			t.Fatalf("%s: want 1 error, got %d", td.description, len(s.errors))
		}
		pe := s.errors[0]
		if !errors.Is(pe, td.wantError) {
			t.Errorf("%s: want %v, got %v", td.description, td.wantError, pe)
		}
		if pe.MessageID != td.wantID {
			t.Errorf("%s: want message ID %d, got %v", td.description, td.wantID, pe.MessageID)
		}
		if pe.Error() != td.wantMessage {
			t.Errorf("%s: want error\n%s\ngot\n%s", td.description, td.wantMessage, pe.Error())
		}
	}
}

// TestRevision checks that a later revision of a block can be registered
// alongside revision 0.
func TestRevision(t *testing.T) {
	p, s := newTestParser()
	id := BlockID(GPSRawCAID, 1)
	p.Register(id, func() parser.Decodable[uint16] {
		return &GPSRawCA{RawNavBits{Header: Header{Revision: 1}}}
	})

	m := GPSRawCA{randomRawNavBits(rand.New(rand.NewSource(1)), GPSRawCAWords)}
	m.Revision = 1
	frame, err := Encode(&m)
	if err != nil {
		t.Fatal(err)
	}

	feed(p, frame)
	feed(p, gpsRawCABlock)

	if len(s.errors) != 0 {
		t.Fatalf("unexpected errors %v", s.errors)
	}
	if len(s.messages) != 2 {
		t.Fatalf("want 2 messages, got %d", len(s.messages))
	}
	if got := s.messages[0].(*GPSRawCA); got.Revision != 1 || got.MessageID() != id {
		t.Errorf("want revision 1, got %d", got.Revision)
	}
	if got := s.messages[1].(*GPSRawCA); got.Revision != 0 || got.MessageID() != GPSRawCAID {
		t.Errorf("want revision 0, got %d", got.Revision)
	}
}

// TestEncodeErrors checks the blocks that can't be encoded.
func TestEncodeErrors(t *testing.T) {
	var testData = []struct {
		description string
		message     Message
		want        string
	}{
		{"too few words", &GPSRawCA{RawNavBits{NAVBits: make([]uint32, 8)}},
			"expected 10 navigation words, got 8"},
		{"too many words", &GEORawL1{RawNavBits{NAVBits: make([]uint32, 10)}},
			"expected 8 navigation words, got 10"},
		{"bad revision", &GALRawINAV{RawNavBits{Header: Header{Revision: 8}, NAVBits: make([]uint32, 8)}},
			"revision 8 - the maximum is 7"},
	}

	for _, td := range testData {
		_, err := Encode(td.message)
		if err == nil || err.Error() != td.want {
			t.Errorf("%s: want error %q, got %v", td.description, td.want, err)
		}
	}

	if _, err := EncodeFrame(GPSRawCAID, make([]byte, MaxFrameLength)); err == nil {
		t.Error("oversize block: expected an error")
	}
}

// TestSatelliteCode checks the SVID numbering.
func TestSatelliteCode(t *testing.T) {
	var testData = []struct {
		svid uint8
		want string
	}{
		{0, ""},
		{1, "G01"},
		{37, "G37"},
		{38, "R01"},
		{61, "R24"},
		{62, ""},
		{63, "R25"},
		{71, "E01"},
		{106, "E36"},
		{110, ""},
		{120, "S20"},
		{141, "C01"},
		{181, "J01"},
		{191, "I01"},
		{198, "S41"},
		{223, "C41"},
		{255, ""},
	}

	for _, td := range testData {
		if got := SatelliteCode(td.svid); got != td.want {
			t.Errorf("svid %d: want %q got %q", td.svid, td.want, got)
		}
	}
}

// TestUnknownTime checks the do-not-use time stamp.
func TestUnknownTime(t *testing.T) {
	h := Header{TOW: TOWDoNotUse, WNc: 2200}
	if !h.Time().IsZero() {
		t.Errorf("want the zero time, got %v", h.Time())
	}
}
