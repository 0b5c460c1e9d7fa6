package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testMessage is a message whose body is a single byte.
type testMessage struct {
	id    uint16
	Value byte
}

func (m *testMessage) ProtocolID() string { return "test" }
func (m *testMessage) Name() string       { return "test message" }
func (m *testMessage) MessageID() uint16  { return m.id }

func (m *testMessage) Deserialize(frame []byte) error {
	if len(frame) < 1 {
		return errors.New("empty frame")
	}
	m.Value = frame[0]
	return nil
}

func newTestConstructor(id uint16) Constructor[uint16] {
	return func() Decodable[uint16] { return &testMessage{id: id} }
}

// TestRegister checks that the registry files constructors by ID and
// returns the IDs in order.
func TestRegister(t *testing.T) {
	var r Registry[uint16]
	r.Add(newTestConstructor(7))
	r.Register(3, newTestConstructor(3))
	r.Add(newTestConstructor(5))

	want := []uint16{3, 5, 7}
	if diff := cmp.Diff(want, r.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}

	if _, ok := r.Lookup(5); !ok {
		t.Error("expected to find message 5")
	}
	if _, ok := r.Lookup(4); ok {
		t.Error("expected not to find message 4")
	}
}

// TestRegisterPanics checks that registration conflicts fail fast.
func TestRegisterPanics(t *testing.T) {

	var testData = []struct {
		description string
		register    func(r *Registry[uint16])
	}{
		{"duplicate", func(r *Registry[uint16]) {
			r.Add(newTestConstructor(1))
			r.Add(newTestConstructor(1))
		}},
		{"wrong ID", func(r *Registry[uint16]) {
			r.Register(2, newTestConstructor(3))
		}},
		{"nil constructor", func(r *Registry[uint16]) {
			r.Register(2, nil)
		}},
	}

	for _, td := range testData {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected a panic", td.description)
				}
			}()
			var r Registry[uint16]
			td.register(&r)
		}()
	}
}

// TestDispatch checks the successful path and the three kinds of error that
// Dispatch can report.
func TestDispatch(t *testing.T) {

	var testData = []struct {
		description string
		id          uint16
		frame       []byte
		failPublish bool
		wantKind    ErrorKind
		wantSent    error
		wantValue   byte
		wantStats   Stats
	}{
		{"success", 1, []byte{42}, false, 0, nil, 42,
			Stats{Frames: 1, Messages: 1}},
		{"unknown", 9, []byte{42}, false, UnknownMessageID, ErrUnknownMessageID, 0,
			Stats{Frames: 1, UnknownIDs: 1}},
		{"decode failure", 1, []byte{}, false, DecodeFailed, ErrDecodeFailed, 0,
			Stats{Frames: 1, DecodeErrors: 1}},
		{"publish failure", 1, []byte{7}, true, PublishFailed, ErrPublishFailed, 7,
			Stats{Frames: 1, Messages: 1, PublishErrors: 1}},
	}

	for _, td := range testData {
		var counters Counters
		d := NewDispatcher[uint16]("test", &counters, nil)
		d.Add(newTestConstructor(1))

		var gotMessages []Message
		var gotErrors []*ParseError
		d.OnMessage(func(m Message) error {
			gotMessages = append(gotMessages, m)
			if td.failPublish {
				return errors.New("subscriber failed")
			}
			return nil
		})
		d.OnError(func(pe *ParseError) { gotErrors = append(gotErrors, pe) })

		message, err := d.Dispatch(td.id, td.frame)

		if td.wantSent == nil {
			if err != nil {
				t.Errorf("%s: unexpected error %v", td.description, err)
			}
			if len(gotErrors) != 0 {
				t.Errorf("%s: unexpected error events %v", td.description, gotErrors)
			}
		} else {
			if !errors.Is(err, td.wantSent) {
				t.Errorf("%s: want %v got %v", td.description, td.wantSent, err)
			}
			if len(gotErrors) != 1 {
				t.Errorf("%s: want 1 error event, got %d", td.description, len(gotErrors))
			} else if gotErrors[0].Kind != td.wantKind {
				t.Errorf("%s: want kind %v got %v", td.description, td.wantKind, gotErrors[0].Kind)
			}
		}

		if td.wantValue != 0 {
			if message == nil {
				t.Errorf("%s: expected a message", td.description)
			} else if got := message.(*testMessage).Value; got != td.wantValue {
				t.Errorf("%s: want value %d got %d", td.description, td.wantValue, got)
			}
			if len(gotMessages) != 1 {
				t.Errorf("%s: want 1 published message, got %d", td.description, len(gotMessages))
			}
		} else if len(gotMessages) != 0 {
			t.Errorf("%s: expected no published messages", td.description)
		}

		if diff := cmp.Diff(td.wantStats, counters.Snapshot()); diff != "" {
			t.Errorf("%s: stats mismatch (-want +got):\n%s", td.description, diff)
		}
	}
}

// TestHandlerOrder checks that handlers see events in the order they were
// added and that a failing handler doesn't hide the message from the rest.
func TestHandlerOrder(t *testing.T) {
	d := NewDispatcher[uint16]("test", nil, nil)
	d.Add(newTestConstructor(1))

	var calls []string
	d.OnMessage(func(m Message) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	d.OnMessage(func(m Message) error {
		calls = append(calls, "second")
		return nil
	})
	d.OnError(func(pe *ParseError) { calls = append(calls, "error "+pe.Kind.String()) })

	d.Dispatch(1, []byte{1})

	want := []string{"first", "second", "error publish failed"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

// TestFail checks that integrity failures are counted and published.
func TestFail(t *testing.T) {
	d := NewDispatcher[uint8]("RTCMv2", nil, nil)

	var got *ParseError
	d.OnError(func(pe *ParseError) { got = pe })

	d.Fail(ParityMismatch, "parity error in word %d", 3)
	d.Fail(CRCMismatch, "crc error")

	if got == nil {
		t.Fatal("expected an error event")
	}
	if !errors.Is(got, ErrCRCMismatch) {
		t.Errorf("want a crc mismatch, got %v", got)
	}
	if errors.Is(got, ErrParityMismatch) {
		t.Error("a crc mismatch should not match the parity sentinel")
	}

	const wantMessage = "RTCMv2: crc error"
	if got.Error() != wantMessage {
		t.Errorf("want %q got %q", wantMessage, got.Error())
	}

	want := Stats{ParityErrors: 1, CRCErrors: 1}
	if diff := cmp.Diff(want, d.Counters().Snapshot()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

// TestParseErrorUnwrap checks that the cause of a decode failure is
// reachable through errors.Is.
func TestParseErrorUnwrap(t *testing.T) {
	cause := errors.New("bad field")
	pe := &ParseError{ProtocolID: "SBF", Kind: DecodeFailed, Message: "cannot decode message 4017", Err: cause}

	if !errors.Is(pe, cause) {
		t.Error("expected the cause to be found")
	}
	if !errors.Is(pe, ErrDecodeFailed) {
		t.Error("expected the kind to be found")
	}

	const want = "SBF: cannot decode message 4017: bad field"
	if pe.Error() != want {
		t.Errorf("want %q got %q", want, pe.Error())
	}
}

func TestStatsString(t *testing.T) {
	s := Stats{Frames: 3, Messages: 2, CRCErrors: 1, UnknownIDs: 1}
	const want = "frames 3, messages 2, crc errors 1, parity errors 0, unknown ids 1, decode errors 0, publish errors 0"
	if s.String() != want {
		t.Errorf("want %q got %q", want, s.String())
	}
	if s.Errors() != 2 {
		t.Errorf("want 2 errors got %d", s.Errors())
	}
}
