// The parser package contains the pieces shared by every frame decoder: the
// message registry, the dispatcher that turns a checked frame into a typed
// message, the event lists that deliver messages and errors to subscribers
// and the counters that record what happened.
//
// A frame decoder embeds a *Dispatcher and calls Dispatch once it has
// assembled a frame and checked its integrity.  Everything that goes wrong
// after that point is reported as a *ParseError event.  Nothing is returned
// to the code that feeds the decoder its bytes.
package parser

import "cmp"

// Message is a decoded message.  Each protocol package extends it with the
// message ID and the serialiser for that protocol.
type Message interface {
	// ProtocolID returns the ID of the protocol that carried the
	// message, for example "RTCMv3".
	ProtocolID() string

	// Name returns a short human-readable name for the message type.
	Name() string
}

// Decodable is a message that can be created empty by a Constructor and then
// filled in from a frame.
type Decodable[ID cmp.Ordered] interface {
	Message

	// MessageID returns the ID that the registry files the message
	// under.  It must be correct for a freshly constructed value.
	MessageID() ID

	// Deserialize fills in the message from a complete frame, including
	// any header and trailer.  The frame is the parser's working buffer,
	// so the message must copy any slice that it keeps.
	Deserialize(frame []byte) error
}

// Constructor creates an empty message ready to be deserialised.
type Constructor[ID cmp.Ordered] func() Decodable[ID]

// Parser is a frame decoder for one protocol.  It consumes a byte stream one
// byte at a time and publishes what it finds through its event lists.
//
// A Parser is not safe for concurrent use.  All calls must come from the
// goroutine that reads the stream.
type Parser interface {
	// ProtocolID returns the ID of the protocol, for example "SBF".
	ProtocolID() string

	// Read consumes one byte.  It returns true if the byte completed a
	// frame that passed its integrity check and was dispatched, whatever
	// the outcome of decoding it.
	Read(b byte) bool

	// Reset discards any partial frame and starts searching for the next
	// one.
	Reset()

	// OnMessage adds a handler for decoded messages.
	OnMessage(h MessageHandler)

	// OnError adds a handler for parse errors.
	OnError(h ErrorHandler)
}
