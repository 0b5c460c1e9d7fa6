package parser

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
)

// MessageHandler receives decoded messages.  Returning an error reports a
// PublishFailed event but doesn't stop the message reaching other handlers.
type MessageHandler func(m Message) error

// ErrorHandler receives parse errors.
type ErrorHandler func(err *ParseError)

// Dispatcher does the work that is common to all frame decoders once a
// frame has been assembled and checked: it looks up the message ID, decodes
// the frame, publishes the result and counts what happened.  Parsers embed
// it.
//
// Handlers are called synchronously, in the order that they were added,
// before the parser's Read returns.
type Dispatcher[ID cmp.Ordered] struct {
	Registry[ID]

	protocolID      string
	counters        *Counters
	logger          *slog.Logger
	messageHandlers []MessageHandler
	errorHandlers   []ErrorHandler
}

// NewDispatcher creates a dispatcher for the given protocol.  If counters is
// nil the dispatcher keeps its own.  If logger is nil nothing is logged.
func NewDispatcher[ID cmp.Ordered](protocolID string, counters *Counters, logger *slog.Logger) *Dispatcher[ID] {
	if counters == nil {
		counters = &Counters{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := Dispatcher[ID]{
		protocolID: protocolID,
		counters:   counters,
		logger:     logger.With("protocol", protocolID),
	}

	return &d
}

// ProtocolID returns the ID of the protocol.
func (d *Dispatcher[ID]) ProtocolID() string {
	return d.protocolID
}

// Counters returns the counters that the dispatcher updates.
func (d *Dispatcher[ID]) Counters() *Counters {
	return d.counters
}

// Logger returns the dispatcher's logger.
func (d *Dispatcher[ID]) Logger() *slog.Logger {
	return d.logger
}

// OnMessage adds a handler for decoded messages.
func (d *Dispatcher[ID]) OnMessage(h MessageHandler) {
	d.messageHandlers = append(d.messageHandlers, h)
}

// OnError adds a handler for parse errors.
func (d *Dispatcher[ID]) OnError(h ErrorHandler) {
	d.errorHandlers = append(d.errorHandlers, h)
}

// Dispatch decodes a frame that has passed its integrity check and publishes
// the resulting message.  It returns the message, which may be non-nil even
// when the error is not, if a subscriber failed.  Any error is also published
// to the error handlers.
func (d *Dispatcher[ID]) Dispatch(id ID, frame []byte) (Message, error) {
	d.counters.Frames.Add(1)

	constructor, ok := d.Lookup(id)
	if !ok {
		return nil, d.report(UnknownMessageID, id, nil, "unknown message %v", id)
	}

	message := constructor()
	if err := message.Deserialize(frame); err != nil {
		return nil, d.report(DecodeFailed, id, err, "cannot decode message %v", id)
	}

	d.counters.Messages.Add(1)

	if err := d.Publish(message); err != nil {
		return message, d.report(PublishFailed, id, err, "cannot publish message %v", id)
	}

	return message, nil
}

// Publish sends a message to the message handlers.  Every handler sees the
// message.  The first error returned by a handler is returned.
func (d *Dispatcher[ID]) Publish(m Message) error {
	var firstErr error
	for _, h := range d.messageHandlers {
		if err := h(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Fail reports a frame that was rejected before dispatch, for example
// because its checksum was wrong.  It counts the error and publishes it.
func (d *Dispatcher[ID]) Fail(kind ErrorKind, format string, args ...any) *ParseError {
	return d.report(kind, nil, nil, format, args...)
}

// report builds a ParseError, counts it, logs it and sends it to the error
// handlers.
func (d *Dispatcher[ID]) report(kind ErrorKind, id any, cause error, format string, args ...any) *ParseError {
	pe := ParseError{
		ProtocolID: d.protocolID,
		Kind:       kind,
		MessageID:  id,
		Message:    fmt.Sprintf(format, args...),
		Err:        cause,
	}

	d.counters.count(kind)
	d.logger.Debug("parse error", "kind", kind.String(), "error", pe.Error())

	for _, h := range d.errorHandlers {
		h(&pe)
	}

	return &pe
}
