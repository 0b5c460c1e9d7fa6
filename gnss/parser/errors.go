package parser

import (
	"errors"
	"fmt"
)

// ErrorKind says which stage of handling a frame went wrong.
type ErrorKind int

const (
	// CRCMismatch means that the checksum of a complete frame was wrong.
	CRCMismatch ErrorKind = iota + 1

	// ParityMismatch means that an RTCM version 2 word failed its parity
	// check.
	ParityMismatch

	// UnknownMessageID means that the frame was sound but no message type
	// is registered for its ID.
	UnknownMessageID

	// DecodeFailed means that the registered message type could not make
	// sense of the frame.
	DecodeFailed

	// PublishFailed means that a message subscriber returned an error.
	PublishFailed
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrCRCMismatch      = errors.New("crc mismatch")
	ErrParityMismatch   = errors.New("parity mismatch")
	ErrUnknownMessageID = errors.New("unknown message id")
	ErrDecodeFailed     = errors.New("decode failed")
	ErrPublishFailed    = errors.New("publish failed")
)

// sentinel returns the sentinel error for the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case CRCMismatch:
		return ErrCRCMismatch
	case ParityMismatch:
		return ErrParityMismatch
	case UnknownMessageID:
		return ErrUnknownMessageID
	case DecodeFailed:
		return ErrDecodeFailed
	case PublishFailed:
		return ErrPublishFailed
	default:
		return nil
	}
}

func (k ErrorKind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// ParseError describes a frame that couldn't be turned into a message.  It's
// delivered to error subscribers, never returned from Read.
type ParseError struct {
	// ProtocolID is the ID of the protocol of the parser that produced
	// the error.
	ProtocolID string

	// Kind says what went wrong.
	Kind ErrorKind

	// MessageID is the ID of the message in the frame, or nil if the
	// frame was rejected before the ID could be read.
	MessageID any

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (pe *ParseError) Error() string {
	s := pe.ProtocolID + ": " + pe.Message
	if pe.Err != nil {
		s += ": " + pe.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (pe *ParseError) Unwrap() error {
	return pe.Err
}

// Is reports whether target is the sentinel error for the kind of pe, so
// that errors.Is(err, ErrCRCMismatch) works.
func (pe *ParseError) Is(target error) bool {
	return target != nil && target == pe.Kind.sentinel()
}
