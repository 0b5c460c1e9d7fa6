// The connection package feeds a byte stream to a set of protocol parsers.
// A receiver may send several protocols over the same serial line, so every
// byte is offered to each parser in turn.  When one of them completes a
// frame, all of them are reset so that none is left holding a false start
// made from the bytes of that frame.
//
// A Connection has a single owner.  Read and Run must not be called
// concurrently, but the counters may be read from any goroutine.
package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/dolmen-go/contextio"

	"github.com/goblimey/go-gnssparser/gnss/parser"
)

// DefaultBufferSize is the size of the chunks that Run reads.
const DefaultBufferSize = 4096

// Connection multiplexes one byte stream over several parsers.
type Connection struct {
	parsers []parser.Parser
	logger  *slog.Logger

	// found counts the frames completed by each parser.
	found    []atomic.Uint64
	received atomic.Uint64

	// BufferSize is the size of the chunks that Run reads.
	BufferSize int
}

// New creates a Connection feeding the given parsers, which are tried in
// the order given.
func New(logger *slog.Logger, parsers ...parser.Parser) *Connection {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := Connection{
		parsers:    parsers,
		logger:     logger,
		found:      make([]atomic.Uint64, len(parsers)),
		BufferSize: DefaultBufferSize,
	}
	return &c
}

// Parsers returns the parsers in the order that they are tried.
func (c *Connection) Parsers() []parser.Parser {
	return c.parsers
}

// OnMessage adds a message handler to every parser.
func (c *Connection) OnMessage(h parser.MessageHandler) {
	for _, p := range c.parsers {
		p.OnMessage(h)
	}
}

// OnError adds an error handler to every parser.
func (c *Connection) OnError(h parser.ErrorHandler) {
	for _, p := range c.parsers {
		p.OnError(h)
	}
}

// Read offers one byte to each parser in turn.  It stops at the first
// parser that completes a frame and then resets them all.  It returns true
// if a frame was completed.
func (c *Connection) Read(b byte) bool {
	c.received.Add(1)

	for i, p := range c.parsers {
		if p.Read(b) {
			c.found[i].Add(1)
			c.Reset()
			return true
		}
	}
	return false
}

// Write feeds the bytes to Read, so that a Connection can be the target of
// io.Copy.  It never fails.
func (c *Connection) Write(buf []byte) (int, error) {
	for _, b := range buf {
		c.Read(b)
	}
	return len(buf), nil
}

// Reset resets all of the parsers.
func (c *Connection) Reset() {
	for _, p := range c.parsers {
		p.Reset()
	}
}

// Run reads r until it's exhausted or ctx is cancelled, feeding the bytes
// to the parsers.  It returns nil at end of file and the context's error if
// it was cancelled.
func (c *Connection) Run(ctx context.Context, r io.Reader) error {
	size := c.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	buf := make([]byte, size)

	reader := contextio.NewReader(ctx, r)
	for {
		n, err := reader.Read(buf)
		c.Write(buf[:n])

		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			c.logger.Debug("end of input", "received", c.Received())
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("connection: read failed - %w", err)
	}
}

// Received returns the number of bytes read so far.
func (c *Connection) Received() uint64 {
	return c.received.Load()
}

// Found returns the number of frames completed by each parser, indexed by
// protocol ID.
func (c *Connection) Found() map[string]uint64 {
	result := make(map[string]uint64, len(c.parsers))
	for i, p := range c.parsers {
		result[p.ProtocolID()] += c.found[i].Load()
	}
	return result
}
