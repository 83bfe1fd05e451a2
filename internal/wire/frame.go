// Package wire implements the framed binary transport spoken between the
// logbook app and the server, plus the primitive value wrapping used inside
// frame payloads.
//
// A frame on the socket looks like:
//
//	[ "JOOZDLOG" ][ 4-byte big-endian length ][ payload ]
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Marker opens every frame.
const Marker = "JOOZDLOG"

// HeaderSize is the size of marker plus length field.
const HeaderSize = len(Marker) + 4

// preallocSize caps what is allocated up front for a frame body.
const preallocSize = 64 << 10

// ErrFraming reports a malformed, oversized or truncated frame.
// It is always fatal for the connection.
var ErrFraming = errors.New("framing error")

// Codec reads and writes frames, enforcing a maximum payload size.
type Codec struct {
	maxSize int64
}

// NewCodec returns a Codec refusing payloads larger than maxSize bytes.
// A maxSize <= 0 disables the check.
func NewCodec(maxSize int64) *Codec {
	return &Codec{maxSize: maxSize}
}

// EncodeFrame prepends marker and length to payload.
func EncodeFrame(payload []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(payload))
	out = append(out, Marker...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// ReadFrame blocks until one complete frame has been read from r and returns
// its payload.
//
// A clean io.EOF before the first header byte is returned as is, so callers
// can tell an orderly disconnect from a broken frame. Every other short read,
// a wrong marker, or a declared length above the limit yields an error
// wrapping ErrFraming.
func (c *Codec) ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, header)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: reading header: %w", ErrFraming, err)
	}

	if string(header[:len(Marker)]) != Marker {
		return nil, fmt.Errorf("%w: bad marker %q", ErrFraming, header[:len(Marker)])
	}

	size := int64(binary.BigEndian.Uint32(header[len(Marker):]))
	if c.maxSize > 0 && size > c.maxSize {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit %d", ErrFraming, size, c.maxSize)
	}

	if size <= preallocSize {
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: reading body of %d bytes: %w", ErrFraming, size, err)
		}
		return payload, nil
	}

	// Large bodies grow with the bytes that actually arrive, not with the
	// declared length.
	var buf bytes.Buffer
	buf.Grow(preallocSize)
	if n, err := io.CopyN(&buf, r, size); err != nil {
		return nil, fmt.Errorf("%w: reading body of %d bytes, got %d: %w", ErrFraming, size, n, err)
	}
	return buf.Bytes(), nil
}

// WriteFrame writes payload as a single frame.
func (c *Codec) WriteFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(EncodeFrame(payload))
	return err
}
