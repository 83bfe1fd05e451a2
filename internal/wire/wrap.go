package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ErrMalformed is returned when wrapped data cannot be decoded.
var ErrMalformed = errors.New("malformed data")

const lenSize = 4

// Type classifies the first wrapped element of a payload.
type Type int

const (
	TypeInvalid Type = iota
	TypeInt
	TypeLong
	TypeString
	TypeBytes
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// WrapBytes returns [len][b].
func WrapBytes(b []byte) []byte {
	out := make([]byte, 0, lenSize+len(b))
	out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
	return append(out, b...)
}

// WrapString wraps the UTF-8 bytes of s.
func WrapString(s string) []byte {
	return WrapBytes([]byte(s))
}

// WrapInt wraps a 4-byte big-endian int.
func WrapInt(v int32) []byte {
	return WrapBytes(binary.BigEndian.AppendUint32(nil, uint32(v)))
}

// WrapLong wraps an 8-byte big-endian long.
func WrapLong(v int64) []byte {
	return WrapBytes(binary.BigEndian.AppendUint64(nil, uint64(v)))
}

// WrapBool wraps b as an int 1 or 0.
func WrapBool(b bool) []byte {
	if b {
		return WrapInt(1)
	}
	return WrapInt(0)
}

// Pack wraps every item and wraps the concatenation once more.
func Pack(items [][]byte) []byte {
	var inner []byte
	for _, it := range items {
		inner = append(inner, WrapBytes(it)...)
	}
	return WrapBytes(inner)
}

// Unpack reverses Pack.
func Unpack(b []byte) ([][]byte, error) {
	r := NewReader(b)
	inner, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	return Split(inner)
}

// PackInts packs vs as a list of 4-byte ints.
func PackInts(vs []int32) []byte {
	items := make([][]byte, len(vs))
	for i, v := range vs {
		items[i] = binary.BigEndian.AppendUint32(nil, uint32(v))
	}
	return Pack(items)
}

// UnpackInts reverses PackInts.
func UnpackInts(b []byte) ([]int32, error) {
	items, err := Unpack(b)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(items))
	for i, it := range items {
		if len(it) != 4 {
			return nil, fmt.Errorf("%w: int of %d bytes in list", ErrMalformed, len(it))
		}
		out[i] = int32(binary.BigEndian.Uint32(it))
	}
	return out, nil
}

// Split decodes a run of concatenated wrapped elements.
func Split(b []byte) ([][]byte, error) {
	r := NewReader(b)
	items := make([][]byte, 0)
	for r.Len() > 0 {
		it, err := r.Next()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// NextType peeks at the first wrapped element of b.
//
// Printable UTF-8 is a string, otherwise a 4 or 8 byte element is an int or a
// long and anything else is raw bytes. A truncated element is TypeInvalid.
func NextType(b []byte) Type {
	payload, err := NewReader(b).Next()
	if err != nil {
		return TypeInvalid
	}
	if isPrintable(payload) {
		return TypeString
	}
	switch len(payload) {
	case 4:
		return TypeInt
	case 8:
		return TypeLong
	default:
		return TypeBytes
	}
}

func isPrintable(b []byte) bool {
	if len(b) == 0 || !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// UnwrapString decodes b as exactly one wrapped string.
func UnwrapString(b []byte) (string, error) {
	r := NewReader(b)
	s, err := r.ReadString()
	if err != nil {
		return "", err
	}
	return s, r.expectEnd()
}

// UnwrapInt decodes b as exactly one wrapped int.
func UnwrapInt(b []byte) (int32, error) {
	r := NewReader(b)
	v, err := r.ReadInt()
	if err != nil {
		return 0, err
	}
	return v, r.expectEnd()
}

// UnwrapLong decodes b as exactly one wrapped long.
func UnwrapLong(b []byte) (int64, error) {
	r := NewReader(b)
	v, err := r.ReadLong()
	if err != nil {
		return 0, err
	}
	return v, r.expectEnd()
}

// Buffer accumulates wrapped values.
type Buffer struct {
	b []byte
}

func (w *Buffer) PutBytes(b []byte) *Buffer {
	w.b = append(w.b, WrapBytes(b)...)
	return w
}

func (w *Buffer) PutString(s string) *Buffer {
	w.b = append(w.b, WrapString(s)...)
	return w
}

func (w *Buffer) PutInt(v int32) *Buffer {
	w.b = append(w.b, WrapInt(v)...)
	return w
}

func (w *Buffer) PutLong(v int64) *Buffer {
	w.b = append(w.b, WrapLong(v)...)
	return w
}

func (w *Buffer) PutBool(v bool) *Buffer {
	w.b = append(w.b, WrapBool(v)...)
	return w
}

// PutRaw appends already wrapped data.
func (w *Buffer) PutRaw(b []byte) *Buffer {
	w.b = append(w.b, b...)
	return w
}

// Bytes returns the accumulated data.
func (w *Buffer) Bytes() []byte {
	return w.b
}

// Reader walks wrapped values in order.
type Reader struct {
	b   []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.b) - r.off
}

// Rest returns the unread bytes without consuming them.
func (r *Reader) Rest() []byte {
	return r.b[r.off:]
}

// Next returns the payload of the next wrapped element.
func (r *Reader) Next() ([]byte, error) {
	if r.Len() < lenSize {
		return nil, fmt.Errorf("%w: %d bytes left, need length field", ErrMalformed, r.Len())
	}
	size := int(binary.BigEndian.Uint32(r.b[r.off:]))
	start := r.off + lenSize
	if size < 0 || size > len(r.b)-start {
		return nil, fmt.Errorf("%w: element of %d bytes, %d available", ErrMalformed, size, len(r.b)-start)
	}
	r.off = start + size
	return r.b[start:r.off], nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	return r.Next()
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.Next()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrMalformed)
	}
	return string(b), nil
}

func (r *Reader) ReadInt() (int32, error) {
	b, err := r.Next()
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: int of %d bytes", ErrMalformed, len(b))
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadLong() (int64, error) {
	b, err := r.Next()
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: long of %d bytes", ErrMalformed, len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadInt()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadList reads one packed list.
func (r *Reader) ReadList() ([][]byte, error) {
	b, err := r.Next()
	if err != nil {
		return nil, err
	}
	return Split(b)
}

func (r *Reader) expectEnd() error {
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.Len())
	}
	return nil
}
