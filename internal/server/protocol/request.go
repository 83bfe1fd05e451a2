package protocol

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

// ErrNotAKeyword is returned for frames whose first value is not a string.
var ErrNotAKeyword = errors.New("first value is not a keyword")

// Request is one decoded request frame. Payload is everything after the
// keyword.
type Request struct {
	Kind    Kind
	Keyword string
	Payload []byte
}

// ParseRequest splits a frame payload into keyword and data. An unknown
// keyword is not an error; it yields KindUnknown.
func ParseRequest(frame []byte) (Request, error) {
	if wire.NextType(frame) != wire.TypeString {
		return Request{}, ErrNotAKeyword
	}
	r := wire.NewReader(frame)
	kw, err := r.ReadString()
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrNotAKeyword, err)
	}
	return Request{Kind: KindOf(kw), Keyword: kw, Payload: r.Rest()}, nil
}

// Encode builds the frame payload for a request. Clients and tests use it.
func (r Request) Encode() []byte {
	kw := r.Keyword
	if kw == "" {
		kw = r.Kind.Keyword()
	}
	return append(wire.WrapString(kw), r.Payload...)
}
