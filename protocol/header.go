// Package protocol implements the wire format for tile-fragment
// datagrams: a fixed 18-byte big-endian header followed by a
// compressed (or partial, if fragmented) tile payload. One UDP
// datagram carries exactly one message; there is no stream framing.
package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/framegrace/einkmirror/geometry"
)

// HeaderSize is the fixed on-wire size of a Header, in bytes.
const HeaderSize = geometry.HeaderSize

// Header is the fixed-layout prefix of every tile-fragment datagram:
// frame epoch, number of changed tiles in the frame, tile grid position,
// the tile's total compressed size, and this fragment's byte offset
// within that compressed payload.
type Header struct {
	Frame  uint32
	Chunks uint32
	X      uint8
	Y      uint8
	Size   uint32
	Offset uint32
}

var (
	ErrShortHeader  = errors.New("protocol: datagram shorter than header size")
	ErrShortPayload = errors.New("protocol: payload length does not match declared length")
	ErrBadTile      = errors.New("protocol: tile coordinate out of range")
	ErrBadRange     = errors.New("protocol: fragment offset/size out of range")
)

// Encode writes the header's on-wire big-endian representation.
func (h Header) Encode() [HeaderSize]byte {
	var out [HeaderSize]byte
	binary.BigEndian.PutUint32(out[0:4], h.Frame)
	binary.BigEndian.PutUint32(out[4:8], h.Chunks)
	out[8] = h.X
	out[9] = h.Y
	binary.BigEndian.PutUint32(out[10:14], h.Size)
	binary.BigEndian.PutUint32(out[14:18], h.Offset)
	return out
}

// DecodeHeader parses the header prefix of a datagram and returns the
// remaining payload bytes. It validates the structural invariants a
// well-formed fragment must satisfy: the tile coordinate must lie
// within the grid, and offset+len(payload) must not exceed the
// declared tile size.
func DecodeHeader(datagram []byte) (Header, []byte, error) {
	if len(datagram) < HeaderSize {
		return Header{}, nil, ErrShortHeader
	}
	h := Header{
		Frame:  binary.BigEndian.Uint32(datagram[0:4]),
		Chunks: binary.BigEndian.Uint32(datagram[4:8]),
		X:      datagram[8],
		Y:      datagram[9],
		Size:   binary.BigEndian.Uint32(datagram[10:14]),
		Offset: binary.BigEndian.Uint32(datagram[14:18]),
	}
	payload := datagram[HeaderSize:]

	if int(h.X) >= geometry.TilesX || int(h.Y) >= geometry.TilesY {
		return Header{}, nil, ErrBadTile
	}
	if uint64(h.Offset)+uint64(len(payload)) > uint64(h.Size) {
		return Header{}, nil, ErrBadRange
	}
	return h, payload, nil
}
