package protocol

import "github.com/framegrace/einkmirror/geometry"

// Fragment is one (header, payload) pair ready to be written onto the
// wire as a single datagram. Payload is a view into the caller's
// buffer; it must not be mutated or outlive that buffer's next reuse.
type Fragment struct {
	Header  Header
	Payload []byte
}

// FragmentCount reports how many fragments a compressed tile of
// encodedSize bytes will split into.
func FragmentCount(encodedSize int) int {
	if encodedSize == 0 {
		return 1
	}
	return (encodedSize + geometry.MaxFragmentPayload - 1) / geometry.MaxFragmentPayload
}

// FragmentTile splits a tile's compressed bytes into the deterministic
// sequence of wire fragments for one frame. chunks is the total number
// of changed tiles in this frame, embedded in every fragment's header
// so the receiver knows how many tiles to expect before it can
// consider the frame complete.
func FragmentTile(frame uint32, chunks uint32, x, y uint8, encoded []byte) []Fragment {
	size := uint32(len(encoded))
	out := make([]Fragment, 0, FragmentCount(len(encoded)))

	offset := uint32(0)
	for offset < size || (size == 0 && offset == 0) {
		end := offset + geometry.MaxFragmentPayload
		if end > size {
			end = size
		}
		out = append(out, Fragment{
			Header: Header{
				Frame:  frame,
				Chunks: chunks,
				X:      x,
				Y:      y,
				Size:   size,
				Offset: offset,
			},
			Payload: encoded[offset:end],
		})
		if size == 0 {
			break
		}
		offset = end
	}
	return out
}
