package receiver

import "github.com/framegrace/einkmirror/geometry"

// rangeKey identifies one placed fragment by its exact (offset, length)
// pair, mirroring the original reassembler's exact-range-equality dedup
// (a HashSet of byte ranges) rather than a merged interval tree —
// sufficient since a well-behaved sender always re-sends the same
// fixed offsets for a given tile and frame.
type rangeKey struct {
	offset, length uint32
}

// tileSlot accumulates one tile's fragments for the frame epoch it was
// last reset for.
type tileSlot struct {
	frame    uint32
	size     uint32
	received uint32
	placed   map[rangeKey]struct{}
	buf      []byte
	complete bool
}

func newTileSlot() *tileSlot {
	return &tileSlot{
		buf: make([]byte, 0, 2*geometry.TileSize),
	}
}

// resetFor prepares the slot to accumulate a tile of the given
// declared size for a new frame epoch.
func (s *tileSlot) resetFor(frame, size uint32) {
	s.frame = frame
	s.size = size
	s.received = 0
	s.complete = false
	if cap(s.buf) < int(size) {
		s.buf = make([]byte, size)
	} else {
		s.buf = s.buf[:size]
	}
	if s.placed == nil {
		s.placed = make(map[rangeKey]struct{})
	} else {
		clear(s.placed)
	}
}

// place records one fragment's payload at its declared offset. It
// returns false if this exact (offset, length) pair was already
// placed — a duplicate datagram, silently ignored.
func (s *tileSlot) place(offset uint32, payload []byte) bool {
	key := rangeKey{offset: offset, length: uint32(len(payload))}
	if _, ok := s.placed[key]; ok {
		return false
	}
	s.placed[key] = struct{}{}
	copy(s.buf[offset:offset+uint32(len(payload))], payload)
	s.received += uint32(len(payload))
	return true
}

// done reports whether every declared byte of the tile has arrived.
func (s *tileSlot) done() bool {
	return s.received == s.size
}
