// Package receiver implements the reassembly state machine: it takes
// raw incoming datagrams, places their payloads into per-tile
// accumulators keyed by frame epoch, decodes a tile as soon as all of
// its bytes have arrived, and publishes a completed frame once every
// tile the sender announced for that epoch has been decoded.
package receiver

import (
	"github.com/framegrace/einkmirror/geometry"
	"github.com/framegrace/einkmirror/protocol"
	"github.com/framegrace/einkmirror/render"
)

// Receiver is not safe for concurrent use; a single datagram-reading
// goroutine should own it. It publishes completed frames through a
// render.Publisher, which is itself safe to share with a renderer
// goroutine.
type Receiver struct {
	pub *render.Publisher

	frame          uint32
	haveFrame      bool
	expectedChunks uint32
	completed      uint32

	slots   [geometry.NumTiles]*tileSlot
	scratch []byte

	changed []render.TileCoord
}

// New constructs a receiver that publishes completed frames to pub.
func New(pub *render.Publisher) *Receiver {
	r := &Receiver{
		pub:     pub,
		scratch: make([]byte, geometry.TileSize),
	}
	for i := range r.slots {
		r.slots[i] = newTileSlot()
	}
	return r
}

// Handle processes one received datagram. Stale or duplicate fragments
// and out-of-order arrivals are silently ignored per the wire
// protocol's loss-tolerance contract. Handle returns an error only for
// a malformed datagram, one whose header fails to decode or validate;
// that datagram is dropped and callers log it as a transient error.
func (r *Receiver) Handle(datagram []byte) error {
	h, payload, err := protocol.DecodeHeader(datagram)
	if err != nil {
		return err
	}

	if r.haveFrame && h.Frame < r.frame {
		return nil
	}
	if !r.haveFrame || h.Frame > r.frame {
		r.beginFrame(h.Frame, h.Chunks)
	}

	slot := r.slots[geometry.TileIndex(int(h.X), int(h.Y))]
	// A slot that has never been reset (placed == nil) still carries
	// the zero frame number, so it must also be reset for epoch 0.
	if slot.frame != r.frame || slot.placed == nil {
		slot.resetFor(r.frame, h.Size)
	}
	if slot.size != h.Size {
		// A mid-tile resend that disagrees with the size already
		// committed to this epoch is not something a correct sender
		// produces; treat it as a stale/duplicate fragment instead of
		// corrupting the accumulator.
		return nil
	}

	if !slot.place(h.Offset, payload) {
		return nil
	}
	if !slot.done() || slot.complete {
		return nil
	}

	if err := r.pub.DecodeTile(h.X, h.Y, slot.buf, r.scratch); err != nil {
		return nil
	}
	slot.complete = true
	r.completed++
	r.changed = append(r.changed, render.TileCoord{X: h.X, Y: h.Y})

	if r.completed == r.expectedChunks {
		r.pub.Publish(r.changed)
		r.endFrame()
	}
	return nil
}

// beginFrame advances the epoch. Any tiles mid-flight for the old
// epoch are abandoned — they simply never complete, matching the
// sender's stateless fire-and-forget retransmission model.
func (r *Receiver) beginFrame(frame, chunks uint32) {
	r.frame = frame
	r.haveFrame = true
	r.expectedChunks = chunks
	r.completed = 0
	r.changed = r.changed[:0]
}

// endFrame clears per-frame bookkeeping after the frame's changed-tile
// list has been published,
// without advancing the epoch — the next strictly greater frame number
// observed by Handle does that.
func (r *Receiver) endFrame() {
	r.completed = 0
	r.expectedChunks = 0
	r.changed = nil
}
