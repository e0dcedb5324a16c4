// Package render implements the hand-off between the receiver's
// reassembly loop and an out-of-process GPU renderer: a mutex-guarded
// whole-screen pixel buffer plus a one-way notification channel naming
// which tiles just changed. The renderer never receives the lock
// itself — only copies or read-only views — so it can take as long as
// it likes to submit a frame without blocking the receiver.
package render

import (
	"sync"

	"github.com/framegrace/einkmirror/codec"
	"github.com/framegrace/einkmirror/geometry"
)

// TileCoord identifies one changed tile by its grid position.
type TileCoord struct {
	X, Y uint8
}

// FrameBuffer is a mutex-guarded whole-screen pixel buffer.
type FrameBuffer struct {
	mu   sync.RWMutex
	data []byte
}

func newFrameBuffer() *FrameBuffer {
	return &FrameBuffer{data: make([]byte, geometry.DisplaySize)}
}

// CopyInto copies the current buffer contents into dst, which must be
// at least geometry.DisplaySize bytes. The lock is held only for the
// duration of the copy.
func (f *FrameBuffer) CopyInto(dst []byte) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	copy(dst, f.data)
}

// Publisher owns the shared front framebuffer and the changed-tile
// notification channel. The receiver decodes each completed tile
// straight into the front buffer via DecodeTile, so a tile the sender
// doesn't retransmit in a given epoch simply keeps whatever content the
// previous frame left there; a renderer goroutine calls Front and
// Changes.
type Publisher struct {
	front *FrameBuffer

	changes chan []TileCoord
	dropped uint64
	mu      sync.Mutex
}

// NewPublisher constructs a publisher with an empty front buffer and a
// notification channel of the given capacity. Publish never blocks: a
// notification that finds the channel full (with capacity 0, one that
// finds no reader waiting) is discarded and counted in Dropped.
// Capacity 1 (the common case) lets the receiver keep going without
// waiting on a slow renderer, at the cost of losing the changed-tile
// lists of frames that complete while an earlier one is still queued.
func NewPublisher(channelCapacity int) *Publisher {
	return &Publisher{
		front:   newFrameBuffer(),
		changes: make(chan []TileCoord, channelCapacity),
	}
}

// Front returns the shared front buffer for the renderer to read from.
func (p *Publisher) Front() *FrameBuffer { return p.front }

// Changes returns the channel the renderer should drain for
// changed-tile notifications.
func (p *Publisher) Changes() <-chan []TileCoord { return p.changes }

// Dropped returns the number of notifications that were discarded
// because the channel was full when Publish tried to send.
func (p *Publisher) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// DecodeTile decompresses one completed tile's wire payload directly
// into the shared front buffer, holding the buffer's write lock only
// for the duration of the decode. Tiles not touched this epoch are
// never written, so their last-decoded content carries forward
// unchanged.
func (p *Publisher) DecodeTile(x, y uint8, data, scratch []byte) error {
	p.front.mu.Lock()
	defer p.front.mu.Unlock()
	return codec.DecodeInto(p.front.data, x, y, data, scratch)
}

// Publish notifies the renderer that the given tiles have all been
// decoded into the front buffer for the current epoch.
func (p *Publisher) Publish(changed []TileCoord) {
	select {
	case p.changes <- changed:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
	}
}
