// Package capture implements the parallel framebuffer capture/encode
// engine: each frame, Workers goroutines positionally read disjoint
// bands of the framebuffer device and encode their owned tiles,
// joining before the frame is considered complete.
package capture

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/framegrace/einkmirror/codec"
	"github.com/framegrace/einkmirror/geometry"
)

// Engine owns the framebuffer snapshot buffer and the per-tile encode
// state across frames. It is not safe for concurrent use by multiple
// callers of Capture; a single capture loop owns it.
type Engine struct {
	fd          int
	framebuffer []byte
	chunks      [geometry.NumTiles]*codec.Chunk
	updated     [geometry.NumTiles]bool
}

// New constructs a capture engine reading from the given framebuffer
// device file descriptor.
func New(fd int) *Engine {
	e := &Engine{
		fd:          fd,
		framebuffer: make([]byte, geometry.DisplaySize),
	}
	for i := range e.chunks {
		tx, ty := geometry.TileCoord(i)
		e.chunks[i] = codec.NewChunk(uint8(tx), uint8(ty))
	}
	return e
}

// Chunk returns the tile state for a flat tile index, valid only after
// a completed Capture call.
func (e *Engine) Chunk(index int) *codec.Chunk { return e.chunks[index] }

const (
	bandBytes = geometry.DisplaySize / geometry.Workers
	bandTiles = geometry.NumTiles / geometry.Workers
)

// Capture reads one full framebuffer snapshot across Workers goroutines
// and re-encodes every tile, returning the flat indices of tiles whose
// content changed since the previous call. A read failure from any
// worker is fatal and aborts the whole frame; all workers still join
// before Capture returns, matching the scoped-fan-out shape the
// original capture loop uses. Each worker writes only to its own band
// of the framebuffer, its own slice of chunks, and its own slice of the
// updated flags, so no tile is ever touched by two goroutines.
func (e *Engine) Capture() ([]int, error) {
	eg, _ := errgroup.WithContext(context.Background())

	for n := 0; n < geometry.Workers; n++ {
		n := n
		eg.Go(func() error {
			offset := n * bandBytes
			band := e.framebuffer[offset : offset+bandBytes]

			read := 0
			for read < bandBytes {
				m, err := unix.Pread(e.fd, band[read:], int64(offset+read))
				if err != nil {
					return fmt.Errorf("capture: pread at offset %d: %w", offset+read, err)
				}
				if m == 0 {
					return fmt.Errorf("capture: pread at offset %d returned 0 bytes (unexpected EOF)", offset+read)
				}
				read += m
			}

			firstTile := n * bandTiles
			for i := firstTile; i < firstTile+bandTiles; i++ {
				e.updated[i] = e.chunks[i].Encode(e.framebuffer)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	changed := make([]int, 0, geometry.NumTiles)
	for i, did := range e.updated {
		if did {
			changed = append(changed, i)
		}
	}
	return changed, nil
}
