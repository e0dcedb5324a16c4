package codec

import "github.com/framegrace/einkmirror/geometry"

// Chunk tracks one tile's encode state across frames: its last known
// content hash and its most recently compressed bytes. A chunk that has
// never been encoded has size 0, and Encode always reports such a chunk
// changed (even for an all-zero tile, whose hash is also 0), so every
// tile is reported changed once at startup.
type Chunk struct {
	X, Y    uint8
	hash    uint64
	size    int
	encoded []byte
	gather  []byte
}

// NewChunk constructs a chunk for grid position (x, y), pre-sizing its
// buffers to their worst case so no later allocation is needed.
func NewChunk(x, y uint8) *Chunk {
	return &Chunk{
		X:       x,
		Y:       y,
		encoded: make([]byte, WorstCaseSize(geometry.TileSize)),
		gather:  make([]byte, geometry.TileSize),
	}
}

// Size returns the number of valid bytes in Encoded().
func (c *Chunk) Size() int { return c.size }

// Encoded returns the chunk's most recently compressed bytes. Valid
// only up to Size(); the backing array is reused across frames.
func (c *Chunk) Encoded() []byte { return c.encoded[:c.size] }

// Hash returns the tile's last computed content hash.
func (c *Chunk) Hash() uint64 { return c.hash }

// Encode gathers the tile's pixels out of a full framebuffer snapshot,
// hashes them, and — only if the hash differs from the last call —
// compresses them into the chunk's internal buffer. It reports whether
// the tile changed. framebuffer must be geometry.DisplaySize bytes.
func (c *Chunk) Encode(framebuffer []byte) bool {
	tx, ty := int(c.X), int(c.Y)
	for row := 0; row < geometry.TileHeight; row++ {
		start := geometry.RowStart(tx, ty, row)
		copy(c.gather[row*geometry.TileWidth:(row+1)*geometry.TileWidth], framebuffer[start:start+geometry.TileWidth])
	}

	hash := HashTile(c.gather)
	if hash == c.hash && c.size != 0 {
		return false
	}
	c.hash = hash

	n, err := CompressInto(c.gather, c.encoded)
	if err != nil {
		// The adapter contract guarantees WorstCaseSize is always
		// sufficient; a failure here means a buffer was mis-sized, a
		// programming error rather than a runtime condition to recover
		// from.
		panic(err)
	}
	c.size = n
	return true
}

// DecodeInto decompresses data (a chunk's wire payload) and writes it
// into the matching tile region of a full DisplaySize framebuffer.
func DecodeInto(framebuffer []byte, x, y uint8, data []byte, scratch []byte) error {
	n, err := DecompressInto(data, scratch[:geometry.TileSize])
	if err != nil {
		return err
	}
	if n != geometry.TileSize {
		return errShortTile
	}
	tx, ty := int(x), int(y)
	for row := 0; row < geometry.TileHeight; row++ {
		start := geometry.RowStart(tx, ty, row)
		copy(framebuffer[start:start+geometry.TileWidth], scratch[row*geometry.TileWidth:(row+1)*geometry.TileWidth])
	}
	return nil
}
