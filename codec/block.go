// Package codec implements the per-tile content hashing, the LZ4 block
// codec adapter, and the Chunk model used to detect and encode changed
// screen tiles before they are fragmented onto the wire.
package codec

import (
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// incompressibleMarker prefixes a stored (uncompressed) payload so
// DecompressInto can tell it apart from an lz4-compressed one. lz4's
// block API returns (0, nil) from CompressBlock when it declines to
// compress a block, rather than guaranteeing compression always shrinks
// the input; storing the bytes verbatim keeps compress/decompress a
// total round-trip for every possible tile, matching the codec
// adapter's contract.
const incompressibleMarker = 0xFF

// compressors hands out reusable lz4.Compressor values. A Compressor
// keeps its hash table between calls and must not be used by two
// goroutines at once; capture workers call CompressInto concurrently.
var compressors = sync.Pool{New: func() any { return new(lz4.Compressor) }}

// WorstCaseSize returns the maximum number of bytes CompressInto could
// ever write for an input of n bytes, including the one-byte marker
// this adapter prefixes onto every block.
func WorstCaseSize(n int) int {
	bound := lz4.CompressBlockBound(n)
	if bound < n {
		bound = n
	}
	return bound + 1
}

// CompressInto compresses src into dst, returning the number of bytes
// written. dst must be at least WorstCaseSize(len(src)) bytes.
func CompressInto(src, dst []byte) (int, error) {
	if len(dst) < 1 {
		return 0, fmt.Errorf("codec: destination buffer too small")
	}
	c := compressors.Get().(*lz4.Compressor)
	n, err := c.CompressBlock(src, dst[1:])
	compressors.Put(c)
	if err != nil {
		return 0, fmt.Errorf("codec: compress: %w", err)
	}
	if n == 0 || n >= len(src) {
		// Incompressible, or the compressed form didn't actually shrink
		// the data: store verbatim.
		if len(dst) < len(src)+1 {
			return 0, fmt.Errorf("codec: destination buffer too small for stored block")
		}
		dst[0] = incompressibleMarker
		copy(dst[1:1+len(src)], src)
		return len(src) + 1, nil
	}
	dst[0] = 0
	return n + 1, nil
}

// DecompressInto decompresses src into dst, returning the number of
// bytes written. dst must be exactly the original uncompressed size.
func DecompressInto(src, dst []byte) (int, error) {
	if len(src) < 1 {
		return 0, fmt.Errorf("codec: source buffer too small")
	}
	if src[0] == incompressibleMarker {
		n := copy(dst, src[1:])
		return n, nil
	}
	n, err := lz4.UncompressBlock(src[1:], dst)
	if err != nil {
		return 0, fmt.Errorf("codec: decompress: %w", err)
	}
	return n, nil
}
