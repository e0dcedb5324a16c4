package codec

// FxHash-style 64-bit mix, ported directly since no pack repo imports an
// xxhash/FxHash-equivalent library (rustc_hash's algorithm is public
// domain; this is a stdlib-only reimplementation of it, not a library
// substitute).
const (
	fxSeed = 0x51_7c_c1_b7_27_22_0a_95
)

func fxRotl(x uint64, n uint) uint64 {
	return (x << n) | (x >> (64 - n))
}

func fxAdd(hash, word uint64) uint64 {
	return (fxRotl(hash, 5) ^ word) * fxSeed
}

// HashTile computes a deterministic 64-bit content hash over a gathered
// tile's bytes. Identical content always yields identical output; the
// hash is not cryptographic and exists purely for fast change detection.
func HashTile(data []byte) uint64 {
	var hash uint64
	n := len(data)
	i := 0
	for ; i+8 <= n; i += 8 {
		word := uint64(data[i]) | uint64(data[i+1])<<8 | uint64(data[i+2])<<16 |
			uint64(data[i+3])<<24 | uint64(data[i+4])<<32 | uint64(data[i+5])<<40 |
			uint64(data[i+6])<<48 | uint64(data[i+7])<<56
		hash = fxAdd(hash, word)
	}
	if rem := n - i; rem > 0 {
		var tail uint64
		for j := 0; j < rem; j++ {
			tail |= uint64(data[i+j]) << (8 * uint(j))
		}
		hash = fxAdd(hash, tail)
	}
	return hash
}
