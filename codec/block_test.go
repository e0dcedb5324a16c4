package codec

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := [][]byte{
		bytes.Repeat([]byte{0xAA}, 4096),
		make([]byte, 1024),
	}
	r := rand.New(rand.NewSource(1))
	noisy := make([]byte, 4096)
	r.Read(noisy)
	cases = append(cases, noisy)

	for _, src := range cases {
		dst := make([]byte, WorstCaseSize(len(src)))
		n, err := CompressInto(src, dst)
		if err != nil {
			t.Fatalf("CompressInto: %v", err)
		}
		out := make([]byte, len(src))
		m, err := DecompressInto(dst[:n], out)
		if err != nil {
			t.Fatalf("DecompressInto: %v", err)
		}
		if m != len(src) {
			t.Fatalf("expected %d decompressed bytes, got %d", len(src), m)
		}
		if !bytes.Equal(src, out) {
			t.Fatalf("round trip mismatch")
		}
	}
}
