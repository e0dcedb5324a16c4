package receiver

import (
	"testing"

	"github.com/framegrace/einkmirror/codec"
	"github.com/framegrace/einkmirror/geometry"
	"github.com/framegrace/einkmirror/protocol"
	"github.com/framegrace/einkmirror/render"
)

func encodeTile(t *testing.T, x, y uint8, fill byte) []byte {
	t.Helper()
	fb := make([]byte, geometry.DisplaySize)
	tx, ty := int(x), int(y)
	for row := 0; row < geometry.TileHeight; row++ {
		start := geometry.RowStart(tx, ty, row)
		for i := 0; i < geometry.TileWidth; i++ {
			fb[start+i] = fill
		}
	}
	c := codec.NewChunk(x, y)
	if !c.Encode(fb) {
		t.Fatalf("expected first encode to report changed")
	}
	out := make([]byte, c.Size())
	copy(out, c.Encoded())
	return out
}

func TestReceiverSingleTileFrameCompletes(t *testing.T) {
	pub := render.NewPublisher(1)
	r := New(pub)

	encoded := encodeTile(t, 3, 4, 0xAB)
	frags := protocol.FragmentTile(1, 1, 3, 4, encoded)

	for _, f := range frags {
		wire := f.Header.Encode()
		datagram := append(append([]byte{}, wire[:]...), f.Payload...)
		if err := r.Handle(datagram); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	select {
	case changed := <-pub.Changes():
		if len(changed) != 1 || changed[0] != (render.TileCoord{X: 3, Y: 4}) {
			t.Fatalf("unexpected changed set: %+v", changed)
		}
	default:
		t.Fatalf("expected a frame-complete notification")
	}

	out := make([]byte, geometry.DisplaySize)
	pub.Front().CopyInto(out)
	start := geometry.RowStart(3, 4, 0)
	if out[start] != 0xAB {
		t.Fatalf("expected decoded tile pixel 0xAB, got %#x", out[start])
	}
}

func TestReceiverIgnoresStaleFrame(t *testing.T) {
	pub := render.NewPublisher(1)
	r := New(pub)

	encodedNew := encodeTile(t, 0, 0, 0x10)
	for _, f := range protocol.FragmentTile(5, 1, 0, 0, encodedNew) {
		wire := f.Header.Encode()
		datagram := append(append([]byte{}, wire[:]...), f.Payload...)
		if err := r.Handle(datagram); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	<-pub.Changes()

	// A fragment from an older epoch must be silently dropped, not
	// cause a second completion.
	stale := encodeTile(t, 0, 0, 0x20)
	for _, f := range protocol.FragmentTile(4, 1, 0, 0, stale) {
		wire := f.Header.Encode()
		datagram := append(append([]byte{}, wire[:]...), f.Payload...)
		if err := r.Handle(datagram); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	select {
	case changed := <-pub.Changes():
		t.Fatalf("expected no notification from stale-epoch fragments, got %+v", changed)
	default:
	}
}

func TestReceiverSkippedFramePreservesUnchangedTile(t *testing.T) {
	pub := render.NewPublisher(1)
	r := New(pub)

	// Frame 7 changes tiles A (0,0) and B (1,0).
	a7 := encodeTile(t, 0, 0, 0xA7)
	b7 := encodeTile(t, 1, 0, 0xB7)
	for _, tile := range []struct {
		x, y    uint8
		encoded []byte
	}{{0, 0, a7}, {1, 0, b7}} {
		for _, f := range protocol.FragmentTile(7, 2, tile.x, tile.y, tile.encoded) {
			wire := f.Header.Encode()
			datagram := append(append([]byte{}, wire[:]...), f.Payload...)
			if err := r.Handle(datagram); err != nil {
				t.Fatalf("Handle frame 7: %v", err)
			}
		}
	}
	<-pub.Changes()

	// Frame 9 (skipping 8) changes only tile A. Tile B is never
	// retransmitted, so its frame-7 content must survive untouched.
	a9 := encodeTile(t, 0, 0, 0xA9)
	for _, f := range protocol.FragmentTile(9, 1, 0, 0, a9) {
		wire := f.Header.Encode()
		datagram := append(append([]byte{}, wire[:]...), f.Payload...)
		if err := r.Handle(datagram); err != nil {
			t.Fatalf("Handle frame 9: %v", err)
		}
	}

	select {
	case changed := <-pub.Changes():
		if len(changed) != 1 || changed[0] != (render.TileCoord{X: 0, Y: 0}) {
			t.Fatalf("unexpected changed set for frame 9: %+v", changed)
		}
	default:
		t.Fatalf("expected a frame-9 completion notification")
	}

	out := make([]byte, geometry.DisplaySize)
	pub.Front().CopyInto(out)

	aStart := geometry.RowStart(0, 0, 0)
	if out[aStart] != 0xA9 {
		t.Fatalf("expected tile A updated to 0xA9, got %#x", out[aStart])
	}
	bStart := geometry.RowStart(1, 0, 0)
	if out[bStart] != 0xB7 {
		t.Fatalf("expected tile B to still hold its frame-7 content 0xB7, got %#x", out[bStart])
	}
}

func TestReceiverDuplicateFragmentIgnored(t *testing.T) {
	pub := render.NewPublisher(1)
	r := New(pub)

	encoded := encodeTile(t, 1, 1, 0x55)
	frags := protocol.FragmentTile(1, 1, 1, 1, encoded)
	f := frags[0]
	wire := f.Header.Encode()
	datagram := append(append([]byte{}, wire[:]...), f.Payload...)

	if err := r.Handle(datagram); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	select {
	case changed := <-pub.Changes():
		if len(changed) != 1 {
			t.Fatalf("unexpected changed set: %+v", changed)
		}
	default:
		t.Fatalf("expected completion notification after the first send")
	}

	if err := r.Handle(datagram); err != nil {
		t.Fatalf("Handle duplicate: %v", err)
	}
	// The tile is already complete; resending the same datagram must
	// not trigger a second completion notification.
	select {
	case changed := <-pub.Changes():
		t.Fatalf("expected no second completion from a duplicated fragment, got %+v", changed)
	default:
	}
}
