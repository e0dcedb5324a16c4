package render

import (
	"testing"

	"github.com/framegrace/einkmirror/geometry"
)

func TestPublisherDecodeTileWritesFront(t *testing.T) {
	p := NewPublisher(1)

	// A stored (incompressible-marker) block: a 0xFF marker byte followed
	// by the tile's raw pixel bytes verbatim, matching what codec's
	// adapter produces for data it declines to compress.
	encoded := make([]byte, 1+geometry.TileSize)
	encoded[0] = 0xFF
	for i := 1; i < len(encoded); i++ {
		encoded[i] = 0x42
	}
	scratch := make([]byte, geometry.TileSize)
	if err := p.DecodeTile(1, 2, encoded, scratch); err != nil {
		t.Fatalf("DecodeTile: %v", err)
	}
	p.Publish([]TileCoord{{X: 1, Y: 2}})

	out := make([]byte, geometry.DisplaySize)
	p.Front().CopyInto(out)
	start := geometry.RowStart(1, 2, 0)
	if out[start] != 0x42 {
		t.Fatalf("expected decoded tile content in front buffer, got %#x at %d", out[start], start)
	}

	select {
	case changed := <-p.Changes():
		if len(changed) != 1 || changed[0] != (TileCoord{X: 1, Y: 2}) {
			t.Fatalf("unexpected notification %+v", changed)
		}
	default:
		t.Fatalf("expected a notification on the changes channel")
	}
}

func TestPublisherPublishDropsWhenChannelFull(t *testing.T) {
	p := NewPublisher(1)
	p.Publish([]TileCoord{{X: 0, Y: 0}})
	p.Publish([]TileCoord{{X: 1, Y: 1}}) // channel still full, should drop
	if p.Dropped() != 1 {
		t.Fatalf("expected 1 dropped notification, got %d", p.Dropped())
	}
}
