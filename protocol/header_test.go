package protocol

import (
	"bytes"
	"testing"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Frame: 42, Chunks: 3, X: 2, Y: 5, Size: 100, Offset: 40}
	wire := h.Encode()

	datagram := append(wire[:], []byte("payloadbytes")...)
	got, payload, err := DecodeHeader(datagram)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Fatalf("expected %+v, got %+v", h, got)
	}
	if !bytes.Equal(payload, []byte("payloadbytes")) {
		t.Fatalf("unexpected payload %q", payload)
	}
}

func TestDecodeHeaderRejectsShortDatagram(t *testing.T) {
	if _, _, err := DecodeHeader(make([]byte, HeaderSize-1)); err != ErrShortHeader {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestDecodeHeaderRejectsOutOfRangeTile(t *testing.T) {
	h := Header{X: 8, Y: 0, Size: 10}
	wire := h.Encode()
	if _, _, err := DecodeHeader(wire[:]); err != ErrBadTile {
		t.Fatalf("expected ErrBadTile, got %v", err)
	}
}

func TestDecodeHeaderRejectsOversizedFragment(t *testing.T) {
	h := Header{X: 0, Y: 0, Size: 4, Offset: 2}
	wire := h.Encode()
	datagram := append(wire[:], []byte("xyz")...) // offset(2)+len(3) > size(4)
	if _, _, err := DecodeHeader(datagram); err != ErrBadRange {
		t.Fatalf("expected ErrBadRange, got %v", err)
	}
}

func TestFragmentTileSplitsDeterministically(t *testing.T) {
	encoded := bytes.Repeat([]byte{0x5}, 3000)
	frags := FragmentTile(1, 1, 0, 0, encoded)
	if len(frags) != FragmentCount(len(encoded)) {
		t.Fatalf("expected %d fragments, got %d", FragmentCount(len(encoded)), len(frags))
	}
	var reassembled []byte
	for _, f := range frags {
		reassembled = append(reassembled, f.Payload...)
	}
	if !bytes.Equal(reassembled, encoded) {
		t.Fatalf("reassembled payload mismatch")
	}
}

func TestFragmentTileEmptyPayloadYieldsOneFragment(t *testing.T) {
	frags := FragmentTile(0, 1, 0, 0, nil)
	if len(frags) != 1 {
		t.Fatalf("expected exactly one fragment for an empty tile, got %d", len(frags))
	}
}
