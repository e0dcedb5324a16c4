// Package transmit implements the batched datagram transmitter: it
// sends a frame's tile fragments (built by protocol.FragmentTile) in
// vectorized sendmmsg batches, and paces frame capture to a fixed rate
// using an advancing absolute deadline.
package transmit

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/framegrace/einkmirror/protocol"
)

// Transmitter owns the descriptor arrays sendmmsg needs and reuses them
// across frames, reallocating only when a frame has more fragments than
// the arrays can hold, before they are populated, since the kernel call holds
// pointers into them for the duration of the syscall; growing any of
// these slices mid-batch would invalidate those pointers.
type Transmitter struct {
	fd int

	headers [][protocol.HeaderSize]byte
	iovecs  []unix.Iovec
	msgs    []unix.Mmsghdr
}

// New constructs a transmitter over an already-connected UDP socket
// file descriptor.
func New(fd int) *Transmitter {
	return &Transmitter{fd: fd}
}

// reserve grows the transmitter's descriptor arrays to hold at least n
// fragments, without shrinking them back down between frames.
func (t *Transmitter) reserve(n int) {
	if cap(t.headers) < n {
		t.headers = make([][protocol.HeaderSize]byte, n)
	} else {
		t.headers = t.headers[:n]
	}
	if cap(t.iovecs) < n*2 {
		t.iovecs = make([]unix.Iovec, n*2)
	} else {
		t.iovecs = t.iovecs[:n*2]
	}
	if cap(t.msgs) < n {
		t.msgs = make([]unix.Mmsghdr, n)
	} else {
		t.msgs = t.msgs[:n]
	}
}

// Send transmits every fragment of the frame's changed tiles, one
// datagram each, in one or more batched sendmmsg calls, retrying from the
// cursor position whenever the kernel accepts fewer messages than
// requested.
func (t *Transmitter) Send(fragmentsPerTile [][]protocol.Fragment) error {
	total := 0
	for _, frags := range fragmentsPerTile {
		total += len(frags)
	}
	if total == 0 {
		return nil
	}
	t.reserve(total)

	i := 0
	for _, frags := range fragmentsPerTile {
		for _, f := range frags {
			t.headers[i] = f.Header.Encode()

			t.iovecs[i*2] = unix.Iovec{Base: &t.headers[i][0]}
			t.iovecs[i*2].SetLen(protocol.HeaderSize)

			if len(f.Payload) > 0 {
				t.iovecs[i*2+1] = unix.Iovec{Base: &f.Payload[0]}
			} else {
				t.iovecs[i*2+1] = unix.Iovec{}
			}
			t.iovecs[i*2+1].SetLen(len(f.Payload))

			t.msgs[i] = unix.Mmsghdr{}
			t.msgs[i].Hdr.Iov = &t.iovecs[i*2]
			t.msgs[i].Hdr.SetIovlen(2)

			i++
		}
	}

	sent := 0
	for sent != total {
		n, err := unix.Sendmmsg(t.fd, t.msgs[sent:], unix.MSG_NOSIGNAL)
		if err != nil {
			return fmt.Errorf("transmit: sendmmsg: %w", err)
		}
		if n <= 0 {
			return fmt.Errorf("transmit: sendmmsg made no progress")
		}
		sent += n
	}
	return nil
}
