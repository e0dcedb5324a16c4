package transmit

import (
	"time"

	"github.com/framegrace/einkmirror/geometry"
)

// Pacer advances an absolute deadline once per frame and sleeps until
// it, rather than sleeping a fixed relative duration each iteration —
// the latter accumulates drift from the time spent capturing and
// sending a frame.
type Pacer struct {
	interval time.Duration
	next     time.Time
}

// NewPacer constructs a pacer targeting geometry.MaxFPS frames per
// second, with its first deadline starting now.
func NewPacer() *Pacer {
	return &Pacer{
		interval: time.Second / geometry.MaxFPS,
		next:     time.Now(),
	}
}

// Wait blocks until the current deadline, then advances it by one
// frame interval.
func (p *Pacer) Wait() {
	time.Sleep(time.Until(p.next))
	p.next = p.next.Add(p.interval)
}
