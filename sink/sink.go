/*
Package sink contains consumers of completed frames.

Every type here satisfies the output side of an acquisition controller: a
Publish method receiving a frame that is only valid for the duration of the
call.  Sinks that keep a frame past Publish take a reference with Reserve and
give it back with Release.

Sinks compose: Multi fans a frame out, Throttle limits the rate at which the
next sink sees frames, Bus distributes frames to independent subscribers,
Latest keeps the newest frame for on-demand readers and Stats computes
summary statistics of every frame.
*/
package sink

import (
	"github.com/nasa-jpl/simpeaks/frame"
)

// Sink receives completed frames
type Sink interface {
	Publish(*frame.Buffer)
}

// Func adapts a function to a Sink
type Func func(*frame.Buffer)

// Publish calls f(b)
func (f Func) Publish(b *frame.Buffer) {
	f(b)
}

// Multi publishes to each sink in order.  nil entries are skipped.
type Multi []Sink

// Publish satisfies Sink
func (m Multi) Publish(b *frame.Buffer) {
	for _, s := range m {
		if s != nil {
			s.Publish(b)
		}
	}
}
