package sink

import (
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/nasa-jpl/simpeaks/frame"
)

// Throttle forwards at most a fixed number of frames per second to Next and
// drops the rest
type Throttle struct {
	Next Sink

	limiter *rate.Limiter
	dropped uint64
}

// NewThrottle returns a throttle passing perSecond frames a second.  A
// non-positive rate passes every frame.
func NewThrottle(next Sink, perSecond float64) *Throttle {
	lim := rate.Inf
	if perSecond > 0 {
		lim = rate.Limit(perSecond)
	}
	return &Throttle{Next: next, limiter: rate.NewLimiter(lim, 1)}
}

// Publish satisfies Sink
func (t *Throttle) Publish(b *frame.Buffer) {
	if !t.limiter.Allow() {
		atomic.AddUint64(&t.dropped, 1)
		return
	}
	t.Next.Publish(b)
}

// Dropped is the number of frames not forwarded
func (t *Throttle) Dropped() uint64 {
	return atomic.LoadUint64(&t.dropped)
}
