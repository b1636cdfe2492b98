package sink

import (
	"sync"

	"github.com/nasa-jpl/simpeaks/frame"
)

// Latest keeps the newest published frame for readers that poll, such as
// the HTTP image route
type Latest struct {
	mu  sync.Mutex
	buf *frame.Buffer
}

// Publish satisfies Sink.  The previous frame is released.
func (l *Latest) Publish(b *frame.Buffer) {
	b.Reserve()
	l.mu.Lock()
	old := l.buf
	l.buf = b
	l.mu.Unlock()
	if old != nil {
		old.Release()
	}
}

// Get returns the newest frame, or nil if none has been published.  The
// caller must Release a non-nil result.
func (l *Latest) Get() *frame.Buffer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf != nil {
		l.buf.Reserve()
	}
	return l.buf
}

// Close releases the held frame
func (l *Latest) Close() {
	l.mu.Lock()
	old := l.buf
	l.buf = nil
	l.mu.Unlock()
	if old != nil {
		old.Release()
	}
}
