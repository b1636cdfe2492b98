package sink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nasa-jpl/simpeaks/frame"
)

// DropPolicy defines how the bus handles frames when a subscriber cannot keep up
type DropPolicy int

const (
	// DropNew drops incoming frames if the subscriber's channel is full
	DropNew DropPolicy = iota

	// DropOld always accepts new frames, replacing an unread one
	DropOld
)

var (
	// ErrBusClosed is returned when subscribing to a closed bus
	ErrBusClosed = errors.New("bus is closed")

	// ErrSubscriberExists is returned when an id is already subscribed
	ErrSubscriberExists = errors.New("subscriber already exists")

	// ErrSubscriberNotFound is returned when an id is not subscribed
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrNilChannel is returned when subscribing with a nil channel
	ErrNilChannel = errors.New("channel cannot be nil")

	// ErrReceiverClosed is returned by Receive once the subscription ends
	ErrReceiverClosed = errors.New("receiver is closed")
)

// SubscriberStats tracks frame distribution to one subscriber
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// BusStats tracks frame distribution to every subscriber
type BusStats struct {
	TotalPublished uint64                     `json:"totalPublished"`
	TotalSent      uint64                     `json:"totalSent"`
	TotalDropped   uint64                     `json:"totalDropped"`
	Subscribers    map[string]SubscriberStats `json:"subscribers"`
}

type subscriber struct {
	policy DropPolicy
	stats  SubscriberStats
	ch     chan<- *frame.Buffer
	recv   *Receiver
}

// Bus distributes frames to subscribers without ever blocking the
// publisher.  Every delivered frame carries a reference owned by the
// subscriber, which must Release it when done.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string]*subscriber
	published uint64
	closed    bool
}

// NewBus returns an empty bus
func NewBus() *Bus {
	return &Bus{subs: map[string]*subscriber{}}
}

// Subscribe delivers frames to ch with the DropNew policy
func (b *Bus) Subscribe(id string, ch chan<- *frame.Buffer) error {
	if ch == nil {
		return ErrNilChannel
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subs[id]; exists {
		return ErrSubscriberExists
	}
	b.subs[id] = &subscriber{policy: DropNew, ch: ch}
	return nil
}

// SubscribeDropOld returns a receiver which always holds the newest frame
func (b *Bus) SubscribeDropOld(id string) (*Receiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	if _, exists := b.subs[id]; exists {
		return nil, ErrSubscriberExists
	}
	r := newReceiver()
	b.subs[id] = &subscriber{policy: DropOld, recv: r}
	return r, nil
}

// Unsubscribe removes a subscriber.  A DropOld receiver is closed.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, exists := b.subs[id]
	if !exists {
		return ErrSubscriberNotFound
	}
	if s.recv != nil {
		s.recv.close()
	}
	delete(b.subs, id)
	return nil
}

// Publish satisfies Sink
func (b *Bus) Publish(f *frame.Buffer) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	atomic.AddUint64(&b.published, 1)
	for _, s := range b.subs {
		switch s.policy {
		case DropNew:
			f.Reserve()
			select {
			case s.ch <- f:
				atomic.AddUint64(&s.stats.Sent, 1)
			default:
				f.Release()
				atomic.AddUint64(&s.stats.Dropped, 1)
			}
		case DropOld:
			if s.recv.set(f) {
				atomic.AddUint64(&s.stats.Dropped, 1)
			}
			atomic.AddUint64(&s.stats.Sent, 1)
		}
	}
}

// Stats returns a snapshot of the distribution counters
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := BusStats{
		TotalPublished: atomic.LoadUint64(&b.published),
		Subscribers:    make(map[string]SubscriberStats, len(b.subs)),
	}
	for id, s := range b.subs {
		st := SubscriberStats{
			Sent:    atomic.LoadUint64(&s.stats.Sent),
			Dropped: atomic.LoadUint64(&s.stats.Dropped),
		}
		out.Subscribers[id] = st
		out.TotalSent += st.Sent
		out.TotalDropped += st.Dropped
	}
	return out
}

// Close stops distribution and closes every receiver.  Channels passed to
// Subscribe belong to their subscribers and are not closed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		if s.recv != nil {
			s.recv.close()
		}
	}
	b.subs = nil
}

// Receiver holds the newest frame published to a DropOld subscription
type Receiver struct {
	mu     sync.Mutex
	buf    *frame.Buffer
	closed bool
	ready  chan struct{}
	done   chan struct{}
}

func newReceiver() *Receiver {
	return &Receiver{ready: make(chan struct{}, 1), done: make(chan struct{})}
}

// set replaces the held frame and reports whether an unread one was dropped
func (r *Receiver) set(f *frame.Buffer) bool {
	f.Reserve()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		f.Release()
		return true
	}
	old := r.buf
	r.buf = f
	r.mu.Unlock()
	select {
	case r.ready <- struct{}{}:
	default:
	}
	if old != nil {
		old.Release()
		return true
	}
	return false
}

// TryReceive takes the held frame without blocking.  The caller owns the
// returned reference.
func (r *Receiver) TryReceive() (*frame.Buffer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.buf
	r.buf = nil
	return f, f != nil
}

// Receive takes the held frame, waiting for one if there is none.  The
// caller owns the returned reference.
func (r *Receiver) Receive(ctx context.Context) (*frame.Buffer, error) {
	for {
		if f, ok := r.TryReceive(); ok {
			return f, nil
		}
		select {
		case <-r.ready:
		case <-r.done:
			return nil, ErrReceiverClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Receiver) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	f := r.buf
	r.buf = nil
	r.mu.Unlock()
	if f != nil {
		f.Release()
	}
	close(r.done)
}
