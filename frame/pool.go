package frame

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// ErrPoolExhausted is generated when an allocation would exceed the pool's
// buffer count or memory limit
var ErrPoolExhausted = errors.New("frame pool exhausted")

// PoolStats is a snapshot of a pool's bookkeeping
type PoolStats struct {
	// Buffers is the number of buffers that exist, free or in use
	Buffers int `json:"buffers"`

	// Free is the number of buffers waiting to be reused
	Free int `json:"free"`

	// MemoryBytes is the data size of every buffer that exists
	MemoryBytes int `json:"memoryBytes"`

	// Allocs counts successful Alloc and Copy calls
	Allocs uint64 `json:"allocs"`

	// Reused counts allocations satisfied from the free list
	Reused uint64 `json:"reused"`

	// Failures counts allocations refused for exceeding a limit
	Failures uint64 `json:"failures"`
}

// Pool hands out Buffers and takes them back when their last reference is
// released.  A zero limit means unlimited.  Pool is safe for concurrent use.
type Pool struct {
	// MaxBuffers limits the number of buffers that exist at once
	MaxBuffers int

	// MaxMemory limits the total data size in bytes
	MaxMemory int

	mu    sync.Mutex
	free  []*Buffer
	stats PoolStats
}

// NewPool returns a new pool with the given limits
func NewPool(maxBuffers, maxMemory int) *Pool {
	return &Pool{MaxBuffers: maxBuffers, MaxMemory: maxMemory}
}

// Alloc returns a zeroed buffer with one reference
func (p *Pool) Alloc(dims []int, dtype DataType) (*Buffer, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDataType, int(dtype))
	}
	n, err := elements(dims)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, b := range p.free {
		if b.SameShape(dims, dtype) {
			p.free = append(p.free[:i], p.free[i+1:]...)
			b.refs = 1
			b.UniqueID = 0
			b.TimeStamp = time.Time{}
			b.Attributes = map[string]string{}
			b.Zero()
			p.stats.Allocs++
			p.stats.Reused++
			return b, nil
		}
	}

	size := n * dtype.Size()
	// drop cached buffers of the wrong shape until the new one fits
	for len(p.free) > 0 && !p.fits(size) {
		p.evict()
	}
	if !p.fits(size) {
		p.stats.Failures++
		return nil, fmt.Errorf("%w: %d buffers, %d bytes in use, %d bytes requested",
			ErrPoolExhausted, p.stats.Buffers, p.stats.MemoryBytes, size)
	}
	b := &Buffer{
		Dims:       append([]int(nil), dims...),
		Type:       dtype,
		Data:       makeSlice(dtype, n),
		Attributes: map[string]string{},
		refs:       1,
		pool:       p,
	}
	p.stats.Buffers++
	p.stats.MemoryBytes += size
	p.stats.Allocs++
	return b, nil
}

func (p *Pool) fits(size int) bool {
	if p.MaxBuffers > 0 && p.stats.Buffers+1 > p.MaxBuffers {
		return false
	}
	if p.MaxMemory > 0 && p.stats.MemoryBytes+size > p.MaxMemory {
		return false
	}
	return true
}

// evict forgets the oldest free buffer.  Caller holds the lock.
func (p *Pool) evict() {
	b := p.free[0]
	p.free = p.free[1:]
	p.stats.Buffers--
	p.stats.MemoryBytes -= b.Bytes()
	b.pool = nil
}

// put returns a buffer with no references to the free list
func (p *Pool) put(b *Buffer) {
	p.mu.Lock()
	p.free = append(p.free, b)
	p.mu.Unlock()
}

// Release drops the caller's reference to b
func (p *Pool) Release(b *Buffer) {
	if b != nil {
		b.Release()
	}
}

// Copy allocates a new buffer holding the same data and metadata as b
func (p *Pool) Copy(b *Buffer) (*Buffer, error) {
	out, err := p.Alloc(b.Dims, b.Type)
	if err != nil {
		return nil, err
	}
	reflect.Copy(reflect.ValueOf(out.Data), reflect.ValueOf(b.Data))
	out.copyMeta(b)
	return out, nil
}

// Stats returns a snapshot of the pool's bookkeeping
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Free = len(p.free)
	return s
}
