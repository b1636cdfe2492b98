/*
Package frame holds the typed, reference counted buffers that simulated
frames are drawn into, the pool they are allocated from, and FITS encoding.

A Buffer's Data field is one of []int8, []uint8, []int16, []uint16, []int32,
[]uint32, []int64, []uint64, []float32 or []float64, matching its Type.  The
data is row major with Dims = [width] in 1D or [width, height] in 2D.
*/
package frame

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// DataType is the element type of a frame.  The ordinals match the DataType
// parameter and must not be reordered.
type DataType int

const (
	Int8 DataType = iota
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
)

var dtypeNames = [...]string{"Int8", "UInt8", "Int16", "UInt16", "Int32", "UInt32", "Int64", "UInt64", "Float32", "Float64"}

var dtypeSizes = [...]int{1, 1, 2, 2, 4, 4, 8, 8, 4, 8}

// ErrUnknownDataType is generated when a DataType ordinal is out of range
var ErrUnknownDataType = errors.New("unknown data type")

// Valid is true if d is one of the defined data types
func (d DataType) Valid() bool {
	return d >= Int8 && d <= Float64
}

// String returns the name of the type
func (d DataType) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DataType(%d)", int(d))
	}
	return dtypeNames[d]
}

// Size is the number of bytes in one element
func (d DataType) Size() int {
	if !d.Valid() {
		return 0
	}
	return dtypeSizes[d]
}

// DataTypeFromOrdinal converts a DataType parameter value
func DataTypeFromOrdinal(i int) (DataType, error) {
	d := DataType(i)
	if !d.Valid() {
		return d, fmt.Errorf("%w: %d", ErrUnknownDataType, i)
	}
	return d, nil
}

// ParseDataType converts a name such as "UInt16" (case insensitive)
func ParseDataType(s string) (DataType, error) {
	for i, name := range dtypeNames {
		if strings.EqualFold(s, name) {
			return DataType(i), nil
		}
	}
	return Int8, fmt.Errorf("%w: %q", ErrUnknownDataType, s)
}

// Number is the set of element types a frame may hold
type Number interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// makeSlice returns a zeroed slice of n elements of type d
func makeSlice(d DataType, n int) any {
	switch d {
	case Int8:
		return make([]int8, n)
	case UInt8:
		return make([]uint8, n)
	case Int16:
		return make([]int16, n)
	case UInt16:
		return make([]uint16, n)
	case Int32:
		return make([]int32, n)
	case UInt32:
		return make([]uint32, n)
	case Int64:
		return make([]int64, n)
	case UInt64:
		return make([]uint64, n)
	case Float32:
		return make([]float32, n)
	case Float64:
		return make([]float64, n)
	}
	return nil
}

// Buffer is one frame
type Buffer struct {
	// Dims is [width] or [width, height]
	Dims []int

	// Type is the element type of Data
	Type DataType

	// Data is the typed backing slice
	Data any

	// UniqueID is the sequence number of the frame
	UniqueID int

	// TimeStamp is the wall clock time the frame was completed
	TimeStamp time.Time

	// Attributes are free-form metadata carried with the frame
	Attributes map[string]string

	refs int32
	pool *Pool
}

// NewBuffer returns a buffer which does not belong to a pool
func NewBuffer(dims []int, dtype DataType) (*Buffer, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDataType, int(dtype))
	}
	n, err := elements(dims)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		Dims:       append([]int(nil), dims...),
		Type:       dtype,
		Data:       makeSlice(dtype, n),
		Attributes: map[string]string{},
		refs:       1,
	}, nil
}

// ErrBadDims is generated when dims are empty, too long, or not positive
var ErrBadDims = errors.New("frame dimensions must be one or two positive integers")

func elements(dims []int) (int, error) {
	if len(dims) == 0 || len(dims) > 2 {
		return 0, ErrBadDims
	}
	n := 1
	for _, d := range dims {
		if d <= 0 {
			return 0, ErrBadDims
		}
		n *= d
	}
	return n, nil
}

// Width is the length of the first dimension
func (b *Buffer) Width() int {
	return b.Dims[0]
}

// Height is the length of the second dimension, 1 for 1D frames
func (b *Buffer) Height() int {
	if len(b.Dims) < 2 {
		return 1
	}
	return b.Dims[1]
}

// Len is the number of elements
func (b *Buffer) Len() int {
	return b.Width() * b.Height()
}

// Bytes is the size of the data in bytes
func (b *Buffer) Bytes() int {
	return b.Len() * b.Type.Size()
}

// SameShape is true if b has the given dims and type
func (b *Buffer) SameShape(dims []int, dtype DataType) bool {
	if b.Type != dtype || len(b.Dims) != len(dims) {
		return false
	}
	for i := range dims {
		if b.Dims[i] != dims[i] {
			return false
		}
	}
	return true
}

// Refs is the current reference count
func (b *Buffer) Refs() int {
	return int(atomic.LoadInt32(&b.refs))
}

// Shared is true if anyone besides the caller holds a reference
func (b *Buffer) Shared() bool {
	return b.Refs() > 1
}

// Reserve takes an additional reference.  Every Reserve must be paired with
// a Release.
func (b *Buffer) Reserve() {
	atomic.AddInt32(&b.refs, 1)
}

// Release drops a reference.  The last release returns the buffer to its pool.
func (b *Buffer) Release() {
	n := atomic.AddInt32(&b.refs, -1)
	if n == 0 && b.pool != nil {
		b.pool.put(b)
	}
}

// Zero sets every element to zero
func (b *Buffer) Zero() {
	switch d := b.Data.(type) {
	case []int8:
		clear(d)
	case []uint8:
		clear(d)
	case []int16:
		clear(d)
	case []uint16:
		clear(d)
	case []int32:
		clear(d)
	case []uint32:
		clear(d)
	case []int64:
		clear(d)
	case []uint64:
		clear(d)
	case []float32:
		clear(d)
	case []float64:
		clear(d)
	}
}

// Float64s returns a copy of the data widened to float64
func (b *Buffer) Float64s() []float64 {
	switch d := b.Data.(type) {
	case []int8:
		return widen(d)
	case []uint8:
		return widen(d)
	case []int16:
		return widen(d)
	case []uint16:
		return widen(d)
	case []int32:
		return widen(d)
	case []uint32:
		return widen(d)
	case []int64:
		return widen(d)
	case []uint64:
		return widen(d)
	case []float32:
		return widen(d)
	case []float64:
		return append([]float64(nil), d...)
	}
	return nil
}

func widen[T Number](s []T) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// Slice returns the typed data of b, or false if b does not hold a []T
func Slice[T Number](b *Buffer) ([]T, bool) {
	s, ok := b.Data.([]T)
	return s, ok
}

// copyMeta copies everything but the data and reference count from src
func (b *Buffer) copyMeta(src *Buffer) {
	b.UniqueID = src.UniqueID
	b.TimeStamp = src.TimeStamp
	for k, v := range src.Attributes {
		b.Attributes[k] = v
	}
}
