package frame

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/google/go-cmp/cmp"
)

func ExampleDataTypeFromOrdinal() {
	d, _ := DataTypeFromOrdinal(3)
	fmt.Println(d, d.Size())
	// Output: UInt16 2
}

func TestDataTypeOrdinalsAreStable(t *testing.T) {
	want := []string{"Int8", "UInt8", "Int16", "UInt16", "Int32", "UInt32", "Int64", "UInt64", "Float32", "Float64"}
	for i, name := range want {
		d, err := DataTypeFromOrdinal(i)
		if err != nil {
			t.Fatal(err)
		}
		if d.String() != name {
			t.Errorf("expected ordinal %d to be %s, got %s", i, name, d)
		}
	}
	if _, err := DataTypeFromOrdinal(10); !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("expected ErrUnknownDataType, got %v", err)
	}
}

func TestParseDataType(t *testing.T) {
	d, err := ParseDataType("float32")
	if err != nil || d != Float32 {
		t.Errorf("expected Float32 got %v (%v)", d, err)
	}
	if _, err := ParseDataType("complex"); err == nil {
		t.Error("expected an error for an unknown type name")
	}
}

func TestAllocMatchesTypeAndDims(t *testing.T) {
	p := NewPool(0, 0)
	b, err := p.Alloc([]int{4, 3}, Int32)
	if err != nil {
		t.Fatal(err)
	}
	data, ok := Slice[int32](b)
	if !ok || len(data) != 12 {
		t.Errorf("expected 12 int32s, got %T of len %d", b.Data, len(data))
	}
	if b.Width() != 4 || b.Height() != 3 || b.Bytes() != 48 {
		t.Errorf("expected 4x3 and 48 bytes, got %dx%d and %d", b.Width(), b.Height(), b.Bytes())
	}
}

func TestAllocRejectsBadDims(t *testing.T) {
	p := NewPool(0, 0)
	for _, dims := range [][]int{nil, {0}, {3, -1}, {1, 2, 3}} {
		if _, err := p.Alloc(dims, UInt8); !errors.Is(err, ErrBadDims) {
			t.Errorf("expected ErrBadDims for %v, got %v", dims, err)
		}
	}
}

func TestReleaseReturnsToPoolAndReuses(t *testing.T) {
	p := NewPool(0, 0)
	b, _ := p.Alloc([]int{8}, UInt16)
	data, _ := Slice[uint16](b)
	data[0] = 7
	b.Attributes["k"] = "v"
	p.Release(b)
	if s := p.Stats(); s.Free != 1 || s.Buffers != 1 {
		t.Errorf("expected 1 free of 1 buffers, got %+v", s)
	}
	b2, _ := p.Alloc([]int{8}, UInt16)
	if b2 != b {
		t.Error("expected the free buffer to be reused")
	}
	data, _ = Slice[uint16](b2)
	if data[0] != 0 || len(b2.Attributes) != 0 {
		t.Error("expected a reused buffer to be zeroed and have no attributes")
	}
	if s := p.Stats(); s.Reused != 1 || s.Allocs != 2 {
		t.Errorf("expected 2 allocs with 1 reuse, got %+v", s)
	}
}

func TestReserveDelaysReturn(t *testing.T) {
	p := NewPool(0, 0)
	b, _ := p.Alloc([]int{8}, Float64)
	b.Reserve()
	if !b.Shared() {
		t.Error("expected a reserved buffer to be shared")
	}
	b.Release()
	if p.Stats().Free != 0 {
		t.Error("expected the buffer to stay out of the pool while reserved")
	}
	b.Release()
	if p.Stats().Free != 1 {
		t.Error("expected the last release to return the buffer")
	}
}

func TestMaxBuffers(t *testing.T) {
	p := NewPool(2, 0)
	a, _ := p.Alloc([]int{4}, Int8)
	_, _ = p.Alloc([]int{4}, Int8)
	if _, err := p.Alloc([]int{4}, Int8); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("expected ErrPoolExhausted, got %v", err)
	}
	a.Release()
	if _, err := p.Alloc([]int{5}, Int8); err != nil {
		t.Errorf("expected a free buffer of another shape to be evicted, got %v", err)
	}
	if p.Stats().Failures != 1 {
		t.Errorf("expected one failure, got %d", p.Stats().Failures)
	}
}

func TestMaxMemory(t *testing.T) {
	p := NewPool(0, 100)
	if _, err := p.Alloc([]int{10, 10}, UInt16); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("expected 200 bytes to exceed a 100 byte pool, got %v", err)
	}
	if _, err := p.Alloc([]int{10, 10}, UInt8); err != nil {
		t.Errorf("expected 100 bytes to fit, got %v", err)
	}
}

func TestCopy(t *testing.T) {
	p := NewPool(0, 0)
	b, _ := p.Alloc([]int{3}, Float32)
	data, _ := Slice[float32](b)
	copy(data, []float32{1, 2, 3})
	b.UniqueID = 9
	b.Attributes["run"] = "x"
	c, err := p.Copy(b)
	if err != nil {
		t.Fatal(err)
	}
	data[0] = 100
	got, _ := Slice[float32](c)
	if diff := cmp.Diff([]float32{1, 2, 3}, got); diff != "" {
		t.Errorf("copy mismatch (-want +got):\n%s", diff)
	}
	if c.UniqueID != 9 || c.Attributes["run"] != "x" {
		t.Errorf("expected metadata to be copied, got %d %v", c.UniqueID, c.Attributes)
	}
}

func TestFloat64s(t *testing.T) {
	b, _ := NewBuffer([]int{3}, Int8)
	data, _ := Slice[int8](b)
	copy(data, []int8{-1, 0, 5})
	if diff := cmp.Diff([]float64{-1, 0, 5}, b.Float64s()); diff != "" {
		t.Errorf("widen mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFitsProducesBlocks(t *testing.T) {
	for _, dt := range []DataType{UInt8, Int16, UInt16, Float64} {
		a, _ := NewBuffer([]int{16, 8}, dt)
		b, _ := NewBuffer([]int{16, 8}, dt)
		var buf bytes.Buffer
		err := WriteFits(&buf, []fitsio.Card{{Name: "UNIQUEID", Value: 1}}, a, b)
		if err != nil {
			t.Fatalf("%s: %v", dt, err)
		}
		if buf.Len() == 0 || buf.Len()%2880 != 0 {
			t.Errorf("%s: expected a whole number of 2880 byte FITS blocks, got %d bytes", dt, buf.Len())
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("SIMPLE")) {
			t.Errorf("%s: expected the file to start with SIMPLE", dt)
		}
	}
}

func TestWriteFitsRejectsMismatch(t *testing.T) {
	a, _ := NewBuffer([]int{4}, UInt8)
	b, _ := NewBuffer([]int{5}, UInt8)
	if err := WriteFits(&bytes.Buffer{}, nil, a, b); !errors.Is(err, ErrMismatchedFrames) {
		t.Errorf("expected ErrMismatchedFrames got %v", err)
	}
}

func TestWriteFitsRejectsUnknownType(t *testing.T) {
	b := &Buffer{Dims: []int{4}, Type: DataType(42), Data: make([]float64, 4)}
	var out bytes.Buffer
	if err := WriteFits(&out, nil, b); !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("expected ErrUnknownDataType got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected nothing written got %d bytes", out.Len())
	}
}
