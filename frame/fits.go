package frame

import (
	"errors"
	"io"

	"github.com/astrogo/fitsio"
)

// ErrMismatchedFrames is generated when frames written to one cube differ in shape or type
var ErrMismatchedFrames = errors.New("all frames in a FITS cube must have the same shape and type")

// bitpix returns the FITS BITPIX of d and the BZERO offset needed to store
// it in a signed (or for 8 bits, unsigned) container.
func bitpix(d DataType) (int, interface{}) {
	switch d {
	case Int8:
		return 8, -128
	case UInt8:
		return 8, nil
	case Int16:
		return 16, nil
	case UInt16:
		return 16, 32768
	case Int32:
		return 32, nil
	case UInt32:
		return 32, 2147483648
	case Int64:
		return 64, nil
	case UInt64:
		return 64, uint64(1 << 63)
	case Float32:
		return -32, nil
	case Float64:
		return -64, nil
	}
	return 0, nil
}

// WriteFits streams a fits file to w.  One frame makes a 1D or 2D image;
// several make a cube with the frame index as the last axis.
func WriteFits(w io.Writer, metadata []fitsio.Card, frames ...*Buffer) error {
	if len(frames) == 0 {
		return ErrBadDims
	}
	first := frames[0]
	if !first.Type.Valid() {
		return ErrUnknownDataType
	}
	for _, f := range frames[1:] {
		if !f.SameShape(first.Dims, first.Type) {
			return ErrMismatchedFrames
		}
	}
	bp, bzero := bitpix(first.Type)
	if bzero != nil {
		metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: bzero}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	}

	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := append([]int(nil), first.Dims...)
	if len(frames) > 1 {
		dims = append(dims, len(frames))
	}
	im := fitsio.NewImage(bp, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	n := first.Len()
	var out interface{}
	switch first.Type {
	case Int8:
		out = pack(frames, n, func(v int8) byte { return byte(int16(v) + 128) })
	case UInt8:
		out = pack(frames, n, func(v uint8) byte { return v })
	case Int16:
		out = pack(frames, n, func(v int16) int16 { return v })
	case UInt16:
		out = pack(frames, n, func(v uint16) int16 { return int16(v - 32768) })
	case Int32:
		out = pack(frames, n, func(v int32) int32 { return v })
	case UInt32:
		out = pack(frames, n, func(v uint32) int32 { return int32(v ^ 0x80000000) })
	case Int64:
		out = pack(frames, n, func(v int64) int64 { return v })
	case UInt64:
		out = pack(frames, n, func(v uint64) int64 { return int64(v ^ (1 << 63)) })
	case Float32:
		out = pack(frames, n, func(v float32) float32 { return v })
	case Float64:
		out = pack(frames, n, func(v float64) float64 { return v })
	default:
		return ErrUnknownDataType
	}
	err = im.Write(out)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// pack concatenates the frames into one slice of the FITS storage type
func pack[T Number, S any](frames []*Buffer, n int, conv func(T) S) []S {
	out := make([]S, 0, n*len(frames))
	for _, f := range frames {
		data, _ := Slice[T](f)
		for _, v := range data {
			out = append(out, conv(v))
		}
	}
	return out
}
