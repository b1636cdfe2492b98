// this file contains a few small image processing utilities

package camera

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/gift"

	"github.com/nasa-jpl/simpeaks/frame"
)

// ErrBadTransform is generated by an unsupported rotation or flip
var ErrBadTransform = errors.New("unsupported image transform")

// ToGray16 linearly stretches a frame from its minimum to its maximum over
// the 16-bit range.  A 1D frame becomes a single row.
func ToGray16(b *frame.Buffer) *image.Gray16 {
	w, h := b.Width(), b.Height()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	x := b.Float64s()
	if len(x) == 0 {
		return img
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	scale := 0.
	if hi > lo {
		scale = 65535 / (hi - lo)
	}
	for i, v := range x {
		u := uint16(math.Round((v - lo) * scale))
		// Gray16 pixels are big endian
		img.Pix[2*i] = byte(u >> 8)
		img.Pix[2*i+1] = byte(u)
	}
	return img
}

// Transform rotates (0, 90, 180 or 270 degrees clockwise), flips ("", "h"
// or "v") and then resizes src to width, keeping the aspect ratio.  A width
// of 0 keeps the size.
func Transform(src image.Image, width, rot int, flip string) (image.Image, error) {
	var filters []gift.Filter
	switch rot {
	case 0:
	case 90:
		filters = append(filters, gift.Rotate270())
	case 180:
		filters = append(filters, gift.Rotate180())
	case 270:
		filters = append(filters, gift.Rotate90())
	default:
		return nil, fmt.Errorf("%w: rotation %d", ErrBadTransform, rot)
	}
	switch flip {
	case "":
	case "h":
		filters = append(filters, gift.FlipHorizontal())
	case "v":
		filters = append(filters, gift.FlipVertical())
	default:
		return nil, fmt.Errorf("%w: flip %q", ErrBadTransform, flip)
	}
	if width < 0 {
		return nil, fmt.Errorf("%w: width %d", ErrBadTransform, width)
	}
	if width > 0 {
		// height 0 preserves the aspect ratio
		filters = append(filters, gift.Resize(width, 0, gift.LinearResampling))
	}
	if len(filters) == 0 {
		return src, nil
	}
	g := gift.New(filters...)
	dst := image.NewGray16(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst, nil
}
