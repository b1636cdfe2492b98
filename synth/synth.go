/*
Package synth draws a simulated frame: background, then each peak scaled so
its center reaches the requested amplitude, then noise.

Every contribution is converted to the frame's element type before it is
added.  Integer conversion goes through int64 (uint64 for values of 2^63 and
above), so narrow types wrap rather than saturate.
*/
package synth

import (
	"errors"

	"github.com/nasa-jpl/simpeaks/background"
	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/noise"
	"github.com/nasa-jpl/simpeaks/peaks"
)

// ErrNoBuffer is generated when Compose is called without a buffer
var ErrNoBuffer = errors.New("no frame buffer to compose into")

// Scene is everything drawn into one frame, read fresh for every frame
type Scene struct {
	// TwoD selects the 2D profiles and the Y background.  A 2D frame may
	// still have a height of 1.
	TwoD bool

	Peaks      []peaks.Spec
	Background background.Pair
	Noise      noise.Spec
}

// Compose draws the scene into buf.  Without integrate, or when *needsReset is
// true, the buffer is zeroed first and *needsReset is cleared; otherwise the
// scene is added to the buffer's current contents.
func Compose(buf *frame.Buffer, s Scene, src noise.Source, integrate bool, needsReset *bool) error {
	if buf == nil {
		return ErrNoBuffer
	}
	if !integrate || (needsReset != nil && *needsReset) {
		buf.Zero()
		if needsReset != nil {
			*needsReset = false
		}
	}
	gen := noise.Generator{Spec: s.Noise, Src: src}
	w, h := buf.Width(), buf.Height()
	switch d := buf.Data.(type) {
	case []int8:
		composeT(d, w, h, s, gen)
	case []uint8:
		composeT(d, w, h, s, gen)
	case []int16:
		composeT(d, w, h, s, gen)
	case []uint16:
		composeT(d, w, h, s, gen)
	case []int32:
		composeT(d, w, h, s, gen)
	case []uint32:
		composeT(d, w, h, s, gen)
	case []int64:
		composeT(d, w, h, s, gen)
	case []uint64:
		composeT(d, w, h, s, gen)
	case []float32:
		composeT(d, w, h, s, gen)
	case []float64:
		composeT(d, w, h, s, gen)
	default:
		return frame.ErrUnknownDataType
	}
	return nil
}

func composeT[T frame.Number](data []T, w, h int, s Scene, gen noise.Generator) {
	conv := converter[T]()

	if s.TwoD {
		if s.Background.X.Kind != background.None || s.Background.Y.Kind != background.None {
			for y := 0; y < h; y++ {
				row := data[y*w : (y+1)*w]
				for x := range row {
					row[x] += conv(s.Background.Value2D(float64(x), float64(y)))
				}
			}
		}
	} else if s.Background.X.Kind != background.None {
		for x := range data {
			data[x] += conv(background.Value(s.Background.X, float64(x)))
		}
	}

	for _, p := range s.Peaks {
		if !p.Enabled() {
			continue
		}
		x0, x1, y0, y1 := extent(p.Bounds, w, h)
		if s.TwoD {
			scale := peaks.Scale2D(p)
			for y := y0; y <= y1; y++ {
				row := data[y*w : (y+1)*w]
				for x := x0; x <= x1; x++ {
					row[x] += conv(scale * peaks.Evaluate2D(p, float64(x), float64(y)))
				}
			}
		} else {
			scale := peaks.Scale1D(p)
			for x := x0; x <= x1; x++ {
				data[x] += conv(scale * peaks.Evaluate1D(p, float64(x)))
			}
		}
	}

	if gen.Enabled() {
		for i := range data {
			data[i] += conv(gen.Draw())
		}
	}
}

// extent clips inclusive bounds to a w x h frame.  An empty range has
// hi < lo.
func extent(b *peaks.Bounds, w, h int) (x0, x1, y0, y1 int) {
	x0, x1, y0, y1 = 0, w-1, 0, h-1
	if b == nil {
		return
	}
	x0, x1 = clip(b.MinX, b.MaxX, w)
	y0, y1 = clip(b.MinY, b.MaxY, h)
	return
}

func clip(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

// converter returns the float64 to T conversion used for every contribution
func converter[T frame.Number]() func(float64) T {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return func(v float64) T { return T(v) }
	case uint64:
		return func(v float64) T {
			if v >= 1<<63 {
				return T(uint64(v))
			}
			return T(int64(v))
		}
	}
	return func(v float64) T { return T(int64(v)) }
}
