package acquire

import (
	"go.uber.org/zap"

	"github.com/nasa-jpl/simpeaks/background"
	"github.com/nasa-jpl/simpeaks/noise"
	"github.com/nasa-jpl/simpeaks/params"
	"github.com/nasa-jpl/simpeaks/peaks"
	"github.com/nasa-jpl/simpeaks/synth"
)

// axisKeys are the background parameters of one axis
type axisKeys struct {
	kind, c0, c1, c2, c3, shift string
}

var (
	axisX = axisKeys{params.BackgroundTypeX, params.BackgroundC0X, params.BackgroundC1X, params.BackgroundC2X, params.BackgroundC3X, params.BackgroundShiftX}
	axisY = axisKeys{params.BackgroundTypeY, params.BackgroundC0Y, params.BackgroundC1Y, params.BackgroundC2Y, params.BackgroundC3Y, params.BackgroundShiftY}
)

// scene reads everything drawn into the next frame
func (c *Controller) scene() synth.Scene {
	s := synth.Scene{TwoD: c.cfg.TwoD()}
	s.Background.X = c.background(axisX)
	if s.TwoD {
		s.Background.Y = c.background(axisY)
	}
	s.Noise = c.noise()
	for i := 0; i < c.cfg.MaxPeaks; i++ {
		if p, ok := c.peak(i, s.TwoD); ok {
			s.Peaks = append(s.Peaks, p)
		}
	}
	return s
}

func (c *Controller) background(k axisKeys) background.Spec {
	kind, err := background.KindFromOrdinal(c.readInt(k.kind, 0))
	if err != nil {
		c.logError("background ignored", zap.Error(err))
		return background.Spec{}
	}
	return background.Spec{
		Kind:  kind,
		C0:    c.readFloat(k.c0, 0),
		C1:    c.readFloat(k.c1, 0),
		C2:    c.readFloat(k.c2, 0),
		C3:    c.readFloat(k.c3, 0),
		Shift: c.readFloat(k.shift, 0),
	}
}

func (c *Controller) noise() noise.Spec {
	kind, err := noise.KindFromOrdinal(c.readInt(params.NoiseType, 0))
	if err != nil {
		c.logError("noise ignored", zap.Error(err))
		return noise.Spec{}
	}
	return noise.Spec{
		Kind:  kind,
		Level: c.readFloat(params.NoiseLevel, 0),
		Clamp: c.readInt(params.NoiseClamp, 0) != 0,
		Lower: c.readFloat(params.NoiseLower, 0),
		Upper: c.readFloat(params.NoiseUpper, 0),
	}
}

// peak reads peak slot i.  Disabled slots and unknown shapes return false.
func (c *Controller) peak(i int, twoD bool) (peaks.Spec, bool) {
	var (
		shape peaks.Shape
		err   error
	)
	if twoD {
		shape, err = peaks.Shape2DFromOrdinal(c.readInt(params.PeakType2D, i))
	} else {
		shape, err = peaks.Shape1DFromOrdinal(c.readInt(params.PeakType1D, i))
	}
	if err != nil {
		c.logError("peak ignored", zap.Int("peak", i), zap.Error(err))
		return peaks.Spec{}, false
	}
	if shape == peaks.None {
		return peaks.Spec{}, false
	}
	p := peaks.Spec{
		Shape:       shape,
		PosX:        c.readFloat(params.PeakPosX, i),
		PosY:        c.readFloat(params.PeakPosY, i),
		FWHMX:       c.readFloat(params.PeakFWHMX, i),
		FWHMY:       c.readFloat(params.PeakFWHMY, i),
		Amplitude:   c.readFloat(params.PeakAmplitude, i),
		Correlation: c.readFloat(params.PeakCorrelation, i),
		Param1:      c.readFloat(params.PeakP1, i),
		Param2:      c.readFloat(params.PeakP2, i),
	}
	if c.readInt(params.PeakBoundUse, i) != 0 {
		p.Bounds = &peaks.Bounds{
			MinX: c.readInt(params.PeakBoundXMin, i),
			MaxX: c.readInt(params.PeakBoundXMax, i),
			MinY: c.readInt(params.PeakBoundYMin, i),
			MaxY: c.readInt(params.PeakBoundYMax, i),
		}
	}
	return p, true
}
