/*
Package preset loads scenes of peaks, background and noise from YAML files
and writes them into a detector's parameter table.

A preset file looks like

	Peaks:
	  - Shape: Gaussian
	    PosX: 100
	    FWHMX: 12
	    Amplitude: 1000
	  - Shape: Moffat
	    PosX: 300
	    FWHMX: 8
	    Amplitude: 250
	    P1: 2.5
	    Bounds: {MinX: 250, MaxX: 350}
	BackgroundX: {Kind: Polynomial, C0: 50, C1: 0.1}
	Noise: {Kind: Gaussian, Level: 5}

Shapes and kinds are given by name.  Peak slots beyond the listed peaks are
disabled when the preset is applied.
*/
package preset

import (
	"context"
	"fmt"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/nasa-jpl/simpeaks/background"
	"github.com/nasa-jpl/simpeaks/noise"
	"github.com/nasa-jpl/simpeaks/params"
	"github.com/nasa-jpl/simpeaks/peaks"
)

// Peak is one peak of a preset
type Peak struct {
	Shape       peaks.Shape   `yaml:"Shape"`
	PosX        float64       `yaml:"PosX"`
	PosY        float64       `yaml:"PosY"`
	FWHMX       float64       `yaml:"FWHMX"`
	FWHMY       float64       `yaml:"FWHMY"`
	Amplitude   float64       `yaml:"Amplitude"`
	Correlation float64       `yaml:"Correlation"`
	P1          float64       `yaml:"P1"`
	P2          float64       `yaml:"P2"`
	Bounds      *peaks.Bounds `yaml:"Bounds"`
}

// Preset is a complete scene
type Preset struct {
	Peaks       []Peak          `yaml:"Peaks"`
	BackgroundX background.Spec `yaml:"BackgroundX"`
	BackgroundY background.Spec `yaml:"BackgroundY"`
	Noise       noise.Spec      `yaml:"Noise"`
}

// Load reads a preset from a YAML file.  Unknown keys are an error.
func Load(path string) (Preset, error) {
	var p Preset
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return p, fmt.Errorf("loading preset %s: %w", path, err)
	}
	conf := koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &p,
		},
	}
	if err := k.UnmarshalWithConf("", &p, conf); err != nil {
		return p, fmt.Errorf("decoding preset %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the preset fits a table with slots peak slots
func (p Preset) Validate(slots int) error {
	if len(p.Peaks) > slots {
		return fmt.Errorf("preset has %d peaks, the detector has %d slots", len(p.Peaks), slots)
	}
	for i, pk := range p.Peaks {
		if !peaks.Supports1D(pk.Shape) && !peaks.Supports2D(pk.Shape) {
			return fmt.Errorf("peak %d: shape %v can not be drawn", i, pk.Shape)
		}
		if pk.Correlation < -1 || pk.Correlation > 1 {
			return fmt.Errorf("peak %d: correlation %g is outside [-1, 1]", i, pk.Correlation)
		}
	}
	return nil
}

// Apply writes every field of the preset into store.  A shape which has no
// profile in one dimensionality is written as None for it.  Nothing is
// written if the preset does not validate.
func (p Preset) Apply(store *params.Store) error {
	if err := p.Validate(store.IndexLen()); err != nil {
		return err
	}
	w := writer{store: store}
	w.background(p.BackgroundX, params.BackgroundTypeX, params.BackgroundC0X, params.BackgroundC1X, params.BackgroundC2X, params.BackgroundC3X, params.BackgroundShiftX)
	w.background(p.BackgroundY, params.BackgroundTypeY, params.BackgroundC0Y, params.BackgroundC1Y, params.BackgroundC2Y, params.BackgroundC3Y, params.BackgroundShiftY)

	w.int(params.NoiseType, 0, int(p.Noise.Kind))
	w.float(params.NoiseLevel, 0, p.Noise.Level)
	clamp := 0
	if p.Noise.Clamp {
		clamp = 1
	}
	w.int(params.NoiseClamp, 0, clamp)
	w.float(params.NoiseLower, 0, p.Noise.Lower)
	w.float(params.NoiseUpper, 0, p.Noise.Upper)

	for i := 0; i < store.IndexLen(); i++ {
		if i >= len(p.Peaks) {
			w.int(params.PeakType1D, i, 0)
			w.int(params.PeakType2D, i, 0)
			continue
		}
		w.peak(i, p.Peaks[i])
	}
	return w.err
}

// writer keeps the first error of a run of Set calls
type writer struct {
	store *params.Store
	err   error
}

func (w *writer) int(key string, idx, v int) {
	if w.err == nil {
		w.err = w.store.SetInt(key, idx, v)
	}
}

func (w *writer) float(key string, idx int, v float64) {
	if w.err == nil {
		w.err = w.store.SetFloat(key, idx, v)
	}
}

func (w *writer) background(s background.Spec, typ, c0, c1, c2, c3, shift string) {
	w.int(typ, 0, int(s.Kind))
	w.float(c0, 0, s.C0)
	w.float(c1, 0, s.C1)
	w.float(c2, 0, s.C2)
	w.float(c3, 0, s.C3)
	w.float(shift, 0, s.Shift)
}

func (w *writer) peak(i int, pk Peak) {
	// unsupported dimensionalities give -1; None is ordinal 0 in both lists
	o1, o2 := pk.Shape.Ordinal1D(), pk.Shape.Ordinal2D()
	if o1 < 0 {
		o1 = 0
	}
	if o2 < 0 {
		o2 = 0
	}
	w.int(params.PeakType1D, i, o1)
	w.int(params.PeakType2D, i, o2)
	w.float(params.PeakPosX, i, pk.PosX)
	w.float(params.PeakPosY, i, pk.PosY)
	w.float(params.PeakFWHMX, i, pk.FWHMX)
	w.float(params.PeakFWHMY, i, pk.FWHMY)
	w.float(params.PeakAmplitude, i, pk.Amplitude)
	w.float(params.PeakCorrelation, i, pk.Correlation)
	w.float(params.PeakP1, i, pk.P1)
	w.float(params.PeakP2, i, pk.P2)
	if pk.Bounds == nil {
		w.int(params.PeakBoundUse, i, 0)
		return
	}
	w.int(params.PeakBoundUse, i, 1)
	w.int(params.PeakBoundXMin, i, pk.Bounds.MinX)
	w.int(params.PeakBoundXMax, i, pk.Bounds.MaxX)
	w.int(params.PeakBoundYMin, i, pk.Bounds.MinY)
	w.int(params.PeakBoundYMax, i, pk.Bounds.MaxY)
}

// LoadAndApply loads the preset at path and applies it to store
func LoadAndApply(path string, store *params.Store) error {
	p, err := Load(path)
	if err != nil {
		return err
	}
	return p.Apply(store)
}

// Watch applies the preset at path and then reapplies it each time the file
// changes.  A preset which fails to load or apply on reload is logged and
// the store keeps its values.  Reloads stop once ctx is done.
func Watch(ctx context.Context, path string, store *params.Store, log *zap.Logger) error {
	if err := LoadAndApply(path, store); err != nil {
		return err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("preset", path))
	return file.Provider(path).Watch(func(event interface{}, err error) {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error("preset watch failed", zap.Error(err))
			return
		}
		if err := LoadAndApply(path, store); err != nil {
			log.Error("preset not reloaded", zap.Error(err))
			return
		}
		log.Info("preset reloaded")
	})
}
