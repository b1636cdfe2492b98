/*
Package peaks implements the profile functions used to draw simulated peaks
into 1D and 2D frames.

Every profile is a pure function of a Spec and an evaluation point and returns
an unnormalized density.  Scale1D and Scale2D compute the factor which makes
the rendered value at the peak center equal to the requested amplitude.

Supported 1D shapes are square, triangle, Gaussian, Lorentzian (Cauchy),
pseudo-Voigt, Laplace, Moffat and smooth step.  Supported 2D shapes are
square, pyramid, elliptical cone, bivariate Gaussian, Lorentzian,
pseudo-Voigt, bivariate Laplace, Moffat and smooth step.
*/
package peaks

import (
	"fmt"
	"strings"

	"github.com/nasa-jpl/simpeaks/mathx"
)

// Shape is the kind of profile drawn for a peak
type Shape int

const (
	// None disables a peak
	None Shape = iota
	Square
	Triangle
	Pyramid
	Cone
	Gaussian
	Lorentz
	PseudoVoigt
	Laplace
	Moffat
	SmoothStep
)

var shapeNames = map[Shape]string{
	None:        "None",
	Square:      "Square",
	Triangle:    "Triangle",
	Pyramid:     "Pyramid",
	Cone:        "Cone",
	Gaussian:    "Gaussian",
	Lorentz:     "Lorentz",
	PseudoVoigt: "Pseudo-Voigt",
	Laplace:     "Laplace",
	Moffat:      "Moffat",
	SmoothStep:  "SmoothStep",
}

// String returns the display name of the shape
func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

var (
	// Shapes1D is the list of 1D shapes in the order presented to users.
	// A shape's index in this slice is its ordinal in the PeakType1D parameter
	// and must not be reordered.
	Shapes1D = []Shape{None, Square, Triangle, Gaussian, Lorentz, PseudoVoigt, Laplace, Moffat, SmoothStep}

	// Shapes2D is the list of 2D shapes in the order presented to users.
	// A shape's index in this slice is its ordinal in the PeakType2D parameter
	// and must not be reordered.
	Shapes2D = []Shape{None, Square, Pyramid, Cone, Gaussian, Lorentz, PseudoVoigt, Laplace, Moffat, SmoothStep}
)

// ErrBadOrdinal is generated when a shape ordinal is outside the user list
type ErrBadOrdinal struct {
	Ordinal int
	Dims    int
}

// Error satisfies the error interface
func (e ErrBadOrdinal) Error() string {
	return fmt.Sprintf("peak type %d is not a valid %dD shape", e.Ordinal, e.Dims)
}

// Shape1DFromOrdinal maps a PeakType1D value to a Shape
func Shape1DFromOrdinal(i int) (Shape, error) {
	if i < 0 || i >= len(Shapes1D) {
		return None, ErrBadOrdinal{Ordinal: i, Dims: 1}
	}
	return Shapes1D[i], nil
}

// Shape2DFromOrdinal maps a PeakType2D value to a Shape
func Shape2DFromOrdinal(i int) (Shape, error) {
	if i < 0 || i >= len(Shapes2D) {
		return None, ErrBadOrdinal{Ordinal: i, Dims: 2}
	}
	return Shapes2D[i], nil
}

// ParseShape converts a display name such as "Pseudo-Voigt" (case
// insensitive) to a Shape
func ParseShape(name string) (Shape, error) {
	for s, n := range shapeNames {
		if strings.EqualFold(name, n) {
			return s, nil
		}
	}
	return None, fmt.Errorf("peak shape %q is not known", name)
}

// UnmarshalText allows shapes to be given by name in config files
func (s *Shape) UnmarshalText(text []byte) error {
	v, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Ordinal1D returns the index of s in Shapes1D, or -1
func (s Shape) Ordinal1D() int {
	return indexOf(Shapes1D, s)
}

// Ordinal2D returns the index of s in Shapes2D, or -1
func (s Shape) Ordinal2D() int {
	return indexOf(Shapes2D, s)
}

func indexOf(list []Shape, s Shape) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// Supports1D reports whether s has a 1D profile
func Supports1D(s Shape) bool {
	return s.Ordinal1D() >= 0
}

// Supports2D reports whether s has a 2D profile
func Supports2D(s Shape) bool {
	return s.Ordinal2D() >= 0
}

// Bounds restricts where a peak is drawn.  The limits are bin indices and
// are inclusive.
type Bounds struct {
	MinX int `json:"minX" yaml:"MinX"`
	MaxX int `json:"maxX" yaml:"MaxX"`
	MinY int `json:"minY" yaml:"MinY"`
	MaxY int `json:"maxY" yaml:"MaxY"`
}

// Spec describes one peak.  It is a snapshot; nothing in this package
// modifies it.
type Spec struct {
	Shape Shape `json:"shape"`

	// PosX and PosY are the center of the peak in bins
	PosX float64 `json:"posX"`
	PosY float64 `json:"posY"`

	// FWHMX and FWHMY are the full width at half maximum along each axis.
	// Values below 1 are treated as 1.
	FWHMX float64 `json:"fwhmX"`
	FWHMY float64 `json:"fwhmY"`

	// Amplitude is the height of the rendered peak at its center
	Amplitude float64 `json:"amplitude"`

	// Correlation is the X/Y correlation of the bivariate Gaussian and Laplace
	// shapes, limited to [-1, 1]
	Correlation float64 `json:"correlation"`

	// Param1 is the beta parameter of the Moffat shape
	Param1 float64 `json:"p1"`

	// Param2 is reserved for shapes with a second shape parameter
	Param2 float64 `json:"p2"`

	// Bounds limits where the peak is rendered.  nil means the whole frame.
	Bounds *Bounds `json:"bounds,omitempty"`
}

// Enabled is true if the peak is drawn at all
func (s Spec) Enabled() bool {
	return s.Shape != None
}

// Evaluate1D returns the unnormalized value of the peak's 1D profile at x.
// Shapes without a 1D profile evaluate to zero.
func Evaluate1D(s Spec, x float64) float64 {
	switch s.Shape {
	case Square:
		return square(s.PosX, s.FWHMX, x)
	case Triangle:
		return triangle(s.PosX, s.FWHMX, x)
	case Gaussian:
		return gaussian(s.PosX, s.FWHMX, x)
	case Lorentz:
		return lorentz(s.PosX, s.FWHMX, x)
	case PseudoVoigt:
		return pseudoVoigt(s.PosX, s.FWHMX, x)
	case Laplace:
		return laplace(s.PosX, s.FWHMX, x)
	case Moffat:
		return moffat(s.PosX, s.FWHMX, s.Param1, x)
	case SmoothStep:
		return smoothStep(s.PosX, s.FWHMX, x)
	case None, Pyramid, Cone:
		return 0
	}
	return 0
}

// Evaluate2D returns the unnormalized value of the peak's 2D profile at (x, y).
// Shapes without a 2D profile evaluate to zero.
func Evaluate2D(s Spec, x, y float64) float64 {
	switch s.Shape {
	case Square:
		return square2D(s, x, y)
	case Pyramid:
		return pyramid2D(s, x, y)
	case Cone:
		return cone2D(s, x, y)
	case Gaussian:
		return gaussian2D(s, x, y)
	case Lorentz:
		return lorentz2D(s, x, y)
	case PseudoVoigt:
		return pseudoVoigt2D(s, x, y)
	case Laplace:
		return laplace2D(s, x, y)
	case Moffat:
		return moffat2D(s, x, y)
	case SmoothStep:
		return smoothStep2D(s, x, y)
	case None, Triangle:
		return 0
	}
	return 0
}

// Scale1D returns the factor that makes the rendered 1D peak equal to its
// amplitude at the center.  A profile which is zero at its center gets a
// scale of 1.
func Scale1D(s Spec) float64 {
	return scale(s.Amplitude, Evaluate1D(s, s.PosX))
}

// Scale2D is the 2D equivalent of Scale1D
func Scale2D(s Spec) float64 {
	return scale(s.Amplitude, Evaluate2D(s, s.PosX, s.PosY))
}

func scale(amplitude, height float64) float64 {
	if mathx.IsZero(height) {
		return 1
	}
	return amplitude / height
}
