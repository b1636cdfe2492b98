// Package background computes the smooth baseline added beneath the peaks of a simulated frame.
package background

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the background profile
type Kind int

const (
	// None contributes nothing
	None Kind = iota

	// Polynomial is c0 + c1*d + c2*d^2 + c3*d^3
	Polynomial

	// Exponential is c0 + c1*exp(c2*d)
	Exponential
)

// String returns the display name of the kind
func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case Polynomial:
		return "Polynomial"
	case Exponential:
		return "Exponential"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a display name (case insensitive) to a Kind
func ParseKind(name string) (Kind, error) {
	for k := None; k <= Exponential; k++ {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}
	return None, fmt.Errorf("background type %q is not known", name)
}

// UnmarshalText allows kinds to be given by name in config files
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// KindFromOrdinal maps a BackgroundType parameter value to a Kind
func KindFromOrdinal(i int) (Kind, error) {
	if i < int(None) || i > int(Exponential) {
		return None, fmt.Errorf("background type %d is not valid", i)
	}
	return Kind(i), nil
}

// Spec describes the background along one axis.  The profile is evaluated at
// d = bin - Shift.
type Spec struct {
	Kind  Kind    `json:"kind" yaml:"Kind"`
	C0    float64 `json:"c0" yaml:"C0"`
	C1    float64 `json:"c1" yaml:"C1"`
	C2    float64 `json:"c2" yaml:"C2"`
	C3    float64 `json:"c3" yaml:"C3"`
	Shift float64 `json:"shift" yaml:"Shift"`
}

// Value returns the background at bin
func Value(s Spec, bin float64) float64 {
	d := bin - s.Shift
	switch s.Kind {
	case Polynomial:
		return s.C0 + d*(s.C1+d*(s.C2+d*s.C3))
	case Exponential:
		return s.C0 + s.C1*math.Exp(d*s.C2)
	case None:
		return 0
	}
	return 0
}

// Pair is the X and Y background of a frame.  In 2D the two are summed.
type Pair struct {
	X Spec `json:"x" yaml:"X"`
	Y Spec `json:"y" yaml:"Y"`
}

// Value2D returns the summed X and Y background at (x, y)
func (p Pair) Value2D(x, y float64) float64 {
	return Value(p.X, x) + Value(p.Y, y)
}
