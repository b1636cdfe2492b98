/*
Package noise generates the random perturbation added to every bin of a
simulated frame.

All bins of a frame draw from one Source, so a seeded Source reproduces a
frame exactly.
*/
package noise

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/nasa-jpl/simpeaks/mathx"
)

// Kind selects the noise distribution
type Kind int

const (
	// None adds nothing
	None Kind = iota

	// Uniform draws from [-1, 1)
	Uniform

	// Gaussian draws from the standard normal distribution
	Gaussian
)

// String returns the display name of the kind
func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case Uniform:
		return "Uniform"
	case Gaussian:
		return "Gaussian"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a display name (case insensitive) to a Kind
func ParseKind(name string) (Kind, error) {
	for k := None; k <= Gaussian; k++ {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}
	return None, fmt.Errorf("noise type %q is not known", name)
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

// KindFromOrdinal maps a NoiseType parameter value to a Kind
func KindFromOrdinal(i int) (Kind, error) {
	if i < int(None) || i > int(Gaussian) {
		return None, fmt.Errorf("noise type %d is not valid", i)
	}
	return Kind(i), nil
}

// Spec describes the noise of a frame
type Spec struct {
	Kind  Kind    `json:"kind" yaml:"Kind"`
	Level float64 `json:"level" yaml:"Level"`

	// Clamp limits every draw to [Lower, Upper]
	Clamp bool    `json:"clamp" yaml:"Clamp"`
	Lower float64 `json:"lower" yaml:"Lower"`
	Upper float64 `json:"upper" yaml:"Upper"`
}

// Source is a stream of random numbers.  *rand.Rand satisfies it.
type Source interface {
	// Float64 returns a value in [0, 1)
	Float64() float64

	// NormFloat64 returns a standard normal value
	NormFloat64() float64
}

// NewSource returns a Source seeded with seed, or with the current time if
// seed is zero
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generator draws noise values for one frame
type Generator struct {
	Spec Spec
	Src  Source
}

// Enabled is true if the generator produces nonzero values
func (g Generator) Enabled() bool {
	return g.Spec.Kind != None && g.Src != nil
}

// Draw returns the next noise value
func (g Generator) Draw() float64 {
	if !g.Enabled() {
		return 0
	}
	var n float64
	switch g.Spec.Kind {
	case Uniform:
		n = 2*g.Src.Float64() - 1
	case Gaussian:
		n = g.Src.NormFloat64()
	case None:
		return 0
	}
	n *= g.Spec.Level
	if g.Spec.Clamp {
		n = mathx.Clamp(n, g.Spec.Lower, g.Spec.Upper)
	}
	return n
}
