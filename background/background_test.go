package background

import (
	"math"
	"testing"
)

func TestConstantPolynomial(t *testing.T) {
	s := Spec{Kind: Polynomial, C0: 5}
	for bin := 0.; bin < 100; bin++ {
		if v := Value(s, bin); v != 5 {
			t.Errorf("expected 5 at bin %g, got %f", bin, v)
		}
	}
}

func TestCubicWithShift(t *testing.T) {
	s := Spec{Kind: Polynomial, C0: 1, C1: 2, C2: 3, C3: 4, Shift: 10}
	// d = 2: 1 + 4 + 12 + 32
	if v := Value(s, 12); v != 49 {
		t.Errorf("expected 49 got %f", v)
	}
}

func TestExponential(t *testing.T) {
	s := Spec{Kind: Exponential, C0: 1, C1: 2, C2: -0.5}
	want := 1 + 2*math.Exp(-2)
	if v := Value(s, 4); math.Abs(v-want) > 1e-12 {
		t.Errorf("expected %f got %f", want, v)
	}
}

func TestNoneIsZero(t *testing.T) {
	if v := Value(Spec{Kind: None, C0: 3}, 7); v != 0 {
		t.Errorf("expected 0 got %f", v)
	}
}

func TestPairIsAdditive(t *testing.T) {
	p := Pair{
		X: Spec{Kind: Polynomial, C0: 5},
		Y: Spec{Kind: Polynomial, C0: 0, C1: 1},
	}
	if v := p.Value2D(3, 4); v != 9 {
		t.Errorf("expected 9 got %f", v)
	}
}

func TestKindFromOrdinal(t *testing.T) {
	if _, err := KindFromOrdinal(3); err == nil {
		t.Error("expected an error for an unknown background type")
	}
	k, err := KindFromOrdinal(2)
	if err != nil || k != Exponential {
		t.Errorf("expected Exponential, got %s (%v)", k, err)
	}
}
