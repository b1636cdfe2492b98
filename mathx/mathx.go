// Package mathx holds the small numeric helpers shared by the peak, background and noise generators.
package mathx

// Tiny is the magnitude below which a value is treated as zero.
const Tiny = 1e-12

// ZeroGuard returns 1 if x is within Tiny of zero, otherwise x.
// It is used on shape parameters that appear in a denominator.
func ZeroGuard(x float64) float64 {
	if x > -Tiny && x < Tiny {
		return 1
	}
	return x
}

// IsZero reports whether |x| < Tiny
func IsZero(x float64) bool {
	return x > -Tiny && x < Tiny
}

// Clamp limits x to [low, high]
func Clamp(x, low, high float64) float64 {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}

// AtLeast returns x, or min if x is smaller
func AtLeast(x, min float64) float64 {
	if x < min {
		return min
	}
	return x
}
