package peaks

import (
	"math"

	"github.com/nasa-jpl/simpeaks/mathx"
)

// maxCorrelation keeps 1-rho^2 away from zero for the bivariate shapes
const maxCorrelation = 1 - 1e-9

func correlation(rho float64) float64 {
	return mathx.Clamp(rho, -maxCorrelation, maxCorrelation)
}

func gaussian2D(s Spec, x, y float64) float64 {
	sx := width(s.FWHMX) / fwhmToSigma
	sy := width(s.FWHMY) / fwhmToSigma
	rho := correlation(s.Correlation)
	k := 1 - rho*rho

	amp := 1 / (2 * math.Pi * sx * sy * math.Sqrt(k))
	u := (x - s.PosX) / sx
	v := (y - s.PosY) / sy
	return amp * math.Exp(-(u*u-2*rho*u*v+v*v)/(2*k))
}

// lorentz2D is symmetric in X and Y and uses the X FWHM
func lorentz2D(s Spec, x, y float64) float64 {
	gamma := width(s.FWHMX) / 2
	dx := x - s.PosX
	dy := y - s.PosY
	return (1 / (2 * math.Pi)) * (gamma / math.Pow(dx*dx+dy*dy+gamma*gamma, 1.5))
}

// pseudoVoigt2D mixes the bivariate Gaussian and the symmetric Lorentzian.
// The mixing ratio is derived from the mean of the X and Y FWHM.
func pseudoVoigt2D(s Spec, x, y float64) float64 {
	avg := (width(s.FWHMX) + width(s.FWHMY)) / 2
	eta := voigtEta(avg, avg)
	return (1-eta)*gaussian2D(s, x, y) + eta*lorentz2D(s, x, y)
}

// laplace2D approximates the bivariate Laplace distribution with a decaying
// exponential of the Mahalanobis distance, avoiding the Bessel function.
func laplace2D(s Spec, x, y float64) float64 {
	sx := math.Sqrt2 * (width(s.FWHMX) / fwhmToB)
	sy := math.Sqrt2 * (width(s.FWHMY) / fwhmToB)
	rho := correlation(s.Correlation)
	k := 1 - rho*rho

	amp := 1 / (math.Pi * sx * sy * math.Sqrt(k))
	u := (x - s.PosX) / sx
	v := (y - s.PosY) / sy
	return amp * math.Exp(-math.Sqrt(2*(u*u-2*rho*u*v+v*v)/k))
}

func pyramid2D(s Spec, x, y float64) float64 {
	b := 1 / width(s.FWHMX)
	c := 1 / width(s.FWHMY)
	if x > math.Trunc(s.PosX) {
		b = -b
	}
	if y > math.Trunc(s.PosY) {
		c = -c
	}
	return math.Max(0, 1+b*(x-s.PosX)+c*(y-s.PosY))
}

// cone2D is an elliptical cone with semi-axes equal to the X and Y FWHM and
// a height of their sum.
func cone2D(s Spec, x, y float64) float64 {
	wx := width(s.FWHMX)
	wy := width(s.FWHMY)
	peak := wx + wy

	dx := x - s.PosX
	dy := y - s.PosY
	d := math.Sqrt(dx*dx + dy*dy)
	if d == 0 {
		return peak
	}
	theta := math.Asin(dy / d)
	a := wy * math.Cos(theta)
	b := wx * math.Sin(theta)
	r := (wx * wy) / math.Sqrt(a*a+b*b)
	return math.Max(0, (r-d)*(peak/r))
}

func square2D(s Spec, x, y float64) float64 {
	return square(s.PosX, s.FWHMX, x) * square(s.PosY, s.FWHMY, y)
}

// moffat2D is symmetric in X and Y and uses the X FWHM
func moffat2D(s Spec, x, y float64) float64 {
	beta := mathx.ZeroGuard(s.Param1)
	a2 := moffatAlpha(s.FWHMX, beta)
	a2 *= a2
	dx := x - s.PosX
	dy := y - s.PosY
	return ((beta - 1) / (math.Pi * a2)) * math.Pow(1+(dx*dx+dy*dy)/a2, -beta)
}

func smoothStep2D(s Spec, x, y float64) float64 {
	t := (ramp(s.PosX, s.FWHMX, x) + ramp(s.PosY, s.FWHMY, y)) / 2
	return smootherstep(t)
}
