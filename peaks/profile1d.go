package peaks

import (
	"math"

	"github.com/nasa-jpl/simpeaks/mathx"
)

const (
	// fwhmToSigma is 2*sqrt(2*ln2), the ratio FWHM/sigma of a Gaussian
	fwhmToSigma = 2.3548200450309493

	// sqrt2Pi is sqrt(2*pi)
	sqrt2Pi = 2.5066282746310002

	// fwhmToB is 2*ln2, the ratio FWHM/b of a Laplace distribution
	fwhmToB = 1.3862943611198906

	// minFWHM is the smallest width any shape will use
	minFWHM = 1.0
)

// coefficients of the Thompson-Cox-Hastings pseudo-Voigt approximation
const (
	pvP1 = 2.69269
	pvP2 = 2.42843
	pvP3 = 4.47163
	pvP4 = 0.07842
	pvE1 = 1.36603
	pvE2 = 0.47719
	pvE3 = 0.11116
)

func width(w float64) float64 {
	return mathx.AtLeast(w, minFWHM)
}

func gaussian(p, w, x float64) float64 {
	sigma := width(w) / fwhmToSigma
	d := x - p
	return (1 / (sigma * sqrt2Pi)) * math.Exp(-(d*d)/(2*sigma*sigma))
}

func lorentz(p, w, x float64) float64 {
	gamma := width(w) / 2
	d := x - p
	return (1 / (math.Pi * gamma)) * ((gamma * gamma) / (d*d + gamma*gamma))
}

// voigtEta is the Lorentzian fraction of a pseudo-Voigt profile built from a
// Gaussian of FWHM wg and a Lorentzian of FWHM wl.
func voigtEta(wg, wl float64) float64 {
	sum := math.Pow(wg, 5) +
		pvP1*math.Pow(wg, 4)*wl +
		pvP2*math.Pow(wg, 3)*math.Pow(wl, 2) +
		pvP3*math.Pow(wg, 2)*math.Pow(wl, 3) +
		pvP4*wg*math.Pow(wl, 4) +
		math.Pow(wl, 5)
	r := wl / math.Pow(sum, 0.2)
	return pvE1*r - pvE2*r*r + pvE3*r*r*r
}

func pseudoVoigt(p, w, x float64) float64 {
	w = width(w)
	eta := voigtEta(w, w)
	return (1-eta)*gaussian(p, w, x) + eta*lorentz(p, w, x)
}

func laplace(p, w, x float64) float64 {
	b := width(w) / fwhmToB
	return (1 / (2 * b)) * math.Exp(-math.Abs(x-p)/b)
}

// triangle is an isosceles triangle of height 1.  The rising edge extends to
// the integer part of the center, inclusive.
func triangle(p, w, x float64) float64 {
	slope := 1 / width(w)
	if x > math.Trunc(p) {
		slope = -slope
	}
	return math.Max(0, 1+slope*(x-p))
}

func square(p, w, x float64) float64 {
	w = width(w)
	if x > math.Trunc(p-w/2) && x <= math.Trunc(p+w/2) {
		return 1
	}
	return 0
}

// moffatAlpha derives the Moffat core width from the FWHM and beta
func moffatAlpha(w, beta float64) float64 {
	return width(w) / (2 * math.Sqrt(math.Pow(2, 1/beta)-1))
}

func moffat(p, w, beta, x float64) float64 {
	beta = mathx.ZeroGuard(beta)
	a2 := moffatAlpha(w, beta)
	a2 *= a2
	d := x - p
	return ((beta - 1) / (math.Pi * a2)) * math.Pow(1+(d*d)/a2, -beta)
}

// ramp is the fraction of the way x is through a step of width w centered on p
func ramp(p, w, x float64) float64 {
	w = width(w)
	return mathx.Clamp((x-(p-w/2))/w, 0, 1)
}

func smootherstep(t float64) float64 {
	return t * t * t * (t*(6*t-15) + 10)
}

func smoothStep(p, w, x float64) float64 {
	return smootherstep(ramp(p, w, x))
}
