package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Bin is one frequency bin of a spectrum.
type Bin struct {
	Frequency float64
	Power     float64
}

// Spectrum returns the one-sided power spectrum of a series sampled every
// dt seconds. The mean is removed and a Hann window applied first. Bin 0
// (DC) is omitted.
func Spectrum(series []float64, dt float64) []Bin {
	n := len(series)
	if n < 4 || dt <= 0 {
		return nil
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	windowed := make([]float64, n)
	for i, v := range series {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
	}
	coeffs := fft.FFTReal(windowed)

	bins := make([]Bin, 0, n/2)
	for k := 1; k <= n/2; k++ {
		mag := cmplx.Abs(coeffs[k])
		bins = append(bins, Bin{
			Frequency: float64(k) / (float64(n) * dt),
			Power:     mag * mag / float64(n),
		})
	}
	return bins
}

// DominantFrequency returns the frequency of the strongest bin, refined by
// parabolic interpolation over its neighbours. It returns 0 when the
// series is flat.
func DominantFrequency(series []float64, dt float64) float64 {
	bins := Spectrum(series, dt)
	if len(bins) == 0 {
		return 0
	}
	best := 0
	for i, b := range bins {
		if b.Power > bins[best].Power {
			best = i
		}
	}
	if bins[best].Power == 0 {
		return 0
	}
	f := bins[best].Frequency
	if best == 0 || best == len(bins)-1 {
		return f
	}
	a, b, c := bins[best-1].Power, bins[best].Power, bins[best+1].Power
	den := a - 2*b + c
	if den == 0 {
		return f
	}
	step := bins[1].Frequency - bins[0].Frequency
	return f + 0.5*(a-c)/den*step
}

// PowerSpectrum returns the magnitudes of the first half of the spectrum.
func PowerSpectrum(data []float64) []float64 {
	coeffs := fft.FFTReal(data)
	ps := make([]float64, len(coeffs)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}
