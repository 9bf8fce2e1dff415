package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes one series of a run.
type Summary struct {
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
	Final float64
}

// Summarize returns the zero Summary for an empty series.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Mean:  mean,
		Std:   std,
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
		Final: xs[len(xs)-1],
	}
}

// Span is Max - Min.
func (s Summary) Span() float64 { return s.Max - s.Min }

// RelativeDrift is the largest relative deviation of xs from its first
// value.
func RelativeDrift(xs []float64) float64 {
	if len(xs) == 0 || xs[0] == 0 {
		return 0
	}
	dev := make([]float64, len(xs))
	copy(dev, xs)
	floats.AddConst(-xs[0], dev)
	return math.Max(math.Abs(floats.Min(dev)), math.Abs(floats.Max(dev))) / math.Abs(xs[0])
}
