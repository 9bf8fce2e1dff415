package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/softbody"
)

// SweepPoint is the response of the body for one stiffness value.
type SweepPoint struct {
	K         float64
	Frequency float64
	Amplitude float64
	Damping   float64
	// Values are the distinct tip heights seen after the transient.
	Values []float64
}

// SweepOptions control StiffnessSweep. The mode is applied for the first
// Kick frames, then released, so the bar rings freely afterwards.
type SweepOptions struct {
	Solver    softbody.Options
	Mode      softbody.ForceMode
	Kick      int
	Transient int
	Record    int
}

// StiffnessSweep runs the model once per stiffness value and records the
// tip response after the transient.
func StiffnessSweep(ctx context.Context, model *mesh.Model, ks []float64, o SweepOptions) ([]SweepPoint, error) {
	results := make([]SweepPoint, 0, len(ks))
	for _, k := range ks {
		opts := o.Solver
		opts.Params.Stiffness = k
		p, err := Ring(ctx, model, opts, o)
		if err != nil {
			return results, fmt.Errorf("k=%g: %w", k, err)
		}
		results = append(results, p)
	}
	return results, nil
}

// Ring builds a fresh solver from opts, holds o.Mode for the first o.Kick
// frames and measures the tip after o.Transient frames. o.Solver is
// ignored.
func Ring(ctx context.Context, model *mesh.Model, opts softbody.Options, o SweepOptions) (SweepPoint, error) {
	solver, err := softbody.NewSolver(opts)
	if err != nil {
		return SweepPoint{}, err
	}
	if err := solver.Init(model.Volume.Vertices, model.Volume.Tetrahedra); err != nil {
		return SweepPoint{}, err
	}

	tip := make([]float64, 0, o.Record)
	var pos []r3.Vec
	for f := 0; f < o.Transient+o.Record; f++ {
		if err := ctx.Err(); err != nil {
			return SweepPoint{}, err
		}
		if f < o.Kick {
			solver.SetForceMode(o.Mode)
		} else {
			solver.SetForceMode(softbody.ForceNone)
		}
		if _, err := solver.Frame(); err != nil {
			return SweepPoint{}, err
		}
		if f >= o.Transient {
			pos = solver.Positions(pos)
			tip = append(tip, metrics.TipHeight(pos, solver.Topology()))
		}
	}

	s := metrics.Summarize(tip)
	return SweepPoint{
		K:         opts.Params.Stiffness,
		Frequency: DominantFrequency(tip, opts.Params.FrameDt),
		Amplitude: s.Span() / 2,
		Damping:   DampingRatio(tip),
		Values:    distinct(tip, 1e-3),
	}, nil
}

// LinearRange returns n evenly spaced values from lo to hi inclusive.
func LinearRange(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// distinct quantizes values to q and keeps the first of each bucket.
func distinct(values []float64, q float64) []float64 {
	seen := make(map[int64]bool)
	out := make([]float64, 0, 16)
	for _, v := range values {
		key := int64(math.Round(v / q))
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

// SweepToASCII plots the recorded tip heights against stiffness.
func SweepToASCII(data []SweepPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	foundFirst := false
	for _, p := range data {
		for _, v := range p.Values {
			if !foundFirst {
				minVal, maxVal = v, v
				foundFirst = true
				continue
			}
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if !foundFirst {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range data {
		col := i * width / len(data)
		if col >= width {
			col = width - 1
		}
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height {
				canvas[row][col] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
