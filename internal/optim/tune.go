package optim

import (
	"context"
	"math"

	"github.com/san-kum/softsim/internal/analysis"
	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/softbody"
)

// Target is the ringing the tuner looks for. A negative Damping leaves the
// damping ratio out of the score.
type Target struct {
	Frequency float64
	Damping   float64
}

// Score is the relative frequency error plus the absolute damping error.
func (t Target) Score(p analysis.SweepPoint) float64 {
	if p.Frequency == 0 {
		return math.Inf(1)
	}
	s := math.Abs(p.Frequency-t.Frequency) / t.Frequency
	if t.Damping >= 0 {
		s += math.Abs(p.Damping - t.Damping)
	}
	return s
}

// RingObjective rings the model with the k and kd of each grid point and
// scores the response against target. Parameters not in the grid keep
// their value from base.
func RingObjective(model *mesh.Model, base softbody.Options, ring analysis.SweepOptions, target Target) Objective {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		opts := base
		if k, ok := params["k"]; ok {
			opts.Params.Stiffness = k
		}
		if kd, ok := params["kd"]; ok {
			opts.Params.Damping = kd
		}
		// grid points already run in parallel
		opts.Workers = 1
		p, err := analysis.Ring(ctx, model, opts, ring)
		if err != nil {
			return 0, err
		}
		return target.Score(p), nil
	}
}
