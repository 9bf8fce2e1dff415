package softbody

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultStiffness      = 200.0
	DefaultDamping        = 0.001
	DefaultFloorStiffness = 1000.0
	DefaultFrameDt        = 1.0 / 60.0
	DefaultSubsteps       = 150
)

// DefaultGravity points down the y axis.
var DefaultGravity = r3.Vec{X: 0, Y: -9.8, Z: 0}

// Params are the simulation constants. Stiffness may also be changed at run
// time through Solver.SetStiffness.
type Params struct {
	Stiffness      float64 // k
	Damping        float64 // kd
	FloorStiffness float64 // kc
	Gravity        r3.Vec
	FrameDt        float64
	Substeps       int
}

func DefaultParams() Params {
	return Params{
		Stiffness:      DefaultStiffness,
		Damping:        DefaultDamping,
		FloorStiffness: DefaultFloorStiffness,
		Gravity:        DefaultGravity,
		FrameDt:        DefaultFrameDt,
		Substeps:       DefaultSubsteps,
	}
}

// SubstepDt is the integration step used by the kernels.
func (p Params) SubstepDt() float64 {
	return p.FrameDt / float64(p.Substeps)
}

func (p Params) Validate() error {
	switch {
	case p.FrameDt <= 0:
		return fmt.Errorf("%w: frame dt must be positive, got %g", ErrParameterBounds, p.FrameDt)
	case p.Substeps <= 0:
		return fmt.Errorf("%w: substeps must be positive, got %d", ErrParameterBounds, p.Substeps)
	case p.Stiffness < 0:
		return fmt.Errorf("%w: stiffness must not be negative, got %g", ErrParameterBounds, p.Stiffness)
	case p.Damping < 0:
		return fmt.Errorf("%w: damping must not be negative, got %g", ErrParameterBounds, p.Damping)
	case p.FloorStiffness < 0:
		return fmt.Errorf("%w: floor stiffness must not be negative, got %g", ErrParameterBounds, p.FloorStiffness)
	}
	return nil
}
