package softbody

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ForceMode is the interactive force applied to controllable vertices.
type ForceMode uint8

const (
	ForceNone ForceMode = iota
	PushPlusX
	PushMinusX
	PushPlusY
	PushMinusY
	TorqueCCW
	TorqueCW
	numForceModes
)

// Magnitudes of the interactive forces.
const (
	PushSideways = 5.0
	PushUp       = 20.0
	PushDown     = 15.0
	TorqueScale  = 20.0
)

var forceModeNames = [numForceModes]string{
	ForceNone:  "none",
	PushPlusX:  "push+x",
	PushMinusX: "push-x",
	PushPlusY:  "push+y",
	PushMinusY: "push-y",
	TorqueCCW:  "torque-ccw",
	TorqueCW:   "torque-cw",
}

func (m ForceMode) String() string {
	if m < numForceModes {
		return forceModeNames[m]
	}
	return fmt.Sprintf("ForceMode(%d)", uint8(m))
}

func (m ForceMode) Valid() bool { return m < numForceModes }

func ParseForceMode(s string) (ForceMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ForceNone, nil
	}
	for m, name := range forceModeNames {
		if name == s {
			return ForceMode(m), nil
		}
	}
	return ForceNone, fmt.Errorf("%w: unknown force mode %q (want one of %s)",
		ErrParameterBounds, s, strings.Join(forceModeNames[:], ", "))
}

// AllForceModes lists the modes in declaration order.
func AllForceModes() []ForceMode {
	modes := make([]ForceMode, numForceModes)
	for i := range modes {
		modes[i] = ForceMode(i)
	}
	return modes
}

// Force returns the force the mode applies to a controllable vertex whose
// rest position projects to xz on the floor plane.
func (m ForceMode) Force(xz [2]float64) r3.Vec {
	x, z := xz[0], xz[1]
	switch m {
	case ForceNone:
		return r3.Vec{}
	case PushPlusX:
		return r3.Vec{X: PushSideways}
	case PushMinusX:
		return r3.Vec{X: -PushSideways}
	case PushPlusY:
		return r3.Vec{Y: PushUp}
	case PushMinusY:
		return r3.Vec{Y: -PushDown}
	case TorqueCCW:
		return r3.Vec{X: -TorqueScale * z, Z: TorqueScale * x}
	case TorqueCW:
		return r3.Vec{X: TorqueScale * z, Z: -TorqueScale * x}
	}
	return r3.Vec{}
}

// ForceField holds the external forces acting on every free vertex.
type ForceField struct {
	Gravity        r3.Vec
	FloorStiffness float64
}

// Acceleration returns gravity, the interactive force and the floor penalty
// for a vertex at p. Pinned vertices (invMass 0) get none.
func (f ForceField) Acceleration(p r3.Vec, invMass float64, mode ForceMode, controllable bool, xz [2]float64) r3.Vec {
	if invMass == 0 {
		return r3.Vec{}
	}
	a := f.Gravity
	if controllable {
		a = r3.Add(a, r3.Scale(invMass, mode.Force(xz)))
	}
	if p.Y < 0 {
		a.Y += -invMass * f.FloorStiffness * p.Y
	}
	return a
}
