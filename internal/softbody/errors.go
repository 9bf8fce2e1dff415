package softbody

import (
	"errors"
	"fmt"
)

// Domain errors for solver operations.
var (
	// ErrNotReady indicates a step was requested before the topology was built.
	ErrNotReady = errors.New("softbody: solver not ready")

	// ErrBuildFailed indicates the topology build failed and the solver cannot start.
	ErrBuildFailed = errors.New("softbody: topology build failed")

	// ErrTopologyOverflow indicates a vertex has more edges than the neighbor table holds.
	ErrTopologyOverflow = errors.New("softbody: neighbor table overflow")

	// ErrDegenerateGeometry indicates a tetrahedron or edge without positive extent.
	ErrDegenerateGeometry = errors.New("softbody: degenerate geometry")

	// ErrNumericInstability indicates a near-zero edge or a non-finite velocity
	// was sanitized during a substep.
	ErrNumericInstability = errors.New("softbody: numeric instability")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("softbody: parameter out of valid bounds")
)

// TopologyOverflowError records one edge that did not fit in a vertex's row.
type TopologyOverflowError struct {
	Vertex   int
	Neighbor int
	Capacity int
}

func (e *TopologyOverflowError) Error() string {
	return fmt.Sprintf("softbody: vertex %d: edge to %d exceeds neighbor capacity %d", e.Vertex, e.Neighbor, e.Capacity)
}

func (e *TopologyOverflowError) Unwrap() error { return ErrTopologyOverflow }

// DegenerateGeometryError records a tetrahedron with non-positive volume or
// a zero-length edge. Edge is set only for the latter.
type DegenerateGeometryError struct {
	Tetrahedron int
	Volume      float64
	Edge        *[2]int
}

func (e *DegenerateGeometryError) Error() string {
	if e.Edge != nil {
		return fmt.Sprintf("softbody: tetrahedron %d: zero-length edge %d-%d", e.Tetrahedron, e.Edge[0], e.Edge[1])
	}
	return fmt.Sprintf("softbody: tetrahedron %d: non-positive volume %g", e.Tetrahedron, e.Volume)
}

func (e *DegenerateGeometryError) Unwrap() error { return ErrDegenerateGeometry }
