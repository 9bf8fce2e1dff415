package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrMalformed indicates a record with the wrong field count or a non-numeric field.
	ErrMalformed = errors.New("mesh: malformed record")

	// ErrUnmatchedVertex indicates a surface vertex with no volume vertex within tolerance.
	ErrUnmatchedVertex = errors.New("mesh: unmatched surface vertex")

	// ErrEmpty indicates a mesh with no vertices or no elements.
	ErrEmpty = errors.New("mesh: no usable records")
)

// ParseError reports a bad record together with where it was found.
type ParseError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s (%q)", e.Source, e.Line, e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

// UnmatchedSurfaceVertexError is returned when a surface vertex cannot be
// paired with a volume vertex.
type UnmatchedSurfaceVertexError struct {
	Source   string
	Line     int
	Position r3.Vec
	// Distance to the closest volume vertex, or +Inf when the volume is empty.
	Distance float64
}

func (e *UnmatchedSurfaceVertexError) Error() string {
	return fmt.Sprintf("%s:%d: surface vertex (%g, %g, %g) has no volume vertex within tolerance (closest %g)",
		e.Source, e.Line, e.Position.X, e.Position.Y, e.Position.Z, e.Distance)
}

func (e *UnmatchedSurfaceVertexError) Unwrap() error { return ErrUnmatchedVertex }
