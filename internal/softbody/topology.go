package softbody

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/softsim/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// EdgeDedup selects which edges a new constraint is checked against.
type EdgeDedup int

const (
	// DedupPerVertex skips an edge already present anywhere in the vertex's row.
	DedupPerVertex EdgeDedup = iota
	// DedupPerTetrahedron skips an edge only if the same tetrahedron already
	// added it, so an edge shared by k tetrahedra is stored k times.
	DedupPerTetrahedron
)

func (d EdgeDedup) String() string {
	switch d {
	case DedupPerVertex:
		return "per_vertex"
	case DedupPerTetrahedron:
		return "per_tetrahedron"
	}
	return fmt.Sprintf("EdgeDedup(%d)", int(d))
}

func ParseEdgeDedup(s string) (EdgeDedup, error) {
	switch s {
	case "", "per_vertex":
		return DedupPerVertex, nil
	case "per_tetrahedron":
		return DedupPerTetrahedron, nil
	}
	return 0, fmt.Errorf("%w: unknown edge dedup %q", ErrParameterBounds, s)
}

// OverflowPolicy decides what happens when a row is full.
type OverflowPolicy int

const (
	// OverflowTruncate keeps the first edges up to capacity and reports the rest.
	OverflowTruncate OverflowPolicy = iota
	// OverflowFail aborts the build on the first overflow.
	OverflowFail
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowTruncate:
		return "truncate"
	case OverflowFail:
		return "fail"
	}
	return fmt.Sprintf("OverflowPolicy(%d)", int(p))
}

func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "", "truncate":
		return OverflowTruncate, nil
	case "fail":
		return OverflowFail, nil
	}
	return 0, fmt.Errorf("%w: unknown overflow policy %q", ErrParameterBounds, s)
}

const (
	DefaultPinBelow     = 0.0
	DefaultControlAbove = 9.99
)

type TopologyOptions struct {
	Capacity     int
	PinBelow     float64
	ControlAbove float64
	Dedup        EdgeDedup
	Overflow     OverflowPolicy
	Logger       *slog.Logger
}

func DefaultTopologyOptions() TopologyOptions {
	return TopologyOptions{
		Capacity:     DefaultCapacity,
		PinBelow:     DefaultPinBelow,
		ControlAbove: DefaultControlAbove,
	}
}

// Diagnostics collects the non-fatal findings of a build.
type Diagnostics struct {
	Overflows  []*TopologyOverflowError
	Degenerate []*DegenerateGeometryError
}

// Err joins all findings, or returns nil when there are none.
func (d Diagnostics) Err() error {
	errs := make([]error, 0, len(d.Overflows)+len(d.Degenerate))
	for _, e := range d.Overflows {
		errs = append(errs, e)
	}
	for _, e := range d.Degenerate {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

func (d Diagnostics) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("overflows", len(d.Overflows)),
		slog.Int("degenerate", len(d.Degenerate)),
	)
}

// Topology is the immutable constraint graph and mass distribution.
type Topology struct {
	Rest         []r3.Vec
	InvMass      []float64
	Pinned       []bool
	Controllable []bool
	// ControlXZ holds the rest (x, z) of controllable vertices.
	ControlXZ   [][2]float64
	Neighbors   *NeighborTable
	Diagnostics Diagnostics
}

func (t *Topology) Len() int { return len(t.Rest) }

// BuildTopology derives inverse masses and edge constraints from a
// tetrahedral mesh.
func BuildTopology(vertices []r3.Vec, tetrahedra [][4]int, opts TopologyOptions) (*Topology, error) {
	topo, err := newTopology(vertices, opts)
	if err != nil {
		return nil, err
	}
	n := len(vertices)
	for ti, tet := range tetrahedra {
		for _, id := range tet {
			if id < 0 || id >= n {
				return nil, fmt.Errorf("tetrahedron %d: vertex %d out of range [0, %d): %w", ti, id, n, ErrDegenerateGeometry)
			}
		}
		p := [4]r3.Vec{vertices[tet[0]], vertices[tet[1]], vertices[tet[2]], vertices[tet[3]]}
		vol := mesh.SignedVolume(p[0], p[1], p[2], p[3])
		w := 0.0
		if vol > 0 {
			w = 1 / (vol / 4)
		} else {
			topo.Diagnostics.Degenerate = append(topo.Diagnostics.Degenerate, &DegenerateGeometryError{Tetrahedron: ti, Volume: vol})
		}

		for j := 0; j < 4; j++ {
			vi := tet[j]
			topo.InvMass[vi] += w
			rowStart := topo.Neighbors.Len(vi)
			for l := 0; l < 3; l++ {
				vj := tet[(j+l+1)%4]
				if vj == vi || topo.registered(vi, vj, rowStart, opts.Dedup) {
					continue
				}
				length := r3.Norm(r3.Sub(vertices[vi], vertices[vj]))
				if !(length > 0) {
					topo.Diagnostics.Degenerate = append(topo.Diagnostics.Degenerate,
						&DegenerateGeometryError{Tetrahedron: ti, Volume: vol, Edge: &[2]int{vi, vj}})
					continue
				}
				if err := topo.Neighbors.Add(vi, Edge{Neighbor: vj, RestLength: length}); err != nil {
					var overflow *TopologyOverflowError
					if !errors.As(err, &overflow) {
						return nil, err
					}
					if opts.Overflow == OverflowFail {
						return nil, fmt.Errorf("tetrahedron %d: %w", ti, err)
					}
					topo.Diagnostics.Overflows = append(topo.Diagnostics.Overflows, overflow)
				}
			}
		}
	}
	topo.classify(opts)
	topo.report(logger(opts.Logger), len(tetrahedra))
	return topo, nil
}

// BuildSpringTopology builds a topology from explicit edges and masses,
// for meshes that are not tetrahedral (ropes, test rigs).
func BuildSpringTopology(vertices []r3.Vec, invMass []float64, edges [][2]int, opts TopologyOptions) (*Topology, error) {
	if len(invMass) != len(vertices) {
		return nil, fmt.Errorf("%w: %d inverse masses for %d vertices", ErrParameterBounds, len(invMass), len(vertices))
	}
	topo, err := newTopology(vertices, opts)
	if err != nil {
		return nil, err
	}
	for i, w := range invMass {
		if w < 0 {
			return nil, fmt.Errorf("%w: vertex %d has negative inverse mass %g", ErrParameterBounds, i, w)
		}
		topo.InvMass[i] = w
	}
	n := len(vertices)
	for ei, e := range edges {
		a, b := e[0], e[1]
		if a < 0 || a >= n || b < 0 || b >= n || a == b {
			return nil, fmt.Errorf("%w: edge %d (%d-%d) is invalid", ErrParameterBounds, ei, a, b)
		}
		length := r3.Norm(r3.Sub(vertices[a], vertices[b]))
		if !(length > 0) {
			return nil, fmt.Errorf("edge %d: %w", ei, &DegenerateGeometryError{Tetrahedron: -1, Edge: &[2]int{a, b}})
		}
		for _, pair := range [][2]int{{a, b}, {b, a}} {
			if opts.Dedup == DedupPerVertex && topo.Neighbors.Contains(pair[0], pair[1]) {
				continue
			}
			if err := topo.Neighbors.Add(pair[0], Edge{Neighbor: pair[1], RestLength: length}); err != nil {
				if opts.Overflow == OverflowFail {
					return nil, err
				}
				topo.Diagnostics.Overflows = append(topo.Diagnostics.Overflows, err.(*TopologyOverflowError))
			}
		}
	}
	topo.classify(opts)
	topo.report(logger(opts.Logger), 0)
	return topo, nil
}

func newTopology(vertices []r3.Vec, opts TopologyOptions) (*Topology, error) {
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("%w: neighbor capacity must be positive, got %d", ErrParameterBounds, opts.Capacity)
	}
	n := len(vertices)
	rest := make([]r3.Vec, n)
	copy(rest, vertices)
	return &Topology{
		Rest:         rest,
		InvMass:      make([]float64, n),
		Pinned:       make([]bool, n),
		Controllable: make([]bool, n),
		ControlXZ:    make([][2]float64, n),
		Neighbors:    NewNeighborTable(n, opts.Capacity),
	}, nil
}

func (t *Topology) registered(vi, vj, rowStart int, dedup EdgeDedup) bool {
	row := t.Neighbors.Row(vi)
	if dedup == DedupPerTetrahedron {
		row = row[rowStart:]
	}
	return containsNeighbor(row, vj)
}

func (t *Topology) classify(opts TopologyOptions) {
	for i, p := range t.Rest {
		if p.Y < opts.PinBelow {
			t.Pinned[i] = true
			t.InvMass[i] = 0
		}
		if p.Y > opts.ControlAbove {
			t.Controllable[i] = true
			t.ControlXZ[i] = [2]float64{p.X, p.Z}
		}
	}
}

func (t *Topology) report(log *slog.Logger, tetrahedra int) {
	pinned, controllable := 0, 0
	for i := range t.Rest {
		if t.Pinned[i] {
			pinned++
		}
		if t.Controllable[i] {
			controllable++
		}
	}
	log.Info("topology built",
		"vertices", len(t.Rest),
		"tetrahedra", tetrahedra,
		"edges", t.Neighbors.EdgeCount(),
		"pinned", pinned,
		"controllable", controllable,
	)
	if n := len(t.Diagnostics.Overflows); n > 0 {
		first := t.Diagnostics.Overflows[0]
		log.Warn("neighbor table overflow, excess edges dropped",
			"count", n, "capacity", first.Capacity, "first_vertex", first.Vertex)
	}
	if n := len(t.Diagnostics.Degenerate); n > 0 {
		log.Warn("degenerate geometry, zero mass contribution",
			"count", n, "first", t.Diagnostics.Degenerate[0].Error())
	}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
