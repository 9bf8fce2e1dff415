package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultTolerance is the largest distance at which a surface vertex is
// considered to coincide with a volume vertex.
const DefaultTolerance = 1e-3

// vertexPoint is a volume vertex stored in the k-d tree.
type vertexPoint struct {
	id  int
	pos r3.Vec
}

func (p vertexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertexPoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	case 2:
		return p.pos.Z - q.pos.Z
	}
	panic("mesh: illegal dimension")
}

func (p vertexPoint) Dims() int { return 3 }

// Distance returns the squared euclidean distance.
func (p vertexPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.pos, c.(vertexPoint).pos))
}

type vertexPoints []vertexPoint

func (p vertexPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p vertexPoints) Len() int                      { return len(p) }
func (p vertexPoints) Pivot(d kdtree.Dim) int        { return vertexPlane{Dim: d, vertexPoints: p}.Pivot() }
func (p vertexPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

type vertexPlane struct {
	kdtree.Dim
	vertexPoints
}

func (p vertexPlane) Less(i, j int) bool {
	return p.vertexPoints[i].Compare(p.vertexPoints[j], p.Dim) < 0
}
func (p vertexPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p vertexPlane) Slice(start, end int) kdtree.SortSlicer {
	p.vertexPoints = p.vertexPoints[start:end]
	return p
}
func (p vertexPlane) Swap(i, j int) {
	p.vertexPoints[i], p.vertexPoints[j] = p.vertexPoints[j], p.vertexPoints[i]
}

// Matcher finds the volume vertex closest to a query point.
type Matcher struct {
	tree *kdtree.Tree
	tol  float64
}

// NewMatcher indexes vertices for nearest-neighbour queries with the given
// tolerance. A non-positive tolerance selects DefaultTolerance.
func NewMatcher(vertices []r3.Vec, tol float64) *Matcher {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	m := &Matcher{tol: tol}
	if len(vertices) == 0 {
		return m
	}
	pts := make(vertexPoints, len(vertices))
	for i, v := range vertices {
		pts[i] = vertexPoint{id: i, pos: v}
	}
	m.tree = kdtree.New(pts, false)
	return m
}

// Match returns the id of the nearest vertex and its distance. ok is false
// when the nearest vertex is farther than the tolerance.
func (m *Matcher) Match(p r3.Vec) (id int, dist float64, ok bool) {
	if m.tree == nil {
		return -1, math.Inf(1), false
	}
	c, d2 := m.tree.Nearest(vertexPoint{id: -1, pos: p})
	if c == nil {
		return -1, math.Inf(1), false
	}
	dist = math.Sqrt(d2)
	return c.(vertexPoint).id, dist, dist < m.tol
}
