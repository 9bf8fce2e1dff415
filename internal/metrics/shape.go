package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/softbody"
)

// TipHeight is the mean y of the controllable vertices, or of all free
// vertices when none are controllable.
func TipHeight(positions []r3.Vec, topo *softbody.Topology) float64 {
	sum, n := 0.0, 0
	for i, ok := range topo.Controllable {
		if ok {
			sum += positions[i].Y
			n++
		}
	}
	if n == 0 {
		for i, p := range positions {
			if !topo.Pinned[i] {
				sum += p.Y
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TipOffset is the horizontal distance of the controllable centroid from
// its rest position.
func TipOffset(positions []r3.Vec, topo *softbody.Topology) float64 {
	var now, rest r3.Vec
	n := 0
	for i, ok := range topo.Controllable {
		if ok {
			now = r3.Add(now, positions[i])
			rest = r3.Add(rest, topo.Rest[i])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	d := r3.Scale(1/float64(n), r3.Sub(now, rest))
	return math.Hypot(d.X, d.Z)
}

// MinHeight is the lowest y among free vertices.
func MinHeight(positions []r3.Vec, topo *softbody.Topology) float64 {
	lo := math.Inf(1)
	for i, p := range positions {
		if !topo.Pinned[i] {
			lo = math.Min(lo, p.Y)
		}
	}
	if math.IsInf(lo, 1) {
		return 0
	}
	return lo
}

// Penetration is how far the lowest free vertex is below the floor.
func Penetration(positions []r3.Vec, topo *softbody.Topology) float64 {
	return math.Max(0, -MinHeight(positions, topo))
}

// Tip reports the latest tip height.
type Tip struct {
	name   string
	height float64
}

func NewTip() *Tip { return &Tip{name: "tip_height"} }

func (t *Tip) Name() string              { return t.name }
func (t *Tip) Observe(s softbody.Sample) { t.height = TipHeight(s.Positions, s.Topology) }
func (t *Tip) Value() float64            { return t.height }
func (t *Tip) Reset()                    { t.height = 0 }

// MaxPenetration is the deepest floor penetration seen in a run.
type MaxPenetration struct {
	name  string
	depth float64
}

func NewMaxPenetration() *MaxPenetration { return &MaxPenetration{name: "max_penetration"} }

func (m *MaxPenetration) Name() string { return m.name }

func (m *MaxPenetration) Observe(s softbody.Sample) {
	m.depth = math.Max(m.depth, Penetration(s.Positions, s.Topology))
}

func (m *MaxPenetration) Value() float64 { return m.depth }
func (m *MaxPenetration) Reset()         { m.depth = 0 }

// Sanitized counts sanitized edges and velocities over a run.
type Sanitized struct {
	name  string
	count int64
}

func NewSanitized() *Sanitized { return &Sanitized{name: "sanitized"} }

func (c *Sanitized) Name() string              { return c.name }
func (c *Sanitized) Observe(s softbody.Sample) { c.count += s.Stats.Sanitized }
func (c *Sanitized) Value() float64            { return float64(c.count) }
func (c *Sanitized) Reset()                    { c.count = 0 }

// Defaults returns the metrics the run command reports.
func Defaults() []softbody.Metric {
	return []softbody.Metric{
		NewTip(),
		NewMaxPenetration(),
		NewEnergy(),
		NewEnergyDrift(),
		NewStability(1e3),
		NewControlEffort(),
		NewSanitized(),
	}
}
