package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/softbody"
)

// ControlEffort is the mean magnitude of the interactive force summed over
// controllable vertices, per frame.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s softbody.Sample) {
	c.samples++
	if s.Stats.Mode == softbody.ForceNone {
		return
	}
	topo := s.Topology
	for i, ok := range topo.Controllable {
		if ok && topo.InvMass[i] > 0 {
			c.sum += r3.Norm(s.Stats.Mode.Force(topo.ControlXZ[i]))
		}
	}
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
