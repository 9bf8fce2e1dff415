package softbody

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// MinEdgeLength is the distance below which an edge has no usable
// direction; such edges are skipped for the substep.
const MinEdgeLength = 1e-9

// controls are the user inputs latched for one frame.
type controls struct {
	mode      ForceMode
	stiffness float64
}

// kernel holds everything a substep reads besides the particle buffer.
type kernel struct {
	topo    *Topology
	field   ForceField
	damping float64
	dt      float64
	workers int
}

// substep runs the velocity pass then the position pass into the alternate
// generation. The caller swaps afterwards. It returns the number of
// sanitized edges and velocities.
func (k *kernel) substep(buf *ParticleBuffer, c controls) int64 {
	cur := buf.Read(buf.Current())
	next := buf.WriteAlternate()
	n := cur.Len()

	var sanitized atomic.Int64
	ParallelFor(n, k.workers, parallelThreshold, func(start, end int) {
		if s := k.velocityPass(cur, next, c, start, end); s > 0 {
			sanitized.Add(s)
		}
	})
	ParallelFor(n, k.workers, parallelThreshold, func(start, end int) {
		k.positionPass(cur, next, start, end)
	})
	return sanitized.Load()
}

// velocityPass computes v' = v + dt*dv for vertices in [start, end).
func (k *kernel) velocityPass(cur ReadView, next WriteView, c controls, start, end int) int64 {
	var sanitized int64
	topo := k.topo
	for i := start; i < end; i++ {
		w := topo.InvMass[i]
		p := cur.Position(i)
		v := cur.Velocity(i)

		dv := r3.Vec{}
		if w > 0 {
			for _, e := range topo.Neighbors.Row(i) {
				grad := r3.Sub(p, cur.Position(e.Neighbor))
				length := r3.Norm(grad)
				if length < MinEdgeLength {
					sanitized++
					continue
				}
				dir := r3.Scale(1/length, grad)
				rel := r3.Sub(v, cur.Velocity(e.Neighbor))
				spring := -w * c.stiffness * (length - e.RestLength)
				damper := -w * k.damping * r3.Dot(dir, rel)
				dv = r3.Add(dv, r3.Scale(spring+damper, dir))
			}
		}
		dv = r3.Add(dv, k.field.Acceleration(p, w, c.mode, topo.Controllable[i], topo.ControlXZ[i]))

		nv := r3.Add(v, r3.Scale(k.dt, dv))
		if !finite(nv) {
			nv = r3.Vec{}
			sanitized++
		}
		next.SetVelocity(i, nv)
	}
	return sanitized
}

// positionPass advances free vertices with the velocity written by the
// velocity pass; pinned vertices keep their position.
func (k *kernel) positionPass(cur ReadView, next WriteView, start, end int) {
	for i := start; i < end; i++ {
		p := cur.Position(i)
		if k.topo.InvMass[i] > 0 {
			p = r3.Add(p, r3.Scale(k.dt, next.Velocity(i)))
		}
		next.SetPosition(i, p)
	}
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
