package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/softbody"
)

// KineticEnergy sums ½m|v|² over free vertices; pinned vertices have no mass.
func KineticEnergy(velocities []r3.Vec, invMass []float64) float64 {
	e := 0.0
	for i, v := range velocities {
		if w := invMass[i]; w > 0 {
			e += 0.5 * r3.Norm2(v) / w
		}
	}
	return e
}

// ElasticEnergy sums ½k(len-rest)² over the stored edges. Each undirected
// edge lives in both endpoint rows, so every row entry carries half of it.
func ElasticEnergy(positions []r3.Vec, topo *softbody.Topology, k float64) float64 {
	e := 0.0
	for i := range positions {
		for _, edge := range topo.Neighbors.Row(i) {
			d := r3.Norm(r3.Sub(positions[i], positions[edge.Neighbor])) - edge.RestLength
			e += 0.25 * k * d * d
		}
	}
	return e
}

// GravityEnergy is the potential of free vertices in the gravity field,
// zero at the origin.
func GravityEnergy(positions []r3.Vec, invMass []float64, gravity r3.Vec) float64 {
	e := 0.0
	for i, p := range positions {
		if w := invMass[i]; w > 0 {
			e -= r3.Dot(gravity, p) / w
		}
	}
	return e
}

// FloorEnergy is the potential stored in the floor penalty, ½kc·y² per
// vertex below the floor.
func FloorEnergy(positions []r3.Vec, invMass []float64, kc float64) float64 {
	e := 0.0
	for i, p := range positions {
		if p.Y < 0 && invMass[i] > 0 {
			e += 0.5 * kc * p.Y * p.Y
		}
	}
	return e
}

// PotentialEnergy is the elastic, gravity and floor potential of a sample.
func PotentialEnergy(s softbody.Sample) float64 {
	return ElasticEnergy(s.Positions, s.Topology, s.Params.Stiffness) +
		GravityEnergy(s.Positions, s.Topology.InvMass, s.Params.Gravity) +
		FloorEnergy(s.Positions, s.Topology.InvMass, s.Params.FloorStiffness)
}

// TotalEnergy is kinetic plus potential energy.
func TotalEnergy(s softbody.Sample) float64 {
	return KineticEnergy(s.Velocities, s.Topology.InvMass) + PotentialEnergy(s)
}

type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s softbody.Sample) {
	e.totalEnergy += TotalEnergy(s)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift tracks the largest relative deviation from the first
// observed total energy.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s softbody.Sample) {
	energy := TotalEnergy(s)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
