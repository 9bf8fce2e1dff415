package metrics

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/softbody"
)

func springSample(t *testing.T, positions, velocities []r3.Vec) softbody.Sample {
	t.Helper()
	opts := softbody.DefaultTopologyOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	rest := []r3.Vec{{X: 0, Y: 2}, {X: 1, Y: 2}}
	topo, err := softbody.BuildSpringTopology(rest, []float64{0.5, 0.5}, [][2]int{{0, 1}}, opts)
	if err != nil {
		t.Fatal(err)
	}
	params := softbody.DefaultParams()
	params.Stiffness = 100
	return softbody.Sample{Positions: positions, Velocities: velocities, Topology: topo, Params: params}
}

func TestEnergyTerms(t *testing.T) {
	s := springSample(t,
		[]r3.Vec{{X: 0, Y: 2}, {X: 1.5, Y: 2}},
		[]r3.Vec{{X: 1}, {Y: 2}},
	)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		// masses are 2 each
		{"kinetic", KineticEnergy(s.Velocities, s.Topology.InvMass), 0.5*2*1 + 0.5*2*4},
		{"elastic", ElasticEnergy(s.Positions, s.Topology, 100), 0.5 * 100 * 0.25},
		{"gravity", GravityEnergy(s.Positions, s.Topology.InvMass, softbody.DefaultGravity), 2 * 9.8 * 2 * 2},
		{"floor", FloorEnergy(s.Positions, s.Topology.InvMass, 1000), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, tt.got)
			}
		})
	}

	total := TotalEnergy(s)
	want := tests[0].want + tests[1].want + tests[2].want
	if math.Abs(total-want) > 1e-9 {
		t.Errorf("expected total %f, got %f", want, total)
	}
}

func TestFloorEnergy(t *testing.T) {
	e := FloorEnergy([]r3.Vec{{Y: -0.1}, {Y: 1}, {Y: -0.2}}, []float64{1, 1, 0}, 1000)
	if math.Abs(e-5) > 1e-9 {
		t.Errorf("expected 5, got %f", e)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy()
	s := springSample(t, []r3.Vec{{X: 0, Y: 2}, {X: 1, Y: 2}}, []r3.Vec{{X: 1}, {}})

	m.Observe(s)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("expected 0 after reset, got %f", m.Value())
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()
	m.Observe(springSample(t, []r3.Vec{{X: 0, Y: 2}, {X: 1, Y: 2}}, []r3.Vec{{}, {}}))
	if m.Value() != 0 {
		t.Errorf("expected no drift after one sample, got %f", m.Value())
	}

	// Lift one vertex by 0.5: gravity energy grows by 2*9.8*0.5 and the
	// spring stretches.
	m.Observe(springSample(t, []r3.Vec{{X: 0, Y: 2}, {X: 1, Y: 2.5}}, []r3.Vec{{}, {}}))
	if m.Value() <= 0 {
		t.Errorf("expected positive drift, got %f", m.Value())
	}
}
