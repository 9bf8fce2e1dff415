package softbody

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/mesh"
)

// Renderer receives the vertex positions after every frame.
type Renderer interface {
	SetPositions(positions []r3.Vec)
	RecomputeNormals()
}

// ModelSetter is implemented by renderers that need the loaded mesh before
// the first frame.
type ModelSetter interface {
	SetModel(m *mesh.Model)
}

// Sample is the state handed to metrics and observers after a frame. The
// slices are copies owned by the receiver of the frame.
type Sample struct {
	Stats      FrameStats
	Positions  []r3.Vec
	Velocities []r3.Vec
	Topology   *Topology
	Params     Params
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(s Sample)
}

// Scheduler drives one solver frame per animation tick once the mesh gate
// has resolved.
type Scheduler struct {
	solver    *Solver
	gate      *mesh.Gate
	renderer  Renderer
	metrics   []Metric
	observers []Observer

	model   *mesh.Model
	initErr error
}

// NewScheduler wires a solver to a load gate. renderer may be nil.
func NewScheduler(solver *Solver, gate *mesh.Gate, renderer Renderer) *Scheduler {
	return &Scheduler{solver: solver, gate: gate, renderer: renderer}
}

func (s *Scheduler) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Scheduler) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Scheduler) Solver() *Solver    { return s.solver }
func (s *Scheduler) Model() *mesh.Model { return s.model }

// Ready reports whether the solver has been built.
func (s *Scheduler) Ready() bool { return s.solver.State() != StateUninitialized }

func (s *Scheduler) init() error {
	if s.initErr != nil {
		return s.initErr
	}
	m, ok, err := s.gate.Poll()
	if !ok {
		return ErrNotReady
	}
	if err != nil {
		s.initErr = fmt.Errorf("%w: %w", ErrBuildFailed, err)
		return s.initErr
	}
	if err := s.solver.Init(m.Volume.Vertices, m.Volume.Tetrahedra); err != nil {
		s.initErr = err
		return err
	}
	s.model = m
	if ms, ok := s.renderer.(ModelSetter); ok {
		ms.SetModel(m)
	}
	for _, mt := range s.metrics {
		mt.Reset()
	}
	return nil
}

// Tick runs one whole frame. It returns ErrNotReady without doing anything
// while the mesh is still loading, and the build error if the build failed.
func (s *Scheduler) Tick(ctx context.Context) (FrameStats, error) {
	if err := ctx.Err(); err != nil {
		return FrameStats{}, err
	}
	if s.solver.State() == StateUninitialized {
		if err := s.init(); err != nil {
			return FrameStats{}, err
		}
	}

	stats, err := s.solver.Frame()
	if err != nil {
		return stats, err
	}

	positions := s.solver.Positions(nil)
	if s.renderer != nil {
		s.renderer.SetPositions(positions)
		s.renderer.RecomputeNormals()
	}

	if len(s.metrics) == 0 && len(s.observers) == 0 {
		return stats, nil
	}
	sample := Sample{
		Stats:      stats,
		Positions:  s.solver.Positions(nil),
		Velocities: s.solver.Velocities(nil),
		Topology:   s.solver.Topology(),
		Params:     s.solver.Params(),
	}
	sample.Params.Stiffness = stats.Stiffness
	for _, m := range s.metrics {
		m.Observe(sample)
	}
	for _, o := range s.observers {
		o.OnFrame(sample)
	}
	return stats, nil
}

// Run ticks until frames have been produced or ctx is cancelled. The mesh
// gate is waited on first.
func (s *Scheduler) Run(ctx context.Context, frames int) ([]FrameStats, error) {
	if _, err := s.gate.Wait(ctx); err != nil && s.solver.State() == StateUninitialized {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	out := make([]FrameStats, 0, frames)
	for i := 0; i < frames; i++ {
		stats, err := s.Tick(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, stats)
	}
	return out, nil
}

// Metrics returns the current value of every registered metric.
func (s *Scheduler) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}
