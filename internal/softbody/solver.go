package softbody

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// State is the lifecycle stage of a Solver.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Options struct {
	Params   Params
	Topology TopologyOptions
	// Workers bounds the fan-out of a kernel pass; 0 uses GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

func DefaultOptions() Options {
	return Options{Params: DefaultParams(), Topology: DefaultTopologyOptions()}
}

// Solver owns the topology, the particle buffers and the parameters of one
// soft body. Steps must be driven from a single goroutine; the control
// setters may be called from any goroutine.
type Solver struct {
	mu       sync.Mutex
	controls controls

	params   Params
	topoOpts TopologyOptions
	workers  int
	log      *slog.Logger

	state State
	topo  *Topology
	buf   *ParticleBuffer
	frame int
	time  float64
}

func NewSolver(opts Options) (*Solver, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	log := logger(opts.Logger)
	if opts.Topology.Logger == nil {
		opts.Topology.Logger = log
	}
	return &Solver{
		controls: controls{mode: ForceNone, stiffness: opts.Params.Stiffness},
		params:   opts.Params,
		topoOpts: opts.Topology,
		workers:  opts.Workers,
		log:      log,
	}, nil
}

// Init builds the topology from a tetrahedral mesh and moves the solver to
// StateReady. On failure the solver stays uninitialized.
func (s *Solver) Init(vertices []r3.Vec, tetrahedra [][4]int) error {
	topo, err := BuildTopology(vertices, tetrahedra, s.topoOpts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	return s.InitTopology(topo)
}

// InitTopology starts the solver from an already built topology.
func (s *Solver) InitTopology(topo *Topology) error {
	if topo == nil || topo.Len() == 0 {
		return fmt.Errorf("%w: empty topology", ErrBuildFailed)
	}
	s.topo = topo
	s.buf = NewParticleBuffer(topo.Rest)
	s.frame, s.time = 0, 0
	s.state = StateReady
	return nil
}

func (s *Solver) State() State            { return s.state }
func (s *Solver) Params() Params          { return s.params }
func (s *Solver) Topology() *Topology     { return s.topo }
func (s *Solver) Time() float64           { return s.time }
func (s *Solver) FrameIndex() int         { return s.frame }
func (s *Solver) Buffer() *ParticleBuffer { return s.buf }

func (s *Solver) SetForceMode(m ForceMode) {
	if !m.Valid() {
		m = ForceNone
	}
	s.mu.Lock()
	s.controls.mode = m
	s.mu.Unlock()
}

func (s *Solver) ForceMode() ForceMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls.mode
}

// SetStiffness changes k for subsequent frames. Negative values are clamped to 0.
func (s *Solver) SetStiffness(k float64) {
	if k < 0 {
		k = 0
	}
	s.mu.Lock()
	s.controls.stiffness = k
	s.mu.Unlock()
}

func (s *Solver) Stiffness() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls.stiffness
}

func (s *Solver) latch() controls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls
}

func (s *Solver) kernel() *kernel {
	return &kernel{
		topo:    s.topo,
		field:   ForceField{Gravity: s.params.Gravity, FloorStiffness: s.params.FloorStiffness},
		damping: s.params.Damping,
		dt:      s.params.SubstepDt(),
		workers: s.workers,
	}
}

// Step runs a single substep.
func (s *Solver) Step() error {
	if s.state != StateReady {
		return ErrNotReady
	}
	s.state = StateRunning
	k := s.kernel()
	if n := k.substep(s.buf, s.latch()); n > 0 {
		s.log.Debug("sanitized substep", "count", n, "err", ErrNumericInstability)
	}
	s.buf.Swap()
	s.time += k.dt
	s.state = StateReady
	return nil
}

// Frame runs the full substep loop for one animation tick. Controls are
// latched once at the start of the frame.
func (s *Solver) Frame() (FrameStats, error) {
	if s.state != StateReady {
		return FrameStats{}, ErrNotReady
	}
	start := time.Now()
	c := s.latch()
	k := s.kernel()

	s.state = StateRunning
	var sanitized int64
	for i := 0; i < s.params.Substeps; i++ {
		sanitized += k.substep(s.buf, c)
		s.buf.Swap()
	}
	s.state = StateReady

	s.frame++
	s.time += s.params.FrameDt
	stats := FrameStats{
		Frame:     s.frame,
		Time:      s.time,
		Mode:      c.mode,
		Stiffness: c.stiffness,
		Substeps:  s.params.Substeps,
		Sanitized: sanitized,
		Elapsed:   time.Since(start),
	}
	if sanitized > 0 {
		s.log.Debug("sanitized frame", "stats", stats, "err", ErrNumericInstability)
	}
	return stats, nil
}

// Positions copies the current positions into dst.
func (s *Solver) Positions(dst []r3.Vec) []r3.Vec {
	if s.buf == nil {
		return dst[:0]
	}
	return s.buf.Positions(dst)
}

// Velocities copies the current velocities into dst.
func (s *Solver) Velocities(dst []r3.Vec) []r3.Vec {
	if s.buf == nil {
		return dst[:0]
	}
	return s.buf.Velocities(dst)
}

// SetState overwrites positions and velocities; a nil velocities slice
// zeroes them. Pinned vertices are put back at rest.
func (s *Solver) SetState(positions, velocities []r3.Vec) error {
	if s.state == StateUninitialized {
		return ErrNotReady
	}
	n := s.topo.Len()
	if len(positions) != n || (velocities != nil && len(velocities) != n) {
		return fmt.Errorf("%w: state for %d vertices, solver has %d", ErrParameterBounds, len(positions), n)
	}
	pos := make([]r3.Vec, n)
	copy(pos, positions)
	var vel []r3.Vec
	if velocities != nil {
		vel = make([]r3.Vec, n)
		copy(vel, velocities)
	}
	for i, pinned := range s.topo.Pinned {
		if pinned {
			pos[i] = s.topo.Rest[i]
			if vel != nil {
				vel[i] = r3.Vec{}
			}
		}
	}
	s.buf.Reset(pos, vel)
	return nil
}

// Reset returns every vertex to rest with zero velocity and clears the
// interactive force.
func (s *Solver) Reset() {
	if s.state == StateUninitialized {
		return
	}
	s.buf.Reset(s.topo.Rest, nil)
	s.frame, s.time = 0, 0
	s.SetForceMode(ForceNone)
}
