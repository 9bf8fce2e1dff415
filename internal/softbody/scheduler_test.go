package softbody_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/softbody"
)

type recordingRenderer struct {
	positions [][]r3.Vec
	normals   int
	model     *mesh.Model
}

func (r *recordingRenderer) SetPositions(p []r3.Vec) { r.positions = append(r.positions, p) }
func (r *recordingRenderer) RecomputeNormals()       { r.normals++ }
func (r *recordingRenderer) SetModel(m *mesh.Model)  { r.model = m }

type countingMetric struct{ frames int }

func (m *countingMetric) Name() string            { return "frames" }
func (m *countingMetric) Observe(softbody.Sample) { m.frames++ }
func (m *countingMetric) Value() float64          { return float64(m.frames) }
func (m *countingMetric) Reset()                  { m.frames = 0 }

type observerFunc func(softbody.Sample)

func (f observerFunc) OnFrame(s softbody.Sample) { f(s) }

func smallBar() *mesh.Model {
	m, err := mesh.Generated(mesh.BarOptions{Radius: 1, Height: 3, Depth: 0.5, Segments: 6, Layers: 3})
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Scheduler", func() {
	var (
		ctx      context.Context
		solver   *softbody.Solver
		renderer *recordingRenderer
	)

	BeforeEach(func() {
		ctx = context.Background()
		solver = newSolver(func(o *softbody.Options) { o.Params.Substeps = 20 })
		renderer = &recordingRenderer{}
	})

	It("is a no-op while the mesh is loading", func() {
		gate := mesh.NewGate()
		sched := softbody.NewScheduler(solver, gate, renderer)

		_, err := sched.Tick(ctx)
		Expect(err).To(MatchError(softbody.ErrNotReady))
		Expect(renderer.positions).To(BeEmpty())
		Expect(sched.Ready()).To(BeFalse())

		model := smallBar()
		gate.Resolve(model, nil)
		stats, err := sched.Tick(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Frame).To(Equal(1))
		Expect(sched.Model()).To(BeIdenticalTo(model))
		Expect(renderer.model).To(BeIdenticalTo(model))
	})

	It("hands the renderer a copy and requests normals every frame", func() {
		sched := softbody.NewScheduler(solver, mesh.ReadyGate(smallBar()), renderer)
		for i := 0; i < 3; i++ {
			_, err := sched.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(renderer.positions).To(HaveLen(3))
		Expect(renderer.normals).To(Equal(3))

		last := renderer.positions[2]
		Expect(last).To(HaveLen(solver.Topology().Len()))
		last[0] = r3.Vec{X: 1e6}
		Expect(solver.Positions(nil)[0]).NotTo(Equal(r3.Vec{X: 1e6}))
	})

	It("returns and keeps the build error", func() {
		gate := mesh.NewGate()
		loadErr := errors.New("disk on fire")
		gate.Resolve(nil, loadErr)
		sched := softbody.NewScheduler(solver, gate, nil)

		for i := 0; i < 2; i++ {
			_, err := sched.Tick(ctx)
			Expect(err).To(MatchError(softbody.ErrBuildFailed))
			Expect(errors.Is(err, loadErr)).To(BeTrue())
		}
	})

	It("stops on a cancelled context", func() {
		sched := softbody.NewScheduler(solver, mesh.ReadyGate(smallBar()), nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := sched.Tick(cctx)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("feeds metrics and observers", func() {
		sched := softbody.NewScheduler(solver, mesh.ReadyGate(smallBar()), nil)
		metric := &countingMetric{}
		var samples []softbody.Sample
		sched.AddMetric(metric)
		sched.AddObserver(observerFunc(func(s softbody.Sample) { samples = append(samples, s) }))

		frames, err := sched.Run(ctx, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(frames).To(HaveLen(4))
		Expect(sched.Metrics()).To(HaveKeyWithValue("frames", 4.0))
		Expect(samples).To(HaveLen(4))
		Expect(samples[3].Stats.Frame).To(Equal(4))
		Expect(samples[3].Positions).To(HaveLen(solver.Topology().Len()))
		Expect(samples[3].Topology).To(BeIdenticalTo(solver.Topology()))
	})
})
