package softbody_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/softbody"
)

func newSolver(mutate func(*softbody.Options)) *softbody.Solver {
	opts := softbody.DefaultOptions()
	opts.Logger = quiet
	opts.Topology.Logger = quiet
	if mutate != nil {
		mutate(&opts)
	}
	s, err := softbody.NewSolver(opts)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func unitTet() ([]r3.Vec, [][4]int) {
	return []r3.Vec{
		{X: 0, Y: 1, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: 0, Y: 2, Z: 0},
		{X: 0, Y: 1, Z: 1},
	}, [][4]int{{0, 1, 2, 3}}
}

func allFinite(vs []r3.Vec) bool {
	for _, v := range vs {
		if math.IsNaN(v.X+v.Y+v.Z) || math.IsInf(v.X+v.Y+v.Z, 0) {
			return false
		}
	}
	return true
}

var _ = Describe("Solver", func() {
	Describe("lifecycle", func() {
		It("refuses to step before Init", func() {
			s := newSolver(nil)
			Expect(s.State()).To(Equal(softbody.StateUninitialized))
			_, err := s.Frame()
			Expect(err).To(MatchError(softbody.ErrNotReady))
			Expect(s.Step()).To(MatchError(softbody.ErrNotReady))
		})

		It("wraps build failures", func() {
			s := newSolver(nil)
			verts, _ := unitTet()
			err := s.Init(verts, [][4]int{{0, 1, 2, 7}})
			Expect(err).To(MatchError(softbody.ErrBuildFailed))
			Expect(s.State()).To(Equal(softbody.StateUninitialized))
		})

		It("is ready after Init and after every frame", func() {
			s := newSolver(nil)
			verts, tets := unitTet()
			Expect(s.Init(verts, tets)).To(Succeed())
			Expect(s.State()).To(Equal(softbody.StateReady))

			stats, err := s.Frame()
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Frame).To(Equal(1))
			Expect(stats.Substeps).To(Equal(softbody.DefaultSubsteps))
			Expect(stats.Time).To(BeNumerically("~", softbody.DefaultFrameDt, 1e-12))
			Expect(s.State()).To(Equal(softbody.StateReady))
		})

		It("rejects invalid parameters", func() {
			opts := softbody.DefaultOptions()
			opts.Params.Substeps = 0
			_, err := softbody.NewSolver(opts)
			Expect(err).To(MatchError(softbody.ErrParameterBounds))
		})
	})

	Describe("controls", func() {
		It("latches mode and stiffness at frame start", func() {
			s := newSolver(nil)
			verts, tets := unitTet()
			Expect(s.Init(verts, tets)).To(Succeed())

			s.SetForceMode(softbody.TorqueCW)
			s.SetStiffness(50)
			stats, err := s.Frame()
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Mode).To(Equal(softbody.TorqueCW))
			Expect(stats.Stiffness).To(Equal(50.0))
		})

		It("clamps negative stiffness and invalid modes", func() {
			s := newSolver(nil)
			s.SetStiffness(-3)
			Expect(s.Stiffness()).To(BeZero())
			s.SetForceMode(softbody.ForceMode(42))
			Expect(s.ForceMode()).To(Equal(softbody.ForceNone))
		})
	})

	Describe("single substep", func() {
		DescribeTable("matches the closed form spring-damper update",
			func(frameDt float64, substeps int, kd float64) {
				const k = 200.0
				s := newSolver(func(o *softbody.Options) {
					o.Params.FrameDt = frameDt
					o.Params.Substeps = substeps
					o.Params.Damping = kd
				})
				dt := frameDt / float64(substeps)
				rest, tets := unitTet()
				Expect(s.Init(rest, tets)).To(Succeed())

				pos := []r3.Vec{
					{X: -0.1, Y: 0.9, Z: 0.05},
					rest[1], rest[2], rest[3],
				}
				vel := []r3.Vec{
					{X: 0.3, Y: -0.2, Z: 0.1},
					{Y: 0.5},
					{},
					{X: -0.4},
				}
				Expect(s.SetState(pos, vel)).To(Succeed())
				Expect(s.Step()).To(Succeed())

				// Every vertex belongs to the one tetrahedron of volume 1.
				const w = 4.0
				gotPos := s.Positions(nil)
				gotVel := s.Velocities(nil)
				for i := range rest {
					dv := softbody.DefaultGravity
					for j := range rest {
						if j == i {
							continue
						}
						d := r3.Sub(pos[i], pos[j])
						l := r3.Norm(d)
						dir := r3.Scale(1/l, d)
						restLen := r3.Norm(r3.Sub(rest[i], rest[j]))
						dv = r3.Add(dv, r3.Scale(-w*k*(l-restLen), dir))
						dv = r3.Add(dv, r3.Scale(-w*kd*r3.Dot(dir, r3.Sub(vel[i], vel[j])), dir))
					}
					wantVel := r3.Add(vel[i], r3.Scale(dt, dv))
					wantPos := r3.Add(pos[i], r3.Scale(dt, wantVel))

					Expect(r3.Norm(r3.Sub(gotVel[i], wantVel))).To(BeNumerically("<", 1e-5), "velocity of vertex %d", i)
					Expect(r3.Norm(r3.Sub(gotPos[i], wantPos))).To(BeNumerically("<", 1e-5), "position of vertex %d", i)
				}
			},
			Entry("reference rates", softbody.DefaultFrameDt, softbody.DefaultSubsteps, softbody.DefaultDamping),
			Entry("coarse step, heavy damping", 1e-3, 1, 0.5),
		)
	})

	Describe("parallel kernels", func() {
		It("produce the same positions as a single worker", func() {
			dense := mesh.BarOptions{Radius: 1, Height: 10.5, Depth: 0.5, Segments: 24, Layers: 41}
			vol, err := mesh.GenerateBar(dense)
			Expect(err).NotTo(HaveOccurred())

			run := func(workers int) []r3.Vec {
				s := newSolver(func(o *softbody.Options) {
					o.Params.Substeps = 30
					o.Workers = workers
				})
				Expect(s.Init(vol.Vertices, vol.Tetrahedra)).To(Succeed())
				Expect(s.Topology().Len()).To(BeNumerically(">", 1000), "mesh too small to fan out")
				s.SetForceMode(softbody.TorqueCCW)
				for f := 0; f < 20; f++ {
					_, err := s.Frame()
					Expect(err).NotTo(HaveOccurred())
				}
				return s.Positions(nil)
			}

			serial := run(1)
			Expect(allFinite(serial)).To(BeTrue())
			Expect(run(8)).To(Equal(serial))
		})
	})

	Describe("pinned vertices", func() {
		It("never move under any force mode", func() {
			vol, err := mesh.GenerateBar(mesh.BarOptions{Radius: 1, Height: 10.5, Depth: 0.5, Segments: 6, Layers: 7})
			Expect(err).NotTo(HaveOccurred())
			s := newSolver(func(o *softbody.Options) { o.Params.Substeps = 60 })
			Expect(s.Init(vol.Vertices, vol.Tetrahedra)).To(Succeed())
			topo := s.Topology()

			for _, mode := range softbody.AllForceModes() {
				s.SetForceMode(mode)
				for f := 0; f < 5; f++ {
					_, err := s.Frame()
					Expect(err).NotTo(HaveOccurred())
				}
				pos := s.Positions(nil)
				Expect(allFinite(pos)).To(BeTrue())
				for i, pinned := range topo.Pinned {
					if pinned {
						Expect(pos[i]).To(Equal(topo.Rest[i]), "mode %s vertex %d", mode, i)
					}
				}
			}
		})
	})

	Describe("floor", func() {
		It("keeps a falling body from sinking through", func() {
			s := newSolver(func(o *softbody.Options) {
				o.Topology.PinBelow = math.Inf(-1)
			})
			verts, tets := unitTet()
			Expect(s.Init(verts, tets)).To(Succeed())

			minY := math.Inf(1)
			for f := 0; f < 120; f++ {
				_, err := s.Frame()
				Expect(err).NotTo(HaveOccurred())
				pos := s.Positions(nil)
				Expect(allFinite(pos)).To(BeTrue())
				for _, p := range pos {
					minY = math.Min(minY, p.Y)
				}
			}
			Expect(minY).To(BeNumerically("<", 0.5), "body never reached the floor")
			Expect(minY).To(BeNumerically(">=", -0.2))
		})
	})

	Describe("bounded energy", func() {
		It("does not grow the amplitude of an undamped spring", func() {
			s := newSolver(func(o *softbody.Options) {
				o.Params.Gravity = r3.Vec{}
				o.Params.Damping = 0
			})
			rest := []r3.Vec{{X: 0, Y: 5}, {X: 1, Y: 5}}
			topo, err := softbody.BuildSpringTopology(rest, []float64{1, 1}, [][2]int{{0, 1}}, quietOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.InitTopology(topo)).To(Succeed())

			const amp = 0.2
			Expect(s.SetState([]r3.Vec{{X: -0.1, Y: 5}, {X: 1.1, Y: 5}}, nil)).To(Succeed())

			peak := 0.0
			for f := 0; f < 600; f++ {
				_, err := s.Frame()
				Expect(err).NotTo(HaveOccurred())
				pos := s.Positions(nil)
				peak = math.Max(peak, math.Abs(r3.Norm(r3.Sub(pos[1], pos[0]))-1))
			}
			Expect(peak).To(BeNumerically("<=", amp*1.01))
			Expect(peak).To(BeNumerically(">", amp*0.9))
		})
	})

	Describe("sanitizing", func() {
		It("skips coincident vertices and counts them", func() {
			s := newSolver(func(o *softbody.Options) {
				o.Params.Gravity = r3.Vec{}
				o.Params.Substeps = 10
			})
			topo, err := softbody.BuildSpringTopology([]r3.Vec{{Y: 5}, {X: 1, Y: 5}}, []float64{1, 1}, [][2]int{{0, 1}}, quietOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.InitTopology(topo)).To(Succeed())
			Expect(s.SetState([]r3.Vec{{Y: 5}, {Y: 5}}, nil)).To(Succeed())

			stats, err := s.Frame()
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Sanitized).To(Equal(int64(20)))
			Expect(allFinite(s.Positions(nil))).To(BeTrue())
		})

		It("zeroes non-finite velocities", func() {
			s := newSolver(func(o *softbody.Options) { o.Params.Substeps = 4 })
			verts, tets := unitTet()
			Expect(s.Init(verts, tets)).To(Succeed())
			vel := make([]r3.Vec, len(verts))
			vel[0] = r3.Vec{X: math.NaN()}
			Expect(s.SetState(verts, vel)).To(Succeed())

			stats, err := s.Frame()
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Sanitized).To(BeNumerically(">=", 1))
			Expect(allFinite(s.Velocities(nil))).To(BeTrue())
			Expect(allFinite(s.Positions(nil))).To(BeTrue())
		})
	})

	Describe("Reset", func() {
		It("returns to rest and clears the force", func() {
			s := newSolver(nil)
			verts, tets := unitTet()
			Expect(s.Init(verts, tets)).To(Succeed())
			s.SetForceMode(softbody.PushPlusY)
			for f := 0; f < 3; f++ {
				_, err := s.Frame()
				Expect(err).NotTo(HaveOccurred())
			}
			s.Reset()
			Expect(s.Positions(nil)).To(Equal(verts))
			Expect(s.Velocities(nil)).To(Equal(make([]r3.Vec, len(verts))))
			Expect(s.ForceMode()).To(Equal(softbody.ForceNone))
			Expect(s.Time()).To(BeZero())
		})

		It("rejects state of the wrong size", func() {
			s := newSolver(nil)
			verts, tets := unitTet()
			Expect(s.Init(verts, tets)).To(Succeed())
			Expect(s.SetState(verts[:2], nil)).To(MatchError(softbody.ErrParameterBounds))
		})
	})
})
