package softbody_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/softbody"
)

var _ = Describe("ForceMode", func() {
	DescribeTable("force on a controllable vertex at (x, z) = (2, 3)",
		func(mode softbody.ForceMode, want r3.Vec) {
			Expect(mode.Force([2]float64{2, 3})).To(Equal(want))
		},
		Entry("none", softbody.ForceNone, r3.Vec{}),
		Entry("push +x", softbody.PushPlusX, r3.Vec{X: 5}),
		Entry("push -x", softbody.PushMinusX, r3.Vec{X: -5}),
		Entry("push +y", softbody.PushPlusY, r3.Vec{Y: 20}),
		Entry("push -y", softbody.PushMinusY, r3.Vec{Y: -15}),
		Entry("torque ccw", softbody.TorqueCCW, r3.Vec{X: -60, Z: 40}),
		Entry("torque cw", softbody.TorqueCW, r3.Vec{X: 60, Z: -40}),
	)

	It("round trips names", func() {
		for _, m := range softbody.AllForceModes() {
			parsed, err := softbody.ParseForceMode(m.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(m))
		}
		Expect(softbody.AllForceModes()).To(HaveLen(7))
	})

	It("rejects unknown names", func() {
		_, err := softbody.ParseForceMode("sideways")
		Expect(err).To(MatchError(softbody.ErrParameterBounds))
	})
})

var _ = Describe("ForceField", func() {
	field := softbody.ForceField{Gravity: softbody.DefaultGravity, FloorStiffness: 1000}

	It("applies nothing to pinned vertices", func() {
		a := field.Acceleration(r3.Vec{Y: -1}, 0, softbody.PushPlusY, true, [2]float64{1, 1})
		Expect(a).To(Equal(r3.Vec{}))
	})

	It("scales the interactive force by inverse mass for controllable vertices only", func() {
		p := r3.Vec{Y: 10}
		Expect(field.Acceleration(p, 2, softbody.PushPlusX, true, [2]float64{}).X).To(Equal(10.0))
		Expect(field.Acceleration(p, 2, softbody.PushPlusX, false, [2]float64{}).X).To(BeZero())
	})

	It("pushes vertices below the floor back up", func() {
		a := field.Acceleration(r3.Vec{Y: -0.01}, 2, softbody.ForceNone, false, [2]float64{})
		Expect(a.Y).To(BeNumerically("~", -9.8+2*1000*0.01, 1e-12))

		a = field.Acceleration(r3.Vec{Y: 0.01}, 2, softbody.ForceNone, false, [2]float64{})
		Expect(a.Y).To(Equal(-9.8))
	})
})

var _ = Describe("ParticleBuffer", func() {
	var buf *softbody.ParticleBuffer

	BeforeEach(func() {
		buf = softbody.NewParticleBuffer([]r3.Vec{{X: 1}, {X: 2}})
	})

	It("starts on generation A with zero velocity", func() {
		Expect(buf.Current()).To(Equal(softbody.GenerationA))
		Expect(buf.Alternate()).To(Equal(softbody.GenerationB))
		Expect(buf.Velocities(nil)).To(Equal([]r3.Vec{{}, {}}))
	})

	It("exposes writes only after a swap", func() {
		w := buf.WriteAlternate()
		w.SetPosition(0, r3.Vec{X: 9})
		w.SetVelocity(0, r3.Vec{Y: 1})
		Expect(w.Velocity(0)).To(Equal(r3.Vec{Y: 1}))
		Expect(buf.Read(buf.Current()).Position(0)).To(Equal(r3.Vec{X: 1}))

		buf.Swap()
		Expect(buf.Current()).To(Equal(softbody.GenerationB))
		r := buf.Read(buf.Current())
		Expect(r.Len()).To(Equal(2))
		Expect(r.Position(0)).To(Equal(r3.Vec{X: 9}))
		Expect(r.Velocity(0)).To(Equal(r3.Vec{Y: 1}))
	})

	It("hands out copies", func() {
		out := buf.Positions(nil)
		out[0] = r3.Vec{X: 100}
		Expect(buf.Positions(nil)[0]).To(Equal(r3.Vec{X: 1}))
	})

	It("resets both generations", func() {
		buf.Swap()
		buf.Reset([]r3.Vec{{Z: 1}, {Z: 2}}, []r3.Vec{{X: 3}, {X: 4}})
		Expect(buf.Current()).To(Equal(softbody.GenerationA))
		for _, g := range []softbody.Generation{softbody.GenerationA, softbody.GenerationB} {
			Expect(buf.Read(g).Position(1)).To(Equal(r3.Vec{Z: 2}))
			Expect(buf.Read(g).Velocity(1)).To(Equal(r3.Vec{X: 4}))
		}
	})
})

var _ = Describe("ParallelFor", func() {
	It("covers every index exactly once", func() {
		hits := make([]int, 10000)
		softbody.ParallelFor(len(hits), 8, 16, func(start, end int) {
			for i := start; i < end; i++ {
				hits[i]++
			}
		})
		for _, h := range hits {
			Expect(h).To(Equal(1))
		}
	})

	It("runs small ranges on the caller", func() {
		calls := 0
		softbody.ParallelFor(10, 8, 256, func(start, end int) {
			calls++
			Expect(start).To(Equal(0))
			Expect(end).To(Equal(10))
		})
		Expect(calls).To(Equal(1))
	})
})
