package softbody_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/softbody"
)

func neighborIDs(t *softbody.Topology, i int) []int {
	row := t.Neighbors.Row(i)
	ids := make([]int, len(row))
	for k, e := range row {
		ids[k] = e.Neighbor
	}
	return ids
}

func quietOptions() softbody.TopologyOptions {
	opts := softbody.DefaultTopologyOptions()
	opts.Logger = quiet
	return opts
}

var _ = Describe("BuildTopology", func() {
	// Two tetrahedra sharing the face 0-1-2, above the floor.
	shared := []r3.Vec{
		{X: 0, Y: 1, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: 0, Y: 2, Z: 0},
		{X: 0, Y: 1, Z: 1},
		{X: 0, Y: 1, Z: -2},
	}

	Describe("inverse mass", func() {
		It("sums 4/volume over incident tetrahedra", func() {
			topo, err := softbody.BuildTopology(shared, [][4]int{{0, 1, 2, 3}, {0, 2, 1, 4}}, quietOptions())
			Expect(err).NotTo(HaveOccurred())

			// volumes are 1 and 2, so contributions are 4 and 2
			want := []float64{6, 6, 6, 4, 2}
			for i, w := range want {
				Expect(topo.InvMass[i]).To(BeNumerically("~", w, w*1e-6))
			}
			Expect(topo.Diagnostics.Err()).NotTo(HaveOccurred())
		})

		It("records non-positive volumes without contributing mass", func() {
			flat := []r3.Vec{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 2}}
			topo, err := softbody.BuildTopology(flat, [][4]int{{0, 1, 2, 3}}, quietOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(topo.InvMass).To(Equal([]float64{0, 0, 0, 0}))
			Expect(topo.Diagnostics.Degenerate).To(HaveLen(1))
			Expect(topo.Diagnostics.Err()).To(MatchError(softbody.ErrDegenerateGeometry))
		})

		It("never stores a non-finite rest length", func() {
			verts := append([]r3.Vec(nil), shared[:4]...)
			verts[3] = r3.Vec{X: math.NaN(), Y: 1, Z: 1}
			topo, err := softbody.BuildTopology(verts, [][4]int{{0, 1, 2, 3}}, quietOptions())
			Expect(err).NotTo(HaveOccurred())
			for i := range verts {
				for _, e := range topo.Neighbors.Row(i) {
					Expect(e.RestLength).To(BeNumerically(">", 0), "vertex %d neighbor %d", i, e.Neighbor)
					Expect(e.Neighbor).NotTo(Equal(3))
				}
			}
			Expect(topo.Diagnostics.Err()).To(MatchError(softbody.ErrDegenerateGeometry))
		})

		It("rejects out of range vertex ids", func() {
			_, err := softbody.BuildTopology(shared, [][4]int{{0, 1, 2, 9}}, quietOptions())
			Expect(err).To(MatchError(softbody.ErrDegenerateGeometry))
		})
	})

	Describe("classification", func() {
		It("pins vertices below the floor line and marks the top as controllable", func() {
			vol, err := mesh.GenerateBar(mesh.DefaultBarOptions())
			Expect(err).NotTo(HaveOccurred())
			topo, err := softbody.BuildTopology(vol.Vertices, vol.Tetrahedra, quietOptions())
			Expect(err).NotTo(HaveOccurred())

			pinned, controllable := 0, 0
			for i, p := range topo.Rest {
				if p.Y < 0 {
					Expect(topo.Pinned[i]).To(BeTrue())
					Expect(topo.InvMass[i]).To(BeZero())
					pinned++
				} else {
					Expect(topo.InvMass[i]).To(BeNumerically(">", 0))
				}
				if p.Y > softbody.DefaultControlAbove {
					Expect(topo.Controllable[i]).To(BeTrue())
					Expect(topo.ControlXZ[i]).To(Equal([2]float64{p.X, p.Z}))
					controllable++
				}
			}
			Expect(pinned).To(Equal(25))
			Expect(controllable).To(Equal(25))
		})
	})

	Describe("determinism", func() {
		It("builds identical tables and masses from the same mesh", func() {
			vol, err := mesh.GenerateBar(mesh.DefaultBarOptions())
			Expect(err).NotTo(HaveOccurred())
			a, err := softbody.BuildTopology(vol.Vertices, vol.Tetrahedra, quietOptions())
			Expect(err).NotTo(HaveOccurred())
			b, err := softbody.BuildTopology(vol.Vertices, vol.Tetrahedra, quietOptions())
			Expect(err).NotTo(HaveOccurred())

			Expect(a.InvMass).To(Equal(b.InvMass))
			for i := range vol.Vertices {
				Expect(a.Neighbors.Row(i)).To(Equal(b.Neighbors.Row(i)))
			}
			Expect(a.Diagnostics.Overflows).To(BeEmpty())
		})
	})

	Describe("capacity", func() {
		verts := []r3.Vec{
			{X: 0, Y: 1, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 2, Z: 0},
			{X: 0, Y: 1, Z: 1},
			{X: -1, Y: 1, Z: 0},
			{X: 0, Y: 1, Z: -1},
			{X: 0, Y: 3, Z: 0},
		}
		tets := [][4]int{{0, 1, 2, 3}, {0, 4, 5, 6}}

		It("keeps the first edges and reports the rest", func() {
			opts := quietOptions()
			opts.Capacity = 4
			topo, err := softbody.BuildTopology(verts, tets, opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(neighborIDs(topo, 0)).To(Equal([]int{1, 2, 3, 4}))
			Expect(topo.Diagnostics.Overflows).To(HaveLen(2))
			Expect(topo.Diagnostics.Overflows[0]).To(Equal(&softbody.TopologyOverflowError{Vertex: 0, Neighbor: 5, Capacity: 4}))
			Expect(topo.Diagnostics.Overflows[1].Neighbor).To(Equal(6))
		})

		It("fails the build under the fail policy", func() {
			opts := quietOptions()
			opts.Capacity = 4
			opts.Overflow = softbody.OverflowFail
			_, err := softbody.BuildTopology(verts, tets, opts)
			Expect(err).To(MatchError(softbody.ErrTopologyOverflow))

			var overflow *softbody.TopologyOverflowError
			Expect(errors.As(err, &overflow)).To(BeTrue())
			Expect(overflow.Vertex).To(Equal(0))
		})

		It("rejects a non-positive capacity", func() {
			opts := quietOptions()
			opts.Capacity = 0
			_, err := softbody.BuildTopology(verts, tets, opts)
			Expect(err).To(MatchError(softbody.ErrParameterBounds))
		})
	})

	Describe("edge dedup", func() {
		verts := []r3.Vec{
			{X: 0, Y: 1, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 2, Z: 0},
			{X: 0, Y: 1, Z: 1},
			{X: 1, Y: 2, Z: 0},
			{X: 1, Y: 1, Z: 1},
		}
		tets := [][4]int{{0, 1, 2, 3}, {0, 1, 4, 5}}

		DescribeTable("neighbor rows",
			func(dedup softbody.EdgeDedup, row0, row1 []int) {
				opts := quietOptions()
				opts.Dedup = dedup
				topo, err := softbody.BuildTopology(verts, tets, opts)
				Expect(err).NotTo(HaveOccurred())
				Expect(neighborIDs(topo, 0)).To(Equal(row0))
				Expect(neighborIDs(topo, 1)).To(Equal(row1))
			},
			Entry("per vertex", softbody.DedupPerVertex, []int{1, 2, 3, 4, 5}, []int{2, 3, 0, 4, 5}),
			Entry("per tetrahedron", softbody.DedupPerTetrahedron, []int{1, 2, 3, 1, 4, 5}, []int{2, 3, 0, 4, 5, 0}),
		)

		It("stores the rest length of each edge", func() {
			topo, err := softbody.BuildTopology(verts, tets, quietOptions())
			Expect(err).NotTo(HaveOccurred())
			for i := range verts {
				for _, e := range topo.Neighbors.Row(i) {
					Expect(e.RestLength).To(BeNumerically("~", r3.Norm(r3.Sub(verts[i], verts[e.Neighbor])), 1e-12))
				}
			}
		})

		It("parses option names", func() {
			d, err := softbody.ParseEdgeDedup("per_tetrahedron")
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(softbody.DedupPerTetrahedron))
			_, err = softbody.ParseEdgeDedup("sometimes")
			Expect(err).To(MatchError(softbody.ErrParameterBounds))

			p, err := softbody.ParseOverflowPolicy("fail")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.String()).To(Equal("fail"))
		})
	})

	Describe("BuildSpringTopology", func() {
		It("stores each edge at both endpoints", func() {
			verts := []r3.Vec{{Y: 5}, {X: 2, Y: 5}}
			topo, err := softbody.BuildSpringTopology(verts, []float64{1, 1}, [][2]int{{0, 1}, {1, 0}}, quietOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(neighborIDs(topo, 0)).To(Equal([]int{1}))
			Expect(neighborIDs(topo, 1)).To(Equal([]int{0}))
			Expect(topo.Neighbors.Row(0)[0].RestLength).To(Equal(2.0))
		})

		It("rejects zero-length edges", func() {
			verts := []r3.Vec{{Y: 5}, {Y: 5}}
			_, err := softbody.BuildSpringTopology(verts, []float64{1, 1}, [][2]int{{0, 1}}, quietOptions())
			Expect(err).To(MatchError(softbody.ErrDegenerateGeometry))
		})

		It("rejects edges without a finite length", func() {
			verts := []r3.Vec{{Y: 5}, {X: math.NaN(), Y: 5}}
			_, err := softbody.BuildSpringTopology(verts, []float64{1, 1}, [][2]int{{0, 1}}, quietOptions())
			Expect(err).To(MatchError(softbody.ErrDegenerateGeometry))
		})

		It("rejects mismatched masses", func() {
			_, err := softbody.BuildSpringTopology([]r3.Vec{{}}, nil, nil, quietOptions())
			Expect(err).To(MatchError(softbody.ErrParameterBounds))
		})
	})
})
