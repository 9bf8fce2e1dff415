package mesh

import "gonum.org/v1/gonum/spatial/r3"

// VertexNormals computes area-weighted vertex normals for faces over
// positions, reusing dst when it is large enough. Vertices not touched by
// any face get a zero normal.
func VertexNormals(dst []r3.Vec, positions []r3.Vec, faces [][3]int) []r3.Vec {
	if cap(dst) < len(positions) {
		dst = make([]r3.Vec, len(positions))
	}
	dst = dst[:len(positions)]
	for i := range dst {
		dst[i] = r3.Vec{}
	}
	for _, f := range faces {
		p0, p1, p2 := positions[f[0]], positions[f[1]], positions[f[2]]
		n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
		for _, id := range f {
			dst[id] = r3.Add(dst[id], n)
		}
	}
	for i, n := range dst {
		if r3.Norm2(n) > 0 {
			dst[i] = r3.Unit(n)
		}
	}
	return dst
}
