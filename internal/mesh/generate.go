package mesh

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// BarOptions describes a round bar standing on the floor along +y. The part
// below y=0 is the anchor that the solver pins.
type BarOptions struct {
	Radius   float64 `yaml:"radius"`
	Height   float64 `yaml:"height"`
	Depth    float64 `yaml:"depth"`
	Segments int     `yaml:"segments"`
	Layers   int     `yaml:"layers"`
	// Lift raises the whole bar, so a bar with no depth starts in the air.
	Lift     float64 `yaml:"lift,omitempty"`
}

// DefaultBarOptions matches the proportions of the demo bar: 10.5 units
// tall so the top ring clears the control height, half a unit buried.
func DefaultBarOptions() BarOptions {
	return BarOptions{Radius: 1, Height: 10.5, Depth: 0.5, Segments: 12, Layers: 14}
}

func (o BarOptions) validate() error {
	switch {
	case o.Radius <= 0:
		return fmt.Errorf("mesh: bar radius must be positive, got %g", o.Radius)
	case o.Height <= 0:
		return fmt.Errorf("mesh: bar height must be positive, got %g", o.Height)
	case o.Depth < 0:
		return fmt.Errorf("mesh: bar depth must not be negative, got %g", o.Depth)
	case o.Segments < 3:
		return fmt.Errorf("mesh: bar needs at least 3 segments, got %d", o.Segments)
	case o.Layers < 1:
		return fmt.Errorf("mesh: bar needs at least 1 layer, got %d", o.Layers)
	}
	return nil
}

// GenerateBar tetrahedralizes a round bar. Each layer is a disk made of a
// centre vertex, an inner ring and an outer ring; every triangular prism
// between two layers is split into three tetrahedra with diagonals chosen
// from the lowest vertex id, which keeps shared faces conforming.
func GenerateBar(o BarOptions) (*Volume, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	perLayer := 1 + 2*o.Segments
	vol := &Volume{Vertices: make([]r3.Vec, 0, perLayer*(o.Layers+1))}
	span := o.Height + o.Depth
	for l := 0; l <= o.Layers; l++ {
		y := o.Lift - o.Depth + span*float64(l)/float64(o.Layers)
		vol.Vertices = append(vol.Vertices, r3.Vec{X: 0, Y: y, Z: 0})
		for _, r := range []float64{o.Radius / 2, o.Radius} {
			for s := 0; s < o.Segments; s++ {
				a := 2 * math.Pi * float64(s) / float64(o.Segments)
				vol.Vertices = append(vol.Vertices, r3.Vec{X: r * math.Cos(a), Y: y, Z: r * math.Sin(a)})
			}
		}
	}

	disk := diskTriangles(o.Segments)
	for l := 0; l < o.Layers; l++ {
		lo, hi := l*perLayer, (l+1)*perLayer
		for _, tri := range disk {
			bottom := [3]int{lo + tri[0], lo + tri[1], lo + tri[2]}
			sort.Ints(bottom[:])
			top := [3]int{bottom[0] - lo + hi, bottom[1] - lo + hi, bottom[2] - lo + hi}
			a, b, c := bottom[0], bottom[1], bottom[2]
			at, bt, ct := top[0], top[1], top[2]
			for _, t := range [][4]int{{a, b, c, ct}, {a, b, bt, ct}, {a, at, bt, ct}} {
				vol.Tetrahedra = append(vol.Tetrahedra, orient(vol.Vertices, t))
			}
		}
	}
	return vol, nil
}

// diskTriangles returns the triangles of one layer in local vertex ids:
// 0 is the centre, 1..n the inner ring, n+1..2n the outer ring.
func diskTriangles(n int) [][3]int {
	tris := make([][3]int, 0, 3*n)
	for s := 0; s < n; s++ {
		i0, i1 := 1+s, 1+(s+1)%n
		o0, o1 := 1+n+s, 1+n+(s+1)%n
		tris = append(tris, [3]int{0, i0, i1}, [3]int{i0, o0, o1}, [3]int{i0, o1, i1})
	}
	return tris
}

// orient swaps two corners when needed so that the signed volume is positive.
func orient(v []r3.Vec, t [4]int) [4]int {
	if SignedVolume(v[t[0]], v[t[1]], v[t[2]], v[t[3]]) < 0 {
		t[2], t[3] = t[3], t[2]
	}
	return t
}

// BoundarySurface extracts the faces that belong to exactly one
// tetrahedron, wound so their normals point out of the volume.
func BoundarySurface(v *Volume) *Surface {
	type face struct {
		tri   [3]int
		count int
	}
	faces := make(map[[3]int]*face)
	order := make([][3]int, 0)
	for _, t := range v.Tetrahedra {
		t = orient(v.Vertices, t)
		a, b, c, d := t[0], t[1], t[2], t[3]
		for _, tri := range [][3]int{{a, c, b}, {a, b, d}, {a, d, c}, {b, c, d}} {
			key := tri
			sort.Ints(key[:])
			if f, ok := faces[key]; ok {
				f.count++
				continue
			}
			faces[key] = &face{tri: tri, count: 1}
			order = append(order, key)
		}
	}

	s := &Surface{}
	used := make(map[int]bool)
	for _, key := range order {
		f := faces[key]
		if f.count != 1 {
			continue
		}
		s.Faces = append(s.Faces, f.tri)
		for _, id := range f.tri {
			if !used[id] {
				used[id] = true
				s.Vertices = append(s.Vertices, id)
			}
		}
	}
	return s
}
