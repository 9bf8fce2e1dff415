package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGenerateBar(t *testing.T) {
	o := DefaultBarOptions()
	vol, err := GenerateBar(o)
	require.NoError(t, err)

	perLayer := 1 + 2*o.Segments
	assert.Len(t, vol.Vertices, perLayer*(o.Layers+1))
	assert.Len(t, vol.Tetrahedra, 3*3*o.Segments*o.Layers)

	total := 0.0
	for i, tet := range vol.Tetrahedra {
		v := SignedVolume(vol.Vertices[tet[0]], vol.Vertices[tet[1]], vol.Vertices[tet[2]], vol.Vertices[tet[3]])
		assert.Greater(t, v, 0.0, "tetrahedron %d", i)
		total += v / 6
	}

	minY, maxY := vol.Vertices[0].Y, vol.Vertices[0].Y
	for _, p := range vol.Vertices {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	assert.InDelta(t, -o.Depth, minY, 1e-12)
	assert.InDelta(t, o.Height, maxY, 1e-12)

	// The boundary encloses the same volume as the tetrahedra.
	surf := BoundarySurface(vol)
	enclosed := 0.0
	for _, f := range surf.Faces {
		p0, p1, p2 := vol.Vertices[f[0]], vol.Vertices[f[1]], vol.Vertices[f[2]]
		enclosed += r3.Dot(p0, r3.Cross(p1, p2)) / 6
	}
	assert.InDelta(t, total, enclosed, 1e-9)
}

func TestBoundarySurfaceIsClosed(t *testing.T) {
	vol, err := GenerateBar(BarOptions{Radius: 1, Height: 4, Depth: 0.5, Segments: 7, Layers: 4})
	require.NoError(t, err)
	surf := BoundarySurface(vol)
	require.NotEmpty(t, surf.Faces)

	// Every directed edge appears once and its reverse appears once.
	directed := make(map[[2]int]int)
	for _, f := range surf.Faces {
		for k := 0; k < 3; k++ {
			directed[[2]int{f[k], f[(k+1)%3]}]++
		}
	}
	for e, n := range directed {
		assert.Equal(t, 1, n, "edge %v", e)
		assert.Equal(t, 1, directed[[2]int{e[1], e[0]}], "reverse of %v", e)
	}

	// Surface vertices all sit on the hull of the bar.
	for _, id := range surf.Vertices {
		p := vol.Vertices[id]
		onSide := r3.Norm(r3.Vec{X: p.X, Z: p.Z}) > 0.99
		onCap := p.Y < -0.49 || p.Y > 3.99
		assert.True(t, onSide || onCap, "vertex %d at %v", id, p)
	}
}

func TestGenerateBarRejectsBadOptions(t *testing.T) {
	for _, o := range []BarOptions{
		{Radius: 0, Height: 1, Segments: 3, Layers: 1},
		{Radius: 1, Height: -1, Segments: 3, Layers: 1},
		{Radius: 1, Height: 1, Depth: -1, Segments: 3, Layers: 1},
		{Radius: 1, Height: 1, Segments: 2, Layers: 1},
		{Radius: 1, Height: 1, Segments: 3, Layers: 0},
	} {
		_, err := GenerateBar(o)
		assert.Error(t, err, "%+v", o)
	}
}
