package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	cv := viz.NewCanvas(2, 1)
	cv.Set(0, 0)
	cv.Set(3, 3)

	svg := CanvasToSVG(cv, 10, "#00ff00")
	assert.Contains(t, svg, `width="40" height="40"`)
	assert.Equal(t, 2, strings.Count(svg, "<circle"))
	assert.Contains(t, svg, `<circle cx="5.0" cy="5.0" r="4.0"/>`)
	assert.Contains(t, svg, `<circle cx="35.0" cy="35.0" r="4.0"/>`)
	assert.Empty(t, CanvasToSVG(nil, 1, ""))
}

func TestTrajectoryToSVG(t *testing.T) {
	points := []struct{ X, Y float64 }{{0, 0}, {1, 1}}
	svg := TrajectoryToSVG(points, 120, 120, "#fff")
	// a tenth of padding puts the corners at 10 and 110
	assert.Contains(t, svg, `d="M10.0,110.0 L110.0,10.0"`)
	assert.Contains(t, svg, `stroke="#fff"`)
	assert.Empty(t, TrajectoryToSVG(points[:1], 10, 10, ""))
}

func TestSeriesToSVG(t *testing.T) {
	svg := SeriesToSVG([]float64{3, 3, 3}, 0.5, 100, 50, "red")
	require.NotEmpty(t, svg)
	assert.Equal(t, 2, strings.Count(svg, " L"))
}

func TestMeshToSVG(t *testing.T) {
	m, err := mesh.Generated(mesh.DefaultBarOptions())
	require.NoError(t, err)
	svg := MeshToSVG(m.Volume.Vertices, m.Surface, 40, 20, 2, viz.ThemeOcean)
	assert.Contains(t, svg, string(viz.ThemeOcean.Mesh))
	assert.Greater(t, strings.Count(svg, "<circle"), 50)
}
