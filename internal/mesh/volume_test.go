package mesh

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const unitTetMsh = `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
4
1 0 1 0
2 1 1 0
3 0 2 0
4 0 1 1
$EndNodes
$Elements
1
1 4 0 1 2 3 4 0
$EndElements
`

func TestParseVolume(t *testing.T) {
	vol, err := ParseVolume(strings.NewReader(unitTetMsh))
	require.NoError(t, err)

	assert.Equal(t, []r3.Vec{{X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 2, Z: 0}, {X: 0, Y: 1, Z: 1}}, vol.Vertices)
	assert.Equal(t, [][4]int{{0, 1, 2, 3}}, vol.Tetrahedra)
	assert.Equal(t, 1.0, SignedVolume(vol.Vertices[0], vol.Vertices[1], vol.Vertices[2], vol.Vertices[3]))
}

func TestParseVolumeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		empty bool
	}{
		{"bad coordinate", "1 0 x 0\n", 1, false},
		{"bad index", "1 0 0 0\n2 1 0 0\n3 0 1 0\n4 0 0 1\n1 4 0 1 2 three 4 0\n", 5, false},
		{"index out of range", "1 0 0 0\n2 1 0 0\n3 0 1 0\n\n1 4 0 1 2 3 9 0\n4 0 0 1\n", 5, false},
		{"forward reference", "1 0 0 0\n2 1 0 0\n3 0 1 0\n1 4 0 1 2 3 4 0\n4 0 0 1\n", 4, false},
		{"nan coordinate", "1 0 0 0\n2 NaN 0 0\n3 0 1 0\n4 0 0 1\n1 4 0 1 2 3 4 0\n", 2, false},
		{"infinite coordinate", "1 0 0 0\n2 1 0 0\n3 0 +Inf 0\n4 0 0 1\n1 4 0 1 2 3 4 0\n", 3, false},
		{"zero index", "1 0 0 0\n2 1 0 0\n3 0 1 0\n4 0 0 1\n1 4 0 0 1 2 3 0\n", 5, false},
		{"no tetrahedra", "1 0 0 0\n2 1 0 0\n", 0, true},
		{"nothing", "$Nodes\n$EndNodes\n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseVolume("bar.msh", strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.empty {
				assert.ErrorIs(t, err, ErrEmpty)
				return
			}
			assert.ErrorIs(t, err, ErrMalformed)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, "bar.msh", perr.Source)
			assert.Contains(t, err.Error(), "bar.msh:")
		})
	}
}

func TestWriteVolumeRoundTrip(t *testing.T) {
	vol, err := GenerateBar(BarOptions{Radius: 0.7, Height: 2, Depth: 0.25, Segments: 5, Layers: 2})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteVolume(&buf, vol))
	back, err := ParseVolume(&buf)
	require.NoError(t, err)
	assert.Equal(t, vol.Vertices, back.Vertices)
	assert.Equal(t, vol.Tetrahedra, back.Tetrahedra)
}
