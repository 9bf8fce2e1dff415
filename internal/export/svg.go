package export

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/viz"
)

const background = "#0a0a0a"

// braille dot bits by sub-pixel row and column
var pixelMap = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// CanvasToSVG draws every set braille dot of canvas as a circle.
func CanvasToSVG(canvas *viz.Canvas, scale float64, fill string) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.Dots()
	width, height := float64(w)*scale, float64(h)*scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, background, fill)

	r := scale * 0.4
	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			cell := canvas.Grid[row][col]
			if cell <= 0x2800 {
				continue
			}
			pattern := cell - 0x2800
			baseX, baseY := float64(col)*scale*2, float64(row)*scale*4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// MeshToSVG renders the surface edges of a mesh, framed and seen from
// slightly above, the way the live view first shows it.
func MeshToSVG(positions []r3.Vec, surface *mesh.Surface, cols, rows int, scale float64, theme viz.Theme) string {
	cv := viz.NewCanvas(cols, rows)
	cam := viz.NewCamera()
	cam.Frame(positions)
	cam.RotateX(0.3)
	cam.RotateY(0.5)
	normals := mesh.VertexNormals(nil, positions, surface.Faces)
	viz.DrawMesh(cv, cam, positions, normals, surface.Edges())
	viz.DrawFloor(cv, cam)
	return CanvasToSVG(cv, scale, string(theme.Mesh))
}

// TrajectoryToSVG draws points as one polyline scaled to fill the image
// with a tenth of padding on every side.
func TrajectoryToSVG(points []struct{ X, Y float64 }, width, height int, stroke string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, stroke)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// SeriesToSVG plots a series sampled every dt seconds against time.
func SeriesToSVG(series []float64, dt float64, width, height int, stroke string) string {
	points := make([]struct{ X, Y float64 }, len(series))
	for i, v := range series {
		points[i].X, points[i].Y = float64(i)*dt, v
	}
	return TrajectoryToSVG(points, width, height, stroke)
}
