package viz

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera orbits a target point and projects it onto a canvas.
type Camera struct {
	Target   r3.Vec
	Distance float64
	// Extent is the world size that fills two thirds of the shorter side.
	Extent     float64
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 50, Extent: 10, RotX: -0.25, RotY: 0.5, Zoom: 1}
}

// Frame centres the camera on the bounding box of points.
func (c *Camera) Frame(points []r3.Vec) {
	if len(points) == 0 {
		return
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	c.Target = r3.Scale(0.5, r3.Add(lo, hi))
	c.Extent = math.Max(r3.Norm(r3.Sub(hi, lo)), 1e-3)
	c.Distance = 5 * c.Extent
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// View transforms a world point into camera space, with +z towards the
// viewer.
func (c *Camera) View(p r3.Vec) r3.Vec {
	p = r3.Sub(p, c.Target)
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Facing reports whether a world direction points towards the viewer.
func (c *Camera) Facing(n r3.Vec) bool {
	return c.View(r3.Add(c.Target, n)).Z > 0
}

// Project converts a world point to canvas dots. It returns x, y, depth and
// whether the point lies in front of the camera.
func (c *Camera) Project(p r3.Vec, sw, sh int) (int, int, float64, bool) {
	rot := c.View(p)
	if rot.Z >= c.Distance-1e-3 {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z)
	px := float64(min(sw, sh)) / 1.5 / c.Extent * c.Zoom
	sx := int(rot.X*scale*px) + sw/2
	sy := int(-rot.Y*scale*px) + sh/2
	return sx, sy, rot.Z, true
}

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// DrawMesh draws the surface edges of a deformed mesh. When normals is not
// nil, edges whose endpoints both face away from the camera are culled.
func DrawMesh(cv *Canvas, cam *Camera, positions, normals []r3.Vec, edges [][2]int) int {
	w, h := cv.Dots()
	proj := make([]projectedEdge, 0, len(edges))
	for _, e := range edges {
		a, b := e[0], e[1]
		if normals != nil && !cam.Facing(normals[a]) && !cam.Facing(normals[b]) {
			continue
		}
		x1, y1, d1, ok1 := cam.Project(positions[a], w, h)
		x2, y2, d2, ok2 := cam.Project(positions[b], w, h)
		if !ok1 || !ok2 {
			continue
		}
		proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		cv.DrawLine(e.x1, e.y1, e.x2, e.y2)
	}
	return len(proj)
}

// DrawFloor draws the y = 0 plane as a dashed line through the target.
func DrawFloor(cv *Canvas, cam *Camera) {
	w, h := cv.Dots()
	_, y, _, ok := cam.Project(r3.Vec{X: cam.Target.X, Z: cam.Target.Z}, w, h)
	if ok && y >= 0 && y < h {
		cv.HLine(y, 3)
	}
}
