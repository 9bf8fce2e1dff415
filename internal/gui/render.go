package gui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"
)

var lightDir = r3.Unit(r3.Vec{X: 0.4, Y: 1, Z: 0.6})

func vec3(v r3.Vec) rl.Vector3 {
	return rl.NewVector3(float32(v.X), float32(v.Y), float32(v.Z))
}

// shade maps a normal to a grey level with a wrap-around diffuse term, so
// faces turned away from the light stay visible.
func shade(n r3.Vec) uint8 {
	if r3.Norm2(n) == 0 {
		return 60
	}
	d := 0.5 + 0.5*r3.Dot(r3.Unit(n), lightDir)
	return uint8(40 + 200*math.Max(0, math.Min(1, d)))
}

// orbit is a camera on a sphere around a target.
type orbit struct {
	target     rl.Vector3
	yaw, pitch float64
	distance   float64
}

func defaultOrbit() orbit {
	return orbit{target: rl.NewVector3(0, 5, 0), yaw: 0.6, pitch: 0.25, distance: 30}
}

// frameOrbit aims the camera at the centre of points from a distance that
// keeps the whole bounding box in view.
func frameOrbit(points []r3.Vec) orbit {
	o := defaultOrbit()
	if len(points) == 0 {
		return o
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	o.target = vec3(r3.Scale(0.5, r3.Add(lo, hi)))
	o.distance = math.Max(2.2*r3.Norm(r3.Sub(hi, lo)), 1)
	return o
}

func (o *orbit) zoom(wheel float64) {
	o.distance *= math.Pow(0.9, wheel)
}

func (o *orbit) clamp() {
	o.pitch = math.Max(-1.4, math.Min(1.4, o.pitch))
	o.distance = math.Max(1, math.Min(500, o.distance))
}

func (o orbit) position() rl.Vector3 {
	cp := math.Cos(o.pitch)
	return rl.NewVector3(
		o.target.X+float32(o.distance*cp*math.Sin(o.yaw)),
		o.target.Y+float32(o.distance*math.Sin(o.pitch)),
		o.target.Z+float32(o.distance*cp*math.Cos(o.yaw)),
	)
}

func (a *App) drawSurface() {
	if a.positions == nil || len(a.normals) != len(a.positions) {
		return
	}
	for _, f := range a.faces {
		p0, p1, p2 := a.positions[f[0]], a.positions[f[1]], a.positions[f[2]]
		n := r3.Add(r3.Add(a.normals[f[0]], a.normals[f[1]]), a.normals[f[2]])
		g := shade(n)
		rl.DrawTriangle3D(vec3(p0), vec3(p1), vec3(p2), rl.NewColor(g, g, g, 255))
		if a.ShowWires {
			rl.DrawLine3D(vec3(p0), vec3(p1), ColWire)
			rl.DrawLine3D(vec3(p1), vec3(p2), ColWire)
			rl.DrawLine3D(vec3(p2), vec3(p0), ColWire)
		}
	}
}

// drawFloor draws a grid on the y = 0 plane under the camera target.
func (a *App) drawFloor(slices int, spacing float32) {
	half := float32(slices) * spacing / 2
	cx, cz := a.orbit.target.X, a.orbit.target.Z
	for i := -slices / 2; i <= slices/2; i++ {
		pos := float32(i) * spacing
		rl.DrawLine3D(rl.NewVector3(cx+pos, 0, cz-half), rl.NewVector3(cx+pos, 0, cz+half), ColGrid)
		rl.DrawLine3D(rl.NewVector3(cx-half, 0, cz+pos), rl.NewVector3(cx+half, 0, cz+pos), ColGrid)
	}
}

func (a *App) DrawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}

	rectX, rectY := 30, 540
	width, height := 400, 60

	minVal, maxVal := a.Telemetry[0], a.Telemetry[0]
	for _, v := range a.Telemetry {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	for i, val := range a.Telemetry {
		px := float32(rectX) + (float32(i)/float32(maxTelemetry))*float32(width)
		norm := (val - minVal) / (maxVal - minVal)
		py := float32(rectY+height) - float32(norm)*float32(height)
		points[i] = rl.NewVector2(px, py)
	}

	rl.DrawLineStrip(points, ColAccent)
	a.drawText(fmt.Sprintf("tip %.3f", a.Telemetry[len(a.Telemetry)-1]), rectX+width+10, rectY+height-10, 14, ColText)
}
