package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/audio"
	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/softbody"
)

// Monochrome palette.
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGrid    = rl.NewColor(30, 30, 30, 255)
	ColWire    = rl.NewColor(90, 90, 90, 255)
)

const (
	screenWidth  = 1280
	screenHeight = 720
	panelX       = 1060
	maxTelemetry = 300
)

// Options configure the window.
type Options struct {
	Title string
	// Audio, when set, is started with the window and fed every frame.
	Audio  *audio.Sonifier
	Logger *slog.Logger
}

// control is a hold button on the side panel.
type control struct {
	label string
	mode  softbody.ForceMode
	keys  []int32
}

var controls = []control{
	{"PUSH +X", softbody.PushPlusX, []int32{rl.KeyRight, rl.KeyD}},
	{"PUSH -X", softbody.PushMinusX, []int32{rl.KeyLeft, rl.KeyA}},
	{"PUSH +Y", softbody.PushPlusY, []int32{rl.KeyUp, rl.KeyW}},
	{"PUSH -Y", softbody.PushMinusY, []int32{rl.KeyDown, rl.KeyS}},
	{"TWIST CCW", softbody.TorqueCCW, []int32{rl.KeyQ}},
	{"TWIST CW", softbody.TorqueCW, []int32{rl.KeyE}},
}

// App is the raylib front end. It is the scheduler's renderer.
type App struct {
	ctx    context.Context
	title  string
	sched  *softbody.Scheduler
	audio  *audio.Sonifier
	logger *slog.Logger

	positions []r3.Vec
	normals   []r3.Vec
	faces     [][3]int

	Camera       rl.Camera3D
	CamPosTarget rl.Vector3
	CamTgtTarget rl.Vector3
	orbit        orbit

	Running   bool
	ShowWires bool
	Telemetry []float64
	last      softbody.FrameStats
	held      softbody.ForceMode
	err       error
}

// NewApp wires the solver to the load gate. The window is not opened until
// Run.
func NewApp(ctx context.Context, solver *softbody.Solver, gate *mesh.Gate, o Options) *App {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Title == "" {
		o.Title = "softsim"
	}
	a := &App{
		ctx:       ctx,
		title:     o.Title,
		audio:     o.Audio,
		logger:    o.Logger,
		Running:   true,
		ShowWires: true,
		Telemetry: make([]float64, 0, maxTelemetry),
		orbit:     defaultOrbit(),
	}
	a.sched = softbody.NewScheduler(solver, gate, a)
	for _, m := range metrics.Defaults() {
		a.sched.AddMetric(m)
	}
	a.sched.AddObserver(a)
	if a.audio != nil {
		a.sched.AddObserver(a.audio)
	}
	a.Camera = rl.NewCamera3D(rl.NewVector3(0, 8, 30), rl.NewVector3(0, 5, 0), rl.NewVector3(0, 1, 0), 45, rl.CameraPerspective)
	a.CamPosTarget, a.CamTgtTarget = a.Camera.Position, a.Camera.Target
	return a
}

func (a *App) Scheduler() *softbody.Scheduler { return a.sched }

// SetModel frames the camera on the loaded mesh.
func (a *App) SetModel(m *mesh.Model) {
	a.faces = m.Surface.Faces
	a.orbit = frameOrbit(m.Volume.Vertices)
	a.CamPosTarget, a.CamTgtTarget = a.orbit.position(), a.orbit.target
	a.Camera.Position, a.Camera.Target = a.CamPosTarget, a.CamTgtTarget
}

func (a *App) SetPositions(p []r3.Vec) { a.positions = p }

func (a *App) RecomputeNormals() {
	a.normals = mesh.VertexNormals(a.normals, a.positions, a.faces)
}

// OnFrame records the tip height for the telemetry strip.
func (a *App) OnFrame(s softbody.Sample) {
	a.Telemetry = append(a.Telemetry, metrics.TipHeight(s.Positions, s.Topology))
	if len(a.Telemetry) > maxTelemetry {
		a.Telemetry = a.Telemetry[1:]
	}
}

// Run opens the window and blocks until it is closed or ctx is done.
func (a *App) Run() error {
	rl.InitWindow(screenWidth, screenHeight, a.title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)

	if a.audio != nil {
		if err := a.audio.Start(); err != nil {
			a.logger.Warn("audio disabled", "err", err)
		} else {
			defer a.audio.Stop()
		}
	}

	for !rl.WindowShouldClose() {
		if a.ctx.Err() != nil {
			break
		}
		if rl.IsKeyPressed(rl.KeyEscape) {
			break
		}
		a.Update()
		a.Draw()
	}
	return a.err
}

// Update reads input, latches controls into the solver and runs a frame.
func (a *App) Update() {
	solver := a.sched.Solver()

	if rl.IsKeyPressed(rl.KeySpace) {
		a.Running = !a.Running
	}
	if rl.IsKeyPressed(rl.KeyV) {
		a.ShowWires = !a.ShowWires
	}
	if rl.IsKeyPressed(rl.KeyR) {
		solver.Reset()
		a.Telemetry = a.Telemetry[:0]
		a.err = nil
		a.Running = true
	}

	a.held = resolveMode(a.heldModes())
	solver.SetForceMode(a.held)

	a.updateCamera()

	if !a.Running {
		return
	}
	stats, err := a.sched.Tick(a.ctx)
	switch {
	case errors.Is(err, softbody.ErrNotReady):
	case err != nil:
		a.logger.Error("simulation stopped", "err", err)
		a.err = err
		a.Running = false
	default:
		a.last = stats
	}
}

// heldModes lists the modes whose key or button is down this frame, in
// panel order.
func (a *App) heldModes() []softbody.ForceMode {
	var held []softbody.ForceMode
	mouse := rl.GetMousePosition()
	down := rl.IsMouseButtonDown(rl.MouseLeftButton)
	for i, c := range controls {
		on := down && rl.CheckCollisionPointRec(mouse, buttonRect(i))
		for _, k := range c.keys {
			on = on || rl.IsKeyDown(k)
		}
		if on {
			held = append(held, c.mode)
		}
	}
	return held
}

// resolveMode picks the first held mode; with nothing held the force is
// released.
func resolveMode(held []softbody.ForceMode) softbody.ForceMode {
	if len(held) == 0 {
		return softbody.ForceNone
	}
	return held[0]
}

func buttonRect(i int) rl.Rectangle {
	return rl.Rectangle{X: panelX, Y: float32(120 + i*40), Width: 190, Height: 32}
}

func (a *App) updateCamera() {
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		d := rl.GetMouseDelta()
		a.orbit.yaw -= float64(d.X) * 0.01
		a.orbit.pitch += float64(d.Y) * 0.01
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.orbit.zoom(float64(wheel))
	}
	a.orbit.clamp()
	a.CamPosTarget, a.CamTgtTarget = a.orbit.position(), a.orbit.target

	lerp := float32(5.0 / 60.0)
	a.Camera.Position = rl.Vector3Lerp(a.Camera.Position, a.CamPosTarget, lerp)
	a.Camera.Target = rl.Vector3Lerp(a.Camera.Target, a.CamTgtTarget, lerp)
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode3D(a.Camera)
	a.drawFloor(40, 1)
	a.drawSurface()
	rl.EndMode3D()

	a.drawPanel()
	a.DrawHUD()
	rl.EndDrawing()
}

func (a *App) drawPanel() {
	solver := a.sched.Solver()
	a.drawText("FORCES", panelX, 90, 14, ColTextDim)
	for i, c := range controls {
		// raygui reports clicks, not holds; the hold state comes from heldModes.
		gui.Button(buttonRect(i), c.label)
		if a.held == c.mode {
			rl.DrawRectangleLinesEx(buttonRect(i), 2, ColSelect)
		}
	}

	y := float32(120 + len(controls)*40 + 30)
	a.drawText("STIFFNESS", panelX, int(y), 14, ColTextDim)
	k := gui.SliderBar(rl.Rectangle{X: panelX, Y: y + 20, Width: 140, Height: 20}, "", fmt.Sprintf("%.0f", solver.Stiffness()),
		float32(solver.Stiffness()), 0, float32(4*softbody.DefaultStiffness))
	if math.Abs(float64(k)-solver.Stiffness()) > 0.5 {
		solver.SetStiffness(float64(k))
	}

	if gui.Button(rl.Rectangle{X: panelX, Y: y + 60, Width: 90, Height: 30}, pauseLabel(a.Running)) {
		a.Running = !a.Running
	}
	if gui.Button(rl.Rectangle{X: panelX + 100, Y: y + 60, Width: 90, Height: 30}, "Reset") {
		solver.Reset()
		a.Telemetry = a.Telemetry[:0]
	}
}

func pauseLabel(running bool) string {
	if running {
		return "Pause"
	}
	return "Resume"
}

func (a *App) DrawHUD() {
	a.drawText(a.title, 30, 30, 24, ColSelect)
	status, col := "RUNNING", ColSelect
	switch {
	case a.err != nil:
		status, col = "FAILED: "+a.err.Error(), rl.Red
	case !a.sched.Ready():
		status, col = "LOADING", ColAccent
	case !a.Running:
		status, col = "PAUSED", ColTextDim
	}
	a.drawText(status, 30, 62, 16, col)

	a.drawText(fmt.Sprintf("t %.2fs  frame %d  %s  k %.0f", a.last.Time, a.last.Frame, a.last.Mode, a.last.Stiffness), 30, 90, 14, ColText)
	if v := a.sched.Metrics()["sanitized"]; v > 0 {
		a.drawText(fmt.Sprintf("sanitized %.0f", v), 30, 110, 14, rl.Red)
	}

	a.DrawTelemetry()

	if a.audio != nil && a.audio.Active() {
		lv := a.audio.Levels()
		a.drawMeter("BASS", lv.Bass, 30, 620)
		a.drawMeter("MID", lv.Mid, 30, 636)
		a.drawMeter("HIGH", lv.High, 30, 652)
	}
	a.drawText("[ARROWS/WASD] PUSH  [Q/E] TWIST  [SPACE] PAUSE  [R] RESET  [V] WIRES  [ESC] QUIT", 330, 690, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), 30, 690, 14, ColTextDim)
}

func (a *App) drawMeter(label string, v float64, x, y int) {
	a.drawText(label, x, y, 12, ColTextDim)
	rl.DrawRectangle(int32(x+40), int32(y+2), int32(v*120), 8, ColAccent)
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawText(text, int32(x), int32(y), int32(size), color)
}
