package viz

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/softbody"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	historyCapacity = 300

	// Terminals report key presses but not releases, so an interactive
	// force stays applied for this many ticks after the last press.
	holdTicks = 12

	stiffnessStep = 1.1
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// meshView is the scheduler's renderer for the terminal.
type meshView struct {
	positions []r3.Vec
	normals   []r3.Vec
	faces     [][3]int
	edges     [][2]int
	framed    bool
}

func (v *meshView) SetModel(m *mesh.Model) {
	v.faces = m.Surface.Faces
	v.edges = m.Surface.Edges()
	v.framed = false
}

func (v *meshView) SetPositions(p []r3.Vec) { v.positions = p }

func (v *meshView) RecomputeNormals() {
	v.normals = mesh.VertexNormals(v.normals, v.positions, v.faces)
}

// history keeps the recent tip height and energy for the side panel.
type history struct {
	tip, energy []float64
}

func (h *history) OnFrame(s softbody.Sample) {
	h.tip = appendBounded(h.tip, metrics.TipHeight(s.Positions, s.Topology))
	h.energy = appendBounded(h.energy, metrics.TotalEnergy(s))
}

func (h *history) reset() {
	h.tip = h.tip[:0]
	h.energy = h.energy[:0]
}

func appendBounded(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[len(xs)-historyCapacity:]
	}
	return xs
}

// LiveOptions configure NewModel.
type LiveOptions struct {
	Theme string
	// GIFPath is where the g key writes its recording.
	GIFPath   string
	Observers []softbody.Observer
	Paused    bool
}

// Model is the bubbletea model of the live terminal viewer. It drives one
// solver frame per tick through a Scheduler.
type Model struct {
	ctx   context.Context
	name  string
	sched *softbody.Scheduler
	view  *meshView
	hist  *history

	canvas *Canvas
	camera *Camera
	theme  Theme
	styles Styles

	last    softbody.FrameStats
	err     error
	running bool
	hold    int
	ticks   int
	status  string

	recording bool
	frames    []*image.Paletted
	gifPath   string
	showHelp  bool
}

// NewModel wires a solver to the mesh gate and returns the viewer.
func NewModel(ctx context.Context, name string, solver *softbody.Solver, gate *mesh.Gate, o LiveOptions) Model {
	view := &meshView{}
	hist := &history{}
	sched := softbody.NewScheduler(solver, gate, view)
	for _, mt := range metrics.Defaults() {
		sched.AddMetric(mt)
	}
	sched.AddObserver(hist)
	for _, obs := range o.Observers {
		sched.AddObserver(obs)
	}
	if o.GIFPath == "" {
		o.GIFPath = "softsim.gif"
	}
	theme := GetTheme(o.Theme)
	return Model{
		ctx:     ctx,
		name:    name,
		sched:   sched,
		view:    view,
		hist:    hist,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		camera:  NewCamera(),
		theme:   theme,
		styles:  NewStyles(theme),
		running: !o.Paused,
		gifPath: o.GIFPath,
	}
}

func (m Model) Init() tea.Cmd { return tick() }

// Scheduler exposes the scheduler so callers can read metrics after the
// program exits.
func (m Model) Scheduler() *softbody.Scheduler { return m.sched }

// Err returns the error that stopped the simulation, if any.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := max(20, min(120, msg.Width-52))
		h := max(8, min(48, msg.Height-4))
		m.canvas = NewCanvas(w, h)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		m.step()
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	solver := m.sched.Solver()
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.recording {
			m.saveGIF()
		}
		return m, tea.Quit
	case " ", "space":
		m.running = !m.running
	case "r":
		solver.Reset()
		m.hist.reset()
		m.hold = 0
		m.err = nil
		m.running = true
	case "left", "a":
		m.press(softbody.PushMinusX)
	case "right", "d":
		m.press(softbody.PushPlusX)
	case "up", "w":
		m.press(softbody.PushPlusY)
	case "down", "s":
		m.press(softbody.PushMinusY)
	case "q":
		m.press(softbody.TorqueCCW)
	case "e":
		m.press(softbody.TorqueCW)
	case "+", "=":
		solver.SetStiffness(solver.Stiffness() * stiffnessStep)
	case "-", "_":
		solver.SetStiffness(solver.Stiffness() / stiffnessStep)
	case "x":
		m.camera.RotateX(0.1)
	case "X":
		m.camera.RotateX(-0.1)
	case "y":
		m.camera.RotateY(0.1)
	case "Y":
		m.camera.RotateY(-0.1)
	case "z":
		m.camera.ZoomIn()
	case "Z":
		m.camera.ZoomOut()
	case "t":
		m.theme = NextTheme(m.theme.Name)
		m.styles = NewStyles(m.theme)
	case "g":
		if m.recording {
			m.saveGIF()
			m.recording = false
			m.frames = nil
		} else {
			m.recording = true
			m.frames = make([]*image.Paletted, 0, 256)
			m.status = "recording"
		}
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) press(mode softbody.ForceMode) {
	m.sched.Solver().SetForceMode(mode)
	m.hold = holdTicks
}

func (m *Model) step() {
	m.ticks++
	if !m.running {
		return
	}
	if m.hold > 0 {
		m.hold--
		if m.hold == 0 {
			m.sched.Solver().SetForceMode(softbody.ForceNone)
		}
	}
	stats, err := m.sched.Tick(m.ctx)
	switch {
	case errors.Is(err, softbody.ErrNotReady):
		m.status = "loading mesh"
		return
	case err != nil:
		m.err = err
		m.running = false
		return
	}
	m.last = stats
	if m.status == "loading mesh" {
		m.status = ""
	}
	m.draw()
	if m.recording {
		m.frames = append(m.frames, m.canvas.Image(8, 16))
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	if m.view.positions == nil {
		return
	}
	if !m.view.framed {
		m.camera.Frame(m.sched.Solver().Topology().Rest)
		m.view.framed = true
	}
	DrawFloor(m.canvas, m.camera)
	DrawMesh(m.canvas, m.camera, m.view.positions, m.view.normals, m.view.edges)
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	anim := gif.GIF{}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		m.status = err.Error()
		return
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &anim); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("saved %d frames to %s", len(m.frames), m.gifPath)
}

func (m Model) View() string {
	st := m.styles
	var s strings.Builder
	s.WriteString(st.Header.Render(strings.ToUpper(m.name)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(st.Failed.Render("FAILED") + "\n" + st.Value.Render(m.err.Error()) + "\n")
	case !m.sched.Ready():
		s.WriteString(st.Paused.Render(AnimatedSpinner(m.ticks)+" LOADING") + "\n")
	case !m.running:
		s.WriteString(st.Paused.Render("PAUSED") + "\n")
	case m.recording:
		s.WriteString(st.Failed.Render("● REC") + " " + st.Running.Render("RUNNING") + "\n")
	default:
		s.WriteString(st.Running.Render("RUNNING") + "\n")
	}

	if len(m.hist.tip) > 1 {
		chart := asciigraph.Plot(m.hist.tip, asciigraph.Height(6), asciigraph.Width(32), asciigraph.Caption("tip height"))
		s.WriteString(st.Graph.Render(chart) + "\n")
	}

	solver := m.sched.Solver()
	row := func(label, value string) {
		s.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.last.Time))
	row("Frame", fmt.Sprintf("%d", m.last.Frame))
	row("Step", m.last.Elapsed.Round(time.Microsecond).String())
	mode := solver.ForceMode()
	if mode != softbody.ForceNone {
		s.WriteString(st.Label.Render("Force") + st.Active.Render(mode.String()) + "\n")
	} else {
		row("Force", mode.String())
	}
	k := solver.Stiffness()
	row("Stiffness", fmt.Sprintf("%s %.0f", Bar(k/(2*softbody.DefaultStiffness), 10), k))
	if n := len(m.hist.energy); n > 0 {
		row("Energy", fmt.Sprintf("%.3f", m.hist.energy[n-1]))
	}
	if v, ok := m.sched.Metrics()["sanitized"]; ok && v > 0 {
		s.WriteString(st.Label.Render("Sanitized") + st.Failed.Render(fmt.Sprintf("%.0f", v)) + "\n")
	}
	if m.status != "" {
		s.WriteString("\n" + st.Value.Render(m.status) + "\n")
	}
	s.WriteString(st.Help.Render("─────────────────────\n←→↑↓/wasd:Push q/e:Twist +/-:Stiffness\nSP:Pause R:Reset T:Theme G:Record\n?:Help ESC:Quit"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, st.Canvas.Render(m.canvas.String()), st.Panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  ←/a →/d  - Push the top sideways    ║
║  ↑/w ↓/s  - Lift or press the top    ║
║  q / e    - Twist ccw / cw           ║
║  + / -    - Stiffness up / down      ║
║  x y z    - Rotate and zoom camera   ║
║  Space    - Pause/Resume             ║
║  R        - Reset to rest            ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  Esc      - Quit                     ║
╚══════════════════════════════════════╝`

// Run starts a bubbletea program on the alt screen and returns the final
// model.
func Run(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m, tea.WithAltScreen()).Run()
}
