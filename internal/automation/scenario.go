package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/softbody"
)

// Scenario is a scripted sequence of held forces.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Preset names the configuration the scenario starts from.
	Preset string `yaml:"preset"`
	Steps  []Step `yaml:"steps"`
}

// Step holds one force mode for a number of frames.
type Step struct {
	Label  string  `yaml:"label"`
	Mode   string  `yaml:"mode"`
	Frames int     `yaml:"frames"`
	K      float64 `yaml:"k,omitempty"` // 0 keeps the current stiffness
	Reset  bool    `yaml:"reset,omitempty"`
}

// StepResult summarizes the tip over one step.
type StepResult struct {
	Label     string
	Mode      softbody.ForceMode
	Frames    int
	Stiffness float64
	Tip       metrics.Summary
	// Kinetic is the kinetic energy after the last frame of the step.
	Kinetic float64
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	for i, st := range sc.Steps {
		if _, err := softbody.ParseForceMode(st.Mode); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if st.Frames <= 0 {
			return fmt.Errorf("step %d: frames must be positive, got %d", i+1, st.Frames)
		}
		if st.K < 0 {
			return fmt.Errorf("step %d: negative stiffness %g", i+1, st.K)
		}
	}
	return nil
}

// Frames is the total length of the scenario.
func (sc *Scenario) Frames() int {
	n := 0
	for _, st := range sc.Steps {
		n += st.Frames
	}
	return n
}

// Run drives sched through every step. Observers registered on sched see
// every frame. The results cover the steps completed before any error.
func Run(ctx context.Context, sched *softbody.Scheduler, sc *Scenario, log *slog.Logger) ([]StepResult, error) {
	if log == nil {
		log = slog.Default()
	}
	// wait for the mesh and build the solver before the first step
	if _, err := sched.Run(ctx, 0); err != nil {
		return nil, err
	}

	solver := sched.Solver()
	results := make([]StepResult, 0, len(sc.Steps))
	var pos, vel []r3.Vec
	for i, st := range sc.Steps {
		mode, _ := softbody.ParseForceMode(st.Mode)
		label := st.Label
		if label == "" {
			label = fmt.Sprintf("step %d", i+1)
		}
		log.Info("scenario step", "step", i+1, "of", len(sc.Steps), "label", label, "mode", mode, "frames", st.Frames)

		if st.Reset {
			solver.Reset()
		}
		if st.K > 0 {
			solver.SetStiffness(st.K)
		}

		tip := make([]float64, 0, st.Frames)
		for f := 0; f < st.Frames; f++ {
			solver.SetForceMode(mode)
			if _, err := sched.Tick(ctx); err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
			pos = solver.Positions(pos)
			tip = append(tip, metrics.TipHeight(pos, solver.Topology()))
		}
		vel = solver.Velocities(vel)
		results = append(results, StepResult{
			Label:     label,
			Mode:      mode,
			Frames:    st.Frames,
			Stiffness: solver.Stiffness(),
			Tip:       metrics.Summarize(tip),
			Kinetic:   metrics.KineticEnergy(vel, solver.Topology().InvMass),
		})
	}
	solver.SetForceMode(softbody.ForceNone)
	return results, nil
}
