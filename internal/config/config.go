package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/softbody"
)

const (
	DefaultFrames  = 600
	DefaultDataDir = "data"
)

type Config struct {
	Mesh     MeshConfig      `yaml:"mesh"`
	Generate mesh.BarOptions `yaml:"generate"`
	Solver   SolverConfig    `yaml:"solver"`
	Topology TopologyConfig  `yaml:"topology"`
	Run      RunConfig       `yaml:"run"`
}

// MeshConfig points at the volume and surface files. An empty volume path
// means the bar is generated from Config.Generate.
type MeshConfig struct {
	Volume         string  `yaml:"volume"`
	Surface        string  `yaml:"surface"`
	MatchTolerance float64 `yaml:"match_tolerance"`
}

type SolverConfig struct {
	K        float64   `yaml:"k"`
	Kd       float64   `yaml:"kd"`
	Kc       float64   `yaml:"kc"`
	Gravity  []float64 `yaml:"gravity,flow"`
	FrameDt  float64   `yaml:"frame_dt"`
	Substeps int       `yaml:"substeps"`
	Workers  int       `yaml:"workers,omitempty"`
}

type TopologyConfig struct {
	Capacity     int     `yaml:"capacity"`
	PinBelow     float64 `yaml:"pin_below"`
	ControlAbove float64 `yaml:"control_above"`
	Dedup        string  `yaml:"dedup"`
	Overflow     string  `yaml:"overflow"`
}

type RunConfig struct {
	Frames  int    `yaml:"frames"`
	Mode    string `yaml:"mode"`
	DataDir string `yaml:"data_dir"`
}

func DefaultConfig() *Config {
	g := softbody.DefaultGravity
	return &Config{
		Mesh:     MeshConfig{MatchTolerance: mesh.DefaultTolerance},
		Generate: mesh.DefaultBarOptions(),
		Solver: SolverConfig{
			K:        softbody.DefaultStiffness,
			Kd:       softbody.DefaultDamping,
			Kc:       softbody.DefaultFloorStiffness,
			Gravity:  []float64{g.X, g.Y, g.Z},
			FrameDt:  softbody.DefaultFrameDt,
			Substeps: softbody.DefaultSubsteps,
		},
		Topology: TopologyConfig{
			Capacity:     softbody.DefaultCapacity,
			PinBelow:     softbody.DefaultPinBelow,
			ControlAbove: softbody.DefaultControlAbove,
			Dedup:        softbody.DedupPerVertex.String(),
			Overflow:     softbody.OverflowTruncate.String(),
		},
		Run: RunConfig{
			Frames:  DefaultFrames,
			Mode:    softbody.ForceNone.String(),
			DataDir: DefaultDataDir,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base, so keys missing from the
// file keep the value base had.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Solver.Gravity = append([]float64(nil), c.Solver.Gravity...)
	return &out
}

func (c *Config) Validate() error {
	if len(c.Solver.Gravity) != 3 {
		return fmt.Errorf("%w: gravity needs 3 components, got %d", softbody.ErrParameterBounds, len(c.Solver.Gravity))
	}
	if c.Topology.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", softbody.ErrParameterBounds, c.Topology.Capacity)
	}
	if c.Run.Frames < 0 {
		return fmt.Errorf("%w: frames must not be negative, got %d", softbody.ErrParameterBounds, c.Run.Frames)
	}
	if c.Mesh.Volume == "" && c.Mesh.Surface != "" {
		return fmt.Errorf("%w: surface %q given without a volume mesh", softbody.ErrParameterBounds, c.Mesh.Surface)
	}
	if _, err := c.ForceMode(); err != nil {
		return err
	}
	if _, err := c.TopologyOptions(nil); err != nil {
		return err
	}
	return c.Params().Validate()
}

func (c *Config) Params() softbody.Params {
	var g r3.Vec
	if len(c.Solver.Gravity) == 3 {
		g = r3.Vec{X: c.Solver.Gravity[0], Y: c.Solver.Gravity[1], Z: c.Solver.Gravity[2]}
	}
	return softbody.Params{
		Stiffness:      c.Solver.K,
		Damping:        c.Solver.Kd,
		FloorStiffness: c.Solver.Kc,
		Gravity:        g,
		FrameDt:        c.Solver.FrameDt,
		Substeps:       c.Solver.Substeps,
	}
}

func (c *Config) TopologyOptions(log *slog.Logger) (softbody.TopologyOptions, error) {
	dedup, err := softbody.ParseEdgeDedup(c.Topology.Dedup)
	if err != nil {
		return softbody.TopologyOptions{}, err
	}
	overflow, err := softbody.ParseOverflowPolicy(c.Topology.Overflow)
	if err != nil {
		return softbody.TopologyOptions{}, err
	}
	return softbody.TopologyOptions{
		Capacity:     c.Topology.Capacity,
		PinBelow:     c.Topology.PinBelow,
		ControlAbove: c.Topology.ControlAbove,
		Dedup:        dedup,
		Overflow:     overflow,
		Logger:       log,
	}, nil
}

// SolverOptions converts the config into solver options.
func (c *Config) SolverOptions(log *slog.Logger) (softbody.Options, error) {
	if err := c.Validate(); err != nil {
		return softbody.Options{}, err
	}
	topo, err := c.TopologyOptions(log)
	if err != nil {
		return softbody.Options{}, err
	}
	return softbody.Options{
		Params:   c.Params(),
		Topology: topo,
		Workers:  c.Solver.Workers,
		Logger:   log,
	}, nil
}

func (c *Config) ForceMode() (softbody.ForceMode, error) {
	return softbody.ParseForceMode(c.Run.Mode)
}

// MeshGate starts loading the configured mesh. Generated bars resolve
// immediately; files are read in the background.
func (c *Config) MeshGate(ctx context.Context) *mesh.Gate {
	if c.Mesh.Volume == "" {
		g := mesh.NewGate()
		g.Resolve(mesh.Generated(c.Generate))
		return g
	}
	return mesh.LoadAsync(ctx, c.Mesh.Volume, c.Mesh.Surface, c.Mesh.MatchTolerance)
}
