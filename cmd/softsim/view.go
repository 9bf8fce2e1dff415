package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/audio"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/export"
	"github.com/san-kum/softsim/internal/gui"
	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/viz"
)

var (
	theme     string
	gifPath   string
	withAudio bool
	barOpts   = mesh.DefaultBarOptions()
	meshOut   string
	preview   string
)

func newLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addViewFlags(cmd)
	return cmd
}

func newTUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "pick a preset and tune it before going live",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}
	addViewFlags(cmd)
	return cmd
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&theme, "theme", viz.ThemeNames()[0], "color theme")
	cmd.Flags().StringVar(&gifPath, "gif", "softsim.gif", "where the g key saves its recording")
}

func newGUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gui",
		Short: "3D window with hold buttons",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}
	cmd.Flags().BoolVar(&withAudio, "audio", false, "sonify the tip deflection")
	return cmd
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, closeLog, err := liveModel(cmd, cfg, name)
	if err != nil {
		return err
	}
	defer closeLog()
	final, err := viz.Run(m)
	if err != nil {
		return err
	}
	if fm, ok := final.(viz.Model); ok {
		return fm.Err()
	}
	return nil
}

func liveModel(cmd *cobra.Command, cfg *config.Config, name string) (viz.Model, func(), error) {
	log, closeLog, err := newLogger(true)
	if err != nil {
		return viz.Model{}, nil, err
	}
	solver, err := newSolver(cfg, log)
	if err != nil {
		closeLog()
		return viz.Model{}, nil, err
	}
	m := viz.NewModel(cmd.Context(), name, solver, cfg.MeshGate(cmd.Context()), viz.LiveOptions{
		Theme:   theme,
		GIFPath: gifPath,
	})
	return m, closeLog, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	base, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var choices []viz.Choice
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		choices = append(choices, viz.Choice{
			Name:        name,
			Description: config.Presets[name].Description,
			Params: []viz.Param{
				{Name: "k", Value: cfg.Solver.K, Step: 25},
				{Name: "kd", Value: cfg.Solver.Kd, Step: 0.001},
				{Name: "substeps", Value: float64(cfg.Solver.Substeps), Step: 10},
			},
		})
	}

	var closers []func()
	defer func() {
		for _, c := range closers {
			c()
		}
	}()
	launch := func(c viz.Choice) (viz.Model, error) {
		cfg := config.GetPreset(c.Name)
		if cfg == nil {
			return viz.Model{}, fmt.Errorf("unknown preset: %s", c.Name)
		}
		cfg.Mesh = base.Mesh
		cfg.Solver.Workers = base.Solver.Workers
		for _, p := range c.Params {
			switch p.Name {
			case "k":
				cfg.Solver.K = p.Value
			case "kd":
				cfg.Solver.Kd = p.Value
			case "substeps":
				cfg.Solver.Substeps = int(p.Value)
			}
		}
		if err := cfg.Validate(); err != nil {
			return viz.Model{}, err
		}
		m, closeLog, err := liveModel(cmd, cfg, c.Name)
		if err != nil {
			return viz.Model{}, err
		}
		closers = append(closers, closeLog)
		return m, nil
	}

	final, err := viz.Run(viz.NewPicker(choices, launch))
	if err != nil {
		return err
	}
	if fm, ok := final.(viz.Model); ok {
		return fm.Err()
	}
	return nil
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	solver, err := newSolver(cfg, log)
	if err != nil {
		return err
	}
	opts := gui.Options{Title: "softsim - " + name, Logger: log}
	if withAudio {
		opts.Audio = audio.NewSonifier(log)
	}
	return gui.NewApp(cmd.Context(), solver, cfg.MeshGate(cmd.Context()), opts).Run()
}

func newMeshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "generate the bar as .msh and .obj files",
		Args:  cobra.NoArgs,
		RunE:  runMesh,
	}
	f := cmd.Flags()
	f.Float64Var(&barOpts.Radius, "radius", barOpts.Radius, "bar radius")
	f.Float64Var(&barOpts.Height, "height", barOpts.Height, "bar height")
	f.Float64Var(&barOpts.Depth, "depth", barOpts.Depth, "length buried below the floor")
	f.IntVar(&barOpts.Segments, "segments", barOpts.Segments, "vertices per ring")
	f.IntVar(&barOpts.Layers, "layers", barOpts.Layers, "number of rings")
	f.Float64Var(&barOpts.Lift, "lift", 0, "raise the whole bar")
	f.StringVar(&meshOut, "out", "bar", "output path without extension")
	f.StringVar(&preview, "preview", "", "also render the surface to this svg file")
	return cmd
}

func runMesh(cmd *cobra.Command, args []string) error {
	vol, err := mesh.GenerateBar(barOpts)
	if err != nil {
		return err
	}
	surf := mesh.BoundarySurface(vol)

	if err := writeFile(meshOut+".msh", func(f *os.File) error { return mesh.WriteVolume(f, vol) }); err != nil {
		return err
	}
	if err := writeFile(meshOut+".obj", func(f *os.File) error { return mesh.WriteSurface(f, vol.Vertices, surf) }); err != nil {
		return err
	}
	fmt.Printf("wrote %s.msh (%d vertices, %d tetrahedra) and %s.obj (%d faces)\n",
		meshOut, len(vol.Vertices), len(vol.Tetrahedra), meshOut, len(surf.Faces))
	if preview != "" {
		svg := export.MeshToSVG(vol.Vertices, surf, 80, 40, 3, viz.GetTheme(theme))
		if err := os.WriteFile(preview, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", preview)
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
