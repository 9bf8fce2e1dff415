package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/softbody"
)

var (
	configFile  string
	preset      string
	volumePath  string
	surfacePath string
	dataDir     string
	frames      int
	mode        string
	stiffness   float64
	substeps    int
	workers     int
	logLevel    string
	logFile     string
)

// main registers the commands and opens the GUI when none is given.
func main() {
	rootCmd := &cobra.Command{
		Use:           "softsim",
		Short:         "tetrahedral soft body playground",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&volumePath, "volume", "", "volume mesh (.msh); empty generates a bar")
	pf.StringVar(&surfacePath, "surface", "", "render surface (.obj); empty uses the volume boundary")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.IntVar(&frames, "frames", config.DefaultFrames, "frames to simulate")
	pf.StringVar(&mode, "mode", "none", "force mode held for the whole run")
	pf.Float64Var(&stiffness, "k", softbody.DefaultStiffness, "spring stiffness")
	pf.IntVar(&substeps, "substeps", softbody.DefaultSubsteps, "substeps per frame")
	pf.IntVar(&workers, "workers", 0, "kernel workers (0 = GOMAXPROCS)")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(
		newRunCmd(),
		newSweepCmd(),
		newTuneCmd(),
		newScriptCmd(),
		newLiveCmd(),
		newTUICmd(),
		newGUICmd(),
		newMeshCmd(),
		newListCmd(),
		newAnalyzeCmd(),
		newPresetsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// newLogger builds the text logger. Full screen views pass quiet so that
// logs do not tear the screen unless a log file was given.
func newLogger(quiet bool) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, nil, fmt.Errorf("--log-level: %w", err)
	}
	var w io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		w, closeFn = f, func() { f.Close() }
	case quiet:
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

// loadConfig resolves the configuration: defaults, then the preset, then
// the config file, then any flag given explicitly. It returns a name for
// the run.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, name := config.DefaultConfig(), "reference"
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		name = preset
	}
	if configFile != "" {
		c, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	}

	flags := cmd.Flags()
	if flags.Changed("volume") {
		cfg.Mesh.Volume = volumePath
	}
	if flags.Changed("surface") {
		cfg.Mesh.Surface = surfacePath
	}
	if flags.Changed("data") || cfg.Run.DataDir == "" {
		cfg.Run.DataDir = dataDir
	}
	if flags.Changed("frames") {
		cfg.Run.Frames = frames
	}
	if flags.Changed("mode") {
		cfg.Run.Mode = mode
	}
	if flags.Changed("k") {
		cfg.Solver.K = stiffness
	}
	if flags.Changed("substeps") {
		cfg.Solver.Substeps = substeps
	}
	if flags.Changed("workers") {
		cfg.Solver.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

// newSolver builds an uninitialized solver holding the configured force.
func newSolver(cfg *config.Config, log *slog.Logger) (*softbody.Solver, error) {
	opts, err := cfg.SolverOptions(log)
	if err != nil {
		return nil, err
	}
	m, err := cfg.ForceMode()
	if err != nil {
		return nil, err
	}
	solver, err := softbody.NewSolver(opts)
	if err != nil {
		return nil, err
	}
	solver.SetForceMode(m)
	return solver, nil
}

func meshLabel(cfg *config.Config) string {
	if cfg.Mesh.Volume == "" {
		g := cfg.Generate
		return fmt.Sprintf("bar r=%g h=%g %dx%d", g.Radius, g.Height, g.Segments, g.Layers)
	}
	return cfg.Mesh.Volume
}
