package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/analysis"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/storage"
)

var (
	save        bool
	sweepFrom   float64
	sweepTo     float64
	sweepSteps  int
	sweepKick   int
	sweepSettle int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run headless and print a summary",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the run in the data directory")
	return cmd
}

// frameWriter streams every frame into an open run.
type frameWriter struct{ run *storage.Run }

func (w frameWriter) OnFrame(s softbody.Sample) {
	// the first error is kept by the run and returned from Close
	_ = w.run.WriteFrame(metrics.NewRecord(s))
}

func runSimulation(cmd *cobra.Command, args []string) error {
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
	ctx := cmd.Context()
	sched := softbody.NewScheduler(solver, cfg.MeshGate(ctx), nil)
	for _, m := range metrics.Defaults() {
		sched.AddMetric(m)
	}
	rec := metrics.NewRecorder(0)
	sched.AddObserver(rec)

	var run *storage.Run
	if save {
		run, err = storage.New(cfg.Run.DataDir).Create(name, cfg)
		if err != nil {
			return err
		}
		sched.AddObserver(frameWriter{run})
	}

	log.Info("running", "preset", name, "mesh", meshLabel(cfg), "frames", cfg.Run.Frames, "mode", cfg.Run.Mode)
	start := time.Now()
	stats, runErr := sched.Run(ctx, cfg.Run.Frames)
	elapsed := time.Since(start)

	if run != nil {
		meta := runMetadata(cfg, name, sched)
		if err := run.Close(meta); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("completed %d frames in %v (%.1f frames/s)\n", len(stats), elapsed.Round(time.Millisecond),
		float64(len(stats))/elapsed.Seconds())
	if run != nil {
		fmt.Printf("run id: %s\n", run.ID())
	}
	printSummary(rec.Records(), sched.Metrics(), cfg.Solver.FrameDt)
	return nil
}

func runMetadata(cfg *config.Config, name string, sched *softbody.Scheduler) storage.RunMetadata {
	meta := storage.RunMetadata{
		Preset:   name,
		Mesh:     meshLabel(cfg),
		K:        cfg.Solver.K,
		Kd:       cfg.Solver.Kd,
		Kc:       cfg.Solver.Kc,
		FrameDt:  cfg.Solver.FrameDt,
		Substeps: cfg.Solver.Substeps,
		Mode:     cfg.Run.Mode,
		Metrics:  sched.Metrics(),
	}
	if topo := sched.Solver().Topology(); topo != nil {
		meta.Vertices = topo.Len()
		meta.Edges = topo.Neighbors.EdgeCount()
	}
	if m := sched.Model(); m != nil {
		meta.Tetrahedra = len(m.Volume.Tetrahedra)
	}
	return meta
}

func printSummary(records []metrics.Record, values map[string]float64, dt float64) {
	if len(records) == 0 {
		return
	}
	tip := metrics.TipSeries(records)
	s := metrics.Summarize(tip)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nTIP\tMEAN\tSTD\tMIN\tMAX\tFINAL")
	fmt.Fprintf(w, "height\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n", s.Mean, s.Std, s.Min, s.Max, s.Final)
	fmt.Fprintf(w, "\nfrequency\t%.3f hz\n", analysis.DominantFrequency(tip, dt))
	fmt.Fprintf(w, "damping\t%.4f\n", analysis.DampingRatio(tip))

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "\nMETRIC\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6g\n", name, values[name])
	}
	w.Flush()

	if len(tip) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(tip,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("tip height"),
		))
	}
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "ring the bar at several stiffness values",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	cmd.Flags().Float64Var(&sweepFrom, "from", 50, "lowest stiffness")
	cmd.Flags().Float64Var(&sweepTo, "to", 800, "highest stiffness")
	cmd.Flags().IntVar(&sweepSteps, "steps", 6, "number of stiffness values")
	cmd.Flags().IntVar(&sweepKick, "kick", 30, "frames the force is held before release")
	cmd.Flags().IntVar(&sweepSettle, "transient", 30, "frames skipped before recording")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	opts, err := cfg.SolverOptions(log)
	if err != nil {
		return err
	}
	m, err := cfg.ForceMode()
	if err != nil {
		return err
	}
	if m == softbody.ForceNone {
		m = softbody.PushPlusX
	}
	model, err := cfg.MeshGate(cmd.Context()).Wait(cmd.Context())
	if err != nil {
		return err
	}

	ks := analysis.LinearRange(sweepFrom, sweepTo, sweepSteps)
	points, err := analysis.StiffnessSweep(cmd.Context(), model, ks, analysis.SweepOptions{
		Solver:    opts,
		Mode:      m,
		Kick:      sweepKick,
		Transient: sweepSettle,
		Record:    cfg.Run.Frames,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "K\tFREQ (hz)\tAMPLITUDE\tDAMPING")
	for _, p := range points {
		fmt.Fprintf(w, "%.1f\t%.3f\t%.4f\t%.4f\n", p.K, p.Frequency, p.Amplitude, p.Damping)
	}
	w.Flush()
	fmt.Println()
	fmt.Print(analysis.SweepToASCII(points, 60, 15))
	return nil
}
