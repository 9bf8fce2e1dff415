package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/analysis"
	"github.com/san-kum/softsim/internal/automation"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/optim"
	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/storage"
)

var (
	targetFreq    float64
	targetDamping float64
	kRange        []float64
	kdRange       []float64
	gridSteps     int
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search k and kd for a target ringing frequency",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	f := cmd.Flags()
	f.Float64Var(&targetFreq, "freq", 1, "target tip frequency (hz)")
	f.Float64Var(&targetDamping, "damping", -1, "target damping ratio (negative ignores it)")
	f.Float64SliceVar(&kRange, "k-range", []float64{50, 800}, "stiffness range lo,hi")
	f.Float64SliceVar(&kdRange, "kd-range", []float64{0, 0.01}, "damping range lo,hi")
	f.IntVar(&gridSteps, "steps", 5, "values per parameter")
	f.IntVar(&sweepKick, "kick", 30, "frames the force is held before release")
	f.IntVar(&sweepSettle, "transient", 30, "frames skipped before recording")
	return cmd
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(kRange) != 2 || len(kdRange) != 2 {
		return fmt.Errorf("--k-range and --kd-range take two values")
	}
	if targetFreq <= 0 {
		return fmt.Errorf("--freq must be positive")
	}
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
	ctx := cmd.Context()
	model, err := cfg.MeshGate(ctx).Wait(ctx)
	if err != nil {
		return err
	}

	grid := optim.NewGridSearch([]string{"k", "kd"}, [][]float64{
		analysis.LinearRange(kRange[0], kRange[1], gridSteps),
		analysis.LinearRange(kdRange[0], kdRange[1], gridSteps),
	})
	if cfg.Solver.Workers > 0 {
		grid.SetWorkers(cfg.Solver.Workers)
	}
	ring := analysis.SweepOptions{Mode: m, Kick: sweepKick, Transient: sweepSettle, Record: cfg.Run.Frames}
	target := optim.Target{Frequency: targetFreq, Damping: targetDamping}

	log.Info("tuning", "points", len(grid.Points()), "target_hz", targetFreq, "target_damping", targetDamping)
	best, all, err := grid.Search(ctx, optim.RingObjective(model, opts, ring, target))
	if err != nil {
		return err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score < all[j].Score })
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "K\tKD\tSCORE")
	for i, r := range all {
		if i == 10 {
			break
		}
		fmt.Fprintf(w, "%.1f\t%.5f\t%.4f\n", r.Params["k"], r.Params["kd"], r.Score)
	}
	w.Flush()
	fmt.Printf("\nbest: k=%.1f kd=%.5f (score %.4f)\n", best.Params["k"], best.Params["kd"], best.Score)
	return nil
}

func newScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script <scenario.yaml>",
		Short: "run a scripted sequence of forces",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the run in the data directory")
	return cmd
}

func runScript(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	if sc.Preset != "" && !cmd.Flags().Changed("preset") {
		preset = sc.Preset
	}
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if sc.Name != "" {
		name = sc.Name
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

	results, runErr := automation.Run(ctx, sched, sc, log)
	if run != nil {
		meta := runMetadata(cfg, name, sched)
		meta.Mode = "script"
		if err := run.Close(meta); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return runErr
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMODE\tFRAMES\tK\tTIP MIN\tTIP MAX\tKINETIC")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\t%.4f\t%.4f\t%.4g\n",
			r.Label, r.Mode, r.Frames, r.Stiffness, r.Tip.Min, r.Tip.Max, r.Kinetic)
	}
	w.Flush()
	if run != nil {
		fmt.Printf("run id: %s\n", run.ID())
	}

	if tip := metrics.TipSeries(rec.Records()); len(tip) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(tip,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("tip height, %s", name)),
		))
	}
	return nil
}
