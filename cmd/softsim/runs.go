package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/analysis"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/export"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/storage"
)

var (
	exportJSON bool
	showPhase  bool
	svgPrefix  string
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum and damping of a saved run (latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalyze,
	}
	cmd.Flags().BoolVar(&exportJSON, "json", false, "print the run as json")
	cmd.Flags().BoolVar(&showPhase, "phase", false, "plot the tip phase portrait")
	cmd.Flags().StringVar(&svgPrefix, "svg", "", "write <prefix>-tip.svg and <prefix>-phase.svg")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				fmt.Fprintf(w, "%s\t%s\n", name, config.Presets[name].Description)
			}
			w.Flush()
		},
	}
}

func runList(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("no runs found in %s\n", store.Dir())
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tMESH\tK\tMODE\tFRAMES\tTIME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\t%d\t%s\n",
			r.ID, r.Preset, r.Mesh, r.K, r.Mode, r.Frames, r.Timestamp.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	var id string
	if len(args) == 1 {
		id = args[0]
	} else {
		latest, err := store.Latest()
		if err != nil {
			return err
		}
		id = latest
	}

	if exportJSON {
		return store.ExportJSON(os.Stdout, id)
	}

	meta, err := store.Load(id)
	if err != nil {
		return err
	}
	records, err := store.LoadFrames(id)
	if err != nil {
		return err
	}
	if len(records) < 4 {
		return errors.New("run is too short to analyze")
	}

	tip := metrics.TipSeries(records)
	energy := metrics.TotalEnergySeries(records)
	ts, es := metrics.Summarize(tip), metrics.Summarize(energy)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s (%s, k=%.0f, mode %s)\n", meta.ID, meta.Preset, meta.K, meta.Mode)
	fmt.Fprintf(w, "frames\t%d\n", len(records))
	fmt.Fprintf(w, "tip span\t%.4f\n", ts.Span())
	fmt.Fprintf(w, "frequency\t%.3f hz\n", analysis.DominantFrequency(tip, meta.FrameDt))
	fmt.Fprintf(w, "damping\t%.4f\n", analysis.DampingRatio(tip))
	fmt.Fprintf(w, "energy drift\t%.4g\n", metrics.RelativeDrift(energy))
	fmt.Fprintf(w, "energy range\t%.4g .. %.4g\n", es.Min, es.Max)
	w.Flush()

	spectrum := analysis.Spectrum(tip, meta.FrameDt)
	if n := len(spectrum) / 4; n > 1 {
		power := make([]float64, n)
		for i := range power {
			power[i] = spectrum[i].Power
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(power,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("tip power, 0 .. %.2f hz", spectrum[n-1].Frequency)),
		))
	}

	portrait := analysis.TipPhasePortrait(records)
	if showPhase {
		fmt.Println()
		fmt.Print(analysis.PhasePortraitToASCII(portrait, 60, 20))
	}
	if svgPrefix != "" {
		files := map[string]string{
			svgPrefix + "-tip.svg":   export.SeriesToSVG(tip, meta.FrameDt, 800, 300, "#00ffff"),
			svgPrefix + "-phase.svg": export.TrajectoryToSVG(portrait.Points, 500, 500, "#ff00ff"),
		}
		for path, svg := range files {
			if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
		}
	}
	return nil
}
