package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/qclab/internal/aggregate"
	"github.com/san-kum/qclab/internal/analysis"
	"github.com/san-kum/qclab/internal/config"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/physics"
	"github.com/san-kum/qclab/internal/sampler"
	"github.com/san-kum/qclab/internal/sim"
	"github.com/san-kum/qclab/internal/storage"
)

var (
	dataDir    string
	format     string
	verbose    bool
	configFile string
	preset     string
	samplerArg string
	numTrajs   int
	seedStart  int64
	batchSize  int
	workers    int
	dt         float64
	tmax       float64
	collectN   int
	kbt        float64
	numModes   int
	numSeeds   int
	modelArg   string
	outFile    string

	allowOverlap bool

	logger = zap.NewNop()
)

var (
	heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "qclab",
		Short:         "mixed quantum-classical trajectory ensembles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "storage format (auto, sqlite, archive)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a trajectory ensemble",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnsemble,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&samplerArg, "sampler", "boltzmann", "initial condition sampler")
	runCmd.Flags().IntVar(&numTrajs, "trajs", config.DefaultNumTrajs, "number of trajectories")
	runCmd.Flags().Int64Var(&seedStart, "seed-start", 0, "seed of the first trajectory")
	runCmd.Flags().IntVar(&batchSize, "batch", config.DefaultBatchSize, "trajectories per batch")
	runCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "parallel workers")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().Float64Var(&tmax, "tmax", config.DefaultTmax, "final time")
	runCmd.Flags().IntVar(&collectN, "collect", config.DefaultDtCollectN, "steps between collected outputs")
	runCmd.Flags().Float64Var(&kbt, "kbt", config.DefaultKBT, "thermal energy")
	runCmd.Flags().IntVar(&numModes, "modes", 1, "number of classical coordinates")

	sampleCmd := &cobra.Command{
		Use:   "sample [sampler]",
		Short: "draw initial conditions",
		Args:  cobra.ExactArgs(1),
		RunE:  drawSamples,
	}
	sampleCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sampleCmd.Flags().StringVar(&modelArg, "model", "harmonic", "model whose constants are used")
	sampleCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sampleCmd.Flags().IntVar(&numSeeds, "seeds", 5, "number of seeds")
	sampleCmd.Flags().Float64Var(&kbt, "kbt", config.DefaultKBT, "thermal energy")
	sampleCmd.Flags().IntVar(&numModes, "modes", 1, "number of classical coordinates")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and stored keys",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id] [key]",
		Short: "plot an averaged time series",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  plotRun,
	}

	mergeCmd := &cobra.Command{
		Use:   "merge [run_id...]",
		Short: "merge runs into a new run",
		Args:  cobra.MinimumNArgs(2),
		RunE:  mergeRuns,
	}
	mergeCmd.Flags().BoolVar(&allowOverlap, "allow-overlap", false, "merge runs that share trajectory seeds")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id] [key]",
		Short: "dominant oscillation frequency per mode",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export averaged time series to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Println(heading.Render("presets for " + args[0]))
			for _, p := range presets {
				cfg := config.GetPreset(args[0], p)
				fmt.Printf("  %-10s %s\n", p, label.Render(fmt.Sprintf("sampler=%s trajs=%d modes=%d",
					cfg.Sampler, cfg.NumTrajs, cfg.Constants.NumModes)))
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, sampleCmd, listCmd, showCmd, plotCmd, analyzeCmd, exportCmd, mergeCmd, presetsCmd)

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore applies the store section of a config unless --data or --format
// were given.
func openStore(cmd *cobra.Command, sc config.StoreConfig) (*storage.Store, error) {
	name := sc.Format
	if cmd.Flags().Changed("format") {
		name = format
	}
	if sc.Dir != "" && !cmd.Flags().Changed("data") {
		dataDir = sc.Dir
	}
	f, err := storage.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	st := storage.New(dataDir, storage.WithFormat(f), storage.WithLogger(logger))
	return st, st.Init()
}

// loadConfig layers the default config, a preset, a config file and finally
// the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if cfg.Model == "" {
			cfg.Model = model
		}
	}

	flags := cmd.Flags()
	if flags.Changed("sampler") {
		cfg.Sampler = samplerArg
	}
	if flags.Changed("trajs") {
		cfg.NumTrajs = numTrajs
	}
	if flags.Changed("seed-start") {
		cfg.SeedStart = seedStart
	}
	if flags.Changed("batch") {
		cfg.BatchSize = batchSize
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("tmax") {
		cfg.Tmax = tmax
	}
	if flags.Changed("collect") {
		cfg.DtCollectN = collectN
	}
	if flags.Changed("kbt") {
		cfg.Constants.KBT = kbt
	}
	if flags.Changed("modes") {
		cfg.Constants.NumModes = numModes
	}
	return cfg, cfg.Validate()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	st, err := openStore(cmd, cfg.Store)
	if err != nil {
		return err
	}
	ens, err := sim.New(cfg, sim.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s ensemble (%d trajectories, %s sampler)...\n", cfg.Model, cfg.NumTrajs, cfg.Sampler)
	start := time.Now()
	data, err := ens.RunParallel(ctx, cfg.Workers)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	summary := energySummary(data)
	runID, err := st.SaveRun(ctx, storage.RunMetadata{
		Model:      cfg.Model,
		Sampler:    cfg.Sampler,
		NumTrajs:   cfg.NumTrajs,
		BatchSize:  cfg.BatchSize,
		Workers:    cfg.Workers,
		Dt:         cfg.Dt,
		Tmax:       cfg.Tmax,
		DtCollectN: cfg.DtCollectN,
		Keys:       data.Keys(),
		Summary:    summary,
	}, data.Tree())
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	printSummary(summary)
	return nil
}

func energySummary(data *aggregate.Data) map[string]float64 {
	energy, ok := data.Tensor(sim.EnergyKey)
	if !ok || energy.Size() == 0 {
		return nil
	}
	e := energy.Real()
	return map[string]float64{
		"energy_initial": e[0],
		"energy_final":   e[len(e)-1],
		"energy_drift":   analysis.Drift(e),
	}
}

func printSummary(summary map[string]float64) {
	if len(summary) == 0 {
		return
	}
	fmt.Println("\n" + heading.Render("summary"))
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s %.6g\n", label.Render(name+":"), summary[name])
	}
}

func drawSamples(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, modelArg)
	if err != nil {
		return err
	}
	smp, err := sampler.NewRegistry().Get(args[0])
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(sampler.NewRegistry().List(), ", "))
	}

	seeds := make([]int64, numSeeds)
	for i := range seeds {
		seeds[i] = int64(i)
	}
	c := cfg.ModelConstants()
	z, err := smp.Sample(seeds, c)
	if err != nil {
		return err
	}
	cc := cfg.Constants
	mass, weight := expand(cc.Mass, cc.NumModes), expand(cc.Weight, cc.NumModes)
	q, p, err := physics.ToRealBatch(z, mass, weight)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tMODE\tQ\tP\tZ")
	for i, s := range seeds {
		for j := 0; j < cc.NumModes; j++ {
			fmt.Fprintf(w, "%d\t%d\t%.6f\t%.6f\t%.4f\n", s, j, real(q.At(i, j)), real(p.At(i, j)), z.At(i, j))
		}
	}
	return w.Flush()
}

func expand(vals []float64, n int) []float64 {
	if len(vals) == n {
		return vals
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = vals[0]
	}
	return out
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir, storage.WithLogger(logger))
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tSAMPLER\tTIME\tTRAJS\tTMAX\tDT\tFORMAT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.4f\t%s\n",
			run.ID,
			run.Model,
			run.Sampler,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NumTrajs,
			run.Tmax,
			run.Dt,
			run.Format,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir, storage.WithLogger(logger))
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Println(heading.Render("run " + meta.ID))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "model:\t%s\n", meta.Model)
	fmt.Fprintf(w, "sampler:\t%s\n", meta.Sampler)
	fmt.Fprintf(w, "created:\t%s\n", meta.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "trajectories:\t%d (batch %d, workers %d)\n", meta.NumTrajs, meta.BatchSize, meta.Workers)
	fmt.Fprintf(w, "time:\tdt=%g tmax=%g every %d steps\n", meta.Dt, meta.Tmax, meta.DtCollectN)
	fmt.Fprintf(w, "format:\t%s\n", meta.Format)
	fmt.Fprintf(w, "keys:\t%s\n", strings.Join(meta.Keys, ", "))
	if err := w.Flush(); err != nil {
		return err
	}
	printSummary(meta.Summary)
	return nil
}

func loadRunData(ctx context.Context, st *storage.Store, runID string) (*aggregate.Data, error) {
	tree, err := st.LoadData(ctx, runID)
	if err != nil {
		return nil, err
	}
	return aggregate.FromTree(tree)
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	key := sim.EnergyKey
	if len(args) > 1 {
		key = args[1]
	}

	st := storage.New(dataDir, storage.WithLogger(logger))
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	data, err := loadRunData(cmd.Context(), st, runID)
	if err != nil {
		return err
	}
	series, ok := data.Tensor(key)
	if !ok {
		return fmt.Errorf("no time series %q in run %s (keys: %s)", key, runID, strings.Join(data.Keys(), ", "))
	}
	if series.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", series.Len())

	for _, col := range columns(series, 6) {
		graph := asciigraph.Plot(col.values,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s%s vs time", key, col.suffix)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

type column struct {
	suffix string
	values []float64
}

// columns splits a (steps,) or (steps, modes) series into real-valued
// traces, at most limit of them.
func columns(series *dynamo.Tensor, limit int) []column {
	if series.Rank() == 1 {
		return []column{{values: series.Real()}}
	}
	width := series.Size() / series.Len()
	var out []column
	for j := 0; j < width && j < limit; j++ {
		vals := make([]float64, series.Len())
		for i := range vals {
			vals[i] = real(series.RowView(i)[j])
		}
		out = append(out, column{suffix: fmt.Sprintf("[%d]", j), values: vals})
	}
	return out
}

func mergeRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(cmd, config.StoreConfig{})
	if err != nil {
		return err
	}

	var (
		parts []*aggregate.Data
		first *storage.RunMetadata
	)
	for _, id := range args {
		meta, err := st.Load(id)
		if err != nil {
			return err
		}
		if first == nil {
			first = meta
		} else if meta.Model != first.Model {
			return fmt.Errorf("cannot merge %s run %s into %s runs", meta.Model, id, first.Model)
		}
		data, err := loadRunData(ctx, st, id)
		if err != nil {
			return fmt.Errorf("run %s: %w", id, err)
		}
		parts = append(parts, data)
	}

	if shared := aggregate.SharedSeeds(parts...); len(shared) > 0 {
		if !allowOverlap {
			return fmt.Errorf("runs share %d trajectory seeds (first %d); use --allow-overlap to merge anyway", len(shared), shared[0])
		}
		logger.Warn("merging runs with shared seeds", zap.Int("shared", len(shared)))
	}

	merged, err := aggregate.MergeAll(parts...)
	if err != nil {
		return err
	}
	meta := *first
	meta.NumTrajs = len(merged.Seeds)
	meta.Keys = merged.Keys()
	meta.Summary = energySummary(merged)

	runID, err := st.SaveRun(ctx, meta, merged.Tree())
	if err != nil {
		return err
	}
	fmt.Printf("merged %d runs (%d trajectories)\n", len(args), meta.NumTrajs)
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	key := sim.QKey
	if len(args) > 1 {
		key = args[1]
	}

	st := storage.New(dataDir, storage.WithLogger(logger))
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	data, err := loadRunData(cmd.Context(), st, runID)
	if err != nil {
		return err
	}
	series, ok := data.Tensor(key)
	if !ok {
		return fmt.Errorf("no time series %q in run %s", key, runID)
	}

	dtOut := meta.Dt * float64(meta.DtCollectN)
	fmt.Println(heading.Render(fmt.Sprintf("%s spectrum (sample interval %g)", key, dtOut)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRACE\tOMEGA\tDRIFT")
	for _, col := range columns(series, series.Size()) {
		omega, err := analysis.DominantFrequency(col.values, dtOut)
		if err != nil {
			return fmt.Errorf("%s%s: %w", key, col.suffix, err)
		}
		fmt.Fprintf(w, "%s%s\t%.4f\t%.3g\n", key, col.suffix, omega, analysis.Drift(col.values))
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir, storage.WithLogger(logger))
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tree, err := st.LoadData(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	times, ok := tree[sim.TimeKey].([]float64)
	if !ok {
		return fmt.Errorf("run %s has no output times", meta.ID)
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return storage.ExportJSON(out, meta, times, tree)
}
