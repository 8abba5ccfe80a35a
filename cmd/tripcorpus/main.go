package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/tripcorpus/internal/catalog"
	"github.com/TobiSchelling/tripcorpus/internal/config"
	"github.com/TobiSchelling/tripcorpus/internal/database"
	"github.com/TobiSchelling/tripcorpus/internal/dataset"
	"github.com/TobiSchelling/tripcorpus/internal/evaluate"
	"github.com/TobiSchelling/tripcorpus/internal/harvest"
	"github.com/TobiSchelling/tripcorpus/internal/langfilter"
	"github.com/TobiSchelling/tripcorpus/internal/pipeline"
	"github.com/TobiSchelling/tripcorpus/internal/report"
)

var version = "dev"

var (
	verbose    bool
	debug      bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "tripcorpus",
	Short:   "Psychedelic substance data and trip report corpus builder",
	Long:    "tripcorpus extracts dose charts, effects and stop words from PsychonautWiki and collects English trip reports from Erowid into a classification corpus.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if debug {
			cfg.Debug = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log and skip non-200 responses instead of halting")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dosechartsCmd)
	rootCmd.AddCommand(effectsCmd)
	rootCmd.AddCommand(stopwordsCmd)
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(revisionsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(evaluateCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tripcorpus", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and catalog in ~/.config/tripcorpus/",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		files := []struct {
			name string
			data []byte
		}{
			{"config.yaml", config.DefaultConfigYAML},
			{"psychedelics.csv", catalog.DefaultCSV},
		}
		for _, f := range files {
			target := filepath.Join(config.ConfigDir(), f.name)
			if _, err := os.Stat(target); err == nil {
				fmt.Printf("Already exists: %s\n", target)
				continue
			}
			if err := os.WriteFile(target, f.data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", f.name, err)
			}
			fmt.Printf("Created: %s\n", target)
		}
		fmt.Println("Edit config.yaml to set your contact name and email.")
		return nil
	},
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(dataset.Layout{Dir: dataDir}.Database())
}

// loadCatalog reads the configured catalog, falling back to the built-in
// one when no catalog was configured and none was initialised.
func loadCatalog() (*catalog.Catalog, error) {
	path := cfg.GetCatalogPath()
	cat, err := catalog.Load(path)
	if err == nil {
		return cat, nil
	}
	if cfg.Catalog == "" && errors.Is(err, os.ErrNotExist) {
		log.Printf("No catalog at %s, using the built-in catalog", path)
		return catalog.Parse(bytes.NewReader(catalog.DefaultCSV))
	}
	return nil, err
}

// newPipeline opens the database and catalog and wires a pipeline with the
// real HTTP client.
func newPipeline() (*pipeline.Pipeline, *database.DB, *catalog.Catalog, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := openDB()
	if err != nil {
		return nil, nil, nil, err
	}
	return pipeline.New(cfg, db, cat, pipeline.NewFetcher(cfg), nil), db, cat, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printSteps(result *pipeline.Result) {
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
}

// singleStep runs one pipeline step as its own command.
func singleStep(run func(p *pipeline.Pipeline, ctx context.Context) pipeline.StepResult) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		pipe, db, _, err := newPipeline()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := signalContext()
		defer cancel()

		step := run(pipe, ctx)
		if step.Err != nil {
			return fmt.Errorf("%s: %w", step.Name, step.Err)
		}
		fmt.Println(step.Summary)
		return nil
	}
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and dataset status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Data directory: %s\n\n", cfg.GetDataDir())
		fmt.Println("Wiki:")
		fmt.Printf("  Substances with dose charts: %d\n", stats.DosechartSubstances)
		fmt.Printf("  Routes of administration: %d\n", stats.Routes)
		fmt.Printf("  Substances with effects: %d\n", stats.EffectSubstances)
		fmt.Printf("  Stop words: %d\n", stats.StopWords)
		fmt.Printf("  Recorded revisions: %d\n", stats.Revisions)
		fmt.Println("\nTrip reports:")
		fmt.Printf("  Phase 1: %d\n", stats.PhaseOneReports)
		fmt.Printf("  Phase 2: %d\n", stats.PhaseTwoReports)
		fmt.Println("\nRuns:")
		for _, phase := range []int{1, 2} {
			run, err := db.GetLastRun(phase)
			if err != nil {
				return err
			}
			if run == nil {
				fmt.Printf("  Phase %d: never run\n", phase)
				continue
			}
			state := "ok"
			if run.Failed {
				state = "failed"
			}
			fmt.Printf("  Phase %d: %s (%s)\n", phase, run.FinishedAt.Local().Format("2006-01-02 15:04"), state)
			if len(run.Pending) > 0 {
				fmt.Printf("    Pending: %s\n", strings.Join(run.Pending, ", "))
			}
		}
		return nil
	},
}

// --- run command ---

var (
	dryRun bool
	phase  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one collection phase",
	Long: `Run one collection phase.

Phase 1 extracts dose charts, effects and stop words for every substance and
harvests trip reports for the first phase_one_count substances. Phase 2
harvests the remaining substances and merges both batches into trip_reports.csv.
Run phase 2 only after phase 1 has completed, on a later day.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if phase == 0 {
			phase = cfg.Phase
		}
		if phase != 1 && phase != 2 {
			return fmt.Errorf("phase must be 1 or 2, got %d", phase)
		}

		pipe, db, _, err := newPipeline()
		if err != nil {
			return err
		}
		defer db.Close()

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(phase)
		} else {
			ctx, cancel := signalContext()
			defer cancel()
			result = pipe.Run(ctx, phase)
		}

		printSteps(result)
		if err := result.Err(); err != nil {
			return err
		}

		if !dryRun {
			if phase == 1 {
				fmt.Println("\nPhase 1 complete. Run 'tripcorpus run --phase 2' tomorrow.")
			} else {
				fmt.Printf("\nPhase 2 complete. Corpus written to %s\n", pipe.Layout().Reports())
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().IntVar(&phase, "phase", 0, "Phase to run (1 or 2); defaults to the config value")
}

// --- single-step commands ---

var dosechartsCmd = &cobra.Command{
	Use:   "dosecharts",
	Short: "Extract dose charts for every catalog substance",
	RunE:  singleStep((*pipeline.Pipeline).RunDosecharts),
}

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "Extract effect lists for every catalog substance",
	RunE:  singleStep((*pipeline.Pipeline).RunEffects),
}

var stopwordsCmd = &cobra.Command{
	Use:   "stopwords",
	Short: "Build the custom stop word list",
	RunE:  singleStep((*pipeline.Pipeline).RunStopWords),
}

var revisionsCmd = &cobra.Command{
	Use:   "revisions",
	Short: "Record the current wiki revision of every catalog substance",
	RunE:  singleStep((*pipeline.Pipeline).RunRevisions),
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the phase 1 and phase 2 batches into trip_reports.csv",
	RunE: singleStep(func(p *pipeline.Pipeline, _ context.Context) pipeline.StepResult {
		return p.RunMerge()
	}),
}

// --- harvest command ---

var harvestOut string

var harvestCmd = &cobra.Command{
	Use:   "harvest <erowid-id>...",
	Short: "Harvest English trip reports for the given substances",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		h := harvest.NewHarvester(pipeline.NewFetcher(cfg), pipeline.URLs(cfg), cfg.Archive.BodyFallback)
		batch, err := h.Batch(ctx, args)
		var incomplete *harvest.Incomplete
		if err != nil && !errors.As(err, &incomplete) {
			return err
		}
		kept, removed := langfilter.New(nil, cfg.Language.Target).Apply(batch)

		for _, s := range kept {
			fmt.Printf("  %s: %d\n", s.Substance, len(s.Reports))
		}
		fmt.Printf("Kept %d reports (%d spam, %d without body, %d other languages)\n",
			kept.Count(), h.Stats.Spam, h.Stats.MissingBody, removed)

		if harvestOut != "" {
			if err := dataset.WriteBatch(harvestOut, kept); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", harvestOut)
		}
		if incomplete != nil {
			return fmt.Errorf("not harvested: %s: %w", strings.Join(incomplete.Pending, " "), incomplete.Err)
		}
		return nil
	},
}

func init() {
	harvestCmd.Flags().StringVarP(&harvestOut, "out", "o", "", "Write the reports to this CSV file")
}

// --- summary command ---

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write summary.md and summary.html for the collected data",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		sum, err := report.Load(db, cat.Rows())
		if err != nil {
			return err
		}
		if cfg.Output.EffectGroupThreshold > 0 {
			sum.GroupEffects(cfg.Output.EffectGroupThreshold)
		}
		layout := dataset.Layout{Dir: cfg.GetDataDir()}
		if err := sum.Write(layout.SummaryMD(), layout.SummaryHTML()); err != nil {
			return err
		}
		fmt.Printf("Wrote %s and %s\n", layout.SummaryMD(), layout.SummaryHTML())
		return nil
	},
}

// --- evaluate command ---

var (
	evalFolds int
	evalTop   int
	evalSeed  int64
	evalModel string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Cross-validate a classifier on trip_reports.csv",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := dataset.Layout{Dir: cfg.GetDataDir()}
		rows, err := dataset.ReadTable(layout.Reports())
		if err != nil {
			return err
		}

		docs := make([]string, len(rows))
		labels := make([]string, len(rows))
		for i, r := range rows {
			docs[i], labels[i] = r.Text, r.Substance
		}

		var newClassifier func() evaluate.Classifier
		switch evalModel {
		case "prior":
			newClassifier = func() evaluate.Classifier { return &evaluate.PriorBaseline{} }
		case "bayes":
			stop, err := dataset.ReadStopWords(layout.StopWords())
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			newClassifier = func() evaluate.Classifier { return evaluate.NewNaiveBayes(stop) }
		default:
			return fmt.Errorf("unknown model %q (want prior or bayes)", evalModel)
		}

		rep, err := evaluate.CrossValidate(newClassifier, docs, labels, evalFolds, evalTop, evalSeed)
		if err != nil {
			return err
		}

		counts := make(map[string]int)
		for _, l := range labels {
			counts[l]++
		}
		fmt.Printf("%d reports, %d substances, %d folds, model %s\n\n", len(docs), len(counts), evalFolds, evalModel)
		fmt.Print(rep.String())
		return nil
	},
}

func init() {
	evaluateCmd.Flags().IntVar(&evalFolds, "folds", 5, "Number of cross-validation folds")
	evaluateCmd.Flags().IntVar(&evalTop, "top", 3, "N for top-N accuracy")
	evaluateCmd.Flags().Int64Var(&evalSeed, "seed", 1, "Shuffle seed")
	evaluateCmd.Flags().StringVar(&evalModel, "model", "bayes", "Classifier: prior or bayes")
}
