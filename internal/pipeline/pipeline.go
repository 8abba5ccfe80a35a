package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/tripcorpus/internal/catalog"
	"github.com/TobiSchelling/tripcorpus/internal/config"
	"github.com/TobiSchelling/tripcorpus/internal/database"
	"github.com/TobiSchelling/tripcorpus/internal/dataset"
	"github.com/TobiSchelling/tripcorpus/internal/dosechart"
	"github.com/TobiSchelling/tripcorpus/internal/effects"
	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/harvest"
	"github.com/TobiSchelling/tripcorpus/internal/langfilter"
	"github.com/TobiSchelling/tripcorpus/internal/metrics"
	"github.com/TobiSchelling/tripcorpus/internal/revisions"
	"github.com/TobiSchelling/tripcorpus/internal/stopwords"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of one phase.
type Result struct {
	Phase   int
	Steps   []StepResult
	Kept    int
	Removed int
	// Pending lists the substances the request quota left unharvested.
	Pending []string
}

// Err returns the error of the step that halted the run, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// URLs builds the endpoint set from config.
func URLs(cfg *config.Config) fetch.URLs {
	return fetch.URLs{
		WikiBase:    cfg.Wiki.BaseURL,
		EffectsPage: cfg.Wiki.EffectsPage,
		ArchiveBase: cfg.Archive.BaseURL,
		MaxResults:  cfg.Archive.MaxResults,
	}
}

// NewFetcher creates the HTTP client described by cfg. Requests to the
// archive are capped at its daily quota.
func NewFetcher(cfg *config.Config) *fetch.Client {
	return fetch.NewClient(fetch.Options{
		Name:    cfg.Contact.Name,
		Email:   cfg.Contact.Email,
		Debug:   cfg.Debug,
		Timeout: cfg.HTTP.Timeout,
		Delay:   cfg.HTTP.RequestDelay,
		Budget:  ArchiveBudget(cfg),
	})
}

// ArchiveBudget caps archive requests at the configured daily quota.
func ArchiveBudget(cfg *config.Config) *fetch.Budget {
	budget := fetch.NewBudget()
	if cfg.Archive.DailyQuota > 0 {
		budget.Limit(URLs(cfg).ArchiveHost(), cfg.Archive.DailyQuota)
	}
	return budget
}

// Pipeline drives the two collection phases.
type Pipeline struct {
	cfg     *config.Config
	db      *database.DB
	catalog *catalog.Catalog
	fetcher fetch.Fetcher
	urls    fetch.URLs
	layout  dataset.Layout
	filter  *langfilter.Filter
	metrics *metrics.Run
	now     func() time.Time
}

// requestCounter is implemented by fetchers that count their requests.
type requestCounter interface {
	Requests() map[string]int
}

// New creates a new pipeline. A nil detector uses whatlanggo.
func New(cfg *config.Config, db *database.DB, cat *catalog.Catalog, fetcher fetch.Fetcher, detector langfilter.Detector) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		db:      db,
		catalog: cat,
		fetcher: fetcher,
		urls:    URLs(cfg),
		layout:  dataset.Layout{Dir: cfg.GetDataDir()},
		filter:  langfilter.New(detector, cfg.Language.Target),
		metrics: metrics.New(),
		now:     time.Now,
	}
}

// Layout returns the output file layout.
func (p *Pipeline) Layout() dataset.Layout {
	return p.layout
}

// Run executes one phase. A failing step halts the phase.
func (p *Pipeline) Run(ctx context.Context, phase int) *Result {
	started := p.now()
	var r *Result
	switch phase {
	case 1:
		r = p.runPhaseOne(ctx)
	case 2:
		r = p.runPhaseTwo(ctx)
	default:
		return &Result{Phase: phase, Steps: []StepResult{{Name: "Phase", Err: fmt.Errorf("unknown phase %d", phase)}}}
	}

	finished := p.now()
	failed := r.Err() != nil
	_, err := p.db.InsertRun(database.RunReport{
		Phase:      phase,
		StartedAt:  started,
		FinishedAt: finished,
		Reports:    r.Kept,
		Removed:    r.Removed,
		Failed:     failed,
		Pending:    r.Pending,
	})
	if err != nil {
		log.Printf("Failed to record run: %v", err)
	}

	p.metrics.Finish(phase, started, finished, failed)
	if c, ok := p.fetcher.(requestCounter); ok {
		p.metrics.Requests(phase, c.Requests())
	}
	if err := p.metrics.WriteFile(p.layout.Metrics()); err != nil {
		log.Printf("Failed to write metrics: %v", err)
	}
	return r
}

// Metrics returns the statistics gathered by Run.
func (p *Pipeline) Metrics() *metrics.Run {
	return p.metrics
}

func (p *Pipeline) runPhaseOne(ctx context.Context) *Result {
	r := &Result{Phase: 1}
	first, _ := p.catalog.Split(p.cfg.PhaseOneCount)

	steps := []func(context.Context) StepResult{
		p.RunDosecharts,
		p.RunEffects,
		p.RunStopWords,
	}
	if p.cfg.Wiki.RecordRevisions {
		steps = append(steps, p.RunRevisions)
	}
	for _, step := range steps {
		s := step(ctx)
		r.Steps = append(r.Steps, s)
		if s.Err != nil {
			return r
		}
	}

	p.harvestBatch(ctx, r, first)
	return r
}

func (p *Pipeline) runPhaseTwo(ctx context.Context) *Result {
	r := &Result{Phase: 2}
	_, rest := p.catalog.Split(p.cfg.PhaseOneCount)

	if !p.harvestBatch(ctx, r, rest) {
		return r
	}
	r.Steps = append(r.Steps, p.RunMerge())
	return r
}

// harvestBatch appends the Harvest and Filter steps for one phase and
// reports whether both succeeded. A harvest cut short by the request quota
// still saves what it collected; the next run of the phase picks up the
// pending substances.
func (p *Pipeline) harvestBatch(ctx context.Context, r *Result, archiveIDs []string) bool {
	todo, prior := p.resume(r.Phase, archiveIDs)
	log.Printf("Harvesting trip reports for %d substances...", len(todo))
	h := harvest.NewHarvester(p.fetcher, p.urls, p.cfg.Archive.BodyFallback)
	batch, err := h.Batch(ctx, todo)
	var incomplete *harvest.Incomplete
	if err != nil && !errors.As(err, &incomplete) {
		r.Steps = append(r.Steps, StepResult{Name: "Harvest", Err: err})
		return false
	}
	p.metrics.Reports(r.Phase, metrics.Spam, h.Stats.Spam)
	p.metrics.Reports(r.Phase, metrics.MissingBody, h.Stats.MissingBody)
	step := StepResult{
		Name: "Harvest",
		Summary: fmt.Sprintf("Collected %d reports from %d links (%d spam, %d without body)",
			h.Stats.Kept, h.Stats.Links, h.Stats.Spam, h.Stats.MissingBody),
	}
	if incomplete != nil {
		step.Err = incomplete
		r.Pending = incomplete.Pending
	}
	r.Steps = append(r.Steps, step)

	s := p.SaveBatch(r.Phase, append(prior, batch...), r)
	r.Steps = append(r.Steps, s)
	return s.Err == nil && incomplete == nil
}

// resume returns the substances of archiveIDs the last run of phase left
// pending, together with the batch that run saved. Without such a run it
// returns archiveIDs and no prior batch.
func (p *Pipeline) resume(phase int, archiveIDs []string) ([]string, dataset.Batch) {
	last, err := p.db.GetLastRun(phase)
	if err != nil || last == nil || len(last.Pending) == 0 {
		return archiveIDs, nil
	}
	pending := make(map[string]bool, len(last.Pending))
	for _, id := range last.Pending {
		pending[id] = true
	}
	wanted := make(map[string]bool, len(archiveIDs))
	var todo []string
	for _, id := range archiveIDs {
		wanted[id] = true
		if pending[id] {
			todo = append(todo, id)
		}
	}
	if len(todo) == 0 {
		return archiveIDs, nil
	}

	saved, err := dataset.ReadBatch(p.layout.Batch(phase))
	if err != nil {
		log.Printf("Cannot resume phase %d, harvesting from scratch: %v", phase, err)
		return archiveIDs, nil
	}
	var prior dataset.Batch
	for _, s := range saved {
		if wanted[s.Substance] && !pending[s.Substance] {
			prior = append(prior, s)
		}
	}
	log.Printf("Resuming phase %d: %d substances pending, %d already harvested", phase, len(todo), len(prior))
	return todo, prior
}

// SaveBatch filters a harvested batch by language and persists it as the
// batch of phase.
func (p *Pipeline) SaveBatch(phase int, batch dataset.Batch, r *Result) StepResult {
	log.Println("Filtering trip reports by language...")
	kept, removed := p.filter.Apply(batch)
	if r != nil {
		r.Kept, r.Removed = kept.Count(), removed
	}
	p.metrics.Reports(phase, metrics.Kept, kept.Count())
	p.metrics.Reports(phase, metrics.Removed, removed)

	path := p.layout.Batch(phase)
	if err := dataset.WriteBatch(path, kept); err != nil {
		return StepResult{Name: "Filter", Err: err}
	}
	if err := p.db.ReplaceBatch(phase, kept); err != nil {
		return StepResult{Name: "Filter", Err: fmt.Errorf("storing batch: %w", err)}
	}
	return StepResult{
		Name:    "Filter",
		Summary: fmt.Sprintf("Kept %d reports, removed %d; saved %s", kept.Count(), removed, path),
	}
}

// RunDosecharts extracts and persists the dose charts of every catalog
// substance.
func (p *Pipeline) RunDosecharts(ctx context.Context) StepResult {
	log.Println("Extracting dosecharts...")
	ex := dosechart.NewExtractor(p.fetcher, p.urls, p.cfg.Debug)
	charts, err := ex.All(ctx, p.catalog.WikiIDs())
	if err != nil {
		return StepResult{Name: "Dosecharts", Err: err}
	}
	if err := dataset.SaveBlob(p.layout.Dosecharts(), charts); err != nil {
		return StepResult{Name: "Dosecharts", Err: err}
	}
	if err := p.db.ReplaceDosecharts(charts); err != nil {
		return StepResult{Name: "Dosecharts", Err: fmt.Errorf("storing dosecharts: %w", err)}
	}
	routes := 0
	for _, c := range charts {
		routes += len(c)
	}
	return StepResult{
		Name:    "Dosecharts",
		Summary: fmt.Sprintf("Extracted %d routes for %d substances", routes, len(charts)),
	}
}

// RunEffects extracts and persists the effect lists of every catalog
// substance.
func (p *Pipeline) RunEffects(ctx context.Context) StepResult {
	log.Println("Extracting effects...")
	ex := effects.NewExtractor(p.fetcher, p.urls)
	all, err := ex.All(ctx, p.catalog.WikiIDs())
	if err != nil {
		return StepResult{Name: "Effects", Err: err}
	}
	if err := dataset.SaveBlob(p.layout.Effects(), all); err != nil {
		return StepResult{Name: "Effects", Err: err}
	}
	if err := p.db.ReplaceEffects(all); err != nil {
		return StepResult{Name: "Effects", Err: fmt.Errorf("storing effects: %w", err)}
	}
	n := 0
	for _, list := range all {
		n += len(list)
	}
	return StepResult{
		Name:    "Effects",
		Summary: fmt.Sprintf("Extracted %d effects for %d substances", n, len(all)),
	}
}

// RunStopWords builds and persists the stop word set.
func (p *Pipeline) RunStopWords(ctx context.Context) StepResult {
	words, err := stopwords.NewBuilder(p.fetcher, p.urls).Build(ctx, p.catalog)
	if err != nil {
		return StepResult{Name: "Stop words", Err: err}
	}
	if err := dataset.WriteStopWords(p.layout.StopWords(), words); err != nil {
		return StepResult{Name: "Stop words", Err: err}
	}
	if err := p.db.ReplaceStopWords(words); err != nil {
		return StepResult{Name: "Stop words", Err: fmt.Errorf("storing stop words: %w", err)}
	}
	return StepResult{Name: "Stop words", Summary: fmt.Sprintf("Built %d stop words", len(words))}
}

// RunRevisions records the current wiki revision of every catalog page.
func (p *Pipeline) RunRevisions(ctx context.Context) StepResult {
	log.Println("Recording wiki revisions...")
	res, err := revisions.NewTracker(p.fetcher, p.urls).RecordAll(ctx, p.catalog.WikiIDs(), p.db)
	if err != nil {
		return StepResult{Name: "Revisions", Err: err}
	}
	return StepResult{
		Name:    "Revisions",
		Summary: fmt.Sprintf("Recorded %d revisions, %d pages without history", res.Recorded, len(res.Missing)),
	}
}

// RunMerge concatenates both phase batches into the final table.
func (p *Pipeline) RunMerge() StepResult {
	n, err := dataset.Merge(p.layout.Reports(), p.layout.Batch(1), p.layout.Batch(2))
	if err != nil {
		return StepResult{Name: "Merge", Err: err}
	}
	return StepResult{
		Name:    "Merge",
		Summary: fmt.Sprintf("Wrote %d trip reports to %s", n, p.layout.Reports()),
	}
}

// DryRun shows what a phase would fetch without executing it.
func (p *Pipeline) DryRun(phase int) *Result {
	r := &Result{Phase: phase}
	first, rest := p.catalog.Split(p.cfg.PhaseOneCount)
	wiki := p.catalog.Len()

	switch phase {
	case 1:
		r.Steps = append(r.Steps,
			StepResult{Name: "Dosecharts", Summary: fmt.Sprintf("[dry-run] Would fetch %d wiki substance pages", wiki)},
			StepResult{Name: "Effects", Summary: fmt.Sprintf("[dry-run] Would fetch the effects list and %d wiki summary pages", wiki)},
			StepResult{Name: "Stop words", Summary: fmt.Sprintf("[dry-run] Would fetch %d wiki pages", wiki)},
		)
		if p.cfg.Wiki.RecordRevisions {
			r.Steps = append(r.Steps, StepResult{Name: "Revisions", Summary: fmt.Sprintf("[dry-run] Would fetch %d history feeds", wiki)})
		}
		r.Steps = append(r.Steps,
			StepResult{Name: "Harvest", Summary: fmt.Sprintf("[dry-run] Would harvest reports for %v", first)},
			StepResult{Name: "Filter", Summary: fmt.Sprintf("[dry-run] Would save %s", p.layout.Batch(1))},
		)
	case 2:
		r.Steps = append(r.Steps,
			StepResult{Name: "Harvest", Summary: fmt.Sprintf("[dry-run] Would harvest reports for %v", rest)},
			StepResult{Name: "Filter", Summary: fmt.Sprintf("[dry-run] Would save %s", p.layout.Batch(2))},
			StepResult{Name: "Merge", Summary: fmt.Sprintf("[dry-run] Would merge both batches into %s", p.layout.Reports())},
		)
	default:
		r.Steps = append(r.Steps, StepResult{Name: "Phase", Err: fmt.Errorf("unknown phase %d", phase)})
	}
	return r
}
