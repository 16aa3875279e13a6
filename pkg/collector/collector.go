// Package collector runs a single collection pass: fetch every source, parse, normalize,
// classify, dedupe and rank the accepted items, then persist the result.
// A failing source or entry never aborts the run, only cancellation and persistence failure do.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/cubscope/pkg/domain"
	"github.com/umputun/cubscope/pkg/filter"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/parser.go -pkg mocks -skip-ensure -fmt goimports . Parser
//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store

// Fetcher retrieves raw feed payload
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Parser converts feed payload to entries
type Parser interface {
	Parse(data []byte) (*domain.ParsedFeed, error)
}

// Normalizer converts raw entries to items, now is used for undated entries
type Normalizer interface {
	NormalizeAt(raw domain.RawEntry, src domain.Source, feedTitle string, now time.Time) (domain.Item, error)
}

// Classifier decides item relevance
type Classifier interface {
	Classify(item domain.Item, src domain.Source) filter.Decision
}

// Store persists collection result
type Store interface {
	Save(res *domain.Result) error
}

// Collector orchestrates collection runs. Stateless between runs, safe for concurrent use,
// though the scheduler never runs two passes at once.
type Collector struct {
	fetcher     Fetcher
	parser      Parser
	normalizer  Normalizer
	classifier  Classifier
	store       Store
	team        string
	maxItems    int
	concurrency int
	now         func() time.Time
}

// Config holds collector dependencies and parameters
type Config struct {
	Fetcher     Fetcher
	Parser      Parser
	Normalizer  Normalizer
	Classifier  Classifier
	Store       Store
	Team        string
	MaxItems    int // items kept after ranking, 0 means DefaultMaxItems
	Concurrency int // parallel source fetches, 0 means DefaultConcurrency
	Now         func() time.Time
}

// defaults for Config
const (
	DefaultMaxItems    = 50
	DefaultConcurrency = 4
)

// New makes a collector with the given config
func New(cfg Config) *Collector {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Collector{
		fetcher:     cfg.Fetcher,
		parser:      cfg.Parser,
		normalizer:  cfg.Normalizer,
		classifier:  cfg.Classifier,
		store:       cfg.Store,
		team:        cfg.Team,
		maxItems:    cfg.MaxItems,
		concurrency: cfg.Concurrency,
		now:         cfg.Now,
	}
}

// sourceResult is what a single source contributes to a run
type sourceResult struct {
	report domain.SourceReport
	items  []domain.Item
}

// Run performs one collection pass over sources and persists the result.
// The returned result is non-nil even on save error, so the caller can report counts.
func (c *Collector) Run(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
	start := c.now().UTC()
	runID := uuid.NewString()
	lgr.Printf("[INFO] collection %s started, %d sources", runID, len(sources))

	// each source writes to its own slot, union keeps configured order
	results := make([]sourceResult, len(sources))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = c.collectSource(ctx, src, start)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	res := &domain.Result{GeneratedAt: start, Team: c.team, Meta: domain.Meta{RunID: runID, SourcesTotal: len(sources)}}
	var union []domain.Item
	for _, r := range results {
		res.Meta.Sources = append(res.Meta.Sources, r.report)
		res.Meta.EntriesSeen += r.report.Entries
		res.Meta.EntriesAccepted += r.report.Accepted
		if r.report.OK() {
			res.Meta.SourcesOK++
		} else {
			res.Meta.SourcesFailed++
		}
		union = append(union, r.items...)
	}

	res.Items = DedupeAndRank(union, c.maxItems)
	res.Count = len(res.Items)
	res.GeneratedTS = domain.UnixSeconds(start)
	res.Meta.DurationMs = c.now().Sub(start).Milliseconds()

	if res.Meta.SourcesTotal > 0 && res.Meta.SourcesOK == 0 {
		lgr.Printf("[WARN] all %d sources failed in collection %s", res.Meta.SourcesTotal, runID)
	}

	// interrupted run would replace a good artifact with a partial one
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("collection %s interrupted: %w", runID, err)
	}

	if err := c.store.Save(res); err != nil {
		return res, fmt.Errorf("save result: %w", err)
	}
	lgr.Printf("[INFO] collection %s completed, %d items from %d/%d sources, seen %d, accepted %d, %dms",
		runID, res.Count, res.Meta.SourcesOK, res.Meta.SourcesTotal, res.Meta.EntriesSeen,
		res.Meta.EntriesAccepted, res.Meta.DurationMs)
	return res, nil
}

// collectSource fetches, parses and processes entries of a single source.
// Fetch failure and panics are reported in the source report, parse failure counts as zero entries.
func (c *Collector) collectSource(ctx context.Context, src domain.Source, now time.Time) (res sourceResult) {
	res.report = domain.SourceReport{Name: src.Name, URL: src.URL}
	defer func() {
		if r := recover(); r != nil {
			lgr.Printf("[WARN] source %s panicked: %v", src.Name, r)
			res = sourceResult{report: domain.SourceReport{Name: src.Name, URL: src.URL, Error: fmt.Sprintf("panic: %v", r)}}
		}
	}()

	data, err := c.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		lgr.Printf("[WARN] failed to fetch %s (%s): %v", src.Name, src.URL, err)
		res.report.Error = err.Error()
		return res
	}

	parsed, err := c.parser.Parse(data)
	if err != nil {
		lgr.Printf("[WARN] failed to parse %s (%s): %v", src.Name, src.URL, err)
	}
	if parsed == nil {
		return res
	}

	res.report.Entries = len(parsed.Entries)
	for _, raw := range parsed.Entries {
		out := c.processEntry(raw, src, parsed.Title, now)
		if !out.Kept() {
			res.report.Skipped++
			lgr.Printf("[DEBUG] skip %q from %s: %s %s", raw.Title, src.Name, out.Skip, out.Detail)
			continue
		}
		res.report.Accepted++
		res.items = append(res.items, out.Item)
	}
	lgr.Printf("[DEBUG] source %s: %d entries, %d accepted", src.Name, res.report.Entries, res.report.Accepted)
	return res
}

// processEntry normalizes and classifies one entry, a panic becomes a skip outcome
func (c *Collector) processEntry(raw domain.RawEntry, src domain.Source, feedTitle string, now time.Time) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.Outcome{Skip: domain.SkipPanic, Detail: fmt.Sprint(r)}
		}
	}()

	item, err := c.normalizer.NormalizeAt(raw, src, feedTitle, now)
	if err != nil {
		return domain.Outcome{Skip: domain.SkipEmpty, Detail: err.Error()}
	}
	if d := c.classifier.Classify(item, src); !d.Accepted {
		return domain.Outcome{Skip: domain.SkipIrrelevant, Detail: string(d.Reason)}
	}
	return domain.Outcome{Item: item}
}
