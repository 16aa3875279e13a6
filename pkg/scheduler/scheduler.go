// Package scheduler owns collection run state. A single loop goroutine accepts trigger and status
// requests, starts at most one collection at a time and records its outcome.
// Runs are started by the startup check, the cron schedule and manual triggers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/umputun/cubscope/pkg/domain"
)

//go:generate moq -out mocks/collector.go -pkg mocks -skip-ensure -fmt goimports . Collector
//go:generate moq -out mocks/artifact.go -pkg mocks -skip-ensure -fmt goimports . Artifact
//go:generate moq -out mocks/history.go -pkg mocks -skip-ensure -fmt goimports . History

// Collector performs a single collection pass
type Collector interface {
	Run(ctx context.Context, sources []domain.Source) (*domain.Result, error)
}

// Artifact reports whether a usable artifact is already stored
type Artifact interface {
	HasItems() bool
}

// History records finished runs
type History interface {
	SaveRun(ctx context.Context, rec domain.RunRecord, sources []domain.SourceReport) error
}

// TriggerResult tells what a trigger request did
type TriggerResult string

// trigger results
const (
	Started        TriggerResult = "started"
	AlreadyRunning TriggerResult = "already running"
)

// trigger kinds stored in run history
const (
	triggerStartup  = "startup"
	triggerManual   = "manual"
	triggerSchedule = "schedule"
)

// ErrStopped returned by Trigger when the scheduler loop is not running anymore
var ErrStopped = errors.New("scheduler stopped")

// Config holds scheduler dependencies and parameters
type Config struct {
	Collector Collector
	Artifact  Artifact // optional, startup run is skipped without it
	History   History  // optional
	Sources   []domain.Source
	Interval  time.Duration // periodic runs, ignored if Schedule set, zero or negative disables
	Schedule  string        // cron spec, e.g. "*/15 * * * *" or "@hourly"
}

// Scheduler runs collections, one at a time
type Scheduler struct {
	collector Collector
	artifact  Artifact
	history   History
	sources   []domain.Source
	schedule  cron.Schedule
	now       func() time.Time

	triggerCh chan triggerReq
	statusCh  chan chan domain.RunStatus
	doneCh    chan runDone
	stopped   chan struct{}
	final     domain.RunStatus // valid after stopped is closed
}

type triggerReq struct {
	kind  string
	reply chan TriggerResult
}

type runDone struct {
	kind     string
	started  time.Time
	finished time.Time
	res      *domain.Result
	err      error
}

// New makes a scheduler, fails on invalid schedule
func New(cfg Config) (*Scheduler, error) {
	if cfg.Collector == nil {
		return nil, errors.New("collector is required")
	}
	s := &Scheduler{
		collector: cfg.Collector,
		artifact:  cfg.Artifact,
		history:   cfg.History,
		sources:   cfg.Sources,
		now:       time.Now,
		triggerCh: make(chan triggerReq),
		statusCh:  make(chan chan domain.RunStatus),
		doneCh:    make(chan runDone),
		stopped:   make(chan struct{}),
	}

	spec := cfg.Schedule
	if spec == "" && cfg.Interval > 0 {
		spec = "@every " + cfg.Interval.String()
	}
	if spec != "" {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
		}
		s.schedule = sched
	}
	return s, nil
}

// Trigger starts a collection unless one is in progress. Doesn't wait for the collection itself.
func (s *Scheduler) Trigger(ctx context.Context) (TriggerResult, error) {
	return s.trigger(ctx, triggerManual)
}

// Status returns a snapshot of the run state
func (s *Scheduler) Status() domain.RunStatus {
	reply := make(chan domain.RunStatus, 1)
	select {
	case s.statusCh <- reply:
		return <-reply
	case <-s.stopped:
		return s.final
	}
}

// Run is the owner loop. Blocks until ctx is done, then waits for the in-flight collection.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.stopped)

	var cr *cron.Cron
	var entryID cron.EntryID
	if s.schedule != nil {
		cr = cron.New()
		entryID = cr.Schedule(s.schedule, cron.FuncJob(func() {
			if _, err := s.trigger(ctx, triggerSchedule); err != nil {
				lgr.Printf("[DEBUG] scheduled trigger skipped: %v", err)
			}
		}))
		cr.Start()
		defer func() { <-cr.Stop().Done() }()
	} else {
		lgr.Printf("[INFO] periodic collection disabled, startup and manual runs only")
	}
	lgr.Printf("[INFO] scheduler started, %d sources", len(s.sources))

	var st domain.RunStatus
	snapshot := func(st domain.RunStatus) domain.RunStatus {
		if cr != nil {
			st.NextRun = cr.Entry(entryID).Next.UTC()
		}
		return st
	}
	start := func(kind string) TriggerResult {
		if st.Running {
			lgr.Printf("[DEBUG] %s trigger ignored, collection in progress", kind)
			return AlreadyRunning
		}
		st.Running, st.LastStart = true, s.now().UTC()
		go s.collect(ctx, kind, st.LastStart)
		return Started
	}

	if s.artifact != nil && !s.artifact.HasItems() {
		lgr.Printf("[INFO] no stored items, collecting on startup")
		start(triggerStartup)
	}

	for {
		select {
		case req := <-s.triggerCh:
			req.reply <- start(req.kind)
		case reply := <-s.statusCh:
			reply <- snapshot(st)
		case d := <-s.doneCh:
			s.apply(&st, d)
		case <-ctx.Done():
			if st.Running {
				lgr.Printf("[INFO] waiting for collection in progress")
			}
			// status and trigger requests are still answered until the in-flight run reports back
			for st.Running {
				select {
				case d := <-s.doneCh:
					s.apply(&st, d)
				case reply := <-s.statusCh:
					reply <- snapshot(st)
				case req := <-s.triggerCh:
					req.reply <- AlreadyRunning
				}
			}
			s.final = st
			lgr.Printf("[INFO] scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, kind string) (TriggerResult, error) {
	req := triggerReq{kind: kind, reply: make(chan TriggerResult, 1)}
	select {
	case s.triggerCh <- req:
		return <-req.reply, nil
	case <-s.stopped:
		return "", ErrStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// collect runs in its own goroutine and always reports back to the owner loop
func (s *Scheduler) collect(ctx context.Context, kind string, started time.Time) {
	lgr.Printf("[INFO] %s collection started", kind)
	res, err := s.collector.Run(ctx, s.sources)
	d := runDone{kind: kind, started: started, finished: s.now().UTC(), res: res, err: err}
	s.record(ctx, d)
	s.doneCh <- d
}

// record appends the run to history, failures are logged only
func (s *Scheduler) record(ctx context.Context, d runDone) {
	if s.history == nil {
		return
	}
	rec := domain.RunRecord{Trigger: d.kind, StartedAt: d.started, FinishedAt: d.finished}
	var sources []domain.SourceReport
	if d.res != nil {
		rec.ID, rec.Count = d.res.Meta.RunID, d.res.Count
		rec.SourcesOK, rec.SourcesFailed = d.res.Meta.SourcesOK, d.res.Meta.SourcesFailed
		sources = d.res.Meta.Sources
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("%s-%d", d.kind, d.started.UnixNano())
	}
	if d.err != nil {
		rec.Error = d.err.Error()
	}

	// history is written on shutdown too
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.SaveRun(hctx, rec, sources); err != nil {
		lgr.Printf("[WARN] failed to record run %s: %v", rec.ID, err)
	}
}

// apply updates state with finished run, called by the owner loop only
func (s *Scheduler) apply(st *domain.RunStatus, d runDone) {
	st.Running = false
	st.LastEnd = d.finished
	st.Runs++
	if d.err != nil {
		st.LastError = d.err.Error()
		lgr.Printf("[WARN] %s collection failed: %v", d.kind, d.err)
		return
	}
	st.LastError = ""
	if d.res != nil {
		st.LastCount = d.res.Count
	}
	lgr.Printf("[INFO] %s collection finished in %v, %d items", d.kind, d.finished.Sub(d.started).Round(time.Millisecond), st.LastCount)
}
