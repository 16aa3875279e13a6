package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/cubscope/pkg/collector"
	"github.com/umputun/cubscope/pkg/config"
	"github.com/umputun/cubscope/pkg/feed"
	"github.com/umputun/cubscope/pkg/filter"
	"github.com/umputun/cubscope/pkg/normalize"
	"github.com/umputun/cubscope/pkg/repository"
	"github.com/umputun/cubscope/pkg/scheduler"
	"github.com/umputun/cubscope/pkg/storage"
	"github.com/umputun/cubscope/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"cubscope.yml" description:"configuration file, built-in defaults if missing"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
	Data   string `short:"d" long:"data" env:"DATA_FILE" description:"items artifact path, overrides config"`
	Token  string `long:"token" env:"COLLECT_TOKEN" description:"bearer token for /collect-open, overrides config"`
	Once   bool   `long:"once" description:"collect once and exit"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor, opts.Token)
	log.Printf("[INFO] starting cubscope version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()
	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
	log.Print("[INFO] shutdown complete")
}

// run wires components and blocks until ctx is canceled, or until the single pass is done with --once
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.LoadOrDefault(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cfg, opts)

	store := storage.NewJSONStore(cfg.Collect.Output)
	coll := collector.New(collector.Config{
		Fetcher:     feed.NewHTTPFetcher(cfg.Collect.FetchTimeout, cfg.Collect.UserAgent),
		Parser:      feed.NewParser(),
		Normalizer:  normalize.New(cfg.Collect.SummaryMaxLen),
		Classifier:  filter.New(cfg.Rules()),
		Store:       store,
		Team:        cfg.Team.Name,
		MaxItems:    cfg.Collect.MaxItems,
		Concurrency: cfg.Collect.Concurrency,
	})
	sources := cfg.DomainSources()

	if opts.Once {
		res, err := coll.Run(ctx, sources)
		if err != nil {
			return fmt.Errorf("collection failed: %w", err)
		}
		log.Printf("[INFO] collected %d items from %d/%d sources into %s",
			res.Count, res.Meta.SourcesOK, res.Meta.SourcesTotal, store.Path())
		return nil
	}

	// history is optional, interfaces stay nil when disabled
	var schedHistory scheduler.History
	var srvHistory server.History
	if cfg.HistoryEnabled() {
		db, err := repository.Open(ctx, cfg.Collect.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history db: %w", err)
		}
		defer closeDB(db)
		runs := repository.NewRunRepository(db, cfg.Collect.HistoryKeep)
		schedHistory, srvHistory = runs, runs
		log.Printf("[INFO] run history in %s, keeping %d runs", cfg.Collect.HistoryDB, cfg.Collect.HistoryKeep)
	}

	sched, err := scheduler.New(scheduler.Config{
		Collector: coll,
		Artifact:  store,
		History:   schedHistory,
		Sources:   sources,
		Interval:  cfg.Collect.Interval,
		Schedule:  cfg.Collect.Schedule,
	})
	if err != nil {
		return fmt.Errorf("failed to make scheduler: %w", err)
	}

	srv := server.New(server.Config{
		Listen:     cfg.Server.Listen,
		Timeout:    cfg.Server.Timeout,
		BaseURL:    cfg.Server.BaseURL,
		Token:      cfg.Auth.Token,
		Team:       cfg.Team.Name,
		QuickLinks: cfg.Team.QuickLinks,
		Sources:    sources,
		Version:    revision,
		Debug:      opts.Debug,
	}, store, sched, srvHistory)

	log.Printf("[INFO] %d sources, artifact %s, periodic runs %v", len(sources), store.Path(), cfg.PeriodicEnabled())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyOverrides sets values given on command line over the config file ones
func applyOverrides(cfg *config.Config, opts Opts) {
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.Data != "" {
		cfg.Collect.Output = opts.Data
	}
	if opts.Token != "" {
		cfg.Auth.Token = opts.Token
	}
}

func closeDB(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("[WARN] failed to close history db: %v", err)
	}
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	secrets := make([]string, 0, len(secs))
	for _, s := range secs {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
