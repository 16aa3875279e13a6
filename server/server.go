package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/cubscope/pkg/config"
	"github.com/umputun/cubscope/pkg/domain"
	"github.com/umputun/cubscope/pkg/scheduler"
)

//go:generate moq -out mocks/scheduler.go -pkg mocks -skip-ensure -fmt goimports . Scheduler
//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store
//go:generate moq -out mocks/history.go -pkg mocks -skip-ensure -fmt goimports . History

//go:embed web/templates/* web/static/*
var webFS embed.FS

// Server represents HTTP server instance
type Server struct {
	cfg       Config
	store     Store
	scheduler Scheduler
	history   History

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
	templates  *template.Template
}

// Store provides the last persisted collection result
type Store interface {
	Load() (*domain.Result, error)
}

// Scheduler starts collections and reports their state
type Scheduler interface {
	Trigger(ctx context.Context) (scheduler.TriggerResult, error)
	Status() domain.RunStatus
}

// History provides recent runs and their per-source reports, optional
type History interface {
	RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
	SourceReports(ctx context.Context, runID string) ([]domain.SourceReport, error)
}

// Config holds server parameters
type Config struct {
	Listen     string
	Timeout    time.Duration
	BaseURL    string // public url for RSS links, taken from request if empty
	Token      string // bearer token for manual trigger, open endpoint if empty
	Team       string
	QuickLinks []config.Link
	Sources    []domain.Source
	Version    string
	Debug      bool
}

// New initializes a new server instance. history may be nil.
func New(cfg Config, store Store, sched Scheduler, history History) *Server {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &Server{
		cfg:       cfg,
		store:     store,
		scheduler: sched,
		history:   history,
		router:    routegroup.New(http.NewServeMux()),
		templates: template.Must(template.New("").Funcs(templateFuncs()).ParseFS(webFS, "web/templates/*.html")),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[INFO] starting server on %s", s.cfg.Listen)
	if s.cfg.Token == "" {
		log.Printf("[WARN] no trigger token configured, /collect-open is open to anyone")
	}

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Timeout,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
	}
	httpServer := s.httpServer
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("cubscope", "umputun", s.cfg.Version))
	s.router.Use(rest.Ping)
	s.router.Use(rest.RealIP)

	if s.cfg.Debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(64 * 1024)) // requests carry no payload
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /{$}", s.indexHandler)
	s.router.HandleFunc("GET /items.json", s.itemsHandler)
	s.router.HandleFunc("GET /collect-open", s.collectHandler)
	s.router.HandleFunc("POST /collect-open", s.collectHandler)
	s.router.HandleFunc("GET /health", s.healthHandler)
	s.router.HandleFunc("GET /rss", s.rssHandler)
	s.router.HandleFunc("GET /version", s.versionHandler)

	staticFS, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(fmt.Sprintf("embedded static files: %v", err)) // embedded at build time
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// API routes
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /runs/{id}", s.runSourcesHandler)
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return humanize.Time(t)
		},
	}
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]any{"ok": false, "error": errMsg})
}
