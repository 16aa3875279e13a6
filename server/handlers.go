package server

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/umputun/cubscope/pkg/config"
	"github.com/umputun/cubscope/pkg/domain"
	"github.com/umputun/cubscope/pkg/feed"
	"github.com/umputun/cubscope/pkg/scheduler"
)

const historyLimit = 20

// indexPage is the data for index.html
type indexPage struct {
	Team       string
	QuickLinks []config.Link
	Sources    []domain.Source
	Items      []domain.Item
	Updated    time.Time
	Status     domain.RunStatus
}

// indexHandler renders the main page with the stored items
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	res := s.loadResult()
	page := indexPage{
		Team:       s.cfg.Team,
		QuickLinks: s.cfg.QuickLinks,
		Sources:    s.cfg.Sources,
		Items:      res.Items,
		Updated:    res.GeneratedAt,
		Status:     s.scheduler.Status(),
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", page); err != nil {
		log.Printf("[ERROR] failed to render index: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write index: %v", err)
	}
}

// itemsHandler returns the stored artifact, an empty document if none
func (s *Server) itemsHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, s.loadResult())
}

// collectHandler starts a collection in background
func (s *Server) collectHandler(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}

	res, err := s.scheduler.Trigger(r.Context())
	if err != nil {
		log.Printf("[WARN] failed to trigger collection: %v", err)
		renderError(w, r, errors.New("collector unavailable"), http.StatusServiceUnavailable)
		return
	}

	code := http.StatusAccepted
	if res == scheduler.AlreadyRunning {
		code = http.StatusOK
	}
	log.Printf("[INFO] manual collection requested from %s: %s", r.RemoteAddr, res)
	renderJSON(w, r, code, map[string]any{"ok": true, "status": string(res)})
}

// authorized checks bearer token if configured, writes 401 or 403 on failure
func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.Token == "" {
		return true
	}

	supplied, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="cubscope"`)
		renderError(w, r, errors.New("bearer token required"), http.StatusUnauthorized)
		return false
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(supplied)), []byte(s.cfg.Token)) != 1 {
		log.Printf("[WARN] rejected collection trigger from %s, token mismatch", r.RemoteAddr)
		renderError(w, r, errors.New("invalid token"), http.StatusForbidden)
		return false
	}
	return true
}

// healthHandler reports artifact freshness and run state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	res := s.loadResult()
	st := s.scheduler.Status()

	var updated *time.Time
	if !res.GeneratedAt.IsZero() {
		updated = &res.GeneratedAt
	}
	renderJSON(w, r, http.StatusOK, map[string]any{
		"ok":         true,
		"updated":    updated,
		"count":      len(res.Items),
		"running":    st.Running,
		"last_start": st.LastStart,
		"last_end":   st.LastEnd,
		"last_count": st.LastCount,
		"last_error": st.LastError,
	})
}

// statusHandler returns version, run state and recent history
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.cfg.Version,
		"time":    time.Now().UTC(),
		"sources": len(s.cfg.Sources),
		"run":     s.scheduler.Status(),
	}
	if s.history != nil {
		runs, err := s.history.RecentRuns(r.Context(), historyLimit)
		if err != nil {
			log.Printf("[WARN] failed to get run history: %v", err)
			runs = []domain.RunRecord{}
		}
		resp["history"] = runs
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// runSourcesHandler returns per-source reports of a stored run
func (s *Server) runSourcesHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		renderError(w, r, errors.New("run history disabled"), http.StatusNotFound)
		return
	}
	id := r.PathValue("id")
	sources, err := s.history.SourceReports(r.Context(), id)
	if err != nil {
		log.Printf("[WARN] failed to get sources of run %s: %v", id, err)
		renderError(w, r, errors.New("can't load run"), http.StatusInternalServerError)
		return
	}
	if len(sources) == 0 {
		renderError(w, r, errors.New("run not found"), http.StatusNotFound)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"id": id, "sources": sources})
}

// rssHandler re-publishes stored items as RSS
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		baseURL = scheme + "://" + r.Host
	}

	rss, err := feed.NewGenerator(baseURL, s.cfg.Team).GenerateRSS(s.loadResult())
	if err != nil {
		log.Printf("[ERROR] failed to generate RSS feed: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}

// versionHandler returns build version
func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, map[string]any{"version": s.cfg.Version})
}

// loadResult returns stored result, errors are logged and give an empty result
func (s *Server) loadResult() *domain.Result {
	res, err := s.store.Load()
	if err != nil {
		log.Printf("[WARN] failed to load items: %v", err)
	}
	if res == nil {
		res = &domain.Result{}
	}
	if res.Items == nil {
		res.Items = []domain.Item{}
	}
	return res
}
