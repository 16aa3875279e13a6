// Package storage persists collection results as a JSON artifact.
// Writes go to a temp file in the same directory and are renamed over the target,
// so readers see either the previous or the new document, never a partial one.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/umputun/cubscope/pkg/domain"
)

// JSONStore keeps the result artifact in a file
type JSONStore struct {
	path string

	mu      sync.Mutex
	cached  *domain.Result
	modTime time.Time
	size    int64
}

// NewJSONStore makes a store for the given file path
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns artifact location
func (s *JSONStore) Path() string { return s.path }

// Save writes result atomically. On failure the previous artifact stays untouched.
func (s *JSONStore) Save(res *domain.Result) error {
	if res == nil {
		return errors.New("nil result")
	}
	if res.Items == nil {
		res.Items = []domain.Item{}
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("make dir %s: %w", dir, err)
	}

	// temp file next to the target, fsynced and renamed over it
	if err = renameio.WriteFile(s.path, data, 0o644, renameio.WithStaticPermissions(0o644)); err != nil { //nolint:gosec // artifact is public data
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.cached, s.modTime, s.size = nil, time.Time{}, 0 // next Load rereads and caches
	s.mu.Unlock()
	return nil
}

// Load returns the stored result. Missing artifact gives an empty result and no error,
// unreadable or invalid artifact gives an empty result with error.
// Returned value is a copy, callers may modify it.
func (s *JSONStore) Load() (*domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return emptyResult(), nil
	}
	if err != nil {
		return emptyResult(), fmt.Errorf("stat %s: %w", s.path, err)
	}

	if s.cached != nil && fi.ModTime().Equal(s.modTime) && fi.Size() == s.size {
		return copyResult(s.cached), nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return emptyResult(), fmt.Errorf("read %s: %w", s.path, err)
	}

	res := emptyResult()
	if err := json.Unmarshal(data, res); err != nil {
		return emptyResult(), fmt.Errorf("unmarshal %s: %w", s.path, err)
	}
	if res.Items == nil {
		res.Items = []domain.Item{}
	}

	s.cached, s.modTime, s.size = res, fi.ModTime(), fi.Size()
	return copyResult(res), nil
}

// HasItems reports whether a readable artifact with at least one item exists
func (s *JSONStore) HasItems() bool {
	res, err := s.Load()
	return err == nil && len(res.Items) > 0
}

func emptyResult() *domain.Result {
	return &domain.Result{Items: []domain.Item{}}
}

func copyResult(r *domain.Result) *domain.Result {
	res := *r
	res.Items = append([]domain.Item{}, r.Items...)
	res.Meta.Sources = append([]domain.SourceReport(nil), r.Meta.Sources...)
	return &res
}
