package domain

import "time"

// RunStatus is a snapshot of collector state, safe to share
type RunStatus struct {
	Running   bool      `json:"running"`
	LastStart time.Time `json:"last_start"`
	LastEnd   time.Time `json:"last_end"`
	LastCount int       `json:"last_count"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	NextRun   time.Time `json:"next_run"`
}

// RunRecord is a stored history entry of a finished run
type RunRecord struct {
	ID            string    `json:"id"`
	Trigger       string    `json:"trigger"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Count         int       `json:"count"`
	SourcesOK     int       `json:"sources_ok"`
	SourcesFailed int       `json:"sources_failed"`
	Error         string    `json:"error,omitempty"`
}

// SkipReason explains why an entry or source was dropped
type SkipReason string

// skip reasons
const (
	SkipNone       SkipReason = ""
	SkipEmpty      SkipReason = "empty entry"
	SkipIrrelevant SkipReason = "not relevant"
	SkipPanic      SkipReason = "processing failed"
)

// Outcome is the result of processing one entry, either an item or a skip
type Outcome struct {
	Item   Item
	Skip   SkipReason
	Detail string
}

// Kept returns true if the outcome carries an accepted item
func (o Outcome) Kept() bool { return o.Skip == SkipNone }
