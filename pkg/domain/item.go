package domain

import "time"

// Item represents a normalized, accepted news item
type Item struct {
	Title            string  `json:"title"`
	Link             string  `json:"link"`
	By               string  `json:"by"`
	Summary          string  `json:"summary"`
	Source           string  `json:"source"`
	PublishedTS      float64 `json:"published_ts"`
	PublishedISO     string  `json:"published_iso"`
	PublishedDisplay string  `json:"published_display"`
}

// PublishedTime returns publication timestamp as time.Time in UTC
func (i Item) PublishedTime() time.Time {
	sec := int64(i.PublishedTS)
	nsec := int64((i.PublishedTS - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// UnixSeconds returns t as fractional Unix seconds, valid for any year unlike UnixNano
func UnixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// Result is the persisted output of a collection run
type Result struct {
	GeneratedAt time.Time `json:"generated_at"`
	GeneratedTS float64   `json:"generated_ts"`
	Team        string    `json:"team,omitempty"`
	Count       int       `json:"count"`
	Items       []Item    `json:"items"`
	Meta        Meta      `json:"meta"`
}

// Meta holds run statistics stored alongside items
type Meta struct {
	RunID           string         `json:"run_id,omitempty"`
	SourcesTotal    int            `json:"sources_total"`
	SourcesOK       int            `json:"sources_ok"`
	SourcesFailed   int            `json:"sources_failed"`
	EntriesSeen     int            `json:"entries_seen"`
	EntriesAccepted int            `json:"entries_accepted"`
	DurationMs      int64          `json:"duration_ms"`
	Sources         []SourceReport `json:"sources"`
}

// SourceReport describes what a single source contributed to a run
type SourceReport struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Entries  int    `json:"entries"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// OK returns true if the source was fetched and parsed
func (r SourceReport) OK() bool { return r.Error == "" }
