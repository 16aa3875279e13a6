package domain

import "time"

// Source represents a configured feed origin
type Source struct {
	Name       string
	URL        string
	Trusted    bool // trusted sources skip keyword matching but not exclusions
	PreferName bool // use Name as display source instead of the feed's own title
}

// RawEntry is a parsed feed entry before normalization.
// Every field is optional, zero value means the feed didn't provide it.
type RawEntry struct {
	Title           string
	Link            string
	Summary         string
	Description     string
	Author          string
	Published       string // textual dates as found in the feed
	Updated         string
	PubDate         string
	PublishedParsed *time.Time
	UpdatedParsed   *time.Time
}

// ParsedFeed is the result of parsing a feed payload
type ParsedFeed struct {
	Title   string
	Entries []RawEntry
}
