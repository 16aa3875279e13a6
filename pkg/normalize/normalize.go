// Package normalize converts raw feed entries into canonical items.
package normalize

import (
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/umputun/cubscope/pkg/content"
	"github.com/umputun/cubscope/pkg/domain"
)

// DefaultSummaryLen is the summary cap used when none configured
const DefaultSummaryLen = 5000

// ErrEmptyEntry returned for entries without both title and link
var ErrEmptyEntry = errors.New("entry has no title and no link")

// rfc822Layouts lists the date shapes seen in RSS pubDate fields, most common first
var rfc822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"Mon, 02 Jan 2006 15:04:05",
}

// Normalizer makes items from raw entries
type Normalizer struct {
	cleaner    *content.Cleaner
	summaryLen int
	now        func() time.Time
}

// Option sets optional normalizer parameters
type Option func(n *Normalizer)

// WithClock overrides the fallback clock used for undated entries and display rendering
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// New makes a normalizer with summary capped at summaryLen runes
func New(summaryLen int, opts ...Option) *Normalizer {
	if summaryLen <= 0 {
		summaryLen = DefaultSummaryLen
	}
	n := &Normalizer{cleaner: content.NewCleaner(), summaryLen: summaryLen, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts raw entry from the given source to an item.
// feedTitle is the feed's self-declared title, may be empty.
func (n *Normalizer) Normalize(raw domain.RawEntry, src domain.Source, feedTitle string) (domain.Item, error) {
	return n.NormalizeAt(raw, src, feedTitle, n.now())
}

// NormalizeAt is Normalize with explicit "now", used for undated entries and display rendering.
// Collector passes the run start time, so all undated entries of a run share one timestamp.
func (n *Normalizer) NormalizeAt(raw domain.RawEntry, src domain.Source, feedTitle string, now time.Time) (domain.Item, error) {
	title := n.cleaner.PlainText(raw.Title)
	link := strings.TrimSpace(raw.Link)
	if title == "" && link == "" {
		return domain.Item{}, ErrEmptyEntry
	}

	summary := raw.Summary
	if strings.TrimSpace(summary) == "" {
		summary = raw.Description
	}
	summary = content.Truncate(n.cleaner.PlainText(summary), n.summaryLen)

	now = now.UTC()
	published := n.publishedTime(raw, now)
	srcName := displaySource(src, feedTitle)

	by := n.cleaner.PlainText(raw.Author)
	if by == "" {
		by = srcName
	}

	return domain.Item{
		Title:            title,
		Link:             link,
		By:               by,
		Summary:          summary,
		Source:           srcName,
		PublishedTS:      domain.UnixSeconds(published),
		PublishedISO:     published.Format(time.RFC3339),
		PublishedDisplay: DisplayTime(published, now),
	}, nil
}

// publishedTime resolves entry time: textual fields, then pre-parsed, then now
func (n *Normalizer) publishedTime(raw domain.RawEntry, now time.Time) time.Time {
	for _, s := range []string{raw.Published, raw.Updated, raw.PubDate} {
		if ts, ok := parseDate(s); ok {
			return ts.UTC()
		}
	}
	for _, ts := range []*time.Time{raw.PublishedParsed, raw.UpdatedParsed} {
		if ts != nil && !ts.IsZero() {
			return ts.UTC()
		}
	}
	return now
}

// rfc822Zones maps zone names defined by RFC 822 to numeric offsets,
// time.Parse would otherwise treat unknown abbreviations as zero offset
var rfc822Zones = map[string]string{
	"UT": "+0000", "UTC": "+0000", "GMT": "+0000", "Z": "+0000",
	"EST": "-0500", "EDT": "-0400",
	"CST": "-0600", "CDT": "-0500",
	"MST": "-0700", "MDT": "-0600",
	"PST": "-0800", "PDT": "-0700",
}

// parseDate tries rfc822 family layouts first and lenient parsing after.
// A date without zone info is taken as UTC.
func parseDate(s string) (ts time.Time, ok bool) {
	defer func() {
		// dateparse may panic on odd input
		if r := recover(); r != nil {
			ts, ok = time.Time{}, false
		}
	}()

	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		if offset, found := rfc822Zones[strings.ToUpper(s[i+1:])]; found {
			s = s[:i+1] + offset
		}
	}
	for _, layout := range rfc822Layouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || parsed.IsZero() {
		return time.Time{}, false
	}
	return parsed, true
}

// displaySource picks the human-facing name for items of a source
func displaySource(src domain.Source, feedTitle string) string {
	feedTitle = strings.TrimSpace(feedTitle)
	switch {
	case src.PreferName && src.Name != "":
		return src.Name
	case feedTitle != "":
		return feedTitle
	case src.Name != "":
		return src.Name
	}
	return "Source"
}

// DisplayTime renders ts relative to now, both taken in UTC:
// "Today • 3:04 PM", "Yesterday • 3:04 PM" or "Jan 2 • 3:04 PM"
func DisplayTime(ts, now time.Time) string {
	ts, now = ts.UTC(), now.UTC()
	clock := ts.Format("3:04 PM")
	y, m, d := ts.Date()
	ny, nm, nd := now.Date()
	if y == ny && m == nm && d == nd {
		return "Today • " + clock
	}
	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	if y == yy && m == ym && d == yd {
		return "Yesterday • " + clock
	}
	return ts.Format("Jan 2") + " • " + clock
}
