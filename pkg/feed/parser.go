package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/umputun/cubscope/pkg/domain"
)

// Parser parses RSS/Atom/JSON feed payloads
type Parser struct{}

// NewParser creates a new feed parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse converts feed payload to entries. On malformed input it returns
// an empty, non-nil feed together with the error, so callers may treat it as zero entries.
func (p *Parser) Parse(data []byte) (*domain.ParsedFeed, error) {
	result := &domain.ParsedFeed{Entries: []domain.RawEntry{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return result, fmt.Errorf("parse feed: empty payload")
	}

	// gofeed parser keeps state, new one per call
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return result, fmt.Errorf("parse feed: %w", err)
	}

	result.Title = strings.TrimSpace(feed.Title)
	result.Entries = make([]domain.RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := domain.RawEntry{
			Title:           item.Title,
			Link:            itemLink(item),
			Summary:         item.Description,
			Description:     item.Content,
			Author:          itemAuthor(item),
			Published:       item.Published,
			Updated:         item.Updated,
			PublishedParsed: item.PublishedParsed,
			UpdatedParsed:   item.UpdatedParsed,
		}
		if item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
			entry.PubDate = item.DublinCoreExt.Date[0]
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// itemLink returns the main link, falling back to the first of alternate links
func itemLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	for _, l := range item.Links {
		if l != "" {
			return l
		}
	}
	return ""
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil {
		if item.Author.Name != "" {
			return item.Author.Name
		}
		if item.Author.Email != "" {
			return item.Author.Email
		}
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}
