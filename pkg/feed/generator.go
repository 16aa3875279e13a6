package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/umputun/cubscope/pkg/domain"
)

type rss struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	DC      string      `xml:"xmlns:dc,attr"`
	Channel *rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	AtomLink      *atomLink  `xml:"atom:link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link,omitempty"`
	GUID        rssGUID    `xml:"guid"`
	Description string     `xml:"description"`
	Author      string     `xml:"dc:creator,omitempty"`
	PubDate     string     `xml:"pubDate"`
	Source      *rssSource `xml:"source,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// rssSource names the origin feed. RSS 2.0 wants a url attribute, we only know names
type rssSource struct {
	Name string `xml:",chardata"`
	URL  string `xml:"url,attr,omitempty"`
}

// Generator re-publishes collected items as RSS
type Generator struct {
	baseURL string
	title   string
}

// NewGenerator creates a new feed generator
func NewGenerator(baseURL, title string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		title:   title,
	}
}

// GenerateRSS creates an RSS 2.0 feed from a collection result
func (g *Generator) GenerateRSS(res *domain.Result) (string, error) {
	title := g.title
	if title == "" {
		title = "cubscope"
	}

	rssItems := make([]*rssItem, 0, len(res.Items))
	for _, item := range res.Items {
		rssItems = append(rssItems, g.convertToRSSItem(item))
	}

	buildDate := res.GeneratedAt
	if buildDate.IsZero() {
		buildDate = time.Now()
	}

	feed := &rss{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		DC:      "http://purl.org/dc/elements/1.1/",
		Channel: &rssChannel{
			Title:         title,
			Link:          g.baseURL + "/",
			Description:   fmt.Sprintf("%s, %d latest items", title, len(res.Items)),
			AtomLink:      &atomLink{Href: g.baseURL + "/rss", Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: buildDate.UTC().Format(time.RFC1123Z),
			Items:         rssItems,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}

	return xml.Header + string(output), nil
}

// convertToRSSItem converts a collected item to an RSS item
func (g *Generator) convertToRSSItem(item domain.Item) *rssItem {
	guid := rssGUID{Value: item.Link, IsPermaLink: true}
	if item.Link == "" {
		guid = rssGUID{Value: item.Source + ":" + item.Title}
	}
	return &rssItem{
		Title:       item.Title,
		Link:        item.Link,
		GUID:        guid,
		Description: item.Summary,
		Author:      item.By,
		PubDate:     item.PublishedTime().Format(time.RFC1123Z),
		Source:      &rssSource{Name: item.Source},
	}
}
