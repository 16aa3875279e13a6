package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/cubscope/pkg/collector/mocks"
	"github.com/umputun/cubscope/pkg/domain"
	"github.com/umputun/cubscope/pkg/filter"
	"github.com/umputun/cubscope/pkg/normalize"
	"github.com/umputun/cubscope/pkg/storage"
)

var runNow = time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

// feedsByURL makes fetcher and parser mocks serving the given feeds, fetch payload is the url itself.
// urls listed in failing return fetch error.
func feedsByURL(feeds map[string]*domain.ParsedFeed, failing ...string) (*mocks.FetcherMock, *mocks.ParserMock) {
	fetcher := &mocks.FetcherMock{FetchFunc: func(ctx context.Context, url string) ([]byte, error) {
		for _, f := range failing {
			if f == url {
				return nil, errors.New("connection refused")
			}
		}
		return []byte(url), nil
	}}
	parser := &mocks.ParserMock{ParseFunc: func(data []byte) (*domain.ParsedFeed, error) {
		f, ok := feeds[string(data)]
		if !ok {
			return &domain.ParsedFeed{}, errors.New("failed to detect feed type")
		}
		return f, nil
	}}
	return fetcher, parser
}

func newTestCollector(fetcher Fetcher, parser Parser, store Store, maxItems int) *Collector {
	return New(Config{
		Fetcher:    fetcher,
		Parser:     parser,
		Normalizer: normalize.New(0),
		Classifier: filter.New(filter.DefaultRules()),
		Store:      store,
		Team:       "Chicago Cubs",
		MaxItems:   maxItems,
		Now:        func() time.Time { return runNow },
	})
}

func okStore() *mocks.StoreMock {
	return &mocks.StoreMock{SaveFunc: func(res *domain.Result) error { return nil }}
}

func TestCollector_Run(t *testing.T) {
	feeds := map[string]*domain.ParsedFeed{
		"https://a.example.com/rss": {Title: "Feed A", Entries: []domain.RawEntry{
			{Title: "Cubs clinch series with 5th straight win", Link: "https://a.example.com/1",
				Published: "Sat, 15 Jun 2024 14:00:00 +0000"},
			{Title: "Bulls trade rumors", Link: "https://a.example.com/2", Published: "Sat, 15 Jun 2024 15:00:00 +0000"},
		}},
		"https://c.example.com/rss": {Title: "Feed C", Entries: []domain.RawEntry{
			{Title: "Dansby Swanson homers in win", Link: "https://c.example.com/1", Published: "Sat, 15 Jun 2024 16:00:00 +0000"},
			{Title: "", Link: ""},
		}},
	}
	fetcher, parser := feedsByURL(feeds, "https://b.example.com/rss")
	store := okStore()
	c := newTestCollector(fetcher, parser, store, 50)

	sources := []domain.Source{
		{Name: "A", URL: "https://a.example.com/rss"},
		{Name: "B", URL: "https://b.example.com/rss"},
		{Name: "C", URL: "https://c.example.com/rss"},
	}
	res, err := c.Run(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "Dansby Swanson homers in win", res.Items[0].Title)
	assert.Equal(t, "Feed C", res.Items[0].Source)
	assert.Equal(t, "Cubs clinch series with 5th straight win", res.Items[1].Title)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "Chicago Cubs", res.Team)
	assert.Equal(t, runNow, res.GeneratedAt)
	assert.InDelta(t, float64(runNow.Unix()), res.GeneratedTS, 0.001)

	assert.NotEmpty(t, res.Meta.RunID)
	assert.Equal(t, 3, res.Meta.SourcesTotal)
	assert.Equal(t, 2, res.Meta.SourcesOK)
	assert.Equal(t, 1, res.Meta.SourcesFailed)
	assert.Equal(t, 4, res.Meta.EntriesSeen)
	assert.Equal(t, 2, res.Meta.EntriesAccepted)

	require.Len(t, res.Meta.Sources, 3)
	assert.Equal(t, domain.SourceReport{Name: "A", URL: "https://a.example.com/rss", Entries: 2, Accepted: 1, Skipped: 1},
		res.Meta.Sources[0])
	assert.Equal(t, "B", res.Meta.Sources[1].Name)
	assert.Contains(t, res.Meta.Sources[1].Error, "connection refused")
	assert.Equal(t, domain.SourceReport{Name: "C", URL: "https://c.example.com/rss", Entries: 2, Accepted: 1, Skipped: 1},
		res.Meta.Sources[2])

	require.Len(t, store.SaveCalls(), 1)
	assert.Equal(t, res, store.SaveCalls()[0].Res)
	assert.Len(t, fetcher.FetchCalls(), 3)
	assert.Len(t, parser.ParseCalls(), 2, "failed source is never parsed")
}

func TestCollector_RunDedupeAcrossSources(t *testing.T) {
	entry := domain.RawEntry{Title: "Cubs clinch series with 5th straight win", Link: "https://example.com/same",
		Published: "Sat, 15 Jun 2024 14:00:00 +0000"}
	dup := entry
	dup.Title = "CUBS CLINCH SERIES WITH 5TH STRAIGHT WIN"

	feeds := map[string]*domain.ParsedFeed{
		"https://a.example.com/rss": {Title: "Feed A", Entries: []domain.RawEntry{entry}},
		"https://b.example.com/rss": {Title: "Feed B", Entries: []domain.RawEntry{dup}},
	}
	fetcher, parser := feedsByURL(feeds)
	c := newTestCollector(fetcher, parser, okStore(), 50)

	res, err := c.Run(context.Background(), []domain.Source{
		{Name: "A", URL: "https://a.example.com/rss"},
		{Name: "B", URL: "https://b.example.com/rss"},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Feed A", res.Items[0].Source, "first source in configured order wins")
	assert.Equal(t, 2, res.Meta.EntriesAccepted)
}

func TestCollector_RunCap(t *testing.T) {
	entries := make([]domain.RawEntry, 0, 80)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range 80 {
		entries = append(entries, domain.RawEntry{
			Title:     fmt.Sprintf("Cubs notes %d", i),
			Link:      fmt.Sprintf("https://www.mlb.com/cubs/news/%d", i),
			Published: base.Add(time.Duration(i) * time.Hour).Format(time.RFC1123Z),
		})
	}
	fetcher, parser := feedsByURL(map[string]*domain.ParsedFeed{"https://www.mlb.com/cubs/feeds/news/rss.xml": {Entries: entries}})
	c := newTestCollector(fetcher, parser, okStore(), 50)

	res, err := c.Run(context.Background(), []domain.Source{{Name: "MLB.com Cubs", URL: "https://www.mlb.com/cubs/feeds/news/rss.xml"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 50)
	assert.Equal(t, 50, res.Count)
	assert.Equal(t, "Cubs notes 79", res.Items[0].Title)
	assert.Equal(t, "Cubs notes 30", res.Items[49].Title)
	assert.Equal(t, 80, res.Meta.EntriesAccepted)
}

func TestCollector_RunUndatedEntryGetsRunTime(t *testing.T) {
	feeds := map[string]*domain.ParsedFeed{"https://a.example.com/rss": {Entries: []domain.RawEntry{
		{Title: "Wrigley Field hosts concert", Link: "https://a.example.com/1"},
		{Title: "Cubs rally for walk-off win", Link: "https://a.example.com/2", Published: "garbage date"},
	}}}
	fetcher, parser := feedsByURL(feeds)
	c := newTestCollector(fetcher, parser, okStore(), 50)

	res, err := c.Run(context.Background(), []domain.Source{{Name: "A", URL: "https://a.example.com/rss"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	for _, it := range res.Items {
		assert.InDelta(t, float64(runNow.Unix()), it.PublishedTS, 0.001, it.Title)
		assert.Equal(t, "2024-06-15T18:30:00Z", it.PublishedISO)
	}
	assert.Equal(t, "Wrigley Field hosts concert", res.Items[0].Title, "equal timestamps keep input order")
}

func TestCollector_RunAllSourcesFailed(t *testing.T) {
	fetcher, parser := feedsByURL(nil, "https://a.example.com/rss", "https://b.example.com/rss")
	store := storage.NewJSONStore(t.TempDir() + "/items.json")
	c := newTestCollector(fetcher, parser, store, 50)

	res, err := c.Run(context.Background(), []domain.Source{
		{Name: "A", URL: "https://a.example.com/rss"},
		{Name: "B", URL: "https://b.example.com/rss"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, 2, res.Meta.SourcesFailed)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.NotNil(t, loaded.Items)
	assert.Empty(t, loaded.Items)
	assert.Equal(t, 0, loaded.Count)
	assert.Equal(t, res.Meta.RunID, loaded.Meta.RunID)
}

func TestCollector_RunParseErrorCountsZeroEntries(t *testing.T) {
	fetcher, parser := feedsByURL(map[string]*domain.ParsedFeed{})
	c := newTestCollector(fetcher, parser, okStore(), 50)

	res, err := c.Run(context.Background(), []domain.Source{{Name: "A", URL: "https://a.example.com/rss"}})
	require.NoError(t, err)
	require.Len(t, res.Meta.Sources, 1)
	assert.True(t, res.Meta.Sources[0].OK(), "parse error is not a source failure")
	assert.Equal(t, 0, res.Meta.Sources[0].Entries)
	assert.Equal(t, 1, res.Meta.SourcesOK)
}

func TestCollector_RunSaveError(t *testing.T) {
	feeds := map[string]*domain.ParsedFeed{"https://a.example.com/rss": {Entries: []domain.RawEntry{
		{Title: "Cubs clinch series with 5th straight win", Link: "https://a.example.com/1"},
	}}}
	fetcher, parser := feedsByURL(feeds)
	store := &mocks.StoreMock{SaveFunc: func(res *domain.Result) error { return errors.New("disk full") }}
	c := newTestCollector(fetcher, parser, store, 50)

	res, err := c.Run(context.Background(), []domain.Source{{Name: "A", URL: "https://a.example.com/rss"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save result: disk full")
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Count)
}

func TestCollector_RunEntryPanicIsSkipped(t *testing.T) {
	feeds := map[string]*domain.ParsedFeed{"https://a.example.com/rss": {Entries: []domain.RawEntry{
		{Title: "boom", Link: "https://a.example.com/boom"},
		{Title: "Cubs clinch series with 5th straight win", Link: "https://a.example.com/1"},
	}}}
	fetcher, parser := feedsByURL(feeds)
	c := New(Config{
		Fetcher:    fetcher,
		Parser:     parser,
		Normalizer: panicNormalizer{Normalizer: normalize.New(0)},
		Classifier: filter.New(filter.DefaultRules()),
		Store:      okStore(),
		Now:        func() time.Time { return runNow },
	})

	res, err := c.Run(context.Background(), []domain.Source{{Name: "A", URL: "https://a.example.com/rss"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Cubs clinch series with 5th straight win", res.Items[0].Title)
	assert.Equal(t, 1, res.Meta.Sources[0].Skipped)
	assert.True(t, res.Meta.Sources[0].OK())
}

func TestCollector_RunSourcePanicIsIsolated(t *testing.T) {
	fetcher := &mocks.FetcherMock{FetchFunc: func(ctx context.Context, url string) ([]byte, error) {
		return []byte(url), nil
	}}
	parser := &mocks.ParserMock{ParseFunc: func(data []byte) (*domain.ParsedFeed, error) {
		if strings.Contains(string(data), "bad") {
			panic("parser exploded")
		}
		return &domain.ParsedFeed{Entries: []domain.RawEntry{{Title: "Cubs clinch series with 5th straight win", Link: string(data)}}}, nil
	}}
	c := newTestCollector(fetcher, parser, okStore(), 50)

	res, err := c.Run(context.Background(), []domain.Source{
		{Name: "bad", URL: "https://bad.example.com/rss"},
		{Name: "good", URL: "https://good.example.com/rss"},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Meta.SourcesFailed)
	assert.Contains(t, res.Meta.Sources[0].Error, "parser exploded")
}

func TestCollector_RunConcurrencyLimit(t *testing.T) {
	var inFlight, maxInFlight int32
	fetcher := &mocks.FetcherMock{FetchFunc: func(ctx context.Context, url string) ([]byte, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil, errors.New("not found")
	}}
	c := New(Config{Fetcher: fetcher, Parser: &mocks.ParserMock{}, Normalizer: normalize.New(0),
		Classifier: filter.New(filter.DefaultRules()), Store: okStore(), Concurrency: 2})

	sources := make([]domain.Source, 8)
	for i := range sources {
		sources[i] = domain.Source{Name: fmt.Sprintf("s%d", i), URL: fmt.Sprintf("https://example.com/%d", i)}
	}
	res, err := c.Run(context.Background(), sources)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Meta.SourcesFailed)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

type panicNormalizer struct {
	*normalize.Normalizer
}

func (p panicNormalizer) NormalizeAt(raw domain.RawEntry, src domain.Source, feedTitle string, now time.Time) (domain.Item, error) {
	if raw.Title == "boom" {
		panic("bad entry")
	}
	return p.Normalizer.NormalizeAt(raw, src, feedTitle, now)
}

func TestCollector_RunCanceledDoesNotSave(t *testing.T) {
	fetcher, parser := feedsByURL(nil, "https://a.example.com/rss")
	store := okStore()
	c := newTestCollector(fetcher, parser, store, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := c.Run(ctx, []domain.Source{{Name: "A", URL: "https://a.example.com/rss"}})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, store.SaveCalls())
}
