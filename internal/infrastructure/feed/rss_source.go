package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"clearfeed/internal/domain"
	"clearfeed/internal/filter"
	"clearfeed/internal/ports"
)

const (
	// summaryMaxRunes caps stored summaries; feeds routinely ship whole
	// article bodies in the description field.
	summaryMaxRunes = 500

	defaultConcurrency = 8
)

// Source fetches RSS/Atom endpoints and converts entries into articles.
// Feeds within a category are fetched concurrently; individual feed failures
// are logged and skipped so one dead endpoint cannot empty a category.
type Source struct {
	client      *http.Client
	blocklist   *filter.Blocklist
	concurrency int
	logger      *slog.Logger
}

var _ ports.FeedSource = (*Source)(nil)

// NewSource wires an HTTP client and the global blocklist.
func NewSource(client *http.Client, blocklist *filter.Blocklist, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Source{
		client:      client,
		blocklist:   blocklist,
		concurrency: defaultConcurrency,
		logger:      logger,
	}
}

// FetchCategory pulls every feed of a category and returns the raw articles.
// Globally blocked source domains are never requested.
func (s *Source) FetchCategory(ctx context.Context, category string, feedURLs []string) ([]domain.Article, error) {
	var (
		mu       sync.Mutex
		articles []domain.Article
	)

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, feedURL := range feedURLs {
		if s.blocklist != nil && s.blocklist.SourceBlocked(feedURL) {
			s.debug("skipping blocked source", "url", feedURL)
			continue
		}

		wg.Add(1)
		go func(feedURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entries, err := s.fetchFeed(ctx, category, feedURL)
			if err != nil {
				s.warn("feed fetch failed", "url", feedURL, "error", err)
				return
			}
			mu.Lock()
			articles = append(articles, entries...)
			mu.Unlock()
		}(feedURL)
	}
	wg.Wait()

	s.debug("category fetched", "category", category, "articles", len(articles))
	return articles, nil
}

// fetchFeed parses one endpoint. gofeed parsers are not safe for concurrent
// use, so each fetch builds its own over the shared HTTP client.
func (s *Source) fetchFeed(ctx context.Context, category, feedURL string) ([]domain.Article, error) {
	parser := gofeed.NewParser()
	parser.Client = s.client

	parsed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	sourceName := deriveSource(feedURL, parsed.Title)
	entries := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		article, ok := entryToArticle(item, category, sourceName)
		if !ok {
			continue
		}
		entries = append(entries, article)
	}
	return entries, nil
}

// entryToArticle converts a feed item, or reports false if it is unusable.
func entryToArticle(item *gofeed.Item, category, sourceName string) (domain.Article, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return domain.Article{}, false
	}

	article := domain.Article{
		Title:      title,
		URL:        link,
		SourceName: sourceName,
		Category:   category,
		Summary:    sanitizeSummary(item.Description),
	}
	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		article.PublishedAt = &published
	}
	return article, true
}

// sanitizeSummary strips HTML markup from a feed description, collapses
// whitespace, and truncates to the summary budget.
func sanitizeSummary(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > summaryMaxRunes {
		text = string(runes[:summaryMaxRunes])
	}
	return text
}

// deriveSource prefers the feed's own title, falling back to the host name.
func deriveSource(feedURL, feedTitle string) string {
	if title := strings.TrimSpace(feedTitle); title != "" {
		return title
	}
	parsed, err := url.Parse(feedURL)
	if err != nil || parsed.Host == "" {
		return feedURL
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Source) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
