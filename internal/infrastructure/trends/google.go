// Package trends fetches the current trending phrases from the Google Trends
// daily RSS feed. Item order carries the rank: the first item is the
// strongest trend.
package trends

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"clearfeed/internal/ports"
)

// DefaultFeedURL serves US trends; the geo parameter selects the region.
const DefaultFeedURL = "https://trends.google.com/trending/rss?geo=US"

// Client implements ports.TrendSource over the trends RSS endpoint.
type Client struct {
	feedURL string
	client  *http.Client
}

var _ ports.TrendSource = (*Client)(nil)

// NewClient wires the feed URL and HTTP client; both fall back to defaults.
func NewClient(feedURL string, client *http.Client) *Client {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{feedURL: feedURL, client: client}
}

// TrendingTopics returns lowercase trending phrases, strongest first. Errors
// are returned for the caller to swallow: scoring degrades to zero rather
// than blocking a cycle.
func (c *Client) TrendingTopics(ctx context.Context) ([]string, error) {
	parser := gofeed.NewParser()
	parser.Client = c.client

	feed, err := parser.ParseURLWithContext(c.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch trends: %w", err)
	}

	topics := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.ToLower(strings.TrimSpace(item.Title))
		if title != "" {
			topics = append(topics, title)
		}
	}
	return topics, nil
}
