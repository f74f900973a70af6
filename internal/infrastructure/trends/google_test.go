package trends

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const trendsRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Daily Search Trends</title>
    <item><title>Quantum Computing</title></item>
    <item><title>  Superbowl  </title></item>
    <item><title></title></item>
    <item><title>election results</title></item>
  </channel>
</rss>`

func TestTrendingTopics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(trendsRSS))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client())
	topics, err := c.TrendingTopics(context.Background())
	if err != nil {
		t.Fatalf("TrendingTopics: %v", err)
	}

	want := []string{"quantum computing", "superbowl", "election results"}
	if len(topics) != len(want) {
		t.Fatalf("got %d topics, want %d: %v", len(topics), len(want), topics)
	}
	for i, topic := range want {
		if topics[i] != topic {
			t.Fatalf("position %d: got %q, want %q", i, topics[i], topic)
		}
	}
}

func TestTrendingTopicsFeedError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client())
	if _, err := c.TrendingTopics(context.Background()); err == nil {
		t.Fatal("expected an error from a failing feed")
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewClient("", nil)
	if c.feedURL != DefaultFeedURL {
		t.Fatalf("feed URL %q, want default", c.feedURL)
	}
	if c.client == nil {
		t.Fatal("nil HTTP client")
	}
}
