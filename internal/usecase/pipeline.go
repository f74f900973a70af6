package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"clearfeed/internal/filter"
	"clearfeed/internal/ports"
	"clearfeed/internal/trending"
)

// Category pairs a category name with its feed endpoints.
type Category struct {
	Name  string
	Feeds []string
}

// PipelineDeps wires all driven adapters into the fetch cycle.
type PipelineDeps struct {
	Feeds       ports.FeedSource
	Trends      ports.TrendSource
	Repository  ports.ArticleStore
	Blocklist   *filter.Blocklist
	Categories  []Category
	UseTrending bool
	Logger      *slog.Logger
}

// Pipeline implements the fetch cycle: pull trending phrases once, then fetch,
// filter, score, and store each category's articles.
type Pipeline struct {
	feeds       ports.FeedSource
	trends      ports.TrendSource
	repository  ports.ArticleStore
	blocklist   *filter.Blocklist
	categories  []Category
	useTrending bool
	logger      *slog.Logger
}

// NewPipeline constructs the ingestion use case.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		feeds:       deps.Feeds,
		trends:      deps.Trends,
		repository:  deps.Repository,
		blocklist:   deps.Blocklist,
		categories:  deps.Categories,
		useTrending: deps.UseTrending,
		logger:      deps.Logger,
	}
}

// RunCycle executes one full fetch cycle. A trend-source outage degrades to
// zero trending contribution, and a failure in one category never suppresses
// its siblings, so the returned error is always nil today; the signature
// leaves room for fatal conditions.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	var phrases []string
	if p.useTrending && p.trends != nil {
		topics, err := p.trends.TrendingTopics(ctx)
		if err != nil {
			p.logger.Warn("trending fetch failed, scoring without trends", "error", err)
		} else {
			phrases = topics
			p.logger.Info("trending topics fetched", "count", len(phrases))
		}
	}

	totalInserted := 0
	for _, category := range p.categories {
		inserted, err := p.processCategory(ctx, category, phrases)
		if err != nil {
			p.logger.Error("category failed", "category", category.Name, "error", err)
			continue
		}
		totalInserted += inserted
	}

	p.logger.Info("fetch cycle complete", "inserted", totalInserted)
	return nil
}

// processCategory fetches one category's feeds, applies the global blocklist,
// scores the survivors against the cycle's trending index, and stores them.
func (p *Pipeline) processCategory(ctx context.Context, category Category, phrases []string) (int, error) {
	raw, err := p.feeds.FetchCategory(ctx, category.Name, category.Feeds)
	if err != nil {
		return 0, fmt.Errorf("fetch category: %w", err)
	}

	passed := raw
	if p.blocklist != nil {
		passed = p.blocklist.Apply(raw)
	}

	if len(phrases) > 0 {
		passed = trending.ScoreArticles(passed, phrases)
	}

	inserted, err := p.repository.InsertArticles(ctx, passed)
	if err != nil {
		return 0, fmt.Errorf("store articles: %w", err)
	}

	p.logger.Info("category processed",
		"category", category.Name,
		"fetched", len(raw),
		"passed", len(passed),
		"inserted", inserted,
	)
	return inserted, nil
}
