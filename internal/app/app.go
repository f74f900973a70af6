package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clearfeed/internal/config"
	"clearfeed/internal/filter"
	"clearfeed/internal/infrastructure/feed"
	"clearfeed/internal/infrastructure/scheduler"
	"clearfeed/internal/infrastructure/storage"
	"clearfeed/internal/infrastructure/telegram"
	"clearfeed/internal/infrastructure/trends"
	"clearfeed/internal/logging"
	"clearfeed/internal/ports"
	"clearfeed/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configuration to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	repo     *storage.SQLiteRepository
	pipeline *usecase.Pipeline
	jobs     *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	repo, err := storage.Open(cfg.Database.Path, cfg.Trending.Weight)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	blocklist := filter.NewBlocklist(cfg.Filters.BlockedKeywords, cfg.Filters.BlockedSources)
	feedSource := feed.NewSource(nil, blocklist, baseLogger.With("component", "feeds"))
	trendSource := trends.NewClient(cfg.Trending.FeedURL, nil)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Feeds:       feedSource,
		Trends:      trendSource,
		Repository:  repo,
		Blocklist:   blocklist,
		Categories:  toPipelineCategories(cfg.Categories),
		UseTrending: !cfg.Trending.Disabled,
		Logger:      baseLogger.With("component", "pipeline"),
	})

	selector := usecase.NewSelector(repo, cfg.Digest.MaxArticlesPerCategory, baseLogger.With("component", "selector"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken)
	}

	var digest *usecase.Digest
	if notifier != nil {
		digest = usecase.NewDigest(usecase.DigestDeps{
			Users:    repo,
			Selector: selector,
			Notifier: notifier,
			Logger:   baseLogger.With("component", "digest"),
		})
	}

	jobs := usecase.NewScheduler(usecase.SchedulerDeps{
		Driver:       scheduler.NewCronScheduler(cfg.Scheduler.Location()),
		Pipeline:     pipeline,
		Digest:       digest,
		Articles:     repo,
		FetchSpec:    cfg.Scheduler.FetchCron,
		DigestSpec:   cfg.Scheduler.DigestCron,
		CleanupSpec:  cfg.Scheduler.CleanupCron,
		RetentionAge: time.Duration(cfg.Retention.Days) * 24 * time.Hour,
		Logger:       baseLogger.With("component", "scheduler"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		repo:     repo,
		pipeline: pipeline,
		jobs:     jobs,
	}, nil
}

// Run executes one fetch cycle immediately, then hands off to the scheduler
// until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.repo.Close()

	if err := a.pipeline.RunCycle(ctx); err != nil {
		a.logger.Error("initial fetch cycle failed", "error", err)
	}

	if err := a.jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"fetch", a.cfg.Scheduler.FetchCron,
		"digest", a.cfg.Scheduler.DigestCron,
		"cleanup", a.cfg.Scheduler.CleanupCron,
	)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.jobs.Stop(stopCtx)
}

func toPipelineCategories(cfg []config.CategoryConfig) []usecase.Category {
	categories := make([]usecase.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, usecase.Category{Name: cat.Name, Feeds: cat.Feeds})
	}
	return categories
}
