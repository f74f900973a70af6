package ports

import (
	"context"
	"time"

	"clearfeed/internal/domain"
)

// FeedSource pulls fresh articles for one category from its feed endpoints.
type FeedSource interface {
	FetchCategory(ctx context.Context, category string, feedURLs []string) ([]domain.Article, error)
}

// TrendSource returns the currently trending phrases, strongest first.
// Callers degrade to an empty list on error; a trend outage must never stall
// the fetch cycle.
type TrendSource interface {
	TrendingTopics(ctx context.Context) ([]string, error)
}

// ArticleStore persists fetched articles and owns retention.
type ArticleStore interface {
	// InsertArticles stores a batch, silently skipping already-known URLs,
	// and reports how many rows were genuinely new.
	InsertArticles(ctx context.Context, articles []domain.Article) (int, error)
	// DeleteOlderThan removes articles fetched before now minus age.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// DeliveryStore serves the per-user selection path.
type DeliveryStore interface {
	// UnseenCandidates returns articles in the category not yet sent to the
	// user, ordered by composite (trending + recency) score descending.
	UnseenCandidates(ctx context.Context, userID int64, category string, limit int, now time.Time) ([]domain.Article, error)
	// CountUnseen counts not-yet-sent rows in the category, ignoring blocks.
	CountUnseen(ctx context.Context, userID int64, category string) (int, error)
	// MarkSent records delivery; repeating a (user, article) pair is a no-op.
	MarkSent(ctx context.Context, userID int64, articleIDs []int64) error
	UserBlocks(ctx context.Context, userID int64) ([]domain.UserBlock, error)
}

// UserStore manages subscribers and their preferences.
type UserStore interface {
	UpsertUser(ctx context.Context, user domain.User) error
	ActiveUsers(ctx context.Context) ([]domain.User, error)
	UserCategories(ctx context.Context, userID int64) ([]string, error)
	// ToggleCategory flips a subscription and reports whether the user is
	// now subscribed.
	ToggleCategory(ctx context.Context, userID int64, category string) (bool, error)
	// AddBlock reports false when the block already existed.
	AddBlock(ctx context.Context, block domain.UserBlock) (bool, error)
	// RemoveBlock deletes a block by value regardless of type.
	RemoveBlock(ctx context.Context, userID int64, value string) (bool, error)
	// ResetUser clears subscriptions, blocks, and delivery history.
	ResetUser(ctx context.Context, userID int64) error
}

// Notifier delivers a rendered digest to a user's chat.
type Notifier interface {
	SendDigest(ctx context.Context, userID int64, text string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	AddJob(spec string, job func(time.Time)) error
	Start()
	Stop(ctx context.Context) error
}
