package domain

import "time"

// Article is the core entity produced by the fetch pipeline and persisted for
// ranking and delivery. URL uniqueness is the sole deduplication key;
// TrendingScore is the only field rewritten after insertion.
type Article struct {
	ID            int64
	Title         string
	URL           string
	SourceName    string
	Category      string
	Summary       string
	PublishedAt   *time.Time
	FetchedAt     time.Time
	TrendingScore float64
}
