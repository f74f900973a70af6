package domain

import "time"

// User is a digest subscriber. Deactivated users keep their history but are
// skipped by the delivery loop.
type User struct {
	ID        int64
	Username  string
	Active    bool
	CreatedAt time.Time
}

// BlockType distinguishes the two kinds of per-user filters.
type BlockType string

const (
	BlockKeyword BlockType = "keyword"
	BlockSource  BlockType = "source"
)

// UserBlock suppresses articles for a single user. Values are stored
// lowercase and matched as case-insensitive substrings.
type UserBlock struct {
	UserID int64
	Type   BlockType
	Value  string
}
