package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"clearfeed/internal/domain"
	"clearfeed/internal/ports"
)

// timeLayout matches SQLite's datetime functions, so julianday() can operate
// directly on stored values.
const timeLayout = "2006-01-02T15:04:05Z"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         INTEGER PRIMARY KEY,
    username   TEXT,
    is_active  INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS user_categories (
    user_id  INTEGER NOT NULL,
    category TEXT NOT NULL,
    PRIMARY KEY (user_id, category)
);

CREATE TABLE IF NOT EXISTS user_blocks (
    user_id     INTEGER NOT NULL,
    block_type  TEXT NOT NULL CHECK (block_type IN ('keyword', 'source')),
    block_value TEXT NOT NULL,
    UNIQUE (user_id, block_type, block_value)
);

CREATE TABLE IF NOT EXISTS articles (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    title          TEXT NOT NULL,
    url            TEXT NOT NULL UNIQUE,
    source_name    TEXT,
    category       TEXT NOT NULL,
    summary        TEXT,
    published_at   TEXT,
    fetched_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    trending_score REAL NOT NULL DEFAULT 0.0
);

CREATE TABLE IF NOT EXISTS sent_articles (
    user_id    INTEGER NOT NULL,
    article_id INTEGER NOT NULL,
    sent_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    PRIMARY KEY (user_id, article_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_fetched_at ON articles(fetched_at);
CREATE INDEX IF NOT EXISTS idx_articles_trending ON articles(trending_score);
CREATE INDEX IF NOT EXISTS idx_sent_articles_user ON sent_articles(user_id);
`

// SQLiteRepository persists articles, subscribers, blocks, and delivery
// state. One repository serves both the fetch pipeline and the per-user
// selection path; the composite ranking lives in its candidate query.
type SQLiteRepository struct {
	db *sql.DB

	// trendingWeight splits the composite score between trending and
	// recency; recency gets 1 - trendingWeight.
	trendingWeight float64
}

var (
	_ ports.ArticleStore  = (*SQLiteRepository)(nil)
	_ ports.DeliveryStore = (*SQLiteRepository)(nil)
	_ ports.UserStore     = (*SQLiteRepository)(nil)
)

// Open connects to the SQLite database at path, creates the schema, and
// returns a ready repository. SQLite allows a single writer, so the pool is
// capped at one connection.
func Open(path string, trendingWeight float64) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db, trendingWeight: trendingWeight}, nil
}

// Close releases the underlying connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// InsertArticles bulk-inserts a batch, relying on the URL unique constraint
// for deduplication. Conflicting rows are skipped, never updated; the return
// value counts genuinely new rows.
func (r *SQLiteRepository) InsertArticles(ctx context.Context, articles []domain.Article) (int, error) {
	inserted := 0
	for _, a := range articles {
		fetched := a.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now()
		}

		var published interface{}
		if a.PublishedAt != nil {
			published = a.PublishedAt.UTC().Format(timeLayout)
		}

		query, args, err := sq.Insert("articles").
			Columns("title", "url", "source_name", "category", "summary", "published_at", "fetched_at", "trending_score").
			Values(a.Title, a.URL, a.SourceName, a.Category, a.Summary, published, fetched.UTC().Format(timeLayout), a.TrendingScore).
			Suffix("ON CONFLICT (url) DO NOTHING").
			ToSql()
		if err != nil {
			return inserted, fmt.Errorf("build insert: %w", err)
		}

		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("insert article %s: %w", a.URL, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// UnseenCandidates returns up to limit articles in the category not yet sent
// to the user, best composite score first.
//
// composite = (trending_score/100)*w + (1 - ageDays)*(1-w), with the article
// age in days clamped to [0, 1]: recency credit decays linearly to zero over
// the first day and stays zero afterward, so older candidates compete on
// trending score alone.
func (r *SQLiteRepository) UnseenCandidates(ctx context.Context, userID int64, category string, limit int, now time.Time) ([]domain.Article, error) {
	recencyWeight := 1.0 - r.trendingWeight

	query, args, err := sq.Select(
		"id", "title", "url", "source_name", "category", "summary", "published_at", "fetched_at", "trending_score",
	).
		Column(sq.Expr(
			"(trending_score / 100.0 * ?) + ((1.0 - MIN(MAX(julianday(?) - julianday(fetched_at), 0.0), 1.0)) * ?) AS composite_score",
			r.trendingWeight, now.UTC().Format(timeLayout), recencyWeight,
		)).
		From("articles").
		Where(sq.Eq{"category": category}).
		Where("id NOT IN (SELECT article_id FROM sent_articles WHERE user_id = ?)", userID).
		OrderBy("composite_score DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidates query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Article
	for rows.Next() {
		var (
			a           domain.Article
			sourceName  sql.NullString
			summary     sql.NullString
			publishedAt sql.NullString
			fetchedAt   string
			composite   float64
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &sourceName, &a.Category, &summary, &publishedAt, &fetchedAt, &a.TrendingScore, &composite); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		a.SourceName = sourceName.String
		a.Summary = summary.String
		if publishedAt.Valid {
			if t, err := parseStoredTime(publishedAt.String); err == nil {
				a.PublishedAt = &t
			}
		}
		if t, err := parseStoredTime(fetchedAt); err == nil {
			a.FetchedAt = t
		}
		candidates = append(candidates, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

// CountUnseen counts not-yet-sent rows in the category. Blocks and the
// diversity cap are deliberately ignored; the count feeds a "more available"
// hint where overcounting is harmless.
func (r *SQLiteRepository) CountUnseen(ctx context.Context, userID int64, category string) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("articles").
		Where(sq.Eq{"category": category}).
		Where("id NOT IN (SELECT article_id FROM sent_articles WHERE user_id = ?)", userID).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unseen: %w", err)
	}
	return count, nil
}

// MarkSent records delivery of the given articles to the user. The primary
// key on (user_id, article_id) plus conflict-ignore makes repeated and
// concurrent calls for the same pair safe.
func (r *SQLiteRepository) MarkSent(ctx context.Context, userID int64, articleIDs []int64) error {
	if len(articleIDs) == 0 {
		return nil
	}
	for _, id := range articleIDs {
		query, args, err := sq.Insert("sent_articles").
			Columns("user_id", "article_id").
			Values(userID, id).
			Suffix("ON CONFLICT (user_id, article_id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build mark sent: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("mark article %d sent: %w", id, err)
		}
	}
	return nil
}

// UserBlocks loads all block entries for a user.
func (r *SQLiteRepository) UserBlocks(ctx context.Context, userID int64) ([]domain.UserBlock, error) {
	query, args, err := sq.Select("block_type", "block_value").
		From("user_blocks").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build blocks query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []domain.UserBlock
	for rows.Next() {
		b := domain.UserBlock{UserID: userID}
		if err := rows.Scan(&b.Type, &b.Value); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// DeleteOlderThan removes articles fetched before now minus age and reports
// how many were swept.
func (r *SQLiteRepository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UTC().Format(timeLayout)

	query, args, err := sq.Delete("articles").Where(sq.Lt{"fetched_at": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build retention delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

// UpsertUser inserts a subscriber or refreshes their username.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, user domain.User) error {
	query, args, err := sq.Insert("users").
		Columns("id", "username").
		Values(user.ID, user.Username).
		Suffix("ON CONFLICT (id) DO UPDATE SET username = excluded.username").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert user: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert user %d: %w", user.ID, err)
	}
	return nil
}

// ActiveUsers lists subscribers eligible for digest delivery.
func (r *SQLiteRepository) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	query, args, err := sq.Select("id", "username", "is_active", "created_at").
		From("users").
		Where(sq.Eq{"is_active": 1}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build users query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			u        domain.User
			username sql.NullString
			created  string
		)
		if err := rows.Scan(&u.ID, &username, &u.Active, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Username = username.String
		if t, err := parseStoredTime(created); err == nil {
			u.CreatedAt = t
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UserCategories lists the categories a user is subscribed to.
func (r *SQLiteRepository) UserCategories(ctx context.Context, userID int64) ([]string, error) {
	query, args, err := sq.Select("category").
		From("user_categories").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("category").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build categories query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var cat string
		if err := rows.Scan(&cat); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// ToggleCategory flips a subscription and reports whether the user is now
// subscribed to the category.
func (r *SQLiteRepository) ToggleCategory(ctx context.Context, userID int64, category string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM user_categories WHERE user_id = ? AND category = ?",
		userID, category,
	)
	if err != nil {
		return false, fmt.Errorf("toggle category: %w", err)
	}
	if removed, err := res.RowsAffected(); err == nil && removed > 0 {
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO user_categories (user_id, category) VALUES (?, ?)",
		userID, category,
	); err != nil {
		return false, fmt.Errorf("subscribe category: %w", err)
	}
	return true, nil
}

// AddBlock stores a lowercase-normalized block entry. Returns false when the
// exact block already existed.
func (r *SQLiteRepository) AddBlock(ctx context.Context, block domain.UserBlock) (bool, error) {
	query, args, err := sq.Insert("user_blocks").
		Columns("user_id", "block_type", "block_value").
		Values(block.UserID, string(block.Type), strings.ToLower(block.Value)).
		Suffix("ON CONFLICT (user_id, block_type, block_value) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build add block: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("add block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveBlock deletes a block by value regardless of type. Returns true when
// something was removed.
func (r *SQLiteRepository) RemoveBlock(ctx context.Context, userID int64, value string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM user_blocks WHERE user_id = ? AND block_value = ?",
		userID, strings.ToLower(value),
	)
	if err != nil {
		return false, fmt.Errorf("remove block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ResetUser clears a user's subscriptions, blocks, and delivery history in
// one transaction.
func (r *SQLiteRepository) ResetUser(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM user_categories WHERE user_id = ?",
		"DELETE FROM user_blocks WHERE user_id = ?",
		"DELETE FROM sent_articles WHERE user_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
			return fmt.Errorf("reset user %d: %w", userID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

func parseStoredTime(value string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
