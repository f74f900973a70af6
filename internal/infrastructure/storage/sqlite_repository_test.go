package storage

import (
	"context"
	"testing"
	"time"

	"clearfeed/internal/domain"
)

func newTestRepo(t *testing.T, trendingWeight float64) *SQLiteRepository {
	t.Helper()
	repo, err := Open(":memory:", trendingWeight)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testArticle(url, category string, fetchedAt time.Time, trending float64) domain.Article {
	return domain.Article{
		Title:         "Title for " + url,
		URL:           url,
		SourceName:    "example.com",
		Category:      category,
		FetchedAt:     fetchedAt,
		TrendingScore: trending,
	}
}

func TestInsertArticlesDeduplicatesByURL(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.6)
	ctx := context.Background()
	now := time.Now().UTC()

	first := []domain.Article{
		testArticle("https://example.com/a", "tech", now, 0),
		testArticle("https://example.com/b", "tech", now, 0),
	}
	n, err := repo.InsertArticles(ctx, first)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted %d, want 2", n)
	}

	// second batch overlaps on /b; only /c is new
	second := []domain.Article{
		testArticle("https://example.com/b", "tech", now, 0),
		testArticle("https://example.com/c", "tech", now, 0),
	}
	n, err = repo.InsertArticles(ctx, second)
	if err != nil {
		t.Fatalf("insert overlap: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted %d, want 1", n)
	}

	count, err := repo.CountUnseen(ctx, 1, "tech")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("stored %d articles, want 3", count)
	}
}

func TestInsertArticlesKeepsFirstVersion(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.6)
	ctx := context.Background()
	now := time.Now().UTC()

	original := testArticle("https://example.com/a", "tech", now, 90)
	original.Title = "original title"
	if _, err := repo.InsertArticles(ctx, []domain.Article{original}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	update := testArticle("https://example.com/a", "tech", now, 10)
	update.Title = "rewritten title"
	if _, err := repo.InsertArticles(ctx, []domain.Article{update}); err != nil {
		t.Fatalf("insert duplicate: %v", err)
	}

	got, err := repo.UnseenCandidates(ctx, 1, "tech", 10, now)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Title != "original title" || got[0].TrendingScore != 90 {
		t.Fatalf("duplicate insert overwrote the stored row: %+v", got[0])
	}
}

func TestUnseenCandidatesCompositeOrdering(t *testing.T) {
	t.Parallel()

	// weight 0.5: composite = trending/200 + (1-age)/2
	repo := newTestRepo(t, 0.5)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	// fresh but cold: 0 + 0.5 = 0.5
	fresh := testArticle("https://example.com/fresh", "tech", now, 0)
	// half a day old and hot: 0.45 + 0.25 = 0.7
	hot := testArticle("https://example.com/hot", "tech", now.Add(-12*time.Hour), 90)
	// two days old and hot: recency credit is gone, 0.45 + 0 = 0.45
	stale := testArticle("https://example.com/stale", "tech", now.Add(-48*time.Hour), 90)

	if _, err := repo.InsertArticles(ctx, []domain.Article{fresh, hot, stale}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.UnseenCandidates(ctx, 1, "tech", 10, now)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	want := []string{
		"https://example.com/hot",
		"https://example.com/fresh",
		"https://example.com/stale",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i, url := range want {
		if got[i].URL != url {
			t.Fatalf("position %d: got %s, want %s", i, got[i].URL, url)
		}
	}
}

func TestUnseenCandidatesRecencyClampsAfterOneDay(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.5)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	// both past the one-day horizon: recency contributes zero for each, so
	// trending alone decides the order
	older := testArticle("https://example.com/older", "tech", now.Add(-30*24*time.Hour), 80)
	newer := testArticle("https://example.com/newer", "tech", now.Add(-2*24*time.Hour), 40)

	if _, err := repo.InsertArticles(ctx, []domain.Article{newer, older}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.UnseenCandidates(ctx, 1, "tech", 10, now)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].URL != "https://example.com/older" {
		t.Fatalf("trending should decide beyond the recency horizon, got %s first", got[0].URL)
	}
}

func TestUnseenCandidatesFiltersCategoryAndLimit(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.6)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []domain.Article{
		testArticle("https://example.com/t1", "tech", now, 10),
		testArticle("https://example.com/t2", "tech", now, 20),
		testArticle("https://example.com/t3", "tech", now, 30),
		testArticle("https://example.com/s1", "science", now, 99),
	}
	if _, err := repo.InsertArticles(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.UnseenCandidates(ctx, 1, "tech", 2, now)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	for _, a := range got {
		if a.Category != "tech" {
			t.Fatalf("candidate from wrong category: %s", a.Category)
		}
	}
}

func TestMarkSentExcludesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.6)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []domain.Article{
		testArticle("https://example.com/a", "tech", now, 0),
		testArticle("https://example.com/b", "tech", now, 0),
	}
	if _, err := repo.InsertArticles(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	all, err := repo.UnseenCandidates(ctx, 7, "tech", 10, now)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d candidates, want 2", len(all))
	}

	if err := repo.MarkSent(ctx, 7, []int64{all[0].ID}); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	// repeat must not error
	if err := repo.MarkSent(ctx, 7, []int64{all[0].ID}); err != nil {
		t.Fatalf("repeated mark sent: %v", err)
	}

	remaining, err := repo.UnseenCandidates(ctx, 7, "tech", 10, now)
	if err != nil {
		t.Fatalf("candidates after send: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID == all[0].ID {
		t.Fatalf("sent article still among candidates: %+v", remaining)
	}

	count, err := repo.CountUnseen(ctx, 7, "tech")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("unseen count %d, want 1", count)
	}

	// delivery state is per user
	other, err := repo.CountUnseen(ctx, 8, "tech")
	if err != nil {
		t.Fatalf("count other user: %v", err)
	}
	if other != 2 {
		t.Fatalf("other user's unseen count %d, want 2", other)
	}
}

func TestBlocksLifecycle(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.6)
	ctx := context.Background()

	added, err := repo.AddBlock(ctx, domain.UserBlock{UserID: 1, Type: domain.BlockKeyword, Value: "Crypto"})
	if err != nil {
		t.Fatalf("add block: %v", err)
	}
	if !added {
		t.Fatal("first add should report true")
	}

	// same value, different input case
	added, err = repo.AddBlock(ctx, domain.UserBlock{UserID: 1, Type: domain.BlockKeyword, Value: "CRYPTO"})
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if added {
		t.Fatal("duplicate add should report false")
	}

	if _, err := repo.AddBlock(ctx, domain.UserBlock{UserID: 1, Type: domain.BlockSource, Value: "tabloid.example"}); err != nil {
		t.Fatalf("add source block: %v", err)
	}

	blocks, err := repo.UserBlocks(ctx, 1)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	for _, b := range blocks {
		if b.Value != "crypto" && b.Value != "tabloid.example" {
			t.Fatalf("unexpected block value %q", b.Value)
		}
	}

	removed, err := repo.RemoveBlock(ctx, 1, "crypto")
	if err != nil {
		t.Fatalf("remove block: %v", err)
	}
	if !removed {
		t.Fatal("remove should report true")
	}
	removed, err = repo.RemoveBlock(ctx, 1, "crypto")
	if err != nil {
		t.Fatalf("remove missing block: %v", err)
	}
	if removed {
		t.Fatal("removing a missing block should report false")
	}
}

func TestUserLifecycle(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.6)
	ctx := context.Background()

	if err := repo.UpsertUser(ctx, domain.User{ID: 42, Username: "alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// second upsert refreshes the username instead of failing
	if err := repo.UpsertUser(ctx, domain.User{ID: 42, Username: "alice_renamed"}); err != nil {
		t.Fatalf("repeat upsert: %v", err)
	}

	users, err := repo.ActiveUsers(ctx)
	if err != nil {
		t.Fatalf("active users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice_renamed" || !users[0].Active {
		t.Fatalf("unexpected users: %+v", users)
	}

	subscribed, err := repo.ToggleCategory(ctx, 42, "tech")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !subscribed {
		t.Fatal("first toggle should subscribe")
	}
	if _, err := repo.ToggleCategory(ctx, 42, "science"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	cats, err := repo.UserCategories(ctx, 42)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "science" || cats[1] != "tech" {
		t.Fatalf("unexpected categories: %v", cats)
	}

	subscribed, err = repo.ToggleCategory(ctx, 42, "tech")
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if subscribed {
		t.Fatal("second toggle should unsubscribe")
	}
}

func TestResetUserClearsState(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.6)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.UpsertUser(ctx, domain.User{ID: 5, Username: "bob"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := repo.ToggleCategory(ctx, 5, "tech"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := repo.AddBlock(ctx, domain.UserBlock{UserID: 5, Type: domain.BlockKeyword, Value: "crypto"}); err != nil {
		t.Fatalf("add block: %v", err)
	}
	if _, err := repo.InsertArticles(ctx, []domain.Article{testArticle("https://example.com/a", "tech", now, 0)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	sent, err := repo.UnseenCandidates(ctx, 5, "tech", 1, now)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if err := repo.MarkSent(ctx, 5, []int64{sent[0].ID}); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	if err := repo.ResetUser(ctx, 5); err != nil {
		t.Fatalf("reset: %v", err)
	}

	cats, err := repo.UserCategories(ctx, 5)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 0 {
		t.Fatalf("categories survived reset: %v", cats)
	}
	blocks, err := repo.UserBlocks(ctx, 5)
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("blocks survived reset: %v", blocks)
	}
	count, err := repo.CountUnseen(ctx, 5, "tech")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("delivery history survived reset, unseen count %d, want 1", count)
	}

	// the account itself stays
	users, err := repo.ActiveUsers(ctx)
	if err != nil {
		t.Fatalf("active users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("reset should keep the user row, got %d users", len(users))
	}
}

func TestDeleteOlderThan(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, 0.6)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []domain.Article{
		testArticle("https://example.com/old", "tech", now.Add(-40*24*time.Hour), 0),
		testArticle("https://example.com/new", "tech", now.Add(-time.Hour), 0),
	}
	if _, err := repo.InsertArticles(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	removed, err := repo.DeleteOlderThan(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}

	left, err := repo.UnseenCandidates(ctx, 1, "tech", 10, now)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(left) != 1 || left[0].URL != "https://example.com/new" {
		t.Fatalf("wrong survivor: %+v", left)
	}
}
