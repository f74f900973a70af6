package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clearfeed/internal/domain"
	"clearfeed/internal/ports"
)

const (
	// overfetchFactor pads the candidate query so block filtering and the
	// diversity cap rarely starve a category.
	overfetchFactor = 6
	// maxPerSource caps how many results one source may contribute to a
	// category within a single selection.
	maxPerSource = 2
)

// Selector retrieves ranked, not-yet-delivered articles for a user, applying
// that user's blocks and the source diversity cap on top of the store's
// composite ordering.
type Selector struct {
	store       ports.DeliveryStore
	limitPerCat int
	logger      *slog.Logger
	now         func() time.Time
}

// NewSelector wires the delivery store; limitPerCat is the default batch size
// per category.
func NewSelector(store ports.DeliveryStore, limitPerCat int, logger *slog.Logger) *Selector {
	return &Selector{
		store:       store,
		limitPerCat: limitPerCat,
		logger:      logger,
		now:         time.Now,
	}
}

// GetUnseen returns up to limitPerCat unseen articles per requested category,
// best ranked first. Categories with no survivors are omitted from the map;
// callers that care about order iterate their own category slice. limitPerCat
// <= 0 selects the configured default. A failure in one category is logged
// and never suppresses its siblings.
func (s *Selector) GetUnseen(ctx context.Context, userID int64, categories []string, limitPerCat int) (map[string][]domain.Article, error) {
	if limitPerCat <= 0 {
		limitPerCat = s.limitPerCat
	}

	result := make(map[string][]domain.Article, len(categories))
	if len(categories) == 0 {
		return result, nil
	}

	blocks, err := s.store.UserBlocks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user blocks: %w", err)
	}
	var blockedKeywords, blockedSources []string
	for _, b := range blocks {
		switch b.Type {
		case domain.BlockKeyword:
			blockedKeywords = append(blockedKeywords, b.Value)
		case domain.BlockSource:
			blockedSources = append(blockedSources, b.Value)
		}
	}

	now := s.now().UTC()
	for _, category := range categories {
		picked, err := s.selectCategory(ctx, userID, category, limitPerCat, blockedKeywords, blockedSources, now)
		if err != nil {
			s.logger.Warn("category selection failed", "category", category, "user", userID, "error", err)
			continue
		}
		if len(picked) > 0 {
			result[category] = picked
		}
	}
	return result, nil
}

// selectCategory streams ranked candidates, rejecting blocked and
// over-represented sources, until the limit is filled or candidates run out.
func (s *Selector) selectCategory(ctx context.Context, userID int64, category string, limit int, blockedKeywords, blockedSources []string, now time.Time) ([]domain.Article, error) {
	candidates, err := s.store.UnseenCandidates(ctx, userID, category, limit*overfetchFactor, now)
	if err != nil {
		return nil, err
	}

	picked := make([]domain.Article, 0, limit)
	perSource := make(map[string]int)
	for _, a := range candidates {
		if len(picked) >= limit {
			break
		}

		title := strings.ToLower(a.Title)
		summary := strings.ToLower(a.Summary)
		if matchesAny(title, summary, blockedKeywords) {
			continue
		}

		source := strings.ToLower(a.SourceName)
		if matchesAny(source, "", blockedSources) {
			continue
		}

		perSource[source]++
		if perSource[source] > maxPerSource {
			continue
		}
		picked = append(picked, a)
	}
	return picked, nil
}

// CountUnseen reports how many unseen articles remain in the category,
// ignoring blocks and diversity. The deliberate overcount backs an optimistic
// "more available" hint.
func (s *Selector) CountUnseen(ctx context.Context, userID int64, category string) (int, error) {
	return s.store.CountUnseen(ctx, userID, category)
}

// MarkSent idempotently records delivery. Callers invoke it before
// recomputing counts so a fresh batch is excluded from "more" hints.
func (s *Selector) MarkSent(ctx context.Context, userID int64, articleIDs []int64) error {
	return s.store.MarkSent(ctx, userID, articleIDs)
}

func matchesAny(primary, secondary string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(primary, needle) {
			return true
		}
		if secondary != "" && strings.Contains(secondary, needle) {
			return true
		}
	}
	return false
}
