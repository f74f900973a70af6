package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"clearfeed/internal/domain"
	"clearfeed/internal/ports"
)

// DigestDeps wires the delivery loop's collaborators.
type DigestDeps struct {
	Users    ports.UserStore
	Selector *Selector
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// Digest delivers unseen articles to every active subscriber.
type Digest struct {
	users    ports.UserStore
	selector *Selector
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewDigest constructs the delivery use case.
func NewDigest(deps DigestDeps) *Digest {
	return &Digest{
		users:    deps.Users,
		selector: deps.Selector,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

// DeliverAll sends one digest to each active user. Per-user failures are
// logged and skipped.
func (d *Digest) DeliverAll(ctx context.Context) error {
	users, err := d.users.ActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("load active users: %w", err)
	}

	delivered := 0
	for _, user := range users {
		sent, err := d.deliverTo(ctx, user)
		if err != nil {
			d.logger.Error("digest delivery failed", "user", user.ID, "error", err)
			continue
		}
		if sent {
			delivered++
		}
	}
	d.logger.Info("digest run complete", "users", len(users), "delivered", delivered)
	return nil
}

// deliverTo selects, sends, and marks one user's digest. Sent records are
// written before recounting so the fresh batch is excluded from the "more
// available" hint.
func (d *Digest) deliverTo(ctx context.Context, user domain.User) (bool, error) {
	categories, err := d.users.UserCategories(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("load categories: %w", err)
	}
	if len(categories) == 0 {
		return false, nil
	}

	unseen, err := d.selector.GetUnseen(ctx, user.ID, categories, 0)
	if err != nil {
		return false, fmt.Errorf("select unseen: %w", err)
	}
	if len(unseen) == 0 {
		return false, nil
	}

	var articleIDs []int64
	for _, articles := range unseen {
		for _, a := range articles {
			articleIDs = append(articleIDs, a.ID)
		}
	}

	text := buildDigestMessage(categories, unseen)
	if err := d.notifier.SendDigest(ctx, user.ID, text); err != nil {
		return false, fmt.Errorf("send digest: %w", err)
	}

	if err := d.selector.MarkSent(ctx, user.ID, articleIDs); err != nil {
		return false, fmt.Errorf("mark sent: %w", err)
	}

	remaining := 0
	for _, category := range categories {
		count, err := d.selector.CountUnseen(ctx, user.ID, category)
		if err != nil {
			d.logger.Warn("count unseen failed", "user", user.ID, "category", category, "error", err)
			continue
		}
		remaining += count
	}
	d.logger.Info("digest delivered", "user", user.ID, "articles", len(articleIDs), "more_available", remaining)
	return true, nil
}

// buildDigestMessage renders a plain digest grouped by category, preserving
// the subscription order.
func buildDigestMessage(order []string, grouped map[string][]domain.Article) string {
	var b strings.Builder
	b.WriteString("Your digest\n")

	for _, category := range order {
		articles, ok := grouped[category]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("\n%s\n", category))
		for _, a := range articles {
			b.WriteString(fmt.Sprintf("- <a href=\"%s\">%s</a> (%s)\n", a.URL, a.Title, a.SourceName))
		}
	}
	return b.String()
}
