// Package filter applies the service-wide blocklists that run before any
// article reaches storage. Per-user blocks live in the selection path instead.
package filter

import (
	"regexp"
	"strings"

	"clearfeed/internal/domain"
)

// Blocklist is the compiled global filter. It is built once from config and
// passed to the components that need it; there is no lazily-initialized
// shared pattern.
type Blocklist struct {
	pattern *regexp.Regexp
	sources []string
}

// NewBlocklist compiles the keyword list into a single case-insensitive
// pattern and normalizes blocked source domains.
func NewBlocklist(keywords, sources []string) *Blocklist {
	b := &Blocklist{}

	escaped := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			escaped = append(escaped, regexp.QuoteMeta(kw))
		}
	}
	if len(escaped) > 0 {
		b.pattern = regexp.MustCompile(`(?i)` + strings.Join(escaped, "|"))
	}

	for _, src := range sources {
		src = strings.ToLower(strings.TrimSpace(src))
		if src != "" {
			b.sources = append(b.sources, src)
		}
	}
	return b
}

// AllowsText reports whether a title+summary pair is free of blocked keywords.
func (b *Blocklist) AllowsText(title, summary string) bool {
	if b.pattern == nil {
		return true
	}
	text := title
	if summary != "" {
		text = title + " " + summary
	}
	return !b.pattern.MatchString(text)
}

// SourceBlocked reports whether a feed URL belongs to a blocked domain.
func (b *Blocklist) SourceBlocked(feedURL string) bool {
	lowered := strings.ToLower(feedURL)
	for _, src := range b.sources {
		if strings.Contains(lowered, src) {
			return true
		}
	}
	return false
}

// Apply returns only the articles that pass the keyword blocklist.
func (b *Blocklist) Apply(articles []domain.Article) []domain.Article {
	passed := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if b.AllowsText(a.Title, a.Summary) {
			passed = append(passed, a)
		}
	}
	return passed
}
