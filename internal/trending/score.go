package trending

import (
	"math"

	"github.com/agnivade/levenshtein"

	"clearfeed/internal/domain"
)

const (
	// similarityThreshold is the minimum fuzzy-match ratio for a keyword to
	// earn a topic's weight.
	similarityThreshold = 0.6
	// lengthRatioLimit prunes fuzzy candidates: past a 2.5x length
	// difference a similarity above the threshold is impossible.
	lengthRatioLimit = 2.5
)

// Score computes how strongly a headline's keywords overlap the trending
// index, normalized to [0, 100] and rounded to one decimal. Pure and
// deterministic. Empty keywords or an empty index score exactly 0.
//
// Each keyword takes the O(1) exact-word path when possible; only misses fall
// through to the fuzzy scan over unique topic words, where the best
// weight*similarity above the threshold is credited.
func Score(keywords []string, ix *Index) float64 {
	if len(keywords) == 0 || ix.Empty() {
		return 0.0
	}

	var raw float64
	for _, kw := range keywords {
		if weight, ok := ix.exactWords[kw]; ok {
			raw += weight
			continue
		}

		var best float64
		for _, entry := range ix.topicEntries {
			kwLen, topicLen := float64(len(kw)), float64(len(entry.word))
			if kwLen > lengthRatioLimit*topicLen || topicLen > lengthRatioLimit*kwLen {
				continue
			}
			sim := similarity(kw, entry.word)
			if sim > similarityThreshold && entry.weight*sim > best {
				best = entry.weight * sim
			}
		}
		raw += best
	}

	score := raw / float64(len(keywords)) * 100
	if score > 100 {
		score = 100
	}
	return math.Round(score*10) / 10
}

// similarity is a normalized Levenshtein ratio: symmetric, in [0, 1], and 1.0
// only for identical strings.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// ScoreArticles builds one index for the whole batch and assigns each
// article's trending score from its title keywords. The articles slice is
// scored in place and returned.
func ScoreArticles(articles []domain.Article, phrases []string) []domain.Article {
	ix := NewIndex(phrases)
	for i := range articles {
		articles[i].TrendingScore = Score(ExtractKeywords(articles[i].Title), ix)
	}
	return articles
}
