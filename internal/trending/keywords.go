package trending

import (
	"regexp"
	"strings"
)

// stopwords is a lightweight hardcoded set of common English function words.
// Headline tokens found here carry no trending signal.
var stopwords = map[string]struct{}{}

var stopwordList = []string{
	"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
	"be", "have", "has", "had", "do", "does", "did", "will", "would",
	"could", "should", "may", "might", "shall", "can", "need", "must",
	"it", "its", "this", "that", "these", "those", "i", "we", "you",
	"he", "she", "they", "me", "him", "her", "us", "them", "my", "your",
	"his", "our", "their", "what", "which", "who", "whom", "how", "when",
	"where", "why", "not", "no", "nor", "so", "if", "then", "than",
	"too", "very", "just", "about", "above", "after", "again", "all",
	"also", "any", "because", "before", "between", "both", "each",
	"few", "more", "most", "other", "over", "same", "some", "such",
	"into", "through", "during", "out", "up", "down", "off", "only",
	"own", "here", "there", "while", "new", "first", "last", "says",
	"said", "according", "now", "get", "gets", "got", "make", "makes",
	"made", "going", "goes", "see", "look", "like", "come", "take",
	"still", "well", "back", "even", "want", "give", "day", "way",
}

func init() {
	for _, w := range stopwordList {
		stopwords[w] = struct{}{}
	}
}

var wordExpr = regexp.MustCompile(`[a-z]{2,}`)

// ExtractKeywords tokenizes a headline into its significant words: lowercase
// alphabetic runs of length >= 2 with stopwords removed. Pure; an empty title
// yields an empty slice.
func ExtractKeywords(title string) []string {
	words := wordExpr.FindAllString(strings.ToLower(title), -1)
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if _, skip := stopwords[w]; skip {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}
