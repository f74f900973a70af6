package trending

import (
	"testing"

	"clearfeed/internal/domain"
)

func TestScoreEmptyInputs(t *testing.T) {
	t.Parallel()

	ix := NewIndex([]string{"apple"})
	if got := Score(nil, ix); got != 0.0 {
		t.Fatalf("empty keywords: got %v, want 0.0", got)
	}
	if got := Score([]string{"apple"}, NewIndex(nil)); got != 0.0 {
		t.Fatalf("empty index: got %v, want 0.0", got)
	}
}

func TestScoreExactMatchSaturates(t *testing.T) {
	t.Parallel()

	ix := NewIndex([]string{"apple", "banana"})
	// every keyword equals the rank-0 trending word exactly
	if got := Score([]string{"apple", "apple", "apple"}, ix); got != 100.0 {
		t.Fatalf("got %v, want 100.0", got)
	}
}

func TestScoreRankZeroWeightIndependentOfListLength(t *testing.T) {
	t.Parallel()

	short := Score([]string{"apple"}, NewIndex([]string{"apple"}))
	long := Score([]string{"apple"}, NewIndex([]string{"apple", "banana"}))
	if short != 100.0 || long != 100.0 {
		t.Fatalf("rank 0 should weigh 1.0 in any list: short=%v long=%v", short, long)
	}
}

func TestScoreDeterministic(t *testing.T) {
	t.Parallel()

	ix := NewIndex([]string{"quantum computing", "superbowl", "electionz"})
	keywords := []string{"quantum", "elections", "football"}

	first := Score(keywords, ix)
	for i := 0; i < 10; i++ {
		if got := Score(keywords, ix); got != first {
			t.Fatalf("score changed between calls: %v vs %v", got, first)
		}
	}
}

func TestScoreRangeInvariant(t *testing.T) {
	t.Parallel()

	indices := []*Index{
		NewIndex(nil),
		NewIndex([]string{"apple"}),
		NewIndex([]string{"apple iphone launch", "banana bread recipe", "cherry"}),
	}
	keywordSets := [][]string{
		nil,
		{"apple"},
		{"apple", "appl", "xyzzy", "banan", "cherry", "launch"},
	}
	for _, ix := range indices {
		for _, kws := range keywordSets {
			got := Score(kws, ix)
			if got < 0.0 || got > 100.0 {
				t.Fatalf("score %v out of range for keywords %v", got, kws)
			}
		}
	}
}

func TestScoreFuzzyFallback(t *testing.T) {
	t.Parallel()

	ix := NewIndex([]string{"elections"})
	// "election" is one deletion away: similarity 8/9 > 0.6
	got := Score([]string{"election"}, ix)
	if got <= 0.0 {
		t.Fatalf("near-miss keyword should earn a fuzzy score, got %v", got)
	}
	if got >= 100.0 {
		t.Fatalf("fuzzy match should score below exact, got %v", got)
	}
}

func TestScoreFuzzyRejectsDissimilar(t *testing.T) {
	t.Parallel()

	ix := NewIndex([]string{"elections"})
	if got := Score([]string{"spaghetti"}, ix); got != 0.0 {
		t.Fatalf("unrelated keyword scored %v, want 0.0", got)
	}
}

func TestScoreLengthRatioPrefilter(t *testing.T) {
	t.Parallel()

	// "ab" vs a 6x longer topic word can never clear the threshold and must
	// be skipped by the length pre-filter.
	ix := NewIndex([]string{"abababababab"})
	if got := Score([]string{"ab"}, ix); got != 0.0 {
		t.Fatalf("length-mismatched keyword scored %v, want 0.0", got)
	}
}

func TestScoreExactPathSkipsFuzzy(t *testing.T) {
	t.Parallel()

	// "apple" matches exactly at weight 0.5; the higher-weight fuzzy
	// candidate "apples" must not override the exact path.
	ix := NewIndex([]string{"apples", "apple"})
	got := Score([]string{"apple"}, ix)
	if got != 50.0 {
		t.Fatalf("got %v, want 50.0 (exact weight, no fuzzy fallback)", got)
	}
}

func TestScoreRoundsToOneDecimal(t *testing.T) {
	t.Parallel()

	ix := NewIndex([]string{"apple", "banana", "cherry"})
	// one exact match at weight 1.0 over three keywords: 33.333... -> 33.3
	got := Score([]string{"apple", "xyzzy", "qwerty"}, ix)
	if got != 33.3 {
		t.Fatalf("got %v, want 33.3", got)
	}
}

func TestScoreArticlesAssignsScores(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Title: "Apple unveils the iphone fold"},
		{Title: "Quiet week in local gardening"},
	}
	scored := ScoreArticles(articles, []string{"apple iphone"})

	if scored[0].TrendingScore <= scored[1].TrendingScore {
		t.Fatalf("trending headline should outscore the quiet one: %v vs %v",
			scored[0].TrendingScore, scored[1].TrendingScore)
	}
	if articles[0].TrendingScore != scored[0].TrendingScore {
		t.Fatal("ScoreArticles should score the input slice in place")
	}
}

func TestScoreArticlesEmptyTrending(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{{Title: "Apple unveils the iphone fold"}}
	scored := ScoreArticles(articles, nil)
	if scored[0].TrendingScore != 0.0 {
		t.Fatalf("empty trending list should score 0, got %v", scored[0].TrendingScore)
	}
}

func TestSimilarityProperties(t *testing.T) {
	t.Parallel()

	if got := similarity("apple", "apple"); got != 1.0 {
		t.Fatalf("identical strings: got %v, want 1.0", got)
	}
	if similarity("apple", "appel") != similarity("appel", "apple") {
		t.Fatal("similarity must be symmetric")
	}
	if got := similarity("apple", "xyzzy"); got < 0.0 || got >= 1.0 {
		t.Fatalf("dissimilar strings: got %v, want in [0, 1)", got)
	}
}
