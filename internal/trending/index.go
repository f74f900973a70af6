package trending

import "strings"

// Index is a position-weighted lookup structure built once per fetch cycle
// from an ordered trending list (rank 0 = strongest trend). It is an explicit
// value threaded through scoring calls, never a shared global, and is never
// persisted.
type Index struct {
	// exactWords maps each trending word to its best (highest) position
	// weight across all phrases containing it.
	exactWords map[string]float64
	// topicEntries keeps the first-seen (word, weight) pair per unique word
	// for the fuzzy fallback; trending lists are rank-ordered, so first-seen
	// is also highest-weight.
	topicEntries []topicEntry
}

type topicEntry struct {
	word   string
	weight float64
}

// NewIndex derives lookup structures from the ordered trending phrases.
// A phrase at rank r out of total gets position weight 1 - r/total.
// Construction is O(total words across all phrases).
func NewIndex(phrases []string) *Index {
	ix := &Index{exactWords: make(map[string]float64)}

	total := len(phrases)
	seen := make(map[string]struct{})
	for rank, phrase := range phrases {
		weight := 1.0 - float64(rank)/float64(total)
		for _, word := range strings.Fields(phrase) {
			if existing, ok := ix.exactWords[word]; !ok || existing < weight {
				ix.exactWords[word] = weight
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			ix.topicEntries = append(ix.topicEntries, topicEntry{word: word, weight: weight})
		}
	}
	return ix
}

// Empty reports whether the index holds no trending words, e.g. after a
// failed trend fetch. Scoring against an empty index yields 0.
func (ix *Index) Empty() bool {
	return ix == nil || len(ix.exactWords) == 0
}
