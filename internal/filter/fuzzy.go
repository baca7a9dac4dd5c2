package filter

import (
	"sort"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/petpad/internal/models"
)

// DefaultThreshold accepts roughly one typo per three query characters.
const DefaultThreshold = 0.3

// Fuzzy returns a MatcherFactory scoring the description and command fields
// by approximate substring distance. threshold is the largest accepted ratio
// of edits to query length; values outside (0, 1] use DefaultThreshold.
func Fuzzy(threshold float64) MatcherFactory {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return func(items []models.Snippet) Matcher {
		m := &fuzzyMatcher{threshold: threshold, fields: make([][][]rune, len(items))}
		for i, s := range items {
			m.fields[i] = [][]rune{fold(s.Description), fold(s.Command)}
		}
		return m
	}
}

type fuzzyMatcher struct {
	threshold float64
	fields    [][][]rune // per item: description, command
}

type hit struct {
	index int
	score float64
	at    int
}

// Search implements Matcher. Ties keep collection order.
func (m *fuzzyMatcher) Search(query string) []int {
	pattern := fold(query)
	if len(pattern) == 0 {
		return nil
	}
	var hits []hit
	for i, fields := range m.fields {
		best := hit{index: i, score: 2}
		for _, text := range fields {
			dist, end := substringDistance(pattern, text)
			score := float64(dist) / float64(len(pattern))
			if score < best.score || (score == best.score && end < best.at) {
				best.score, best.at = score, end
			}
		}
		if best.score <= m.threshold {
			hits = append(hits, best)
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score < hits[b].score
		}
		return hits[a].at < hits[b].at
	})
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.index
	}
	return out
}

// substringDistance returns the fewest edits turning pattern into some
// substring of text, and the end offset (in runes) of the earliest such
// substring.
func substringDistance(pattern, text []rune) (int, int) {
	m := len(pattern)
	col := make([]int, m+1)
	for i := range col {
		col[i] = i
	}
	best, at := col[m], 0
	for j := 1; j <= len(text); j++ {
		diag := col[0] // col[0] stays 0: a match may start anywhere
		for i := 1; i <= m; i++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}
			next := min(col[i]+1, col[i-1]+1, diag+cost)
			diag = col[i]
			col[i] = next
		}
		if col[m] < best {
			best, at = col[m], j
		}
	}
	return best, at
}

// fold lowercases s and strips diacritics so "Café" matches "cafe".
func fold(s string) []rune {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return []rune(out)
}
